package coursemd

import (
	"math"
	"strconv"
	"strings"

	"github.com/derekvan/canvas-markdown-tools/ir"
)

// Serialize renders a course back into the document dialect. Output is
// deterministic: identical courses always produce identical bytes, and
// metadata lines carrying default values are omitted entirely so untouched
// documents stay minimal.
func Serialize(c *ir.Course) string {
	var lines []string
	add := func(s string) { lines = append(lines, s) }

	for mi, m := range c.Modules {
		if mi > 0 {
			add("")
		}
		add("# " + m.Title)
		if m.RemoteID != "" {
			add("<!-- canvas_module_id: " + m.RemoteID + " -->")
		}
		for _, it := range m.Items {
			add("")
			appendItem(&lines, it)
		}
	}
	body := strings.Join(lines, "\n") + "\n"
	return renderFrontmatter(c.Meta) + body
}

func appendItem(lines *[]string, it ir.Item) {
	add := func(s string) { *lines = append(*lines, s) }
	c := it.Common()

	add("## [" + it.Kind().Tag() + "] " + c.Title)
	if key := contentIDKeys[it.Kind()]; key != "" && c.RemoteID != "" {
		add("<!-- canvas_" + key + ": " + c.RemoteID + " -->")
	}
	if c.ModuleItemID != "" {
		add("<!-- canvas_module_item_id: " + c.ModuleItemID + " -->")
	}
	for _, id := range c.ExtraIDs {
		add("<!-- canvas_" + id.Key + ": " + id.Value + " -->")
	}

	for _, m := range itemMeta(it) {
		add(m.Key + ": " + m.Value)
	}
	for _, m := range c.Extra {
		add(m.Key + ": " + m.Value)
	}

	if body, ok := ir.BodyOf(it); ok {
		switch it.(type) {
		case *ir.Assignment, *ir.Discussion:
			add("---")
			if body != "" {
				add(body)
			}
		default:
			if body != "" {
				add(body)
			}
		}
	}
}

// itemMeta lists the typed metadata of an item in canonical order, skipping
// fields that hold their default value.
func itemMeta(it ir.Item) []ir.MetaField {
	var out []ir.MetaField
	put := func(k, v string) { out = append(out, ir.MetaField{Key: k, Value: v}) }

	switch v := it.(type) {
	case *ir.Link:
		put("url", v.URL)
	case *ir.File:
		if v.Filename != "" {
			put("filename", v.Filename)
		}
	case *ir.Assignment:
		if v.Points != 0 {
			put("points", formatPoints(v.Points))
		}
		if v.DueAt != nil {
			put("due", ir.FormatDueDate(*v.DueAt))
		}
		if v.GradeDisplay != ir.GradeCompleteIncomplete {
			put("grade_display", v.GradeDisplay.String())
		}
		if !ir.IsDefaultSubmissionTypes(v.SubmissionTypes) {
			put("submission_types", ir.FormatSubmissionTypes(v.SubmissionTypes))
		}
	case *ir.Discussion:
		if v.RequireInitialPost {
			put("require_initial_post", "true")
		}
		if !v.Threaded {
			put("threaded", "false")
		}
		if v.Graded {
			put("graded", "true")
		}
		if v.Points != 0 {
			put("points", formatPoints(v.Points))
		}
		if v.DueAt != nil {
			put("due", ir.FormatDueDate(*v.DueAt))
		}
		if v.GradeDisplay != ir.GradeCompleteIncomplete {
			put("grade_display", v.GradeDisplay.String())
		}
	}
	return out
}

func formatPoints(p float64) string {
	if p == math.Trunc(p) {
		return strconv.FormatFloat(p, 'f', 0, 64)
	}
	return strconv.FormatFloat(p, 'f', -1, 64)
}
