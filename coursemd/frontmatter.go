package coursemd

import (
	"fmt"
	"strings"

	yaml "gopkg.in/yaml.v2"

	"github.com/derekvan/canvas-markdown-tools/ir"
)

// extractFrontmatter strips an optional leading YAML block delimited by ---
// lines and returns the course meta, the remaining document, and how many
// lines were consumed (so parse errors still report document line numbers).
// A malformed block is dropped with a warning rather than failing the parse.
func extractFrontmatter(text string) (ir.CourseMeta, string, int) {
	var meta ir.CourseMeta
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return meta, text, 0
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return meta, text, 0
	}
	block := strings.Join(lines[1:end], "\n")
	var raw struct {
		CanvasURL string      `yaml:"canvas_url"`
		CourseID  interface{} `yaml:"course_id"`
	}
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
		Log.Warnf("Ignoring malformed frontmatter: %s", err.Error())
	} else {
		meta.CanvasURL = raw.CanvasURL
		if raw.CourseID != nil {
			meta.CourseID = fmt.Sprint(raw.CourseID)
		}
	}
	return meta, strings.Join(lines[end+1:], "\n"), end + 1
}

func renderFrontmatter(meta ir.CourseMeta) string {
	if meta.CanvasURL == "" && meta.CourseID == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("---\n")
	if meta.CanvasURL != "" {
		b.WriteString("canvas_url: " + meta.CanvasURL + "\n")
	}
	if meta.CourseID != "" {
		b.WriteString("course_id: " + meta.CourseID + "\n")
	}
	b.WriteString("---\n\n")
	return b.String()
}
