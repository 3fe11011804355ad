package recon

import (
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/derekvan/canvas-markdown-tools/ir"
)

// Canvas rewrites uploaded HTML: it re-escapes entities, reflows whitespace,
// and normalizes void tags. Comparing raw strings would flag every item as
// changed on every run, so both sides are normalized before diffing.

var (
	wsRe = regexp.MustCompile(`\s+`)
	// Whitespace touching a tag boundary carries no meaning in rendered
	// HTML. The lookarounds keep the tags themselves intact.
	tagEdgeWS = regexp2.MustCompile(`(?<=>)\s+|\s+(?=<)`, 0)
	voidSlash = regexp.MustCompile(`<(br|hr|img)([^>]*?)\s*/>`)
)

// NormalizeHTML reduces an HTML fragment to a form stable across a Canvas
// upload/download cycle.
func NormalizeHTML(s string) string {
	s = html.UnescapeString(s)
	s = voidSlash.ReplaceAllString(s, "<$1$2>")
	s = wsRe.ReplaceAllString(s, " ")
	if out, err := tagEdgeWS.Replace(s, "", -1, -1); err == nil {
		s = out
	}
	return strings.TrimSpace(s)
}

// HTMLEqual reports whether two fragments render the same after
// normalization.
func HTMLEqual(a, b string) bool {
	return NormalizeHTML(a) == NormalizeHTML(b)
}

func dueEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Unix() == b.Unix()
}

func typesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// diffModule reports the fields of m that differ from the remote module.
func diffModule(m *ir.Module, remote *RemoteModule) []string {
	var fields []string
	if m.Title != remote.Title {
		fields = append(fields, "title")
	}
	return fields
}

// diffPage compares a desired page (title plus rendered body HTML) against
// the remote copy.
func diffPage(title, bodyHTML string, remote *RemotePage) []string {
	var fields []string
	if title != remote.Title {
		fields = append(fields, "title")
	}
	if !HTMLEqual(bodyHTML, remote.Body) {
		fields = append(fields, "body")
	}
	return fields
}

func diffAssignment(want, remote *RemoteAssignment) []string {
	var fields []string
	if want.Title != remote.Title {
		fields = append(fields, "title")
	}
	if want.Points != remote.Points {
		fields = append(fields, "points")
	}
	if !dueEqual(want.DueAt, remote.DueAt) {
		fields = append(fields, "due")
	}
	if want.GradingType != remote.GradingType {
		fields = append(fields, "grade_display")
	}
	if !typesEqual(want.SubmissionTypes, remote.SubmissionTypes) {
		fields = append(fields, "submission_types")
	}
	if !HTMLEqual(want.Body, remote.Body) {
		fields = append(fields, "body")
	}
	return fields
}

func diffDiscussion(want, remote *RemoteDiscussion) []string {
	var fields []string
	if want.Title != remote.Title {
		fields = append(fields, "title")
	}
	if want.Threaded != remote.Threaded {
		fields = append(fields, "threaded")
	}
	if want.RequireInitialPost != remote.RequireInitialPost {
		fields = append(fields, "require_initial_post")
	}
	if want.Graded != remote.Graded {
		fields = append(fields, "graded")
	}
	if want.Graded && remote.Graded {
		if want.Points != remote.Points {
			fields = append(fields, "points")
		}
		if !dueEqual(want.DueAt, remote.DueAt) {
			fields = append(fields, "due")
		}
		if want.GradingType != remote.GradingType {
			fields = append(fields, "grade_display")
		}
	}
	if !HTMLEqual(want.Body, remote.Body) {
		fields = append(fields, "body")
	}
	return fields
}

func diffModuleItem(want, remote *RemoteModuleItem) []string {
	var fields []string
	if want.Title != remote.Title {
		fields = append(fields, "title")
	}
	if want.Position != remote.Position {
		fields = append(fields, "position")
	}
	if want.ExternalURL != "" && want.ExternalURL != remote.ExternalURL {
		fields = append(fields, "url")
	}
	return fields
}

// wantAssignment maps a document assignment onto the remote model, with the
// body already rendered to HTML.
func wantAssignment(a *ir.Assignment, bodyHTML string) *RemoteAssignment {
	return &RemoteAssignment{
		ID:              a.RemoteID,
		Title:           a.Title,
		Body:            bodyHTML,
		Points:          a.Points,
		DueAt:           a.DueAt,
		GradingType:     a.GradeDisplay.CanvasGradingType(),
		SubmissionTypes: ir.CanvasSubmissionTypes(a.SubmissionTypes),
	}
}

func wantDiscussion(d *ir.Discussion, bodyHTML string) *RemoteDiscussion {
	want := &RemoteDiscussion{
		ID:                 d.RemoteID,
		Title:              d.Title,
		Body:               bodyHTML,
		Threaded:           d.Threaded,
		RequireInitialPost: d.RequireInitialPost,
		Graded:             d.Graded,
	}
	if d.Graded {
		want.Points = d.Points
		want.DueAt = d.DueAt
		want.GradingType = d.GradeDisplay.CanvasGradingType()
	}
	return want
}
