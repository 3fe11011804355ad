package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/derekvan/canvas-markdown-tools/ir"
)

func downloadServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/42/modules", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 4000, "name": "Week 1", "position": 1}]`)
	})
	mux.HandleFunc("/api/v1/courses/42/modules/4000/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 1, "title": "Getting Started", "type": "SubHeader", "position": 1},
			{"id": 2, "title": "Syllabus", "type": "Page", "page_url": "syllabus", "position": 2},
			{"id": 3, "title": "First Quiz", "type": "Assignment", "content_id": 501, "position": 3},
			{"id": 4, "title": "Readings", "type": "File", "content_id": 88, "position": 4},
			{"id": 5, "title": "Midterm", "type": "Quiz", "content_id": 600, "html_url": "https://canvas.test/courses/42/quizzes/600", "position": 5},
			{"id": 6, "title": "Grade Tool", "type": "ExternalTool", "position": 6}
		]`)
	})
	mux.HandleFunc("/api/v1/courses/42/pages/syllabus", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"url": "syllabus", "title": "Syllabus", "body": "<p>Get the <a class=\"instructure_file_link\" href=\"https://canvas.test/courses/42/files/88\">Readings</a> first.</p>", "html_url": "https://canvas.test/courses/42/pages/syllabus"}`)
	})
	mux.HandleFunc("/api/v1/courses/42/assignments/501", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 501, "name": "First Quiz", "description": "<p>Answer <strong>every</strong> question.</p>", "points_possible": 20, "due_at": "2026-01-23T04:59:00Z", "grading_type": "letter_grade", "submission_types": ["online_text_entry", "online_upload"]}`)
	})
	mux.HandleFunc("/api/v1/courses/42/files/88", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 88, "display_name": "week1-readings.pdf"}`)
	})
	return httptest.NewServer(mux)
}

func TestDownload(t *testing.T) {
	srv := downloadServer(t)
	defer srv.Close()

	course, err := NewDownloader(NewClient(srv.URL, "42", "t")).Download(context.Background())
	if err != nil {
		t.Fatalf("Download failed: %s", err.Error())
	}
	if course.Meta.CourseID != "42" || course.Meta.CanvasURL != srv.URL {
		t.Errorf("Frontmatter meta not set: %+v", course.Meta)
	}
	if len(course.Modules) != 1 {
		t.Fatalf("Expected 1 module, got %d", len(course.Modules))
	}
	m := course.Modules[0]
	if m.RemoteID != "4000" {
		t.Errorf("Module ID not kept: %q", m.RemoteID)
	}
	// The external tool is dropped, the quiz degrades to a link.
	if len(m.Items) != 5 {
		t.Fatalf("Expected 5 items, got %d", len(m.Items))
	}

	if _, ok := m.Items[0].(*ir.Header); !ok {
		t.Errorf("Expected header first, got %T", m.Items[0])
	}

	p, ok := m.Items[1].(*ir.Page)
	if !ok {
		t.Fatalf("Expected page, got %T", m.Items[1])
	}
	if p.RemoteID != "syllabus" || p.ModuleItemID != "2" {
		t.Errorf("Page IDs wrong: %+v", p.ItemCommon)
	}
	if !strings.Contains(p.Body, "[[File:Readings]]") {
		t.Errorf("File anchor should internalize: %q", p.Body)
	}
	if strings.Contains(p.Body, "<a") || strings.Contains(p.Body, "</p>") {
		t.Errorf("Body should be markdown: %q", p.Body)
	}

	a, ok := m.Items[2].(*ir.Assignment)
	if !ok {
		t.Fatalf("Expected assignment, got %T", m.Items[2])
	}
	if a.Points != 20 || a.RemoteID != "501" {
		t.Errorf("Assignment fields wrong: %+v", a)
	}
	if a.DueAt == nil || !a.DueAt.Equal(time.Date(2026, 1, 23, 4, 59, 0, 0, time.UTC)) {
		t.Errorf("Due date wrong: %v", a.DueAt)
	}
	if a.GradeDisplay != ir.GradePoints {
		t.Errorf("letter_grade should map to points, got %v", a.GradeDisplay)
	}
	if len(a.SubmissionTypes) != 2 {
		t.Errorf("Submission types wrong: %v", a.SubmissionTypes)
	}
	if !strings.Contains(a.Body, "**every**") {
		t.Errorf("Assignment body should be markdown: %q", a.Body)
	}

	f, ok := m.Items[3].(*ir.File)
	if !ok {
		t.Fatalf("Expected file, got %T", m.Items[3])
	}
	if f.Filename != "week1-readings.pdf" {
		t.Errorf("Filename not taken from display name: %q", f.Filename)
	}

	l, ok := m.Items[4].(*ir.Link)
	if !ok {
		t.Fatalf("Quiz should degrade to a link, got %T", m.Items[4])
	}
	if l.URL != "https://canvas.test/courses/42/quizzes/600" {
		t.Errorf("Quiz link should point at its canvas URL: %q", l.URL)
	}
}

func TestFindFilePrefersExactMatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/42/files", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 1, "display_name": "readings.PDF"},
			{"id": 2, "display_name": "readings.pdf"}
		]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	remote := NewRemote(NewClient(srv.URL, "42", "t"))
	rf, err := remote.FindFile(context.Background(), "readings.pdf")
	if err != nil {
		t.Fatalf("FindFile failed: %s", err.Error())
	}
	if rf.ID != "2" {
		t.Errorf("Exact match should win, got %s", rf.ID)
	}

	rf, err = remote.FindFile(context.Background(), "READINGS.pdf")
	if err != nil {
		t.Fatalf("FindFile failed: %s", err.Error())
	}
	if rf.ID != "1" {
		t.Errorf("First case-insensitive match should win, got %s", rf.ID)
	}
}
