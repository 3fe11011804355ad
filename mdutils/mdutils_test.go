package mdutils

import (
	"strings"
	"testing"
)

func TestMakeHTML(t *testing.T) {
	out, err := MakeHTML("Some **bold** text.")
	if err != nil {
		t.Fatalf("MakeHTML failed: %s", err.Error())
	}
	if !strings.Contains(out, "<strong>bold</strong>") {
		t.Errorf("Unexpected html: %s", out)
	}
}

func TestMakeHTMLPassesRawAnchors(t *testing.T) {
	out, err := MakeHTML(`See <a class="instructure_file_link" href="https://x/files/1">Readings</a>.`)
	if err != nil {
		t.Fatalf("MakeHTML failed: %s", err.Error())
	}
	if !strings.Contains(out, `class="instructure_file_link"`) {
		t.Errorf("Raw anchor should survive conversion: %s", out)
	}
}

func TestMakeMD(t *testing.T) {
	out, err := MakeMD("<p>Some <strong>bold</strong> text.</p>")
	if err != nil {
		t.Fatalf("MakeMD failed: %s", err.Error())
	}
	if !strings.Contains(out, "**bold**") {
		t.Errorf("Unexpected markdown: %s", out)
	}
}
