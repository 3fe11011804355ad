package ir

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// GradeDisplay is how a graded item's result is shown to students.
type GradeDisplay int

const (
	GradeCompleteIncomplete GradeDisplay = iota
	GradePoints
	GradeNotGraded
)

func (g GradeDisplay) String() string {
	switch g {
	case GradeCompleteIncomplete:
		return "complete_incomplete"
	case GradePoints:
		return "points"
	case GradeNotGraded:
		return "not_graded"
	}
	return "complete_incomplete"
}

// CanvasGradingType maps to the Canvas API grading_type value.
func (g GradeDisplay) CanvasGradingType() string {
	switch g {
	case GradePoints:
		return "points"
	case GradeNotGraded:
		return "not_graded"
	default:
		return "pass_fail"
	}
}

// ParseGradeDisplay accepts the dialect tokens plus the pass_fail alias the
// remote system uses. Anything else is a validation failure.
func ParseGradeDisplay(s string) (GradeDisplay, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "complete_incomplete", "pass_fail":
		return GradeCompleteIncomplete, nil
	case "points":
		return GradePoints, nil
	case "not_graded":
		return GradeNotGraded, nil
	}
	return GradeCompleteIncomplete, errors.Errorf("unknown grade_display value: %q", s)
}

// GradeDisplayFromCanvas converts a Canvas grading_type to the nearest dialect
// value. Letter/GPA/percent schemes degrade to points, matching the exporter.
func GradeDisplayFromCanvas(gradingType string) GradeDisplay {
	switch gradingType {
	case "points", "letter_grade", "gpa_scale", "percent":
		return GradePoints
	case "not_graded":
		return GradeNotGraded
	default:
		return GradeCompleteIncomplete
	}
}

// SubmissionType is a Canvas assignment submission mode.
type SubmissionType int

const (
	SubmitOnlineText SubmissionType = iota
	SubmitOnlineUpload
	SubmitOnlineURL
	SubmitMediaRecording
	SubmitNone
	SubmitOnPaper
)

func (s SubmissionType) String() string {
	switch s {
	case SubmitOnlineText:
		return "online_text_entry"
	case SubmitOnlineUpload:
		return "online_upload"
	case SubmitOnlineURL:
		return "online_url"
	case SubmitMediaRecording:
		return "media_recording"
	case SubmitNone:
		return "none"
	case SubmitOnPaper:
		return "on_paper"
	}
	return "online_text_entry"
}

var submissionAliases = map[string]SubmissionType{
	"online_text_entry": SubmitOnlineText,
	"online_text":       SubmitOnlineText,
	"text":              SubmitOnlineText,
	"online_upload":     SubmitOnlineUpload,
	"upload":            SubmitOnlineUpload,
	"file":              SubmitOnlineUpload,
	"online_url":        SubmitOnlineURL,
	"url":               SubmitOnlineURL,
	"media_recording":   SubmitMediaRecording,
	"media":             SubmitMediaRecording,
	"none":              SubmitNone,
	"on_paper":          SubmitOnPaper,
	"paper":             SubmitOnPaper,
}

// DefaultSubmissionTypes is the dialect default: online text entry only.
func DefaultSubmissionTypes() []SubmissionType {
	return []SubmissionType{SubmitOnlineText}
}

// ParseSubmissionTypes parses a comma-separated set. Order is insignificant
// and duplicates collapse; the result is returned in canonical enum order so
// serialization is deterministic. Unknown tokens are an error.
func ParseSubmissionTypes(s string) ([]SubmissionType, error) {
	seen := map[SubmissionType]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		st, ok := submissionAliases[part]
		if !ok {
			return nil, errors.Errorf("unknown submission type: %q", part)
		}
		seen[st] = true
	}
	if len(seen) == 0 {
		return DefaultSubmissionTypes(), nil
	}
	out := make([]SubmissionType, 0, len(seen))
	for st := range seen {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// SubmissionTypesFromCanvas maps remote submission type strings onto the enum,
// skipping values the dialect cannot express.
func SubmissionTypesFromCanvas(values []string) []SubmissionType {
	seen := map[SubmissionType]bool{}
	for _, v := range values {
		if st, ok := submissionAliases[v]; ok {
			seen[st] = true
		}
	}
	if len(seen) == 0 {
		return DefaultSubmissionTypes()
	}
	out := make([]SubmissionType, 0, len(seen))
	for st := range seen {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FormatSubmissionTypes renders the canonical comma-separated form.
func FormatSubmissionTypes(types []SubmissionType) string {
	parts := make([]string, 0, len(types))
	for _, st := range types {
		parts = append(parts, st.String())
	}
	return strings.Join(parts, ", ")
}

// CanvasSubmissionTypes renders the set as the wire strings Canvas expects.
func CanvasSubmissionTypes(types []SubmissionType) []string {
	out := make([]string, 0, len(types))
	for _, st := range types {
		out = append(out, st.String())
	}
	return out
}

// IsDefaultSubmissionTypes reports whether the set equals the dialect default.
func IsDefaultSubmissionTypes(types []SubmissionType) bool {
	return len(types) == 1 && types[0] == SubmitOnlineText
}

// ParseBool accepts case-insensitive true/false literals only. The looser
// yes/no forms some tools accept are deliberately rejected.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, errors.Errorf("invalid boolean value: %q", s)
}
