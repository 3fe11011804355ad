package ir

import "time"

// ItemKind enumerates the closed set of item variants. Parsing and
// serialization both switch over it exhaustively; adding a kind requires
// updating both directions together.
type ItemKind int

const (
	KindHeader ItemKind = iota
	KindPage
	KindLink
	KindFile
	KindAssignment
	KindDiscussion
)

var kindTags = map[ItemKind]string{
	KindHeader:     "header",
	KindPage:       "page",
	KindLink:       "link",
	KindFile:       "file",
	KindAssignment: "assignment",
	KindDiscussion: "discussion",
}

var tagKinds = map[string]ItemKind{}

func init() {
	for k, t := range kindTags {
		tagKinds[t] = k
	}
}

// Tag returns the bracket tag used in item header lines, e.g. "assignment".
func (k ItemKind) Tag() string {
	return kindTags[k]
}

func (k ItemKind) String() string {
	return k.Tag()
}

// KindFromTag maps a lowercased bracket tag to its kind. Unrecognized tags
// report ok=false; the parser falls back to literal page content for those.
func KindFromTag(tag string) (kind ItemKind, ok bool) {
	kind, ok = tagKinds[tag]
	return
}

// MetaField is a key/value metadata line preserved verbatim, in document
// order, for keys the parser does not recognize.
type MetaField struct {
	Key   string
	Value string
}

// ItemCommon holds the attributes shared by every item variant. RemoteID is
// the content identifier (page/assignment/discussion/file id); ModuleItemID is
// the position-in-module pointer, a distinct identifier in the remote system.
// Both are carried as opaque strings since page identifiers may be slugs.
type ItemCommon struct {
	Title        string
	RemoteID     string
	ModuleItemID string
	// RemoteURL is populated after a sync or download; never serialized.
	RemoteURL string
	// Extra preserves unrecognized metadata lines for round-trip.
	Extra []MetaField
	// ExtraIDs preserves unrecognized hidden annotations for round-trip.
	ExtraIDs []MetaField
}

// Item is the closed variant interface over the six content kinds.
type Item interface {
	Kind() ItemKind
	Common() *ItemCommon
}

type Header struct {
	ItemCommon
}

func (h *Header) Kind() ItemKind      { return KindHeader }
func (h *Header) Common() *ItemCommon { return &h.ItemCommon }

type Page struct {
	ItemCommon
	Body string
}

func (p *Page) Kind() ItemKind      { return KindPage }
func (p *Page) Common() *ItemCommon { return &p.ItemCommon }

type Link struct {
	ItemCommon
	URL string
}

func (l *Link) Kind() ItemKind      { return KindLink }
func (l *Link) Common() *ItemCommon { return &l.ItemCommon }

type File struct {
	ItemCommon
	// Filename is the remote file to look up; empty means "same as title".
	Filename string
}

func (f *File) Kind() ItemKind      { return KindFile }
func (f *File) Common() *ItemCommon { return &f.ItemCommon }

// EffectiveFilename is the name used for the course-files lookup.
func (f *File) EffectiveFilename() string {
	if f.Filename != "" {
		return f.Filename
	}
	return f.Title
}

type Assignment struct {
	ItemCommon
	Points          float64
	DueAt           *time.Time
	GradeDisplay    GradeDisplay
	SubmissionTypes []SubmissionType
	Body            string
}

func (a *Assignment) Kind() ItemKind      { return KindAssignment }
func (a *Assignment) Common() *ItemCommon { return &a.ItemCommon }

// NewAssignment returns an assignment with the dialect's defaults applied.
func NewAssignment(title string) *Assignment {
	return &Assignment{
		ItemCommon:      ItemCommon{Title: title},
		GradeDisplay:    GradeCompleteIncomplete,
		SubmissionTypes: DefaultSubmissionTypes(),
	}
}

type Discussion struct {
	ItemCommon
	Threaded           bool
	RequireInitialPost bool
	Graded             bool
	Points             float64
	DueAt              *time.Time
	GradeDisplay       GradeDisplay
	Body               string
}

func (d *Discussion) Kind() ItemKind      { return KindDiscussion }
func (d *Discussion) Common() *ItemCommon { return &d.ItemCommon }

// NewDiscussion returns a discussion with the dialect's defaults applied
// (threaded, ungraded, no initial-post requirement).
func NewDiscussion(title string) *Discussion {
	return &Discussion{
		ItemCommon:   ItemCommon{Title: title},
		Threaded:     true,
		GradeDisplay: GradeCompleteIncomplete,
	}
}

// BodyOf returns the raw body text for body-bearing kinds.
func BodyOf(it Item) (body string, ok bool) {
	switch v := it.(type) {
	case *Page:
		return v.Body, true
	case *Assignment:
		return v.Body, true
	case *Discussion:
		return v.Body, true
	case *Header, *Link, *File:
		return "", false
	}
	return "", false
}

// SetBody replaces the raw body text for body-bearing kinds; it is a no-op
// for the others.
func SetBody(it Item, body string) {
	switch v := it.(type) {
	case *Page:
		v.Body = body
	case *Assignment:
		v.Body = body
	case *Discussion:
		v.Body = body
	}
}
