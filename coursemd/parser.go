package coursemd

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/derekvan/canvas-markdown-tools/ir"
)

var errInvalidPoints = errors.New("points must be a non-negative number")

// Parse reads a whole course document into the intermediate representation.
// Parsing is strict about structure (items must live inside a module) and
// about metadata values (bad enums, points, and dates are hard errors), but
// it never rejects unknown annotations or unknown metadata keys; those ride
// along so a later serialize does not lose them.
func Parse(text string) (*ir.Course, error) {
	meta, rest, skipped := extractFrontmatter(text)
	course := &ir.Course{Meta: meta}

	sc := newScanner(rest, skipped)
	var cur *itemBuilder
	var curModule *ir.Module

	finalize := func() error {
		if cur == nil {
			return nil
		}
		it, err := cur.build()
		if err != nil {
			return err
		}
		curModule.Items = append(curModule.Items, it)
		cur = nil
		return nil
	}

	for {
		tok, ok := sc.next()
		if !ok {
			break
		}
		switch tok.typ {
		case tokModule:
			if err := finalize(); err != nil {
				return nil, err
			}
			curModule = &ir.Module{Title: tok.title}
			course.Modules = append(course.Modules, curModule)
		case tokItem:
			if curModule == nil {
				return nil, &ir.StructureError{Line: tok.line, Msg: "item heading before any module heading"}
			}
			if err := finalize(); err != nil {
				return nil, err
			}
			cur = newItemBuilder(tok)
		case tokAnnotation:
			switch {
			case cur != nil:
				cur.annotate(tok.key, tok.value)
			case curModule != nil && tok.key == "module_id":
				curModule.RemoteID = tok.value
			default:
				Log.Debugf("Ignoring annotation canvas_%s outside of an item at line %d", tok.key, tok.line)
			}
		case tokDelim:
			if cur != nil {
				cur.metaDone = true
			}
		case tokMeta:
			if cur != nil {
				cur.meta(tok)
			}
		case tokComment:
			if cur != nil && cur.metaDone {
				cur.body = append(cur.body, tok.text)
			}
		case tokText:
			if cur == nil {
				continue
			}
			if !cur.metaDone {
				cur.metaDone = true
				if tok.text == "" {
					continue
				}
			}
			cur.body = append(cur.body, tok.text)
		}
	}
	if err := finalize(); err != nil {
		return nil, err
	}
	return course, nil
}

type metaLine struct {
	key   string
	value string
	line  int
}

type itemBuilder struct {
	line     int
	kind     ir.ItemKind
	known    bool
	title    string
	metas    []metaLine
	ids      []metaLine
	body     []string
	metaDone bool
}

func newItemBuilder(tok token) *itemBuilder {
	b := &itemBuilder{line: tok.line, title: tok.title}
	kind, ok := ir.KindFromTag(tok.tag)
	if !ok {
		// Unknown tags degrade to a page whose title keeps the original
		// bracketed heading text, so nothing silently disappears.
		Log.Warnf("Unknown item tag [%s] at line %d, treating as page", tok.tag, tok.line)
		b.kind = ir.KindPage
		b.title = strings.TrimPrefix(tok.text, "## ")
		return b
	}
	b.kind = kind
	b.known = true
	return b
}

func (b *itemBuilder) annotate(key, value string) {
	b.ids = append(b.ids, metaLine{key: key, value: value})
}

func (b *itemBuilder) meta(tok token) {
	if b.metaDone {
		b.body = append(b.body, tok.text)
		return
	}
	b.metas = append(b.metas, metaLine{key: tok.key, value: tok.value, line: tok.line})
}

// contentIDKeys maps each item kind to the annotation key carrying its Canvas
// content ID. Headers and links have no content of their own.
var contentIDKeys = map[ir.ItemKind]string{
	ir.KindPage:       "page_id",
	ir.KindFile:       "file_id",
	ir.KindAssignment: "assignment_id",
	ir.KindDiscussion: "discussion_id",
}

func (b *itemBuilder) build() (ir.Item, error) {
	var it ir.Item
	switch b.kind {
	case ir.KindHeader:
		it = &ir.Header{ItemCommon: ir.ItemCommon{Title: b.title}}
	case ir.KindPage:
		it = &ir.Page{ItemCommon: ir.ItemCommon{Title: b.title}, Body: b.bodyText()}
	case ir.KindLink:
		it = &ir.Link{ItemCommon: ir.ItemCommon{Title: b.title}}
	case ir.KindFile:
		it = &ir.File{ItemCommon: ir.ItemCommon{Title: b.title}}
	case ir.KindAssignment:
		a := ir.NewAssignment(b.title)
		a.Body = b.bodyText()
		it = a
	case ir.KindDiscussion:
		d := ir.NewDiscussion(b.title)
		d.Body = b.bodyText()
		it = d
	}
	if err := b.applyMeta(it); err != nil {
		return nil, err
	}
	if l, ok := it.(*ir.Link); ok && l.URL == "" {
		return nil, &ir.ValidationError{Line: b.line, Item: b.title, Field: "url", Msg: "link item requires a url"}
	}
	if stray := b.bodyText(); stray != "" {
		if _, hasBody := ir.BodyOf(it); !hasBody {
			Log.Warnf("Ignoring body text under [%s] %q at line %d, this item type has no body", b.kind.Tag(), b.title, b.line)
		}
	}
	b.applyIDs(it)
	return it, nil
}

func (b *itemBuilder) bodyText() string {
	return strings.Trim(strings.Join(b.body, "\n"), "\n")
}

func (b *itemBuilder) applyMeta(it ir.Item) error {
	c := it.Common()
	for _, m := range b.metas {
		handled, err := applyTypedMeta(it, m)
		if err != nil {
			return err
		}
		if !handled {
			c.Extra = append(c.Extra, ir.MetaField{Key: m.key, Value: m.value})
		}
	}
	return nil
}

func applyTypedMeta(it ir.Item, m metaLine) (bool, error) {
	vErr := func(msg string) error {
		return &ir.ValidationError{Line: m.line, Item: it.Common().Title, Field: m.key, Value: m.value, Msg: msg}
	}
	switch v := it.(type) {
	case *ir.Link:
		if m.key == "url" {
			v.URL = m.value
			return true, nil
		}
	case *ir.File:
		if m.key == "filename" {
			if m.value != v.Title {
				v.Filename = m.value
			}
			return true, nil
		}
	case *ir.Assignment:
		switch m.key {
		case "points":
			p, err := parsePoints(m.value)
			if err != nil {
				return false, vErr(err.Error())
			}
			v.Points = p
			return true, nil
		case "due":
			t, err := ir.ParseDueDate(m.value)
			if err != nil {
				return false, vErr(err.Error())
			}
			v.DueAt = &t
			return true, nil
		case "grade_display":
			g, err := ir.ParseGradeDisplay(m.value)
			if err != nil {
				return false, vErr(err.Error())
			}
			v.GradeDisplay = g
			return true, nil
		case "submission_types":
			st, err := ir.ParseSubmissionTypes(m.value)
			if err != nil {
				return false, vErr(err.Error())
			}
			v.SubmissionTypes = st
			return true, nil
		}
	case *ir.Discussion:
		switch m.key {
		case "threaded":
			bv, err := ir.ParseBool(m.value)
			if err != nil {
				return false, vErr(err.Error())
			}
			v.Threaded = bv
			return true, nil
		case "require_initial_post":
			bv, err := ir.ParseBool(m.value)
			if err != nil {
				return false, vErr(err.Error())
			}
			v.RequireInitialPost = bv
			return true, nil
		case "graded":
			bv, err := ir.ParseBool(m.value)
			if err != nil {
				return false, vErr(err.Error())
			}
			v.Graded = bv
			return true, nil
		case "points":
			p, err := parsePoints(m.value)
			if err != nil {
				return false, vErr(err.Error())
			}
			v.Points = p
			return true, nil
		case "due":
			t, err := ir.ParseDueDate(m.value)
			if err != nil {
				return false, vErr(err.Error())
			}
			v.DueAt = &t
			return true, nil
		case "grade_display":
			g, err := ir.ParseGradeDisplay(m.value)
			if err != nil {
				return false, vErr(err.Error())
			}
			v.GradeDisplay = g
			return true, nil
		}
	}
	return false, nil
}

func parsePoints(s string) (float64, error) {
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errInvalidPoints
	}
	if p < 0 || p != p {
		return 0, errInvalidPoints
	}
	return p, nil
}

func (b *itemBuilder) applyIDs(it ir.Item) {
	c := it.Common()
	contentKey := contentIDKeys[it.Kind()]
	for _, id := range b.ids {
		switch {
		case id.key == "module_item_id":
			c.ModuleItemID = id.value
		case contentKey != "" && id.key == contentKey:
			c.RemoteID = id.value
		default:
			c.ExtraIDs = append(c.ExtraIDs, ir.MetaField{Key: id.key, Value: id.value})
		}
	}
}
