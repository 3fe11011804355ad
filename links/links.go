// Package links resolves [[Type:Name]] cross references between items of a
// course. References stay literal in the document; they are only rewritten to
// anchor tags on the way to Canvas, once every target has a remote ID.
package links

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/derekvan/canvas-markdown-tools/config"
	"github.com/derekvan/canvas-markdown-tools/ir"
)

var Log = config.Cfg().GetLogger()

var refRe = regexp.MustCompile(`(?i)\[\[(page|assignment|discussion|file):([^\]]+)\]\]`)

// Ref is one [[Type:Name]] occurrence in a body.
type Ref struct {
	Raw   string
	Kind  ir.ItemKind
	Title string
}

func refKind(tag string) ir.ItemKind {
	k, _ := ir.KindFromTag(strings.ToLower(tag))
	return k
}

// Refs extracts every cross reference from a body, in document order.
func Refs(body string) []Ref {
	var out []Ref
	for _, m := range refRe.FindAllStringSubmatch(body, -1) {
		out = append(out, Ref{Raw: m[0], Kind: refKind(m[1]), Title: strings.TrimSpace(m[2])})
	}
	return out
}

// HasRefs reports whether a body contains any cross references.
func HasRefs(body string) bool {
	return refRe.MatchString(body)
}

// Resolver looks up link targets by kind and case-insensitive title.
type Resolver struct {
	baseURL  string
	courseID string
	index    map[ir.ItemKind]map[string][]ir.Item
}

func NewResolver(course *ir.Course, baseURL, courseID string) *Resolver {
	r := &Resolver{
		baseURL:  strings.TrimRight(baseURL, "/"),
		courseID: courseID,
		index:    map[ir.ItemKind]map[string][]ir.Item{},
	}
	for _, m := range course.Modules {
		for _, it := range m.Items {
			switch it.Kind() {
			case ir.KindPage, ir.KindAssignment, ir.KindDiscussion, ir.KindFile:
			default:
				continue
			}
			byTitle := r.index[it.Kind()]
			if byTitle == nil {
				byTitle = map[string][]ir.Item{}
				r.index[it.Kind()] = byTitle
			}
			key := strings.ToLower(it.Common().Title)
			byTitle[key] = append(byTitle[key], it)
		}
	}
	return r
}

// target returns the single item a reference points at, or an unresolved
// record explaining why there is none.
func (r *Resolver) target(ref Ref) (ir.Item, *ir.UnresolvedLink) {
	unres := func(reason string) *ir.UnresolvedLink {
		return &ir.UnresolvedLink{TargetType: ref.Kind.Tag(), TargetName: ref.Title, Reason: reason}
	}
	candidates := r.index[ref.Kind][strings.ToLower(ref.Title)]
	if len(candidates) == 0 {
		return nil, unres("no item with this title")
	}
	if len(candidates) > 1 {
		return nil, unres(fmt.Sprintf("%d items share this title", len(candidates)))
	}
	return candidates[0], nil
}

// Check verifies every reference in every body against the course itself,
// without needing remote IDs. It reports all failures at once.
func (r *Resolver) Check(course *ir.Course) error {
	var bad []ir.UnresolvedLink
	for _, m := range course.Modules {
		for _, it := range m.Items {
			body, ok := ir.BodyOf(it)
			if !ok {
				continue
			}
			for _, ref := range Refs(body) {
				if _, u := r.target(ref); u != nil {
					bad = append(bad, *u)
				}
			}
		}
	}
	if len(bad) > 0 {
		return &ir.UnresolvedLinkError{Links: bad}
	}
	return nil
}

// ResolveBody rewrites every resolvable reference in a body to an anchor tag
// and returns the references it could not resolve. Unresolvable references
// are left as literal text.
func (r *Resolver) ResolveBody(body string) (string, []ir.UnresolvedLink) {
	var bad []ir.UnresolvedLink
	out := refRe.ReplaceAllStringFunc(body, func(raw string) string {
		m := refRe.FindStringSubmatch(raw)
		ref := Ref{Raw: raw, Kind: refKind(m[1]), Title: strings.TrimSpace(m[2])}
		it, u := r.target(ref)
		if u == nil && it.Common().RemoteID == "" {
			u = &ir.UnresolvedLink{TargetType: ref.Kind.Tag(), TargetName: ref.Title, Reason: "target has no canvas id yet"}
		}
		if u != nil {
			bad = append(bad, *u)
			return raw
		}
		return r.anchor(ref, it)
	})
	return out, bad
}

func (r *Resolver) anchor(ref Ref, it ir.Item) string {
	c := it.Common()
	title := c.Title
	switch it.Kind() {
	case ir.KindFile:
		href := fmt.Sprintf("%s/courses/%s/files/%s", r.baseURL, r.courseID, c.RemoteID)
		return fmt.Sprintf(`<a class="instructure_file_link" href="%s">%s</a>`, href, title)
	case ir.KindAssignment:
		return fmt.Sprintf(`<a href="%s/courses/%s/assignments/%s">%s</a>`, r.baseURL, r.courseID, c.RemoteID, title)
	case ir.KindDiscussion:
		return fmt.Sprintf(`<a href="%s/courses/%s/discussion_topics/%s">%s</a>`, r.baseURL, r.courseID, c.RemoteID, title)
	default:
		if c.RemoteURL != "" {
			return fmt.Sprintf(`<a href="%s">%s</a>`, c.RemoteURL, title)
		}
		return fmt.Sprintf(`<a href="%s/courses/%s/pages/%s">%s</a>`, r.baseURL, r.courseID, c.RemoteID, title)
	}
}
