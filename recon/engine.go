package recon

import (
	"context"
	"time"

	"github.com/derekvan/canvas-markdown-tools/config"
	"github.com/derekvan/canvas-markdown-tools/ir"
	"github.com/derekvan/canvas-markdown-tools/links"
	"github.com/derekvan/canvas-markdown-tools/mdutils"
)

var Log = config.Cfg().GetLogger()

// Engine pushes a course document at the remote side. It only ever creates
// and updates; a failure on one entity is recorded and the run continues
// with everything independent of it. IDs assigned along the way are written
// back into the course, so the caller can re-serialize an annotated document
// afterwards.
type Engine struct {
	remote   Remote
	baseURL  string
	courseID string
	html     func(md string) (string, error)
}

func NewEngine(remote Remote, baseURL, courseID string) *Engine {
	return &Engine{remote: remote, baseURL: baseURL, courseID: courseID, html: mdutils.MakeHTML}
}

// Run executes the full sync. Internal links are checked up front, before any
// write, so a typoed reference never leaves a half-pushed course. Content is
// synced first; bodies carrying references are resolved again once every
// create and update has settled its ID, and re-uploaded if the final anchors
// differ from what the first pass sent. Only then are module items placed.
func (e *Engine) Run(ctx context.Context, course *ir.Course) (*Summary, error) {
	sum := &Summary{StartedAt: time.Now()}
	res := links.NewResolver(course, e.baseURL, e.courseID)
	if err := res.Check(course); err != nil {
		return nil, err
	}

	failed := map[ir.Item]bool{}
	rendered := map[ir.Item]string{}
	var pendingLinks []ir.Item

	e.lookupFiles(ctx, course, sum, failed)

	for _, m := range course.Modules {
		e.syncModule(ctx, m, sum)
		for _, it := range m.Items {
			switch it.(type) {
			case *ir.Page, *ir.Assignment, *ir.Discussion:
			default:
				continue
			}
			bodyHTML, pending, ok := e.syncContent(ctx, res, it, sum)
			if !ok {
				failed[it] = true
			} else if pending {
				rendered[it] = bodyHTML
				pendingLinks = append(pendingLinks, it)
			}
		}
	}

	for _, it := range pendingLinks {
		e.resyncLinks(ctx, res, it, rendered[it], sum)
	}

	for _, m := range course.Modules {
		for i, it := range m.Items {
			c := it.Common()
			switch {
			case m.RemoteID == "":
				sum.record(Outcome{Operation: Operation{Entity: "module item", Title: c.Title, Action: ActionSkip, Reason: "module not synced"}})
			case failed[it]:
				sum.record(Outcome{Operation: Operation{Entity: "module item", Title: c.Title, Action: ActionSkip, Reason: "content not synced"}})
			default:
				e.syncModuleItem(ctx, m, it, i+1, sum)
			}
		}
	}

	sum.FinishedAt = time.Now()
	Log.Infof("Sync finished: %d created, %d updated, %d unchanged, %d skipped, %d failed",
		sum.Created, sum.Updated, sum.Unchanged, sum.Skipped, sum.Failed)
	return sum, nil
}

func (e *Engine) skipIfCanceled(ctx context.Context, sum *Summary, entity, title string) bool {
	if ctx.Err() == nil {
		return false
	}
	sum.record(Outcome{Operation: Operation{Entity: entity, Title: title, Action: ActionSkip, Reason: "canceled"}})
	return true
}

func (e *Engine) fail(sum *Summary, op Operation, err error) {
	Log.Warnf("%s %q: %s", op.Entity, op.Title, err.Error())
	sum.record(Outcome{Operation: op, Err: &ir.SyncError{Entity: op.Entity, Title: op.Title, Err: err}})
}

// lookupFiles resolves every file item against the course files. Files are
// never uploaded, only referenced; a missing file fails its item but nothing
// else.
func (e *Engine) lookupFiles(ctx context.Context, course *ir.Course, sum *Summary, failed map[ir.Item]bool) {
	for _, m := range course.Modules {
		for _, it := range m.Items {
			f, ok := it.(*ir.File)
			if !ok {
				continue
			}
			op := Operation{Entity: "file", Title: f.Title}
			if e.skipIfCanceled(ctx, sum, "file", f.Title) {
				failed[it] = true
				continue
			}
			rf, err := e.remote.FindFile(ctx, f.EffectiveFilename())
			if err != nil {
				failed[it] = true
				e.fail(sum, op, err)
				continue
			}
			f.RemoteID = rf.ID
			f.RemoteURL = rf.URL
			sum.record(Outcome{Operation: op, RemoteID: rf.ID})
		}
	}
}

func (e *Engine) syncModule(ctx context.Context, m *ir.Module, sum *Summary) {
	op := Operation{Entity: "module", Title: m.Title}
	if e.skipIfCanceled(ctx, sum, "module", m.Title) {
		return
	}
	if m.RemoteID != "" {
		remote, err := e.remote.GetModule(ctx, m.RemoteID)
		switch {
		case IsNotFound(err):
			Log.Warnf("Module %q id %s gone remotely, recreating", m.Title, m.RemoteID)
			m.RemoteID = ""
		case err != nil:
			e.fail(sum, op, err)
			return
		default:
			fields := diffModule(m, remote)
			if len(fields) == 0 {
				sum.record(Outcome{Operation: op, RemoteID: m.RemoteID})
				return
			}
			op.Action = ActionUpdate
			op.Fields = fields
			if err := e.remote.UpdateModule(ctx, &RemoteModule{ID: m.RemoteID, Title: m.Title}); err != nil {
				e.fail(sum, op, err)
				return
			}
			sum.record(Outcome{Operation: op, RemoteID: m.RemoteID})
			return
		}
	}
	op.Action = ActionCreate
	created, err := e.remote.CreateModule(ctx, &RemoteModule{Title: m.Title})
	if err != nil {
		e.fail(sum, op, err)
		return
	}
	m.RemoteID = created.ID
	sum.record(Outcome{Operation: op, RemoteID: created.ID})
}

// renderBody resolves what references it can and converts the body to HTML.
// pending reports that the body carries references at all: every anchor is
// provisional until the whole content phase has settled IDs, since a target
// later in the document can be recreated under a fresh ID or move to a new
// page slug.
func (e *Engine) renderBody(res *links.Resolver, body string) (html string, pending bool, err error) {
	resolved, _ := res.ResolveBody(body)
	html, err = e.html(resolved)
	return html, links.HasRefs(body), err
}

func (e *Engine) syncContent(ctx context.Context, res *links.Resolver, it ir.Item, sum *Summary) (bodyHTML string, pending, ok bool) {
	c := it.Common()
	entity := it.Kind().Tag()
	op := Operation{Entity: entity, Title: c.Title}
	if e.skipIfCanceled(ctx, sum, entity, c.Title) {
		return "", false, false
	}
	body, _ := ir.BodyOf(it)
	bodyHTML, pending, err := e.renderBody(res, body)
	if err != nil {
		e.fail(sum, op, err)
		return "", false, false
	}

	switch v := it.(type) {
	case *ir.Page:
		ok = e.syncPage(ctx, v, bodyHTML, op, sum)
	case *ir.Assignment:
		ok = e.syncAssignment(ctx, v, bodyHTML, op, sum)
	case *ir.Discussion:
		ok = e.syncDiscussion(ctx, v, bodyHTML, op, sum)
	}
	return bodyHTML, pending, ok
}

func (e *Engine) syncPage(ctx context.Context, p *ir.Page, bodyHTML string, op Operation, sum *Summary) bool {
	if p.RemoteID != "" {
		remote, err := e.remote.GetPage(ctx, p.RemoteID)
		switch {
		case IsNotFound(err):
			Log.Warnf("Page %q id %s gone remotely, recreating", p.Title, p.RemoteID)
			p.RemoteID = ""
		case err != nil:
			e.fail(sum, op, err)
			return false
		default:
			p.RemoteURL = remote.URL
			fields := diffPage(p.Title, bodyHTML, remote)
			if len(fields) == 0 {
				sum.record(Outcome{Operation: op, RemoteID: p.RemoteID})
				return true
			}
			op.Action = ActionUpdate
			op.Fields = fields
			updated, err := e.remote.UpdatePage(ctx, &RemotePage{ID: p.RemoteID, Title: p.Title, Body: bodyHTML})
			if err != nil {
				e.fail(sum, op, err)
				return false
			}
			// A title change can change the page slug.
			p.RemoteID = updated.ID
			p.RemoteURL = updated.URL
			sum.record(Outcome{Operation: op, RemoteID: p.RemoteID})
			return true
		}
	}
	op.Action = ActionCreate
	created, err := e.remote.CreatePage(ctx, &RemotePage{Title: p.Title, Body: bodyHTML})
	if err != nil {
		e.fail(sum, op, err)
		return false
	}
	p.RemoteID = created.ID
	p.RemoteURL = created.URL
	sum.record(Outcome{Operation: op, RemoteID: created.ID})
	return true
}

func (e *Engine) syncAssignment(ctx context.Context, a *ir.Assignment, bodyHTML string, op Operation, sum *Summary) bool {
	want := wantAssignment(a, bodyHTML)
	if a.RemoteID != "" {
		remote, err := e.remote.GetAssignment(ctx, a.RemoteID)
		switch {
		case IsNotFound(err):
			Log.Warnf("Assignment %q id %s gone remotely, recreating", a.Title, a.RemoteID)
			a.RemoteID = ""
			want.ID = ""
		case err != nil:
			e.fail(sum, op, err)
			return false
		default:
			a.RemoteURL = remote.URL
			fields := diffAssignment(want, remote)
			if len(fields) == 0 {
				sum.record(Outcome{Operation: op, RemoteID: a.RemoteID})
				return true
			}
			op.Action = ActionUpdate
			op.Fields = fields
			if err := e.remote.UpdateAssignment(ctx, want); err != nil {
				e.fail(sum, op, err)
				return false
			}
			sum.record(Outcome{Operation: op, RemoteID: a.RemoteID})
			return true
		}
	}
	op.Action = ActionCreate
	created, err := e.remote.CreateAssignment(ctx, want)
	if err != nil {
		e.fail(sum, op, err)
		return false
	}
	a.RemoteID = created.ID
	a.RemoteURL = created.URL
	sum.record(Outcome{Operation: op, RemoteID: created.ID})
	return true
}

func (e *Engine) syncDiscussion(ctx context.Context, d *ir.Discussion, bodyHTML string, op Operation, sum *Summary) bool {
	want := wantDiscussion(d, bodyHTML)
	if d.RemoteID != "" {
		remote, err := e.remote.GetDiscussion(ctx, d.RemoteID)
		switch {
		case IsNotFound(err):
			Log.Warnf("Discussion %q id %s gone remotely, recreating", d.Title, d.RemoteID)
			d.RemoteID = ""
			want.ID = ""
		case err != nil:
			e.fail(sum, op, err)
			return false
		default:
			d.RemoteURL = remote.URL
			fields := diffDiscussion(want, remote)
			if len(fields) == 0 {
				sum.record(Outcome{Operation: op, RemoteID: d.RemoteID})
				return true
			}
			op.Action = ActionUpdate
			op.Fields = fields
			if err := e.remote.UpdateDiscussion(ctx, want); err != nil {
				e.fail(sum, op, err)
				return false
			}
			sum.record(Outcome{Operation: op, RemoteID: d.RemoteID})
			return true
		}
	}
	op.Action = ActionCreate
	created, err := e.remote.CreateDiscussion(ctx, want)
	if err != nil {
		e.fail(sum, op, err)
		return false
	}
	d.RemoteID = created.ID
	d.RemoteURL = created.URL
	sum.record(Outcome{Operation: op, RemoteID: created.ID})
	return true
}

// resyncLinks resolves a body's references again after the content phase and
// re-uploads it when the final anchors differ from the first upload. This
// catches forward references, targets recreated under a fresh ID, and pages
// whose slug moved. firstPass is the HTML the content phase sent.
func (e *Engine) resyncLinks(ctx context.Context, res *links.Resolver, it ir.Item, firstPass string, sum *Summary) {
	c := it.Common()
	entity := it.Kind().Tag()
	op := Operation{Entity: entity, Title: c.Title, Action: ActionUpdate, Fields: []string{"links"}}
	if e.skipIfCanceled(ctx, sum, entity, c.Title) {
		return
	}
	body, _ := ir.BodyOf(it)
	resolved, bad := res.ResolveBody(body)
	if len(bad) > 0 {
		// Targets existed in the document but their creation failed.
		e.fail(sum, op, &ir.UnresolvedLinkError{Links: bad})
		return
	}
	bodyHTML, err := e.html(resolved)
	if err != nil {
		e.fail(sum, op, err)
		return
	}
	if bodyHTML == firstPass {
		return
	}
	switch v := it.(type) {
	case *ir.Page:
		updated, err := e.remote.UpdatePage(ctx, &RemotePage{ID: v.RemoteID, Title: v.Title, Body: bodyHTML})
		if err != nil {
			e.fail(sum, op, err)
			return
		}
		v.RemoteID = updated.ID
		v.RemoteURL = updated.URL
	case *ir.Assignment:
		if err := e.remote.UpdateAssignment(ctx, wantAssignment(v, bodyHTML)); err != nil {
			e.fail(sum, op, err)
			return
		}
	case *ir.Discussion:
		if err := e.remote.UpdateDiscussion(ctx, wantDiscussion(v, bodyHTML)); err != nil {
			e.fail(sum, op, err)
			return
		}
	}
	sum.record(Outcome{Operation: op, RemoteID: c.RemoteID})
}

// moduleItemFor maps an item onto its module listing row at a position.
func moduleItemFor(it ir.Item, pos int) *RemoteModuleItem {
	c := it.Common()
	mi := &RemoteModuleItem{ID: c.ModuleItemID, Title: c.Title, Position: pos}
	switch v := it.(type) {
	case *ir.Header:
		mi.Type = "SubHeader"
	case *ir.Page:
		mi.Type = "Page"
		mi.PageURL = c.RemoteID
	case *ir.Assignment:
		mi.Type = "Assignment"
		mi.ContentID = c.RemoteID
	case *ir.Discussion:
		mi.Type = "Discussion"
		mi.ContentID = c.RemoteID
	case *ir.File:
		mi.Type = "File"
		mi.ContentID = c.RemoteID
	case *ir.Link:
		mi.Type = "ExternalUrl"
		mi.ExternalURL = v.URL
	}
	return mi
}

func (e *Engine) syncModuleItem(ctx context.Context, m *ir.Module, it ir.Item, pos int, sum *Summary) {
	c := it.Common()
	op := Operation{Entity: "module item", Title: c.Title}
	if e.skipIfCanceled(ctx, sum, "module item", c.Title) {
		return
	}
	want := moduleItemFor(it, pos)
	if c.ModuleItemID != "" {
		remote, err := e.remote.GetModuleItem(ctx, m.RemoteID, c.ModuleItemID)
		switch {
		case IsNotFound(err):
			Log.Warnf("Module item %q id %s gone remotely, recreating", c.Title, c.ModuleItemID)
			c.ModuleItemID = ""
			want.ID = ""
		case err != nil:
			e.fail(sum, op, err)
			return
		default:
			fields := diffModuleItem(want, remote)
			if len(fields) == 0 {
				sum.record(Outcome{Operation: op, RemoteID: c.ModuleItemID})
				return
			}
			op.Action = ActionUpdate
			op.Fields = fields
			if err := e.remote.UpdateModuleItem(ctx, m.RemoteID, want); err != nil {
				e.fail(sum, op, err)
				return
			}
			sum.record(Outcome{Operation: op, RemoteID: c.ModuleItemID})
			return
		}
	}
	op.Action = ActionCreate
	created, err := e.remote.CreateModuleItem(ctx, m.RemoteID, want)
	if err != nil {
		e.fail(sum, op, err)
		return
	}
	c.ModuleItemID = created.ID
	sum.record(Outcome{Operation: op, RemoteID: created.ID})
}
