package canvas

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"

	"github.com/derekvan/canvas-markdown-tools/ir"
	"github.com/derekvan/canvas-markdown-tools/mdutils"
)

const detailFetchConcurrency = 5

// Downloader reads a whole course out of Canvas into the intermediate
// representation, ready to serialize as a fully annotated document. Module
// and item listings happen serially to keep ordering; per-item detail
// fetches run in a bounded worker pool.
type Downloader struct {
	client *Client
	remote *Remote
}

func NewDownloader(client *Client) *Downloader {
	return &Downloader{client: client, remote: NewRemote(client)}
}

func (d *Downloader) listModules(ctx context.Context) ([]modulePayload, error) {
	var out []modulePayload
	err := d.client.getPaginated(ctx, "/modules", nil, func(page json.RawMessage) error {
		var batch []modulePayload
		if err := json.Unmarshal(page, &batch); err != nil {
			return err
		}
		out = append(out, batch...)
		return nil
	})
	return out, err
}

func (d *Downloader) listItems(ctx context.Context, moduleID string) ([]moduleItemPayload, error) {
	var out []moduleItemPayload
	err := d.client.getPaginated(ctx, "/modules/"+moduleID+"/items", nil, func(page json.RawMessage) error {
		var batch []moduleItemPayload
		if err := json.Unmarshal(page, &batch); err != nil {
			return err
		}
		out = append(out, batch...)
		return nil
	})
	return out, err
}

func (d *Downloader) getFile(ctx context.Context, id string) (*filePayload, error) {
	var p filePayload
	if err := d.client.get(ctx, "/files/"+id, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// skeletonItem maps a module item row onto a document item. Quizzes cannot
// round-trip, so they degrade to external links at their Canvas URL. Types
// the dialect has no shape for at all return nil and are dropped.
func skeletonItem(ip moduleItemPayload) ir.Item {
	common := ir.ItemCommon{Title: ip.Title, ModuleItemID: ip.ID.String()}
	switch ip.Type {
	case "SubHeader":
		return &ir.Header{ItemCommon: common}
	case "Page":
		common.RemoteID = ip.PageURL
		return &ir.Page{ItemCommon: common}
	case "Assignment":
		a := ir.NewAssignment(ip.Title)
		common.RemoteID = ip.ContentID.String()
		a.ItemCommon = common
		return a
	case "Discussion":
		dc := ir.NewDiscussion(ip.Title)
		common.RemoteID = ip.ContentID.String()
		dc.ItemCommon = common
		return dc
	case "File":
		common.RemoteID = ip.ContentID.String()
		return &ir.File{ItemCommon: common}
	case "ExternalUrl":
		return &ir.Link{ItemCommon: common, URL: ip.ExternalURL}
	case "Quiz":
		Log.Warnf("Quiz %q cannot be represented, downloading as an external link", ip.Title)
		return &ir.Link{ItemCommon: common, URL: ip.HTMLURL}
	default:
		Log.Warnf("Skipping unsupported module item type %s (%q)", ip.Type, ip.Title)
		return nil
	}
}

func needsDetail(itemType string) bool {
	switch itemType {
	case "Page", "Assignment", "Discussion", "File":
		return true
	}
	return false
}

func (d *Downloader) Download(ctx context.Context) (*ir.Course, error) {
	Log.Infof("Downloading course %s from %s", d.client.courseID, d.client.baseURL)
	course := &ir.Course{Meta: ir.CourseMeta{CanvasURL: d.client.baseURL, CourseID: d.client.courseID}}

	modules, err := d.listModules(ctx)
	if err != nil {
		return nil, err
	}

	swg := sizedwaitgroup.New(detailFetchConcurrency)
	var mu sync.Mutex
	var firstErr error
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for _, mp := range modules {
		m := &ir.Module{Title: mp.Name, RemoteID: mp.ID.String()}
		course.Modules = append(course.Modules, m)
		items, err := d.listItems(ctx, m.RemoteID)
		if err != nil {
			return nil, err
		}
		for _, ip := range items {
			it := skeletonItem(ip)
			if it == nil {
				continue
			}
			m.Items = append(m.Items, it)
			if !needsDetail(ip.Type) {
				continue
			}
			swg.Add()
			go func() {
				defer swg.Done()
				if err := d.fillDetail(ctx, it); err != nil {
					setErr(err)
				}
			}()
		}
	}
	swg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	if err := convertBodies(course); err != nil {
		return nil, err
	}
	d.internalizeBodies(course)
	Log.Infof("Downloaded %d modules, %d items", len(course.Modules), course.ItemCount())
	return course, nil
}

// fillDetail fetches the content behind a module item and copies it onto the
// skeleton. Bodies stay HTML here; conversion to markdown happens after link
// internalization, once every file ID is known.
func (d *Downloader) fillDetail(ctx context.Context, it ir.Item) error {
	switch v := it.(type) {
	case *ir.Page:
		rp, err := d.remote.GetPage(ctx, v.RemoteID)
		if err != nil {
			return err
		}
		v.Title = rp.Title
		v.Body = rp.Body
		v.RemoteURL = rp.URL
	case *ir.Assignment:
		ra, err := d.remote.GetAssignment(ctx, v.RemoteID)
		if err != nil {
			return err
		}
		v.Title = ra.Title
		v.Body = ra.Body
		v.RemoteURL = ra.URL
		v.Points = ra.Points
		v.DueAt = toLocal(ra.DueAt)
		v.GradeDisplay = ir.GradeDisplayFromCanvas(ra.GradingType)
		v.SubmissionTypes = ir.SubmissionTypesFromCanvas(ra.SubmissionTypes)
	case *ir.Discussion:
		rd, err := d.remote.GetDiscussion(ctx, v.RemoteID)
		if err != nil {
			return err
		}
		v.Title = rd.Title
		v.Body = rd.Body
		v.RemoteURL = rd.URL
		v.Threaded = rd.Threaded
		v.RequireInitialPost = rd.RequireInitialPost
		v.Graded = rd.Graded
		if rd.Graded {
			v.Points = rd.Points
			v.DueAt = toLocal(rd.DueAt)
			v.GradeDisplay = ir.GradeDisplayFromCanvas(rd.GradingType)
		}
	case *ir.File:
		fp, err := d.getFile(ctx, v.RemoteID)
		if err != nil {
			return err
		}
		if fp.DisplayName != v.Title {
			v.Filename = fp.DisplayName
		}
		v.RemoteURL = fp.URL
	}
	return nil
}

func toLocal(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	local := t.In(time.Local)
	return &local
}

var fileLinkRe = regexp.MustCompile(`\[([^\]]*)\]\(\s*[^)\s]*/files/(\d+)[^)\s]*\s*\)`)

// internalizeBodies rewrites markdown links pointing at files this course
// document also carries back into [[File:Title]] references, so a later push
// resolves them again instead of hardcoding instance URLs. It runs after the
// HTML-to-markdown conversion, which turns every anchor into link syntax.
func (d *Downloader) internalizeBodies(course *ir.Course) {
	fileTitles := map[string]string{}
	for _, m := range course.Modules {
		for _, it := range m.Items {
			if f, ok := it.(*ir.File); ok && f.RemoteID != "" {
				fileTitles[f.RemoteID] = f.Title
			}
		}
	}
	if len(fileTitles) == 0 {
		return
	}
	for _, m := range course.Modules {
		for _, it := range m.Items {
			body, ok := ir.BodyOf(it)
			if !ok || body == "" {
				continue
			}
			out := fileLinkRe.ReplaceAllStringFunc(body, func(link string) string {
				sub := fileLinkRe.FindStringSubmatch(link)
				if title, ok := fileTitles[sub[2]]; ok {
					return "[[File:" + title + "]]"
				}
				return link
			})
			ir.SetBody(it, out)
		}
	}
}

func convertBodies(course *ir.Course) error {
	for _, m := range course.Modules {
		for _, it := range m.Items {
			body, ok := ir.BodyOf(it)
			if !ok || body == "" {
				continue
			}
			md, err := mdutils.MakeMD(body)
			if err != nil {
				return err
			}
			ir.SetBody(it, strings.TrimSpace(md))
		}
	}
	return nil
}
