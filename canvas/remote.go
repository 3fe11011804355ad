package canvas

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/derekvan/canvas-markdown-tools/recon"
)

func formatPoints(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// Wire payloads for the slice of the Canvas data model the sync touches.

type modulePayload struct {
	ID       json.Number `json:"id"`
	Name     string      `json:"name"`
	Position int         `json:"position"`
}

type pagePayload struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
}

type assignmentPayload struct {
	ID              json.Number `json:"id"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	PointsPossible  float64     `json:"points_possible"`
	DueAt           *time.Time  `json:"due_at"`
	GradingType     string      `json:"grading_type"`
	SubmissionTypes []string    `json:"submission_types"`
	HTMLURL         string      `json:"html_url"`
}

type discussionPayload struct {
	ID                 json.Number        `json:"id"`
	Title              string             `json:"title"`
	Message            string             `json:"message"`
	DiscussionType     string             `json:"discussion_type"`
	RequireInitialPost bool               `json:"require_initial_post"`
	Assignment         *assignmentPayload `json:"assignment"`
	HTMLURL            string             `json:"html_url"`
}

type filePayload struct {
	ID          json.Number `json:"id"`
	DisplayName string      `json:"display_name"`
	URL         string      `json:"url"`
}

type moduleItemPayload struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Type        string      `json:"type"`
	ContentID   json.Number `json:"content_id"`
	PageURL     string      `json:"page_url"`
	ExternalURL string      `json:"external_url"`
	HTMLURL     string      `json:"html_url"`
	Position    int         `json:"position"`
}

// Remote adapts the Canvas REST API to the engine's remote surface.
type Remote struct {
	client *Client
}

func NewRemote(client *Client) *Remote {
	return &Remote{client: client}
}

// notFound rewrites 404s into the sentinel the engine recreates on.
func notFound(err error, entity, id string) error {
	if apiErr, ok := err.(*APIError); ok && apiErr.Status == 404 {
		return &recon.NotFoundError{Entity: entity, ID: id}
	}
	return err
}

func (r *Remote) moduleFromPayload(p *modulePayload) *recon.RemoteModule {
	return &recon.RemoteModule{ID: p.ID.String(), Title: p.Name, Position: p.Position}
}

func (r *Remote) GetModule(ctx context.Context, id string) (*recon.RemoteModule, error) {
	var p modulePayload
	if err := r.client.get(ctx, "/modules/"+id, nil, &p); err != nil {
		return nil, notFound(err, "module", id)
	}
	return r.moduleFromPayload(&p), nil
}

func (r *Remote) CreateModule(ctx context.Context, m *recon.RemoteModule) (*recon.RemoteModule, error) {
	form := url.Values{}
	form.Set("module[name]", m.Title)
	form.Set("module[published]", "true")
	var p modulePayload
	if err := r.client.postForm(ctx, "/modules", form, &p); err != nil {
		return nil, err
	}
	return r.moduleFromPayload(&p), nil
}

func (r *Remote) UpdateModule(ctx context.Context, m *recon.RemoteModule) error {
	form := url.Values{}
	form.Set("module[name]", m.Title)
	return r.client.putForm(ctx, "/modules/"+m.ID, form, nil)
}

func (r *Remote) pageFromPayload(p *pagePayload) *recon.RemotePage {
	return &recon.RemotePage{ID: p.URL, Title: p.Title, Body: p.Body, URL: p.HTMLURL}
}

func (r *Remote) GetPage(ctx context.Context, id string) (*recon.RemotePage, error) {
	var p pagePayload
	if err := r.client.get(ctx, "/pages/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, notFound(err, "page", id)
	}
	return r.pageFromPayload(&p), nil
}

func pageForm(p *recon.RemotePage) url.Values {
	form := url.Values{}
	form.Set("wiki_page[title]", p.Title)
	form.Set("wiki_page[body]", p.Body)
	form.Set("wiki_page[published]", "true")
	return form
}

func (r *Remote) CreatePage(ctx context.Context, p *recon.RemotePage) (*recon.RemotePage, error) {
	var out pagePayload
	if err := r.client.postForm(ctx, "/pages", pageForm(p), &out); err != nil {
		return nil, err
	}
	return r.pageFromPayload(&out), nil
}

func (r *Remote) UpdatePage(ctx context.Context, p *recon.RemotePage) (*recon.RemotePage, error) {
	var out pagePayload
	if err := r.client.putForm(ctx, "/pages/"+url.PathEscape(p.ID), pageForm(p), &out); err != nil {
		return nil, err
	}
	return r.pageFromPayload(&out), nil
}

func (r *Remote) assignmentFromPayload(p *assignmentPayload) *recon.RemoteAssignment {
	return &recon.RemoteAssignment{
		ID:              p.ID.String(),
		Title:           p.Name,
		Body:            p.Description,
		Points:          p.PointsPossible,
		DueAt:           p.DueAt,
		GradingType:     p.GradingType,
		SubmissionTypes: p.SubmissionTypes,
		URL:             p.HTMLURL,
	}
}

func (r *Remote) GetAssignment(ctx context.Context, id string) (*recon.RemoteAssignment, error) {
	var p assignmentPayload
	if err := r.client.get(ctx, "/assignments/"+id, nil, &p); err != nil {
		return nil, notFound(err, "assignment", id)
	}
	return r.assignmentFromPayload(&p), nil
}

func assignmentForm(a *recon.RemoteAssignment) url.Values {
	form := url.Values{}
	form.Set("assignment[name]", a.Title)
	form.Set("assignment[description]", a.Body)
	form.Set("assignment[points_possible]", formatPoints(a.Points))
	form.Set("assignment[grading_type]", a.GradingType)
	form.Set("assignment[published]", "true")
	if a.DueAt != nil {
		form.Set("assignment[due_at]", a.DueAt.UTC().Format(time.RFC3339))
	} else {
		form.Set("assignment[due_at]", "")
	}
	for _, st := range a.SubmissionTypes {
		form.Add("assignment[submission_types][]", st)
	}
	return form
}

func (r *Remote) CreateAssignment(ctx context.Context, a *recon.RemoteAssignment) (*recon.RemoteAssignment, error) {
	var p assignmentPayload
	if err := r.client.postForm(ctx, "/assignments", assignmentForm(a), &p); err != nil {
		return nil, err
	}
	return r.assignmentFromPayload(&p), nil
}

func (r *Remote) UpdateAssignment(ctx context.Context, a *recon.RemoteAssignment) error {
	return r.client.putForm(ctx, "/assignments/"+a.ID, assignmentForm(a), nil)
}

func (r *Remote) discussionFromPayload(p *discussionPayload) *recon.RemoteDiscussion {
	d := &recon.RemoteDiscussion{
		ID:                 p.ID.String(),
		Title:              p.Title,
		Body:               p.Message,
		Threaded:           p.DiscussionType == "threaded",
		RequireInitialPost: p.RequireInitialPost,
		URL:                p.HTMLURL,
	}
	if p.Assignment != nil {
		d.Graded = true
		d.Points = p.Assignment.PointsPossible
		d.DueAt = p.Assignment.DueAt
		d.GradingType = p.Assignment.GradingType
	}
	return d
}

func (r *Remote) GetDiscussion(ctx context.Context, id string) (*recon.RemoteDiscussion, error) {
	var p discussionPayload
	if err := r.client.get(ctx, "/discussion_topics/"+id, nil, &p); err != nil {
		return nil, notFound(err, "discussion", id)
	}
	return r.discussionFromPayload(&p), nil
}

func discussionForm(d *recon.RemoteDiscussion) url.Values {
	form := url.Values{}
	form.Set("title", d.Title)
	form.Set("message", d.Body)
	form.Set("published", "true")
	if d.Threaded {
		form.Set("discussion_type", "threaded")
	} else {
		form.Set("discussion_type", "side_comment")
	}
	if d.RequireInitialPost {
		form.Set("require_initial_post", "true")
	} else {
		form.Set("require_initial_post", "false")
	}
	if d.Graded {
		form.Set("assignment[points_possible]", formatPoints(d.Points))
		form.Set("assignment[grading_type]", d.GradingType)
		if d.DueAt != nil {
			form.Set("assignment[due_at]", d.DueAt.UTC().Format(time.RFC3339))
		}
	}
	return form
}

func (r *Remote) CreateDiscussion(ctx context.Context, d *recon.RemoteDiscussion) (*recon.RemoteDiscussion, error) {
	var p discussionPayload
	if err := r.client.postForm(ctx, "/discussion_topics", discussionForm(d), &p); err != nil {
		return nil, err
	}
	return r.discussionFromPayload(&p), nil
}

func (r *Remote) UpdateDiscussion(ctx context.Context, d *recon.RemoteDiscussion) error {
	return r.client.putForm(ctx, "/discussion_topics/"+d.ID, discussionForm(d), nil)
}

// FindFile searches the course files by name, preferring an exact match and
// falling back to the first case-insensitive one.
func (r *Remote) FindFile(ctx context.Context, name string) (*recon.RemoteFile, error) {
	params := url.Values{}
	params.Set("search_term", name)
	var candidates []filePayload
	err := r.client.getPaginated(ctx, "/files", params, func(page json.RawMessage) error {
		var batch []filePayload
		if err := json.Unmarshal(page, &batch); err != nil {
			return err
		}
		candidates = append(candidates, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	var fold *filePayload
	for i := range candidates {
		if candidates[i].DisplayName == name {
			return &recon.RemoteFile{ID: candidates[i].ID.String(), Name: candidates[i].DisplayName, URL: candidates[i].URL}, nil
		}
		if fold == nil && strings.EqualFold(candidates[i].DisplayName, name) {
			fold = &candidates[i]
		}
	}
	if fold != nil {
		return &recon.RemoteFile{ID: fold.ID.String(), Name: fold.DisplayName, URL: fold.URL}, nil
	}
	return nil, &recon.NotFoundError{Entity: "file", ID: name}
}

func (r *Remote) moduleItemFromPayload(p *moduleItemPayload) *recon.RemoteModuleItem {
	return &recon.RemoteModuleItem{
		ID:          p.ID.String(),
		Title:       p.Title,
		Type:        p.Type,
		ContentID:   p.ContentID.String(),
		PageURL:     p.PageURL,
		ExternalURL: p.ExternalURL,
		Position:    p.Position,
	}
}

func (r *Remote) GetModuleItem(ctx context.Context, moduleID, itemID string) (*recon.RemoteModuleItem, error) {
	var p moduleItemPayload
	if err := r.client.get(ctx, "/modules/"+moduleID+"/items/"+itemID, nil, &p); err != nil {
		return nil, notFound(err, "module item", itemID)
	}
	return r.moduleItemFromPayload(&p), nil
}

func moduleItemForm(mi *recon.RemoteModuleItem) url.Values {
	form := url.Values{}
	form.Set("module_item[title]", mi.Title)
	form.Set("module_item[type]", mi.Type)
	form.Set("module_item[position]", strconv.Itoa(mi.Position))
	switch mi.Type {
	case "Page":
		form.Set("module_item[page_url]", mi.PageURL)
	case "ExternalUrl":
		form.Set("module_item[external_url]", mi.ExternalURL)
		form.Set("module_item[new_tab]", "true")
	case "SubHeader":
	default:
		form.Set("module_item[content_id]", mi.ContentID)
	}
	return form
}

func (r *Remote) CreateModuleItem(ctx context.Context, moduleID string, mi *recon.RemoteModuleItem) (*recon.RemoteModuleItem, error) {
	var p moduleItemPayload
	if err := r.client.postForm(ctx, "/modules/"+moduleID+"/items", moduleItemForm(mi), &p); err != nil {
		return nil, err
	}
	return r.moduleItemFromPayload(&p), nil
}

func (r *Remote) UpdateModuleItem(ctx context.Context, moduleID string, mi *recon.RemoteModuleItem) error {
	return r.client.putForm(ctx, "/modules/"+moduleID+"/items/"+mi.ID, moduleItemForm(mi), nil)
}
