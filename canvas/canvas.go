package canvas

import (
	"context"

	"github.com/pkg/errors"

	"github.com/derekvan/canvas-markdown-tools/authutils"
	"github.com/derekvan/canvas-markdown-tools/canvasuri"
	"github.com/derekvan/canvas-markdown-tools/config"
	"github.com/derekvan/canvas-markdown-tools/ir"
	"github.com/derekvan/canvas-markdown-tools/recon"
)

// ClientForCourse builds a client for a parsed document, preferring its
// frontmatter over the environment defaults.
func ClientForCourse(course *ir.Course) (*Client, error) {
	cfg := config.Cfg()
	baseURL := course.Meta.CanvasURL
	if baseURL == "" {
		baseURL = cfg.CanvasBaseURL
	}
	courseID := course.Meta.CourseID
	if courseID == "" {
		courseID = cfg.CanvasCourseID
	}
	if baseURL == "" || courseID == "" {
		return nil, errors.New("no course target: set canvas_url and course_id in the frontmatter or the environment")
	}
	return ClientFor(baseURL, courseID)
}

// ClientFor builds a client for a course address, pulling the API token from
// the environment or the OS keychain.
func ClientFor(baseURL, courseID string) (*Client, error) {
	token, err := authutils.Token(baseURL)
	if err != nil {
		return nil, err
	}
	return NewClient(baseURL, courseID, token), nil
}

// Push syncs a course document into Canvas and reports per-entity outcomes.
// Assigned IDs are written back into the course.
func Push(ctx context.Context, client *Client, course *ir.Course) (*recon.Summary, error) {
	engine := recon.NewEngine(NewRemote(client), client.BaseURL(), client.CourseID())
	return engine.Run(ctx, course)
}

// Plan computes what Push would do without writing anything.
func Plan(ctx context.Context, client *Client, course *ir.Course) (*recon.Plan, error) {
	engine := recon.NewEngine(NewRemote(client), client.BaseURL(), client.CourseID())
	return engine.PlanRun(ctx, course)
}

// CanvasFormat exposes a live course through the format registry, addressed
// as canvas://host/courseID.
type CanvasFormat struct {
}

func NewCanvasFormat() *CanvasFormat {
	return &CanvasFormat{}
}

func (c *CanvasFormat) Import(fromURI string) (*ir.Course, error) {
	baseURL, courseID, err := canvasuri.Parse(fromURI)
	if err != nil {
		return nil, err
	}
	client, err := ClientFor(baseURL, courseID)
	if err != nil {
		return nil, err
	}
	return NewDownloader(client).Download(context.Background())
}

func (c *CanvasFormat) Export(course *ir.Course, toURI string, forceExport bool) error {
	baseURL, courseID, err := canvasuri.Parse(toURI)
	if err != nil {
		return err
	}
	client, err := ClientFor(baseURL, courseID)
	if err != nil {
		return err
	}
	sum, err := Push(context.Background(), client, course)
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return errors.Errorf("%d entities failed to sync", sum.Failed)
	}
	return nil
}
