package recon

import (
	"context"
	"time"
)

// The Remote* structs mirror the slice of the LMS data model the engine
// cares about, decoupled from wire encoding. The canvas package maps its
// JSON payloads onto these.

type RemoteModule struct {
	ID       string
	Title    string
	Position int
}

type RemotePage struct {
	// ID is the page URL slug; Canvas addresses pages by slug, not number.
	ID    string
	Title string
	Body  string
	URL   string
}

type RemoteAssignment struct {
	ID              string
	Title           string
	Body            string
	Points          float64
	DueAt           *time.Time
	GradingType     string
	SubmissionTypes []string
	URL             string
}

type RemoteDiscussion struct {
	ID                 string
	Title              string
	Body               string
	Threaded           bool
	RequireInitialPost bool
	Graded             bool
	Points             float64
	DueAt              *time.Time
	GradingType        string
	URL                string
}

type RemoteFile struct {
	ID   string
	Name string
	URL  string
}

// RemoteModuleItem is one row of a module's item listing. Type uses the wire
// names (SubHeader, Page, Assignment, Discussion, File, ExternalUrl).
type RemoteModuleItem struct {
	ID          string
	Title       string
	Type        string
	ContentID   string
	PageURL     string
	ExternalURL string
	Position    int
}

// Remote is the LMS surface the engine drives. Every call takes a context;
// implementations must honor cancellation. A NotFound error from a Get means
// the annotated ID points at nothing, which the engine treats as "create a
// fresh entity".
type Remote interface {
	GetModule(ctx context.Context, id string) (*RemoteModule, error)
	CreateModule(ctx context.Context, m *RemoteModule) (*RemoteModule, error)
	UpdateModule(ctx context.Context, m *RemoteModule) error

	GetPage(ctx context.Context, id string) (*RemotePage, error)
	CreatePage(ctx context.Context, p *RemotePage) (*RemotePage, error)
	UpdatePage(ctx context.Context, p *RemotePage) (*RemotePage, error)

	GetAssignment(ctx context.Context, id string) (*RemoteAssignment, error)
	CreateAssignment(ctx context.Context, a *RemoteAssignment) (*RemoteAssignment, error)
	UpdateAssignment(ctx context.Context, a *RemoteAssignment) error

	GetDiscussion(ctx context.Context, id string) (*RemoteDiscussion, error)
	CreateDiscussion(ctx context.Context, d *RemoteDiscussion) (*RemoteDiscussion, error)
	UpdateDiscussion(ctx context.Context, d *RemoteDiscussion) error

	// FindFile looks a file up by name among the course files, first exact,
	// then case-insensitive.
	FindFile(ctx context.Context, name string) (*RemoteFile, error)

	GetModuleItem(ctx context.Context, moduleID, itemID string) (*RemoteModuleItem, error)
	CreateModuleItem(ctx context.Context, moduleID string, mi *RemoteModuleItem) (*RemoteModuleItem, error)
	UpdateModuleItem(ctx context.Context, moduleID string, mi *RemoteModuleItem) error
}

// NotFoundError marks a Get against an ID that no longer exists remotely.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " " + e.ID + " not found"
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	type causer interface {
		Cause() error
	}
	for err != nil {
		if _, ok := err.(*NotFoundError); ok {
			return true
		}
		c, ok := err.(causer)
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}
