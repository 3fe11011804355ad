package ir

// CourseMeta carries document-level connection settings, typically supplied
// via YAML frontmatter and overridable from the environment.
type CourseMeta struct {
	CanvasURL string `yaml:"canvas_url"`
	CourseID  string `yaml:"course_id"`
}

// Course is the root of the in-memory representation. Module order is
// significant: it maps directly to remote ordering positions.
type Course struct {
	Meta    CourseMeta
	Modules []*Module
}

func (c *Course) ItemCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Items)
	}
	return n
}

// Module is a top-level ordered container of content items. RemoteID is empty
// until the module has been created remotely at least once.
type Module struct {
	Title    string
	RemoteID string
	Items    []Item
}
