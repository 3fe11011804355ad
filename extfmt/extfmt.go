package extfmt

import (
	"github.com/derekvan/canvas-markdown-tools/ir"
)

// ExtFmt is a course source/sink: the markdown document format and the live
// Canvas course both implement it, which is what makes pull a plain
// import/export pair.
type ExtFmt interface {
	Import(fromURI string) (*ir.Course, error)
	Export(course *ir.Course, toURI string, forceExport bool) error
}
