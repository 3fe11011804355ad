package extfmt

import (
	"github.com/pkg/errors"

	"github.com/derekvan/canvas-markdown-tools/ir"
)

var implementations = map[string]ExtFmt{}

// RegisterExtFmt adds an implementation under a key, generally in the init of
// the main package.
func RegisterExtFmt(key string, impl ExtFmt) {
	implementations[key] = impl
}

func GetImplementation(key string) ExtFmt {
	return implementations[key]
}

func ImportCourse(fmtKey, fromURI string) (*ir.Course, error) {
	impl := GetImplementation(fmtKey)
	if impl == nil {
		return nil, errors.Errorf("no format registered under %s", fmtKey)
	}
	return impl.Import(fromURI)
}

func ExportCourse(fmtKey string, course *ir.Course, toURI string, force bool) error {
	impl := GetImplementation(fmtKey)
	if impl == nil {
		return errors.Errorf("no format registered under %s", fmtKey)
	}
	return impl.Export(course, toURI, force)
}
