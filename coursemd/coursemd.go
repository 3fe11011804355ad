package coursemd

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"

	"github.com/derekvan/canvas-markdown-tools/config"
	"github.com/derekvan/canvas-markdown-tools/ir"
)

var Log = config.Cfg().GetLogger()

// MDFormat reads and writes course documents on the local filesystem.
type MDFormat struct {
}

func NewMDFormat() *MDFormat {
	return &MDFormat{}
}

func (m *MDFormat) Import(fromURI string) (*ir.Course, error) {
	Log.Info("Reading course document: ", fromURI)
	data, err := ioutil.ReadFile(fromURI)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read course document %s", fromURI)
	}
	course, err := Parse(string(data))
	if err != nil {
		return nil, err
	}
	Log.Infof("Parsed %d modules, %d items", len(course.Modules), course.ItemCount())
	return course, nil
}

func (m *MDFormat) Export(course *ir.Course, toURI string, forceExport bool) error {
	if !forceExport {
		if _, err := os.Stat(toURI); err == nil {
			return errors.Errorf("output file %s already exists, use force to overwrite", toURI)
		}
	}
	Log.Info("Writing course document: ", toURI)
	return errors.Wrapf(ioutil.WriteFile(toURI, []byte(Serialize(course)), 0644), "unable to write course document %s", toURI)
}
