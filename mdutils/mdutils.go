// Package mdutils converts between markdown bodies and the HTML Canvas
// stores. Raw HTML in markdown passes through untouched, which is what lets
// resolved link anchors survive the conversion.
package mdutils

import (
	"bytes"

	htmltomd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var gm = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

func MakeHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := gm.Convert([]byte(markdown), &buf); err != nil {
		return "", errors.Wrap(err, "unable to convert markdown to html")
	}
	return buf.String(), nil
}

var mdConverter = htmltomd.NewConverter("", true, nil)

func MakeMD(htmlBody string) (string, error) {
	out, err := mdConverter.ConvertString(htmlBody)
	if err != nil {
		return "", errors.Wrap(err, "unable to convert html to markdown")
	}
	return out, nil
}
