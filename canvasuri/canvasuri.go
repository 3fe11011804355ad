// Package canvasuri handles the canvas://host/courseID addressing used on
// the command line to point a conversion at a live course.
package canvasuri

import (
	"strings"

	"github.com/pkg/errors"
)

const scheme = "canvas://"

func IsCanvasURI(uri string) bool {
	return strings.HasPrefix(uri, scheme)
}

// Parse splits canvas://host/courseID into an https base URL and a course ID.
func Parse(uri string) (baseURL, courseID string, err error) {
	if !IsCanvasURI(uri) {
		return "", "", errors.Errorf("not a canvas URI: %s", uri)
	}
	rest := strings.TrimPrefix(uri, scheme)
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Errorf("canvas URI must look like canvas://host/courseID, got %s", uri)
	}
	return "https://" + parts[0], parts[1], nil
}

func Format(baseURL, courseID string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://")
	return scheme + strings.Trim(host, "/") + "/" + courseID
}
