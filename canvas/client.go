package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/derekvan/canvas-markdown-tools/config"
)

var Log = config.Cfg().GetLogger()

const maxAttempts = 4

var retryBackoff = 2 * time.Second

// Client is a thin Canvas REST client scoped to one course. It speaks form
// encoding on writes, JSON on reads, follows Link-header pagination, and
// retries throttled or failing requests a few times before giving up.
type Client struct {
	baseURL  string
	courseID string
	token    string
	hc       *http.Client
}

func NewClient(baseURL, courseID, token string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		courseID: courseID,
		token:    token,
		hc:       &http.Client{Timeout: 45 * time.Second},
	}
}

// BaseURL returns the instance root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CourseID returns the course the client is scoped to.
func (c *Client) CourseID() string {
	return c.courseID
}

func (c *Client) courseURL(path string) string {
	return fmt.Sprintf("%s/api/v1/courses/%s%s", c.baseURL, c.courseID, path)
}

// APIError is a non-2xx Canvas response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("canvas api error %d: %s", e.Status, e.Body)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func (c *Client) do(ctx context.Context, method, rawurl string, form url.Values) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt-1)):
			}
		}
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequest(method, rawurl, body)
		if err != nil {
			return nil, errors.Wrap(err, "unable to build canvas request")
		}
		req = req.WithContext(ctx)
		req.Header.Set("Authorization", "Bearer "+c.token)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			lastErr = errors.Wrapf(err, "canvas request %s %s failed", method, rawurl)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}
		if retryable(resp.StatusCode) {
			msg, _ := ioutil.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = &APIError{Status: resp.StatusCode, Body: string(msg)}
			Log.Warnf("Canvas returned %d for %s %s, retrying", resp.StatusCode, method, rawurl)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

func (c *Client) request(ctx context.Context, method, rawurl string, form url.Values, out interface{}) (http.Header, error) {
	resp, err := c.do(ctx, method, rawurl, form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read canvas response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, errors.Wrapf(err, "unable to decode canvas response from %s", rawurl)
		}
	}
	return resp.Header, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.courseURL(path)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	_, err := c.request(ctx, http.MethodGet, u, nil, out)
	return err
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	_, err := c.request(ctx, http.MethodPost, c.courseURL(path), form, out)
	return err
}

func (c *Client) putForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	_, err := c.request(ctx, http.MethodPut, c.courseURL(path), form, out)
	return err
}

var nextLinkRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

func nextPageURL(h http.Header) string {
	for _, link := range h.Values("Link") {
		if m := nextLinkRe.FindStringSubmatch(link); m != nil {
			return m[1]
		}
	}
	return ""
}

// getPaginated walks every page of a collection endpoint, appending each
// page's JSON array into out via the visit callback.
func (c *Client) getPaginated(ctx context.Context, path string, params url.Values, visit func(page json.RawMessage) error) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("per_page", "100")
	u := c.courseURL(path) + "?" + params.Encode()
	for u != "" {
		var page json.RawMessage
		h, err := c.request(ctx, http.MethodGet, u, nil, &page)
		if err != nil {
			return err
		}
		if err := visit(page); err != nil {
			return err
		}
		u = nextPageURL(h)
	}
	return nil
}
