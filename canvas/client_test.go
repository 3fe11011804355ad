package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientAuthAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekret" {
			t.Errorf("Unexpected auth header: %q", got)
		}
		if r.URL.Path != "/api/v1/courses/42/modules/7" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"id": 7, "name": "Week 1", "position": 1}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "42", "sekret")
	var p modulePayload
	if err := c.get(context.Background(), "/modules/7", nil, &p); err != nil {
		t.Fatalf("get failed: %s", err.Error())
	}
	if p.ID.String() != "7" || p.Name != "Week 1" {
		t.Errorf("Unexpected payload: %+v", p)
	}
}

func TestClientPagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "2":
			fmt.Fprint(w, `[{"id": 2, "name": "B"}]`)
		default:
			w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/courses/42/modules?page=2>; rel="next", <%s/api/v1/courses/42/modules?page=1>; rel="first"`, srv.URL, srv.URL))
			fmt.Fprint(w, `[{"id": 1, "name": "A"}]`)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "42", "t")
	var all []modulePayload
	err := c.getPaginated(context.Background(), "/modules", nil, func(page json.RawMessage) error {
		var batch []modulePayload
		if err := json.Unmarshal(page, &batch); err != nil {
			return err
		}
		all = append(all, batch...)
		return nil
	})
	if err != nil {
		t.Fatalf("getPaginated failed: %s", err.Error())
	}
	if len(all) != 2 || all[0].Name != "A" || all[1].Name != "B" {
		t.Errorf("Unexpected pages: %+v", all)
	}
}

func TestClientRetriesThrottling(t *testing.T) {
	old := retryBackoff
	retryBackoff = time.Millisecond
	defer func() { retryBackoff = old }()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"id": 7, "name": "Week 1"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "42", "t")
	var p modulePayload
	if err := c.get(context.Background(), "/modules/7", nil, &p); err != nil {
		t.Fatalf("get should retry through throttling: %s", err.Error())
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors": [{"message": "The specified resource does not exist."}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "42", "t")
	err := c.get(context.Background(), "/modules/7", nil, nil)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if apiErr.Status != 404 {
		t.Errorf("Unexpected status: %d", apiErr.Status)
	}
}
