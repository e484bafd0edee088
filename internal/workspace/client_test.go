// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package workspace

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/models"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// newTestServer routes requests to handler and records them.
func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, func() []recordedRequest) {
	t.Helper()

	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Header: r.Header.Clone(), Body: body})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := New(config.WorkspaceConfig{
		BaseURL:       srv.URL + "/v1",
		Token:         "secret-token",
		Version:       "2022-06-28",
		PageSize:      100,
		RatePerSecond: 1000,
	}, config.HTTPConfig{Timeout: 2 * time.Second, MaxRetries: 1, RetryBaseDelay: time.Millisecond})

	return c, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func TestPatchPage(t *testing.T) {
	t.Parallel()

	c, requests := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"object":"page","id":"p1","properties":{}}`)
	})

	err := c.PatchPage(context.Background(), "p1", models.Properties{"Hours": models.NumberOf(3.1)})
	if err != nil {
		t.Fatalf("PatchPage() error = %v", err)
	}

	reqs := requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	r := reqs[0]
	if r.Method != http.MethodPatch || r.Path != "/v1/pages/p1" {
		t.Errorf("request = %s %s, want PATCH /v1/pages/p1", r.Method, r.Path)
	}
	if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
		t.Errorf("Authorization = %q", got)
	}
	if got := r.Header.Get("Notion-Version"); got != "2022-06-28" {
		t.Errorf("Notion-Version = %q", got)
	}
	if got := string(r.Body); got != `{"properties":{"Hours":{"number":3.1}}}` {
		t.Errorf("body = %s", got)
	}
}

func TestPatchPageAPIError(t *testing.T) {
	t.Parallel()

	c, requests := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"object":"error","status":400,"code":"validation_error","message":"Hours is not a property"}`)
	})

	err := c.PatchPage(context.Background(), "p1", models.Properties{"Hours": models.NumberOf(1)})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Code != "validation_error" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if n := len(requests()); n != 1 {
		t.Errorf("requests = %d, want 1 (validation errors are not retried)", n)
	}
}

func TestPatchPageReadOnlySendsNothing(t *testing.T) {
	t.Parallel()

	c, requests := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})

	err := c.PatchPage(context.Background(), "p1", models.Properties{"Score": models.Formula{Type: models.FormulaNumber}})
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("error = %v, want ErrReadOnly", err)
	}
	if n := len(requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestGetPageAndTitle(t *testing.T) {
	t.Parallel()

	c, requests := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, pageJSON("p9", "Platform Team"))
	})

	rec, err := c.GetPage(context.Background(), "p9")
	if err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if rec.ID != "p9" {
		t.Errorf("ID = %q", rec.ID)
	}

	title, err := c.Title(context.Background(), "p9")
	if err != nil {
		t.Fatalf("Title() error = %v", err)
	}
	if title != "Platform Team" {
		t.Errorf("Title() = %q", title)
	}

	for _, r := range requests() {
		if r.Method != http.MethodGet || r.Path != "/v1/pages/p9" {
			t.Errorf("request = %s %s", r.Method, r.Path)
		}
	}
}

func TestQueryAllExpandsTruncatedRelation(t *testing.T) {
	t.Parallel()

	c, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/query"):
			_, _ = io.WriteString(w, `{"object":"list","results":[{"object":"page","id":"p1","properties":{
				"Team":{"id":"rel1","type":"relation","relation":[{"id":"t1"}],"has_more":true}}}],"has_more":false,"next_cursor":null}`)
		case r.URL.Query().Get("start_cursor") == "":
			_, _ = io.WriteString(w, `{"object":"list","results":[
				{"type":"relation","relation":{"id":"t1"}},{"type":"relation","relation":{"id":"t2"}}],"has_more":true,"next_cursor":"k2"}`)
		default:
			_, _ = io.WriteString(w, `{"object":"list","results":[{"type":"relation","relation":{"id":"t3"}}],"has_more":false,"next_cursor":null}`)
		}
	})

	coll := c.QueryAll(context.Background(), "db1", nil, nil)
	if !coll.Complete {
		t.Fatalf("Complete = false: %v", coll.Err)
	}

	rel, ok := coll.Records[0].Get("Team").(models.Relation)
	if !ok {
		t.Fatalf("Team = %#v, want Relation", coll.Records[0].Get("Team"))
	}
	if got := strings.Join(rel.IDs(), ","); got != "t1,t2,t3" {
		t.Errorf("Team = %s, want t1,t2,t3", got)
	}

	reqs := requests()
	if len(reqs) != 3 {
		t.Fatalf("requests = %d, want 3", len(reqs))
	}
	if reqs[0].Method != http.MethodPost || reqs[0].Path != "/v1/databases/db1/query" {
		t.Errorf("query request = %s %s", reqs[0].Method, reqs[0].Path)
	}
	var body queryBody
	if err := json.Unmarshal(reqs[0].Body, &body); err != nil || body.PageSize != 100 {
		t.Errorf("query body = %s (%v)", reqs[0].Body, err)
	}
	if !strings.Contains(reqs[2].Query, "start_cursor=k2") {
		t.Errorf("second relation page query = %q", reqs[2].Query)
	}
}

func TestFilters(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))

	if got := string(TimestampFilter(CreatedTime, at, false)); got != `{"created_time":{"after":"2026-03-01T11:00:00Z"},"timestamp":"created_time"}` {
		t.Errorf("TimestampFilter() = %s", got)
	}
	if got := string(TimestampFilter(LastEditedTime, at, true)); !strings.Contains(got, `"on_or_after"`) {
		t.Errorf("inclusive TimestampFilter() = %s", got)
	}
	mid := at.Add(15*time.Second + 500*time.Millisecond)
	if got := string(TimestampFilter(CreatedTime, mid, true)); !strings.Contains(got, `"on_or_after":"2026-03-01T11:00:00Z"`) {
		t.Errorf("TimestampFilter() = %s, want the minute floor", got)
	}
	if got := FloorTimestamp(mid); !got.Equal(at) || got.Location() != time.UTC {
		t.Errorf("FloorTimestamp() = %v", got)
	}

	a := json.RawMessage(`{"a":1}`)
	if AndFilter() != nil || AndFilter(nil, json.RawMessage{}) != nil {
		t.Error("AndFilter() of nothing should be nil")
	}
	if got := string(AndFilter(nil, a)); got != `{"a":1}` {
		t.Errorf("AndFilter(single) = %s", got)
	}
	if got := string(AndFilter(a, json.RawMessage(`{"b":2}`))); got != `{"and":[{"a":1},{"b":2}]}` {
		t.Errorf("AndFilter(two) = %s", got)
	}
	if got := string(SortAscending(CreatedTime)); got != `[{"direction":"ascending","timestamp":"created_time"}]` {
		t.Errorf("SortAscending() = %s", got)
	}
}
