// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sync

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dirsync/internal/chat"
	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/sheets"
	"github.com/tomtom215/dirsync/internal/store"
	"github.com/tomtom215/dirsync/internal/workspace"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type queryCall struct {
	DatabaseID string
	Filter     string
	Sorts      string
}

type patchCall struct {
	PageID string
	Props  models.Properties
}

// fakeWorkspace is an in-memory workspace. Patches are applied to the stored
// records so that a second run sees the result of the first.
type fakeWorkspace struct {
	mu        sync.Mutex
	dbs       map[string][]models.Record
	overrides map[string]workspace.Collection
	titles    map[string]string
	queries   []queryCall
	patches   []patchCall
	patchErr  error

	// block, when set, holds QueryAll until closed or ctx is done.
	block chan struct{}
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{
		dbs:       make(map[string][]models.Record),
		overrides: make(map[string]workspace.Collection),
		titles:    make(map[string]string),
	}
}

func (f *fakeWorkspace) add(db string, records ...models.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dbs[db] = append(f.dbs[db], records...)
}

func (f *fakeWorkspace) QueryAll(ctx context.Context, databaseID string, filter, sorts json.RawMessage) workspace.Collection {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return workspace.Collection{Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, queryCall{DatabaseID: databaseID, Filter: string(filter), Sorts: string(sorts)})
	if coll, ok := f.overrides[databaseID]; ok {
		return coll
	}
	records := make([]models.Record, 0, len(f.dbs[databaseID]))
	for _, rec := range f.dbs[databaseID] {
		records = append(records, cloneRecord(rec))
	}
	return workspace.Collection{Records: records, Pages: 1, Complete: true}
}

func (f *fakeWorkspace) PatchPage(_ context.Context, pageID string, props models.Properties) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return f.patchErr
	}
	f.patches = append(f.patches, patchCall{PageID: pageID, Props: props})
	for _, records := range f.dbs {
		for i := range records {
			if records[i].ID != pageID {
				continue
			}
			if records[i].Properties == nil {
				records[i].Properties = models.Properties{}
			}
			for k, v := range props {
				records[i].Properties[k] = v
			}
		}
	}
	return nil
}

func (f *fakeWorkspace) Title(_ context.Context, pageID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.titles[pageID], nil
}

func (f *fakeWorkspace) patchCalls() []patchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]patchCall(nil), f.patches...)
}

func (f *fakeWorkspace) queryCalls() []queryCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queryCall(nil), f.queries...)
}

func cloneRecord(rec models.Record) models.Record {
	props := make(models.Properties, len(rec.Properties))
	for k, v := range rec.Properties {
		props[k] = v
	}
	rec.Properties = props
	return rec
}

// fakeChat is an in-memory chat workspace.
type fakeChat struct {
	mu       sync.Mutex
	users    map[string]chat.User
	groups   []chat.UserGroup
	members  map[string][]string
	profiles map[string]chat.Profile
	posted   []chat.Message
	setCalls []chat.Profile
	postErr  error
	lookups  int
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		users:    make(map[string]chat.User),
		members:  make(map[string][]string),
		profiles: make(map[string]chat.Profile),
	}
}

func (c *fakeChat) addUser(id, email string) {
	u := chat.User{ID: id}
	u.Profile.Email = email
	c.users[strings.ToLower(email)] = u
}

func (c *fakeChat) LookupUserByEmail(_ context.Context, email string) (chat.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	u, ok := c.users[strings.ToLower(email)]
	if !ok {
		return chat.User{}, chat.ErrUserNotFound
	}
	return u, nil
}

func (c *fakeChat) ListUserGroups(_ context.Context, _ bool) ([]chat.UserGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.UserGroup(nil), c.groups...), nil
}

func (c *fakeChat) CreateUserGroup(_ context.Context, name, handle string) (chat.UserGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := chat.UserGroup{ID: "G-" + handle, Name: name, Handle: handle}
	c.groups = append(c.groups, g)
	return g, nil
}

func (c *fakeChat) ListUserGroupMembers(_ context.Context, groupID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.members[groupID]...), nil
}

func (c *fakeChat) UpdateUserGroupMembers(_ context.Context, groupID string, userIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[groupID] = append([]string(nil), userIDs...)
	return nil
}

func (c *fakeChat) GetProfile(_ context.Context, userID string) (chat.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := chat.Profile{}
	for k, v := range c.profiles[userID] {
		out[k] = v
	}
	return out, nil
}

func (c *fakeChat) SetProfile(_ context.Context, userID string, fields chat.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls = append(c.setCalls, fields)
	if c.profiles[userID] == nil {
		c.profiles[userID] = chat.Profile{}
	}
	for k, v := range fields {
		c.profiles[userID][k] = v
	}
	return nil
}

func (c *fakeChat) PostMessage(_ context.Context, msg chat.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.postErr != nil {
		return "", c.postErr
	}
	c.posted = append(c.posted, msg)
	return "1700000000.000100", nil
}

// fakeSheets holds a single range.
type fakeSheets struct {
	mu      sync.Mutex
	values  sheets.Rows
	clears  int
	sets    int
	appends []sheets.Rows
}

func (s *fakeSheets) GetValues(_ context.Context, _, _ string) (sheets.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(sheets.Rows(nil), s.values...), nil
}

func (s *fakeSheets) SetValues(_ context.Context, _, _ string, rows sheets.Rows) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	s.values = append(sheets.Rows(nil), rows...)
	return nil
}

func (s *fakeSheets) Clear(_ context.Context, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.values = nil
	return nil
}

func (s *fakeSheets) Append(_ context.Context, _, _ string, rows sheets.Rows) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends = append(s.appends, rows)
	s.values = append(s.values, rows...)
	return nil
}

// reportSink collects published reports.
type reportSink struct {
	mu      sync.Mutex
	reports []models.RunReport
}

func (r *reportSink) PublishReport(_ context.Context, report models.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

func (r *reportSink) all() []models.RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RunReport(nil), r.reports...)
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T, jobs []config.JobConfig, deps Deps) *Engine {
	t.Helper()
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return testNow }
	}
	e, err := NewEngine(jobs, deps)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
	})
	return e
}

func record(id string, props models.Properties) models.Record {
	return models.Record{ID: id, Properties: props}
}
