// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sync

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/dirsync/internal/chat"
	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/sheets"
	"github.com/tomtom215/dirsync/internal/store"
	"github.com/tomtom215/dirsync/internal/workspace"
)

func linkJob() config.JobConfig {
	return config.JobConfig{
		Name:         "link-teams",
		Kind:         config.KindLink,
		Source:       config.SourceConfig{DatabaseID: "people", KeyProperty: "Email"},
		Target:       config.TargetConfig{DatabaseID: "teams", KeyProperty: "Lead Email"},
		LinkProperty: "Team",
	}
}

func TestLinkRunAddsMissingLinkOnce(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.add("people", record("s1", models.Properties{"Email": models.Email{Address: "a@x.com"}}))
	ws.add("teams", record("t1", models.Properties{"Lead Email": models.Email{Address: " A@X.com"}}))
	e := newTestEngine(t, []config.JobConfig{linkJob()}, Deps{Workspace: ws})

	report, err := e.Run(context.Background(), "link-teams")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Status != models.RunOK || report.Counters.Linked != 1 {
		t.Fatalf("first run = %s %+v, want ok with 1 link", report.Status, report.Counters)
	}
	patches := ws.patchCalls()
	if len(patches) != 1 || patches[0].PageID != "s1" {
		t.Fatalf("patches = %+v, want one on s1", patches)
	}
	rel, ok := patches[0].Props["Team"].(models.Relation)
	if !ok || !reflect.DeepEqual(rel.IDs(), []string{"t1"}) {
		t.Errorf("patched Team = %#v, want relation [t1]", patches[0].Props["Team"])
	}

	report, err = e.Run(context.Background(), "link-teams")
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if got := len(ws.patchCalls()); got != 1 {
		t.Errorf("patches after re-run = %d, want 1", got)
	}
	if report.Counters.Linked != 0 || report.Counters.Skipped != 1 {
		t.Errorf("second run counters = %+v", report.Counters)
	}
}

func TestLinkRunKeepsExistingLinks(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.add("people", record("s1", models.Properties{
		"Email": models.Email{Address: "a@x.com"},
		"Team":  models.RelationOf("t0"),
	}))
	ws.add("teams",
		record("t0", models.Properties{"Lead Email": models.Email{Address: "other@x.com"}}),
		record("t1", models.Properties{"Lead Email": models.Email{Address: "a@x.com"}}))
	e := newTestEngine(t, []config.JobConfig{linkJob()}, Deps{Workspace: ws})

	if _, err := e.Run(context.Background(), "link-teams"); err != nil {
		t.Fatal(err)
	}
	patches := ws.patchCalls()
	if len(patches) != 1 {
		t.Fatalf("patches = %d, want 1", len(patches))
	}
	if got := patches[0].Props["Team"].(models.Relation).IDs(); !reflect.DeepEqual(got, []string{"t0", "t1"}) {
		t.Errorf("links = %v, want [t0 t1]", got)
	}
}

func TestLinkRunUnreadableRelation(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.add("people", record("s1", models.Properties{
		"Email": models.Email{Address: "a@x.com"},
		"Team":  models.Unknown{Type: workspace.TruncatedRelation},
	}))
	ws.add("teams", record("t1", models.Properties{"Lead Email": models.Email{Address: "a@x.com"}}))
	e := newTestEngine(t, []config.JobConfig{linkJob()}, Deps{Workspace: ws})

	report, err := e.Run(context.Background(), "link-teams")
	if err != nil {
		t.Fatal(err)
	}
	if len(ws.patchCalls()) != 0 {
		t.Error("a relation that could not be read must not be overwritten")
	}
	if report.Status != models.RunPartial || report.Counters.Failed != 1 {
		t.Errorf("report = %s %+v, want partial with 1 failure", report.Status, report.Counters)
	}
}

func TestLinkRunIncompleteFetch(t *testing.T) {
	t.Parallel()

	t.Run("partial collection is used", func(t *testing.T) {
		t.Parallel()
		ws := newFakeWorkspace()
		ws.overrides["people"] = workspace.Collection{
			Records: []models.Record{record("s1", models.Properties{"Email": models.Email{Address: "a@x.com"}})},
			Pages:   1,
			Err:     workspace.ErrIncomplete,
		}
		ws.add("teams", record("t1", models.Properties{"Lead Email": models.Email{Address: "a@x.com"}}))
		e := newTestEngine(t, []config.JobConfig{linkJob()}, Deps{Workspace: ws})

		report, err := e.Run(context.Background(), "link-teams")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if report.Status != models.RunPartial || report.Counters.Linked != 1 {
			t.Errorf("report = %s %+v, want partial with 1 link", report.Status, report.Counters)
		}
		if len(report.Notes) == 0 || !strings.Contains(report.Notes[0], "source fetch incomplete") {
			t.Errorf("notes = %v", report.Notes)
		}
	})

	t.Run("nothing fetched fails the run", func(t *testing.T) {
		t.Parallel()
		ws := newFakeWorkspace()
		ws.overrides["teams"] = workspace.Collection{Err: errors.New("connection refused")}
		e := newTestEngine(t, []config.JobConfig{linkJob()}, Deps{Workspace: ws})

		report, err := e.Run(context.Background(), "link-teams")
		if err == nil || !strings.Contains(err.Error(), "fetch target") {
			t.Fatalf("Run() error = %v, want fetch target error", err)
		}
		if report.Status != models.RunFailed {
			t.Errorf("status = %s", report.Status)
		}
	})
}

func mirrorJob() config.JobConfig {
	return config.JobConfig{
		Name:   "mirror-hours",
		Kind:   config.KindMirror,
		Source: config.SourceConfig{DatabaseID: "timesheets"},
		Fields: []config.FieldMapping{{From: "Hours (decimal)", To: "Hours (Current)"}},
	}
}

func TestMirrorRunRoundsBeforeComparing(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.add("timesheets",
		record("r1", models.Properties{
			"Hours (decimal)": models.NumberOf(3.14159),
			"Hours (Current)": models.NumberOf(3.1),
		}),
		record("r2", models.Properties{
			"Hours (decimal)": models.NumberOf(2.04),
			"Hours (Current)": models.NumberOf(1.5),
		}),
		record("r3", models.Properties{"Hours (Current)": models.NumberOf(8)}),
	)
	e := newTestEngine(t, []config.JobConfig{mirrorJob()}, Deps{Workspace: ws})

	report, err := e.Run(context.Background(), "mirror-hours")
	if err != nil {
		t.Fatal(err)
	}
	if report.Counters.Updated != 1 || report.Counters.Skipped != 2 {
		t.Errorf("counters = %+v, want 1 updated and 2 skipped", report.Counters)
	}
	patches := ws.patchCalls()
	if len(patches) != 1 || patches[0].PageID != "r2" {
		t.Fatalf("patches = %+v, want only r2", patches)
	}
	if n, _ := models.NumericValue(patches[0].Props["Hours (Current)"]); n != 2.0 {
		t.Errorf("written value = %v, want 2", n)
	}
}

func TestMirrorRunDoesNotOverwriteTruncatedRelation(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.add("people", record("r1", models.Properties{
		"Team (src)": models.RelationOf("a"),
		"Team":       models.Unknown{Type: workspace.TruncatedRelation},
	}))
	job := config.JobConfig{
		Name:   "mirror-team",
		Kind:   config.KindMirror,
		Source: config.SourceConfig{DatabaseID: "people"},
		Fields: []config.FieldMapping{{From: "Team (src)", To: "Team"}},
	}
	e := newTestEngine(t, []config.JobConfig{job}, Deps{Workspace: ws})

	report, _ := e.Run(context.Background(), job.Name)
	if report.Counters.Failed != 1 || report.Counters.Updated != 0 {
		t.Errorf("counters = %+v, want 1 failed", report.Counters)
	}
	if report.Status == models.RunOK {
		t.Errorf("status = %s, want a non-ok run", report.Status)
	}
	if patches := ws.patchCalls(); len(patches) != 0 {
		t.Errorf("patches = %+v, want none", patches)
	}
}

func TestMirrorRunIncrementalWatermark(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.add("timesheets", record("r1", models.Properties{"Hours (decimal)": models.NumberOf(1)}))
	clk := &clock{now: testNow}
	st := store.NewMemoryStore()
	job := mirrorJob()
	job.Incremental = true
	e := newTestEngine(t, []config.JobConfig{job}, Deps{Workspace: ws, Store: st, Now: clk.Now})

	if _, err := e.Run(context.Background(), job.Name); err != nil {
		t.Fatal(err)
	}
	clk.Advance(time.Hour)
	if _, err := e.Run(context.Background(), job.Name); err != nil {
		t.Fatal(err)
	}

	queries := ws.queryCalls()
	if len(queries) != 2 {
		t.Fatalf("queries = %d", len(queries))
	}
	if queries[0].Filter != "" {
		t.Errorf("first run filter = %s, want none", queries[0].Filter)
	}
	if !strings.Contains(queries[1].Filter, `"on_or_after":"2026-03-02T09:00:00Z"`) {
		t.Errorf("second run filter = %s", queries[1].Filter)
	}

	wm, err := store.LoadWatermark(context.Background(), st, job.Name)
	if err != nil {
		t.Fatal(err)
	}
	if !wm.Equal(testNow.Add(time.Hour)) {
		t.Errorf("watermark = %v", wm)
	}
}

func TestMirrorRunKeepsWatermarkOnFailedWrite(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.add("timesheets", record("r1", models.Properties{"Hours (decimal)": models.NumberOf(1)}))
	ws.patchErr = errors.New("validation_error")
	st := store.NewMemoryStore()
	job := mirrorJob()
	job.Incremental = true
	e := newTestEngine(t, []config.JobConfig{job}, Deps{Workspace: ws, Store: st})

	report, err := e.Run(context.Background(), job.Name)
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != models.RunPartial || report.Counters.Failed != 1 {
		t.Errorf("report = %s %+v", report.Status, report.Counters)
	}
	wm, _ := store.LoadWatermark(context.Background(), st, job.Name)
	if !wm.IsZero() {
		t.Errorf("watermark = %v, want unset", wm)
	}
}

func exportJob(mode string) config.JobConfig {
	return config.JobConfig{
		Name:   "export-roster",
		Kind:   config.KindExport,
		Source: config.SourceConfig{DatabaseID: "people"},
		Columns: []config.ColumnConfig{
			{Name: "Name"},
			{Name: "Team"},
			{Name: "Hours", Round: true},
		},
		Sheet: config.SheetConfig{SpreadsheetID: "sheet1", Range: "Roster!A1:C", Mode: mode},
	}
}

func TestExportReplace(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.titles["t1"] = "Platform"
	ws.add("people", record("p1", models.Properties{
		"Name":  models.Title{Text: "Ada"},
		"Team":  models.RelationOf("t1"),
		"Hours": models.NumberOf(3.14159),
	}))
	sh := &fakeSheets{values: sheets.Rows{{"stale"}}}
	e := newTestEngine(t, []config.JobConfig{exportJob("")}, Deps{Workspace: ws, Sheets: sh})

	report, err := e.Run(context.Background(), "export-roster")
	if err != nil {
		t.Fatal(err)
	}
	want := sheets.Rows{{"Name", "Team", "Hours"}, {"Ada", "Platform", "3.1"}}
	if !reflect.DeepEqual(sh.values, want) {
		t.Errorf("sheet = %v, want %v", sh.values, want)
	}
	if sh.clears != 1 || sh.sets != 1 || report.Counters.Updated != 1 {
		t.Errorf("clears=%d sets=%d counters=%+v", sh.clears, sh.sets, report.Counters)
	}
	if q := ws.queryCalls()[0]; !strings.Contains(q.Sorts, "created_time") {
		t.Errorf("sorts = %s, want created_time ascending", q.Sorts)
	}

	report, err = e.Run(context.Background(), "export-roster")
	if err != nil {
		t.Fatal(err)
	}
	if sh.sets != 1 || report.Counters.Skipped != 1 {
		t.Errorf("unchanged sheet rewritten: sets=%d counters=%+v", sh.sets, report.Counters)
	}
}

func TestExportReplaceLeavesSheetOnIncompleteFetch(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.overrides["people"] = workspace.Collection{
		Records: []models.Record{record("p1", models.Properties{"Name": models.Title{Text: "Ada"}})},
		Pages:   1,
		Err:     workspace.ErrIncomplete,
	}
	sh := &fakeSheets{values: sheets.Rows{{"Name"}, {"Ada"}, {"Grace"}}}
	e := newTestEngine(t, []config.JobConfig{exportJob(config.ExportReplace)}, Deps{Workspace: ws, Sheets: sh})

	report, err := e.Run(context.Background(), "export-roster")
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != models.RunPartial || sh.clears != 0 || sh.sets != 0 {
		t.Errorf("status=%s clears=%d sets=%d", report.Status, sh.clears, sh.sets)
	}
}

func TestExportAppend(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.add("people", record("p1", models.Properties{"Name": models.Title{Text: "Ada"}, "Hours": models.NumberOf(1)}))
	sh := &fakeSheets{}
	st := store.NewMemoryStore()
	e := newTestEngine(t, []config.JobConfig{exportJob(config.ExportAppend)}, Deps{Workspace: ws, Sheets: sh, Store: st})

	if _, err := e.Run(context.Background(), "export-roster"); err != nil {
		t.Fatal(err)
	}
	ws.add("people", record("p2", models.Properties{"Name": models.Title{Text: "Grace"}, "Hours": models.NumberOf(2.25)}))
	report, err := e.Run(context.Background(), "export-roster")
	if err != nil {
		t.Fatal(err)
	}

	want := sheets.Rows{{"Name", "Team", "Hours"}, {"Ada", "", "1"}, {"Grace", "", "2.3"}}
	if !reflect.DeepEqual(sh.values, want) {
		t.Errorf("sheet = %v, want %v", sh.values, want)
	}
	if len(sh.appends) != 2 || len(sh.appends[1]) != 1 {
		t.Errorf("appends = %v, want header only on the first", sh.appends)
	}
	if report.Counters.Created != 1 || report.Counters.Skipped != 1 {
		t.Errorf("counters = %+v", report.Counters)
	}

	ids, _ := store.LoadIDSet(context.Background(), st, "export-roster", store.SetExported)
	if !ids.Has("p1") || !ids.Has("p2") {
		t.Errorf("exported ids = %v", ids.Sorted())
	}
}

func importJob() config.JobConfig {
	return config.JobConfig{
		Name:   "import-hours",
		Kind:   config.KindImport,
		Target: config.TargetConfig{DatabaseID: "people", KeyProperty: "Email"},
		Sheet:  config.SheetConfig{SpreadsheetID: "sheet1", Range: "Hours!A1:B", KeyColumn: "Email"},
		Fields: []config.FieldMapping{{From: "Hours", To: "Hours"}},
	}
}

func TestImportRun(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.add("people",
		record("p1", models.Properties{"Email": models.Email{Address: "a@x.com"}, "Hours": models.NumberOf(3)}),
		record("p2", models.Properties{"Email": models.Email{Address: "b@x.com"}, "Hours": models.NumberOf(4)}))
	sh := &fakeSheets{values: sheets.Rows{
		{"Email", "Hours"},
		{"A@x.com", "7.5"},
		{"b@x.com", "4.04"},
		{"nobody@x.com", "1"},
		{""},
	}}
	e := newTestEngine(t, []config.JobConfig{importJob()}, Deps{Workspace: ws, Sheets: sh})

	report, err := e.Run(context.Background(), "import-hours")
	if err != nil {
		t.Fatal(err)
	}
	patches := ws.patchCalls()
	if len(patches) != 1 || patches[0].PageID != "p1" {
		t.Fatalf("patches = %+v, want only p1", patches)
	}
	if n, _ := models.NumericValue(patches[0].Props["Hours"]); n != 7.5 {
		t.Errorf("Hours = %v, want 7.5", n)
	}
	if report.Counters.Updated != 1 || report.Counters.Skipped != 3 {
		t.Errorf("counters = %+v, want 1 updated and 3 skipped", report.Counters)
	}
}

func TestImportRunMissingColumn(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	sh := &fakeSheets{values: sheets.Rows{{"Mail", "Hours"}}}
	e := newTestEngine(t, []config.JobConfig{importJob()}, Deps{Workspace: ws, Sheets: sh})

	_, err := e.Run(context.Background(), "import-hours")
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("Run() error = %v, want ErrConfig", err)
	}
	if len(ws.queryCalls()) != 0 {
		t.Error("workspace queried despite a bad sheet header")
	}
}

func TestGroupsRun(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.add("people",
		record("p1", models.Properties{"Email": models.Email{Address: "a@x.com"}, "Team": models.Select{Name: "Platform"}}),
		record("p2", models.Properties{"Email": models.Email{Address: "b@x.com"}, "Team": models.MultiSelect{Names: []string{"Platform", "Data Eng"}}}),
		record("p3", models.Properties{"Email": models.Email{Address: "c@x.com"}, "Team": models.Select{Name: "Data Eng"}}),
		record("p4", models.Properties{"Email": models.Email{Address: "d@x.com"}}),
	)
	ch := newFakeChat()
	ch.addUser("U-a", "a@x.com")
	ch.addUser("U-b", "b@x.com")
	ch.groups = []chat.UserGroup{{ID: "G1", Name: "platform"}}
	ch.members["G1"] = []string{"U-b"}

	job := config.JobConfig{
		Name:   "team-groups",
		Kind:   config.KindGroups,
		Source: config.SourceConfig{DatabaseID: "people", KeyProperty: "Email"},
		Group:  config.GroupConfig{Property: "Team", HandlePrefix: "team-"},
	}
	e := newTestEngine(t, []config.JobConfig{job}, Deps{Workspace: ws, Chat: ch})

	report, err := e.Run(context.Background(), "team-groups")
	if err != nil {
		t.Fatal(err)
	}

	if got := ch.members["G1"]; !reflect.DeepEqual(got, []string{"U-b", "U-a"}) {
		t.Errorf("G1 members = %v, want [U-b U-a]", got)
	}
	if got := ch.members["G-team-data-eng"]; !reflect.DeepEqual(got, []string{"U-b"}) {
		t.Errorf("created group members = %v, want [U-b]", got)
	}
	want := models.RunCounters{Fetched: 4, Created: 1, Updated: 2, Linked: 2, Skipped: 2}
	if report.Counters != want {
		t.Errorf("counters = %+v, want %+v", report.Counters, want)
	}
	if ch.lookups != 3 {
		t.Errorf("lookups = %d, want 3 (memoized per email)", ch.lookups)
	}
}

func TestGroupHandle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, name, want string
	}{
		{"", "Platform", "platform"},
		{"team-", "Data Eng", "team-data-eng"},
		{"team-", "  R&D / Ops ", "team-r-d-ops"},
		{"", "Ünïcode", "n-code"},
	}
	for _, tt := range tests {
		if got := groupHandle(tt.prefix, tt.name); got != tt.want {
			t.Errorf("groupHandle(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestProfilesRun(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.add("people", record("p1", models.Properties{
		"Email":    models.Email{Address: "a@x.com"},
		"Role":     models.RichText{Text: "Staff Engineer"},
		"Pronouns": models.RichText{Text: "they/them"},
	}))
	ch := newFakeChat()
	ch.addUser("U-a", "a@x.com")
	ch.profiles["U-a"] = map[string]string{"title": "Engineer", "pronouns": "they/them"}

	job := config.JobConfig{
		Name:   "profiles",
		Kind:   config.KindProfiles,
		Source: config.SourceConfig{DatabaseID: "people", KeyProperty: "Email"},
		Fields: []config.FieldMapping{
			{From: "Role", To: "title"},
			{From: "Pronouns", To: "pronouns"},
			{From: "Missing", To: "Xf01"},
		},
	}
	e := newTestEngine(t, []config.JobConfig{job}, Deps{Workspace: ws, Chat: ch})

	report, err := e.Run(context.Background(), "profiles")
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.setCalls) != 1 || !reflect.DeepEqual(map[string]string(ch.setCalls[0]), map[string]string{"title": "Staff Engineer"}) {
		t.Errorf("SetProfile calls = %v, want only the changed title", ch.setCalls)
	}
	if report.Counters.Updated != 1 {
		t.Errorf("counters = %+v", report.Counters)
	}

	report, err = e.Run(context.Background(), "profiles")
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.setCalls) != 1 || report.Counters.Skipped != 1 {
		t.Errorf("re-run wrote again: calls=%d counters=%+v", len(ch.setCalls), report.Counters)
	}
}

func announceJob() config.JobConfig {
	return config.JobConfig{
		Name:    "new-hires",
		Kind:    config.KindAnnounce,
		Source:  config.SourceConfig{DatabaseID: "people"},
		Channel: "C-general",
		Columns: []config.ColumnConfig{{Name: "Name"}, {Name: "Role"}},
	}
}

func TestAnnounceRun(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ch := newFakeChat()
	clk := &clock{now: testNow}
	st := store.NewMemoryStore()
	e := newTestEngine(t, []config.JobConfig{announceJob()}, Deps{Workspace: ws, Chat: ch, Store: st, Now: clk.Now})
	ctx := context.Background()

	report, err := e.Run(ctx, "new-hires")
	if err != nil {
		t.Fatal(err)
	}
	if len(ws.queryCalls()) != 0 || len(report.Notes) != 1 {
		t.Fatalf("first run queried=%d notes=%v, want seeding only", len(ws.queryCalls()), report.Notes)
	}

	clk.Advance(time.Hour)
	created := testNow.Add(time.Hour + time.Minute)
	ws.add("people",
		models.Record{ID: "n1", CreatedTime: created, Properties: models.Properties{"Name": models.Title{Text: "Ada"}, "Role": models.RichText{Text: "SRE"}}},
		models.Record{ID: "n2", CreatedTime: created, Properties: models.Properties{"Name": models.Title{Text: "Grace <3"}}},
	)
	report, err = e.Run(ctx, "new-hires")
	if err != nil {
		t.Fatal(err)
	}
	if report.Counters.Posted != 2 || len(ch.posted) != 2 {
		t.Fatalf("posted = %d (%+v)", len(ch.posted), report.Counters)
	}
	if ch.posted[0].Channel != "C-general" || ch.posted[0].Text != "*Name:* Ada\n*Role:* SRE" {
		t.Errorf("message = %+v", ch.posted[0])
	}
	if ch.posted[1].Text != "*Name:* Grace &lt;3" {
		t.Errorf("message = %q", ch.posted[1].Text)
	}
	q := ws.queryCalls()[0]
	if !strings.Contains(q.Filter, `"created_time":{"on_or_after":"2026-03-02T09:00:00Z"}`) {
		t.Errorf("filter = %s", q.Filter)
	}

	// The same records come back; nothing is posted twice.
	clk.Advance(time.Minute)
	report, err = e.Run(ctx, "new-hires")
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.posted) != 2 || report.Counters.Skipped != 2 {
		t.Errorf("re-posted: posted=%d counters=%+v", len(ch.posted), report.Counters)
	}
}

func TestAnnounceRunWatermarkIsMinuteFloored(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ch := newFakeChat()
	clk := &clock{now: testNow.Add(15 * time.Second)}
	st := store.NewMemoryStore()
	e := newTestEngine(t, []config.JobConfig{announceJob()}, Deps{Workspace: ws, Chat: ch, Store: st, Now: clk.Now})
	ctx := context.Background()

	if _, err := e.Run(ctx, "new-hires"); err != nil {
		t.Fatal(err)
	}
	wm, _ := store.LoadWatermark(ctx, st, "new-hires")
	if !wm.Equal(testNow) {
		t.Fatalf("seeded watermark = %v, want %v", wm, testNow)
	}

	// Created at 09:00:30 and 09:01:05; the API reports whole minutes.
	ws.add("people",
		models.Record{ID: "n1", CreatedTime: testNow, Properties: models.Properties{"Name": models.Title{Text: "Ada"}}},
		models.Record{ID: "n2", CreatedTime: testNow.Add(time.Minute), Properties: models.Properties{"Name": models.Title{Text: "Grace"}}},
	)
	clk.Advance(55 * time.Second)
	report, err := e.Run(ctx, "new-hires")
	if err != nil {
		t.Fatal(err)
	}
	if report.Counters.Posted != 2 {
		t.Errorf("posted = %d, want both records", report.Counters.Posted)
	}
	if q := ws.queryCalls()[0]; !strings.Contains(q.Filter, `"on_or_after":"2026-03-02T09:00:00Z"`) {
		t.Errorf("filter = %s", q.Filter)
	}

	wm, _ = store.LoadWatermark(ctx, st, "new-hires")
	if want := testNow.Add(time.Minute); !wm.Equal(want) {
		t.Errorf("watermark = %v, want %v", wm, want)
	}
	notified, err := store.LoadIDSet(ctx, st, "new-hires", store.SetNotified)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(notified.Sorted(), []string{"n2"}) {
		t.Errorf("notified = %v, want [n2] kept for the overlapping minute", notified.Sorted())
	}
}

func TestAnnounceRunPostFailureKeepsWatermark(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.add("people", models.Record{ID: "n1", Properties: models.Properties{"Name": models.Title{Text: "Ada"}}})
	ch := newFakeChat()
	ch.postErr = errors.New("channel_not_found")
	st := store.NewMemoryStore()
	seed := testNow.Add(-time.Hour)
	if err := store.SaveWatermark(context.Background(), st, "new-hires", seed); err != nil {
		t.Fatal(err)
	}
	e := newTestEngine(t, []config.JobConfig{announceJob()}, Deps{Workspace: ws, Chat: ch, Store: st})

	report, err := e.Run(context.Background(), "new-hires")
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != models.RunPartial || report.Counters.Failed != 1 {
		t.Errorf("report = %s %+v", report.Status, report.Counters)
	}
	wm, _ := store.LoadWatermark(context.Background(), st, "new-hires")
	if !wm.Equal(seed) {
		t.Errorf("watermark = %v, want %v", wm, seed)
	}
}

func TestPruneNotified(t *testing.T) {
	t.Parallel()

	set := store.IDSet{}
	set.Add("old")
	set.Add("new")
	set.Add("gone")
	rc := &RunContext{NewWatermark: testNow}
	records := []models.Record{
		{ID: "old", CreatedTime: testNow.Add(-time.Second)},
		{ID: "new", CreatedTime: testNow},
	}
	got := pruneNotified(set, records, rc)
	if !reflect.DeepEqual(got.Sorted(), []string{"new"}) {
		t.Errorf("pruned = %v, want [new]", got.Sorted())
	}
}
