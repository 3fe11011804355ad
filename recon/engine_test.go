package recon

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/derekvan/canvas-markdown-tools/ir"
)

// fakeRemote is an in-memory Remote with persistent state, so consecutive
// runs against it behave like consecutive runs against a live course.
type fakeRemote struct {
	nextID      int
	modules     map[string]*RemoteModule
	pages       map[string]*RemotePage
	assignments map[string]*RemoteAssignment
	discussions map[string]*RemoteDiscussion
	files       map[string]*RemoteFile
	moduleItems map[string]*RemoteModuleItem

	writes      int
	failCreates map[string]bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		modules:     map[string]*RemoteModule{},
		pages:       map[string]*RemotePage{},
		assignments: map[string]*RemoteAssignment{},
		discussions: map[string]*RemoteDiscussion{},
		files:       map[string]*RemoteFile{},
		moduleItems: map[string]*RemoteModuleItem{},
		failCreates: map[string]bool{},
	}
}

func (f *fakeRemote) id() string {
	f.nextID++
	return fmt.Sprintf("%d", f.nextID)
}

func (f *fakeRemote) GetModule(ctx context.Context, id string) (*RemoteModule, error) {
	if m, ok := f.modules[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, &NotFoundError{Entity: "module", ID: id}
}

func (f *fakeRemote) CreateModule(ctx context.Context, m *RemoteModule) (*RemoteModule, error) {
	if f.failCreates["module:"+m.Title] {
		return nil, fmt.Errorf("create module refused")
	}
	f.writes++
	cp := *m
	cp.ID = f.id()
	f.modules[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeRemote) UpdateModule(ctx context.Context, m *RemoteModule) error {
	f.writes++
	f.modules[m.ID] = m
	return nil
}

func pageSlug(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "-")
}

func (f *fakeRemote) GetPage(ctx context.Context, id string) (*RemotePage, error) {
	if p, ok := f.pages[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, &NotFoundError{Entity: "page", ID: id}
}

func (f *fakeRemote) CreatePage(ctx context.Context, p *RemotePage) (*RemotePage, error) {
	if f.failCreates["page:"+p.Title] {
		return nil, fmt.Errorf("create page refused")
	}
	f.writes++
	cp := *p
	cp.ID = pageSlug(p.Title)
	cp.URL = "https://canvas.test/pages/" + cp.ID
	f.pages[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeRemote) UpdatePage(ctx context.Context, p *RemotePage) (*RemotePage, error) {
	f.writes++
	cp := *p
	cp.URL = "https://canvas.test/pages/" + cp.ID
	f.pages[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeRemote) GetAssignment(ctx context.Context, id string) (*RemoteAssignment, error) {
	if a, ok := f.assignments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, &NotFoundError{Entity: "assignment", ID: id}
}

func (f *fakeRemote) CreateAssignment(ctx context.Context, a *RemoteAssignment) (*RemoteAssignment, error) {
	if f.failCreates["assignment:"+a.Title] {
		return nil, fmt.Errorf("create assignment refused")
	}
	f.writes++
	cp := *a
	cp.ID = f.id()
	f.assignments[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeRemote) UpdateAssignment(ctx context.Context, a *RemoteAssignment) error {
	f.writes++
	f.assignments[a.ID] = a
	return nil
}

func (f *fakeRemote) GetDiscussion(ctx context.Context, id string) (*RemoteDiscussion, error) {
	if d, ok := f.discussions[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, &NotFoundError{Entity: "discussion", ID: id}
}

func (f *fakeRemote) CreateDiscussion(ctx context.Context, d *RemoteDiscussion) (*RemoteDiscussion, error) {
	f.writes++
	cp := *d
	cp.ID = f.id()
	f.discussions[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeRemote) UpdateDiscussion(ctx context.Context, d *RemoteDiscussion) error {
	f.writes++
	f.discussions[d.ID] = d
	return nil
}

func (f *fakeRemote) FindFile(ctx context.Context, name string) (*RemoteFile, error) {
	if rf, ok := f.files[name]; ok {
		return rf, nil
	}
	for _, rf := range f.files {
		if strings.EqualFold(rf.Name, name) {
			return rf, nil
		}
	}
	return nil, &NotFoundError{Entity: "file", ID: name}
}

func (f *fakeRemote) GetModuleItem(ctx context.Context, moduleID, itemID string) (*RemoteModuleItem, error) {
	if mi, ok := f.moduleItems[moduleID+"/"+itemID]; ok {
		cp := *mi
		return &cp, nil
	}
	return nil, &NotFoundError{Entity: "module item", ID: itemID}
}

func (f *fakeRemote) CreateModuleItem(ctx context.Context, moduleID string, mi *RemoteModuleItem) (*RemoteModuleItem, error) {
	f.writes++
	cp := *mi
	cp.ID = f.id()
	f.moduleItems[moduleID+"/"+cp.ID] = &cp
	return &cp, nil
}

func (f *fakeRemote) UpdateModuleItem(ctx context.Context, moduleID string, mi *RemoteModuleItem) error {
	f.writes++
	f.moduleItems[moduleID+"/"+mi.ID] = mi
	return nil
}

func freshCourse() *ir.Course {
	page := &ir.Page{ItemCommon: ir.ItemCommon{Title: "Syllabus"},
		Body: "Read this, then do [[Assignment:First Quiz]]."}
	quiz := ir.NewAssignment("First Quiz")
	quiz.Points = 20
	quiz.Body = "Answer every question."
	disc := ir.NewDiscussion("Introductions")
	disc.Body = "Say hello."
	return &ir.Course{
		Meta: ir.CourseMeta{CanvasURL: "https://canvas.test", CourseID: "1234"},
		Modules: []*ir.Module{{
			Title: "Week 1",
			Items: []ir.Item{
				&ir.Header{ItemCommon: ir.ItemCommon{Title: "Getting Started"}},
				page,
				quiz,
				disc,
				&ir.Link{ItemCommon: ir.ItemCommon{Title: "Calendar"}, URL: "https://cal.test"},
				&ir.File{ItemCommon: ir.ItemCommon{Title: "Readings"}},
			},
		}},
	}
}

func testEngine(remote Remote) *Engine {
	return NewEngine(remote, "https://canvas.test", "1234")
}

func TestRunCreatesEverything(t *testing.T) {
	remote := newFakeRemote()
	remote.files["Readings"] = &RemoteFile{ID: "88", Name: "Readings"}
	course := freshCourse()

	sum, err := testEngine(remote).Run(context.Background(), course)
	if err != nil {
		t.Fatalf("Run failed: %s", err.Error())
	}
	if sum.Failed != 0 {
		t.Fatalf("Expected no failures: %+v", sum.Errs())
	}
	// 1 module, 3 content items, 6 module items
	if sum.Created != 10 {
		t.Errorf("Expected 10 creates, got %d", sum.Created)
	}

	m := course.Modules[0]
	if m.RemoteID == "" {
		t.Error("Module ID not written back")
	}
	for _, it := range m.Items {
		if it.Common().ModuleItemID == "" {
			t.Errorf("Module item ID not written back for %q", it.Common().Title)
		}
	}
	if got := m.Items[5].Common().RemoteID; got != "88" {
		t.Errorf("File lookup should assign the remote file ID, got %q", got)
	}

	var positions []int
	for _, mi := range remote.moduleItems {
		positions = append(positions, mi.Position)
	}
	if len(positions) != 6 {
		t.Fatalf("Expected 6 remote module items, got %d", len(positions))
	}
}

func TestRunResolvesForwardLinks(t *testing.T) {
	remote := newFakeRemote()
	remote.files["Readings"] = &RemoteFile{ID: "88", Name: "Readings"}
	course := freshCourse()

	if _, err := testEngine(remote).Run(context.Background(), course); err != nil {
		t.Fatalf("Run failed: %s", err.Error())
	}
	page := remote.pages[pageSlug("Syllabus")]
	if page == nil {
		t.Fatal("Page not created")
	}
	quizID := course.Modules[0].Items[2].Common().RemoteID
	want := "/courses/1234/assignments/" + quizID
	if !strings.Contains(page.Body, want) {
		t.Errorf("Forward reference should resolve after the content phase:\n%s", page.Body)
	}
	if strings.Contains(page.Body, "[[") {
		t.Errorf("Literal reference left in uploaded body:\n%s", page.Body)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	remote := newFakeRemote()
	remote.files["Readings"] = &RemoteFile{ID: "88", Name: "Readings"}
	course := freshCourse()
	eng := testEngine(remote)

	if _, err := eng.Run(context.Background(), course); err != nil {
		t.Fatalf("First run failed: %s", err.Error())
	}
	before := remote.writes

	sum, err := eng.Run(context.Background(), course)
	if err != nil {
		t.Fatalf("Second run failed: %s", err.Error())
	}
	if remote.writes != before {
		t.Errorf("Second run should not write, got %d extra writes", remote.writes-before)
	}
	if sum.Created != 0 || sum.Updated != 0 || sum.Failed != 0 {
		t.Errorf("Second run should be all unchanged: %+v", sum)
	}
}

func TestRunUpdatesChangedFields(t *testing.T) {
	remote := newFakeRemote()
	remote.files["Readings"] = &RemoteFile{ID: "88", Name: "Readings"}
	course := freshCourse()
	eng := testEngine(remote)
	if _, err := eng.Run(context.Background(), course); err != nil {
		t.Fatalf("First run failed: %s", err.Error())
	}

	quiz := course.Modules[0].Items[2].(*ir.Assignment)
	quiz.Points = 25
	sum, err := eng.Run(context.Background(), course)
	if err != nil {
		t.Fatalf("Second run failed: %s", err.Error())
	}
	if sum.Updated != 1 {
		t.Fatalf("Expected exactly one update, got %d", sum.Updated)
	}
	var updated *Outcome
	for i := range sum.Outcomes {
		if sum.Outcomes[i].Action == ActionUpdate {
			updated = &sum.Outcomes[i]
		}
	}
	if updated == nil || updated.Entity != "assignment" {
		t.Fatalf("Expected the assignment to update: %+v", updated)
	}
	if len(updated.Fields) != 1 || updated.Fields[0] != "points" {
		t.Errorf("Expected only points to differ, got %v", updated.Fields)
	}
	if remote.assignments[quiz.RemoteID].Points != 25 {
		t.Errorf("Remote points not updated")
	}
}

func TestRunToleratesPerItemFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.files["Readings"] = &RemoteFile{ID: "88", Name: "Readings"}
	remote.failCreates["assignment:First Quiz"] = true
	course := freshCourse()

	sum, err := testEngine(remote).Run(context.Background(), course)
	if err != nil {
		t.Fatalf("Run should tolerate item failures: %s", err.Error())
	}
	// The assignment create fails, and the second link pass for the page
	// cannot resolve the reference to it.
	if sum.Failed != 2 {
		t.Fatalf("Expected 2 failures, got %d: %+v", sum.Failed, sum.Errs())
	}
	skipped := 0
	for _, o := range sum.Outcomes {
		if o.Action == ActionSkip {
			skipped++
			if o.Title != "First Quiz" {
				t.Errorf("Only the failed item's module item should skip, got %q", o.Title)
			}
		}
	}
	if skipped != 1 {
		t.Errorf("Expected 1 skipped module item, got %d", skipped)
	}
	// Everything independent still created.
	if len(remote.pages) != 1 || len(remote.discussions) != 1 || len(remote.modules) != 1 {
		t.Errorf("Independent items should still sync")
	}
	if len(remote.moduleItems) != 5 {
		t.Errorf("Expected 5 module items, got %d", len(remote.moduleItems))
	}
}

func TestRunFailsFastOnBadLinks(t *testing.T) {
	remote := newFakeRemote()
	course := freshCourse()
	course.Modules[0].Items[1].(*ir.Page).Body = "See [[Page:Nonexistent]]."

	_, err := testEngine(remote).Run(context.Background(), course)
	if err == nil {
		t.Fatal("Expected an unresolved link error")
	}
	if _, ok := err.(*ir.UnresolvedLinkError); !ok {
		t.Fatalf("Expected UnresolvedLinkError, got %T", err)
	}
	if remote.writes != 0 {
		t.Errorf("No writes should happen when the link check fails, got %d", remote.writes)
	}
}

func TestRunRecreatesWhenAnnotationIsStale(t *testing.T) {
	remote := newFakeRemote()
	remote.files["Readings"] = &RemoteFile{ID: "88", Name: "Readings"}
	course := freshCourse()
	course.Modules[0].RemoteID = "999"
	course.Modules[0].Items[2].Common().RemoteID = "888"

	sum, err := testEngine(remote).Run(context.Background(), course)
	if err != nil {
		t.Fatalf("Run failed: %s", err.Error())
	}
	if sum.Failed != 0 {
		t.Fatalf("Stale annotations should recreate, not fail: %+v", sum.Errs())
	}
	if course.Modules[0].RemoteID == "999" {
		t.Error("Stale module ID should be replaced")
	}
	if course.Modules[0].Items[2].Common().RemoteID == "888" {
		t.Error("Stale assignment ID should be replaced")
	}
}

func TestRunRepatchesLinksToRecreatedTargets(t *testing.T) {
	remote := newFakeRemote()
	remote.files["Readings"] = &RemoteFile{ID: "88", Name: "Readings"}
	course := freshCourse()
	// The quiz annotation points at an assignment that no longer exists, so
	// the run recreates it under a new ID. The syllabus body was anchored to
	// the dead ID on the first pass and must be re-uploaded.
	quiz := course.Modules[0].Items[2].Common()
	quiz.RemoteID = "888"

	sum, err := testEngine(remote).Run(context.Background(), course)
	if err != nil {
		t.Fatalf("Run failed: %s", err.Error())
	}
	if sum.Failed != 0 {
		t.Fatalf("Expected no failures: %+v", sum.Errs())
	}
	if quiz.RemoteID == "888" || quiz.RemoteID == "" {
		t.Fatalf("Expected a fresh assignment ID, got %q", quiz.RemoteID)
	}
	page := remote.pages[pageSlug("Syllabus")]
	if page == nil {
		t.Fatal("Syllabus page missing from remote")
	}
	if !strings.Contains(page.Body, "/assignments/"+quiz.RemoteID) {
		t.Errorf("Page body should link the recreated assignment, got %q", page.Body)
	}
	if strings.Contains(page.Body, "888") {
		t.Errorf("Page body still links the dead assignment ID: %q", page.Body)
	}
}

func TestPlanRunMakesNoWrites(t *testing.T) {
	remote := newFakeRemote()
	remote.files["Readings"] = &RemoteFile{ID: "88", Name: "Readings"}
	course := freshCourse()

	plan, err := testEngine(remote).PlanRun(context.Background(), course)
	if err != nil {
		t.Fatalf("PlanRun failed: %s", err.Error())
	}
	if remote.writes != 0 {
		t.Errorf("Plan must not write, got %d writes", remote.writes)
	}
	// 1 module + 3 content + 6 module items
	if plan.Changes() != 10 {
		t.Errorf("Expected 10 planned changes, got %d", plan.Changes())
	}
}

func TestPlanRunAfterSyncIsEmpty(t *testing.T) {
	remote := newFakeRemote()
	remote.files["Readings"] = &RemoteFile{ID: "88", Name: "Readings"}
	course := freshCourse()
	eng := testEngine(remote)
	if _, err := eng.Run(context.Background(), course); err != nil {
		t.Fatalf("Run failed: %s", err.Error())
	}
	plan, err := eng.PlanRun(context.Background(), course)
	if err != nil {
		t.Fatalf("PlanRun failed: %s", err.Error())
	}
	if plan.Changes() != 0 {
		t.Errorf("Expected empty plan after a clean sync, got %d changes: %+v", plan.Changes(), plan.Ops)
	}
}

func TestRunLeavesRemoteOnlyEntitiesAlone(t *testing.T) {
	remote := newFakeRemote()
	remote.files["Readings"] = &RemoteFile{ID: "88", Name: "Readings"}
	remote.modules["900"] = &RemoteModule{ID: "900", Title: "Retired Week"}
	remote.pages["old-syllabus"] = &RemotePage{ID: "old-syllabus", Title: "Old Syllabus", Body: "<p>keep me</p>"}
	course := freshCourse()

	sum, err := testEngine(remote).Run(context.Background(), course)
	if err != nil {
		t.Fatalf("Run failed: %s", err.Error())
	}
	if m := remote.modules["900"]; m == nil || m.Title != "Retired Week" {
		t.Errorf("Remote-only module was touched: %+v", m)
	}
	if p := remote.pages["old-syllabus"]; p == nil || p.Body != "<p>keep me</p>" {
		t.Errorf("Remote-only page was touched: %+v", p)
	}
	for _, o := range sum.Outcomes {
		if o.Title == "Retired Week" || o.Title == "Old Syllabus" {
			t.Errorf("Remote-only entity appeared in outcomes: %+v", o)
		}
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	remote := newFakeRemote()
	course := freshCourse()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := testEngine(remote).Run(ctx, course)
	if err != nil {
		t.Fatalf("Run failed: %s", err.Error())
	}
	if remote.writes != 0 {
		t.Errorf("Canceled run should not write, got %d writes", remote.writes)
	}
	if sum.Created != 0 || sum.Updated != 0 {
		t.Errorf("Canceled run should only skip: %+v", sum)
	}
}
