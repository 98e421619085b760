package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tally/internal/backup"
	"github.com/sadopc/tally/internal/config"
	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/state"
	"github.com/sadopc/tally/internal/store"
)

func newTestApp(t *testing.T) (App, *state.Hub) {
	t.Helper()
	kv := store.NewMap()
	w := state.NewWriter(kv, config.WriterConfig{MaxAttempts: 1, BaseBackoffMS: 1, MaxBackoffMS: 1}, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		w.Close(ctx)
	})
	hub := state.NewHub(state.Deps{KV: kv, Writer: w})
	app := NewApp(Options{Hub: hub, KV: kv, Writer: w, ExportDir: t.TempDir()})
	app.width = 120
	app.height = 40
	app.dashboard.setSize(120, 36)
	app.counters.setSize(120, 36)
	app.finances.setSize(120, 36)
	app.events.setSize(120, 36)
	app.settings.setSize(120, 36)
	return app, hub
}

func loadHub(t *testing.T, hub *state.Hub) {
	t.Helper()
	if err := hub.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := a.Update(msg)
	app, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T, want App", m)
	}
	return app, cmd
}

// ============================================================
// App model
// ============================================================

func TestNewApp(t *testing.T) {
	app, _ := newTestApp(t)

	if app.activeView != viewDashboard {
		t.Fatal("default view should be dashboard")
	}
	if app.showHelp {
		t.Fatal("help should be hidden by default")
	}
	if app.isFormActive() {
		t.Fatal("no forms should be active initially")
	}
}

func TestAppLoadingState(t *testing.T) {
	app, _ := newTestApp(t)
	app.width = 0
	if out := app.View(); out != loadingText {
		t.Fatalf("expected %q, got %q", loadingText, out)
	}
}

func TestViewsShowLoadingUntilLoaded(t *testing.T) {
	app, hub := newTestApp(t)

	for v := range viewNames {
		app.activeView = viewState(v)
		if out := app.View(); !strings.Contains(out, loadingText) {
			t.Fatalf("%s should show %q before load:\n%s", viewNames[v], loadingText, out)
		}
	}

	loadHub(t, hub)
	app.activeView = viewCounters
	if out := app.View(); strings.Contains(out, loadingText) {
		t.Fatalf("counters still loading after load:\n%s", out)
	}
}

func TestAppViewStates(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)

	for v := range viewNames {
		app.activeView = viewState(v)
		if app.View() == "" {
			t.Fatalf("view %d rendered empty", v)
		}
	}
}

func TestAppTabSwitching(t *testing.T) {
	app, _ := newTestApp(t)

	app, _ = press(t, app, runeKey("2"))
	if app.activeView != viewCounters {
		t.Fatalf("after 2: view %d, want counters", app.activeView)
	}
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	if app.activeView != viewFinances {
		t.Fatalf("after tab: view %d, want finances", app.activeView)
	}
	app, _ = press(t, app, runeKey("5"))
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	if app.activeView != viewDashboard {
		t.Fatalf("tab should wrap to dashboard, got %d", app.activeView)
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	app, _ := newTestApp(t)

	header := app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppStatusMessage(t *testing.T) {
	app, _ := newTestApp(t)
	app, _ = press(t, app, statusMsg{text: "test status"})

	if !strings.Contains(app.renderFooter(), "test status") {
		t.Fatal("footer should contain status message")
	}
}

func TestAppWriteErrorShowsInStatus(t *testing.T) {
	app, _ := newTestApp(t)
	werr := &state.WriteError{Key: "daily_counts", Attempts: 3, Err: errors.New("disk full")}

	app, cmd := press(t, app, writeErrorMsg{err: werr})
	if !app.statusErr {
		t.Fatal("write error should be flagged as an error")
	}
	if !strings.Contains(app.status, "daily_counts") || !strings.Contains(app.status, "disk full") {
		t.Fatalf("status = %q", app.status)
	}
	if cmd == nil {
		t.Fatal("app should keep listening for write errors")
	}
}

func TestAppLoadErrorShowsInStatus(t *testing.T) {
	app, _ := newTestApp(t)
	app, _ = press(t, app, loadedMsg{err: errors.New("bad blob")})
	if !app.statusErr || !strings.Contains(app.status, "bad blob") {
		t.Fatalf("status = %q", app.status)
	}
}

func TestSubscriptionsSignalChanges(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)

	// Drain whatever Load signalled.
	select {
	case <-app.changes:
	default:
	}

	if err := hub.Habit.Increment(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-app.changes:
	case <-time.After(time.Second):
		t.Fatal("habit change was not signalled")
	}

	msg := waitForChange(app.changes)
	go signal(app.changes)
	if _, ok := msg().(changedMsg); !ok {
		t.Fatal("waitForChange should yield changedMsg")
	}
}

// ============================================================
// Dashboard
// ============================================================

func TestDashboardAdjustsHabit(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)

	app, _ = press(t, app, runeKey("+"))
	app, _ = press(t, app, runeKey("+"))
	app, _ = press(t, app, runeKey("-"))

	if got := hub.Habit.Today(); got != 1 {
		t.Fatalf("today = %d, want 1", got)
	}
	if out := app.View(); !strings.Contains(out, "Last 7 days") {
		t.Fatal("dashboard should show the weekly chart")
	}
}

func TestDashboardMutationBeforeLoad(t *testing.T) {
	app, hub := newTestApp(t)

	_, cmd := press(t, app, runeKey("+"))
	if cmd == nil {
		t.Fatal("expected an error status command")
	}
	msg, ok := cmd().(statusMsg)
	if !ok || !msg.isError || !strings.Contains(msg.text, "still loading") {
		t.Fatalf("got %#v", msg)
	}
	if hub.Habit.Status() != state.NotLoaded {
		t.Fatal("habit should still be unloaded")
	}
}

func TestDashboardResetsToday(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)

	app, _ = press(t, app, runeKey("+"))
	app, _ = press(t, app, runeKey("+"))
	_, cmd := press(t, app, runeKey("r"))

	if got := hub.Habit.Today(); got != 0 {
		t.Fatalf("today = %d, want 0 after reset", got)
	}
	if msg, ok := cmd().(statusMsg); !ok || msg.isError {
		t.Fatalf("reset status = %#v", msg)
	}
}

func TestDashboardStudyReview(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)

	app, _ = press(t, app, runeKey("v"))
	if !app.dashboard.formActive || !app.isFormActive() {
		t.Fatal("v should open the review form")
	}
	app, _ = press(t, app, runeKey("2"))
	if app.activeView != viewDashboard {
		t.Fatal("typing in the form must not switch tabs")
	}
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	if app.dashboard.formActive {
		t.Fatal("esc should close the form")
	}

	*app.dashboard.formCard = " hola "
	*app.dashboard.formKnown = true
	msg, ok := app.dashboard.review()().(statusMsg)
	if !ok || msg.isError || !strings.Contains(msg.text, "hola is at level 1/5") {
		t.Fatalf("review status = %#v", msg)
	}
	*app.dashboard.formKnown = false
	app.dashboard.review()()
	if hub.Study.Level("hola") != 0 || hub.Study.Seen() != 1 {
		t.Fatalf("level = %d seen = %d", hub.Study.Level("hola"), hub.Study.Seen())
	}

	*app.dashboard.formCard = ""
	if msg, ok := app.dashboard.review()().(statusMsg); !ok || !msg.isError {
		t.Fatalf("empty card should fail, got %#v", msg)
	}
}

func TestDashboardShowsGoalAndPayday(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)
	ctx := context.Background()

	if err := hub.Goal.Set(ctx, "Car", 20000, 15000); err != nil {
		t.Fatal(err)
	}
	if err := hub.Finance.SetSalaryDay(ctx, 15); err != nil {
		t.Fatal(err)
	}

	out := app.View()
	for _, want := range []string{"Car", "5,000.00", "20,000.00", "(25%)", "Payday"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dashboard missing %q:\n%s", want, out)
		}
	}
}

// ============================================================
// Counters
// ============================================================

func TestCountersStepAndDelete(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)
	ctx := context.Background()

	c, err := hub.Counters.Add(ctx, "Push-ups", model.Plain{})
	if err != nil {
		t.Fatal(err)
	}

	app, _ = press(t, app, runeKey("2"))
	app, _ = press(t, app, runeKey("+"))
	app, _ = press(t, app, runeKey("+"))
	got, _ := hub.Counters.Get(c.ID)
	if got.Value != 2 {
		t.Fatalf("value = %v, want 2", got.Value)
	}

	app, cmd := press(t, app, runeKey("d"))
	if len(hub.Counters.List()) != 0 {
		t.Fatal("counter should be deleted")
	}
	if msg, ok := cmd().(statusMsg); !ok || msg.isError {
		t.Fatalf("delete status = %#v", msg)
	}
	if out := app.View(); !strings.Contains(out, "No counters yet") {
		t.Fatalf("empty list hint missing:\n%s", out)
	}
}

func TestCountersCumulativeOnlyGrows(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)

	c, err := hub.Counters.Add(context.Background(), "Books", model.Cumulative{})
	if err != nil {
		t.Fatal(err)
	}

	app.activeView = viewCounters
	app, _ = press(t, app, runeKey("+"))
	app, _ = press(t, app, runeKey("-"))

	got, _ := hub.Counters.Get(c.ID)
	if got.Value != 1 {
		t.Fatalf("value = %v, want 1", got.Value)
	}
}

func TestCountersViewFormatsByKind(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)
	ctx := context.Background()

	c, err := hub.Counters.Add(ctx, "Wallet", model.Currency{})
	if err != nil {
		t.Fatal(err)
	}
	if err := hub.Counters.SetValue(ctx, c.ID, 1234.5); err != nil {
		t.Fatal(err)
	}

	app.activeView = viewCounters
	out := app.View()
	for _, want := range []string{"Wallet", "Money", "1,234.50"} {
		if !strings.Contains(out, want) {
			t.Fatalf("counters view missing %q:\n%s", want, out)
		}
	}
}

func TestCountersChangeClampsCursor(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)
	ctx := context.Background()

	hub.Counters.Add(ctx, "A", model.Plain{})
	b, _ := hub.Counters.Add(ctx, "B", model.Plain{})

	app.activeView = viewCounters
	app, _ = press(t, app, runeKey("j"))
	if app.counters.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", app.counters.cursor)
	}

	if err := hub.Counters.Delete(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	app, _ = press(t, app, changedMsg{})
	if app.counters.cursor != 0 {
		t.Fatalf("cursor = %d after delete, want 0", app.counters.cursor)
	}
}

func TestCountersNewForm(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)

	app.activeView = viewCounters
	app, _ = press(t, app, runeKey("n"))
	if !app.isFormActive() {
		t.Fatal("n should open the new counter form")
	}

	// Keys go to the form, not to the tab switcher.
	app, _ = press(t, app, runeKey("3"))
	if app.activeView != viewCounters {
		t.Fatal("typing into a form must not switch views")
	}

	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	if app.isFormActive() {
		t.Fatal("esc should close the form")
	}
}

func TestCountersSave(t *testing.T) {
	_, hub := newTestApp(t)
	loadHub(t, hub)
	m := newCountersModel(context.Background(), hub)

	*m.formTitle = " Trip "
	*m.formKind = string(model.KindCountdown)
	*m.formDetail = "2030-01-01"
	m.formType = "new"
	if err := m.save(); err != nil {
		t.Fatal(err)
	}

	list := hub.Counters.List()
	if len(list) != 1 || list[0].Title != "Trip" {
		t.Fatalf("list = %+v", list)
	}
	cd, ok := list[0].Variant.(model.Countdown)
	if !ok || cd.TargetDate != "2030-01-01" {
		t.Fatalf("variant = %#v", list[0].Variant)
	}

	hubCounter, err := hub.Counters.Add(context.Background(), "Budget", model.BudgetHub{})
	if err != nil {
		t.Fatal(err)
	}
	m.formType = "hub"
	m.editingID = hubCounter.ID
	*m.formAmount = "3,000"
	*m.formAmount2 = "500"
	if err := m.save(); err != nil {
		t.Fatal(err)
	}
	got, _ := hub.Counters.Get(hubCounter.ID)
	bh := got.Variant.(model.BudgetHub)
	month := time.Now().Format("2006-01")
	if bh.Salaries[month] != 3000 || bh.Savings[month] != 500 {
		t.Fatalf("hub = %+v", bh)
	}
}

func TestCounterValue(t *testing.T) {
	today := time.Date(2025, 10, 18, 0, 0, 0, 0, time.Local)

	tests := []struct {
		name    string
		counter model.Counter
		prefix  string
	}{
		{"plain", model.Counter{Value: 3, Variant: model.Plain{}}, "3"},
		{"currency", model.Counter{Value: 12.5, Variant: model.Currency{}}, "12.50"},
		{"countdown", model.Counter{Variant: model.Countdown{TargetDate: "2025-10-20"}}, "in 2 days"},
		{"countdown bad date", model.Counter{Variant: model.Countdown{TargetDate: "soon"}}, "invalid date"},
		{"hub", model.Counter{Variant: model.BudgetHub{
			Salaries: map[string]float64{"2025-10": 3000},
			Savings:  map[string]float64{"2025-10": 500},
		}}, "2,500.00"},
		{"hub without salary", model.Counter{Variant: model.BudgetHub{}}, "no salary for 2025-10"},
		{"health", model.Counter{Value: 4, Variant: model.Health{Metric: "cigarettes"}}, "4 cigarettes"},
	}
	for _, tt := range tests {
		if got := counterValue(tt.counter, today); !strings.HasPrefix(got, tt.prefix) {
			t.Errorf("%s: counterValue = %q, want prefix %q", tt.name, got, tt.prefix)
		}
	}
}

func TestVariantFor(t *testing.T) {
	for _, k := range model.Kinds {
		if got := variantFor(k, "x").Kind(); got != k {
			t.Errorf("variantFor(%s).Kind() = %s", k, got)
		}
	}
}

// ============================================================
// Finances
// ============================================================

func TestFinancesSaveMonth(t *testing.T) {
	_, hub := newTestApp(t)
	loadHub(t, hub)
	m := newFinancesModel(context.Background(), hub)

	*m.formSalaryDay = "25"
	*m.formSalary = "4,200.50"
	*m.formSavings = ""
	m.formType = "month"
	if err := m.save(); err != nil {
		t.Fatal(err)
	}

	if day, ok := hub.Finance.SalaryDay(); !ok || day != 25 {
		t.Fatalf("salary day = %d, %v", day, ok)
	}
	month := hub.Finance.CurrentMonth()
	if !month.HasSalary || month.Salary != 4200.5 {
		t.Fatalf("month = %+v", month)
	}
	if month.HasSavings {
		t.Fatal("empty savings field should leave savings unset")
	}

	*m.formSalaryDay = ""
	*m.formSalary = ""
	if err := m.save(); err != nil {
		t.Fatal(err)
	}
	if _, ok := hub.Finance.SalaryDay(); ok {
		t.Fatal("empty salary day should clear it")
	}
}

func TestFinancesSaveSentAndGoal(t *testing.T) {
	_, hub := newTestApp(t)
	loadHub(t, hub)
	m := newFinancesModel(context.Background(), hub)

	*m.formSalary = "150"
	m.formType = "sent"
	if err := m.save(); err != nil {
		t.Fatal(err)
	}
	if err := m.save(); err != nil {
		t.Fatal(err)
	}
	if got := hub.Finance.TotalSent(); got != 300 {
		t.Fatalf("total sent = %v, want 300", got)
	}

	*m.formTitle = "Laptop"
	*m.formSalary = "2000"
	*m.formSavings = "500"
	m.formType = "goal"
	if err := m.save(); err != nil {
		t.Fatal(err)
	}
	if g := hub.Goal.Get(); g.Title != "Laptop" || g.Saved() != 1500 {
		t.Fatalf("goal = %+v", g)
	}
}

func TestFinancesView(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)
	ctx := context.Background()

	hub.Finance.SetSalary(ctx, "2025-09", 3000)
	hub.Finance.SetSavings(ctx, "2025-09", 750)

	app.activeView = viewFinances
	out := app.View()
	for _, want := range []string{"not set", "2025-09", "3,000.00", "2,250.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("finances view missing %q:\n%s", want, out)
		}
	}
}

// ============================================================
// Events
// ============================================================

func TestEventsListAndDelete(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)

	next := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	if _, err := hub.Events.Add(context.Background(), "Dentist", next, "09:30", false); err != nil {
		t.Fatal(err)
	}

	app.activeView = viewEvents
	out := app.View()
	if !strings.Contains(out, "Dentist") || !strings.Contains(out, "in 3 days") {
		t.Fatalf("events view:\n%s", out)
	}

	app, _ = press(t, app, runeKey("d"))
	if len(hub.Events.List()) != 0 {
		t.Fatal("event should be deleted")
	}
}

func TestValidateClock(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"", true},
		{"09:30", true},
		{"23:59", true},
		{"9:30", false},
		{"24:00", false},
		{"12:60", false},
		{"ab:cd", false},
	}
	for _, tt := range tests {
		if err := validateClock(tt.in); (err == nil) != tt.ok {
			t.Errorf("validateClock(%q) = %v, want ok=%v", tt.in, err, tt.ok)
		}
	}
}

// ============================================================
// Settings: theme, export, import
// ============================================================

func TestSettingsExportJSONAndCSV(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)
	if err := hub.Habit.Increment(context.Background()); err != nil {
		t.Fatal(err)
	}

	app.activeView = viewSettings
	app, _ = press(t, app, runeKey("j"))
	app, cmd := press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter on export should return a command")
	}
	done, ok := cmd().(exportDoneMsg)
	if !ok {
		t.Fatal("export did not finish")
	}
	data, err := os.ReadFile(done.path)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := backup.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if doc.DailyCounts == nil || len(*doc.DailyCounts) != 1 {
		t.Fatalf("daily counts = %v", doc.DailyCounts)
	}

	app, _ = press(t, app, runeKey("j"))
	_, cmd = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	done, ok = cmd().(exportDoneMsg)
	if !ok || filepath.Ext(done.path) != ".csv" {
		t.Fatalf("csv export = %#v", done)
	}
}

func TestSettingsImportReloads(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)

	path := filepath.Join(t.TempDir(), "backup.json")
	data := `{"version": 1, "salary_day": 12, "theme_preference": "DARK"}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	msg, ok := app.settings.importFrom(path)().(importDoneMsg)
	if !ok || msg.err != nil {
		t.Fatalf("import = %#v", msg)
	}
	if day, ok := hub.Finance.SalaryDay(); !ok || day != 12 {
		t.Fatalf("salary day = %d, %v", day, ok)
	}
	if hub.Settings.Theme() != model.ThemeDark {
		t.Fatalf("theme = %s", hub.Settings.Theme())
	}
}

func TestSettingsImportBadFile(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)

	path := filepath.Join(t.TempDir(), "backup.json")
	os.WriteFile(path, []byte(`{"salary_day": "soon"}`), 0o644)

	msg, ok := app.settings.importFrom(path)().(importDoneMsg)
	if !ok || !errors.Is(msg.err, backup.ErrMalformed) {
		t.Fatalf("import of a bad file = %#v", msg)
	}
	if _, set := hub.Finance.SalaryDay(); set {
		t.Fatal("a failed import must not change anything")
	}

	app.settings.importing = true
	app, _ = press(t, app, msg)
	if app.settings.importing || !app.statusErr {
		t.Fatalf("failed import should end with an error status, got %q", app.status)
	}
}

func TestSettingsImportBlocksInput(t *testing.T) {
	app, hub := newTestApp(t)
	loadHub(t, hub)

	app.settings.importing = true
	app, _ = press(t, app, runeKey("+"))
	app, _ = press(t, app, runeKey("2"))
	if hub.Habit.Today() != 0 {
		t.Fatal("keys must not reach the views while importing")
	}
	if app.activeView != viewDashboard {
		t.Fatal("tabs must not switch while importing")
	}
	if _, cmd := press(t, app, runeKey("q")); cmd == nil {
		t.Fatal("quit should still work while importing")
	}

	app.activeView = viewSettings
	if out := app.View(); !strings.Contains(out, "Importing") {
		t.Fatalf("settings should show the import in progress:\n%s", out)
	}

	app, _ = press(t, app, importDoneMsg{path: "backup.json"})
	if app.settings.importing || app.status != "Imported backup.json" {
		t.Fatalf("import done: importing=%v status=%q", app.settings.importing, app.status)
	}
	app.activeView = viewDashboard
	press(t, app, runeKey("+"))
	if hub.Habit.Today() != 1 {
		t.Fatal("input should be accepted again after the import")
	}
}

func TestApplyTheme(t *testing.T) {
	defer applyTheme(model.ThemeSystem)

	applyTheme(model.ThemeLight)
	if lipgloss.HasDarkBackground() {
		t.Fatal("light theme should render light colors")
	}
	applyTheme(model.ThemeDark)
	if !lipgloss.HasDarkBackground() {
		t.Fatal("dark theme should render dark colors")
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{12.5, "12.50"},
		{999.999, "1,000.00"},
		{1234.5, "1,234.50"},
		{1234567.891, "1,234,567.89"},
		{-50, "-50.00"},
		{-4500, "-4,500.00"},
	}
	for _, tt := range tests {
		if got := formatMoney(tt.in); got != tt.want {
			t.Errorf("formatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.50", 12.5, true},
		{" 1,000 ", 1000, true},
		{"0", 0, true},
		{"3.456", 3.46, true},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("parseAmount(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("parseAmount(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateSalaryDay(t *testing.T) {
	for in, ok := range map[string]bool{"": true, "1": true, "31": true, "0": false, "32": false, "x": false} {
		if err := validateSalaryDay(in); (err == nil) != ok {
			t.Errorf("validateSalaryDay(%q) = %v, want ok=%v", in, err, ok)
		}
	}
}

func TestRelativeDays(t *testing.T) {
	tests := map[int]string{
		0:  "today",
		1:  "tomorrow",
		-1: "yesterday",
		5:  "in 5 days",
		-3: "3 days ago",
	}
	for in, want := range tests {
		if got := relativeDays(in); got != want {
			t.Errorf("relativeDays(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	bar := progressBar(0.5, 10)
	if strings.Count(bar, "█") != 5 || strings.Count(bar, "░") != 5 {
		t.Fatalf("progressBar(0.5, 10) = %q", bar)
	}
	if bar := progressBar(2, 4); strings.Count(bar, "█") != 4 {
		t.Fatalf("ratio above 1 should fill the bar: %q", bar)
	}
	if progressBar(0.5, 0) != "" {
		t.Fatal("zero width should render nothing")
	}
}

func TestDescribe(t *testing.T) {
	if got := describe(state.ErrNotLoaded); got != "still loading" {
		t.Fatalf("describe(ErrNotLoaded) = %q", got)
	}
	if got := describe(errors.New("boom")); got != "boom" {
		t.Fatalf("describe(boom) = %q", got)
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	bindings := keys.ShortHelp()
	if len(bindings) == 0 {
		t.Fatal("short help should have bindings")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles (smoke test — just verify they don't panic)
// ============================================================

func TestStylesRender(t *testing.T) {
	styles := []struct {
		name string
		fn   func() string
	}{
		{"activeTab", func() string { return activeTabStyle.Render("test") }},
		{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
		{"panel", func() string { return panelStyle.Render("test") }},
		{"activePanel", func() string { return activePanelStyle.Render("test") }},
		{"bigNumber", func() string { return bigNumberStyle.Render("test") }},
		{"title", func() string { return titleStyle.Render("test") }},
		{"accent", func() string { return accentStyle.Render("test") }},
		{"success", func() string { return successStyle.Render("test") }},
		{"warning", func() string { return warningStyle.Render("test") }},
		{"error", func() string { return errorStyle.Render("test") }},
		{"muted", func() string { return mutedStyle.Render("test") }},
		{"highlight", func() string { return highlightStyle.Render("test") }},
		{"header", func() string { return headerStyle.Render("test") }},
		{"footer", func() string { return footerStyle.Render("test") }},
		{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
		{"normalItem", func() string { return normalItemStyle.Render("test") }},
	}

	for _, s := range styles {
		result := s.fn()
		if result == "" {
			t.Fatalf("style %q rendered empty", s.name)
		}
	}
}
