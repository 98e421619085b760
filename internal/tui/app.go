package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/state"
	"github.com/sadopc/tally/internal/store"
)

// Options wires the UI to the application state.
type Options struct {
	Context context.Context
	Hub     *state.Hub
	KV      store.KV
	Writer  *state.Writer
	// ExportDir receives exported backups.
	ExportDir string
}

// App is the root Bubble Tea model.
type App struct {
	ctx    context.Context
	hub    *state.Hub
	writer *state.Writer
	width  int
	height int

	activeView viewState
	showHelp   bool

	dashboard dashboardModel
	counters  countersModel
	finances  financesModel
	events    eventsModel
	settings  settingsModel

	// changes is signalled by synchronizer subscriptions. Subscribers run
	// under the synchronizer's lock, so they only do a non-blocking send.
	changes chan struct{}

	help      help.Model
	status    string
	statusErr bool
}

func NewApp(opts Options) App {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	h := help.New()
	h.ShowAll = false

	a := App{
		ctx:        ctx,
		hub:        opts.Hub,
		writer:     opts.Writer,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(ctx, opts.Hub),
		counters:   newCountersModel(ctx, opts.Hub),
		finances:   newFinancesModel(ctx, opts.Hub),
		events:     newEventsModel(ctx, opts.Hub),
		settings:   newSettingsModel(ctx, opts.Hub, opts.KV, opts.Writer, opts.ExportDir),
		changes:    make(chan struct{}, 1),
		help:       h,
	}
	a.subscribe()
	return a
}

// Run starts the UI and blocks until the user quits.
func Run(opts Options) error {
	detectSystemTheme()
	p := tea.NewProgram(NewApp(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func notifier[T any](ch chan<- struct{}) func(T) {
	return func(T) { signal(ch) }
}

func signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (a App) subscribe() {
	h, ch := a.hub, a.changes
	status := notifier[state.Status](ch)

	h.Habit.OnStatus(status)
	h.Habit.Subscribe(notifier[store.Series](ch))
	h.Finance.OnStatus(status)
	h.Finance.OnChange(func() { signal(ch) })
	h.Goal.OnStatus(status)
	h.Goal.Subscribe(notifier[state.GoalSnapshot](ch))
	h.Counters.OnStatus(status)
	h.Counters.Subscribe(notifier[[]model.Counter](ch))
	h.Events.OnStatus(status)
	h.Events.Subscribe(notifier[[]model.Event](ch))
	h.Study.OnStatus(status)
	h.Study.Subscribe(notifier[store.Series](ch))
	h.Settings.OnStatus(status)
	h.Settings.Subscribe(notifier[model.Theme](ch))
}

func (a App) Init() tea.Cmd {
	hub, ctx := a.hub, a.ctx
	return tea.Batch(
		func() tea.Msg { return loadedMsg{err: hub.Load(ctx)} },
		waitForChange(a.changes),
		waitForWriteError(a.writer.Errors()),
	)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.counters.setSize(a.width, contentHeight)
		a.finances.setSize(a.width, contentHeight)
		a.events.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// Nothing may queue a write while an import is being applied.
		if a.settings.importing {
			if key.Matches(msg, keys.Quit) {
				return a, tea.Quit
			}
			return a, nil
		}
		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewDashboard
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewCounters
			return a, nil
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewFinances
			return a, nil
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewEvents
			return a, nil
		case key.Matches(msg, keys.Tab5):
			a.activeView = viewSettings
			return a, nil
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, nil
		}

	case loadedMsg:
		if msg.err != nil {
			a.status = "Some data could not be loaded: " + msg.err.Error()
			a.statusErr = true
		}
		return a, nil

	case changedMsg:
		if !loading(a.hub.Settings.Status()) {
			applyTheme(a.hub.Settings.Theme())
		}
		a.counters, _ = a.counters.update(msg)
		a.events, _ = a.events.update(msg)
		return a, waitForChange(a.changes)

	case writeErrorMsg:
		a.status = fmt.Sprintf("Could not save %s: %v", msg.err.Key, msg.err.Err)
		a.statusErr = true
		return a, waitForWriteError(a.writer.Errors())

	case statusMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusErr = false
		return a, nil

	case importDoneMsg:
		a.settings.importing = false
		if msg.err != nil {
			a.status = "Error: " + msg.err.Error()
			a.statusErr = true
			return a, nil
		}
		a.status = "Imported " + msg.path
		a.statusErr = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewCounters:
		a.counters, cmd = a.counters.update(msg)
	case viewFinances:
		a.finances, cmd = a.finances.update(msg)
	case viewEvents:
		a.events, cmd = a.events.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.formActive
	case viewCounters:
		return a.counters.formActive
	case viewFinances:
		return a.finances.formActive
	case viewEvents:
		return a.events.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return loadingText
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewCounters:
		content = a.counters.view()
	case viewFinances:
		content = a.finances.view()
	case viewEvents:
		content = a.events.view()
	case viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(a.height-headerHeight-footerHeight, 1)

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("tally")
	gap := max(a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.statusErr {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	left := footerStyle.Render(helpView)
	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(status)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, status)
}
