package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tally/internal/calendar"
	"github.com/sadopc/tally/internal/state"
)

type dashboardModel struct {
	ctx    context.Context
	hub    *state.Hub
	width  int
	height int

	formActive bool
	form       *huh.Form

	// Study review form
	formCard  *string
	formKnown *bool
}

func newDashboardModel(ctx context.Context, h *state.Hub) dashboardModel {
	card, known := "", true
	return dashboardModel{ctx: ctx, hub: h, formCard: &card, formKnown: &known}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if d.formActive && d.form != nil {
		return d.updateForm(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return d, nil
	}
	switch {
	case key.Matches(km, keys.Increment):
		return d, errorStatus(d.hub.Habit.Increment(d.ctx))
	case key.Matches(km, keys.Decrement):
		return d, errorStatus(d.hub.Habit.Decrement(d.ctx))
	case key.Matches(km, keys.Reset):
		if err := d.hub.Habit.Reset(d.ctx); err != nil {
			return d, errorStatus(err)
		}
		return d, infoStatus("Today's count reset")
	case key.Matches(km, keys.Review):
		if loading(d.hub.Study.Status()) {
			return d, nil
		}
		return d.showReviewForm()
	}
	return d, nil
}

func (d dashboardModel) showReviewForm() (dashboardModel, tea.Cmd) {
	*d.formCard = ""
	*d.formKnown = true

	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Card").Value(d.formCard).Validate(requireText),
			huh.NewConfirm().Title("Knew it?").Affirmative("Yes").Negative("No").Value(d.formKnown),
		).Title("Study review"),
	).WithShowHelp(true).WithShowErrors(true)

	d.formActive = true
	return d, d.form.Init()
}

func (d dashboardModel) updateForm(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			d.formActive = false
			d.form = nil
			return d, nil
		}
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}

	if d.form.State == huh.StateCompleted {
		d.formActive = false
		d.form = nil
		return d, d.review()
	}
	return d, cmd
}

// review records the answer held in the form fields.
func (d dashboardModel) review() tea.Cmd {
	card := strings.TrimSpace(*d.formCard)
	lvl, err := d.hub.Study.Review(d.ctx, card, *d.formKnown)
	if err != nil {
		return errorStatus(err)
	}
	return infoStatus(fmt.Sprintf("%s is at level %d/%d", card, lvl, state.MaxLevel))
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	if d.formActive && d.form != nil {
		return activePanelStyle.Width(d.width - 4).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Study"), "", d.form.View()),
		)
	}

	w := d.width - 4
	half := w/2 - 1

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		d.renderHabitPanel(half),
		d.renderChartPanel(w-half),
	)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		d.renderPaydayPanel(half),
		d.renderGoalPanel(w-half),
	)
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom, d.renderStudyPanel(w))
}

func (d dashboardModel) renderHabitPanel(w int) string {
	title := titleStyle.Render("Today")
	if loading(d.hub.Habit.Status()) {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, mutedStyle.Render(loadingText)))
	}

	today := bigNumberStyle.Render(fmt.Sprintf("%d", d.hub.Habit.Today()))
	week := highlightStyle.Render(fmt.Sprintf("%d", d.hub.Habit.WeekTotal()))
	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		today,
		"",
		fmt.Sprintf("This week  %s", week),
		mutedStyle.Render("+/-: adjust today  r: reset"),
	)
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderChartPanel(w int) string {
	title := titleStyle.Render("Last 7 days")
	if loading(d.hub.Habit.Status()) {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, mutedStyle.Render(loadingText)))
	}

	chartWidth := max(w-6, 14)
	chart := barchart.New(chartWidth, 8)
	var bars []barchart.BarData
	for _, day := range d.hub.Habit.Last(7) {
		bars = append(bars, barchart.BarData{
			Label: day.Date.Format("Mon"),
			Values: []barchart.BarValue{{
				Name:  calendar.DateKey(day.Date),
				Value: float64(day.Count),
				Style: barFillStyle,
			}},
		})
	}
	chart.PushAll(bars)
	chart.Draw()

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, chart.View()))
}

func (d dashboardModel) renderPaydayPanel(w int) string {
	title := titleStyle.Render("Payday")
	if loading(d.hub.Finance.Status()) {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, mutedStyle.Render(loadingText)))
	}

	date, days, ok := d.hub.Finance.NextPayday()
	if !ok {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No salary day set. Press 3 for Finances."),
		))
	}

	countdown := bigNumberStyle.Render(fmt.Sprintf("%d", days))
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	month := d.hub.Finance.CurrentMonth()
	rows := []string{
		title,
		"",
		countdown + " " + unit,
		mutedStyle.Render(date.Format("Mon, 02 Jan 2006")),
	}
	if month.HasSalary {
		rows = append(rows, "", fmt.Sprintf("Left this month  %s", highlightStyle.Render(formatMoney(month.Remaining()))))
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (d dashboardModel) renderGoalPanel(w int) string {
	title := titleStyle.Render("Goal")
	if loading(d.hub.Goal.Status()) {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, mutedStyle.Render(loadingText)))
	}

	g := d.hub.Goal.Get()
	if g.Title == "" && g.Price == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No goal yet. Press g in Finances to set one."),
		))
	}

	pct := g.Progress() * 100
	bar := progressBar(g.Progress(), max(w-8, 10))
	content := lipgloss.JoinVertical(lipgloss.Left,
		title+"  "+highlightStyle.Render(g.Title),
		"",
		bar,
		fmt.Sprintf("%s of %s  %s",
			successStyle.Render(formatMoney(g.Saved())),
			formatMoney(g.Price),
			mutedStyle.Render(fmt.Sprintf("(%.0f%%)", pct)),
		),
		mutedStyle.Render("Still needed: "+formatMoney(g.Needed)),
	)
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderStudyPanel(w int) string {
	title := titleStyle.Render("Study")
	if loading(d.hub.Study.Status()) {
		return panelStyle.Width(w).Render(title + "  " + mutedStyle.Render(loadingText))
	}

	parts := []string{
		fmt.Sprintf("Known %s", highlightStyle.Render(fmt.Sprintf("%d", d.hub.Study.KnownCount()))),
		fmt.Sprintf("Mastered %s", successStyle.Render(fmt.Sprintf("%d", d.hub.Study.MasteredCount()))),
		fmt.Sprintf("Seen %s", mutedStyle.Render(fmt.Sprintf("%d", d.hub.Study.Seen()))),
		mutedStyle.Render("v: review"),
	}
	return panelStyle.Width(w).Render(title + "  " + strings.Join(parts, "   "))
}
