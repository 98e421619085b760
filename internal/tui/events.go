package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tally/internal/state"
)

type eventsModel struct {
	ctx    context.Context
	hub    *state.Hub
	width  int
	height int

	cursor int

	formActive bool
	form       *huh.Form

	// Form field pointers (survive value copies)
	formTitle     *string
	formDate      *string
	formTime      *string
	formRecurring *bool
}

func newEventsModel(ctx context.Context, h *state.Hub) eventsModel {
	title, date, clock, recurring := "", "", "", false
	return eventsModel{
		ctx:           ctx,
		hub:           h,
		formTitle:     &title,
		formDate:      &date,
		formTime:      &clock,
		formRecurring: &recurring,
	}
}

func (e *eventsModel) setSize(w, h int) {
	e.width = w
	e.height = h
}

func (e eventsModel) update(msg tea.Msg) (eventsModel, tea.Cmd) {
	if e.formActive && e.form != nil {
		return e.updateForm(msg)
	}

	if _, ok := msg.(changedMsg); ok {
		e.clampCursor()
		return e, nil
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok || loading(e.hub.Events.Status()) {
		return e, nil
	}

	upcoming := e.hub.Events.Upcoming()
	switch {
	case key.Matches(km, keys.Up):
		if e.cursor > 0 {
			e.cursor--
		}
	case key.Matches(km, keys.Down):
		if e.cursor < len(upcoming)-1 {
			e.cursor++
		}
	case key.Matches(km, keys.New):
		return e.showNewForm()
	case key.Matches(km, keys.Delete):
		if e.cursor < len(upcoming) {
			ev := upcoming[e.cursor]
			err := e.hub.Events.Delete(e.ctx, ev.ID)
			e.clampCursor()
			if err != nil {
				return e, errorStatus(err)
			}
			return e, infoStatus("Deleted " + ev.Title)
		}
	}
	return e, nil
}

func (e *eventsModel) clampCursor() {
	n := len(e.hub.Events.Upcoming())
	if e.cursor >= n {
		e.cursor = max(0, n-1)
	}
}

func (e eventsModel) showNewForm() (eventsModel, tea.Cmd) {
	*e.formTitle = ""
	*e.formDate = ""
	*e.formTime = ""
	*e.formRecurring = false

	e.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(e.formTitle).Validate(requireText),
			huh.NewInput().Title("Date (YYYY-MM-DD)").Value(e.formDate).Validate(validateDate),
			huh.NewInput().Title("Time (HH:MM, optional)").Value(e.formTime).Validate(validateClock),
			huh.NewConfirm().Title("Repeats every year?").Value(e.formRecurring),
		),
	).WithShowHelp(true).WithShowErrors(true)

	e.formActive = true
	return e, e.form.Init()
}

func (e eventsModel) updateForm(msg tea.Msg) (eventsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			e.formActive = false
			e.form = nil
			return e, nil
		}
	}

	form, cmd := e.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		e.form = f
	}

	if e.form.State == huh.StateCompleted {
		e.formActive = false
		e.form = nil
		_, err := e.hub.Events.Add(e.ctx,
			strings.TrimSpace(*e.formTitle),
			strings.TrimSpace(*e.formDate),
			strings.TrimSpace(*e.formTime),
			*e.formRecurring,
		)
		return e, errorStatus(err)
	}

	return e, cmd
}

func validateClock(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var h, m int
	if n, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil || n != 2 || len(s) != 5 || h > 23 || m > 59 {
		return fmt.Errorf("use HH:MM")
	}
	return nil
}

func (e eventsModel) view() string {
	w := e.width - 4
	title := titleStyle.Render("Events")

	if e.formActive && e.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", e.form.View()),
		)
	}
	if loading(e.hub.Events.Status()) {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", mutedStyle.Render(loadingText)))
	}

	upcoming := e.hub.Events.Upcoming()
	if len(upcoming) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No events yet. Press n to add one."),
		))
	}

	var rows []string
	rows = append(rows, title, "")
	for i, u := range upcoming {
		cursor := "  "
		style := normalItemStyle
		if i == e.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		when := u.Next.Format("Mon 02 Jan 2006")
		if u.Time != "" {
			when += " " + u.Time
		}
		marker := " "
		if u.Recurring {
			marker = "↻"
		}
		rel := highlightStyle.Render(relativeDays(u.Days))
		if u.Overdue() {
			rel = warningStyle.Render(relativeDays(u.Days))
		}
		rows = append(rows, fmt.Sprintf("%s %s %s  %s",
			style.Render(fmt.Sprintf("%s%-24s", cursor, u.Title)),
			mutedStyle.Render(marker),
			mutedStyle.Render(fmt.Sprintf("%-22s", when)),
			rel,
		))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  d: delete  ↻ repeats yearly"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
