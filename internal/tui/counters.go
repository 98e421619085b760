package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tally/internal/calendar"
	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/state"
)

var kindLabels = map[model.Kind]string{
	model.KindPlain:      "Count",
	model.KindCurrency:   "Money",
	model.KindCountdown:  "Countdown",
	model.KindBudgetHub:  "Budget hub",
	model.KindCumulative: "Running total",
	model.KindHealth:     "Health",
}

type countersModel struct {
	ctx    context.Context
	hub    *state.Hub
	width  int
	height int

	cursor int

	formActive bool
	form       *huh.Form
	formType   string // "new", "amount", "value", "hub"
	editingID  string

	// Form field pointers (survive value copies)
	formTitle   *string
	formKind    *string
	formDetail  *string
	formAmount  *string
	formAmount2 *string
}

func newCountersModel(ctx context.Context, h *state.Hub) countersModel {
	title, kind, detail, amount, amount2 := "", string(model.KindPlain), "", "", ""
	return countersModel{
		ctx:         ctx,
		hub:         h,
		formTitle:   &title,
		formKind:    &kind,
		formDetail:  &detail,
		formAmount:  &amount,
		formAmount2: &amount2,
	}
}

func (c *countersModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

func (c countersModel) selected() (model.Counter, bool) {
	list := c.hub.Counters.List()
	if c.cursor < 0 || c.cursor >= len(list) {
		return model.Counter{}, false
	}
	return list[c.cursor], true
}

func (c countersModel) update(msg tea.Msg) (countersModel, tea.Cmd) {
	if c.formActive && c.form != nil {
		return c.updateForm(msg)
	}

	if _, ok := msg.(changedMsg); ok {
		c.clampCursor()
		return c, nil
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}
	if loading(c.hub.Counters.Status()) {
		return c, nil
	}

	switch {
	case key.Matches(km, keys.Up):
		if c.cursor > 0 {
			c.cursor--
		}
	case key.Matches(km, keys.Down):
		if c.cursor < len(c.hub.Counters.List())-1 {
			c.cursor++
		}
	case key.Matches(km, keys.New):
		return c.showNewForm()
	case key.Matches(km, keys.Increment):
		if ct, ok := c.selected(); ok && steppable(ct.Kind()) {
			return c, errorStatus(c.hub.Counters.Increment(c.ctx, ct.ID))
		}
	case key.Matches(km, keys.Decrement):
		if ct, ok := c.selected(); ok && steppable(ct.Kind()) && ct.Kind() != model.KindCumulative {
			return c, errorStatus(c.hub.Counters.Decrement(c.ctx, ct.ID))
		}
	case key.Matches(km, keys.Amount):
		if ct, ok := c.selected(); ok && steppable(ct.Kind()) {
			return c.showAmountForm(ct)
		}
	case key.Matches(km, keys.Edit):
		if ct, ok := c.selected(); ok {
			if ct.Kind() == model.KindBudgetHub {
				return c.showHubForm(ct)
			}
			if ct.Kind() != model.KindCountdown {
				return c.showValueForm(ct)
			}
		}
	case key.Matches(km, keys.Delete):
		if ct, ok := c.selected(); ok {
			err := c.hub.Counters.Delete(c.ctx, ct.ID)
			c.clampCursor()
			if err != nil {
				return c, errorStatus(err)
			}
			return c, infoStatus("Deleted " + ct.Title)
		}
	}
	return c, nil
}

func (c *countersModel) clampCursor() {
	n := len(c.hub.Counters.List())
	if c.cursor >= n {
		c.cursor = max(0, n-1)
	}
}

// steppable kinds take +/- and added amounts.
func steppable(k model.Kind) bool {
	switch k {
	case model.KindPlain, model.KindCurrency, model.KindCumulative, model.KindHealth:
		return true
	}
	return false
}

func (c countersModel) showNewForm() (countersModel, tea.Cmd) {
	*c.formTitle = ""
	*c.formKind = string(model.KindPlain)
	*c.formDetail = ""
	c.formType = "new"

	kindOptions := make([]huh.Option[string], 0, len(model.Kinds))
	for _, k := range model.Kinds {
		kindOptions = append(kindOptions, huh.NewOption(kindLabels[k], string(k)))
	}

	kind := c.formKind
	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(c.formTitle).Validate(requireText),
			huh.NewSelect[string]().Title("Kind").Options(kindOptions...).Value(c.formKind),
		),
		huh.NewGroup(
			huh.NewInput().Title("Target date (YYYY-MM-DD)").Value(c.formDetail).Validate(validateDate),
		).WithHideFunc(func() bool { return *kind != string(model.KindCountdown) }),
		huh.NewGroup(
			huh.NewInput().Title("Metric (e.g. cigarettes)").Value(c.formDetail).Validate(requireText),
		).WithHideFunc(func() bool { return *kind != string(model.KindHealth) }),
	).WithShowHelp(true).WithShowErrors(true)

	c.formActive = true
	return c, c.form.Init()
}

func (c countersModel) showAmountForm(ct model.Counter) (countersModel, tea.Cmd) {
	*c.formAmount = ""
	c.formType = "amount"
	c.editingID = ct.ID

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Add to "+ct.Title).Value(c.formAmount).Validate(validateAmount),
		),
	).WithShowHelp(true).WithShowErrors(true)

	c.formActive = true
	return c, c.form.Init()
}

func (c countersModel) showValueForm(ct model.Counter) (countersModel, tea.Cmd) {
	*c.formAmount = formatCount(ct.Value)
	c.formType = "value"
	c.editingID = ct.ID

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Set "+ct.Title).Value(c.formAmount).Validate(validateAmount),
		),
	).WithShowHelp(true).WithShowErrors(true)

	c.formActive = true
	return c, c.form.Init()
}

func (c countersModel) showHubForm(ct model.Counter) (countersModel, tea.Cmd) {
	month := calendar.MonthKey(time.Now())
	hub, _ := ct.Variant.(model.BudgetHub)
	*c.formAmount = formatCount(hub.Salaries[month])
	*c.formAmount2 = formatCount(hub.Savings[month])
	c.formType = "hub"
	c.editingID = ct.ID

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Salary for "+month).Value(c.formAmount).Validate(validateAmount),
			huh.NewInput().Title("Savings for "+month).Value(c.formAmount2).Validate(validateAmount),
		).Title(ct.Title),
	).WithShowHelp(true).WithShowErrors(true)

	c.formActive = true
	return c, c.form.Init()
}

func (c countersModel) updateForm(msg tea.Msg) (countersModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			c.formActive = false
			c.form = nil
			return c, nil
		}
	}

	form, cmd := c.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.form = f
	}

	if c.form.State == huh.StateCompleted {
		c.formActive = false
		c.form = nil
		return c, errorStatus(c.save())
	}

	return c, cmd
}

func (c *countersModel) save() error {
	switch c.formType {
	case "new":
		_, err := c.hub.Counters.Add(c.ctx, strings.TrimSpace(*c.formTitle), variantFor(model.Kind(*c.formKind), strings.TrimSpace(*c.formDetail)))
		if err == nil {
			c.cursor = len(c.hub.Counters.List()) - 1
		}
		return err
	case "amount":
		v, err := parseAmount(*c.formAmount)
		if err != nil {
			return err
		}
		return c.hub.Counters.AddAmount(c.ctx, c.editingID, v)
	case "value":
		v, err := parseAmount(*c.formAmount)
		if err != nil {
			return err
		}
		return c.hub.Counters.SetValue(c.ctx, c.editingID, v)
	case "hub":
		salary, err := parseAmount(*c.formAmount)
		if err != nil {
			return err
		}
		savings, err := parseAmount(*c.formAmount2)
		if err != nil {
			return err
		}
		return c.hub.Counters.SetHubMonth(c.ctx, c.editingID, calendar.MonthKey(time.Now()), salary, savings)
	}
	return nil
}

func variantFor(k model.Kind, detail string) model.Variant {
	switch k {
	case model.KindCurrency:
		return model.Currency{}
	case model.KindCountdown:
		return model.Countdown{TargetDate: detail}
	case model.KindBudgetHub:
		return model.BudgetHub{}
	case model.KindCumulative:
		return model.Cumulative{}
	case model.KindHealth:
		return model.Health{Metric: detail}
	}
	return model.Plain{}
}

func requireText(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

func validateDate(s string) error {
	if _, err := calendar.ParseDateKey(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("use YYYY-MM-DD")
	}
	return nil
}

func (c countersModel) view() string {
	w := c.width - 4
	title := titleStyle.Render("Counters")

	if c.formActive && c.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", c.form.View()),
		)
	}
	if loading(c.hub.Counters.Status()) {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", mutedStyle.Render(loadingText)))
	}

	list := c.hub.Counters.List()
	if len(list) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No counters yet. Press n to create one."),
		))
	}

	today := calendar.Day(time.Now())
	var rows []string
	rows = append(rows, title, "")
	for i, ct := range list {
		cursor := "  "
		style := normalItemStyle
		if i == c.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		kind := mutedStyle.Render(fmt.Sprintf("%-13s", kindLabels[ct.Kind()]))
		rows = append(rows, fmt.Sprintf("%s %s %s",
			style.Render(fmt.Sprintf("%s%-24s", cursor, ct.Title)),
			kind,
			highlightStyle.Render(counterValue(ct, today)),
		))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  +/-: step  a: add amount  e: edit  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// counterValue renders a counter's value the way its kind reads best.
func counterValue(ct model.Counter, today time.Time) string {
	switch v := ct.Variant.(type) {
	case model.Currency:
		return formatMoney(ct.Value)
	case model.Countdown:
		days, ok := ct.DaysLeft(today)
		if !ok {
			return "invalid date"
		}
		return relativeDays(days) + mutedStyle.Render(" ("+v.TargetDate+")")
	case model.BudgetHub:
		month := calendar.MonthKey(today)
		salary, ok := v.Salaries[month]
		if !ok {
			return mutedStyle.Render("no salary for " + month)
		}
		return formatMoney(salary-v.Savings[month]) + mutedStyle.Render(" left of "+formatMoney(salary))
	case model.Health:
		return formatCount(ct.Value) + " " + mutedStyle.Render(v.Metric)
	}
	return formatCount(ct.Value)
}
