package tui

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tally/internal/calendar"
	"github.com/sadopc/tally/internal/state"
)

// monthsShown is how many recent months the history table lists.
const monthsShown = 6

type financesModel struct {
	ctx    context.Context
	hub    *state.Hub
	width  int
	height int

	formActive bool
	form       *huh.Form
	formType   string // "month", "sent", "goal"

	// Form field pointers (survive value copies)
	formSalaryDay *string
	formSalary    *string
	formSavings   *string
	formTitle     *string
}

func newFinancesModel(ctx context.Context, h *state.Hub) financesModel {
	day, salary, savings, title := "", "", "", ""
	return financesModel{
		ctx:           ctx,
		hub:           h,
		formSalaryDay: &day,
		formSalary:    &salary,
		formSavings:   &savings,
		formTitle:     &title,
	}
}

func (f *financesModel) setSize(w, h int) {
	f.width = w
	f.height = h
}

func (f financesModel) update(msg tea.Msg) (financesModel, tea.Cmd) {
	if f.formActive && f.form != nil {
		return f.updateForm(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, nil
	}
	switch {
	case key.Matches(km, keys.Edit):
		if !loading(f.hub.Finance.Status()) {
			return f.showMonthForm()
		}
	case key.Matches(km, keys.Sent):
		if !loading(f.hub.Finance.Status()) {
			return f.showSentForm()
		}
	case key.Matches(km, keys.Goal):
		if !loading(f.hub.Goal.Status()) {
			return f.showGoalForm()
		}
	}
	return f, nil
}

func (f financesModel) showMonthForm() (financesModel, tea.Cmd) {
	*f.formSalaryDay = ""
	if day, ok := f.hub.Finance.SalaryDay(); ok {
		*f.formSalaryDay = strconv.Itoa(day)
	}
	month := f.hub.Finance.CurrentMonth()
	*f.formSalary = ""
	*f.formSavings = ""
	if month.HasSalary {
		*f.formSalary = formatCount(month.Salary)
	}
	if month.HasSavings {
		*f.formSavings = formatCount(month.Savings)
	}
	f.formType = "month"

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Salary day (1-31, empty to clear)").Value(f.formSalaryDay).Validate(validateSalaryDay),
			huh.NewInput().Title("Salary for "+month.Month).Value(f.formSalary).Validate(optionalAmount),
			huh.NewInput().Title("Savings for "+month.Month).Value(f.formSavings).Validate(optionalAmount),
		).Title("This month"),
	).WithShowHelp(true).WithShowErrors(true)

	f.formActive = true
	return f, f.form.Init()
}

func (f financesModel) showSentForm() (financesModel, tea.Cmd) {
	*f.formSalary = ""
	f.formType = "sent"

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Amount sent").Value(f.formSalary).Validate(validateAmount),
		),
	).WithShowHelp(true).WithShowErrors(true)

	f.formActive = true
	return f, f.form.Init()
}

func (f financesModel) showGoalForm() (financesModel, tea.Cmd) {
	g := f.hub.Goal.Get()
	*f.formTitle = g.Title
	*f.formSalary = formatCount(g.Price)
	*f.formSavings = formatCount(g.Needed)
	f.formType = "goal"

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Goal").Value(f.formTitle).Validate(requireText),
			huh.NewInput().Title("Price").Value(f.formSalary).Validate(validateAmount),
			huh.NewInput().Title("Still needed").Value(f.formSavings).Validate(validateAmount),
		).Title("Savings goal"),
	).WithShowHelp(true).WithShowErrors(true)

	f.formActive = true
	return f, f.form.Init()
}

func (f financesModel) updateForm(msg tea.Msg) (financesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			f.formActive = false
			f.form = nil
			return f, nil
		}
	}

	form, cmd := f.form.Update(msg)
	if fm, ok := form.(*huh.Form); ok {
		f.form = fm
	}

	if f.form.State == huh.StateCompleted {
		f.formActive = false
		f.form = nil
		return f, errorStatus(f.save())
	}

	return f, cmd
}

func (f financesModel) save() error {
	switch f.formType {
	case "month":
		return f.saveMonth()
	case "sent":
		v, err := parseAmount(*f.formSalary)
		if err != nil {
			return err
		}
		return f.hub.Finance.AddSent(f.ctx, v)
	case "goal":
		price, err := parseAmount(*f.formSalary)
		if err != nil {
			return err
		}
		needed, err := parseAmount(*f.formSavings)
		if err != nil {
			return err
		}
		return f.hub.Goal.Set(f.ctx, *f.formTitle, price, needed)
	}
	return nil
}

func (f financesModel) saveMonth() error {
	if s := strings.TrimSpace(*f.formSalaryDay); s == "" {
		if _, ok := f.hub.Finance.SalaryDay(); ok {
			if err := f.hub.Finance.ClearSalaryDay(f.ctx); err != nil {
				return err
			}
		}
	} else {
		day, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		if err := f.hub.Finance.SetSalaryDay(f.ctx, day); err != nil {
			return err
		}
	}

	month := calendar.MonthKey(time.Now())
	if strings.TrimSpace(*f.formSalary) != "" {
		v, err := parseAmount(*f.formSalary)
		if err != nil {
			return err
		}
		if err := f.hub.Finance.SetSalary(f.ctx, month, v); err != nil {
			return err
		}
	}
	if strings.TrimSpace(*f.formSavings) != "" {
		v, err := parseAmount(*f.formSavings)
		if err != nil {
			return err
		}
		if err := f.hub.Finance.SetSavings(f.ctx, month, v); err != nil {
			return err
		}
	}
	return nil
}

func validateSalaryDay(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return fmt.Errorf("enter a day between 1 and 31")
	}
	return nil
}

func optionalAmount(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return validateAmount(s)
}

func (f financesModel) view() string {
	w := f.width - 4
	title := titleStyle.Render("Finances")

	if f.formActive && f.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", f.form.View()),
		)
	}
	if loading(f.hub.Finance.Status()) {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", mutedStyle.Render(loadingText)))
	}

	fin := f.hub.Finance
	var rows []string
	rows = append(rows, title, "")

	if day, ok := fin.SalaryDay(); ok {
		date, days, _ := fin.NextPayday()
		rows = append(rows, fmt.Sprintf("  %-18s %s  %s",
			"Salary day", highlightStyle.Render(strconv.Itoa(day)),
			mutedStyle.Render(fmt.Sprintf("next %s, %s", date.Format("Mon 02 Jan"), relativeDays(days))),
		))
	} else {
		rows = append(rows, fmt.Sprintf("  %-18s %s", "Salary day", mutedStyle.Render("not set")))
	}

	month := fin.CurrentMonth()
	rows = append(rows,
		fmt.Sprintf("  %-18s %s", "Salary", moneyOrDash(month.Salary, month.HasSalary)),
		fmt.Sprintf("  %-18s %s", "Savings", moneyOrDash(month.Savings, month.HasSavings)),
	)
	if month.HasSalary {
		rows = append(rows,
			fmt.Sprintf("  %-18s %s  %s", "Remaining",
				highlightStyle.Render(formatMoney(month.Remaining())),
				mutedStyle.Render(fmt.Sprintf("saving %.0f%%", month.SavingsRate()*100)),
			),
		)
	}
	rows = append(rows,
		"",
		fmt.Sprintf("  %-18s %s", "Total saved", successStyle.Render(formatMoney(fin.TotalSavings()))),
		fmt.Sprintf("  %-18s %s", "Total sent", accentStyle.Render(formatMoney(fin.TotalSent()))),
		"",
		f.renderHistory(w),
		"",
		mutedStyle.Render("  e: edit this month  s: record sent  g: savings goal"),
	)

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (f financesModel) renderHistory(w int) string {
	fin := f.hub.Finance
	months := fin.Salaries().Keys()
	for _, m := range fin.Savings().Keys() {
		if !slices.Contains(months, m) {
			months = append(months, m)
		}
	}
	if len(months) == 0 {
		return mutedStyle.Render("  No months recorded yet")
	}
	slices.Sort(months)
	slices.Reverse(months)
	months = months[:min(len(months), monthsShown)]

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-10s %14s %14s %14s", "Month", "Salary", "Savings", "Remaining")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 55))))
	for _, m := range months {
		s := fin.MonthSummary(m)
		rows = append(rows, fmt.Sprintf("  %-10s %14s %14s %14s",
			m, formatMoney(s.Salary), formatMoney(s.Savings), formatMoney(s.Remaining()),
		))
	}
	return strings.Join(rows, "\n")
}

func moneyOrDash(v float64, ok bool) string {
	if !ok {
		return mutedStyle.Render("-")
	}
	return highlightStyle.Render(formatMoney(v))
}
