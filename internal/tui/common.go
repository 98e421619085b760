package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/tally/internal/state"
	"github.com/shopspring/decimal"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewCounters
	viewFinances
	viewEvents
	viewSettings
)

var viewNames = []string{"Dashboard", "Counters", "Finances", "Events", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

// loadedMsg reports the end of the initial load.
type loadedMsg struct {
	err error
}

// changedMsg means some synchronizer published new state.
type changedMsg struct{}

type writeErrorMsg struct {
	err *state.WriteError
}

type exportDoneMsg struct {
	path string
}

// importDoneMsg ends an import; err is nil on success.
type importDoneMsg struct {
	path string
	err  error
}

// --- Commands ---

// waitForChange blocks until a synchronizer reports a change.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// waitForWriteError blocks until the writer gives up on an op.
func waitForWriteError(ch <-chan *state.WriteError) tea.Cmd {
	return func() tea.Msg {
		werr, ok := <-ch
		if !ok {
			return nil
		}
		return writeErrorMsg{err: werr}
	}
}

func errorStatus(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	return func() tea.Msg {
		return statusMsg{text: "Error: " + describe(err), isError: true}
	}
}

func infoStatus(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

// describe turns synchronizer errors into short status-bar text.
func describe(err error) string {
	switch {
	case errors.Is(err, state.ErrNotLoaded):
		return "still loading"
	case errors.Is(err, state.ErrNotFound):
		return "no longer exists"
	}
	return err.Error()
}

// --- Helpers ---

// formatMoney renders v with two decimals and thousands separators.
func formatMoney(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// formatCount renders whole numbers without decimals.
func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseAmount reads a non-negative money amount typed by the user.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative")
	}
	f, _ := d.Round(2).Float64()
	return f, nil
}

func validateAmount(s string) error {
	_, err := parseAmount(s)
	return err
}

// progressBar draws a bar of width cells filled to ratio (0..1).
func progressBar(ratio float64, width int) string {
	if width < 1 {
		return ""
	}
	ratio = max(0, min(1, ratio))
	filled := int(ratio * float64(width))
	return barFillStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// loading is what a panel shows until its synchronizer has loaded.
func loading(s state.Status) bool {
	return s == state.NotLoaded
}

const loadingText = "Loading…"

// relativeDays renders a day distance as "today", "in 3 days" or "2 days ago".
func relativeDays(days int) string {
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days == -1:
		return "yesterday"
	case days < 0:
		return fmt.Sprintf("%d days ago", -days)
	}
	return fmt.Sprintf("in %d days", days)
}

// expandHome resolves a leading ~ in a path typed by the user.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
