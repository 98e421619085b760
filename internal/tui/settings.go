package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tally/internal/backup"
	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/state"
	"github.com/sadopc/tally/internal/store"
)

type settingsAction int

const (
	actionTheme settingsAction = iota
	actionExportJSON
	actionExportCSV
	actionImport
)

var settingsActions = []string{"Theme", "Export backup (JSON)", "Export series (CSV)", "Import backup"}

type settingsModel struct {
	ctx       context.Context
	hub       *state.Hub
	kv        store.KV
	writer    *state.Writer
	exportDir string
	width     int
	height    int

	cursor int

	// importing is set while an import runs; the app ignores input until
	// it reports back.
	importing bool

	formActive bool
	form       *huh.Form
	formType   string // "theme", "import"

	// Form field pointers (survive value copies)
	formTheme *string
	formPath  *string
}

func newSettingsModel(ctx context.Context, h *state.Hub, kv store.KV, w *state.Writer, exportDir string) settingsModel {
	theme, path := string(model.ThemeSystem), ""
	return settingsModel{
		ctx:       ctx,
		hub:       h,
		kv:        kv,
		writer:    w,
		exportDir: exportDir,
		formTheme: &theme,
		formPath:  &path,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch {
	case key.Matches(km, keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(km, keys.Down):
		if s.cursor < len(settingsActions)-1 {
			s.cursor++
		}
	case key.Matches(km, keys.Enter):
		switch settingsAction(s.cursor) {
		case actionTheme:
			if loading(s.hub.Settings.Status()) {
				return s, nil
			}
			return s.showThemeForm()
		case actionExportJSON:
			return s, s.export("json")
		case actionExportCSV:
			return s, s.export("csv")
		case actionImport:
			return s.showImportForm()
		}
	}
	return s, nil
}

func (s settingsModel) showThemeForm() (settingsModel, tea.Cmd) {
	*s.formTheme = string(s.hub.Settings.Theme())
	s.formType = "theme"

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Theme").
				Options(
					huh.NewOption("Follow terminal", string(model.ThemeSystem)),
					huh.NewOption("Light", string(model.ThemeLight)),
					huh.NewOption("Dark", string(model.ThemeDark)),
				).Value(s.formTheme),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) showImportForm() (settingsModel, tea.Cmd) {
	*s.formPath = ""
	s.formType = "import"

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Backup file").
				Description("Keys present in the file replace stored ones; the rest stay.").
				Value(s.formPath).Validate(requireText),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		switch s.formType {
		case "theme":
			t, err := model.ParseTheme(*s.formTheme)
			if err == nil {
				err = s.hub.Settings.SetTheme(s.ctx, t)
			}
			if err == nil {
				applyTheme(t)
			}
			return s, errorStatus(err)
		case "import":
			s.importing = true
			return s, s.importFrom(strings.TrimSpace(*s.formPath))
		}
		return s, nil
	}

	return s, cmd
}

// export writes a dated backup file into the export directory. Pending
// writes are flushed first so the file reflects everything shown.
func (s settingsModel) export(format string) tea.Cmd {
	ctx, kv, w, dir := s.ctx, s.kv, s.writer, s.exportDir
	return func() tea.Msg {
		if err := w.Flush(ctx); err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		now := time.Now()
		doc, err := backup.Export(ctx, kv, now)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		path := filepath.Join(dir, fmt.Sprintf("tally-backup-%s.%s", now.Format("2006-01-02"), format))
		if format == "csv" {
			err = backup.ToCSV(backup.SeriesOf(doc), path)
		} else {
			err = backup.WriteFile(doc, path)
		}
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}

// importFrom applies a backup file through the writer queue and reloads
// every feature from the store.
func (s settingsModel) importFrom(path string) tea.Cmd {
	ctx, hub, w := s.ctx, s.hub, s.writer
	return func() tea.Msg {
		if _, err := backup.ImportQueued(ctx, w, expandHome(path)); err != nil {
			return importDoneMsg{path: path, err: fmt.Errorf("import: %w", err)}
		}
		if err := hub.Reload(ctx); err != nil {
			return importDoneMsg{path: path, err: fmt.Errorf("reload: %w", err)}
		}
		return importDoneMsg{path: path}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}
	if s.importing {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", mutedStyle.Render("Importing…")))
	}

	theme := loadingText
	if !loading(s.hub.Settings.Status()) {
		theme = string(s.hub.Settings.Theme())
	}

	var rows []string
	rows = append(rows, title, "")
	for i, name := range settingsActions {
		cursor := "  "
		style := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		row := style.Render(fmt.Sprintf("%s%-24s", cursor, name))
		if settingsAction(i) == actionTheme {
			row += " " + highlightStyle.Render(theme)
		}
		rows = append(rows, row)
	}

	rows = append(rows, "")
	rows = append(rows, fmt.Sprintf("  %-24s %s", "Export folder", mutedStyle.Render(s.exportDir)))
	if n := s.writer.Failures(); n > 0 {
		rows = append(rows, fmt.Sprintf("  %-24s %s", "Failed writes", errorStyle.Render(fmt.Sprintf("%d", n))))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: select  ↑/↓: move"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
