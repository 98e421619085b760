package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/state"
	"github.com/sadopc/tally/internal/store"
)

// Export reads every feature key from r into a document stamped with now.
// Keys never written are left out. Values that fail to decode are left out
// too and named in Skipped.
func Export(ctx context.Context, r store.Reader, now time.Time) (*Document, error) {
	doc := &Document{
		Version:    Version,
		ExportedAt: now.UTC().Format(time.RFC3339),
	}
	x := exporter{ctx: ctx, r: r, doc: doc}

	doc.DailyCounts = x.series(model.KeyDailyCounts)
	doc.MonthlySalaries = x.series(model.KeyMonthlySalaries)
	doc.MonthlySavings = x.series(model.KeyMonthlySavings)
	doc.StudyProgress = x.series(model.KeyStudyProgress)

	if day, ok := x.value(model.KeySalaryDay); ok {
		n, err := day.Int()
		x.keep(model.KeySalaryDay, err, func() { v := int(n); doc.SalaryDay = &v })
	}
	if raw, ok := x.value(model.KeyTheme); ok {
		t, err := model.ParseTheme(raw.Text())
		x.keep(model.KeyTheme, err, func() { doc.ThemePreference = &t })
	}
	if raw, ok := x.value(model.KeyGoalTitle); ok {
		title := raw.Text()
		doc.GoalTitle = &title
	}
	doc.GoalPrice = x.float(model.KeyGoalPrice)
	doc.GoalAmountNeeded = x.float(model.KeyGoalNeeded)
	doc.TotalSent = x.float(model.KeyTotalSent)

	if _, ok := x.value(model.KeyCounters); ok {
		counters, err := state.ReadCounters(ctx, r, func(key string, _ error) {
			doc.Skipped = append(doc.Skipped, key)
		})
		if err != nil && x.err == nil {
			x.err = err
		}
		doc.Counters = &counters
	}
	if _, ok := x.value(model.KeyEvents); ok {
		var events []model.Event
		_, err := store.GetJSON(ctx, r, model.KeyEvents, &events)
		x.keep(model.KeyEvents, err, func() {
			if events == nil {
				events = []model.Event{}
			}
			doc.Events = &events
		})
	}

	if x.err != nil {
		return nil, fmt.Errorf("export: %w", x.err)
	}
	return doc, nil
}

// exporter remembers the first read error; decode errors only mark the key
// skipped.
type exporter struct {
	ctx context.Context
	r   store.Reader
	doc *Document
	err error
}

func (x *exporter) value(key string) (store.Value, bool) {
	if x.err != nil {
		return store.Value{}, false
	}
	v, ok, err := x.r.Get(x.ctx, key)
	if err != nil {
		x.err = err
		return store.Value{}, false
	}
	return v, ok
}

func (x *exporter) keep(key string, err error, set func()) {
	if err != nil {
		x.doc.Skipped = append(x.doc.Skipped, key)
		return
	}
	set()
}

func (x *exporter) series(key string) *store.Series {
	v, ok := x.value(key)
	if !ok {
		return nil
	}
	s, err := store.DecodeSeries([]byte(v.Raw))
	if err != nil {
		x.doc.Skipped = append(x.doc.Skipped, key)
		return nil
	}
	return &s
}

func (x *exporter) float(key string) *float64 {
	v, ok := x.value(key)
	if !ok {
		return nil
	}
	f, err := v.Float()
	if err != nil {
		x.doc.Skipped = append(x.doc.Skipped, key)
		return nil
	}
	return &f
}

// Marshal renders the document as indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile writes the document to path. The file is replaced atomically, so
// a failed export never leaves a torn backup behind.
func WriteFile(doc *Document, path string) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// atomic.WriteFile creates the temp file with 0600.
	if err := os.Chmod(path, 0o644); err != nil {
		return fmt.Errorf("set permissions on %s: %w", path, err)
	}
	return nil
}
