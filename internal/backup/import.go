package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/state"
	"github.com/sadopc/tally/internal/store"
	"github.com/tailscale/hujson"
)

// ReadFile parses the backup at path without applying it.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	return Parse(data)
}

// ImportFile parses the backup at path and applies it to kv.
func ImportFile(ctx context.Context, kv store.KV, path string) (*Document, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := Apply(ctx, kv, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ImportQueued parses the backup at path and applies it as one op on w, after
// every write already queued and before any queued later.
func ImportQueued(ctx context.Context, w *state.Writer, path string) (*Document, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = w.Do(ctx, state.Op{Key: "import", Apply: func(ctx context.Context, kv store.KV) error {
		return Apply(ctx, kv, doc)
	}})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Import parses a backup and applies it. Nothing is written unless the whole
// document parses.
func Import(ctx context.Context, kv store.KV, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := Apply(ctx, kv, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Parse reads a backup document. Comments and trailing commas are accepted.
// Numbers may be given as JSON strings and integers as whole floats; any
// other mismatch fails the whole document.
func Parse(data []byte) (*Document, error) {
	std, err := hujson.Standardize(bytes.Clone(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(std, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: document is null", ErrMalformed)
	}

	p := parser{raw: raw}
	doc := &Document{Version: Version}

	if v, ok := p.field("version"); ok {
		n, err := coerceInt(v)
		if err != nil {
			return nil, fmt.Errorf("%w: version: %v", ErrMalformed, err)
		}
		if n > Version {
			return nil, fmt.Errorf("%w: %d (newest known is %d)", ErrUnsupportedVersion, n, Version)
		}
		if n < 1 {
			return nil, fmt.Errorf("%w: version %d", ErrMalformed, n)
		}
		doc.Version = int(n)
	}
	if v, ok := p.field("exported_at"); ok {
		doc.ExportedAt, _ = coerceString(v)
	}

	doc.DailyCounts = p.series(model.KeyDailyCounts)
	doc.MonthlySalaries = p.series(model.KeyMonthlySalaries)
	doc.MonthlySavings = p.series(model.KeyMonthlySavings)
	doc.StudyProgress = p.series(model.KeyStudyProgress)
	doc.GoalPrice = p.float(model.KeyGoalPrice)
	doc.GoalAmountNeeded = p.float(model.KeyGoalNeeded)
	doc.TotalSent = p.float(model.KeyTotalSent)

	if v, ok := p.field(model.KeySalaryDay); ok {
		n, err := coerceInt(v)
		if err == nil && (n < 1 || n > 31) {
			err = fmt.Errorf("%d not in 1..31", n)
		}
		if p.check(model.KeySalaryDay, err) {
			day := int(n)
			doc.SalaryDay = &day
		}
	}
	if v, ok := p.field(model.KeyTheme); ok {
		s, err := coerceString(v)
		var t model.Theme
		if err == nil {
			t, err = model.ParseTheme(s)
		}
		if p.check(model.KeyTheme, err) {
			doc.ThemePreference = &t
		}
	}
	if v, ok := p.field(model.KeyGoalTitle); ok {
		s, err := coerceString(v)
		if p.check(model.KeyGoalTitle, err) {
			doc.GoalTitle = &s
		}
	}
	if v, ok := p.field(model.KeyCounters); ok {
		counters, err := parseCounters(v)
		if p.check(model.KeyCounters, err) {
			doc.Counters = &counters
		}
	}
	if v, ok := p.field(model.KeyEvents); ok {
		events, err := parseEvents(v)
		if p.check(model.KeyEvents, err) {
			doc.Events = &events
		}
	}

	if p.err != nil {
		return nil, p.err
	}
	return doc, nil
}

// Apply writes every key present in doc in one transaction. Absent keys keep
// their stored values. A present counters list replaces the stored one and
// purges the value and history of counters it no longer contains.
func Apply(ctx context.Context, kv store.KV, doc *Document) error {
	err := kv.Update(ctx, func(tx store.Tx) error {
		series := []struct {
			key string
			s   *store.Series
		}{
			{model.KeyDailyCounts, doc.DailyCounts},
			{model.KeyMonthlySalaries, doc.MonthlySalaries},
			{model.KeyMonthlySavings, doc.MonthlySavings},
			{model.KeyStudyProgress, doc.StudyProgress},
		}
		for _, s := range series {
			if s.s == nil {
				continue
			}
			if err := store.PutSeries(ctx, tx, s.key, *s.s); err != nil {
				return err
			}
		}

		floats := []struct {
			key string
			f   *float64
		}{
			{model.KeyGoalPrice, doc.GoalPrice},
			{model.KeyGoalNeeded, doc.GoalAmountNeeded},
			{model.KeyTotalSent, doc.TotalSent},
		}
		for _, f := range floats {
			if f.f == nil {
				continue
			}
			if err := store.SetFloat(ctx, tx, f.key, *f.f); err != nil {
				return err
			}
		}

		if doc.SalaryDay != nil {
			if err := store.SetInt(ctx, tx, model.KeySalaryDay, *doc.SalaryDay); err != nil {
				return err
			}
		}
		if doc.ThemePreference != nil {
			if err := store.SetString(ctx, tx, model.KeyTheme, string(*doc.ThemePreference)); err != nil {
				return err
			}
		}
		if doc.GoalTitle != nil {
			if err := store.SetString(ctx, tx, model.KeyGoalTitle, *doc.GoalTitle); err != nil {
				return err
			}
		}
		if doc.Counters != nil {
			if err := state.ReplaceCountersTx(ctx, tx, *doc.Counters); err != nil {
				return err
			}
		}
		if doc.Events != nil {
			if err := store.PutJSON(ctx, tx, model.KeyEvents, *doc.Events); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply backup: %w", err)
	}
	return nil
}

// parser keeps the first coercion failure.
type parser struct {
	raw map[string]json.RawMessage
	err error
}

// field returns a present, non-null value.
func (p *parser) field(key string) (json.RawMessage, bool) {
	v, ok := p.raw[key]
	if !ok || isNull(v) {
		return nil, false
	}
	return v, true
}

func (p *parser) check(key string, err error) bool {
	if err == nil {
		return true
	}
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return false
}

func (p *parser) series(key string) *store.Series {
	v, ok := p.field(key)
	if !ok {
		return nil
	}
	s, err := coerceSeries(v)
	if !p.check(key, err) {
		return nil
	}
	return &s
}

func (p *parser) float(key string) *float64 {
	v, ok := p.field(key)
	if !ok {
		return nil
	}
	f, err := coerceFloat(v)
	if !p.check(key, err) {
		return nil
	}
	return &f
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

func coerceFloat(v json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		var s string
		if json.Unmarshal(v, &s) != nil {
			return 0, fmt.Errorf("%s is not a number", v)
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", s)
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not finite", f)
	}
	return f, nil
}

func coerceInt(v json.RawMessage) (int64, error) {
	f, err := coerceFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

func coerceString(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%s is not a string", v)
}

func coerceSeries(v json.RawMessage) (store.Series, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(v, &fields); err != nil {
		return nil, fmt.Errorf("not an object of numbers")
	}
	s := make(store.Series, len(fields))
	for k, fv := range fields {
		f, err := coerceFloat(fv)
		if err != nil {
			return nil, fmt.Errorf("field %q: %v", k, err)
		}
		s[k] = f
	}
	return s, nil
}

func parseCounters(v json.RawMessage) ([]model.Counter, error) {
	var list []model.Counter
	if err := json.Unmarshal(v, &list); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(list))
	for i, c := range list {
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate counter id %s", c.ID)
		}
		seen[c.ID] = true
		if c.History == nil {
			list[i].History = map[string]float64{}
		}
	}
	if list == nil {
		list = []model.Counter{}
	}
	return list, nil
}

func parseEvents(v json.RawMessage) ([]model.Event, error) {
	var list []model.Event
	if err := json.Unmarshal(v, &list); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(list))
	for _, e := range list {
		if e.ID == "" {
			return nil, fmt.Errorf("event without id")
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate event id %s", e.ID)
		}
		seen[e.ID] = true
	}
	if list == nil {
		list = []model.Event{}
	}
	return list, nil
}
