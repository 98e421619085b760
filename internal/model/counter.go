package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/tally/internal/calendar"
)

// Kind is the persisted type tag of a counter.
type Kind string

const (
	KindPlain      Kind = "COUNT"
	KindCurrency   Kind = "CURRENCY"
	KindCountdown  Kind = "COUNTDOWN"
	KindBudgetHub  Kind = "BUDGET_HUB"
	KindCumulative Kind = "CUMULATIVE"
	KindHealth     Kind = "HEALTH"
)

// Kinds lists every counter kind in display order.
var Kinds = []Kind{KindPlain, KindCurrency, KindCountdown, KindBudgetHub, KindCumulative, KindHealth}

// Variant is the kind-specific payload of a counter. The set of
// implementations is closed.
type Variant interface {
	Kind() Kind
	clone() Variant
}

// Plain counts occurrences.
type Plain struct{}

// Currency holds an amount of money.
type Currency struct{}

// Countdown counts the days left until TargetDate (YYYY-MM-DD).
type Countdown struct {
	TargetDate string
}

// BudgetHub tracks a salary and a savings figure per month (YYYY-MM).
type BudgetHub struct {
	Salaries map[string]float64
	Savings  map[string]float64
}

// Cumulative keeps a running total that only grows by added amounts.
type Cumulative struct{}

// Health is a fixed tracker for one health metric, e.g. "cigarettes".
type Health struct {
	Metric string
}

func (Plain) Kind() Kind      { return KindPlain }
func (Currency) Kind() Kind   { return KindCurrency }
func (Countdown) Kind() Kind  { return KindCountdown }
func (BudgetHub) Kind() Kind  { return KindBudgetHub }
func (Cumulative) Kind() Kind { return KindCumulative }
func (Health) Kind() Kind     { return KindHealth }

func (v Plain) clone() Variant      { return v }
func (v Currency) clone() Variant   { return v }
func (v Countdown) clone() Variant  { return v }
func (v Cumulative) clone() Variant { return v }
func (v Health) clone() Variant     { return v }
func (v BudgetHub) clone() Variant {
	return BudgetHub{Salaries: cloneMap(v.Salaries), Savings: cloneMap(v.Savings)}
}

// Counter is a user-defined tracked quantity.
type Counter struct {
	ID      string
	Title   string
	Value   float64
	History map[string]float64 // YYYY-MM-DD -> value at the end of that day
	Variant Variant
}

// Kind returns the counter's type tag.
func (c Counter) Kind() Kind {
	if c.Variant == nil {
		return KindPlain
	}
	return c.Variant.Kind()
}

// NewCounter validates the input and returns a counter with a fresh id.
func NewCounter(title string, v Variant) (Counter, error) {
	if v == nil {
		v = Plain{}
	}
	in := counterInput{Title: title}
	switch p := v.(type) {
	case Countdown:
		if p.TargetDate == "" {
			return Counter{}, fmt.Errorf("invalid counter: countdown needs a target date")
		}
		in.TargetDate = p.TargetDate
	case Health:
		if p.Metric == "" {
			return Counter{}, fmt.Errorf("invalid counter: health tracker needs a metric")
		}
		in.Metric = p.Metric
	}
	if err := validate.Struct(in); err != nil {
		return Counter{}, fmt.Errorf("invalid counter: %w", err)
	}
	return Counter{
		ID:      uuid.NewString(),
		Title:   title,
		Variant: v.clone(),
	}, nil
}

type counterInput struct {
	Title      string `validate:"required,max=80"`
	TargetDate string `validate:"omitempty,datetime=2006-01-02"`
	Metric     string `validate:"max=40"`
}

// Clone returns a deep copy.
func (c Counter) Clone() Counter {
	out := c
	out.History = cloneMap(c.History)
	if c.Variant != nil {
		out.Variant = c.Variant.clone()
	}
	return out
}

// Meta returns a copy without the value and history, which are stored
// under their own keys.
func (c Counter) Meta() Counter {
	out := c.Clone()
	out.Value = 0
	out.History = nil
	return out
}

// DaysLeft returns the days until a countdown's target date. ok is false for
// other kinds or an unparsable date.
func (c Counter) DaysLeft(today time.Time) (days int, ok bool) {
	cd, isCountdown := c.Variant.(Countdown)
	if !isCountdown {
		return 0, false
	}
	target, err := calendar.ParseDateKey(cd.TargetDate)
	if err != nil {
		return 0, false
	}
	return calendar.DaysBetween(today, target), true
}

type counterJSON struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Type            Kind               `json:"type"`
	Value           float64            `json:"value,omitempty"`
	History         map[string]float64 `json:"history,omitempty"`
	TargetDate      string             `json:"target_date,omitempty"`
	Metric          string             `json:"metric,omitempty"`
	MonthlySalaries map[string]float64 `json:"monthly_salaries,omitempty"`
	MonthlySavings  map[string]float64 `json:"monthly_savings,omitempty"`
}

// MarshalJSON writes the flat record with a type tag and only the fields of
// the counter's variant.
func (c Counter) MarshalJSON() ([]byte, error) {
	rec := counterJSON{
		ID:      c.ID,
		Title:   c.Title,
		Type:    c.Kind(),
		Value:   c.Value,
		History: c.History,
	}
	switch v := c.Variant.(type) {
	case Countdown:
		rec.TargetDate = v.TargetDate
	case Health:
		rec.Metric = v.Metric
	case BudgetHub:
		rec.MonthlySalaries = v.Salaries
		rec.MonthlySavings = v.Savings
	}
	return json.Marshal(rec)
}

// UnmarshalJSON reads the flat record, ignoring payload fields that do not
// belong to the tagged variant.
func (c *Counter) UnmarshalJSON(data []byte) error {
	var rec counterJSON
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("counter without id")
	}

	var v Variant
	switch rec.Type {
	case KindPlain, "":
		v = Plain{}
	case KindCurrency:
		v = Currency{}
	case KindCountdown:
		v = Countdown{TargetDate: rec.TargetDate}
	case KindBudgetHub:
		v = BudgetHub{Salaries: rec.MonthlySalaries, Savings: rec.MonthlySavings}
	case KindCumulative:
		v = Cumulative{}
	case KindHealth:
		v = Health{Metric: rec.Metric}
	default:
		return fmt.Errorf("counter %s: unknown type %q", rec.ID, rec.Type)
	}

	*c = Counter{
		ID:      rec.ID,
		Title:   rec.Title,
		Value:   rec.Value,
		History: rec.History,
		Variant: v,
	}
	return nil
}

func cloneMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
