package state

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sadopc/tally/internal/calendar"
	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/store"
)

// MonthSummary is the salary and savings recorded for one month.
type MonthSummary struct {
	Month      string
	Salary     float64
	Savings    float64
	HasSalary  bool
	HasSavings bool
}

// Remaining is the part of the salary not put into savings.
func (m MonthSummary) Remaining() float64 {
	return m.Salary - m.Savings
}

// SavingsRate is savings as a fraction of salary; zero without a salary.
func (m MonthSummary) SavingsRate() float64 {
	if m.Salary <= 0 {
		return 0
	}
	return m.Savings / m.Salary
}

// Finance holds the salary day, per-month salaries and savings, and the
// running total of money sent.
type Finance struct {
	base
	salaryDay *Observable[int] // 0 = unset
	salaries  *Observable[store.Series]
	savings   *Observable[store.Series]
	totalSent *Observable[float64]
}

// NewFinance returns an unloaded finance synchronizer.
func NewFinance(d Deps) *Finance {
	f := &Finance{
		salaryDay: NewObservable(0),
		salaries:  NewObservable(store.Series{}),
		savings:   NewObservable(store.Series{}),
		totalSent: NewObservable(0.0),
	}
	f.init(d, "finance")
	return f
}

// Load reads the four finance keys. Unreadable values load as unset.
func (f *Finance) Load(ctx context.Context) error {
	if err := f.beginLoad(ctx); err != nil {
		return err
	}

	var errs []error
	day, err := store.GetInt(ctx, f.kv, model.KeySalaryDay, 0)
	if store.IsCorrupt(err) {
		f.corrupt(model.KeySalaryDay, err)
	} else if err != nil {
		errs = append(errs, err)
	}
	if day < 1 || day > 31 {
		day = 0
	}

	salaries := f.readSeries(ctx, model.KeyMonthlySalaries, &errs)
	savings := f.readSeries(ctx, model.KeyMonthlySavings, &errs)

	sent, err := store.GetFloat(ctx, f.kv, model.KeyTotalSent, 0)
	if store.IsCorrupt(err) {
		f.corrupt(model.KeyTotalSent, err)
	} else if err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("load finance: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.salaryDay.Set(day)
	f.salaries.Set(salaries)
	f.savings.Set(savings)
	f.totalSent.Set(sent)
	f.settleLocked()
	return nil
}

func (f *Finance) readSeries(ctx context.Context, key string, errs *[]error) store.Series {
	s, err := store.ReadSeries(ctx, f.kv, key)
	if store.IsCorrupt(err) {
		f.corrupt(key, err)
		return store.Series{}
	}
	if err != nil {
		*errs = append(*errs, err)
	}
	return s
}

func (f *Finance) settleLocked() {
	empty := f.salaryDay.Get() == 0 &&
		len(f.salaries.Get()) == 0 &&
		len(f.savings.Get()) == 0 &&
		f.totalSent.Get() == 0
	f.settle(empty)
}

// OnChange is called after any finance value changes.
func (f *Finance) OnChange(fn func()) (unsubscribe func()) {
	u1 := f.salaryDay.Subscribe(func(int) { fn() })
	u2 := f.salaries.Subscribe(func(store.Series) { fn() })
	u3 := f.savings.Subscribe(func(store.Series) { fn() })
	u4 := f.totalSent.Subscribe(func(float64) { fn() })
	return func() { u1(); u2(); u3(); u4() }
}

// SalaryDay returns the day of month salary arrives; ok is false when unset.
func (f *Finance) SalaryDay() (day int, ok bool) {
	d := f.salaryDay.Get()
	return d, d != 0
}

// SetSalaryDay stores the salary day of month (1-31).
func (f *Finance) SetSalaryDay(ctx context.Context, day int) error {
	if err := f.ready(); err != nil {
		return err
	}
	if day < 1 || day > 31 {
		return fmt.Errorf("%w: salary day %d not in 1..31", ErrInvalid, day)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.salaryDay.Set(day)
	f.settleLocked()
	return f.submit(ctx, model.KeySalaryDay, func(ctx context.Context, kv store.KV) error {
		return store.SetInt(ctx, kv, model.KeySalaryDay, day)
	})
}

// ClearSalaryDay unsets the salary day.
func (f *Finance) ClearSalaryDay(ctx context.Context) error {
	if err := f.ready(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.salaryDay.Set(0)
	f.settleLocked()
	return f.submit(ctx, model.KeySalaryDay, func(ctx context.Context, kv store.KV) error {
		return kv.Delete(ctx, model.KeySalaryDay)
	})
}

// NextPayday returns the weekend-adjusted next salary date and the days
// until it. ok is false when no salary day is set.
func (f *Finance) NextPayday() (date time.Time, days int, ok bool) {
	day, ok := f.SalaryDay()
	if !ok {
		return time.Time{}, 0, false
	}
	date, days = calendar.DaysUntilPayday(day, f.today())
	return date, days, true
}

// SetSalary records the salary of a month (YYYY-MM).
func (f *Finance) SetSalary(ctx context.Context, month string, v float64) error {
	return f.putMonth(ctx, f.salaries, model.KeyMonthlySalaries, month, v)
}

// SetSavings records the savings of a month (YYYY-MM).
func (f *Finance) SetSavings(ctx context.Context, month string, v float64) error {
	return f.putMonth(ctx, f.savings, model.KeyMonthlySavings, month, v)
}

func (f *Finance) putMonth(ctx context.Context, obs *Observable[store.Series], key, month string, v float64) error {
	if err := f.ready(); err != nil {
		return err
	}
	if _, err := calendar.ParseMonthKey(month); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := checkAmount(v); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	s := obs.Get().Clone()
	s[month] = v
	obs.Set(s)
	f.settleLocked()
	return f.submit(ctx, key, func(ctx context.Context, kv store.KV) error {
		return store.PutInSeries(ctx, kv, key, month, v)
	})
}

// Salaries returns a copy of the monthly salary series.
func (f *Finance) Salaries() store.Series {
	return f.salaries.Get().Clone()
}

// Savings returns a copy of the monthly savings series.
func (f *Finance) Savings() store.Series {
	return f.savings.Get().Clone()
}

// MonthSummary returns the figures recorded for month (YYYY-MM).
func (f *Finance) MonthSummary(month string) MonthSummary {
	sum := MonthSummary{Month: month}
	sum.Salary, sum.HasSalary = f.salaries.Get()[month]
	sum.Savings, sum.HasSavings = f.savings.Get()[month]
	return sum
}

// CurrentMonth returns the summary of the clock's current month.
func (f *Finance) CurrentMonth() MonthSummary {
	return f.MonthSummary(calendar.MonthKey(f.today()))
}

// TotalSavings adds up every month's savings.
func (f *Finance) TotalSavings() float64 {
	return f.savings.Get().Sum()
}

// TotalSent returns the running total of money sent.
func (f *Finance) TotalSent() float64 {
	return f.totalSent.Get()
}

// AddSent adds v to the running total of money sent.
func (f *Finance) AddSent(ctx context.Context, v float64) error {
	if err := f.ready(); err != nil {
		return err
	}
	if err := checkAmount(v); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	total := f.totalSent.Get() + v
	f.totalSent.Set(total)
	f.settleLocked()
	return f.submit(ctx, model.KeyTotalSent, func(ctx context.Context, kv store.KV) error {
		return store.SetFloat(ctx, kv, model.KeyTotalSent, total)
	})
}

func checkAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: amount %v", ErrInvalid, v)
	}
	return nil
}
