// Package backup exports the whole tracker state to one JSON document and
// restores it again.
package backup

import (
	"errors"

	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/store"
)

// Version is the document format written by Export.
const Version = 1

var (
	// ErrMalformed marks a backup that cannot be parsed or coerced.
	ErrMalformed = errors.New("malformed backup")
	// ErrUnsupportedVersion marks a backup written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported backup version")
)

// Document is the backup file. A nil field means the key is absent: export
// leaves out keys never written, and import leaves the matching stored key
// untouched.
type Document struct {
	Version          int              `json:"version"`
	ExportedAt       string           `json:"exported_at,omitempty"`
	DailyCounts      *store.Series    `json:"daily_counts,omitempty"`
	SalaryDay        *int             `json:"salary_day,omitempty"`
	MonthlySalaries  *store.Series    `json:"monthly_salaries,omitempty"`
	MonthlySavings   *store.Series    `json:"monthly_savings,omitempty"`
	ThemePreference  *model.Theme     `json:"theme_preference,omitempty"`
	GoalTitle        *string          `json:"goal_title,omitempty"`
	GoalPrice        *float64         `json:"goal_price,omitempty"`
	GoalAmountNeeded *float64         `json:"goal_amount_needed,omitempty"`
	TotalSent        *float64         `json:"total_sent,omitempty"`
	Counters         *[]model.Counter `json:"counters,omitempty"`
	Events           *[]model.Event   `json:"events,omitempty"`
	StudyProgress    *store.Series    `json:"study_progress,omitempty"`

	// Skipped lists stored keys left out of an export because their value
	// could not be decoded.
	Skipped []string `json:"-"`
}

// Keys lists the store keys present in the document, in document order.
func (d *Document) Keys() []string {
	var keys []string
	add := func(present bool, key string) {
		if present {
			keys = append(keys, key)
		}
	}
	add(d.DailyCounts != nil, model.KeyDailyCounts)
	add(d.SalaryDay != nil, model.KeySalaryDay)
	add(d.MonthlySalaries != nil, model.KeyMonthlySalaries)
	add(d.MonthlySavings != nil, model.KeyMonthlySavings)
	add(d.ThemePreference != nil, model.KeyTheme)
	add(d.GoalTitle != nil, model.KeyGoalTitle)
	add(d.GoalPrice != nil, model.KeyGoalPrice)
	add(d.GoalAmountNeeded != nil, model.KeyGoalNeeded)
	add(d.TotalSent != nil, model.KeyTotalSent)
	add(d.Counters != nil, model.KeyCounters)
	add(d.Events != nil, model.KeyEvents)
	add(d.StudyProgress != nil, model.KeyStudyProgress)
	return keys
}
