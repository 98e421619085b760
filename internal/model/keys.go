package model

import "fmt"

// Store keys. Every feature reads and writes only its own keys; the backup
// document uses the same names.
const (
	KeyDailyCounts     = "daily_counts"
	KeySalaryDay       = "salary_day"
	KeyMonthlySalaries = "monthly_salaries"
	KeyMonthlySavings  = "monthly_savings"
	KeyTotalSent       = "total_sent"
	KeyTheme           = "theme_preference"
	KeyGoalTitle       = "goal_title"
	KeyGoalPrice       = "goal_price"
	KeyGoalNeeded      = "goal_amount_needed"
	KeyCounters        = "counters"
	KeyEvents          = "events"
	KeyStudyProgress   = "study_progress"
)

// CounterValueKey is the key holding a counter's current value.
func CounterValueKey(id string) string {
	return fmt.Sprintf("counter.%s.value", id)
}

// CounterHistoryKey is the key holding a counter's dated history series.
func CounterHistoryKey(id string) string {
	return fmt.Sprintf("counter.%s.history", id)
}
