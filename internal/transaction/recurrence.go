package transaction

import (
	"iter"
	"time"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
)

// Frequency is the unit a recurrence steps by.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Recurrence is the rule stored on a recurring transaction. Future
// occurrences are never materialised; Occurrences derives them.
type Recurrence struct {
	Frequency Frequency  `json:"frequency"`
	Interval  int        `json:"interval"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

func (r *Recurrence) validate(start time.Time) error {
	switch r.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
	default:
		return apperr.Invalid("recurrence_config.frequency", "must be daily, weekly, monthly or yearly")
	}

	if r.Interval < 1 {
		return apperr.Invalid("recurrence_config.interval", "must be at least 1")
	}

	if r.EndDate != nil && r.EndDate.Before(calendar.Day(start)) {
		return apperr.Invalid("recurrence_config.end_date", "must not be before the transaction date")
	}

	return nil
}

// step returns the k-th occurrence counted from start. Months and years are
// computed from start each time so a day-31 rule keeps landing on month ends.
func (r Recurrence) step(start time.Time, k int) time.Time {
	n := k * r.Interval

	switch r.Frequency {
	case FrequencyDaily:
		return start.AddDate(0, 0, n)
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*n)
	case FrequencyMonthly:
		return calendar.AddMonths(start, n)
	case FrequencyYearly:
		return calendar.AddYears(start, n)
	}

	return start
}

// Occurrences yields the dates of a recurring series starting at start
// (inclusive), bounded by the rule's end date and by horizon, whichever comes
// first. A zero horizon means no caller bound. The sequence is lazy and can
// be ranged over any number of times.
func Occurrences(start time.Time, r Recurrence, horizon time.Time) iter.Seq[time.Time] {
	start = calendar.Day(start)

	var limit time.Time
	if r.EndDate != nil {
		limit = calendar.Day(*r.EndDate)
	}

	if !horizon.IsZero() && (limit.IsZero() || horizon.Before(limit)) {
		limit = calendar.Day(horizon)
	}

	return func(yield func(time.Time) bool) {
		if r.Interval < 1 {
			return
		}

		for k := 0; ; k++ {
			d := r.step(start, k)
			if !limit.IsZero() && d.After(limit) {
				return
			}

			if !yield(d) {
				return
			}
		}
	}
}
