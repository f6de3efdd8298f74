package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
)

type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodWeekly  Period = "weekly"
	PeriodYearly  Period = "yearly"
	PeriodCustom  Period = "custom"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodWeekly, PeriodYearly, PeriodCustom:
		return true
	}

	return false
}

// Budget caps expense spending over a window. A nil CategoryID covers every
// expense category.
type Budget struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	CategoryID *uuid.UUID
	Amount     decimal.Decimal
	Period     Period
	StartDate  time.Time
	EndDate    *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Usage is derived on every read and never stored.
type Usage struct {
	Start         time.Time
	End           time.Time
	Spent         decimal.Decimal
	Percentage    decimal.Decimal
	DaysRemaining int
}

// WithUsage pairs a budget with its current usage.
type WithUsage struct {
	*Budget
	Usage Usage
}

// Window returns the inclusive [start, end] range the budget aggregates over.
// Monthly and yearly windows end the day before the same calendar day one
// period later, clamped to month ends.
func (b *Budget) Window(today time.Time) (time.Time, time.Time) {
	start := calendar.Day(b.StartDate)

	switch b.Period {
	case PeriodMonthly:
		return start, calendar.AddMonths(start, 1).AddDate(0, 0, -1)
	case PeriodWeekly:
		return start, start.AddDate(0, 0, 6)
	case PeriodYearly:
		return start, calendar.AddYears(start, 1).AddDate(0, 0, -1)
	}

	if b.EndDate != nil {
		return start, calendar.Day(*b.EndDate)
	}

	return start, calendar.Day(today)
}

var hundred = decimal.NewFromInt(100)

// usage aggregates the given paid expense amounts against the budget.
func (b *Budget) usage(today time.Time, amounts []decimal.Decimal) Usage {
	start, end := b.Window(today)

	spent := decimal.Sum(decimal.Zero, amounts...)

	pct := decimal.Zero
	if b.Amount.IsPositive() {
		pct = spent.Div(b.Amount).Mul(hundred)
	}

	return Usage{
		Start:         start,
		End:           end,
		Spent:         spent,
		Percentage:    pct,
		DaysRemaining: max(0, calendar.DaysBetween(today, end)),
	}
}
