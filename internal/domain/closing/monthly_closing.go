package closing

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/shared"
)

// DefaultCutoffDay is used when no cutoff is configured
const DefaultCutoffDay = 28

// CutoffPolicy decides when a month becomes eligible for closing
type CutoffPolicy struct {
	Day int
}

// NewCutoffPolicy validates the configured cutoff day
func NewCutoffPolicy(day int) (CutoffPolicy, error) {
	if day == 0 {
		day = DefaultCutoffDay
	}
	if day < 1 || day > 31 {
		return CutoffPolicy{}, shared.NewFieldValidationError("cutoff_day", "must be between 1 and 31")
	}
	return CutoffPolicy{Day: day}, nil
}

// CutoffDate returns the cutoff of ym, clamped to the month's last day
func (p CutoffPolicy) CutoffDate(ym shared.YearMonth) shared.Date {
	day := p.Day
	if last := ym.DaysIn(); day > last {
		day = last
	}
	return shared.NewDate(ym.Year, ym.Month, day)
}

// Eligible reports whether today has reached the cutoff of ym
func (p CutoffPolicy) Eligible(ym shared.YearMonth, today shared.Date) bool {
	return !today.Before(p.CutoffDate(ym))
}

// MissingDays lists the days 1..cutoff of ym that have no closed daily closing
func (p CutoffPolicy) MissingDays(ym shared.YearMonth, closed []shared.Date) []shared.Date {
	seen := make(map[string]struct{}, len(closed))
	for _, d := range closed {
		seen[d.String()] = struct{}{}
	}
	cutoff := p.CutoffDate(ym)
	missing := make([]shared.Date, 0)
	for d := ym.FirstDay(); !d.After(cutoff); d = d.AddDays(1) {
		if _, ok := seen[d.String()]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}

// Check returns a BlockedError when ym cannot be closed on today
func (p CutoffPolicy) Check(ym shared.YearMonth, today shared.Date, closed []shared.Date) error {
	cutoff := p.CutoffDate(ym)
	if !p.Eligible(ym, today) {
		return shared.NewBlockedError(
			fmt.Sprintf("month %s cannot be closed before its cutoff date %s", ym, cutoff)).
			WithDetail("cutoff_date", cutoff.String())
	}
	if missing := p.MissingDays(ym, closed); len(missing) > 0 {
		dates := make([]string, len(missing))
		for i, d := range missing {
			dates[i] = d.String()
		}
		return shared.NewBlockedError(
			fmt.Sprintf("month %s has %d day(s) without a daily closing", ym, len(missing)), dates...).
			WithDetail("cutoff_date", cutoff.String())
	}
	return nil
}

// MonthlyClosing aggregates the closed days of a month
type MonthlyClosing struct {
	shared.BaseAggregateRoot
	YearMonth    shared.YearMonth
	Totals       MethodTotals
	TotalIncome  decimal.Decimal
	PaymentCount int
	DaysClosed   int
	CutoffDay    int
	Status       Status
	ClosedAt     *time.Time
	ClosedBy     *uuid.UUID
}

// NewMonthlyClosing creates the open row for ym
func NewMonthlyClosing(ym shared.YearMonth) *MonthlyClosing {
	return &MonthlyClosing{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		YearMonth:         ym,
		Status:            StatusOpen,
	}
}

// IsClosed reports whether the month has been reconciled
func (m *MonthlyClosing) IsClosed() bool {
	return m.Status == StatusClosed
}

// Aggregate sums dailies into the closing totals without changing status
func (m *MonthlyClosing) Aggregate(dailies []DailyClosing) {
	m.Totals = MethodTotals{}
	m.PaymentCount = 0
	m.DaysClosed = 0
	for i := range dailies {
		if !dailies[i].IsClosed() {
			continue
		}
		m.Totals = m.Totals.Plus(dailies[i].Totals)
		m.PaymentCount += dailies[i].PaymentCount
		m.DaysClosed++
	}
	m.TotalIncome = m.Totals.Total()
}

// Close checks eligibility and freezes the month with the given dailies.
// dailies are the closed days not yet counted by any month, up to the
// month's last day. Days of ym past an earlier close land in the next month.
func (m *MonthlyClosing) Close(dailies []DailyClosing, policy CutoffPolicy, today shared.Date, by uuid.UUID, at time.Time) error {
	if m.IsClosed() {
		return shared.NewAlreadyClosedError(m.YearMonth.String())
	}

	closed := make([]shared.Date, 0, len(dailies))
	for i := range dailies {
		d := &dailies[i]
		if d.IsAttributedToMonth() {
			return shared.NewPreconditionError(
				fmt.Sprintf("daily closing %s already belongs to a monthly closing", d.BusinessDate))
		}
		if d.BusinessDate.After(m.YearMonth.LastDay()) {
			return shared.NewValidationError(
				fmt.Sprintf("daily closing %s is after month %s", d.BusinessDate, m.YearMonth))
		}
		if d.IsClosed() && m.YearMonth.Contains(d.BusinessDate) {
			closed = append(closed, d.BusinessDate)
		}
	}
	if err := policy.Check(m.YearMonth, today, closed); err != nil {
		return err
	}

	m.Aggregate(dailies)
	m.CutoffDay = policy.CutoffDate(m.YearMonth).Day()
	m.Status = StatusClosed
	m.ClosedAt = &at
	m.ClosedBy = &by
	m.UpdatedAt = at

	m.RecordEvent(NewMonthlyClosedEvent(m))
	return nil
}

// SortDailies orders closings by business date
func SortDailies(dailies []DailyClosing) {
	sort.Slice(dailies, func(i, j int) bool {
		return dailies[i].BusinessDate.Before(dailies[j].BusinessDate)
	})
}
