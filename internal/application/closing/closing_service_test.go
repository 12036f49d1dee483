package closing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/billing"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/retry"
)

var (
	may2024   = shared.YearMonth{Year: 2024, Month: time.May}
	april2024 = shared.YearMonth{Year: 2024, Month: time.April}
)

func operatorCtx(role shared.Role) context.Context {
	return shared.WithOperator(context.Background(), shared.Operator{ID: uuid.New(), Name: "Manager", Role: role})
}

func newClosingServiceFixture(now time.Time) (*fakeTxScope, *ClosingService) {
	tx := newFakeTxScope()
	service := NewClosingService(tx, tx.dailies, tx.monthlies, tx.ledger, closing.CutoffPolicy{})
	service.SetRetryPolicy(retry.NoRetry())
	service.SetClock(func() time.Time { return now })
	return tx, service
}

func cashSummary(amount int64, count int) closing.PaymentSummary {
	return closing.NewPaymentSummary([]closing.MethodAmount{
		{Method: billing.PaymentMethodCash, Amount: decimal.NewFromInt(amount), Count: count},
	})
}

func closedDaily(t *testing.T, date shared.Date, cash int64) closing.DailyClosing {
	t.Helper()
	d := closing.NewDailyClosing(date)
	require.NoError(t, d.Close(cashSummary(cash, 1), uuid.New(), date.Time().Add(20*time.Hour)))
	d.PullDomainEvents()
	return *d
}

func closedDailies(t *testing.T, ym shared.YearMonth, from, to int, cash int64) []closing.DailyClosing {
	t.Helper()
	var out []closing.DailyClosing
	for day := from; day <= to; day++ {
		out = append(out, closedDaily(t, shared.NewDate(ym.Year, ym.Month, day), cash))
	}
	return out
}

func closedMonth(ym shared.YearMonth) *closing.MonthlyClosing {
	m := closing.NewMonthlyClosing(ym)
	m.Status = closing.StatusClosed
	m.TotalIncome = decimal.NewFromInt(1000)
	return m
}

// ==================== CloseDay ====================

func TestClosingService_CloseDay(t *testing.T) {
	now := time.Date(2024, 5, 29, 21, 0, 0, 0, time.UTC)
	date := shared.NewDate(2024, 5, 29)

	t.Run("attributes payments and freezes totals", func(t *testing.T) {
		tx, service := newClosingServiceFixture(now)
		day := closing.NewDailyClosing(date)
		summary := closing.NewPaymentSummary([]closing.MethodAmount{
			{Method: billing.PaymentMethodCash, Amount: decimal.NewFromInt(100), Count: 1},
			{Method: billing.PaymentMethodCard, Amount: decimal.NewFromInt(200), Count: 1},
		})
		tx.dailies.On("LockForClose", mock.Anything, date).Return(day, nil)
		tx.ledger.On("AttributeToDailyClosing", mock.Anything, day.ID, date).Return(int64(2), nil)
		tx.ledger.On("SummarizeByClosing", mock.Anything, day.ID).Return(summary, nil)
		tx.dailies.On("SaveWithLock", mock.Anything, day).Return(nil)
		tx.audits.On("Append", mock.Anything, mock.MatchedBy(func(e *audit.Entry) bool {
			return e.Action == audit.ActionDailyClosing && e.EntityID == day.ID && e.Details["total_income"] == "300.00"
		})).Return(nil)

		result, err := service.CloseDay(operatorCtx(shared.RoleFrontdesk), date)

		require.NoError(t, err)
		assert.Equal(t, "closed", result.Status)
		assert.Equal(t, "300", result.TotalIncome.String())
		assert.Equal(t, 2, result.PaymentCount)
		assert.Equal(t, "100", result.Totals.Cash.String())
		assert.Equal(t, "200", result.Totals.Card.String())
		assert.True(t, result.Totals.Transfer.IsZero())
		require.NotNil(t, result.ClosedAt)
		assert.Equal(t, now, *result.ClosedAt)
		assert.Equal(t, []string{closing.EventTypeDailyClosed}, tx.outbox.types())
		tx.dailies.AssertExpectations(t)
		tx.ledger.AssertExpectations(t)
		tx.audits.AssertExpectations(t)
	})

	t.Run("day without payments closes at zero", func(t *testing.T) {
		tx, service := newClosingServiceFixture(now)
		day := closing.NewDailyClosing(date)
		tx.dailies.On("LockForClose", mock.Anything, date).Return(day, nil)
		tx.ledger.On("AttributeToDailyClosing", mock.Anything, day.ID, date).Return(int64(0), nil)
		tx.ledger.On("SummarizeByClosing", mock.Anything, day.ID).Return(closing.PaymentSummary{}, nil)
		tx.dailies.On("SaveWithLock", mock.Anything, day).Return(nil)
		tx.audits.On("Append", mock.Anything, mock.Anything).Return(nil)

		result, err := service.CloseDay(operatorCtx(shared.RoleAdmin), date)

		require.NoError(t, err)
		assert.True(t, result.TotalIncome.IsZero())
		assert.Equal(t, 0, result.PaymentCount)
	})

	t.Run("closing twice is already closed and keeps totals", func(t *testing.T) {
		tx, service := newClosingServiceFixture(now)
		day := closing.NewDailyClosing(date)
		tx.dailies.On("LockForClose", mock.Anything, date).Return(day, nil)
		tx.ledger.On("AttributeToDailyClosing", mock.Anything, day.ID, date).Return(int64(1), nil).Once()
		tx.ledger.On("SummarizeByClosing", mock.Anything, day.ID).Return(cashSummary(80, 1), nil).Once()
		tx.dailies.On("SaveWithLock", mock.Anything, day).Return(nil).Once()
		tx.audits.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

		_, err := service.CloseDay(operatorCtx(shared.RoleFrontdesk), date)
		require.NoError(t, err)

		_, err = service.CloseDay(operatorCtx(shared.RoleFrontdesk), date)

		assert.True(t, shared.IsAlreadyClosed(err))
		assert.Equal(t, "80", day.TotalIncome.String())
		tx.ledger.AssertNumberOfCalls(t, "AttributeToDailyClosing", 1)
	})

	t.Run("future date is rejected", func(t *testing.T) {
		tx, service := newClosingServiceFixture(now)

		_, err := service.CloseDay(operatorCtx(shared.RoleAdmin), date.AddDays(1))

		assert.True(t, shared.IsValidation(err))
		tx.dailies.AssertNotCalled(t, "LockForClose", mock.Anything, mock.Anything)
	})

	t.Run("today follows the configured timezone", func(t *testing.T) {
		// 03:00 UTC on the 30th is still the 29th six hours west
		tx, service := newClosingServiceFixture(time.Date(2024, 5, 30, 3, 0, 0, 0, time.UTC))
		service.SetLocation(time.FixedZone("CST", -6*3600))

		_, err := service.CloseDay(operatorCtx(shared.RoleAdmin), shared.NewDate(2024, 5, 30))

		assert.True(t, shared.IsValidation(err))
		tx.dailies.AssertNotCalled(t, "LockForClose", mock.Anything, mock.Anything)
	})

	t.Run("audit failure rolls back", func(t *testing.T) {
		tx, service := newClosingServiceFixture(now)
		day := closing.NewDailyClosing(date)
		tx.dailies.On("LockForClose", mock.Anything, date).Return(day, nil)
		tx.ledger.On("AttributeToDailyClosing", mock.Anything, day.ID, date).Return(int64(0), nil)
		tx.ledger.On("SummarizeByClosing", mock.Anything, day.ID).Return(closing.PaymentSummary{}, nil)
		tx.dailies.On("SaveWithLock", mock.Anything, day).Return(nil)
		tx.audits.On("Append", mock.Anything, mock.Anything).Return(assert.AnError)

		_, err := service.CloseDay(operatorCtx(shared.RoleAdmin), date)

		assert.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, tx.outbox.events)
	})

	t.Run("mechanic is forbidden", func(t *testing.T) {
		_, service := newClosingServiceFixture(now)

		_, err := service.CloseDay(operatorCtx(shared.RoleMechanic), date)

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

// ==================== CloseMonth ====================

func TestClosingService_CloseMonth(t *testing.T) {
	afterCutoff := time.Date(2024, 5, 29, 9, 0, 0, 0, time.UTC)

	t.Run("aggregates dailies including carried days", func(t *testing.T) {
		tx, service := newClosingServiceFixture(afterCutoff)
		month := closing.NewMonthlyClosing(may2024)
		dailies := append(closedDailies(t, may2024, 1, 28, 10), closedDaily(t, shared.NewDate(2024, 4, 30), 25))
		tx.monthlies.On("LockForClose", mock.Anything, may2024).Return(month, nil)
		tx.dailies.On("FindUnattributedToMonth", mock.Anything, may2024.LastDay()).Return(dailies, nil)
		tx.monthlies.On("FindByYearMonth", mock.Anything, april2024).Return(closedMonth(april2024), nil)
		tx.monthlies.On("SaveWithLock", mock.Anything, month).Return(nil)
		tx.dailies.On("AttributeToMonth", mock.Anything, month.ID, mock.MatchedBy(func(ids []uuid.UUID) bool {
			return len(ids) == 29
		})).Return(nil)
		tx.audits.On("Append", mock.Anything, mock.MatchedBy(func(e *audit.Entry) bool {
			return e.Action == audit.ActionMonthlyClosing && e.Details["total_income"] == "305.00"
		})).Return(nil)

		result, err := service.CloseMonth(operatorCtx(shared.RoleAdmin), may2024, false)

		require.NoError(t, err)
		assert.Equal(t, "closed", result.Status)
		assert.Equal(t, "305", result.TotalIncome.String())
		assert.Equal(t, 29, result.DaysClosed)
		assert.Equal(t, 29, result.PaymentCount)
		assert.Equal(t, shared.NewDate(2024, 5, 28), result.CutoffDate)
		assert.False(t, result.AlreadyClosed)
		assert.Equal(t, []string{closing.EventTypeMonthlyClosed}, tx.outbox.types())
		tx.monthlies.AssertExpectations(t)
		tx.dailies.AssertExpectations(t)
	})

	t.Run("before cutoff is blocked", func(t *testing.T) {
		tx, service := newClosingServiceFixture(time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC))
		tx.monthlies.On("LockForClose", mock.Anything, may2024).Return(closing.NewMonthlyClosing(may2024), nil)
		tx.dailies.On("FindUnattributedToMonth", mock.Anything, may2024.LastDay()).
			Return(closedDailies(t, may2024, 1, 19, 10), nil)

		_, err := service.CloseMonth(operatorCtx(shared.RoleAdmin), may2024, false)

		require.True(t, shared.IsBlocked(err))
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "2024-05-28", de.Details["cutoff_date"])
		tx.monthlies.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("missing days are listed", func(t *testing.T) {
		tx, service := newClosingServiceFixture(afterCutoff)
		dailies := append(closedDailies(t, may2024, 1, 20, 10), closedDailies(t, may2024, 22, 26, 10)...)
		tx.monthlies.On("LockForClose", mock.Anything, may2024).Return(closing.NewMonthlyClosing(may2024), nil)
		tx.dailies.On("FindUnattributedToMonth", mock.Anything, may2024.LastDay()).Return(dailies, nil)

		_, err := service.CloseMonth(operatorCtx(shared.RoleAdmin), may2024, false)

		require.True(t, shared.IsBlocked(err))
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, []string{"2024-05-21", "2024-05-27", "2024-05-28"}, de.Details["missing"])
		tx.dailies.AssertNotCalled(t, "AttributeToMonth", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("open earlier month blocks carried days", func(t *testing.T) {
		tx, service := newClosingServiceFixture(afterCutoff)
		dailies := append(closedDailies(t, may2024, 1, 28, 10), closedDaily(t, shared.NewDate(2024, 4, 30), 25))
		tx.monthlies.On("LockForClose", mock.Anything, may2024).Return(closing.NewMonthlyClosing(may2024), nil)
		tx.dailies.On("FindUnattributedToMonth", mock.Anything, may2024.LastDay()).Return(dailies, nil)
		tx.monthlies.On("FindByYearMonth", mock.Anything, april2024).Return(nil, shared.ErrNotFound)

		_, err := service.CloseMonth(operatorCtx(shared.RoleAdmin), may2024, false)

		require.True(t, shared.IsBlocked(err))
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "2024-04", de.Details["open_month"])
	})

	t.Run("closed month is returned unchanged", func(t *testing.T) {
		tx, service := newClosingServiceFixture(afterCutoff)
		month := closedMonth(may2024)
		tx.monthlies.On("LockForClose", mock.Anything, may2024).Return(month, nil)

		result, err := service.CloseMonth(operatorCtx(shared.RoleAdmin), may2024, false)

		require.NoError(t, err)
		assert.True(t, result.AlreadyClosed)
		assert.Equal(t, "1000", result.TotalIncome.String())
		tx.dailies.AssertNotCalled(t, "FindUnattributedToMonth", mock.Anything, mock.Anything)
		assert.Empty(t, tx.outbox.events)
	})

	t.Run("closed month with expected mutation is an error", func(t *testing.T) {
		tx, service := newClosingServiceFixture(afterCutoff)
		tx.monthlies.On("LockForClose", mock.Anything, may2024).Return(closedMonth(may2024), nil)

		_, err := service.CloseMonth(operatorCtx(shared.RoleAdmin), may2024, true)

		assert.True(t, shared.IsAlreadyClosed(err))
	})

	t.Run("frontdesk is forbidden", func(t *testing.T) {
		_, service := newClosingServiceFixture(afterCutoff)

		_, err := service.CloseMonth(operatorCtx(shared.RoleFrontdesk), may2024, false)

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

// ==================== Status ====================

func TestClosingService_GetDailyClosingStatus(t *testing.T) {
	now := time.Date(2024, 5, 29, 12, 0, 0, 0, time.UTC)
	date := shared.NewDate(2024, 5, 29)

	t.Run("open day shows pending payments", func(t *testing.T) {
		tx, service := newClosingServiceFixture(now)
		tx.dailies.On("FindByDate", mock.Anything, date).Return(nil, shared.ErrNotFound)
		tx.ledger.On("SummarizeUnattributed", mock.Anything, date).Return(cashSummary(150, 3), nil)

		result, err := service.GetDailyClosingStatus(operatorCtx(shared.RoleMechanic), date)

		require.NoError(t, err)
		assert.Nil(t, result.ID)
		assert.Equal(t, "open", result.Status)
		assert.Equal(t, 3, result.PendingPayments)
		assert.Equal(t, "150", result.TotalIncome.String())
	})

	t.Run("closed day returns the stored closing", func(t *testing.T) {
		tx, service := newClosingServiceFixture(now)
		day := closedDaily(t, date, 90)
		tx.dailies.On("FindByDate", mock.Anything, date).Return(&day, nil)

		result, err := service.GetDailyClosingStatus(operatorCtx(shared.RoleFrontdesk), date)

		require.NoError(t, err)
		require.NotNil(t, result.ID)
		assert.Equal(t, day.ID, *result.ID)
		assert.Equal(t, "closed", result.Status)
		tx.ledger.AssertNotCalled(t, "SummarizeUnattributed", mock.Anything, mock.Anything)
	})
}

func TestClosingService_GetMonthlyClosingStatus(t *testing.T) {
	tx, service := newClosingServiceFixture(time.Date(2024, 5, 29, 12, 0, 0, 0, time.UTC))
	tx.monthlies.On("FindByYearMonth", mock.Anything, may2024).Return(nil, shared.ErrNotFound)
	tx.dailies.On("FindUnattributedToMonth", mock.Anything, may2024.LastDay()).
		Return(closedDailies(t, may2024, 1, 25, 40), nil)

	result, err := service.GetMonthlyClosingStatus(operatorCtx(shared.RoleAdmin), may2024)

	require.NoError(t, err)
	assert.Nil(t, result.ID)
	assert.Equal(t, "open", result.Status)
	assert.True(t, result.Eligible)
	assert.Equal(t, 25, result.DaysClosed)
	assert.Equal(t, "1000", result.TotalIncome.String())
	assert.Equal(t, []shared.Date{
		shared.NewDate(2024, 5, 26),
		shared.NewDate(2024, 5, 27),
		shared.NewDate(2024, 5, 28),
	}, result.MissingDays)
}

func TestClosingService_GetMonthlyClosingStatus_MatchesCloseMonth(t *testing.T) {
	now := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)
	// April 30 was closed after April's month close and carries into May
	dailies := append([]closing.DailyClosing{closedDaily(t, shared.NewDate(2024, 4, 30), 90)},
		closedDailies(t, may2024, 1, 28, 40)...)

	tx, service := newClosingServiceFixture(now)
	tx.monthlies.On("FindByYearMonth", mock.Anything, may2024).Return(nil, shared.ErrNotFound)
	tx.dailies.On("FindUnattributedToMonth", mock.Anything, may2024.LastDay()).Return(dailies, nil)

	preview, err := service.GetMonthlyClosingStatus(operatorCtx(shared.RoleAdmin), may2024)
	require.NoError(t, err)
	assert.Equal(t, 29, preview.DaysClosed)
	assert.Equal(t, "1210", preview.TotalIncome.String())
	assert.Empty(t, preview.MissingDays)

	tx, service = newClosingServiceFixture(now)
	month := closing.NewMonthlyClosing(may2024)
	tx.monthlies.On("LockForClose", mock.Anything, may2024).Return(month, nil)
	tx.dailies.On("FindUnattributedToMonth", mock.Anything, may2024.LastDay()).Return(dailies, nil)
	tx.monthlies.On("FindByYearMonth", mock.Anything, april2024).Return(closedMonth(april2024), nil)
	tx.monthlies.On("SaveWithLock", mock.Anything, month).Return(nil)
	tx.dailies.On("AttributeToMonth", mock.Anything, month.ID, mock.Anything).Return(nil)
	tx.audits.On("Append", mock.Anything, mock.Anything).Return(nil)

	closed, err := service.CloseMonth(operatorCtx(shared.RoleAdmin), may2024, false)
	require.NoError(t, err)
	assert.Equal(t, preview.DaysClosed, closed.DaysClosed)
	assert.True(t, preview.TotalIncome.Equal(closed.TotalIncome))
	assert.Equal(t, preview.PaymentCount, closed.PaymentCount)
}

// ==================== AutoCloseDay ====================

func TestClosingService_AutoCloseDay(t *testing.T) {
	now := time.Date(2024, 5, 30, 0, 5, 0, 0, time.UTC)
	date := shared.NewDate(2024, 5, 29)

	t.Run("closes as the scheduler", func(t *testing.T) {
		tx, service := newClosingServiceFixture(now)
		day := closing.NewDailyClosing(date)
		tx.dailies.On("LockForClose", mock.Anything, date).Return(day, nil)
		tx.ledger.On("AttributeToDailyClosing", mock.Anything, day.ID, date).Return(int64(0), nil)
		tx.ledger.On("SummarizeByClosing", mock.Anything, day.ID).Return(closing.PaymentSummary{}, nil)
		tx.dailies.On("SaveWithLock", mock.Anything, day).Return(nil)
		tx.audits.On("Append", mock.Anything, mock.MatchedBy(func(e *audit.Entry) bool {
			return e.OperatorID == SystemOperator.ID
		})).Return(nil)

		require.NoError(t, service.AutoCloseDay(context.Background(), date))
		assert.True(t, day.IsClosed())
		tx.audits.AssertExpectations(t)
	})

	t.Run("already closed day is skipped", func(t *testing.T) {
		tx, service := newClosingServiceFixture(now)
		day := closedDaily(t, date, 10)
		tx.dailies.On("LockForClose", mock.Anything, date).Return(&day, nil)

		assert.NoError(t, service.AutoCloseDay(context.Background(), date))
		tx.ledger.AssertNotCalled(t, "AttributeToDailyClosing", mock.Anything, mock.Anything, mock.Anything)
	})
}
