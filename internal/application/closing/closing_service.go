package closing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/retry"
	"github.com/workshop/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ClosingService reconciles committed payments into daily and monthly closings
type ClosingService struct {
	txScope         TransactionScope
	dailyRepo       closing.DailyClosingRepository
	monthlyRepo     closing.MonthlyClosingRepository
	ledger          closing.PaymentLedger
	policy          closing.CutoffPolicy
	retryPolicy     retry.Policy
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
	location        *time.Location
	now             func() time.Time
}

// NewClosingService creates a new ClosingService
func NewClosingService(
	txScope TransactionScope,
	dailyRepo closing.DailyClosingRepository,
	monthlyRepo closing.MonthlyClosingRepository,
	ledger closing.PaymentLedger,
	policy closing.CutoffPolicy,
) *ClosingService {
	if policy.Day == 0 {
		policy.Day = closing.DefaultCutoffDay
	}
	return &ClosingService{
		txScope:     txScope,
		dailyRepo:   dailyRepo,
		monthlyRepo: monthlyRepo,
		ledger:      ledger,
		policy:      policy,
		retryPolicy: retry.DefaultPolicy(),
		logger:      zap.NewNop(),
		location:    time.UTC,
		now:         time.Now,
	}
}

// SetLogger sets the logger
func (s *ClosingService) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *ClosingService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetRetryPolicy sets the policy for read-only queries
func (s *ClosingService) SetRetryPolicy(p retry.Policy) {
	s.retryPolicy = p
}

// SetLocation sets the timezone that defines "today"
func (s *ClosingService) SetLocation(loc *time.Location) {
	if loc != nil {
		s.location = loc
	}
}

// SetClock overrides the time source
func (s *ClosingService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Today returns the current business date
func (s *ClosingService) Today() shared.Date {
	return shared.DateOf(s.now(), s.location)
}

// CloseDay attributes every unattributed payment of date to a new closed
// DailyClosing. The day row stays locked until commit, so concurrent
// closes and payments into the same day serialize behind it.
func (s *ClosingService) CloseDay(ctx context.Context, date shared.Date) (*DailyClosingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closing", "close_day",
		telemetry.WithAttribute(telemetry.SpanAttrBusinessDate, date.String()),
	)
	defer span.End()

	op, err := shared.RequireRole(ctx, shared.RoleFrontdesk, shared.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, shared.NewFieldValidationError("date", "is required")
	}
	if today := s.Today(); date.After(today) {
		return nil, shared.NewFieldValidationError("date", fmt.Sprintf("%s is in the future", date)).
			WithDetail("today", today.String())
	}

	var day *closing.DailyClosing
	var attributed int64
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		day, err = repos.DailyClosingRepo().LockForClose(ctx, date)
		if err != nil {
			return err
		}
		if day.IsClosed() {
			return shared.NewAlreadyClosedError(date.String())
		}

		attributed, err = repos.PaymentLedger().AttributeToDailyClosing(ctx, day.ID, date)
		if err != nil {
			return err
		}
		summary, err := repos.PaymentLedger().SummarizeByClosing(ctx, day.ID)
		if err != nil {
			return err
		}
		if int64(summary.Count) != attributed {
			s.logger.Warn("Daily closing summary does not match attributed payments",
				zap.String("date", date.String()),
				zap.Int64("attributed", attributed),
				zap.Int("summarized", summary.Count),
			)
		}

		if err := day.Close(summary, op.ID, s.now()); err != nil {
			return err
		}
		if err := repos.DailyClosingRepo().SaveWithLock(ctx, day); err != nil {
			return err
		}

		entry, err := audit.NewEntry(audit.ActionDailyClosing, closing.AggregateTypeDailyClosing, day.ID, op, map[string]any{
			"date":          date.String(),
			"total_income":  day.TotalIncome.StringFixed(2),
			"payment_count": day.PaymentCount,
			"cash":          day.Totals.Cash.StringFixed(2),
			"card":          day.Totals.Card.StringFixed(2),
			"transfer":      day.Totals.Transfer.StringFixed(2),
		})
		if err != nil {
			return err
		}
		if err := repos.AuditRepo().Append(ctx, entry); err != nil {
			return err
		}
		return repos.Outbox().Append(ctx, day.PullDomainEvents()...)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.AddEvent(span, "day_closed",
		telemetry.SpanAttrPaymentCount, day.PaymentCount,
		telemetry.SpanAttrAmount, day.TotalIncome,
	)
	s.logger.Info("Day closed",
		zap.String("date", date.String()),
		zap.String("closing_id", day.ID.String()),
		zap.Int("payment_count", day.PaymentCount),
		zap.String("total_income", day.TotalIncome.StringFixed(2)),
		zap.String("operator_id", op.ID.String()),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordClosing(ctx, telemetry.ClosingKindDaily)
	}

	response := ToDailyClosingResponse(day)
	return &response, nil
}

// CloseMonth aggregates the closed days of ym. Closed days of an earlier
// month that were closed after that month's cutoff are carried into ym.
// Calling it on a closed month returns the stored closing unless
// expectMutation is set.
func (s *ClosingService) CloseMonth(ctx context.Context, ym shared.YearMonth, expectMutation bool) (*MonthlyClosingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closing", "close_month",
		telemetry.WithAttribute(telemetry.SpanAttrYearMonth, ym.String()),
	)
	defer span.End()

	op, err := shared.RequireRole(ctx, shared.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if ym.Year == 0 || ym.Month < time.January || ym.Month > time.December {
		return nil, shared.NewFieldValidationError("year_month", "is required")
	}
	today := s.Today()

	var month *closing.MonthlyClosing
	var existing bool
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		month, err = repos.MonthlyClosingRepo().LockForClose(ctx, ym)
		if err != nil {
			return err
		}
		if month.IsClosed() {
			if expectMutation {
				return shared.NewAlreadyClosedError(ym.String())
			}
			existing = true
			return nil
		}

		dailies, err := repos.DailyClosingRepo().FindUnattributedToMonth(ctx, ym.LastDay())
		if err != nil {
			return err
		}
		if err := s.checkEarlierMonths(ctx, repos, ym, dailies); err != nil {
			return err
		}
		closing.SortDailies(dailies)

		if err := month.Close(dailies, s.policy, today, op.ID, s.now()); err != nil {
			return err
		}
		if err := repos.MonthlyClosingRepo().SaveWithLock(ctx, month); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(dailies))
		for i := range dailies {
			ids[i] = dailies[i].ID
		}
		if err := repos.DailyClosingRepo().AttributeToMonth(ctx, month.ID, ids); err != nil {
			return err
		}

		entry, err := audit.NewEntry(audit.ActionMonthlyClosing, closing.AggregateTypeMonthlyClosing, month.ID, op, map[string]any{
			"year_month":    ym.String(),
			"total_income":  month.TotalIncome.StringFixed(2),
			"payment_count": month.PaymentCount,
			"days_closed":   month.DaysClosed,
			"cutoff_day":    month.CutoffDay,
		})
		if err != nil {
			return err
		}
		if err := repos.AuditRepo().Append(ctx, entry); err != nil {
			return err
		}
		return repos.Outbox().Append(ctx, month.PullDomainEvents()...)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToMonthlyClosingResponse(month, s.policy)
	if existing {
		response.AlreadyClosed = true
		return &response, nil
	}

	s.logger.Info("Month closed",
		zap.String("year_month", ym.String()),
		zap.String("closing_id", month.ID.String()),
		zap.Int("days_closed", month.DaysClosed),
		zap.String("total_income", month.TotalIncome.StringFixed(2)),
		zap.String("operator_id", op.ID.String()),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordClosing(ctx, telemetry.ClosingKindMonthly)
	}
	return &response, nil
}

// checkEarlierMonths blocks ym while a carried-over day belongs to a month
// that is still open, so every day is counted by its own month first
func (s *ClosingService) checkEarlierMonths(ctx context.Context, repos TransactionalRepositories, ym shared.YearMonth, dailies []closing.DailyClosing) error {
	checked := make(map[string]bool)
	for i := range dailies {
		earlier := dailies[i].BusinessDate.YearMonth()
		if earlier == ym || checked[earlier.String()] {
			continue
		}
		checked[earlier.String()] = true

		prev, err := repos.MonthlyClosingRepo().FindByYearMonth(ctx, earlier)
		if err != nil && !shared.IsNotFound(err) {
			return err
		}
		if prev == nil || !prev.IsClosed() {
			return shared.NewBlockedError(
				fmt.Sprintf("month %s must be closed before %s", earlier, ym)).
				WithDetail("open_month", earlier.String())
		}
	}
	return nil
}

// GetDailyClosingStatus returns the stored closing of date, or an open
// preview of the payments a close would attribute now
func (s *ClosingService) GetDailyClosingStatus(ctx context.Context, date shared.Date) (*DailyClosingResponse, error) {
	if _, err := shared.RequireRole(ctx); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, shared.NewFieldValidationError("date", "is required")
	}

	day, err := retry.Get(ctx, s.retryPolicy, func() (*closing.DailyClosing, error) {
		return s.dailyRepo.FindByDate(ctx, date)
	})
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if day != nil && day.IsClosed() {
		response := ToDailyClosingResponse(day)
		return &response, nil
	}

	summary, err := retry.Get(ctx, s.retryPolicy, func() (closing.PaymentSummary, error) {
		return s.ledger.SummarizeUnattributed(ctx, date)
	})
	if err != nil {
		return nil, err
	}
	response := ToDailyClosingResponse(closing.NewDailyPreview(date, summary))
	response.ID = nil
	response.PendingPayments = summary.Count
	return &response, nil
}

// GetMonthlyClosingStatus returns the stored closing of ym, or an open
// preview with its eligibility, missing days and the totals CloseMonth
// would write now, carried-over days included
func (s *ClosingService) GetMonthlyClosingStatus(ctx context.Context, ym shared.YearMonth) (*MonthlyClosingResponse, error) {
	if _, err := shared.RequireRole(ctx); err != nil {
		return nil, err
	}

	month, err := retry.Get(ctx, s.retryPolicy, func() (*closing.MonthlyClosing, error) {
		return s.monthlyRepo.FindByYearMonth(ctx, ym)
	})
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if month != nil && month.IsClosed() {
		response := ToMonthlyClosingResponse(month, s.policy)
		return &response, nil
	}

	dailies, err := retry.Get(ctx, s.retryPolicy, func() ([]closing.DailyClosing, error) {
		return s.dailyRepo.FindUnattributedToMonth(ctx, ym.LastDay())
	})
	if err != nil {
		return nil, err
	}
	closing.SortDailies(dailies)
	closedDates := make([]shared.Date, 0, len(dailies))
	for i := range dailies {
		if ym.Contains(dailies[i].BusinessDate) {
			closedDates = append(closedDates, dailies[i].BusinessDate)
		}
	}

	preview := closing.NewMonthlyClosing(ym)
	preview.Aggregate(dailies)

	response := ToMonthlyClosingResponse(preview, s.policy)
	response.ID = nil
	response.Eligible = s.policy.Eligible(ym, s.Today())
	response.MissingDays = s.policy.MissingDays(ym, closedDates)
	return &response, nil
}

// SystemOperator is the identity scheduled closings run under
var SystemOperator = shared.Operator{
	ID:   uuid.MustParse("00000000-0000-0000-0000-0000000000c1"),
	Name: "scheduler",
	Role: shared.RoleAdmin,
}

// AutoCloseDay closes date on behalf of the scheduler. A day that is
// already closed is not an error.
func (s *ClosingService) AutoCloseDay(ctx context.Context, date shared.Date) error {
	if _, ok := shared.OperatorFromContext(ctx); !ok {
		ctx = shared.WithOperator(ctx, SystemOperator)
	}
	_, err := s.CloseDay(ctx, date)
	if shared.IsAlreadyClosed(err) {
		s.logger.Info("Day already closed, skipping auto close", zap.String("date", date.String()))
		return nil
	}
	return err
}
