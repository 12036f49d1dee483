// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks the workshop's order flow, payments and closings.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	orderCreatedTotal       *Counter
	orderTransitionTotal    *Counter
	paymentTotal            *Counter
	paymentAmountTotal      *Counter
	paymentDiscrepancyTotal *Counter
	closingTotal            *Counter

	// Gauge metrics (point-in-time values)
	ordersByStatus       *Gauge
	unattributedPayments *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	orderProvider OrderMetricsProvider
}

// OrderMetricsProvider supplies workshop state for periodic gauge collection
// without the telemetry layer depending on the domain packages.
type OrderMetricsProvider interface {
	// CountOrdersByStatus returns the number of orders in each status
	CountOrdersByStatus(ctx context.Context) (map[string]int64, error)

	// CountUnattributedPayments returns payments not yet counted by a daily closing
	CountUnattributedPayments(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 1 minute
	OrderProvider   OrderMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		orderProvider: cfg.OrderProvider,
	}

	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&bm.orderCreatedTotal, "workshop_order_created_total", "Total number of service orders opened", "{orders}"},
		{&bm.orderTransitionTotal, "workshop_order_transition_total", "Total number of order status transitions", "{transitions}"},
		{&bm.paymentTotal, "workshop_payment_total", "Total number of recorded payments", "{payments}"},
		{&bm.paymentAmountTotal, "workshop_payment_amount_total", "Total paid amount in cents", "{cents}"},
		{&bm.paymentDiscrepancyTotal, "workshop_payment_discrepancy_total", "Payments whose amount deviated from the computed total", "{payments}"},
		{&bm.closingTotal, "workshop_closing_total", "Total number of daily and monthly closings", "{closings}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	bm.ordersByStatus, err = NewGauge(
		cfg.Meter,
		"workshop_orders_by_status",
		"Current number of orders per status",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	bm.unattributedPayments, err = NewGauge(
		cfg.Meter,
		"workshop_unattributed_payments",
		"Payments waiting for a daily closing",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Order Metrics
// =============================================================================

// RecordOrderCreated records a newly opened order.
func (bm *BusinessMetrics) RecordOrderCreated(ctx context.Context) {
	bm.orderCreatedTotal.Inc(ctx)
}

// RecordOrderTransition records a status change of an order.
func (bm *BusinessMetrics) RecordOrderTransition(ctx context.Context, from, to string) {
	bm.orderTransitionTotal.Inc(ctx,
		AttrFromStatus.String(from),
		AttrToStatus.String(to),
	)
}

// =============================================================================
// Payment Metrics
// =============================================================================

// RecordPayment records a payment and its amount in cents.
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, paymentMethod string, amount decimal.Decimal) {
	bm.paymentTotal.Inc(ctx, AttrPaymentMethod.String(paymentMethod))
	bm.paymentAmountTotal.Add(ctx, amount.Mul(decimal.NewFromInt(100)).IntPart(),
		AttrPaymentMethod.String(paymentMethod),
	)
}

// RecordPaymentDiscrepancy records a payment accepted with a deviating amount.
func (bm *BusinessMetrics) RecordPaymentDiscrepancy(ctx context.Context, paymentMethod string, discrepancy decimal.Decimal) {
	direction := "over"
	if discrepancy.IsNegative() {
		direction = "under"
	}
	bm.paymentDiscrepancyTotal.Inc(ctx,
		AttrPaymentMethod.String(paymentMethod),
		AttrDiscrepancyDirection.String(direction),
	)
}

// =============================================================================
// Closing Metrics
// =============================================================================

// ClosingKind labels closing metrics.
type ClosingKind string

const (
	ClosingKindDaily   ClosingKind = "daily"
	ClosingKindMonthly ClosingKind = "monthly"
)

// RecordClosing records a completed closing.
func (bm *BusinessMetrics) RecordClosing(ctx context.Context, kind ClosingKind) {
	bm.closingTotal.Inc(ctx, AttrClosingKind.String(string(kind)))
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectOrderMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectOrderMetrics(ctx)
		}
	}
}

func (bm *BusinessMetrics) collectOrderMetrics(ctx context.Context) {
	if bm.orderProvider == nil {
		bm.logger.Debug("No order provider configured, skipping order metrics collection")
		return
	}

	byStatus, err := bm.orderProvider.CountOrdersByStatus(ctx)
	if err != nil {
		bm.logger.Warn("Failed to count orders by status", zap.Error(err))
	} else {
		for status, count := range byStatus {
			bm.ordersByStatus.Record(ctx, count, AttrOrderStatus.String(status))
		}
	}

	pending, err := bm.orderProvider.CountUnattributedPayments(ctx)
	if err != nil {
		bm.logger.Warn("Failed to count unattributed payments", zap.Error(err))
	} else {
		bm.unattributedPayments.Record(ctx, pending)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// Business metrics attribute keys not already defined in metrics.go
var (
	AttrFromStatus           = attribute.Key("from_status")
	AttrToStatus             = attribute.Key("to_status")
	AttrOrderStatus          = attribute.Key("order_status")
	AttrClosingKind          = attribute.Key("closing_kind")
	AttrDiscrepancyDirection = attribute.Key("discrepancy_direction")
)
