package service

import (
	"context"

	"retail-order-service/internal/models"
	"retail-order-service/internal/store"
	"retail-order-service/internal/util"

	"go.uber.org/zap"
)

// RetryService replays deferred orders. ProcessRetries is one sweep over
// the retry queue; the worker drives it on a timer, tests call it directly.
// A failure on one entry never aborts the sweep for the rest.
type RetryService struct {
	store       OrderStore
	reserver    Reserver
	publisher   Publisher
	orderTopic  string
	maxAttempts int
	logger      *zap.Logger
}

// NewRetryService creates a new retry service. maxAttempts is the retry
// budget per deferred order; beyond it the order is dead-lettered as FAILED.
func NewRetryService(store OrderStore, reserver Reserver, publisher Publisher, orderTopic string, maxAttempts int) *RetryService {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &RetryService{
		store:       store,
		reserver:    reserver,
		publisher:   publisher,
		orderTopic:  orderTopic,
		maxAttempts: maxAttempts,
		logger:      util.GetLogger(),
	}
}

// ProcessRetries runs one sweep over all pending retries
func (rs *RetryService) ProcessRetries(ctx context.Context) {
	ctx, span := util.StartSpan(ctx, "RetryService.ProcessRetries")
	defer span.End()

	retries, err := rs.store.ListOrderRetries(ctx)
	if err != nil {
		rs.logger.Error("Failed to list order retries", zap.Error(err))
		return
	}

	for i := range retries {
		rs.processOne(ctx, &retries[i])
	}
}

func (rs *RetryService) processOne(ctx context.Context, retry *models.OrderRetry) {
	order, err := rs.store.GetOrderByID(ctx, retry.OrderID)
	if err == store.ErrOrderNotFound {
		// corrupted entry: the order was deleted out-of-band
		rs.logger.Warn("Deleting orphaned retry",
			zap.Int64("retry_id", retry.ID), zap.Int64("order_id", retry.OrderID))
		rs.finish(ctx, retry, "orphan")
		return
	}
	if err != nil {
		rs.logger.Error("Failed to load order for retry",
			zap.Int64("retry_id", retry.ID), zap.Error(err))
		rs.touch(ctx, retry, "error")
		return
	}

	// caught up via another path; nothing to re-reserve
	if order.Status == models.OrderStatusConfirmed {
		rs.finish(ctx, retry, "already_confirmed")
		return
	}

	if retry.RetryCount >= rs.maxAttempts {
		rs.logger.Warn("Retry budget exhausted, dead-lettering order",
			zap.Int64("order_id", order.ID), zap.Int("attempts", retry.RetryCount))
		if err := rs.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusFailed); err != nil {
			rs.logger.Error("Failed to mark order FAILED", zap.Int64("order_id", order.ID), zap.Error(err))
			rs.touch(ctx, retry, "error")
			return
		}
		util.OrdersDeadLetterTotal.Inc()
		rs.finish(ctx, retry, "dead_letter")
		return
	}

	// items were captured at order creation; validate/enrich are not rerun
	res, err := rs.reserver.Reserve(ctx, reserveRequest(order.Items))
	if err != nil || !res.Success {
		rs.touch(ctx, retry, "retried")
		return
	}

	if err := rs.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusConfirmed); err != nil {
		rs.logger.Error("Failed to confirm retried order",
			zap.Int64("order_id", order.ID), zap.Error(err))
		rs.touch(ctx, retry, "error")
		return
	}

	order.Status = models.OrderStatusConfirmed
	util.OrdersConfirmedTotal.Inc()
	rs.logger.Info("Deferred order confirmed", zap.Int64("order_id", order.ID))

	publishOrderCreated(ctx, rs.publisher, rs.orderTopic, order, rs.logger)
	rs.finish(ctx, retry, "confirmed")
}

func (rs *RetryService) touch(ctx context.Context, retry *models.OrderRetry, outcome string) {
	if err := rs.store.TouchOrderRetry(ctx, retry.ID); err != nil {
		rs.logger.Error("Failed to update retry record",
			zap.Int64("retry_id", retry.ID), zap.Error(err))
	}
	util.RetrySweepProcessed.WithLabelValues(outcome).Inc()
}

func (rs *RetryService) finish(ctx context.Context, retry *models.OrderRetry, outcome string) {
	if err := rs.store.DeleteOrderRetry(ctx, retry.ID); err != nil {
		rs.logger.Error("Failed to delete retry record",
			zap.Int64("retry_id", retry.ID), zap.Error(err))
	}
	util.RetrySweepProcessed.WithLabelValues(outcome).Inc()
}
