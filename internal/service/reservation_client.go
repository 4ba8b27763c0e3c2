package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"retail-order-service/internal/models"
	"retail-order-service/internal/resilience"
	"retail-order-service/internal/util"

	"go.uber.org/zap"
)

// ReservationClient performs the synchronous stock reservation against the
// inventory service. The call is guarded by the shared reservation breaker;
// a business rejection (insufficient stock, out of stock, discontinued)
// passes through untouched, while transport failures, 5xx responses and an
// explicit ERROR status retry and eventually surface as an ERROR-status
// response via the fallback. Reserve therefore never returns a non-nil
// error for a downstream outage; callers branch on Status.
type ReservationClient struct {
	baseURL string
	http    *http.Client
	exec    *resilience.Executor
	logger  *zap.Logger
}

// NewReservationClient creates a reservation client around the shared
// reservation breaker.
func NewReservationClient(baseURL string, timeout time.Duration, exec *resilience.Executor) *ReservationClient {
	return &ReservationClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		exec:    exec,
		logger:  util.GetLogger(),
	}
}

func classifyReservation(res *models.ReserveResponse, err error) resilience.Class {
	if err != nil {
		return resilience.ClassTechnical
	}
	switch res.Status {
	case models.ReservationSuccess:
		return resilience.ClassSuccess
	case models.ReservationInsufficientStock, models.ReservationOutOfStock, models.ReservationDiscontinued:
		return resilience.ClassBusiness
	default:
		// ERROR and anything unrecognized
		return resilience.ClassTechnical
	}
}

// Reserve attempts to reserve stock for the given items
func (rc *ReservationClient) Reserve(ctx context.Context, req *models.ReserveRequest) (*models.ReserveResponse, error) {
	ctx, span := util.StartSpan(ctx, "ReservationClient.Reserve")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReservationLatency.Observe(time.Since(start).Seconds())
	}()

	op := func(ctx context.Context) (*models.ReserveResponse, error) {
		return rc.call(ctx, req)
	}

	fallback := func(_ context.Context, reason error) (*models.ReserveResponse, error) {
		rc.logger.Warn("Reservation degraded to ERROR status", zap.Error(reason))
		return &models.ReserveResponse{
			Success: false,
			Status:  models.ReservationError,
			Message: fmt.Sprintf("inventory service unavailable: %v", reason),
		}, nil
	}

	return resilience.Execute(ctx, rc.exec, op, classifyReservation, fallback)
}

func (rc *ReservationClient) call(ctx context.Context, req *models.ReserveRequest) (*models.ReserveResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reserve request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut,
		rc.baseURL+"/api/inventory/reserve", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := rc.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("inventory service returned %d", resp.StatusCode)
	}

	var res models.ReserveResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode reserve response: %w", err)
	}
	return &res, nil
}
