// Package client implements the HTTP adapters for the finance server,
// the external REST collaborator that owns all persisted finance data.
// Reads go through retry + circuit breaker; mutations go through the
// breaker only and are never retried automatically.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/infra/observability"
	"github.com/azkafin/finmate-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client/financeserver")

// FinanceClient wraps HTTP calls to the finance server. It implements
// port.BudgetStore, port.GoalStore, port.BalanceFetcher,
// port.ReminderStore and port.ScheduleFetcher.
type FinanceClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	readPolicy resilience.Policy
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewFinanceClient creates a finance server client.
func NewFinanceClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, readPolicy resilience.Policy, bulkhead *resilience.Bulkhead, metrics *observability.Metrics, logger *zap.Logger) *FinanceClient {
	return &FinanceClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		readPolicy: readPolicy,
		bulkhead:   bulkhead,
		metrics:    metrics,
		logger:     logger,
	}
}

// errStatus carries a non-2xx response through the retry/breaker layers.
type errStatus struct {
	Status int
	Body   string
}

func (e *errStatus) Error() string {
	return fmt.Sprintf("finance server returned status %d: %s", e.Status, e.Body)
}

// do executes one request and decodes a JSON response into out (when
// out is non-nil). 404 surfaces as errStatus so callers can map it to
// a typed not-found error.
func (c *FinanceClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("finance server: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("finance server: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return &errStatus{Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// get runs an idempotent read with bulkhead, breaker and retry.
func (c *FinanceClient) get(ctx context.Context, endpoint, path string, out any) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer c.bulkhead.Release()

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.Retry(ctx, c.readPolicy, func() error {
			err := c.do(ctx, http.MethodGet, path, nil, out)
			var status *errStatus
			if errors.As(err, &status) && status.Status == http.StatusNotFound {
				// Not a transient condition; don't burn retries on it.
				return resilience.Permanent(err)
			}
			return err
		})
	})
	return c.mapError(endpoint, err)
}

// mutate runs a single-attempt mutation with bulkhead and breaker.
func (c *FinanceClient) mutate(ctx context.Context, endpoint, method, path string, payload, out any) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer c.bulkhead.Release()

	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.do(ctx, method, path, payload, out)
	})
	return c.mapError(endpoint, err)
}

// mapError converts transport-level failures into domain errors.
func (c *FinanceClient) mapError(endpoint string, err error) error {
	if err == nil {
		return nil
	}
	c.metrics.IncrUpstreamError(endpoint)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: endpoint}
	}

	var status *errStatus
	if errors.As(err, &status) && status.Status == http.StatusNotFound {
		return &domain.ErrNotFound{Resource: endpoint, ID: ""}
	}
	return &domain.ErrExternalService{Service: endpoint, Err: err}
}
