package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/campusbite/orderflow/pkg/auth"
	"github.com/campusbite/orderflow/pkg/config"
	"github.com/campusbite/orderflow/pkg/logger"
)

const (
	pathOrders          = "/api/orders"
	pathMyOrders        = "/api/orders/my"
	pathPromoValidate   = "/api/promo/validate"
	pathPaymentInitiate = "/api/payment/initiate"
	pathReviews         = "/api/reviews"

	maxResponseBytes = 1 << 20
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("storefront unavailable")

// APIError is a 4xx answer from the order service carrying its message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront responded %d: %s", e.Status, e.Message)
}

// PublicMessage is the order service's message, safe to show the customer.
func (e *APIError) PublicMessage() string {
	return e.Message
}

// UpstreamStatus exposes the HTTP status for error dumps.
func (e *APIError) UpstreamStatus() int {
	return e.Status
}

type rawResponse struct {
	status int
	body   []byte
}

// Client talks to the storefront order service. It forwards the caller's bearer
// token and trips a circuit breaker on transport failures and 5xx answers.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[rawResponse]
	logg    *logger.Logger
}

// NewClient builds a Client from config.
func NewClient(cfg config.StorefrontConfig, logg *logger.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse storefront base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("storefront base url must be absolute")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[rawResponse](gobreaker.Settings{
		Name:        "storefront",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logg.Warn(logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}), "storefront circuit breaker state changed")
		},
	})

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		logg:    logg,
	}, nil
}

// CreateOrder posts a new order. idempotencyKey is forwarded so a retried attempt
// never creates a second order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (Order, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	var env orderEnvelope
	if err := c.do(ctx, http.MethodPost, pathOrders, req, headers, &env); err != nil {
		return Order{}, err
	}
	if !env.Success || env.Order.ID == "" {
		return Order{}, &APIError{Status: http.StatusUnprocessableEntity, Message: firstNonEmpty(env.Message, "order was not created")}
	}
	return env.Order, nil
}

// ListOrders returns the caller's orders.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var env ordersEnvelope
	if err := c.do(ctx, http.MethodGet, pathMyOrders, nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Orders, nil
}

// CancelOrder asks the order service to cancel orderID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	var env ackEnvelope
	path := pathOrders + "/" + url.PathEscape(orderID) + "/cancel"
	if err := c.do(ctx, http.MethodPut, path, nil, nil, &env); err != nil {
		return err
	}
	if !env.Success {
		return &APIError{Status: http.StatusConflict, Message: firstNonEmpty(env.Message, "order could not be cancelled")}
	}
	return nil
}

// SubmitReview posts a review for a delivered order.
func (c *Client) SubmitReview(ctx context.Context, req ReviewRequest) error {
	var env ackEnvelope
	return c.do(ctx, http.MethodPost, pathReviews, req, nil, &env)
}

// ValidatePromo checks code against orderAmount. A 4xx answer is a rejection, not an error.
func (c *Client) ValidatePromo(ctx context.Context, code string, orderAmount decimal.Decimal) (PromoResult, error) {
	var env promoEnvelope
	err := c.do(ctx, http.MethodPost, pathPromoValidate, promoRequest{Code: code, OrderAmount: Amount(orderAmount)}, nil, &env)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return PromoResult{Accepted: false, Message: apiErr.Message}, nil
	}
	if err != nil {
		return PromoResult{}, err
	}
	if !env.Success {
		return PromoResult{Accepted: false, Message: env.Message}, nil
	}
	return PromoResult{Accepted: true, Discount: env.Discount}, nil
}

// InitiatePayment asks the payment gateway for a hosted payment page URL.
func (c *Client) InitiatePayment(ctx context.Context, orderID string, amount decimal.Decimal) (string, error) {
	var env paymentEnvelope
	if err := c.do(ctx, http.MethodPost, pathPaymentInitiate, paymentRequest{OrderID: orderID, Amount: Amount(amount)}, nil, &env); err != nil {
		return "", err
	}
	if !env.Success || env.GatewayURL == "" {
		return "", &APIError{Status: http.StatusBadGateway, Message: firstNonEmpty(env.Message, "payment gateway returned no url")}
	}
	return env.GatewayURL, nil
}

// Ping checks the storefront is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return ErrUnavailable
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = encoded
	}

	res, err := c.breaker.Execute(func() (rawResponse, error) {
		return c.send(ctx, method, path, payload, headers)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return err
	}

	if res.status >= 400 {
		return &APIError{Status: res.status, Message: extractMessage(res.body, res.status)}
	}
	if out == nil || len(bytes.TrimSpace(res.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, headers map[string]string) (rawResponse, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return rawResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := auth.TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return rawResponse{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return rawResponse{}, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 500 {
		return rawResponse{}, fmt.Errorf("%s %s: upstream status %d", method, path, resp.StatusCode)
	}
	return rawResponse{status: resp.StatusCode, body: data}, nil
}

func extractMessage(body []byte, status int) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if msg := firstNonEmpty(env.Message, env.Error); msg != "" {
			return msg
		}
	}
	return http.StatusText(status)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
