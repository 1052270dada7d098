package globepay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/yourorg/payment-connectors/internal/circuitbreaker"
	"github.com/yourorg/payment-connectors/internal/connector"
	"github.com/yourorg/payment-connectors/internal/domain"
	"github.com/yourorg/payment-connectors/internal/metrics"
	"github.com/yourorg/payment-connectors/internal/monitor"
	"github.com/yourorg/payment-connectors/internal/policy"
	"github.com/yourorg/payment-connectors/internal/reporting"
)

const (
	connectorName  = "globepay"
	defaultBaseURL = "https://pay.globepay.co"
)

// Flow names key the breaker, metrics and spans.
const (
	flowAuthorize  = "authorize"
	flowSync       = "sync"
	flowRefund     = "refund"
	flowRefundSync = "refund_sync"
)

// Outbound wire schemas, enforced before a request leaves the process.
var wireSchemas = map[string]string{
	flowAuthorize: `{
		"type": "object",
		"required": ["price", "description", "currency", "channel"],
		"properties": {
			"price": {"type": "integer", "minimum": 1},
			"description": {"type": "string", "minLength": 1},
			"currency": {"type": "string", "minLength": 3, "maxLength": 3},
			"channel": {"type": "string", "enum": ["Alipay", "Wechat"]}
		},
		"additionalProperties": false
	}`,
	flowRefund: `{
		"type": "object",
		"required": ["amount"],
		"properties": {
			"amount": {"type": "integer", "minimum": 1}
		},
		"additionalProperties": false
	}`,
}

// Client implements connector.Connector for the GlobePay gateway. All
// conversions are delegated to the pure transformers; Client adds signing,
// transport, retry policy, circuit breaking and observability. A single
// Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
	retry      *policy.RetryPolicy
	breaker    *circuitbreaker.CircuitBreaker
	monitor    *monitor.WireMonitor
	metrics    *metrics.Recorder
	callLog    *reporting.CallLog
	now        func() time.Time
}

var _ connector.Connector = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the gateway base URL (tests, sandbox).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithLogger attaches a structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetryPolicy replaces the default retry rules.
func WithRetryPolicy(p *policy.RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// WithCallLog attaches a call log for retrospective reporting.
func WithCallLog(l *reporting.CallLog) Option {
	return func(c *Client) { c.callLog = l }
}

// NewClient creates a GlobePay client. A nil httpClient gets a default
// with a 10 second timeout.
func NewClient(httpClient *http.Client, opts ...Option) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	wireMonitor, err := monitor.NewWireMonitor(wireSchemas)
	if err != nil {
		return nil, fmt.Errorf("globepay: %w", err)
	}
	retry, err := policy.NewRetryPolicy(policy.DefaultRules())
	if err != nil {
		return nil, fmt.Errorf("globepay: %w", err)
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
		logger:     zap.NewNop(),
		retry:      retry,
		breaker:    circuitbreaker.New(),
		monitor:    wireMonitor,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name implements connector.Connector.
func (c *Client) Name() string {
	return connectorName
}

// Authorize creates a QR payment order.
func (c *Client) Authorize(ctx context.Context, attempt domain.PaymentAttempt) (domain.PaymentResult, error) {
	request, err := newPaymentsRequest(attempt)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	auth, err := authTypeFrom(attempt.Auth)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	path := fmt.Sprintf("/api/v1.0/gateway/partners/%s/orders/%s",
		url.PathEscape(auth.partnerCode.Expose()), url.PathEscape(attempt.PaymentID))

	body, status, err := c.call(ctx, flowAuthorize, http.MethodPut, path, auth, request)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	if status < 200 || status >= 300 {
		return c.transportFailure(flowAuthorize, body, status), nil
	}
	result, err := parsePaymentsResponse(body, status)
	c.observePayment(flowAuthorize, result, status, err)
	return result, err
}

// Sync queries the current order state.
func (c *Client) Sync(ctx context.Context, attempt domain.SyncAttempt) (domain.PaymentResult, error) {
	auth, err := authTypeFrom(attempt.Auth)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	path := fmt.Sprintf("/api/v1.0/gateway/partners/%s/orders/%s",
		url.PathEscape(auth.partnerCode.Expose()), url.PathEscape(attempt.PaymentID))

	body, status, err := c.call(ctx, flowSync, http.MethodGet, path, auth, nil)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	if status < 200 || status >= 300 {
		return c.transportFailure(flowSync, body, status), nil
	}
	result, err := parseSyncResponse(body, status)
	c.observePayment(flowSync, result, status, err)
	return result, err
}

// Refund creates a refund for an order.
func (c *Client) Refund(ctx context.Context, attempt domain.RefundAttempt) (domain.RefundResult, error) {
	auth, err := authTypeFrom(attempt.Auth)
	if err != nil {
		return domain.RefundResult{}, err
	}
	path := fmt.Sprintf("/api/v1.0/gateway/partners/%s/orders/%s/refunds/%s",
		url.PathEscape(auth.partnerCode.Expose()), url.PathEscape(attempt.PaymentID), url.PathEscape(attempt.RefundID))

	body, status, err := c.call(ctx, flowRefund, http.MethodPut, path, auth, newRefundRequest(attempt))
	if err != nil {
		return domain.RefundResult{}, err
	}
	if status < 200 || status >= 300 {
		return c.refundTransportFailure(flowRefund, body, status), nil
	}
	result, err := parseRefundResponse(body)
	c.observeRefund(flowRefund, result, status, err)
	return result, err
}

// RefundSync queries the current refund state.
func (c *Client) RefundSync(ctx context.Context, attempt domain.RefundAttempt) (domain.RefundResult, error) {
	auth, err := authTypeFrom(attempt.Auth)
	if err != nil {
		return domain.RefundResult{}, err
	}
	path := fmt.Sprintf("/api/v1.0/gateway/partners/%s/orders/%s/refunds/%s",
		url.PathEscape(auth.partnerCode.Expose()), url.PathEscape(attempt.PaymentID), url.PathEscape(attempt.RefundID))

	body, status, err := c.call(ctx, flowRefundSync, http.MethodGet, path, auth, nil)
	if err != nil {
		return domain.RefundResult{}, err
	}
	if status < 200 || status >= 300 {
		return c.refundTransportFailure(flowRefundSync, body, status), nil
	}
	result, err := parseRefundResponse(body)
	c.observeRefund(flowRefundSync, result, status, err)
	return result, err
}

// call performs one signed exchange with the gateway, retrying per the
// policy rules. It returns the raw body and HTTP status of the final
// attempt; a non-nil error means no usable response was obtained.
func (c *Client) call(ctx context.Context, flow, method, path string, auth authType, payload any) ([]byte, int, error) {
	tracer := otel.Tracer("connector/globepay")
	ctx, span := tracer.Start(ctx, "globepay."+flow)
	defer span.End()

	if !c.breaker.Allow(flow) {
		return nil, 0, fmt.Errorf("globepay: circuit open for %s", flow)
	}

	var requestBody []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("globepay: encoding %s body: %w", flow, err)
		}
		valid, issues, err := c.monitor.Validate(flow, encoded)
		if err != nil {
			return nil, 0, fmt.Errorf("globepay: %w", err)
		}
		if !valid {
			return nil, 0, fmt.Errorf("globepay: refusing to send %s request: %s", flow, monitor.FormatIssues(issues))
		}
		requestBody = encoded
	}

	start := c.now()
	var lastErr error
	for attempt := 1; ; attempt++ {
		fullURL := c.baseURL + path + "?" + c.signedQuery(auth)
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(requestBody))
		if err != nil {
			return nil, 0, fmt.Errorf("globepay: building %s request: %w", flow, err)
		}
		if requestBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			lastErr = fmt.Errorf("globepay: %s attempt %d: %w", flow, attempt, doErr)
			c.logger.Warn("gateway call failed",
				zap.String("flow", flow), zap.Int("attempt", attempt), zap.Error(doErr))
			if c.shouldRetry(flow, attempt, 0, true) {
				continue
			}
			c.breaker.RecordFailure(flow)
			return nil, 0, lastErr
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			c.breaker.RecordFailure(flow)
			return nil, 0, fmt.Errorf("globepay: reading %s response: %w", flow, readErr)
		}

		if c.shouldRetry(flow, attempt, resp.StatusCode, false) {
			c.logger.Warn("gateway answered retryable status",
				zap.String("flow", flow), zap.Int("attempt", attempt), zap.Int("http_status", resp.StatusCode))
			continue
		}

		// The breaker tracks transport health, not business outcomes: a
		// 200 carrying a business failure still counts as a healthy
		// endpoint.
		if resp.StatusCode >= 500 {
			c.breaker.RecordFailure(flow)
		} else {
			c.breaker.RecordSuccess(flow)
		}
		if c.metrics != nil {
			c.metrics.ObserveCall(connectorName, flow, resp.StatusCode, c.now().Sub(start))
		}
		return respBody, resp.StatusCode, nil
	}
}

func (c *Client) shouldRetry(flow string, attempt, httpStatus int, networkError bool) bool {
	retry, rule, err := c.retry.ShouldRetry(map[string]interface{}{
		"attempt":       attempt,
		"http_status":   httpStatus,
		"network_error": networkError,
	})
	if err != nil {
		c.logger.Error("retry policy evaluation failed", zap.String("flow", flow), zap.Error(err))
		return false
	}
	if retry {
		c.logger.Info("retrying gateway call",
			zap.String("flow", flow), zap.String("rule", rule), zap.Int("attempt", attempt))
	}
	return retry
}

// signedQuery builds the gateway's authentication query string:
// sign = hex(sha256(partnerCode + time + nonce + credentialCode)).
func (c *Client) signedQuery(auth authType) string {
	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	sum := sha256.Sum256([]byte(auth.partnerCode.Expose() + ts + nonce + auth.credentialCode.Expose()))

	q := url.Values{}
	q.Set("time", ts)
	q.Set("nonce_str", nonce)
	q.Set("sign", hex.EncodeToString(sum[:]))
	return q.Encode()
}

// transportFailure normalizes a non-2xx payment answer into a failed
// result, mirroring how business failures surface.
func (c *Client) transportFailure(flow string, body []byte, httpStatus int) domain.PaymentResult {
	gwErr := parseErrorResponse(body, httpStatus)
	c.logger.Warn("gateway rejected call",
		zap.String("flow", flow), zap.Int("http_status", httpStatus), zap.String("code", gwErr.Code))
	result := domain.PaymentResult{Status: domain.AttemptStatusFailure, Error: gwErr}
	c.observePayment(flow, result, httpStatus, nil)
	return result
}

func (c *Client) refundTransportFailure(flow string, body []byte, httpStatus int) domain.RefundResult {
	gwErr := parseErrorResponse(body, httpStatus)
	c.logger.Warn("gateway rejected refund call",
		zap.String("flow", flow), zap.Int("http_status", httpStatus), zap.String("code", gwErr.Code))
	result := domain.RefundResult{Error: gwErr}
	if c.callLog != nil {
		c.callLog.Append(reporting.CallEntry{
			Timestamp:  c.now(),
			Connector:  connectorName,
			Flow:       flow,
			ReturnCode: gwErr.Code,
			HTTPStatus: httpStatus,
		})
	}
	return result
}

func (c *Client) observePayment(flow string, result domain.PaymentResult, httpStatus int, parseErr error) {
	if parseErr != nil {
		c.logger.Error("gateway response unusable", zap.String("flow", flow), zap.Error(parseErr))
		return
	}
	returnCode := ReturnCodeSuccess.String()
	if result.Error != nil {
		returnCode = result.Error.Code
	}
	if c.metrics != nil {
		c.metrics.ObserveOutcome(connectorName, flow, returnCode)
	}
	if c.callLog != nil {
		c.callLog.Append(reporting.CallEntry{
			Timestamp:  c.now(),
			Connector:  connectorName,
			Flow:       flow,
			ReturnCode: returnCode,
			Status:     string(result.Status),
			HTTPStatus: httpStatus,
		})
	}
}

func (c *Client) observeRefund(flow string, result domain.RefundResult, httpStatus int, parseErr error) {
	if parseErr != nil {
		c.logger.Error("gateway refund response unusable", zap.String("flow", flow), zap.Error(parseErr))
		return
	}
	if c.metrics != nil {
		c.metrics.ObserveOutcome(connectorName, flow, string(result.Status))
	}
	if c.callLog != nil {
		c.callLog.Append(reporting.CallEntry{
			Timestamp:  c.now(),
			Connector:  connectorName,
			Flow:       flow,
			Status:     string(result.Status),
			HTTPStatus: httpStatus,
		})
	}
}
