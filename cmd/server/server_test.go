package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/payment-connectors/internal/connector"
	"github.com/yourorg/payment-connectors/internal/connector/connectortest"
	"github.com/yourorg/payment-connectors/internal/domain"
	"github.com/yourorg/payment-connectors/internal/processor"
	"github.com/yourorg/payment-connectors/internal/reporting"
)

func newTestServer(fake *connectortest.Fake) *gin.Engine {
	gin.SetMode(gin.TestMode)
	proc := processor.New(map[string]connector.Connector{fake.ConnectorName: fake})
	srv := &server{
		proc:    proc,
		auth:    domain.AuthConfig{Kind: domain.AuthBodyKey, APIKey: domain.NewSecret("partner"), Key1: domain.NewSecret("credential")},
		callLog: reporting.NewCallLog(16),
		logger:  zap.NewNop(),
	}
	return setupRouter(srv)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreatePayment(t *testing.T) {
	fake := connectortest.New("globepay")
	var captured domain.PaymentAttempt
	fake.AuthorizeFunc = func(ctx context.Context, attempt domain.PaymentAttempt) (domain.PaymentResult, error) {
		captured = attempt
		return domain.PaymentResult{
			Status:      domain.AttemptStatusAuthenticationPending,
			Transaction: &domain.TransactionData{TransactionID: attempt.PaymentID},
		}, nil
	}
	router := newTestServer(fake)

	w := doJSON(t, router, http.MethodPost, "/payments",
		`{"payment_id": "pay_1", "amount": 1500, "currency": "GBP", "description": "coffee", "wallet": "ali_pay"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pay_1", captured.PaymentID)
	assert.Equal(t, int64(1500), captured.Amount)
	assert.Equal(t, domain.Currency("GBP"), captured.Currency)
	require.NotNil(t, captured.Description)
	assert.Equal(t, "coffee", *captured.Description)
	assert.Equal(t, domain.WalletAliPay, captured.Method.Wallet)
	assert.Equal(t, "partner", captured.Auth.APIKey.Expose())

	var resp struct {
		PaymentID string `json:"payment_id"`
		Result    struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pay_1", resp.PaymentID)
	assert.Equal(t, "authentication_pending", resp.Result.Status)
}

func TestCreatePayment_GeneratesID(t *testing.T) {
	fake := connectortest.New("globepay")
	router := newTestServer(fake)

	w := doJSON(t, router, http.MethodPost, "/payments",
		`{"amount": 100, "currency": "USD", "wallet": "we_chat_pay"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["payment_id"])
}

func TestCreatePayment_BadBody(t *testing.T) {
	router := newTestServer(connectortest.New("globepay"))

	w := doJSON(t, router, http.MethodPost, "/payments", `{"amount": -5, "currency": "USD", "wallet": "ali_pay"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/payments", `{"amount": 100, "wallet": "ali_pay"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePayment_UnsupportedMethod(t *testing.T) {
	fake := connectortest.New("globepay")
	fake.AuthorizeFunc = func(ctx context.Context, attempt domain.PaymentAttempt) (domain.PaymentResult, error) {
		return domain.PaymentResult{}, connector.UnsupportedPaymentMethod(attempt.Method.Label())
	}
	router := newTestServer(fake)

	w := doJSON(t, router, http.MethodPost, "/payments",
		`{"amount": 100, "currency": "USD", "wallet": "paypal"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "wallet/paypal")
}

func TestCreatePayment_UnknownConnector(t *testing.T) {
	router := newTestServer(connectortest.New("globepay"))

	w := doJSON(t, router, http.MethodPost, "/payments",
		`{"amount": 100, "currency": "USD", "wallet": "ali_pay", "connector": "adyen"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePayment_ResponseHandlingFailure(t *testing.T) {
	fake := connectortest.New("globepay")
	fake.AuthorizeFunc = func(ctx context.Context, attempt domain.PaymentAttempt) (domain.PaymentResult, error) {
		return domain.PaymentResult{}, connector.ResponseFieldAbsent("order_id")
	}
	router := newTestServer(fake)

	w := doJSON(t, router, http.MethodPost, "/payments",
		`{"amount": 100, "currency": "USD", "wallet": "ali_pay"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "could not process gateway response")
}

func TestSyncPayment(t *testing.T) {
	fake := connectortest.New("globepay")
	fake.SyncFunc = func(ctx context.Context, attempt domain.SyncAttempt) (domain.PaymentResult, error) {
		assert.Equal(t, "pay_42", attempt.PaymentID)
		return domain.PaymentResult{Status: domain.AttemptStatusCharged}, nil
	}
	router := newTestServer(fake)

	w := doJSON(t, router, http.MethodGet, "/payments/pay_42", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"charged"`)
}

func TestRefundRoutes(t *testing.T) {
	fake := connectortest.New("globepay")
	fake.RefundFunc = func(ctx context.Context, attempt domain.RefundAttempt) (domain.RefundResult, error) {
		assert.Equal(t, "pay_42", attempt.PaymentID)
		assert.Equal(t, int64(250), attempt.Amount)
		return domain.RefundResult{RefundID: attempt.RefundID, Status: domain.RefundStatusPending}, nil
	}
	fake.RefundSyncFunc = func(ctx context.Context, attempt domain.RefundAttempt) (domain.RefundResult, error) {
		assert.Equal(t, "ref_7", attempt.RefundID)
		return domain.RefundResult{RefundID: attempt.RefundID, Status: domain.RefundStatusSuccess}, nil
	}
	router := newTestServer(fake)

	w := doJSON(t, router, http.MethodPost, "/payments/pay_42/refunds",
		`{"refund_id": "ref_7", "amount": 250}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pending"`)

	w = doJSON(t, router, http.MethodGet, "/payments/pay_42/refunds/ref_7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success"`)
}

func TestCallReport(t *testing.T) {
	router := newTestServer(connectortest.New("globepay"))

	w := doJSON(t, router, http.MethodGet, "/reports/calls", "")
	require.Equal(t, http.StatusOK, w.Code)
	var report reporting.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 0, report.TotalCalls)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestServer(connectortest.New("globepay"))

	w := doJSON(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
