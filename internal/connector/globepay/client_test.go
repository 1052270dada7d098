package globepay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-connectors/internal/connector"
	"github.com/yourorg/payment-connectors/internal/domain"
	"github.com/yourorg/payment-connectors/internal/policy"
	"github.com/yourorg/payment-connectors/internal/reporting"
)

func testAuth() domain.AuthConfig {
	return domain.AuthConfig{
		Kind:   domain.AuthBodyKey,
		APIKey: domain.NewSecret("partner123"),
		Key1:   domain.NewSecret("cred456"),
	}
}

func testClient(t *testing.T, serverURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithBaseURL(serverURL)}, opts...)
	client, err := NewClient(nil, opts...)
	require.NoError(t, err)
	return client
}

// assertSignedQuery recomputes the signature from the query parameters the
// client sent and the known credentials.
func assertSignedQuery(t *testing.T, r *http.Request) {
	t.Helper()
	q := r.URL.Query()
	ts := q.Get("time")
	nonce := q.Get("nonce_str")
	sign := q.Get("sign")
	require.NotEmpty(t, ts)
	require.NotEmpty(t, nonce)
	require.NotEmpty(t, sign)

	sum := sha256.Sum256([]byte("partner123" + ts + nonce + "cred456"))
	assert.Equal(t, hex.EncodeToString(sum[:]), sign)
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(nil)
	require.NoError(t, err)
	assert.Equal(t, "globepay", client.Name())
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, defaultBaseURL, client.baseURL)
}

func TestClientAuthorize_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1.0/gateway/partners/partner123/orders/pay_1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assertSignedQuery(t, r)

		body, _ := io.ReadAll(r.Body)
		var sent map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &sent))
		assert.Equal(t, float64(1000), sent["price"])
		assert.Equal(t, "order-1", sent["description"])
		assert.Equal(t, "CNY", sent["currency"])
		assert.Equal(t, "Alipay", sent["channel"])

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"return_code": "SUCCESS",
			"result_code": "SUCCESS",
			"order_id":    "ord_1",
			"qrcode_img":  "https://example.com/qr.png",
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	attempt := walletAttempt(domain.WalletAliPay)
	attempt.Auth = testAuth()

	result, err := client.Authorize(context.Background(), attempt)
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStatusAuthenticationPending, result.Status)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, "ord_1", result.Transaction.TransactionID)
}

func TestClientAuthorize_BusinessFailureOn200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"return_code": "DUPLICATE_ORDER_ID",
			"return_msg":  "order already submitted",
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	attempt := walletAttempt(domain.WalletWeChatPay)
	attempt.Auth = testAuth()

	result, err := client.Authorize(context.Background(), attempt)
	require.NoError(t, err, "business failures are results, not errors")
	assert.Equal(t, domain.AttemptStatusFailure, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, "DUPLICATE_ORDER_ID", result.Error.Code)
	assert.Equal(t, 200, result.Error.StatusCode)
}

func TestClientAuthorize_ConversionErrorsSkipTransport(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	attempt := walletAttempt(domain.WalletPaypal)
	attempt.Auth = testAuth()
	_, err := client.Authorize(context.Background(), attempt)
	assert.ErrorIs(t, err, connector.ErrUnsupportedPaymentMethod)

	attempt = walletAttempt(domain.WalletAliPay)
	attempt.Auth = domain.AuthConfig{Kind: domain.AuthSignatureKey}
	_, err = client.Authorize(context.Background(), attempt)
	assert.ErrorIs(t, err, connector.ErrInvalidAuthConfig)

	assert.False(t, called, "no request should reach the gateway")
}

func TestClientAuthorize_RetriesServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"return_code": "SUCCESS",
			"result_code": "SUCCESS",
			"order_id":    "ord_retry",
			"qrcode_img":  "https://example.com/qr.png",
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	attempt := walletAttempt(domain.WalletAliPay)
	attempt.Auth = testAuth()

	result, err := client.Authorize(context.Background(), attempt)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, "ord_retry", result.Transaction.TransactionID)
}

func TestClientAuthorize_NonSuccessHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"return_code": "INVALID_SIGN",
			"return_msg":  "signature mismatch",
			"message":     "authentication failed",
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	attempt := walletAttempt(domain.WalletAliPay)
	attempt.Auth = testAuth()

	result, err := client.Authorize(context.Background(), attempt)
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStatusFailure, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, "INVALID_SIGN", result.Error.Code)
	assert.Equal(t, "authentication failed", result.Error.Message)
	assert.Equal(t, 401, result.Error.StatusCode)
}

func TestClientSync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1.0/gateway/partners/partner123/orders/pay_1", r.URL.Path)
		assertSignedQuery(t, r)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"return_code": "SUCCESS",
			"result_code": "PAY_SUCCESS",
			"order_id":    "ord_1",
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	result, err := client.Sync(context.Background(), domain.SyncAttempt{PaymentID: "pay_1", Auth: testAuth()})
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStatusCharged, result.Status)
	require.NotNil(t, result.Transaction)
	assert.Nil(t, result.Transaction.Metadata)
}

func TestClientRefundAndRefundSync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1.0/gateway/partners/partner123/orders/pay_1/refunds/ref_1", r.URL.Path)
		assertSignedQuery(t, r)

		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"amount":250}`, string(body))
			json.NewEncoder(w).Encode(map[string]string{"id": "ref_1", "status": "Processing"})
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]string{"id": "ref_1", "status": "Succeeded"})
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	attempt := domain.RefundAttempt{PaymentID: "pay_1", RefundID: "ref_1", Amount: 250, Auth: testAuth()}

	created, err := client.Refund(context.Background(), attempt)
	require.NoError(t, err)
	assert.Equal(t, "ref_1", created.RefundID)
	assert.Equal(t, domain.RefundStatusPending, created.Status)

	synced, err := client.RefundSync(context.Background(), attempt)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusSuccess, synced.Status)
}

func TestClientCircuitOpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // every call is a connection error

	noRetry, err := policy.NewRetryPolicy(nil)
	require.NoError(t, err)
	client := testClient(t, server.URL, WithRetryPolicy(noRetry))

	attempt := domain.SyncAttempt{PaymentID: "pay_1", Auth: testAuth()}
	for i := 0; i < 5; i++ {
		_, err := client.Sync(context.Background(), attempt)
		require.Error(t, err)
	}

	_, err = client.Sync(context.Background(), attempt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}

func TestClientRecordsCallLog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"return_code": "ORDER_NOT_EXIST",
			"return_msg":  "not found",
		})
	}))
	defer server.Close()

	callLog := reporting.NewCallLog(16)
	client := testClient(t, server.URL, WithCallLog(callLog))

	_, err := client.Sync(context.Background(), domain.SyncAttempt{PaymentID: "pay_x", Auth: testAuth()})
	require.NoError(t, err)

	entries := callLog.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "globepay", entries[0].Connector)
	assert.Equal(t, "sync", entries[0].Flow)
	assert.Equal(t, "ORDER_NOT_EXIST", entries[0].ReturnCode)
	assert.Equal(t, 200, entries[0].HTTPStatus)
}
