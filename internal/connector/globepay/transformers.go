// Package globepay integrates the GlobePay QR-code gateway (Alipay and
// Wechat wallet channels). transformers.go holds the pure conversions
// between the orchestrator's domain model and the gateway wire shapes;
// client.go is the only place that performs I/O.
package globepay

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/yourorg/payment-connectors/internal/connector"
	"github.com/yourorg/payment-connectors/internal/domain"
)

// Channel is the gateway-side wallet selector. The wire values use the
// gateway's own casing.
type Channel string

const (
	ChannelAlipay Channel = "Alipay"
	ChannelWechat Channel = "Wechat"
)

// paymentsRequest is the order-creation body.
type paymentsRequest struct {
	Price       int64           `json:"price"`
	Description string          `json:"description"`
	Currency    domain.Currency `json:"currency"`
	Channel     Channel         `json:"channel"`
}

// newPaymentsRequest maps an authorize attempt onto the creation body.
// Amount and currency are copied verbatim.
func newPaymentsRequest(attempt domain.PaymentAttempt) (paymentsRequest, error) {
	channel, err := channelFor(attempt.Method)
	if err != nil {
		return paymentsRequest{}, err
	}
	if attempt.Description == nil || *attempt.Description == "" {
		return paymentsRequest{}, connector.MissingField("description")
	}
	return paymentsRequest{
		Price:       attempt.Amount,
		Description: *attempt.Description,
		Currency:    attempt.Currency,
		Channel:     channel,
	}, nil
}

func channelFor(method domain.PaymentMethodData) (Channel, error) {
	if method.Type != domain.PaymentMethodWallet {
		return "", connector.UnsupportedPaymentMethod(method.Label())
	}
	switch method.Wallet {
	case domain.WalletAliPay:
		return ChannelAlipay, nil
	case domain.WalletWeChatPay:
		return ChannelWechat, nil
	default:
		return "", connector.UnsupportedPaymentMethod(method.Label())
	}
}

// authType holds the partner credentials the gateway signs with.
type authType struct {
	partnerCode    domain.Secret
	credentialCode domain.Secret
}

// authTypeFrom accepts only the API-key + secondary-key credential shape:
// the key becomes the partner code, the secondary key the credential code.
func authTypeFrom(cfg domain.AuthConfig) (authType, error) {
	if cfg.Kind != domain.AuthBodyKey {
		return authType{}, connector.ErrInvalidAuthConfig
	}
	return authType{
		partnerCode:    cfg.APIKey,
		credentialCode: cfg.Key1,
	}, nil
}

// ReturnCode is the gateway-level outcome code present on every payment
// response. It is the authoritative success signal: the gateway answers
// HTTP 200 even for business failures, so HTTP status must not be trusted.
type ReturnCode string

const (
	ReturnCodeSuccess          ReturnCode = "SUCCESS"
	ReturnCodeOrderNotExist    ReturnCode = "ORDER_NOT_EXIST"
	ReturnCodeOrderMismatch    ReturnCode = "ORDER_MISMATCH"
	ReturnCodeSystemError      ReturnCode = "SYSTEMERROR"
	ReturnCodeInvalidShortID   ReturnCode = "INVALID_SHORT_ID"
	ReturnCodeSignTimeout      ReturnCode = "SIGN_TIMEOUT"
	ReturnCodeInvalidSign      ReturnCode = "INVALID_SIGN"
	ReturnCodeParamInvalid     ReturnCode = "PARAM_INVALID"
	ReturnCodeNotPermitted     ReturnCode = "NOT_PERMITTED"
	ReturnCodeInvalidChannel   ReturnCode = "INVALID_CHANNEL"
	ReturnCodeDuplicateOrderID ReturnCode = "DUPLICATE_ORDER_ID"
)

var knownReturnCodes = map[ReturnCode]struct{}{
	ReturnCodeSuccess:          {},
	ReturnCodeOrderNotExist:    {},
	ReturnCodeOrderMismatch:    {},
	ReturnCodeSystemError:      {},
	ReturnCodeInvalidShortID:   {},
	ReturnCodeSignTimeout:      {},
	ReturnCodeInvalidSign:      {},
	ReturnCodeParamInvalid:     {},
	ReturnCodeNotPermitted:     {},
	ReturnCodeInvalidChannel:   {},
	ReturnCodeDuplicateOrderID: {},
}

func (c ReturnCode) String() string {
	return string(c)
}

// UnmarshalJSON rejects codes outside the documented set so an unmapped
// gateway state surfaces as a handling failure instead of leaking through
// as an open string.
func (c *ReturnCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	code := ReturnCode(s)
	if _, ok := knownReturnCodes[code]; !ok {
		return fmt.Errorf("%w: unknown return_code %q", connector.ErrResponseHandlingFailed, s)
	}
	*c = code
	return nil
}

// paymentStatus is the result_code reported on order creation.
type paymentStatus string

const (
	paymentStatusSuccess paymentStatus = "SUCCESS"
	paymentStatusExists  paymentStatus = "EXISTS"
)

func (s *paymentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch status := paymentStatus(raw); status {
	case paymentStatusSuccess, paymentStatusExists:
		*s = status
		return nil
	default:
		return fmt.Errorf("%w: unknown result_code %q", connector.ErrResponseHandlingFailed, raw)
	}
}

// attemptStatus maps creation result codes to the canonical lifecycle.
// The gateway only has redirection flows, so SUCCESS means the order was
// created and the payer still has to scan the QR code out-of-band, so it
// maps to AuthenticationPending, not Charged.
// ref: https://pay.globepay.co/docs/en/#api-QRCode-NewQRCode
func (s paymentStatus) attemptStatus() domain.AttemptStatus {
	switch s {
	case paymentStatusSuccess:
		return domain.AttemptStatusAuthenticationPending
	case paymentStatusExists: // duplicate order
		return domain.AttemptStatusFailure
	default:
		return domain.AttemptStatusFailure
	}
}

// connectorMetadata is serialized into the orchestrator's opaque metadata
// slot on successful creation. Downstream renders the QR image from it.
type connectorMetadata struct {
	ImageDataURL string `json:"image_data_url"`
}

// paymentsResponse is the creation response. Every field except return_code
// is optional because the gateway omits them on failure paths.
type paymentsResponse struct {
	ResultCode *paymentStatus `json:"result_code,omitempty"`
	OrderID    *string        `json:"order_id,omitempty"`
	QrcodeImg  *string        `json:"qrcode_img,omitempty"`
	ReturnCode ReturnCode     `json:"return_code"`
	ReturnMsg  *string        `json:"return_msg,omitempty"`
}

// parsePaymentsResponse interprets a raw creation response plus the HTTP
// status that accompanied it.
func parsePaymentsResponse(body []byte, httpStatus int) (domain.PaymentResult, error) {
	var resp paymentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PaymentResult{}, fmt.Errorf("%w: %v", connector.ErrResponseHandlingFailed, err)
	}
	return resp.result(httpStatus)
}

func (r paymentsResponse) result(httpStatus int) (domain.PaymentResult, error) {
	if r.ReturnCode == "" {
		return domain.PaymentResult{}, connector.ResponseFieldAbsent("return_code")
	}
	if r.ReturnCode != ReturnCodeSuccess {
		return businessFailure(r.ReturnCode, r.ReturnMsg, httpStatus), nil
	}
	if r.ResultCode == nil {
		return domain.PaymentResult{}, connector.ResponseFieldAbsent("result_code")
	}
	if r.OrderID == nil {
		return domain.PaymentResult{}, connector.ResponseFieldAbsent("order_id")
	}
	if r.QrcodeImg == nil {
		return domain.PaymentResult{}, connector.ResponseFieldAbsent("qrcode_img")
	}
	imageURL, err := url.Parse(*r.QrcodeImg)
	if err != nil || !imageURL.IsAbs() {
		return domain.PaymentResult{}, fmt.Errorf("%w: qrcode_img is not a valid URL", connector.ErrResponseHandlingFailed)
	}
	metadata, err := json.Marshal(connectorMetadata{ImageDataURL: imageURL.String()})
	if err != nil {
		return domain.PaymentResult{}, fmt.Errorf("%w: %v", connector.ErrResponseHandlingFailed, err)
	}
	return domain.PaymentResult{
		Status: r.ResultCode.attemptStatus(),
		Transaction: &domain.TransactionData{
			TransactionID: *r.OrderID,
			Metadata:      metadata,
		},
	}, nil
}

// businessFailure normalizes a non-success return code. The code's string
// rendering serves as both code and message; the gateway's free text, when
// present, becomes the reason.
func businessFailure(code ReturnCode, msg *string, httpStatus int) domain.PaymentResult {
	return domain.PaymentResult{
		Status: domain.AttemptStatusFailure,
		Error: &domain.GatewayError{
			Code:       code.String(),
			Message:    code.String(),
			Reason:     msg,
			StatusCode: httpStatus,
		},
	}
}

// syncStatus is the result_code reported by the payment status query.
type syncStatus string

const (
	syncStatusPaying     syncStatus = "PAYING"
	syncStatusCreateFail syncStatus = "CREATE_FAIL"
	syncStatusClosed     syncStatus = "CLOSED"
	syncStatusPayFail    syncStatus = "PAY_FAIL"
	syncStatusPaySuccess syncStatus = "PAY_SUCCESS"
)

func (s *syncStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch status := syncStatus(raw); status {
	case syncStatusPaying, syncStatusCreateFail, syncStatusClosed, syncStatusPayFail, syncStatusPaySuccess:
		*s = status
		return nil
	default:
		return fmt.Errorf("%w: unknown result_code %q", connector.ErrResponseHandlingFailed, raw)
	}
}

func (s syncStatus) attemptStatus() domain.AttemptStatus {
	switch s {
	case syncStatusPaySuccess:
		return domain.AttemptStatusCharged
	case syncStatusPayFail, syncStatusCreateFail, syncStatusClosed:
		return domain.AttemptStatusFailure
	case syncStatusPaying:
		return domain.AttemptStatusAuthenticationPending
	default:
		return domain.AttemptStatusFailure
	}
}

// syncResponse is structurally parallel to paymentsResponse but with the
// five-valued sync status and no QR URL.
type syncResponse struct {
	ResultCode *syncStatus `json:"result_code,omitempty"`
	OrderID    *string     `json:"order_id,omitempty"`
	ReturnCode ReturnCode  `json:"return_code"`
	ReturnMsg  *string     `json:"return_msg,omitempty"`
}

func parseSyncResponse(body []byte, httpStatus int) (domain.PaymentResult, error) {
	var resp syncResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PaymentResult{}, fmt.Errorf("%w: %v", connector.ErrResponseHandlingFailed, err)
	}
	return resp.result(httpStatus)
}

func (r syncResponse) result(httpStatus int) (domain.PaymentResult, error) {
	if r.ReturnCode == "" {
		return domain.PaymentResult{}, connector.ResponseFieldAbsent("return_code")
	}
	if r.ReturnCode != ReturnCodeSuccess {
		return businessFailure(r.ReturnCode, r.ReturnMsg, httpStatus), nil
	}
	if r.ResultCode == nil {
		return domain.PaymentResult{}, connector.ResponseFieldAbsent("result_code")
	}
	if r.OrderID == nil {
		return domain.PaymentResult{}, connector.ResponseFieldAbsent("order_id")
	}
	return domain.PaymentResult{
		Status: r.ResultCode.attemptStatus(),
		Transaction: &domain.TransactionData{
			TransactionID: *r.OrderID,
		},
	}, nil
}

// refundRequest is the refund-creation body. Building it cannot fail.
type refundRequest struct {
	Amount int64 `json:"amount"`
}

func newRefundRequest(attempt domain.RefundAttempt) refundRequest {
	return refundRequest{Amount: attempt.Amount}
}

// refundState is the gateway's three-valued refund status. Processing is
// also the default when the field is absent or carries an unrecognized
// value; callers treating a refund as terminal must wait for a concrete
// Succeeded or Failed.
type refundState string

const (
	refundStateSucceeded  refundState = "Succeeded"
	refundStateFailed     refundState = "Failed"
	refundStateProcessing refundState = "Processing"
)

func (s *refundState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch state := refundState(raw); state {
	case refundStateSucceeded, refundStateFailed, refundStateProcessing:
		*s = state
	default:
		*s = refundStateProcessing
	}
	return nil
}

func (s refundState) refundStatus() domain.RefundStatus {
	switch s {
	case refundStateSucceeded:
		return domain.RefundStatusSuccess
	case refundStateFailed:
		return domain.RefundStatusFailure
	default: // Processing, absent, or unrecognized
		return domain.RefundStatusPending
	}
}

// refundResponse covers both refund creation and the refund status query;
// the refund endpoints return a flat payload without the return_code
// envelope.
type refundResponse struct {
	ID     string      `json:"id"`
	Status refundState `json:"status"`
}

func parseRefundResponse(body []byte) (domain.RefundResult, error) {
	var resp refundResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.RefundResult{}, fmt.Errorf("%w: %v", connector.ErrResponseHandlingFailed, err)
	}
	if resp.ID == "" {
		return domain.RefundResult{}, connector.ResponseFieldAbsent("id")
	}
	return domain.RefundResult{
		RefundID: resp.ID,
		Status:   resp.Status.refundStatus(),
	}, nil
}

// errorResponse is the flat error body the gateway sends on non-2xx
// answers.
type errorResponse struct {
	ReturnMsg  string     `json:"return_msg"`
	ReturnCode ReturnCode `json:"return_code"`
	Message    string     `json:"message"`
}

// parseErrorResponse normalizes a non-2xx gateway answer. When the body is
// not the documented error shape, the HTTP status alone is reported.
func parseErrorResponse(body []byte, httpStatus int) *domain.GatewayError {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.ReturnCode == "" {
		return &domain.GatewayError{
			Code:       fmt.Sprintf("HTTP_%d", httpStatus),
			Message:    "could not process gateway response",
			StatusCode: httpStatus,
		}
	}
	gwErr := &domain.GatewayError{
		Code:       resp.ReturnCode.String(),
		Message:    resp.Message,
		StatusCode: httpStatus,
	}
	if gwErr.Message == "" {
		gwErr.Message = resp.ReturnCode.String()
	}
	if resp.ReturnMsg != "" {
		reason := resp.ReturnMsg
		gwErr.Reason = &reason
	}
	return gwErr
}
