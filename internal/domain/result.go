package domain

import "encoding/json"

// GatewayError is a gateway-reported failure normalized into the shape the
// orchestrator stores and surfaces. Code and Message carry the gateway's
// canonical outcome code; Reason carries free-text detail when the gateway
// supplied any; StatusCode is the HTTP status that accompanied the response.
type GatewayError struct {
	Code       string  `json:"code"`
	Message    string  `json:"message"`
	Reason     *string `json:"reason,omitempty"`
	StatusCode int     `json:"status_code"`
}

// TransactionData is the success payload of a payment operation.
// Metadata is connector-specific and opaque to the orchestrator.
type TransactionData struct {
	TransactionID string          `json:"transaction_id"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// PaymentResult pairs the attempt status with exactly one of a transaction
// payload or a gateway error. A business failure reported by the gateway is
// a normal PaymentResult with Error set, not a Go error.
type PaymentResult struct {
	Status      AttemptStatus    `json:"status"`
	Transaction *TransactionData `json:"transaction,omitempty"`
	Error       *GatewayError    `json:"error,omitempty"`
}

// Ok reports whether the gateway accepted the operation at the business
// level. Note that Ok does not mean the payment is complete: a QR-based
// gateway accepts creation long before the payer scans.
func (r PaymentResult) Ok() bool {
	return r.Error == nil
}

// RefundResult is the unified outcome of refund creation or a refund status
// query. Status is meaningful only when Error is nil.
type RefundResult struct {
	RefundID string        `json:"refund_id,omitempty"`
	Status   RefundStatus  `json:"status,omitempty"`
	Error    *GatewayError `json:"error,omitempty"`
}

// Ok reports whether the refund call was accepted by the gateway.
func (r RefundResult) Ok() bool {
	return r.Error == nil
}
