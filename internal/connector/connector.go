// Package connector defines the contract every payment gateway integration
// implements, plus the error taxonomy shared across gateways.
// A connector translates the orchestrator's domain model to and from one
// gateway's wire protocol and normalizes that gateway's quirks behind the
// unified result types, so the rest of the system can treat all gateways
// opaquely.
package connector

import (
	"context"

	"github.com/yourorg/payment-connectors/internal/domain"
)

// Connector is implemented once per payment gateway.
// All methods are safe for concurrent use; implementations hold no per-call
// state. A gateway-reported business failure comes back as a failed result
// with a nil error; the error return is reserved for conversion and
// transport problems.
type Connector interface {
	// Name returns the connector's registry key, e.g. "globepay".
	Name() string

	// Authorize creates a payment at the gateway.
	Authorize(ctx context.Context, attempt domain.PaymentAttempt) (domain.PaymentResult, error)

	// Sync queries the gateway for the current state of a payment.
	Sync(ctx context.Context, attempt domain.SyncAttempt) (domain.PaymentResult, error)

	// Refund creates a refund at the gateway.
	Refund(ctx context.Context, attempt domain.RefundAttempt) (domain.RefundResult, error)

	// RefundSync queries the gateway for the current state of a refund.
	RefundSync(ctx context.Context, attempt domain.RefundAttempt) (domain.RefundResult, error)
}
