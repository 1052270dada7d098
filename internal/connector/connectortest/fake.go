// Package connectortest provides a configurable fake connector for tests.
package connectortest

import (
	"context"

	"github.com/yourorg/payment-connectors/internal/connector"
	"github.com/yourorg/payment-connectors/internal/domain"
)

// Fake implements connector.Connector. Each operation calls its func field
// when set and otherwise returns a default pending-but-accepted result.
type Fake struct {
	ConnectorName  string
	AuthorizeFunc  func(ctx context.Context, attempt domain.PaymentAttempt) (domain.PaymentResult, error)
	SyncFunc       func(ctx context.Context, attempt domain.SyncAttempt) (domain.PaymentResult, error)
	RefundFunc     func(ctx context.Context, attempt domain.RefundAttempt) (domain.RefundResult, error)
	RefundSyncFunc func(ctx context.Context, attempt domain.RefundAttempt) (domain.RefundResult, error)
}

var _ connector.Connector = (*Fake)(nil)

// New creates a Fake with the given registry name.
func New(name string) *Fake {
	return &Fake{ConnectorName: name}
}

func (f *Fake) Name() string {
	return f.ConnectorName
}

func (f *Fake) Authorize(ctx context.Context, attempt domain.PaymentAttempt) (domain.PaymentResult, error) {
	if f.AuthorizeFunc != nil {
		return f.AuthorizeFunc(ctx, attempt)
	}
	return domain.PaymentResult{
		Status:      domain.AttemptStatusAuthenticationPending,
		Transaction: &domain.TransactionData{TransactionID: "fake-" + attempt.PaymentID},
	}, nil
}

func (f *Fake) Sync(ctx context.Context, attempt domain.SyncAttempt) (domain.PaymentResult, error) {
	if f.SyncFunc != nil {
		return f.SyncFunc(ctx, attempt)
	}
	return domain.PaymentResult{
		Status:      domain.AttemptStatusCharged,
		Transaction: &domain.TransactionData{TransactionID: "fake-" + attempt.PaymentID},
	}, nil
}

func (f *Fake) Refund(ctx context.Context, attempt domain.RefundAttempt) (domain.RefundResult, error) {
	if f.RefundFunc != nil {
		return f.RefundFunc(ctx, attempt)
	}
	return domain.RefundResult{RefundID: attempt.RefundID, Status: domain.RefundStatusPending}, nil
}

func (f *Fake) RefundSync(ctx context.Context, attempt domain.RefundAttempt) (domain.RefundResult, error) {
	if f.RefundSyncFunc != nil {
		return f.RefundSyncFunc(ctx, attempt)
	}
	return domain.RefundResult{RefundID: attempt.RefundID, Status: domain.RefundStatusSuccess}, nil
}
