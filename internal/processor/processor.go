// Package processor dispatches orchestrator operations to registered
// connectors. It is the surface the orchestrator's router talks to; the
// router itself (routing decisions, state machine) lives outside this
// module.
package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourorg/payment-connectors/internal/connector"
	"github.com/yourorg/payment-connectors/internal/domain"
)

// ErrConnectorNotFound is returned when no connector is registered under
// the requested name.
var ErrConnectorNotFound = errors.New("connector not found")

// Processor holds the connector registry.
type Processor struct {
	connectors map[string]connector.Connector
}

// New creates a Processor over the given registry.
func New(registry map[string]connector.Connector) *Processor {
	if registry == nil {
		panic("connector registry cannot be nil")
	}
	return &Processor{connectors: registry}
}

func (p *Processor) lookup(name string) (connector.Connector, error) {
	c, ok := p.connectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectorNotFound, name)
	}
	return c, nil
}

// Authorize dispatches a payment creation to the named connector.
func (p *Processor) Authorize(ctx context.Context, name string, attempt domain.PaymentAttempt) (domain.PaymentResult, error) {
	c, err := p.lookup(name)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	return c.Authorize(ctx, attempt)
}

// Sync dispatches a payment status query to the named connector.
func (p *Processor) Sync(ctx context.Context, name string, attempt domain.SyncAttempt) (domain.PaymentResult, error) {
	c, err := p.lookup(name)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	return c.Sync(ctx, attempt)
}

// Refund dispatches a refund creation to the named connector.
func (p *Processor) Refund(ctx context.Context, name string, attempt domain.RefundAttempt) (domain.RefundResult, error) {
	c, err := p.lookup(name)
	if err != nil {
		return domain.RefundResult{}, err
	}
	return c.Refund(ctx, attempt)
}

// RefundSync dispatches a refund status query to the named connector.
func (p *Processor) RefundSync(ctx context.Context, name string, attempt domain.RefundAttempt) (domain.RefundResult, error) {
	c, err := p.lookup(name)
	if err != nil {
		return domain.RefundResult{}, err
	}
	return c.RefundSync(ctx, attempt)
}
