package domain

// AttemptStatus is the canonical payment-lifecycle state shared by every
// connector.
type AttemptStatus string

const (
	// AttemptStatusAuthenticationPending means the payer still has to
	// complete an out-of-band step (redirect, QR scan) before the payment
	// can settle.
	AttemptStatusAuthenticationPending AttemptStatus = "authentication_pending"
	AttemptStatusCharged               AttemptStatus = "charged"
	AttemptStatusFailure               AttemptStatus = "failure"
	AttemptStatusPending               AttemptStatus = "pending"
)

// RefundStatus is the canonical refund-lifecycle state.
type RefundStatus string

const (
	RefundStatusSuccess RefundStatus = "success"
	RefundStatusFailure RefundStatus = "failure"
	RefundStatusPending RefundStatus = "pending"
)
