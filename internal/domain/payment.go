// Package domain holds the orchestrator's connector-agnostic payment model.
// Connector implementations translate between these types and a gateway's
// wire protocol; nothing in this package performs I/O or holds state beyond
// a single request/response cycle.
package domain

import "fmt"

// Currency is an ISO 4217 alphabetic code, e.g. "CNY".
type Currency string

// PaymentMethodType is the top-level payment method family.
type PaymentMethodType string

const (
	PaymentMethodWallet       PaymentMethodType = "wallet"
	PaymentMethodCard         PaymentMethodType = "card"
	PaymentMethodBankTransfer PaymentMethodType = "bank_transfer"
)

// WalletKind identifies a wallet inside the generic wallet payment method.
type WalletKind string

const (
	WalletAliPay    WalletKind = "ali_pay"
	WalletWeChatPay WalletKind = "we_chat_pay"
	WalletPaypal    WalletKind = "paypal"
	WalletGooglePay WalletKind = "google_pay"
)

// PaymentMethodData carries the payment method selected for an attempt.
// Wallet is only meaningful when Type is PaymentMethodWallet.
type PaymentMethodData struct {
	Type   PaymentMethodType
	Wallet WalletKind
}

// Label renders the method for error messages, e.g. "wallet/ali_pay".
func (m PaymentMethodData) Label() string {
	if m.Type == PaymentMethodWallet && m.Wallet != "" {
		return fmt.Sprintf("%s/%s", m.Type, m.Wallet)
	}
	return string(m.Type)
}

// AuthKind discriminates the shapes a connector's credentials can take.
type AuthKind string

const (
	// AuthBodyKey carries an API key plus a secondary key.
	AuthBodyKey AuthKind = "body_key"
	// AuthHeaderKey carries a single API key sent as a header.
	AuthHeaderKey AuthKind = "header_key"
	// AuthSignatureKey carries an API key plus a signing secret.
	AuthSignatureKey AuthKind = "signature_key"
)

// AuthConfig is the generic credential variant stored per connector.
// Which fields are populated depends on Kind; each connector accepts only
// the shapes it can authenticate with.
type AuthConfig struct {
	Kind      AuthKind
	APIKey    Secret
	Key1      Secret
	APISecret Secret
}

// PaymentAttempt is the orchestrator's view of a single authorize attempt.
// Amount is in the smallest currency unit.
type PaymentAttempt struct {
	PaymentID   string
	Amount      int64
	Currency    Currency
	Description *string
	Method      PaymentMethodData
	Auth        AuthConfig
}

// SyncAttempt asks a connector for the current state of a payment.
type SyncAttempt struct {
	PaymentID string
	Auth      AuthConfig
}

// RefundAttempt is the orchestrator's view of a refund, for both creation
// and status queries. Amount is in the smallest currency unit.
type RefundAttempt struct {
	PaymentID string
	RefundID  string
	Amount    int64
	Auth      AuthConfig
}
