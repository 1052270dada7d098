package connector

import (
	"errors"
	"fmt"
)

// Conversion failures fall into a small closed taxonomy. Callers match with
// errors.Is; none of these are retried by the connector layer itself.
var (
	// ErrUnsupportedPaymentMethod: the attempt's payment method cannot be
	// expressed on this gateway. The caller must route elsewhere or fail
	// the attempt.
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")

	// ErrMissingRequiredField: the upstream attempt record lacks a field
	// this gateway requires.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidAuthConfig: the stored credentials are not a shape this
	// gateway can authenticate with.
	ErrInvalidAuthConfig = errors.New("failed to obtain auth type")

	// ErrResponseHandlingFailed: the gateway signalled success but omitted
	// data required to interpret the response.
	ErrResponseHandlingFailed = errors.New("response handling failed")
)

// UnsupportedPaymentMethod names the offending method.
func UnsupportedPaymentMethod(method string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedPaymentMethod, method)
}

// MissingField names the absent field.
func MissingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingRequiredField, name)
}

// ResponseFieldAbsent reports a field the gateway was required to send but
// did not.
func ResponseFieldAbsent(name string) error {
	return fmt.Errorf("%w: %s absent in gateway response", ErrResponseHandlingFailed, name)
}
