package domain

// Secret wraps a sensitive string (API keys, gateway credentials) so it
// cannot leak through fmt verbs, structured logs, or JSON encoding.
// The plaintext is only reachable through Expose.
type Secret struct {
	value string
}

// NewSecret wraps a plaintext credential.
func NewSecret(v string) Secret {
	return Secret{value: v}
}

// Expose returns the wrapped plaintext. Call sites should be limited to
// request signing and outbound authentication.
func (s Secret) Expose() string {
	return s.value
}

// IsZero reports whether the secret was never set.
func (s Secret) IsZero() bool {
	return s.value == ""
}

func (s Secret) String() string {
	return "***"
}

func (s Secret) GoString() string {
	return "domain.Secret{***}"
}

// MarshalJSON always emits a redacted placeholder.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"***"`), nil
}
