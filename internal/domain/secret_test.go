package domain

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretNeverPrintsPlaintext(t *testing.T) {
	secret := NewSecret("sk_live_supersecret")

	assert.Equal(t, "***", secret.String())
	assert.NotContains(t, fmt.Sprintf("%v", secret), "supersecret")
	assert.NotContains(t, fmt.Sprintf("%+v", secret), "supersecret")
	assert.NotContains(t, fmt.Sprintf("%s", secret), "supersecret")
	assert.NotContains(t, fmt.Sprintf("%#v", secret), "supersecret")
}

func TestSecretJSONRedaction(t *testing.T) {
	auth := AuthConfig{
		Kind:   AuthBodyKey,
		APIKey: NewSecret("partner123"),
		Key1:   NewSecret("cred456"),
	}
	encoded, err := json.Marshal(auth)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "partner123")
	assert.NotContains(t, string(encoded), "cred456")
	assert.Contains(t, string(encoded), "***")
}

func TestSecretExpose(t *testing.T) {
	secret := NewSecret("cred456")
	assert.Equal(t, "cred456", secret.Expose())
	assert.False(t, secret.IsZero())
	assert.True(t, Secret{}.IsZero())
}
