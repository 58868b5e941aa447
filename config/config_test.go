package config

import (
	"testing"

	"github.com/cesbit/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaultsToV2cPublic(t *testing.T) {
	client, err := NewClient("192.0.2.1", Config{})
	require.NoError(t, err)
	_, ok := client.(*gosnmp.ClientV1V2)
	assert.True(t, ok)
}

func TestNewClientV1(t *testing.T) {
	client, err := NewClient("192.0.2.1", Config{Version: "1", Community: "private"})
	require.NoError(t, err)
	_, ok := client.(*gosnmp.ClientV1V2)
	assert.True(t, ok)
}

func TestNewClientV3RequiresUsername(t *testing.T) {
	_, err := NewClient("192.0.2.1", Config{Version: "3"})
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewClientV3RejectsPrivacyWithoutAuth(t *testing.T) {
	_, err := NewClient("192.0.2.1", Config{
		Version:        "3",
		Username:       "operator",
		PrivProtocol:   "AES",
		PrivPassphrase: "privpassphrase",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "privacy requires authentication")
}

func TestNewClientV3RejectsUnknownProtocol(t *testing.T) {
	_, err := NewClient("192.0.2.1", Config{
		Version:      "3",
		Username:     "operator",
		AuthProtocol: "BLAKE2",
	})
	require.Error(t, err)
}

func TestNewClientV3Valid(t *testing.T) {
	client, err := NewClient("192.0.2.1", Config{
		Version:        "3",
		Username:       "operator",
		AuthProtocol:   "SHA256",
		AuthPassphrase: "authpassphrase",
		PrivProtocol:   "AES",
		PrivPassphrase: "privpassphrase",
	})
	require.NoError(t, err)
	_, ok := client.(*gosnmp.ClientV3)
	assert.True(t, ok)
}

func TestNewClientUnknownVersion(t *testing.T) {
	_, err := NewClient("192.0.2.1", Config{Version: "9"})
	require.Error(t, err)
}
