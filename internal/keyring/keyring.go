// Package keyring persists the CDP relay auth token in the OS keychain so
// the same token is reused across bridge restarts. The relay server itself
// does not check the token. Mirrors the teacher's
// internal/keyring/keyring.go, generalized from a master encryption key to
// a relay auth token.
package keyring

import (
	"fmt"
	"os"

	zkr "github.com/zalando/go-keyring"
)

const (
	serviceName = "prompthub-bridge"
	accountName = "relay-auth-token"
)

// Get retrieves the persisted relay auth token, if any.
func Get() (string, error) {
	token, err := zkr.Get(serviceName, accountName)
	if err != nil {
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return token, nil
}

// Set stores the relay auth token in the OS keychain.
func Set(token string) error {
	return zkr.Set(serviceName, accountName, token)
}

// Delete removes the persisted relay auth token.
func Delete() error {
	return zkr.Delete(serviceName, accountName)
}

// Available reports whether the OS keychain is usable. Returns false if
// PROMPTHUB_KEYRING_DISABLED=1 is set (headless/CI/Docker opt-out) or a
// probe write fails; the probe entry is then deleted best-effort.
func Available() bool {
	if os.Getenv("PROMPTHUB_KEYRING_DISABLED") == "1" {
		return false
	}
	const probeService = "prompthub-bridge-probe"
	const probeAccount = "probe"
	if err := zkr.Set(probeService, probeAccount, "ok"); err != nil {
		return false
	}
	_ = zkr.Delete(probeService, probeAccount)
	return true
}
