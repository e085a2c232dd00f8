package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// DefaultKeychainService groups this application's keychain items.
const DefaultKeychainService = "worksheet-editor"

// KeychainStore implements SecretStore using the macOS Keychain
// via the `security` CLI tool. On other platforms Get always misses.
type KeychainStore struct {
	service string
	run     func(name string, args ...string) *exec.Cmd
}

// NewKeychainStore creates a KeychainStore for service. An empty service
// uses DefaultKeychainService.
func NewKeychainStore(service string) *KeychainStore {
	if service == "" {
		service = DefaultKeychainService
	}
	return &KeychainStore{service: service, run: exec.Command}
}

func (k *KeychainStore) available() bool {
	return runtime.GOOS == "darwin"
}

// Set stores a secret in the macOS Keychain.
// If the key already exists, it updates the value.
func (k *KeychainStore) Set(key string, value []byte) error {
	if !k.available() {
		return fmt.Errorf("keychain set: not supported on %s", runtime.GOOS)
	}
	_ = k.Delete(key)

	cmd := k.run("security", "add-generic-password",
		"-a", key,
		"-s", k.service,
		"-w", string(value),
		"-U",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("keychain set: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Get retrieves a secret from the macOS Keychain.
// Returns empty slice and nil error if the key doesn't exist.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	if !k.available() {
		return nil, nil
	}
	cmd := k.run("security", "find-generic-password",
		"-a", key,
		"-s", k.service,
		"-w",
	)
	out, err := cmd.Output()
	if err != nil {
		// exit code 44: item not found
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 44 {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain get: %w", err)
	}
	return []byte(strings.TrimSpace(string(out))), nil
}

// Delete removes a secret from the macOS Keychain.
func (k *KeychainStore) Delete(key string) error {
	if !k.available() {
		return fmt.Errorf("keychain delete: not supported on %s", runtime.GOOS)
	}
	cmd := k.run("security", "delete-generic-password",
		"-a", key,
		"-s", k.service,
	)
	cmd.Run() // item may not exist
	return nil
}
