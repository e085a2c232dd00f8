package secret

// Getter reads secrets.
type Getter interface {
	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)
}

// SecretStore provides a pluggable interface for storing sensitive data
// such as the edit gateway API key.
type SecretStore interface {
	Getter

	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Lookup returns the secret for key as a string, or "" when absent.
func Lookup(s Getter, key string) (string, error) {
	if s == nil || key == "" {
		return "", nil
	}
	v, err := s.Get(key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}
