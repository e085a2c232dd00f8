package secret

import (
	"os"
	"strings"
)

// EnvStore reads secrets from environment variables. Keys are used as
// variable names verbatim unless a prefix is set. It is read-only.
type EnvStore struct {
	prefix string
}

func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{prefix: prefix}
}

func (e *EnvStore) name(key string) string {
	return e.prefix + strings.ToUpper(key)
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	v, ok := os.LookupEnv(e.name(key))
	if !ok || v == "" {
		return nil, nil
	}
	return []byte(v), nil
}
