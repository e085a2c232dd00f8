package secret

import "errors"

// Chain consults sources in order and returns the first non-empty value.
type Chain []Getter

func (c Chain) Get(key string) ([]byte, error) {
	var errs []error
	for _, s := range c {
		v, err := s.Get(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(v) > 0 {
			return v, nil
		}
	}
	return nil, errors.Join(errs...)
}
