package expansion

import (
	"errors"
	"fmt"
)

var (
	ErrLoadFailed     = errors.New("expansion load failed")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrUnknownKey     = errors.New("unknown expansion key")
	ErrInvalidTable   = errors.New("invalid expansion table")
)

// LoadError describes a failed expansion. It matches ErrLoadFailed and
// anything its cause matches.
type LoadError struct {
	Key    string
	Source string
	Cause  error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("load %q: %v", e.Key, e.Cause)
	}
	return fmt.Sprintf("load %q from %s: %v", e.Key, e.Source, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailed
}
