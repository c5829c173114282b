package graph

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrUnresolvedEndpoint = errors.New("unresolved link endpoint")
	ErrNilPayload         = errors.New("nil payload")
)

// Endpoint names which side of a link failed to resolve
type Endpoint string

const (
	EndpointSource Endpoint = "source"
	EndpointTarget Endpoint = "target"
	EndpointBoth   Endpoint = "both"
)

// UnresolvedEndpointError reports a link whose endpoint address is absent
// from the store at resolution time.
type UnresolvedEndpointError struct {
	LinkIndex int
	Source    string
	Target    string
	Missing   Endpoint
}

// Error implements the error interface.
func (e *UnresolvedEndpointError) Error() string {
	return fmt.Sprintf("resolve link %d (%s -> %s): %s: %v",
		e.LinkIndex, e.Source, e.Target, e.Missing, ErrUnresolvedEndpoint)
}

// Is reports whether target is ErrUnresolvedEndpoint.
func (e *UnresolvedEndpointError) Is(target error) bool {
	return target == ErrUnresolvedEndpoint
}

// MissingAddresses returns the addresses that could not be found
func (e *UnresolvedEndpointError) MissingAddresses() []string {
	switch e.Missing {
	case EndpointSource:
		return []string{e.Source}
	case EndpointTarget:
		return []string{e.Target}
	default:
		return []string{e.Source, e.Target}
	}
}

// UnresolvedEndpoints extracts every UnresolvedEndpointError from err,
// including errors combined with errors.Join.
func UnresolvedEndpoints(err error) []*UnresolvedEndpointError {
	if err == nil {
		return nil
	}

	var out []*UnresolvedEndpointError
	var walk func(error)
	walk = func(e error) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		if ue, ok := e.(*UnresolvedEndpointError); ok {
			out = append(out, ue)
			return
		}
		if inner := errors.Unwrap(e); inner != nil {
			walk(inner)
		}
	}
	walk(err)
	return out
}

// IsUnresolved returns true if the error is (or contains) an unresolved endpoint error.
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrUnresolvedEndpoint)
}
