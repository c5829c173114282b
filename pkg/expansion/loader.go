// Package expansion fetches subgraph payloads for expansion keys. Loaders
// never touch the graph store; their results are merged by the session.
package expansion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
	"github.com/dd0wney/cluso-chainviz/pkg/validation"
)

// MaxPayloadBytes caps how much of a response or file is read
const MaxPayloadBytes = 32 << 20

// Loader fetches the payload named by source
type Loader interface {
	Load(ctx context.Context, source string) (*graph.Payload, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(ctx context.Context, source string) (*graph.Payload, error)

// Load calls f(ctx, source)
func (f LoaderFunc) Load(ctx context.Context, source string) (*graph.Payload, error) {
	return f(ctx, source)
}

// Decode reads one JSON payload from r and validates it. Any failure wraps
// ErrInvalidPayload.
func Decode(r io.Reader) (*graph.Payload, error) {
	var p graph.Payload
	dec := json.NewDecoder(io.LimitReader(r, MaxPayloadBytes))
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validation.ValidatePayload(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &p, nil
}
