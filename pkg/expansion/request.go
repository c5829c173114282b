package expansion

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
)

// Request is one expansion in flight. Requests are never deduplicated;
// clicking the same node twice loads twice.
type Request struct {
	ID     string
	Key    string
	Source string
}

// NewRequest creates a request with a fresh ID
func NewRequest(key, source string) Request {
	return Request{ID: uuid.NewString(), Key: key, Source: source}
}

// Result is the outcome of a Request: a payload or a *LoadError
type Result struct {
	Request  Request
	Payload  *graph.Payload
	Err      error
	Duration time.Duration
}

// Failed reports whether the load failed
func (r Result) Failed() bool {
	return r.Err != nil
}

// Run loads req synchronously
func Run(ctx context.Context, loader Loader, req Request) Result {
	start := time.Now()
	p, err := loader.Load(ctx, req.Source)
	if err == nil && p == nil {
		err = errors.New("loader returned no payload")
	}

	res := Result{Request: req, Duration: time.Since(start)}
	if err != nil {
		res.Err = &LoadError{Key: req.Key, Source: req.Source, Cause: err}
		return res
	}
	res.Payload = p
	return res
}

// Go runs req on its own goroutine and hands the result to deliver
func Go(ctx context.Context, loader Loader, req Request, deliver func(Result)) {
	go func() {
		deliver(Run(ctx, loader, req))
	}()
}
