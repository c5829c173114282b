package graph

import (
	"errors"
	"fmt"
	"testing"
)

func TestUnresolvedEndpointError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *UnresolvedEndpointError
		expected string
	}{
		{
			name:     "missing target",
			err:      &UnresolvedEndpointError{LinkIndex: 2, Source: "0xA", Target: "0xB", Missing: EndpointTarget},
			expected: "resolve link 2 (0xA -> 0xB): target: unresolved link endpoint",
		},
		{
			name:     "missing both",
			err:      &UnresolvedEndpointError{LinkIndex: 0, Source: "x", Target: "y", Missing: EndpointBoth},
			expected: "resolve link 0 (x -> y): both: unresolved link endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUnresolvedEndpoints_Joined(t *testing.T) {
	e1 := &UnresolvedEndpointError{LinkIndex: 0, Missing: EndpointSource}
	e2 := &UnresolvedEndpointError{LinkIndex: 1, Missing: EndpointTarget}
	err := fmt.Errorf("merge: %w", errors.Join(e1, e2))

	got := UnresolvedEndpoints(err)
	if len(got) != 2 {
		t.Fatalf("expected 2 unresolved endpoints, got %d", len(got))
	}
	if got[0] != e1 || got[1] != e2 {
		t.Error("unresolved endpoints not returned in order")
	}
	if !errors.Is(err, ErrUnresolvedEndpoint) {
		t.Error("wrapped joined error should match ErrUnresolvedEndpoint")
	}
}

func TestUnresolvedEndpoints_Nil(t *testing.T) {
	if got := UnresolvedEndpoints(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if IsUnresolved(errors.New("other")) {
		t.Error("unrelated error reported as unresolved")
	}
}
