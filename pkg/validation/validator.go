package validation

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
)

var (
	// validate is a singleton validator instance
	validate = validator.New(validator.WithRequiredStructEnabled())

	// MaxPayloadNodes bounds a single subgraph. Layout is direct O(n²), so
	// a payload this size is already far past interactive.
	MaxPayloadNodes = 5000
	MaxPayloadLinks = 20000
)

// Struct validates v against its `validate` tags
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	return formatValidationError(validate.Struct(v))
}

// ValidatePayload checks a decoded subgraph before it reaches the store
func ValidatePayload(p *graph.Payload) error {
	if p == nil {
		return errors.New("payload cannot be nil")
	}
	if err := validate.Struct(p); err != nil {
		return formatValidationError(err)
	}
	if len(p.Nodes) > MaxPayloadNodes {
		return fmt.Errorf("nodes: maximum %d per payload, got %d", MaxPayloadNodes, len(p.Nodes))
	}
	if len(p.Links) > MaxPayloadLinks {
		return fmt.Errorf("links: maximum %d per payload, got %d", MaxPayloadLinks, len(p.Links))
	}
	for i, n := range p.Nodes {
		if math.IsNaN(n.Balance) || math.IsInf(n.Balance, 0) {
			return fmt.Errorf("nodes[%d].balance: must be finite", i)
		}
	}
	for i, l := range p.Links {
		if math.IsNaN(l.BalanceDelta) || math.IsInf(l.BalanceDelta, 0) {
			return fmt.Errorf("links[%d].balance_delta: must be finite", i)
		}
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "lt":
			return fmt.Errorf("%s: must be less than %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
