package bulkop

import (
	"context"
	"strings"
)

// Operation remote operation applied to one entity, called with a single id at a time
type Operation func(ctx context.Context, entityID string) error

// Validator business precondition checked on every entity before a batch starts
type Validator interface {
	// Validate return zero or more human readable violations, empty means valid
	Validate(entity Entity) []string
}

// ValidatorFunc adapt a function to Validator
type ValidatorFunc func(entity Entity) []string

func (f ValidatorFunc) Validate(entity Entity) []string {
	return f(entity)
}

// RequireID entity must have a non blank id
func RequireID() Validator {
	return ValidatorFunc(func(entity Entity) []string {
		if strings.TrimSpace(entity.EntityID()) == "" {
			return []string{"missing id"}
		}
		return nil
	})
}

// RequireLabel entity must have a non blank label
func RequireLabel() Validator {
	return ValidatorFunc(func(entity Entity) []string {
		if strings.TrimSpace(entity.EntityLabel()) == "" {
			return []string{"missing label"}
		}
		return nil
	})
}
