package store

import (
	"context"
	"fmt"

	"github.com/chararch/bulkop"
	"github.com/pkg/errors"
)

// RequireExists entity id must name a stored item
func RequireExists(ctx context.Context, s *Store) bulkop.Validator {
	return bulkop.ValidatorFunc(func(entity bulkop.Entity) []string {
		_, err := s.Get(ctx, entity.EntityID())
		if errors.Is(err, ErrNotFound) {
			return []string{"item not found"}
		}
		if err != nil {
			return []string{fmt.Sprintf("item lookup failed: %v", err)}
		}
		return nil
	})
}

// RequireStatus item must be in one of allowed. Entities not loaded from the store are left to RequireExists.
func RequireStatus(allowed ...Status) bulkop.Validator {
	return bulkop.ValidatorFunc(func(entity bulkop.Entity) []string {
		it, ok := entity.(*Item)
		if !ok {
			return nil
		}
		for _, st := range allowed {
			if it.Status == st {
				return nil
			}
		}
		return []string{fmt.Sprintf("status is %v, expected one of %v", it.Status, allowed)}
	})
}

// AllowTransition item status must be allowed to move to to
func AllowTransition(to Status) bulkop.Validator {
	return bulkop.ValidatorFunc(func(entity bulkop.Entity) []string {
		it, ok := entity.(*Item)
		if !ok {
			return nil
		}
		if it.Status == to {
			return []string{fmt.Sprintf("already %v", to)}
		}
		if !it.Status.CanTransit(to) {
			return []string{fmt.Sprintf("can not move from %v to %v", it.Status, to)}
		}
		return nil
	})
}

// RequireDiscountable item must be approved or live and percent within range
func RequireDiscountable(percent int) bulkop.Validator {
	return bulkop.ValidatorFunc(func(entity bulkop.Entity) []string {
		violations := make([]string, 0)
		if percent < MinDiscountPercent || percent > MaxDiscountPercent {
			violations = append(violations, fmt.Sprintf("discount %v%% out of range %v-%v", percent, MinDiscountPercent, MaxDiscountPercent))
		}
		if it, ok := entity.(*Item); ok && !discountable(it.Status) {
			violations = append(violations, fmt.Sprintf("status is %v, only approved or live items can be discounted", it.Status))
		}
		return violations
	})
}
