package store

import (
	"context"

	"github.com/chararch/bulkop"
	"github.com/pkg/errors"
)

// StatusOperation move each item to status to
func StatusOperation(s *Store, to Status) bulkop.Operation {
	return func(ctx context.Context, id string) error {
		return s.UpdateStatus(ctx, id, to)
	}
}

// SendBackOperation return each item to pending
func SendBackOperation(s *Store) bulkop.Operation {
	return s.SendBackToPending
}

// DiscountOperation apply percent to each item
func DiscountOperation(s *Store, percent int) bulkop.Operation {
	return func(ctx context.Context, id string) error {
		return s.ApplyDiscount(ctx, id, percent)
	}
}

// ImportOperation upsert the item of items carrying the id
func ImportOperation(s *Store, items []*Item) bulkop.Operation {
	byID := make(map[string]*Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return func(ctx context.Context, id string) error {
		it, ok := byID[id]
		if !ok {
			return errors.Errorf("no imported item with id:%v", id)
		}
		cp := *it
		return s.Upsert(ctx, &cp)
	}
}
