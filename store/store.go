package store

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

var (
	ErrNotFound          = errors.New("item not found")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrInvalidDiscount   = errors.New("invalid discount")
)

const (
	MinDiscountPercent = 1
	MaxDiscountPercent = 90
)

//go:embed schema.sql
var schema string

// Store SQL backed item store, statements use `?` placeholders (mysql, sqlite)
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

func New(db *sql.DB) *Store {
	return &Store{db: db, clock: clockwork.NewRealClock()}
}

// WithClock replace the clock stamping updated_at
func (s *Store) WithClock(clock clockwork.Clock) *Store {
	s.clock = clock
	return s
}

// CreateSchema create the item table if it does not exist
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "create item schema failed")
	}
	return nil
}

const itemColumns = "item_id, title, consignor_id, status, price_cents, discount_percent, updated_at"

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scanner) (*Item, error) {
	var (
		it        Item
		st        string
		updatedAt int64
	)
	if err := row.Scan(&it.ID, &it.Title, &it.ConsignorID, &st, &it.PriceCents, &it.DiscountPercent, &updatedAt); err != nil {
		return nil, err
	}
	it.Status = Status(st)
	it.UpdatedAt = time.UnixMilli(updatedAt)
	return &it, nil
}

// Get load an item by id, ErrNotFound if absent
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx, "select "+itemColumns+" from item where item_id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "itemId:%v", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query item failed, itemId:%v", id)
	}
	return it, nil
}

// Lookup load items in the order of ids, ids with no item are returned as missing
func (s *Store) Lookup(ctx context.Context, ids []string) ([]*Item, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx, "select "+itemColumns+" from item where item_id in ("+placeholders+")", args...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query items failed")
	}
	defer rows.Close()
	found := make(map[string]*Item, len(ids))
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, nil, errors.Wrap(err, "scan item failed")
		}
		found[it.ID] = it
	}
	if err = rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "iterate items failed")
	}
	items := make([]*Item, 0, len(found))
	missing := make([]string, 0)
	for _, id := range ids {
		if it, ok := found[id]; ok {
			items = append(items, it)
		} else {
			missing = append(missing, id)
		}
	}
	return items, missing, nil
}

// Upsert insert the item or overwrite the stored one
func (s *Store) Upsert(ctx context.Context, it *Item) error {
	if strings.TrimSpace(it.ID) == "" {
		return errors.New("item id must not be empty")
	}
	if it.Status == "" {
		it.Status = StatusPending
	}
	it.UpdatedAt = s.clock.Now()
	_, err := s.Get(ctx, it.ID)
	if errors.Is(err, ErrNotFound) {
		_, err = s.db.ExecContext(ctx, "insert into item("+itemColumns+") values(?, ?, ?, ?, ?, ?, ?)",
			it.ID, it.Title, it.ConsignorID, string(it.Status), it.PriceCents, it.DiscountPercent, it.UpdatedAt.UnixMilli())
		if err != nil {
			return errors.Wrapf(err, "insert item failed, itemId:%v", it.ID)
		}
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "update item set title=?, consignor_id=?, status=?, price_cents=?, discount_percent=?, updated_at=? where item_id=?",
		it.Title, it.ConsignorID, string(it.Status), it.PriceCents, it.DiscountPercent, it.UpdatedAt.UnixMilli(), it.ID)
	if err != nil {
		return errors.Wrapf(err, "update item failed, itemId:%v", it.ID)
	}
	return nil
}

// UpdateStatus move an item to status to, rejecting transitions the lifecycle does not allow
func (s *Store) UpdateStatus(ctx context.Context, id string, to Status) error {
	return s.update(ctx, id, func(it *Item) error {
		if !it.Status.CanTransit(to) {
			return errors.Wrapf(ErrIllegalTransition, "itemId:%v, from:%v, to:%v", id, it.Status, to)
		}
		it.Status = to
		return nil
	})
}

// SendBackToPending return an item to pending review and drop its discount
func (s *Store) SendBackToPending(ctx context.Context, id string) error {
	return s.update(ctx, id, func(it *Item) error {
		if !it.Status.CanTransit(StatusPending) {
			return errors.Wrapf(ErrIllegalTransition, "itemId:%v, from:%v, to:%v", id, it.Status, StatusPending)
		}
		it.Status = StatusPending
		it.DiscountPercent = 0
		return nil
	})
}

// ApplyDiscount set the discount of an approved or live item
func (s *Store) ApplyDiscount(ctx context.Context, id string, percent int) error {
	if percent < MinDiscountPercent || percent > MaxDiscountPercent {
		return errors.Wrapf(ErrInvalidDiscount, "percent:%v out of [%v, %v]", percent, MinDiscountPercent, MaxDiscountPercent)
	}
	return s.update(ctx, id, func(it *Item) error {
		if !discountable(it.Status) {
			return errors.Wrapf(ErrInvalidDiscount, "itemId:%v is %v", id, it.Status)
		}
		it.DiscountPercent = percent
		return nil
	})
}

func discountable(st Status) bool {
	return st == StatusApproved || st == StatusLive
}

// update read-modify-write an item, guarded by its updated_at stamp
func (s *Store) update(ctx context.Context, id string, mutate func(it *Item) error) error {
	it, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	prev := it.UpdatedAt.UnixMilli()
	if err = mutate(it); err != nil {
		return err
	}
	now := s.clock.Now().UnixMilli()
	if now <= prev {
		now = prev + 1
	}
	res, err := s.db.ExecContext(ctx, "update item set status=?, discount_percent=?, updated_at=? where item_id=? and updated_at=?",
		string(it.Status), it.DiscountPercent, now, id, prev)
	if err != nil {
		return errors.Wrapf(err, "update item failed, itemId:%v", id)
	}
	if n, _ := res.RowsAffected(); n <= 0 {
		return errors.Errorf("item modified concurrently, itemId:%v", id)
	}
	return nil
}
