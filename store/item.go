package store

import (
	"time"

	"github.com/pkg/errors"
)

// Status lifecycle status of a consigned item
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusLive     Status = "live"
	StatusSold     Status = "sold"
	StatusArchived Status = "archived"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusArchived},
	StatusApproved: {StatusLive, StatusPending, StatusArchived},
	StatusLive:     {StatusSold, StatusPending, StatusArchived},
	StatusSold:     {StatusArchived},
	StatusArchived: {StatusPending},
}

// ParseStatus parse a status name
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", errors.Errorf("unknown item status:%v", s)
	}
	return st, nil
}

// CanTransit reports whether an item in status s may move to next
func (s Status) CanTransit(next Status) bool {
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// Item a consigned item listed by the shop
type Item struct {
	ID              string
	Title           string
	ConsignorID     string
	Status          Status
	PriceCents      int64
	DiscountPercent int
	UpdatedAt       time.Time
}

func (it *Item) EntityID() string {
	return it.ID
}

func (it *Item) EntityLabel() string {
	if it.Title == "" {
		return it.ID
	}
	return it.Title
}

// Ref an item known only by its id, e.g. an id typed by an operator that may not exist
type Ref string

func (r Ref) EntityID() string {
	return string(r)
}

func (r Ref) EntityLabel() string {
	return string(r)
}
