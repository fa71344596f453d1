// Package history keeps the list of devices the user confirmed as found.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ble-finder.klederson.com/internal/bluetooth"
)

// ErrInvalidEntry is returned when an entry lacks a handle or timestamp.
var ErrInvalidEntry = errors.New("invalid history entry")

// Entry is one found device.
type Entry struct {
	Handle  bluetooth.Handle
	Name    string
	Class   bluetooth.DeviceClass
	FoundAt time.Time
}

// NewEntry builds an entry for a device confirmed as found at the given time.
func NewEntry(d bluetooth.DiscoveredDevice, at time.Time) (Entry, error) {
	e := Entry{
		Handle:  d.Handle,
		Name:    d.DisplayName(),
		Class:   d.Class,
		FoundAt: at.UTC(),
	}
	return e, e.Validate()
}

// Validate checks the fields a store relies on.
func (e Entry) Validate() error {
	if strings.TrimSpace(string(e.Handle)) == "" {
		return fmt.Errorf("%w: empty handle", ErrInvalidEntry)
	}
	if e.FoundAt.IsZero() {
		return fmt.Errorf("%w: missing found time", ErrInvalidEntry)
	}
	return nil
}

// Store is a bounded most-recent-first list unique by handle. Saving an
// existing handle replaces it and moves it to the front.
type Store interface {
	Save(ctx context.Context, e Entry) error
	List(ctx context.Context) ([]Entry, error)
	Remove(ctx context.Context, h bluetooth.Handle) error
	Clear(ctx context.Context) error
}
