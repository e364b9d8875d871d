package customer

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("customer not found")
)

type Repository interface {
	// FindByID returns the stored record or ErrNotFound. It never
	// synthesizes; that is the service's job.
	FindByID(ctx context.Context, id string) (*Customer, error)

	// Exists reports store containment without triggering synthesis.
	Exists(ctx context.Context, id string) (bool, error)

	// Save stores the record, last write wins.
	Save(ctx context.Context, cust *Customer) error
}
