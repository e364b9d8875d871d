package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"profile-service/internal/domain/customer"
)

// CustomerRepository is the in-memory customer store. Records are held by
// value behind an RWMutex so each read and write is atomic and callers never
// alias stored state. Nothing survives a restart.
type CustomerRepository struct {
	mu        sync.RWMutex
	customers map[string]customer.Customer
	logger    *slog.Logger
}

var _ customer.Repository = (*CustomerRepository)(nil)

func NewCustomerRepository(logger *slog.Logger) *CustomerRepository {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &CustomerRepository{
		customers: make(map[string]customer.Customer),
		logger:    logger.With("component", "MemoryCustomerRepository"),
	}
}

func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cust, ok := r.customers[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", customer.ErrNotFound, id)
	}
	return &cust, nil
}

func (r *CustomerRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.customers[id]
	return ok, nil
}

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	if cust == nil || cust.ID == "" {
		return fmt.Errorf("cannot save customer without an id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.customers[cust.ID] = *cust
	r.logger.DebugContext(ctx, "Customer saved", slog.String("customerID", cust.ID))
	return nil
}
