package customer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu        sync.RWMutex
	next      int64
	customers map[int64]Customer
}

// NewMemoryRepository builds an in-memory customer store for tests and development.
func NewMemoryRepository() Repository {
	return &memoryRepository{customers: make(map[int64]Customer)}
}

func (r *memoryRepository) Create(_ context.Context, c Customer) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	c.ID = r.next
	c.CreatedAt = time.Now().UTC()
	r.customers[c.ID] = c
	return c, nil
}

func (r *memoryRepository) Get(_ context.Context, id int64) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, fmt.Errorf("customer %d: %w", id, ErrCustomerNotFound)
	}
	return c, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) Update(_ context.Context, id int64, in UpdateInput) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, fmt.Errorf("customer %d: %w", id, ErrCustomerNotFound)
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Street != nil {
		c.Street = *in.Street
	}
	if in.City != nil {
		c.City = *in.City
	}
	r.customers[id] = c
	return c, nil
}

func (r *memoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[id]; !ok {
		return fmt.Errorf("customer %d: %w", id, ErrCustomerNotFound)
	}
	delete(r.customers, id)
	return nil
}
