package loan

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu    sync.Mutex
	next  int64
	loans map[int64]Loan
}

// NewMemoryRepository builds an in-memory loan store for tests and development.
func NewMemoryRepository() Repository {
	return &memoryRepository{loans: make(map[int64]Loan)}
}

func (r *memoryRepository) Create(_ context.Context, l Loan) (Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	l.ID = r.next
	l.CreatedAt = time.Now().UTC()
	r.loans[l.ID] = l
	return l, nil
}

func (r *memoryRepository) Get(_ context.Context, id int64) (Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	if !ok {
		return Loan{}, fmt.Errorf("loan %d: %w", id, ErrLoanNotFound)
	}
	return l, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Loan, error) {
	return r.filter(func(Loan) bool { return true }), nil
}

func (r *memoryRepository) ListByStatus(_ context.Context, status Status) ([]Loan, error) {
	return r.filter(func(l Loan) bool { return l.Status == status }), nil
}

func (r *memoryRepository) Update(ctx context.Context, id int64, fn func(*Loan) error) (Loan, error) {
	if err := ctx.Err(); err != nil {
		return Loan{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	if !ok {
		return Loan{}, fmt.Errorf("loan %d: %w", id, ErrLoanNotFound)
	}
	if err := fn(&l); err != nil {
		return Loan{}, err
	}
	r.loans[id] = l
	return l, nil
}

func (r *memoryRepository) filter(keep func(Loan) bool) []Loan {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Loan, 0, len(r.loans))
	for _, l := range r.loans {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
