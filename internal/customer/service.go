package customer

import (
	"context"
	"strings"
)

// Service manages customer records.
type Service struct {
	repo Repository
}

// NewService creates a customer service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a customer. The name is required; address fields are optional.
func (s *Service) Create(ctx context.Context, in CreateInput) (Customer, error) {
	c := Customer{
		Name:   strings.TrimSpace(in.Name),
		Street: strings.TrimSpace(in.Street),
		City:   strings.TrimSpace(in.City),
	}
	if c.Name == "" {
		return Customer{}, ErrInvalidCustomer
	}
	return s.repo.Create(ctx, c)
}

// Get returns a customer by id.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns every customer.
func (s *Service) List(ctx context.Context) ([]Customer, error) {
	return s.repo.List(ctx)
}

// Update changes the given fields of a customer. A provided name must not be blank.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Customer, error) {
	in.Name = trimmed(in.Name)
	in.Street = trimmed(in.Street)
	in.City = trimmed(in.City)
	if in.Name != nil && *in.Name == "" {
		return Customer{}, ErrInvalidCustomer
	}
	if in.Empty() {
		return s.repo.Get(ctx, id)
	}
	return s.repo.Update(ctx, id, in)
}

// Delete removes a customer.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
