package testutil

import (
	"context"

	"github.com/servabill/servabill/internal/domain/coupon"
	ierr "github.com/servabill/servabill/internal/errors"
)

// InMemoryCouponStore implements coupon.Repository for tests
type InMemoryCouponStore struct {
	*InMemoryStore[*coupon.Coupon]
}

func NewInMemoryCouponStore() *InMemoryCouponStore {
	return &InMemoryCouponStore{InMemoryStore: NewInMemoryStore[*coupon.Coupon]()}
}

func (s *InMemoryCouponStore) Create(ctx context.Context, c *coupon.Coupon) error {
	return s.InMemoryStore.Create(ctx, c.ID, c)
}

func (s *InMemoryCouponStore) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryCouponStore) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	matches := s.List(ctx, func(item *coupon.Coupon) bool {
		return item.Code == code
	})
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("coupon with code %s not found", code).
			Mark(ierr.ErrNotFound)
	}
	return matches[0], nil
}

func (s *InMemoryCouponStore) Update(ctx context.Context, c *coupon.Coupon) error {
	return s.InMemoryStore.Update(ctx, c.ID, c)
}

func (s *InMemoryCouponStore) IncrementRedemptions(ctx context.Context, id string) error {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	c.TotalRedemptions++
	return s.InMemoryStore.Update(ctx, id, c)
}
