package testutil

import (
	"context"
	"time"

	"github.com/servabill/servabill/internal/domain/payment"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
)

// InMemoryPaymentStore implements payment.Repository for tests
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Authorization]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{InMemoryStore: NewInMemoryStore[*payment.Authorization]()}
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, auth *payment.Authorization) error {
	return s.InMemoryStore.Create(ctx, auth.ID, auth)
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Authorization, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryPaymentStore) Update(ctx context.Context, auth *payment.Authorization) error {
	return s.InMemoryStore.Update(ctx, auth.ID, auth)
}

func (s *InMemoryPaymentStore) GetLiveByClient(ctx context.Context, clientID string) (*payment.Authorization, error) {
	now := time.Now().UTC()
	matches := s.List(ctx, func(item *payment.Authorization) bool {
		return item.ClientID == clientID &&
			item.AuthorizationStatus == types.AuthorizationStatusAuthorized &&
			!item.IsExpired(now)
	})
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("no live authorization for client %s", clientID).
			Mark(ierr.ErrNotFound)
	}
	return matches[0], nil
}
