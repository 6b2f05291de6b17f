package testutil

import (
	"context"
	"time"

	svc "github.com/servabill/servabill/internal/domain/service"
	"github.com/servabill/servabill/internal/types"
)

// InMemoryServiceStore implements service.Repository for tests
type InMemoryServiceStore struct {
	*InMemoryStore[*svc.Service]
}

func NewInMemoryServiceStore() *InMemoryServiceStore {
	return &InMemoryServiceStore{InMemoryStore: NewInMemoryStore[*svc.Service]()}
}

func (s *InMemoryServiceStore) Create(ctx context.Context, service *svc.Service) error {
	return s.InMemoryStore.Create(ctx, service.ID, service)
}

func (s *InMemoryServiceStore) Get(ctx context.Context, id string) (*svc.Service, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryServiceStore) Update(ctx context.Context, service *svc.Service) error {
	return s.InMemoryStore.Update(ctx, service.ID, service)
}

func (s *InMemoryServiceStore) ListByClient(ctx context.Context, clientID string) ([]*svc.Service, error) {
	return s.List(ctx, func(item *svc.Service) bool {
		return item.ClientID == clientID && item.BaseModel.Status != types.StatusDeleted
	}), nil
}

func (s *InMemoryServiceStore) ListChildren(ctx context.Context, parentID string) ([]*svc.Service, error) {
	return s.List(ctx, func(item *svc.Service) bool {
		return item.ParentServiceID != nil && *item.ParentServiceID == parentID &&
			item.BaseModel.Status != types.StatusDeleted
	}), nil
}

func (s *InMemoryServiceStore) ListRenewalsDue(ctx context.Context, before time.Time) ([]*svc.Service, error) {
	return s.List(ctx, func(item *svc.Service) bool {
		return item.ServiceStatus == types.ServiceStatusActive &&
			!item.DateRenews.After(before) &&
			item.DateCanceled == nil &&
			item.BaseModel.Status != types.StatusDeleted
	}), nil
}

func (s *InMemoryServiceStore) ListScheduledCancellationsDue(ctx context.Context) ([]*svc.Service, error) {
	now := time.Now().UTC()
	return s.List(ctx, func(item *svc.Service) bool {
		return item.DateCanceled != nil && !item.DateCanceled.After(now) &&
			item.ServiceStatus != types.ServiceStatusCanceled &&
			item.BaseModel.Status != types.StatusDeleted
	}), nil
}
