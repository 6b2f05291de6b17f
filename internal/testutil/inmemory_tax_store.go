package testutil

import (
	"context"

	"github.com/servabill/servabill/internal/domain/tax"
	"github.com/servabill/servabill/internal/types"
)

// InMemoryTaxStore implements tax.Repository and tax.Provider for tests.
// As a provider it hands every client the company's active rules.
type InMemoryTaxStore struct {
	*InMemoryStore[*tax.Rule]
}

func NewInMemoryTaxStore() *InMemoryTaxStore {
	return &InMemoryTaxStore{InMemoryStore: NewInMemoryStore[*tax.Rule]()}
}

func (s *InMemoryTaxStore) Create(ctx context.Context, rule *tax.Rule) error {
	return s.InMemoryStore.Create(ctx, rule.ID, rule)
}

func (s *InMemoryTaxStore) Get(ctx context.Context, id string) (*tax.Rule, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryTaxStore) ListActive(ctx context.Context) ([]*tax.Rule, error) {
	return s.List(ctx, func(item *tax.Rule) bool {
		return item.BaseModel.Status == types.StatusActive
	}), nil
}

func (s *InMemoryTaxStore) Update(ctx context.Context, rule *tax.Rule) error {
	return s.InMemoryStore.Update(ctx, rule.ID, rule)
}

func (s *InMemoryTaxStore) RulesForClient(ctx context.Context, clientID string) ([]*tax.Rule, error) {
	return s.ListActive(ctx)
}
