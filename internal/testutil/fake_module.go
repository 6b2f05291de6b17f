package testutil

import (
	"context"

	"github.com/servabill/servabill/internal/domain/catalog"
	"github.com/servabill/servabill/internal/domain/provisioning"
)

// FakeModule is a provisioning module fake returning canned field sets
type FakeModule struct {
	ModuleName   string
	AdminFields  provisioning.FieldSet
	ClientFields provisioning.FieldSet
}

func NewFakeModule(name string) *FakeModule {
	return &FakeModule{
		ModuleName: name,
		AdminFields: provisioning.FieldSet{
			{Key: "hostname", Label: "Hostname", Type: "text", Required: true},
			{Key: "root_password", Label: "Root Password", Type: "password", Required: true},
		},
		ClientFields: provisioning.FieldSet{
			{Key: "hostname", Label: "Hostname", Type: "text", Required: true},
		},
	}
}

func (m *FakeModule) Name() string { return m.ModuleName }

func (m *FakeModule) GetAdminAddFields(ctx context.Context, pkg *catalog.Package, vars map[string]string) (provisioning.FieldSet, error) {
	return m.AdminFields, nil
}

func (m *FakeModule) GetClientAddFields(ctx context.Context, pkg *catalog.Package, vars map[string]string) (provisioning.FieldSet, error) {
	return m.ClientFields, nil
}
