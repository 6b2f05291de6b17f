package provisioning

import (
	"context"

	"github.com/servabill/servabill/internal/domain/catalog"
	ierr "github.com/servabill/servabill/internal/errors"
)

// Field is one module-specific input field. The core treats field sets as
// opaque key/value data attached to a service.
type Field struct {
	Key      string            `json:"key"`
	Label    string            `json:"label"`
	Type     string            `json:"type"`
	Required bool              `json:"required"`
	Options  map[string]string `json:"options,omitempty"`
}

// FieldSet is the ordered collection of fields a module renders
type FieldSet []Field

// Module is the capability interface each provisioning backend implements,
// resolved by package at call time. No reflection-based loading.
type Module interface {
	// Name returns the module's registered name
	Name() string

	// GetAdminAddFields returns the fields staff fill when adding a service
	GetAdminAddFields(ctx context.Context, pkg *catalog.Package, vars map[string]string) (FieldSet, error)

	// GetClientAddFields returns the fields clients fill when ordering
	GetClientAddFields(ctx context.Context, pkg *catalog.Package, vars map[string]string) (FieldSet, error)
}

// Registry resolves provisioning modules by the package's module id
type Registry interface {
	Resolve(moduleID string) (Module, error)
}

type registry struct {
	modules map[string]Module
}

// NewRegistry builds a registry from the given modules
func NewRegistry(modules ...Module) Registry {
	m := make(map[string]Module, len(modules))
	for _, mod := range modules {
		m[mod.Name()] = mod
	}
	return &registry{modules: m}
}

func (r *registry) Resolve(moduleID string) (Module, error) {
	if mod, ok := r.modules[moduleID]; ok {
		return mod, nil
	}
	return nil, ierr.NewErrorf("unknown provisioning module %s", moduleID).
		WithHint("The package references a module that is not registered").
		WithReportableDetails(map[string]any{"module_id": moduleID}).
		Mark(ierr.ErrNotFound)
}
