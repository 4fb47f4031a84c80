package introspect

import (
	"errors"
	"fmt"

	"github.com/roach88/bridgepass/internal/ir"
)

// ErrTypeNotFound is returned (wrapped) when a name does not resolve.
var ErrTypeNotFound = errors.New("type not found")

// NotFoundError names the type that failed to resolve.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTypeNotFound, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrTypeNotFound
}

// Introspector is the lookup service the resolver walks.
//
// Every method may fail. Callers downgrade failures to warnings at the
// point of use; an Introspector never logs on its own.
type Introspector interface {
	// ResolveType returns the type with the given internal name.
	ResolveType(name string) (*ir.CompiledType, error)

	// DeclaredMethod returns the method declared directly on t with the
	// given name and parameter types, ignoring the return type. It returns
	// (nil, nil) when t declares no such method.
	DeclaredMethod(t *ir.CompiledType, name string, params []ir.TypeRef) (*ir.Method, error)

	// SuperclassOf resolves t's superclass. It returns (nil, nil) for the
	// platform root.
	SuperclassOf(t *ir.CompiledType) (*ir.CompiledType, error)

	// InterfacesOf resolves t's directly implemented interfaces in
	// declaration order.
	InterfacesOf(t *ir.CompiledType) ([]*ir.CompiledType, error)
}
