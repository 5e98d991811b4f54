package ports

import (
	"context"

	"envlock/internal/types"
)

// PkgDbReadOnlyPort is a read-only query handle on one input's
// package database.
type PkgDbReadOnlyPort interface {
	// Query returns candidate row IDs in rank order, best first.
	Query(args types.PkgQueryArgs) ([]types.RowID, error)

	// GetPackage fetches the metadata record of one row.
	GetPackage(row types.RowID) (map[string]any, error)

	// LockedRef is the pinned URL-like reference of the backing input.
	LockedRef() string
}

// PkgDbInputPort is one registry input's package database.
// Two inputs are the same iff they share a locked input identity.
type PkgDbInputPort interface {
	Name() string
	LockedInput() types.LockedInput

	// FillQueryArgs overlays input-specific constraints onto args.
	FillQueryArgs(args *types.PkgQueryArgs)

	// DbReadOnly acquires the read-only handle, opening it on first use.
	DbReadOnly() (PkgDbReadOnlyPort, error)

	// ScrapeSystems populates the database for the given systems.
	// Idempotent from the caller's perspective.
	ScrapeSystems(ctx context.Context, systems []types.System) error
}

// PkgDbFactoryPort opens package databases for pinned registry
// inputs. The input's Locked field must be set.
type PkgDbFactoryPort interface {
	Open(ctx context.Context, name string, input types.RegistryInput) (PkgDbInputPort, error)
}
