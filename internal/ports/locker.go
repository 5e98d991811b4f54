package ports

import (
	"context"

	"envlock/internal/types"
)

// InputLockerPort pins a symbolic registry input to an immutable
// revision and content hash. Deterministic for identical input state.
type InputLockerPort interface {
	LockInput(ctx context.Context, name string, input types.RegistryInput) (types.LockedInput, error)
}
