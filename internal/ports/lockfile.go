package ports

import "envlock/internal/types"

type LockfileStorePort interface {
	Load(path string) (types.LockfileRaw, error)
	Save(path string, lockfile types.LockfileRaw) error
}
