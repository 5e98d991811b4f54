package adapters

import (
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"envlock/internal/ports"
	"envlock/internal/types"
)

type LockfileFileAdapter struct{}

func NewLockfileFileAdapter() LockfileFileAdapter {
	return LockfileFileAdapter{}
}

func (a LockfileFileAdapter) Load(path string) (types.LockfileRaw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.LockfileRaw{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("lockfile not found").
			WithCause(err)
	}
	var lockfile types.LockfileRaw
	if err := yaml.Unmarshal(data, &lockfile); err != nil {
		return types.LockfileRaw{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse lockfile yaml").
			WithCause(err)
	}
	return lockfile, nil
}

// Save writes the lockfile atomically: marshal to a temp file in the
// destination directory, then rename over the target.
func (a LockfileFileAdapter) Save(path string, lockfile types.LockfileRaw) error {
	data, err := yaml.Marshal(lockfile)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal lockfile").
			WithCause(err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create lockfile directory").
			WithCause(err)
	}
	tmp, err := os.CreateTemp(dir, ".envlock-*")
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create temp lockfile").
			WithCause(err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write lockfile").
			WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write lockfile").
			WithCause(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to replace lockfile").
			WithCause(err)
	}
	return nil
}

var _ ports.LockfileStorePort = LockfileFileAdapter{}
