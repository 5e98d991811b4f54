package app

import (
	"envlock/internal/adapters"
	"envlock/internal/ports"
)

type Service struct {
	Manifests ports.ManifestSourcePort
	Lockfiles ports.LockfileStorePort
	PkgDbs    ports.PkgDbFactoryPort

	// Locker builds the input locker for one resolve; the pins file
	// path comes from the request.
	Locker func(pinsPath string) ports.InputLockerPort
}

func NewService() Service {
	return Service{
		Manifests: adapters.NewManifestFileAdapter(),
		Lockfiles: adapters.NewLockfileFileAdapter(),
		PkgDbs:    adapters.NewIndexFileFactory(),
		Locker: func(pinsPath string) ports.InputLockerPort {
			return adapters.NewPinFileLocker(pinsPath)
		},
	}
}
