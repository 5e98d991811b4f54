package core

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"envlock/internal/ports"
	"envlock/internal/types"
)

// Environment drives one resolve: a manifest (optionally layered over
// a global manifest), an optional prior lockfile, and the upgrade
// selection. Combined state is computed at most once per instance;
// treat an Environment as single-use.
type Environment struct {
	global      *types.ManifestRaw
	manifest    types.ManifestRaw
	oldLockfile *types.LockfileRaw
	upgrades    types.Upgrades

	locker  ports.InputLockerPort
	factory ports.PkgDbFactoryPort

	combinedRegistry *types.Registry
	combinedOptions  *types.Options
	baseQueryArgs    *types.PkgQueryArgs
	dbInputs         []ports.PkgDbInputPort
	dbsReady         bool
	lockfileRaw      *types.LockfileRaw
}

func NewEnvironment(
	global *types.ManifestRaw,
	manifest types.ManifestRaw,
	oldLockfile *types.LockfileRaw,
	upgrades types.Upgrades,
	locker ports.InputLockerPort,
	factory ports.PkgDbFactoryPort,
) *Environment {
	return &Environment{
		global:      global,
		manifest:    manifest,
		oldLockfile: oldLockfile,
		upgrades:    upgrades,
		locker:      locker,
		factory:     factory,
	}
}

// Manifest returns the raw environment manifest being resolved.
func (e *Environment) Manifest() types.ManifestRaw { return e.manifest }

// OldLockfile returns the prior lockfile, or nil.
func (e *Environment) OldLockfile() *types.LockfileRaw { return e.oldLockfile }

func (e *Environment) oldManifestRaw() *types.ManifestRaw {
	if e.oldLockfile == nil {
		return nil
	}
	return &e.oldLockfile.Manifest
}

// UpgradingGroup reports whether the named group is selected for
// upgrade, reading the all-groups and listed-groups cases uniformly.
func (e *Environment) UpgradingGroup(name types.GroupName) bool {
	return e.upgrades.Upgrading(name)
}

// Systems returns the system set this environment locks: the
// manifest's systems, falling back to the combined options.
func (e *Environment) Systems() []types.System {
	if len(e.manifest.Systems) > 0 {
		return e.manifest.Systems
	}
	return e.CombinedOptions().Systems
}

// CombinedRegistry merges the global and environment manifest
// registries, then pins every input: an entry that already carries a
// pin in the manifest keeps it; otherwise an entry whose name appears
// in the old lockfile's registry adopts that pin wholesale; everything
// else goes through the input locker. Memoized.
//
// Names are the identity key: changing an input's URL without
// renaming it keeps the old pin. This is intentional and user
// visible.
func (e *Environment) CombinedRegistry(ctx context.Context) (types.Registry, error) {
	if e.combinedRegistry != nil {
		return *e.combinedRegistry, nil
	}

	var combined types.Registry
	if e.global != nil {
		combined = e.global.Registry.Clone()
		if combined.Inputs == nil {
			combined.Inputs = map[string]types.RegistryInput{}
		}
		combined.Merge(e.manifest.Registry)
	} else {
		combined = e.manifest.Registry.Clone()
		if combined.Inputs == nil {
			combined.Inputs = map[string]types.RegistryInput{}
		}
	}

	var oldRegistry *types.Registry
	if e.oldLockfile != nil {
		oldRegistry = &e.oldLockfile.Registry
	}
	for _, name := range combined.OrderedNames() {
		input := combined.Inputs[name]
		// An explicit pin in the manifest always wins.
		if input.Locked != nil {
			continue
		}
		if oldRegistry != nil {
			if locked, ok := oldRegistry.Inputs[name]; ok && locked.Locked != nil {
				combined.Inputs[name] = locked
				continue
			}
		}
		lockedInput, err := e.locker.LockInput(ctx, name, input)
		if err != nil {
			return types.Registry{}, err
		}
		input.Locked = &lockedInput
		combined.Inputs[name] = input
		log.Ctx(ctx).Debug().
			Str("input", name).
			Str("ref", lockedInput.Ref()).
			Msg("locked registry input")
	}

	e.combinedRegistry = &combined
	return combined, nil
}

// CombinedOptions merges option layers in strict precedence order,
// low to high: global manifest, old lockfile manifest, environment
// manifest. Memoized.
func (e *Environment) CombinedOptions() types.Options {
	if e.combinedOptions != nil {
		return *e.combinedOptions
	}
	options := types.Options{}
	if e.global != nil {
		options.Merge(e.global.Options)
	}
	if old := e.oldManifestRaw(); old != nil {
		options.Merge(old.Options)
	}
	options.Merge(e.manifest.Options)
	e.combinedOptions = &options
	return options
}

// CombinedBaseQueryArgs coerces the combined options into the
// starting point for every query. Memoized.
func (e *Environment) CombinedBaseQueryArgs() types.PkgQueryArgs {
	if e.baseQueryArgs == nil {
		args := types.BaseQueryArgs(e.CombinedOptions())
		e.baseQueryArgs = &args
	}
	return *e.baseQueryArgs
}

// pkgDbRegistry materializes a package database per combined registry
// input, in priority order, scraping the requested systems on first
// construction. Memoized.
func (e *Environment) pkgDbRegistry(ctx context.Context) ([]ports.PkgDbInputPort, error) {
	if e.dbsReady {
		return e.dbInputs, nil
	}
	registry, err := e.CombinedRegistry(ctx)
	if err != nil {
		return nil, err
	}
	inputs := make([]ports.PkgDbInputPort, 0, len(registry.Inputs))
	for _, name := range registry.OrderedNames() {
		entry := registry.Inputs[name]
		if entry.Locked == nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("combined registry contains an unpinned input")
		}
		input, err := e.factory.Open(ctx, name, entry)
		if err != nil {
			return nil, err
		}
		if err := input.ScrapeSystems(ctx, e.Systems()); err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	e.dbInputs = inputs
	e.dbsReady = true
	return inputs, nil
}
