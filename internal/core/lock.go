package core

import (
	"context"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"envlock/internal/types"
)

// groupIsLocked classifies a group as locked for one system: the
// group is not being upgraded, the old lockfile covers the system,
// every member has an equivalent descriptor in the old manifest, and
// every member has an entry in the old system packages. A nil old
// entry counts as locked ("already locked to nothing"); forcing a
// re-resolve for null entries is a known alternative that is
// deliberately not adopted.
func (e *Environment) groupIsLocked(name types.GroupName, group types.InstallDescriptors, oldLockfile *types.LockfileRaw, system types.System) bool {
	// An upgraded group always needs to be locked again.
	if e.UpgradingGroup(name) {
		return false
	}
	oldSystemPackages, ok := oldLockfile.Packages[system]
	if !ok {
		return false
	}
	oldDescriptors := oldLockfile.Descriptors()

	for _, iid := range group.SortedIDs() {
		oldDescriptor, ok := oldDescriptors[iid]
		if !ok {
			return false
		}
		if !descriptorUnchanged(group[iid], oldDescriptor, system) {
			return false
		}
		// The entry may be nil for optionals; it just has to exist.
		if _, ok := oldSystemPackages[iid]; !ok {
			return false
		}
	}
	return true
}

// UnlockedGroups returns the groups that must be re-resolved for the
// given system.
func (e *Environment) UnlockedGroups(system types.System) types.Groups {
	grouped := e.manifest.GroupedDescriptors()
	if e.oldLockfile == nil {
		return grouped
	}
	for name, group := range grouped {
		if e.groupIsLocked(name, group, e.oldLockfile, system) {
			delete(grouped, name)
		}
	}
	return grouped
}

// LockedGroups returns the groups whose prior lock is still valid for
// the given system.
func (e *Environment) LockedGroups(system types.System) types.Groups {
	if e.oldLockfile == nil {
		return types.Groups{}
	}
	grouped := e.manifest.GroupedDescriptors()
	for name, group := range grouped {
		if !e.groupIsLocked(name, group, e.oldLockfile, system) {
			delete(grouped, name)
		}
	}
	return grouped
}

// lockSystem resolves all unlocked groups for one system, carries
// over still-locked entries from the old lockfile, and installs the
// result at lockfileRaw.Packages[system].
func (e *Environment) lockSystem(ctx context.Context, system types.System) error {
	assert.NotNil(ctx, e.lockfileRaw, "lockSystem requires an initialized lockfile")

	pkgs := types.SystemPackages{}
	groups := e.UnlockedGroups(system)

	var msg strings.Builder
	msg.WriteString("failed to resolve some package(s):\n")
	unresolved := 0

	for _, name := range groups.SortedNames() {
		group := groups[name]
		result, err := e.TryResolveGroup(ctx, name, group, system)
		if err != nil {
			return err
		}
		if result.Resolved() {
			for iid, pkg := range result.Packages() {
				pkgs[iid] = pkg
			}
			continue
		}
		// An empty failure means there were no inputs to search at
		// all, which is a distinct fatal condition.
		if len(result.Failure()) == 0 {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("no inputs found to search for packages")
		}
		describeFailure(&msg, name, result.Failure())
		unresolved++
	}

	if unresolved > 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(msg.String())
	}

	// Copy over old lockfile entries we want to keep. The priority is
	// not pinned, so it follows the current descriptor.
	if e.oldLockfile != nil {
		if oldSystemPackages, ok := e.oldLockfile.Packages[system]; ok {
			locked := e.LockedGroups(system)
			for _, name := range locked.SortedNames() {
				group := locked[name]
				for _, iid := range group.SortedIDs() {
					oldPackage, ok := oldSystemPackages[iid]
					if !ok {
						continue
					}
					if oldPackage == nil {
						pkgs[iid] = nil
						continue
					}
					carried := *oldPackage
					carried.Priority = group[iid].Priority
					pkgs[iid] = &carried
				}
			}
		}
	}

	log.Ctx(ctx).Debug().Str("system", system).Int("packages", len(pkgs)).Msg("system locked")
	e.lockfileRaw.Packages[system] = pkgs
	return nil
}

// CreateLockfile is the sole public entry: it builds the combined
// registry and options, locks every requested system, and returns the
// lockfile with unused registry inputs pruned. Idempotent on one
// environment instance; pruning never touches the combined registry.
func (e *Environment) CreateLockfile(ctx context.Context) (types.LockfileRaw, error) {
	if e.lockfileRaw == nil {
		systems := e.Systems()
		if len(systems) == 0 {
			return types.LockfileRaw{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("manifest specifies no systems")
		}
		registry, err := e.CombinedRegistry(ctx)
		if err != nil {
			return types.LockfileRaw{}, err
		}
		lockfile := &types.LockfileRaw{
			Manifest: e.manifest,
			Registry: registry.Clone(),
			Packages: map[types.System]types.SystemPackages{},
		}
		e.lockfileRaw = lockfile
		for _, system := range systems {
			if err := e.lockSystem(ctx, system); err != nil {
				e.lockfileRaw = nil
				return types.LockfileRaw{}, err
			}
		}
	}

	out := *e.lockfileRaw
	out.Registry = e.lockfileRaw.Registry.Clone()
	out.RemoveUnusedInputs()
	return out, nil
}
