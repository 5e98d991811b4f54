package core

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"envlock/internal/ports"
	"envlock/internal/shared"
	"envlock/internal/types"
)

// sameInput reports whether two package database inputs are backed by
// the same pinned artifact.
func sameInput(a, b ports.PkgDbInputPort) bool {
	return a.LockedInput() == b.LockedInput()
}

// groupInput recovers the input pin a group was resolved against in
// the old lockfile, even if the group's membership has partially
// changed. A member locked under the same group wins immediately; a
// member whose package is unchanged but whose group was renamed is
// kept as a fallback so that renaming a group preserves its pin. The
// first wrong-group match in iteration order is the tiebreak.
func (e *Environment) groupInput(group types.InstallDescriptors, oldLockfile *types.LockfileRaw, system types.System) *types.LockedInput {
	oldSystemPackages, ok := oldLockfile.Packages[system]
	if !ok {
		return nil
	}
	oldDescriptors := oldLockfile.Descriptors()

	var wrongGroupInput *types.LockedInput
	for _, iid := range group.SortedIDs() {
		descriptor := group[iid]
		lockedPackage, ok := oldSystemPackages[iid]
		if !ok || lockedPackage == nil {
			continue
		}
		oldDescriptor, ok := oldDescriptors[iid]
		if !ok {
			continue
		}
		if !samePackage(descriptor, oldDescriptor) {
			continue
		}
		if strEq(descriptor.Group, oldDescriptor.Group) {
			input := lockedPackage.Input
			return &input
		}
		if wrongGroupInput == nil {
			input := lockedPackage.Input
			wrongGroupInput = &input
		}
	}
	return wrongGroupInput
}

// tryResolveDescriptorIn queries one input for one descriptor,
// returning the highest ranked row or nil when nothing matched.
func (e *Environment) tryResolveDescriptorIn(
	ctx context.Context,
	descriptor types.ManifestDescriptor,
	input ports.PkgDbInputPort,
	system types.System,
) (*types.RowID, error) {
	// A descriptor bound to a named input never resolves elsewhere.
	// The prior-pin input has no name and is always allowed.
	if descriptor.Input != nil && input.Name() != "" && input.Name() != *descriptor.Input {
		return nil, nil
	}

	args := e.CombinedBaseQueryArgs()
	input.FillQueryArgs(&args)
	descriptor.FillQueryArgs(&args)
	// Limit results to the target system.
	args.Systems = []types.System{system}

	db, err := input.DbReadOnly()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	return &row, nil
}

// lockPackage materializes one resolved row into a locked package:
// fetch the row's metadata, promote absPath to the attribute path,
// strip the redundant location fields, and attach the descriptor's
// priority.
func lockPackage(input types.LockedInput, db ports.PkgDbReadOnlyPort, row types.RowID, priority uint) (*types.LockedPackage, error) {
	info, err := db.GetPackage(row)
	if err != nil {
		return nil, err
	}
	attrPath, ok := toStringSlice(info["absPath"])
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("package metadata is missing its attribute path")
	}
	delete(info, "absPath")
	delete(info, "relPath")
	delete(info, "subtree")
	delete(info, "id")
	delete(info, "system")
	return &types.LockedPackage{
		Input:    input,
		AttrPath: attrPath,
		Priority: priority,
		Info:     info,
	}, nil
}

func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// tryResolveGroupIn attempts to resolve every descriptor in a group
// against one input. On success it returns the group's locked
// packages; on the first mandatory miss it returns that install ID
// without probing further descriptors.
func (e *Environment) tryResolveGroupIn(
	ctx context.Context,
	group types.InstallDescriptors,
	input ports.PkgDbInputPort,
	system types.System,
) (types.SystemPackages, types.InstallID, error) {
	logger := log.Ctx(ctx).With().Str("input", input.Name()).Str("system", system).Logger()

	rowsByID := map[types.InstallID]*types.RowID{}
	for _, iid := range group.SortedIDs() {
		descriptor := group[iid]
		// Skip unrequested systems.
		if systemSkipped(system, descriptor.Systems) {
			rowsByID[iid] = nil
			continue
		}
		row, err := e.tryResolveDescriptorIn(ctx, descriptor, input, system)
		if err != nil {
			return nil, "", err
		}
		if row == nil && !descriptor.Optional {
			logger.Debug().Str("iid", iid).Msg("descriptor not found in input")
			return nil, iid, nil
		}
		rowsByID[iid] = row
	}

	db, err := input.DbReadOnly()
	if err != nil {
		return nil, "", err
	}
	lockedInput := input.LockedInput()
	pkgs := types.SystemPackages{}
	for iid, row := range rowsByID {
		if row == nil {
			pkgs[iid] = nil
			continue
		}
		pkg, err := lockPackage(lockedInput, db, *row, group[iid].Priority)
		if err != nil {
			return nil, "", err
		}
		logger.Debug().Str("iid", iid).Str("attr-path", shared.JoinAttrPath(pkg.AttrPath)).Msg("locked package")
		pkgs[iid] = pkg
	}
	return pkgs, "", nil
}

// TryResolveGroup runs the group state machine: try the old
// lockfile's pin first (unless the group is being upgraded), then
// sweep the registry in priority order, first match wins. Failed
// attempts accumulate into the returned failure.
func (e *Environment) TryResolveGroup(
	ctx context.Context,
	name types.GroupName,
	group types.InstallDescriptors,
	system types.System,
) (GroupResult, error) {
	failure := ResolutionFailure{}

	// Phase A: prior pin attempt.
	var oldGroupInput ports.PkgDbInputPort
	if !e.UpgradingGroup(name) && e.oldLockfile != nil {
		if lockedInput := e.groupInput(group, e.oldLockfile, system); lockedInput != nil {
			log.Ctx(ctx).Debug().
				Str("group", name).
				Str("ref", lockedInput.Ref()).
				Msg("group previously resolved against input")
			registryInput := types.RegistryInput{URL: lockedInput.URL, Locked: lockedInput}
			input, err := e.factory.Open(ctx, "", registryInput)
			if err != nil {
				return GroupResult{}, err
			}
			if err := input.ScrapeSystems(ctx, []types.System{system}); err != nil {
				return GroupResult{}, err
			}
			oldGroupInput = input

			pkgs, failedID, err := e.tryResolveGroupIn(ctx, group, input, system)
			if err != nil {
				return GroupResult{}, err
			}
			if pkgs != nil {
				return resolvedGroup(pkgs), nil
			}
			failure = append(failure, FailedAttempt{InstallID: failedID, InputRef: lockedInput.Ref()})
		}
	}

	// Phase B: registry sweep in priority order, skipping the pin we
	// already tried.
	inputs, err := e.pkgDbRegistry(ctx)
	if err != nil {
		return GroupResult{}, err
	}
	for _, input := range inputs {
		if oldGroupInput != nil && sameInput(input, oldGroupInput) {
			continue
		}
		pkgs, failedID, err := e.tryResolveGroupIn(ctx, group, input, system)
		if err != nil {
			return GroupResult{}, err
		}
		if pkgs != nil {
			log.Ctx(ctx).Info().
				Msgf("upgrading group '%s' to avoid resolution failure", GroupNameOf(group))
			return resolvedGroup(pkgs), nil
		}
		failure = append(failure, FailedAttempt{InstallID: failedID, InputRef: input.LockedInput().Ref()})
	}

	return failedGroup(failure), nil
}
