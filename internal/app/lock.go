package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"envlock/internal/core"
	"envlock/internal/types"
)

func (s Service) Lock(ctx context.Context, req LockRequest) (LockResult, error) {
	manifestPath := strings.TrimSpace(req.ManifestPath)
	if manifestPath == "" {
		return LockResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest path is required")
	}
	outputPath := strings.TrimSpace(req.OutputPath)
	if outputPath == "" {
		return LockResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output path is required")
	}

	manifest, err := s.Manifests.LoadManifest(manifestPath)
	if err != nil {
		return LockResult{}, err
	}

	var global *types.ManifestRaw
	if path := strings.TrimSpace(req.GlobalManifestPath); path != "" {
		loaded, err := s.Manifests.LoadManifest(path)
		if err != nil {
			return LockResult{}, err
		}
		global = &loaded
	}

	// A missing prior lockfile means a fresh resolve, not an error.
	var oldLockfile *types.LockfileRaw
	if path := strings.TrimSpace(req.LockfilePath); path != "" {
		loaded, err := s.Lockfiles.Load(path)
		switch {
		case err == nil:
			oldLockfile = &loaded
		case errbuilder.CodeOf(err) == errbuilder.CodeNotFound:
			log.Ctx(ctx).Debug().Str("lockfile", path).Msg("no prior lockfile, resolving fresh")
		default:
			return LockResult{}, err
		}
	}

	if len(req.Systems) > 0 {
		manifest.Systems = append([]types.System(nil), req.Systems...)
	}

	upgrades := types.Upgrades{
		Everything: req.UpgradeAll,
		Groups:     append([]types.GroupName(nil), req.UpgradeGroups...),
	}
	env := core.NewEnvironment(global, manifest, oldLockfile, upgrades, s.Locker(req.PinsPath), s.PkgDbs)
	lockfile, err := env.CreateLockfile(ctx)
	if err != nil {
		return LockResult{}, err
	}

	if err := s.Lockfiles.Save(outputPath, lockfile); err != nil {
		return LockResult{}, err
	}

	count := 0
	for _, pkgs := range lockfile.Packages {
		for _, pkg := range pkgs {
			if pkg != nil {
				count++
			}
		}
	}
	log.Ctx(ctx).Info().
		Str("output", outputPath).
		Int("packages", count).
		Msg("lockfile written")
	return LockResult{
		OutputPath:   outputPath,
		Systems:      env.Systems(),
		PackageCount: count,
	}, nil
}
