package app

import (
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"envlock/internal/shared"
)

func (s Service) Inspect(req InspectRequest) (InspectResult, error) {
	path := strings.TrimSpace(req.LockfilePath)
	if path == "" {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("lockfile path is required")
	}
	lockfile, err := s.Lockfiles.Load(path)
	if err != nil {
		return InspectResult{}, err
	}

	systems := make([]string, 0, len(lockfile.Packages))
	for system := range lockfile.Packages {
		systems = append(systems, system)
	}
	sort.Strings(systems)

	result := InspectResult{InputCount: len(lockfile.Registry.Inputs)}
	for _, system := range systems {
		pkgs := lockfile.Packages[system]
		summary := InspectSystem{System: system}
		iids := make([]string, 0, len(pkgs))
		for iid := range pkgs {
			iids = append(iids, iid)
		}
		sort.Strings(iids)
		for _, iid := range iids {
			pkg := pkgs[iid]
			if pkg == nil {
				summary.Unresolved = append(summary.Unresolved, iid)
				continue
			}
			summary.Packages = append(summary.Packages, InspectPackage{
				InstallID: iid,
				AttrPath:  shared.JoinAttrPath(pkg.AttrPath),
				InputRef:  pkg.Input.Ref(),
				Priority:  pkg.Priority,
			})
		}
		result.Systems = append(result.Systems, summary)
	}
	return result, nil
}
