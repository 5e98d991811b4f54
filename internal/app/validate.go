package app

import (
	"context"
	"fmt"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"envlock/internal/types"
)

func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	path := strings.TrimSpace(req.ManifestPath)
	if path == "" {
		return ValidateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest path is required")
	}
	manifest, err := s.Manifests.LoadManifest(path)
	if err != nil {
		return ValidateResult{}, err
	}
	if len(manifest.Install) == 0 {
		return ValidateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest installs no packages")
	}
	for _, iid := range manifest.Install.SortedIDs() {
		assert.NotEmpty(ctx, iid, "install id must not be empty")
		if err := validateDescriptor(iid, manifest.Install[iid]); err != nil {
			return ValidateResult{}, err
		}
	}
	for name, input := range manifest.Registry.Inputs {
		if strings.TrimSpace(input.URL) == "" && input.Locked == nil {
			return ValidateResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("registry input '%s' has no url", name))
		}
	}
	groups := manifest.GroupedDescriptors()
	return ValidateResult{
		InstallCount: len(manifest.Install),
		GroupCount:   len(groups),
		Systems:      manifest.Systems,
	}, nil
}

func validateDescriptor(iid types.InstallID, descriptor types.ManifestDescriptor) error {
	if descriptor.Name == nil && len(descriptor.PkgPath) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("descriptor '%s' needs a name or pkg-path", iid))
	}
	if descriptor.Version != nil && descriptor.Semver != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("descriptor '%s' sets both version and semver", iid))
	}
	if descriptor.Subtree != nil && !descriptor.Subtree.Valid() {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("descriptor '%s' names an unknown subtree", iid))
	}
	for _, system := range descriptor.Systems {
		if strings.TrimSpace(system) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("descriptor '%s' lists an empty system", iid))
		}
	}
	return nil
}
