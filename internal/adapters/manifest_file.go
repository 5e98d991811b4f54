package adapters

import (
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"envlock/internal/ports"
	"envlock/internal/types"
)

type ManifestFileAdapter struct{}

func NewManifestFileAdapter() ManifestFileAdapter {
	return ManifestFileAdapter{}
}

func (a ManifestFileAdapter) LoadManifest(path string) (types.ManifestRaw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ManifestRaw{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("manifest file not found").
			WithCause(err)
	}
	var manifest types.ManifestRaw
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return types.ManifestRaw{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse manifest yaml").
			WithCause(err)
	}
	for iid, descriptor := range manifest.Install {
		if descriptor.Priority == 0 {
			descriptor.Priority = types.DefaultPriority
			manifest.Install[iid] = descriptor
		}
	}
	return manifest, nil
}

var _ ports.ManifestSourcePort = ManifestFileAdapter{}
