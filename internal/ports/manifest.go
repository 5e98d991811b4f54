package ports

import "envlock/internal/types"

type ManifestSourcePort interface {
	LoadManifest(path string) (types.ManifestRaw, error)
}
