package types

// LockedPackage is a fully pinned resolved package. Info holds the
// package database metadata after the redundant location fields have
// been stripped.
type LockedPackage struct {
	Input    LockedInput    `yaml:"input"`
	AttrPath []string       `yaml:"attr-path,flow"`
	Priority uint           `yaml:"priority"`
	Info     map[string]any `yaml:"info,omitempty"`
}

// SystemPackages maps install IDs to their locked packages for one
// system. A nil entry records an optional descriptor that was
// intentionally left unresolved.
type SystemPackages = map[InstallID]*LockedPackage

// LockfileRaw is the persistent artifact binding a manifest to
// specific packages.
type LockfileRaw struct {
	Manifest ManifestRaw               `yaml:"manifest"`
	Registry Registry                  `yaml:"registry"`
	Packages map[System]SystemPackages `yaml:"packages"`
}

// Descriptors returns the install descriptors of the lockfile's
// manifest.
func (l LockfileRaw) Descriptors() InstallDescriptors {
	return l.Manifest.Install
}

// RemoveUnusedInputs prunes registry entries that no locked package
// references. A locked input is used iff it appears as some
// packages[system][iid].Input. Pruning affects only the lockfile's
// registry; the combined registry an environment resolved against is
// untouched.
func (l *LockfileRaw) RemoveUnusedInputs() {
	used := map[LockedInput]struct{}{}
	for _, pkgs := range l.Packages {
		for _, pkg := range pkgs {
			if pkg != nil {
				used[pkg.Input] = struct{}{}
			}
		}
	}
	for name, input := range l.Registry.Inputs {
		if input.Locked != nil {
			if _, ok := used[*input.Locked]; ok {
				continue
			}
		}
		delete(l.Registry.Inputs, name)
	}
	kept := l.Registry.Priority[:0]
	for _, name := range l.Registry.Priority {
		if _, ok := l.Registry.Inputs[name]; ok {
			kept = append(kept, name)
		}
	}
	l.Registry.Priority = kept
}
