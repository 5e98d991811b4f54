package core

import "envlock/internal/types"

// GroupNameOf extracts the name of a group from its descriptors, or
// DefaultGroup if no member declares one.
func GroupNameOf(group types.InstallDescriptors) types.GroupName {
	for _, descriptor := range group {
		if descriptor.Group != nil && *descriptor.Group != "" {
			return *descriptor.Group
		}
	}
	return types.DefaultGroup
}

// systemSkipped reports whether a descriptor skips the given system:
// a systems list is specified and the system is not in it.
func systemSkipped(system types.System, systems []types.System) bool {
	if systems == nil {
		return false
	}
	for _, s := range systems {
		if s == system {
			return false
		}
	}
	return true
}

func strEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func subtreeEq(a, b *types.Subtree) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func pathEq(a, b []string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// samePackage reports whether two descriptors request the same
// package. The enumerated fields control what the package *is*;
// group, systems, optional, and priority affect behavior around
// resolution without changing the package.
func samePackage(descriptor, old types.ManifestDescriptor) bool {
	return strEq(descriptor.Name, old.Name) &&
		pathEq(descriptor.PkgPath, old.PkgPath) &&
		strEq(descriptor.Version, old.Version) &&
		strEq(descriptor.Semver, old.Semver) &&
		subtreeEq(descriptor.Subtree, old.Subtree) &&
		strEq(descriptor.Input, old.Input)
}

// descriptorUnchanged decides equivalence for pin reuse with respect
// to one system: the package fields plus group and optional must
// match, and the systems field is compared projected through the
// target system so changes to other systems do not invalidate this
// one. Priority is deliberately excluded. The enumeration is the
// behavior; extending it is a behavior change.
func descriptorUnchanged(descriptor, old types.ManifestDescriptor, system types.System) bool {
	if !samePackage(descriptor, old) {
		return false
	}
	if !strEq(descriptor.Group, old.Group) {
		return false
	}
	if descriptor.Optional != old.Optional {
		return false
	}
	return systemSkipped(system, descriptor.Systems) == systemSkipped(system, old.Systems)
}
