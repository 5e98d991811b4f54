package types

import "sort"

// System identifies a target platform, e.g. "x86_64-linux".
type System = string

// InstallID is the key under which a descriptor appears in a manifest.
type InstallID = string

// GroupName names a set of descriptors that must resolve against one
// common input pin.
type GroupName = string

// DefaultGroup is the group applied to descriptors that do not set one.
const DefaultGroup GroupName = "default"

// DefaultPriority is assigned to descriptors that do not set one.
const DefaultPriority uint = 5

// ManifestDescriptor is a single install request. Optional fields are
// pointers so that "unset" is distinguishable from an explicit empty
// value; Systems nil means the descriptor applies to every system.
type ManifestDescriptor struct {
	// Name matches the package's pname or attribute name.
	Name *string `yaml:"name,omitempty"`

	// PkgPath matches an attribute path, relative to the subtree root
	// and system (e.g. [python3Packages, pip]).
	PkgPath []string `yaml:"pkg-path,omitempty,flow"`

	// Version requires an exact version match.
	Version *string `yaml:"version,omitempty"`

	// Semver requires the version to satisfy a semver range
	// expression (e.g. ">=2.0 <3.0").
	Semver *string `yaml:"semver,omitempty"`

	// Subtree restricts the search to a single subtree.
	Subtree *Subtree `yaml:"subtree,omitempty"`

	// Input restricts resolution to the named registry input.
	Input *string `yaml:"input,omitempty"`

	// Group assigns the descriptor to a named group. Descriptors in
	// one group resolve against a single common input pin.
	Group *GroupName `yaml:"group,omitempty"`

	// Systems restricts which systems the descriptor applies to.
	Systems []System `yaml:"systems,omitempty,flow"`

	// Optional makes a resolution miss non-fatal.
	Optional bool `yaml:"optional,omitempty"`

	// Priority is passed through to the locked package; it does not
	// affect resolution.
	Priority uint `yaml:"priority,omitempty"`
}

// InstallDescriptors maps install IDs to their descriptors.
type InstallDescriptors map[InstallID]ManifestDescriptor

// SortedIDs returns the install IDs in deterministic iteration order.
func (d InstallDescriptors) SortedIDs() []InstallID {
	ids := make([]InstallID, 0, len(d))
	for iid := range d {
		ids = append(ids, iid)
	}
	sort.Strings(ids)
	return ids
}

// Groups partitions descriptors by group name.
type Groups map[GroupName]InstallDescriptors

// SortedNames returns group names in deterministic iteration order.
func (g Groups) SortedNames() []GroupName {
	names := make([]GroupName, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ManifestRaw is the declarative user specification being resolved.
type ManifestRaw struct {
	Install  InstallDescriptors `yaml:"install"`
	Registry Registry           `yaml:"registry,omitempty"`
	Options  Options            `yaml:"options,omitempty"`
	Systems  []System           `yaml:"systems,omitempty,flow"`
}

// GroupedDescriptors partitions the manifest's descriptors into
// groups. Descriptors without an explicit group land in DefaultGroup.
func (m ManifestRaw) GroupedDescriptors() Groups {
	groups := Groups{}
	for iid, descriptor := range m.Install {
		name := DefaultGroup
		if descriptor.Group != nil && *descriptor.Group != "" {
			name = *descriptor.Group
		}
		if groups[name] == nil {
			groups[name] = InstallDescriptors{}
		}
		groups[name][iid] = descriptor
	}
	return groups
}
