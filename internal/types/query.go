package types

// RowID identifies one row in a package database.
type RowID = int64

// PkgQueryArgs is a structured package database query. A base record
// is derived from the combined options, then overlaid with
// input-specific and descriptor-specific constraints.
type PkgQueryArgs struct {
	Name              *string
	PkgPath           []string
	Version           *string
	Semver            *string
	Subtrees          []Subtree
	Systems           []System
	AllowUnfree       bool
	AllowBroken       bool
	AllowLicenses     []string
	PreferPreReleases bool
}

// BaseQueryArgs coerces combined options into the starting point for
// every query. Unfree packages are allowed unless options say
// otherwise; broken packages are excluded unless opted into.
func BaseQueryArgs(options Options) PkgQueryArgs {
	args := PkgQueryArgs{
		Systems:     append([]System(nil), options.Systems...),
		AllowUnfree: true,
		AllowBroken: false,
	}
	if options.Allow.Unfree != nil {
		args.AllowUnfree = *options.Allow.Unfree
	}
	if options.Allow.Broken != nil {
		args.AllowBroken = *options.Allow.Broken
	}
	if options.Allow.Licenses != nil {
		args.AllowLicenses = append([]string(nil), options.Allow.Licenses...)
	}
	if options.Semver.PreferPreReleases != nil {
		args.PreferPreReleases = *options.Semver.PreferPreReleases
	}
	return args
}

// FillQueryArgs imprints the descriptor's constraints onto args.
// An exact version clears any semver range from a lower layer and
// vice versa; the two are mutually exclusive on one descriptor.
func (d ManifestDescriptor) FillQueryArgs(args *PkgQueryArgs) {
	if d.Name != nil {
		args.Name = d.Name
	}
	if len(d.PkgPath) > 0 {
		args.PkgPath = append([]string(nil), d.PkgPath...)
	}
	if d.Version != nil {
		args.Version = d.Version
		args.Semver = nil
	}
	if d.Semver != nil {
		args.Semver = d.Semver
		args.Version = nil
	}
	if d.Subtree != nil {
		args.Subtrees = []Subtree{*d.Subtree}
	}
	if d.Systems != nil {
		args.Systems = append([]System(nil), d.Systems...)
	}
}
