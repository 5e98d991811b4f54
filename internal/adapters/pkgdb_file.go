package adapters

import (
	"context"
	"os"
	"sort"

	semver "github.com/Masterminds/semver/v3"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"envlock/internal/ports"
	"envlock/internal/shared"
	"envlock/internal/types"
)

// indexFile is the on-disk package database: one yaml document
// listing every package row an input provides.
type indexFile struct {
	URL      string       `yaml:"url,omitempty"`
	Packages []indexEntry `yaml:"packages"`
}

type indexEntry struct {
	Subtree     types.Subtree `yaml:"subtree"`
	System      types.System  `yaml:"system"`
	RelPath     []string      `yaml:"rel-path,flow"`
	Pname       string        `yaml:"pname"`
	Version     string        `yaml:"version,omitempty"`
	Description string        `yaml:"description,omitempty"`
	License     string        `yaml:"license,omitempty"`
	Unfree      bool          `yaml:"unfree,omitempty"`
	Broken      bool          `yaml:"broken,omitempty"`
}

type IndexFileFactory struct{}

func NewIndexFileFactory() IndexFileFactory {
	return IndexFileFactory{}
}

func (IndexFileFactory) Open(_ context.Context, name string, input types.RegistryInput) (ports.PkgDbInputPort, error) {
	if input.Locked == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cannot open a package database for an unpinned input")
	}
	return &IndexFileInput{name: name, registry: input, locked: *input.Locked}, nil
}

var _ ports.PkgDbFactoryPort = IndexFileFactory{}

// IndexFileInput is one input's package database, backed by a yaml
// index file addressed by the locked input's URL.
type IndexFileInput struct {
	name     string
	registry types.RegistryInput
	locked   types.LockedInput
	db       *indexReadOnly
	scraped  map[types.System]struct{}
}

func (i *IndexFileInput) Name() string { return i.name }

func (i *IndexFileInput) LockedInput() types.LockedInput { return i.locked }

func (i *IndexFileInput) FillQueryArgs(args *types.PkgQueryArgs) {
	if len(i.registry.Subtrees) > 0 {
		args.Subtrees = append([]types.Subtree(nil), i.registry.Subtrees...)
	}
}

// ScrapeSystems loads the index on first call; the file carries every
// system's rows at once, so later calls only record the request.
func (i *IndexFileInput) ScrapeSystems(ctx context.Context, systems []types.System) error {
	if _, err := i.open(); err != nil {
		return err
	}
	if i.scraped == nil {
		i.scraped = map[types.System]struct{}{}
	}
	for _, system := range systems {
		if _, ok := i.scraped[system]; ok {
			continue
		}
		i.scraped[system] = struct{}{}
		log.Ctx(ctx).Debug().Str("input", i.name).Str("system", system).Msg("scraped input")
	}
	return nil
}

func (i *IndexFileInput) DbReadOnly() (ports.PkgDbReadOnlyPort, error) {
	return i.open()
}

func (i *IndexFileInput) open() (*indexReadOnly, error) {
	if i.db != nil {
		return i.db, nil
	}
	path := shared.PathFromURL(i.locked.URL)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("package index not found").
			WithCause(err)
	}
	if digest := shared.HashBytes(data); i.locked.NarHash != "" && digest != i.locked.NarHash {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("input content changed since it was locked")
	}
	var idx indexFile
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid package index format").
			WithCause(err)
	}
	i.db = &indexReadOnly{ref: i.locked.Ref(), rows: idx.Packages}
	return i.db, nil
}

var _ ports.PkgDbInputPort = (*IndexFileInput)(nil)

// indexReadOnly is the read-only query handle over parsed index rows.
// Row IDs are indices into rows.
type indexReadOnly struct {
	ref  string
	rows []indexEntry
}

func (d *indexReadOnly) LockedRef() string { return d.ref }

func (d *indexReadOnly) Query(args types.PkgQueryArgs) ([]types.RowID, error) {
	subtrees := args.Subtrees
	if len(subtrees) == 0 {
		subtrees = types.DefaultSubtrees
	}

	var constraint *semver.Constraints
	if args.Semver != nil {
		parsed, err := semver.NewConstraint(*args.Semver)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid semver range").
				WithCause(err)
		}
		constraint = parsed
	}

	cache := newVersionCache()
	var out []types.RowID
	for id, row := range d.rows {
		if !systemRequested(row.System, args.Systems) {
			continue
		}
		if subtreeRank(row.Subtree, subtrees) < 0 {
			continue
		}
		if args.Name != nil && !rowMatchesName(row, *args.Name) {
			continue
		}
		if len(args.PkgPath) > 0 && !rowMatchesPath(row, args.PkgPath) {
			continue
		}
		if args.Version != nil && row.Version != *args.Version {
			continue
		}
		if constraint != nil {
			parsed := cache.semverVersion(row.Version)
			if parsed == nil || !constraint.Check(parsed) {
				continue
			}
		}
		if !args.AllowUnfree && row.Unfree {
			continue
		}
		if !args.AllowBroken && row.Broken {
			continue
		}
		if len(args.AllowLicenses) > 0 && row.License != "" &&
			!containsString(args.AllowLicenses, row.License) {
			continue
		}
		out = append(out, types.RowID(id))
	}

	sort.SliceStable(out, func(a, b int) bool {
		ra, rb := d.rows[out[a]], d.rows[out[b]]
		if ka, kb := subtreeRank(ra.Subtree, subtrees), subtreeRank(rb.Subtree, subtrees); ka != kb {
			return ka < kb
		}
		if cmp := cache.compare(ra.Version, rb.Version, args.PreferPreReleases); cmp != 0 {
			return cmp > 0
		}
		if len(ra.RelPath) != len(rb.RelPath) {
			return len(ra.RelPath) < len(rb.RelPath)
		}
		return out[a] < out[b]
	})
	return out, nil
}

func (d *indexReadOnly) GetPackage(row types.RowID) (map[string]any, error) {
	if row < 0 || row >= types.RowID(len(d.rows)) {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("package row does not exist")
	}
	entry := d.rows[row]
	absPath := append([]string{string(entry.Subtree), entry.System}, entry.RelPath...)
	info := map[string]any{
		"id":      row,
		"pname":   entry.Pname,
		"version": entry.Version,
		"subtree": string(entry.Subtree),
		"system":  entry.System,
		"relPath": append([]string(nil), entry.RelPath...),
		"absPath": absPath,
	}
	if entry.Description != "" {
		info["description"] = entry.Description
	}
	if entry.License != "" {
		info["license"] = entry.License
	}
	info["unfree"] = entry.Unfree
	info["broken"] = entry.Broken
	return info, nil
}

var _ ports.PkgDbReadOnlyPort = (*indexReadOnly)(nil)

func systemRequested(system types.System, systems []types.System) bool {
	if len(systems) == 0 {
		return true
	}
	for _, s := range systems {
		if s == system {
			return true
		}
	}
	return false
}

// subtreeRank is the subtree's position in the requested search
// order, or -1 when the subtree is not requested.
func subtreeRank(subtree types.Subtree, requested []types.Subtree) int {
	for i, s := range requested {
		if s == subtree {
			return i
		}
	}
	return -1
}

func rowMatchesName(row indexEntry, name string) bool {
	if row.Pname == name {
		return true
	}
	return len(row.RelPath) > 0 && row.RelPath[len(row.RelPath)-1] == name
}

func rowMatchesPath(row indexEntry, pkgPath []string) bool {
	if stringsEqual(row.RelPath, pkgPath) {
		return true
	}
	absPath := append([]string{string(row.Subtree), row.System}, row.RelPath...)
	return stringsEqual(absPath, pkgPath)
}

func stringsEqual(a, b []string) bool {
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

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
