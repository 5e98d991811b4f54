package core

import (
	"context"

	"envlock/internal/ports"
	"envlock/internal/types"
)

func strPtr(s string) *string { return &s }

func grpPtr(g types.GroupName) *types.GroupName { return &g }

type fakeLocker struct {
	pins  map[string]types.LockedInput
	calls []string
}

func (l *fakeLocker) LockInput(_ context.Context, name string, input types.RegistryInput) (types.LockedInput, error) {
	l.calls = append(l.calls, name)
	if locked, ok := l.pins[name]; ok {
		return locked, nil
	}
	return types.LockedInput{URL: input.URL, Rev: "rev0", NarHash: "hash0"}, nil
}

type fakeRow struct {
	system  types.System
	relPath []string
	pname   string
	version string
}

type fakeDB struct {
	ref     string
	rows    []fakeRow
	queries *int
}

func (d *fakeDB) Query(args types.PkgQueryArgs) ([]types.RowID, error) {
	*d.queries++
	var out []types.RowID
	for id, row := range d.rows {
		if len(args.Systems) > 0 && row.system != args.Systems[0] {
			continue
		}
		if args.Name != nil && row.pname != *args.Name {
			continue
		}
		if len(args.PkgPath) > 0 && !slicesEqual(row.relPath, args.PkgPath) {
			continue
		}
		if args.Version != nil && row.version != *args.Version {
			continue
		}
		out = append(out, types.RowID(id))
	}
	return out, nil
}

func (d *fakeDB) GetPackage(row types.RowID) (map[string]any, error) {
	r := d.rows[row]
	return map[string]any{
		"id":      row,
		"pname":   r.pname,
		"version": r.version,
		"system":  r.system,
		"subtree": "legacyPackages",
		"relPath": append([]string(nil), r.relPath...),
		"absPath": append([]string{"legacyPackages", r.system}, r.relPath...),
	}, nil
}

func (d *fakeDB) LockedRef() string { return d.ref }

type fakeInput struct {
	name    string
	locked  types.LockedInput
	db      *fakeDB
	scrapes int
}

func (i *fakeInput) Name() string                        { return i.name }
func (i *fakeInput) LockedInput() types.LockedInput      { return i.locked }
func (i *fakeInput) FillQueryArgs(_ *types.PkgQueryArgs) {}

func (i *fakeInput) DbReadOnly() (ports.PkgDbReadOnlyPort, error) { return i.db, nil }

func (i *fakeInput) ScrapeSystems(_ context.Context, _ []types.System) error {
	i.scrapes++
	return nil
}

// fakeFactory serves rows keyed by locked input identity and counts
// every query across all opened databases.
type fakeFactory struct {
	rows    map[types.LockedInput][]fakeRow
	queries int
}

func (f *fakeFactory) Open(_ context.Context, name string, input types.RegistryInput) (ports.PkgDbInputPort, error) {
	locked := *input.Locked
	db := &fakeDB{ref: locked.Ref(), rows: f.rows[locked], queries: &f.queries}
	return &fakeInput{name: name, locked: locked, db: db}, nil
}

func slicesEqual(a, b []string) bool {
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
