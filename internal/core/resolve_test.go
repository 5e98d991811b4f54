package core

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envlock/internal/types"
)

const linux = "x86_64-linux"

func TestCreateLockfileFreshSingleInput(t *testing.T) {
	manifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"hello": {Name: strPtr("hello"), Priority: 5},
		},
		Registry: types.Registry{
			Inputs: map[string]types.RegistryInput{"nixpkgs": {URL: "file:n.yaml"}},
		},
	}
	pin := types.LockedInput{URL: "file:n.yaml", Rev: "rev0", NarHash: "hash0"}
	factory := &fakeFactory{rows: map[types.LockedInput][]fakeRow{
		pin: {{system: linux, relPath: []string{"hello"}, pname: "hello", version: "2.12.1"}},
	}}
	env := NewEnvironment(nil, manifest, nil, types.Upgrades{}, &fakeLocker{}, factory)

	lockfile, err := env.CreateLockfile(t.Context())
	require.NoError(t, err)

	require.Contains(t, lockfile.Packages, linux)
	pkg := lockfile.Packages[linux]["hello"]
	require.NotNil(t, pkg)
	if diff := cmp.Diff([]string{"legacyPackages", linux, "hello"}, pkg.AttrPath); diff != "" {
		t.Fatalf("unexpected attr path (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint(5), pkg.Priority)
	assert.Equal(t, pin, pkg.Input)

	// Redundant location fields are stripped from the metadata.
	assert.NotContains(t, pkg.Info, "absPath")
	assert.NotContains(t, pkg.Info, "relPath")
	assert.NotContains(t, pkg.Info, "subtree")
	assert.NotContains(t, pkg.Info, "id")
	assert.NotContains(t, pkg.Info, "system")
	assert.Equal(t, "hello", pkg.Info["pname"])
	assert.Equal(t, "2.12.1", pkg.Info["version"])

	// The registry holds exactly the one pinned input.
	require.Len(t, lockfile.Registry.Inputs, 1)
	assert.Equal(t, pin, *lockfile.Registry.Inputs["nixpkgs"].Locked)
}

func TestCreateLockfileUnchangedManifestIssuesNoQueries(t *testing.T) {
	manifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"hello": {Name: strPtr("hello"), Priority: 5},
		},
		Registry: types.Registry{
			Inputs: map[string]types.RegistryInput{"nixpkgs": {URL: "file:n.yaml"}},
		},
	}
	pin := types.LockedInput{URL: "file:n.yaml", Rev: "rev0", NarHash: "hash0"}
	rows := map[types.LockedInput][]fakeRow{
		pin: {{system: linux, relPath: []string{"hello"}, pname: "hello", version: "2.12.1"}},
	}
	env := NewEnvironment(nil, manifest, nil, types.Upgrades{}, &fakeLocker{}, &fakeFactory{rows: rows})
	first, err := env.CreateLockfile(t.Context())
	require.NoError(t, err)

	relockFactory := &fakeFactory{rows: rows}
	relockLocker := &fakeLocker{}
	relock := NewEnvironment(nil, manifest, &first, types.Upgrades{}, relockLocker, relockFactory)
	second, err := relock.CreateLockfile(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 0, relockFactory.queries, "a fully locked manifest must not query")
	assert.Empty(t, relockLocker.calls, "pinned inputs must not be re-locked")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("relock changed the lockfile (-want +got):\n%s", diff)
	}
}

func TestOptionalDescriptorMissing(t *testing.T) {
	manifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"hello": {Name: strPtr("hello"), Priority: 5},
			"ghost": {Name: strPtr("ghost"), Priority: 5, Optional: true},
		},
		Registry: types.Registry{
			Inputs: map[string]types.RegistryInput{"nixpkgs": {URL: "file:n.yaml"}},
		},
	}
	pin := types.LockedInput{URL: "file:n.yaml", Rev: "rev0", NarHash: "hash0"}
	factory := &fakeFactory{rows: map[types.LockedInput][]fakeRow{
		pin: {{system: linux, relPath: []string{"hello"}, pname: "hello", version: "2.12.1"}},
	}}
	env := NewEnvironment(nil, manifest, nil, types.Upgrades{}, &fakeLocker{}, factory)

	lockfile, err := env.CreateLockfile(t.Context())
	require.NoError(t, err)

	pkgs := lockfile.Packages[linux]
	require.NotNil(t, pkgs["hello"])
	ghost, ok := pkgs["ghost"]
	require.True(t, ok, "optional miss must be recorded explicitly")
	assert.Nil(t, ghost)
}

func TestRequiredDescriptorFallsBackToSecondInput(t *testing.T) {
	manifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"hello": {Name: strPtr("hello"), Priority: 5},
		},
		Registry: types.Registry{
			Inputs: map[string]types.RegistryInput{
				"a": {URL: "file:a.yaml"},
				"b": {URL: "file:b.yaml"},
			},
			Priority: []string{"a", "b"},
		},
	}
	pinA := types.LockedInput{URL: "file:a.yaml", Rev: "rev0", NarHash: "hash0"}
	pinB := types.LockedInput{URL: "file:b.yaml", Rev: "rev0", NarHash: "hash0"}
	factory := &fakeFactory{rows: map[types.LockedInput][]fakeRow{
		pinA: {},
		pinB: {{system: linux, relPath: []string{"hello"}, pname: "hello", version: "2.12.1"}},
	}}
	env := NewEnvironment(nil, manifest, nil, types.Upgrades{}, &fakeLocker{}, factory)

	lockfile, err := env.CreateLockfile(t.Context())
	require.NoError(t, err)
	pkg := lockfile.Packages[linux]["hello"]
	require.NotNil(t, pkg)
	assert.Equal(t, pinB, pkg.Input)
}

func TestGroupRenamePreservesPin(t *testing.T) {
	oldPin := types.LockedInput{URL: "file:a.yaml", Rev: "rev1", NarHash: "hash1"}
	newPin := types.LockedInput{URL: "file:a.yaml", Rev: "rev2", NarHash: "hash2"}

	oldManifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"hello": {Name: strPtr("hello"), Group: grpPtr("g1"), Priority: 5},
		},
		Registry: types.Registry{
			Inputs: map[string]types.RegistryInput{"a": {URL: "file:a.yaml", Locked: &oldPin}},
		},
	}
	oldLockfile := types.LockfileRaw{
		Manifest: oldManifest,
		Registry: oldManifest.Registry,
		Packages: map[types.System]types.SystemPackages{
			linux: {
				"hello": &types.LockedPackage{
					Input:    oldPin,
					AttrPath: []string{"legacyPackages", linux, "hello"},
					Priority: 5,
				},
			},
		},
	}

	manifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"hello": {Name: strPtr("hello"), Group: grpPtr("g2"), Priority: 5},
		},
		Registry: types.Registry{
			Inputs: map[string]types.RegistryInput{"a": {URL: "file:a.yaml", Locked: &newPin}},
		},
	}
	factory := &fakeFactory{rows: map[types.LockedInput][]fakeRow{
		oldPin: {{system: linux, relPath: []string{"hello"}, pname: "hello", version: "2.12.1"}},
		newPin: {{system: linux, relPath: []string{"hello"}, pname: "hello", version: "2.13.0"}},
	}}
	env := NewEnvironment(nil, manifest, &oldLockfile, types.Upgrades{}, &fakeLocker{}, factory)

	lockfile, err := env.CreateLockfile(t.Context())
	require.NoError(t, err)
	pkg := lockfile.Packages[linux]["hello"]
	require.NotNil(t, pkg)
	assert.Equal(t, oldPin, pkg.Input, "wrong-group fallback must reuse the prior pin")
	assert.Equal(t, "2.12.1", pkg.Info["version"])
}

func TestTargetedUpgrade(t *testing.T) {
	oldPin := types.LockedInput{URL: "file:a.yaml", Rev: "rev1", NarHash: "hash1"}
	newPin := types.LockedInput{URL: "file:a.yaml", Rev: "rev2", NarHash: "hash2"}

	oldManifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"hello":  {Name: strPtr("hello"), Group: grpPtr("core"), Priority: 5},
			"cowsay": {Name: strPtr("cowsay"), Group: grpPtr("other"), Priority: 5},
		},
		Registry: types.Registry{
			Inputs: map[string]types.RegistryInput{"a": {URL: "file:a.yaml", Locked: &oldPin}},
		},
	}
	oldLockfile := types.LockfileRaw{
		Manifest: oldManifest,
		Registry: oldManifest.Registry,
		Packages: map[types.System]types.SystemPackages{
			linux: {
				"hello": &types.LockedPackage{
					Input:    oldPin,
					AttrPath: []string{"legacyPackages", linux, "hello"},
					Priority: 5,
				},
				"cowsay": &types.LockedPackage{
					Input:    oldPin,
					AttrPath: []string{"legacyPackages", linux, "cowsay"},
					Priority: 5,
				},
			},
		},
	}

	manifest := oldManifest
	manifest.Registry = types.Registry{
		Inputs: map[string]types.RegistryInput{"a": {URL: "file:a.yaml", Locked: &newPin}},
	}
	factory := &fakeFactory{rows: map[types.LockedInput][]fakeRow{
		oldPin: {
			{system: linux, relPath: []string{"hello"}, pname: "hello", version: "2.12.1"},
			{system: linux, relPath: []string{"cowsay"}, pname: "cowsay", version: "3.04"},
		},
		newPin: {
			{system: linux, relPath: []string{"hello"}, pname: "hello", version: "2.13.0"},
			{system: linux, relPath: []string{"cowsay"}, pname: "cowsay", version: "3.05"},
		},
	}}
	upgrades := types.Upgrades{Groups: []types.GroupName{"core"}}
	env := NewEnvironment(nil, manifest, &oldLockfile, upgrades, &fakeLocker{}, factory)

	lockfile, err := env.CreateLockfile(t.Context())
	require.NoError(t, err)
	hello := lockfile.Packages[linux]["hello"]
	cowsay := lockfile.Packages[linux]["cowsay"]
	require.NotNil(t, hello)
	require.NotNil(t, cowsay)
	assert.Equal(t, newPin, hello.Input, "upgraded group must skip the prior pin")
	assert.Equal(t, oldPin, cowsay.Input, "untouched group keeps its prior pin")
}

func TestGroupCoherenceAcrossInputs(t *testing.T) {
	manifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"hello":  {Name: strPtr("hello"), Priority: 5},
			"cowsay": {Name: strPtr("cowsay"), Priority: 5},
		},
		Registry: types.Registry{
			Inputs: map[string]types.RegistryInput{
				"a": {URL: "file:a.yaml"},
				"b": {URL: "file:b.yaml"},
			},
			Priority: []string{"a", "b"},
		},
	}
	pinA := types.LockedInput{URL: "file:a.yaml", Rev: "rev0", NarHash: "hash0"}
	pinB := types.LockedInput{URL: "file:b.yaml", Rev: "rev0", NarHash: "hash0"}
	factory := &fakeFactory{rows: map[types.LockedInput][]fakeRow{
		// Input a has only one of the two group members.
		pinA: {{system: linux, relPath: []string{"hello"}, pname: "hello", version: "2.12.1"}},
		pinB: {
			{system: linux, relPath: []string{"hello"}, pname: "hello", version: "2.12.1"},
			{system: linux, relPath: []string{"cowsay"}, pname: "cowsay", version: "3.04"},
		},
	}}
	env := NewEnvironment(nil, manifest, nil, types.Upgrades{}, &fakeLocker{}, factory)

	lockfile, err := env.CreateLockfile(t.Context())
	require.NoError(t, err)
	hello := lockfile.Packages[linux]["hello"]
	cowsay := lockfile.Packages[linux]["cowsay"]
	require.NotNil(t, hello)
	require.NotNil(t, cowsay)
	assert.Equal(t, hello.Input, cowsay.Input, "group members must share one input")
	assert.Equal(t, pinB, hello.Input)
}

func TestSystemGating(t *testing.T) {
	manifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"mac-only": {Name: strPtr("mac-only"), Priority: 5, Systems: []types.System{"aarch64-darwin"}},
		},
		Registry: types.Registry{
			Inputs: map[string]types.RegistryInput{"nixpkgs": {URL: "file:n.yaml"}},
		},
	}
	factory := &fakeFactory{rows: map[types.LockedInput][]fakeRow{}}
	env := NewEnvironment(nil, manifest, nil, types.Upgrades{}, &fakeLocker{}, factory)

	lockfile, err := env.CreateLockfile(t.Context())
	require.NoError(t, err)
	entry, ok := lockfile.Packages[linux]["mac-only"]
	require.True(t, ok)
	assert.Nil(t, entry)
	assert.Equal(t, 0, factory.queries, "a gated descriptor must not be queried")
}

func TestNoInputsIsFatal(t *testing.T) {
	manifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"hello": {Name: strPtr("hello"), Priority: 5},
		},
	}
	env := NewEnvironment(nil, manifest, nil, types.Upgrades{}, &fakeLocker{}, &fakeFactory{})

	_, err := env.CreateLockfile(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no inputs found to search for packages")
}

func TestResolutionFailureAggregatesAllGroups(t *testing.T) {
	manifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"hello":  {Name: strPtr("hello"), Group: grpPtr("g1"), Priority: 5},
			"cowsay": {Name: strPtr("cowsay"), Group: grpPtr("g2"), Priority: 5},
		},
		Registry: types.Registry{
			Inputs: map[string]types.RegistryInput{"a": {URL: "file:a.yaml"}},
		},
	}
	pinA := types.LockedInput{URL: "file:a.yaml", Rev: "rev0", NarHash: "hash0"}
	factory := &fakeFactory{rows: map[types.LockedInput][]fakeRow{pinA: {}}}
	env := NewEnvironment(nil, manifest, nil, types.Upgrades{}, &fakeLocker{}, factory)

	_, err := env.CreateLockfile(t.Context())
	require.Error(t, err)
	message := err.Error()
	assert.Contains(t, message, "failed to resolve some package(s)")
	assert.Contains(t, message, "'g1'")
	assert.Contains(t, message, "'g2'")
	assert.Contains(t, message, "'hello'")
	assert.Contains(t, message, "'cowsay'")
}

func TestDescriptorBoundToNamedInput(t *testing.T) {
	manifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"hello": {Name: strPtr("hello"), Input: strPtr("b"), Priority: 5},
		},
		Registry: types.Registry{
			Inputs: map[string]types.RegistryInput{
				"a": {URL: "file:a.yaml"},
				"b": {URL: "file:b.yaml"},
			},
			Priority: []string{"a", "b"},
		},
	}
	pinA := types.LockedInput{URL: "file:a.yaml", Rev: "rev0", NarHash: "hash0"}
	pinB := types.LockedInput{URL: "file:b.yaml", Rev: "rev0", NarHash: "hash0"}
	factory := &fakeFactory{rows: map[types.LockedInput][]fakeRow{
		pinA: {{system: linux, relPath: []string{"hello"}, pname: "hello", version: "2.12.1"}},
		pinB: {{system: linux, relPath: []string{"hello"}, pname: "hello", version: "2.13.0"}},
	}}
	env := NewEnvironment(nil, manifest, nil, types.Upgrades{}, &fakeLocker{}, factory)

	lockfile, err := env.CreateLockfile(t.Context())
	require.NoError(t, err)
	pkg := lockfile.Packages[linux]["hello"]
	require.NotNil(t, pkg)
	assert.Equal(t, pinB, pkg.Input, "the descriptor's input binding wins over registry order")
}

func TestTryResolveGroupReportsAttempts(t *testing.T) {
	manifest := types.ManifestRaw{
		Systems: []types.System{linux},
		Install: types.InstallDescriptors{
			"hello": {Name: strPtr("hello"), Priority: 5},
		},
		Registry: types.Registry{
			Inputs: map[string]types.RegistryInput{
				"a": {URL: "file:a.yaml"},
				"b": {URL: "file:b.yaml"},
			},
			Priority: []string{"a", "b"},
		},
	}
	pinA := types.LockedInput{URL: "file:a.yaml", Rev: "rev0", NarHash: "hash0"}
	pinB := types.LockedInput{URL: "file:b.yaml", Rev: "rev0", NarHash: "hash0"}
	factory := &fakeFactory{rows: map[types.LockedInput][]fakeRow{pinA: {}, pinB: {}}}
	env := NewEnvironment(nil, manifest, nil, types.Upgrades{}, &fakeLocker{}, factory)

	result, err := env.TryResolveGroup(t.Context(), types.DefaultGroup, manifest.GroupedDescriptors()[types.DefaultGroup], linux)
	require.NoError(t, err)
	require.False(t, result.Resolved())
	failure := result.Failure()
	require.Len(t, failure, 2)
	assert.Equal(t, "hello", failure[0].InstallID)
	assert.True(t, strings.Contains(failure[0].InputRef, "a.yaml"))
	assert.True(t, strings.Contains(failure[1].InputRef, "b.yaml"))
}
