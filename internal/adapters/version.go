package adapters

import (
	"strings"

	semver "github.com/Masterminds/semver/v3"
	debversion "github.com/knqyf263/go-deb-version"
)

// versionCache memoizes parsed version objects so candidate ranking
// does not reparse the same strings.
type versionCache struct {
	sem    map[string]*semver.Version
	semErr map[string]bool
	deb    map[string]*debversion.Version
	debErr map[string]bool
}

func newVersionCache() *versionCache {
	return &versionCache{
		sem:    map[string]*semver.Version{},
		semErr: map[string]bool{},
		deb:    map[string]*debversion.Version{},
		debErr: map[string]bool{},
	}
}

// semverVersion returns the parsed semver version, or nil when the
// string is not semver.
func (c *versionCache) semverVersion(value string) *semver.Version {
	if parsed, ok := c.sem[value]; ok {
		return parsed
	}
	if c.semErr[value] {
		return nil
	}
	parsed, err := semver.NewVersion(value)
	if err != nil {
		c.semErr[value] = true
		return nil
	}
	c.sem[value] = parsed
	return parsed
}

// debVersion returns the parsed Debian-style version, or nil. Most
// non-semver scheme strings (dates, epochs, letters) still order
// sensibly under these rules.
func (c *versionCache) debVersion(value string) *debversion.Version {
	if parsed, ok := c.deb[value]; ok {
		return parsed
	}
	if c.debErr[value] {
		return nil
	}
	parsed, err := debversion.NewVersion(value)
	if err != nil {
		c.debErr[value] = true
		return nil
	}
	c.deb[value] = &parsed
	return &parsed
}

// compare returns -1, 0, or 1 ordering two version strings: semver
// when both sides parse as semver, Debian ordering as the fallback,
// lexical last. Unless preferPreReleases is set, a release version
// outranks any pre-release.
func (c *versionCache) compare(a, b string, preferPreReleases bool) int {
	if a == b {
		return 0
	}
	va := c.semverVersion(a)
	vb := c.semverVersion(b)
	if va != nil && vb != nil {
		if !preferPreReleases {
			aPre := va.Prerelease() != ""
			bPre := vb.Prerelease() != ""
			if aPre != bPre {
				if aPre {
					return -1
				}
				return 1
			}
		}
		return va.Compare(vb)
	}
	da := c.debVersion(a)
	db := c.debVersion(b)
	if da != nil && db != nil {
		if da.Equal(*db) {
			return 0
		}
		if da.LessThan(*db) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
