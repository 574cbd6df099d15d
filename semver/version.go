// Package semver implements the MAJOR.MINOR.PATCH version grammar and the
// caret/tilde/wildcard constraint algebra used throughout the package
// manager: parsing a dependency's pinned version, parsing a manifest's
// version constraint, and selecting the minimal version that satisfies a
// set of constraints (the single-constraint and multi-constraint/diamond
// cases alike).
package semver

import (
	"fmt"
	"sort"
	"strings"

	blang "github.com/blang/semver/v4"
)

// Version is a parsed MAJOR.MINOR.PATCH version, optionally carrying a
// pre-release identifier (e.g. "2.0.0-beta.1"). Parsing and ordering are
// delegated to blang/semver; this type exists so the rest of the package
// never imports blang/semver directly.
type Version struct {
	v blang.Version
}

// Parse parses a version string, tolerating a leading "v" the way git tags
// conventionally carry one.
func Parse(raw string) (Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "v")
	v, err := blang.Parse(trimmed)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

// ParseTag parses a git tag as a version, returning ok=false instead of an
// error for tags that aren't valid semver -- the VCS adapter uses this to
// silently drop non-version tags rather than fail the whole listing.
func ParseTag(tag string) (Version, bool) {
	v, err := Parse(tag)
	if err != nil {
		return Version{}, false
	}
	return v, true
}

func (v Version) String() string { return v.v.String() }

func (v Version) Compare(other Version) int { return v.v.Compare(other.v) }

func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

func (v Version) LessThan(other Version) bool { return v.Compare(other) < 0 }

func (v Version) GreaterThan(other Version) bool { return v.Compare(other) > 0 }

func (v Version) Major() uint64 { return v.v.Major }
func (v Version) Minor() uint64 { return v.v.Minor }
func (v Version) Patch() uint64 { return v.v.Patch }

// Sort sorts versions ascending, matching the original's sorted-then-first
// selection strategy for both the single- and multi-constraint cases.
func Sort(versions []Version) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].LessThan(versions[j])
	})
}
