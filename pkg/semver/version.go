/*
Copyright 2025 The Tessera Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package semver is the single source of truth for version parsing,
// comparison, and bumping across Tessera (C3 in the design). Other
// packages import from here rather than re-implementing version math.
package semver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ashita-ai/tessera/pkg/models"
)

// Initial is the version assigned to the first contract published for an
// asset.
const Initial = "1.0.0"

// BumpKind selects which component of a version to increment.
type BumpKind string

const (
	BumpMajor BumpKind = "major"
	BumpMinor BumpKind = "minor"
	BumpPatch BumpKind = "patch"
)

// Version is a parsed (major, minor, patch) triple. Pre-release and build
// metadata are tracked separately and do not participate in comparisons
// beyond the base triple.
type Version struct {
	Major, Minor, Patch int
}

// Parse parses a strict "MAJOR.MINOR.PATCH[-prerelease][+build]" string.
// Pre-release and build metadata are stripped before parsing the numeric
// components; negative or malformed components are rejected.
func Parse(version string) (Version, error) {
	base := stripMetadata(version)
	parts := strings.Split(base, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("tessera/semver: invalid format %q: expected 3 dot-separated parts, got %d", version, len(parts))
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("tessera/semver: cannot parse %q: %w", version, err)
		}
		if n < 0 {
			return Version{}, fmt.Errorf("tessera/semver: cannot parse %q: version numbers cannot be negative", version)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// ParseLenient parses version, falling back to (1,0,0) on any error. Use
// this for legacy rows stored before strict validation was enforced.
func ParseLenient(version string) Version {
	v, err := Parse(version)
	if err != nil {
		return Version{Major: 1, Minor: 0, Patch: 0}
	}
	return v
}

// String renders the base version as "MAJOR.MINOR.PATCH".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// stripMetadata removes build metadata (+...) and pre-release (-...)
// suffixes, in that order, leaving the bare X.Y.Z base.
func stripMetadata(version string) string {
	if i := strings.IndexByte(version, '+'); i >= 0 {
		version = version[:i]
	}
	if i := strings.IndexByte(version, '-'); i >= 0 {
		version = version[:i]
	}
	return version
}

// IsPrerelease reports whether version carries a pre-release component,
// i.e. a hyphen occurring before any build-metadata plus sign.
func IsPrerelease(version string) bool {
	withoutBuild := version
	if i := strings.IndexByte(version, '+'); i >= 0 {
		withoutBuild = version[:i]
	}
	return strings.Contains(withoutBuild, "-")
}

// BaseVersion returns the "X.Y.Z" portion of version with any pre-release
// or build metadata stripped.
func BaseVersion(version string) string {
	return stripMetadata(version)
}

// IsGraduation reports whether publishing newVersion graduates current
// out of pre-release: current is a pre-release, new is not, and their
// base versions match (e.g. "1.0.0-alpha" -> "1.0.0").
func IsGraduation(current, newVersion string) bool {
	if !IsPrerelease(current) || IsPrerelease(newVersion) {
		return false
	}
	return BaseVersion(current) == BaseVersion(newVersion)
}

// Bump increments current by the given component, resetting lower
// components to zero (standard semver bump semantics).
func Bump(current string, kind BumpKind) (string, error) {
	v, err := Parse(current)
	if err != nil {
		return "", err
	}
	switch kind {
	case BumpMajor:
		return fmt.Sprintf("%d.0.0", v.Major+1), nil
	case BumpMinor:
		return fmt.Sprintf("%d.%d.0", v.Major, v.Minor+1), nil
	default:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch+1), nil
	}
}

// ComputeNext computes the next version to assign on publish.
//
//   - No current version (first contract for the asset): Initial ("1.0.0").
//   - Incompatible change: bump major, regardless of changeType.
//   - Compatible change classified minor or major (e.g. additive-only
//     under a lenient mode): bump minor.
//   - Otherwise (compatible patch-level change): bump patch.
//
// current uses lenient parsing, matching legacy rows that predate strict
// validation.
func ComputeNext(current *string, isCompatible bool, changeType models.ChangeType) string {
	if current == nil {
		return Initial
	}
	v := ParseLenient(*current)
	if !isCompatible {
		return fmt.Sprintf("%d.0.0", v.Major+1)
	}
	if changeType == models.ChangeMajor || changeType == models.ChangeMinor {
		return fmt.Sprintf("%d.%d.0", v.Major, v.Minor+1)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch+1)
}
