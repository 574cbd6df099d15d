// Package manifest models METHODS.toml: the package header, its
// dependencies, and the domains/pipes it exports to dependents.
package manifest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/mthds-ai/mthds/mtherr"
	"github.com/mthds-ai/mthds/semver"
)

// Filename is the manifest's conventional name at a package root.
const Filename = "METHODS.toml"

// StandardVersion is the mthds language version assumed when a manifest
// omits the field.
const StandardVersion = "1.0.0"

// ReservedDomains may not be used as a package's top-level domain, nor
// declared in a manifest's exports table.
var ReservedDomains = map[string]struct{}{
	"native":   {},
	"mthds":    {},
	"pipelex":  {},
}

var (
	addressPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+\.[a-zA-Z0-9._-]+/[a-zA-Z0-9._/-]+$`)
	domainSegment  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	pipeName       = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Dependency is one entry of the manifest's [dependencies] table.
type Dependency struct {
	Alias   string // the table key
	Address string
	Version string // a constraint string, empty when Path is set
	Path    string // local override, mutually exclusive with Version
}

// IsLocal reports whether the dependency is a local path override, which
// skips VCS resolution entirely.
func (d Dependency) IsLocal() bool { return d.Path != "" }

// DomainExports lists the pipes one domain of this package exposes to
// dependents.
type DomainExports struct {
	DomainPath string
	Pipes      []string
}

// Manifest is the parsed, validated contents of a METHODS.toml file.
type Manifest struct {
	Address      string
	DisplayName  string
	Version      string
	Description  string
	Authors      []string
	License      string
	MthdsVersion string

	Dependencies []Dependency
	Exports      []DomainExports
}

// IsReservedDomain reports whether domainPath's first segment names a
// reserved domain.
func IsReservedDomain(domainPath string) bool {
	first := strings.SplitN(domainPath, ".", 2)[0]
	_, reserved := ReservedDomains[first]
	return reserved
}

// IsValidAddress reports whether address matches the package-address
// grammar: "host.tld/path/segments".
func IsValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// IsValidSemver reports whether raw parses as a semver version.
func IsValidSemver(raw string) bool {
	_, err := semver.Parse(raw)
	return err == nil
}

// IsValidVersionConstraint reports whether raw parses as a constraint.
func IsValidVersionConstraint(raw string) bool {
	_, err := semver.ParseConstraint(raw)
	return err == nil
}

// Validate checks every manifest-level invariant that isn't already
// enforced while parsing the raw TOML document.
func (m *Manifest) Validate() error {
	if !IsValidAddress(m.Address) {
		return mtherr.ManifestValidationError(fmt.Sprintf("invalid package address %q", m.Address))
	}
	if IsReservedDomain(m.Address) {
		return mtherr.ManifestValidationError(fmt.Sprintf("package address %q uses a reserved domain", m.Address))
	}
	if !IsValidSemver(m.Version) {
		return mtherr.ManifestValidationError(fmt.Sprintf("invalid package version %q", m.Version))
	}
	if m.MthdsVersion != "" && !IsValidSemver(m.MthdsVersion) {
		return mtherr.ManifestValidationError(fmt.Sprintf("invalid mthds_version %q", m.MthdsVersion))
	}
	if err := validateDisplayName(m.DisplayName); err != nil {
		return err
	}
	if strings.TrimSpace(m.Description) == "" {
		return mtherr.ManifestValidationError("description must not be empty")
	}
	for _, author := range m.Authors {
		if strings.TrimSpace(author) == "" {
			return mtherr.ManifestValidationError("author names must not be empty")
		}
	}

	seenAlias := map[string]struct{}{}
	for _, dep := range m.Dependencies {
		if _, dup := seenAlias[dep.Alias]; dup {
			return mtherr.ManifestValidationError(fmt.Sprintf("duplicate dependency alias %q", dep.Alias))
		}
		seenAlias[dep.Alias] = struct{}{}
		if err := validateDependency(dep); err != nil {
			return err
		}
	}

	for _, export := range m.Exports {
		if err := validateDomainExports(export); err != nil {
			return err
		}
	}
	return nil
}

func validateDisplayName(name string) error {
	if name == "" {
		return nil
	}
	if len([]rune(name)) > 128 {
		return mtherr.ManifestValidationError("display_name exceeds 128 codepoints")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return mtherr.ManifestValidationError("display_name contains a control character")
		}
	}
	return nil
}

func validateDependency(dep Dependency) error {
	if dep.Alias == "" {
		return mtherr.ManifestValidationError("dependency alias must not be empty")
	}
	if !IsValidAddress(dep.Address) {
		return mtherr.ManifestValidationError(fmt.Sprintf("dependency %q has invalid address %q", dep.Alias, dep.Address))
	}
	if dep.IsLocal() {
		if dep.Version != "" {
			return mtherr.ManifestValidationError(fmt.Sprintf("dependency %q specifies both path and version", dep.Alias))
		}
		return nil
	}
	if !IsValidVersionConstraint(dep.Version) {
		return mtherr.ManifestValidationError(fmt.Sprintf("dependency %q has invalid version constraint %q", dep.Alias, dep.Version))
	}
	return nil
}

func validateDomainExports(export DomainExports) error {
	if IsReservedDomain(export.DomainPath) {
		return mtherr.ManifestValidationError(fmt.Sprintf("exports declare reserved domain %q", export.DomainPath))
	}
	for _, segment := range strings.Split(export.DomainPath, ".") {
		if !domainSegment.MatchString(segment) {
			return mtherr.ManifestValidationError(fmt.Sprintf("export domain segment %q is not snake_case", segment))
		}
	}
	for _, pipe := range export.Pipes {
		if !pipeName.MatchString(pipe) {
			return mtherr.ManifestValidationError(fmt.Sprintf("exported pipe %q is not snake_case", pipe))
		}
	}
	return nil
}

// SortedDependencies returns the dependencies sorted by alias, the order
// the serializer and the resolver both use for determinism.
func (m *Manifest) SortedDependencies() []Dependency {
	deps := append([]Dependency(nil), m.Dependencies...)
	sort.Slice(deps, func(i, j int) bool { return deps[i].Alias < deps[j].Alias })
	return deps
}

// SortedExports returns the exports sorted by domain path.
func (m *Manifest) SortedExports() []DomainExports {
	exports := append([]DomainExports(nil), m.Exports...)
	sort.Slice(exports, func(i, j int) bool { return exports[i].DomainPath < exports[j].DomainPath })
	for i := range exports {
		pipes := append([]string(nil), exports[i].Pipes...)
		sort.Strings(pipes)
		exports[i].Pipes = pipes
	}
	return exports
}

// DependencyByAlias looks up a dependency by its alias.
func (m *Manifest) DependencyByAlias(alias string) (Dependency, bool) {
	for _, dep := range m.Dependencies {
		if dep.Alias == alias {
			return dep, true
		}
	}
	return Dependency{}, false
}
