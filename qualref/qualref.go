// Package qualref parses qualified references to pipes and concepts, of
// the form "domain.sub_domain.local_code" or a bare "local_code", plus the
// cross-package "alias->domain.local_code" infix form.
package qualref

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	domainSegmentPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	pipeCodePattern      = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	conceptCodePattern   = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
)

// Ref is a parsed qualified reference: an optional dotted domain path and
// a required local code, the leaf identifier within that domain.
type Ref struct {
	DomainPath string // "" for a bare reference
	LocalCode  string
}

// IsQualified reports whether the reference carries a domain path.
func (r Ref) IsQualified() bool { return r.DomainPath != "" }

// FullRef renders the reference back to its "domain.local_code" form, or
// just the local code when unqualified.
func (r Ref) FullRef() string {
	if !r.IsQualified() {
		return r.LocalCode
	}
	return r.DomainPath + "." + r.LocalCode
}

// Parse splits raw on its last '.' into a domain path and local code,
// validating that the domain path (if any) is well-formed: non-empty
// segments, no leading/trailing dot, no consecutive dots.
func Parse(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, fmt.Errorf("empty reference")
	}

	idx := strings.LastIndex(raw, ".")
	if idx == -1 {
		return Ref{LocalCode: raw}, nil
	}

	domainPath, localCode := raw[:idx], raw[idx+1:]
	if localCode == "" {
		return Ref{}, fmt.Errorf("reference %q ends with '.'", raw)
	}
	if err := validateDomainPath(domainPath); err != nil {
		return Ref{}, fmt.Errorf("invalid reference %q: %w", raw, err)
	}
	return Ref{DomainPath: domainPath, LocalCode: localCode}, nil
}

func validateDomainPath(domainPath string) error {
	if domainPath == "" {
		return fmt.Errorf("domain path is empty")
	}
	if strings.HasPrefix(domainPath, ".") || strings.HasSuffix(domainPath, ".") {
		return fmt.Errorf("domain path %q has a leading or trailing dot", domainPath)
	}
	if strings.Contains(domainPath, "..") {
		return fmt.Errorf("domain path %q has consecutive dots", domainPath)
	}
	for _, segment := range strings.Split(domainPath, ".") {
		if !domainSegmentPattern.MatchString(segment) {
			return fmt.Errorf("domain path segment %q is not snake_case", segment)
		}
	}
	return nil
}

// ParseConceptRef parses raw as a concept reference, requiring the local
// code to be PascalCase.
func ParseConceptRef(raw string) (Ref, error) {
	ref, err := Parse(raw)
	if err != nil {
		return Ref{}, err
	}
	if !conceptCodePattern.MatchString(ref.LocalCode) {
		return Ref{}, fmt.Errorf("concept code %q is not PascalCase", ref.LocalCode)
	}
	return ref, nil
}

// ParsePipeRef parses raw as a pipe reference, requiring the local code to
// be snake_case.
func ParsePipeRef(raw string) (Ref, error) {
	ref, err := Parse(raw)
	if err != nil {
		return Ref{}, err
	}
	if !pipeCodePattern.MatchString(ref.LocalCode) {
		return Ref{}, fmt.Errorf("pipe code %q is not snake_case", ref.LocalCode)
	}
	return ref, nil
}

// FromDomainAndCode builds a Ref directly, skipping string parsing.
func FromDomainAndCode(domainPath, localCode string) Ref {
	return Ref{DomainPath: domainPath, LocalCode: localCode}
}

// IsLocalTo reports whether the reference is unqualified or qualified with
// exactly the given domain path.
func (r Ref) IsLocalTo(domainPath string) bool {
	return !r.IsQualified() || r.DomainPath == domainPath
}

// IsExternalTo is the negation of IsLocalTo.
func (r Ref) IsExternalTo(domainPath string) bool {
	return !r.IsLocalTo(domainPath)
}

// HasCrossPackagePrefix reports whether raw uses the "alias->rest" infix
// form addressing a dependency's domain directly.
func HasCrossPackagePrefix(raw string) bool {
	return strings.Contains(raw, "->")
}

// SplitCrossPackageRef splits raw on its first "->" into the dependency
// alias and the remainder of the reference.
func SplitCrossPackageRef(raw string) (alias, rest string, err error) {
	idx := strings.Index(raw, "->")
	if idx == -1 {
		return "", "", fmt.Errorf("reference %q has no cross-package prefix", raw)
	}
	alias = raw[:idx]
	rest = raw[idx+2:]
	if alias == "" {
		return "", "", fmt.Errorf("reference %q has an empty alias", raw)
	}
	if rest == "" {
		return "", "", fmt.Errorf("reference %q has nothing after '->'", raw)
	}
	return alias, rest, nil
}
