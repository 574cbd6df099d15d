// Package visibility enforces which pipes a bundle may reference across
// domain and package boundaries, given a manifest's export declarations.
package visibility

import (
	"fmt"
	"strings"

	"github.com/mthds-ai/mthds/bundle"
	"github.com/mthds-ai/mthds/manifest"
	"github.com/mthds-ai/mthds/qualref"
	"github.com/sirupsen/logrus"
)

// Violation is one visibility rule broken by a bundle reference.
type Violation struct {
	PipeRef      string
	SourceDomain string
	TargetDomain string
	Context      string
	Message      string
}

// Checker enforces visibility rules for one package, given its manifest
// (possibly nil, meaning "no enforcement") and the metadata of every
// bundle belonging to it.
type Checker struct {
	manifest      *manifest.Manifest
	bundles       []bundle.Metadata
	exportedPipes map[string]map[string]struct{} // domain -> pipe set
	mainPipes     map[string]string              // domain -> main pipe
}

// NewChecker builds a Checker, pre-computing the exported-pipe and
// main-pipe indexes. When two bundles in the same domain declare
// different main pipes, the first one scanned wins and the conflict is
// logged.
func NewChecker(m *manifest.Manifest, bundles []bundle.Metadata) *Checker {
	c := &Checker{
		manifest:      m,
		bundles:       bundles,
		exportedPipes: map[string]map[string]struct{}{},
		mainPipes:     map[string]string{},
	}
	if m != nil {
		for _, export := range m.Exports {
			set, ok := c.exportedPipes[export.DomainPath]
			if !ok {
				set = map[string]struct{}{}
				c.exportedPipes[export.DomainPath] = set
			}
			for _, pipe := range export.Pipes {
				set[pipe] = struct{}{}
			}
		}
	}
	for _, meta := range bundles {
		if meta.MainPipe == "" {
			continue
		}
		if existing, ok := c.mainPipes[meta.Domain]; ok && existing != meta.MainPipe {
			logrus.WithFields(logrus.Fields{
				"domain": meta.Domain, "kept": existing, "ignored": meta.MainPipe,
			}).Warn("conflicting main_pipe for domain, keeping first value")
			continue
		}
		c.mainPipes[meta.Domain] = meta.MainPipe
	}
	return c
}

// IsPipeAccessibleFrom reports whether a bundle in sourceDomain may
// reference ref. With no manifest, everything is accessible (the
// no-manifest-no-enforcement contract).
func (c *Checker) IsPipeAccessibleFrom(ref qualref.Ref, sourceDomain string) bool {
	if c.manifest == nil {
		return true
	}
	if !ref.IsQualified() {
		return true
	}
	if ref.DomainPath == sourceDomain {
		return true
	}
	if set, ok := c.exportedPipes[ref.DomainPath]; ok {
		if _, exported := set[ref.LocalCode]; exported {
			return true
		}
	}
	if main, ok := c.mainPipes[ref.DomainPath]; ok && main == ref.LocalCode {
		return true
	}
	return false
}

// ValidateReservedDomains flags every bundle whose domain begins with a
// reserved segment.
func (c *Checker) ValidateReservedDomains() []Violation {
	var violations []Violation
	for _, meta := range c.bundles {
		if manifest.IsReservedDomain(meta.Domain) {
			violations = append(violations, Violation{
				SourceDomain: meta.Domain,
				TargetDomain: meta.Domain,
				Context:      "bundle domain declaration",
				Message:      fmt.Sprintf("domain %q uses a reserved top-level segment", meta.Domain),
			})
		}
	}
	return violations
}

// ValidateAllPipeReferences checks every bundle's outbound pipe
// references, skipping references that don't parse as pipe refs at all
// (malformed refs are a bundle-content concern, not a visibility one).
func (c *Checker) ValidateAllPipeReferences() []Violation {
	var violations []Violation
	for _, meta := range c.bundles {
		for _, pipeRef := range meta.References {
			if qualref.HasCrossPackagePrefix(pipeRef.Ref) {
				continue // checked separately by ValidateCrossPackageReferences
			}
			ref, err := qualref.ParsePipeRef(pipeRef.Ref)
			if err != nil {
				continue
			}
			if c.IsPipeAccessibleFrom(ref, meta.Domain) {
				continue
			}
			violations = append(violations, Violation{
				PipeRef:      pipeRef.Ref,
				SourceDomain: meta.Domain,
				TargetDomain: ref.DomainPath,
				Context:      pipeRef.Context,
				Message: fmt.Sprintf(
					"%s references %q, which domain %q does not export; add it to [exports.%s].pipes",
					pipeRef.Context, pipeRef.Ref, ref.DomainPath, ref.DomainPath),
			})
		}
	}
	return violations
}

// ValidateCrossPackageReferences checks every "alias->..." reference
// against the manifest's dependency table. Unknown aliases violate; known
// aliases only produce an informational log entry.
func (c *Checker) ValidateCrossPackageReferences() []Violation {
	if c.manifest == nil {
		return nil
	}
	var violations []Violation
	for _, meta := range c.bundles {
		for _, pipeRef := range meta.References {
			if !qualref.HasCrossPackagePrefix(pipeRef.Ref) {
				continue
			}
			alias, rest, err := qualref.SplitCrossPackageRef(pipeRef.Ref)
			if err != nil {
				continue
			}
			if _, known := c.manifest.DependencyByAlias(alias); known {
				logrus.WithFields(logrus.Fields{
					"alias": alias, "context": pipeRef.Context,
				}).Info("cross-package reference to known dependency")
				continue
			}
			violations = append(violations, Violation{
				PipeRef:      pipeRef.Ref,
				SourceDomain: meta.Domain,
				TargetDomain: rest,
				Context:      pipeRef.Context,
				Message:      fmt.Sprintf("%s references unknown dependency alias %q", pipeRef.Context, alias),
			})
		}
	}
	return violations
}

// CheckAll runs the checks and concatenates their violations. No check
// aborts on a prior check's failure. Without a manifest only the pipe
// reference check runs; the reserved-domain and cross-package checks are
// skipped.
func (c *Checker) CheckAll() []Violation {
	if c.manifest == nil {
		return c.ValidateAllPipeReferences()
	}
	var violations []Violation
	violations = append(violations, c.ValidateReservedDomains()...)
	violations = append(violations, c.ValidateAllPipeReferences()...)
	violations = append(violations, c.ValidateCrossPackageReferences()...)
	return violations
}

func (v Violation) String() string {
	return strings.TrimSpace(v.Message)
}
