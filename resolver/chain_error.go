package resolver

import (
	"fmt"
	"strings"

	"golang.org/x/mod/module"
)

// ResolveChainError decorates an error that occurred while resolving a
// dependency with the chain of requirements that led to it, e.g.
//
//	acme.com/billing@1.0.0 requires
//		acme.com/shipping@^2.0.0 requires
//		acme.com/carrier@^1.0.0: no tag satisfies constraint
//
// Adapted from the Go toolchain's own module.BuildListError (vendored at
// mvs/errors.go in this repository's history): an mthds PackageAddress has
// exactly the same "host.tld/path" shape as a Go module path, so
// module.Version{Path, Version} doubles as the (address, version) identity
// here too.
type ResolveChainError struct {
	Err   error
	stack []chainErrorElem
}

type chainErrorElem struct {
	m          module.Version
	nextReason string
}

// NewResolveChainError wraps err with the non-empty chain of
// (address, version) steps that led to it. reason is used between every
// pair of steps ("requires", "re-resolving to", ...).
func NewResolveChainError(err error, path []module.Version, reason string) *ResolveChainError {
	if reason == "" {
		reason = "requires"
	}
	stack := make([]chainErrorElem, 0, len(path))
	for len(path) > 1 {
		stack = append(stack, chainErrorElem{m: path[0], nextReason: reason})
		path = path[1:]
	}
	stack = append(stack, chainErrorElem{m: path[0]})
	return &ResolveChainError{Err: err, stack: stack}
}

// Dependency returns the address/version where the error occurred.
func (e *ResolveChainError) Dependency() module.Version {
	if len(e.stack) == 0 {
		return module.Version{}
	}
	return e.stack[len(e.stack)-1].m
}

func (e *ResolveChainError) Unwrap() error { return e.Err }

func (e *ResolveChainError) Error() string {
	var b strings.Builder
	stack := e.stack
	for len(stack) > 0 && stack[0].m.Version == "" {
		stack = stack[1:]
	}
	if len(stack) == 0 {
		return e.Err.Error()
	}
	for _, elem := range stack[:len(stack)-1] {
		fmt.Fprintf(&b, "%s@%s %s\n\t", elem.m.Path, elem.m.Version, elem.nextReason)
	}
	last := stack[len(stack)-1].m
	fmt.Fprintf(&b, "%s@%s: %v", last.Path, last.Version, e.Err)
	return b.String()
}
