// Package mtherr defines the error-kind hierarchy shared by the package
// components. Errors from the manifest, bundle, resolver, cache, lock file,
// VCS and runner layers carry one of the Kind values below so that the CLI
// layer -- the only layer allowed to print -- can report a stable,
// categorized message without inspecting error text. Other helpers (such
// as qualref, semver and credentials) return plain errors.
package mtherr

import "fmt"

// Kind identifies which class of failure an Error represents.
type Kind int

const (
	_ Kind = iota
	KindManifestParse
	KindManifestValidation
	KindVCSFetch
	KindVersionResolution
	KindPackageCache
	KindLockFile
	KindIntegrity
	KindDependencyResolve
	KindTransitiveDependency
	KindRunner
)

func (k Kind) String() string {
	switch k {
	case KindManifestParse:
		return "manifest parse error"
	case KindManifestValidation:
		return "manifest validation error"
	case KindVCSFetch:
		return "vcs fetch error"
	case KindVersionResolution:
		return "version resolution error"
	case KindPackageCache:
		return "package cache error"
	case KindLockFile:
		return "lock file error"
	case KindIntegrity:
		return "integrity error"
	case KindDependencyResolve:
		return "dependency resolve error"
	case KindTransitiveDependency:
		return "transitive dependency error"
	case KindRunner:
		return "runner error"
	default:
		return "package error"
	}
}

// Error is the base error type. Every refinement named in the package
// error-kind hierarchy is this same type with a distinct Kind, rather than
// a distinct Go type, so that a single errors.As target covers all of them.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// Address and Alias are set by the resolver when the failure is tied
	// to a specific dependency; both are empty for errors that aren't.
	Address string
	Alias   string
}

func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Address != "" {
		prefix = fmt.Sprintf("%s (%s)", prefix, e.Address)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, letting
// callers write errors.Is(err, mtherr.New(mtherr.KindIntegrity, "", nil)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an Error of the given kind.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithAddress returns a copy of e annotated with the dependency address it
// concerns, used by the resolver to attribute a lower-level failure to the
// package being resolved.
func (e *Error) WithAddress(address string) *Error {
	cp := *e
	cp.Address = address
	return &cp
}

// WithAlias is the alias analogue of WithAddress.
func (e *Error) WithAlias(alias string) *Error {
	cp := *e
	cp.Alias = alias
	return &cp
}

func ManifestParseError(message string, err error) *Error {
	return New(KindManifestParse, message, err)
}

func ManifestValidationError(message string) *Error {
	return New(KindManifestValidation, message, nil)
}

func VCSFetchError(message string, err error) *Error {
	return New(KindVCSFetch, message, err)
}

func VersionResolutionError(message string) *Error {
	return New(KindVersionResolution, message, nil)
}

func PackageCacheError(message string, err error) *Error {
	return New(KindPackageCache, message, err)
}

func LockFileError(message string) *Error {
	return New(KindLockFile, message, nil)
}

func IntegrityError(message string) *Error {
	return New(KindIntegrity, message, nil)
}

func DependencyResolveError(message string, err error) *Error {
	return New(KindDependencyResolve, message, err)
}

func TransitiveDependencyError(message string) *Error {
	return New(KindTransitiveDependency, message, nil)
}

func RunnerError(message string, err error) *Error {
	return New(KindRunner, message, err)
}
