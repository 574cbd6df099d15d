// Package resolver implements the dependency resolver: a depth-first,
// minimum-version-selection walk over a manifest's dependency graph that
// produces one ResolvedDependency per address, fetching and caching remote
// packages as it goes.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mthds-ai/mthds/manifest"
	"github.com/mthds-ai/mthds/mtherr"
	"github.com/mthds-ai/mthds/pkgcache"
	"github.com/mthds-ai/mthds/semver"
	"github.com/mthds-ai/mthds/vcsgit"
	"github.com/sirupsen/logrus"
	"golang.org/x/mod/module"
)

// ResolvedDependency is one fully-resolved node of the dependency graph:
// either a local path override or a fetched-and-cached remote package.
type ResolvedDependency struct {
	Alias             string
	Address           string
	Local             bool // true for a path-override dependency, never VCS-fetched
	Manifest          *manifest.Manifest // nil when the dependency carries none
	PackageRoot       string
	MthdsFiles        []string
	ExportedPipeCodes []string // nil means "all pipes are public"
}

// Fetcher abstracts VCS access so the resolver can be tested without
// shelling out to git.
type Fetcher interface {
	ListTags(ctx context.Context, address string) ([]vcsgit.Tag, error)
	Clone(ctx context.Context, address, tag, dest string) error
}

// GitFetcher is the production Fetcher, backed by the system git binary.
type GitFetcher struct{}

func (GitFetcher) ListTags(ctx context.Context, address string) ([]vcsgit.Tag, error) {
	return vcsgit.ListVersionTags(ctx, address)
}

func (GitFetcher) Clone(ctx context.Context, address, tag, dest string) error {
	return vcsgit.CloneAtVersion(ctx, address, tag, dest)
}

// resolution carries the mutable state of one ResolveAll call.
type resolution struct {
	ctx     context.Context
	cache   *pkgcache.Cache
	fetcher Fetcher

	tagsCache            map[string][]vcsgit.Tag
	constraintsByAddress map[string][]string
	resolvedMap          map[string]*ResolvedDependency
	subDepsByAddress     map[string][]manifest.Dependency
	stack                map[string]struct{}
}

// ResolveAll resolves every dependency of m, rooted at packageRoot, and
// returns locals followed by the transitive closure of remotes.
func ResolveAll(ctx context.Context, m *manifest.Manifest, packageRoot string, cache *pkgcache.Cache, fetcher Fetcher) ([]ResolvedDependency, error) {
	if fetcher == nil {
		fetcher = GitFetcher{}
	}

	var locals []ResolvedDependency
	var remoteDeps []manifest.Dependency
	for _, dep := range m.SortedDependencies() {
		if dep.IsLocal() {
			resolved, err := resolveLocal(dep, packageRoot)
			if err != nil {
				return nil, err
			}
			locals = append(locals, resolved)
			continue
		}
		remoteDeps = append(remoteDeps, dep)
	}

	r := &resolution{
		ctx:                  ctx,
		cache:                cache,
		fetcher:              fetcher,
		tagsCache:            map[string][]vcsgit.Tag{},
		constraintsByAddress: map[string][]string{},
		resolvedMap:          map[string]*ResolvedDependency{},
		subDepsByAddress:     map[string][]manifest.Dependency{},
		stack:                map[string]struct{}{},
	}

	for _, dep := range remoteDeps {
		if err := r.resolveTransitive(dep.Address, dep.Version, []chainStep{{alias: dep.Alias, address: dep.Address, constraint: dep.Version}}); err != nil {
			return nil, err
		}
	}

	addresses := make([]string, 0, len(r.resolvedMap))
	for addr := range r.resolvedMap {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	result := locals
	for _, addr := range addresses {
		result = append(result, *r.resolvedMap[addr])
	}
	return result, nil
}

func resolveLocal(dep manifest.Dependency, packageRoot string) (ResolvedDependency, error) {
	path := dep.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(packageRoot, path)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return ResolvedDependency{}, mtherr.DependencyResolveError(
			fmt.Sprintf("local dependency %q path %q does not exist or is not a directory", dep.Alias, dep.Path), err,
		).WithAlias(dep.Alias)
	}

	sub, files, err := loadPackage(path)
	if err != nil {
		return ResolvedDependency{}, err
	}
	return ResolvedDependency{
		Alias:             dep.Alias,
		Address:           dep.Address,
		Local:             true,
		Manifest:          sub,
		PackageRoot:       path,
		MthdsFiles:        files,
		ExportedPipeCodes: exportedPipes(sub),
	}, nil
}

// chainStep records one hop of the resolution path, for error reporting.
type chainStep struct {
	alias      string
	address    string
	constraint string
}

// chainToModulePath renders a resolution chain as the module.Version path
// ResolveChainError expects: one element per hop, address as Path and the
// constraint that pulled it in as Version.
func chainToModulePath(chain []chainStep) []module.Version {
	path := make([]module.Version, len(chain))
	for i, step := range chain {
		path[i] = module.Version{Path: step.address, Version: step.constraint}
	}
	return path
}

func (r *resolution) resolveTransitive(address, constraintStr string, chain []chainStep) error {
	if _, onStack := r.stack[address]; onStack {
		cycleErr := NewResolveChainError(fmt.Errorf("cycle detected"), chainToModulePath(chain), "requires")
		return mtherr.TransitiveDependencyError(cycleErr.Error()).WithAddress(address)
	}

	r.constraintsByAddress[address] = append(r.constraintsByAddress[address], constraintStr)

	if existing, ok := r.resolvedMap[address]; ok {
		constraint, err := semver.ParseConstraint(constraintStr)
		if err != nil {
			return mtherr.VersionResolutionError(err.Error()).WithAddress(address)
		}
		if existing.Manifest != nil {
			existingVersion, err := semver.Parse(existing.Manifest.Version)
			if err == nil && constraint.Matches(existingVersion) {
				return nil
			}
		}
		return r.reResolveDiamond(address, chain)
	}

	r.stack[address] = struct{}{}
	defer delete(r.stack, address)

	resolved, subDeps, err := r.fetchAndResolveVersion(address, []string{constraintStr}, chain)
	if err != nil {
		return err
	}
	r.resolvedMap[address] = resolved
	r.subDepsByAddress[address] = subDeps

	for _, sub := range subDeps {
		if sub.IsLocal() {
			continue
		}
		if err := r.resolveTransitive(sub.Address, sub.Version, append(chain, chainStep{alias: sub.Alias, address: sub.Address, constraint: sub.Version})); err != nil {
			return err
		}
	}
	return nil
}

// reResolveDiamond handles an address that is already resolved but whose
// existing version doesn't satisfy a newly-accumulated constraint: it
// prunes the constraints contributed by the old version's own remote
// sub-dependencies, re-resolves against every constraint accumulated so
// far, and recurses into the newly-chosen version's remote sub-dependencies.
func (r *resolution) reResolveDiamond(address string, chain []chainStep) error {
	old := r.subDepsByAddress[address]
	r.pruneStaleSubDeps(old)

	resolved, subDeps, err := r.fetchAndResolveVersion(address, r.constraintsByAddress[address], chain)
	if err != nil {
		return err
	}
	r.resolvedMap[address] = resolved
	r.subDepsByAddress[address] = subDeps

	r.stack[address] = struct{}{}
	defer delete(r.stack, address)

	for _, sub := range subDeps {
		if sub.IsLocal() {
			continue
		}
		if err := r.resolveTransitive(sub.Address, sub.Version, append(chain, chainStep{alias: sub.Alias, address: sub.Address, constraint: sub.Version})); err != nil {
			return err
		}
	}
	return nil
}

// pruneStaleSubDeps removes the constraint each of oldSubDeps contributed
// to its own address, recursing into that address's own recorded
// sub-dependencies, and deletes resolvedMap/subDepsByAddress entries whose
// constraint list becomes empty as a result.
func (r *resolution) pruneStaleSubDeps(oldSubDeps []manifest.Dependency) {
	for _, sub := range oldSubDeps {
		if sub.IsLocal() {
			continue
		}
		constraints := r.constraintsByAddress[sub.Address]
		filtered := constraints[:0]
		removed := false
		for _, c := range constraints {
			if !removed && c == sub.Version {
				removed = true
				continue
			}
			filtered = append(filtered, c)
		}
		r.constraintsByAddress[sub.Address] = filtered

		if len(filtered) == 0 {
			grandchildren := r.subDepsByAddress[sub.Address]
			delete(r.constraintsByAddress, sub.Address)
			delete(r.resolvedMap, sub.Address)
			delete(r.subDepsByAddress, sub.Address)
			r.pruneStaleSubDeps(grandchildren)
		}
	}
}

// fetchAndResolveVersion selects a version for address satisfying every
// constraint in rawConstraints, ensures it's cached locally (fetching on a
// miss), and loads its manifest and bundle files.
func (r *resolution) fetchAndResolveVersion(address string, rawConstraints []string, chain []chainStep) (*ResolvedDependency, []manifest.Dependency, error) {
	tags, ok := r.tagsCache[address]
	if !ok {
		listed, err := r.fetcher.ListTags(r.ctx, address)
		if err != nil {
			return nil, nil, err
		}
		tags = listed
		r.tagsCache[address] = tags
	}

	constraints := make([]semver.Constraint, 0, len(rawConstraints))
	for _, raw := range rawConstraints {
		c, err := semver.ParseConstraint(raw)
		if err != nil {
			return nil, nil, mtherr.VersionResolutionError(err.Error()).WithAddress(address)
		}
		constraints = append(constraints, c)
	}

	versions := make([]semver.Version, len(tags))
	tagByVersion := make(map[string]vcsgit.Tag, len(tags))
	for i, t := range tags {
		versions[i] = t.Version
		tagByVersion[t.Version.String()] = t
	}

	var selected semver.Version
	var foundTag vcsgit.Tag
	var found bool
	if len(constraints) == 1 {
		selected, found = semver.SelectMinimum(versions, constraints[0])
	} else {
		selected, found = semver.SelectMinimumForAll(versions, constraints)
	}
	if !found {
		noVersionErr := fmt.Errorf("no version satisfies constraints %v", rawConstraints)
		chainErr := NewResolveChainError(noVersionErr, chainToModulePath(chain), "requires")
		return nil, nil, mtherr.TransitiveDependencyError(chainErr.Error()).WithAddress(address)
	}
	foundTag = tagByVersion[selected.String()]

	cached, err := r.cache.IsCached(address, selected.String())
	if err != nil {
		return nil, nil, err
	}
	packageRoot, err := r.cache.Path(address, selected.String())
	if err != nil {
		return nil, nil, err
	}
	if !cached {
		scratch, err := os.MkdirTemp("", "mthds-fetch-*")
		if err != nil {
			return nil, nil, mtherr.PackageCacheError("creating scratch directory", err)
		}
		defer os.RemoveAll(scratch)
		dest := filepath.Join(scratch, "src")
		if err := r.fetcher.Clone(r.ctx, address, foundTag.Name, dest); err != nil {
			if me, ok := err.(*mtherr.Error); ok {
				return nil, nil, me.WithAddress(address)
			}
			return nil, nil, mtherr.VCSFetchError("cloning dependency", err).WithAddress(address)
		}
		packageRoot, err = r.cache.Store(dest, address, selected.String())
		if err != nil {
			return nil, nil, err
		}
	}

	logrus.WithFields(logrus.Fields{"address": address, "version": selected.String()}).Debug("resolved dependency")

	sub, files, err := loadPackage(packageRoot)
	if err != nil {
		return nil, nil, err
	}

	resolved := &ResolvedDependency{
		Address:           address,
		Manifest:          sub,
		PackageRoot:       packageRoot,
		MthdsFiles:        files,
		ExportedPipeCodes: exportedPipes(sub),
	}

	var subDeps []manifest.Dependency
	if sub != nil {
		subDeps = sub.Dependencies
	}
	return resolved, subDeps, nil
}

func loadPackage(root string) (*manifest.Manifest, []string, error) {
	files, err := collectMthdsFiles(root)
	if err != nil {
		return nil, nil, err
	}

	manifestPath := filepath.Join(root, manifest.Filename)
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, files, nil
		}
		return nil, nil, mtherr.ManifestParseError("reading manifest", err)
	}
	m, err := manifest.Parse(content)
	if err != nil {
		return nil, nil, err
	}
	return m, files, nil
}

func collectMthdsFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".mthds" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, mtherr.PackageCacheError("walking package directory", err)
	}
	sort.Strings(files)
	return files, nil
}

// exportedPipes returns nil (meaning "all pipes are public") when m is nil
// or declares no exports at all, otherwise the union of every exported
// domain's pipe list.
func exportedPipes(m *manifest.Manifest) []string {
	if m == nil || len(m.Exports) == 0 {
		return nil
	}
	var pipes []string
	for _, export := range m.Exports {
		pipes = append(pipes, export.Pipes...)
	}
	sort.Strings(pipes)
	return pipes
}
