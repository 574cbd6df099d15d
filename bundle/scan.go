package bundle

import (
	"sort"

	"github.com/mthds-ai/mthds/manifest"
	"github.com/sirupsen/logrus"
)

// ExportsFromScan merges a set of bundle Metadata into the DomainExports a
// fresh manifest should declare: every domain's declared pipes plus its
// main pipe (if any), sorted for determinism. When two bundles in the same
// domain declare different main pipes, the first one scanned wins and the
// conflict is logged -- mirrored from the original scanner's first-wins
// policy for main_pipe conflicts.
//
// This backs `mthds init`'s auto-discovery of exports from bundles already
// present in a directory, supplementing the empty-directory init flow.
func ExportsFromScan(metadatas []Metadata) []manifest.DomainExports {
	pipesByDomain := map[string]map[string]struct{}{}
	mainPipeByDomain := map[string]string{}

	for _, meta := range metadatas {
		if _, ok := pipesByDomain[meta.Domain]; !ok {
			pipesByDomain[meta.Domain] = map[string]struct{}{}
		}
		for _, code := range meta.PipeCodes {
			pipesByDomain[meta.Domain][code] = struct{}{}
		}
		if meta.MainPipe == "" {
			continue
		}
		if existing, ok := mainPipeByDomain[meta.Domain]; ok && existing != meta.MainPipe {
			logrus.WithFields(logrus.Fields{
				"domain": meta.Domain,
				"kept":   existing,
				"ignored": meta.MainPipe,
			}).Warn("conflicting main_pipe for domain, keeping first value")
			continue
		}
		mainPipeByDomain[meta.Domain] = meta.MainPipe
	}

	domains := make([]string, 0, len(pipesByDomain))
	for domain := range pipesByDomain {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	exports := make([]manifest.DomainExports, 0, len(domains))
	for _, domain := range domains {
		pipeSet := pipesByDomain[domain]
		if mainPipe, ok := mainPipeByDomain[domain]; ok {
			pipeSet[mainPipe] = struct{}{}
		}
		pipes := make([]string, 0, len(pipeSet))
		for pipe := range pipeSet {
			pipes = append(pipes, pipe)
		}
		sort.Strings(pipes)
		exports = append(exports, manifest.DomainExports{DomainPath: domain, Pipes: pipes})
	}
	return exports
}
