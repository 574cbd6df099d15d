package manifest

import (
	"fmt"
	"sort"

	"github.com/mthds-ai/mthds/mtherr"
	toml "github.com/pelletier/go-toml/v2"
)

var knownPackageKeys = map[string]struct{}{
	"address":       {},
	"display_name":  {},
	"version":       {},
	"description":   {},
	"authors":       {},
	"license":       {},
	"mthds_version": {},
}

var knownTopLevelKeys = map[string]struct{}{
	"package":      {},
	"dependencies": {},
	"exports":      {},
}

// Parse decodes and validates a METHODS.toml document.
func Parse(content []byte) (*Manifest, error) {
	var raw map[string]any
	if err := toml.Unmarshal(content, &raw); err != nil {
		return nil, mtherr.ManifestParseError("malformed TOML", err)
	}

	for key := range raw {
		if _, ok := knownTopLevelKeys[key]; !ok {
			return nil, mtherr.ManifestParseError(fmt.Sprintf("unknown top-level key %q", key), nil)
		}
	}

	pkg, ok := raw["package"].(map[string]any)
	if !ok {
		return nil, mtherr.ManifestParseError("missing [package] table", nil)
	}
	for key := range pkg {
		if _, ok := knownPackageKeys[key]; !ok {
			return nil, mtherr.ManifestParseError(fmt.Sprintf("unknown [package] key %q", key), nil)
		}
	}

	m := &Manifest{
		Address:      stringField(pkg, "address"),
		DisplayName:  stringField(pkg, "display_name"),
		Version:      stringField(pkg, "version"),
		Description:  stringField(pkg, "description"),
		License:      stringField(pkg, "license"),
		MthdsVersion: stringField(pkg, "mthds_version"),
		Authors:      stringSliceField(pkg, "authors"),
	}
	if m.MthdsVersion == "" {
		m.MthdsVersion = StandardVersion
	}

	deps, err := parseDependencies(raw["dependencies"])
	if err != nil {
		return nil, err
	}
	m.Dependencies = deps

	exports, err := parseExports(raw["exports"])
	if err != nil {
		return nil, err
	}
	m.Exports = exports

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func stringField(table map[string]any, key string) string {
	s, _ := table[key].(string)
	return s
}

func stringSliceField(table map[string]any, key string) []string {
	raw, ok := table[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseDependencies(raw any) ([]Dependency, error) {
	table, ok := raw.(map[string]any)
	if !ok {
		return nil, nil
	}
	aliases := make([]string, 0, len(table))
	for alias := range table {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	deps := make([]Dependency, 0, len(table))
	for _, alias := range aliases {
		entry, ok := table[alias].(map[string]any)
		if !ok {
			return nil, mtherr.ManifestParseError(fmt.Sprintf("dependency %q must be an inline table", alias), nil)
		}
		deps = append(deps, Dependency{
			Alias:   alias,
			Address: stringField(entry, "address"),
			Version: stringField(entry, "version"),
			Path:    stringField(entry, "path"),
		})
	}
	return deps, nil
}

// parseExports walks the [exports] super-table, where nested sub-tables
// represent dotted domain-path segments and a "pipes" array at any level
// marks that level as a leaf domain. A table may both declare pipes and
// contain further sub-domains (e.g. "billing" exports pipes directly while
// "billing.invoices" is a nested sub-domain), so walking always continues
// into sibling sub-tables even after finding a "pipes" key.
func parseExports(raw any) ([]DomainExports, error) {
	table, ok := raw.(map[string]any)
	if !ok {
		return nil, nil
	}
	var exports []DomainExports
	if err := walkExportsTable(table, "", &exports); err != nil {
		return nil, err
	}
	return exports, nil
}

func walkExportsTable(table map[string]any, prefix string, out *[]DomainExports) error {
	if pipesRaw, ok := table["pipes"]; ok {
		pipesList, ok := pipesRaw.([]any)
		if !ok {
			return mtherr.ManifestParseError(fmt.Sprintf("exports.%s.pipes must be an array", prefix), nil)
		}
		pipes := make([]string, 0, len(pipesList))
		for _, p := range pipesList {
			if s, ok := p.(string); ok {
				pipes = append(pipes, s)
			}
		}
		*out = append(*out, DomainExports{DomainPath: prefix, Pipes: pipes})
	}

	keys := make([]string, 0, len(table))
	for key := range table {
		if key == "pipes" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		sub, ok := table[key].(map[string]any)
		if !ok {
			continue
		}
		childPrefix := key
		if prefix != "" {
			childPrefix = prefix + "." + key
		}
		if err := walkExportsTable(sub, childPrefix, out); err != nil {
			return err
		}
	}
	return nil
}
