package manifest

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders the manifest back to METHODS.toml text. Field order
// and nesting are written by hand, not delegated to a struct-tag encoder,
// so that re-serializing a parsed manifest is byte-for-byte stable: this
// mirrors the teacher's own hand-written MarshalJSON for its Dependency
// type rather than relying on reflection-based encoding.
func (m *Manifest) Serialize() []byte {
	var b strings.Builder

	b.WriteString("[package]\n")
	writeTOMLString(&b, "address", m.Address)
	if m.DisplayName != "" {
		writeTOMLString(&b, "display_name", m.DisplayName)
	}
	writeTOMLString(&b, "version", m.Version)
	writeTOMLString(&b, "description", m.Description)
	if len(m.Authors) > 0 {
		writeTOMLStringArray(&b, "authors", m.Authors)
	}
	if m.License != "" {
		writeTOMLString(&b, "license", m.License)
	}
	writeTOMLString(&b, "mthds_version", m.MthdsVersion)

	deps := m.SortedDependencies()
	if len(deps) > 0 {
		b.WriteString("\n[dependencies]\n")
		for _, dep := range deps {
			b.WriteString(dep.Alias)
			b.WriteString(" = { ")
			fields := []string{fmt.Sprintf("address = %s", tomlQuote(dep.Address))}
			if dep.IsLocal() {
				fields = append(fields, fmt.Sprintf("path = %s", tomlQuote(dep.Path)))
			} else {
				fields = append(fields, fmt.Sprintf("version = %s", tomlQuote(dep.Version)))
			}
			b.WriteString(strings.Join(fields, ", "))
			b.WriteString(" }\n")
		}
	}

	exports := m.SortedExports()
	if len(exports) > 0 {
		b.WriteString("\n")
		for i, export := range exports {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "[exports.%s]\n", export.DomainPath)
			writeTOMLStringArray(&b, "pipes", export.Pipes)
		}
	}

	return []byte(b.String())
}

func writeTOMLString(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "%s = %s\n", key, tomlQuote(value))
}

func writeTOMLStringArray(b *strings.Builder, key string, values []string) {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = tomlQuote(v)
	}
	fmt.Fprintf(b, "%s = [%s]\n", key, strings.Join(quoted, ", "))
}

func tomlQuote(s string) string {
	return strconv.Quote(s)
}
