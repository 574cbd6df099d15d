// Package bundle shallow-parses *.mthds bundle files to extract the
// domain they belong to, their declared pipes, and the pipe references
// embedded in each pipe's controller fields -- without understanding the
// rest of the pipe definition, which is opaque to the package manager.
package bundle

import (
	"fmt"

	"github.com/mthds-ai/mthds/mtherr"
	toml "github.com/pelletier/go-toml/v2"
)

// PipeReference is one outbound reference collected from a pipe's
// controller fields, paired with a human-readable context label pointing
// back at where it was found.
type PipeReference struct {
	Ref     string
	Context string
}

// Metadata is everything the package manager needs to know about one
// bundle file: the domain it declares, its optional main pipe, the pipe
// codes it defines, and every outbound reference found in those pipes.
type Metadata struct {
	Domain     string
	MainPipe   string // empty when absent
	PipeCodes  []string
	References []PipeReference
}

// Extract parses content (the raw bytes of one *.mthds file) into Metadata.
func Extract(content []byte) (Metadata, error) {
	var doc map[string]any
	if err := toml.Unmarshal(content, &doc); err != nil {
		return Metadata{}, mtherr.ManifestParseError("malformed bundle TOML", err)
	}

	domain, ok := stringValue(doc, "domain")
	if !ok {
		if header, ok := doc["header"].(map[string]any); ok {
			domain, ok = stringValue(header, "domain")
			_ = ok
		}
	}
	if domain == "" {
		return Metadata{}, mtherr.ManifestParseError("bundle is missing a domain", nil)
	}

	meta := Metadata{Domain: domain}
	if mainPipe, ok := stringValue(doc, "main_pipe"); ok {
		meta.MainPipe = mainPipe
	}

	pipeTable, _ := doc["pipe"].(map[string]any)
	codes := make([]string, 0, len(pipeTable))
	for code := range pipeTable {
		codes = append(codes, code)
	}
	meta.PipeCodes = codes

	for _, code := range codes {
		pipe, ok := pipeTable[code].(map[string]any)
		if !ok {
			continue
		}
		meta.References = append(meta.References, collectReferences(code, pipe)...)
	}

	return meta, nil
}

func collectReferences(code string, pipe map[string]any) []PipeReference {
	var refs []PipeReference

	if steps, ok := pipe["steps"].([]any); ok {
		for i, step := range steps {
			if stepTable, ok := step.(map[string]any); ok {
				if ref, ok := stringValue(stepTable, "pipe"); ok {
					refs = append(refs, PipeReference{
						Ref:     ref,
						Context: fmt.Sprintf("pipe.%s.steps[%d].pipe", code, i),
					})
				}
			}
		}
	}

	if ref, ok := stringValue(pipe, "branch_pipe_code"); ok {
		refs = append(refs, PipeReference{
			Ref:     ref,
			Context: fmt.Sprintf("pipe.%s.branch_pipe_code", code),
		})
	}

	if branches, ok := pipe["branches"].([]any); ok {
		for i, branch := range branches {
			if branchTable, ok := branch.(map[string]any); ok {
				if ref, ok := stringValue(branchTable, "pipe"); ok {
					refs = append(refs, PipeReference{
						Ref:     ref,
						Context: fmt.Sprintf("pipe.%s.branches[%d].pipe", code, i),
					})
				}
			}
		}
	}

	if subPipes, ok := pipe["sub_pipes"].([]any); ok {
		for i, sub := range subPipes {
			if subTable, ok := sub.(map[string]any); ok {
				if ref, ok := stringValue(subTable, "pipe"); ok {
					refs = append(refs, PipeReference{
						Ref:     ref,
						Context: fmt.Sprintf("pipe.%s.sub_pipes[%d].pipe", code, i),
					})
				}
			}
		}
	}

	return refs
}

func stringValue(table map[string]any, key string) (string, bool) {
	s, ok := table[key].(string)
	return s, ok
}
