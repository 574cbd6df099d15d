package bundle

import "testing"

const sampleBundle = `
domain = "billing"
main_pipe = "generate_invoice"

[pipe.generate_invoice]
steps = [{ pipe = "billing.fetch_customer" }, { pipe = "billing.render_pdf" }]

[pipe.route_invoice]
branch_pipe_code = "billing.generate_invoice"
branches = [{ pipe = "billing.send_email" }]

[pipe.fetch_customer]
sub_pipes = [{ pipe = "crm.lookup_customer" }]
`

func TestExtract(t *testing.T) {
	meta, err := Extract([]byte(sampleBundle))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.Domain != "billing" {
		t.Errorf("got domain %q", meta.Domain)
	}
	if meta.MainPipe != "generate_invoice" {
		t.Errorf("got main pipe %q", meta.MainPipe)
	}
	if len(meta.PipeCodes) != 3 {
		t.Fatalf("got %d pipe codes, want 3", len(meta.PipeCodes))
	}
	if len(meta.References) != 5 {
		t.Fatalf("got %d references, want 5: %+v", len(meta.References), meta.References)
	}
}

func TestExtractRequiresDomain(t *testing.T) {
	if _, err := Extract([]byte(`main_pipe = "x"`)); err == nil {
		t.Fatalf("expected error for missing domain")
	}
}

func TestExtractDomainUnderHeader(t *testing.T) {
	meta, err := Extract([]byte(`
[header]
domain = "shipping"
`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.Domain != "shipping" {
		t.Errorf("got domain %q", meta.Domain)
	}
}

func TestExportsFromScan(t *testing.T) {
	metas := []Metadata{
		{Domain: "billing", MainPipe: "generate_invoice", PipeCodes: []string{"generate_invoice", "route_invoice"}},
		{Domain: "billing", PipeCodes: []string{"fetch_customer"}},
	}
	exports := ExportsFromScan(metas)
	if len(exports) != 1 {
		t.Fatalf("got %d export domains, want 1", len(exports))
	}
	if exports[0].DomainPath != "billing" {
		t.Errorf("got domain %q", exports[0].DomainPath)
	}
	if len(exports[0].Pipes) != 3 {
		t.Fatalf("got pipes %v, want 3 entries", exports[0].Pipes)
	}
}
