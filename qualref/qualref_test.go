package qualref

import "testing"

func TestParse(t *testing.T) {
	ref, err := Parse("billing.invoices.generate_invoice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.DomainPath != "billing.invoices" || ref.LocalCode != "generate_invoice" {
		t.Fatalf("got %+v", ref)
	}
	if !ref.IsQualified() {
		t.Fatalf("expected qualified ref")
	}
	if ref.FullRef() != "billing.invoices.generate_invoice" {
		t.Fatalf("got %s", ref.FullRef())
	}
}

func TestParseBare(t *testing.T) {
	ref, err := Parse("generate_invoice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.IsQualified() {
		t.Fatalf("expected unqualified ref")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{"", "billing.", ".billing.x", "billing..invoices.x", "Billing.x"}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q) expected error, got none", c)
		}
	}
}

func TestParseConceptAndPipeRef(t *testing.T) {
	if _, err := ParseConceptRef("billing.Invoice"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseConceptRef("billing.invoice"); err == nil {
		t.Errorf("expected error for non-PascalCase concept code")
	}
	if _, err := ParsePipeRef("billing.generate_invoice"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParsePipeRef("billing.GenerateInvoice"); err == nil {
		t.Errorf("expected error for non-snake_case pipe code")
	}
}

func TestIsLocalToAndExternalTo(t *testing.T) {
	ref, _ := Parse("billing.generate_invoice")
	if !ref.IsExternalTo("shipping") {
		t.Errorf("expected external to shipping")
	}
	if !ref.IsLocalTo("billing") {
		t.Errorf("expected local to billing")
	}
	bare, _ := Parse("generate_invoice")
	if !bare.IsLocalTo("anything") {
		t.Errorf("expected bare ref to be local to any domain")
	}
}

func TestCrossPackageRef(t *testing.T) {
	if !HasCrossPackagePrefix("acme->billing.generate_invoice") {
		t.Fatalf("expected cross-package prefix to be detected")
	}
	alias, rest, err := SplitCrossPackageRef("acme->billing.generate_invoice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alias != "acme" || rest != "billing.generate_invoice" {
		t.Fatalf("got alias=%q rest=%q", alias, rest)
	}

	if _, _, err := SplitCrossPackageRef("billing.generate_invoice"); err == nil {
		t.Fatalf("expected error for ref with no cross-package prefix")
	}
}
