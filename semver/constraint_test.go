package semver

import "testing"

func mustV(t *testing.T, s string) Version {
	t.Helper()
	v, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return v
}

func TestConstraintMatches(t *testing.T) {
	cases := []struct {
		constraint string
		version    string
		want       bool
	}{
		{"^1.2.3", "1.2.3", true},
		{"^1.2.3", "1.9.9", true},
		{"^1.2.3", "2.0.0", false},
		{"^1.2.3", "1.2.2", false},
		{"^0.2.3", "0.2.9", true},
		{"^0.2.3", "0.3.0", false},
		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{">=1.0.0", "5.0.0", true},
		{"<2.0.0", "2.0.0", false},
		{"==1.2.3", "1.2.3", true},
		{"!=1.2.3", "1.2.3", false},
		{"*", "99.0.0", true},
		{"1.*", "1.9.0", true},
		{"1.*", "2.0.0", false},
		{"1.2.*", "1.2.9", true},
		{"1.2.*", "1.3.0", false},
		{">=1.0.0, <2.0.0", "1.5.0", true},
		{">=1.0.0, <2.0.0", "2.0.0", false},
	}
	for _, c := range cases {
		constraint, err := ParseConstraint(c.constraint)
		if err != nil {
			t.Fatalf("ParseConstraint(%q): %v", c.constraint, err)
		}
		v := mustV(t, c.version)
		if got := constraint.Matches(v); got != c.want {
			t.Errorf("%q.Matches(%q) = %v, want %v", c.constraint, c.version, got, c.want)
		}
	}
}

func TestSelectMinimum(t *testing.T) {
	versions := []Version{mustV(t, "1.3.0"), mustV(t, "1.1.0"), mustV(t, "1.2.0")}
	c, _ := ParseConstraint(">=1.1.0")
	got, ok := SelectMinimum(versions, c)
	if !ok || got.String() != "1.1.0" {
		t.Fatalf("got %v, ok=%v, want 1.1.0", got, ok)
	}
}

func TestSelectMinimumForAll(t *testing.T) {
	versions := []Version{mustV(t, "1.1.0"), mustV(t, "1.2.0"), mustV(t, "1.3.0"), mustV(t, "1.4.0")}
	c1, _ := ParseConstraint(">=1.2.0")
	c2, _ := ParseConstraint("<1.4.0")
	got, ok := SelectMinimumForAll(versions, []Constraint{c1, c2})
	if !ok || got.String() != "1.2.0" {
		t.Fatalf("got %v, ok=%v, want 1.2.0", got, ok)
	}

	c3, _ := ParseConstraint(">=1.4.1")
	if _, ok := SelectMinimumForAll(versions, []Constraint{c1, c3}); ok {
		t.Fatalf("expected no version to satisfy unsatisfiable constraint set")
	}
}
