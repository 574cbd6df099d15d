package semver

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"1.2.3", false},
		{"v1.2.3", false},
		{"1.2.3-beta.1", false},
		{"1.2", true},
		{"not-a-version", true},
	}
	for _, c := range cases {
		_, err := Parse(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
		}
	}
}

func TestParseTag(t *testing.T) {
	if _, ok := ParseTag("release-candidate"); ok {
		t.Fatalf("expected non-semver tag to be rejected")
	}
	v, ok := ParseTag("v2.1.0")
	if !ok {
		t.Fatalf("expected v2.1.0 to parse")
	}
	if v.String() != "2.1.0" {
		t.Fatalf("got %s, want 2.1.0", v.String())
	}
}

func TestCompareOrdering(t *testing.T) {
	a, _ := Parse("1.2.0")
	b, _ := Parse("1.10.0")
	if !a.LessThan(b) {
		t.Fatalf("expected 1.2.0 < 1.10.0 (numeric, not lexicographic)")
	}
}

func TestSort(t *testing.T) {
	v1, _ := Parse("1.2.0")
	v2, _ := Parse("1.10.0")
	v3, _ := Parse("1.3.0")
	versions := []Version{v2, v1, v3}
	Sort(versions)
	if !versions[0].Equal(v1) || !versions[1].Equal(v3) || !versions[2].Equal(v2) {
		t.Fatalf("unexpected sort order: %v", versions)
	}
}
