package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Constraint is a (possibly compound, comma-separated) version constraint
// such as "^1.2.0", "~1.2", ">=1.0.0, <2.0.0", or the bare wildcard "*".
// Every clause must be satisfied for a version to match.
type Constraint struct {
	raw     string
	clauses []clause
}

type operator int

const (
	opCaret operator = iota
	opTilde
	opGTE
	opLTE
	opGT
	opLT
	opEQ
	opNE
	opWildcardAny   // "*"
	opWildcardMajor // "1.*"
	opWildcardMinor // "1.2.*"
)

type clause struct {
	op    operator
	major uint64
	minor uint64
	patch uint64
	full  string // the operand's literal text, for opEQ/opNE/opGT/... exact parse
}

var singleConstraintPattern = regexp.MustCompile(
	`^(\^|~|>=|<=|>|<|==|!=)?(\d+)(?:\.(\d+))?(?:\.(\d+))?(-[0-9A-Za-z.-]+)?$`,
)

var wildcardPattern = regexp.MustCompile(`^(\d+)(?:\.(\d+))?\.\*$`)

// ParseConstraint parses a full (possibly compound) constraint string.
func ParseConstraint(raw string) (Constraint, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Constraint{}, fmt.Errorf("empty version constraint")
	}
	if trimmed == "*" {
		return Constraint{raw: trimmed, clauses: []clause{{op: opWildcardAny}}}, nil
	}

	parts := strings.Split(trimmed, ",")
	clauses := make([]clause, 0, len(parts))
	for _, part := range parts {
		c, err := parseSingleClause(strings.TrimSpace(part))
		if err != nil {
			return Constraint{}, fmt.Errorf("invalid version constraint %q: %w", raw, err)
		}
		clauses = append(clauses, c)
	}
	return Constraint{raw: trimmed, clauses: clauses}, nil
}

func parseSingleClause(part string) (clause, error) {
	if part == "*" {
		return clause{op: opWildcardAny}, nil
	}
	if m := wildcardPattern.FindStringSubmatch(part); m != nil {
		major, _ := strconv.ParseUint(m[1], 10, 64)
		if m[2] == "" {
			return clause{op: opWildcardMajor, major: major}, nil
		}
		minor, _ := strconv.ParseUint(m[2], 10, 64)
		return clause{op: opWildcardMinor, major: major, minor: minor}, nil
	}

	m := singleConstraintPattern.FindStringSubmatch(part)
	if m == nil {
		return clause{}, fmt.Errorf("unrecognized constraint clause %q", part)
	}
	op := opEQ
	switch m[1] {
	case "^":
		op = opCaret
	case "~":
		op = opTilde
	case ">=":
		op = opGTE
	case "<=":
		op = opLTE
	case ">":
		op = opGT
	case "<":
		op = opLT
	case "==", "":
		op = opEQ
	case "!=":
		op = opNE
	}
	major, _ := strconv.ParseUint(m[2], 10, 64)
	var minor, patch uint64
	if m[3] != "" {
		minor, _ = strconv.ParseUint(m[3], 10, 64)
	}
	if m[4] != "" {
		patch, _ = strconv.ParseUint(m[4], 10, 64)
	}
	operand := fmt.Sprintf("%d.%d.%d%s", major, minor, patch, m[5])
	return clause{op: op, major: major, minor: minor, patch: patch, full: operand}, nil
}

// String returns the constraint's original textual form.
func (c Constraint) String() string { return c.raw }

// Matches reports whether v satisfies every clause of the constraint.
func (c Constraint) Matches(v Version) bool {
	for _, cl := range c.clauses {
		if !cl.matches(v) {
			return false
		}
	}
	return true
}

func (cl clause) matches(v Version) bool {
	switch cl.op {
	case opWildcardAny:
		return true
	case opWildcardMajor:
		return v.Major() == cl.major
	case opWildcardMinor:
		return v.Major() == cl.major && v.Minor() == cl.minor
	}

	operand, err := Parse(cl.full)
	if err != nil {
		return false
	}

	switch cl.op {
	case opEQ:
		return v.Equal(operand)
	case opNE:
		return !v.Equal(operand)
	case opGT:
		return v.GreaterThan(operand)
	case opGTE:
		return v.GreaterThan(operand) || v.Equal(operand)
	case opLT:
		return v.LessThan(operand)
	case opLTE:
		return v.LessThan(operand) || v.Equal(operand)
	case opCaret:
		// ^1.2.3 allows any version in [1.2.3, 2.0.0); ^0.2.3 narrows the
		// upper bound to 0.3.0, and ^0.0.3 narrows it to 0.0.4, matching
		// the npm-style "most significant non-zero segment is locked" rule.
		if v.LessThan(operand) {
			return false
		}
		upper := caretUpperBound(operand)
		return v.LessThan(upper)
	case opTilde:
		// ~1.2.3 allows [1.2.3, 1.3.0); ~1.2 allows [1.2.0, 1.3.0).
		if v.LessThan(operand) {
			return false
		}
		upper := tildeUpperBound(operand)
		return v.LessThan(upper)
	}
	return false
}

func caretUpperBound(v Version) Version {
	switch {
	case v.Major() > 0:
		return mustParse(fmt.Sprintf("%d.0.0", v.Major()+1))
	case v.Minor() > 0:
		return mustParse(fmt.Sprintf("0.%d.0", v.Minor()+1))
	default:
		return mustParse(fmt.Sprintf("0.0.%d", v.Patch()+1))
	}
}

func tildeUpperBound(v Version) Version {
	return mustParse(fmt.Sprintf("%d.%d.0", v.Major(), v.Minor()+1))
}

func mustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// SelectMinimum returns the lowest version in versions that satisfies the
// constraint, mirroring the original's "sort ascending, first match"
// single-constraint selection strategy.
func SelectMinimum(versions []Version, c Constraint) (Version, bool) {
	sorted := append([]Version(nil), versions...)
	Sort(sorted)
	for _, v := range sorted {
		if c.Matches(v) {
			return v, true
		}
	}
	return Version{}, false
}

// SelectMinimumForAll returns the lowest version in versions that satisfies
// every constraint in constraints simultaneously -- the diamond-dependency
// resolution case, where several requesters each contribute one constraint.
func SelectMinimumForAll(versions []Version, constraints []Constraint) (Version, bool) {
	sorted := append([]Version(nil), versions...)
	Sort(sorted)
	for _, v := range sorted {
		ok := true
		for _, c := range constraints {
			if !c.Matches(v) {
				ok = false
				break
			}
		}
		if ok {
			return v, true
		}
	}
	return Version{}, false
}
