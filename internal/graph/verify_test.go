package graph

import (
	"strings"
	"testing"
)

func TestInvariantChecksWellFormed(t *testing.T) {
	if len(invariantChecks) != 11 {
		t.Fatalf("invariantChecks = %d, want 11", len(invariantChecks))
	}
	seen := map[string]bool{}
	for _, c := range invariantChecks {
		if c.Name == "" || c.Description == "" {
			t.Errorf("check missing name or description: %+v", c)
		}
		if seen[c.Name] {
			t.Errorf("duplicate check name %q", c.Name)
		}
		seen[c.Name] = true
		if !strings.Contains(c.Query, "AS violations") {
			t.Errorf("check %q does not return a violations count", c.Name)
		}
	}
	for _, required := range []string{
		"single_active_version",
		"non_overlapping_validity",
		"version_contiguity",
		"aggregates_completeness",
		"causality",
	} {
		if !seen[required] {
			t.Errorf("missing check %q", required)
		}
	}
}

func TestVersionContiguityCheckCatchesGaps(t *testing.T) {
	// Successive versions must touch: the superseded version's end date is
	// the successor's start date, with no gap in between.
	var check *invariantCheck
	for i := range invariantChecks {
		if invariantChecks[i].Name == "version_contiguity" {
			check = &invariantChecks[i]
		}
	}
	if check == nil {
		t.Fatalf("version_contiguity check not declared")
	}
	if !strings.Contains(check.Query, "SUPERSEDES") {
		t.Errorf("contiguity check does not join SUPERSEDES pairs")
	}
	if !strings.Contains(check.Query, "prev.date_end <> v.date_start") {
		t.Errorf("contiguity check does not compare end against successor start")
	}
}

func TestVerifyReportFailed(t *testing.T) {
	ok := VerifyReport{Checks: []CheckResult{
		{Name: "a", Passed: true},
		{Name: "b", Passed: true},
	}}
	if ok.Failed() {
		t.Errorf("all-passed report reports failure")
	}

	bad := VerifyReport{Checks: []CheckResult{
		{Name: "a", Passed: true},
		{Name: "b", Violations: 2, Passed: false},
	}}
	if !bad.Failed() {
		t.Errorf("report with violations does not report failure")
	}
}
