package lineage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/claimharvest/internal/model"
)

func secondaryRecord() model.ExtractionRecord {
	return model.ExtractionRecord{
		FamilyID:            "FAM-1",
		SeedPublication:     "US2021372574A1",
		SelectedPublication: "US20210372574A1",
		SelectedSource:      SourceSecondarySeed,
		ClaimsSource:        model.ClaimsSourceSecondary,
		GovernanceFlags:     RequiredFlags(),
		SecondaryStatus:     "OK_ALT",
		SecondarySeed:       "US2021372574A1",
		SecondaryResolved:   "US20210372574A1",
		ClaimsTextPath:      "/tmp/claims/US2021372574A1.txt",
	}
}

func TestGate_PassesCompleteSecondaryRecord(t *testing.T) {
	res := Gate([]model.ExtractionRecord{secondaryRecord()}, false)
	if !res.Pass() {
		t.Fatalf("expected pass, got issues: %+v", res.Issues)
	}
	if res.Applicable != 1 {
		t.Errorf("applicable = %d, want 1", res.Applicable)
	}
}

func TestGate_FailsOnMissingGovernanceFlag(t *testing.T) {
	rec := secondaryRecord()
	rec.GovernanceFlags = []string{FlagThirdPartySource}

	res := Gate([]model.ExtractionRecord{rec}, false)
	if res.Pass() {
		t.Fatal("expected failure for missing flag")
	}
	found := false
	for _, reason := range res.Issues[0].Reasons {
		if strings.Contains(reason, FlagCoverageFallback) {
			found = true
		}
	}
	if !found {
		t.Errorf("reasons must name the missing flag: %v", res.Issues[0].Reasons)
	}
}

func TestGate_FailsOnMissingLineageFields(t *testing.T) {
	rec := secondaryRecord()
	rec.SecondaryResolved = ""
	rec.ClaimsTextPath = ""

	res := Gate([]model.ExtractionRecord{rec}, false)
	if res.Pass() {
		t.Fatal("expected failure for missing lineage fields")
	}
	if len(res.Issues[0].Reasons) != 2 {
		t.Errorf("reasons = %v, want two", res.Issues[0].Reasons)
	}
}

func TestGate_FailsOnWrongSelectedSourcePrefix(t *testing.T) {
	rec := secondaryRecord()
	rec.SelectedSource = SourceDirect

	res := Gate([]model.ExtractionRecord{rec}, false)
	if res.Pass() {
		t.Fatal("expected failure for non-fallback selected_source")
	}
}

func TestGate_TrivialPassWithoutSecondaryRecords(t *testing.T) {
	recs := []model.ExtractionRecord{
		{ClaimsSource: model.ClaimsSourcePrimary, SelectedSource: SourceDirect},
		{ClaimsSource: ""},
	}
	res := Gate(recs, true)
	if !res.Pass() {
		t.Fatalf("expected trivial pass, got %+v", res.Issues)
	}
	if res.Applicable != 0 {
		t.Errorf("applicable = %d, want 0", res.Applicable)
	}
}

func TestGate_CheckFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claims.txt")
	if err := os.WriteFile(path, []byte("1. A lamp."), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := secondaryRecord()
	rec.ClaimsTextPath = path
	if res := Gate([]model.ExtractionRecord{rec}, true); !res.Pass() {
		t.Errorf("existing file must pass: %+v", res.Issues)
	}

	rec.ClaimsTextPath = filepath.Join(dir, "missing.txt")
	if res := Gate([]model.ExtractionRecord{rec}, true); res.Pass() {
		t.Error("missing file must fail when checkFiles is set")
	}
}

func TestTag(t *testing.T) {
	if got := Tag(true, false); len(got) != 2 {
		t.Errorf("secondary-sourced flags = %v", got)
	}
	if got := Tag(false, true); len(got) != 1 || got[0] != FlagSecondaryAttempted {
		t.Errorf("attempted flags = %v", got)
	}
	if got := Tag(false, false); len(got) != 0 {
		t.Errorf("primary flags = %v", got)
	}
}
