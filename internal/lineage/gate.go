package lineage

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/claimharvest/internal/model"
)

// RowIssue names one record that failed the gate and why.
type RowIssue struct {
	FamilyID    string
	Publication string
	Reasons     []string
}

// GateResult is the batch verdict. A batch with zero applicable
// records passes trivially.
type GateResult struct {
	Total      int
	Applicable int
	Issues     []RowIssue
}

// Pass reports whether the batch may be trusted downstream.
func (g GateResult) Pass() bool { return len(g.Issues) == 0 }

// Gate validates every secondary-sourced record in a batch. Required:
// non-empty seed, resolved identifier, fetch status and cached-text
// path; governance flags must be a superset of RequiredFlags; the
// selection source must carry the fallback prefix. checkFiles
// additionally verifies the cached text file exists on disk.
func Gate(records []model.ExtractionRecord, checkFiles bool) GateResult {
	res := GateResult{Total: len(records)}

	for _, r := range records {
		if !SecondarySourced(r) {
			continue
		}
		res.Applicable++

		var reasons []string
		if strings.TrimSpace(r.SecondarySeed) == "" {
			reasons = append(reasons, "MISSING secondary_seed")
		}
		if strings.TrimSpace(r.SecondaryResolved) == "" {
			reasons = append(reasons, "MISSING secondary_resolved")
		}
		if strings.TrimSpace(r.SecondaryStatus) == "" {
			reasons = append(reasons, "MISSING secondary_status")
		}
		if strings.TrimSpace(r.ClaimsTextPath) == "" {
			reasons = append(reasons, "MISSING claims_text_path")
		}

		var missing []string
		for _, want := range RequiredFlags() {
			if !r.HasFlag(want) {
				missing = append(missing, want)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			reasons = append(reasons, "Missing governance_flags: "+strings.Join(missing, ","))
		}

		if strings.TrimSpace(r.SelectedSource) == "" {
			reasons = append(reasons, "MISSING selected_source")
		} else if !strings.HasPrefix(r.SelectedSource, SourceSecondaryPrefix) {
			reasons = append(reasons, "selected_source must start with "+SourceSecondaryPrefix)
		}

		if checkFiles && strings.TrimSpace(r.ClaimsTextPath) != "" {
			if info, err := os.Stat(r.ClaimsTextPath); err != nil || info.IsDir() {
				reasons = append(reasons, fmt.Sprintf("text file not found: %s", r.ClaimsTextPath))
			}
		}

		if len(reasons) > 0 {
			res.Issues = append(res.Issues, RowIssue{
				FamilyID:    orUnknown(r.FamilyID, "UNKNOWN_FAMILY"),
				Publication: orUnknown(r.SelectedPublication, "UNKNOWN_PUBLICATION"),
				Reasons:     reasons,
			})
		}
	}
	return res
}

func orUnknown(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
