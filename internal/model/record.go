package model

// ArtifactVersion identifies the record schema emitted by this build.
const ArtifactVersion = "v1"

// Claims source authorities.
const (
	ClaimsSourcePrimary   = "PRIMARY"
	ClaimsSourceSecondary = "SECONDARY"
)

// AttemptEntry is one audited fetch attempt against the registry.
type AttemptEntry struct {
	Docdb       string `json:"docdb"`
	FetchStatus string `json:"fetch_status"`
}

// ExtractionRecord is one line of the append-only JSONL output, the
// sole downstream contract. Records are never mutated after write.
type ExtractionRecord struct {
	ArtifactVersion string `json:"artifact_version"`
	CreatedAt       string `json:"created_at"`
	FamilyID        string `json:"family_id,omitempty"`
	AssetID         string `json:"asset_id,omitempty"`

	SeedPublication     string `json:"seed_publication"`
	SelectedPublication string `json:"selected_publication,omitempty"`
	SelectedSource      string `json:"selected_source,omitempty"`

	StructureStatus string `json:"structure_status,omitempty"`
	ClaimsCount     int    `json:"claims_count"`
	ClaimGateReason string `json:"claim_gate_reason,omitempty"`
	LastFetchStatus string `json:"last_fetch_status,omitempty"`

	ClaimsSource    string   `json:"claims_source,omitempty"`
	GovernanceFlags []string `json:"governance_flags"`

	SecondaryStatus   string `json:"secondary_status,omitempty"`
	SecondarySeed     string `json:"secondary_seed,omitempty"`
	SecondaryResolved string `json:"secondary_resolved,omitempty"`
	ClaimsTextPath    string `json:"claims_text_path,omitempty"`
	ClaimsRawPath     string `json:"claims_raw_path,omitempty"`

	FirstClaim          string `json:"first_claim,omitempty"`
	ClaimSet            string `json:"claim_set,omitempty"`
	ClaimsParseMethod   string `json:"claims_parse_method,omitempty"`
	ClaimsQuality       string `json:"claims_quality,omitempty"`
	ClaimsQualityReason string `json:"claims_quality_reason,omitempty"`
	ClaimsLangHint      string `json:"claims_lang_hint,omitempty"`

	AttemptedCount int            `json:"attempted_count"`
	AttemptedHead  []string       `json:"attempted_head,omitempty"`
	AttemptLog     []AttemptEntry `json:"attempt_log,omitempty"`
}

// HasFlag reports whether the record carries a governance flag.
func (r ExtractionRecord) HasFlag(flag string) bool {
	for _, f := range r.GovernanceFlags {
		if f == flag {
			return true
		}
	}
	return false
}
