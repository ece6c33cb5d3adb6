// Package lineage defines the governance provenance contract for
// extraction records and the batch gate that enforces it.
package lineage

import "github.com/ppiankov/claimharvest/internal/model"

// Governance flags.
const (
	FlagThirdPartySource   = "THIRD_PARTY_SOURCE"
	FlagCoverageFallback   = "COVERAGE_FALLBACK"
	FlagSecondaryAttempted = "SECONDARY_ATTEMPTED"
)

// Selection sources. Secondary-sourced records use the fallback prefix
// so downstream consumers can gate on a single string check.
const (
	SourceDirect          = "DIRECT"
	SourceFamilyFallback  = "FAMILY_FALLBACK"
	SourceSecondaryPrefix = "SECONDARY_FALLBACK_"
	SourceSecondarySeed   = SourceSecondaryPrefix + "SEED"
)

// RequiredFlags is the flag set every secondary-sourced record must
// carry.
func RequiredFlags() []string {
	return []string{FlagThirdPartySource, FlagCoverageFallback}
}

// Tag returns the governance flags for a record sourced from the
// secondary authority.
func Tag(secondarySourced bool, secondaryAttempted bool) []string {
	if secondarySourced {
		return RequiredFlags()
	}
	if secondaryAttempted {
		return []string{FlagSecondaryAttempted}
	}
	return []string{}
}

// SecondarySourced reports whether a record's claims came from the
// secondary authority.
func SecondarySourced(r model.ExtractionRecord) bool {
	return r.ClaimsSource == model.ClaimsSourceSecondary
}
