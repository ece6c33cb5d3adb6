package pipeline

import (
	"sort"
	"strings"

	"github.com/ppiankov/claimharvest/internal/ident"
	"github.com/ppiankov/claimharvest/internal/registry"
)

// BuildCandidates produces the ordered, deduplicated identifier list to
// attempt for one extraction. The seed's canonical form always comes
// first, followed by its serial-width variants. When the seed's kind is
// a bare letter, family members sharing jurisdiction and kind letter
// whose own kind is not bare are appended, ranked by kind suffix:
// "1" above "2" above other digits above non-digit suffixes.
func BuildCandidates(seed ident.Identifier, family []registry.FamilyMember) []ident.Identifier {
	candidates := append([]ident.Identifier{seed}, seed.PadVariants()...)

	if seed.BareKind() {
		wantLetter := seed.KindLetter()
		var expanded []ident.Identifier
		for _, m := range family {
			id := m.ID
			if id.Country != seed.Country {
				continue
			}
			if id.KindLetter() != wantLetter || id.BareKind() {
				continue
			}
			expanded = append(expanded, id)
		}
		sort.SliceStable(expanded, func(i, j int) bool {
			si, sj := kindScore(expanded[i].Kind), kindScore(expanded[j].Kind)
			if si != sj {
				return si < sj
			}
			return expanded[i].Dotted() < expanded[j].Dotted()
		})
		candidates = append(candidates, expanded...)
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]ident.Identifier, 0, len(candidates))
	for _, c := range candidates {
		key := c.Dotted()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// kindScore ranks kind-code suffixes for bare-kind expansion.
func kindScore(kind string) int {
	if len(kind) < 2 {
		return 3
	}
	suffix := kind[1:]
	switch {
	case suffix == "1":
		return 0
	case suffix == "2":
		return 1
	case strings.IndexFunc(suffix, func(r rune) bool { return r < '0' || r > '9' }) == -1:
		return 2
	default:
		return 3
	}
}
