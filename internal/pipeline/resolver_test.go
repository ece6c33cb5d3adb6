package pipeline

import (
	"testing"

	"github.com/ppiankov/claimharvest/internal/ident"
	"github.com/ppiankov/claimharvest/internal/registry"
)

func id(t *testing.T, raw string) ident.Identifier {
	t.Helper()
	parsed, err := ident.Parse(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return parsed
}

func member(t *testing.T, raw string) registry.FamilyMember {
	t.Helper()
	return registry.FamilyMember{ID: id(t, raw)}
}

func dotted(list []ident.Identifier) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Dotted()
	}
	return out
}

func TestBuildCandidates_SeedFirstRegardlessOfFamily(t *testing.T) {
	seed := id(t, "EP3825599A1")
	family := []registry.FamilyMember{
		member(t, "US.2021372574.A1"),
		member(t, "EP.3825599.B1"),
	}

	got := BuildCandidates(seed, family)
	if len(got) == 0 || got[0].Dotted() != "EP.3825599.A1" {
		t.Fatalf("candidates = %v, want seed first", dotted(got))
	}
	// Non-bare seed kind: family members are never expanded in.
	if len(got) != 1 {
		t.Errorf("candidates = %v, want seed only", dotted(got))
	}
}

func TestBuildCandidates_USSeedIncludesPadVariants(t *testing.T) {
	got := BuildCandidates(id(t, "US2021372574A1"), nil)

	want := []string{"US.2021372574.A1", "US.20210372574.A1", "US.202100372574.A1"}
	if len(got) != len(want) {
		t.Fatalf("candidates = %v, want %v", dotted(got), want)
	}
	for i, w := range want {
		if got[i].Dotted() != w {
			t.Errorf("candidate[%d] = %s, want %s", i, got[i].Dotted(), w)
		}
	}
}

func TestBuildCandidates_BareKindExpandsMatchingFamily(t *testing.T) {
	seed := id(t, "EP.3825599.A")
	family := []registry.FamilyMember{
		member(t, "EP.3825599.A9"),
		member(t, "EP.3825599.A2"),
		member(t, "EP.3825599.A1"),
		member(t, "US.2021372574.A1"), // wrong jurisdiction
		member(t, "EP.3825600.B1"),    // wrong kind letter
		member(t, "EP.3825601.A"),     // bare kind excluded
	}

	got := dotted(BuildCandidates(seed, family))
	want := []string{"EP.3825599.A", "EP.3825599.A1", "EP.3825599.A2", "EP.3825599.A9"}
	if len(got) != len(want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("candidate[%d] = %s, want %s", i, got[i], w)
		}
	}
}

func TestBuildCandidates_Dedup(t *testing.T) {
	seed := id(t, "EP.3825599.A")
	family := []registry.FamilyMember{
		member(t, "EP.3825599.A1"),
		member(t, "EP.3825599.A1"),
	}

	got := BuildCandidates(seed, family)
	if len(got) != 2 {
		t.Errorf("candidates = %v, want deduplicated pair", dotted(got))
	}
}

func TestKindScore(t *testing.T) {
	tests := []struct {
		kind string
		want int
	}{
		{"A1", 0},
		{"A2", 1},
		{"A9", 2},
		{"B1", 0},
		{"A", 3},
	}
	for _, tt := range tests {
		if got := kindScore(tt.kind); got != tt.want {
			t.Errorf("kindScore(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
