package segment

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtract_LatinNumbered(t *testing.T) {
	in := "1. A lamp comprising a base.\n\n2. The lamp of claim 1, further comprising a diffuser."
	got := Extract(in)

	if got.Method != MethodNumbered {
		t.Fatalf("method = %s, want %s", got.Method, MethodNumbered)
	}
	if got.FirstClaim != "A lamp comprising a base." {
		t.Errorf("first claim = %q", got.FirstClaim)
	}
	if got.Count != 2 {
		t.Errorf("count = %d, want 2", got.Count)
	}
	wantSet := "A lamp comprising a base.\n\nThe lamp of claim 1, further comprising a diffuser."
	if got.ClaimSet != wantSet {
		t.Errorf("claim set = %q, want %q", got.ClaimSet, wantSet)
	}
	if got.Quality != QualityHigh || got.Reason != "" {
		t.Errorf("quality = %s reason = %q, want HIGH with no reason", got.Quality, got.Reason)
	}
}

func TestParse_DuplicateNumbersFirstSeenWins(t *testing.T) {
	in := "1. First body.\n2. Second body.\n1. Duplicate body."
	got := Parse(in)

	want := map[int]string{
		1: "First body.",
		2: "Second body.",
	}
	if diff := cmp.Diff(want, got.Claims); diff != "" {
		t.Errorf("claims mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_MarkerVariants(t *testing.T) {
	in := "1. Period marker.\n2) Paren marker.\n3: Colon marker."
	got := Parse(in)

	want := map[int]string{
		1: "Period marker.",
		2: "Paren marker.",
		3: "Colon marker.",
	}
	if diff := cmp.Diff(want, got.Claims); diff != "" {
		t.Errorf("claims mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_NonLatinMarkers(t *testing.T) {
	in := "請求項1 ベースを備えるランプ。\n請求項2 前記ランプのディフューザー。"
	got := Extract(in)

	if got.Method != MethodNonLatinMarker {
		t.Fatalf("method = %s, want %s", got.Method, MethodNonLatinMarker)
	}
	if got.FirstClaim != "ベースを備えるランプ。" {
		t.Errorf("first claim = %q", got.FirstClaim)
	}
	if got.Count != 2 {
		t.Errorf("count = %d, want 2", got.Count)
	}
	if got.Quality != QualityHigh {
		t.Errorf("quality = %s, want HIGH", got.Quality)
	}
}

func TestExtract_FullWidthDigits(t *testing.T) {
	in := "請求項１ 第一の請求。\n請求項２ 第二の請求。"
	got := Parse(in)

	if got.Method != MethodNonLatinMarker {
		t.Fatalf("method = %s, want %s", got.Method, MethodNonLatinMarker)
	}
	if _, ok := got.Claims[1]; !ok {
		t.Errorf("full-width claim number not normalized: %v", got.Claims)
	}
}

func TestParse_MixedScriptFamiliesMergedByOffset(t *testing.T) {
	// Chinese and Korean markers interleaved; segmentation must follow
	// text position, not marker family grouping.
	in := "权利要求1 第一项。 청구항2 두번째 청구항."
	got := Parse(in)

	if got.Method != MethodNonLatinMarker {
		t.Fatalf("method = %s, want %s", got.Method, MethodNonLatinMarker)
	}
	want := map[int]string{
		1: "第一项。",
		2: "두번째 청구항.",
	}
	if diff := cmp.Diff(want, got.Claims); diff != "" {
		t.Errorf("claims mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_LatinPrecedesNonLatin(t *testing.T) {
	in := "1. A lamp.\n請求項2 ランプ。"
	got := Parse(in)

	if got.Method != MethodNumbered {
		t.Fatalf("method = %s, want %s when both marker styles present", got.Method, MethodNumbered)
	}
	if len(got.Claims) != 1 {
		t.Errorf("claims = %v, want the single Latin-numbered segment", got.Claims)
	}
}

func TestExtract_UnnumberedFallback(t *testing.T) {
	in := "A lamp comprising a base and a shade.\n\nWherein the shade is translucent."
	got := Extract(in)

	if got.Method != MethodFallback {
		t.Fatalf("method = %s, want %s", got.Method, MethodFallback)
	}
	if got.Quality != QualityLow || got.Reason != ReasonUnnumbered {
		t.Errorf("quality = %s reason = %s", got.Quality, got.Reason)
	}
	if got.FirstClaim != "A lamp comprising a base and a shade." {
		t.Errorf("first claim = %q", got.FirstClaim)
	}
	if !strings.Contains(got.ClaimSet, "translucent") {
		t.Errorf("claim set must keep the whole cleaned text: %q", got.ClaimSet)
	}
}

func TestExtract_MissingClaim1FallsBackToFirst(t *testing.T) {
	in := "3. A base.\n4. A shade."
	got := Extract(in)

	if got.Method != MethodNumbered {
		t.Fatalf("method = %s", got.Method)
	}
	if got.Quality != QualityLow || got.Reason != ReasonClaim1Fallback {
		t.Errorf("quality = %s reason = %s, want LOW/%s", got.Quality, got.Reason, ReasonClaim1Fallback)
	}
	if got.FirstClaim != "A base." {
		t.Errorf("first claim = %q, want lowest-numbered claim body", got.FirstClaim)
	}
}

func TestStripHeader(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"inline", "Claims (10)\n1. A lamp.", "1. A lamp."},
		{"block", "Claims\n10\n)\n1. A lamp.", "1. A lamp."},
		{"no header", "1. A lamp.", "1. A lamp."},
		{"bare word kept", "Claims are recited below.", "Claims are recited below."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHeader(tt.in); got != tt.want {
				t.Errorf("StripHeader(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripNumberPrefix(t *testing.T) {
	tests := []struct{ in, want string }{
		{"1. A lamp.", "A lamp."},
		{"1) A lamp.", "A lamp."},
		{"1: A lamp.", "A lamp."},
		{"A lamp.", "A lamp."},
	}
	for _, tt := range tests {
		if got := StripNumberPrefix(tt.in); got != tt.want {
			t.Errorf("StripNumberPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtract_Idempotent(t *testing.T) {
	in := "1. A lamp comprising a base.\n\n2. The lamp of claim 1."
	first := Extract(in)
	second := Extract(in)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("extraction not deterministic (-first +second):\n%s", diff)
	}
}

func TestDetectScripts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		hint string
	}{
		{"ascii", "A lamp comprising a base.", "ascii_en_like"},
		{"japanese", "請求項1 ランプ。", "ja_like"},
		{"korean", "청구항1 램프.", "ko_like"},
		{"chinese", "权利要求1 一种灯。", "cjk_like"},
		{"accented", "réclamation", "nonascii_other"},
		{"empty", "", "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectScripts(tt.in).LanguageHint(); got != tt.hint {
				t.Errorf("hint = %q, want %q", got, tt.hint)
			}
		})
	}
}
