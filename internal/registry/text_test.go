package registry

import (
	"strings"
	"testing"
)

func TestClaimsText(t *testing.T) {
	doc := `<?xml version="1.0"?>
<ops:world-patent-data xmlns:ops="http://ops.epo.org">
  <claims lang="EN">
    <claim num="0002"><claim-text>2. The lamp of claim 1.</claim-text></claim>
    <claim num="0001"><claim-text>A lamp comprising   a base.</claim-text></claim>
  </claims>
</ops:world-patent-data>`

	got := ClaimsText([]byte(doc))
	want := "1. A lamp comprising a base.\n2. The lamp of claim 1."
	if got != want {
		t.Errorf("ClaimsText = %q, want %q", got, want)
	}
}

func TestClaimsText_NestedTextAndDuplicates(t *testing.T) {
	doc := `<claims>
<claim num="1"><claim-text>A device<claim-text>wherein X.</claim-text></claim-text></claim>
<claim num="1"><claim-text>duplicate ignored</claim-text></claim>
</claims>`

	got := ClaimsText([]byte(doc))
	if !strings.Contains(got, "A device wherein X.") {
		t.Errorf("nested text not flattened: %q", got)
	}
	if strings.Contains(got, "duplicate") {
		t.Errorf("duplicate claim number must keep first occurrence: %q", got)
	}
}

func TestClaimsText_Malformed(t *testing.T) {
	if got := ClaimsText([]byte("<claims><claim>")); got != "" {
		t.Errorf("malformed input must yield empty text, got %q", got)
	}
}

func TestClaimsText_UnnumberedFallsBackToDocumentOrder(t *testing.T) {
	doc := `<claims><claim><claim-text>first body</claim-text></claim><claim><claim-text>second body</claim-text></claim></claims>`

	got := ClaimsText([]byte(doc))
	want := "1. first body\n2. second body"
	if got != want {
		t.Errorf("ClaimsText = %q, want %q", got, want)
	}
}
