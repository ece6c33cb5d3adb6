package registry

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// Structure gate reason codes.
const (
	ReasonOK         = "OK"
	ReasonOKNoNum    = "OK_NO_NUM"
	ReasonParseFail  = "XML_PARSE_FAIL"
	ReasonNoClaimTag = "NO_CLAIM_TAG"
)

// Structure is the result of the minimal claims-document shape check.
type Structure struct {
	Valid      bool
	ClaimCount int
	Reason     string
}

// ValidateStructure inspects a structured claims payload for the
// minimal shape of a claims document. It fails closed on malformed
// input. A document whose explicitly numbered claims never include
// number 1 stays valid but is flagged OK_NO_NUM for quality scoring.
func ValidateStructure(doc []byte) Structure {
	decoder := xml.NewDecoder(bytes.NewReader(doc))
	// Registry payloads are namespaced and may declare non-UTF8 charsets.
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	claimCount := 0
	var nums []int

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Structure{Valid: false, Reason: ReasonParseFail}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !strings.EqualFold(start.Name.Local, "claim") {
			continue
		}
		claimCount++
		for _, attr := range start.Attr {
			if strings.EqualFold(attr.Name.Local, "num") {
				if n, err := strconv.Atoi(strings.TrimLeft(strings.TrimSpace(attr.Value), "0")); err == nil {
					nums = append(nums, n)
				}
			}
		}
	}

	if claimCount == 0 {
		return Structure{Valid: false, Reason: ReasonNoClaimTag}
	}

	if len(nums) > 0 && !containsOne(nums) {
		return Structure{Valid: true, ClaimCount: claimCount, Reason: ReasonOKNoNum}
	}
	return Structure{Valid: true, ClaimCount: claimCount, Reason: ReasonOK}
}

func containsOne(nums []int) bool {
	for _, n := range nums {
		if n == 1 {
			return true
		}
	}
	return false
}
