package ident

import (
	"fmt"
	"regexp"
	"strings"
)

// Identifier is a canonical publication identifier: a two-letter
// jurisdiction code, an all-numeric serial, and a kind code of one
// letter optionally followed by one digit.
type Identifier struct {
	Country string `json:"country"`
	Serial  string `json:"serial"`
	Kind    string `json:"kind"`
}

var (
	kindRe   = regexp.MustCompile(`([A-Z]\d?)$`)
	dottedRe = regexp.MustCompile(`^([A-Z]{2})\.(\d+)\.([A-Z]\d?)$`)
	// US publication serials are a 4-digit year followed by a sequence
	// number of ambiguous width (historically 6 or 7+ digits).
	usYearSerialRe = regexp.MustCompile(`^(20\d{2})(\d+)$`)
)

// Parse normalizes a free-form publication string into an Identifier.
// Both concatenated ("US2021372574A1") and dotted ("US.2021372574.A1")
// forms are accepted. Parsing is pure and deterministic; a failure means
// the input cannot be processed and the caller should skip it.
func Parse(raw string) (Identifier, error) {
	p := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if p == "" {
		return Identifier{}, fmt.Errorf("empty publication identifier")
	}

	if m := dottedRe.FindStringSubmatch(p); m != nil {
		return Identifier{Country: m[1], Serial: m[2], Kind: m[3]}, nil
	}

	if len(p) < 4 {
		return Identifier{}, fmt.Errorf("publication %q too short", raw)
	}
	cc := p[:2]
	if !isAlpha(cc) {
		return Identifier{}, fmt.Errorf("publication %q has no jurisdiction prefix", raw)
	}
	m := kindRe.FindStringSubmatch(p)
	if m == nil {
		return Identifier{}, fmt.Errorf("publication %q has no kind code", raw)
	}
	kind := m[1]
	serial := p[2 : len(p)-len(kind)]
	if serial == "" || !isDigits(serial) {
		return Identifier{}, fmt.Errorf("publication %q has a non-numeric serial", raw)
	}
	return Identifier{Country: cc, Serial: serial, Kind: kind}, nil
}

// Dotted returns the CC.NUMBER.KIND form used by the registry API.
func (id Identifier) Dotted() string {
	return id.Country + "." + id.Serial + "." + id.Kind
}

// Concat returns the CCNUMBERKIND form used in page slugs.
func (id Identifier) Concat() string {
	return id.Country + id.Serial + id.Kind
}

// IsZero reports whether the identifier is unset.
func (id Identifier) IsZero() bool {
	return id.Country == "" && id.Serial == "" && id.Kind == ""
}

// KindLetter returns the leading letter of the kind code.
func (id Identifier) KindLetter() string {
	if id.Kind == "" {
		return ""
	}
	return id.Kind[:1]
}

// BareKind reports whether the kind code is a single letter with no
// numeric sub-kind (e.g. "A" rather than "A1").
func (id Identifier) BareKind() bool {
	return len(id.Kind) == 1
}

// InsertZeroVariant returns the single-leading-zero serial variant for
// US identifiers whose post-year sequence number is exactly 6 digits
// wide. Serials of any other shape yield no variant.
func (id Identifier) InsertZeroVariant() (Identifier, bool) {
	if id.Country != "US" {
		return Identifier{}, false
	}
	m := usYearSerialRe.FindStringSubmatch(id.Serial)
	if m == nil || len(m[2]) != 6 {
		return Identifier{}, false
	}
	v := id
	v.Serial = m[1] + "0" + m[2]
	return v, true
}

// PadVariants returns alternate encodings for jurisdictions with
// ambiguous serial widths: the post-year sequence number zero-padded to
// widths 7 and 8. The original identifier is never included; variants
// are meant to be appended after it, preserving it as first preference.
func (id Identifier) PadVariants() []Identifier {
	if id.Country != "US" {
		return nil
	}
	m := usYearSerialRe.FindStringSubmatch(id.Serial)
	if m == nil {
		return nil
	}
	year, seq := m[1], m[2]

	var out []Identifier
	for _, width := range []int{7, 8} {
		if len(seq) >= width {
			continue
		}
		v := id
		v.Serial = year + strings.Repeat("0", width-len(seq)) + seq
		if v.Serial == id.Serial {
			continue
		}
		dup := false
		for _, o := range out {
			if o.Serial == v.Serial {
				dup = true
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return s != ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
