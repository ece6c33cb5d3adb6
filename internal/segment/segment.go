// Package segment splits raw claims text into a number-indexed claim
// map using a cascade of detection strategies: explicit Latin
// numbering, non-Latin claim markers (Japanese, Chinese, Korean), and
// an unnumbered-paragraph fallback. The first strategy producing a
// non-empty result wins.
package segment

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Detection methods, in cascade order.
const (
	MethodNumbered       = "NUMBERED"
	MethodNonLatinMarker = "NON_LATIN_MARKER"
	MethodFallback       = "UNNUMBERED_FALLBACK"
)

// Extraction quality levels and downgrade reasons.
const (
	QualityHigh = "HIGH"
	QualityLow  = "LOW"

	ReasonClaim1Fallback = "CLAIM1_NOT_FOUND_FALLBACK_TO_FIRST"
	ReasonEmptyClaimSet  = "CLAIMSET_EMPTY_AFTER_PARSE"
	ReasonUnnumbered     = "UNNUMBERED_FALLBACK"
)

var (
	wsRe      = regexp.MustCompile(`[ \t]+`)
	multiNLRe = regexp.MustCompile(`\n{3,}`)

	// Header noise above the claims body, e.g. "Claims (10)" either on
	// one line or spread across several.
	headerBlockRe  = regexp.MustCompile(`(?is)^\s*claims?\s*(\(\s*\d+\s*\))?\s*\n+\s*(\d+\s*\n+\s*)?\)\s*\n+`)
	headerInlineRe = regexp.MustCompile(`(?is)^\s*claims?\s*\(\s*\d+\s*\)\s*`)

	// Line-anchored Latin claim starts: "1. ", "2) ", "10: ".
	latinStartRe  = regexp.MustCompile(`(?m)^\s*(\d{1,4})\s*[\.):]\s+`)
	latinPrefixRe = regexp.MustCompile(`^\s*\d{1,4}\s*[\.):]\s+`)
	claim1Re      = regexp.MustCompile(`^\s*1\s*[\.):]\s*`)

	// Non-Latin claim markers; each may carry full-width digits.
	jpStartRe     = regexp.MustCompile(`請求項\s*([0-9０-９]+)`)
	cnStartRe     = regexp.MustCompile(`(?:权利要求|權利要求)\s*([0-9０-９]+)`)
	krStartRe     = regexp.MustCompile(`청구항\s*([0-9０-９]+)`)
	markerStripRe = regexp.MustCompile(`^(請求項|权利要求|權利要求|청구항)\s*[0-9０-９]+\s*`)
)

// Parsed is the result of segmenting claims text by claim number.
// Claims keys are unique; the first occurrence of a number wins.
type Parsed struct {
	Method  string
	Claims  map[int]string
	Cleaned string
}

// Extraction carries the canonical first claim and ordered claim set
// together with quality metadata.
type Extraction struct {
	FirstClaim string
	ClaimSet   string
	Count      int
	Method     string
	Quality    string
	Reason     string
}

// Normalize collapses runs of spaces/tabs and runs of blank lines.
func Normalize(t string) string {
	t = strings.TrimSpace(strings.ReplaceAll(t, "\r\n", "\n"))
	t = wsRe.ReplaceAllString(t, " ")
	t = multiNLRe.ReplaceAllString(t, "\n\n")
	return strings.TrimSpace(t)
}

// StripHeader removes a leading "Claims (N)" header in either block or
// inline form.
func StripHeader(raw string) string {
	txt := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if stripped := headerBlockRe.ReplaceAllString(txt, ""); stripped != txt {
		return strings.TrimSpace(stripped)
	}
	return strings.TrimSpace(headerInlineRe.ReplaceAllString(txt, ""))
}

// StripNumberPrefix removes a leading "1."/"1)"/"1:" marker from a
// claim body.
func StripNumberPrefix(s string) string {
	return strings.TrimSpace(claim1Re.ReplaceAllString(s, ""))
}

// Parse runs the strategy cascade over raw claims text.
func Parse(raw string) Parsed {
	txt := StripHeader(raw)

	if claims := parseLatin(txt); len(claims) > 0 {
		return Parsed{Method: MethodNumbered, Claims: claims, Cleaned: Normalize(txt)}
	}
	if claims := parseNonLatin(txt); len(claims) > 0 {
		return Parsed{Method: MethodNonLatinMarker, Claims: claims, Cleaned: Normalize(txt)}
	}
	return Parsed{Method: MethodFallback, Claims: map[int]string{}, Cleaned: Normalize(txt)}
}

// parseLatin segments by line-anchored numeric markers. Each claim
// body spans to the next marker or end of text.
func parseLatin(txt string) map[int]string {
	matches := latinStartRe.FindAllStringSubmatchIndex(txt, -1)
	if len(matches) == 0 {
		return nil
	}

	claims := make(map[int]string)
	for i, m := range matches {
		no, err := strconv.Atoi(txt[m[2]:m[3]])
		if err != nil {
			continue
		}
		end := len(txt)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		seg := strings.TrimSpace(txt[m[0]:end])
		seg = Normalize(strings.TrimSpace(latinPrefixRe.ReplaceAllString(seg, "")))
		if _, seen := claims[no]; !seen && seg != "" {
			claims[no] = seg
		}
	}
	return claims
}

type marker struct {
	no  int
	pos int
}

// parseNonLatin scans all three marker families across the whole text
// and merges their matches sorted by character offset, so mixed-script
// documents segment by position rather than per family.
func parseNonLatin(txt string) map[int]string {
	var markers []marker
	for _, re := range []*regexp.Regexp{jpStartRe, cnStartRe, krStartRe} {
		for _, m := range re.FindAllStringSubmatchIndex(txt, -1) {
			no, ok := parseClaimNumber(txt[m[2]:m[3]])
			if ok {
				markers = append(markers, marker{no: no, pos: m[0]})
			}
		}
	}
	if len(markers) == 0 {
		return nil
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].pos < markers[j].pos })

	claims := make(map[int]string)
	for i, mk := range markers {
		end := len(txt)
		if i+1 < len(markers) {
			end = markers[i+1].pos
		}
		seg := strings.TrimSpace(txt[mk.pos:end])
		seg = Normalize(strings.TrimSpace(markerStripRe.ReplaceAllString(seg, "")))
		if _, seen := claims[mk.no]; !seen && seg != "" {
			claims[mk.no] = seg
		}
	}
	return claims
}

// parseClaimNumber converts a digit run to an int, translating
// full-width digits first.
func parseClaimNumber(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '０' && r <= '９' {
			r = '0' + (r - '０')
		}
		if r < '0' || r > '9' {
			return 0, false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// Extract produces the canonical first claim and claim set. The first
// claim is always scrubbed of a leading "1."-style prefix; the claim
// set joins claims in ascending numeric order with a blank line.
// Quality is HIGH only when a numbered or marker strategy yielded both
// a non-empty first claim and a non-empty set.
func Extract(raw string) Extraction {
	parsed := Parse(raw)
	out := Extraction{Method: parsed.Method, Quality: QualityHigh, Count: len(parsed.Claims)}

	if parsed.Method != MethodFallback && len(parsed.Claims) > 0 {
		nos := make([]int, 0, len(parsed.Claims))
		for no := range parsed.Claims {
			nos = append(nos, no)
		}
		sort.Ints(nos)

		parts := make([]string, 0, len(nos))
		for _, no := range nos {
			if body := parsed.Claims[no]; body != "" {
				parts = append(parts, body)
			}
		}
		out.ClaimSet = Normalize(strings.Join(parts, "\n\n"))

		first := StripNumberPrefix(Normalize(parsed.Claims[1]))
		if first == "" {
			out.Quality = QualityLow
			out.Reason = ReasonClaim1Fallback
			first = StripNumberPrefix(Normalize(parsed.Claims[nos[0]]))
		}
		out.FirstClaim = first

		if out.ClaimSet == "" {
			out.Quality = QualityLow
			if out.Reason == "" {
				out.Reason = ReasonEmptyClaimSet
			}
			out.ClaimSet = parsed.Cleaned
		}
		return out
	}

	out.Quality = QualityLow
	out.Reason = ReasonUnnumbered
	out.ClaimSet = parsed.Cleaned
	for _, para := range strings.Split(out.ClaimSet, "\n\n") {
		if p := strings.TrimSpace(para); p != "" {
			out.FirstClaim = StripNumberPrefix(Normalize(p))
			break
		}
	}
	return out
}
