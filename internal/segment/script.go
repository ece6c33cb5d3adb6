package segment

import "regexp"

var (
	nonASCIIRe = regexp.MustCompile(`[^\x00-\x7F]`)
	cjkRe      = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`) // Han ideographs
	kanaRe     = regexp.MustCompile(`[\x{3040}-\x{30ff}]`) // Hiragana/Katakana
	hangulRe   = regexp.MustCompile(`[\x{ac00}-\x{d7af}]`) // Hangul syllables
)

// ScriptFlags is a content-based script observation over claims text.
// It is a QC signal, not a legal language determination.
type ScriptFlags struct {
	HasNonASCII bool `json:"has_nonascii"`
	HasCJK      bool `json:"has_cjk"`
	HasKana     bool `json:"has_kana"`
	HasHangul   bool `json:"has_hangul"`
	IsASCIIOnly bool `json:"is_ascii_only"`
}

// DetectScripts scans claims text for script families.
func DetectScripts(text string) ScriptFlags {
	nonASCII := nonASCIIRe.MatchString(text)
	return ScriptFlags{
		HasNonASCII: nonASCII,
		HasCJK:      cjkRe.MatchString(text),
		HasKana:     kanaRe.MatchString(text),
		HasHangul:   hangulRe.MatchString(text),
		IsASCIIOnly: text != "" && !nonASCII,
	}
}

// LanguageHint derives a coarse dashboard label from script flags.
// Hangul and Kana are checked before generic Han ideographs because
// Japanese and Korean text commonly mixes them in.
func (f ScriptFlags) LanguageHint() string {
	switch {
	case f.HasHangul:
		return "ko_like"
	case f.HasKana:
		return "ja_like"
	case f.HasCJK:
		return "cjk_like"
	case f.HasNonASCII:
		return "nonascii_other"
	case f.IsASCIIOnly:
		return "ascii_en_like"
	}
	return "empty"
}
