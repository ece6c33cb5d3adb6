package registry

import (
	"bytes"
	"encoding/xml"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ClaimsText flattens a structured claims payload into plain text, one
// numbered claim per line in ascending order. Claim numbers come from
// the element's num attribute when present, otherwise from document
// order. Best-effort: malformed input yields an empty string.
func ClaimsText(doc []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(doc))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	type numbered struct {
		no   int
		text string
	}
	var claims []numbered
	seen := make(map[int]bool)

	var buf strings.Builder
	depth := 0
	claimNo := 0
	index := 0

	flush := func() {
		text := strings.Join(strings.Fields(buf.String()), " ")
		buf.Reset()
		if text == "" || seen[claimNo] {
			return
		}
		seen[claimNo] = true
		claims = append(claims, numbered{no: claimNo, text: text})
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ""
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if strings.EqualFold(t.Name.Local, "claim") && depth == 0 {
				depth = 1
				index++
				claimNo = index
				for _, attr := range t.Attr {
					if strings.EqualFold(attr.Name.Local, "num") {
						if n, err := strconv.Atoi(strings.TrimLeft(strings.TrimSpace(attr.Value), "0")); err == nil {
							claimNo = n
						}
					}
				}
			} else if depth > 0 {
				depth++
			}
		case xml.EndElement:
			if depth > 0 {
				depth--
				if depth == 0 {
					flush()
				}
			}
		case xml.CharData:
			if depth > 0 {
				buf.Write(t)
				buf.WriteByte(' ')
			}
		}
	}

	sort.Slice(claims, func(i, j int) bool { return claims[i].no < claims[j].no })

	lines := make([]string, 0, len(claims))
	for _, c := range claims {
		prefix := strconv.Itoa(c.no) + ". "
		if strings.HasPrefix(c.text, strconv.Itoa(c.no)+".") || strings.HasPrefix(c.text, strconv.Itoa(c.no)+")") {
			prefix = ""
		}
		lines = append(lines, prefix+c.text)
	}
	return strings.Join(lines, "\n")
}
