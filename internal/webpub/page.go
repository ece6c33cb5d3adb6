package webpub

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	wsRe      = regexp.MustCompile(`[ \t]+`)
	multiNLRe = regexp.MustCompile(`\n{3,}`)
)

// consentIndicators are title/heading phrases used by interstitial
// pages that still return HTTP 200.
var consentIndicators = []string{
	"before you continue",
	"consent",
	"unusual traffic",
	"automated queries",
	"verify you are a human",
	"captcha",
	"robot",
}

// looksLikeConsentOrRobot detects consent/robot interstitials disguised
// as success responses: indicator phrases in the title or first h1, or
// automated-traffic markers in the leading body sample.
func looksLikeConsentOrRobot(doc *html.Node, rawHTML string) bool {
	blob := strings.ToLower(strings.TrimSpace(nodeText(findFirst(doc, "title")))) + " " +
		strings.ToLower(strings.TrimSpace(nodeText(findFirst(doc, "h1"))))
	for _, k := range consentIndicators {
		if strings.Contains(blob, k) {
			return true
		}
	}

	sample := strings.ToLower(rawHTML)
	if len(sample) > 8000 {
		sample = sample[:8000]
	}
	if strings.Contains(sample, "captcha") || strings.Contains(sample, "unusual traffic") {
		return true
	}
	if strings.Contains(sample, "consent") && strings.Contains(sample, "google") {
		return true
	}
	return false
}

// extractClaimsText locates the claims region by structural marker and
// returns its text with markup stripped and whitespace collapsed.
// Lookup order: section[itemprop=claims], div[itemprop=claims],
// section with "claims" in its class list.
func extractClaimsText(doc *html.Node) string {
	node := findByAttr(doc, "section", "itemprop", "claims")
	if node == nil {
		node = findByAttr(doc, "div", "itemprop", "claims")
	}
	if node == nil {
		node = findByClassContains(doc, "section", "claims")
	}
	if node == nil {
		return ""
	}
	return normalizeText(nodeText(node))
}

// pageLang returns the lang attribute of the html element, lowercased.
func pageLang(doc *html.Node) string {
	node := findFirst(doc, "html")
	if node == nil {
		return ""
	}
	for _, a := range node.Attr {
		if a.Key == "lang" {
			return strings.ToLower(strings.TrimSpace(a.Val))
		}
	}
	return ""
}

// normalizeText collapses runs of spaces/tabs per line and runs of
// blank lines down to one.
func normalizeText(t string) string {
	t = strings.ReplaceAll(t, "\r\n", "\n")
	lines := strings.Split(t, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(wsRe.ReplaceAllString(line, " "))
	}
	t = strings.Join(lines, "\n")
	t = multiNLRe.ReplaceAllString(t, "\n\n")
	return strings.TrimSpace(t)
}

// nodeText extracts text nodes under n, newline-separated, skipping
// script/style subtrees.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

func findFirst(n *html.Node, tag string) *html.Node {
	return find(n, func(e *html.Node) bool { return e.Data == tag })
}

func findByAttr(n *html.Node, tag, key, val string) *html.Node {
	return find(n, func(e *html.Node) bool {
		if e.Data != tag {
			return false
		}
		for _, a := range e.Attr {
			if a.Key == key && strings.EqualFold(a.Val, val) {
				return true
			}
		}
		return false
	})
}

func findByClassContains(n *html.Node, tag, substr string) *html.Node {
	return find(n, func(e *html.Node) bool {
		if e.Data != tag {
			return false
		}
		for _, a := range e.Attr {
			if a.Key == "class" && strings.Contains(strings.ToLower(a.Val), substr) {
				return true
			}
		}
		return false
	})
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}
