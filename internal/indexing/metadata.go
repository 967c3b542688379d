package indexing

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var markdownLinkRegex = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)

// blockElements get a separating space so adjacent paragraphs don't fuse
const blockElements = "address,article,aside,blockquote,br,dd,div,dl,dt,figcaption,footer,h1,h2,h3,h4,h5,h6,header,hr,li,main,ol,p,pre,section,table,td,th,tr,ul"

// StripMarkdownLinks removes markdown link syntax, keeping only the text
// Example: "[Text](url)" -> "Text"
func StripMarkdownLinks(text string) string {
	return markdownLinkRegex.ReplaceAllString(text, "$1")
}

// HTMLToText reduces an HTML fragment to its visible text. Input without
// markup is returned unchanged.
func HTMLToText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + fragment + "</body>"))
	if err != nil {
		return fragment
	}
	doc.Find("script,style,noscript,template").Remove()
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
		s.BeforeHtml(" ")
	})
	return doc.Find("body").Text()
}

// CleanText converts markup to plain text and collapses whitespace
func CleanText(text string) string {
	text = HTMLToText(text)
	text = StripMarkdownLinks(text)
	return strings.Join(strings.Fields(text), " ")
}

// Truncate shortens text to at most max characters, cutting at the last
// word boundary and marking the cut with an ellipsis.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	cut := runes[:max-1]
	for i := len(cut) - 1; i > 0; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	out := strings.TrimRightFunc(string(cut), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(",;:.-", r)
	})
	return out + "…"
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
}

// ParseDate parses the date formats used by the content files. The result
// keeps the offset written in the input; date-only values are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// IsDateOnly reports whether s carries no time of day.
func IsDateOnly(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) <= len("2006-01-02") && !strings.ContainsRune(s, 'T')
}

// QuarterOf returns "Q1".."Q4" for a date, or "" if it can't be parsed.
func QuarterOf(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Q%d", (int(t.Month())-1)/3+1)
}

// NormalizeQuarter accepts "Q2", "q2", "2" or "Q2 2024" and returns "Q2".
// Anything else yields "".
func NormalizeQuarter(q string) string {
	q = strings.ToUpper(strings.TrimSpace(q))
	q = strings.TrimPrefix(q, "Q")
	if q == "" {
		return ""
	}
	if c := q[0]; c >= '1' && c <= '4' && (len(q) == 1 || !unicode.IsDigit(rune(q[1]))) {
		return "Q" + string(c)
	}
	return ""
}

// NormalizeTags trims, de-duplicates and sorts tags
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// CreateAnchor creates a URL anchor from text
// Example: "Common Area Maintenance" -> "common-area-maintenance"
func CreateAnchor(text string) string {
	// Convert to lowercase and replace spaces with hyphens
	anchor := strings.ToLower(strings.TrimSpace(text))
	anchor = strings.ReplaceAll(anchor, " ", "-")
	// Remove special characters except hyphens
	anchor = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, anchor)
	return anchor
}

// DeepLink joins a page and an anchor: "newsletters.html#newsletter-1"
func DeepLink(baseURL, page, anchor string) string {
	link := page
	if baseURL != "" {
		link = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(page, "/")
	}
	if anchor == "" {
		return link
	}
	return link + "#" + anchor
}
