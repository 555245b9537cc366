// Package content turns feed entry HTML into the markdown body that is
// published to the destination, and recognizes bodies it produced earlier.
package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Translator converts an HTML (or plain text) fragment to markdown.
type Translator interface {
	Translate(html string) (string, error)
}

// Normalizer builds post bodies from raw feed content.
type Normalizer struct {
	translator Translator
}

// NewNormalizer creates a Normalizer backed by translator.
func NewNormalizer(translator Translator) *Normalizer {
	return &Normalizer{translator: translator}
}

// Normalize converts raw to markdown, links back to sourceURL when the body
// does not already mention it, and appends the GUID provenance marker.
func (n *Normalizer) Normalize(raw, sourceURL, guid string) (string, error) {
	markdown, err := n.translator.Translate(raw)
	if err != nil {
		return "", fmt.Errorf("translate html: %w", err)
	}
	markdown = AppendSourceURL(markdown, sourceURL)
	return AppendGUID(markdown, guid), nil
}

// AppendSourceURL adds a "Continue Reading" link to url unless url already
// appears in markdown.
func AppendSourceURL(markdown, url string) string {
	if url == "" || strings.Contains(markdown, url) {
		return markdown
	}
	return strings.TrimRight(markdown, " \t\r\n") + "\n\n" + "[Continue Reading…](" + url + ")"
}

// AppendGUID adds the provenance marker for guid to the end of markdown.
func AppendGUID(markdown, guid string) string {
	return strings.TrimRight(markdown, " \t\r\n") + "\n\n" + `<!-- GUID: "` + SanitizeGUID(guid) + `" -->`
}

// SanitizeGUID removes '"' and '>' so the value cannot close the marker's
// quoted value or the HTML comment.
func SanitizeGUID(guid string) string {
	return strings.NewReplacer(`"`, "", ">", "").Replace(guid)
}

// MarkerGUID returns the GUID as it appears in the provenance marker and
// whether FindGUID can read it back. GUIDs that sanitize to nothing or span
// lines cannot be recovered.
func MarkerGUID(guid string) (string, bool) {
	sanitized := SanitizeGUID(guid)
	if strings.TrimSpace(sanitized) == "" || strings.ContainsAny(sanitized, "\r\n") {
		return sanitized, false
	}
	return sanitized, true
}

var guidPattern = regexp.MustCompile(`(?m)^<!-- GUID: "([^">]+)" -->`)

// FindGUID returns the GUID from the first provenance marker in body and the
// number of markers found. A body without a marker returns ("", 0).
func FindGUID(body string) (string, int) {
	matches := guidPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return "", 0
	}
	return matches[0][1], len(matches)
}

// PlainTitle strips markup and entities from a feed title and collapses
// whitespace. Titles without markup are returned trimmed.
func PlainTitle(title string) string {
	if !strings.ContainsAny(title, "<&") {
		return strings.TrimSpace(title)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(title))
	if err != nil {
		return strings.TrimSpace(title)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
