package elms

import (
	"encoding/json"
	"io"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"elms-extractor/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/purell"
)

// The functions in this file never fail on markup that doesn't match, a
// missing element is an expected outcome and is returned as absent.

// ParseDocument is the only extractor step that can fail.
func ParseDocument(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

func inputValue(doc *goquery.Document, name string) (string, bool) {
	value := strings.TrimSpace(
		doc.Find("input[name=" + name + "]").First().AttrOr("value", ""),
	)
	return value, value != ""
}

// ExtractLoginToken finds the anti-forgery token on the login form.
func ExtractLoginToken(doc *goquery.Document) (string, bool) {
	return inputValue(doc, "logintoken")
}

var moodleConfigRegex = regexp.MustCompile(`(?m)M\.cfg *= *(.+?);`)

// ExtractSesskey finds the session key, first from the hidden input that
// logged-in pages carry and otherwise from the inline M.cfg object.
func ExtractSesskey(doc *goquery.Document) (string, bool) {
	sesskey, ok := inputValue(doc, "sesskey")
	if ok {
		return sesskey, true
	}

	for _, script := range doc.Find("script").Nodes {
		groups := moodleConfigRegex.FindStringSubmatch(htmlutil.GetText(script))
		if len(groups) < 2 {
			continue
		}
		var cfg struct {
			Sesskey string `json:"sesskey"`
		}
		err := json.Unmarshal([]byte(groups[1]), &cfg)
		if err != nil || cfg.Sesskey == "" {
			continue
		}
		return cfg.Sesskey, true
	}

	return "", false
}

// ExtractCourseTitle returns the text of the first h1.
func ExtractCourseTitle(doc *goquery.Document) (string, bool) {
	title := htmlutil.CleanText(doc.Find("h1").First().Text())
	return title, title != ""
}

// ExtractProfileLinks returns the deduplicated, sorted profile links of a
// roster page, resolved against the page url. A user is usually linked
// more than once (name cell and avatar), links that only differ in query
// order or fragment count as the same link.
func ExtractProfileLinks(doc *goquery.Document, base *url.URL) []string {
	anchors := htmlutil.GetAnchors(base, doc.Find("a.d-inline-block.aabtn[href]"))

	seen := map[string]struct{}{}
	links := []string{}
	for _, a := range anchors {
		// NormalizeURL modifies the url it is given
		normalized := *a.Url
		key := purell.NormalizeURL(&normalized, purell.FlagsSafe|purell.FlagSortQuery|purell.FlagRemoveFragment)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		links = append(links, a.Url.String())
	}
	slices.Sort(links)
	return links
}

// ExtractProfile returns the name and email on a profile page, if either
// one is missing the whole record is absent.
func ExtractProfile(doc *goquery.Document) (UserRecord, bool) {
	card := doc.Find("div.card.card-body.card-profile").First()
	if card.Length() == 0 {
		return UserRecord{}, false
	}

	name := htmlutil.CleanText(card.Find("h3").First().Text())
	email := extractEmail(doc)
	if name == "" || email == "" {
		return UserRecord{}, false
	}
	return UserRecord{Name: name, Email: email}, true
}

// extractEmail searches the whole page, the user details sections are
// siblings of the profile card, not children.
func extractEmail(doc *goquery.Document) string {
	nodes := doc.Find("li.contentnode")
	mailto := nodes.Find(`a[href^="mailto:"]`).First()
	if mailto.Length() > 0 {
		return htmlutil.CleanText(mailto.Text())
	}
	return htmlutil.CleanText(nodes.First().Find("a[href]").First().Text())
}
