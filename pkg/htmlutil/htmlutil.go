package htmlutil

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates the text nodes under node in document order.
func GetText(node *html.Node) string {
	if node == nil {
		return ""
	}
	var sb strings.Builder
	stack := []*html.Node{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			continue
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return sb.String()
}

func dropInvisible(r rune) rune {
	if unicode.IsPrint(r) || unicode.IsSpace(r) {
		return r
	}
	return -1
}

// CleanText drops invisible characters and collapses all whitespace,
// leading and trailing whitespace included.
func CleanText(s string) string {
	return strings.Join(strings.Fields(strings.Map(dropInvisible, s)), " ")
}

type Anchor struct {
	Name string
	Url  *url.URL
}

// GetAnchors resolves the href of every anchor in sel against base (when
// base is not nil). Anchors with a missing, blank or unparsable href are
// left out.
func GetAnchors(base *url.URL, sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	sel.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		link, err := url.Parse(href)
		if err != nil {
			return
		}
		if base != nil {
			link = base.ResolveReference(link)
		}
		anchors = append(anchors, Anchor{
			Name: CleanText(GetText(a.Get(0))),
			Url:  link,
		})
	})
	return anchors
}
