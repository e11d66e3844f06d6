package discovery

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// PageParser extracts project links from one search result page. Returned links
// are absolute, resolved against base.
type PageParser interface {
	Parse(r io.Reader, base *url.URL) ([]string, error)
}

// HTMLParser extracts result-title anchors (p.title a:first-child) from the
// github.com search page.
type HTMLParser struct{}

func (HTMLParser) Parse(r io.Reader, base *url.URL) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse search HTML: %w", err)
	}

	var links []string
	var walk func(n *html.Node, inTitle bool)
	walk = func(n *html.Node, inTitle bool) {
		if n.Type == html.ElementNode {
			if n.Data == "p" && hasClass(n, "title") {
				inTitle = true
			}
			if inTitle && n.Data == "a" && isFirstElementChild(n) {
				if href := getAttr(n, "href"); href != "" {
					links = append(links, resolveURL(base, href))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inTitle)
		}
	}
	walk(doc, false)
	return links, nil
}

// JSONParser reads the repository search API (items[].html_url).
type JSONParser struct{}

type searchResponse struct {
	Items []struct {
		HTMLURL string `json:"html_url"`
	} `json:"items"`
}

func (JSONParser) Parse(r io.Reader, base *url.URL) ([]string, error) {
	var resp searchResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode search JSON: %w", err)
	}
	links := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.HTMLURL != "" {
			links = append(links, resolveURL(base, item.HTMLURL))
		}
	}
	return links, nil
}

func resolveURL(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	rel, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(rel).String()
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(getAttr(n, "class")), class)
}

func isFirstElementChild(n *html.Node) bool {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return false
		}
	}
	return true
}
