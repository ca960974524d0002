// Package dom exposes a read-only view over a parsed HTML document.
//
// The detector and extractor only ever query through Document and Node. The
// one write operation, Prune, works on a detached clone so the source tree is
// left untouched.
package dom

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Document is the page-level view.
type Document interface {
	// QueryAll returns every element matching selector in document order.
	// Invalid selectors match nothing.
	QueryAll(selector string) []Node
	// Title is the trimmed <title> text.
	Title() string
	// Language is the trimmed lang attribute of the root element.
	Language() string
	// BodyText is the untrimmed text content of <body>, empty when absent.
	BodyText() string
	// URL is the address the document was loaded from, passed through verbatim.
	URL() string
}

// Node is a single element.
type Node interface {
	Text() string
	RawText() string
	Tag() string
	HeadingLevel() int
	Attr(name string) (string, bool)
	Classes() []string
	Matches(selector string) bool
	// Parent returns the parent element, or nil at the root.
	Parent() Node
	QueryAll(selector string) []Node
	// Prune returns a detached deep copy with descendants matching any selector removed.
	Prune(selectors ...string) Node
}

// Len counts characters (runes), the unit every length threshold uses.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// First returns the first element matching selector, or nil.
func First(doc Document, selector string) Node {
	if strings.TrimSpace(selector) == "" {
		return nil
	}
	nodes := doc.QueryAll(selector)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// FirstText walks selectors in order and returns the trimmed text of the first
// element of the first selector whose text is longer than minChars.
func FirstText(doc Document, selectors []string, minChars int) string {
	for _, sel := range selectors {
		if n := First(doc, sel); n != nil {
			if text := n.Text(); Len(text) > minChars {
				return text
			}
		}
	}
	return ""
}

type document struct {
	doc *goquery.Document
	url string
}

// NewDocument parses HTML from r.
func NewDocument(r io.Reader, pageURL string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &document{doc: doc, url: pageURL}, nil
}

// FromString parses an HTML string.
func FromString(html, pageURL string) (Document, error) {
	return NewDocument(strings.NewReader(html), pageURL)
}

// FromGoquery wraps an already parsed goquery document.
func FromGoquery(doc *goquery.Document, pageURL string) Document {
	return &document{doc: doc, url: pageURL}
}

func (d *document) QueryAll(selector string) []Node {
	return collect(d.doc.Find(selector))
}

func (d *document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

func (d *document) Language() string {
	lang, _ := d.doc.Find("html").First().Attr("lang")
	return strings.TrimSpace(lang)
}

func (d *document) BodyText() string {
	body := d.doc.Find("body").First()
	if body.Length() == 0 {
		return ""
	}
	return body.Text()
}

func (d *document) URL() string { return d.url }

type node struct {
	sel *goquery.Selection
}

func collect(sel *goquery.Selection) []Node {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	out := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, node{sel: s})
	})
	return out
}

func (n node) Text() string    { return strings.TrimSpace(n.sel.Text()) }
func (n node) RawText() string { return n.sel.Text() }
func (n node) Tag() string     { return strings.ToLower(goquery.NodeName(n.sel)) }

func (n node) HeadingLevel() int {
	tag := n.Tag()
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func (n node) Attr(name string) (string, bool) { return n.sel.Attr(name) }

func (n node) Classes() []string {
	class, _ := n.sel.Attr("class")
	return strings.Fields(class)
}

func (n node) Matches(selector string) bool { return n.sel.Is(selector) }

func (n node) Parent() Node {
	p := n.sel.Parent()
	if p.Length() == 0 {
		return nil
	}
	return node{sel: p}
}

func (n node) QueryAll(selector string) []Node { return collect(n.sel.Find(selector)) }

func (n node) Prune(selectors ...string) Node {
	clone := n.sel.Clone()
	for _, s := range selectors {
		if strings.TrimSpace(s) == "" {
			continue
		}
		clone.Find(s).Remove()
	}
	return node{sel: clone}
}
