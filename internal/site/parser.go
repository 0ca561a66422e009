// Package site derives search entries from rendered documentation pages,
// either read from a built site directory or crawled from a served one.
package site

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tuenti/mkdocs-elasticsearch/internal/config"
	"github.com/tuenti/mkdocs-elasticsearch/pkg/models"
)

// Parser turns one rendered page into a page entry followed by one entry
// per heading that carries an id.
type Parser struct {
	// TextFormat is config.TextPlain (default) or config.TextMarkdown.
	TextFormat string
}

type section struct {
	entry models.SearchEntry
	nodes []*html.Node
}

// Parse reads the page served at location.
func (p Parser) Parse(location string, r io.Reader) ([]models.SearchEntry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", location, err)
	}

	page := &section{entry: models.SearchEntry{Location: location, Title: pageTitle(doc)}}
	var sections []*section
	var current *section

	// Headings may sit at any depth, e.g. inside the section wrappers of the
	// readthedocs theme. Elements holding a heading are opened up so that
	// each section receives the nodes between its heading and the next one.
	var assign func(n *html.Node)
	assign = func(n *html.Node) {
		if id := headingID(n); id != "" {
			current = &section{entry: models.SearchEntry{
				Location: location + "#" + id,
				Title:    plainText(n),
			}}
			sections = append(sections, current)
			return
		}
		if find(n, func(m *html.Node) bool { return headingID(m) != "" }) != nil {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				assign(c)
			}
			return
		}
		if current != nil {
			current.nodes = append(current.nodes, n)
		}
	}

	root := contentRoot(doc)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		page.nodes = append(page.nodes, c)
		assign(c)
	}

	entries := make([]models.SearchEntry, 0, len(sections)+1)
	for _, s := range append([]*section{page}, sections...) {
		text, err := p.render(s.nodes)
		if err != nil {
			return nil, fmt.Errorf("failed to render %q: %w", s.entry.Location, err)
		}
		s.entry.Text = text
		entries = append(entries, s.entry)
	}
	return entries, nil
}

func (p Parser) render(nodes []*html.Node) (string, error) {
	if p.TextFormat != config.TextMarkdown {
		var b strings.Builder
		for _, n := range nodes {
			collectText(&b, n)
		}
		return strings.Join(strings.Fields(b.String()), " "), nil
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	if buf.Len() == 0 {
		return "", nil
	}
	markdown, err := htmltomarkdown.ConvertString(buf.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(markdown), nil
}

// pageTitle prefers <title> and falls back to the first <h1>.
func pageTitle(doc *html.Node) string {
	if n := find(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title }); n != nil {
		if title := plainText(n); title != "" {
			return title
		}
	}
	if n := find(doc, func(n *html.Node) bool { return n.DataAtom == atom.H1 }); n != nil {
		return plainText(n)
	}
	return ""
}

// contentRoot locates the element holding the page body, skipping theme
// navigation where the markup allows it.
func contentRoot(doc *html.Node) *html.Node {
	matchers := []func(*html.Node) bool{
		func(n *html.Node) bool { return n.DataAtom == atom.Div && attr(n, "role") == "main" },
		func(n *html.Node) bool { return n.DataAtom == atom.Main },
		func(n *html.Node) bool { return n.DataAtom == atom.Article },
		func(n *html.Node) bool { return n.DataAtom == atom.Body },
	}
	for _, match := range matchers {
		if n := find(doc, match); n != nil {
			return n
		}
	}
	return doc
}

func headingID(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return attr(n, "id")
	}
	return ""
}

func plainText(n *html.Node) string {
	var b strings.Builder
	collectText(&b, n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// collectText writes the visible text below n, separating block elements
// with spaces. Scripts, styles and mkdocs permalink anchors are skipped.
func collectText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch {
		case n.DataAtom == atom.Script, n.DataAtom == atom.Style:
			return
		case n.DataAtom == atom.A && hasClass(n, "headerlink"):
			return
		}
	}
	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.Pre: true, atom.Blockquote: true, atom.Table: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Dl: true, atom.Dt: true, atom.Dd: true, atom.Section: true, atom.Article: true,
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

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// Location maps a page path relative to the site root to the URL mkdocs
// records for it: directory URLs keep a trailing slash and the root is "".
func Location(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	switch {
	case rel == "index.html":
		return ""
	case strings.HasSuffix(rel, "/index.html"):
		return strings.TrimSuffix(rel, "index.html")
	}
	return rel
}

// Excluded reports whether rel starts with one of the prefixes.
func Excluded(rel string, prefixes []string) bool {
	rel = strings.TrimPrefix(rel, "/")
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(rel, prefix) {
			return true
		}
	}
	return false
}
