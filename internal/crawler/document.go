package crawler

import (
	"bytes"
	"io"
	"strings"

	"sjsage522/reviewworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Document is a parsed page that can be queried with CSS selectors or XPath
type Document struct {
	URL string
	doc *goquery.Document
}

// NewDocument parses HTML read from r
func NewDocument(url string, r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.NewParsing(url, "HTML parse failed", err)
	}
	return &Document{URL: url, doc: goquery.NewDocumentFromNode(root)}, nil
}

// NewDocumentFromBytes parses an HTML body
func NewDocumentFromBytes(url string, body []byte) (*Document, error) {
	return NewDocument(url, bytes.NewReader(body))
}

// NewDocumentFromString parses an HTML string
func NewDocumentFromString(url, body string) (*Document, error) {
	return NewDocument(url, strings.NewReader(body))
}

// Find returns the CSS selection over the whole document
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Root returns the document node for XPath queries
func (d *Document) Root() *html.Node {
	return d.doc.Nodes[0]
}

// queryAll evaluates expr relative to n; an invalid expression matches nothing.
func queryAll(n *html.Node, expr string) []*html.Node {
	nodes, err := htmlquery.QueryAll(n, expr)
	if err != nil {
		return nil
	}
	return nodes
}
