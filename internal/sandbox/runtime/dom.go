package runtime

import (
	"html"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/microcosm-cc/bluemonday"
	nethtml "golang.org/x/net/html"
)

// Document is a read-only view of the resolved page HTML. The tree is
// parsed lazily, once, and shared by CSS and XPath queries.
type Document struct {
	raw string

	once sync.Once
	root *nethtml.Node
	doc  *goquery.Document
	err  error
}

// Element is the inert form of a matched node handed to templates
type Element struct {
	Tag        string            `json:"tag"`
	Text       string            `json:"text"`
	HTML       string            `json:"html"`
	Attributes map[string]string `json:"attributes"`
}

var textPolicy = bluemonday.StrictPolicy()

func NewDocument(raw string) *Document {
	return &Document{raw: raw}
}

func (d *Document) parse() error {
	d.once.Do(func() {
		d.root, d.err = htmlquery.Parse(strings.NewReader(d.raw))
		if d.err == nil {
			d.doc = goquery.NewDocumentFromNode(d.root)
		}
	})
	return d.err
}

// Title returns the trimmed <title> text
func (d *Document) Title() string {
	if d.raw == "" || d.parse() != nil {
		return ""
	}
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Text returns the visible text with all markup stripped and whitespace
// collapsed
func (d *Document) Text() string {
	if d.raw == "" {
		return ""
	}
	stripped := html.UnescapeString(textPolicy.Sanitize(d.raw))
	return strings.Join(strings.Fields(stripped), " ")
}

// Query returns the elements matching a CSS selector
func (d *Document) Query(selector string) ([]Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}
	if d.raw == "" {
		return []Element{}, nil
	}
	if err := d.parse(); err != nil {
		return nil, err
	}

	out := []Element{}
	d.doc.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
		inner, _ := s.Html()
		out = append(out, newElement(s.Get(0), s.Text(), inner))
	})
	return out, nil
}

// XPath returns the nodes matching an XPath expression
func (d *Document) XPath(expr string) ([]Element, error) {
	if d.raw == "" {
		if _, err := htmlquery.QueryAll(&nethtml.Node{Type: nethtml.DocumentNode}, expr); err != nil {
			return nil, err
		}
		return []Element{}, nil
	}
	if err := d.parse(); err != nil {
		return nil, err
	}

	nodes, err := htmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, newElement(n, htmlquery.InnerText(n), htmlquery.OutputHTML(n, false)))
	}
	return out, nil
}

func newElement(n *nethtml.Node, text, inner string) Element {
	el := Element{
		Text:       strings.TrimSpace(text),
		HTML:       inner,
		Attributes: map[string]string{},
	}
	if n == nil {
		return el
	}
	el.Tag = strings.ToLower(n.Data)
	for _, a := range n.Attr {
		el.Attributes[a.Key] = a.Val
	}
	return el
}
