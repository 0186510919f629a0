package headless

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// blockKind is how a block of text is laid out.
type blockKind int

const (
	blockText blockKind = iota
	blockHeading
	blockLink
	blockPre
)

// block is one paragraph of page content.
type block struct {
	kind blockKind
	text string
	// href is the absolute target of a link block.
	href string
}

// document is a loaded page reduced to what the rasterizer draws.
type document struct {
	url    string
	status int
	mime   string
	title  string
	blocks []block
	// scripts holds inline script sources in document order.
	scripts []string
	// truncated is set when the body was cut off at maxBodySize.
	truncated bool
}

// normalizeText collapses whitespace and composes the text to NFC.
func normalizeText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// parseHTML extracts the title, text blocks, links and inline scripts of an
// HTML document. base resolves relative links.
func parseHTML(r io.Reader, base *url.URL) (*document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	doc := &document{mime: "text/html"}
	p := &htmlWalker{doc: doc, base: base}
	p.walk(root)
	p.flush(blockText)
	return doc, nil
}

type htmlWalker struct {
	doc  *document
	base *url.URL
	buf  strings.Builder
}

func (w *htmlWalker) flush(kind blockKind) {
	s := normalizeText(w.buf.String())
	w.buf.Reset()
	if s != "" {
		w.doc.blocks = append(w.doc.blocks, block{kind: kind, text: s})
	}
}

func (w *htmlWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.buf.WriteString(n.Data)
		w.buf.WriteByte(' ')
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Title:
			if w.doc.title == "" {
				w.doc.title = normalizeText(textContent(n))
			}
			return
		case atom.Script:
			if src := strings.TrimSpace(textContent(n)); src != "" && !hasAttr(n, "src") {
				w.doc.scripts = append(w.doc.scripts, src)
			}
			return
		case atom.Style, atom.Noscript, atom.Template:
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			w.flush(blockText)
			w.buf.WriteString(textContent(n))
			w.flush(blockHeading)
			return
		case atom.A:
			if href, ok := w.resolve(attr(n, "href")); ok {
				w.flush(blockText)
				w.buf.WriteString(textContent(n))
				text := normalizeText(w.buf.String())
				w.buf.Reset()
				if text == "" {
					text = href
				}
				w.doc.blocks = append(w.doc.blocks, block{kind: blockLink, text: text, href: href})
				return
			}
		case atom.Pre:
			w.flush(blockText)
			for _, line := range strings.Split(textContent(n), "\n") {
				if line = strings.TrimRight(line, " \t\r"); line != "" {
					w.doc.blocks = append(w.doc.blocks, block{kind: blockPre, text: norm.NFC.String(line)})
				}
			}
			return
		case atom.P, atom.Div, atom.Li, atom.Br, atom.Tr, atom.Section, atom.Article, atom.Blockquote:
			w.flush(blockText)
			defer w.flush(blockText)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *htmlWalker) resolve(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if w.base != nil {
		u = w.base.ResolveReference(u)
	}
	if strings.EqualFold(u.Scheme, "javascript") {
		return "", false
	}
	return u.String(), true
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

// plainDocument splits text into one block per line.
func plainDocument(text string) *document {
	doc := &document{mime: "text/plain"}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimRight(line, " \t\r"); line != "" {
			doc.blocks = append(doc.blocks, block{kind: blockPre, text: norm.NFC.String(line)})
		}
	}
	return doc
}
