package congress

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/ppiankov/legislens/internal/llm"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "pre": true, "table": true,
	"ul": true, "ol": true, "blockquote": true, "title": true,
}

// htmlToText returns the visible text of an HTML document or fragment, one
// block per line. Bill text arrives as a <pre> block, so line breaks inside
// text nodes are kept.
func htmlToText(doc string) string {
	if !strings.ContainsAny(doc, "<&") {
		return normalizeLines(doc)
	}
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return normalizeLines(doc)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			buf.WriteByte('\n')
		}
	}
	walk(root)
	return normalizeLines(buf.String())
}

// normalizeLines collapses whitespace within lines and runs of blank lines
func normalizeLines(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// pdfToText extracts plain text from a PDF text version
func pdfToText(data []byte) (text string, err error) {
	// The PDF parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: pdf: %v", llm.ErrMalformedResponse, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", llm.ErrMalformedResponse, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: pdf text: %v", llm.ErrMalformedResponse, err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return normalizeLines(string(raw)), nil
}

// PDFText extracts plain text from a PDF document, e.g. a local bill file
func PDFText(data []byte) (string, error) {
	return pdfToText(data)
}

// HTMLText extracts the visible text from an HTML document
func HTMLText(doc string) string {
	return htmlToText(doc)
}
