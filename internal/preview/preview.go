// Package preview renders Markdown previews for the editor panel with GFM
// extensions and syntax highlighting.
package preview

import (
	"bytes"
	"crypto/sha256"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

const cacheSize = 128

// Result contains the rendered preview.
type Result struct {
	HTML  string `json:"html"`
	Title string `json:"title"`
}

// Renderer converts Markdown buffers to HTML. Renders are cached by content
// hash, so re-rendering an unchanged buffer is free.
type Renderer struct {
	md    goldmark.Markdown
	cache *lru.Cache[[32]byte, *Result]
}

// NewRenderer creates a renderer with the standard extension set.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	cache, _ := lru.New[[32]byte, *Result](cacheSize)
	return &Renderer{md: md, cache: cache}
}

// Render converts a Markdown buffer to HTML and extracts the title.
func (r *Renderer) Render(source []byte) (*Result, error) {
	key := sha256.Sum256(source)
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return nil, err
	}

	result := &Result{
		HTML:  buf.String(),
		Title: r.extractTitle(source),
	}
	r.cache.Add(key, result)
	return result, nil
}

// extractTitle returns the first heading's text, if any.
func (r *Renderer) extractTitle(source []byte) string {
	reader := text.NewReader(source)
	doc := r.md.Parser().Parse(reader)

	title := ""
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			title = headingText(heading, source)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

func headingText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}
