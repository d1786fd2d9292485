package chatbot

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// Renderer turns markdown answers into sanitized HTML.
type Renderer struct {
	policy *bluemonday.Policy
}

// NewRenderer creates a Renderer with the user-generated-content policy.
func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return &Renderer{policy: policy}
}

// Render converts md to HTML. Single newlines become line breaks so
// "Bước N:" lines stay on their own lines.
func (r *Renderer) Render(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.HardLineBreak)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(r.policy.SanitizeBytes(markdown.Render(doc, renderer)))
}
