// internal/builder/render.go
package builder

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

var (
	markdownRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(
				util.Prioritized(newPageLinkTransformer(), 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	htmlSanitizer = bluemonday.UGCPolicy()
)

// renderParagraph turns paragraph text into HTML. Markdown is rendered
// with goldmark, otherwise the text is wrapped as-is in a <p>. The result is
// sanitized unless opts.Unsafe is set.
func renderParagraph(text string, opts Options) (template.HTML, error) {
	var out []byte
	if opts.Markdown {
		var buf bytes.Buffer
		if err := markdownRenderer.Convert([]byte(text), &buf); err != nil {
			return "", fmt.Errorf("failed to render markdown with goldmark: %w", err)
		}
		out = buf.Bytes()
	} else {
		out = []byte("<p>" + text + "</p>")
	}

	if !opts.Unsafe {
		out = htmlSanitizer.SanitizeBytes(out)
	}
	return template.HTML(strings.TrimSpace(string(out))), nil
}
