// internal/builder/goldmark_extensions.go
package builder

import (
	"bytes"
	"net/url"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// pageLinkPrefix marks a markdown link to a named page, e.g. [About](page:about).
var pageLinkPrefix = []byte("page:")

// pageLinkTransformer rewrites page links into the query form the page
// script understands.
type pageLinkTransformer struct{}

func newPageLinkTransformer() parser.ASTTransformer {
	return &pageLinkTransformer{}
}

func (t *pageLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok || !bytes.HasPrefix(link.Destination, pageLinkPrefix) {
			return ast.WalkContinue, nil
		}
		name := string(bytes.TrimPrefix(link.Destination, pageLinkPrefix))
		link.Destination = []byte(pageHref(name))
		return ast.WalkContinue, nil
	})
}

func pageHref(name string) string {
	return "?page=" + url.QueryEscape(name)
}
