// internal/content/models.go
package content

import (
	"sort"
	"time"

	"go.uber.org/zap/zapcore"
)

// Elements is an ordered element sequence. The accessors return the first
// element of the requested variant.
type Elements []Element

func (es Elements) Title() (string, bool) {
	for _, e := range es {
		if t, ok := e.(Title); ok {
			return t.Text, true
		}
	}
	return "", false
}

func (es Elements) Name() (string, bool) {
	for _, e := range es {
		if n, ok := e.(Name); ok {
			return n.Text, true
		}
	}
	return "", false
}

func (es Elements) Date() (time.Time, bool) {
	for _, e := range es {
		if d, ok := e.(Date); ok {
			return d.Time, true
		}
	}
	return time.Time{}, false
}

func (es Elements) Navbar() ([]string, bool) {
	for _, e := range es {
		if n, ok := e.(Navbar); ok {
			return n.Pages, true
		}
	}
	return nil, false
}

func (es Elements) Links() (map[LinkKind]string, bool) {
	for _, e := range es {
		if l, ok := e.(Links); ok {
			return l.Links, true
		}
	}
	return nil, false
}

func (es Elements) Info() (string, bool) {
	for _, e := range es {
		if i, ok := e.(Info); ok {
			return i.Text, true
		}
	}
	return "", false
}

func (es Elements) Image() (Image, bool) {
	for _, e := range es {
		if i, ok := e.(Image); ok {
			return i, true
		}
	}
	return Image{}, false
}

func (es Elements) Blog() (Blog, bool) {
	for _, e := range es {
		if b, ok := e.(Blog); ok {
			return b, true
		}
	}
	return Blog{}, false
}

func (es Elements) Code() (string, bool) {
	for _, e := range es {
		if c, ok := e.(Code); ok {
			return c.Text, true
		}
	}
	return "", false
}

// Paragraphs returns the text of every paragraph, in order.
func (es Elements) Paragraphs() []string {
	var out []string
	for _, e := range es {
		if p, ok := e.(Paragraph); ok {
			out = append(out, p.Text)
		}
	}
	return out
}

// Page is a named panel of the site. The name lives in its Name element.
type Page struct {
	Elements Elements
}

// BlogPost is one parsed blog file.
type BlogPost struct {
	Date     time.Time
	Elements Elements
}

// Sorted returns the posts newest first. Posts sharing a date keep their
// load order.
func (b Blog) Sorted() []BlogPost {
	posts := make([]BlogPost, len(b.Posts))
	copy(posts, b.Posts)
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date.After(posts[j].Date)
	})
	return posts
}

// Diagnostic records why a tag was dropped or otherwise needs attention.
type Diagnostic struct {
	Severity zapcore.Level
	Tag      string // tag name, empty for structural problems
	Source   string // file the tag came from, if known
	Message  string
}

// Site is the parsed form of a source tree.
type Site struct {
	Source      string // raw index text, kept for diagnostics
	Elements    Elements
	Pages       map[string]Page
	Diagnostics []Diagnostic
}

// PageNames returns the registered page names in lexical order.
func (s *Site) PageNames() []string {
	names := make([]string, 0, len(s.Pages))
	for name := range s.Pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
