// internal/markup/blog.go
package markup

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"nrcms/internal/content"

	"github.com/adrg/frontmatter"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// postMeta is the optional YAML front matter of a blog file.
type postMeta struct {
	Draft bool `yaml:"draft"`
}

var yamlFrontMatter = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// LoadBlog reads every post in the source-relative directory dir. It
// reports false when the directory does not exist or cannot be listed.
func (p *Parser) LoadBlog(dir string) (content.Blog, bool) {
	s := p.session(context.Background(), "")
	return s.loadBlog(dir, 1)
}

func (s *session) loadBlog(dir string, depth int) (content.Blog, bool) {
	fs := s.p.dirs.Fs()
	path := s.p.dirs.InSource(dir)
	info, err := fs.Stat(path)
	if err != nil || !info.IsDir() {
		s.report(zapcore.WarnLevel, "Blog", fmt.Sprintf("blog directory %s not found", path))
		return content.Blog{}, false
	}
	// A post may not pull in a blog that is still being assembled.
	key := filepath.Clean(path)
	if s.loading[key] {
		s.report(zapcore.WarnLevel, "Blog", fmt.Sprintf("blog directory %s is already being loaded", path))
		return content.Blog{}, false
	}
	s.loading[key] = true
	defer delete(s.loading, key)

	entries, err := afero.ReadDir(fs, path)
	if err != nil {
		s.report(zapcore.WarnLevel, "Blog", fmt.Sprintf("could not list %s: %v", path, err))
		return content.Blog{}, false
	}

	posts := []content.BlogPost{}
	for _, entry := range entries {
		if s.ctx.Err() != nil {
			break
		}
		if !entry.Mode().IsRegular() {
			continue
		}
		if ok, _ := doublestar.Match(s.p.blogPattern, entry.Name()); !ok {
			continue
		}
		post, ok := s.loadPost(filepath.Join(path, entry.Name()), depth)
		if ok {
			posts = append(posts, post)
		}
	}
	return content.Blog{Posts: posts}, true
}

// loadPost parses one blog file on its own. Files without a Date tag and
// drafts are left out.
func (s *session) loadPost(path string, depth int) (content.BlogPost, bool) {
	data, err := afero.ReadFile(s.p.dirs.Fs(), path)
	if err != nil {
		s.report(zapcore.WarnLevel, "Blog", fmt.Sprintf("could not read %s: %v", path, err))
		return content.BlogPost{}, false
	}

	parent := s.file
	s.file = path
	defer func() { s.file = parent }()

	var meta postMeta
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta, yamlFrontMatter)
	if err != nil {
		s.report(zapcore.WarnLevel, "Blog", fmt.Sprintf("ignoring front matter: %v", err))
		body, meta = data, postMeta{}
	}
	if meta.Draft {
		s.report(zapcore.DebugLevel, "Blog", "skipping draft")
		return content.BlogPost{}, false
	}

	elements, _ := s.parse(string(body), depth)
	date, ok := elements.Date()
	if !ok {
		s.report(zapcore.WarnLevel, "Date", "blog post has no Date tag")
		return content.BlogPost{}, false
	}
	return content.BlogPost{Date: date, Elements: elements}, true
}
