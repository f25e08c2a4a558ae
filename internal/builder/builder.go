// internal/builder/builder.go
package builder

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"nrcms/internal/content"
	"nrcms/internal/gendirs"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// OutputFile is the single page written into the generation directory.
const OutputFile = "index.html"

//go:embed templates/*.html
var templateFS embed.FS

type Options struct {
	CleanDestination bool
	Unsafe           bool
	Markdown         bool
	// Title is used when the site has no Title tag.
	Title string
}

// AssetCopier places images marked for copying into the output tree. It is
// satisfied by *assets.Service.
type AssetCopier interface {
	CopyResized(src, dst string, size int) error
	Copy(src, dst string) error
}

// Builder renders a parsed site into the generation directory.
type Builder struct {
	dirs   gendirs.Dirs
	assets AssetCopier
	logger *zap.Logger
	opts   Options
	tmpl   *template.Template
}

// Result summarizes one build.
type Result struct {
	Output      string
	Pages       int
	Posts       int
	Assets      int
	Skipped     int
	Diagnostics int
}

// LoadTemplates parses the embedded site template.
func LoadTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

func New(dirs gendirs.Dirs, assets AssetCopier, logger *zap.Logger, opts Options) (*Builder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("could not load templates: %w", err)
	}
	return &Builder{dirs: dirs, assets: assets, logger: logger, opts: opts, tmpl: tmpl}, nil
}

// Build copies the site's assets and writes index.html. Elements that
// cannot be rendered are logged and left out; only a failure to prepare or
// write the output tree is returned.
func (b *Builder) Build(ctx context.Context, site *content.Site) (Result, error) {
	fs := b.dirs.Fs()
	outputDir := b.dirs.InGen("")
	if err := fs.MkdirAll(outputDir, 0755); err != nil {
		return Result{}, fmt.Errorf("could not create %s: %w", outputDir, err)
	}
	if b.opts.CleanDestination {
		b.logger.Debug("cleaning destination directory", zap.String("dir", outputDir))
		if err := cleanDir(fs, outputDir); err != nil {
			return Result{}, err
		}
	}

	r := &run{b: b, ctx: ctx}
	data := r.siteData(site)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var buf bytes.Buffer
	// "main" is the name of the template defined within the site layout.
	if err := b.tmpl.ExecuteTemplate(&buf, "main", data); err != nil {
		return Result{}, fmt.Errorf("failed to render site: %w", err)
	}
	out := b.dirs.InGen(OutputFile)
	if err := gendirs.WriteFile(fs, out, buf.Bytes()); err != nil {
		return Result{}, fmt.Errorf("could not write %s: %w", out, err)
	}

	r.result.Output = out
	r.result.Pages = len(data.Pages)
	return r.result, nil
}

func cleanDir(fs afero.Fs, dir string) error {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := fs.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// run holds the counters of one Build call.
type run struct {
	b      *Builder
	ctx    context.Context
	result Result
}

func (r *run) siteData(site *content.Site) SiteData {
	data := SiteData{Title: r.b.opts.Title}
	if title, ok := site.Elements.Title(); ok {
		data.Title = title
	}
	if names, ok := site.Elements.Navbar(); ok {
		for _, name := range names {
			data.Navbar = append(data.Navbar, NavLink{Name: name, Href: pageHref(name)})
		}
	}
	if info, ok := site.Elements.Info(); ok {
		data.Info = template.HTML(info)
	}
	data.Blocks = r.blocks(site.Elements)
	data.Blog = r.blog(site.Elements)

	for _, name := range site.PageNames() {
		if r.ctx.Err() != nil {
			break
		}
		page := site.Pages[name]
		pd := PageData{
			Name:   name,
			Blocks: r.blocks(page.Elements),
			Blog:   r.blog(page.Elements),
			Links:  links(page.Elements),
		}
		pd.Title, _ = page.Elements.Title()
		data.Pages = append(data.Pages, pd)
	}
	return data
}

// blocks renders paragraphs, images and code in document order.
func (r *run) blocks(elements content.Elements) []Block {
	var blocks []Block
	for _, el := range elements {
		switch el := el.(type) {
		case content.Paragraph:
			html, err := renderParagraph(el.Text, r.b.opts)
			if err != nil {
				r.b.logger.Warn("skipping paragraph", zap.Error(err))
				r.result.Skipped++
				continue
			}
			blocks = append(blocks, Block{HTML: html})
		case content.Image:
			src, ok := r.image(el)
			if !ok {
				r.result.Skipped++
				continue
			}
			blocks = append(blocks, Block{Src: src})
		case content.Code:
			blocks = append(blocks, Block{Code: el.Text})
		}
	}
	return blocks
}

// image copies an asset into the output tree when needed. A failed copy
// leaves the image out.
func (r *run) image(img content.Image) (template.URL, bool) {
	if !img.CopyAsset {
		return template.URL(img.URL), true
	}
	rel := filepath.Clean(filepath.FromSlash(img.URL))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		r.b.logger.Warn("image path leaves the source directory", zap.String("url", img.URL))
		return "", false
	}
	if r.b.assets == nil {
		r.b.logger.Warn("no asset service configured", zap.String("url", img.URL))
		return "", false
	}

	src, dst := r.b.dirs.InSource(rel), r.b.dirs.InGen(rel)
	var err error
	if img.Size != nil {
		err = r.b.assets.CopyResized(src, dst, *img.Size)
	} else {
		err = r.b.assets.Copy(src, dst)
	}
	if err != nil {
		r.b.logger.Warn("could not copy image", zap.String("url", img.URL), zap.Error(err))
		return "", false
	}
	r.result.Assets++
	return template.URL(filepath.ToSlash(rel)), true
}

// blog renders posts newest first. Posts without a title are left out.
func (r *run) blog(elements content.Elements) []PostData {
	blog, ok := elements.Blog()
	if !ok {
		return nil
	}
	var posts []PostData
	for _, post := range blog.Sorted() {
		title, ok := post.Elements.Title()
		if !ok {
			r.b.logger.Debug("skipping blog post without title", zap.Time("date", post.Date))
			r.result.Skipped++
			continue
		}
		posts = append(posts, PostData{
			Title:  title,
			Millis: post.Date.UnixMilli(),
			ISO:    post.Date.Format(time.RFC3339),
			Blocks: r.blocks(post.Elements),
		})
		r.result.Posts++
	}
	return posts
}

func links(elements content.Elements) []LinkData {
	found, ok := elements.Links()
	if !ok {
		return nil
	}
	kinds := make([]content.LinkKind, 0, len(found))
	for kind := range found {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var out []LinkData
	for _, kind := range kinds {
		switch kind {
		case content.Github:
			out = append(out, LinkData{Label: "Github", URL: "https://github.com/" + found[kind] + "/"})
		}
	}
	return out
}
