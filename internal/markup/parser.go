// internal/markup/parser.go
package markup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nrcms/internal/content"
	"nrcms/internal/gendirs"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// IndexFile is the entry document of a source tree.
const IndexFile = "index.cms"

const (
	DefaultInlineLimit = 1000
	DefaultMaxDepth    = 16
	DefaultBlogPattern = "*"
)

// InlineEncoder turns an image into a data URL. It is satisfied by
// *assets.Service.
type InlineEncoder interface {
	EncodeInline(path string, size *int) (dataURL string, n int, err error)
}

// Parser resolves markup into the content model. A Parser holds no state
// between calls and may be reused for every generation cycle.
type Parser struct {
	dirs        gendirs.Dirs
	images      InlineEncoder
	logger      *zap.Logger
	inlineLimit int
	maxDepth    int
	blogPattern string
	location    *time.Location
}

type Option func(p *Parser)

// WithInlineLimit sets the largest data URL, in bytes, that is embedded
// instead of copied.
func WithInlineLimit(n int) Option {
	return func(p *Parser) {
		if n >= 0 {
			p.inlineLimit = n
		}
	}
}

// WithMaxDepth bounds how deeply Page and Blog tags may nest.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// WithBlogPattern restricts blog directories to file names matching the
// doublestar pattern.
func WithBlogPattern(pattern string) Option {
	return func(p *Parser) {
		if pattern != "" {
			p.blogPattern = pattern
		}
	}
}

// WithLocation sets the time zone Date tags are written in.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.location = loc
		}
	}
}

func New(dirs gendirs.Dirs, images InlineEncoder, logger *zap.Logger, opts ...Option) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Parser{
		dirs:        dirs,
		images:      images,
		logger:      logger,
		inlineLimit: DefaultInlineLimit,
		maxDepth:    DefaultMaxDepth,
		blogPattern: DefaultBlogPattern,
		location:    time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	if !doublestar.ValidatePattern(p.blogPattern) {
		logger.Warn("invalid blog file pattern, matching every file", zap.String("pattern", p.blogPattern))
		p.blogPattern = DefaultBlogPattern
	}
	return p
}

// Resolution is the outcome of resolving one tag body. Exactly one of
// Element and Pages is set. Pages holds the page a Page tag registers, along
// with any named pages nested inside it.
type Resolution struct {
	Element content.Element
	Pages   map[string]content.Page
}

// Resolve turns one tag body into an element or a page. It reports false
// when the tag is unknown or malformed.
func (p *Parser) Resolve(body string) (Resolution, bool) {
	s := p.session(context.Background(), "")
	return s.resolve(body, 0)
}

// ParseContent extracts and resolves every tag in text.
func (p *Parser) ParseContent(text string) (content.Elements, map[string]content.Page, []content.Diagnostic) {
	s := p.session(context.Background(), "")
	elements, pages := s.parse(text, 0)
	return elements, pages, s.diags
}

// ParseSite reads the index document of the source tree and builds the
// site from it. Only a failure to read the index is returned as an error.
func (p *Parser) ParseSite(ctx context.Context) (*content.Site, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := p.dirs.InSource(IndexFile)
	data, err := afero.ReadFile(p.dirs.Fs(), path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	s := p.session(ctx, path)
	text := string(data)
	elements, pages := s.parse(text, 0)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.logger.Debug("parsed site",
		zap.Int("elements", len(elements)),
		zap.Int("pages", len(pages)),
		zap.Int("diagnostics", len(s.diags)))
	return &content.Site{
		Source:      text,
		Elements:    elements,
		Pages:       pages,
		Diagnostics: s.diags,
	}, nil
}

// session carries the per-call state of one parse: the file being read, the
// blog directories currently being loaded and the diagnostics collected so
// far.
type session struct {
	ctx     context.Context
	p       *Parser
	file    string
	loading map[string]bool
	diags   []content.Diagnostic
}

func (p *Parser) session(ctx context.Context, file string) *session {
	return &session{ctx: ctx, p: p, file: file, loading: make(map[string]bool)}
}

func (s *session) report(level zapcore.Level, tag, msg string) {
	s.diags = append(s.diags, content.Diagnostic{
		Severity: level,
		Tag:      tag,
		Source:   s.file,
		Message:  msg,
	})
	if ce := s.p.logger.Check(level, msg); ce != nil {
		ce.Write(zap.String("tag", tag), zap.String("source", s.file))
	}
}

// parse runs the extractor over text and resolves each tag body. Unbalanced
// text yields nothing.
func (s *session) parse(text string, depth int) (content.Elements, map[string]content.Page) {
	elements := content.Elements{}
	pages := make(map[string]content.Page)
	bodies, err := Extract(text)
	if err != nil {
		s.report(zapcore.ErrorLevel, "", err.Error())
		return elements, pages
	}
	for _, body := range bodies {
		res, ok := s.resolve(body, depth)
		if !ok {
			continue
		}
		if res.Element != nil {
			elements = append(elements, res.Element)
			continue
		}
		for name, page := range res.Pages {
			if _, dup := pages[name]; dup {
				s.report(zapcore.WarnLevel, "Page", fmt.Sprintf("page %q defined more than once, keeping the last", name))
			}
			pages[name] = page
		}
	}
	return elements, pages
}

// splitTag separates the tag name from its payload at the first '|'.
func splitTag(body string) (string, *string) {
	name, payload, found := strings.Cut(body, "|")
	if !found {
		return body, nil
	}
	return name, &payload
}

func (s *session) resolve(body string, depth int) (Resolution, bool) {
	name, payload := splitTag(body)

	var (
		el  content.Element
		err error
	)
	switch name {
	case "Title":
		el, err = parseTitle(payload)
	case "Paragraph":
		el, err = parseParagraph(payload)
	case "Name":
		el, err = parseName(payload)
	case "Code":
		el, err = parseCode(payload)
	case "Navbar":
		el, err = parseNavbar(payload)
	case "Links":
		el, err = parseLinks(payload)
	case "NKR-CMS-INFO":
		el, err = parseInfo(payload)
	case "Date":
		el, err = parseDate(payload, s.p.location)
	case "Image":
		return s.resolveImage(payload)
	case "Page":
		return s.resolvePage(payload, depth)
	case "Blog":
		return s.resolveBlog(payload, depth)
	default:
		s.report(zapcore.WarnLevel, name, "unknown tag")
		return Resolution{}, false
	}
	if err != nil {
		s.report(zapcore.WarnLevel, name, err.Error())
		return Resolution{}, false
	}
	return Resolution{Element: el}, true
}

// resolveImage embeds small images as data URLs and marks the rest to be
// copied into the output tree.
func (s *session) resolveImage(payload *string) (Resolution, bool) {
	url, size, err := parseImageArgs(payload)
	if err != nil {
		s.report(zapcore.WarnLevel, "Image", err.Error())
		return Resolution{}, false
	}
	if s.p.images == nil {
		s.report(zapcore.WarnLevel, "Image", "no asset service configured")
		return Resolution{}, false
	}
	dataURL, n, err := s.p.images.EncodeInline(s.p.dirs.InSource(url), size)
	if err != nil {
		s.report(zapcore.WarnLevel, "Image", err.Error())
		return Resolution{}, false
	}
	img := content.Image{URL: url, CopyAsset: true, Size: size}
	if n <= s.p.inlineLimit {
		img.URL = dataURL
		img.CopyAsset = false
	}
	return Resolution{Element: img}, true
}

// resolvePage parses the payload as nested markup. Named pages declared
// inside it are registered alongside it.
func (s *session) resolvePage(payload *string, depth int) (Resolution, bool) {
	if payload == nil {
		s.report(zapcore.WarnLevel, "Page", errMissingPayload.Error())
		return Resolution{}, false
	}
	if depth+1 > s.p.maxDepth {
		s.report(zapcore.WarnLevel, "Page", fmt.Sprintf("nesting deeper than %d", s.p.maxDepth))
		return Resolution{}, false
	}
	elements, nested := s.parse(*payload, depth+1)
	name, ok := elements.Name()
	if !ok {
		s.report(zapcore.WarnLevel, "Page", "page has no Name tag")
		return Resolution{}, false
	}
	pages := make(map[string]content.Page, len(nested)+1)
	for k, v := range nested {
		pages[k] = v
	}
	pages[name] = content.Page{Elements: elements}
	return Resolution{Pages: pages}, true
}

func (s *session) resolveBlog(payload *string, depth int) (Resolution, bool) {
	if payload == nil {
		s.report(zapcore.WarnLevel, "Blog", errMissingPayload.Error())
		return Resolution{}, false
	}
	if depth+1 > s.p.maxDepth {
		s.report(zapcore.WarnLevel, "Blog", fmt.Sprintf("nesting deeper than %d", s.p.maxDepth))
		return Resolution{}, false
	}
	blog, ok := s.loadBlog(*payload, depth+1)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Element: blog}, true
}
