package markup_test

import (
	"context"
	"testing"
	"time"

	"nrcms/internal/assets"
	"nrcms/internal/content"
	"nrcms/internal/gendirs"
	"nrcms/internal/markup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeSource(t *testing.T, dirs *gendirs.Standard, files map[string]string) {
	t.Helper()
	for name, body := range files {
		require.NoError(t, gendirs.WriteFile(dirs.Fs(), dirs.InSource(name), []byte(body)))
	}
}

func newBlogParser(t *testing.T, files map[string]string, opts ...markup.Option) *markup.Parser {
	t.Helper()
	dirs := gendirs.NewMemory()
	writeSource(t, dirs, files)
	opts = append([]markup.Option{markup.WithLocation(time.UTC)}, opts...)
	return markup.New(dirs, assets.New(dirs.Fs(), 0), zap.NewNop(), opts...)
}

func TestLoadBlogSkipsPostsWithoutDate(t *testing.T) {
	p := newBlogParser(t, map[string]string{
		"blog/a.cms": "{{Title|A}}{{Date|2024-01-01}}{{Paragraph|first}}",
		"blog/b.cms": "{{Title|B}}{{Date|2024-02-01 10:30:00}}",
		"blog/c.cms": "{{Title|C}}{{Paragraph|undated}}",
	})

	blog, ok := p.LoadBlog("blog")
	require.True(t, ok)
	require.Len(t, blog.Posts, 2)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), blog.Posts[0].Date)
	assert.Equal(t, []string{"first"}, blog.Posts[0].Elements.Paragraphs())
	assert.Equal(t, time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC), blog.Posts[1].Date)

	sorted := blog.Sorted()
	title, _ := sorted[0].Elements.Title()
	assert.Equal(t, "B", title)
}

func TestLoadBlogMissingDirectory(t *testing.T) {
	p := newBlogParser(t, map[string]string{"notadir.cms": "{{Title|x}}"})

	_, ok := p.LoadBlog("missing")
	assert.False(t, ok)
	_, ok = p.LoadBlog("notadir.cms")
	assert.False(t, ok)
}

func TestLoadBlogEmptyDirectory(t *testing.T) {
	dirs := gendirs.NewMemory()
	require.NoError(t, dirs.Fs().MkdirAll(dirs.InSource("blog"), 0755))
	p := markup.New(dirs, nil, nil)

	blog, ok := p.LoadBlog("blog")
	require.True(t, ok)
	assert.Empty(t, blog.Posts)
}

func TestLoadBlogIgnoresSubdirectories(t *testing.T) {
	p := newBlogParser(t, map[string]string{
		"blog/a.cms":        "{{Date|2024-01-01}}",
		"blog/nested/b.cms": "{{Date|2024-01-02}}",
	})
	blog, ok := p.LoadBlog("blog")
	require.True(t, ok)
	assert.Len(t, blog.Posts, 1)
}

func TestLoadBlogPattern(t *testing.T) {
	p := newBlogParser(t, map[string]string{
		"blog/a.cms":    "{{Date|2024-01-01}}",
		"blog/notes.md": "{{Date|2024-01-02}}",
	}, markup.WithBlogPattern("*.cms"))
	blog, ok := p.LoadBlog("blog")
	require.True(t, ok)
	assert.Len(t, blog.Posts, 1)
}

func TestLoadBlogDrafts(t *testing.T) {
	p := newBlogParser(t, map[string]string{
		"blog/draft.cms":     "---\ndraft: true\n---\n{{Title|WIP}}{{Date|2024-03-01}}",
		"blog/published.cms": "---\ndraft: false\n---\n{{Title|Done}}{{Date|2024-03-02}}",
		"blog/plain.cms":     "{{Title|Plain}}{{Date|2024-03-03}}",
	})
	blog, ok := p.LoadBlog("blog")
	require.True(t, ok)
	require.Len(t, blog.Posts, 2)

	var titles []string
	for _, post := range blog.Posts {
		title, _ := post.Elements.Title()
		titles = append(titles, title)
	}
	assert.ElementsMatch(t, []string{"Done", "Plain"}, titles)
}

func TestLoadBlogDropsNestedPages(t *testing.T) {
	p := newBlogParser(t, map[string]string{
		"blog/a.cms": "{{Date|2024-01-01}}{{Page|{{Name|hidden}}}}",
	})
	blog, ok := p.LoadBlog("blog")
	require.True(t, ok)
	require.Len(t, blog.Posts, 1)
	assert.Len(t, blog.Posts[0].Elements, 1)
}

func TestBlogTagInIndex(t *testing.T) {
	p := newBlogParser(t, map[string]string{
		markup.IndexFile: "{{Title|Site}}{{Blog|posts}}",
		"posts/1.cms":    "{{Title|One}}{{Date|2023-05-01}}",
		"posts/2.cms":    "{{Title|Two}}{{Date|2023-06-01}}",
	})
	site, err := p.ParseSite(context.Background())
	require.NoError(t, err)

	blog, ok := site.Elements.Blog()
	require.True(t, ok)
	assert.Len(t, blog.Posts, 2)
	assert.Empty(t, site.Diagnostics)
}

func TestBlogTagMissingDirectory(t *testing.T) {
	p := newBlogParser(t, map[string]string{
		markup.IndexFile: "{{Title|Site}}{{Blog|nowhere}}",
	})
	site, err := p.ParseSite(context.Background())
	require.NoError(t, err)

	_, ok := site.Elements.Blog()
	assert.False(t, ok)
	require.Len(t, site.Diagnostics, 1)
	assert.Equal(t, "Blog", site.Diagnostics[0].Tag)
}

func TestBlogPostDiagnosticsNameTheFile(t *testing.T) {
	p := newBlogParser(t, map[string]string{
		markup.IndexFile: "{{Blog|posts}}",
		"posts/1.cms":    "{{Bogus}}{{Date|2023-05-01}}",
	})
	site, err := p.ParseSite(context.Background())
	require.NoError(t, err)
	require.Len(t, site.Diagnostics, 1)
	assert.Equal(t, "Bogus", site.Diagnostics[0].Tag)
	assert.Contains(t, site.Diagnostics[0].Source, "1.cms")
}

func TestParseSiteIsIdempotentWithBlog(t *testing.T) {
	p := newBlogParser(t, map[string]string{
		markup.IndexFile: "{{Title|Site}}{{Blog|posts}}{{Page|{{Name|about}}}}",
		"posts/1.cms":    "{{Title|One}}{{Date|2023-05-01}}",
	})
	first, err := p.ParseSite(context.Background())
	require.NoError(t, err)
	second, err := p.ParseSite(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	blog, _ := first.Elements.Blog()
	assert.Equal(t, content.Blog{Posts: []content.BlogPost{{
		Date:     time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
		Elements: content.Elements{content.Title{Text: "One"}, content.Date{Time: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)}},
	}}}, blog)
}

func TestBlogSelfReferenceIsDropped(t *testing.T) {
	p := newBlogParser(t, map[string]string{
		markup.IndexFile: "{{Blog|blog}}",
		"blog/a.cms":     "{{Date|2024-01-01}}{{Title|a}}{{Blog|blog}}",
		"blog/b.cms":     "{{Date|2024-01-02}}{{Title|b}}{{Blog|./blog/}}",
		"blog/c.cms":     "{{Date|2024-01-03}}{{Title|c}}{{Blog|blog}}",
	})
	site, err := p.ParseSite(context.Background())
	require.NoError(t, err)

	blog, ok := site.Elements.Blog()
	require.True(t, ok)
	require.Len(t, blog.Posts, 3)
	for _, post := range blog.Posts {
		_, nested := post.Elements.Blog()
		assert.False(t, nested)
		assert.Len(t, post.Elements, 2)
	}

	require.Len(t, site.Diagnostics, 3)
	for _, d := range site.Diagnostics {
		assert.Equal(t, "Blog", d.Tag)
		assert.Contains(t, d.Message, "already being loaded")
	}
}

func TestBlogLoadedTwiceSideBySide(t *testing.T) {
	p := newBlogParser(t, map[string]string{
		markup.IndexFile: "{{Blog|blog}}{{Page|{{Name|archive}}{{Blog|blog}}}}",
		"blog/a.cms":     "{{Date|2024-01-01}}",
	})
	site, err := p.ParseSite(context.Background())
	require.NoError(t, err)
	assert.Empty(t, site.Diagnostics)

	blog, ok := site.Elements.Blog()
	require.True(t, ok)
	assert.Len(t, blog.Posts, 1)

	require.Contains(t, site.Pages, "archive")
	blog, ok = site.Pages["archive"].Elements.Blog()
	require.True(t, ok)
	assert.Len(t, blog.Posts, 1)
}
