// internal/scaffold/scaffold.go
package scaffold

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
	"unicode"

	"nrcms/internal/config"
	"nrcms/internal/gendirs"
	"nrcms/internal/markup"

	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// BlogDir is where new posts are written, relative to the source
	// directory.
	BlogDir       = "blog"
	archetypePath = "archetypes/post.cms"
)

// CreateNewSite writes a sample source tree into dir. It refuses to
// overwrite an existing index.
func CreateNewSite(fs afero.Fs, dir string, out io.Writer) error {
	index := filepath.Join(dir, markup.IndexFile)
	if exists, err := afero.Exists(fs, index); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("%s already exists", index)
	}

	fmt.Fprintln(out, "Scaffolding new site in:", dir)
	files := map[string]string{
		markup.IndexFile:  indexContent,
		config.FileName:   siteYamlContent,
		archetypePath:     archetypeContent,
		"images/.gitkeep": "",
	}
	for path, content := range files {
		if err := gendirs.WriteFile(fs, filepath.Join(dir, path), []byte(content)); err != nil {
			return fmt.Errorf("failed to write file %s: %w", path, err)
		}
	}
	if _, err := CreateNewPost(fs, dir, "hello world", time.Now(), io.Discard); err != nil {
		return err
	}

	fmt.Fprintln(out, "Site scaffolded. You can now:")
	fmt.Fprintln(out, "  nrcms serve", dir)
	return nil
}

// CreateNewPost writes a dated blog post for name into the blog directory
// of sourceDir and returns its path. The site's archetype is used when
// present.
func CreateNewPost(fs afero.Fs, sourceDir, name string, now time.Time, out io.Writer) (string, error) {
	slug := Slug(name)
	if slug == "" {
		return "", fmt.Errorf("cannot derive a file name from %q", name)
	}
	path := filepath.Join(sourceDir, BlogDir, now.Format("2006-01-02")+"-"+slug+".cms")
	if exists, err := afero.Exists(fs, path); err != nil {
		return "", err
	} else if exists {
		return "", fmt.Errorf("%s already exists", path)
	}

	archetype := archetypeContent
	custom := filepath.Join(sourceDir, archetypePath)
	data, err := afero.ReadFile(fs, custom)
	switch {
	case err == nil:
		archetype = string(data)
	case !os.IsNotExist(err):
		return "", fmt.Errorf("could not read archetype file %s: %w", custom, err)
	}

	// The markup itself uses {{ }}, so archetypes use [[ ]].
	tmpl, err := template.New("archetype").Delims("[[", "]]").Parse(archetype)
	if err != nil {
		return "", fmt.Errorf("failed to parse archetype file %s: %w", custom, err)
	}
	var output bytes.Buffer
	err = tmpl.Execute(&output, struct {
		Title string
		Date  string
	}{
		Title: Title(name),
		Date:  now.Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute archetype template: %w", err)
	}

	if err := gendirs.WriteFile(fs, path, output.Bytes()); err != nil {
		return "", err
	}
	fmt.Fprintln(out, "Created:", path)
	return path, nil
}

// Slug lowercases name and joins its letter and digit runs with '-'.
func Slug(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, "-")
}

// Title turns a name such as "my-first-post" into "My First Post".
func Title(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' || unicode.IsSpace(r) })
	return cases.Title(language.English).String(strings.Join(words, " "))
}

const indexContent = `{{Title|My NR-CMS Site}}
{{Navbar|home,blog,about}}

{{Page|
{{Name|home}}
{{Paragraph|Welcome to your new site. Edit *index.cms* to change this page.}}
}}

{{Page|
{{Name|blog}}
{{Blog|blog}}
}}

{{Page|
{{Name|about}}
{{Title|About}}
{{Paragraph|Something about you.}}
{{Links|Github:your-name}}
}}

{{NKR-CMS-INFO}}
`

const siteYamlContent = `title: My NR-CMS Site
markdown: true
inline_limit: 1000
image_size: 200
blog_pattern: "*.cms"
ignore:
  - "**/*.swp"
  - "**/*~"
  - ".git"
`

const archetypeContent = `---
draft: false
---
{{Title|[[.Title]]}}
{{Date|[[.Date]]}}
{{Paragraph|Write something meaningful here.}}
`
