// internal/gendirs/gendirs.go
package gendirs

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// Dirs resolves paths relative to the source tree and the generated output
// tree, and exposes the filesystem both live on.
type Dirs interface {
	InSource(rel string) string
	InGen(rel string) string
	Fs() afero.Fs
}

// Standard is a pair of source and output directories on one filesystem.
type Standard struct {
	SourceDir     string
	GenerationDir string
	fs            afero.Fs
}

// NewOS returns directories backed by the real filesystem.
func NewOS(sourceDir, generationDir string) *Standard {
	return &Standard{
		SourceDir:     sourceDir,
		GenerationDir: generationDir,
		fs:            afero.NewOsFs(),
	}
}

// NewMemory returns directories on a fresh in-memory filesystem, rooted at
// "src" and "gen". It is meant for tests.
func NewMemory() *Standard {
	return &Standard{
		SourceDir:     "src",
		GenerationDir: "gen",
		fs:            afero.NewMemMapFs(),
	}
}

func (d *Standard) InSource(rel string) string {
	return filepath.Join(d.SourceDir, rel)
}

func (d *Standard) InGen(rel string) string {
	return filepath.Join(d.GenerationDir, rel)
}

func (d *Standard) Fs() afero.Fs {
	return d.fs
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(fs afero.Fs, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create directory for %s: %w", path, err)
	}
	return afero.WriteFile(fs, path, data, 0644)
}

// CopyFile copies src to dst on the same filesystem, creating the parent
// directory of dst.
func CopyFile(fs afero.Fs, src, dst string) error {
	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("could not create directory for %s: %w", dst, err)
	}
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := fs.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
