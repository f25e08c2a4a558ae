package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nrcms/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchIgnores(t *testing.T) {
	cfg := config.Default()
	cfg.SourceDir = "site"
	cfg.Ignore = []string{"**/*.swp"}

	cfg.GenerationDir = filepath.Join("site", "public")
	assert.Equal(t, []string{"**/*.swp", "public"}, watchIgnores(cfg))

	cfg.GenerationDir = "gen/"
	assert.Equal(t, []string{"**/*.swp"}, watchIgnores(cfg))
}

func TestVersionCommand(t *testing.T) {
	cmd := cmdVersion()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())
	assert.NotEmpty(t, strings.TrimSpace(out.String()))
}

func TestGenerateOnce(t *testing.T) {
	src := t.TempDir()
	gen := filepath.Join(t.TempDir(), "gen")
	require.NoError(t, writeFile(filepath.Join(src, "index.cms"), "{{Title|CLI}}{{Page|{{Name|home}}{{Paragraph|hi}}}}"))

	cmd := cmdGen()
	cmd.PersistentFlags().String("max-log-level", "error", "")
	cmd.PersistentFlags().Bool("debug", false, "")
	cmd.PersistentFlags().Bool("unsafe", false, "")
	cmd.SetArgs([]string{src, gen})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(gen, "index.html"))
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
