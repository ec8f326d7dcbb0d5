package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ParsesProjectFile(t *testing.T) {
	dir := t.TempDir()
	content := `
target "x86_64"
system "windows"
thin_errors true
include "include/" "src/"
define "FOO" "1"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cuik.kdl"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "x86_64", cfg.Target)
	assert.Equal(t, "windows", cfg.System)
	assert.True(t, cfg.ThinErrors)
	assert.Equal(t, []string{"include/", "src/"}, cfg.Include)
	require.Len(t, cfg.Defines, 1)
	assert.Equal(t, Define{Key: "FOO", Value: "1"}, cfg.Defines[0])
}

func TestLoad_BlockFormIncludes(t *testing.T) {
	dir := t.TempDir()
	content := `
include {
    "a/"
    "b/"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cuik.kdl"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a/", "b/"}, cfg.Include)
}
