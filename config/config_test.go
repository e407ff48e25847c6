// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/bmdtool/namepool"
)

func TestDefault(t *testing.T) {
	opt := Default()
	assert.Equal(t, namepool.Bare, opt.NamePoolEncoding)
	assert.False(t, opt.StrictChecks)
	assert.False(t, opt.BreakOnWarn)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolkit.toml")
	body := `
strict_checks = true
name_pool_encoding = "n_prefixed"
tool_tag = "TEST"
break_on_warn = true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	opt, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, namepool.NPrefixed, opt.NamePoolEncoding)
	assert.True(t, opt.StrictChecks)
	assert.True(t, opt.BreakOnWarn)
	assert.Equal(t, [4]byte{'T', 'E', 'S', 'T'}, opt.ToolTag)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
