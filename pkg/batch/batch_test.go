package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlan(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAMLPlan(t *testing.T) {
	path := writePlan(t, "plan.yaml", `
steps:
  - command: replace
    pattern: "old"
    replacement: "new"
    regex: true
    expect: 2
    common:
      globs: ["**/*.md"]
      apply: true
  - command: normalize
    trim_trailing_space: true
    ensure_eol: true
`)

	plan, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)

	replace := plan.Steps[0].Replace
	require.NotNil(t, replace)
	assert.Equal(t, "old", replace.Pattern)
	assert.Equal(t, "new", replace.Replacement)
	assert.True(t, replace.Regex)
	assert.Equal(t, 2, replace.Expect)
	assert.Equal(t, []string{"**/*.md"}, replace.Common.Globs)
	require.NotNil(t, replace.Common.Apply)
	assert.True(t, *replace.Common.Apply)

	normalize := plan.Steps[1].Normalize
	require.NotNil(t, normalize)
	assert.True(t, normalize.TrimTrailingSpace)
	assert.True(t, normalize.EnsureEOL)
	assert.Nil(t, normalize.ScanControl)
	assert.Equal(t, "normalize", plan.Steps[1].Kind())
}

func TestLoad_JSONPlan(t *testing.T) {
	path := writePlan(t, "plan.json", `{
  "steps": [
    {"command": "replace", "pattern": "a", "replacement": "b"}
  ]
}`)

	plan, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "replace", plan.Steps[0].Kind())
}

func TestLoad_HCLPlan(t *testing.T) {
	path := writePlan(t, "plan.hcl", `
step "replace" {
  pattern     = "foo"
  replacement = "bar"
  count       = 1

  common {
    targets = ["README.md"]
    no_backup = true
  }
}

step "normalize" {
  strip_zero_width = true
}
`)

	plan, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)

	replace := plan.Steps[0].Replace
	require.NotNil(t, replace)
	assert.Equal(t, "foo", replace.Pattern)
	assert.Equal(t, 1, replace.Count)
	assert.Equal(t, []string{"README.md"}, replace.Common.Targets)
	require.NotNil(t, replace.Common.NoBackup)
	assert.True(t, *replace.Common.NoBackup)

	normalize := plan.Steps[1].Normalize
	require.NotNil(t, normalize)
	assert.True(t, normalize.StripZeroWidth)
}

func TestLoad_UnknownCommand(t *testing.T) {
	path := writePlan(t, "plan.yaml", `
steps:
  - command: explode
`)
	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestLoad_EmptyPlan(t *testing.T) {
	path := writePlan(t, "plan.yaml", "steps: []\n")
	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestLoad_ReplaceWithoutPattern(t *testing.T) {
	path := writePlan(t, "plan.yaml", `
steps:
  - command: replace
    replacement: "x"
`)
	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestLoad_UnknownExtension(t *testing.T) {
	path := writePlan(t, "plan.toml", "steps = []\n")
	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
