package fileset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolve_ExplicitTargets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "b.txt"), "world")

	entries, err := Resolve(context.Background(), Options{
		Targets: []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Meta.ProbablyBinary)
	assert.Equal(t, int64(5), entries[0].Meta.Size)
}

func TestResolve_DirectoryWalk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.txt"), "1")
	writeFile(t, filepath.Join(dir, "sub", "two.txt"), "2")

	entries, err := Resolve(context.Background(), Options{Targets: []string{dir}})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestResolve_HiddenFilteredByDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "visible.txt"), "v")
	writeFile(t, filepath.Join(dir, ".hidden", "secret.txt"), "s")
	writeFile(t, filepath.Join(dir, ".dotfile"), "d")

	entries, err := Resolve(context.Background(), Options{Targets: []string{dir}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Join(dir, "visible.txt"), entries[0].Path)

	all, err := Resolve(context.Background(), Options{Targets: []string{dir}, IncludeHidden: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestResolve_ExcludeGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.txt"), "k")
	writeFile(t, filepath.Join(dir, "skip.log"), "s")

	entries, err := Resolve(context.Background(), Options{
		Targets:  []string{dir},
		Excludes: []string{"**/*.log"},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Join(dir, "keep.txt"), entries[0].Path)
}

func TestResolve_DedupAcrossTargetAndGlob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dup.txt")
	writeFile(t, path, "once")

	entries, err := Resolve(context.Background(), Options{
		Targets: []string{path},
		Globs:   []string{filepath.Join(dir, "*.txt")},
	})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestResolve_BinarySniff(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(binPath, []byte{'a', 0x00, 'b'}, 0o644))

	entries, err := Resolve(context.Background(), Options{Targets: []string{binPath}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Meta.ProbablyBinary)
}

func TestResolve_NothingMatched(t *testing.T) {
	dir := t.TempDir()
	_, err := Resolve(context.Background(), Options{Globs: []string{filepath.Join(dir, "*.nope")}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatches)
}

func TestResolve_InvalidExclude(t *testing.T) {
	_, err := Resolve(context.Background(), Options{
		Targets:  []string{"whatever"},
		Excludes: []string{"[invalid"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadGlob)
}

func TestResolve_MissingTargetSuggests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "target.txt"), "content")

	_, err := Resolve(context.Background(), Options{
		Targets: []string{filepath.Join(dir, "targte.txt")},
	})
	require.Error(t, err)
}

func TestSuggestPathFrom_ParentRelativeMatch(t *testing.T) {
	dir := t.TempDir()
	child := filepath.Join(dir, "child")
	require.NoError(t, os.Mkdir(child, 0o755))
	target := filepath.Join(dir, "target.txt")
	writeFile(t, target, "test")

	assert.Equal(t, target, suggestPathFrom(child, "target.txt"))
}

func TestSuggestPathFrom_RelativeDirs(t *testing.T) {
	dir := t.TempDir()
	child := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(child, 0o755))
	target := filepath.Join(dir, "docs", "file.md")
	writeFile(t, target, "data")

	assert.Equal(t, target, suggestPathFrom(child, filepath.Join("docs", "file.md")))
}

func TestSuggestPathFrom_SiblingDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "repo", "tool", "src")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	target := filepath.Join(dir, "repo", "docs", "plan.md")
	writeFile(t, target, "plan")

	assert.Equal(t, target, suggestPathFrom(nested, "plan.md"))
}

func TestSuggestPathFrom_NestedDescendantUnderSibling(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "workspace", "tool", "src")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	target := filepath.Join(dir, "workspace", "docs", "guides", "plan.md")
	writeFile(t, target, "plan")

	assert.Equal(t, target, suggestPathFrom(nested, filepath.Join("docs", "guides", "plan.md")))
}

func TestCollectSuffixes(t *testing.T) {
	suffixes := collectSuffixes(filepath.Join("a", "b", "c.txt"))
	assert.Equal(t, []string{
		filepath.Join("a", "b", "c.txt"),
		filepath.Join("b", "c.txt"),
		"c.txt",
	}, suffixes)
}

func TestHasHiddenComponent(t *testing.T) {
	assert.True(t, hasHiddenComponent(filepath.Join(".git", "config")))
	assert.True(t, hasHiddenComponent(filepath.Join("src", ".cache", "x")))
	assert.False(t, hasHiddenComponent(filepath.Join("src", "main.go")))
	assert.False(t, hasHiddenComponent("./src/main.go"))
}

func TestDetectBinary_TextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "text.txt")
	writeFile(t, path, "just text\n")

	binary, err := detectBinary(path)
	require.NoError(t, err)
	assert.False(t, binary)
}
