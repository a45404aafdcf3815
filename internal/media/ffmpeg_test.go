package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriteConcatList(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "combined.mp4.list.txt")

	require.NoError(t, writeConcatList([]string{
		filepath.Join(dir, "intro.mp4"),
		filepath.Join(dir, "main.mp4"),
	}, listPath))

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "file '"+filepath.Join(dir, "intro.mp4")+"'", lines[0])
	assert.Equal(t, "file '"+filepath.Join(dir, "main.mp4")+"'", lines[1])
}

func TestWriteConcatListRelativePaths(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "out.list.txt")

	require.NoError(t, writeConcatList([]string{"clip.mp4"}, listPath))

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.True(t, strings.HasPrefix(line, "file '/"), "list entries must be absolute, got %q", line)
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("42.513000\n")
	require.NoError(t, err)
	assert.InDelta(t, 42.513, d, 1e-9)

	_, err = parseDuration("N/A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parse duration "N/A"`)
}

func TestConcatNoInputs(t *testing.T) {
	tc := NewToolchain(zap.NewNop())
	err := tc.Concat(context.Background(), nil, filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no inputs")
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("  short \n", 512))

	long := strings.Repeat("x", 600)
	got := tail(long, 512)
	assert.Len(t, got, 515)
	assert.True(t, strings.HasPrefix(got, "..."))
}
