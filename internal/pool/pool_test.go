package pool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openerFor(t *testing.T, path string) Opener {
	return func() (*os.File, error) {
		return os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	}
}

func TestAddReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.e01")
	require.NoError(t, os.WriteFile(path, make([]byte, 16), 0o644))

	p, err := New(0)
	require.NoError(t, err)
	i := p.Add(path, openerFor(t, path))

	_, err = p.WriteAt(i, []byte("hello!!!"), 0)
	require.NoError(t, err)

	buf := make([]byte, 8)
	_, err = p.ReadAt(i, buf, 0)
	require.NoError(t, err)
	require.Equal(t, "hello!!!", string(buf))
}

func TestEvictionReopensTransparently(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.e01")
	pathB := filepath.Join(dir, "b.e01")
	require.NoError(t, os.WriteFile(pathA, []byte("AAAAAAAA"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("BBBBBBBB"), 0o644))

	p, err := New(1)
	require.NoError(t, err)
	a := p.Add(pathA, openerFor(t, pathA))
	b := p.Add(pathB, openerFor(t, pathB))

	bufA := make([]byte, 8)
	_, err = p.ReadAt(a, bufA, 0)
	require.NoError(t, err)
	require.Equal(t, "AAAAAAAA", string(bufA))

	// Reading b evicts a's handle (capacity 1).
	bufB := make([]byte, 8)
	_, err = p.ReadAt(b, bufB, 0)
	require.NoError(t, err)
	require.Equal(t, "BBBBBBBB", string(bufB))

	// a must reopen transparently.
	_, err = p.ReadAt(a, bufA, 0)
	require.NoError(t, err)
	require.Equal(t, "AAAAAAAA", string(bufA))
}

func TestCloseAllRejectsFurtherIO(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.e01")
	require.NoError(t, os.WriteFile(path, make([]byte, 8), 0o644))

	p, err := New(0)
	require.NoError(t, err)
	i := p.Add(path, openerFor(t, path))
	_, err = p.ReadAt(i, make([]byte, 8), 0)
	require.NoError(t, err)

	require.NoError(t, p.CloseAll())
	_, err = p.ReadAt(i, make([]byte, 8), 0)
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.e01")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	p, err := New(0)
	require.NoError(t, err)
	i := p.Add(path, openerFor(t, path))
	require.NoError(t, p.Truncate(i, 10))

	size, err := p.Size(i)
	require.NoError(t, err)
	require.Equal(t, int64(10), size)
}
