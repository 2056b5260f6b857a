package writeio

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/kordata/ewf/internal/chunk"
	"github.com/kordata/ewf/internal/codec"
	"github.com/kordata/ewf/internal/media"
	"github.com/kordata/ewf/internal/table"
)

func newTableFor(t *testing.T, n uint64) *table.Table {
	t.Helper()
	return table.New(n)
}

type fakeBackend struct {
	data map[int][]byte
}

func newFakeBackend() *fakeBackend { return &fakeBackend{data: make(map[int][]byte)} }

func (f *fakeBackend) WriteAt(entry int, buf []byte, off int64) (int, error) {
	b := f.data[entry]
	need := int(off) + len(buf)
	if len(b) < need {
		grown := make([]byte, need)
		copy(grown, b)
		b = grown
	}
	copy(b[off:], buf)
	f.data[entry] = b
	return len(buf), nil
}

func (f *fakeBackend) Size(entry int) (int64, error) { return int64(len(f.data[entry])), nil }

func (f *fakeBackend) Truncate(entry int, size int64) error {
	f.data[entry] = f.data[entry][:size]
	return nil
}

type singleSegmentAllocator struct {
	entry  int
	offset int64
}

func (a *singleSegmentAllocator) CurrentEntry() int { return a.entry }

func (a *singleSegmentAllocator) Reserve(n int) (int, int64, error) {
	off := a.offset
	a.offset += int64(n)
	return a.entry, off, nil
}

func TestWriteChunkRecordsLocation(t *testing.T) {
	backend := newFakeBackend()
	alloc := &singleSegmentAllocator{}
	tbl := newTableFor(t, 2)
	mv := media.Values{ChunkSize: 8, NumberOfChunks: 2}

	e := New(backend, alloc, tbl, mv, Options{Method: codec.MethodDeflate})
	idx, err := e.WriteChunk(make([]byte, 8))
	require.NoError(t, err)
	require.Equal(t, uint64(0), idx)

	loc, err := tbl.Get(0)
	require.NoError(t, err)
	require.False(t, loc.Unset())
	require.Equal(t, uint64(1), e.NumberOfChunksWritten())
}

func TestChunksSectionOpenClose(t *testing.T) {
	backend := newFakeBackend()
	alloc := &singleSegmentAllocator{}
	tbl := newTableFor(t, 1)
	mv := media.Values{ChunkSize: 8, NumberOfChunks: 1}

	e := New(backend, alloc, tbl, mv, Options{Method: codec.MethodDeflate})
	e.MarkChunksOpen(0, 0)
	_, err := e.WriteChunk(make([]byte, 8))
	require.NoError(t, err)

	size, err := e.CloseChunksSection(0)
	require.NoError(t, err)
	require.True(t, size > 0)

	_, err = e.CloseChunksSection(0)
	require.Error(t, err)
}

func TestWriteExistingChunkUsesDeltaEntry(t *testing.T) {
	backend := newFakeBackend()
	alloc := &singleSegmentAllocator{}
	tbl := newTableFor(t, 1)
	mv := media.Values{ChunkSize: 8, NumberOfChunks: 1}

	e := New(backend, alloc, tbl, mv, Options{Method: codec.MethodDeflate})
	_, err := e.WriteChunk(make([]byte, 8))
	require.NoError(t, err)

	require.NoError(t, e.WriteExistingChunk(0, []byte{1, 2, 3, 4, 5, 6, 7, 8}, 1, 0))
	loc, err := tbl.Get(0)
	require.NoError(t, err)
	require.Equal(t, int32(1), loc.PoolEntry)
	require.True(t, loc.Flags.Has(chunk.IsDelta))
}
