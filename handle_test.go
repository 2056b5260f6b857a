package ewf

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kordata/ewf/internal/codec"
	"github.com/kordata/ewf/internal/media"
)

func TestCreateWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	plainA := make([]byte, 512)
	plainB := make([]byte, 512)
	for i := range plainA {
		plainA[i] = byte(i)
		plainB[i] = byte(255 - i)
	}

	mv := media.Values{
		SectorsPerChunk: 1,
		BytesPerSector:  512,
		ChunkSize:       512,
		NumberOfChunks:  2,
		MediaSize:       1024,
		NumberOfSectors: 2,
		SetIdentifier:   uuid.New(),
	}

	h, err := Create(dir, "case001", mv,
		WithFormat(media.FormatEnCase6),
		WithCompression(codec.MethodDeflate, 6),
		WithMaxSegmentSize(1<<30),
	)
	require.NoError(t, err)

	idx, err := h.WriteChunk(plainA)
	require.NoError(t, err)
	require.Equal(t, uint64(0), idx)

	idx, err = h.WriteChunk(plainB)
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx)

	require.NoError(t, h.Finalize())
	require.NoError(t, h.Close())

	reopened, err := Open(filepath.Join(dir, "case001.E01"))
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, mv.NumberOfChunks, reopened.MediaValues().NumberOfChunks)
	require.Equal(t, mv.ChunkSize, reopened.MediaValues().ChunkSize)
	require.Equal(t, mv.SetIdentifier, reopened.SetIdentifier())

	got := make([]byte, 1024)
	n, err := reopened.ReadAt(got, 0)
	require.NoError(t, err)
	require.Equal(t, 1024, n)
	require.Equal(t, plainA, got[:512])
	require.Equal(t, plainB, got[512:])
}

func TestCreateRejectsInconsistentGeometry(t *testing.T) {
	dir := t.TempDir()
	mv := media.Values{SectorsPerChunk: 64, BytesPerSector: 512, ChunkSize: 1}
	_, err := Create(dir, "bad", mv)
	require.Error(t, err)
}

func TestWriteChunkOnReadOnlyHandleFails(t *testing.T) {
	h := &Handle{}
	_, err := h.WriteChunk(make([]byte, 8))
	require.Error(t, err)
}

func TestSignalAbortStopsWrites(t *testing.T) {
	dir := t.TempDir()
	mv := media.Values{
		SectorsPerChunk: 1,
		BytesPerSector:  512,
		ChunkSize:       512,
		NumberOfChunks:  1,
		MediaSize:       512,
		NumberOfSectors: 1,
	}
	h, err := Create(dir, "abort001", mv)
	require.NoError(t, err)
	h.SignalAbort()
	require.True(t, h.Aborted())

	_, err = h.WriteChunk(make([]byte, 512))
	require.Error(t, err)
}

func TestWriteExistingChunkRoutesThroughDelta(t *testing.T) {
	dir := t.TempDir()
	plain := make([]byte, 512)
	for i := range plain {
		plain[i] = byte(i)
	}
	replacement := make([]byte, 512)
	for i := range replacement {
		replacement[i] = byte(255 - i)
	}

	mv := media.Values{
		SectorsPerChunk: 1,
		BytesPerSector:  512,
		ChunkSize:       512,
		NumberOfChunks:  1,
		MediaSize:       512,
		NumberOfSectors: 1,
	}
	h, err := Create(dir, "delta001", mv)
	require.NoError(t, err)
	_, err = h.WriteChunk(plain)
	require.NoError(t, err)
	require.NoError(t, h.Finalize())
	require.NoError(t, h.Close())

	reopened, err := Open(filepath.Join(dir, "delta001.E01"))
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.WriteExistingChunk(0, replacement))

	got := make([]byte, 512)
	n, err := reopened.ReadAt(got, 0)
	require.NoError(t, err)
	require.Equal(t, 512, n)
	require.Equal(t, replacement, got)
}

func TestResumeContinuesAnInterruptedWrite(t *testing.T) {
	dir := t.TempDir()
	plainA := make([]byte, 512)
	plainB := make([]byte, 512)
	for i := range plainA {
		plainA[i] = byte(i)
		plainB[i] = byte(255 - i)
	}

	mv := media.Values{
		SectorsPerChunk: 1,
		BytesPerSector:  512,
		ChunkSize:       512,
		NumberOfChunks:  2,
		MediaSize:       1024,
		NumberOfSectors: 2,
	}
	h, err := Create(dir, "resume001", mv)
	require.NoError(t, err)
	_, err = h.WriteChunk(plainA)
	require.NoError(t, err)
	// No Finalize: simulates a process interrupted mid acquisition. Chunk 0's
	// bytes reached disk, but the sectors/table descriptors that would
	// confirm it never got written, so resume can't trust it and redoes it.
	require.NoError(t, h.Close())

	resumed, err := Open(filepath.Join(dir, "resume001.E01"), WithResume(true))
	require.NoError(t, err)

	idx, err := resumed.WriteChunk(plainA)
	require.NoError(t, err)
	require.Equal(t, uint64(0), idx)

	idx, err = resumed.WriteChunk(plainB)
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx)
	require.NoError(t, resumed.Finalize())
	require.NoError(t, resumed.Close())

	final, err := Open(filepath.Join(dir, "resume001.E01"))
	require.NoError(t, err)
	defer final.Close()

	got := make([]byte, 1024)
	n, err := final.ReadAt(got, 0)
	require.NoError(t, err)
	require.Equal(t, 1024, n)
	require.Equal(t, plainA, got[:512])
	require.Equal(t, plainB, got[512:])
}
