// Package writeio implements the chunk-level part of the Write IO Engine
// (C10): packing and appending chunks where a SegmentAllocator says,
// recording their locations, delta overwrites, chunks-section size
// accounting and the running digest. Segment rotation and the trailing
// sections are written by the caller (package ewf), not by this package.
// Grounded on the teacher's single-file write path being generalized to
// the multi-segment case spec.md §4.9 describes, and on the teacher's
// zlib-based compressor (laenix-ewfgo/ewf.go decompressChunk) mirrored
// here as the encode side.
package writeio

import (
	"crypto/md5"
	"fmt"
	"hash"
	"sync"

	"github.com/kordata/ewf/ewferr"
	"github.com/kordata/ewf/internal/chunk"
	"github.com/kordata/ewf/internal/codec"
	"github.com/kordata/ewf/internal/media"
	"github.com/kordata/ewf/internal/table"
)

// Backend abstracts the pool writes needed here.
type Backend interface {
	WriteAt(poolEntry int, buf []byte, off int64) (int, error)
	Size(poolEntry int) (int64, error)
	Truncate(poolEntry int, size int64) error
}

// SegmentAllocator decides which pool entry the next chunk's bytes land
// in. It is supplied by the caller (the segment package knows filenames;
// writeio only knows "give me somewhere to put N more bytes"); rotating to
// a new segment file is the caller's job, done before WriteChunk is called.
type SegmentAllocator interface {
	// CurrentEntry returns the pool entry chunks are currently appended to.
	CurrentEntry() int
	// Reserve claims the next n bytes of the current segment and returns
	// its entry and the offset to write at.
	Reserve(n int) (entry int, offset int64, err error)
}

// Options configures a write engine.
type Options struct {
	Method              codec.Method
	Level               int
	ForceCompression    bool
	AddAlignmentPadding bool
	CompressedZeroBlock []byte
}

// Engine appends chunks to a growing image, tracking their locations in a
// chunk table as it goes.
type Engine struct {
	backend Backend
	alloc   SegmentAllocator
	table   *table.Table
	opts    chunk.Options
	mv      media.Values

	mu           sync.Mutex
	nextIndex    uint64
	chunksOpenAt map[int]int64 // pool entry -> file offset where the open chunks section's payload began
	finalized    bool
	digest       hash.Hash // running MD5 over every plaintext chunk written, for the hash trailer
}

// New returns a write engine appending through backend/alloc, recording
// locations into tbl.
func New(backend Backend, alloc SegmentAllocator, tbl *table.Table, mv media.Values, opts Options) *Engine {
	return &Engine{
		backend: backend,
		alloc:   alloc,
		table:   tbl,
		mv:      mv,
		opts: chunk.Options{
			Method:              opts.Method,
			Level:               opts.Level,
			ForceCompression:    opts.ForceCompression,
			AddAlignmentPadding: opts.AddAlignmentPadding,
			CompressedZeroBlock: opts.CompressedZeroBlock,
		},
		chunksOpenAt: make(map[int]int64),
		digest:       md5.New(),
	}
}

// ResumeAt sets the next chunk index WriteChunk will assign, used right
// after construction when resuming a write that was interrupted partway
// through an existing image (spec.md §4.5).
func (e *Engine) ResumeAt(index uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextIndex = index
}

// Digest returns the running MD5 sum of every plaintext chunk written so
// far, the value the image's trailing hash section records.
func (e *Engine) Digest() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.digest.Sum(nil)
}

// WriteChunk packs plain and appends it to the image as the next
// sequential chunk, recording its location in the chunk table. It returns
// the chunk index written.
func (e *Engine) WriteChunk(plain []byte) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finalized {
		return 0, ewferr.New(ewferr.KindInvalidArgument, "writeio.WriteChunk",
			fmt.Errorf("engine is finalized, no further chunks may be written"))
	}

	packed, err := chunk.Pack(plain, e.mv.ChunkSize, e.opts)
	if err != nil {
		return 0, err
	}

	entry, offset, err := e.alloc.Reserve(len(packed.Packed))
	if err != nil {
		return 0, err
	}

	n, err := e.backend.WriteAt(entry, packed.Packed, offset)
	if err != nil || n != len(packed.Packed) {
		return 0, ewferr.New(ewferr.KindIO, "writeio.WriteChunk",
			fmt.Errorf("short write for chunk %d: wrote %d of %d: %w", e.nextIndex, n, len(packed.Packed), err))
	}

	index := e.nextIndex
	e.table.Set(index, table.Location{
		PoolEntry:  int32(entry),
		FileOffset: uint64(offset),
		Size:       uint32(len(packed.Packed)),
		Flags:      packed.Flags,
	})
	e.nextIndex++
	e.digest.Write(plain)
	return index, nil
}

// WriteExistingChunk overwrites an already-written chunk index via a delta
// (.Dxx) overlay rather than in place, per spec.md §4.9's delta-chunk
// write path: the new bytes are packed the same way, appended to the
// delta segment addressed by deltaEntry, and the chunk table entry is
// repointed there with IsDelta set.
func (e *Engine) WriteExistingChunk(index uint64, plain []byte, deltaEntry int, deltaOffset int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.table.Get(index); err != nil {
		return err
	}

	packed, err := chunk.Pack(plain, e.mv.ChunkSize, e.opts)
	if err != nil {
		return err
	}
	n, err := e.backend.WriteAt(deltaEntry, packed.Packed, deltaOffset)
	if err != nil || n != len(packed.Packed) {
		return ewferr.New(ewferr.KindIO, "writeio.WriteExistingChunk",
			fmt.Errorf("short delta write for chunk %d: %w", index, err))
	}

	e.table.Set(index, table.Location{
		PoolEntry:  int32(deltaEntry),
		FileOffset: uint64(deltaOffset),
		Size:       uint32(len(packed.Packed)),
		Flags:      packed.Flags | chunk.IsDelta,
	})
	return nil
}

// NumberOfChunksWritten reports how many sequential chunks WriteChunk has
// appended so far.
func (e *Engine) NumberOfChunksWritten() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextIndex
}

// MarkChunksOpen records that entry's chunks section payload begins at
// offset, so CloseChunksSection can compute its closing size field.
func (e *Engine) MarkChunksOpen(entry int, payloadStart int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chunksOpenAt[entry] = payloadStart
}

// CloseChunksSection reports the size of the just-finished chunks section
// payload in entry (current file size minus where it was opened), the
// value the sectors/table section descriptor's Size field needs. Calling
// it a second time for the same entry before MarkChunksOpen is called
// again is an error: there is nothing open to close.
func (e *Engine) CloseChunksSection(entry int) (uint64, error) {
	e.mu.Lock()
	start, ok := e.chunksOpenAt[entry]
	delete(e.chunksOpenAt, entry)
	e.mu.Unlock()
	if !ok {
		return 0, ewferr.New(ewferr.KindInvalidArgument, "writeio.CloseChunksSection",
			fmt.Errorf("no open chunks section for pool entry %d", entry))
	}
	size, err := e.backend.Size(entry)
	if err != nil {
		return 0, err
	}
	return uint64(size) - uint64(start), nil
}

// Abort truncates entry back to size, discarding an interrupted chunks
// section so a subsequent resume starts from a clean boundary (spec.md
// §4.9's write-interrupt recovery).
func (e *Engine) Abort(entry int, size int64) error {
	return e.backend.Truncate(entry, size)
}

// Finalize marks the write engine done; a finalized engine rejects further
// WriteChunk calls. Per spec.md §4.9, Finalize is idempotent: calling it
// again is a no-op, not an error.
func (e *Engine) Finalize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finalized = true
	e.chunksOpenAt = make(map[int]int64)
}
