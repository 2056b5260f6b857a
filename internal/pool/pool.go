// Package pool implements the Block I/O Pool (C1): the set of open segment
// and delta file handles backing an image, indexed by pool entry number.
// Each entry serializes its own reads/writes behind a mutex, following the
// teacher's EWFImage.fileMutex pattern (laenix-ewfgo/ewf.go), generalized
// from "one file" to "N segment files plus delta overlays" and fronted by
// an LRU so a multi-thousand-segment image never needs every fd open at
// once.
package pool

import (
	"fmt"
	"io"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kordata/ewf/ewferr"
)

// Opener lazily (re)opens the file backing a pool entry, used to reopen a
// handle the LRU has evicted.
type Opener func() (*os.File, error)

type entry struct {
	mu     sync.Mutex
	path   string
	open   Opener
	file   *os.File
	closed bool
}

// Pool is the set of segment/delta file handles for one image, keyed by
// 0-based pool entry number. Handles beyond maxOpen are evicted LRU-style
// and transparently reopened on next use.
type Pool struct {
	mu      sync.RWMutex
	entries []*entry
	lru     *lru.Cache[int, *entry]
}

// New returns a pool that keeps at most maxOpen file descriptors live at
// once. maxOpen <= 0 disables eviction (every added entry stays open).
func New(maxOpen int) (*Pool, error) {
	p := &Pool{}
	if maxOpen > 0 {
		c, err := lru.NewWithEvict[int, *entry](maxOpen, func(_ int, e *entry) {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.file != nil {
				_ = e.file.Close()
				e.file = nil
			}
		})
		if err != nil {
			return nil, ewferr.New(ewferr.KindInvalidArgument, "pool.New", err)
		}
		p.lru = c
	}
	return p, nil
}

// Add registers a new pool entry with the given path and opener, returning
// its entry index. The file is not opened until first use.
func (p *Pool) Add(path string, open Opener) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := &entry{path: path, open: open}
	p.entries = append(p.entries, e)
	return len(p.entries) - 1
}

// Path returns the path registered for entry index i.
func (p *Pool) Path(i int) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i < 0 || i >= len(p.entries) {
		return "", ewferr.New(ewferr.KindInvalidArgument, "pool.Path", fmt.Errorf("entry %d out of range", i))
	}
	return p.entries[i].path, nil
}

// Count reports the number of registered entries.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

func (p *Pool) get(i int) (*entry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i < 0 || i >= len(p.entries) {
		return nil, ewferr.New(ewferr.KindInvalidArgument, "pool", fmt.Errorf("entry %d out of range", i))
	}
	return p.entries[i], nil
}

func (p *Pool) ensureOpen(i int, e *entry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ewferr.New(ewferr.KindIO, "pool", fmt.Errorf("entry %d is closed", i))
	}
	if e.file != nil {
		if p.lru != nil {
			p.lru.Get(i) // mark as most recently used
		}
		return nil
	}
	f, err := e.open()
	if err != nil {
		return ewferr.New(ewferr.KindIO, "pool.ensureOpen", err)
	}
	e.file = f
	if p.lru != nil {
		p.lru.Add(i, e)
	}
	return nil
}

// ReadAt reads len(buf) bytes from entry i at offset off, reopening the
// backing file if the LRU evicted it.
func (p *Pool) ReadAt(i int, buf []byte, off int64) (int, error) {
	e, err := p.get(i)
	if err != nil {
		return 0, err
	}
	if err := p.ensureOpen(i, e); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.file.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return n, ewferr.New(ewferr.KindIO, "pool.ReadAt", err)
	}
	return n, err
}

// WriteAt writes buf to entry i at offset off.
func (p *Pool) WriteAt(i int, buf []byte, off int64) (int, error) {
	e, err := p.get(i)
	if err != nil {
		return 0, err
	}
	if err := p.ensureOpen(i, e); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.file.WriteAt(buf, off)
	if err != nil {
		return n, ewferr.New(ewferr.KindIO, "pool.WriteAt", err)
	}
	return n, nil
}

// Size reports the current size of entry i's backing file.
func (p *Pool) Size(i int) (int64, error) {
	e, err := p.get(i)
	if err != nil {
		return 0, err
	}
	if err := p.ensureOpen(i, e); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fi, err := e.file.Stat()
	if err != nil {
		return 0, ewferr.New(ewferr.KindIO, "pool.Size", err)
	}
	return fi.Size(), nil
}

// Truncate resizes entry i's backing file, used by the write path to drop
// an incomplete chunks section on abort/resume.
func (p *Pool) Truncate(i int, size int64) error {
	e, err := p.get(i)
	if err != nil {
		return err
	}
	if err := p.ensureOpen(i, e); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Truncate(size); err != nil {
		return ewferr.New(ewferr.KindIO, "pool.Truncate", err)
	}
	return nil
}

// Sync flushes entry i's backing file to stable storage.
func (p *Pool) Sync(i int) error {
	e, err := p.get(i)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return nil
	}
	if err := e.file.Sync(); err != nil {
		return ewferr.New(ewferr.KindIO, "pool.Sync", err)
	}
	return nil
}

// EntryIO adapts one pool entry to io.ReaderAt/io.WriterAt, so callers that
// need a plain *os.File-shaped handle (section.ReadAt/WriteAt, binary.Read
// against a fixed offset) can use the pool without importing it directly.
type EntryIO struct {
	p *Pool
	i int
}

// At returns an io.ReaderAt/io.WriterAt bound to pool entry i.
func (p *Pool) At(i int) *EntryIO { return &EntryIO{p: p, i: i} }

func (e *EntryIO) ReadAt(buf []byte, off int64) (int, error)  { return e.p.ReadAt(e.i, buf, off) }
func (e *EntryIO) WriteAt(buf []byte, off int64) (int, error) { return e.p.WriteAt(e.i, buf, off) }

// CloseAll closes every open handle in the pool. Entries remain registered
// (Path/Count still work) but further I/O returns an error.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for i, e := range p.entries {
		e.mu.Lock()
		if e.file != nil {
			if err := e.file.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("pool: closing entry %d: %w", i, err)
			}
			e.file = nil
		}
		e.closed = true
		e.mu.Unlock()
	}
	if firstErr != nil {
		return ewferr.New(ewferr.KindIO, "pool.CloseAll", firstErr)
	}
	return nil
}
