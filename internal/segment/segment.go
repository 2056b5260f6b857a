// Package segment implements the Segment File (C6) and Segment Table (C7)
// components: the ordered list of segment files backing an image, their
// filename convention, and the per-file section list, generalized from the
// teacher's single-os.File EWFImage (laenix-ewfgo/ewf.go) into a pool of N
// numbered files.
package segment

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kordata/ewf/ewferr"
	"github.com/kordata/ewf/internal/media"
	"github.com/kordata/ewf/internal/section"
)

// File tracks one segment file's identity and the section descriptors it
// has been parsed to contain, in file order.
type File struct {
	Number    int // 1-based segment_number
	Path      string
	PoolEntry int
	Sections  []section.Descriptor
	IsDelta   bool
}

// LastSection returns the most recently appended section descriptor, or
// the zero value and false if the file has none yet.
func (f *File) LastSection() (section.Descriptor, bool) {
	if len(f.Sections) == 0 {
		return section.Descriptor{}, false
	}
	return f.Sections[len(f.Sections)-1], true
}

// HasDone reports whether this file's section list ends in a done/next
// section, meaning it was closed out cleanly rather than left mid-write.
func (f *File) HasDone() bool {
	last, ok := f.LastSection()
	if !ok {
		return false
	}
	return last.Type == section.TypeDone || last.Type == section.TypeNext
}

// Table is the ordered collection of segment files making up one image,
// the Segment Table component (C7). Index 0 is always the first segment
// (segment_number 1).
type Table struct {
	Format  media.Format
	BaseDir string
	Stem    string // filename stem shared by every segment, e.g. "case001"
	files   []*File
	deltas  []*File
}

// New returns an empty segment table rooted at baseDir/stem for the given
// format.
func New(format media.Format, baseDir, stem string) *Table {
	return &Table{Format: format, BaseDir: baseDir, Stem: stem}
}

// Files returns the segment files in ascending segment_number order.
func (t *Table) Files() []*File { return t.files }

// Deltas returns the delta (.Dxx) overlay files in ascending order.
func (t *Table) Deltas() []*File { return t.deltas }

// Count returns the number of segment files currently tracked.
func (t *Table) Count() int { return len(t.files) }

// FilenameFor returns the path a segment file with the given 1-based
// number would have, following the extension convention in spec.md §4.6.
func (t *Table) FilenameFor(number int) (string, error) {
	ext, err := t.Format.Extension(number)
	if err != nil {
		return "", ewferr.New(ewferr.KindFormatLimitExceeded, "segment.FilenameFor", err)
	}
	return filepath.Join(t.BaseDir, t.Stem+"."+ext), nil
}

// DeltaFilenameFor returns the path of the delta overlay file with the
// given 1-based number (spec.md §4.6: same stem, "D" extension letter).
func (t *Table) DeltaFilenameFor(number int) string {
	suffix, _ := deltaSuffix(number)
	return filepath.Join(t.BaseDir, t.Stem+".D"+suffix)
}

func deltaSuffix(n int) (string, error) {
	if n < 1 || n > 99 {
		return "", fmt.Errorf("segment: delta number %d out of range", n)
	}
	return fmt.Sprintf("%02d", n), nil
}

// AppendFile registers a newly created/opened segment file and returns it.
func (t *Table) AppendFile(path string, poolEntry int) *File {
	f := &File{Number: len(t.files) + 1, Path: path, PoolEntry: poolEntry}
	t.files = append(t.files, f)
	return f
}

// AppendDelta registers a newly created/opened delta overlay file.
func (t *Table) AppendDelta(path string, poolEntry int) *File {
	f := &File{Number: len(t.deltas) + 1, Path: path, PoolEntry: poolEntry, IsDelta: true}
	t.deltas = append(t.deltas, f)
	return f
}

// NextIsFinal reports whether adding one more chunk of size chunkSize to
// the current (last) segment file would exceed maxSegmentSize, i.e.
// whether the writer must rotate to a new segment file before writing it
// (spec.md §4.9 segment rotation rule).
func (t *Table) NextIsFinal(currentSize, chunkSize, maxSegmentSize uint64) bool {
	return currentSize+chunkSize > maxSegmentSize
}

// ParseStem splits an existing segment filename into its directory and
// stem, so a resumed write picks up the same naming convention. It expects
// a standard "<stem>.<ext>" layout.
func ParseStem(path string) (dir, stem string) {
	dir = filepath.Dir(path)
	base := filepath.Base(path)
	if idx := strings.LastIndex(base, "."); idx >= 0 {
		return dir, base[:idx]
	}
	return dir, base
}

// ValidateOrder checks that the segment table's files form a contiguous
// 1..N run with no gaps, per spec.md §4.9's open requirement that a
// resumed image never skip a segment number.
func (t *Table) ValidateOrder() error {
	for i, f := range t.files {
		if f.Number != i+1 {
			return ewferr.New(ewferr.KindCorruptedSection, "segment.ValidateOrder",
				fmt.Errorf("segment table has a gap: want number %d, file records %d", i+1, f.Number))
		}
	}
	return nil
}
