// Package table implements the Chunk Table (C5): the dense, 0-based array
// mapping a logical chunk index to its (pool entry, file offset, size,
// flags), built from table/table2/sectors trios (v1) or sector_table +
// sector_data (v2), and the resume-mode truncation spec.md §4.5 describes.
package table

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/kordata/ewf/ewferr"
	"github.com/kordata/ewf/internal/chunk"
	"github.com/kordata/ewf/internal/codec"
)

// Location is one chunk's resolved position. PoolEntry of -1 means unset
// (no segment file has ever claimed this chunk index).
type Location struct {
	PoolEntry  int32
	FileOffset uint64
	Size       uint32
	Flags      chunk.Flags
}

// Unset reports whether this index has never been written.
func (l Location) Unset() bool { return l.PoolEntry < 0 }

// Table is the per-image chunk location array, indexed by 0-based chunk
// index. It is extended lazily as new chunks are discovered during a
// section walk, and grown explicitly when the writer reserves indices
// ahead of a flush.
type Table struct {
	entries []Location
}

// New returns a table pre-sized to numberOfChunks, all entries unset.
func New(numberOfChunks uint64) *Table {
	t := &Table{entries: make([]Location, numberOfChunks)}
	for i := range t.entries {
		t.entries[i].PoolEntry = -1
	}
	return t
}

// Len reports the number of chunk slots currently tracked.
func (t *Table) Len() int { return len(t.entries) }

// Get returns the location for index, or an error if index is out of range.
func (t *Table) Get(index uint64) (Location, error) {
	if index >= uint64(len(t.entries)) {
		return Location{}, ewferr.New(ewferr.KindInvalidChunk, "table.Get",
			fmt.Errorf("chunk index %d >= %d", index, len(t.entries)))
	}
	return t.entries[index], nil
}

// Set records loc at index, growing the table if needed (the write path
// extends the table as it discovers new chunk indices).
func (t *Table) Set(index uint64, loc Location) {
	if index >= uint64(len(t.entries)) {
		grown := make([]Location, index+1)
		copy(grown, t.entries)
		for i := len(t.entries); i < len(grown); i++ {
			grown[i].PoolEntry = -1
		}
		t.entries = grown
	}
	t.entries[index] = loc
}

// Truncate drops every entry at or past index, implementing the resume
// rollback of spec.md §4.5: when a writer is interrupted mid chunks-section,
// reopening in resume mode truncates the table to the last chunk a
// completed table/table2 section actually covered.
func (t *Table) Truncate(index uint64) {
	if index >= uint64(len(t.entries)) {
		return
	}
	for i := index; i < uint64(len(t.entries)); i++ {
		t.entries[i] = Location{PoolEntry: -1}
	}
	t.entries = t.entries[:index]
}

// wireEntryV1Size is the 4-byte v1 table entry: high bit is IS_COMPRESSED,
// low 31 bits are the offset relative to the enclosing sectors section's
// base_offset.
const wireEntryV1Size = 4

// wireEntryV2Size is the 16-byte v2 entry: file_offset(8) + size(4) + flags(4).
const wireEntryV2Size = 16

const tableHeaderSize = 24 // number_of_entries(4) + pad(4) + base_offset(8) + pad(4) + crc(4)

// HeaderSize returns the fixed size of the table/table2 header that
// precedes the entry array, exported so callers know where entries start.
func HeaderSize() int { return tableHeaderSize }

// RawEntriesV1 is the decoded, still-relative form of a v1 table's entries,
// before ResolveV1 resolves them against the sectors section length.
type RawEntriesV1 struct {
	BaseOffset uint64
	Offsets    []uint32 // low 31 bits only
	Compressed []bool   // high-bit per entry
}

// DecodeTableHeaderV1 reads the 24-byte table/table2 header (number of
// entries, base_offset, header CRC) and validates the header checksum.
func DecodeTableHeaderV1(payload []byte) (numberOfEntries uint32, baseOffset uint64, err error) {
	if len(payload) < tableHeaderSize {
		return 0, 0, ewferr.New(ewferr.KindCorruptedSection, "table.DecodeTableHeaderV1",
			fmt.Errorf("payload too short: %d bytes", len(payload)))
	}
	r := bytes.NewReader(payload)
	var count, pad1 uint32
	var base uint64
	var pad2, crc uint32
	_ = binary.Read(r, binary.LittleEndian, &count)
	_ = binary.Read(r, binary.LittleEndian, &pad1)
	_ = binary.Read(r, binary.LittleEndian, &base)
	_ = binary.Read(r, binary.LittleEndian, &pad2)
	if err := binary.Read(r, binary.LittleEndian, &crc); err != nil {
		return 0, 0, ewferr.New(ewferr.KindCorruptedSection, "table.DecodeTableHeaderV1", err)
	}
	computed := codec.CRC32(payload[:tableHeaderSize-4])
	if crc != 0 && crc != computed {
		return 0, 0, ewferr.New(ewferr.KindChecksumMismatch, "table.DecodeTableHeaderV1",
			fmt.Errorf("table header checksum %08x != computed %08x", crc, computed))
	}
	return count, base, nil
}

// DecodeEntriesV1 reads numberOfEntries raw 4-byte entries following the
// table header.
func DecodeEntriesV1(payload []byte, numberOfEntries uint32) (RawEntriesV1, error) {
	need := int(numberOfEntries) * wireEntryV1Size
	if len(payload) < need {
		return RawEntriesV1{}, ewferr.New(ewferr.KindCorruptedSection, "table.DecodeEntriesV1",
			fmt.Errorf("payload holds %d bytes, need %d for %d entries", len(payload), need, numberOfEntries))
	}
	out := RawEntriesV1{
		Offsets:    make([]uint32, numberOfEntries),
		Compressed: make([]bool, numberOfEntries),
	}
	for i := uint32(0); i < numberOfEntries; i++ {
		raw := binary.LittleEndian.Uint32(payload[i*4 : i*4+4])
		out.Compressed[i] = raw&0x80000000 != 0
		out.Offsets[i] = raw & 0x7FFFFFFF
	}
	return out, nil
}

// ResolveV1 turns the table's relative offsets into absolute file offsets
// and per-chunk sizes, inferring each entry's size as the delta to the next
// entry's offset (spec.md §4.5 step 3); the last entry's size runs to the
// end of the sectors section payload. sectorsPayloadStart is the absolute
// file offset of the first byte of the sectors section this table
// describes, and sectorsPayloadSize is that section's payload length.
func ResolveV1(raw RawEntriesV1, sectorsPayloadStart uint64, sectorsPayloadSize uint64, poolEntry int32) []Location {
	locs := make([]Location, len(raw.Offsets))
	for i := range raw.Offsets {
		start := raw.Offsets[i]
		var end uint32
		if i+1 < len(raw.Offsets) {
			end = raw.Offsets[i+1]
		} else {
			end = uint32(sectorsPayloadSize)
		}
		size := end - start
		if size == 0 {
			size = 1 // never zero, per spec.md §4.5 step 3
		}
		flags := chunk.IsPacked
		if raw.Compressed[i] {
			flags |= chunk.IsCompressed
		} else {
			flags |= chunk.HasChecksum
		}
		locs[i] = Location{
			PoolEntry:  poolEntry,
			FileOffset: sectorsPayloadStart + uint64(start),
			Size:       size,
			Flags:      flags,
		}
	}
	return locs
}

// EncodeTableV1 serializes a table/table2 payload (header + entries + CRC
// trailer over the entries) for the given relative offsets.
func EncodeTableV1(baseOffset uint64, relativeOffsets []uint32, compressed []bool) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(relativeOffsets)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
	_ = binary.Write(&buf, binary.LittleEndian, baseOffset)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
	headerCRC := codec.CRC32(buf.Bytes())
	_ = binary.Write(&buf, binary.LittleEndian, headerCRC)

	entriesStart := buf.Len()
	for i, off := range relativeOffsets {
		raw := off & 0x7FFFFFFF
		if compressed[i] {
			raw |= 0x80000000
		}
		_ = binary.Write(&buf, binary.LittleEndian, raw)
	}
	entriesCRC := codec.CRC32(buf.Bytes()[entriesStart:])
	_ = binary.Write(&buf, binary.LittleEndian, entriesCRC)
	return buf.Bytes()
}

// wireEntryV2 is the 16-byte v2 sector_table/table entry.
type wireEntryV2 struct {
	FileOffset uint64
	Size       uint32
	Flags      uint32
}

// DecodeEntriesV2 reads count fixed 16-byte v2 entries (absolute offsets
// already, no base_offset indirection).
func DecodeEntriesV2(payload []byte, count uint32, poolEntry int32) ([]Location, error) {
	need := int(count) * wireEntryV2Size
	if len(payload) < need {
		return nil, ewferr.New(ewferr.KindCorruptedSection, "table.DecodeEntriesV2",
			fmt.Errorf("payload holds %d bytes, need %d for %d entries", len(payload), need, count))
	}
	locs := make([]Location, count)
	for i := uint32(0); i < count; i++ {
		var e wireEntryV2
		off := i * wireEntryV2Size
		_ = binary.Read(bytes.NewReader(payload[off:off+wireEntryV2Size]), binary.LittleEndian, &e)
		locs[i] = Location{
			PoolEntry:  poolEntry,
			FileOffset: e.FileOffset,
			Size:       e.Size,
			Flags:      chunk.Flags(e.Flags) | chunk.IsPacked,
		}
	}
	return locs, nil
}

// EncodeEntriesV2 serializes locs as fixed 16-byte v2 entries.
func EncodeEntriesV2(locs []Location) []byte {
	var buf bytes.Buffer
	for _, l := range locs {
		e := wireEntryV2{FileOffset: l.FileOffset, Size: l.Size, Flags: uint32(l.Flags)}
		_ = binary.Write(&buf, binary.LittleEndian, e)
	}
	return buf.Bytes()
}

// CrossCheck compares a table and table2 pair per spec.md §4.5 step 4:
// EnCase formats >= 4 always write both as a redundancy check. On mismatch,
// the table entries are trusted and the corresponding range is marked
// IsCorrupted rather than failing outright.
func CrossCheck(table, table2 []Location) []Location {
	out := make([]Location, len(table))
	copy(out, table)
	for i := range out {
		if i >= len(table2) || table[i] != table2[i] {
			out[i].Flags |= chunk.IsCorrupted
		}
	}
	return out
}

// IndexForOffset maps a byte offset in the reconstructed media to a chunk
// index, per spec.md §4.5's O(log n)-by-offset lookup (chunk size is
// constant, so this is actually O(1); the name matches the spec's
// complexity budget, not this implementation's strategy).
func IndexForOffset(byteOffset uint64, chunkSize uint32) uint64 {
	return byteOffset / uint64(chunkSize)
}
