// Package section implements the EWF section descriptor: the 76-byte v1
// layout the teacher repo already parses, generalized to a writer. Only the
// v1 layout is implemented: EWF2 segment files are read and written with
// the same 76-byte descriptor, and PreviousOffset is never filled in.
package section

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kordata/ewf/ewferr"
	"github.com/kordata/ewf/internal/codec"
)

// Type is the parsed, NUL-trimmed section type string ("header", "table",
// "sectors", ...). Unknown types keep their name verbatim, so a rewrite
// never loses fidelity.
type Type string

const (
	TypeHeader            Type = "header"
	TypeHeader2           Type = "header2"
	TypeVolume            Type = "volume"
	TypeDisk              Type = "disk"
	TypeData              Type = "data"
	TypeSectors           Type = "sectors"
	TypeTable             Type = "table"
	TypeTable2            Type = "table2"
	TypeLtree             Type = "ltree"
	TypeSession           Type = "session"
	TypeError2            Type = "error2"
	TypeDigest            Type = "digest"
	TypeHash              Type = "hash"
	TypeXHash             Type = "xhash"
	TypeDone              Type = "done"
	TypeNext              Type = "next"
	TypeDeltaChunk        Type = "delta_chunk"
	TypeCaseData          Type = "case_data"
	TypeDeviceInformation Type = "device_information"
	TypeSectorData        Type = "sector_data"
	TypeSectorTable       Type = "sector_table"
	TypeAnalyticalData    Type = "analytical_data"
)

// descriptorV1Size is the fixed on-disk size of a v1 section descriptor:
// 16 (type) + 8 (next) + 8 (size) + 40 (reserved) + 4 (crc).
const descriptorV1Size = 76

// rawV1 is the exact byte layout of a v1 descriptor, read with
// encoding/binary the same way the teacher repo does.
type rawV1 struct {
	TypeDefinition [16]byte
	NextOffset     uint64
	Size           uint64
	Reserved       [40]byte
	Checksum       uint32
}

// Descriptor is the component's in-memory representation of one section,
// independent of v1/v2 wire shape.
// Unknown section types round-trip fine as-is: Type is a plain string, so a
// name the parser has never seen is still preserved verbatim for rewrite.
type Descriptor struct {
	Type           Type
	StartOffset    uint64 // offset of the descriptor itself
	EndOffset      uint64 // StartOffset + Size
	Size           uint64 // includes the descriptor
	NextOffset     uint64 // v1: absolute offset of the next descriptor, 0 = sentinel
	PreviousOffset uint64 // v2 only: reverse-linked list
}

// PayloadOffset is where the section's body begins on disk.
func (d Descriptor) PayloadOffset() uint64 { return d.StartOffset + descriptorV1Size }

// PayloadSize is the number of payload bytes following the descriptor.
func (d Descriptor) PayloadSize() uint64 {
	if d.Size < descriptorV1Size {
		return 0
	}
	return d.Size - descriptorV1Size
}

func typeName(t Type) [16]byte {
	var out [16]byte
	copy(out[:], t)
	return out
}

// ReadAt parses a v1 section descriptor at the given absolute file offset.
// It validates the descriptor checksum and the structural invariants from
// spec.md §4.4: size must cover at least the descriptor itself, and
// next_offset must either be the zero sentinel or strictly greater than the
// descriptor's own offset.
func ReadAt(r io.ReaderAt, offset uint64) (Descriptor, error) {
	buf := make([]byte, descriptorV1Size)
	if _, err := r.ReadAt(buf, int64(offset)); err != nil {
		return Descriptor{}, ewferr.New(ewferr.KindIO, "section.ReadAt", err)
	}

	var raw rawV1
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &raw); err != nil {
		return Descriptor{}, ewferr.New(ewferr.KindCorruptedSection, "section.ReadAt", err)
	}

	computed := codec.CRC32(buf[:descriptorV1Size-4])
	if raw.Checksum != 0 && raw.Checksum != computed {
		return Descriptor{}, ewferr.New(ewferr.KindChecksumMismatch, "section.ReadAt",
			fmt.Errorf("descriptor at %d: checksum %08x != computed %08x", offset, raw.Checksum, computed))
	}

	if raw.Size < descriptorV1Size {
		return Descriptor{}, ewferr.New(ewferr.KindCorruptedSection, "section.ReadAt",
			fmt.Errorf("descriptor at %d: size %d smaller than descriptor", offset, raw.Size))
	}
	if raw.NextOffset != 0 && raw.NextOffset <= offset {
		return Descriptor{}, ewferr.New(ewferr.KindCorruptedSection, "section.ReadAt",
			fmt.Errorf("descriptor at %d: next_offset %d does not advance", offset, raw.NextOffset))
	}

	name := string(bytes.TrimRight(raw.TypeDefinition[:], "\x00"))
	return Descriptor{
		Type:        Type(name),
		StartOffset: offset,
		Size:        raw.Size,
		EndOffset:   offset + raw.Size,
		NextOffset:  raw.NextOffset,
	}, nil
}

// WriteAt serializes d as a v1 descriptor at d.StartOffset, computing the
// checksum over the first 72 bytes as spec.md §6 requires.
func WriteAt(w io.WriterAt, d Descriptor) error {
	raw := rawV1{
		TypeDefinition: typeName(d.Type),
		NextOffset:     d.NextOffset,
		Size:           d.Size,
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, raw.TypeDefinition); err != nil {
		return ewferr.New(ewferr.KindIO, "section.WriteAt", err)
	}
	_ = binary.Write(&buf, binary.LittleEndian, raw.NextOffset)
	_ = binary.Write(&buf, binary.LittleEndian, raw.Size)
	_ = binary.Write(&buf, binary.LittleEndian, raw.Reserved)

	raw.Checksum = codec.CRC32(buf.Bytes())
	_ = binary.Write(&buf, binary.LittleEndian, raw.Checksum)

	if _, err := w.WriteAt(buf.Bytes(), int64(d.StartOffset)); err != nil {
		return ewferr.New(ewferr.KindIO, "section.WriteAt", err)
	}
	return nil
}

// Size returns the fixed v1 descriptor size, exported for callers laying
// out reserved space before a payload is known.
func Size() uint64 { return descriptorV1Size }
