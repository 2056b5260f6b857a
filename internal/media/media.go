// Package media implements the Media Values component (C8): the disk/
// volume section payload and the fixed geometry derived from it. Layout is
// lifted from the teacher's DiskSMART struct (spec.md §6's 1052-byte body),
// generalized with a Format enum covering both EWF v1 variants and EWF2.
package media

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/kordata/ewf/ewferr"
	"github.com/kordata/ewf/internal/codec"
)

// Format identifies the segment-file family, which in turn determines
// section layout, default compression codec, and segment-count caps.
type Format int

const (
	FormatUnknown Format = iota
	FormatEWF            // SMART / original EWF
	FormatSMART
	FormatFTKImager
	FormatEnCase1
	FormatEnCase2
	FormatEnCase3
	FormatEnCase4
	FormatEnCase5
	FormatEnCase6
	FormatEnCase7
	FormatLinen5
	FormatLinen6
	FormatLinen7
	FormatLogicalEnCase5
	FormatLogicalEnCase6
	FormatLogicalEnCase7
	FormatEWFX
	FormatEWF2EnCase7
	FormatEWF2LogicalEnCase7
)

// IsEWF2 reports whether the format uses the v2 (EnCase7) segment layout.
func (f Format) IsEWF2() bool {
	return f == FormatEWF2EnCase7 || f == FormatEWF2LogicalEnCase7
}

// IsLogical reports whether the format stores a logical evidence file
// rather than a physical device image.
func (f Format) IsLogical() bool {
	switch f {
	case FormatLogicalEnCase5, FormatLogicalEnCase6, FormatLogicalEnCase7, FormatEWF2LogicalEnCase7:
		return true
	default:
		return false
	}
}

// DefaultCodec returns the compression method associated with the format:
// bzip2 for the EWF2 variants, deflate for every other format. Whether a
// chunk must always be compressed is a separate property (AlwaysCompress).
func (f Format) DefaultCodec() codec.Method {
	if f == FormatEWF2EnCase7 || f == FormatEWF2LogicalEnCase7 {
		return codec.MethodBzip2
	}
	return codec.MethodDeflate
}

// AlwaysCompress reports whether every chunk must be compressed regardless
// of whether compression actually shrinks it (the original EWF/SMART
// formats, see spec.md §4.3 FORCE_COMPRESSION note).
func (f Format) AlwaysCompress() bool {
	return f == FormatEWF || f == FormatSMART
}

// MaximumSegments is the segment-count limit for this format (spec.md §4.6,
// §4.9): Extension rejects any larger segment number, and the writer
// refuses to rotate past it.
func (f Format) MaximumSegments() int {
	switch {
	case f.IsEWF2():
		return 99999
	case f == FormatSMART:
		return 4831
	default:
		return 14295
	}
}

// Extension returns the base segment-file extension letter(s) for segment
// number n (1-based), e.g. "E01", "E99", "EAA". Delta files use a separate
// convention handled by the segment package.
func (f Format) Extension(n int) (string, error) {
	if n < 1 || n > f.MaximumSegments() {
		return "", fmt.Errorf("media: segment number %d out of range for format", n)
	}
	letter := "E"
	if f.IsLogical() {
		letter = "L"
	}
	if f == FormatSMART {
		letter = "S"
	}
	ext, ok := segmentSuffix(letter[0], n)
	if !ok {
		return "", fmt.Errorf("media: segment number %d out of range for format", n)
	}
	return ext, nil
}

// segmentSuffix implements the base-26-after-99 numbering from spec.md §4.6,
// always three characters: 1..99 -> letter+"01".."99"; from 100 on the two
// digits become two letters "AA".."ZZ", and each further run of 676 numbers
// advances the leading letter (E99, EAA..EZZ, FAA..FZZ, ...). ok is false
// once the leading letter would pass 'Z'.
func segmentSuffix(letter byte, n int) (string, bool) {
	if n <= 99 {
		return fmt.Sprintf("%c%02d", letter, n), true
	}
	n -= 100
	lead := int(letter) + n/(26*26)
	if lead > 'Z' {
		return "", false
	}
	rem := n % (26 * 26)
	return fmt.Sprintf("%c%c%c", lead, 'A'+rem/26, 'A'+rem%26), true
}

// Values holds the geometry of the acquired media. It is immutable after
// Open per spec.md §3.
type Values struct {
	MediaType       uint8
	MediaFlags      uint8
	ChunkSize       uint32 // SectorsPerChunk * BytesPerSector
	SectorsPerChunk uint32
	BytesPerSector  uint32
	MediaSize       uint64 // in bytes
	NumberOfSectors uint64
	NumberOfChunks  uint64
	CHSCylinders    uint32
	CHSHeads        uint32
	CHSSectors      uint32
	ErrorGranularity uint32
	CompressionLevel uint8
	SetIdentifier    uuid.UUID
}

// NumberOfChunksFor returns ceil(mediaSize / chunkSize), the number_of_chunks
// invariant from spec.md §3.
func NumberOfChunksFor(mediaSize uint64, chunkSize uint32) uint64 {
	if chunkSize == 0 {
		return 0
	}
	n := mediaSize / uint64(chunkSize)
	if mediaSize%uint64(chunkSize) != 0 {
		n++
	}
	return n
}

// LastChunkSize returns the (possibly short) size of the final chunk.
func (v Values) LastChunkSize() uint32 {
	if v.NumberOfChunks == 0 {
		return 0
	}
	rem := v.MediaSize % uint64(v.ChunkSize)
	if rem == 0 {
		return v.ChunkSize
	}
	return uint32(rem)
}

// Validate enforces the invariant chunk_size == sectors_per_chunk *
// bytes_per_sector and that the two 32-bit fields are positive.
func (v Values) Validate() error {
	if v.SectorsPerChunk == 0 || v.BytesPerSector == 0 {
		return ewferr.New(ewferr.KindCorruptedSection, "media.Validate",
			fmt.Errorf("sectors_per_chunk and bytes_per_sector must be positive"))
	}
	if v.ChunkSize != v.SectorsPerChunk*v.BytesPerSector {
		return ewferr.New(ewferr.KindFormatFieldMismatch, "media.Validate",
			fmt.Errorf("chunk_size %d != sectors_per_chunk(%d) * bytes_per_sector(%d)",
				v.ChunkSize, v.SectorsPerChunk, v.BytesPerSector))
	}
	return nil
}

// wireVolume is the 1052-byte v1 volume/disk payload, laid out at the exact
// byte offsets the format specifies: media_type@0, number_of_chunks@3,
// sectors_per_chunk@7, bytes_per_sector@11, number_of_sectors@15, CHS@31,
// media_flags@43, palm_volume_start_sector@51, smart_logs_start_sector@59,
// compression_level@63, error_granularity@67, set_identifier@75, checksum@1048.
type wireVolume struct {
	MediaType             uint8
	_                     [2]byte
	ChunkCount            uint32
	ChunkSectors          uint32
	SectorBytes           uint32
	SectorsCount          uint64
	_                     [8]byte
	CHSCylinders          uint32
	CHSHeads              uint32
	CHSSectors            uint32
	MediaFlags            uint8
	_                     [7]byte
	PalmVolumeStartSector uint32
	_                     [4]byte
	SmartLogsStartSector  uint32
	CompressionLevel      uint8
	_                     [3]byte
	ErrorGranularity      uint32
	_                     [4]byte
	SetIdentifier         [16]byte
	_                     [957]byte
	Checksum              uint32
}

const wireVolumeSize = 1052

// DecodeVolume parses the fixed-size v1 volume/disk section payload.
func DecodeVolume(payload []byte) (Values, error) {
	if len(payload) < wireVolumeSize {
		return Values{}, ewferr.New(ewferr.KindCorruptedSection, "media.DecodeVolume",
			fmt.Errorf("payload is %d bytes, want %d", len(payload), wireVolumeSize))
	}
	var w wireVolume
	if err := binary.Read(bytes.NewReader(payload[:wireVolumeSize]), binary.LittleEndian, &w); err != nil {
		return Values{}, ewferr.New(ewferr.KindCorruptedSection, "media.DecodeVolume", err)
	}

	computed := codec.CRC32(payload[:wireVolumeSize-4])
	if w.Checksum != 0 && w.Checksum != computed {
		return Values{}, ewferr.New(ewferr.KindChecksumMismatch, "media.DecodeVolume",
			fmt.Errorf("volume checksum %08x != computed %08x", w.Checksum, computed))
	}

	v := Values{
		MediaType:        w.MediaType,
		MediaFlags:       w.MediaFlags,
		SectorsPerChunk:  w.ChunkSectors,
		BytesPerSector:   w.SectorBytes,
		NumberOfSectors:  w.SectorsCount,
		NumberOfChunks:   uint64(w.ChunkCount),
		CHSCylinders:     w.CHSCylinders,
		CHSHeads:         w.CHSHeads,
		CHSSectors:       w.CHSSectors,
		ErrorGranularity: w.ErrorGranularity,
		CompressionLevel: w.CompressionLevel,
		SetIdentifier:    uuid.UUID(w.SetIdentifier),
	}
	v.ChunkSize = v.SectorsPerChunk * v.BytesPerSector
	v.MediaSize = v.NumberOfSectors * uint64(v.BytesPerSector)
	return v, nil
}

// EncodeVolume serializes v into the fixed-size v1 volume/disk payload.
func EncodeVolume(v Values) []byte {
	w := wireVolume{
		MediaType:        v.MediaType,
		ChunkCount:       uint32(v.NumberOfChunks),
		ChunkSectors:     v.SectorsPerChunk,
		SectorBytes:      v.BytesPerSector,
		SectorsCount:     v.NumberOfSectors,
		CHSCylinders:     v.CHSCylinders,
		CHSHeads:         v.CHSHeads,
		CHSSectors:       v.CHSSectors,
		MediaFlags:       v.MediaFlags,
		CompressionLevel: v.CompressionLevel,
		ErrorGranularity: v.ErrorGranularity,
		SetIdentifier:    [16]byte(v.SetIdentifier),
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, w)
	full := buf.Bytes()[:wireVolumeSize]
	checksum := codec.CRC32(full[:wireVolumeSize-4])
	binary.LittleEndian.PutUint32(full[wireVolumeSize-4:wireVolumeSize], checksum)
	return full
}
