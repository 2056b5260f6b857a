package section

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/kordata/ewf/ewferr"
	"github.com/kordata/ewf/internal/codec"
)

// FileHeaderSizeV1 is the fixed 13-byte EWF1 segment file signature header.
const FileHeaderSizeV1 = 13

// FileHeaderSizeV2 is the fixed 36-byte EWF2 (EnCase7) signature header:
// magic(8) + major(1) + minor(1) + compression_method(2) + set_identifier(16)
// + segment_number(4) + crc(4).
const FileHeaderSizeV2 = 36

// signatureLen is how many bytes must be read before the version (and so the
// total header length) is known.
const signatureLen = 8

var (
	signatureEWF  = [8]byte{'E', 'V', 'F', 0x09, 0x0d, 0x0a, 0xff, 0x00}
	signatureEWF2 = [8]byte{'E', 'V', 'F', 0x32, 0x0d, 0x0a, 0x81, 0x00}
)

type wireFileHeaderV1 struct {
	Signature     [8]byte
	FieldsStart   uint8
	SegmentNumber uint16
	FieldsEnd     uint16
}

type wireFileHeaderV2 struct {
	Signature         [8]byte
	MajorVersion      uint8
	MinorVersion      uint8
	CompressionMethod uint16
	SetIdentifier     [16]byte
	SegmentNumber     uint32
	Checksum          uint32
}

// FileHeader is the decoded segment file signature, covering both the
// fixed 13-byte EWF1 layout and the variable 36-byte EWF2 layout.
type FileHeader struct {
	IsEWF2            bool
	MajorVersion      uint8        // EWF2 only
	MinorVersion      uint8        // EWF2 only
	CompressionMethod codec.Method // EWF2 only
	SetIdentifier     uuid.UUID    // EWF2 only
	SegmentNumber     uint32
}

// FileHeaderSize returns the on-disk size of the signature header for the
// given version, so callers can size their initial read before the version
// is known from the payload itself.
func FileHeaderSize(isEWF2 bool) int {
	if isEWF2 {
		return FileHeaderSizeV2
	}
	return FileHeaderSizeV1
}

// DecodeFileHeader parses a segment file's signature header. buf must hold
// at least signatureLen bytes; if it holds fewer than the version's full
// header size, DecodeFileHeader reports how many more bytes are needed via
// ewferr.KindIO so the caller can re-read.
func DecodeFileHeader(buf []byte) (FileHeader, error) {
	if len(buf) < signatureLen {
		return FileHeader{}, ewferr.New(ewferr.KindIO, "section.DecodeFileHeader",
			fmt.Errorf("buffer is %d bytes, want at least %d", len(buf), signatureLen))
	}
	var sig [8]byte
	copy(sig[:], buf[:signatureLen])

	switch sig {
	case signatureEWF:
		if len(buf) < FileHeaderSizeV1 {
			return FileHeader{}, ewferr.New(ewferr.KindIO, "section.DecodeFileHeader",
				fmt.Errorf("buffer is %d bytes, want %d for EWF1 header", len(buf), FileHeaderSizeV1))
		}
		var w wireFileHeaderV1
		if err := binary.Read(bytes.NewReader(buf[:FileHeaderSizeV1]), binary.LittleEndian, &w); err != nil {
			return FileHeader{}, ewferr.New(ewferr.KindIO, "section.DecodeFileHeader", err)
		}
		return FileHeader{IsEWF2: false, SegmentNumber: uint32(w.SegmentNumber)}, nil

	case signatureEWF2:
		if len(buf) < FileHeaderSizeV2 {
			return FileHeader{}, ewferr.New(ewferr.KindIO, "section.DecodeFileHeader",
				fmt.Errorf("buffer is %d bytes, want %d for EWF2 header", len(buf), FileHeaderSizeV2))
		}
		var w wireFileHeaderV2
		if err := binary.Read(bytes.NewReader(buf[:FileHeaderSizeV2]), binary.LittleEndian, &w); err != nil {
			return FileHeader{}, ewferr.New(ewferr.KindIO, "section.DecodeFileHeader", err)
		}
		computed := codec.CRC32(buf[:FileHeaderSizeV2-4])
		if w.Checksum != 0 && w.Checksum != computed {
			return FileHeader{}, ewferr.New(ewferr.KindChecksumMismatch, "section.DecodeFileHeader",
				fmt.Errorf("file header checksum %08x != computed %08x", w.Checksum, computed))
		}
		return FileHeader{
			IsEWF2:            true,
			MajorVersion:      w.MajorVersion,
			MinorVersion:      w.MinorVersion,
			CompressionMethod: codec.Method(w.CompressionMethod),
			SetIdentifier:     uuid.UUID(w.SetIdentifier),
			SegmentNumber:     w.SegmentNumber,
		}, nil

	default:
		return FileHeader{}, ewferr.New(ewferr.KindFormatMagicMismatch, "section.DecodeFileHeader",
			fmt.Errorf("unrecognized segment signature % x", sig))
	}
}

// EncodeFileHeader serializes the segment file signature header, choosing
// the 13-byte EWF1 or 36-byte EWF2 layout from h.IsEWF2.
func EncodeFileHeader(h FileHeader) []byte {
	if !h.IsEWF2 {
		w := wireFileHeaderV1{
			Signature:     signatureEWF,
			FieldsStart:   1,
			SegmentNumber: uint16(h.SegmentNumber),
		}
		var buf bytes.Buffer
		_ = binary.Write(&buf, binary.LittleEndian, w)
		return buf.Bytes()
	}

	major := h.MajorVersion
	if major == 0 {
		major = 2
	}
	w := wireFileHeaderV2{
		Signature:         signatureEWF2,
		MajorVersion:      major,
		MinorVersion:      h.MinorVersion,
		CompressionMethod: uint16(h.CompressionMethod),
		SetIdentifier:     [16]byte(h.SetIdentifier),
		SegmentNumber:     h.SegmentNumber,
	}
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, w)
	full := buf.Bytes()[:FileHeaderSizeV2]
	checksum := codec.CRC32(full[:FileHeaderSizeV2-4])
	binary.LittleEndian.PutUint32(full[FileHeaderSizeV2-4:FileHeaderSizeV2], checksum)
	return full
}
