// Package codec implements the stateless byte-level transforms EWF chunks
// are built from: the Adler-32-derived "checksum" the format calls a CRC,
// deflate/bzip2 compression, and the empty-block/pattern-fill shortcuts the
// writer uses to avoid compressing degenerate chunks.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/adler32"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
)

// Method identifies the compressor used to pack a chunk's payload.
type Method uint8

const (
	// MethodNone stores the chunk plaintext with a trailing CRC-32 footer
	// (chunk.Pack); Encode and Decode have no codec for it.
	MethodNone Method = iota
	// MethodDeflate is the only compressor EWF v1 images may use.
	MethodDeflate
	// MethodBzip2 is only valid for EWF2 (EnCase7) images.
	MethodBzip2
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodDeflate:
		return "deflate"
	case MethodBzip2:
		return "bzip2"
	default:
		return fmt.Sprintf("method(%d)", uint8(m))
	}
}

// CRC32 computes the EWF "checksum": libewf and the reference implementation
// both define it as the Adler-32 of buf, not a true CRC-32. Keeping the
// misleading name "CRC" is intentional — it is what the on-disk format and
// every EWF tool call it.
func CRC32(buf []byte) uint32 {
	return adler32.Checksum(buf)
}

// Encode compresses src with the requested method and level. level is
// interpreted as the flate/bzip2 compression level (1-9), with 0 meaning
// "use the method's default".
func Encode(method Method, level int, src []byte) ([]byte, error) {
	switch method {
	case MethodDeflate:
		return encodeDeflate(level, src)
	case MethodBzip2:
		return encodeBzip2(level, src)
	default:
		return nil, fmt.Errorf("codec: method %s has no encoder", method)
	}
}

func encodeDeflate(level int, src []byte) ([]byte, error) {
	if level == 0 {
		level = flate.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("codec: deflate writer: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("codec: deflate write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: deflate close: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeBzip2(level int, src []byte) ([]byte, error) {
	if level == 0 {
		level = bzip2.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: level})
	if err != nil {
		return nil, fmt.Errorf("codec: bzip2 writer: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("codec: bzip2 write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: bzip2 close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses src into a buffer of at most dstCapacity bytes. When
// the decompressed payload would not fit, it returns (0, requiredSize, nil)
// so the caller can reallocate and retry — chunk sizes are bounded by the
// media's chunk_size, so this only happens on a corrupted descriptor.
func Decode(method Method, src []byte, dst []byte) (n int, requiredCapacity int, err error) {
	var r io.Reader
	switch method {
	case MethodDeflate:
		fr := flate.NewReader(bytes.NewReader(src))
		defer fr.Close()
		r = fr
	case MethodBzip2:
		br, err := bzip2.NewReader(bytes.NewReader(src), nil)
		if err != nil {
			return 0, 0, fmt.Errorf("codec: bzip2 reader: %w", err)
		}
		defer br.Close()
		r = br
	default:
		return 0, 0, fmt.Errorf("codec: method %s has no decoder", method)
	}

	n, err = io.ReadFull(r, dst)
	switch {
	case err == nil:
		// dst was filled exactly; confirm the stream is now exhausted, else
		// the caller's buffer was too small and must be grown.
		residual, rerr := io.Copy(io.Discard, r)
		if rerr != nil {
			return 0, 0, fmt.Errorf("codec: decode: %w", rerr)
		}
		if residual > 0 {
			return 0, len(dst) + int(residual), nil
		}
		return n, 0, nil
	case err == io.ErrUnexpectedEOF || err == io.EOF:
		return n, 0, nil
	default:
		return 0, 0, fmt.Errorf("codec: decode: %w", err)
	}
}

// IsZeroBlock reports whether buf consists entirely of zero bytes.
func IsZeroBlock(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// DetectPatternFill reports whether buf is entirely made up of one repeating
// 8-byte pattern, returning that pattern. A chunk like this can be encoded
// in the table/table2 "pattern fill" representation instead of being stored
// or compressed in full.
func DetectPatternFill(buf []byte) (pattern uint64, ok bool) {
	if len(buf) < 8 || len(buf)%8 != 0 {
		return 0, false
	}
	pattern = binary.LittleEndian.Uint64(buf[:8])
	for i := 8; i < len(buf); i += 8 {
		if binary.LittleEndian.Uint64(buf[i:i+8]) != pattern {
			return 0, false
		}
	}
	return pattern, true
}

// ExpandPattern fills dst with the repeating 8-byte pattern.
func ExpandPattern(pattern uint64, dst []byte) {
	var p [8]byte
	binary.LittleEndian.PutUint64(p[:], pattern)
	for i := 0; i < len(dst); i += 8 {
		n := copy(dst[i:], p[:])
		_ = n
	}
}
