// Package chunk implements Chunk Data (C3): packing a plaintext chunk into
// its on-disk representation (optionally compressed, CRC-32-trailed) and
// unpacking it back, with the empty-block and pattern-fill fast paths
// spec.md §4.3 describes.
package chunk

import (
	"encoding/binary"
	"fmt"

	"github.com/kordata/ewf/ewferr"
	"github.com/kordata/ewf/internal/codec"
)

// Flags records the chunk's packed-representation metadata. Exactly one of
// IsCompressed/HasChecksum is set on a packed, non-pattern chunk.
type Flags uint32

const (
	IsPacked Flags = 1 << iota
	IsCompressed
	HasChecksum
	IsDelta
	IsTainted
	IsCorrupted
	UsesPatternFill
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Data is one logical chunk, buffered in packed and/or unpacked form. Per
// spec.md §3, exactly one of Plain/Packed is authoritative at a time;
// IsPacked in Flags records which.
type Data struct {
	Plain   []byte // unpacked plaintext, length <= chunk size
	Packed  []byte // on-disk bytes: compressed payload, or plaintext+CRC footer
	Flags   Flags
	Pattern uint64 // valid iff Flags.Has(UsesPatternFill)
	Padding int    // EWF2 alignment padding appended after Packed
}

// Options controls how Pack chooses a representation.
type Options struct {
	Method               codec.Method
	Level                int
	ForceCompression     bool // EWF/SMART: always compress, never compare sizes
	AddAlignmentPadding  bool // EWF2: round packed size up to 16 bytes
	CompressedZeroBlock  []byte // cached compressed form of a zero chunk, or nil
}

// Pack builds the on-disk representation of plain, following spec.md §4.3:
//  1. with ForceCompression, always compress;
//  2. otherwise a pattern-filled chunk is flagged UsesPatternFill and stored
//     as its 8-byte pattern, without compressing;
//  3. otherwise a zero chunk reuses the cached CompressedZeroBlock, if set;
//  4. otherwise compress into a scratch buffer and keep it only if it beats
//     plaintext+4-byte CRC footer (MethodNone skips the attempt and always
//     stores plaintext+CRC).
func Pack(plain []byte, chunkSize uint32, opts Options) (Data, error) {
	d := Data{Plain: plain}

	if opts.ForceCompression {
		return packCompressed(d, plain, opts)
	}

	// Pattern-fill is strictly smaller than any compressed representation
	// and bypasses the codec entirely, so it's checked before the
	// zero-block fast path (a zero block is just pattern 0).
	if pattern, ok := codec.DetectPatternFill(plain); ok {
		d.Flags = IsPacked | UsesPatternFill
		d.Pattern = pattern
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], pattern)
		d.Packed = append([]byte(nil), buf[:]...)
		return d, nil
	}

	if codec.IsZeroBlock(plain) && opts.CompressedZeroBlock != nil {
		d.Flags = IsPacked | IsCompressed
		d.Packed = append([]byte(nil), opts.CompressedZeroBlock...)
		return applyAlignment(d, opts), nil
	}

	var compressed []byte
	if opts.Method != codec.MethodNone {
		var err error
		compressed, err = codec.Encode(opts.Method, opts.Level, plain)
		if err != nil {
			return Data{}, ewferr.New(ewferr.KindUnsupportedValue, "chunk.Pack", err)
		}
	}

	// Compressed form wins only if strictly shorter than plaintext plus the
	// 4-byte CRC footer the uncompressed path would otherwise carry.
	if compressed != nil && len(compressed) < len(plain)+4 {
		d.Flags = IsPacked | IsCompressed
		d.Packed = compressed
		return applyAlignment(d, opts), nil
	}

	d.Flags = IsPacked | HasChecksum
	crc := codec.CRC32(plain)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)
	d.Packed = append(append([]byte(nil), plain...), crcBuf[:]...)
	return applyAlignment(d, opts), nil
}

func packCompressed(d Data, plain []byte, opts Options) (Data, error) {
	compressed, err := codec.Encode(opts.Method, opts.Level, plain)
	if err != nil {
		return Data{}, ewferr.New(ewferr.KindUnsupportedValue, "chunk.Pack", err)
	}
	d.Flags = IsPacked | IsCompressed
	d.Packed = compressed
	return applyAlignment(d, opts), nil
}

func applyAlignment(d Data, opts Options) Data {
	if !opts.AddAlignmentPadding {
		return d
	}
	aligned := (len(d.Packed) + 15) &^ 15
	if aligned > len(d.Packed) {
		d.Padding = aligned - len(d.Packed)
		d.Packed = append(d.Packed, make([]byte, d.Padding)...)
	}
	return d
}

// Unpack reverses Pack, given the on-disk bytes and the flags recorded for
// this chunk in the chunk table. unpackedSize is the expected plaintext
// length (chunk size, or the short size of the final chunk). zeroOnError
// controls what Plain contains when verification fails: a zeroed buffer
// (read-path policy) versus leaving Plain nil and only flagging IsCorrupted.
func Unpack(packed []byte, flags Flags, method codec.Method, unpackedSize int, zeroOnError bool) (Data, error) {
	d := Data{Packed: packed, Flags: flags &^ IsPacked}

	if flags.Has(UsesPatternFill) {
		if len(packed) < 8 {
			return Data{}, ewferr.New(ewferr.KindCorruptedSection, "chunk.Unpack",
				fmt.Errorf("pattern-fill chunk payload too short: %d bytes", len(packed)))
		}
		pattern := binary.LittleEndian.Uint64(packed[:8])
		d.Pattern = pattern
		d.Plain = make([]byte, unpackedSize)
		codec.ExpandPattern(pattern, d.Plain)
		return d, nil
	}

	if flags.Has(IsCompressed) {
		dst := make([]byte, unpackedSize)
		n, required, err := codec.Decode(method, packed, dst)
		if err != nil || required != 0 || n != unpackedSize {
			d.Flags |= IsCorrupted
			if zeroOnError {
				d.Plain = make([]byte, unpackedSize)
			}
			return d, nil
		}
		d.Plain = dst
		return d, nil
	}

	// Uncompressed: last 4 bytes are a CRC-32 trailer over the rest.
	if len(packed) < 4 {
		d.Flags |= IsCorrupted
		if zeroOnError {
			d.Plain = make([]byte, unpackedSize)
		}
		return d, nil
	}
	body := packed[:len(packed)-4]
	trailer := binary.LittleEndian.Uint32(packed[len(packed)-4:])
	if codec.CRC32(body) != trailer || len(body) != unpackedSize {
		d.Flags |= IsCorrupted
		if zeroOnError {
			d.Plain = make([]byte, unpackedSize)
		}
		return d, nil
	}
	d.Plain = append([]byte(nil), body...)
	return d, nil
}
