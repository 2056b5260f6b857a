package chunk

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/kordata/ewf/internal/codec"
)

func randomish(n int) []byte {
	buf := make([]byte, n)
	x := uint32(12345)
	for i := range buf {
		x = x*1664525 + 1013904223
		buf[i] = byte(x >> 24)
	}
	return buf
}

func TestPackUnpackRoundTripCompressible(t *testing.T) {
	// Periodic but not an 8-byte repeat, so pattern fill does not apply and
	// the deflate path is exercised.
	plain := make([]byte, 32768)
	for i := range plain {
		plain[i] = byte(i % 251)
	}
	opts := Options{Method: codec.MethodDeflate}

	packed, err := Pack(plain, 32768, opts)
	require.NoError(t, err)
	require.True(t, packed.Flags.Has(IsCompressed))

	unpacked, err := Unpack(packed.Packed, packed.Flags, codec.MethodDeflate, len(plain), false)
	require.NoError(t, err)
	require.False(t, unpacked.Flags.Has(IsCorrupted))
	require.Equal(t, plain, unpacked.Plain)
}

func TestPackUnpackRoundTripIncompressible(t *testing.T) {
	plain := randomish(32768)
	opts := Options{Method: codec.MethodDeflate}

	packed, err := Pack(plain, 32768, opts)
	require.NoError(t, err)
	require.True(t, packed.Flags.Has(HasChecksum))
	require.Len(t, packed.Packed, len(plain)+4)

	unpacked, err := Unpack(packed.Packed, packed.Flags, codec.MethodDeflate, len(plain), false)
	require.NoError(t, err)
	require.False(t, unpacked.Flags.Has(IsCorrupted))
	require.Equal(t, plain, unpacked.Plain)
}

func TestPackZeroBlockUsesPatternFill(t *testing.T) {
	plain := make([]byte, 32768)
	packed, err := Pack(plain, 32768, Options{Method: codec.MethodDeflate})
	require.NoError(t, err)
	require.True(t, packed.Flags.Has(UsesPatternFill))
	require.Len(t, packed.Packed, 8)

	unpacked, err := Unpack(packed.Packed, packed.Flags, codec.MethodDeflate, len(plain), false)
	require.NoError(t, err)
	require.Equal(t, plain, unpacked.Plain)
}

func TestUnpackDetectsCorruption(t *testing.T) {
	plain := randomish(4096)
	packed, err := Pack(plain, 4096, Options{Method: codec.MethodDeflate})
	require.NoError(t, err)

	tampered := append([]byte(nil), packed.Packed...)
	tampered[0] ^= 0xFF

	unpacked, err := Unpack(tampered, packed.Flags, codec.MethodDeflate, len(plain), true)
	require.NoError(t, err)
	require.True(t, unpacked.Flags.Has(IsCorrupted))
	require.Equal(t, make([]byte, len(plain)), unpacked.Plain)
}

func TestForceCompressionAlwaysCompresses(t *testing.T) {
	plain := randomish(4096)
	packed, err := Pack(plain, 4096, Options{Method: codec.MethodDeflate, ForceCompression: true})
	require.NoError(t, err)
	require.True(t, packed.Flags.Has(IsCompressed))
}
