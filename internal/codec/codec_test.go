package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC32MatchesAdler(t *testing.T) {
	// EWF's "checksum" is defined as Adler-32; pin the well-known vector.
	require.Equal(t, uint32(0x00620062), CRC32([]byte{0x61}))
}

func TestDeflateRoundTrip(t *testing.T) {
	src := make([]byte, 32768)
	for i := range src {
		src[i] = byte(i % 251)
	}

	compressed, err := Encode(MethodDeflate, 0, src)
	require.NoError(t, err)
	require.Less(t, len(compressed), len(src))

	dst := make([]byte, len(src))
	n, needed, err := Decode(MethodDeflate, compressed, dst)
	require.NoError(t, err)
	require.Zero(t, needed)
	require.Equal(t, len(src), n)
	require.Equal(t, src, dst)
}

func TestDecodeUndersizedBufferReportsRequiredCapacity(t *testing.T) {
	src := make([]byte, 4096)
	compressed, err := Encode(MethodDeflate, 0, src)
	require.NoError(t, err)

	dst := make([]byte, 10)
	n, needed, err := Decode(MethodDeflate, compressed, dst)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, len(src), needed)
}

func TestBzip2RoundTrip(t *testing.T) {
	src := []byte("the quick brown fox jumps over the lazy dog, repeated. " +
		"the quick brown fox jumps over the lazy dog, repeated.")

	compressed, err := Encode(MethodBzip2, 0, src)
	require.NoError(t, err)

	dst := make([]byte, len(src))
	n, needed, err := Decode(MethodBzip2, compressed, dst)
	require.NoError(t, err)
	require.Zero(t, needed)
	require.Equal(t, src, dst[:n])
}

func TestIsZeroBlock(t *testing.T) {
	require.True(t, IsZeroBlock(make([]byte, 1024)))
	buf := make([]byte, 1024)
	buf[1000] = 1
	require.False(t, IsZeroBlock(buf))
}

func TestDetectPatternFill(t *testing.T) {
	buf := make([]byte, 64)
	for i := 0; i < len(buf); i += 8 {
		copy(buf[i:], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	}
	pattern, ok := DetectPatternFill(buf)
	require.True(t, ok)

	expanded := make([]byte, 64)
	ExpandPattern(pattern, expanded)
	require.Equal(t, buf, expanded)

	buf[40] = 0xff
	_, ok = DetectPatternFill(buf)
	require.False(t, ok)
}
