package section

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kordata/ewf/internal/codec"
)

func TestFileHeaderRoundTripEWF1(t *testing.T) {
	wire := EncodeFileHeader(FileHeader{IsEWF2: false, SegmentNumber: 1})
	require.Len(t, wire, FileHeaderSizeV1)

	got, err := DecodeFileHeader(wire)
	require.NoError(t, err)
	require.False(t, got.IsEWF2)
	require.Equal(t, uint32(1), got.SegmentNumber)
}

func TestFileHeaderRoundTripEWF2(t *testing.T) {
	id := uuid.New()
	wire := EncodeFileHeader(FileHeader{
		IsEWF2:            true,
		CompressionMethod:  codec.MethodBzip2,
		SetIdentifier:      id,
		SegmentNumber:      3,
	})
	require.Len(t, wire, FileHeaderSizeV2)

	got, err := DecodeFileHeader(wire)
	require.NoError(t, err)
	require.True(t, got.IsEWF2)
	require.Equal(t, uint8(2), got.MajorVersion)
	require.Equal(t, codec.MethodBzip2, got.CompressionMethod)
	require.Equal(t, id, got.SetIdentifier)
	require.Equal(t, uint32(3), got.SegmentNumber)
}

func TestDecodeFileHeaderRejectsBadSignature(t *testing.T) {
	_, err := DecodeFileHeader(make([]byte, FileHeaderSizeV1))
	require.Error(t, err)
}
