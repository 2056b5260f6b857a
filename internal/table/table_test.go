package table

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/kordata/ewf/internal/chunk"
)

func TestSetGrowsTableAndGetRoundTrips(t *testing.T) {
	tb := New(2)
	require.Equal(t, 2, tb.Len())

	loc, err := tb.Get(0)
	require.NoError(t, err)
	require.True(t, loc.Unset())

	tb.Set(5, Location{PoolEntry: 1, FileOffset: 100, Size: 32768})
	require.Equal(t, 6, tb.Len())

	got, err := tb.Get(5)
	require.NoError(t, err)
	require.Equal(t, uint64(100), got.FileOffset)
}

func TestGetOutOfRange(t *testing.T) {
	tb := New(1)
	_, err := tb.Get(5)
	require.Error(t, err)
}

func TestTruncateDropsTailAndShrinks(t *testing.T) {
	tb := New(4)
	for i := uint64(0); i < 4; i++ {
		tb.Set(i, Location{PoolEntry: 0, FileOffset: i * 100, Size: 100})
	}
	tb.Truncate(2)
	require.Equal(t, 2, tb.Len())
	_, err := tb.Get(2)
	require.Error(t, err)
}

func TestEncodeDecodeTableHeaderV1RoundTrip(t *testing.T) {
	wire := EncodeTableV1(1024, []uint32{0, 100, 200}, []bool{false, true, false})
	count, base, err := DecodeTableHeaderV1(wire)
	require.NoError(t, err)
	require.Equal(t, uint32(3), count)
	require.Equal(t, uint64(1024), base)

	raw, err := DecodeEntriesV1(wire[tableHeaderSize:], count)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 100, 200}, raw.Offsets)
	require.Equal(t, []bool{false, true, false}, raw.Compressed)
}

func TestResolveV1InfersSizeFromNextOffset(t *testing.T) {
	raw := RawEntriesV1{
		Offsets:    []uint32{0, 100, 250},
		Compressed: []bool{false, true, false},
	}
	locs := ResolveV1(raw, 2048, 400, 3)
	require.Len(t, locs, 3)
	require.Equal(t, uint32(100), locs[0].Size)
	require.Equal(t, uint32(150), locs[1].Size)
	require.Equal(t, uint32(150), locs[2].Size)
	require.Equal(t, uint64(2048), locs[0].FileOffset)
	require.True(t, locs[1].Flags.Has(chunk.IsCompressed))
	require.True(t, locs[0].Flags.Has(chunk.HasChecksum))
}

func TestEncodeDecodeEntriesV2RoundTrip(t *testing.T) {
	locs := []Location{
		{FileOffset: 10, Size: 32768, Flags: chunk.IsPacked | chunk.IsCompressed},
		{FileOffset: 40000, Size: 4096, Flags: chunk.IsPacked | chunk.HasChecksum},
	}
	wire := EncodeEntriesV2(locs)
	got, err := DecodeEntriesV2(wire, 2, 7)
	require.NoError(t, err)
	require.Equal(t, uint64(10), got[0].FileOffset)
	require.Equal(t, int32(7), got[0].PoolEntry)
	require.Equal(t, uint32(4096), got[1].Size)
}

func TestCrossCheckFlagsMismatch(t *testing.T) {
	a := []Location{{FileOffset: 1}, {FileOffset: 2}}
	b := []Location{{FileOffset: 1}, {FileOffset: 999}}
	out := CrossCheck(a, b)
	require.False(t, out[0].Flags.Has(chunk.IsCorrupted))
	require.True(t, out[1].Flags.Has(chunk.IsCorrupted))
}

func TestIndexForOffset(t *testing.T) {
	require.Equal(t, uint64(0), IndexForOffset(0, 32768))
	require.Equal(t, uint64(1), IndexForOffset(32768, 32768))
	require.Equal(t, uint64(1), IndexForOffset(40000, 32768))
}
