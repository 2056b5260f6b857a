package segment

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/kordata/ewf/internal/media"
	"github.com/kordata/ewf/internal/section"
)

func TestFilenameForFollowsFormatExtension(t *testing.T) {
	tbl := New(media.FormatEnCase6, "/images", "case001")
	p, err := tbl.FilenameFor(1)
	require.NoError(t, err)
	require.Equal(t, "/images/case001.E01", p)

	p, err = tbl.FilenameFor(100)
	require.NoError(t, err)
	require.Equal(t, "/images/case001.EAA", p)
}

func TestDeltaFilenameFor(t *testing.T) {
	tbl := New(media.FormatEnCase6, "/images", "case001")
	require.Equal(t, "/images/case001.D01", tbl.DeltaFilenameFor(1))
}

func TestAppendFileNumbersSequentially(t *testing.T) {
	tbl := New(media.FormatEnCase6, "/images", "case001")
	f1 := tbl.AppendFile("/images/case001.E01", 0)
	f2 := tbl.AppendFile("/images/case001.E02", 1)
	require.Equal(t, 1, f1.Number)
	require.Equal(t, 2, f2.Number)
	require.Equal(t, 2, tbl.Count())
	require.NoError(t, tbl.ValidateOrder())
}

func TestHasDoneReflectsLastSection(t *testing.T) {
	f := &File{}
	require.False(t, f.HasDone())
	f.Sections = append(f.Sections, section.Descriptor{Type: section.TypeSectors})
	require.False(t, f.HasDone())
	f.Sections = append(f.Sections, section.Descriptor{Type: section.TypeDone})
	require.True(t, f.HasDone())
}

func TestNextIsFinalRotatesWhenOversized(t *testing.T) {
	tbl := New(media.FormatEnCase6, "/images", "case001")
	require.True(t, tbl.NextIsFinal(1_000_000_000, 32768, 1_000_000_000))
	require.False(t, tbl.NextIsFinal(100, 32768, 1_000_000_000))
}

func TestParseStem(t *testing.T) {
	dir, stem := ParseStem("/images/case001.E01")
	require.Equal(t, "/images", dir)
	require.Equal(t, "case001", stem)
}
