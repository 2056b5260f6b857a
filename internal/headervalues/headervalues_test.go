package headervalues

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kordata/ewf/internal/codec"
)

func TestHeaderTableRoundTrip(t *testing.T) {
	tbl := Table{
		Keys: []string{"c", "n", "a", "e", "t", "av", "ov", "m"},
		Rows: [][]string{{"CASE-1", "EV-1", "desc", "examiner", "notes", "7.0", "linux", "1700000000"}},
	}
	payload, err := Encode(tbl, false)
	require.NoError(t, err)

	got, err := Decode(payload)
	require.NoError(t, err)
	v, ok := got.Get("c")
	require.True(t, ok)
	require.Equal(t, "CASE-1", v)
	v, ok = got.Get("av")
	require.True(t, ok)
	require.Equal(t, "7.0", v)
}

func TestHeaderTableRoundTripUTF16LE(t *testing.T) {
	tbl := Table{
		Keys: []string{"c", "n"},
		Rows: [][]string{{"CASE-2", "EV-2"}},
	}
	payload, err := Encode(tbl, true)
	require.NoError(t, err)

	got, err := Decode(payload)
	require.NoError(t, err)
	v, ok := got.Get("n")
	require.True(t, ok)
	require.Equal(t, "EV-2", v)
}

func TestCaseDataRoundTrip(t *testing.T) {
	c := CaseData{
		Description:            "sample acquisition",
		CaseNumber:              "2026-001",
		EvidenceNumber:          "EV-01",
		ExaminerName:            "J. Doe",
		Notes:                   "routine image",
		AcquirySoftwareVersion:  "7.0.0",
		AcquiryOperatingSystem:  "Windows 11",
		SystemDate:              1753920000,
		AcquiryDate:             1753920000,
		NumberOfChunks:          8000,
		CompressionMethod:       codec.MethodDeflate,
		SectorsPerChunk:         64,
		ErrorGranularity:        64,
		WriteBlocked:            "1",
	}
	payload, err := EncodeCaseData(c)
	require.NoError(t, err)

	got, err := DecodeCaseData(payload)
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestCaseDataDecodeScenarioFour(t *testing.T) {
	raw := "nm\tcn\ten\tex\tnt\tav\tos\ttt\tat\ttb\tcp\tsb\tgr\twb\n" +
		"usb-name\tcase\tevid\texam\tnotes\t7.4.1.10\tWindows 7\t1341342491\t1341342445\t8000\t1\t64\t64\t"
	lines := []string{"1", "main"}
	lines = append(lines, strings.Split(raw, "\n")...)
	tbl, err := parseLines(lines)
	require.NoError(t, err)
	payload, err := Encode(tbl, true)
	require.NoError(t, err)

	got, err := DecodeCaseData(payload)
	require.NoError(t, err)
	require.Equal(t, "usb-name", got.Description)
	require.Equal(t, "case", got.CaseNumber)
	require.Equal(t, "evid", got.EvidenceNumber)
	require.Equal(t, "exam", got.ExaminerName)
	require.Equal(t, "notes", got.Notes)
	require.Equal(t, "7.4.1.10", got.AcquirySoftwareVersion)
	require.Equal(t, "Windows 7", got.AcquiryOperatingSystem)
	require.Equal(t, int64(1341342491), got.SystemDate)
	require.Equal(t, int64(1341342445), got.AcquiryDate)
	require.Equal(t, uint64(8000), got.NumberOfChunks)
	require.Equal(t, codec.MethodDeflate, got.CompressionMethod)
	require.Equal(t, uint64(64), got.SectorsPerChunk)
	require.Equal(t, uint64(64), got.ErrorGranularity)
}

func TestDecodeAcceptsZeroRowsAndRejectsNonZlib(t *testing.T) {
	payload, err := Encode(Table{Keys: []string{"c"}}, false)
	require.NoError(t, err)
	_, err = Decode(payload)
	require.NoError(t, err) // well-formed with zero rows is valid

	_, err = Decode([]byte("not zlib data"))
	require.Error(t, err)
}
