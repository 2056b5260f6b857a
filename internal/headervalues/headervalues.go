// Package headervalues implements the header/header2/xheader key-value
// table and EnCase7 case_data table, generalized from the teacher's
// ParseHeader (laenix-ewfgo/internal/ewf.go), which zlib-inflates the
// section payload, sniffs a UTF-16 BOM via golang.org/x/text, then splits
// the "flags" and "values" tab-separated rows. Per spec.md §3/§9 the
// individual header-value keys are an opaque string-split contract: for
// header/header2/xheader this package only parses the table shape. The
// case_data table is the one exception, decoded into typed fields (CaseData).
package headervalues

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/kordata/ewf/ewferr"
	"github.com/kordata/ewf/internal/codec"
)

// Table is a parsed header/header2/xheader/case_data section: an ordered
// list of column keys and one or more value rows, matching the wire
// shape's "number of rows \n main \n keys \n values..." layout.
type Table struct {
	Keys []string
	Rows [][]string
}

// Get returns the value of key in row 0, the common case of a single-row
// header table.
func (t Table) Get(key string) (string, bool) {
	if len(t.Rows) == 0 {
		return "", false
	}
	return t.GetRow(0, key)
}

// GetRow returns the value of key in the given row index.
func (t Table) GetRow(row int, key string) (string, bool) {
	if row < 0 || row >= len(t.Rows) {
		return "", false
	}
	for i, k := range t.Keys {
		if k == key && i < len(t.Rows[row]) {
			return t.Rows[row][i], true
		}
	}
	return "", false
}

// decodeText detects a UTF-16 BOM per the teacher's byte-sniff (big-endian
// FE FF, little-endian FF FE) and transcodes to UTF-8; bare text with no
// recognized BOM is assumed to already be UTF-8/ASCII.
func decodeText(raw []byte) string {
	if len(raw) >= 2 {
		switch {
		case raw[0] == 0xfe && raw[1] == 0xff:
			dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
			if out, _, err := transform.Bytes(dec, raw); err == nil {
				return string(out)
			}
		case raw[0] == 0xff && raw[1] == 0xfe:
			dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
			if out, _, err := transform.Bytes(dec, raw); err == nil {
				return string(out)
			}
		}
	}
	return string(raw)
}

// encodeText re-encodes text for writing. useUTF16LE selects the header2/
// xheader wide-character form (with a leading BOM); otherwise the text is
// written as-is (the v1 "header" section is plain UTF-8/ASCII).
func encodeText(text string, useUTF16LE bool) ([]byte, error) {
	if !useUTF16LE {
		return []byte(text), nil
	}
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	out, _, err := transform.Bytes(enc, []byte(text))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Decode inflates a zlib-compressed header/header2/xheader/case_data
// section payload and parses its key/value table. EWF header sections are
// always zlib-wrapped deflate regardless of the image's chunk compression
// method (spec.md §9), matching the teacher's use of compress/zlib.
func Decode(payload []byte) (Table, error) {
	r, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return Table{}, ewferr.New(ewferr.KindCorruptedSection, "headervalues.Decode", err)
	}
	defer r.Close()

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, r); err != nil {
		return Table{}, ewferr.New(ewferr.KindCorruptedSection, "headervalues.Decode", err)
	}

	text := decodeText(raw.Bytes())
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	return parseLines(lines)
}

// parseLines expects the EWF header table shape: line 0 is a row count
// (ignored, since len(lines) already tells us), line 1 is "main" (or
// similar section marker, ignored), line 2 is the tab-separated key row,
// and every line after that up to a blank line is a tab-separated value
// row.
func parseLines(lines []string) (Table, error) {
	if len(lines) < 3 {
		return Table{}, ewferr.New(ewferr.KindCorruptedSection, "headervalues.parseLines",
			fmt.Errorf("header table has %d lines, need at least 3", len(lines)))
	}
	keys := strings.Split(lines[2], "\t")

	var rows [][]string
	for _, line := range lines[3:] {
		if strings.TrimSpace(line) == "" {
			break
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	return Table{Keys: keys, Rows: rows}, nil
}

// Encode serializes t back into a zlib-compressed header/header2/xheader
// payload. useUTF16LE selects the header2/xheader wide form.
func Encode(t Table, useUTF16LE bool) ([]byte, error) {
	var body strings.Builder
	fmt.Fprintf(&body, "1\n")
	fmt.Fprintf(&body, "main\n")
	body.WriteString(strings.Join(t.Keys, "\t"))
	body.WriteString("\n")
	for _, row := range t.Rows {
		body.WriteString(strings.Join(row, "\t"))
		body.WriteString("\n")
	}
	body.WriteString("\n")

	encoded, err := encodeText(body.String(), useUTF16LE)
	if err != nil {
		return nil, ewferr.New(ewferr.KindInvalidArgument, "headervalues.Encode", err)
	}

	var out bytes.Buffer
	w := zlib.NewWriter(&out)
	if _, err := w.Write(encoded); err != nil {
		return nil, ewferr.New(ewferr.KindIO, "headervalues.Encode", err)
	}
	if err := w.Close(); err != nil {
		return nil, ewferr.New(ewferr.KindIO, "headervalues.Encode", err)
	}
	return out.Bytes(), nil
}

// CaseData is the EnCase7 case_data table, spec.md §8.4's concrete
// scenario: a single-row table whose header is
// "nm cn en ex nt av os tt at tb cp sb gr wb" and whose fields this
// function names explicitly rather than leaving as an opaque key lookup,
// since case_data (unlike header/header2/xheader) is part of this
// package's typed contract.
type CaseData struct {
	Description            string
	CaseNumber              string
	EvidenceNumber          string
	ExaminerName            string
	Notes                   string
	AcquirySoftwareVersion  string
	AcquiryOperatingSystem  string
	SystemDate              int64 // tt, canonicalized to a Unix epoch second count
	AcquiryDate             int64 // at, canonicalized to a Unix epoch second count
	NumberOfChunks          uint64
	CompressionMethod       codec.Method
	SectorsPerChunk         uint64
	ErrorGranularity        uint64
	WriteBlocked            string
}

// DecodeCaseData parses a case_data section payload (zlib-wrapped, same
// table shape as header/header2) into the typed field set spec.md §8.4
// enumerates. tt/at are already decimal Unix epoch seconds on the wire;
// canonicalizing them is just the strconv.ParseInt every other date header
// format needs a real decoder for. Fields that fail to parse are left at
// their zero value rather than failing the whole section.
func DecodeCaseData(payload []byte) (CaseData, error) {
	t, err := Decode(payload)
	if err != nil {
		return CaseData{}, err
	}
	get := func(key string) string {
		v, _ := t.Get(key)
		return v
	}
	parseInt := func(key string) int64 {
		n, _ := strconv.ParseInt(get(key), 10, 64)
		return n
	}
	parseUint := func(key string) uint64 {
		n, _ := strconv.ParseUint(get(key), 10, 64)
		return n
	}
	return CaseData{
		Description:            get("nm"),
		CaseNumber:              get("cn"),
		EvidenceNumber:          get("en"),
		ExaminerName:            get("ex"),
		Notes:                   get("nt"),
		AcquirySoftwareVersion:  get("av"),
		AcquiryOperatingSystem:  get("os"),
		SystemDate:              parseInt("tt"),
		AcquiryDate:             parseInt("at"),
		NumberOfChunks:          parseUint("tb"),
		CompressionMethod:       codec.Method(parseUint("cp")),
		SectorsPerChunk:         parseUint("sb"),
		ErrorGranularity:        parseUint("gr"),
		WriteBlocked:            get("wb"),
	}, nil
}

// EncodeCaseData serializes c into a case_data section payload.
func EncodeCaseData(c CaseData) ([]byte, error) {
	t := Table{
		Keys: []string{"nm", "cn", "en", "ex", "nt", "av", "os", "tt", "at", "tb", "cp", "sb", "gr", "wb"},
		Rows: [][]string{{
			c.Description, c.CaseNumber, c.EvidenceNumber, c.ExaminerName, c.Notes,
			c.AcquirySoftwareVersion, c.AcquiryOperatingSystem,
			strconv.FormatInt(c.SystemDate, 10), strconv.FormatInt(c.AcquiryDate, 10),
			strconv.FormatUint(c.NumberOfChunks, 10), strconv.FormatUint(uint64(c.CompressionMethod), 10),
			strconv.FormatUint(c.SectorsPerChunk, 10), strconv.FormatUint(c.ErrorGranularity, 10),
			c.WriteBlocked,
		}},
	}
	return Encode(t, true)
}
