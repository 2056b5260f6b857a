package ewf

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/kordata/ewf/ewferr"
	"github.com/kordata/ewf/internal/chunk"
	"github.com/kordata/ewf/internal/headervalues"
	"github.com/kordata/ewf/internal/media"
	"github.com/kordata/ewf/internal/section"
	"github.com/kordata/ewf/internal/table"
)

// writeFileHeaderSection writes the segment file signature header for
// segmentNumber into entry, returning the offset the first section
// descriptor follows at.
func (h *Handle) writeFileHeaderSection(entry, segmentNumber int) (int64, error) {
	fh := section.EncodeFileHeader(section.FileHeader{
		IsEWF2:            h.format.IsEWF2(),
		CompressionMethod: h.cfg.method,
		SetIdentifier:     h.mv.SetIdentifier,
		SegmentNumber:     uint32(segmentNumber),
	})
	if _, err := h.pool.WriteAt(entry, fh, 0); err != nil {
		return 0, ewferr.New(ewferr.KindIO, "ewf.writeFileHeaderSection", err)
	}
	return int64(len(fh)), nil
}

// writeSectionPayload writes a complete section (descriptor + payload) at
// off, returning the offset the next section begins at. It is used for
// every section whose payload is known in full up front (header, volume,
// case_data, table/table2, hash); the "sectors" section is special-cased
// since its payload streams in over many WriteChunk calls and its
// descriptor can only be written retroactively (see closeChunksSection).
func (h *Handle) writeSectionPayload(entry int, typ section.Type, off int64, payload []byte) (int64, error) {
	w := h.pool.At(entry)
	if len(payload) > 0 {
		if _, err := w.WriteAt(payload, off+int64(section.Size())); err != nil {
			return 0, ewferr.New(ewferr.KindIO, "ewf.writeSectionPayload", err)
		}
	}
	size := section.Size() + uint64(len(payload))
	d := section.Descriptor{Type: typ, StartOffset: uint64(off), Size: size, NextOffset: uint64(off) + size}
	if err := section.WriteAt(w, d); err != nil {
		return 0, err
	}
	return off + int64(size), nil
}

// writeTerminalSection writes a zero-payload done/next section, the
// sentinel (NextOffset == 0) that ends a segment file's section chain.
func (h *Handle) writeTerminalSection(entry int, typ section.Type, off int64) (int64, error) {
	d := section.Descriptor{Type: typ, StartOffset: uint64(off), Size: section.Size(), NextOffset: 0}
	if err := section.WriteAt(h.pool.At(entry), d); err != nil {
		return 0, err
	}
	return off + int64(section.Size()), nil
}

// startSegmentSections writes the fixed "start of segment" sections every
// segment file opens with (spec.md §4.9 step 1): the file header always;
// header/header2/case_data only for the image's first segment (later
// segments share the same acquisition metadata, so repeating it would just
// be dead weight); then a volume/disk section every segment carries, so a
// reader that only ever opens one segment still has complete geometry.
func (h *Handle) startSegmentSections(entry, segmentNumber int, writeMetadata bool) (int64, error) {
	cursor, err := h.writeFileHeaderSection(entry, segmentNumber)
	if err != nil {
		return 0, err
	}

	if writeMetadata {
		headerPayload, err := headervalues.Encode(h.defaultHeaderTable(), false)
		if err != nil {
			return 0, ewferr.New(ewferr.KindIO, "ewf.startSegmentSections", err)
		}
		cursor, err = h.writeSectionPayload(entry, section.TypeHeader, cursor, headerPayload)
		if err != nil {
			return 0, err
		}

		if !h.format.AlwaysCompress() {
			header2Payload, err := headervalues.Encode(h.defaultHeaderTable(), true)
			if err != nil {
				return 0, ewferr.New(ewferr.KindIO, "ewf.startSegmentSections", err)
			}
			cursor, err = h.writeSectionPayload(entry, section.TypeHeader2, cursor, header2Payload)
			if err != nil {
				return 0, err
			}
		}

		if h.format.IsEWF2() || h.cfg.caseData != nil {
			cd := h.buildCaseData()
			cdPayload, err := headervalues.EncodeCaseData(cd)
			if err != nil {
				return 0, ewferr.New(ewferr.KindIO, "ewf.startSegmentSections", err)
			}
			cursor, err = h.writeSectionPayload(entry, section.TypeCaseData, cursor, cdPayload)
			if err != nil {
				return 0, err
			}
			h.caseData = cd
		}
	}

	volumeType := section.TypeVolume
	if h.format == media.FormatEWF || h.format == media.FormatSMART {
		volumeType = section.TypeDisk
	}
	volumePayload := media.EncodeVolume(h.mv)
	cursor, err = h.writeSectionPayload(entry, volumeType, cursor, volumePayload)
	if err != nil {
		return 0, err
	}
	return cursor, nil
}

// defaultHeaderTable returns the caller-supplied header table (WithHeaderValues)
// or a minimal one recording the stem, acquisition tool and timestamp,
// matching the shape the teacher's own test fixtures use.
func (h *Handle) defaultHeaderTable() headervalues.Table {
	if h.cfg.headerValues != nil {
		return *h.cfg.headerValues
	}
	stem := ""
	if h.segTable != nil {
		stem = h.segTable.Stem
	}
	return headervalues.Table{
		Keys: []string{"c", "n", "a", "e", "t", "av", "ov", "m"},
		Rows: [][]string{{stem, "", "", "", "", "kordata-ewf", runtime.GOOS, strconv.FormatInt(time.Now().Unix(), 10)}},
	}
}

// buildCaseData assembles the EnCase7 case_data fields Create writes,
// layering the caller-supplied overrides (WithCaseData) under the geometry
// values derived from the image's media values.
func (h *Handle) buildCaseData() headervalues.CaseData {
	cd := headervalues.CaseData{}
	if h.cfg.caseData != nil {
		cd = *h.cfg.caseData
	}
	if cd.CaseNumber == "" && h.segTable != nil {
		cd.CaseNumber = h.segTable.Stem
	}
	cd.NumberOfChunks = h.mv.NumberOfChunks
	cd.SectorsPerChunk = uint64(h.mv.SectorsPerChunk)
	cd.ErrorGranularity = uint64(h.mv.ErrorGranularity)
	cd.CompressionMethod = h.cfg.method
	return cd
}

// openChunksSection records where a new chunks section's payload begins,
// so WriteChunk can append raw packed bytes there and closeChunksSection
// can later compute the descriptor it never got to write up front.
func (h *Handle) openChunksSection(entry int, descStart int64, firstIndex uint64) {
	h.sectorsEntry = entry
	h.sectorsDescStart = descStart
	h.segmentFirstIndex = firstIndex
	h.write.MarkChunksOpen(entry, descStart+int64(section.Size()))
}

// closeChunksSection finishes the currently open chunks section: it asks
// the write engine how many payload bytes landed there (internal/writeio's
// CloseChunksSection, wired here rather than left dead), emits the table
// (and, for v1 formats, the redundant table2) section spec.md §4.9 step 4
// requires, and retroactively writes the sectors section descriptor whose
// size could only be known once the run was complete. final selects
// between rotating to a new segment ("next" trailer) and closing out the
// whole image ("hash" + "done").
func (h *Handle) closeChunksSection(final bool) error {
	if h.sectorsEntry < 0 {
		return nil
	}
	entry := h.sectorsEntry
	sectorsStart := h.sectorsDescStart
	sectorsPayloadStart := uint64(sectorsStart) + section.Size()

	payloadSize, err := h.write.CloseChunksSection(entry)
	if err != nil {
		return err
	}
	sectorsSize := section.Size() + payloadSize
	tableStart := uint64(sectorsStart) + sectorsSize

	lastIndex := h.write.NumberOfChunksWritten()
	firstIndex := h.segmentFirstIndex
	count := lastIndex - firstIndex

	locs := make([]table.Location, count)
	for i := uint64(0); i < count; i++ {
		loc, err := h.chunks.Get(firstIndex + i)
		if err != nil {
			return err
		}
		locs[i] = loc
	}

	var cursor int64
	if h.format.IsEWF2() {
		payload := table.EncodeEntriesV2(locs)
		cursor, err = h.writeSectionPayload(entry, section.TypeTable, int64(tableStart), payload)
		if err != nil {
			return err
		}
	} else {
		relOffsets := make([]uint32, count)
		compressed := make([]bool, count)
		for i, loc := range locs {
			relOffsets[i] = uint32(loc.FileOffset - sectorsPayloadStart)
			compressed[i] = loc.Flags.Has(chunk.IsCompressed)
		}
		payload := table.EncodeTableV1(sectorsPayloadStart, relOffsets, compressed)
		tableEnd, err := h.writeSectionPayload(entry, section.TypeTable, int64(tableStart), payload)
		if err != nil {
			return err
		}
		cursor, err = h.writeSectionPayload(entry, section.TypeTable2, tableEnd, payload)
		if err != nil {
			return err
		}
	}

	sectorsDesc := section.Descriptor{Type: section.TypeSectors, StartOffset: uint64(sectorsStart), Size: sectorsSize, NextOffset: tableStart}
	if err := section.WriteAt(h.pool.At(entry), sectorsDesc); err != nil {
		return err
	}
	h.sectorsEntry = -1

	if final {
		return h.writeFinalTrailer(entry, cursor)
	}
	_, err = h.writeTerminalSection(entry, section.TypeNext, cursor)
	return err
}

// writeFinalTrailer closes out the image: a hash section holding the
// running MD5 digest writeio.Engine accumulated over every plaintext
// chunk, then the terminal done section.
func (h *Handle) writeFinalTrailer(entry int, cursor int64) error {
	digest := h.write.Digest()
	cursor, err := h.writeSectionPayload(entry, section.TypeHash, cursor, digest)
	if err != nil {
		return err
	}
	_, err = h.writeTerminalSection(entry, section.TypeDone, cursor)
	return err
}

// rotateSegment closes out the current segment file's chunks section,
// opens the next numbered segment file, and starts a fresh chunks section
// there. Called with h.mu held, never from inside writeio's own lock.
func (h *Handle) rotateSegment() error {
	if err := h.closeChunksSection(false); err != nil {
		return err
	}

	next := h.segTable.Count() + 1
	if next > h.format.MaximumSegments() {
		return ewferr.New(ewferr.KindFormatLimitExceeded, "ewf.rotateSegment",
			fmt.Errorf("segment number %d exceeds format maximum", next))
	}
	path, err := h.segTable.FilenameFor(next)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return ewferr.New(ewferr.KindIO, "ewf.rotateSegment", err)
	}
	if err := f.Close(); err != nil {
		return ewferr.New(ewferr.KindIO, "ewf.rotateSegment", err)
	}

	entry := h.pool.Add(path, openerFor(path))
	h.segTable.AppendFile(path, entry)

	cursor, err := h.startSegmentSections(entry, next, false)
	if err != nil {
		return err
	}

	firstIndex := h.write.NumberOfChunksWritten()
	h.alloc.entry = entry
	h.alloc.offset = cursor + int64(section.Size())
	h.openChunksSection(entry, cursor, firstIndex)
	return nil
}
