package ewf

import (
	"go.uber.org/zap"

	"github.com/kordata/ewf/internal/codec"
	"github.com/kordata/ewf/internal/headervalues"
	"github.com/kordata/ewf/internal/media"
)

// Option configures a Handle at Open/Create time, the functional-options
// pattern the teacher's exported constructors favor (NewWithFilePath et
// al.), generalized to a variadic option list so new knobs don't keep
// growing the constructor's signature.
type Option func(*config)

type config struct {
	logger              *zap.Logger
	format              media.Format
	method              codec.Method
	level               int
	maxSegmentSize      uint64
	maxOpenFiles        int
	chunkCacheSize      int
	zeroOnError         bool
	addAlignmentPadding bool
	resume              bool
	headerValues        *headervalues.Table
	caseData            *headervalues.CaseData
}

func defaultConfig() config {
	return config{
		logger:         zap.NewNop(),
		format:         media.FormatEnCase6,
		method:         codec.MethodDeflate,
		level:          6,
		maxSegmentSize: 1024 * 1024 * 1024 * 1024, // effectively unbounded until WithMaxSegmentSize
		maxOpenFiles:   64,
		chunkCacheSize: 256,
		zeroOnError:    true,
	}
}

// WithLogger supplies a zap.Logger for diagnostic messages. The default is
// zap.NewNop(): the library never forces logging on an embedder, matching
// the WAL writer pattern it borrows this option from.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFormat selects the segment-file family written by Create. It has no
// effect on Open, which detects the format from the file header.
func WithFormat(f media.Format) Option {
	return func(c *config) { c.format = f }
}

// WithCompression selects the codec and level Create uses to pack chunks.
func WithCompression(method codec.Method, level int) Option {
	return func(c *config) {
		c.method = method
		c.level = level
	}
}

// WithMaxSegmentSize caps the size a single segment file may grow to
// before the writer rotates to the next one.
func WithMaxSegmentSize(bytes uint64) Option {
	return func(c *config) { c.maxSegmentSize = bytes }
}

// WithMaxOpenFiles caps how many segment file descriptors the block I/O
// pool keeps open concurrently, evicting LRU beyond that.
func WithMaxOpenFiles(n int) Option {
	return func(c *config) { c.maxOpenFiles = n }
}

// WithChunkCacheSize caps how many unpacked chunks the read engine keeps
// cached.
func WithChunkCacheSize(n int) Option {
	return func(c *config) { c.chunkCacheSize = n }
}

// WithZeroOnError controls whether a read of a corrupted/unreadable chunk
// returns zeroed bytes (default, matching most forensic tooling's
// best-effort posture) or fails the call.
func WithZeroOnError(zero bool) Option {
	return func(c *config) { c.zeroOnError = zero }
}

// WithEWF2AlignmentPadding enables the 16-byte chunk-data alignment EWF2
// (EnCase7) segment files use; it has no effect when the selected format
// isn't an EWF2 variant.
func WithEWF2AlignmentPadding(enabled bool) Option {
	return func(c *config) { c.addAlignmentPadding = enabled }
}

// WithResume opens an existing image in resume mode: Open back-traces to
// the last complete table section of the last segment file, truncates away
// any bytes an interrupted chunks section left behind, and leaves the
// returned Handle ready to keep writing with WriteChunk from there
// (spec.md §4.5). It has no effect on Create.
func WithResume(resume bool) Option {
	return func(c *config) { c.resume = resume }
}

// WithHeaderValues supplies the header/header2 key-value table Create
// writes into the new image's header section. The default is a minimal
// table recording the acquisition time and platform.
func WithHeaderValues(t headervalues.Table) Option {
	return func(c *config) { c.headerValues = &t }
}

// WithCaseData supplies the EnCase7 case_data fields Create writes. EWF2-
// family formats always get a case_data section; for v1 formats one is
// written only when this option is given.
func WithCaseData(cd headervalues.CaseData) Option {
	return func(c *config) { c.caseData = &cd }
}
