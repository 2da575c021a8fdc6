package gocog

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// defaultReadSize is the size of the single fetch used both for the
// initial header probe and for refetching around each IFD offset. A
// COG's header and first IFD(s) reliably fit in this window; exceeding
// it surfaces as IfdTruncated rather than triggering another round
// trip, matching the "cannot be refetched" framing of that error.
const defaultReadSize = 16 * 1024

// ifdProbeWindow is the minimum span a resident ByteView must cover at
// an IFD offset before readIfd is attempted without a refetch.
const ifdProbeWindow = 1024

// TiffReader is the top-level entry point: it reads the TIFF/BigTIFF
// header, walks the IFD chain, and exposes the resulting Images.
type TiffReader struct {
	source     Source
	metrics    *Metrics
	headerSize uint64
	tileSize   int

	sf singleflight.Group

	version   TiffVersion
	ifdConfig IfdConfig
	ghost     *GhostOptions
	images    []*Image

	initDone bool
	initErr  error
}

// TiffReaderOption configures a TiffReader at construction time.
type TiffReaderOption func(*TiffReader)

// WithMetrics attaches a Metrics instance; every fetch and tile request
// the reader and its Images perform is counted against it.
func WithMetrics(m *Metrics) TiffReaderOption {
	return func(tr *TiffReader) { tr.metrics = m }
}

// NewTiffReader constructs an uninitialized reader over source using
// default header and tile-read sizing. Call Init before using it.
func NewTiffReader(source Source, opts ...TiffReaderOption) *TiffReader {
	return NewTiffReaderEx(source, 0, 0, opts...)
}

// NewTiffReaderEx is NewTiffReader with explicit header and tile read
// sizing; zero values select the defaults.
func NewTiffReaderEx(source Source, headerSize, tileSize int, opts ...TiffReaderOption) *TiffReader {
	tr := &TiffReader{source: source, headerSize: uint64(headerSize), tileSize: tileSize}
	if tr.headerSize == 0 {
		tr.headerSize = defaultReadSize
	}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// CreateTiffReader constructs and initializes a reader in one step, the
// common case for callers that don't need createEx's size overrides.
func CreateTiffReader(ctx context.Context, source Source, opts ...TiffReaderOption) (*TiffReader, error) {
	return CreateTiffReaderEx(ctx, source, 0, 0, opts...)
}

// CreateTiffReaderEx is createEx: construct then Init.
func CreateTiffReaderEx(ctx context.Context, source Source, headerSize, tileSize int, opts ...TiffReaderOption) (*TiffReader, error) {
	tr := NewTiffReaderEx(source, headerSize, tileSize, opts...)
	if err := tr.Init(ctx); err != nil {
		return nil, err
	}
	return tr, nil
}

// Init parses the header and IFD chain. It is idempotent and
// concurrency-safe: concurrent callers collapse into the single
// in-flight parse via singleflight, and once complete, further calls
// return the cached result without touching the Source again.
func (tr *TiffReader) Init(ctx context.Context) error {
	_, err, _ := tr.sf.Do("init", func() (interface{}, error) {
		if tr.initDone {
			return nil, tr.initErr
		}
		err := tr.doInit(ctx)
		tr.initDone = true
		tr.initErr = err
		return nil, err
	})
	return err
}

func (tr *TiffReader) doInit(ctx context.Context) error {
	buf, err := tr.fetchRaw(ctx, 0, tr.headerSize)
	if err != nil {
		return fmt.Errorf("gocog: read header: %w", err)
	}
	view := newByteView(buf, 0)

	firstIfd, headerEnd, err := tr.readHeaderFields(view)
	if err != nil {
		return err
	}

	if err := tr.loadGhostOptions(ctx, view, headerEnd, firstIfd); err != nil {
		return err
	}

	if err := tr.walkIfdChain(ctx, view, firstIfd); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, img := range tr.images {
		img := img
		g.Go(func() error { return img.init(gctx, true) })
	}
	return g.Wait()
}

// readHeaderFields decodes the byte-order mark, version word, and
// first-IFD pointer, and selects ifdConfig. Returns the first IFD
// offset and the byte offset immediately after the fixed header (where
// a GDAL ghost block, if any, begins).
func (tr *TiffReader) readHeaderFields(view *ByteView) (firstIfd, headerEnd uint64, err error) {
	bom := view.uint16(0)
	if bom == tiffByteOrderBE {
		return 0, 0, newErr(KindUnsupportedEndian, "", nil)
	}
	if bom != tiffByteOrderLE {
		return 0, 0, newErr(KindUnsupportedVersion, fmt.Sprintf("bad byte-order mark 0x%04x", bom), nil)
	}

	versionWord := view.uint16(2)
	switch versionWord {
	case versionWordClassic:
		tr.version = VersionClassic
		tr.ifdConfig = ifdConfigFor(VersionClassic)
		firstIfd = uint64(view.uint32(4))
		headerEnd = 8
	case versionWordBig:
		tr.version = VersionBig
		tr.ifdConfig = ifdConfigFor(VersionBig)
		ptrSize := view.uint16(4)
		reserved := view.uint16(6)
		if ptrSize != 8 {
			return 0, 0, newErr(KindUnsupportedPointerSize, fmt.Sprintf("pointer size %d", ptrSize), nil)
		}
		if reserved != 0 {
			return 0, 0, newErr(KindUnsupportedPointerSize, "nonzero reserved word", nil)
		}
		firstIfd = view.uint64(8)
		headerEnd = 16
	default:
		return 0, 0, newErr(KindUnsupportedVersion, fmt.Sprintf("version word %d", versionWord), nil)
	}
	return firstIfd, headerEnd, nil
}

const (
	tiffByteOrderLE = 0x4949
	tiffByteOrderBE = 0x4D4D
)

// loadGhostOptions parses the GDAL key/value block GDAL writes between
// the fixed header and the first IFD, if one is present.
func (tr *TiffReader) loadGhostOptions(ctx context.Context, view *ByteView, headerEnd, firstIfd uint64) error {
	tr.ghost = parseGhostOptions(nil)
	if firstIfd <= headerEnd {
		return nil
	}
	ghostSize := firstIfd - headerEnd
	if ghostSize == 0 || ghostSize >= maxGhostSize {
		return nil
	}

	if view.hasBytes(headerEnd, ghostSize) {
		tr.ghost = parseGhostOptions(view.bytes(headerEnd, ghostSize))
		return nil
	}
	raw, err := tr.fetchRaw(ctx, headerEnd, ghostSize)
	if err != nil {
		return fmt.Errorf("gocog: read ghost block: %w", err)
	}
	tr.ghost = parseGhostOptions(raw)
	return nil
}

// walkIfdChain follows the linked list of IFDs, appending one Image
// per IFD in file order.
func (tr *TiffReader) walkIfdChain(ctx context.Context, view *ByteView, firstIfd uint64) error {
	next := firstIfd
	for next != 0 {
		if !view.hasBytes(next, ifdProbeWindow) {
			size := tr.headerSize
			if size < defaultReadSize {
				size = defaultReadSize
			}
			if known, ok := tr.source.Size(); ok && next+size > known {
				size = known - next
			}
			raw, err := tr.fetchRaw(ctx, next, size)
			if err != nil {
				return fmt.Errorf("gocog: read ifd at %d: %w", next, err)
			}
			view = newByteView(raw, next)
		}

		nextOffset, err := tr.readIfd(next, view)
		if err != nil {
			return err
		}
		next = nextOffset
	}
	return nil
}

// readIfd parses one IFD starting at offset using view, appends its
// Image, and returns the next-IFD pointer.
func (tr *TiffReader) readIfd(offset uint64, view *ByteView) (uint64, error) {
	cfg := tr.ifdConfig
	count := getUint(view, offset, cfg.offset)
	entriesStart := offset + uint64(cfg.offset)
	entryBytes := count * uint64(cfg.entry)

	if !view.hasBytes(entriesStart, entryBytes+uint64(cfg.pointer)) {
		return 0, newErr(KindIfdTruncated, fmt.Sprintf("ifd at %d needs %d entries", offset, count), nil)
	}

	img := &Image{reader: tr, index: len(tr.images), tags: make(map[uint16]*Tag, count)}
	for i := uint64(0); i < count; i++ {
		entryOffset := entriesStart + i*uint64(cfg.entry)
		tag, err := newTag(cfg, view, entryOffset)
		if err != nil {
			return 0, err
		}
		img.tags[tag.ID] = tag
	}
	tr.images = append(tr.images, img)

	nextIfd := getUint(view, entriesStart+entryBytes, cfg.pointer)
	return nextIfd, nil
}

// fetchRaw issues one Source fetch, recording it against Metrics.
func (tr *TiffReader) fetchRaw(ctx context.Context, offset, length uint64) ([]byte, error) {
	buf, err := tr.source.Fetch(ctx, offset, length)
	if err != nil {
		return nil, err
	}
	tr.metrics.observeFetch(len(buf))
	return buf, nil
}

// Images returns the read-only, header-ordered slice of Images.
// images[0] is the full-resolution base image.
func (tr *TiffReader) Images() []*Image {
	return tr.images
}

// GetResolutions returns the x/y/z resolution of every image, in
// header order.
func (tr *TiffReader) GetResolutions(ctx context.Context) ([][3]float64, error) {
	out := make([][3]float64, len(tr.images))
	for i, img := range tr.images {
		res, err := img.resolution(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

// GetImageByResolution performs a ceiling search over the pyramid by
// x-resolution: it returns the first image, in header order, whose
// resolution is ≥ r−0.01, clamping to the last image if r exceeds every
// available resolution. See DESIGN.md for why this differs from a
// literal "≤" reading of the resolution-selection rule.
func (tr *TiffReader) GetImageByResolution(ctx context.Context, r float64) (*Image, error) {
	if len(tr.images) == 0 {
		return nil, newErr(KindIndexOutOfBounds, "no images", nil)
	}
	const tolerance = 0.01
	for _, img := range tr.images {
		res, err := img.resolution(ctx)
		if err != nil {
			return nil, err
		}
		if res[0] >= r-tolerance {
			return img, nil
		}
	}
	return tr.images[len(tr.images)-1], nil
}
