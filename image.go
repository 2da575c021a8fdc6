package gocog

import (
	"context"
	"math"
	"strconv"
	"sync"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Baseline and GeoTIFF tag ids Image cares about directly (beyond the
// offset-array ids already declared in tag.go).
const (
	TagNewSubFileType            = 254
	TagImageWidth                = 256
	TagImageLength                = 257
	TagBitsPerSample             = 258
	TagCompression               = 259
	TagPhotometricInterpretation = 262
	TagSamplesPerPixel           = 277
	TagTileWidth                 = 322
	TagTileLength                = 323
	TagJPEGTables                = 347
	TagSampleFormat              = 339
	TagGDALMetadata              = 42112
	TagGDALNoData                = 42113

	TagModelPixelScale     = 33550
	TagModelTiepoint       = 33922
	TagModelTransformation = 34264
	TagGeoKeyDirectory     = 34735
	TagGeoDoubleParams     = 34736
	TagGeoAsciiParams      = 34737
)

// Recognized GeoKeys (GeoTIFF 1.1 registry, the subset this reader
// exposes by id without interpreting further).
const (
	GTModelTypeGeoKey    = 1024
	GTRasterTypeGeoKey   = 1025
	GTCitationGeoKey     = 1026
	GeographicTypeGeoKey = 2048
	GeogCitationGeoKey   = 2049
	ProjectedCSTypeGeoKey = 3072
	PCSCitationGeoKey    = 3073
)

// geoKeyUndefined is the GeoTIFF sentinel meaning "this key has no
// value", used by ProjectedCSTypeGeoKey/GeographicTypeGeoKey.
const geoKeyUndefined = 32767

// Compression codes (TIFF 6.0 plus GDAL/GeoTIFF extensions) this
// reader must recognize to classify a tile's payload; it never decodes
// pixels, only tags the bytes with a MIME type.
const (
	CompressionNone    = 1
	CompressionLZW     = 5
	CompressionOldJPEG = 6
	CompressionJPEG    = 7
	CompressionDeflate = 8
	CompressionWebP    = 50001
)

// TileBounds is the pixel rectangle a tile covers within its image,
// clamped at the right/bottom edge.
type TileBounds struct {
	X, Y, W, H int
}

// TileData is the opaque byte payload returned for a tile or strip,
// tagged with the MIME type implied by the image's Compression tag.
type TileData struct {
	MimeType string
	Bytes    []byte
}

// Image is the per-IFD accessor surface: tag lookup, GeoKey unpacking,
// derived geometry, and tile/strip retrieval. index 0 is always the
// full-resolution base image; index>0 are progressively coarser
// overviews or mask sub-images (NewSubFileType==1).
type Image struct {
	reader *TiffReader
	index  int
	tags   map[uint16]*Tag

	sf singleflight.Group

	geoMu           sync.Mutex
	isGeoTagsLoaded bool
	geoKeys         map[uint16]interface{}
}

// Index returns this image's position in TiffReader.Images().
func (img *Image) Index() int { return img.index }

// value returns a tag's decoded value without triggering I/O: the
// Inline value, or an Offset/Lazy value iff already fetched.
func (img *Image) value(id uint16) (interface{}, bool) {
	tag, ok := img.tags[id]
	if !ok {
		return nil, false
	}
	return tag.valueIfReady()
}

// fetch returns tag's decoded value, fetching it from the Source if
// necessary. Concurrent fetches of the same tag collapse into one
// Source call via the per-image singleflight group (spec 9: per-tag
// fetch de-duplication, flagged there as a suggested improvement).
func (img *Image) fetch(ctx context.Context, tag *Tag) (interface{}, error) {
	if v, ready := tag.valueIfReady(); ready {
		return v, nil
	}
	key := strconv.Itoa(int(tag.ID))
	v, err, _ := img.sf.Do(key, func() (interface{}, error) {
		if v, ready := tag.valueIfReady(); ready {
			return v, nil
		}
		length := tag.fetchLength()
		raw, err := img.reader.fetchRaw(ctx, tag.valueOffset, length)
		if err != nil {
			return nil, err
		}
		if uint64(len(raw)) < length {
			return nil, newErr(KindShortRead, tagDetail(tag.ID, tag.Type), nil)
		}
		view := newByteView(raw, tag.valueOffset)
		decoded := decodeValue(view, tag.valueOffset, tag.Type, tag.Count)
		tag.store(decoded)
		return decoded, nil
	})
	return v, err
}

// fetchByID looks a tag up by id and fetches it; a missing tag yields
// (nil, nil), matching spec's "Missing tag: null".
func (img *Image) fetchByID(ctx context.Context, id uint16) (interface{}, error) {
	tag, ok := img.tags[id]
	if !ok {
		return nil, nil
	}
	return img.fetch(ctx, tag)
}

func (img *Image) fetchUint(ctx context.Context, id uint16) (uint64, bool, error) {
	v, err := img.fetchByID(ctx, id)
	if err != nil {
		return 0, false, err
	}
	s := asUint64Slice(v)
	if len(s) == 0 {
		return 0, false, nil
	}
	return s[0], true, nil
}

func (img *Image) fetchFloats(ctx context.Context, id uint16) ([]float64, error) {
	v, err := img.fetchByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return asFloat64Slice(v), nil
}

// importantTags is the tag set Init eagerly fetches per spec 4.F, in
// addition to the GeoTIFF sub-directory tags when loadGeoTags is set.
var importantTags = []uint16{
	TagSamplesPerPixel, TagSampleFormat, TagBitsPerSample, TagCompression,
	TagImageLength, TagImageWidth,
	TagModelPixelScale, TagModelTiepoint, TagModelTransformation,
	TagTileLength, TagTileWidth,
}

var geoDirectoryTags = []uint16{TagGeoKeyDirectory, TagGeoAsciiParams, TagGeoDoubleParams}

// init concurrently warms the important-tag set and, if loadGeoTags,
// unpacks the GeoKeyDirectory afterward.
func (img *Image) init(ctx context.Context, loadGeoTags bool) error {
	ids := importantTags
	if loadGeoTags {
		ids = append(append([]uint16(nil), importantTags...), geoDirectoryTags...)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := img.fetchByID(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if !loadGeoTags {
		return nil
	}
	return img.loadGeoTiffTags(ctx)
}

// loadGeoTiffTags unpacks the GeoKeyDirectory tag, if present, into
// img.geoKeys. Idempotent: a second call is a no-op, and concurrent
// callers collapse into one unpack via the singleflight group.
func (img *Image) loadGeoTiffTags(ctx context.Context) error {
	_, err, _ := img.sf.Do("geoKeys", func() (interface{}, error) {
		img.geoMu.Lock()
		loaded := img.isGeoTagsLoaded
		img.geoMu.Unlock()
		if loaded {
			return nil, nil
		}

		dirTag, ok := img.tags[TagGeoKeyDirectory]
		if !ok {
			img.publishGeoKeys(map[uint16]interface{}{})
			return nil, nil
		}
		dirVal, err := img.fetch(ctx, dirTag)
		if err != nil {
			return nil, err
		}
		dir := asUint64Slice(dirVal)
		if len(dir) < 4 {
			return nil, newErr(KindGeoKeyMalformed, "short GeoKeyDirectory header", nil)
		}

		ascii, err := img.geoAsciiParams(ctx)
		if err != nil {
			return nil, err
		}
		doubles, err := img.fetchFloats(ctx, TagGeoDoubleParams)
		if err != nil {
			return nil, err
		}

		keys, err := img.unpackGeoKeys(ctx, dir, ascii, doubles)
		if err != nil {
			return nil, err
		}
		img.publishGeoKeys(keys)
		return nil, nil
	})
	return err
}

func (img *Image) publishGeoKeys(keys map[uint16]interface{}) {
	img.geoMu.Lock()
	img.geoKeys = keys
	img.isGeoTagsLoaded = true
	img.geoMu.Unlock()
}

func (img *Image) geoAsciiParams(ctx context.Context) (string, error) {
	v, err := img.fetchByID(ctx, TagGeoAsciiParams)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// unpackGeoKeys decodes the GeoKeyDirectory 4-tuple header followed by
// numberOfKeys 4-tuples {keyId, tiffTagLocation, count, valueOrOffset},
// per spec 4.F.
func (img *Image) unpackGeoKeys(ctx context.Context, dir []uint64, ascii string, doubles []float64) (map[uint16]interface{}, error) {
	numKeys := int(dir[3])
	keys := make(map[uint16]interface{}, numKeys)

	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+3 >= len(dir) {
			return nil, newErr(KindGeoKeyMalformed, "truncated geokey entry", nil)
		}
		keyID := uint16(dir[base])
		location := uint16(dir[base+1])
		count := int(dir[base+2])
		valueOrOffset := dir[base+3]

		var v interface{}
		var err error
		switch location {
		case 0:
			v = valueOrOffset
		case TagGeoAsciiParams:
			v, err = sliceAsciiGeoKey(ascii, valueOrOffset, count)
		case TagGeoDoubleParams:
			v, err = sliceDoubleGeoKey(doubles, valueOrOffset, count)
		default:
			v, err = img.foreignGeoKeyValue(ctx, location, valueOrOffset, count)
		}
		if err != nil {
			return nil, err
		}
		keys[keyID] = v
	}
	return keys, nil
}

func sliceAsciiGeoKey(ascii string, offset uint64, count int) (string, error) {
	if count == 0 {
		return "", nil
	}
	start := int(offset)
	end := start + count - 1 // drop the trailing '|' delimiter
	if start < 0 || end < start || end > len(ascii) {
		return "", newErr(KindGeoKeyMalformed, "ascii geokey out of range", nil)
	}
	return ascii[start:end], nil
}

func sliceDoubleGeoKey(doubles []float64, offset uint64, count int) (interface{}, error) {
	start := int(offset)
	end := start + count
	if start < 0 || end < start || end > len(doubles) {
		return nil, newErr(KindGeoKeyMalformed, "double geokey out of range", nil)
	}
	if count == 1 {
		return doubles[start], nil
	}
	return append([]float64(nil), doubles[start:end]...), nil
}

// foreignGeoKeyValue resolves a GeoKey whose tiffTagLocation names some
// other tag id directly (a layout GeoTIFF 1.1 permits but that real
// files rarely use outside GeoAsciiParams/GeoDoubleParams).
func (img *Image) foreignGeoKeyValue(ctx context.Context, tagID uint16, offset uint64, count int) (interface{}, error) {
	tag, ok := img.tags[tagID]
	if !ok {
		return nil, newErr(KindGeoKeyMalformed, tagDetail(tagID, 0), nil)
	}
	v, err := img.fetch(ctx, tag)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(string); ok {
		return sliceAsciiGeoKey(s, offset, count)
	}
	floats := asFloat64Slice(v)
	return sliceDoubleGeoKey(floats, offset, count)
}

// valueGeo looks up an already-unpacked GeoKey. Fails GeoNotLoaded if
// loadGeoTiffTags has not completed.
func (img *Image) valueGeo(geoTag uint16) (interface{}, error) {
	img.geoMu.Lock()
	loaded, keys := img.isGeoTagsLoaded, img.geoKeys
	img.geoMu.Unlock()
	if !loaded {
		return nil, newErr(KindGeoNotLoaded, "", nil)
	}
	return keys[geoTag], nil
}

// size returns ImageWidth/ImageLength.
func (img *Image) size(ctx context.Context) (width, height int, err error) {
	w, _, err := img.fetchUint(ctx, TagImageWidth)
	if err != nil {
		return 0, 0, err
	}
	h, _, err := img.fetchUint(ctx, TagImageLength)
	if err != nil {
		return 0, 0, err
	}
	return int(w), int(h), nil
}

// origin resolves the image's world-space upper-left corner: prefer
// ModelTiePoint, then ModelTransformation, then delegate to the base
// image for a NewSubFileType==1 sub-image, else NoGeoTransform.
func (img *Image) origin(ctx context.Context) ([3]float64, error) {
	tp, err := img.fetchFloats(ctx, TagModelTiepoint)
	if err != nil {
		return [3]float64{}, err
	}
	if len(tp) >= 6 {
		return [3]float64{tp[3], tp[4], tp[5]}, nil
	}

	tm, err := img.fetchFloats(ctx, TagModelTransformation)
	if err != nil {
		return [3]float64{}, err
	}
	if len(tm) >= 16 {
		return [3]float64{tm[3], tm[7], tm[11]}, nil
	}

	sub, _, err := img.fetchUint(ctx, TagNewSubFileType)
	if err != nil {
		return [3]float64{}, err
	}
	if sub == 1 && img.index != 0 {
		return img.reader.images[0].origin(ctx)
	}
	return [3]float64{}, newErr(KindNoGeoTransform, "", nil)
}

// resolution resolves the image's pixel size in world units, y flipped
// (raster y grows down, world y grows up): prefer ModelPixelScale,
// then ModelTransformation, then a size-ratio scale of the base image
// for a sub-image, else NoGeoTransform.
func (img *Image) resolution(ctx context.Context) ([3]float64, error) {
	ps, err := img.fetchFloats(ctx, TagModelPixelScale)
	if err != nil {
		return [3]float64{}, err
	}
	if len(ps) >= 3 {
		return [3]float64{ps[0], -ps[1], ps[2]}, nil
	}

	tm, err := img.fetchFloats(ctx, TagModelTransformation)
	if err != nil {
		return [3]float64{}, err
	}
	if len(tm) >= 16 {
		return [3]float64{tm[0], tm[5], tm[10]}, nil
	}

	sub, _, err := img.fetchUint(ctx, TagNewSubFileType)
	if err != nil {
		return [3]float64{}, err
	}
	if sub == 1 && img.index != 0 {
		base := img.reader.images[0]
		baseRes, err := base.resolution(ctx)
		if err != nil {
			return [3]float64{}, err
		}
		bw, bh, err := base.size(ctx)
		if err != nil {
			return [3]float64{}, err
		}
		w, h, err := img.size(ctx)
		if err != nil {
			return [3]float64{}, err
		}
		if w == 0 || h == 0 {
			return [3]float64{}, newErr(KindNoGeoTransform, "", nil)
		}
		return [3]float64{
			baseRes[0] * float64(bw) / float64(w),
			baseRes[1] * float64(bh) / float64(h),
			baseRes[2],
		}, nil
	}
	return [3]float64{}, newErr(KindNoGeoTransform, "", nil)
}

// bbox is the image's world-space bounding box, order-normalized per
// axis regardless of resolution sign.
func (img *Image) bbox(ctx context.Context) (orb.Bound, error) {
	origin, err := img.origin(ctx)
	if err != nil {
		return orb.Bound{}, err
	}
	res, err := img.resolution(ctx)
	if err != nil {
		return orb.Bound{}, err
	}
	w, h, err := img.size(ctx)
	if err != nil {
		return orb.Bound{}, err
	}

	x1, y1 := origin[0], origin[1]
	x2 := x1 + res[0]*float64(w)
	y2 := y1 + res[1]*float64(h)

	return orb.Bound{
		Min: orb.Point{math.Min(x1, x2), math.Min(y1, y2)},
		Max: orb.Point{math.Max(x1, x2), math.Max(y1, y2)},
	}, nil
}

// epsg prefers ProjectedCSTypeGeoKey, falling back to
// GeographicTypeGeoKey; the GeoTIFF "undefined" sentinel maps to not
// found rather than a literal 32767 code.
func (img *Image) epsg(ctx context.Context) (int, bool, error) {
	if err := img.loadGeoTiffTags(ctx); err != nil {
		return 0, false, err
	}
	if code, ok, err := img.epsgFromKey(ProjectedCSTypeGeoKey); ok || err != nil {
		return code, ok, err
	}
	return img.epsgFromKey(GeographicTypeGeoKey)
}

func (img *Image) epsgFromKey(key uint16) (int, bool, error) {
	v, err := img.valueGeo(key)
	if err != nil {
		return 0, false, err
	}
	if v == nil {
		return 0, false, nil
	}
	code, ok := asFloat64(v)
	if !ok || int(code) == geoKeyUndefined {
		return 0, false, nil
	}
	return int(code), true, nil
}

// isGeoLocated reports whether the image carries an affine transform.
// Deliberately checks ModelPixelScale/ModelTransformation presence
// only: an image with only a ModelTiePoint (no scale) reports false.
// Spec 9 flags this as possibly-buggy upstream behavior to preserve
// rather than fix.
func (img *Image) isGeoLocated() bool {
	_, hasScale := img.tags[TagModelPixelScale]
	_, hasTransform := img.tags[TagModelTransformation]
	return hasScale || hasTransform
}

func (img *Image) isTiled() bool {
	_, ok := img.tags[TagTileWidth]
	return ok
}

func (img *Image) tileSize(ctx context.Context) (w, h int, err error) {
	tw, _, err := img.fetchUint(ctx, TagTileWidth)
	if err != nil {
		return 0, 0, err
	}
	th, _, err := img.fetchUint(ctx, TagTileLength)
	if err != nil {
		return 0, 0, err
	}
	return int(tw), int(th), nil
}

func (img *Image) tileCount(ctx context.Context) (nx, ny, total int, err error) {
	w, h, err := img.size(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	tw, th, err := img.tileSize(ctx)
	if err != nil || tw == 0 || th == 0 {
		return 0, 0, 0, err
	}
	nx = ceilDiv(w, tw)
	ny = ceilDiv(h, th)
	return nx, ny, nx * ny, nil
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func (img *Image) stripCount() int {
	t, ok := img.tags[TagStripByteCounts]
	if !ok {
		return 0
	}
	return int(t.Count)
}

func (img *Image) compression(ctx context.Context) (uint16, bool, error) {
	v, ok, err := img.fetchUint(ctx, TagCompression)
	return uint16(v), ok, err
}

func (img *Image) gdalNoData(ctx context.Context) (string, bool, error) {
	v, err := img.fetchByID(ctx, TagGDALNoData)
	if err != nil {
		return "", false, err
	}
	s, ok := v.(string)
	return s, ok, nil
}

// tileOffset returns TileOffsets[idx], loading the array on first use.
func (img *Image) tileOffset(ctx context.Context, idx int) (uint64, error) {
	tag, ok := img.tags[TagTileOffsets]
	if !ok {
		return 0, newErr(KindIndexOutOfBounds, "no TileOffsets tag", nil)
	}
	v, err := img.fetch(ctx, tag)
	if err != nil {
		return 0, err
	}
	offs := asUint64Slice(v)
	if idx < 0 || idx >= len(offs) {
		return 0, newErr(KindIndexOutOfBounds, tagDetail(TagTileOffsets, tag.Type), nil)
	}
	return offs[idx], nil
}

// getTileSize resolves a tile index to its (offset, imageSize) pair,
// preferring the GDAL tile-leader shortcut over loading the full
// TileByteCounts array when the ghost block advertises one.
func (img *Image) getTileSize(ctx context.Context, idx int) (offset, imageSize uint64, err error) {
	offset, err = img.tileOffset(ctx, idx)
	if err != nil {
		return 0, 0, err
	}
	if offset == 0 {
		return 0, 0, nil
	}

	if img.reader.ghost != nil && img.reader.ghost.hasTileLeader() {
		n := img.reader.ghost.tileLeaderByteSize
		leader, err := img.reader.fetchRaw(ctx, offset-uint64(n), uint64(n))
		if err != nil {
			return 0, 0, err
		}
		lv := newByteView(leader, offset-uint64(n))
		return offset, getUint(lv, offset-uint64(n), n), nil
	}

	bcTag, ok := img.tags[TagTileByteCounts]
	if !ok {
		return 0, 0, newErr(KindIndexOutOfBounds, "no TileByteCounts tag", nil)
	}
	v, err := img.fetch(ctx, bcTag)
	if err != nil {
		return 0, 0, err
	}
	bcs := asUint64Slice(v)
	if idx < 0 || idx >= len(bcs) {
		return 0, 0, newErr(KindIndexOutOfBounds, tagDetail(TagTileByteCounts, bcTag.Type), nil)
	}
	return offset, bcs[idx], nil
}

// getTileBounds is the pixel rectangle tile (x,y) covers, clamped to
// the image at the right/bottom edge.
func (img *Image) getTileBounds(ctx context.Context, x, y int) (TileBounds, error) {
	nx, ny, _, err := img.tileCount(ctx)
	if err != nil {
		return TileBounds{}, err
	}
	if x < 0 || y < 0 || x >= nx || y >= ny {
		return TileBounds{}, newErr(KindIndexOutOfBounds, "tile out of range", nil)
	}
	w, h, err := img.size(ctx)
	if err != nil {
		return TileBounds{}, err
	}
	tw, th, err := img.tileSize(ctx)
	if err != nil {
		return TileBounds{}, err
	}

	outW, outH := tw, th
	if right := (x + 1) * tw; right > w {
		outW = w - x*tw
	}
	if bottom := (y + 1) * th; bottom > h {
		outH = h - y*th
	}
	return TileBounds{X: x * tw, Y: y * th, W: outW, H: outH}, nil
}

// hasTile reports whether the tile at (x,y) has a nonzero offset,
// without fetching its body. Out-of-range coordinates return false,
// never an error.
func (img *Image) hasTile(ctx context.Context, x, y int) (bool, error) {
	nx, ny, _, err := img.tileCount(ctx)
	if err != nil {
		return false, err
	}
	if x < 0 || y < 0 || x >= nx || y >= ny {
		return false, nil
	}
	offset, err := img.tileOffset(ctx, y*nx+x)
	if err != nil {
		return false, err
	}
	return offset > 0, nil
}

// getTile fetches tile (x,y), returning nil (no error) for a sparse
// tile, and splicing JPEGTables into JPEG-compressed (Compression 7 or
// 6) tiles so the returned bytes are a standalone JPEG.
func (img *Image) getTile(ctx context.Context, x, y int) (*TileData, error) {
	nx, ny, _, err := img.tileCount(ctx)
	if err != nil {
		return nil, err
	}
	if x < 0 || y < 0 || x >= nx || y >= ny {
		return nil, newErr(KindIndexOutOfBounds, "tile out of range", nil)
	}
	idx := y*nx + x

	offset, imageSize, err := img.getTileSize(ctx, idx)
	if err != nil {
		return nil, err
	}
	if offset == 0 {
		img.reader.metrics.observeTileRequest(true)
		return nil, nil
	}
	img.reader.metrics.observeTileRequest(false)

	raw, err := img.reader.fetchRaw(ctx, offset, imageSize)
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) < imageSize {
		return nil, newErr(KindShortRead, "tile body", nil)
	}

	compression, ok, err := img.compression(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(KindUnsupportedCompression, "", nil)
	}

	data := raw
	if compression == CompressionJPEG || compression == CompressionOldJPEG {
		data, err = img.spliceJPEGTile(ctx, raw)
		if err != nil {
			return nil, err
		}
	}
	return &TileData{MimeType: mimeForCompression(compression), Bytes: data}, nil
}

// spliceJPEGTile prepends JPEGTables (minus its trailing EOI) and
// drops the tile's duplicated leading SOI, producing a standalone
// JPEG. GDAL writes JPEGTables for both Compression 7 (the current
// TechNote2 JPEG tag) and the legacy Compression 6, so both take this
// path; tiles with no JPEGTables payload pass through unchanged.
func (img *Image) spliceJPEGTile(ctx context.Context, tile []byte) ([]byte, error) {
	v, err := img.fetchByID(ctx, TagJPEGTables)
	if err != nil {
		return nil, err
	}
	tables, ok := v.([]byte)
	if !ok || len(tables) < 2 {
		return tile, nil
	}
	body := tile
	if len(body) >= 2 {
		body = body[2:]
	}

	buf := getSpliceBuffer()
	defer putSpliceBuffer(buf)
	buf.Write(tables[:len(tables)-2])
	buf.Write(body)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// getStrip fetches strip i. Mutually exclusive with tiles; no
// tile-leader-style shortcut exists for strips.
func (img *Image) getStrip(ctx context.Context, i int) (*TileData, error) {
	soTag, ok := img.tags[TagStripOffsets]
	if !ok {
		return nil, newErr(KindIndexOutOfBounds, "no StripOffsets tag", nil)
	}
	bcTag, ok := img.tags[TagStripByteCounts]
	if !ok {
		return nil, newErr(KindIndexOutOfBounds, "no StripByteCounts tag", nil)
	}

	soVal, err := img.fetch(ctx, soTag)
	if err != nil {
		return nil, err
	}
	bcVal, err := img.fetch(ctx, bcTag)
	if err != nil {
		return nil, err
	}
	offs := asUint64Slice(soVal)
	counts := asUint64Slice(bcVal)
	if i < 0 || i >= len(counts) || i >= len(offs) {
		return nil, newErr(KindIndexOutOfBounds, tagDetail(TagStripByteCounts, bcTag.Type), nil)
	}

	offset, size := offs[i], counts[i]
	raw, err := img.reader.fetchRaw(ctx, offset, size)
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) < size {
		return nil, newErr(KindShortRead, "strip body", nil)
	}

	compression, ok, err := img.compression(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(KindUnsupportedCompression, "", nil)
	}
	return &TileData{MimeType: mimeForCompression(compression), Bytes: raw}, nil
}

func mimeForCompression(c uint16) string {
	switch c {
	case CompressionOldJPEG, CompressionJPEG:
		return "image/jpeg"
	case CompressionWebP:
		return "image/webp"
	case CompressionDeflate:
		return "application/zlib"
	case CompressionLZW:
		return "application/x-lzw"
	default:
		return "application/octet-stream"
	}
}
