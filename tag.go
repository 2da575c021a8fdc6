package gocog

import (
	"strconv"
	"sync"
)

// TagShape distinguishes the three storage shapes a Tag's value can
// take, per spec: a value already decoded inline, a numeric array
// addressed by index and loaded all at once on first use, or a single
// logical blob fetched once on demand.
type TagShape int

const (
	ShapeInline TagShape = iota
	ShapeOffset
	ShapeLazy
)

// Known offset-array tag ids: TIFF tags whose value is a numeric array
// addressed by index (one entry per tile/strip) rather than a single
// logical blob. This is the "small fixed set" TagFactory checks by id
// per spec 4.C.
const (
	TagStripOffsets    = 273
	TagStripByteCounts = 279
	TagTileOffsets     = 324
	TagTileByteCounts  = 325
)

func isOffsetArrayTag(id uint16) bool {
	switch id {
	case TagStripOffsets, TagStripByteCounts, TagTileOffsets, TagTileByteCounts:
		return true
	default:
		return false
	}
}

// Tag is the tagged-union value of one IFD entry. Shared fields (ID,
// Type, Count) are always valid; which of the remaining fields matter
// depends on Shape.
type Tag struct {
	ID    uint16
	Type  DataType
	Count uint64
	Shape TagShape

	// Inline: the decoded value, ready to use.
	value interface{}

	// Offset / Lazy: where to fetch from, and element width for
	// Offset arrays (needed to compute the fetch length).
	valueOffset uint64
	elemWidth   int

	mu     sync.Mutex
	loaded bool
}

// valueIfReady returns the decoded value without triggering I/O: the
// Inline value, or an Offset/Lazy value iff it has already been
// fetched. The bool mirrors Image.value's "never triggers I/O"
// contract.
func (t *Tag) valueIfReady() (interface{}, bool) {
	if t.Shape == ShapeInline {
		return t.value, true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.loaded
}

// isLoaded reports whether an Offset tag's array has been fully
// materialized (spec 3: "isLoaded flips when the entire array has been
// materialized").
func (t *Tag) isLoaded() bool {
	if t.Shape == ShapeInline {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

// fetchLength is the byte span this tag's value occupies at
// valueOffset, used to size the Source.Fetch call.
func (t *Tag) fetchLength() uint64 {
	if t.Shape == ShapeOffset {
		return t.Count * uint64(t.elemWidth)
	}
	width, _ := typeWidth(t.Type)
	return t.Count * uint64(width)
}

// store records a successfully fetched value, making it visible to
// subsequent valueIfReady/isLoaded calls.
func (t *Tag) store(v interface{}) {
	t.mu.Lock()
	t.value = v
	t.loaded = true
	t.mu.Unlock()
}

// newTag implements the TagFactory algorithm of spec 4.C: given an
// IfdConfig and a ByteView positioned over one IFD entry, produce a
// typed Tag.
func newTag(cfg IfdConfig, view *ByteView, entryOffset uint64) (*Tag, error) {
	id := uint16(getUint(view, entryOffset, 2))
	dt := DataType(getUint(view, entryOffset+2, 2))
	countOff := entryOffset + 4
	valueOff := countOff + uint64(cfg.pointer)
	count := getUint(view, countOff, cfg.pointer)

	width, known := typeWidth(dt)
	if !known {
		// Best-effort: treat as raw bytes if it fits in the value
		// slot, otherwise this entry cannot be classified.
		if count <= uint64(cfg.pointer) {
			return &Tag{ID: id, Type: dt, Count: count, Shape: ShapeInline,
				value: append([]byte(nil), view.bytes(valueOff, count)...)}, nil
		}
		return nil, newErr(KindUnknownDataType, tagDetail(id, dt), nil)
	}

	payloadBytes := count * uint64(width)

	if payloadBytes <= uint64(cfg.pointer) {
		val := decodeValue(view, valueOff, dt, count)
		return &Tag{ID: id, Type: dt, Count: count, Shape: ShapeInline, value: val}, nil
	}

	ptr := getUint(view, valueOff, cfg.pointer)

	if !isOffsetArrayTag(id) && isBlobLike(dt) {
		return &Tag{ID: id, Type: dt, Count: count, Shape: ShapeLazy, valueOffset: ptr}, nil
	}
	if isOffsetArrayTag(id) {
		return &Tag{ID: id, Type: dt, Count: count, Shape: ShapeOffset, valueOffset: ptr, elemWidth: width}, nil
	}
	// Any other externally-stored array (e.g. BitsPerSample with many
	// samples) is aggregated eagerly like a blob: nothing else in this
	// format addresses such tags by index.
	return &Tag{ID: id, Type: dt, Count: count, Shape: ShapeLazy, valueOffset: ptr}, nil
}

// isBlobLike extends spec 4.C's "single logical blob" category beyond
// Ascii/Undefined to any dataType, since the id-based offset-array
// check in newTag already carves out the only tags treated as
// index-addressed arrays.
func isBlobLike(dt DataType) bool {
	_, known := typeWidth(dt)
	return known
}

func tagDetail(id uint16, dt DataType) string {
	return "tag " + strconv.Itoa(int(id)) + " type " + strconv.Itoa(int(dt))
}
