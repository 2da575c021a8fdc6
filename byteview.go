package gocog

import (
	"encoding/binary"
	"math"
)

// ByteView is a cheap typed view over a fetched byte range, annotated
// with the absolute file offset at which its buffer starts. All reads
// take an absolute file offset and translate it internally; callers
// never compute buffer-relative indices themselves.
//
// Only little-endian files are supported (spec Non-goal); every read
// here assumes little-endian byte order.
type ByteView struct {
	buf          []byte
	sourceOffset uint64
}

func newByteView(buf []byte, sourceOffset uint64) *ByteView {
	return &ByteView{buf: buf, sourceOffset: sourceOffset}
}

// hasBytes reports whether [abs, abs+length) is entirely contained in
// the view's buffer.
func (v *ByteView) hasBytes(abs, length uint64) bool {
	if abs < v.sourceOffset {
		return false
	}
	end := v.sourceOffset + uint64(len(v.buf))
	return abs+length <= end
}

func (v *ByteView) rel(abs uint64) int {
	return int(abs - v.sourceOffset)
}

func (v *ByteView) uint8(abs uint64) uint8 {
	i := v.rel(abs)
	return v.buf[i]
}

func (v *ByteView) int8(abs uint64) int8 {
	return int8(v.uint8(abs))
}

func (v *ByteView) uint16(abs uint64) uint16 {
	i := v.rel(abs)
	return binary.LittleEndian.Uint16(v.buf[i:])
}

func (v *ByteView) int16(abs uint64) int16 {
	return int16(v.uint16(abs))
}

func (v *ByteView) uint32(abs uint64) uint32 {
	i := v.rel(abs)
	return binary.LittleEndian.Uint32(v.buf[i:])
}

func (v *ByteView) int32(abs uint64) int32 {
	return int32(v.uint32(abs))
}

func (v *ByteView) uint64(abs uint64) uint64 {
	i := v.rel(abs)
	return binary.LittleEndian.Uint64(v.buf[i:])
}

func (v *ByteView) int64(abs uint64) int64 {
	return int64(v.uint64(abs))
}

func (v *ByteView) float32(abs uint64) float32 {
	return math.Float32frombits(v.uint32(abs))
}

func (v *ByteView) float64(abs uint64) float64 {
	return math.Float64frombits(v.uint64(abs))
}

func (v *ByteView) bytes(abs, length uint64) []byte {
	i := v.rel(abs)
	return v.buf[i : i+int(length)]
}

// getUint reads an unsigned integer of the given byte width (1, 2, 4,
// or 8) at an absolute offset. This is the one place Classic and
// BigTIFF pointer widths are unified: IfdConfig.pointer and
// IfdConfig.offset are both expressed as a width handed to this
// function rather than as a hardcoded type.
func getUint(v *ByteView, abs uint64, width int) uint64 {
	switch width {
	case 1:
		return uint64(v.uint8(abs))
	case 2:
		return uint64(v.uint16(abs))
	case 4:
		return uint64(v.uint32(abs))
	case 8:
		return v.uint64(abs)
	default:
		return 0
	}
}
