package gocog

import (
	"bytes"
	"encoding/binary"
	"math"
)

// tiffEntry describes one IFD entry for the synthetic-TIFF builders
// below. Set inline for a value that fits in the 4-byte value/offset
// slot (count*width(typ) <= 4); set external for anything larger, which
// the builder relocates after the IFD and links via offset.
type tiffEntry struct {
	id       uint16
	typ      uint16
	count    uint32
	inline   uint32
	external []byte
}

// buildClassicTIFF writes a single-IFD Classic TIFF (version 42) with
// the given entries, little-endian, generalized to externally stored
// values and an arbitrary entry set.
func buildClassicTIFF(entries []tiffEntry) []byte {
	return buildClassicTIFFChain([][]tiffEntry{entries})
}

// buildClassicTIFFChain writes one IFD per slice in ifds, linked in
// order, for multi-image (overview pyramid) test fixtures.
func buildClassicTIFFChain(ifds [][]tiffEntry) []byte {
	const headerSize = 8
	var ifdSizes []int
	for _, entries := range ifds {
		ifdSizes = append(ifdSizes, 2+len(entries)*12+4)
	}

	ifdOffsets := make([]uint32, len(ifds))
	offset := uint32(headerSize)
	for i, sz := range ifdSizes {
		ifdOffsets[i] = offset
		offset += uint32(sz)
	}
	externalCursor := offset

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(0x4949))
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, ifdOffsets[0])

	var externalBlob bytes.Buffer
	for ifdIdx, entries := range ifds {
		binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))
		for _, e := range entries {
			binary.Write(&buf, binary.LittleEndian, e.id)
			binary.Write(&buf, binary.LittleEndian, e.typ)
			binary.Write(&buf, binary.LittleEndian, e.count)
			if e.external != nil {
				binary.Write(&buf, binary.LittleEndian, externalCursor)
				externalBlob.Write(e.external)
				n := len(e.external)
				if n%2 == 1 {
					externalBlob.WriteByte(0)
					n++
				}
				externalCursor += uint32(n)
			} else {
				binary.Write(&buf, binary.LittleEndian, e.inline)
			}
		}
		if ifdIdx == len(ifds)-1 {
			binary.Write(&buf, binary.LittleEndian, uint32(0))
		} else {
			binary.Write(&buf, binary.LittleEndian, ifdOffsets[ifdIdx+1])
		}
	}
	buf.Write(externalBlob.Bytes())
	return buf.Bytes()
}

// buildClassicTIFFWithGhost writes a single-IFD Classic TIFF with a
// GDAL ghost-header block of raw ghost bytes spliced between the fixed
// header and the first IFD, as GDAL itself lays out IFDS_BEFORE_DATA
// COGs.
func buildClassicTIFFWithGhost(ghost []byte, entries []tiffEntry) []byte {
	const headerSize = 8
	ghostSize := len(ghost)
	ifdSize := 2 + len(entries)*12 + 4
	ifdOffset := uint32(headerSize + ghostSize)
	externalCursor := ifdOffset + uint32(ifdSize)

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(0x4949))
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, ifdOffset)
	buf.Write(ghost)

	var externalBlob bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.id)
		binary.Write(&buf, binary.LittleEndian, e.typ)
		binary.Write(&buf, binary.LittleEndian, e.count)
		if e.external != nil {
			binary.Write(&buf, binary.LittleEndian, externalCursor)
			externalBlob.Write(e.external)
			n := len(e.external)
			if n%2 == 1 {
				externalBlob.WriteByte(0)
				n++
			}
			externalCursor += uint32(n)
		} else {
			binary.Write(&buf, binary.LittleEndian, e.inline)
		}
	}
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.Write(externalBlob.Bytes())
	return buf.Bytes()
}

// u32bytes/u16bytes/f64bytes are little-endian raw-byte helpers for
// building tiffEntry.external payloads.
func u32bytes(vs ...uint32) []byte {
	buf := make([]byte, len(vs)*4)
	for i, v := range vs {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

func u16bytes(vs ...uint16) []byte {
	buf := make([]byte, len(vs)*2)
	for i, v := range vs {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return buf
}

func f64bytes(vs ...float64) []byte {
	buf := make([]byte, len(vs)*8)
	for i, v := range vs {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func asciiBytes(s string) []byte {
	return append([]byte(s), 0)
}

// bigTiffEntry is the BigTIFF analog of tiffEntry: 8-byte count and
// value/offset fields instead of 4-byte.
type bigTiffEntry struct {
	id       uint16
	typ      uint16
	count    uint64
	inline   uint64
	external []byte
}

// buildBigTIFF writes a single-IFD BigTIFF (version 43).
func buildBigTIFF(entries []bigTiffEntry) []byte {
	const headerSize = 16
	ifdSize := 8 + len(entries)*20 + 8
	ifdOffset := uint64(headerSize)
	externalCursor := ifdOffset + uint64(ifdSize)

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(0x4949))
	binary.Write(&buf, binary.LittleEndian, uint16(43))
	binary.Write(&buf, binary.LittleEndian, uint16(8))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, ifdOffset)

	var externalBlob bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint64(len(entries)))
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.id)
		binary.Write(&buf, binary.LittleEndian, e.typ)
		binary.Write(&buf, binary.LittleEndian, e.count)
		if e.external != nil {
			binary.Write(&buf, binary.LittleEndian, externalCursor)
			externalBlob.Write(e.external)
			n := len(e.external)
			if n%2 == 1 {
				externalBlob.WriteByte(0)
				n++
			}
			externalCursor += uint64(n)
		} else {
			binary.Write(&buf, binary.LittleEndian, e.inline)
		}
	}
	binary.Write(&buf, binary.LittleEndian, uint64(0))
	buf.Write(externalBlob.Bytes())
	return buf.Bytes()
}
