package gocog

import (
	"encoding/binary"
	"errors"
	"testing"
)

func entryBytes(id, typ uint16, count, value uint32) []byte {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint16(buf[0:], id)
	binary.LittleEndian.PutUint16(buf[2:], typ)
	binary.LittleEndian.PutUint32(buf[4:], count)
	binary.LittleEndian.PutUint32(buf[8:], value)
	return buf
}

func TestNewTagInline(t *testing.T) {
	buf := entryBytes(TagImageWidth, 4, 1, 640)
	v := newByteView(buf, 0)

	tag, err := newTag(classicIfdConfig, v, 0)
	if err != nil {
		t.Fatalf("newTag: %v", err)
	}
	if tag.Shape != ShapeInline {
		t.Fatalf("expected ShapeInline, got %v", tag.Shape)
	}
	got, ready := tag.valueIfReady()
	if !ready {
		t.Fatal("expected inline tag to be immediately ready")
	}
	if got.(uint32) != 640 {
		t.Errorf("value = %v, want 640", got)
	}
}

func TestNewTagOffsetArray(t *testing.T) {
	// 10 LONGs at an external offset: too big to inline, and
	// TagStripOffsets is a recognized offset-array id.
	buf := entryBytes(TagStripOffsets, 4, 10, 2000)
	v := newByteView(buf, 0)

	tag, err := newTag(classicIfdConfig, v, 0)
	if err != nil {
		t.Fatalf("newTag: %v", err)
	}
	if tag.Shape != ShapeOffset {
		t.Fatalf("expected ShapeOffset, got %v", tag.Shape)
	}
	if tag.valueOffset != 2000 {
		t.Errorf("valueOffset = %d, want 2000", tag.valueOffset)
	}
	if tag.fetchLength() != 40 {
		t.Errorf("fetchLength = %d, want 40", tag.fetchLength())
	}
	if _, ready := tag.valueIfReady(); ready {
		t.Error("expected offset tag to not be ready before fetch")
	}
}

func TestNewTagLazyBlob(t *testing.T) {
	// A 20-byte ASCII value is too big to inline and isn't one of the
	// offset-array ids, so it's a single lazily fetched blob.
	buf := entryBytes(270, 2, 20, 3000)
	v := newByteView(buf, 0)

	tag, err := newTag(classicIfdConfig, v, 0)
	if err != nil {
		t.Fatalf("newTag: %v", err)
	}
	if tag.Shape != ShapeLazy {
		t.Fatalf("expected ShapeLazy, got %v", tag.Shape)
	}
	if tag.valueOffset != 3000 {
		t.Errorf("valueOffset = %d, want 3000", tag.valueOffset)
	}
}

func TestNewTagUnknownDataTypeSmallInline(t *testing.T) {
	buf := entryBytes(999, 999, 2, 0)
	binary.LittleEndian.PutUint16(buf[8:], 0xBEEF)
	v := newByteView(buf, 0)

	tag, err := newTag(classicIfdConfig, v, 0)
	if err != nil {
		t.Fatalf("newTag: %v", err)
	}
	if tag.Shape != ShapeInline {
		t.Fatalf("expected best-effort inline for small unknown type, got %v", tag.Shape)
	}
}

func TestNewTagUnknownDataTypeTooLarge(t *testing.T) {
	buf := entryBytes(999, 999, 10, 4000)
	v := newByteView(buf, 0)

	_, err := newTag(classicIfdConfig, v, 0)
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Kind != KindUnknownDataType {
		t.Fatalf("expected KindUnknownDataType, got %v", err)
	}
}

func TestTagIsLoadedAndStore(t *testing.T) {
	buf := entryBytes(TagTileOffsets, 4, 5, 500)
	v := newByteView(buf, 0)
	tag, err := newTag(classicIfdConfig, v, 0)
	if err != nil {
		t.Fatalf("newTag: %v", err)
	}
	if tag.isLoaded() {
		t.Fatal("expected offset tag to start unloaded")
	}
	tag.store([]uint32{1, 2, 3, 4, 5})
	if !tag.isLoaded() {
		t.Fatal("expected tag to report loaded after store")
	}
	v2, ready := tag.valueIfReady()
	if !ready {
		t.Fatal("expected valueIfReady true after store")
	}
	if s, ok := v2.([]uint32); !ok || len(s) != 5 {
		t.Errorf("unexpected stored value %v", v2)
	}
}
