package gocog

import "testing"

func TestByteViewReadsLittleEndian(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	v := newByteView(buf, 100)

	if got := v.uint16(100); got != 0x0201 {
		t.Errorf("uint16 = 0x%04x, want 0x0201", got)
	}
	if got := v.uint32(100); got != 0x04030201 {
		t.Errorf("uint32 = 0x%08x, want 0x04030201", got)
	}
	if got := v.uint64(100); got != 0x0807060504030201 {
		t.Errorf("uint64 = 0x%016x, want 0x0807060504030201", got)
	}
}

func TestByteViewHasBytes(t *testing.T) {
	v := newByteView(make([]byte, 16), 100)

	if !v.hasBytes(100, 16) {
		t.Error("expected full range to be resident")
	}
	if v.hasBytes(100, 17) {
		t.Error("expected over-length range to be absent")
	}
	if v.hasBytes(99, 1) {
		t.Error("expected offset before sourceOffset to be absent")
	}
	if v.hasBytes(110, 6) != true {
		t.Error("expected trailing sub-range to be resident")
	}
}

func TestGetUintWidths(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	v := newByteView(buf, 0)

	cases := []struct {
		width int
		want  uint64
	}{
		{1, 0xFF},
		{2, 0xFFFF},
		{4, 0xFFFFFFFF},
		{8, 0xFFFFFFFFFFFFFFFF},
	}
	for _, c := range cases {
		if got := getUint(v, 0, c.width); got != c.want {
			t.Errorf("getUint width=%d = 0x%x, want 0x%x", c.width, got, c.want)
		}
	}
}
