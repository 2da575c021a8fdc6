package gocog

// DataType is a TIFF tag's data type code (TIFF 6.0 plus the BigTIFF
// 64-bit additions).
type DataType uint16

const (
	DTByte      DataType = 1
	DTAscii     DataType = 2
	DTShort     DataType = 3
	DTLong      DataType = 4
	DTRational  DataType = 5
	DTSByte     DataType = 6
	DTUndefined DataType = 7
	DTSShort    DataType = 8
	DTSLong     DataType = 9
	DTSRational DataType = 10
	DTFloat     DataType = 11
	DTDouble    DataType = 12
	DTLong8     DataType = 16
	DTSLong8    DataType = 17
	DTIfdLong8  DataType = 18
)

// typeWidth returns the byte width of a single element of dt, and
// whether dt is recognized at all.
func typeWidth(dt DataType) (int, bool) {
	switch dt {
	case DTByte, DTAscii, DTSByte, DTUndefined:
		return 1, true
	case DTShort, DTSShort:
		return 2, true
	case DTLong, DTSLong, DTFloat:
		return 4, true
	case DTRational, DTSRational, DTDouble, DTLong8, DTSLong8, DTIfdLong8:
		return 8, true
	default:
		return 0, false
	}
}

// decodeScalar decodes a single element of dt at an absolute offset.
func decodeScalar(v *ByteView, abs uint64, dt DataType) interface{} {
	switch dt {
	case DTByte:
		return v.uint8(abs)
	case DTSByte:
		return v.int8(abs)
	case DTAscii, DTUndefined:
		return v.uint8(abs)
	case DTShort:
		return v.uint16(abs)
	case DTSShort:
		return v.int16(abs)
	case DTLong:
		return v.uint32(abs)
	case DTSLong:
		return v.int32(abs)
	case DTFloat:
		return v.float32(abs)
	case DTDouble:
		return v.float64(abs)
	case DTLong8, DTIfdLong8:
		return v.uint64(abs)
	case DTSLong8:
		return v.int64(abs)
	case DTRational:
		return Rational{Num: v.uint32(abs), Den: v.uint32(abs + 4)}
	case DTSRational:
		return SRational{Num: v.int32(abs), Den: v.int32(abs + 4)}
	default:
		return nil
	}
}

// Rational is an unsigned TIFF RATIONAL: Num/Den.
type Rational struct{ Num, Den uint32 }

// SRational is a signed TIFF SRATIONAL: Num/Den.
type SRational struct{ Num, Den int32 }

// decodeValue decodes either a scalar (count==1) or a homogeneous
// array (count>1) of dt starting at abs, honoring the GeoTIFF/TIFF
// trailing-NUL trim for Ascii.
func decodeValue(v *ByteView, abs uint64, dt DataType, count uint64) interface{} {
	width, ok := typeWidth(dt)
	if !ok {
		return nil
	}
	if dt == DTAscii {
		raw := v.bytes(abs, count)
		s := string(raw)
		if n := len(s); n > 0 && s[n-1] == 0 {
			s = s[:n-1]
		}
		return s
	}
	if count == 1 {
		return decodeScalar(v, abs, dt)
	}
	switch dt {
	case DTByte, DTUndefined:
		return append([]byte(nil), v.bytes(abs, count)...)
	case DTSByte:
		out := make([]int8, count)
		for i := range out {
			out[i] = v.int8(abs + uint64(i))
		}
		return out
	case DTShort:
		out := make([]uint16, count)
		for i := range out {
			out[i] = v.uint16(abs + uint64(i)*2)
		}
		return out
	case DTSShort:
		out := make([]int16, count)
		for i := range out {
			out[i] = v.int16(abs + uint64(i)*2)
		}
		return out
	case DTLong:
		out := make([]uint32, count)
		for i := range out {
			out[i] = v.uint32(abs + uint64(i)*4)
		}
		return out
	case DTSLong:
		out := make([]int32, count)
		for i := range out {
			out[i] = v.int32(abs + uint64(i)*4)
		}
		return out
	case DTFloat:
		out := make([]float32, count)
		for i := range out {
			out[i] = v.float32(abs + uint64(i)*4)
		}
		return out
	case DTDouble:
		out := make([]float64, count)
		for i := range out {
			out[i] = v.float64(abs + uint64(i)*8)
		}
		return out
	case DTLong8, DTIfdLong8:
		out := make([]uint64, count)
		for i := range out {
			out[i] = v.uint64(abs + uint64(i)*8)
		}
		return out
	case DTSLong8:
		out := make([]int64, count)
		for i := range out {
			out[i] = v.int64(abs + uint64(i)*8)
		}
		return out
	case DTRational:
		out := make([]Rational, count)
		for i := range out {
			off := abs + uint64(i)*8
			out[i] = Rational{Num: v.uint32(off), Den: v.uint32(off + 4)}
		}
		return out
	case DTSRational:
		out := make([]SRational, count)
		for i := range out {
			off := abs + uint64(i)*8
			out[i] = SRational{Num: v.int32(off), Den: v.int32(off + 4)}
		}
		return out
	default:
		return nil
	}
}

// asUint64Slice normalizes any integer-typed decoded array (the shapes
// TileOffsets/TileByteCounts/StripOffsets/StripByteCounts can arrive
// in across Classic and BigTIFF files) into a []uint64.
func asUint64Slice(v interface{}) []uint64 {
	switch vv := v.(type) {
	case []uint64:
		return vv
	case uint64:
		return []uint64{vv}
	case []uint32:
		out := make([]uint64, len(vv))
		for i, x := range vv {
			out[i] = uint64(x)
		}
		return out
	case uint32:
		return []uint64{uint64(vv)}
	case []uint16:
		out := make([]uint64, len(vv))
		for i, x := range vv {
			out[i] = uint64(x)
		}
		return out
	case uint16:
		return []uint64{uint64(vv)}
	default:
		return nil
	}
}

// asFloat64 normalizes an integer or float scalar to float64.
func asFloat64(v interface{}) (float64, bool) {
	switch vv := v.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case uint64:
		return float64(vv), true
	case uint32:
		return float64(vv), true
	case uint16:
		return float64(vv), true
	case uint8:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case int16:
		return float64(vv), true
	case int8:
		return float64(vv), true
	default:
		return 0, false
	}
}

// asFloat64Slice normalizes a decoded numeric array to []float64.
func asFloat64Slice(v interface{}) []float64 {
	switch vv := v.(type) {
	case []float64:
		return vv
	case []float32:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out
	default:
		if f, ok := asFloat64(v); ok {
			return []float64{f}
		}
		return nil
	}
}
