// Package wire decodes and encodes the typed binary messages exchanged on the
// broker: digitiser event lists, aggregated frames, run control, and the three
// log message kinds. It is the one piece of the external codec collaborator
// (spec out-of-scope) that the core needs concrete types for.
package wire

import "math"

// Kind tags the ten scalar element types a log value or sample-environment
// array may carry, per the dynamic-typing design note: the wire layer carries
// the tag, the append primitive in internal/nexus dispatches on it once.
type Kind uint8

const (
	KindI8 Kind = iota
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
)

func (k Kind) String() string {
	switch k {
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	default:
		return "unknown"
	}
}

// NumericSeries is a dynamically-typed, homogeneous slice of scalar values.
// Exactly one of the typed slices is populated, selected by Kind. A scalar
// f144 value is represented as a length-1 series; se00 carries longer ones.
type NumericSeries struct {
	Kind Kind
	I8   []int8
	I16  []int16
	I32  []int32
	I64  []int64
	U8   []uint8
	U16  []uint16
	U32  []uint32
	U64  []uint64
	F32  []float32
	F64  []float64
}

func (s NumericSeries) Len() int {
	switch s.Kind {
	case KindI8:
		return len(s.I8)
	case KindI16:
		return len(s.I16)
	case KindI32:
		return len(s.I32)
	case KindI64:
		return len(s.I64)
	case KindU8:
		return len(s.U8)
	case KindU16:
		return len(s.U16)
	case KindU32:
		return len(s.U32)
	case KindU64:
		return len(s.U64)
	case KindF32:
		return len(s.F32)
	case KindF64:
		return len(s.F64)
	default:
		return 0
	}
}

// Bits flattens the series into raw 64-bit patterns, one per element, so it
// can travel inside a single flatbuffer vector regardless of Kind.
func (s NumericSeries) Bits() []uint64 {
	out := make([]uint64, s.Len())
	switch s.Kind {
	case KindI8:
		for i, v := range s.I8 {
			out[i] = uint64(uint8(v))
		}
	case KindI16:
		for i, v := range s.I16 {
			out[i] = uint64(uint16(v))
		}
	case KindI32:
		for i, v := range s.I32 {
			out[i] = uint64(uint32(v))
		}
	case KindI64:
		for i, v := range s.I64 {
			out[i] = uint64(v)
		}
	case KindU8:
		for i, v := range s.U8 {
			out[i] = uint64(v)
		}
	case KindU16:
		for i, v := range s.U16 {
			out[i] = uint64(v)
		}
	case KindU32:
		for i, v := range s.U32 {
			out[i] = uint64(v)
		}
	case KindU64:
		copy(out, s.U64)
	case KindF32:
		for i, v := range s.F32 {
			out[i] = uint64(math.Float32bits(v))
		}
	case KindF64:
		for i, v := range s.F64 {
			out[i] = math.Float64bits(v)
		}
	}
	return out
}

// SeriesFromBits reconstructs a NumericSeries from raw bit patterns and the
// Kind that was carried alongside them on the wire.
func SeriesFromBits(kind Kind, bits []uint64) NumericSeries {
	s := NumericSeries{Kind: kind}
	switch kind {
	case KindI8:
		s.I8 = make([]int8, len(bits))
		for i, b := range bits {
			s.I8[i] = int8(uint8(b))
		}
	case KindI16:
		s.I16 = make([]int16, len(bits))
		for i, b := range bits {
			s.I16[i] = int16(uint16(b))
		}
	case KindI32:
		s.I32 = make([]int32, len(bits))
		for i, b := range bits {
			s.I32[i] = int32(uint32(b))
		}
	case KindI64:
		s.I64 = make([]int64, len(bits))
		for i, b := range bits {
			s.I64[i] = int64(b)
		}
	case KindU8:
		s.U8 = make([]uint8, len(bits))
		for i, b := range bits {
			s.U8[i] = uint8(b)
		}
	case KindU16:
		s.U16 = make([]uint16, len(bits))
		for i, b := range bits {
			s.U16[i] = uint16(b)
		}
	case KindU32:
		s.U32 = make([]uint32, len(bits))
		for i, b := range bits {
			s.U32[i] = uint32(b)
		}
	case KindU64:
		s.U64 = append([]uint64(nil), bits...)
	case KindF32:
		s.F32 = make([]float32, len(bits))
		for i, b := range bits {
			s.F32[i] = math.Float32frombits(uint32(b))
		}
	case KindF64:
		s.F64 = make([]float64, len(bits))
		for i, b := range bits {
			s.F64[i] = math.Float64frombits(b)
		}
	}
	return s
}

// Scalar builds a length-1 series, the shape f144 values are carried in.
func Scalar(kind Kind, bits uint64) NumericSeries {
	return SeriesFromBits(kind, []uint64{bits})
}
