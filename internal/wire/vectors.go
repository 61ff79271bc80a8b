package wire

import flatbuffers "github.com/google/flatbuffers/go"

func prependUint32Vector(b *flatbuffers.Builder, v []uint32) flatbuffers.UOffsetT {
	b.StartVector(4, len(v), 4)
	for i := len(v) - 1; i >= 0; i-- {
		b.PrependUint32(v[i])
	}
	return b.EndVector(len(v))
}

func prependUint16Vector(b *flatbuffers.Builder, v []uint16) flatbuffers.UOffsetT {
	b.StartVector(2, len(v), 2)
	for i := len(v) - 1; i >= 0; i-- {
		b.PrependUint16(v[i])
	}
	return b.EndVector(len(v))
}

func prependUint8Vector(b *flatbuffers.Builder, v []uint8) flatbuffers.UOffsetT {
	b.StartVector(1, len(v), 1)
	for i := len(v) - 1; i >= 0; i-- {
		b.PrependByte(v[i])
	}
	return b.EndVector(len(v))
}

func prependUint64Vector(b *flatbuffers.Builder, v []uint64) flatbuffers.UOffsetT {
	b.StartVector(8, len(v), 8)
	for i := len(v) - 1; i >= 0; i-- {
		b.PrependUint64(v[i])
	}
	return b.EndVector(len(v))
}

func readUint32Vector(tab *flatbuffers.Table, vtableOffset flatbuffers.VOffsetT) []uint32 {
	o := tab.Offset(vtableOffset)
	if o == 0 {
		return nil
	}
	a := tab.Vector(tab.Pos + flatbuffers.UOffsetT(o))
	n := tab.VectorLen(tab.Pos + flatbuffers.UOffsetT(o))
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = tab.GetUint32(a + flatbuffers.UOffsetT(i*4))
	}
	return out
}

func readUint16Vector(tab *flatbuffers.Table, vtableOffset flatbuffers.VOffsetT) []uint16 {
	o := tab.Offset(vtableOffset)
	if o == 0 {
		return nil
	}
	a := tab.Vector(tab.Pos + flatbuffers.UOffsetT(o))
	n := tab.VectorLen(tab.Pos + flatbuffers.UOffsetT(o))
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = tab.GetUint16(a + flatbuffers.UOffsetT(i*2))
	}
	return out
}

func readUint8Vector(tab *flatbuffers.Table, vtableOffset flatbuffers.VOffsetT) []uint8 {
	o := tab.Offset(vtableOffset)
	if o == 0 {
		return nil
	}
	a := tab.Vector(tab.Pos + flatbuffers.UOffsetT(o))
	n := tab.VectorLen(tab.Pos + flatbuffers.UOffsetT(o))
	out := make([]uint8, n)
	for i := 0; i < n; i++ {
		out[i] = tab.GetByte(a + flatbuffers.UOffsetT(i))
	}
	return out
}

func readUint64Vector(tab *flatbuffers.Table, vtableOffset flatbuffers.VOffsetT) []uint64 {
	o := tab.Offset(vtableOffset)
	if o == 0 {
		return nil
	}
	a := tab.Vector(tab.Pos + flatbuffers.UOffsetT(o))
	n := tab.VectorLen(tab.Pos + flatbuffers.UOffsetT(o))
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		out[i] = tab.GetUint64(a + flatbuffers.UOffsetT(i*8))
	}
	return out
}
