package wire

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
)

// F144LogData is a single run-log sample: a named source, a timestamp, and a
// scalar value of one of the ten numeric kinds.
type F144LogData struct {
	SourceName  string
	TimestampNs uint64
	Value       NumericSeries // always length 1
}

const (
	f144FieldSourceName  = 4
	f144FieldTimestampNs = 6
	f144FieldValueKind   = 8
	f144FieldValueBits   = 10
)

func EncodeF144(m F144LogData) []byte {
	b := flatbuffers.NewBuilder(64)
	nameOff := b.CreateString(m.SourceName)
	bits := m.Value.Bits()
	var bit0 uint64
	if len(bits) > 0 {
		bit0 = bits[0]
	}

	b.StartObject(4)
	b.PrependUint64Slot(3, bit0, 0)
	b.PrependByteSlot(2, byte(m.Value.Kind), 0)
	b.PrependUint64Slot(1, m.TimestampNs, 0)
	b.PrependUOffsetTSlot(0, nameOff, 0)
	root := b.EndObject()

	b.FinishWithFileIdentifier(root, KindF144Log[:])
	return b.FinishedBytes()
}

func DecodeF144(payload []byte) (F144LogData, error) {
	if kind, ok := Identify(payload); !ok || kind != KindF144Log {
		return F144LogData{}, fmt.Errorf("wire: not an f144 payload")
	}
	var tab flatbuffers.Table
	tab.Bytes = payload
	tab.Pos = rootOffset(payload)

	var m F144LogData
	if o := tab.Offset(f144FieldSourceName); o != 0 {
		m.SourceName = string(tab.ByteVector(tab.Pos + flatbuffers.UOffsetT(o)))
	} else {
		return F144LogData{}, fmt.Errorf("wire: f144 missing source_name")
	}
	if o := tab.Offset(f144FieldTimestampNs); o != 0 {
		m.TimestampNs = tab.GetUint64(tab.Pos + flatbuffers.UOffsetT(o))
	}
	var kind Kind
	if o := tab.Offset(f144FieldValueKind); o != 0 {
		kind = Kind(tab.GetByte(tab.Pos + flatbuffers.UOffsetT(o)))
	}
	var bits uint64
	if o := tab.Offset(f144FieldValueBits); o != 0 {
		bits = tab.GetUint64(tab.Pos + flatbuffers.UOffsetT(o))
	}
	m.Value = Scalar(kind, bits)
	return m, nil
}
