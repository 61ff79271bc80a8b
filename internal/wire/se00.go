package wire

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
)

// TimestampLocation says where in a sample-environment packet its timestamps
// array anchors relative to the values it carries.
type TimestampLocation uint8

const (
	TimestampStart TimestampLocation = iota
	TimestampMiddle
	TimestampEnd
	TimestampNone
)

// SE00Data is a sample-environment packet: unlike f144 it carries whole
// arrays per message.
type SE00Data struct {
	Name               string
	Channel            int32
	TimeDelta          float64
	TimestampLocation  TimestampLocation
	Timestamps         []uint64 // optional, per TimestampLocation
	PacketTimestamp    uint64
	Values             NumericSeries
}

const (
	se00FieldName       = 4
	se00FieldChannel    = 6
	se00FieldTimeDelta  = 8
	se00FieldTSLoc      = 10
	se00FieldTimestamps = 12
	se00FieldPacketTS   = 14
	se00FieldValueKind  = 16
	se00FieldValueBits  = 18
)

func EncodeSE00(m SE00Data) []byte {
	b := flatbuffers.NewBuilder(128 + m.Values.Len()*8)
	nameOff := b.CreateString(m.Name)
	var tsOff flatbuffers.UOffsetT
	if len(m.Timestamps) > 0 {
		tsOff = prependUint64Vector(b, m.Timestamps)
	}
	valuesOff := prependUint64Vector(b, m.Values.Bits())

	b.StartObject(8)
	b.PrependUOffsetTSlot(7, valuesOff, 0)
	b.PrependByteSlot(6, byte(m.Values.Kind), 0)
	b.PrependUint64Slot(5, m.PacketTimestamp, 0)
	if tsOff != 0 {
		b.PrependUOffsetTSlot(4, tsOff, 0)
	}
	b.PrependByteSlot(3, byte(m.TimestampLocation), 0)
	b.PrependFloat64Slot(2, m.TimeDelta, 0)
	b.PrependInt32Slot(1, m.Channel, 0)
	b.PrependUOffsetTSlot(0, nameOff, 0)
	root := b.EndObject()

	b.FinishWithFileIdentifier(root, KindSE00Data[:])
	return b.FinishedBytes()
}

func DecodeSE00(payload []byte) (SE00Data, error) {
	if kind, ok := Identify(payload); !ok || kind != KindSE00Data {
		return SE00Data{}, fmt.Errorf("wire: not an se00 payload")
	}
	var tab flatbuffers.Table
	tab.Bytes = payload
	tab.Pos = rootOffset(payload)

	var m SE00Data
	if o := tab.Offset(se00FieldName); o != 0 {
		m.Name = string(tab.ByteVector(tab.Pos + flatbuffers.UOffsetT(o)))
	} else {
		return SE00Data{}, fmt.Errorf("wire: se00 missing name")
	}
	if o := tab.Offset(se00FieldChannel); o != 0 {
		m.Channel = tab.GetInt32(tab.Pos + flatbuffers.UOffsetT(o))
	}
	if o := tab.Offset(se00FieldTimeDelta); o != 0 {
		m.TimeDelta = tab.GetFloat64(tab.Pos + flatbuffers.UOffsetT(o))
	}
	if o := tab.Offset(se00FieldTSLoc); o != 0 {
		m.TimestampLocation = TimestampLocation(tab.GetByte(tab.Pos + flatbuffers.UOffsetT(o)))
	}
	m.Timestamps = readUint64Vector(&tab, se00FieldTimestamps)
	if o := tab.Offset(se00FieldPacketTS); o != 0 {
		m.PacketTimestamp = tab.GetUint64(tab.Pos + flatbuffers.UOffsetT(o))
	}
	var kind Kind
	if o := tab.Offset(se00FieldValueKind); o != 0 {
		kind = Kind(tab.GetByte(tab.Pos + flatbuffers.UOffsetT(o)))
	}
	bits := readUint64Vector(&tab, se00FieldValueBits)
	m.Values = SeriesFromBits(kind, bits)
	return m, nil
}
