package wire

import (
	"time"

	flatbuffers "github.com/google/flatbuffers/go"
)

// FrameMetadata is the common tuple carried by every digitiser event and
// aggregated frame message.
type FrameMetadata struct {
	Timestamp        time.Time
	PeriodNumber     uint64
	ProtonsPerPulse  uint8
	Running          bool
	FrameNumber      uint32
	VetoFlags        uint16
}

// FrameEqual compares two metadata values ignoring VetoFlags, the equivalence
// the cache fingerprint's collision check relies on.
func (m FrameMetadata) FrameEqual(o FrameMetadata) bool {
	return m.Timestamp.Equal(o.Timestamp) &&
		m.PeriodNumber == o.PeriodNumber &&
		m.ProtonsPerPulse == o.ProtonsPerPulse &&
		m.Running == o.Running &&
		m.FrameNumber == o.FrameNumber
}

const (
	metaFieldTimestampSec  = 4
	metaFieldTimestampNsec = 6
	metaFieldPeriodNumber  = 8
	metaFieldProtons       = 10
	metaFieldRunning       = 12
	metaFieldFrameNumber   = 14
	metaFieldVetoFlags     = 16
)

func buildFrameMetadata(b *flatbuffers.Builder, m FrameMetadata) flatbuffers.UOffsetT {
	b.StartObject(7)
	b.PrependUint16Slot(6, m.VetoFlags, 0)
	b.PrependUint32Slot(5, m.FrameNumber, 0)
	b.PrependBoolSlot(4, m.Running, false)
	b.PrependByteSlot(3, m.ProtonsPerPulse, 0)
	b.PrependUint64Slot(2, m.PeriodNumber, 0)
	b.PrependUint32Slot(1, uint32(m.Timestamp.Nanosecond()), 0)
	b.PrependInt64Slot(0, m.Timestamp.Unix(), 0)
	return b.EndObject()
}

type metadataTable struct {
	tab flatbuffers.Table
}

func (t *metadataTable) init(buf []byte, i flatbuffers.UOffsetT) {
	t.tab.Bytes = buf
	t.tab.Pos = i
}

func (t *metadataTable) decode() FrameMetadata {
	var m FrameMetadata
	if o := t.tab.Offset(metaFieldTimestampSec); o != 0 {
		sec := int64(t.tab.GetInt64(t.tab.Pos + flatbuffers.UOffsetT(o)))
		var nsec uint32
		if o2 := t.tab.Offset(metaFieldTimestampNsec); o2 != 0 {
			nsec = t.tab.GetUint32(t.tab.Pos + flatbuffers.UOffsetT(o2))
		}
		m.Timestamp = time.Unix(sec, int64(nsec)).UTC()
	}
	if o := t.tab.Offset(metaFieldPeriodNumber); o != 0 {
		m.PeriodNumber = t.tab.GetUint64(t.tab.Pos + flatbuffers.UOffsetT(o))
	}
	if o := t.tab.Offset(metaFieldProtons); o != 0 {
		m.ProtonsPerPulse = t.tab.GetByte(t.tab.Pos + flatbuffers.UOffsetT(o))
	}
	if o := t.tab.Offset(metaFieldRunning); o != 0 {
		m.Running = t.tab.GetBool(t.tab.Pos + flatbuffers.UOffsetT(o))
	}
	if o := t.tab.Offset(metaFieldFrameNumber); o != 0 {
		m.FrameNumber = t.tab.GetUint32(t.tab.Pos + flatbuffers.UOffsetT(o))
	}
	if o := t.tab.Offset(metaFieldVetoFlags); o != 0 {
		m.VetoFlags = t.tab.GetUint16(t.tab.Pos + flatbuffers.UOffsetT(o))
	}
	return m
}
