package wire

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
)

// DigitiserEventMessage is the per-digitiser event-list payload.
type DigitiserEventMessage struct {
	DigitiserID uint8
	Metadata    FrameMetadata
	Time        []uint32
	Intensity   []uint16
	Channel     []uint32
}

// Validate checks that the three vectors agree in length, or the frame they'd
// contribute to is unbuildable.
func (m DigitiserEventMessage) Validate() error {
	if len(m.Time) != len(m.Intensity) || len(m.Time) != len(m.Channel) {
		return fmt.Errorf("digitiser event size mismatch: time=%d intensity=%d channel=%d",
			len(m.Time), len(m.Intensity), len(m.Channel))
	}
	return nil
}

const (
	devFieldDigitiserID = 4
	devFieldMetadata    = 6
	devFieldTime        = 8
	devFieldIntensity   = 10
	devFieldChannel     = 12
)

// EncodeDigitiserEvent builds the flatbuffer payload for one digitiser's
// contribution, used by tests and by the upstream per-digitiser trace→event
// converter this repo does not own.
func EncodeDigitiserEvent(m DigitiserEventMessage) []byte {
	b := flatbuffers.NewBuilder(256 + len(m.Time)*10)

	timeOff := prependUint32Vector(b, m.Time)
	intensityOff := prependUint16Vector(b, m.Intensity)
	channelOff := prependUint32Vector(b, m.Channel)
	metaOff := buildFrameMetadata(b, m.Metadata)

	b.StartObject(5)
	b.PrependUOffsetTSlot(4, channelOff, 0)
	b.PrependUOffsetTSlot(3, intensityOff, 0)
	b.PrependUOffsetTSlot(2, timeOff, 0)
	b.PrependUOffsetTSlot(1, metaOff, 0)
	b.PrependByteSlot(0, m.DigitiserID, 0)
	root := b.EndObject()

	b.FinishWithFileIdentifier(root, KindDigitiserEvent[:])
	return b.FinishedBytes()
}

// DecodeDigitiserEvent parses a payload produced by EncodeDigitiserEvent (or
// the upstream per-digitiser codec this repo treats as an external
// collaborator).
func DecodeDigitiserEvent(payload []byte) (DigitiserEventMessage, error) {
	if kind, ok := Identify(payload); !ok || kind != KindDigitiserEvent {
		return DigitiserEventMessage{}, fmt.Errorf("wire: not a digitiser event payload")
	}
	var tab flatbuffers.Table
	tab.Bytes = payload
	tab.Pos = rootOffset(payload)

	var m DigitiserEventMessage
	if o := tab.Offset(devFieldDigitiserID); o != 0 {
		m.DigitiserID = tab.GetByte(tab.Pos + flatbuffers.UOffsetT(o))
	}
	if o := tab.Offset(devFieldMetadata); o != 0 {
		mt := metadataTable{}
		mt.init(payload, tab.Indirect(tab.Pos+flatbuffers.UOffsetT(o)))
		m.Metadata = mt.decode()
	}
	m.Time = readUint32Vector(&tab, devFieldTime)
	m.Intensity = readUint16Vector(&tab, devFieldIntensity)
	m.Channel = readUint32Vector(&tab, devFieldChannel)
	return m, nil
}
