package wire

import (
	"fmt"
	"sort"

	flatbuffers "github.com/google/flatbuffers/go"
)

// AggregatedFrameMessage is the output of the frame aggregator: the
// per-digitiser vectors concatenated in digitiser-ID ascending order. Complete records
// whether every configured digitiser had contributed before the frame was
// evicted from the cache, carried through to the run file's
// frame_complete dataset.
type AggregatedFrameMessage struct {
	Metadata     FrameMetadata
	DigitiserIDs []uint8
	Time         []uint32
	Intensity    []uint16
	Channel      []uint32
	Complete     bool
}

// SortedDigitiserIDs returns a copy of DigitiserIDs in ascending order, the
// deterministic form used for comparisons in tests.
func (m AggregatedFrameMessage) SortedDigitiserIDs() []uint8 {
	out := append([]uint8(nil), m.DigitiserIDs...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

const (
	aevFieldMetadata     = 4
	aevFieldDigitiserIDs = 6
	aevFieldTime         = 8
	aevFieldIntensity    = 10
	aevFieldChannel      = 12
	aevFieldComplete     = 14
)

// EncodeAggregatedFrame builds the output-topic payload, keyed downstream as
// "FrameAssembledEventsList".
func EncodeAggregatedFrame(m AggregatedFrameMessage) []byte {
	b := flatbuffers.NewBuilder(256 + len(m.Time)*10)

	idsOff := prependUint8Vector(b, m.DigitiserIDs)
	timeOff := prependUint32Vector(b, m.Time)
	intensityOff := prependUint16Vector(b, m.Intensity)
	channelOff := prependUint32Vector(b, m.Channel)
	metaOff := buildFrameMetadata(b, m.Metadata)

	b.StartObject(6)
	b.PrependBoolSlot(5, m.Complete, false)
	b.PrependUOffsetTSlot(4, channelOff, 0)
	b.PrependUOffsetTSlot(3, intensityOff, 0)
	b.PrependUOffsetTSlot(2, timeOff, 0)
	b.PrependUOffsetTSlot(1, idsOff, 0)
	b.PrependUOffsetTSlot(0, metaOff, 0)
	root := b.EndObject()

	b.FinishWithFileIdentifier(root, KindAggregatedFrame[:])
	return b.FinishedBytes()
}

func DecodeAggregatedFrame(payload []byte) (AggregatedFrameMessage, error) {
	if kind, ok := Identify(payload); !ok || kind != KindAggregatedFrame {
		return AggregatedFrameMessage{}, fmt.Errorf("wire: not an aggregated frame payload")
	}
	var tab flatbuffers.Table
	tab.Bytes = payload
	tab.Pos = rootOffset(payload)

	var m AggregatedFrameMessage
	if o := tab.Offset(aevFieldMetadata); o != 0 {
		mt := metadataTable{}
		mt.init(payload, tab.Indirect(tab.Pos+flatbuffers.UOffsetT(o)))
		m.Metadata = mt.decode()
	}
	m.DigitiserIDs = readUint8Vector(&tab, aevFieldDigitiserIDs)
	m.Time = readUint32Vector(&tab, aevFieldTime)
	m.Intensity = readUint16Vector(&tab, aevFieldIntensity)
	m.Channel = readUint32Vector(&tab, aevFieldChannel)
	if o := tab.Offset(aevFieldComplete); o != 0 {
		m.Complete = tab.GetBool(tab.Pos + flatbuffers.UOffsetT(o))
	}
	return m, nil
}
