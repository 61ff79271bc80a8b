package wire

import flatbuffers "github.com/google/flatbuffers/go"

// MessageKind is the four-byte file identifier flatbuffers stamps at offset 4
// of every root table. The run engine and aggregator use it to sanity-check
// a payload before decoding it as a specific type.
type MessageKind [4]byte

var (
	KindDigitiserEvent  = MessageKind{'d', 'e', 'v', '2'}
	KindAggregatedFrame = MessageKind{'a', 'e', 'v', '2'}
	KindRunStart        = MessageKind{'p', 'l', '7', '2'}
	KindRunStop         = MessageKind{'6', 's', '4', 't'}
	KindF144Log         = MessageKind{'f', '1', '4', '4'}
	KindSE00Data        = MessageKind{'s', 'e', '0', '0'}
	KindAlarm           = MessageKind{'a', 'l', '0', '0'}
)

// Identify reads the file identifier out of a flatbuffer payload without
// fully decoding it. Returns ok=false for a payload too short to carry
// one — callers should log and drop it.
func Identify(payload []byte) (MessageKind, bool) {
	if len(payload) < 8 {
		return MessageKind{}, false
	}
	var k MessageKind
	copy(k[:], payload[4:8])
	return k, true
}

func rootOffset(buf []byte) flatbuffers.UOffsetT {
	n := flatbuffers.GetUOffsetT(buf)
	return n
}
