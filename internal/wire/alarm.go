package wire

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
)

// AlarmData is an alarm-system event carrying an absolute nanosecond
// timestamp. Its severity and message are written as variable-length
// strings into the alarm sidecar datasets of the source's selog value_log.
type AlarmData struct {
	SourceName  string
	TimestampNs uint64
	Severity    string
	Message     string
}

const (
	alarmFieldSourceName  = 4
	alarmFieldTimestampNs = 6
	alarmFieldSeverity    = 8
	alarmFieldMessage     = 10
)

func EncodeAlarm(m AlarmData) []byte {
	b := flatbuffers.NewBuilder(128)
	nameOff := b.CreateString(m.SourceName)
	sevOff := b.CreateString(m.Severity)
	msgOff := b.CreateString(m.Message)

	b.StartObject(4)
	b.PrependUOffsetTSlot(3, msgOff, 0)
	b.PrependUOffsetTSlot(2, sevOff, 0)
	b.PrependUint64Slot(1, m.TimestampNs, 0)
	b.PrependUOffsetTSlot(0, nameOff, 0)
	root := b.EndObject()

	b.FinishWithFileIdentifier(root, KindAlarm[:])
	return b.FinishedBytes()
}

func DecodeAlarm(payload []byte) (AlarmData, error) {
	if kind, ok := Identify(payload); !ok || kind != KindAlarm {
		return AlarmData{}, fmt.Errorf("wire: not an alarm payload")
	}
	var tab flatbuffers.Table
	tab.Bytes = payload
	tab.Pos = rootOffset(payload)

	var m AlarmData
	if o := tab.Offset(alarmFieldSourceName); o != 0 {
		m.SourceName = string(tab.ByteVector(tab.Pos + flatbuffers.UOffsetT(o)))
	} else {
		return AlarmData{}, fmt.Errorf("wire: alarm missing source_name")
	}
	if o := tab.Offset(alarmFieldTimestampNs); o != 0 {
		m.TimestampNs = tab.GetUint64(tab.Pos + flatbuffers.UOffsetT(o))
	}
	if o := tab.Offset(alarmFieldSeverity); o != 0 {
		m.Severity = string(tab.ByteVector(tab.Pos + flatbuffers.UOffsetT(o)))
	}
	if o := tab.Offset(alarmFieldMessage); o != 0 {
		m.Message = string(tab.ByteVector(tab.Pos + flatbuffers.UOffsetT(o)))
	}
	return m, nil
}
