package wire

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
)

// RunStart is the control message opening a run.
type RunStart struct {
	StartTimeMs    uint64
	RunName        string
	InstrumentName string
	NumPeriods     uint32
}

const (
	runStartFieldStartTime = 4
	runStartFieldRunName   = 6
	runStartFieldInstName  = 8
	runStartFieldNPeriods  = 10
)

func EncodeRunStart(m RunStart) []byte {
	b := flatbuffers.NewBuilder(128)
	nameOff := b.CreateString(m.RunName)
	instOff := b.CreateString(m.InstrumentName)

	b.StartObject(4)
	b.PrependUint32Slot(3, m.NumPeriods, 0)
	b.PrependUOffsetTSlot(2, instOff, 0)
	b.PrependUOffsetTSlot(1, nameOff, 0)
	b.PrependUint64Slot(0, m.StartTimeMs, 0)
	root := b.EndObject()

	b.FinishWithFileIdentifier(root, KindRunStart[:])
	return b.FinishedBytes()
}

func DecodeRunStart(payload []byte) (RunStart, error) {
	if kind, ok := Identify(payload); !ok || kind != KindRunStart {
		return RunStart{}, fmt.Errorf("wire: not a run-start payload")
	}
	var tab flatbuffers.Table
	tab.Bytes = payload
	tab.Pos = rootOffset(payload)

	var m RunStart
	if o := tab.Offset(runStartFieldStartTime); o != 0 {
		m.StartTimeMs = tab.GetUint64(tab.Pos + flatbuffers.UOffsetT(o))
	}
	if o := tab.Offset(runStartFieldRunName); o != 0 {
		m.RunName = string(tab.ByteVector(tab.Pos + flatbuffers.UOffsetT(o)))
	} else {
		return RunStart{}, fmt.Errorf("wire: run-start missing run_name")
	}
	if o := tab.Offset(runStartFieldInstName); o != 0 {
		m.InstrumentName = string(tab.ByteVector(tab.Pos + flatbuffers.UOffsetT(o)))
	} else {
		return RunStart{}, fmt.Errorf("wire: run-start missing instrument_name")
	}
	if o := tab.Offset(runStartFieldNPeriods); o != 0 {
		m.NumPeriods = tab.GetUint32(tab.Pos + flatbuffers.UOffsetT(o))
	}
	return m, nil
}

// RunStop is the control message closing a run.
type RunStop struct {
	StopTimeMs uint64
	RunName    string
}

const (
	runStopFieldStopTime = 4
	runStopFieldRunName  = 6
)

func EncodeRunStop(m RunStop) []byte {
	b := flatbuffers.NewBuilder(64)
	nameOff := b.CreateString(m.RunName)

	b.StartObject(2)
	b.PrependUOffsetTSlot(1, nameOff, 0)
	b.PrependUint64Slot(0, m.StopTimeMs, 0)
	root := b.EndObject()

	b.FinishWithFileIdentifier(root, KindRunStop[:])
	return b.FinishedBytes()
}

func DecodeRunStop(payload []byte) (RunStop, error) {
	if kind, ok := Identify(payload); !ok || kind != KindRunStop {
		return RunStop{}, fmt.Errorf("wire: not a run-stop payload")
	}
	var tab flatbuffers.Table
	tab.Bytes = payload
	tab.Pos = rootOffset(payload)

	var m RunStop
	if o := tab.Offset(runStopFieldStopTime); o != 0 {
		m.StopTimeMs = tab.GetUint64(tab.Pos + flatbuffers.UOffsetT(o))
	}
	if o := tab.Offset(runStopFieldRunName); o != 0 {
		m.RunName = string(tab.ByteVector(tab.Pos + flatbuffers.UOffsetT(o)))
	} else {
		return RunStop{}, fmt.Errorf("wire: run-stop missing run_name")
	}
	return m, nil
}
