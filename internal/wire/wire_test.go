package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigitiserEventRoundTrip(t *testing.T) {
	meta := FrameMetadata{
		Timestamp:       time.Unix(1000, 500).UTC(),
		PeriodNumber:    3,
		ProtonsPerPulse: 4,
		Running:         true,
		FrameNumber:     100,
		VetoFlags:       7,
	}
	in := DigitiserEventMessage{
		DigitiserID: 2,
		Metadata:    meta,
		Time:        []uint32{1, 2, 3},
		Intensity:   []uint16{10, 20, 30},
		Channel:     []uint32{0, 1, 2},
	}
	require.NoError(t, in.Validate())

	payload := EncodeDigitiserEvent(in)
	out, err := DecodeDigitiserEvent(payload)
	require.NoError(t, err)

	assert.Equal(t, in.DigitiserID, out.DigitiserID)
	assert.Equal(t, in.Time, out.Time)
	assert.Equal(t, in.Intensity, out.Intensity)
	assert.Equal(t, in.Channel, out.Channel)
	assert.True(t, in.Metadata.FrameEqual(out.Metadata))
	assert.Equal(t, in.Metadata.VetoFlags, out.Metadata.VetoFlags)
}

func TestDigitiserEventSizeMismatch(t *testing.T) {
	m := DigitiserEventMessage{Time: []uint32{1, 2}, Intensity: []uint16{1}, Channel: []uint32{1, 2}}
	assert.Error(t, m.Validate())
}

func TestAggregatedFrameRoundTrip(t *testing.T) {
	in := AggregatedFrameMessage{
		Metadata:     FrameMetadata{Timestamp: time.Unix(5, 0).UTC(), FrameNumber: 9, VetoFlags: 3},
		DigitiserIDs: []uint8{2, 1},
		Time:         []uint32{1, 2, 3},
		Intensity:    []uint16{10, 20, 30},
		Channel:      []uint32{0, 1, 2},
		Complete:     true,
	}
	payload := EncodeAggregatedFrame(in)
	out, err := DecodeAggregatedFrame(payload)
	require.NoError(t, err)

	assert.Equal(t, []uint8{1, 2}, out.SortedDigitiserIDs())
	assert.Equal(t, in.Time, out.Time)
	assert.True(t, out.Complete)
}

func TestRunStartStopRoundTrip(t *testing.T) {
	start := RunStart{StartTimeMs: 1000, RunName: "R", InstrumentName: "MUSR", NumPeriods: 2}
	payload := EncodeRunStart(start)
	out, err := DecodeRunStart(payload)
	require.NoError(t, err)
	assert.Equal(t, start, out)

	stop := RunStop{StopTimeMs: 3000, RunName: "R"}
	payload = EncodeRunStop(stop)
	outStop, err := DecodeRunStop(payload)
	require.NoError(t, err)
	assert.Equal(t, stop, outStop)
}

func TestF144RoundTrip(t *testing.T) {
	m := F144LogData{SourceName: "temp", TimestampNs: 123456789, Value: SeriesFromBits(KindF64, []uint64{0})}
	m.Value = SeriesFromBits(KindF64, (NumericSeries{Kind: KindF64, F64: []float64{21.5}}).Bits())
	payload := EncodeF144(m)
	out, err := DecodeF144(payload)
	require.NoError(t, err)
	assert.Equal(t, "temp", out.SourceName)
	assert.Equal(t, KindF64, out.Value.Kind)
	assert.InDelta(t, 21.5, out.Value.F64[0], 1e-9)
}

func TestSE00RoundTrip(t *testing.T) {
	m := SE00Data{
		Name:              "pressure",
		Channel:           4,
		TimeDelta:         0.1,
		TimestampLocation: TimestampStart,
		Timestamps:        []uint64{1, 2, 3},
		PacketTimestamp:   99,
		Values:            NumericSeries{Kind: KindI32, I32: []int32{1, 2, 3}},
	}
	payload := EncodeSE00(m)
	out, err := DecodeSE00(payload)
	require.NoError(t, err)
	assert.Equal(t, m.Timestamps, out.Timestamps)
	assert.Equal(t, m.Values.I32, out.Values.I32)
}

func TestAlarmRoundTrip(t *testing.T) {
	m := AlarmData{SourceName: "hv1", TimestampNs: 42, Severity: "CRITICAL", Message: "tripped"}
	payload := EncodeAlarm(m)
	out, err := DecodeAlarm(payload)
	require.NoError(t, err)
	assert.Equal(t, m, out)
}

func TestIdentifyShortPayload(t *testing.T) {
	_, ok := Identify([]byte{1, 2, 3})
	assert.False(t, ok)
}
