package nexus

import (
	"fmt"

	"gonum.org/v1/hdf5"

	"github.com/instrument-daq/frame-pipeline/internal/wire"
)

// logSeries backs one f144/se00 source: a per-source group holding time and
// value datasets, created the first time that source name is seen. Each
// message adds one time row and one value row per element, so an se00
// source's value dataset grows by the packet's array length while its time
// dataset grows by one.
// For an selog source, alarmTime/alarmStatus/alarmSeverity are the
// value_log sidecar columns, created lazily on the first alarm for that
// source rather than up front, since most selog sources never alarm.
type logSeries struct {
	group  *hdf5.Group
	times  *ResizableDataset
	values *ResizableDataset
	kind   wire.Kind
	chunk  int

	alarmTime     *ResizableDataset
	alarmStatus   *ResizableDataset
	alarmSeverity *ResizableDataset
}

// AppendRunLog appends one f144 sample, creating the per-source group and
// its datasets on first sight of that source name. Its timestamp is stored
// relative to the run's offset.
func (rf *RunFile) AppendRunLog(sample wire.F144LogData) error {
	series, ok := rf.runlogs[sample.SourceName]
	if !ok {
		var err error
		series, err = newRunLogSeries(rf.runlogGroup, sample.SourceName, sample.Value.Kind, rf.chunks.RunLog)
		if err != nil {
			return fmt.Errorf("nexus: open runlog series %s: %w", sample.SourceName, err)
		}
		rf.runlogs[sample.SourceName] = series
	}
	return series.appendScalar(rf.offsetRelative(sample.TimestampNs), sample.Value)
}

// AppendSELog appends one se00 packet's array of values under its source's
// value_log, creating it on first sight. Its timestamp is stored relative
// to the run's offset.
func (rf *RunFile) AppendSELog(sample wire.SE00Data) error {
	series, ok := rf.selogs[sample.Name]
	if !ok {
		var err error
		series, err = newSELogSeries(rf.selogGroup, sample.Name, sample.Values.Kind, rf.chunks.SELog)
		if err != nil {
			return fmt.Errorf("nexus: open selog series %s: %w", sample.Name, err)
		}
		rf.selogs[sample.Name] = series
	}
	return series.appendScalar(rf.offsetRelative(sample.PacketTimestamp), sample.Values)
}

// AppendAlarm appends one alarm event into its source's value_log sidecar
// columns (alarm_time, alarm_status, alarm_severity), per the selog schema.
// If no se00 sample has named this source yet, its value_log is created
// with a float64 main series as a placeholder type.
func (rf *RunFile) AppendAlarm(alarm wire.AlarmData) error {
	series, ok := rf.selogs[alarm.SourceName]
	if !ok {
		var err error
		series, err = newSELogSeries(rf.selogGroup, alarm.SourceName, wire.KindF64, rf.chunks.SELog)
		if err != nil {
			return fmt.Errorf("nexus: open selog series %s: %w", alarm.SourceName, err)
		}
		rf.selogs[alarm.SourceName] = series
	}
	if series.alarmTime == nil {
		if err := series.createAlarmColumns(rf.chunks.AlarmLog); err != nil {
			return fmt.Errorf("nexus: alarm columns for %s: %w", alarm.SourceName, err)
		}
	}
	if err := series.alarmTime.AppendUint64([]uint64{rf.offsetRelative(alarm.TimestampNs)}); err != nil {
		return err
	}
	if err := series.alarmStatus.AppendString(alarm.Message); err != nil {
		return err
	}
	return series.alarmSeverity.AppendString(alarm.Severity)
}

func newRunLogSeries(parent *hdf5.Group, sourceName string, kind wire.Kind, chunk int) (*logSeries, error) {
	group, err := addGroup(parent, sourceName, "NXlog")
	if err != nil {
		return nil, err
	}
	times, err := createTimeDataset(group, "time", hdf5.T_NATIVE_UINT64, chunk)
	if err != nil {
		return nil, err
	}
	values, err := createResizableDataset(group, "value", numericDatatype(kind), chunk)
	if err != nil {
		return nil, err
	}
	return &logSeries{group: group, times: times, values: values, kind: kind, chunk: chunk}, nil
}

// newSELogSeries builds the <name> NXselog_block / value_log NXlog nesting
// the selog schema requires, as distinct from a plain runlog's flat NXlog.
func newSELogSeries(parent *hdf5.Group, sourceName string, kind wire.Kind, chunk int) (*logSeries, error) {
	block, err := addGroup(parent, sourceName, "NXselog_block")
	if err != nil {
		return nil, err
	}
	valueLog, err := addGroup(block, "value_log", "NXlog")
	if err != nil {
		return nil, err
	}
	times, err := createTimeDataset(valueLog, "time", hdf5.T_NATIVE_UINT64, chunk)
	if err != nil {
		return nil, err
	}
	values, err := createResizableDataset(valueLog, "value", numericDatatype(kind), chunk)
	if err != nil {
		return nil, err
	}
	return &logSeries{group: valueLog, times: times, values: values, kind: kind, chunk: chunk}, nil
}

func (s *logSeries) createAlarmColumns(alarmChunk int) error {
	strDtype, err := hdf5.NewDatatypeFromType(hdf5.T_GO_STRING)
	if err != nil {
		return err
	}
	alarmTime, err := createTimeDataset(s.group, "alarm_time", hdf5.T_NATIVE_UINT64, alarmChunk)
	if err != nil {
		return err
	}
	alarmStatus, err := createResizableDataset(s.group, "alarm_status", strDtype, alarmChunk)
	if err != nil {
		return err
	}
	alarmSeverity, err := createResizableDataset(s.group, "alarm_severity", strDtype, alarmChunk)
	if err != nil {
		return err
	}
	s.alarmTime = alarmTime
	s.alarmStatus = alarmStatus
	s.alarmSeverity = alarmSeverity
	return nil
}

func (s *logSeries) appendScalar(timestampNs uint64, value wire.NumericSeries) error {
	if err := s.times.AppendUint64([]uint64{timestampNs}); err != nil {
		return err
	}
	switch s.kind {
	case wire.KindF64, wire.KindF32:
		floats := make([]float64, value.Len())
		for i, bits := range value.Bits() {
			floats[i] = bitsToFloat64(s.kind, bits)
		}
		return s.values.AppendFloat64(floats)
	case wire.KindI64, wire.KindU64:
		return s.values.AppendUint64(value.Bits())
	default:
		u32s := make([]uint32, value.Len())
		for i, bits := range value.Bits() {
			u32s[i] = uint32(bits)
		}
		return s.values.AppendUint32(u32s)
	}
}

func numericDatatype(kind wire.Kind) *hdf5.Datatype {
	switch kind {
	case wire.KindF64, wire.KindF32:
		return hdf5.T_NATIVE_FLOAT64
	case wire.KindI64, wire.KindU64:
		return hdf5.T_NATIVE_UINT64
	default:
		return hdf5.T_NATIVE_UINT32
	}
}

func bitsToFloat64(kind wire.Kind, bits uint64) float64 {
	v := wire.SeriesFromBits(kind, []uint64{bits})
	if v.Len() == 0 {
		return 0
	}
	switch kind {
	case wire.KindF64:
		return v.F64[0]
	case wire.KindF32:
		return float64(v.F32[0])
	default:
		return 0
	}
}
