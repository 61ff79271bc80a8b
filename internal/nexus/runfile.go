package nexus

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/hdf5"

	"github.com/instrument-daq/frame-pipeline/internal/wire"
)

const timeLayout = "2006-01-02T15:04:05Z"

// ChunkSizes controls the chunk length of each resizable dataset family, so
// a deployment can trade write amplification against read granularity.
type ChunkSizes struct {
	EventList int
	FrameList int
	RunLog    int
	SELog     int
	AlarmLog  int
}

// RunFile owns one open .nxs file for the duration of a run: the NXroot,
// its single NXentry ("raw_data_1"), and every group and dataset beneath it.
type RunFile struct {
	path string
	file *hdf5.File

	runNumber   *ResizableScalar
	startTime   *ResizableScalar
	endTime     *ResizableScalar
	runName     *ResizableScalar
	instrument  *ResizableScalar

	eventIndex      *ResizableDataset
	eventTimeZero   *ResizableDataset
	eventTimeOffset *ResizableDataset
	eventID         *ResizableDataset
	pulseHeight     *ResizableDataset

	periodNumber   *ResizableDataset
	frameNumber    *ResizableDataset
	frameComplete  *ResizableDataset
	running        *ResizableDataset
	vetoFlags      *ResizableDataset

	offsetSet bool
	offsetNs  int64

	runlogGroup *hdf5.Group
	runlogs     map[string]*logSeries
	selogGroup  *hdf5.Group
	selogs      map[string]*logSeries

	chunks ChunkSizes
}

// ResizableScalar is a single-value dataset written once at run-open and
// possibly rewritten at run-close (start_time/end_time/run_number).
type ResizableScalar struct{ ds *hdf5.Dataset }

// Create builds a new .nxs file at <root>/<runName>.nxs with the full NeXus
// group hierarchy, ready for events, periods, and run logs to be appended.
func Create(root, runName, instrumentName string, runNumber uint64, startTime time.Time, chunks ChunkSizes) (*RunFile, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("nexus: mkdir %s: %w", root, err)
	}
	path := filepath.Join(root, runName+".nxs")

	file, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("nexus: create file %s: %w", path, err)
	}
	if err := setNXClass(file.Group, "NXroot"); err != nil {
		file.Close()
		return nil, err
	}

	entry, err := addGroup(file.Group, "raw_data_1", "NXentry")
	if err != nil {
		file.Close()
		return nil, err
	}

	rf := &RunFile{path: path, file: file, chunks: chunks, runlogs: map[string]*logSeries{}, selogs: map[string]*logSeries{}}

	rf.runNumber, err = writeScalarUint32(entry, "run_number", uint32(runNumber))
	if err != nil {
		return nil, rf.failClose(err)
	}
	rf.runName, err = writeScalarString(entry, "name", runName)
	if err != nil {
		return nil, rf.failClose(err)
	}
	rf.startTime, err = writeScalarString(entry, "start_time", startTime.UTC().Format(timeLayout))
	if err != nil {
		return nil, rf.failClose(err)
	}
	rf.endTime, err = writeScalarString(entry, "end_time", "")
	if err != nil {
		return nil, rf.failClose(err)
	}

	instrument, err := addGroup(entry, "instrument", "NXinstrument")
	if err != nil {
		return nil, rf.failClose(err)
	}
	rf.instrument, err = writeScalarString(instrument, "name", instrumentName)
	if err != nil {
		return nil, rf.failClose(err)
	}
	if _, err := addGroup(instrument, "detector_1", "NXdetector"); err != nil {
		return nil, rf.failClose(err)
	}

	detectorEvents, err := addGroup(entry, "detector_1_events", "NXevent_data")
	if err != nil {
		return nil, rf.failClose(err)
	}
	if err := rf.createEventDatasets(detectorEvents); err != nil {
		return nil, rf.failClose(err)
	}

	periods, err := addGroup(entry, "periods", "NXperiod")
	if err != nil {
		return nil, rf.failClose(err)
	}
	_, err = createResizableDataset(periods, "period_index", hdf5.T_NATIVE_UINT32, chunks.FrameList)
	if err != nil {
		return nil, rf.failClose(err)
	}

	rf.runlogGroup, err = addGroup(entry, "runlog", "NXrunlog")
	if err != nil {
		return nil, rf.failClose(err)
	}
	rf.selogGroup, err = addGroup(entry, "selog", "NXselog")
	if err != nil {
		return nil, rf.failClose(err)
	}

	return rf, nil
}

func (rf *RunFile) failClose(err error) error {
	rf.file.Close()
	os.Remove(rf.path)
	return err
}

func (rf *RunFile) createEventDatasets(group *hdf5.Group) error {
	var err error
	rf.eventIndex, err = createResizableDataset(group, "event_index", hdf5.T_NATIVE_UINT32, rf.chunks.FrameList)
	if err != nil {
		return err
	}
	rf.eventTimeZero, err = createTimeDataset(group, "event_time_zero", hdf5.T_NATIVE_UINT64, rf.chunks.FrameList)
	if err != nil {
		return err
	}
	rf.eventTimeOffset, err = createTimeDataset(group, "event_time_offset", hdf5.T_NATIVE_UINT32, rf.chunks.EventList)
	if err != nil {
		return err
	}
	rf.eventID, err = createResizableDataset(group, "event_id", hdf5.T_NATIVE_UINT32, rf.chunks.EventList)
	if err != nil {
		return err
	}
	rf.pulseHeight, err = createTimeDataset(group, "pulse_height", hdf5.T_NATIVE_FLOAT64, rf.chunks.EventList)
	if err != nil {
		return err
	}
	rf.periodNumber, err = createResizableDataset(group, "period_number", hdf5.T_NATIVE_UINT64, rf.chunks.FrameList)
	if err != nil {
		return err
	}
	rf.frameNumber, err = createResizableDataset(group, "frame_number", hdf5.T_NATIVE_UINT32, rf.chunks.FrameList)
	if err != nil {
		return err
	}
	rf.frameComplete, err = createResizableDataset(group, "frame_complete", hdf5.T_NATIVE_UINT32, rf.chunks.FrameList)
	if err != nil {
		return err
	}
	rf.running, err = createResizableDataset(group, "running", hdf5.T_NATIVE_UINT32, rf.chunks.FrameList)
	if err != nil {
		return err
	}
	rf.vetoFlags, err = createResizableDataset(group, "veto_flags", hdf5.T_NATIVE_UINT32, rf.chunks.FrameList)
	if err != nil {
		return err
	}
	return nil
}

// AppendFrame writes one aggregated frame's events and advances the
// event-index table that locates each frame's slice within the flat event
// arrays. event_time_zero is recorded relative to the run's offset, the
// first frame's timestamp, fixed in place by an "offset" attribute the
// first time a frame is appended.
func (rf *RunFile) AppendFrame(frame wire.AggregatedFrameMessage) error {
	timestampNs := frame.Metadata.Timestamp.UnixNano()
	if !rf.offsetSet {
		rf.offsetNs = timestampNs
		rf.offsetSet = true
		if err := rf.eventTimeZero.SetStringAttr("offset", frame.Metadata.Timestamp.UTC().Format(timeLayout)); err != nil {
			return err
		}
	}

	startIndex := uint32(rf.eventID.Len())
	if err := rf.eventIndex.AppendUint32([]uint32{startIndex}); err != nil {
		return err
	}
	if err := rf.eventTimeZero.AppendUint64([]uint64{uint64(timestampNs - rf.offsetNs)}); err != nil {
		return err
	}
	if err := rf.periodNumber.AppendUint64([]uint64{frame.Metadata.PeriodNumber}); err != nil {
		return err
	}
	if err := rf.frameNumber.AppendUint32([]uint32{frame.Metadata.FrameNumber}); err != nil {
		return err
	}
	if err := rf.frameComplete.AppendUint32([]uint32{boolToUint32(frame.Complete)}); err != nil {
		return err
	}
	if err := rf.running.AppendUint32([]uint32{boolToUint32(frame.Metadata.Running)}); err != nil {
		return err
	}
	if err := rf.vetoFlags.AppendUint32([]uint32{uint32(frame.Metadata.VetoFlags)}); err != nil {
		return err
	}
	if err := rf.eventID.AppendUint32(frame.Channel); err != nil {
		return err
	}
	if err := rf.eventTimeOffset.AppendUint32(frame.Time); err != nil {
		return err
	}
	intensities := make([]float64, len(frame.Intensity))
	for i, v := range frame.Intensity {
		intensities[i] = float64(v)
	}
	return rf.pulseHeight.AppendFloat64(intensities)
}

// offsetRelative converts an absolute nanosecond timestamp to nanoseconds
// since the run's offset, or returns it unchanged if no frame has set the
// offset yet.
func (rf *RunFile) offsetRelative(timestampNs uint64) uint64 {
	if !rf.offsetSet {
		return timestampNs
	}
	return uint64(int64(timestampNs) - rf.offsetNs)
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Stop records the run's end time once a run-stop message has arrived.
func (rf *RunFile) Stop(stopTime time.Time) error {
	return rf.endTime.rewriteString(stopTime.UTC().Format(timeLayout))
}

// Path returns the filesystem path of the underlying .nxs file.
func (rf *RunFile) Path() string { return rf.path }

// Close flushes and closes the underlying HDF5 file handle.
func (rf *RunFile) Close() error {
	for _, s := range rf.runlogs {
		s.values.Close()
		s.times.Close()
	}
	for _, s := range rf.selogs {
		s.values.Close()
		s.times.Close()
		if s.alarmTime != nil {
			s.alarmTime.Close()
			s.alarmStatus.Close()
			s.alarmSeverity.Close()
		}
	}
	return rf.file.Close()
}

func setNXClass(group *hdf5.Group, class string) error {
	return writeStringAttr(group, "NX_class", class)
}

func addGroup(parent *hdf5.Group, name, nxClass string) (*hdf5.Group, error) {
	g, err := parent.CreateGroup(name)
	if err != nil {
		return nil, fmt.Errorf("nexus: create group %s: %w", name, err)
	}
	if err := setNXClass(g, nxClass); err != nil {
		return nil, err
	}
	return g, nil
}
