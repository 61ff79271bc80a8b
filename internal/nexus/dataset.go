// Package nexus builds and appends to NeXus-format HDF5 run files: one
// NXroot per file, one NXentry, and the NXinstrument/NXdetector/NXperiod
// group hierarchy NeXus readers expect.
package nexus

import (
	"fmt"

	"gonum.org/v1/hdf5"
)

// ResizableDataset wraps an HDF5 dataset created with an unlimited extent
// along its first dimension, so event, log, and alarm streams can grow for
// the lifetime of a run without knowing their final length up front.
type ResizableDataset struct {
	ds       *hdf5.Dataset
	dtype    *hdf5.Datatype
	chunk    int
	length   int
	rowShape []int // trailing dimensions beyond the growable one
}

// createResizableDataset creates a 1-D (or (N, rowShape...)-D) dataset with
// an unbounded first dimension, chunked to chunkSize rows.
func createResizableDataset(group *hdf5.Group, name string, dtype *hdf5.Datatype, chunkSize int, rowShape ...int) (*ResizableDataset, error) {
	dims := append([]uint{0}, toUintDims(rowShape)...)
	maxDims := append([]uint{hdf5.UNLIMITED}, toUintDims(rowShape)...)
	space, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, fmt.Errorf("nexus: dataspace for %s: %w", name, err)
	}
	defer space.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, fmt.Errorf("nexus: proplist for %s: %w", name, err)
	}
	defer plist.Close()
	chunkDims := append([]uint{uint(chunkSize)}, toUintDims(rowShape)...)
	if err := plist.SetChunk(chunkDims); err != nil {
		return nil, fmt.Errorf("nexus: set chunk for %s: %w", name, err)
	}

	ds, err := group.CreateDatasetWith(name, dtype, space, plist)
	if err != nil {
		return nil, fmt.Errorf("nexus: create dataset %s: %w", name, err)
	}
	return &ResizableDataset{ds: ds, dtype: dtype, chunk: chunkSize, rowShape: rowShape}, nil
}

// createTimeDataset creates a resizable dataset and tags it with the
// "units"="ns" attribute every time-indexed dataset carries.
func createTimeDataset(group *hdf5.Group, name string, dtype *hdf5.Datatype, chunkSize int, rowShape ...int) (*ResizableDataset, error) {
	ds, err := createResizableDataset(group, name, dtype, chunkSize, rowShape...)
	if err != nil {
		return nil, err
	}
	if err := ds.SetStringAttr("units", "ns"); err != nil {
		return nil, fmt.Errorf("nexus: units attr for %s: %w", name, err)
	}
	return ds, nil
}

// openResizableDataset reattaches to a dataset an earlier run (or a prior
// process before a restart) already created.
func openResizableDataset(group *hdf5.Group, name string) (*ResizableDataset, error) {
	ds, err := group.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("nexus: open dataset %s: %w", name, err)
	}
	space := ds.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, fmt.Errorf("nexus: extent dims for %s: %w", name, err)
	}
	length := 0
	var rowShape []int
	if len(dims) > 0 {
		length = int(dims[0])
		for _, d := range dims[1:] {
			rowShape = append(rowShape, int(d))
		}
	}
	return &ResizableDataset{ds: ds, dtype: ds.Datatype(), length: length, rowShape: rowShape}, nil
}

// Len reports the current number of rows written.
func (r *ResizableDataset) Len() int { return r.length }

// AppendFloat64 extends the dataset by len(values) rows and writes values into them.
func (r *ResizableDataset) AppendFloat64(values []float64) error {
	return r.appendRaw(values)
}

// AppendUint32 extends the dataset by len(values) rows and writes values into them.
func (r *ResizableDataset) AppendUint32(values []uint32) error {
	return r.appendRaw(values)
}

// AppendUint64 extends the dataset by len(values) rows and writes values into them.
func (r *ResizableDataset) AppendUint64(values []uint64) error {
	return r.appendRaw(values)
}

// AppendString appends a single variable-length string as one row.
func (r *ResizableDataset) AppendString(value string) error {
	return r.appendRaw([]string{value})
}

func (r *ResizableDataset) appendRaw(values any) error {
	rowCount, err := rowCountOf(values)
	if err != nil {
		return err
	}

	newLen := uint(r.length + rowCount)
	newDims := append([]uint{newLen}, toUintDims(r.rowShape)...)
	if err := r.ds.Resize(newDims); err != nil {
		return fmt.Errorf("nexus: resize dataset: %w", err)
	}

	space := r.ds.Space()
	defer space.Close()

	offset := append([]uint{uint(r.length)}, zeros(len(r.rowShape))...)
	count := append([]uint{uint(rowCount)}, toUintDims(r.rowShape)...)
	if err := space.SelectHyperslab(offset, nil, count, nil); err != nil {
		return fmt.Errorf("nexus: select hyperslab: %w", err)
	}

	memSpace, err := hdf5.CreateSimpleDataspace(count, count)
	if err != nil {
		return fmt.Errorf("nexus: mem dataspace: %w", err)
	}
	defer memSpace.Close()

	if err := r.ds.WriteSubset(values, memSpace, space); err != nil {
		return fmt.Errorf("nexus: write subset: %w", err)
	}
	r.length += rowCount
	return nil
}

// SetStringAttr attaches a string attribute to the dataset, used for the
// "units" attribute every time-indexed dataset carries and the "offset"
// attribute recorded once on event_time_zero.
func (r *ResizableDataset) SetStringAttr(name, value string) error {
	return writeDatasetStringAttr(r.ds, name, value)
}

// Close releases the underlying HDF5 dataset handle.
func (r *ResizableDataset) Close() error { return r.ds.Close() }

// rowCountOf reports how many rows values contributes to the growable
// dimension. Every element of a numeric slice is its own row — a one-value
// slice (a per-frame scalar like event_index) grows the dataset by one row,
// and an N-value slice (a frame's event_id/event_time_offset/pulse_height)
// grows it by N, keeping it aligned with the other event-indexed datasets.
func rowCountOf(values any) (int, error) {
	switch v := values.(type) {
	case []float64:
		return len(v), nilIfEmpty(len(v))
	case []uint32:
		return len(v), nilIfEmpty(len(v))
	case []uint64:
		return len(v), nilIfEmpty(len(v))
	case []string:
		return len(v), nilIfEmpty(len(v))
	default:
		return 0, fmt.Errorf("nexus: unsupported append type %T", values)
	}
}

func nilIfEmpty(n int) error {
	if n == 0 {
		return fmt.Errorf("nexus: append called with zero values")
	}
	return nil
}

func toUintDims(dims []int) []uint {
	out := make([]uint, len(dims))
	for i, d := range dims {
		out[i] = uint(d)
	}
	return out
}

func zeros(n int) []uint {
	return make([]uint, n)
}
