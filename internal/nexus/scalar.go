package nexus

import (
	"fmt"

	"gonum.org/v1/hdf5"
)

// writeScalarUint32 creates a zero-dimensional dataset and writes a single
// value into it, used for fields fixed at run-open time like run_number.
func writeScalarUint32(group *hdf5.Group, name string, value uint32) (*ResizableScalar, error) {
	space, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return nil, fmt.Errorf("nexus: scalar dataspace for %s: %w", name, err)
	}
	defer space.Close()
	ds, err := group.CreateDataset(name, hdf5.T_NATIVE_UINT32, space)
	if err != nil {
		return nil, fmt.Errorf("nexus: create scalar %s: %w", name, err)
	}
	if err := ds.Write(&value); err != nil {
		return nil, fmt.Errorf("nexus: write scalar %s: %w", name, err)
	}
	return &ResizableScalar{ds: ds}, nil
}

func writeScalarString(group *hdf5.Group, name, value string) (*ResizableScalar, error) {
	dtype, err := hdf5.NewDatatypeFromType(hdf5.T_GO_STRING)
	if err != nil {
		return nil, fmt.Errorf("nexus: string datatype for %s: %w", name, err)
	}
	space, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return nil, fmt.Errorf("nexus: scalar dataspace for %s: %w", name, err)
	}
	defer space.Close()
	ds, err := group.CreateDatasetWith(name, dtype, space, nil)
	if err != nil {
		return nil, fmt.Errorf("nexus: create scalar %s: %w", name, err)
	}
	if err := ds.Write(&value); err != nil {
		return nil, fmt.Errorf("nexus: write scalar %s: %w", name, err)
	}
	return &ResizableScalar{ds: ds}, nil
}

// rewriteString overwrites a previously-written scalar string dataset, used
// for end_time which is unknown until a run-stop message arrives.
func (s *ResizableScalar) rewriteString(value string) error {
	if err := s.ds.Write(&value); err != nil {
		return fmt.Errorf("nexus: rewrite scalar: %w", err)
	}
	return nil
}

func writeStringAttr(group *hdf5.Group, name, value string) error {
	dtype, err := hdf5.NewDatatypeFromType(hdf5.T_GO_STRING)
	if err != nil {
		return fmt.Errorf("nexus: attr datatype for %s: %w", name, err)
	}
	space, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return fmt.Errorf("nexus: attr dataspace for %s: %w", name, err)
	}
	defer space.Close()
	attr, err := group.CreateAttribute(name, dtype, space)
	if err != nil {
		return fmt.Errorf("nexus: create attribute %s: %w", name, err)
	}
	defer attr.Close()
	if err := attr.Write(&value, dtype); err != nil {
		return fmt.Errorf("nexus: write attribute %s: %w", name, err)
	}
	return nil
}

// writeDatasetStringAttr attaches a string attribute directly to a dataset,
// used for event_time_zero's "units" and "offset" attributes.
func writeDatasetStringAttr(ds *hdf5.Dataset, name, value string) error {
	dtype, err := hdf5.NewDatatypeFromType(hdf5.T_GO_STRING)
	if err != nil {
		return fmt.Errorf("nexus: attr datatype for %s: %w", name, err)
	}
	space, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return fmt.Errorf("nexus: attr dataspace for %s: %w", name, err)
	}
	defer space.Close()
	attr, err := ds.CreateAttribute(name, dtype, space)
	if err != nil {
		return fmt.Errorf("nexus: create attribute %s: %w", name, err)
	}
	defer attr.Close()
	if err := attr.Write(&value, dtype); err != nil {
		return fmt.Errorf("nexus: write attribute %s: %w", name, err)
	}
	return nil
}
