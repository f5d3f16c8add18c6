package onnx

import (
	"io"
	"math"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
	"google.golang.org/protobuf/types/known/structpb"
)

// ExternalData locates the payload of a tensor stored outside the model file, as little-endian bytes.
type ExternalData struct {
	// Location of the file, relative to the directory of the model file.
	Location string
	Offset   int64

	// Length in bytes. If 0, the size of the tensor is used.
	Length int64
}

func externalDataFromStruct(s *structpb.Struct) (*ExternalData, error) {
	fields := s.GetFields()
	info := &ExternalData{Location: fields["location"].GetStringValue()}
	if info.Location == "" {
		return nil, errors.New("external data has no location")
	}
	for key, dst := range map[string]*int64{"offset": &info.Offset, "length": &info.Length} {
		v, found := fields[key]
		if !found {
			continue
		}
		n, isInt := jsonInt(v)
		if !isInt || n < 0 {
			return nil, errors.Errorf("external data has invalid %s %v", key, v)
		}
		*dst = n
	}
	return info, nil
}

// ExternalDataReader manages memory-mapped external data files.
// It caches the mappings by location, since multiple tensors often share the same file.
// It's safe for concurrent use.
type ExternalDataReader struct {
	baseDir  string
	mappings map[string]*mmap.ReaderAt
	mu       sync.Mutex
}

// NewExternalDataReader creates a reader for the given model directory.
// baseDir is used to resolve the external data locations.
func NewExternalDataReader(baseDir string) *ExternalDataReader {
	return &ExternalDataReader{
		baseDir:  baseDir,
		mappings: make(map[string]*mmap.ReaderAt),
	}
}

// getOrCreateMapping returns the mmap reader for the given location, creating it if necessary.
func (r *ExternalDataReader) getOrCreateMapping(location string) (*mmap.ReaderAt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mappings == nil {
		return nil, errors.New("ExternalDataReader used after Close")
	}
	if reader, ok := r.mappings[location]; ok {
		return reader, nil
	}
	if filepath.IsAbs(location) || !filepath.IsLocal(location) {
		return nil, errors.Errorf("external data location %q must be a relative path inside the model directory", location)
	}
	externalPath := filepath.Join(r.baseDir, location)
	reader, err := mmap.Open(externalPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to mmap external data file %q", externalPath)
	}
	r.mappings[location] = reader
	return reader, nil
}

// ReadInto reads the external data into dst, which must have exactly the length of the data.
func (r *ExternalDataReader) ReadInto(info *ExternalData, dst []byte) error {
	if info.Length > 0 && info.Length != int64(len(dst)) {
		return errors.Errorf("external data length %d doesn't match tensor size of %d bytes", info.Length, len(dst))
	}
	reader, err := r.getOrCreateMapping(info.Location)
	if err != nil {
		return err
	}
	n, err := reader.ReadAt(dst, info.Offset)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "failed to read %d bytes at offset %d from external data file %q",
			len(dst), info.Offset, info.Location)
	}
	if n != len(dst) {
		return errors.Errorf("read %d bytes but expected %d from external data file %q (offset %d)",
			n, len(dst), info.Location, info.Offset)
	}
	return nil
}

// Close unmaps all files. The reader can't be used afterward.
func (r *ExternalDataReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for location, reader := range r.mappings {
		if err := reader.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to close mmap for %q", location)
		}
	}
	r.mappings = nil
	return firstErr
}

// isIntegerTensor selects the tensors that may be used as shape operands (Reshape targets, axes).
func isIntegerTensor(t *Tensor) bool {
	return isIntegerONNX(WebNNToONNXDataType(t.DataType()))
}

// LoadExternalData loads the payload of the initializers stored in external files, resolved relative to baseDir.
// If filter is not nil, only the tensors for which it returns true are loaded.
//
// ReadFile loads only integer tensors, which are the ones shape inference may need.
func (m *Model) LoadExternalData(baseDir string, filter func(t *Tensor) bool) (err error) {
	reader := NewExternalDataReader(baseDir)
	defer func() {
		if closeErr := reader.Close(); err == nil {
			err = closeErr
		}
	}()
	for _, t := range m.Graph.Initializers {
		if t.IsLoaded() || (filter != nil && !filter(t)) {
			continue
		}
		size, err := t.Size()
		if err != nil {
			return err
		}
		elementSize := int64(max(t.DataType().Size(), 1))
		if size > math.MaxInt64/elementSize {
			return errors.Errorf("tensor %q with dims %v is too large to load", t.Name, t.Dims)
		}
		dst := make([]byte, size*elementSize)
		if err := reader.ReadInto(t.External, dst); err != nil {
			return errors.WithMessagef(err, "tensor %q", t.Name)
		}
		t.Data.Raw = dst
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}
