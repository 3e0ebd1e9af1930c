package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// tensorBuffer is a reference-counted shared buffer.
// It enables cheap view creation: clones and transposed views share the
// buffer and only bump the reference count.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex // For safe deallocation
}

// newTensorBuffer creates a new reference-counted buffer with refCount = 1.
func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{
		data: make([]byte, size),
	}
	buf.refCount.Store(1)
	return buf
}

// addRef increments the reference count (for view operations).
func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

// release decrements the reference count and deallocates if it reaches 0.
func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.data = nil
	}
}

// RawTensor is the low-level tensor representation.
// It pairs a reference-counted buffer with shape, stride and offset metadata,
// so several RawTensors (views) may alias the same memory with different
// layouts.
type RawTensor struct {
	buffer *tensorBuffer // Shared reference-counted buffer
	shape  Shape         // Tensor dimensions
	stride []int         // Memory strides (row-major when contiguous)
	dtype  DataType      // Runtime type information
	device Device        // Compute device
	offset int           // Element offset into the buffer (for views)
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated zero-initialized.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * dtype.Size()

	return &RawTensor{
		buffer: newTensorBuffer(byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
		offset: 0,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides (in elements).
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice starting at the tensor's offset.
// WARNING: direct access to underlying memory. Only meaningful for
// contiguous tensors.
func (r *RawTensor) Data() []byte {
	return r.buffer.data[r.offset*r.dtype.Size():]
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	data := r.Data()
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	data := r.Data()
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&data[0])), r.NumElements())
}

// Clone creates a shallow copy of the RawTensor sharing the same buffer.
// Only the reference count is incremented; the returned tensor is a view.
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
		offset: r.offset,
	}
}

// Release decrements the reference count and deallocates if it reaches 0.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// IsContiguous reports whether the tensor's memory layout is dense row-major
// starting at offset 0 of its view.
func (r *RawTensor) IsContiguous() bool {
	expected := r.shape.ComputeStrides()
	for i := range expected {
		if r.stride[i] != expected[i] {
			return false
		}
	}
	return true
}

// SameLayout reports whether two tensors share an identical memory layout:
// equal shapes and equal strides.
func (r *RawTensor) SameLayout(other *RawTensor) bool {
	if !r.shape.Equal(other.shape) {
		return false
	}
	for i := range r.stride {
		if r.stride[i] != other.stride[i] {
			return false
		}
	}
	return true
}

// T returns a transposed view of a 2D tensor: shape and strides are swapped,
// the buffer is shared. No data is copied.
// Panics if the tensor is not 2D.
func (r *RawTensor) T() *RawTensor {
	if len(r.shape) != 2 {
		panic(fmt.Sprintf("T: expected 2D tensor, got shape %v", r.shape))
	}
	v := r.Clone()
	v.shape[0], v.shape[1] = v.shape[1], v.shape[0]
	v.stride[0], v.stride[1] = v.stride[1], v.stride[0]
	return v
}

// Contiguous returns a dense row-major copy of the tensor.
// If the tensor is already contiguous, a new tensor is still allocated so
// the caller always owns the result.
func (r *RawTensor) Contiguous() *RawTensor {
	out, err := NewRaw(r.shape, r.dtype, r.device)
	if err != nil {
		panic(fmt.Sprintf("contiguous: %v", err))
	}

	if r.IsContiguous() {
		copy(out.Data()[:r.ByteSize()], r.Data()[:r.ByteSize()])
		return out
	}

	// Strided gather walk: map each dense output index to its source offset.
	n := r.NumElements()
	idx := make([]int, len(r.shape))
	switch r.dtype {
	case Float32:
		src := unsafe.Slice((*float32)(unsafe.Pointer(&r.buffer.data[0])), len(r.buffer.data)/4)
		dst := out.AsFloat32()
		for i := 0; i < n; i++ {
			srcOff := r.offset
			for d, ix := range idx {
				srcOff += ix * r.stride[d]
			}
			dst[i] = src[srcOff]
			advance(idx, r.shape)
		}
	case Float64:
		src := unsafe.Slice((*float64)(unsafe.Pointer(&r.buffer.data[0])), len(r.buffer.data)/8)
		dst := out.AsFloat64()
		for i := 0; i < n; i++ {
			srcOff := r.offset
			for d, ix := range idx {
				srcOff += ix * r.stride[d]
			}
			dst[i] = src[srcOff]
			advance(idx, r.shape)
		}
	}
	return out
}

// advance increments a multi-dimensional index in row-major order.
func advance(idx []int, shape Shape) {
	for d := len(idx) - 1; d >= 0; d-- {
		idx[d]++
		if idx[d] < shape[d] {
			return
		}
		idx[d] = 0
	}
}
