package common

import (
	"math"
	"unsafe"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Ortho creates an orthographic projection matrix mapping the given bounds to
// WebGPU clip space ([-1, 1] in x/y, [0, 1] in z). Column-major order.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - left, right, bottom, top: view volume bounds
//   - near, far: depth range
func Ortho(out []float32, left, right, bottom, top, near, far float32) {
	Identity(out)
	out[0] = 2 / (right - left)
	out[5] = 2 / (top - bottom)
	out[10] = 1 / (near - far)
	out[12] = (right + left) / (left - right)
	out[13] = (top + bottom) / (bottom - top)
	out[14] = near / (near - far)
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// BytesToStruct reinterprets a byte slice as a struct value. The inverse of
// StructToBytes; used by CPU device backends to decode uniform blocks that
// were packed for GPU upload. The slice must be at least as large as T.
//
// Parameters:
//   - b: source byte slice holding the struct's memory representation
//
// Returns:
//   - T: the decoded struct value (zero value if b is too short)
func BytesToStruct[T any](b []byte) T {
	var zero T
	if len(b) < int(unsafe.Sizeof(zero)) {
		return zero
	}
	return *(*T)(unsafe.Pointer(&b[0]))
}

// Clamp constrains v to the inclusive range [lo, hi].
//
// Parameters:
//   - v: the value to constrain
//   - lo: lower bound
//   - hi: upper bound
//
// Returns:
//   - float64: v clamped to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp32 constrains v to the inclusive range [lo, hi] for float32 values.
//
// Parameters:
//   - v: the value to constrain
//   - lo: lower bound
//   - hi: upper bound
//
// Returns:
//   - float32: v clamped to [lo, hi]
func Clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt constrains v to the inclusive range [lo, hi] for int values.
//
// Parameters:
//   - v: the value to constrain
//   - lo: lower bound
//   - hi: upper bound
//
// Returns:
//   - int: v clamped to [lo, hi]
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp linearly interpolates between a and b by t (unclamped).
//
// Parameters:
//   - a: start value
//   - b: end value
//   - t: interpolation factor (0 returns a, 1 returns b)
//
// Returns:
//   - float64: the interpolated value
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// MoveToward advances current toward target by at most maxDelta, without
// overshooting. Used for eased parameter transitions that must not snap.
//
// Parameters:
//   - current: the current value
//   - target: the destination value
//   - maxDelta: maximum change applied this step (must be >= 0)
//
// Returns:
//   - float64: the advanced value, equal to target once within maxDelta
func MoveToward(current, target, maxDelta float64) float64 {
	if math.Abs(target-current) <= maxDelta {
		return target
	}
	if target > current {
		return current + maxDelta
	}
	return current - maxDelta
}

// IsFinite reports whether v is a finite number (not NaN and not ±Inf).
// Numeric setters across the effects packages reject non-finite inputs.
//
// Parameters:
//   - v: the value to test
//
// Returns:
//   - bool: true when v is finite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NearestPowerOfTwo rounds v to the nearest power of two. Values <= 1 return 1.
// Ties between two powers resolve toward the larger one.
//
// Parameters:
//   - v: the value to round
//
// Returns:
//   - int: the nearest power of two
func NearestPowerOfTwo(v int) int {
	if v <= 1 {
		return 1
	}
	exp := math.Round(math.Log2(float64(v)))
	return 1 << int(exp)
}
