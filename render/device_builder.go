package render

import (
	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// deviceConfig collects pre-creation configuration from builder options.
type deviceConfig struct {
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
	cacheSize            int
}

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*deviceConfig)

// WithSurfaceDescriptor supplies the platform-specific WebGPU surface
// descriptor, typically obtained from the windowing layer. Required for the
// WGPU backend; ignored by the software backend.
//
// Parameters:
//   - descriptor: the platform-specific surface descriptor
//
// Returns:
//   - DeviceBuilderOption: a function that applies the surface descriptor option
func WithSurfaceDescriptor(descriptor *wgpu.SurfaceDescriptor) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.surfaceDescriptor = descriptor
	}
}

// WithForceFallbackAdapter forces WGPU to use a CPU/software fallback adapter
// instead of hardware GPU acceleration. This requires a software Vulkan ICD to
// be installed on the system (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the force fallback option
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.forceFallbackAdapter = force
	}
}

// WithCacheSize sets the capacity of the device's compiled-pipeline LRU cache.
// Defaults to 64 entries when not specified.
//
// Parameters:
//   - size: the maximum number of cached pipelines (values <= 0 keep the default)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the cache size option
func WithCacheSize(size int) DeviceBuilderOption {
	return func(c *deviceConfig) {
		if size > 0 {
			c.cacheSize = size
		}
	}
}

// NewDevice creates a new Device with the specified backend type and initial
// display viewport. The WGPU backend requires WithSurfaceDescriptor and panics
// without it; the software backend needs only the viewport.
//
// Parameters:
//   - backendType: the backend implementation to use (BackendTypeWGPU or BackendTypeSoftware)
//   - viewport: the initial display dimensions in pixels
//   - options: variadic list of DeviceBuilderOption functions to configure the Device
//
// Returns:
//   - Device: a new Device configured with the specified backend and options
func NewDevice(backendType BackendType, viewport common.Viewport, options ...DeviceBuilderOption) Device {
	cfg := &deviceConfig{cacheSize: 64}
	for _, opt := range options {
		opt(cfg)
	}

	switch backendType {
	case BackendTypeSoftware:
		return newSoftwareDeviceBackend(viewport, cfg)
	case BackendTypeWGPU:
		fallthrough
	default:
		if cfg.surfaceDescriptor == nil {
			panic("render: NewDevice requires WithSurfaceDescriptor for the WGPU backend")
		}
		return newWGPUDeviceBackend(viewport, cfg)
	}
}
