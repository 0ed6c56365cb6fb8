package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// WGPUDeviceOption is a functional option applied to the WebGPU device during NewWGPUDevice.
type WGPUDeviceOption func(*wgpuDeviceImpl)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - WGPUDeviceOption: a function that applies the present mode option to the device
func WithPresentMode(mode PresentMode) WGPUDeviceOption {
	return func(d *wgpuDeviceImpl) {
		switch mode {
		case PresentModeUncapped:
			d.presentMode = wgpu.PresentModeImmediate
		default:
			d.presentMode = wgpu.PresentModeFifo
		}
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - WGPUDeviceOption: a function that applies the option to the device
func WithForceSoftwareRenderer(force bool) WGPUDeviceOption {
	return func(d *wgpuDeviceImpl) {
		d.forceFallbackAdapter = force
	}
}

// WithClearColor sets the color the first regular pass of each frame clears to.
func WithClearColor(r, g, b float64) WGPUDeviceOption {
	return func(d *wgpuDeviceImpl) {
		d.clearColor = wgpu.Color{R: r, G: g, B: b, A: 1.0}
	}
}

// WithUniformSlots sets how many draws one frame may issue.
func WithUniformSlots(slots int) WGPUDeviceOption {
	return func(d *wgpuDeviceImpl) {
		if slots > 0 {
			d.uniformSlots = uint64(slots)
		}
	}
}

// WithDeviceLogger sets the logger for device errors that have no caller to return to.
func WithDeviceLogger(logger *zap.Logger) WGPUDeviceOption {
	return func(d *wgpuDeviceImpl) {
		if logger != nil {
			d.logger = logger
		}
	}
}
