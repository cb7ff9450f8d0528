//go:build !windows

package webgpu

import (
	"context"
	"log/slog"

	"github.com/born-ml/feinsum/internal/device"
	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/kernel"
)

// Context is unavailable on this platform.
type Context struct{}

// Open reports that the native backend is not built for this platform.
func Open(_ *slog.Logger) (*Context, error) {
	return nil, errs.New(errs.Unsupported, "webgpu.Open", "the WebGPU backend is only built for windows")
}

// Devices returns nothing on this platform.
func (c *Context) Devices() []device.Device { return nil }

// Compile always fails on this platform.
func (c *Context) Compile(context.Context, kernel.Program, map[string]int) (device.Executable, error) {
	return nil, errs.New(errs.Unsupported, "webgpu.Compile", "the WebGPU backend is only built for windows")
}

// Close is a no-op on this platform.
func (c *Context) Close() {}
