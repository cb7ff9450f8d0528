//go:build windows

package webgpu

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/feinsum/internal/device"
	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/kernel"
)

// Verify that Context implements device.Context.
var _ device.Context = (*Context)(nil)

// Context owns the high-performance WebGPU adapter.
type Context struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	info     device.Info
	logger   *slog.Logger
}

// Open requests the high-performance adapter and its device.
func Open(logger *slog.Logger) (c *Context, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = errs.New(errs.Engine, "webgpu.Open", "native library not available: %v", r)
		}
	}()
	if logger == nil {
		logger = slog.Default()
	}

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, errs.Wrap(errs.Engine, "webgpu.Open", fmt.Errorf("request adapter: %w", err))
	}

	info := adapter.GetInfo()

	dev, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, errs.Wrap(errs.Engine, "webgpu.Open", fmt.Errorf("request device: %w", err))
	}
	queue := dev.GetQueue()
	if queue == nil {
		dev.Release()
		adapter.Release()
		instance.Release()
		return nil, errs.New(errs.Engine, "webgpu.Open", "device has no queue")
	}

	c = &Context{
		instance: instance,
		adapter:  adapter,
		device:   dev,
		queue:    queue,
		info: device.Info{
			DeviceName: info.Device,
			VendorName: info.Vendor,
			DriverVer:  info.Description,
		},
		logger: logger,
	}
	logger.Debug("opened webgpu device", "device", info.Device, "vendor", info.Vendor, "architecture", info.Architecture)
	return c, nil
}

// Devices implements device.Context. A WebGPU context always spans one
// adapter.
func (c *Context) Devices() []device.Device {
	return []device.Device{c.info}
}

// Close releases the device and adapter.
func (c *Context) Close() {
	c.queue.Release()
	c.device.Release()
	c.adapter.Release()
	c.instance.Release()
}

type executable struct {
	ctx        *Context
	shader     *wgpu.ShaderModule
	pipeline   *wgpu.ComputePipeline
	bindGroup  *wgpu.BindGroup
	buffers    []*wgpu.Buffer
	staging    *wgpu.Buffer
	output     *wgpu.Buffer
	workgroups [3]uint32
}

// Compile implements device.Context. Argument buffers are zero-filled;
// only the launch is timed, never the data.
func (c *Context) Compile(_ context.Context, prog kernel.Program, sizes map[string]int) (exe device.Executable, err error) {
	defer func() {
		if r := recover(); r != nil {
			exe = nil
			err = fmt.Errorf("webgpu: compile %s: %v", prog.Name, r)
		}
	}()

	params, err := PackParams(prog, sizes)
	if err != nil {
		return nil, err
	}
	workgroups, err := Workgroups(prog, sizes)
	if err != nil {
		return nil, err
	}

	e := &executable{ctx: c, workgroups: workgroups}
	e.shader = c.device.CreateShaderModuleWGSL(prog.Source)
	e.pipeline = c.device.CreateComputePipelineSimple(nil, e.shader, prog.EntryPoint)

	entries := make([]wgpu.BindGroupEntry, 0, len(prog.Args)+1)
	for i, arg := range prog.Args {
		size, err := ArgBytes(arg, sizes)
		if err != nil {
			e.Release()
			return nil, err
		}
		buf := c.device.CreateBuffer(&wgpu.BufferDescriptor{
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
			Size:  size,
		})
		e.buffers = append(e.buffers, buf)
		if arg.Output && e.output == nil {
			e.output = buf
		}
		//nolint:gosec // G115: binding index is bounded by the argument count
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), buf, 0, size))
	}

	uniform := c.createUniformBuffer(params)
	e.buffers = append(e.buffers, uniform)
	//nolint:gosec // G115: binding index is bounded by the argument count
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(prog.Args)), uniform, 0, uint64(len(params))))

	e.bindGroup = c.device.CreateBindGroupSimple(e.pipeline.GetBindGroupLayout(0), entries)
	e.staging = c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  minBufferSize,
	})

	c.logger.Debug("compiled kernel", "name", prog.Name, "workgroups", workgroups, "args", len(prog.Args))
	return e, nil
}

func (c *Context) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mapped), size), data)
	buffer.Unmap()
	return buffer
}

// Run implements device.Executable. Mapping a few bytes of the output
// back blocks until the dispatch has finished.
func (e *executable) Run(_ context.Context) (time.Duration, error) {
	start := time.Now()

	encoder := e.ctx.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(e.pipeline)
	pass.SetBindGroup(0, e.bindGroup, nil)
	pass.DispatchWorkgroups(e.workgroups[0], e.workgroups[1], e.workgroups[2])
	pass.End()
	if e.output != nil {
		encoder.CopyBufferToBuffer(e.output, 0, e.staging, 0, minBufferSize)
	}
	e.ctx.queue.Submit(encoder.Finish(nil))

	if e.output != nil {
		if err := e.staging.MapAsync(e.ctx.device, wgpu.MapModeRead, 0, minBufferSize); err != nil {
			return 0, fmt.Errorf("webgpu: wait for kernel: %w", err)
		}
		e.staging.Unmap()
	}
	return time.Since(start), nil
}

// Release implements device.Executable.
func (e *executable) Release() {
	if e.bindGroup != nil {
		e.bindGroup.Release()
	}
	for _, b := range e.buffers {
		b.Release()
	}
	if e.staging != nil {
		e.staging.Release()
	}
	if e.pipeline != nil {
		e.pipeline.Release()
	}
	if e.shader != nil {
		e.shader.Release()
	}
}
