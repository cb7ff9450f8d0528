// Package device abstracts the hardware that compiled kernels run on.
//
// A Context owns the physical devices visible to a recording and compiles
// kernel programs for them. Benchmark turns an Executable into one stable
// runtime figure.
package device

import (
	"context"
	"time"

	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/kernel"
)

// Device describes one physical device. The strings are stored verbatim
// in archive records and used for peak-performance lookups.
type Device interface {
	Name() string
	Vendor() string
	DriverVersion() string
}

// Context is a set of devices plus a compiler for them.
type Context interface {
	// Devices lists the physical devices the context spans.
	Devices() []Device
	// Compile builds prog for the context's device and allocates its
	// arguments for the given size parameters.
	Compile(ctx context.Context, prog kernel.Program, sizes map[string]int) (Executable, error)
}

// Executable is a compiled program bound to its argument buffers.
type Executable interface {
	// Run launches the program once and waits for it to finish.
	Run(ctx context.Context) (time.Duration, error)
	// Release frees device resources.
	Release()
}

// Info is a plain Device.
type Info struct {
	DeviceName string `yaml:"name"`
	VendorName string `yaml:"vendor"`
	DriverVer  string `yaml:"driver_version"`
}

// Name implements Device.
func (i Info) Name() string { return i.DeviceName }

// Vendor implements Device.
func (i Info) Vendor() string { return i.VendorName }

// DriverVersion implements Device.
func (i Info) DriverVersion() string { return i.DriverVer }

// CompilerVersion renders the version string archived with a record.
func CompilerVersion(d Device) string {
	return d.Vendor() + "-" + d.DriverVersion()
}

// Single returns the only device of c. Contexts spanning several devices
// are unsupported.
func Single(c Context) (Device, error) {
	devs := c.Devices()
	switch len(devs) {
	case 1:
		return devs[0], nil
	case 0:
		return nil, errs.New(errs.Unsupported, "device.Single", "device context has no devices")
	default:
		return nil, errs.New(errs.Unsupported, "device.Single",
			"device context spans %d devices; only single-device contexts are supported", len(devs))
	}
}
