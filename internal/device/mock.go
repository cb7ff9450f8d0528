package device

import (
	"context"
	"fmt"
	"time"

	"github.com/born-ml/feinsum/internal/kernel"
)

// Verify that MockContext implements Context.
var _ Context = (*MockContext)(nil)

// MockContext is a Context for testing. Every launch takes Runtime, and
// the context records what it was asked to compile and run.
type MockContext struct {
	Devs    []Device
	Runtime time.Duration

	// CompileErr and RunErr are returned by Compile and Run when set.
	CompileErr error
	RunErr     error

	Compiled []kernel.Program
	Sizes    []map[string]int
	Runs     int
	Released int
}

// NewMockContext creates a single-device MockContext.
func NewMockContext(name string) *MockContext {
	return &MockContext{
		Devs:    []Device{Info{DeviceName: name, VendorName: "Mock", DriverVer: "1.0"}},
		Runtime: time.Millisecond,
	}
}

// Devices implements Context.
func (m *MockContext) Devices() []Device {
	return m.Devs
}

// Compile implements Context.
func (m *MockContext) Compile(_ context.Context, prog kernel.Program, sizes map[string]int) (Executable, error) {
	if m.CompileErr != nil {
		return nil, m.CompileErr
	}
	for _, p := range prog.SizeParams {
		if _, ok := sizes[p]; !ok {
			return nil, fmt.Errorf("mock: no value for size parameter %s", p)
		}
	}
	m.Compiled = append(m.Compiled, prog)
	m.Sizes = append(m.Sizes, sizes)
	return &mockExecutable{ctx: m}, nil
}

// WorkDone reports whether anything was compiled or run.
func (m *MockContext) WorkDone() bool {
	return len(m.Compiled) > 0 || m.Runs > 0
}

type mockExecutable struct {
	ctx *MockContext
}

func (e *mockExecutable) Run(context.Context) (time.Duration, error) {
	if e.ctx.RunErr != nil {
		return 0, e.ctx.RunErr
	}
	e.ctx.Runs++
	return e.ctx.Runtime, nil
}

func (e *mockExecutable) Release() {
	e.ctx.Released++
}
