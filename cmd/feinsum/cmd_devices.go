package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/born-ml/feinsum/internal/archive"
	"github.com/born-ml/feinsum/internal/device"
	"github.com/born-ml/feinsum/internal/device/webgpu"
)

// runDevices lists the WebGPU adapter and the archive table it maps to.
func runDevices(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("devices", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "", "Settings file (YAML)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	gpu, err := webgpu.Open(logger)
	if err != nil {
		return err
	}
	defer gpu.Close()

	return printDevices(out, gpu.Devices(), cfg.RooflineTables().PeakBandwidth)
}

func printDevices(out io.Writer, devs []device.Device, bandwidth map[string]float64) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Name\tCompiler version\tTable\tRoofline\t")
	for _, d := range devs {
		roofline := "no"
		if _, ok := bandwidth[d.Name()]; ok {
			roofline = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", d.Name(), device.CompilerVersion(d), archive.TableName(d.Name()), roofline)
	}
	return w.Flush()
}
