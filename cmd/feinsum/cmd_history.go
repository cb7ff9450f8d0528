package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
)

// runHistory lists the recordings archived for one device.
func runHistory(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(out)

	configPath := fs.String("config", "", "Settings file (YAML)")
	db := fs.String("db", "", "Archive database (overrides the settings file)")
	deviceName := fs.String("device", "", "Device name as reported by the adapter (required)")
	verbose := fs.Bool("v", false, "Also print transforms and kernels")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deviceName == "" {
		return fmt.Errorf("-device is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	overrideString(&cfg.Database, *db)

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	a, err := openArchive(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.History(context.Background(), *deviceName)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintf(out, "No recordings for %q\n", *deviceName)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Timestamp\tSubscripts\tRuntime (s)\tAuthors\tRemarks\t")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%.6g\t%s\t%s\t\n", r.Timestamp, r.Subscripts, r.RuntimeInSec, r.Authors, r.Remarks)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !*verbose {
		return nil
	}
	for _, r := range rows {
		info, err := r.Info()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n== %s %s (%s)\n", r.Timestamp, r.Subscripts, info.CompilerVersion)
		fmt.Fprintf(out, "-- transform\n%s\n-- kernel\n%s\n", info.Transform, info.Kernel)
	}
	return nil
}
