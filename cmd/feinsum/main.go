// Package main provides the feinsum CLI.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/born-ml/feinsum/internal/config"
)

const version = "v0.1.0-dev"

// commands maps subcommand names to their entry points.
var commands = map[string]func(args []string, out io.Writer) error{
	"normalize": runNormalize,
	"record":    runRecord,
	"history":   runHistory,
	"query":     runQuery,
	"devices":   runDevices,
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		return
	}

	cmd := os.Args[1]
	switch cmd {
	case "version":
		fmt.Printf("feinsum %s\n", version)
		return
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	}

	run, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err := run(os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  feinsum <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  normalize  Print the canonical form of an einsum")
	fmt.Fprintln(w, "  record     Time a transformed einsum on the GPU and archive it")
	fmt.Fprintln(w, "  history    List the recordings of one device")
	fmt.Fprintln(w, "  query      Look up the best archived transform (not supported yet)")
	fmt.Fprintln(w, "  devices    List the available GPU adapter")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  feinsum normalize -subscripts=ij,jk->ik -shapes='N,8;8,4' -dtype=float32")
	fmt.Fprintln(w, "  feinsum record -config=feinsum.yaml -subscripts=xer,rij,ej->xei \\")
	fmt.Fprintln(w, "      -shapes='3,Ncells,3;3,35,35;Ncells,35' -names=J,R,u -dtype=float32 \\")
	fmt.Fprintln(w, "      -transform=examples/dg-grad/grad.yaml")
	fmt.Fprintln(w, "  feinsum history -device='NVIDIA TITAN V'")
}

// loadConfig reads path over the defaults; an empty path keeps the
// defaults.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}
