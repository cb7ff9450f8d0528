package main

import (
	"context"
	"flag"
	"io"
)

// runQuery looks up archived transforms for an einsum.
func runQuery(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(out)

	var ef einsumFlags
	fs.StringVar(&ef.subscripts, "subscripts", "", "Einsum subscripts (required)")
	fs.StringVar(&ef.shapes, "shapes", "", "Operand shapes separated by ';' (required)")
	fs.StringVar(&ef.names, "names", "", "Operand value names, comma-separated")
	fs.StringVar(&ef.dtype, "dtype", "float32", "Element type, or one per operand")
	configPath := fs.String("config", "", "Settings file (YAML)")
	db := fs.String("db", "", "Archive database (overrides the settings file)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	overrideString(&cfg.Database, *db)

	e, err := ef.build()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	a, err := openArchive(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.Query(context.Background(), e, nil)
	return err
}
