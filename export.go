package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"peopleconnect/internal/export"
	"peopleconnect/internal/query"
	"peopleconnect/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type exportOptions struct {
	format string
	out    string
	filter query.Filter
}

func newExportCmd() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write submissions to a CSV or Excel file",
		Example: `  peopleconnect export --format xlsx --out submissions.xlsx
  peopleconnect export --type Complaint --status New > new_complaints.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "csv", "output format: csv or xlsx")
	f.StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	f.StringSliceVar(&opts.filter.Types, "type", nil, "keep only these submission types")
	f.StringSliceVar(&opts.filter.Departments, "department", nil, "keep only these departments")
	f.StringSliceVar(&opts.filter.Statuses, "status", nil, "keep only these statuses")
	f.StringVarP(&opts.filter.Query, "query", "q", "", "case-insensitive search over name, mobile, address and message")
	return cmd
}

func runExport(ctx context.Context, opts exportOptions, stdout io.Writer) error {
	if opts.format != "csv" && opts.format != "xlsx" {
		return fmt.Errorf("unknown format %q (want csv or xlsx)", opts.format)
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := storage.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.List(ctx)
	if err != nil {
		return err
	}
	rows = opts.filter.Apply(rows)

	w := stdout
	if opts.out != "" {
		file, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create %s: %w", opts.out, err)
		}
		defer file.Close()
		w = file
	}

	if opts.format == "xlsx" {
		err = export.WriteXLSX(w, rows)
	} else {
		err = export.WriteCSV(w, rows)
	}
	if err != nil {
		return err
	}

	logger.Info("📤 Export written",
		zap.String("format", opts.format),
		zap.Int("rows", len(rows)),
		zap.String("out", opts.out))
	return nil
}
