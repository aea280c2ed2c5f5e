package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tms-dashboard/internal/config"
	"tms-dashboard/internal/derive"
	"tms-dashboard/internal/ingest"
	"tms-dashboard/internal/models"
	"tms-dashboard/internal/observability"
	"tms-dashboard/internal/workbook"
)

type rootOptions struct {
	logLevel      string
	maxLegacyRows int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "tmsctl",
		Short: "Inspect TMS spreadsheet exports",
		Long: `tmsctl reads a TMS export workbook (.xlsx or legacy .xls), runs the same
ingestion and derivation as the dashboard, and prints the results as JSON.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().IntVar(&opts.maxLegacyRows, "max-legacy-rows", workbook.DefaultMaxLegacyRows, "row cap per sheet for .xls files")

	cmd.AddCommand(newInspectCmd(opts))
	cmd.AddCommand(newSheetsCmd(opts))
	return cmd
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	return observability.NewLoggerTo(w, config.LoggerConfig{Level: o.logLevel, Format: "text"})
}

func (o *rootOptions) workbookOptions() workbook.Options {
	return workbook.Options{MaxLegacyRows: o.maxLegacyRows}
}

type inspectOutput struct {
	File    string                `json:"file"`
	Report  *ingest.Report        `json:"report"`
	Metrics models.DerivedMetrics `json:"metrics"`
	Summary *models.Summary       `json:"summary,omitempty"`
}

func newInspectCmd(root *rootOptions) *cobra.Command {
	var (
		pretty   bool
		output   string
		summary  bool
		topLanes int
		literal  bool
	)

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Parse a workbook and print the ingestion report and metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			parser := ingest.NewParser(root.logger(cmd.ErrOrStderr()), ingest.Options{Workbook: root.workbookOptions()})
			ds, report, err := parser.ParseFile(cmd.Context(), f, filepath.Base(path))
			if err != nil {
				return err
			}

			s := derive.ReportWith(ds, derive.Options{
				TopLanes:      topLanes,
				LossAccounts:  derive.DefaultLossAccounts,
				LiteralBilled: literal,
			})
			out := inspectOutput{File: path, Report: report, Metrics: s.Metrics}
			if summary {
				out.Summary = &s
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}

			enc := json.NewEncoder(w)
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(out)
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write JSON to a file instead of stdout")
	cmd.Flags().BoolVar(&summary, "summary", false, "include every derived view, not just the headline metrics")
	cmd.Flags().IntVar(&topLanes, "top-lanes", derive.DefaultTopLanes, "number of lanes ranked in the summary")
	cmd.Flags().BoolVar(&literal, "literal-billed", false, "count every status containing \"billed\", including Unbilled")
	return cmd
}

func newSheetsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sheets FILE",
		Short: "List the sheets of a workbook with their row counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			wb, err := workbook.Read(f, root.workbookOptions())
			if err != nil {
				return err
			}

			expected := make(map[string]string, len(ingest.ExpectedSheets))
			for _, name := range ingest.ExpectedSheets {
				if s, ok := ingest.Lookup(wb.Sheets, name); ok {
					expected[s.Name] = name
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "format: %s\n\n", wb.Format)
			fmt.Fprintf(w, "  %-30s %8s  %s\n", "SHEET", "ROWS", "READ AS")
			for _, info := range wb.Info() {
				if err, ok := wb.Failures[info.Name]; ok {
					fmt.Fprintf(w, "  %-30s %8s  unreadable: %v\n", info.Name, "-", err)
					continue
				}
				fmt.Fprintf(w, "  %-30s %8d  %s\n", info.Name, info.Rows, expected[info.Name])
			}
			return nil
		},
	}
}
