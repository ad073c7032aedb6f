package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/htmlcs/internal/config"
	"github.com/nao1215/htmlcs/internal/database"
	"github.com/nao1215/htmlcs/internal/model"
	"github.com/nao1215/htmlcs/internal/report"
	"github.com/nao1215/htmlcs/internal/term"
)

// NewLastCmd creates the last command.
func NewLastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "last [file]",
		Short: "Print the most recent stored report",
		Long: `Last prints the most recently stored sniff report, or the most recent
report of the given file, restricted to the message types of --filter.

Examples:
  # Last report of any file
  htmlcs last

  # Errors of the last report of index.html as JSON
  htmlcs last -f ERROR --json index.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLastCmd,
	}

	cmd.Flags().StringSliceP("filter", "f", nil,
		"Message types to include (ERROR, WARNING, NOTICE); default all")
	cmd.Flags().Bool("show-trace", false, "Print stack traces of JavaScript errors")
	cmd.Flags().BoolP("json", "j", false, "Output the report in JSON format")
	cmd.Flags().Bool("no-color", false, "Disable coloured output")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the report database")

	return cmd
}

// LastReport is the JSON document printed by "last --json".
type LastReport struct {
	ID        int64         `json:"id"`
	RunID     string        `json:"run_id"`
	Path      string        `json:"path"`
	Title     string        `json:"title,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Options   model.Options `json:"opts"`
	Report    *model.Report `json:"report"`
}

// runLastCmd executes the last command.
func runLastCmd(cmd *cobra.Command, args []string) error {
	values, err := cmd.Flags().GetStringSlice("filter")
	if err != nil {
		return err
	}
	filter, err := model.ParseMessageTypes(values)
	if err != nil {
		return err
	}
	showTrace, err := cmd.Flags().GetBool("show-trace")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var stored *database.StoredReport
	if len(args) == 1 {
		stored, err = db.GetLatestReport(ctx, args[0])
	} else {
		stored, err = db.GetLatest(ctx)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if stored == nil {
		if len(args) == 1 {
			fmt.Fprintf(out, "No report stored for %s\n", args[0])
		} else {
			fmt.Fprintln(out, "No reports stored yet.")
		}
		fmt.Fprintln(out, "\nUse 'htmlcs scan <files>' to sniff HTML files.")
		return nil
	}

	filtered := stored.Report.Filter(filter...)

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(&LastReport{
			ID:        stored.ID,
			RunID:     stored.RunID,
			Path:      stored.Path,
			Title:     stored.Title,
			Timestamp: stored.Timestamp,
			Options:   stored.Options,
			Report:    filtered,
		})
	}

	return printLastReport(out, stored, filtered, showTrace, !noColor)
}

// printLastReport prints a header and the report in console format.
func printLastReport(out io.Writer, stored *database.StoredReport, filtered *model.Report, showTrace, color bool) error {
	printer := term.NewPrinter(out, term.WithColor(color))
	printer.Println(printer.Magenta(stored.Path),
		"("+string(stored.Options.Standard)+",",
		stored.Timestamp.Local().Format("2006-01-02 15:04:05")+",",
		"report", fmt.Sprintf("%d)", stored.ID))
	printer.Println("  " + formatCounts(filtered.Summary()))

	file := &model.File{
		Path:   stored.Path,
		Title:  stored.Title,
		HTMLCS: &model.Annotation{Options: stored.Options, Report: filtered},
	}
	return report.NewConsoleReporter(printer, report.WithShowTrace(showTrace)).Report(file)
}
