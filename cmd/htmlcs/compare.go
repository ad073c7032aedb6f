package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/htmlcs/internal/config"
	"github.com/nao1215/htmlcs/internal/database"
	"github.com/nao1215/htmlcs/internal/model"
)

// Directions of the change between two reports.
const (
	directionWorsened  = "worsened"
	directionImproved  = "improved"
	directionUnchanged = "unchanged"
	noMessagesSummary  = "No messages"
)

// NewCompareCmd creates the compare command.
// This command compares stored reports of one file.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [file]",
		Short: "Compare the reports of a file with its history",
		Long: `Compare shows how the accessibility of a file changed between two scans:
- messages that appeared since the previous report
- messages that are no longer reported
- the change in errors, warnings and notices

The comparison needs at least two stored reports of the file. Use
'htmlcs scan' to sniff files and store their reports.

Examples:
  # Compare the latest two reports of a file
  htmlcs compare site/index.html

  # List the stored reports of a file
  htmlcs compare --list site/index.html

  # Compare with a specific report by ID
  htmlcs compare --with-id 5 site/index.html

  # Compare with the first report since a date
  htmlcs compare --since 2026-01-01 site/index.html

  # List every file and the recent runs in the database
  htmlcs compare --list-files
  htmlcs compare --list-runs`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List the stored reports of the specified file")
	cmd.Flags().BoolP("list-files", "L", false,
		"List all files with stored reports")
	cmd.Flags().Bool("list-runs", false,
		"List the most recent scan runs")

	// Comparison target flags
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific report by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first report after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the report database")

	return cmd
}

// compareOptions are the parsed flags of the compare command.
type compareOptions struct {
	withID   int64
	since    string
	json     bool
	markdown bool
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listFiles, err := cmd.Flags().GetBool("list-files")
	if err != nil {
		return err
	}
	listRuns, err := cmd.Flags().GetBool("list-runs")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	if !listFiles && !listRuns && len(args) == 0 {
		return errors.New("file path is required (use --list-files to see stored files)")
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if listFiles {
		return listStoredFiles(ctx, out, db)
	}
	if listRuns {
		return listRecentRuns(ctx, out, db)
	}

	path := args[0]

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listReportHistory(ctx, out, db, path)
	}

	var opts compareOptions
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if opts.withID, err = cmd.Flags().GetInt64("with-id"); err != nil {
		return err
	}
	if opts.since, err = cmd.Flags().GetString("since"); err != nil {
		return err
	}

	return runComparison(ctx, out, db, path, opts)
}

// listStoredFiles lists all files that have reports in the database.
func listStoredFiles(ctx context.Context, out io.Writer, db *database.ReportDB) error {
	paths, err := db.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if len(paths) == 0 {
		fmt.Fprintln(out, "No stored reports found in the database.")
		fmt.Fprintln(out, "\nUse 'htmlcs scan <files>' to sniff HTML files.")
		return nil
	}

	fmt.Fprintf(out, "Files with stored reports (%d):\n\n", len(paths))
	for _, path := range paths {
		fmt.Fprintf(out, "  • %s\n", path)
	}
	fmt.Fprintln(out, "\nUse 'htmlcs compare --list <file>' to see the report history of a file.")

	return nil
}

// listRecentRuns lists the latest scan runs.
func listRecentRuns(ctx context.Context, out io.Writer, db *database.ReportDB) error {
	const limit = 20

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the database.")
		return nil
	}

	fmt.Fprintf(out, "Recent runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-20s  %s\n", "Run", "Started", "Files")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 66))
	for _, run := range runs {
		fmt.Fprintf(out, "  %-36s  %-20s  %d\n",
			run.ID, run.Started.Local().Format("2006-01-02 15:04:05"), run.Files)
	}
	return nil
}

// listReportHistory lists the stored reports of path.
func listReportHistory(ctx context.Context, out io.Writer, db *database.ReportDB, path string) error {
	reports, err := db.GetHistoryWithMetadata(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to get report history: %w", err)
	}

	if len(reports) == 0 {
		fmt.Fprintf(out, "No report history found for %s\n", path)
		fmt.Fprintln(out, "\nUse 'htmlcs scan' to sniff this file.")
		return nil
	}

	fmt.Fprintf(out, "Report history for %s (%d reports):\n\n", path, len(reports))
	fmt.Fprintf(out, "  %-6s  %-20s  %-10s  %s\n", "ID", "Date", "Standard", "Messages")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))

	for _, meta := range reports {
		fmt.Fprintf(out, "  %-6d  %-20s  %-10s  %s\n",
			meta.ID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			meta.Standard,
			formatMessageSummary(meta.Summary),
		)
	}

	fmt.Fprintln(out, "\nUse 'htmlcs compare <file>' to compare the latest two reports.")
	fmt.Fprintln(out, "Use 'htmlcs compare --with-id <id> <file>' to compare with a specific report.")

	return nil
}

// formatMessageSummary formats summary counts as "E:2 W:1 N:5".
func formatMessageSummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	for _, t := range model.AllMessageTypes {
		if v := summary[t.SummaryKey()]; v > 0 {
			parts = append(parts, fmt.Sprintf("%c:%d", string(t)[0], v))
		}
	}

	if len(parts) == 0 {
		return noMessagesSummary
	}
	return strings.Join(parts, " ")
}

// runComparison performs the actual comparison between stored reports.
func runComparison(ctx context.Context, out io.Writer, db *database.ReportDB, path string, opts compareOptions) error {
	reports, err := db.GetHistory(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to get report history: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no report history found for %s", path)
	}

	if len(reports) < 2 && opts.withID == 0 && opts.since == "" {
		return fmt.Errorf("at least 2 reports are required for comparison (found %d)", len(reports))
	}

	// The latest report is always the current one.
	current := reports[0]
	var previous *database.StoredReport

	switch {
	case opts.withID > 0:
		previous, err = db.GetReportByID(ctx, opts.withID)
		if err != nil {
			return fmt.Errorf("failed to get report with ID %d: %w", opts.withID, err)
		}
		if previous == nil {
			return fmt.Errorf("report with ID %d not found", opts.withID)
		}
		if previous.Path != database.Key(path) {
			return fmt.Errorf("report ID %d belongs to %s, not %s", opts.withID, previous.Path, path)
		}
	case opts.since != "":
		parsedDate, err := time.Parse("2006-01-02", opts.since)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Reports are newest first; walk backwards for the oldest match.
		for i := len(reports) - 1; i >= 0; i-- {
			if !reports[i].Timestamp.Before(parsedDate) {
				previous = reports[i]
				break
			}
		}
		if previous == nil {
			return fmt.Errorf("no reports found since %s", opts.since)
		}
		if previous == current {
			return fmt.Errorf("only one report found since %s; at least 2 reports are required for comparison", opts.since)
		}
	default:
		previous = reports[1]
	}

	comparison := compareReports(previous, current)

	switch {
	case opts.json:
		return outputComparisonJSON(out, comparison)
	case opts.markdown:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// ComparisonResult holds the result of comparing two reports of a file.
type ComparisonResult struct {
	// Path is the compared file.
	Path string `json:"path"`

	// Previous contains metadata about the older report.
	Previous ReportCounts `json:"previous"`

	// Current contains metadata about the newer report.
	Current ReportCounts `json:"current"`

	// NewMessages are reported now but were not reported before.
	NewMessages []model.Message `json:"new_messages,omitempty"`

	// ResolvedMessages were reported before but are not reported now.
	ResolvedMessages []model.Message `json:"resolved_messages,omitempty"`

	// UnchangedCount is the number of messages reported in both.
	UnchangedCount int `json:"unchanged_count"`

	// Change describes the overall change.
	Change Change `json:"change"`
}

// ReportCounts contains metadata about a report for comparison display.
type ReportCounts struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Standard  string    `json:"standard"`
	Timestamp time.Time `json:"timestamp"`

	Total         int `json:"total"`
	Errors        int `json:"errors"`
	Warnings      int `json:"warnings"`
	Notices       int `json:"notices"`
	RuntimeErrors int `json:"runtime_errors"`
}

// Change describes the change in message counts between reports.
type Change struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	ErrorDelta   int `json:"error_delta"`
	WarningDelta int `json:"warning_delta"`
	NoticeDelta  int `json:"notice_delta"`
}

func countsOf(r *database.StoredReport) ReportCounts {
	s := r.Report.Summary()
	return ReportCounts{
		ID:            r.ID,
		RunID:         r.RunID,
		Standard:      string(r.Options.Standard),
		Timestamp:     r.Timestamp,
		Total:         s.Total(),
		Errors:        s.Errors(),
		Warnings:      s.Warnings(),
		Notices:       s.Notices(),
		RuntimeErrors: s.RuntimeErrors,
	}
}

// compareReports compares two reports and generates a comparison result.
// Messages are matched by type, code and element; a message reported
// twice on both sides counts as two unchanged messages.
func compareReports(previous, current *database.StoredReport) *ComparisonResult {
	result := &ComparisonResult{
		Path:     current.Path,
		Previous: countsOf(previous),
		Current:  countsOf(current),
	}

	remaining := make(map[string]int)
	for _, m := range previous.Report.Messages {
		remaining[messageKey(m)]++
	}

	for _, m := range current.Report.Messages {
		key := messageKey(m)
		if remaining[key] > 0 {
			remaining[key]--
			result.UnchangedCount++
			continue
		}
		result.NewMessages = append(result.NewMessages, m)
	}

	for _, m := range previous.Report.Messages {
		key := messageKey(m)
		if remaining[key] > 0 {
			remaining[key]--
			result.ResolvedMessages = append(result.ResolvedMessages, m)
		}
	}

	sortMessages(result.NewMessages)
	sortMessages(result.ResolvedMessages)

	result.Change = calculateChange(result.Previous, result.Current)

	return result
}

// messageKey generates the key a message is matched by.
func messageKey(m model.Message) string {
	return string(m.Type) + "|" + m.Code + "|" + m.OuterHTML
}

// sortMessages orders messages by type, then code.
func sortMessages(messages []model.Message) {
	slices.SortStableFunc(messages, func(a, b model.Message) int {
		if c := cmp.Compare(a.Type.Rank(), b.Type.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
}

// calculateChange calculates the change between two reports.
// Errors weigh more than warnings, which weigh more than notices.
func calculateChange(previous, current ReportCounts) Change {
	change := Change{
		ErrorDelta:   current.Errors - previous.Errors,
		WarningDelta: current.Warnings - previous.Warnings,
		NoticeDelta:  current.Notices - previous.Notices,
	}

	previousScore := previous.Errors*100 + previous.Warnings*10 + previous.Notices
	currentScore := current.Errors*100 + current.Warnings*10 + current.Notices

	switch {
	case currentScore < previousScore:
		change.Direction = directionImproved
	case currentScore > previousScore:
		change.Direction = directionWorsened
	default:
		change.Direction = directionUnchanged
	}

	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Report Comparison: " + result.Path)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Status:** %s", formatDirection(result.Change.Direction))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date", result.Previous.Timestamp.Format("2006-01-02 15:04"), result.Current.Timestamp.Format("2006-01-02 15:04"), "-"},
			{"Standard", result.Previous.Standard, result.Current.Standard, "-"},
			{"Errors", strconv.Itoa(result.Previous.Errors), strconv.Itoa(result.Current.Errors), formatDelta(result.Change.ErrorDelta)},
			{"Warnings", strconv.Itoa(result.Previous.Warnings), strconv.Itoa(result.Current.Warnings), formatDelta(result.Change.WarningDelta)},
			{"Notices", strconv.Itoa(result.Previous.Notices), strconv.Itoa(result.Current.Notices), formatDelta(result.Change.NoticeDelta)},
			{"**Total**", "**" + strconv.Itoa(result.Previous.Total) + "**", "**" + strconv.Itoa(result.Current.Total) + "**",
				"**" + formatDelta(result.Current.Total-result.Previous.Total) + "**"},
		},
	})

	if len(result.NewMessages) > 0 {
		md.PlainText("")
		md.H2f("New Messages (%d)", len(result.NewMessages))
		md.PlainText("")
		md.BulletList(markdownItems(result.NewMessages, false)...)
	}

	if len(result.ResolvedMessages) > 0 {
		md.PlainText("")
		md.H2f("Resolved Messages (%d)", len(result.ResolvedMessages))
		md.PlainText("")
		md.BulletList(markdownItems(result.ResolvedMessages, true)...)
	}

	if result.UnchangedCount > 0 {
		md.PlainText("")
		md.HorizontalRule()
		md.PlainTextf("*%d message%s unchanged*", result.UnchangedCount, model.Plural(result.UnchangedCount))
	}

	return md.Build()
}

// markdownItems renders messages as list items, struck through when
// resolved.
func markdownItems(messages []model.Message, strike bool) []string {
	items := make([]string, 0, len(messages))
	for _, m := range messages {
		item := fmt.Sprintf("**[%s]** `%s`: %s", m.Type, m.Code, m.Msg)
		if strike {
			item = "~~" + item + "~~"
		}
		items = append(items, item)
	}
	return items
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Report Comparison: %s\n", result.Path)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nStatus: %s\n", formatDirection(result.Change.Direction))

	fmt.Fprintf(out, "\nPrevious report: %s (%s)\n",
		result.Previous.Timestamp.Local().Format("2006-01-02 15:04:05"), result.Previous.Standard)
	fmt.Fprintf(out, "Current report:  %s (%s)\n",
		result.Current.Timestamp.Local().Format("2006-01-02 15:04:05"), result.Current.Standard)

	fmt.Fprintln(out, "\nMessages Summary:")
	fmt.Fprintf(out, "  %-10s  %-10s  %-10s  %-10s\n", "Type", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	rows := []struct {
		name          string
		prev, current int
	}{
		{"Errors", result.Previous.Errors, result.Current.Errors},
		{"Warnings", result.Previous.Warnings, result.Current.Warnings},
		{"Notices", result.Previous.Notices, result.Current.Notices},
	}
	for _, row := range rows {
		fmt.Fprintf(out, "  %-10s  %-10d  %-10d  %-10s\n",
			row.name, row.prev, row.current, formatDelta(row.current-row.prev))
	}
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	fmt.Fprintf(out, "  %-10s  %-10d  %-10d  %-10s\n", "Total",
		result.Previous.Total, result.Current.Total,
		formatDelta(result.Current.Total-result.Previous.Total))

	if len(result.NewMessages) > 0 {
		fmt.Fprintf(out, "\nNew Messages (%d):\n", len(result.NewMessages))
		for _, m := range result.NewMessages {
			fmt.Fprintf(out, "  [+] %s: %s\n", m.Type, m.ShortCode())
			fmt.Fprintf(out, "      %s\n", m.Msg)
		}
	}

	if len(result.ResolvedMessages) > 0 {
		fmt.Fprintf(out, "\nResolved Messages (%d):\n", len(result.ResolvedMessages))
		for _, m := range result.ResolvedMessages {
			fmt.Fprintf(out, "  [-] %s: %s\n", m.Type, m.ShortCode())
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d message%s\n", result.UnchangedCount, model.Plural(result.UnchangedCount))
	}

	return nil
}

// formatDirection formats the change direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (fewer problems)"
	case directionWorsened:
		return "WORSENED (more problems)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
