package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/database"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

// Directions of a score change between two scans.
const (
	directionImproved  = "improved"
	directionWorsened  = "worsened"
	directionUnchanged = "unchanged"
	noFindingsMessage  = "No findings"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show archived scans and compare them",
		Long: `History reads the local scan archive.

With a URL it compares the latest two scans of that page and shows:
- The change in score and risk level
- Rules that are newly violated
- Rules that are no longer violated

Use 'a11yscan scan' to scan pages; every scan is archived unless --no-save
is given.

Examples:
  # Compare the latest two scans of a page
  a11yscan history https://example.co.il

  # List every archived scan of a page
  a11yscan history --list https://example.co.il

  # Compare the latest scan with a specific earlier one
  a11yscan history --with-scan-id scan_0123456789ab https://example.co.il

  # Output the comparison as JSON
  a11yscan history --json https://example.co.il

  # List every page in the archive
  a11yscan history --list-targets`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List archived scans for the specified URL")
	cmd.Flags().BoolP("list-targets", "L", false,
		"List every URL in the archive")
	cmd.Flags().StringP("with-scan-id", "i", "",
		"Compare the latest scan with this scan id (use --list to see ids)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// historyOptions are the parsed history flags.
type historyOptions struct {
	url         string
	list        bool
	listTargets bool
	withScanID  string
	json        bool
	markdown    bool
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	// Flags are checked before the database is opened so that a bad
	// invocation does not create one.
	opts, err := parseHistoryFlags(cmd, args)
	if err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), db, cmd.OutOrStdout(), opts, time.Now())
}

func parseHistoryFlags(cmd *cobra.Command, args []string) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.listTargets, err = flags.GetBool("list-targets"); err != nil {
		return opts, err
	}
	if opts.list, err = flags.GetBool("list"); err != nil {
		return opts, err
	}
	if opts.withScanID, err = flags.GetString("with-scan-id"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.json && opts.markdown {
		return opts, config.ErrConflictingReportFormats
	}

	if opts.listTargets {
		return opts, nil
	}
	if len(args) == 0 {
		return opts, errors.New("url is required (use --list-targets to see archived pages)")
	}
	if err := pipeline.ValidateURL(args[0]); err != nil {
		return opts, fmt.Errorf("%w: %s", err, args[0])
	}
	opts.url = strings.TrimSpace(args[0])
	return opts, nil
}

// historyStore is the part of the archive history reads.
type historyStore interface {
	ListScannedTargets(ctx context.Context) ([]string, error)
	GetScanHistory(ctx context.Context, url string) ([]database.ScanReportMetadata, error)
	GetLatestScanReports(ctx context.Context, url string, n int) ([]*model.ScanReport, error)
	GetScanReport(ctx context.Context, scanID string) (*model.ScanReport, error)
}

func runHistory(ctx context.Context, db historyStore, w io.Writer, opts historyOptions, now time.Time) error {
	switch {
	case opts.listTargets:
		return listTargets(ctx, db, w)
	case opts.list:
		return listHistory(ctx, db, w, opts.url, now)
	}

	result, err := compareLatest(ctx, db, opts.url, opts.withScanID)
	if err != nil {
		return err
	}
	switch {
	case opts.json:
		return writeComparisonJSON(w, result)
	case opts.markdown:
		return writeComparisonMarkdown(w, result)
	default:
		writeComparisonText(w, result)
		return nil
	}
}

func listTargets(ctx context.Context, db historyStore, w io.Writer) error {
	targets, err := db.ListScannedTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}
	if len(targets) == 0 {
		fmt.Fprintln(w, "No scanned pages found in the database.")
		fmt.Fprintln(w, "\nUse 'a11yscan scan <url>' to scan a page.")
		return nil
	}

	fmt.Fprintf(w, "Scanned pages (%d):\n\n", len(targets))
	for _, t := range targets {
		fmt.Fprintf(w, "  • %s\n", t)
	}
	fmt.Fprintln(w, "\nUse 'a11yscan history --list <url>' to see the scans of a page.")
	return nil
}

func listHistory(ctx context.Context, db historyStore, w io.Writer, url string, now time.Time) error {
	history, err := db.GetScanHistory(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}
	if len(history) == 0 {
		fmt.Fprintf(w, "No scan history found for %s\n", url)
		return nil
	}

	fmt.Fprintf(w, "Scan history for %s (%s):\n\n", url, pluralScans(len(history)))
	fmt.Fprintf(w, "  %-17s  %-16s  %-14s  %-5s  %-8s  %s\n", "Scan ID", "Date", "Age", "Score", "Risk", "Findings")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 84))
	for _, meta := range history {
		fmt.Fprintf(w, "  %-17s  %-16s  %-14s  %-5d  %-8s  %s\n",
			meta.ScanID,
			meta.Timestamp.Format("2006-01-02 15:04"),
			humanize.RelTime(meta.Timestamp, now, "ago", "from now"),
			meta.Score,
			meta.Risk,
			formatSeveritySummary(meta.Summary),
		)
	}
	fmt.Fprintln(w, "\nUse 'a11yscan history <url>' to compare the latest two scans.")
	return nil
}

func pluralScans(n int) string {
	if n == 1 {
		return "1 scan"
	}
	return humanize.Comma(int64(n)) + " scans"
}

// formatSeveritySummary renders counts as "C:1 S:2 m:3", omitting empty tiers.
func formatSeveritySummary(s model.SeveritySummary) string {
	if s.Total == 0 {
		return noFindingsMessage
	}
	var parts []string
	for _, p := range []struct {
		label string
		n     int
	}{
		{"C", s.Critical},
		{"S", s.Serious},
		{"M", s.Moderate},
		{"m", s.Minor},
	} {
		if p.n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", p.label, p.n))
		}
	}
	return strings.Join(parts, " ")
}

// ComparisonResult holds the differences between two scans of a page.
//
//nolint:tagliatelle
type ComparisonResult struct {
	URL          string      `json:"url"`
	PreviousScan ScanSummary `json:"previous_scan"`
	CurrentScan  ScanSummary `json:"current_scan"`

	// ScoreDelta is the current score minus the previous one.
	ScoreDelta int `json:"score_delta"`

	// Direction is "improved", "worsened" or "unchanged", by score.
	Direction string `json:"direction"`

	// RiskChanged reports whether the risk level differs.
	RiskChanged bool `json:"risk_changed"`

	// NewRuleIDs are violated now but were not before.
	NewRuleIDs []string `json:"new_rule_ids"`

	// ResolvedRuleIDs were violated before but are not now.
	ResolvedRuleIDs []string `json:"resolved_rule_ids"`

	// UnchangedCount is the number of rules violated in both scans.
	UnchangedCount int `json:"unchanged_count"`
}

// ScanSummary is one side of a comparison.
//
//nolint:tagliatelle
type ScanSummary struct {
	ScanID    string                `json:"scan_id"`
	Timestamp time.Time             `json:"timestamp"`
	Score     int                   `json:"score"`
	Risk      model.RiskLevel       `json:"risk"`
	Summary   model.SeveritySummary `json:"summary"`
}

func summarize(r *model.ScanReport) ScanSummary {
	return ScanSummary{
		ScanID:    r.ScanID,
		Timestamp: r.Timestamp,
		Score:     r.Score,
		Risk:      r.Risk.Level,
		Summary:   r.Summary,
	}
}

// compareLatest compares the newest scan of url with the one before it,
// or with withScanID when set.
func compareLatest(ctx context.Context, db historyStore, url, withScanID string) (*ComparisonResult, error) {
	n := 2
	if withScanID != "" {
		n = 1
	}
	latest, err := db.GetLatestScanReports(ctx, url, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	if len(latest) == 0 {
		return nil, fmt.Errorf("no scan history found for %s", url)
	}

	current := latest[0]
	var previous *model.ScanReport
	if withScanID != "" {
		previous, err = db.GetScanReport(ctx, withScanID)
		if err != nil {
			return nil, fmt.Errorf("failed to get scan %s: %w", withScanID, err)
		}
		if previous.URL != current.URL {
			return nil, fmt.Errorf("scan %s belongs to %s, not %s", withScanID, previous.URL, url)
		}
	} else {
		if len(latest) < 2 {
			return nil, fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(latest))
		}
		previous = latest[1]
	}
	return compareReports(previous, current), nil
}

// compareReports diffs two reports by violated rule id.
func compareReports(previous, current *model.ScanReport) *ComparisonResult {
	result := &ComparisonResult{
		URL:             current.URL,
		PreviousScan:    summarize(previous),
		CurrentScan:     summarize(current),
		ScoreDelta:      current.Score - previous.Score,
		RiskChanged:     current.Risk.Level != previous.Risk.Level,
		NewRuleIDs:      []string{},
		ResolvedRuleIDs: []string{},
	}

	before := previous.RuleIDs()
	after := current.RuleIDs()
	for _, id := range after {
		if _, found := slices.BinarySearch(before, id); !found {
			result.NewRuleIDs = append(result.NewRuleIDs, id)
		} else {
			result.UnchangedCount++
		}
	}
	for _, id := range before {
		if _, found := slices.BinarySearch(after, id); !found {
			result.ResolvedRuleIDs = append(result.ResolvedRuleIDs, id)
		}
	}

	switch {
	case result.ScoreDelta > 0:
		result.Direction = directionImproved
	case result.ScoreDelta < 0:
		result.Direction = directionWorsened
	default:
		result.Direction = directionUnchanged
	}
	return result
}

func writeComparisonJSON(w io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func writeComparisonMarkdown(w io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(w)
	md.H1("Scan Comparison: " + result.URL)
	md.PlainText("")
	md.PlainTextf("**Status:** %s", formatDirection(result.Direction))
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Scan", result.PreviousScan.ScanID, result.CurrentScan.ScanID, "-"},
			{"Date",
				result.PreviousScan.Timestamp.Format("2006-01-02 15:04"),
				result.CurrentScan.Timestamp.Format("2006-01-02 15:04"), "-"},
			{"Score",
				strconv.Itoa(result.PreviousScan.Score),
				strconv.Itoa(result.CurrentScan.Score),
				formatDelta(result.ScoreDelta)},
			{"Risk", string(result.PreviousScan.Risk), string(result.CurrentScan.Risk), riskChangeLabel(result)},
			{"Findings",
				strconv.Itoa(result.PreviousScan.Summary.Total),
				strconv.Itoa(result.CurrentScan.Summary.Total),
				formatDelta(result.CurrentScan.Summary.Total - result.PreviousScan.Summary.Total)},
		},
	})
	md.PlainText("")

	if len(result.NewRuleIDs) > 0 {
		md.H2f("Newly Violated Rules (%d)", len(result.NewRuleIDs))
		md.PlainText("")
		md.BulletList(codeSpans(result.NewRuleIDs)...)
		md.PlainText("")
	}
	if len(result.ResolvedRuleIDs) > 0 {
		md.H2f("Resolved Rules (%d)", len(result.ResolvedRuleIDs))
		md.PlainText("")
		md.BulletList(codeSpans(result.ResolvedRuleIDs)...)
		md.PlainText("")
	}
	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainTextf("*%d rules still violated*", result.UnchangedCount)
	}
	return md.Build()
}

func codeSpans(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "`" + id + "`"
	}
	return out
}

func writeComparisonText(w io.Writer, result *ComparisonResult) {
	fmt.Fprintf(w, "Scan Comparison: %s\n", result.URL)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nStatus: %s\n", formatDirection(result.Direction))
	fmt.Fprintf(w, "\nPrevious scan: %s  %s\n", result.PreviousScan.ScanID,
		result.PreviousScan.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Current scan:  %s  %s\n", result.CurrentScan.ScanID,
		result.CurrentScan.Timestamp.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "\n  %-10s  %-10s  %-10s  %-10s\n", "", "Previous", "Current", "Change")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 45))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Score",
		result.PreviousScan.Score, result.CurrentScan.Score, formatDelta(result.ScoreDelta))
	fmt.Fprintf(w, "  %-10s  %-10s  %-10s  %-10s\n", "Risk",
		result.PreviousScan.Risk, result.CurrentScan.Risk, riskChangeLabel(result))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Findings",
		result.PreviousScan.Summary.Total, result.CurrentScan.Summary.Total,
		formatDelta(result.CurrentScan.Summary.Total-result.PreviousScan.Summary.Total))

	if len(result.NewRuleIDs) > 0 {
		fmt.Fprintf(w, "\nNewly Violated Rules (%d):\n", len(result.NewRuleIDs))
		for _, id := range result.NewRuleIDs {
			fmt.Fprintf(w, "  [+] %s\n", id)
		}
	}
	if len(result.ResolvedRuleIDs) > 0 {
		fmt.Fprintf(w, "\nResolved Rules (%d):\n", len(result.ResolvedRuleIDs))
		for _, id := range result.ResolvedRuleIDs {
			fmt.Fprintf(w, "  [-] %s\n", id)
		}
	}
	if result.UnchangedCount > 0 {
		fmt.Fprintf(w, "\nUnchanged: %d rules still violated\n", result.UnchangedCount)
	}
}

func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (score increased)"
	case directionWorsened:
		return "WORSENED (score decreased)"
	default:
		return "UNCHANGED"
	}
}

func riskChangeLabel(result *ComparisonResult) string {
	if !result.RiskChanged {
		return "-"
	}
	return string(result.PreviousScan.Risk) + " → " + string(result.CurrentScan.Risk)
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
