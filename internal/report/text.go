package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/nao1215/a11yscan/internal/model"
)

// TextWriter writes a human-readable terminal report with color-coded
// severities and risk levels.
type TextWriter struct {
	baseWriter

	verbose bool
	palette map[model.Severity]*color.Color
	risk    map[model.RiskLevel]*color.Color
	heading *color.Color
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose includes remediation details for each finding.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// WithColor forces colored output on or off. By default color follows
// whether stdout is a terminal.
func WithColor(enabled bool) TextWriterOption {
	return func(w *TextWriter) {
		for _, c := range w.colors() {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		palette: map[model.Severity]*color.Color{
			model.SeverityCritical: color.New(color.BgRed, color.FgWhite, color.Bold),
			model.SeveritySerious:  color.New(color.FgRed, color.Bold),
			model.SeverityModerate: color.New(color.FgYellow, color.Bold),
			model.SeverityMinor:    color.New(color.FgBlue, color.Bold),
		},
		risk: map[model.RiskLevel]*color.Color{
			model.RiskCritical: color.New(color.BgRed, color.FgWhite, color.Bold),
			model.RiskHigh:     color.New(color.FgRed, color.Bold),
			model.RiskMedium:   color.New(color.FgYellow, color.Bold),
			model.RiskLow:      color.New(color.FgGreen, color.Bold),
		},
		heading: color.New(color.FgCyan, color.Bold),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

func (w *TextWriter) colors() []*color.Color {
	out := []*color.Color{w.heading}
	for _, c := range w.palette {
		out = append(out, c)
	}
	for _, c := range w.risk {
		out = append(out, c)
	}
	return out
}

// Write outputs the report in human-readable form.
func (w *TextWriter) Write(report *model.ScanReport) (int, error) {
	if report == nil {
		return 0, ErrNilReport
	}
	text := textFor(report.Locale)
	var sb strings.Builder

	w.writeHeader(&sb, text, report)
	w.writeSummary(&sb, text, report)
	w.writeFindings(&sb, text, report)
	w.writeFooter(&sb, text, report)

	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) rule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n")
}

func (w *TextWriter) section(sb *strings.Builder, title string) {
	w.rule(sb, "-")
	sb.WriteString(w.heading.Sprint(title))
	sb.WriteString("\n")
	w.rule(sb, "-")
	sb.WriteString("\n")
}

func (w *TextWriter) writeHeader(sb *strings.Builder, text *copyText, report *model.ScanReport) {
	sb.WriteString("\n")
	w.rule(sb, "=")
	sb.WriteString(w.heading.Sprint(text.title))
	sb.WriteString("\n")
	w.rule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "%s: %s\n", text.pageLabel, report.URL)
	fmt.Fprintf(sb, "%s: %s\n", text.dateLabel, report.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "%s: %s\n", text.scanIDLabel, report.ScanID)
	fmt.Fprintf(sb, "%s: %s\n", text.standardLabel, text.standard(report.Standard))
	sb.WriteString("\n")

	level := report.Risk.Level
	c, ok := w.risk[level]
	if !ok {
		c = w.risk[model.RiskMedium]
	}
	fmt.Fprintf(sb, "%s: %d/100\n", text.scoreHeading, report.Score)
	sb.WriteString(c.Sprint(text.riskLabel(level)))
	sb.WriteString("\n")
	if report.Risk.EstimatedFineRange != "" {
		fmt.Fprintf(sb, "%s: %s\n", text.fineLabel, report.Risk.EstimatedFineRange)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeSummary(sb *strings.Builder, text *copyText, report *model.ScanReport) {
	w.section(sb, text.summaryHeading)
	for _, sev := range model.Severities {
		fmt.Fprintf(sb, "  %-10s %d\n", sev.String()+":", report.Summary.Count(sev))
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  %-10s %d\n\n", "TOTAL:", report.Summary.Total)
}

func (w *TextWriter) writeFindings(sb *strings.Builder, text *copyText, report *model.ScanReport) {
	w.section(sb, text.findingsHeading)

	if len(report.Findings) == 0 {
		sb.WriteString("  " + text.noFindings + "\n\n")
		return
	}

	for _, sev := range model.Severities {
		findings := report.FindingsBySeverity(sev)
		if len(findings) == 0 {
			continue
		}
		sb.WriteString(w.palette[sev].Sprintf("[%s]", sev.String()))
		sb.WriteString("\n")
		for _, f := range findings {
			fmt.Fprintf(sb, "  * %s (%s) x%d\n", findingTitle(f), f.RuleID, f.InstanceCount)
			if len(f.StandardRefs) > 0 {
				fmt.Fprintf(sb, "    %s: %s\n", text.refsLabel, strings.Join(f.StandardRefs, ", "))
			}
			if w.verbose && f.Remediation != nil && f.Remediation.Summary != "" {
				fmt.Fprintf(sb, "    %s: %s\n", text.fixLabel, f.Remediation.Summary)
			}
		}
		sb.WriteString("\n")
	}
}

func (w *TextWriter) writeFooter(sb *strings.Builder, text *copyText, report *model.ScanReport) {
	w.rule(sb, "=")
	fmt.Fprintf(sb, text.footerf+"\n", report.Timestamp.UTC().Format("2006-01-02"))
	w.rule(sb, "=")
}
