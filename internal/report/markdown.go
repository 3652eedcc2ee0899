package report

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/a11yscan/internal/model"
)

// ContentTypeMarkdown is the media type of rendered documents.
const ContentTypeMarkdown = "text/markdown; charset=utf-8"

// ErrNilReport is returned when there is no report to render.
var ErrNilReport = errors.New("report is nil")

// Render produces the downloadable document for a report. The output
// depends only on the report, so rendering the same report twice yields
// identical bytes.
func Render(report *model.ScanReport) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName returns the download file name for a report.
func FileName(report *model.ScanReport) string {
	return "accessibility-report-" + report.ScanID + ".md"
}

// MarkdownWriter writes the report document in Markdown, in the report's
// locale.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report document.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	if report == nil {
		return 0, ErrNilReport
	}
	text := textFor(report.Locale)
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, text, report)
	w.writeRisk(md, text, report)
	w.writeSummary(md, text, report)
	w.writeFindings(md, text, report)
	w.writeCoverage(md, text, report)
	w.writeNextSteps(md, text, report)
	w.writeFooter(md, text, report)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, text *copyText, report *model.ScanReport) {
	md.H1(text.title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{text.property, text.value},
		Rows: [][]string{
			{text.pageLabel, report.URL},
			{text.dateLabel, report.Timestamp.UTC().Format("02/01/2006 15:04 MST")},
			{text.scanIDLabel, "`" + report.ScanID + "`"},
			{text.standardLabel, text.standard(report.Standard)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeRisk(md *markdown.Markdown, text *copyText, report *model.ScanReport) {
	md.H2(text.riskHeading)
	md.PlainText("")

	label := text.riskLabel(report.Risk.Level)
	switch report.Risk.Level {
	case model.RiskCritical:
		md.Caution(label)
	case model.RiskHigh:
		md.Warning(label)
	case model.RiskMedium:
		md.Important(label)
	default:
		md.Tip(label)
	}
	md.PlainText("")

	if explanation, ok := text.explanations[report.Risk.Level]; ok {
		md.PlainText(explanation)
		md.PlainText("")
	}
	if report.Risk.Rationale != "" {
		md.PlainText(report.Risk.Rationale)
		md.PlainText("")
	}
	if report.Risk.EstimatedFineRange != "" {
		md.PlainTextf("**%s:** %s", text.fineLabel, report.Risk.EstimatedFineRange)
		md.PlainText("")
	}
	if report.Risk.Level == model.RiskHigh || report.Risk.Level == model.RiskCritical {
		md.PlainText("**" + text.exposureWarning + "**")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, text *copyText, report *model.ScanReport) {
	md.H2(text.scoreHeading)
	md.PlainText("")
	md.PlainTextf("**%d/%d**", report.Score, 100)
	md.PlainText("")

	md.H2(text.summaryHeading)
	md.PlainText("")

	rows := make([][]string, 0, len(model.Severities)+1)
	for _, sev := range model.Severities {
		rows = append(rows, []string{text.severities[sev], strconv.Itoa(report.Summary.Count(sev))})
	}
	rows = append(rows, []string{"**" + text.total + "**", "**" + strconv.Itoa(report.Summary.Total) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{text.severityColumn, text.countColumn},
		Rows:   rows,
	})
	md.PlainText("")

	if report.Summary.Total > 0 {
		w.writePieChart(md, text, report)
	}
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, text *copyText, report *model.ScanReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle(text.chartTitle),
		piechart.WithShowData(true),
	)
	for _, sev := range model.Severities {
		if n := report.Summary.Count(sev); n > 0 {
			chart.LabelAndIntValue(text.severities[sev], uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, text *copyText, report *model.ScanReport) {
	md.H2(text.findingsHeading)
	md.PlainText("")

	if len(report.Findings) == 0 {
		md.PlainText(text.noFindings)
		md.PlainText("")
		return
	}

	for _, sev := range model.Severities {
		findings := report.FindingsBySeverity(sev)
		if len(findings) == 0 {
			continue
		}

		md.H3(text.severities[sev])
		md.PlainText("")

		rows := make([][]string, len(findings))
		for i, f := range findings {
			rows[i] = []string{
				findingTitle(f),
				"`" + f.RuleID + "`",
				strconv.Itoa(f.InstanceCount),
				orDash(strings.Join(f.StandardRefs, ", ")),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{text.findingsHeading, "ID", text.instances, text.refsLabel},
			Rows:   rows,
		})
		md.PlainText("")

		for _, f := range findings {
			if f.Remediation == nil {
				continue
			}
			md.Details(findingTitle(f), remediationText(text, f.Remediation))
		}
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeCoverage(md *markdown.Markdown, text *copyText, report *model.ScanReport) {
	md.H2(text.coverageHeading)
	md.PlainText("")

	automated := int(math.Round(report.Coverage.AutomatedFraction * 100))
	md.PlainTextf("**"+text.automatedf+"**", automated)
	md.PlainText("")
	md.PlainTextf(text.manualf, 100-automated)
	md.PlainText("")

	if len(report.Coverage.CheckedRuleKeys) > 0 {
		md.PlainText("**" + text.checkedLabel + "**")
		md.PlainText("")
		labels := make([]string, len(report.Coverage.CheckedRuleKeys))
		for i, key := range report.Coverage.CheckedRuleKeys {
			labels[i] = text.coverageLabel(key)
		}
		md.BulletList(labels...)
		md.PlainText("")
	}

	md.PlainText("**" + text.manualLabel + "**")
	md.PlainText("")
	md.BulletList(text.manualItems...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeNextSteps(md *markdown.Markdown, text *copyText, report *model.ScanReport) {
	md.H2(text.stepsHeading)
	md.PlainText("")
	md.OrderedList(text.nextSteps(report.Score)...)
	md.PlainText("")
	md.Note(text.disclaimer)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, text *copyText, report *model.ScanReport) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*"+text.footerf+"*", report.Timestamp.UTC().Format("02/01/2006"))
}

func remediationText(text *copyText, r *model.Remediation) string {
	var parts []string
	if r.Summary != "" {
		parts = append(parts, text.fixLabel+": "+r.Summary)
	}
	if r.Impact != "" {
		parts = append(parts, text.impactLabel+": "+r.Impact)
	}
	if r.CodeSample != "" {
		parts = append(parts, "`"+r.CodeSample+"`")
	}
	if r.HelpURL != "" {
		parts = append(parts, text.referenceLabel+": "+r.HelpURL)
	}
	return strings.Join(parts, "\n\n")
}

func findingTitle(f model.Finding) string {
	if f.Title != "" {
		return f.Title
	}
	return f.RuleID
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
