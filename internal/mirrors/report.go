package mirrors

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ReportFormat selects the machine-readable rendering of a RunReport.
type ReportFormat string

// Supported report formats. ReportFormatNone disables machine-readable output.
const (
	ReportFormatNone ReportFormat = ""
	ReportFormatJSON ReportFormat = "json"
	ReportFormatYAML ReportFormat = "yaml"
)

const (
	unsupportedReportFormatTemplate = "unsupported report format %q; use json or yaml"
	reportEncodingErrorTemplate     = "unable to encode %s report: %w"
	jsonIndentConstant              = "  "
	yamlIndentConstant              = 2
)

// ParseReportFormat normalizes a user-supplied report format.
func ParseReportFormat(value string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(value))) {
	case ReportFormatNone:
		return ReportFormatNone, nil
	case ReportFormatJSON:
		return ReportFormatJSON, nil
	case ReportFormatYAML, ReportFormat("yml"):
		return ReportFormatYAML, nil
	default:
		return ReportFormatNone, fmt.Errorf(unsupportedReportFormatTemplate, value)
	}
}

type reportDocument struct {
	RunIdentifier          string           `json:"run_id" yaml:"run_id"`
	Organization           string           `json:"organization" yaml:"organization"`
	DryRun                 bool             `json:"dry_run" yaml:"dry_run"`
	StartedAt              string           `json:"started_at" yaml:"started_at"`
	FinishedAt             string           `json:"finished_at" yaml:"finished_at"`
	DurationMilliseconds   int64            `json:"duration_ms" yaml:"duration_ms"`
	RepositoriesDiscovered int              `json:"repositories_discovered" yaml:"repositories_discovered"`
	Mirrors                int              `json:"mirrors" yaml:"mirrors"`
	Succeeded              int              `json:"succeeded" yaml:"succeeded"`
	Failed                 int              `json:"failed" yaml:"failed"`
	Skipped                int              `json:"skipped" yaml:"skipped"`
	Planned                int              `json:"planned" yaml:"planned"`
	Results                []resultDocument `json:"results" yaml:"results"`
}

type resultDocument struct {
	SyncResult           `yaml:",inline"`
	DurationMilliseconds int64 `json:"duration_ms" yaml:"duration_ms"`
}

// WriteReport renders report to writer in the requested format. ReportFormatNone writes nothing.
func WriteReport(writer io.Writer, report RunReport, format ReportFormat) error {
	document := newReportDocument(report)

	switch format {
	case ReportFormatNone:
		return nil
	case ReportFormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", jsonIndentConstant)
		if encodeError := encoder.Encode(document); encodeError != nil {
			return fmt.Errorf(reportEncodingErrorTemplate, format, encodeError)
		}
		return nil
	case ReportFormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndentConstant)
		if encodeError := encoder.Encode(document); encodeError != nil {
			return fmt.Errorf(reportEncodingErrorTemplate, format, encodeError)
		}
		return encoder.Close()
	default:
		return fmt.Errorf(unsupportedReportFormatTemplate, format)
	}
}

func newReportDocument(report RunReport) reportDocument {
	results := make([]resultDocument, 0, len(report.Results))
	for _, result := range report.Results {
		results = append(results, resultDocument{
			SyncResult:           result,
			DurationMilliseconds: durationMilliseconds(result.Duration),
		})
	}

	return reportDocument{
		RunIdentifier:          report.RunIdentifier,
		Organization:           report.Organization,
		DryRun:                 report.DryRun,
		StartedAt:              formatTimestamp(report.StartedAt),
		FinishedAt:             formatTimestamp(report.FinishedAt),
		DurationMilliseconds:   durationMilliseconds(report.Duration()),
		RepositoriesDiscovered: report.RepositoriesDiscovered,
		Mirrors:                report.Mirrors(),
		Succeeded:              report.Succeeded(),
		Failed:                 report.Failed(),
		Skipped:                report.Skipped(),
		Planned:                report.Planned(),
		Results:                results,
	}
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
