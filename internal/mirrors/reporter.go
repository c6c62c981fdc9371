package mirrors

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	defaultLevelFieldWidth = 5
	defaultEventFieldWidth = 18
	defaultHeaderWidth     = 80
	defaultTimestampLayout = "15:04:05"
	unknownEventCode       = "UNKNOWN"
	noMirrorsMessage       = "No mirror repositories found."
)

// Event codes emitted during a sync pass.
const (
	EventCodeRunStarted       = "RUN_STARTED"
	EventCodePropertiesFailed = "PROPERTIES_FAILED"
	EventCodeMirrorSkipped    = "MIRROR_SKIPPED"
	EventCodeMirrorPlanned    = "MIRROR_PLANNED"
	EventCodeMirrorSynced     = "MIRROR_SYNCED"
	EventCodeMirrorFailed     = "MIRROR_FAILED"
	EventCodeNoMirrors        = "NO_MIRRORS"
)

// EventLevel describes the severity of a reported event.
type EventLevel string

// Supported event levels.
const (
	EventLevelInfo  EventLevel = "INFO"
	EventLevelWarn  EventLevel = "WARN"
	EventLevelError EventLevel = "ERROR"
)

// Event captures one human-facing progress message.
type Event struct {
	Timestamp  time.Time
	Level      EventLevel
	Code       string
	Repository string
	Message    string
	Details    map[string]string
}

// Reporter receives progress events from a sync pass.
type Reporter interface {
	Report(event Event)
}

// ReporterOption customises ConsoleReporter behaviour.
type ReporterOption func(*ConsoleReporter)

// WithRepositoryHeaders toggles per-repository headers. Without headers each event is
// rendered on one line followed by its key=value details.
func WithRepositoryHeaders(enabled bool) ReporterOption {
	return func(reporter *ConsoleReporter) {
		reporter.includeRepositoryHeaders = enabled
	}
}

// WithReporterNowProvider overrides the time source used for event timestamps.
func WithReporterNowProvider(provider func() time.Time) ReporterOption {
	return func(reporter *ConsoleReporter) {
		if provider != nil {
			reporter.now = provider
		}
	}
}

// ConsoleReporter renders sync progress and the final summary for operators.
type ConsoleReporter struct {
	outputWriter             io.Writer
	errorWriter              io.Writer
	includeRepositoryHeaders bool
	now                      func() time.Time

	mutex          sync.Mutex
	lastRepository string
}

// NewConsoleReporter constructs a ConsoleReporter. Error events go to errors when provided.
func NewConsoleReporter(output io.Writer, errors io.Writer, options ...ReporterOption) *ConsoleReporter {
	if output == nil {
		output = os.Stdout
	}
	if errors == nil {
		errors = output
	}

	reporter := &ConsoleReporter{
		outputWriter:             output,
		errorWriter:              errors,
		includeRepositoryHeaders: true,
		now:                      time.Now,
	}

	for _, option := range options {
		option(reporter)
	}

	return reporter
}

// Report writes the event using the configured layout.
func (reporter *ConsoleReporter) Report(event Event) {
	if reporter == nil {
		return
	}

	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()

	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = reporter.now()
	}

	level := normalizeLevel(event.Level)
	code := normalizeCode(event.Code)
	repository := strings.TrimSpace(event.Repository)
	message := strings.TrimSpace(event.Message)

	writer := reporter.outputWriter
	if level == EventLevelError && reporter.errorWriter != nil {
		writer = reporter.errorWriter
	}

	if reporter.includeRepositoryHeaders {
		if len(repository) > 0 && repository != reporter.lastRepository {
			reporter.printRepositoryHeader(writer, repository)
			reporter.lastRepository = repository
		}
		fmt.Fprintln(writer, reporter.formatConsolePart(timestamp, level, code, message))
		return
	}

	fmt.Fprintf(writer, "%s | %s\n", reporter.formatConsolePart(timestamp, level, code, message), formatMachinePart(code, repository, event.Details))
}

// PrintSummary writes the run summary line to the primary output writer.
func (reporter *ConsoleReporter) PrintSummary(report RunReport) {
	if reporter == nil {
		return
	}

	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()

	fmt.Fprintln(reporter.outputWriter, Summary(report))
}

// Summary renders the aggregate statistics of a run on one line.
func Summary(report RunReport) string {
	duration := report.Duration()
	parts := []string{
		fmt.Sprintf("Summary: total.repos=%d", report.RepositoriesDiscovered),
		fmt.Sprintf("total.mirrors=%d", report.Mirrors()),
		fmt.Sprintf("succeeded=%d", report.Succeeded()),
		fmt.Sprintf("failed=%d", report.Failed()),
		fmt.Sprintf("skipped=%d", report.Skipped()),
	}
	if report.DryRun {
		parts = append(parts, fmt.Sprintf("planned=%d", report.Planned()))
	}
	parts = append(parts, fmt.Sprintf("duration_human=%s", formatDuration(duration)))
	parts = append(parts, fmt.Sprintf("duration_ms=%d", durationMilliseconds(duration)))
	return strings.Join(parts, " ")
}

func (reporter *ConsoleReporter) printRepositoryHeader(writer io.Writer, repository string) {
	headerContent := fmt.Sprintf("repo: %s", repository)
	paddingWidth := defaultHeaderWidth - len(headerContent) - 4
	if paddingWidth < 0 {
		paddingWidth = 0
	}
	fmt.Fprintf(writer, "-- %s %s\n", headerContent, strings.Repeat("-", paddingWidth))
}

func (reporter *ConsoleReporter) formatConsolePart(timestamp time.Time, level EventLevel, code string, message string) string {
	levelField := fmt.Sprintf("%-*s", defaultLevelFieldWidth, string(level))
	codeField := fmt.Sprintf("%-*s", defaultEventFieldWidth, code)
	if len(message) == 0 {
		return strings.TrimRight(fmt.Sprintf("%s %s %s", timestamp.Format(defaultTimestampLayout), levelField, codeField), " ")
	}
	return fmt.Sprintf("%s %s %s %s", timestamp.Format(defaultTimestampLayout), levelField, codeField, message)
}

func formatMachinePart(code string, repository string, details map[string]string) string {
	values := make(map[string]string, len(details)+2)
	values["event"] = code
	if len(repository) > 0 {
		values["repo"] = repository
	}
	for key, value := range details {
		values[key] = value
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, values[key]))
	}
	return strings.Join(pairs, " ")
}

func formatDuration(value time.Duration) string {
	if value < 0 {
		value = 0
	}
	rounded := value.Round(time.Millisecond)
	if rounded == 0 && value > 0 {
		rounded = time.Millisecond
	}
	return rounded.String()
}

func durationMilliseconds(value time.Duration) int64 {
	if value < 0 {
		value = 0
	}
	rounded := value.Round(time.Millisecond)
	if rounded == 0 && value > 0 {
		rounded = time.Millisecond
	}
	return rounded.Milliseconds()
}

func normalizeLevel(level EventLevel) EventLevel {
	switch level {
	case EventLevelWarn:
		return EventLevelWarn
	case EventLevelError:
		return EventLevelError
	default:
		return EventLevelInfo
	}
}

func normalizeCode(code string) string {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) == 0 {
		return unknownEventCode
	}
	return strings.ReplaceAll(strings.ToUpper(trimmed), " ", "_")
}

type nopReporter struct{}

func (nopReporter) Report(Event) {}
