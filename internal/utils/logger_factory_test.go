package utils_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/mirrorsync/internal/utils"
)

const (
	mirrorSyncedLogMessageConstant       = "Mirror synchronized"
	mirrorSkippedLogMessageConstant      = "Mirror skipped"
	consoleProgressMessageConstant       = "widgets: synchronized from upstream"
	loggerRunIdentifierConstant          = "run-0042"
	loggerRepositoryFieldValueConstant   = "widgets"
	loggerOrganizationFieldValueConstant = "acme"
)

// captureLoggerOutput builds loggers while standard error points at a pipe, runs emit, and
// returns everything the loggers wrote.
func captureLoggerOutput(testInstance *testing.T, level utils.LogLevel, format utils.LogFormat, emit func(utils.LoggerOutputs)) string {
	testInstance.Helper()

	pipeReader, pipeWriter, pipeError := os.Pipe()
	require.NoError(testInstance, pipeError)

	originalStandardError := os.Stderr
	os.Stderr = pipeWriter
	outputs, creationError := utils.NewLoggerFactory().CreateLoggerOutputs(level, format)
	os.Stderr = originalStandardError
	require.NoError(testInstance, creationError)

	emit(outputs)
	require.NoError(testInstance, outputs.DiagnosticLogger.Sync())
	require.NoError(testInstance, outputs.ConsoleLogger.Sync())
	require.NoError(testInstance, pipeWriter.Close())

	captured, readError := io.ReadAll(pipeReader)
	require.NoError(testInstance, readError)
	require.NoError(testInstance, pipeReader.Close())
	return string(captured)
}

func TestStructuredLoggerEmitsRunFieldsAsJSON(testInstance *testing.T) {
	output := captureLoggerOutput(testInstance, utils.LogLevelInfo, utils.LogFormatStructured, func(outputs utils.LoggerOutputs) {
		outputs.DiagnosticLogger.With(
			zap.String("run_id", loggerRunIdentifierConstant),
			zap.String("organization", loggerOrganizationFieldValueConstant),
		).Info(mirrorSyncedLogMessageConstant, zap.String("repository", loggerRepositoryFieldValueConstant))
		outputs.ConsoleLogger.Info(consoleProgressMessageConstant)
	})

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(testInstance, lines, 1)

	entry := map[string]any{}
	require.NoError(testInstance, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(testInstance, mirrorSyncedLogMessageConstant, entry["msg"])
	require.Equal(testInstance, "info", entry["level"])
	require.Equal(testInstance, loggerRunIdentifierConstant, entry["run_id"])
	require.Equal(testInstance, loggerOrganizationFieldValueConstant, entry["organization"])
	require.Equal(testInstance, loggerRepositoryFieldValueConstant, entry["repository"])
	require.Contains(testInstance, entry, "ts")
}

func TestConsoleLoggerRendersProgressForOperators(testInstance *testing.T) {
	output := captureLoggerOutput(testInstance, utils.LogLevelInfo, utils.LogFormatConsole, func(outputs utils.LoggerOutputs) {
		outputs.DiagnosticLogger.Warn(mirrorSkippedLogMessageConstant, zap.String("repository", loggerRepositoryFieldValueConstant))
		outputs.ConsoleLogger.Info(consoleProgressMessageConstant)
	})

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(testInstance, lines, 2)
	require.False(testInstance, json.Valid([]byte(lines[0])))
	require.Contains(testInstance, lines[0], "WARN")
	require.Contains(testInstance, lines[0], mirrorSkippedLogMessageConstant)
	require.Contains(testInstance, lines[0], `"repository": "widgets"`)
	require.Equal(testInstance, consoleProgressMessageConstant, lines[1])
}

func TestLoggerFactoryFiltersBelowConfiguredLevel(testInstance *testing.T) {
	testCases := []struct {
		name            string
		level           utils.LogLevel
		expectDebug     bool
		expectInfo      bool
		expectWarnEntry bool
	}{
		{name: "debug", level: utils.LogLevelDebug, expectDebug: true, expectInfo: true, expectWarnEntry: true},
		{name: "info", level: utils.LogLevelInfo, expectInfo: true, expectWarnEntry: true},
		{name: "warn_mixed_case", level: utils.LogLevel(" WARN "), expectWarnEntry: true},
		{name: "error", level: utils.LogLevelError},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			output := captureLoggerOutput(subTest, testCase.level, utils.LogFormatStructured, func(outputs utils.LoggerOutputs) {
				outputs.DiagnosticLogger.Debug("Repository is not a mirror")
				outputs.DiagnosticLogger.Info("Mirror sync started")
				outputs.DiagnosticLogger.Warn(mirrorSkippedLogMessageConstant)
			})

			require.Equal(subTest, testCase.expectDebug, strings.Contains(output, "Repository is not a mirror"))
			require.Equal(subTest, testCase.expectInfo, strings.Contains(output, "Mirror sync started"))
			require.Equal(subTest, testCase.expectWarnEntry, strings.Contains(output, mirrorSkippedLogMessageConstant))
		})
	}
}

func TestLoggerFactoryRejectsUnsupportedSettings(testInstance *testing.T) {
	testCases := []struct {
		name          string
		level         utils.LogLevel
		format        utils.LogFormat
		expectedError string
	}{
		{name: "level", level: utils.LogLevel("verbose"), format: utils.LogFormatStructured, expectedError: `unsupported log level "verbose"`},
		{name: "format", level: utils.LogLevelInfo, format: utils.LogFormat("xml"), expectedError: `unsupported log format "xml"`},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			outputs, creationError := utils.NewLoggerFactory().CreateLoggerOutputs(testCase.level, testCase.format)
			require.EqualError(subTest, creationError, testCase.expectedError)
			require.Zero(subTest, outputs)
		})
	}
}

func TestLoggerFactoryAcceptsUppercaseFormat(testInstance *testing.T) {
	output := captureLoggerOutput(testInstance, utils.LogLevelInfo, utils.LogFormat("Structured"), func(outputs utils.LoggerOutputs) {
		outputs.DiagnosticLogger.Info(mirrorSyncedLogMessageConstant)
	})
	require.True(testInstance, json.Valid(bytes.TrimSpace([]byte(output))))
}
