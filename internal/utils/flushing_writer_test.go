package utils_test

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/mirrorsync/internal/utils"
)

type scriptedLogSink struct {
	written    bytes.Buffer
	writeError error
	flushError error
	flushCalls int
}

func (sink *scriptedLogSink) Write(data []byte) (int, error) {
	if sink.writeError != nil {
		return 0, sink.writeError
	}
	return sink.written.Write(data)
}

func (sink *scriptedLogSink) Flush() error {
	sink.flushCalls++
	return sink.flushError
}

func TestFlushingWriterDeliversEachLogLineThroughBufferedTarget(testInstance *testing.T) {
	destination := &bytes.Buffer{}
	buffered := bufio.NewWriterSize(destination, 4096)
	writer := utils.NewFlushingWriter(buffered)

	logLines := []string{
		"{\"level\":\"info\",\"msg\":\"Mirror sync started\"}\n",
		"{\"level\":\"error\",\"msg\":\"Mirror synchronization failed\",\"stage\":\"clone\"}\n",
	}

	expected := ""
	for _, line := range logLines {
		bytesWritten, writeError := writer.Write([]byte(line))
		require.NoError(testInstance, writeError)
		require.Equal(testInstance, len(line), bytesWritten)

		expected += line
		require.Equal(testInstance, expected, destination.String())
		require.Zero(testInstance, buffered.Buffered())
	}
}

func TestFlushingWriterFailures(testInstance *testing.T) {
	testCases := []struct {
		name               string
		sink               *scriptedLogSink
		expectedError      string
		expectedWritten    int
		expectedFlushCalls int
	}{
		{
			name:               "write_failure_skips_flush",
			sink:               &scriptedLogSink{writeError: errors.New("broken pipe")},
			expectedError:      "broken pipe",
			expectedWritten:    0,
			expectedFlushCalls: 0,
		},
		{
			name:               "flush_failure_keeps_written_count",
			sink:               &scriptedLogSink{flushError: errors.New("device full")},
			expectedError:      "device full",
			expectedWritten:    len("Mirror skipped\n"),
			expectedFlushCalls: 1,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			writer := utils.NewFlushingWriter(testCase.sink)

			bytesWritten, writeError := writer.Write([]byte("Mirror skipped\n"))
			require.EqualError(subTest, writeError, testCase.expectedError)
			require.Equal(subTest, testCase.expectedWritten, bytesWritten)
			require.Equal(subTest, testCase.expectedFlushCalls, testCase.sink.flushCalls)
		})
	}
}

func TestFlushingWriterPassesThroughPlainWriters(testInstance *testing.T) {
	destination := &bytes.Buffer{}
	writer := utils.NewFlushingWriter(destination)

	bytesWritten, writeError := writer.Write([]byte("Summary: total.repos=2\n"))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, len("Summary: total.repos=2\n"), bytesWritten)
	require.Equal(testInstance, "Summary: total.repos=2\n", destination.String())
}
