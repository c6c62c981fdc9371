package flags_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	flagutils "github.com/tyemirov/mirrorsync/internal/utils/flags"
)

func TestNormalizeToggleArguments(testInstance *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
		expected  []string
	}{
		{name: "empty", arguments: nil, expected: nil},
		{name: "joins_value", arguments: []string{"sync", "--dry-run", "no", "--org", "acme"}, expected: []string{"sync", "--dry-run=no", "--org", "acme"}},
		{name: "bare_toggle", arguments: []string{"--dry-run", "sync"}, expected: []string{"--dry-run", "sync"}},
		{name: "other_flags_untouched", arguments: []string{"--fail-on-error", "yes"}, expected: []string{"--fail-on-error", "yes"}},
		{name: "stops_at_terminator", arguments: []string{"--", "--dry-run", "yes"}, expected: []string{"--", "--dry-run", "yes"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			require.Equal(subTest, testCase.expected, flagutils.NormalizeToggleArguments(testCase.arguments))
		})
	}
}

func TestToggleFlagAcceptsWordValues(testInstance *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
		expected  bool
		expectErr bool
	}{
		{name: "implicit_true", arguments: []string{"--dry-run"}, expected: true},
		{name: "yes", arguments: []string{"--dry-run=yes"}, expected: true},
		{name: "off", arguments: []string{"--dry-run=off"}, expected: false},
		{name: "invalid", arguments: []string{"--dry-run=maybe"}, expectErr: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
			var target bool
			flagutils.AddToggleFlag(flagSet, &target, flagutils.DryRunFlagName, "", false, flagutils.DryRunFlagUsage)

			parseError := flagSet.Parse(testCase.arguments)
			if testCase.expectErr {
				require.Error(subTest, parseError)
				return
			}
			require.NoError(subTest, parseError)
			require.Equal(subTest, testCase.expected, target)
		})
	}
}
