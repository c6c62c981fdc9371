package flags

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const (
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Discover mirrors and report the plan without cloning or pushing"

	toggleFlagTypeConstant         = "bool"
	toggleImplicitValueConstant    = "true"
	unsupportedToggleValueTemplate = "unsupported toggle value %q"
)

var (
	truthyToggleValues = map[string]bool{"yes": true, "y": true, "on": true, "enable": true, "enabled": true}
	falsyToggleValues  = map[string]bool{"no": true, "n": true, "off": true, "disable": true, "disabled": true}
)

type toggleValue struct {
	target *bool
}

func (value *toggleValue) String() string {
	if value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *toggleValue) Set(rawValue string) error {
	parsedValue, parseError := parseToggleValue(rawValue)
	if parseError != nil {
		return parseError
	}
	*value.target = parsedValue
	return nil
}

func (value *toggleValue) Type() string {
	return toggleFlagTypeConstant
}

// IsBoolFlag lets the flag appear without a value.
func (value *toggleValue) IsBoolFlag() bool {
	return true
}

// AddToggleFlag defines a boolean flag that also accepts yes/no and on/off spellings.
// When target is nil the flag owns its storage.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || len(name) == 0 {
		return
	}
	if flagSet.Lookup(name) != nil {
		return
	}
	if target == nil {
		target = new(bool)
	}
	*target = defaultValue

	flag := flagSet.VarPF(&toggleValue{target: target}, name, shorthand, usage)
	flag.NoOptDefVal = toggleImplicitValueConstant
}

func parseToggleValue(rawValue string) (bool, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if truthyToggleValues[normalizedValue] {
		return true, nil
	}
	if falsyToggleValues[normalizedValue] {
		return false, nil
	}
	parsedValue, parseError := strconv.ParseBool(normalizedValue)
	if parseError != nil {
		return false, fmt.Errorf(unsupportedToggleValueTemplate, rawValue)
	}
	return parsedValue, nil
}

var normalizedToggleFlagNames = []string{DryRunFlagName}

// NormalizeToggleArguments joins a shared toggle flag with a following yes/no style value
// ("--dry-run no" becomes "--dry-run=no") so pflag does not treat the value as a positional argument.
func NormalizeToggleArguments(arguments []string) []string {
	if len(arguments) == 0 {
		return nil
	}

	normalizedArguments := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		currentArgument := arguments[index]
		if currentArgument == "--" {
			normalizedArguments = append(normalizedArguments, arguments[index:]...)
			break
		}

		nextIndex := index + 1
		if isToggleFlagArgument(currentArgument) && nextIndex < len(arguments) {
			if _, parseError := parseToggleValue(arguments[nextIndex]); parseError == nil {
				normalizedArguments = append(normalizedArguments, currentArgument+"="+arguments[nextIndex])
				index = nextIndex
				continue
			}
		}

		normalizedArguments = append(normalizedArguments, currentArgument)
	}

	return normalizedArguments
}

func isToggleFlagArgument(argument string) bool {
	for _, flagName := range normalizedToggleFlagNames {
		if argument == "--"+flagName {
			return true
		}
	}
	return false
}
