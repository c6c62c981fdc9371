package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorConstant          = "."
	environmentKeyReplacementConstant        = "_"
	sliceValueSeparatorConstant              = ","
	embeddedConfigurationReadErrorTemplate   = "unable to read embedded configuration: %w"
	configurationFileReadErrorTemplate       = "unable to read configuration file %s: %w"
	configurationSearchReadErrorTemplate     = "unable to read configuration: %w"
	configurationDecodeErrorTemplateConstant = "unable to decode configuration: %w"
)

// LoadedConfiguration describes where the effective configuration came from.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// ConfigurationLoader layers defaults, an embedded configuration document, a configuration
// file and environment variables into a single decoded configuration.
type ConfigurationLoader struct {
	configurationName     string
	configurationType     string
	environmentPrefix     string
	searchPaths           []string
	embeddedConfiguration []byte
	embeddedType          string
}

// NewConfigurationLoader constructs a ConfigurationLoader. Search paths are consulted in order
// when no explicit configuration file is provided.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string{}, searchPaths...),
	}
}

// SetEmbeddedConfiguration registers a configuration document layered above defaults and below files.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	loader.embeddedConfiguration = append([]byte{}, configurationData...)
	loader.embeddedType = configurationType
}

// LoadConfiguration decodes the layered configuration into target. Precedence from lowest to
// highest is defaults, embedded configuration, configuration file, environment variables.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, target any) (LoadedConfiguration, error) {
	configurationViper := viper.New()
	configurationViper.SetEnvPrefix(loader.environmentPrefix)
	configurationViper.SetEnvKeyReplacer(strings.NewReplacer(environmentKeySeparatorConstant, environmentKeyReplacementConstant))
	configurationViper.AutomaticEnv()

	for key, value := range defaultValues {
		configurationViper.SetDefault(key, value)
	}

	if len(loader.embeddedConfiguration) > 0 {
		embeddedType := loader.embeddedType
		if len(embeddedType) == 0 {
			embeddedType = loader.configurationType
		}
		configurationViper.SetConfigType(embeddedType)
		if readError := configurationViper.ReadConfig(bytes.NewReader(loader.embeddedConfiguration)); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationReadErrorTemplate, readError)
		}
	}

	trimmedFilePath := strings.TrimSpace(configurationFilePath)
	if len(trimmedFilePath) > 0 {
		configurationViper.SetConfigFile(trimmedFilePath)
		if mergeError := configurationViper.MergeInConfig(); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationFileReadErrorTemplate, trimmedFilePath, mergeError)
		}
	} else {
		configurationViper.SetConfigName(loader.configurationName)
		configurationViper.SetConfigType(loader.configurationType)
		for _, searchPath := range loader.searchPaths {
			if len(strings.TrimSpace(searchPath)) == 0 {
				continue
			}
			configurationViper.AddConfigPath(searchPath)
		}
		if mergeError := configurationViper.MergeInConfig(); mergeError != nil {
			var notFoundError viper.ConfigFileNotFoundError
			if !errors.As(mergeError, &notFoundError) {
				return LoadedConfiguration{}, fmt.Errorf(configurationSearchReadErrorTemplate, mergeError)
			}
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(sliceValueSeparatorConstant),
	))
	if decodeError := configurationViper.Unmarshal(target, decodeHook); decodeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplateConstant, decodeError)
	}

	return LoadedConfiguration{ConfigFileUsed: configurationViper.ConfigFileUsed()}, nil
}
