package cli

import (
	"github.com/tyemirov/mirrorsync/internal/mirrors"
	"github.com/tyemirov/mirrorsync/internal/utils"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Sync   mirrors.CommandConfiguration   `mapstructure:"sync"`
	GitHub mirrors.GitHubConfiguration    `mapstructure:"github"`
}

// ApplicationCommonConfiguration stores logging defaults shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// configurationInitializationPlan describes where --init writes the embedded configuration.
type configurationInitializationPlan struct {
	DirectoryPath string
	FilePath      string
}

func (application *Application) syncCommandConfiguration() mirrors.CommandConfiguration {
	configuration := application.configuration.Sync
	configuration.GitHub = application.configuration.GitHub
	return configuration.Sanitize()
}

func defaultConfigurationValues() map[string]any {
	defaults := mirrors.DefaultCommandConfiguration()
	return map[string]any{
		commonLogLevelConfigKeyConstant:        string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant:       string(utils.LogFormatStructured),
		syncFailOnErrorConfigKeyConstant:       defaults.FailOnError,
		syncTypePropertyConfigKeyConstant:      defaults.TypeProperty,
		syncMirrorValueConfigKeyConstant:       defaults.MirrorValue,
		syncSourcePropertyConfigKeyConstant:    defaults.SourceProperty,
		syncRepositoryHeadersConfigKeyConstant: defaults.RepositoryHeaders,
		githubBackendConfigKeyConstant:         defaults.GitHub.Backend,
	}
}
