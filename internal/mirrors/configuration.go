package mirrors

import (
	"os"
	"path/filepath"
	"strings"
)

// Metadata backends used to list repositories and read custom properties.
const (
	BackendAPI = "api"
	BackendCLI = "gh"
)

const homeDirectoryPrefixConstant = "~/"

// GitHubConfiguration selects how GitHub metadata is retrieved.
type GitHubConfiguration struct {
	Backend string `mapstructure:"backend"`
	APIURL  string `mapstructure:"api_url"`
}

// CommandConfiguration captures persistent settings for the sync command.
type CommandConfiguration struct {
	Organization      string              `mapstructure:"organization"`
	DryRun            bool                `mapstructure:"dry_run"`
	FailOnError       bool                `mapstructure:"fail_on_error"`
	ReportFormat      string              `mapstructure:"report_format"`
	Repositories      []string            `mapstructure:"repositories"`
	TypeProperty      string              `mapstructure:"type_property"`
	MirrorValue       string              `mapstructure:"mirror_value"`
	SourceProperty    string              `mapstructure:"source_property"`
	WorkDirectory     string              `mapstructure:"work_directory"`
	RepositoryHeaders bool                `mapstructure:"repository_headers"`
	GitHub            GitHubConfiguration `mapstructure:"-"`
}

// DefaultCommandConfiguration returns baseline configuration values for the sync command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		FailOnError:       true,
		RepositoryHeaders: true,
		TypeProperty:      DefaultTypePropertyName,
		MirrorValue:       DefaultMirrorTypeValue,
		SourceProperty:    DefaultSourcePropertyName,
		GitHub:            GitHubConfiguration{Backend: BackendAPI},
	}
}

// Sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration

	sanitized.Organization = strings.TrimSpace(configuration.Organization)
	sanitized.ReportFormat = strings.ToLower(strings.TrimSpace(configuration.ReportFormat))
	sanitized.WorkDirectory = expandHomeDirectory(strings.TrimSpace(configuration.WorkDirectory))

	repositories := make([]string, 0, len(configuration.Repositories))
	seen := make(map[string]struct{}, len(configuration.Repositories))
	for _, repository := range configuration.Repositories {
		trimmed := strings.TrimSpace(repository)
		if len(trimmed) == 0 {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, duplicate := seen[key]; duplicate {
			continue
		}
		seen[key] = struct{}{}
		repositories = append(repositories, trimmed)
	}
	sanitized.Repositories = repositories

	rules := configuration.ClassificationRules()
	sanitized.TypeProperty = rules.TypeProperty
	sanitized.MirrorValue = rules.MirrorValue
	sanitized.SourceProperty = rules.SourceProperty

	sanitized.GitHub.Backend = strings.ToLower(strings.TrimSpace(configuration.GitHub.Backend))
	if len(sanitized.GitHub.Backend) == 0 {
		sanitized.GitHub.Backend = BackendAPI
	}
	sanitized.GitHub.APIURL = strings.TrimSpace(configuration.GitHub.APIURL)

	return sanitized
}

// ClassificationRules returns the sanitized mirror recognition rules.
func (configuration CommandConfiguration) ClassificationRules() ClassificationRules {
	return ClassificationRules{
		TypeProperty:   configuration.TypeProperty,
		MirrorValue:    configuration.MirrorValue,
		SourceProperty: configuration.SourceProperty,
	}.Sanitize()
}

func expandHomeDirectory(path string) string {
	if !strings.HasPrefix(path, homeDirectoryPrefixConstant) {
		return path
	}
	homeDirectory, homeError := os.UserHomeDir()
	if homeError != nil {
		return path
	}
	return filepath.Join(homeDirectory, strings.TrimPrefix(path, homeDirectoryPrefixConstant))
}
