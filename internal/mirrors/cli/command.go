package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/mirrorsync/internal/dependencies"
	"github.com/tyemirov/mirrorsync/internal/githubauth"
	"github.com/tyemirov/mirrorsync/internal/mirrors"
	"github.com/tyemirov/mirrorsync/internal/utils"
	flagutils "github.com/tyemirov/mirrorsync/internal/utils/flags"
)

const (
	commandUseConstant                 = "sync"
	commandShortDescriptionConstant    = "Synchronize organization mirror repositories from their sources"
	commandLongDescriptionConstant     = "Lists the organization's repositories, selects those whose custom properties mark them as mirrors, and replaces each mirror's refs with a mirror clone of its source."
	flagOrganizationNameConstant       = "org"
	flagOrganizationUsageConstant      = "GitHub organization to synchronize (defaults to GITHUB_ORGANIZATION)"
	flagFailOnErrorNameConstant        = "fail-on-error"
	flagFailOnErrorUsageConstant       = "Exit with an error when any mirror fails to synchronize"
	flagReportNameConstant             = "report"
	flagReportUsageConstant            = "Write a machine-readable run report to stdout (json or yaml)"
	flagRepositoryNameConstant         = "repository"
	flagRepositoryUsageConstant        = "Restrict the run to the named repository (repeatable)"
	flagBackendNameConstant            = "backend"
	flagBackendUsageConstant           = "Metadata backend: api (GitHub REST) or gh (GitHub CLI)"
	flagAPIURLNameConstant             = "api-url"
	flagAPIURLUsageConstant            = "GitHub Enterprise API base URL"
	flagWorkDirectoryNameConstant      = "work-dir"
	flagWorkDirectoryUsageConstant     = "Directory for temporary mirror clones (defaults to the system temp directory)"
	flagNoHeadersNameConstant          = "no-headers"
	flagNoHeadersUsageConstant         = "Render progress as single lines with key=value details instead of per-repository headers"
	organizationEnvironmentVariable    = "GITHUB_ORGANIZATION"
	tokenOperationNameConstant         = "mirror synchronization"
	commandFailedLogMessageConstant    = "Mirror synchronization aborted"
	failedMirrorsLogMessageConstant    = "Mirror synchronization completed with failures"
	failedMirrorsCountLogFieldConstant = "failed"
)

type commandOptions struct {
	configuration mirrors.CommandConfiguration
	reportFormat  mirrors.ReportFormat
}

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the sync command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() mirrors.CommandConfiguration
	EnvironmentLookup            func(string) (string, bool)
	CommandExecutor              dependencies.CommandExecutor
	MirrorManager                mirrors.MirrorManager
	Catalog                      mirrors.RepositoryCatalog
	ServiceOptions               []mirrors.ServiceOption
}

// Build constructs the sync command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	defaults := mirrors.DefaultCommandConfiguration()

	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  builder.noArgumentValidator(),
		RunE:  builder.run,
	}

	command.Flags().String(flagOrganizationNameConstant, "", flagOrganizationUsageConstant)
	command.Flags().Bool(flagFailOnErrorNameConstant, defaults.FailOnError, flagFailOnErrorUsageConstant)
	command.Flags().String(flagReportNameConstant, "", flagReportUsageConstant)
	command.Flags().StringSlice(flagRepositoryNameConstant, nil, flagRepositoryUsageConstant)
	command.Flags().String(flagBackendNameConstant, defaults.GitHub.Backend, flagBackendUsageConstant)
	command.Flags().String(flagAPIURLNameConstant, "", flagAPIURLUsageConstant)
	command.Flags().String(flagWorkDirectoryNameConstant, "", flagWorkDirectoryUsageConstant)
	command.Flags().Bool(flagNoHeadersNameConstant, false, flagNoHeadersUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}
	configuration := options.configuration

	logger := builder.resolveLogger()
	humanReadable := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadable = builder.HumanReadableLoggingProvider()
	}

	token, tokenAvailable := githubauth.ResolveTokenWithLookup(builder.resolveEnvironmentLookup())
	if !tokenAvailable {
		return githubauth.NewMissingTokenError(tokenOperationNameConstant)
	}
	redactor := githubauth.NewRedactor(token)

	commandExecutor, executorError := dependencies.ResolveCommandExecutor(builder.CommandExecutor, logger, humanReadable, redactor)
	if executorError != nil {
		return executorError
	}

	mirrorManager, managerError := dependencies.ResolveMirrorManager(builder.MirrorManager, commandExecutor)
	if managerError != nil {
		return managerError
	}

	catalog, catalogError := dependencies.ResolveRepositoryCatalog(command.Context(), builder.Catalog, dependencies.CatalogSettings{
		Backend: configuration.GitHub.Backend,
		APIURL:  configuration.GitHub.APIURL,
		Token:   token,
	}, commandExecutor)
	if catalogError != nil {
		return catalogError
	}

	progressWriter := command.OutOrStdout()
	if options.reportFormat != mirrors.ReportFormatNone {
		progressWriter = command.ErrOrStderr()
	}
	reporter := mirrors.NewConsoleReporter(progressWriter, command.ErrOrStderr(), mirrors.WithRepositoryHeaders(configuration.RepositoryHeaders))

	serviceOptions := []mirrors.ServiceOption{
		mirrors.WithReporter(reporter),
		mirrors.WithClassificationRules(configuration.ClassificationRules()),
	}
	serviceOptions = append(serviceOptions, builder.ServiceOptions...)

	service, serviceError := mirrors.NewSyncService(logger, catalog, mirrorManager, serviceOptions...)
	if serviceError != nil {
		return serviceError
	}

	runIdentifier, _ := utils.NewCommandContextAccessor().RunIdentifier(command.Context())

	report, runError := service.Run(command.Context(), mirrors.SyncOptions{
		Organization:  configuration.Organization,
		Token:         token,
		DryRun:        configuration.DryRun,
		Repositories:  configuration.Repositories,
		WorkDirectory: configuration.WorkDirectory,
		RunIdentifier: runIdentifier,
	})
	if runError != nil {
		logger.Error(commandFailedLogMessageConstant, zap.Error(runError))
		return runError
	}

	reporter.PrintSummary(report)
	if reportError := mirrors.WriteReport(command.OutOrStdout(), report, options.reportFormat); reportError != nil {
		return reportError
	}

	if configuration.FailOnError && report.Failed() > 0 {
		logger.Warn(failedMirrorsLogMessageConstant, zap.Int(failedMirrorsCountLogFieldConstant, report.Failed()))
		return mirrors.SyncFailuresError{Failed: report.Failed(), Total: report.Mirrors()}
	}

	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	configuration := builder.resolveConfiguration()

	if executionFlags, available := flagutils.ResolveExecutionFlags(command); available && executionFlags.DryRunSet {
		configuration.DryRun = executionFlags.DryRun
	}

	stringOverrides := []struct {
		flagName string
		target   *string
	}{
		{flagName: flagOrganizationNameConstant, target: &configuration.Organization},
		{flagName: flagReportNameConstant, target: &configuration.ReportFormat},
		{flagName: flagBackendNameConstant, target: &configuration.GitHub.Backend},
		{flagName: flagAPIURLNameConstant, target: &configuration.GitHub.APIURL},
		{flagName: flagWorkDirectoryNameConstant, target: &configuration.WorkDirectory},
	}
	for _, override := range stringOverrides {
		value, changed, flagError := flagutils.StringFlag(command, override.flagName)
		if flagError != nil && !errors.Is(flagError, flagutils.ErrFlagNotDefined) {
			return commandOptions{}, flagError
		}
		if changed {
			*override.target = value
		}
	}

	failOnError, failOnErrorChanged, failOnErrorError := flagutils.BoolFlag(command, flagFailOnErrorNameConstant)
	if failOnErrorError != nil && !errors.Is(failOnErrorError, flagutils.ErrFlagNotDefined) {
		return commandOptions{}, failOnErrorError
	}
	if failOnErrorChanged {
		configuration.FailOnError = failOnError
	}

	noHeaders, noHeadersChanged, noHeadersError := flagutils.BoolFlag(command, flagNoHeadersNameConstant)
	if noHeadersError != nil && !errors.Is(noHeadersError, flagutils.ErrFlagNotDefined) {
		return commandOptions{}, noHeadersError
	}
	if noHeadersChanged {
		configuration.RepositoryHeaders = !noHeaders
	}

	repositories, repositoriesChanged, repositoriesError := flagutils.StringSliceFlag(command, flagRepositoryNameConstant)
	if repositoriesError != nil && !errors.Is(repositoriesError, flagutils.ErrFlagNotDefined) {
		return commandOptions{}, repositoriesError
	}
	if repositoriesChanged {
		configuration.Repositories = repositories
	}

	if len(strings.TrimSpace(configuration.Organization)) == 0 {
		if organization, exists := builder.resolveEnvironmentLookup()(organizationEnvironmentVariable); exists {
			configuration.Organization = organization
		}
	}

	configuration = configuration.Sanitize()
	if len(configuration.Organization) == 0 {
		if command != nil {
			_ = command.Help()
		}
		return commandOptions{}, mirrors.ErrOrganizationNotConfigured
	}

	reportFormat, formatError := mirrors.ParseReportFormat(configuration.ReportFormat)
	if formatError != nil {
		return commandOptions{}, formatError
	}

	return commandOptions{configuration: configuration, reportFormat: reportFormat}, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() mirrors.CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return mirrors.DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveEnvironmentLookup() func(string) (string, bool) {
	if builder.EnvironmentLookup == nil {
		return os.LookupEnv
	}
	return builder.EnvironmentLookup
}

func (builder *CommandBuilder) noArgumentValidator() cobra.PositionalArgs {
	return func(command *cobra.Command, arguments []string) error {
		if len(arguments) == 0 {
			return nil
		}
		_ = command.Help()
		return cobra.NoArgs(command, arguments)
	}
}
