package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/mirrorsync/internal/execshell"
	"github.com/tyemirov/mirrorsync/internal/githubauth"
	"github.com/tyemirov/mirrorsync/internal/mirrors"
	"github.com/tyemirov/mirrorsync/internal/mirrors/cli"
	flagutils "github.com/tyemirov/mirrorsync/internal/utils/flags"
)

const (
	testOrganizationConstant = "acme"
	testTokenConstant        = "ghs_commandtoken"
	testSourceURLConstant    = "https://example.org/upstream/widgets.git"
	testBrokenSourceConstant = "https://example.org/upstream/missing.git"
	syncCommandNameConstant  = "sync"
)

type commandFixture struct {
	catalog   *stubCatalog
	manager   *stubMirrorManager
	workspace *stubWorkspace
	builder   *cli.CommandBuilder
}

func newCommandFixture(environment map[string]string, configuration mirrors.CommandConfiguration) commandFixture {
	catalog := &stubCatalog{
		repositories: []mirrors.RepositoryRecord{
			{Name: "service", FullName: "acme/service", CloneURL: "https://github.com/acme/service.git"},
			{Name: "widgets", FullName: "acme/widgets", CloneURL: "https://github.com/acme/widgets.git"},
		},
		properties: map[string]map[string]string{
			"service": {"repo-type": "app"},
			"widgets": {"repo-type": "mirror", "mirror-source": testSourceURLConstant},
		},
	}
	manager := &stubMirrorManager{}
	workspace := &stubWorkspace{}

	builder := &cli.CommandBuilder{
		LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
		ConfigurationProvider: func() mirrors.CommandConfiguration { return configuration },
		EnvironmentLookup: func(name string) (string, bool) {
			value, exists := environment[name]
			return value, exists
		},
		CommandExecutor: stubCommandExecutor{},
		MirrorManager:   manager,
		Catalog:         catalog,
		ServiceOptions:  []mirrors.ServiceOption{mirrors.WithWorkspaceProvider(workspace)},
	}

	return commandFixture{catalog: catalog, manager: manager, workspace: workspace, builder: builder}
}

func defaultEnvironment() map[string]string {
	return map[string]string{githubauth.EnvGitHubToken: testTokenConstant}
}

func configuredOrganization() mirrors.CommandConfiguration {
	configuration := mirrors.DefaultCommandConfiguration()
	configuration.Organization = testOrganizationConstant
	return configuration
}

func executeSync(testInstance *testing.T, builder *cli.CommandBuilder, arguments ...string) (string, string, error) {
	testInstance.Helper()

	syncCommand, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	rootCommand := &cobra.Command{Use: "mirrorsync", SilenceUsage: true, SilenceErrors: true}
	flagutils.BindExecutionFlags(rootCommand, flagutils.ExecutionDefaults{}, flagutils.ExecutionFlagDefinitions{
		DryRun: flagutils.ExecutionFlagDefinition{Name: flagutils.DryRunFlagName, Usage: flagutils.DryRunFlagUsage, Enabled: true},
	})
	rootCommand.AddCommand(syncCommand)

	standardOutput := &bytes.Buffer{}
	standardError := &bytes.Buffer{}
	rootCommand.SetOut(standardOutput)
	rootCommand.SetErr(standardError)
	rootCommand.SetArgs(append([]string{syncCommandNameConstant}, arguments...))

	executionError := rootCommand.ExecuteContext(context.Background())
	return standardOutput.String(), standardError.String(), executionError
}

func TestSyncCommandSynchronizesMirrorsAndPrintsSummary(testInstance *testing.T) {
	fixture := newCommandFixture(defaultEnvironment(), configuredOrganization())

	standardOutput, _, executionError := executeSync(testInstance, fixture.builder)
	require.NoError(testInstance, executionError)

	repositoryPath := filepath.Join("workspace-1", "mirror.git")
	require.Equal(testInstance, []recordedOperation{
		{kind: "clone", source: testSourceURLConstant, path: repositoryPath},
		{kind: "push", path: repositoryPath, destination: "https://x-access-token:" + testTokenConstant + "@github.com/acme/widgets.git"},
	}, fixture.manager.operations)

	require.Contains(testInstance, standardOutput, "-- repo: widgets ")
	require.Contains(testInstance, standardOutput, "MIRROR_SYNCED")
	require.Contains(testInstance, standardOutput, "Summary: total.repos=2 total.mirrors=1 succeeded=1 failed=0 skipped=0")
	require.NotContains(testInstance, standardOutput, testTokenConstant)
}

func TestSyncCommandRepositoryHeaders(testInstance *testing.T) {
	headerlessConfiguration := configuredOrganization()
	headerlessConfiguration.RepositoryHeaders = false

	testCases := []struct {
		name          string
		configuration mirrors.CommandConfiguration
		arguments     []string
		expectHeaders bool
	}{
		{name: "headers_by_default", configuration: configuredOrganization(), expectHeaders: true},
		{name: "flag_disables_headers", configuration: configuredOrganization(), arguments: []string{"--no-headers"}, expectHeaders: false},
		{name: "configuration_disables_headers", configuration: headerlessConfiguration, expectHeaders: false},
		{name: "flag_restores_headers", configuration: headerlessConfiguration, arguments: []string{"--no-headers=false"}, expectHeaders: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			fixture := newCommandFixture(defaultEnvironment(), testCase.configuration)

			standardOutput, _, executionError := executeSync(subTest, fixture.builder, testCase.arguments...)
			require.NoError(subTest, executionError)

			if testCase.expectHeaders {
				require.Contains(subTest, standardOutput, "-- repo: widgets ")
				require.NotContains(subTest, standardOutput, "repo=widgets")
				return
			}
			require.NotContains(subTest, standardOutput, "-- repo: ")
			require.Contains(subTest, standardOutput, "event=MIRROR_SYNCED repo=widgets")
			require.NotContains(subTest, standardOutput, testTokenConstant)
		})
	}
}

func TestSyncCommandFailurePolicy(testInstance *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		configuration func() mirrors.CommandConfiguration
		expectFailure bool
	}{
		{
			name:          "fails_by_default",
			configuration: configuredOrganization,
			expectFailure: true,
		},
		{
			name:          "flag_disables_failure",
			arguments:     []string{"--fail-on-error=false"},
			configuration: configuredOrganization,
		},
		{
			name: "configuration_disables_failure",
			configuration: func() mirrors.CommandConfiguration {
				configuration := configuredOrganization()
				configuration.FailOnError = false
				return configuration
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			fixture := newCommandFixture(defaultEnvironment(), testCase.configuration())
			fixture.catalog.repositories = append(fixture.catalog.repositories, mirrors.RepositoryRecord{Name: "broken", FullName: "acme/broken", CloneURL: "https://github.com/acme/broken.git"})
			fixture.catalog.properties["broken"] = map[string]string{"repo-type": "mirror", "mirror-source": testBrokenSourceConstant}
			fixture.manager.cloneErrors = map[string]error{testBrokenSourceConstant: errors.New("repository not found")}

			standardOutput, standardError, executionError := executeSync(subTest, fixture.builder, testCase.arguments...)

			require.Contains(subTest, standardOutput, "succeeded=1 failed=1")
			require.Contains(subTest, standardError, "unreachable source: repository not found")
			if testCase.expectFailure {
				var failuresError mirrors.SyncFailuresError
				require.ErrorAs(subTest, executionError, &failuresError)
				require.Equal(subTest, mirrors.SyncFailuresError{Failed: 1, Total: 2}, failuresError)
				return
			}
			require.NoError(subTest, executionError)
		})
	}
}

func TestSyncCommandRequiresToken(testInstance *testing.T) {
	fixture := newCommandFixture(map[string]string{}, configuredOrganization())

	_, _, executionError := executeSync(testInstance, fixture.builder)

	var tokenError githubauth.MissingTokenError
	require.ErrorAs(testInstance, executionError, &tokenError)
	require.Zero(testInstance, fixture.catalog.listCalls)
}

func TestSyncCommandResolvesOrganization(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		environment          map[string]string
		arguments            []string
		expectedOrganization string
		expectError          bool
	}{
		{
			name:        "missing_everywhere",
			environment: defaultEnvironment(),
			expectError: true,
		},
		{
			name:                 "environment_fallback",
			environment:          map[string]string{githubauth.EnvGitHubToken: testTokenConstant, "GITHUB_ORGANIZATION": "from-env"},
			expectedOrganization: "from-env",
		},
		{
			name:                 "flag_wins",
			environment:          map[string]string{githubauth.EnvGitHubToken: testTokenConstant, "GITHUB_ORGANIZATION": "from-env"},
			arguments:            []string{"--org", "from-flag"},
			expectedOrganization: "from-flag",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			fixture := newCommandFixture(testCase.environment, mirrors.DefaultCommandConfiguration())

			_, _, executionError := executeSync(subTest, fixture.builder, testCase.arguments...)
			if testCase.expectError {
				require.ErrorIs(subTest, executionError, mirrors.ErrOrganizationNotConfigured)
				require.Zero(subTest, fixture.catalog.listCalls)
				return
			}
			require.NoError(subTest, executionError)
			require.Equal(subTest, []string{testCase.expectedOrganization}, fixture.catalog.organizations)
		})
	}
}

func TestSyncCommandDryRunSkipsGitOperations(testInstance *testing.T) {
	fixture := newCommandFixture(defaultEnvironment(), configuredOrganization())

	standardOutput, _, executionError := executeSync(testInstance, fixture.builder, "--dry-run")
	require.NoError(testInstance, executionError)
	require.Empty(testInstance, fixture.manager.operations)
	require.Contains(testInstance, standardOutput, "MIRROR_PLANNED")
	require.Contains(testInstance, standardOutput, "planned=1")
}

func TestSyncCommandWritesMachineReadableReport(testInstance *testing.T) {
	fixture := newCommandFixture(defaultEnvironment(), configuredOrganization())

	standardOutput, standardError, executionError := executeSync(testInstance, fixture.builder, "--report", "json")
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, standardError, "Summary: ")

	var document map[string]any
	require.NoError(testInstance, json.Unmarshal([]byte(standardOutput), &document))
	require.Equal(testInstance, testOrganizationConstant, document["organization"])
	require.EqualValues(testInstance, 1, document["succeeded"])
}

func TestSyncCommandRejectsUnknownReportFormat(testInstance *testing.T) {
	fixture := newCommandFixture(defaultEnvironment(), configuredOrganization())

	_, _, executionError := executeSync(testInstance, fixture.builder, "--report", "xml")
	require.Error(testInstance, executionError)
	require.True(testInstance, strings.Contains(executionError.Error(), "unsupported report format"))
	require.Zero(testInstance, fixture.catalog.listCalls)
}

func TestSyncCommandRestrictsToNamedRepositories(testInstance *testing.T) {
	fixture := newCommandFixture(defaultEnvironment(), configuredOrganization())

	standardOutput, _, executionError := executeSync(testInstance, fixture.builder, "--repository", "service")
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, []string{"service"}, fixture.catalog.propertyQueries)
	require.Empty(testInstance, fixture.manager.operations)
	require.Contains(testInstance, standardOutput, "Summary: total.repos=1 total.mirrors=0 ")
}

func TestSyncCommandPropagatesListingFailure(testInstance *testing.T) {
	fixture := newCommandFixture(defaultEnvironment(), configuredOrganization())
	fixture.catalog.listError = errors.New("401 Bad credentials")

	_, _, executionError := executeSync(testInstance, fixture.builder)

	var listingError mirrors.ListingError
	require.ErrorAs(testInstance, executionError, &listingError)
	require.Empty(testInstance, fixture.manager.operations)
}

func TestSyncCommandRejectsPositionalArguments(testInstance *testing.T) {
	fixture := newCommandFixture(defaultEnvironment(), configuredOrganization())

	_, _, executionError := executeSync(testInstance, fixture.builder, "unexpected")
	require.Error(testInstance, executionError)
	require.Zero(testInstance, fixture.catalog.listCalls)
}

type stubCatalog struct {
	repositories    []mirrors.RepositoryRecord
	properties      map[string]map[string]string
	listError       error
	listCalls       int
	organizations   []string
	propertyQueries []string
}

func (catalog *stubCatalog) ListOrganizationRepositories(executionContext context.Context, organization string) ([]mirrors.RepositoryRecord, error) {
	catalog.listCalls++
	catalog.organizations = append(catalog.organizations, organization)
	if catalog.listError != nil {
		return nil, catalog.listError
	}
	return catalog.repositories, nil
}

func (catalog *stubCatalog) RepositoryCustomProperties(executionContext context.Context, organization string, repository string) (map[string]string, error) {
	catalog.propertyQueries = append(catalog.propertyQueries, repository)
	return catalog.properties[repository], nil
}

type recordedOperation struct {
	kind        string
	source      string
	path        string
	destination string
}

type stubMirrorManager struct {
	cloneErrors map[string]error
	operations  []recordedOperation
}

func (manager *stubMirrorManager) CloneMirror(executionContext context.Context, sourceURL string, repositoryPath string) error {
	manager.operations = append(manager.operations, recordedOperation{kind: "clone", source: sourceURL, path: repositoryPath})
	return manager.cloneErrors[sourceURL]
}

func (manager *stubMirrorManager) PushMirror(executionContext context.Context, repositoryPath string, destinationURL string) error {
	manager.operations = append(manager.operations, recordedOperation{kind: "push", path: repositoryPath, destination: destinationURL})
	return nil
}

type stubWorkspace struct {
	created int
}

func (workspace *stubWorkspace) Create(parentDirectory string, pattern string) (string, error) {
	workspace.created++
	return filepath.Join(parentDirectory, "workspace-"+string(rune('0'+workspace.created))), nil
}

func (workspace *stubWorkspace) Remove(path string) error {
	return nil
}

type stubCommandExecutor struct{}

func (stubCommandExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}

func (stubCommandExecutor) ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}
