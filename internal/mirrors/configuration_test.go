package mirrors_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/mirrorsync/internal/githubapi"
	"github.com/tyemirov/mirrorsync/internal/githubcli"
	"github.com/tyemirov/mirrorsync/internal/mirrors"
)

func TestDefaultCommandConfiguration(testInstance *testing.T) {
	configuration := mirrors.DefaultCommandConfiguration()

	require.True(testInstance, configuration.FailOnError)
	require.True(testInstance, configuration.RepositoryHeaders)
	require.False(testInstance, configuration.DryRun)
	require.Equal(testInstance, mirrors.BackendAPI, configuration.GitHub.Backend)
	require.Equal(testInstance, mirrors.DefaultClassificationRules(), configuration.ClassificationRules())
}

func TestCommandConfigurationSanitize(testInstance *testing.T) {
	homeDirectory, homeDirectoryError := os.UserHomeDir()
	require.NoError(testInstance, homeDirectoryError)

	configuration := mirrors.CommandConfiguration{
		Organization:  "  acme ",
		ReportFormat:  " JSON ",
		Repositories:  []string{" widgets ", "", "Widgets", "gadgets"},
		TypeProperty:  " ",
		MirrorValue:   " replica ",
		WorkDirectory: " ~/mirrors ",
		GitHub:        mirrors.GitHubConfiguration{Backend: " GH ", APIURL: " https://github.example.com/ "},
	}

	sanitized := configuration.Sanitize()
	require.Equal(testInstance, "acme", sanitized.Organization)
	require.Equal(testInstance, "json", sanitized.ReportFormat)
	require.Equal(testInstance, []string{"widgets", "gadgets"}, sanitized.Repositories)
	require.Equal(testInstance, mirrors.DefaultTypePropertyName, sanitized.TypeProperty)
	require.Equal(testInstance, "replica", sanitized.MirrorValue)
	require.Equal(testInstance, mirrors.DefaultSourcePropertyName, sanitized.SourceProperty)
	require.Equal(testInstance, filepath.Join(homeDirectory, "mirrors"), sanitized.WorkDirectory)
	require.Equal(testInstance, mirrors.BackendCLI, sanitized.GitHub.Backend)
	require.Equal(testInstance, "https://github.example.com/", sanitized.GitHub.APIURL)

	require.Equal(testInstance, mirrors.BackendAPI, mirrors.CommandConfiguration{}.Sanitize().GitHub.Backend)
}

func TestCatalogAdaptersConvertRepositories(testInstance *testing.T) {
	restCatalog := mirrors.NewRESTCatalog(&stubRESTClient{
		repositories: []githubapi.Repository{{Name: "widgets", FullName: "acme/widgets", CloneURL: "https://github.com/acme/widgets.git", Archived: true}},
		properties:   map[string]string{"repo-type": "mirror"},
	})
	cliCatalog := mirrors.NewCLICatalog(&stubCLIClient{
		repositories: []githubcli.Repository{{Name: "widgets", FullName: "acme/widgets", CloneURL: "https://github.com/acme/widgets.git", Archived: true}},
		properties:   map[string]string{"repo-type": "mirror"},
	})

	expected := []mirrors.RepositoryRecord{{Name: "widgets", FullName: "acme/widgets", CloneURL: "https://github.com/acme/widgets.git", Archived: true}}

	for _, catalog := range []mirrors.RepositoryCatalog{restCatalog, cliCatalog} {
		records, listError := catalog.ListOrganizationRepositories(context.Background(), testOrganizationConstant)
		require.NoError(testInstance, listError)
		require.Equal(testInstance, expected, records)

		properties, propertiesError := catalog.RepositoryCustomProperties(context.Background(), testOrganizationConstant, "widgets")
		require.NoError(testInstance, propertiesError)
		require.Equal(testInstance, map[string]string{"repo-type": "mirror"}, properties)
	}
}

func TestCatalogAdaptersPropagateListingErrors(testInstance *testing.T) {
	listingFailure := errors.New("listing failed")

	_, restError := mirrors.NewRESTCatalog(&stubRESTClient{listError: listingFailure}).ListOrganizationRepositories(context.Background(), testOrganizationConstant)
	require.ErrorIs(testInstance, restError, listingFailure)

	_, cliError := mirrors.NewCLICatalog(&stubCLIClient{listError: listingFailure}).ListOrganizationRepositories(context.Background(), testOrganizationConstant)
	require.ErrorIs(testInstance, cliError, listingFailure)
}

type stubRESTClient struct {
	repositories []githubapi.Repository
	properties   map[string]string
	listError    error
}

func (client *stubRESTClient) ListOrganizationRepositories(executionContext context.Context, organization string) ([]githubapi.Repository, error) {
	return client.repositories, client.listError
}

func (client *stubRESTClient) RepositoryCustomProperties(executionContext context.Context, organization string, repository string) (map[string]string, error) {
	return client.properties, nil
}

type stubCLIClient struct {
	repositories []githubcli.Repository
	properties   map[string]string
	listError    error
}

func (client *stubCLIClient) ListOrganizationRepositories(executionContext context.Context, organization string) ([]githubcli.Repository, error) {
	return client.repositories, client.listError
}

func (client *stubCLIClient) RepositoryCustomProperties(executionContext context.Context, organization string, repository string) (map[string]string, error) {
	return client.properties, nil
}
