package mirrors

import (
	"context"

	"github.com/tyemirov/mirrorsync/internal/githubapi"
	"github.com/tyemirov/mirrorsync/internal/githubcli"
)

// RESTRepositoryLister is the subset of githubapi.Client used by the catalog adapter.
type RESTRepositoryLister interface {
	ListOrganizationRepositories(executionContext context.Context, organization string) ([]githubapi.Repository, error)
	RepositoryCustomProperties(executionContext context.Context, organization string, repository string) (map[string]string, error)
}

// CLIRepositoryLister is the subset of githubcli.Client used by the catalog adapter.
type CLIRepositoryLister interface {
	ListOrganizationRepositories(executionContext context.Context, organization string) ([]githubcli.Repository, error)
	RepositoryCustomProperties(executionContext context.Context, organization string, repository string) (map[string]string, error)
}

type restCatalog struct {
	client RESTRepositoryLister
}

// NewRESTCatalog adapts a GitHub REST client to RepositoryCatalog.
func NewRESTCatalog(client RESTRepositoryLister) RepositoryCatalog {
	return restCatalog{client: client}
}

func (catalog restCatalog) ListOrganizationRepositories(executionContext context.Context, organization string) ([]RepositoryRecord, error) {
	repositories, listError := catalog.client.ListOrganizationRepositories(executionContext, organization)
	if listError != nil {
		return nil, listError
	}
	records := make([]RepositoryRecord, 0, len(repositories))
	for _, repository := range repositories {
		records = append(records, RepositoryRecord{
			Name:     repository.Name,
			FullName: repository.FullName,
			CloneURL: repository.CloneURL,
			Archived: repository.Archived,
		})
	}
	return records, nil
}

func (catalog restCatalog) RepositoryCustomProperties(executionContext context.Context, organization string, repository string) (map[string]string, error) {
	return catalog.client.RepositoryCustomProperties(executionContext, organization, repository)
}

type cliCatalog struct {
	client CLIRepositoryLister
}

// NewCLICatalog adapts a GitHub CLI client to RepositoryCatalog.
func NewCLICatalog(client CLIRepositoryLister) RepositoryCatalog {
	return cliCatalog{client: client}
}

func (catalog cliCatalog) ListOrganizationRepositories(executionContext context.Context, organization string) ([]RepositoryRecord, error) {
	repositories, listError := catalog.client.ListOrganizationRepositories(executionContext, organization)
	if listError != nil {
		return nil, listError
	}
	records := make([]RepositoryRecord, 0, len(repositories))
	for _, repository := range repositories {
		records = append(records, RepositoryRecord{
			Name:     repository.Name,
			FullName: repository.FullName,
			CloneURL: repository.CloneURL,
			Archived: repository.Archived,
		})
	}
	return records, nil
}

func (catalog cliCatalog) RepositoryCustomProperties(executionContext context.Context, organization string, repository string) (map[string]string, error) {
	return catalog.client.RepositoryCustomProperties(executionContext, organization, repository)
}
