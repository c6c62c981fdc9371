// Package dependencies resolves the collaborators of the sync command, preferring injected
// implementations and constructing production defaults otherwise.
package dependencies

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/mirrorsync/internal/execshell"
	"github.com/tyemirov/mirrorsync/internal/githubapi"
	"github.com/tyemirov/mirrorsync/internal/githubauth"
	"github.com/tyemirov/mirrorsync/internal/githubcli"
	"github.com/tyemirov/mirrorsync/internal/gitrepo"
	"github.com/tyemirov/mirrorsync/internal/mirrors"
)

const unsupportedBackendTemplateConstant = "unsupported GitHub backend %q; use %s or %s"

// CommandExecutor runs both git and gh commands.
type CommandExecutor interface {
	gitrepo.GitCommandExecutor
	githubcli.GitHubCommandExecutor
}

// ResolveCommandExecutor returns the provided executor or constructs a shell-backed default
// that redacts the given secrets.
func ResolveCommandExecutor(existing CommandExecutor, logger *zap.Logger, humanReadableLogging bool, redactor githubauth.Redactor) (CommandExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, creationError := execshell.NewShellExecutor(logger, commandRunner, humanReadableLogging)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor.WithRedactor(redactor), nil
}

// ResolveMirrorManager returns the provided manager or constructs a git-backed one from the executor.
func ResolveMirrorManager(existing mirrors.MirrorManager, executor gitrepo.GitCommandExecutor) (mirrors.MirrorManager, error) {
	if existing != nil {
		return existing, nil
	}
	return gitrepo.NewRepositoryManager(executor)
}

// CatalogSettings selects and configures the metadata backend.
type CatalogSettings struct {
	Backend string
	APIURL  string
	Token   string
}

// ResolveRepositoryCatalog returns the provided catalog or constructs the configured backend.
func ResolveRepositoryCatalog(executionContext context.Context, existing mirrors.RepositoryCatalog, settings CatalogSettings, executor githubcli.GitHubCommandExecutor) (mirrors.RepositoryCatalog, error) {
	if existing != nil {
		return existing, nil
	}

	switch strings.ToLower(strings.TrimSpace(settings.Backend)) {
	case "", mirrors.BackendAPI:
		client, clientError := githubapi.NewClient(executionContext, settings.Token, settings.APIURL)
		if clientError != nil {
			return nil, clientError
		}
		return mirrors.NewRESTCatalog(client), nil
	case mirrors.BackendCLI:
		client, clientError := githubcli.NewClient(executor)
		if clientError != nil {
			return nil, clientError
		}
		return mirrors.NewCLICatalog(client), nil
	default:
		return nil, fmt.Errorf(unsupportedBackendTemplateConstant, settings.Backend, mirrors.BackendAPI, mirrors.BackendCLI)
	}
}
