package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tyemirov/mirrorsync/internal/execshell"
)

const (
	gitCloneSubcommandConstant                = "clone"
	gitPushSubcommandConstant                 = "push"
	gitMirrorFlagConstant                     = "--mirror"
	gitTerminalPromptEnvironmentNameConstant  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentValueConstant = "0"
	repositoryPathFieldNameConstant           = "repository_path"
	sourceURLFieldNameConstant                = "source_url"
	destinationURLFieldNameConstant           = "destination_url"
	requiredValueMessageConstant              = "value required"
	executorNotConfiguredMessageConstant      = "git executor not configured"
	repositoryOperationErrorTemplateConstant  = "%s operation failed"
	repositoryOperationErrorWithCauseConstant = "%s operation failed: %s"
	invalidRepositoryInputTemplateConstant    = "%s: %s"
	cloneMirrorOperationNameConstant          = RepositoryOperationName("CloneMirror")
	pushMirrorOperationNameConstant           = RepositoryOperationName("PushMirror")
)

// GitCommandExecutor exposes the subset of execshell functionality required by RepositoryManager.
type GitCommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager coordinates git mirror operations through execshell.
type RepositoryManager struct {
	executor GitCommandExecutor
}

var (
	// ErrGitExecutorNotConfigured indicates the RepositoryManager was constructed without a git executor.
	ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidRepositoryInputError indicates validation failures for repository operations.
type InvalidRepositoryInputError struct {
	FieldName string
	Message   string
}

// Error describes the validation failure.
func (inputError InvalidRepositoryInputError) Error() string {
	return fmt.Sprintf(invalidRepositoryInputTemplateConstant, inputError.FieldName, inputError.Message)
}

// RepositoryOperationName captures descriptive names for repository operations.
type RepositoryOperationName string

// RepositoryOperationError wraps execution failures for git operations.
type RepositoryOperationError struct {
	Operation RepositoryOperationName
	Cause     error
}

// Error describes the repository operation failure.
func (operationError RepositoryOperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(repositoryOperationErrorTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(repositoryOperationErrorWithCauseConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying error.
func (operationError RepositoryOperationError) Unwrap() error {
	return operationError.Cause
}

// NewRepositoryManager constructs a RepositoryManager for the provided executor.
func NewRepositoryManager(executor GitCommandExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// CloneMirror creates a bare mirror clone of sourceURL at repositoryPath, copying every ref.
func (manager *RepositoryManager) CloneMirror(executionContext context.Context, sourceURL string, repositoryPath string) error {
	trimmedSource := strings.TrimSpace(sourceURL)
	if len(trimmedSource) == 0 {
		return InvalidRepositoryInputError{FieldName: sourceURLFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:            []string{gitCloneSubcommandConstant, gitMirrorFlagConstant, trimmedSource, trimmedPath},
		EnvironmentVariables: nonInteractiveEnvironment(),
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: cloneMirrorOperationNameConstant, Cause: executionError}
	}
	return nil
}

// PushMirror pushes every ref of the repository at repositoryPath to destinationURL,
// overwriting and pruning refs on the destination so it matches the local mirror.
func (manager *RepositoryManager) PushMirror(executionContext context.Context, repositoryPath string, destinationURL string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedDestination := strings.TrimSpace(destinationURL)
	if len(trimmedDestination) == 0 {
		return InvalidRepositoryInputError{FieldName: destinationURLFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:            []string{gitPushSubcommandConstant, gitMirrorFlagConstant, trimmedDestination},
		WorkingDirectory:     trimmedPath,
		EnvironmentVariables: nonInteractiveEnvironment(),
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: pushMirrorOperationNameConstant, Cause: executionError}
	}
	return nil
}

func nonInteractiveEnvironment() map[string]string {
	return map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentValueConstant}
}
