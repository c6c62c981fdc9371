package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/mirrorsync/internal/githubauth"
)

const (
	gitCommandNameStringConstant              = "git"
	githubCLICommandNameStringConstant        = "gh"
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandNameMissingMessageConstant         = "shell command name not provided"
	commandStartMessageConstant               = "command execution starting"
	commandSuccessMessageConstant             = "command execution completed"
	commandFailureMessageConstant             = "command returned non-zero status"
	commandRunnerErrorMessageConstant         = "command execution error"
	commandNameFieldNameConstant              = "command"
	commandArgumentsFieldNameConstant         = "arguments"
	workingDirectoryFieldNameConstant         = "working_directory"
	exitCodeFieldNameConstant                 = "exit_code"
	standardErrorFieldNameConstant            = "stderr"
	commandFailureDetailLineLimitConstant     = 3
)

// CommandName identifies a supported executable name.
type CommandName string

// Supported command names.
const (
	CommandGit    CommandName = CommandName(gitCommandNameStringConstant)
	CommandGitHub CommandName = CommandName(githubCLICommandNameStringConstant)
)

// CommandDetails describes command invocation properties.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
}

// ShellCommand represents a fully qualified command invocation.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures observable command results.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// ShellExecutor orchestrates running shell commands with logging.
type ShellExecutor struct {
	commandRunner        CommandRunner
	logger               *zap.Logger
	humanReadableLogging bool
	messageFormatter     CommandMessageFormatter
	redactor             githubauth.Redactor
}

var (
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates the command runner dependency was missing.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
	// ErrCommandNameMissing indicates the command name was not provided.
	ErrCommandNameMissing = errors.New(commandNameMissingMessageConstant)
)

// CommandFailedError provides details about commands exiting with a non-zero code.
// Arguments and output are already redacted.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

const commandFailureErrorMessageTemplateConstant = "%s command exited with code %d"

// Error describes the failure in a readable format.
func (commandError CommandFailedError) Error() string {
	baseMessage := fmt.Sprintf(commandFailureErrorMessageTemplateConstant, commandError.Command.Name, commandError.Result.ExitCode)

	if len(commandError.Command.Details.Arguments) > 0 {
		baseMessage = fmt.Sprintf("%s (%s)", baseMessage, strings.Join(commandError.Command.Details.Arguments, " "))
	}

	if detail := commandError.Detail(); len(detail) > 0 {
		baseMessage = fmt.Sprintf("%s: %s", baseMessage, detail)
	}

	return baseMessage
}

// Detail returns up to three non-blank lines of stderr, or stdout when stderr is empty.
func (commandError CommandFailedError) Detail() string {
	detail := strings.TrimSpace(commandError.Result.StandardError)
	if len(detail) == 0 {
		detail = strings.TrimSpace(commandError.Result.StandardOutput)
	}
	if len(detail) == 0 {
		return ""
	}

	normalized := make([]string, 0, commandFailureDetailLineLimitConstant)
	for _, line := range strings.Split(detail, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
		if len(normalized) == commandFailureDetailLineLimitConstant {
			break
		}
	}
	return strings.Join(normalized, " | ")
}

// CommandExecutionError wraps unexpected execution failures from the runner.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

const commandExecutionErrorMessageTemplateConstant = "%s command execution failed"

// Error describes the underlying runner failure.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorMessageTemplateConstant, executionError.Command.Name)
}

// Unwrap exposes the underlying error.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// NewShellExecutor builds an executor for the provided runner and logger.
func NewShellExecutor(logger *zap.Logger, commandRunner CommandRunner, humanReadableLogging bool) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if commandRunner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{
		commandRunner:        commandRunner,
		logger:               logger,
		humanReadableLogging: humanReadableLogging,
		messageFormatter:     CommandMessageFormatter{},
	}, nil
}

// WithRedactor returns a copy of the executor that scrubs secrets from logs and errors.
func (executor *ShellExecutor) WithRedactor(redactor githubauth.Redactor) *ShellExecutor {
	clone := *executor
	clone.redactor = redactor
	return &clone
}

// Execute runs the provided shell command and logs lifecycle events.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if len(command.Name) == 0 {
		return ExecutionResult{}, ErrCommandNameMissing
	}

	var preparationError error
	command, preparationError = executor.prepareCommand(command)
	if preparationError != nil {
		return ExecutionResult{}, preparationError
	}

	loggedCommand := executor.redactCommand(command)

	if executor.humanReadableLogging {
		executor.logger.Info(executor.messageFormatter.BuildStartedMessage(loggedCommand))
	} else {
		executor.logger.Info(commandStartMessageConstant,
			zap.String(commandNameFieldNameConstant, string(loggedCommand.Name)),
			zap.Strings(commandArgumentsFieldNameConstant, loggedCommand.Details.Arguments),
			zap.String(workingDirectoryFieldNameConstant, loggedCommand.Details.WorkingDirectory),
		)
	}

	executionResult, runnerError := executor.commandRunner.Run(executionContext, command)
	if runnerError != nil {
		redactedCause := executor.redactError(runnerError)
		if executor.humanReadableLogging {
			executor.logger.Error(executor.messageFormatter.BuildExecutionFailureMessage(loggedCommand, redactedCause))
		} else {
			executor.logger.Error(commandRunnerErrorMessageConstant,
				zap.String(commandNameFieldNameConstant, string(loggedCommand.Name)),
				zap.Error(redactedCause),
			)
		}
		return ExecutionResult{}, CommandExecutionError{Command: loggedCommand, Cause: redactedCause}
	}

	if executionResult.ExitCode != 0 {
		loggedResult := executor.redactResult(executionResult)
		if executor.humanReadableLogging {
			executor.logger.Warn(executor.messageFormatter.BuildFailureMessage(loggedCommand, loggedResult))
		} else {
			executor.logger.Warn(commandFailureMessageConstant,
				zap.String(commandNameFieldNameConstant, string(loggedCommand.Name)),
				zap.Int(exitCodeFieldNameConstant, loggedResult.ExitCode),
				zap.String(standardErrorFieldNameConstant, loggedResult.StandardError),
			)
		}
		return ExecutionResult{}, CommandFailedError{Command: loggedCommand, Result: loggedResult}
	}

	if executor.humanReadableLogging {
		executor.logger.Info(executor.messageFormatter.BuildSuccessMessage(loggedCommand))
	} else {
		executor.logger.Info(commandSuccessMessageConstant,
			zap.String(commandNameFieldNameConstant, string(loggedCommand.Name)),
			zap.Int(exitCodeFieldNameConstant, executionResult.ExitCode),
		)
	}
	return executionResult, nil
}

// ExecuteGit runs the git executable with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteGitHubCLI runs the GitHub CLI executable with the provided details.
func (executor *ShellExecutor) ExecuteGitHubCLI(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGitHub, Details: details})
}

func (executor *ShellExecutor) prepareCommand(command ShellCommand) (ShellCommand, error) {
	if command.Name != CommandGitHub {
		return command, nil
	}

	token, tokenAvailable := githubauth.ResolveToken(command.Details.EnvironmentVariables)
	if !tokenAvailable {
		return command, githubauth.NewMissingTokenError(strings.Join(command.Details.Arguments, " "))
	}

	command.Details.EnvironmentVariables = ensureGitHubEnvironment(command.Details.EnvironmentVariables, token)
	return command, nil
}

func (executor *ShellExecutor) redactCommand(command ShellCommand) ShellCommand {
	if executor.redactor.Empty() {
		return command
	}
	redacted := command
	redacted.Details.Arguments = executor.redactor.RedactAll(command.Details.Arguments)
	redacted.Details.WorkingDirectory = executor.redactor.Redact(command.Details.WorkingDirectory)
	redacted.Details.EnvironmentVariables = nil
	return redacted
}

func (executor *ShellExecutor) redactResult(result ExecutionResult) ExecutionResult {
	return ExecutionResult{
		StandardOutput: executor.redactor.Redact(result.StandardOutput),
		StandardError:  executor.redactor.Redact(result.StandardError),
		ExitCode:       result.ExitCode,
	}
}

func (executor *ShellExecutor) redactError(cause error) error {
	if executor.redactor.Empty() || cause == nil {
		return cause
	}
	message := cause.Error()
	redactedMessage := executor.redactor.Redact(message)
	if redactedMessage == message {
		return cause
	}
	return redactedError{message: redactedMessage, cause: cause}
}

// redactedError keeps the original error reachable for errors.Is while hiding secrets in its text.
type redactedError struct {
	message string
	cause   error
}

func (err redactedError) Error() string {
	return err.message
}

func (err redactedError) Unwrap() error {
	return err.cause
}

func ensureGitHubEnvironment(environment map[string]string, token string) map[string]string {
	clone := cloneEnvironment(environment)
	if value, exists := clone[githubauth.EnvGitHubCLIToken]; !exists || len(strings.TrimSpace(value)) == 0 {
		clone[githubauth.EnvGitHubCLIToken] = token
	}
	if value, exists := clone[githubauth.EnvGitHubToken]; !exists || len(strings.TrimSpace(value)) == 0 {
		clone[githubauth.EnvGitHubToken] = token
	}
	return clone
}

func cloneEnvironment(environment map[string]string) map[string]string {
	if len(environment) == 0 {
		return map[string]string{}
	}
	cloned := make(map[string]string, len(environment))
	for key, value := range environment {
		cloned[key] = value
	}
	return cloned
}
