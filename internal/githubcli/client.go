package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tyemirov/mirrorsync/internal/execshell"
)

const (
	apiSubcommandConstant                       = "api"
	paginateFlagConstant                        = "--paginate"
	methodFlagConstant                          = "-X"
	acceptHeaderFlagConstant                    = "-H"
	acceptHeaderValueConstant                   = "Accept: application/vnd.github+json"
	apiVersionHeaderValueConstant               = "X-GitHub-Api-Version: 2022-11-28"
	httpMethodGetConstant                       = "GET"
	organizationFieldNameConstant               = "organization"
	repositoryFieldNameConstant                 = "repository"
	requiredValueMessageConstant                = "value required"
	executorNotConfiguredMessageConstant        = "github cli executor not configured"
	operationErrorMessageTemplateConstant       = "%s operation failed"
	operationErrorWithCauseTemplateConstant     = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant       = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant           = "%s: %s"
	organizationRepositoriesEndpointTemplate    = "orgs/%s/repos?type=all&per_page=100"
	customPropertiesEndpointTemplateConstant    = "repos/%s/%s/properties/values"
	multiValueSeparatorConstant                 = ","
	listRepositoriesOperationNameConstant       = OperationName("ListOrganizationRepositories")
	customPropertiesOperationNameConstant       = OperationName("RepositoryCustomProperties")
	httpNotFoundIndicatorConstant               = "http 404"
	statusNotFoundIndicatorConstant             = "status 404"
	unsupportedPropertyValueTypeMessageTemplate = "unsupported value type %T for property %s"
)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// Repository contains the organization repository fields needed to locate mirrors.
type Repository struct {
	Name     string
	FullName string
	CloneURL string
	Archived bool
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor GitHubCommandExecutor
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// NewClient constructs a GitHub CLI client.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// ListOrganizationRepositories lists every repository of the organization, following pagination.
func (client *Client) ListOrganizationRepositories(executionContext context.Context, organization string) ([]Repository, error) {
	trimmedOrganization := strings.TrimSpace(organization)
	if len(trimmedOrganization) == 0 {
		return nil, InvalidInputError{FieldName: organizationFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: apiArguments(fmt.Sprintf(organizationRepositoriesEndpointTemplate, trimmedOrganization), true),
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return nil, OperationError{Operation: listRepositoriesOperationNameConstant, Cause: executionError}
	}

	type repositoryPayload struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		CloneURL string `json:"clone_url"`
		Archived bool   `json:"archived"`
	}

	// --paginate emits one JSON array per page back to back.
	decoder := json.NewDecoder(strings.NewReader(executionResult.StandardOutput))
	repositories := []Repository{}
	for {
		var page []repositoryPayload
		decodingError := decoder.Decode(&page)
		if errors.Is(decodingError, io.EOF) {
			break
		}
		if decodingError != nil {
			return nil, ResponseDecodingError{Operation: listRepositoriesOperationNameConstant, Cause: decodingError}
		}
		for _, payload := range page {
			repositories = append(repositories, Repository{
				Name:     payload.Name,
				FullName: payload.FullName,
				CloneURL: payload.CloneURL,
				Archived: payload.Archived,
			})
		}
	}

	return repositories, nil
}

// RepositoryCustomProperties returns the custom property values assigned to a repository.
// A repository the endpoint reports as not found yields an empty map.
func (client *Client) RepositoryCustomProperties(executionContext context.Context, organization string, repository string) (map[string]string, error) {
	trimmedOrganization := strings.TrimSpace(organization)
	if len(trimmedOrganization) == 0 {
		return nil, InvalidInputError{FieldName: organizationFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedRepository := strings.TrimSpace(repository)
	if len(trimmedRepository) == 0 {
		return nil, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: apiArguments(fmt.Sprintf(customPropertiesEndpointTemplateConstant, trimmedOrganization, trimmedRepository), false),
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(executionError, &commandFailure) && resourceNotFound(commandFailure.Result) {
			return map[string]string{}, nil
		}
		return nil, OperationError{Operation: customPropertiesOperationNameConstant, Cause: executionError}
	}

	var response []struct {
		PropertyName string          `json:"property_name"`
		Value        json.RawMessage `json:"value"`
	}

	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return nil, ResponseDecodingError{Operation: customPropertiesOperationNameConstant, Cause: decodingError}
	}

	properties := make(map[string]string, len(response))
	for _, property := range response {
		value, present, valueError := decodePropertyValue(property.PropertyName, property.Value)
		if valueError != nil {
			return nil, ResponseDecodingError{Operation: customPropertiesOperationNameConstant, Cause: valueError}
		}
		if present {
			properties[property.PropertyName] = value
		}
	}

	return properties, nil
}

func apiArguments(endpoint string, paginate bool) []string {
	arguments := []string{apiSubcommandConstant}
	if paginate {
		arguments = append(arguments, paginateFlagConstant)
	}
	return append(arguments,
		endpoint,
		methodFlagConstant,
		httpMethodGetConstant,
		acceptHeaderFlagConstant,
		acceptHeaderValueConstant,
		acceptHeaderFlagConstant,
		apiVersionHeaderValueConstant,
	)
}

// decodePropertyValue normalizes string, multi-select and null property values.
func decodePropertyValue(propertyName string, rawValue json.RawMessage) (string, bool, error) {
	var decoded any
	if len(rawValue) > 0 {
		if unmarshalError := json.Unmarshal(rawValue, &decoded); unmarshalError != nil {
			return "", false, unmarshalError
		}
	}

	switch typedValue := decoded.(type) {
	case nil:
		return "", false, nil
	case string:
		return typedValue, true, nil
	case []any:
		values := make([]string, 0, len(typedValue))
		for _, element := range typedValue {
			text, isString := element.(string)
			if !isString {
				return "", false, fmt.Errorf(unsupportedPropertyValueTypeMessageTemplate, element, propertyName)
			}
			values = append(values, text)
		}
		return strings.Join(values, multiValueSeparatorConstant), true, nil
	default:
		return "", false, fmt.Errorf(unsupportedPropertyValueTypeMessageTemplate, typedValue, propertyName)
	}
}

func resourceNotFound(result execshell.ExecutionResult) bool {
	if len(result.StandardError) == 0 && len(result.StandardOutput) == 0 {
		return false
	}

	combinedOutput := strings.ToLower(result.StandardError + " " + result.StandardOutput)

	return strings.Contains(combinedOutput, httpNotFoundIndicatorConstant) || strings.Contains(combinedOutput, statusNotFoundIndicatorConstant)
}
