package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

const (
	organizationFieldNameConstant               = "organization"
	repositoryFieldNameConstant                 = "repository"
	tokenFieldNameConstant                      = "token"
	requiredValueMessageConstant                = "value required"
	invalidInputErrorTemplateConstant           = "%s: %s"
	operationErrorMessageTemplateConstant       = "%s operation failed"
	operationErrorWithCauseTemplateConstant     = "%s operation failed: %s"
	enterpriseConfigurationErrorTemplate        = "unable to configure GitHub API base URL %q: %w"
	unsupportedPropertyValueTypeMessageTemplate = "unsupported value type %T for property %s"
	repositoryListTypeAllConstant               = "all"
	repositoryPageSizeConstant                  = 100
	multiValueSeparatorConstant                 = ","
	listRepositoriesOperationNameConstant       = OperationName("ListOrganizationRepositories")
	customPropertiesOperationNameConstant       = OperationName("RepositoryCustomProperties")
)

// OperationName describes a named GitHub REST workflow supported by the client.
type OperationName string

// Repository contains the organization repository fields needed to locate mirrors.
type Repository struct {
	Name     string
	FullName string
	CloneURL string
	Archived bool
}

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps GitHub REST failures.
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

// Client queries organization repositories and their custom properties through the GitHub REST API.
type Client struct {
	restClient *github.Client
}

// NewClient constructs a Client authenticated with token. A non-empty baseURL targets a
// GitHub Enterprise Server instance instead of api.github.com.
func NewClient(executionContext context.Context, token string, baseURL string) (*Client, error) {
	trimmedToken := strings.TrimSpace(token)
	if len(trimmedToken) == 0 {
		return nil, InvalidInputError{FieldName: tokenFieldNameConstant, Message: requiredValueMessageConstant}
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: trimmedToken})
	restClient := github.NewClient(oauth2.NewClient(executionContext, tokenSource))

	trimmedBaseURL := strings.TrimSpace(baseURL)
	if len(trimmedBaseURL) > 0 {
		enterpriseClient, enterpriseError := restClient.WithEnterpriseURLs(trimmedBaseURL, trimmedBaseURL)
		if enterpriseError != nil {
			return nil, fmt.Errorf(enterpriseConfigurationErrorTemplate, trimmedBaseURL, enterpriseError)
		}
		restClient = enterpriseClient
	}

	return &Client{restClient: restClient}, nil
}

// ListOrganizationRepositories lists every repository of the organization, following pagination.
func (client *Client) ListOrganizationRepositories(executionContext context.Context, organization string) ([]Repository, error) {
	trimmedOrganization := strings.TrimSpace(organization)
	if len(trimmedOrganization) == 0 {
		return nil, InvalidInputError{FieldName: organizationFieldNameConstant, Message: requiredValueMessageConstant}
	}

	listOptions := &github.RepositoryListByOrgOptions{
		Type:        repositoryListTypeAllConstant,
		ListOptions: github.ListOptions{PerPage: repositoryPageSizeConstant},
	}

	repositories := []Repository{}
	for {
		page, response, listError := client.restClient.Repositories.ListByOrg(executionContext, trimmedOrganization, listOptions)
		if listError != nil {
			return nil, OperationError{Operation: listRepositoriesOperationNameConstant, Cause: listError}
		}

		for _, repository := range page {
			repositories = append(repositories, Repository{
				Name:     repository.GetName(),
				FullName: repository.GetFullName(),
				CloneURL: repository.GetCloneURL(),
				Archived: repository.GetArchived(),
			})
		}

		if response == nil || response.NextPage == 0 {
			break
		}
		listOptions.Page = response.NextPage
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

	values, response, propertiesError := client.restClient.Repositories.GetAllCustomPropertyValues(executionContext, trimmedOrganization, trimmedRepository)
	if propertiesError != nil {
		if resourceNotFound(response, propertiesError) {
			return map[string]string{}, nil
		}
		return nil, OperationError{Operation: customPropertiesOperationNameConstant, Cause: propertiesError}
	}

	properties := make(map[string]string, len(values))
	for _, value := range values {
		if value == nil {
			continue
		}
		normalized, present, normalizeError := normalizePropertyValue(value.PropertyName, value.Value)
		if normalizeError != nil {
			return nil, OperationError{Operation: customPropertiesOperationNameConstant, Cause: normalizeError}
		}
		if present {
			properties[value.PropertyName] = normalized
		}
	}

	return properties, nil
}

// normalizePropertyValue flattens string, multi-select and null property values.
func normalizePropertyValue(propertyName string, value any) (string, bool, error) {
	switch typedValue := value.(type) {
	case nil:
		return "", false, nil
	case string:
		return typedValue, true, nil
	case []string:
		return strings.Join(typedValue, multiValueSeparatorConstant), true, nil
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

func resourceNotFound(response *github.Response, requestError error) bool {
	if response != nil && response.StatusCode == http.StatusNotFound {
		return true
	}
	var errorResponse *github.ErrorResponse
	if errors.As(requestError, &errorResponse) && errorResponse.Response != nil {
		return errorResponse.Response.StatusCode == http.StatusNotFound
	}
	return false
}
