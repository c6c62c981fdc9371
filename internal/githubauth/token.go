package githubauth

import (
	"fmt"
	"os"
	"strings"
)

const (
	// EnvGitHubToken is the primary token variable, populated by GitHub Actions.
	EnvGitHubToken = "GITHUB_TOKEN"
	// EnvGitHubCLIToken is the token variable honored by the GitHub CLI.
	EnvGitHubCLIToken = "GH_TOKEN"
	// EnvGitHubAPIToken is an alternate token variable for API-only credentials.
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"

	missingTokenTemplateConstant  = "GitHub token required for %s; set %s"
	missingTokenOperationFallback = "GitHub operation"
)

var tokenEnvironmentVariables = []string{EnvGitHubToken, EnvGitHubCLIToken, EnvGitHubAPIToken}

// MissingTokenError reports that no GitHub token could be resolved.
type MissingTokenError struct {
	Operation string
}

// NewMissingTokenError builds a MissingTokenError for the operation.
func NewMissingTokenError(operation string) MissingTokenError {
	return MissingTokenError{Operation: operation}
}

// Error describes the missing token.
func (tokenError MissingTokenError) Error() string {
	operation := strings.TrimSpace(tokenError.Operation)
	if len(operation) == 0 {
		operation = missingTokenOperationFallback
	}
	return fmt.Sprintf(missingTokenTemplateConstant, operation, strings.Join(tokenEnvironmentVariables, " or "))
}

// ResolveToken returns the first non-empty token found in the provided environment
// map, falling back to the process environment.
func ResolveToken(environment map[string]string) (string, bool) {
	for _, variableName := range tokenEnvironmentVariables {
		if value, exists := environment[variableName]; exists {
			if trimmed := strings.TrimSpace(value); len(trimmed) > 0 {
				return trimmed, true
			}
		}
	}
	return ResolveTokenWithLookup(os.LookupEnv)
}

// ResolveTokenWithLookup resolves a token using the provided environment lookup.
func ResolveTokenWithLookup(lookup func(string) (string, bool)) (string, bool) {
	if lookup == nil {
		return "", false
	}
	for _, variableName := range tokenEnvironmentVariables {
		value, exists := lookup(variableName)
		if !exists {
			continue
		}
		if trimmed := strings.TrimSpace(value); len(trimmed) > 0 {
			return trimmed, true
		}
	}
	return "", false
}
