package gitrepo

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	httpsSchemePrefixConstant           = "https://"
	accessTokenUserNameConstant         = "x-access-token"
	remoteURLFieldNameConstant          = "remote_url"
	remoteURLParseErrorTemplateConstant = "unable to parse remote URL: %w"
)

// AuthenticatedRemoteURL embeds the access token into an HTTPS remote URL using the
// x-access-token user accepted by GitHub. Remotes using other schemes (ssh, file,
// scp-like) are returned unchanged, as is any URL when the token is blank.
func AuthenticatedRemoteURL(remoteURL string, token string) (string, error) {
	trimmedRemoteURL := strings.TrimSpace(remoteURL)
	if len(trimmedRemoteURL) == 0 {
		return "", InvalidRepositoryInputError{FieldName: remoteURLFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedToken := strings.TrimSpace(token)
	if len(trimmedToken) == 0 {
		return trimmedRemoteURL, nil
	}

	if !strings.HasPrefix(strings.ToLower(trimmedRemoteURL), httpsSchemePrefixConstant) {
		return trimmedRemoteURL, nil
	}

	parsedURL, parseError := url.Parse(trimmedRemoteURL)
	if parseError != nil {
		return "", fmt.Errorf(remoteURLParseErrorTemplateConstant, parseError)
	}

	parsedURL.User = url.UserPassword(accessTokenUserNameConstant, trimmedToken)
	return parsedURL.String(), nil
}
