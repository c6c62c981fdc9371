package githubauth

import "strings"

// RedactedPlaceholder replaces secrets in rendered output.
const RedactedPlaceholder = "***TOKEN***"

// Redactor scrubs known secrets from text before it reaches logs or reports.
type Redactor struct {
	secrets []string
}

// NewRedactor constructs a Redactor for the provided secrets. Blank secrets are ignored.
func NewRedactor(secrets ...string) Redactor {
	collected := make([]string, 0, len(secrets))
	for _, secret := range secrets {
		if len(strings.TrimSpace(secret)) == 0 {
			continue
		}
		collected = append(collected, secret)
	}
	return Redactor{secrets: collected}
}

// Redact replaces every secret occurrence in the input.
func (redactor Redactor) Redact(input string) string {
	redacted := input
	for _, secret := range redactor.secrets {
		redacted = strings.ReplaceAll(redacted, secret, RedactedPlaceholder)
	}
	return redacted
}

// RedactAll applies Redact to every element and returns a new slice.
func (redactor Redactor) RedactAll(inputs []string) []string {
	if len(inputs) == 0 {
		return inputs
	}
	redacted := make([]string, len(inputs))
	for index, input := range inputs {
		redacted[index] = redactor.Redact(input)
	}
	return redacted
}

// Empty reports whether the redactor has nothing to scrub.
func (redactor Redactor) Empty() bool {
	return len(redactor.secrets) == 0
}
