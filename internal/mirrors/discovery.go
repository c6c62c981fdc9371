package mirrors

import (
	"fmt"
	"strings"
)

const (
	// DefaultTypePropertyName is the custom property that marks a repository's role.
	DefaultTypePropertyName = "repo-type"
	// DefaultMirrorTypeValue is the repo-type value identifying a mirror.
	DefaultMirrorTypeValue = "mirror"
	// DefaultSourcePropertyName is the custom property holding the upstream URL.
	DefaultSourcePropertyName = "mirror-source"

	missingSourceReasonTemplateConstant = "%s property missing"
	missingCloneURLReasonConstant       = "mirror clone URL missing"
	archivedMirrorReasonConstant        = "mirror repository is archived"
)

// Classification describes how a repository relates to mirror synchronization.
type Classification int

// Repository classifications.
const (
	ClassificationNotMirror Classification = iota
	ClassificationMirror
	ClassificationIncompleteMirror
)

// ClassificationRules names the custom properties used to recognize mirrors.
type ClassificationRules struct {
	TypeProperty   string
	MirrorValue    string
	SourceProperty string
}

// DefaultClassificationRules returns the repo-type/mirror-source convention.
func DefaultClassificationRules() ClassificationRules {
	return ClassificationRules{
		TypeProperty:   DefaultTypePropertyName,
		MirrorValue:    DefaultMirrorTypeValue,
		SourceProperty: DefaultSourcePropertyName,
	}
}

// Sanitize trims the rule values and restores defaults for blank entries.
func (rules ClassificationRules) Sanitize() ClassificationRules {
	defaults := DefaultClassificationRules()
	sanitized := ClassificationRules{
		TypeProperty:   strings.TrimSpace(rules.TypeProperty),
		MirrorValue:    strings.TrimSpace(rules.MirrorValue),
		SourceProperty: strings.TrimSpace(rules.SourceProperty),
	}
	if len(sanitized.TypeProperty) == 0 {
		sanitized.TypeProperty = defaults.TypeProperty
	}
	if len(sanitized.MirrorValue) == 0 {
		sanitized.MirrorValue = defaults.MirrorValue
	}
	if len(sanitized.SourceProperty) == 0 {
		sanitized.SourceProperty = defaults.SourceProperty
	}
	return sanitized
}

// Classify decides whether record is a mirror. Incomplete mirrors carry the skip reason.
func (rules ClassificationRules) Classify(record RepositoryRecord) (MirrorDescriptor, Classification, string) {
	typeValue := strings.TrimSpace(record.Properties[rules.TypeProperty])
	if !strings.EqualFold(typeValue, rules.MirrorValue) {
		return MirrorDescriptor{}, ClassificationNotMirror, ""
	}

	descriptor := MirrorDescriptor{
		Repository:     record.Name,
		SourceURL:      strings.TrimSpace(record.Properties[rules.SourceProperty]),
		DestinationURL: strings.TrimSpace(record.CloneURL),
		Archived:       record.Archived,
	}

	switch {
	case len(descriptor.SourceURL) == 0:
		return descriptor, ClassificationIncompleteMirror, fmt.Sprintf(missingSourceReasonTemplateConstant, rules.SourceProperty)
	case len(descriptor.DestinationURL) == 0:
		return descriptor, ClassificationIncompleteMirror, missingCloneURLReasonConstant
	case descriptor.Archived:
		return descriptor, ClassificationIncompleteMirror, archivedMirrorReasonConstant
	default:
		return descriptor, ClassificationMirror, ""
	}
}

// RepositoryFilter restricts a pass to explicitly named repositories.
type RepositoryFilter struct {
	names map[string]struct{}
}

// NewRepositoryFilter builds a filter matching repository names or full names, case-insensitively.
// An empty list matches every repository.
func NewRepositoryFilter(repositories []string) RepositoryFilter {
	names := make(map[string]struct{}, len(repositories))
	for _, repository := range repositories {
		trimmed := strings.ToLower(strings.TrimSpace(repository))
		if len(trimmed) == 0 {
			continue
		}
		names[trimmed] = struct{}{}
	}
	return RepositoryFilter{names: names}
}

// Matches reports whether the record passes the filter.
func (filter RepositoryFilter) Matches(record RepositoryRecord) bool {
	if len(filter.names) == 0 {
		return true
	}
	if _, exists := filter.names[strings.ToLower(record.Name)]; exists {
		return true
	}
	_, exists := filter.names[strings.ToLower(record.FullName)]
	return exists
}
