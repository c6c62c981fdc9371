package mirrors

import (
	"errors"
	"fmt"
)

const (
	listingErrorTemplateConstant      = "unable to list repositories for organization %s: %v"
	syncFailuresErrorTemplateConstant = "%d of %d mirror(s) failed to synchronize"
)

var (
	// ErrCatalogNotConfigured indicates the sync service was built without a repository catalog.
	ErrCatalogNotConfigured = errors.New("repository catalog not configured")
	// ErrMirrorManagerNotConfigured indicates the sync service was built without git mirror support.
	ErrMirrorManagerNotConfigured = errors.New("mirror manager not configured")
	// ErrOrganizationNotConfigured indicates no organization was supplied for a run.
	ErrOrganizationNotConfigured = errors.New("organization not configured; set --org or GITHUB_ORGANIZATION")
)

// ListingError reports that the organization repository list could not be retrieved.
type ListingError struct {
	Organization string
	Cause        error
}

// Error describes the listing failure.
func (listingError ListingError) Error() string {
	return fmt.Sprintf(listingErrorTemplateConstant, listingError.Organization, listingError.Cause)
}

// Unwrap exposes the underlying cause.
func (listingError ListingError) Unwrap() error {
	return listingError.Cause
}

// SyncFailuresError reports that one or more mirrors failed during a pass.
type SyncFailuresError struct {
	Failed int
	Total  int
}

// Error describes how many mirrors failed.
func (failuresError SyncFailuresError) Error() string {
	return fmt.Sprintf(syncFailuresErrorTemplateConstant, failuresError.Failed, failuresError.Total)
}
