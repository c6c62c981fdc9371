package mirrors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tyemirov/mirrorsync/internal/execshell"
	"github.com/tyemirov/mirrorsync/internal/githubauth"
	"github.com/tyemirov/mirrorsync/internal/gitrepo"
)

const (
	runIdentifierLogFieldConstant     = "run_id"
	organizationLogFieldConstant      = "organization"
	repositoryLogFieldConstant        = "repository"
	sourceLogFieldConstant            = "source"
	stageLogFieldConstant             = "stage"
	reasonLogFieldConstant            = "reason"
	durationLogFieldConstant          = "duration"
	workspacePatternConstant          = "mirrorsync-*"
	mirrorDirectoryNameConstant       = "mirror.git"
	unreachableSourcePrefixConstant   = "unreachable source: "
	pushFailedPrefixConstant          = "push failed: "
	workspaceFailedPrefixConstant     = "unable to create workspace: "
	destinationFailedPrefixConstant   = "invalid mirror destination: "
	runStartedMessageConstant         = "Starting mirror synchronization"
	listingFailedMessageConstant      = "Unable to list organization repositories"
	propertiesFailedMessageConstant   = "Unable to read custom properties; repository skipped"
	mirrorSkippedMessageConstant      = "Mirror skipped"
	mirrorPlannedMessageConstant      = "Mirror would be synchronized"
	mirrorSyncedMessageConstant       = "Mirror synchronized"
	mirrorFailedMessageConstant       = "Mirror synchronization failed"
	workspaceCleanupFailedMessage     = "Unable to remove mirror workspace"
	notMirrorMessageConstant          = "Repository is not a mirror"
	runFinishedMessageConstant        = "Mirror synchronization finished"
	syncedConsoleTemplateConstant     = "synchronized from %s"
	plannedConsoleTemplateConstant    = "would synchronize from %s"
	sourceDetailKeyConstant           = "source"
	reasonDetailKeyConstant           = "reason"
	stageDetailKeyConstant            = "stage"
	repositoriesDiscoveredLogConstant = "repositories_discovered"
	mirrorsLogFieldConstant           = "mirrors"
	succeededLogFieldConstant         = "succeeded"
	failedLogFieldConstant            = "failed"
	skippedLogFieldConstant           = "skipped"
	dryRunLogFieldConstant            = "dry_run"
)

// SyncOptions configure a single pass.
type SyncOptions struct {
	Organization  string
	Token         string
	DryRun        bool
	Repositories  []string
	WorkDirectory string
	RunIdentifier string
}

// ServiceOption customises SyncService behaviour.
type ServiceOption func(*SyncService)

// WithReporter installs the progress reporter.
func WithReporter(reporter Reporter) ServiceOption {
	return func(service *SyncService) {
		if reporter != nil {
			service.reporter = reporter
		}
	}
}

// WithWorkspaceProvider overrides how scratch directories are allocated.
func WithWorkspaceProvider(provider WorkspaceProvider) ServiceOption {
	return func(service *SyncService) {
		if provider != nil {
			service.workspace = provider
		}
	}
}

// WithClassificationRules overrides the custom property names used to recognize mirrors.
func WithClassificationRules(rules ClassificationRules) ServiceOption {
	return func(service *SyncService) {
		service.rules = rules.Sanitize()
	}
}

// WithNowProvider overrides the time source used for timestamps and durations.
func WithNowProvider(provider func() time.Time) ServiceOption {
	return func(service *SyncService) {
		if provider != nil {
			service.now = provider
		}
	}
}

// WithRunIdentifierGenerator overrides how run identifiers are produced.
func WithRunIdentifierGenerator(generator func() string) ServiceOption {
	return func(service *SyncService) {
		if generator != nil {
			service.newRunIdentifier = generator
		}
	}
}

// SyncService discovers mirror repositories and synchronizes them one at a time.
type SyncService struct {
	logger           *zap.Logger
	catalog          RepositoryCatalog
	mirrorManager    MirrorManager
	workspace        WorkspaceProvider
	reporter         Reporter
	rules            ClassificationRules
	now              func() time.Time
	newRunIdentifier func() string
}

// NewSyncService validates dependencies and constructs a SyncService.
func NewSyncService(logger *zap.Logger, catalog RepositoryCatalog, mirrorManager MirrorManager, options ...ServiceOption) (*SyncService, error) {
	if catalog == nil {
		return nil, ErrCatalogNotConfigured
	}
	if mirrorManager == nil {
		return nil, ErrMirrorManagerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	service := &SyncService{
		logger:           logger,
		catalog:          catalog,
		mirrorManager:    mirrorManager,
		workspace:        temporaryWorkspace{},
		reporter:         nopReporter{},
		rules:            DefaultClassificationRules(),
		now:              time.Now,
		newRunIdentifier: uuid.NewString,
	}

	for _, option := range options {
		option(service)
	}

	return service, nil
}

type discoveryOutcome struct {
	mirrors []MirrorDescriptor
	results []SyncResult
}

// Run performs one pass over the organization. Only a listing failure, a missing
// organization or cancellation ends the pass early; every other failure is recorded
// in the returned report.
func (service *SyncService) Run(executionContext context.Context, options SyncOptions) (RunReport, error) {
	organization := strings.TrimSpace(options.Organization)
	if len(organization) == 0 {
		return RunReport{}, ErrOrganizationNotConfigured
	}

	runIdentifier := strings.TrimSpace(options.RunIdentifier)
	if len(runIdentifier) == 0 {
		runIdentifier = service.newRunIdentifier()
	}

	redactor := githubauth.NewRedactor(options.Token)
	runLogger := service.logger.With(
		zap.String(runIdentifierLogFieldConstant, runIdentifier),
		zap.String(organizationLogFieldConstant, organization),
	)

	report := RunReport{
		RunIdentifier: runIdentifier,
		Organization:  organization,
		DryRun:        options.DryRun,
		StartedAt:     service.now(),
		Results:       []SyncResult{},
	}

	runLogger.Info(runStartedMessageConstant, zap.Bool(dryRunLogFieldConstant, options.DryRun))
	service.reporter.Report(Event{Level: EventLevelInfo, Code: EventCodeRunStarted, Message: organization})

	records, listError := service.catalog.ListOrganizationRepositories(executionContext, organization)
	if listError != nil {
		runLogger.Error(listingFailedMessageConstant, zap.String(reasonLogFieldConstant, redactor.Redact(listError.Error())))
		report.FinishedAt = service.now()
		return report, ListingError{Organization: organization, Cause: listError}
	}

	filter := NewRepositoryFilter(options.Repositories)
	selected := make([]RepositoryRecord, 0, len(records))
	for _, record := range records {
		if filter.Matches(record) {
			selected = append(selected, record)
		}
	}
	report.RepositoriesDiscovered = len(selected)

	outcome, discoveryError := service.discover(executionContext, runLogger, redactor, organization, selected)
	report.Results = append(report.Results, outcome.results...)
	if discoveryError != nil {
		report.FinishedAt = service.now()
		return report, discoveryError
	}

	if len(outcome.mirrors) == 0 && report.Mirrors() == 0 {
		runLogger.Info(noMirrorsMessage)
		service.reporter.Report(Event{Level: EventLevelInfo, Code: EventCodeNoMirrors, Message: noMirrorsMessage})
	}

	for _, descriptor := range outcome.mirrors {
		if contextError := executionContext.Err(); contextError != nil {
			report.FinishedAt = service.now()
			return report, contextError
		}

		var result SyncResult
		if options.DryRun {
			result = service.plan(runLogger, redactor, descriptor)
		} else {
			result = service.synchronize(executionContext, runLogger, redactor, descriptor, options)
		}
		report.Results = append(report.Results, result)
	}

	report.FinishedAt = service.now()
	runLogger.Info(runFinishedMessageConstant,
		zap.Int(repositoriesDiscoveredLogConstant, report.RepositoriesDiscovered),
		zap.Int(mirrorsLogFieldConstant, report.Mirrors()),
		zap.Int(succeededLogFieldConstant, report.Succeeded()),
		zap.Int(failedLogFieldConstant, report.Failed()),
		zap.Int(skippedLogFieldConstant, report.Skipped()),
		zap.Duration(durationLogFieldConstant, report.Duration()),
	)

	return report, nil
}

func (service *SyncService) discover(executionContext context.Context, logger *zap.Logger, redactor githubauth.Redactor, organization string, records []RepositoryRecord) (discoveryOutcome, error) {
	outcome := discoveryOutcome{}

	for _, record := range records {
		if contextError := executionContext.Err(); contextError != nil {
			return outcome, contextError
		}

		properties, propertiesError := service.catalog.RepositoryCustomProperties(executionContext, organization, record.Name)
		if propertiesError != nil {
			reason := redactor.Redact(propertiesError.Error())
			logger.Warn(propertiesFailedMessageConstant,
				zap.String(repositoryLogFieldConstant, record.Name),
				zap.String(reasonLogFieldConstant, reason),
			)
			service.reporter.Report(Event{
				Level:      EventLevelWarn,
				Code:       EventCodePropertiesFailed,
				Repository: record.Name,
				Message:    reason,
			})
			outcome.results = append(outcome.results, SyncResult{
				Repository: record.Name,
				Status:     SyncStatusSkipped,
				Stage:      SyncStageProperties,
				Reason:     reason,
			})
			continue
		}
		record.Properties = properties

		descriptor, classification, skipReason := service.rules.Classify(record)
		switch classification {
		case ClassificationNotMirror:
			logger.Debug(notMirrorMessageConstant, zap.String(repositoryLogFieldConstant, record.Name))
		case ClassificationIncompleteMirror:
			logger.Warn(mirrorSkippedMessageConstant,
				zap.String(repositoryLogFieldConstant, record.Name),
				zap.String(reasonLogFieldConstant, skipReason),
			)
			service.reporter.Report(Event{
				Level:      EventLevelWarn,
				Code:       EventCodeMirrorSkipped,
				Repository: record.Name,
				Message:    skipReason,
			})
			outcome.results = append(outcome.results, SyncResult{
				Repository:     record.Name,
				SourceURL:      redactor.Redact(descriptor.SourceURL),
				DestinationURL: descriptor.DestinationURL,
				Status:         SyncStatusSkipped,
				Stage:          SyncStageDiscovery,
				Reason:         skipReason,
			})
		case ClassificationMirror:
			outcome.mirrors = append(outcome.mirrors, descriptor)
		}
	}

	return outcome, nil
}

func (service *SyncService) plan(logger *zap.Logger, redactor githubauth.Redactor, descriptor MirrorDescriptor) SyncResult {
	sourceURL := redactor.Redact(descriptor.SourceURL)
	logger.Info(mirrorPlannedMessageConstant,
		zap.String(repositoryLogFieldConstant, descriptor.Repository),
		zap.String(sourceLogFieldConstant, sourceURL),
	)
	service.reporter.Report(Event{
		Level:      EventLevelInfo,
		Code:       EventCodeMirrorPlanned,
		Repository: descriptor.Repository,
		Message:    fmt.Sprintf(plannedConsoleTemplateConstant, sourceURL),
		Details:    map[string]string{sourceDetailKeyConstant: sourceURL},
	})
	return SyncResult{
		Repository:     descriptor.Repository,
		SourceURL:      sourceURL,
		DestinationURL: descriptor.DestinationURL,
		Status:         SyncStatusPlanned,
		Stage:          SyncStageDiscovery,
	}
}

func (service *SyncService) synchronize(executionContext context.Context, logger *zap.Logger, redactor githubauth.Redactor, descriptor MirrorDescriptor, options SyncOptions) SyncResult {
	startedAt := service.now()
	result := SyncResult{
		Repository:     descriptor.Repository,
		SourceURL:      redactor.Redact(descriptor.SourceURL),
		DestinationURL: descriptor.DestinationURL,
	}

	fail := func(stage SyncStage, reason string) SyncResult {
		result.Status = SyncStatusFailed
		result.Stage = stage
		result.Reason = redactor.Redact(reason)
		result.Duration = service.now().Sub(startedAt)
		logger.Error(mirrorFailedMessageConstant,
			zap.String(repositoryLogFieldConstant, descriptor.Repository),
			zap.String(sourceLogFieldConstant, result.SourceURL),
			zap.String(stageLogFieldConstant, string(stage)),
			zap.String(reasonLogFieldConstant, result.Reason),
		)
		service.reporter.Report(Event{
			Level:      EventLevelError,
			Code:       EventCodeMirrorFailed,
			Repository: descriptor.Repository,
			Message:    result.Reason,
			Details: map[string]string{
				stageDetailKeyConstant:  string(stage),
				reasonDetailKeyConstant: result.Reason,
			},
		})
		return result
	}

	workspacePath, workspaceError := service.workspace.Create(options.WorkDirectory, workspacePatternConstant)
	if workspaceError != nil {
		return fail(SyncStageClone, workspaceFailedPrefixConstant+workspaceError.Error())
	}
	defer func() {
		if removeError := service.workspace.Remove(workspacePath); removeError != nil {
			logger.Warn(workspaceCleanupFailedMessage,
				zap.String(repositoryLogFieldConstant, descriptor.Repository),
				zap.Error(removeError),
			)
		}
	}()

	repositoryPath := filepath.Join(workspacePath, mirrorDirectoryNameConstant)
	if cloneError := service.mirrorManager.CloneMirror(executionContext, descriptor.SourceURL, repositoryPath); cloneError != nil {
		return fail(SyncStageClone, unreachableSourcePrefixConstant+failureDetail(cloneError))
	}

	destinationURL, destinationError := gitrepo.AuthenticatedRemoteURL(descriptor.DestinationURL, options.Token)
	if destinationError != nil {
		return fail(SyncStagePush, destinationFailedPrefixConstant+destinationError.Error())
	}

	if pushError := service.mirrorManager.PushMirror(executionContext, repositoryPath, destinationURL); pushError != nil {
		return fail(SyncStagePush, pushFailedPrefixConstant+failureDetail(pushError))
	}

	result.Status = SyncStatusSucceeded
	result.Stage = SyncStagePush
	result.Duration = service.now().Sub(startedAt)
	logger.Info(mirrorSyncedMessageConstant,
		zap.String(repositoryLogFieldConstant, descriptor.Repository),
		zap.String(sourceLogFieldConstant, result.SourceURL),
		zap.Duration(durationLogFieldConstant, result.Duration),
	)
	service.reporter.Report(Event{
		Level:      EventLevelInfo,
		Code:       EventCodeMirrorSynced,
		Repository: descriptor.Repository,
		Message:    fmt.Sprintf(syncedConsoleTemplateConstant, result.SourceURL),
		Details:    map[string]string{sourceDetailKeyConstant: result.SourceURL},
	})
	return result
}

// failureDetail prefers the command's stderr over the wrapped error chain.
func failureDetail(failure error) string {
	var commandFailure execshell.CommandFailedError
	if errors.As(failure, &commandFailure) {
		if detail := commandFailure.Detail(); len(detail) > 0 {
			return detail
		}
	}
	return failure.Error()
}

type temporaryWorkspace struct{}

func (temporaryWorkspace) Create(parentDirectory string, pattern string) (string, error) {
	return os.MkdirTemp(parentDirectory, pattern)
}

func (temporaryWorkspace) Remove(path string) error {
	return os.RemoveAll(path)
}
