package mirrors

import (
	"context"
	"time"
)

// SyncStatus describes the outcome of one mirror within a pass.
type SyncStatus string

// Supported sync statuses.
const (
	SyncStatusSucceeded SyncStatus = "succeeded"
	SyncStatusFailed    SyncStatus = "failed"
	SyncStatusSkipped   SyncStatus = "skipped"
	SyncStatusPlanned   SyncStatus = "planned"
)

// SyncStage names the step a result was decided at.
type SyncStage string

// Supported sync stages.
const (
	SyncStageDiscovery  SyncStage = "discovery"
	SyncStageProperties SyncStage = "properties"
	SyncStageClone      SyncStage = "clone"
	SyncStagePush       SyncStage = "push"
)

// RepositoryRecord is an organization repository as reported by the hosting API.
type RepositoryRecord struct {
	Name       string
	FullName   string
	CloneURL   string
	Archived   bool
	Properties map[string]string
}

// MirrorDescriptor identifies a mirror repository and the upstream it tracks.
type MirrorDescriptor struct {
	Repository     string
	SourceURL      string
	DestinationURL string
	Archived       bool
}

// SyncResult records what happened to one repository during a pass.
type SyncResult struct {
	Repository     string        `json:"repository" yaml:"repository"`
	SourceURL      string        `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	DestinationURL string        `json:"destination_url,omitempty" yaml:"destination_url,omitempty"`
	Status         SyncStatus    `json:"status" yaml:"status"`
	Stage          SyncStage     `json:"stage" yaml:"stage"`
	Reason         string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Duration       time.Duration `json:"-" yaml:"-"`
}

// RunReport aggregates the results of a single pass over an organization.
type RunReport struct {
	RunIdentifier          string
	Organization           string
	DryRun                 bool
	StartedAt              time.Time
	FinishedAt             time.Time
	RepositoriesDiscovered int
	Results                []SyncResult
}

// Mirrors counts the results that correspond to repositories marked as mirrors.
func (report RunReport) Mirrors() int {
	count := 0
	for _, result := range report.Results {
		if result.Stage != SyncStageProperties {
			count++
		}
	}
	return count
}

// Succeeded counts successfully synchronized mirrors.
func (report RunReport) Succeeded() int {
	return report.countStatus(SyncStatusSucceeded)
}

// Failed counts mirrors whose clone or push failed.
func (report RunReport) Failed() int {
	return report.countStatus(SyncStatusFailed)
}

// Skipped counts repositories that could not be evaluated or lack a source.
func (report RunReport) Skipped() int {
	return report.countStatus(SyncStatusSkipped)
}

// Planned counts mirrors that a dry run would synchronize.
func (report RunReport) Planned() int {
	return report.countStatus(SyncStatusPlanned)
}

// Duration reports the wall-clock time of the pass.
func (report RunReport) Duration() time.Duration {
	if report.FinishedAt.Before(report.StartedAt) {
		return 0
	}
	return report.FinishedAt.Sub(report.StartedAt)
}

func (report RunReport) countStatus(status SyncStatus) int {
	count := 0
	for _, result := range report.Results {
		if result.Status == status {
			count++
		}
	}
	return count
}

// RepositoryCatalog lists organization repositories and their custom properties.
type RepositoryCatalog interface {
	ListOrganizationRepositories(executionContext context.Context, organization string) ([]RepositoryRecord, error)
	RepositoryCustomProperties(executionContext context.Context, organization string, repository string) (map[string]string, error)
}

// MirrorManager performs the git operations that copy a source into a mirror.
type MirrorManager interface {
	CloneMirror(executionContext context.Context, sourceURL string, repositoryPath string) error
	PushMirror(executionContext context.Context, repositoryPath string, destinationURL string) error
}

// WorkspaceProvider allocates and releases scratch directories for mirror clones.
type WorkspaceProvider interface {
	Create(parentDirectory string, pattern string) (string, error)
	Remove(path string) error
}
