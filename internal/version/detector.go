package version

import (
	"context"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/mirrorsync/internal/execshell"
	"github.com/tyemirov/mirrorsync/internal/gitrepo"
)

const (
	unknownVersionFallbackConstant            = "unknown"
	buildInfoDevelVersionValue                = "devel"
	buildInfoRevisionSettingKeyConstant       = "vcs.revision"
	buildInfoModifiedSettingKeyConstant       = "vcs.modified"
	develRevisionSeparatorConstant            = "+"
	dirtySuffixConstant                       = "-dirty"
	shortRevisionLengthConstant               = 12
	gitDescribeSubcommandConstant             = "describe"
	gitTagsFlagConstant                       = "--tags"
	gitAlwaysFlagConstant                     = "--always"
	gitDirtyFlagConstant                      = "--dirty"
	gitTerminalPromptEnvironmentNameConstant  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentValueConstant = "0"
)

// BuildVersion may be injected at link time with -ldflags "-X .../internal/version.BuildVersion=v1.0.0".
var BuildVersion = ""

// BuildInfoProvider exposes runtime build metadata.
type BuildInfoProvider interface {
	Read() (*debug.BuildInfo, bool)
}

// Detector resolves application version strings.
type Detector struct {
	injectedVersion   string
	buildInfoProvider BuildInfoProvider
	gitExecutor       gitrepo.GitCommandExecutor
	workingDirectory  string
}

// Dependencies describes the collaborators required for version detection.
type Dependencies struct {
	InjectedVersion   string
	BuildInfoProvider BuildInfoProvider
	GitExecutor       gitrepo.GitCommandExecutor
	WorkingDirectory  string
}

// NewDetector constructs a Detector with the supplied dependencies or sensible defaults.
func NewDetector(dependencies Dependencies) (*Detector, error) {
	provider := dependencies.BuildInfoProvider
	if provider == nil {
		provider = runtimeBuildInfoProvider{}
	}

	executor := dependencies.GitExecutor
	if executor == nil {
		shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner(), false)
		if creationError != nil {
			return nil, creationError
		}
		executor = shellExecutor
	}

	workingDirectory := strings.TrimSpace(dependencies.WorkingDirectory)
	if len(workingDirectory) == 0 {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError == nil {
			workingDirectory = currentDirectory
		}
	}

	return &Detector{
		injectedVersion:   strings.TrimSpace(dependencies.InjectedVersion),
		buildInfoProvider: provider,
		gitExecutor:       executor,
		workingDirectory:  workingDirectory,
	}, nil
}

// Detect resolves the application version, preferring the link-time BuildVersion.
func Detect(executionContext context.Context) string {
	detector, detectorError := NewDetector(Dependencies{InjectedVersion: BuildVersion})
	if detectorError != nil {
		return unknownVersionFallbackConstant
	}
	return detector.Version(executionContext)
}

// Version returns the detected application version string. Sources are consulted in order:
// injected version, module version, VCS revision stamped into the binary, git describe.
func (detector *Detector) Version(executionContext context.Context) string {
	if detector == nil {
		return unknownVersionFallbackConstant
	}

	if len(detector.injectedVersion) > 0 {
		return detector.injectedVersion
	}

	buildInfo, buildInfoAvailable := detector.readBuildInfo()
	if buildInfoAvailable {
		if moduleVersion := moduleVersionFromBuildInfo(buildInfo); len(moduleVersion) > 0 {
			return moduleVersion
		}
		if revisionVersion := revisionVersionFromBuildInfo(buildInfo); len(revisionVersion) > 0 {
			return revisionVersion
		}
	}

	if describedVersion := detector.describeVersion(executionContext); len(describedVersion) > 0 {
		return describedVersion
	}

	return unknownVersionFallbackConstant
}

func (detector *Detector) readBuildInfo() (*debug.BuildInfo, bool) {
	if detector.buildInfoProvider == nil {
		return nil, false
	}
	buildInfo, available := detector.buildInfoProvider.Read()
	if !available || buildInfo == nil {
		return nil, false
	}
	return buildInfo, true
}

func moduleVersionFromBuildInfo(buildInfo *debug.BuildInfo) string {
	trimmedVersion := strings.TrimSpace(buildInfo.Main.Version)
	if len(trimmedVersion) == 0 {
		return ""
	}
	if strings.EqualFold(trimmedVersion, buildInfoDevelVersionValue) || strings.EqualFold(trimmedVersion, "("+buildInfoDevelVersionValue+")") {
		return ""
	}
	return trimmedVersion
}

func revisionVersionFromBuildInfo(buildInfo *debug.BuildInfo) string {
	revision := ""
	modified := false
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case buildInfoRevisionSettingKeyConstant:
			revision = strings.TrimSpace(setting.Value)
		case buildInfoModifiedSettingKeyConstant:
			modified = setting.Value == "true"
		}
	}
	if len(revision) == 0 {
		return ""
	}
	if len(revision) > shortRevisionLengthConstant {
		revision = revision[:shortRevisionLengthConstant]
	}
	versionString := buildInfoDevelVersionValue + develRevisionSeparatorConstant + revision
	if modified {
		versionString += dirtySuffixConstant
	}
	return versionString
}

func (detector *Detector) describeVersion(executionContext context.Context) string {
	if detector.gitExecutor == nil || len(detector.workingDirectory) == 0 {
		return ""
	}

	executionResult, executionError := detector.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitDescribeSubcommandConstant, gitTagsFlagConstant, gitAlwaysFlagConstant, gitDirtyFlagConstant},
		WorkingDirectory:     detector.workingDirectory,
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentValueConstant},
	})
	if executionError != nil {
		return ""
	}

	return strings.TrimSpace(executionResult.StandardOutput)
}

type runtimeBuildInfoProvider struct{}

func (runtimeBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}
