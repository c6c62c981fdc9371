package mirrors_test

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/tyemirov/mirrorsync/internal/execshell"
	"github.com/tyemirov/mirrorsync/internal/mirrors"
)

const (
	testOrganizationConstant     = "acme"
	testTokenConstant            = "ghs_secretvalue"
	testRunIdentifierConstant    = "run-0001"
	testWorkDirectoryConstant    = "/work"
	testSourceURLConstant        = "https://example.org/upstream/widgets.git"
	testSecondSourceURLConstant  = "https://example.org/upstream/gadgets.git"
	testThirdSourceURLConstant   = "https://example.org/upstream/gizmos.git"
	testUnreachableSourceMessage = "fatal: unable to access 'https://example.org/upstream/gadgets.git/': Could not resolve host: example.org"
)

type stubCatalog struct {
	repositories    []mirrors.RepositoryRecord
	properties      map[string]map[string]string
	propertyErrors  map[string]error
	listError       error
	listCalls       int
	propertyQueries []string
}

func (catalog *stubCatalog) ListOrganizationRepositories(executionContext context.Context, organization string) ([]mirrors.RepositoryRecord, error) {
	catalog.listCalls++
	if catalog.listError != nil {
		return nil, catalog.listError
	}
	return catalog.repositories, nil
}

func (catalog *stubCatalog) RepositoryCustomProperties(executionContext context.Context, organization string, repository string) (map[string]string, error) {
	catalog.propertyQueries = append(catalog.propertyQueries, repository)
	if propertyError, exists := catalog.propertyErrors[repository]; exists {
		return nil, propertyError
	}
	return catalog.properties[repository], nil
}

type recordedOperation struct {
	kind        string
	source      string
	path        string
	destination string
}

type stubMirrorManager struct {
	cloneErrors map[string]error
	pushErrors  map[string]error
	operations  []recordedOperation
}

func (manager *stubMirrorManager) CloneMirror(executionContext context.Context, sourceURL string, repositoryPath string) error {
	manager.operations = append(manager.operations, recordedOperation{kind: "clone", source: sourceURL, path: repositoryPath})
	return manager.cloneErrors[sourceURL]
}

func (manager *stubMirrorManager) PushMirror(executionContext context.Context, repositoryPath string, destinationURL string) error {
	manager.operations = append(manager.operations, recordedOperation{kind: "push", path: repositoryPath, destination: destinationURL})
	return manager.pushErrors[destinationURL]
}

type stubWorkspace struct {
	createError error
	created     []string
	removed     []string
}

func (workspace *stubWorkspace) Create(parentDirectory string, pattern string) (string, error) {
	if workspace.createError != nil {
		return "", workspace.createError
	}
	path := filepath.Join(parentDirectory, fmt.Sprintf("workspace-%d", len(workspace.created)+1))
	workspace.created = append(workspace.created, path)
	return path, nil
}

func (workspace *stubWorkspace) Remove(path string) error {
	workspace.removed = append(workspace.removed, path)
	return nil
}

type recordingReporter struct {
	events []mirrors.Event
}

func (reporter *recordingReporter) Report(event mirrors.Event) {
	reporter.events = append(reporter.events, event)
}

func (reporter *recordingReporter) codes() []string {
	codes := make([]string, 0, len(reporter.events))
	for _, event := range reporter.events {
		codes = append(codes, event.Code)
	}
	return codes
}

func fixedClock() func() time.Time {
	current := time.Date(2026, time.March, 4, 5, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(250 * time.Millisecond)
		return current
	}
}

func mirrorRecord(name string) mirrors.RepositoryRecord {
	return mirrors.RepositoryRecord{
		Name:     name,
		FullName: testOrganizationConstant + "/" + name,
		CloneURL: "https://github.com/" + testOrganizationConstant + "/" + name + ".git",
	}
}

func mirrorProperties(source string) map[string]string {
	return map[string]string{"repo-type": "mirror", "mirror-source": source}
}

func authenticatedDestination(name string) string {
	return "https://x-access-token:" + testTokenConstant + "@github.com/" + testOrganizationConstant + "/" + name + ".git"
}

func commandFailure(standardError string) error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: execshell.CommandDetails{Arguments: []string{"clone", "--mirror"}}},
		Result:  execshell.ExecutionResult{StandardError: standardError, ExitCode: 128},
	}
}
