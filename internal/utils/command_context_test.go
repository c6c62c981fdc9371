package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithConfigurationFilePathStoresValue(t *testing.T) {
	accessor := NewCommandContextAccessor()
	enriched := accessor.WithConfigurationFilePath(context.Background(), "/etc/mirrorsync/config.yaml")

	configurationFilePath, exists := accessor.ConfigurationFilePath(enriched)
	require.True(t, exists)
	require.Equal(t, "/etc/mirrorsync/config.yaml", configurationFilePath)
}

func TestWithExecutionFlagsStoresValues(t *testing.T) {
	accessor := NewCommandContextAccessor()
	flags := ExecutionFlags{DryRun: true, DryRunSet: true}

	enriched := accessor.WithExecutionFlags(context.Background(), flags)

	retrieved, exists := accessor.ExecutionFlags(enriched)
	require.True(t, exists)
	require.Equal(t, flags, retrieved)
}

func TestWithExecutionFlagsHandlesMissingContext(t *testing.T) {
	accessor := NewCommandContextAccessor()

	_, exists := accessor.ExecutionFlags(context.Background())
	require.False(t, exists)
}

func TestWithLogLevelSkipsBlankValue(t *testing.T) {
	accessor := NewCommandContextAccessor()

	enriched := accessor.WithLogLevel(context.Background(), "  ")
	_, exists := accessor.LogLevel(enriched)
	require.False(t, exists)

	enriched = accessor.WithLogLevel(context.Background(), " debug ")
	logLevel, exists := accessor.LogLevel(enriched)
	require.True(t, exists)
	require.Equal(t, "debug", logLevel)
}

func TestWithRunIdentifierStoresNormalizedValue(t *testing.T) {
	accessor := NewCommandContextAccessor()

	enriched := accessor.WithRunIdentifier(context.Background(), " 2f1c6a5e-run ")
	runIdentifier, exists := accessor.RunIdentifier(enriched)
	require.True(t, exists)
	require.Equal(t, "2f1c6a5e-run", runIdentifier)

	_, exists = accessor.RunIdentifier(accessor.WithRunIdentifier(context.Background(), ""))
	require.False(t, exists)
}

func TestAccessorHandlesNilContext(t *testing.T) {
	accessor := NewCommandContextAccessor()

	_, exists := accessor.ConfigurationFilePath(nil)
	require.False(t, exists)
}
