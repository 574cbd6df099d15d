package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAtDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenAt(dir)
	require.NoError(t, err)

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 4)

	runner, err := s.Get("runner")
	require.NoError(t, err)
	assert.Equal(t, "api", runner.Value)
	assert.Equal(t, SourceDefault, runner.Source)
}

func TestSetThenReopenReadsFile(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenAt(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("api_url", "https://staging.pipelex.com"))

	reopened, err := OpenAt(dir)
	require.NoError(t, err)
	e, err := reopened.Get("api_url")
	require.NoError(t, err)
	assert.Equal(t, "https://staging.pipelex.com", e.Value)
	assert.Equal(t, SourceFile, e.Source)

	info, err := os.Stat(filepath.Join(dir, "credentials"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEnvVarTakesPrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenAt(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("api_url", "https://staging.pipelex.com"))

	t.Setenv("PIPELEX_API_URL", "https://env.pipelex.com")

	reopened, err := OpenAt(dir)
	require.NoError(t, err)
	e, err := reopened.Get("api_url")
	require.NoError(t, err)
	assert.Equal(t, "https://env.pipelex.com", e.Value)
	assert.Equal(t, SourceEnv, e.Source)
}

func TestGetUnknownKey(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenAt(dir)
	require.NoError(t, err)
	_, err = s.Get("nonsense")
	assert.Error(t, err)
}

func TestResolveKey(t *testing.T) {
	internal, ok := ResolveKey("api-url")
	require.True(t, ok)
	assert.Equal(t, "api_url", internal)

	_, ok = ResolveKey("does-not-exist")
	assert.False(t, ok)
}

func TestIsTelemetryEnabledDefault(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenAt(dir)
	require.NoError(t, err)
	assert.True(t, s.IsTelemetryEnabled())

	require.NoError(t, s.Set("telemetry", "1"))
	reopened, err := OpenAt(dir)
	require.NoError(t, err)
	assert.False(t, reopened.IsTelemetryEnabled())
}

func TestMigrateLegacyConfig(t *testing.T) {
	dir := t.TempDir()
	legacyJSON := `{"runner":"subprocess","apiUrl":"https://legacy.pipelex.com","apiKey":"sk-legacy","telemetry":false}`
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(legacyJSON), 0o644))

	resetMigrateOnceForTest()
	s, err := OpenAt(dir)
	require.NoError(t, err)

	runner, err := s.Get("runner")
	require.NoError(t, err)
	assert.Equal(t, "subprocess", runner.Value)

	apiKey, err := s.Get("api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-legacy", apiKey.Value)

	_, statErr := os.Stat(filepath.Join(dir, "config.json"))
	assert.True(t, os.IsNotExist(statErr), "legacy config.json should be removed after migration")
}
