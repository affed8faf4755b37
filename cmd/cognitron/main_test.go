package main

import (
	"context"
	"testing"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/log"
	"github.com/cognitron/cognitron/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GENERATOR_MODEL", "MAX_TOKENS", "TEMPERATURE", "GENERATOR_API_KEY", "VOCAB_PATH", "LISTEN_ADDR", "SNAPSHOT_DIR",
		"SNAPSHOT_BACKEND", "SNAPSHOT_REDIS_ADDR", "SNAPSHOT_REDIS_PASSWORD", "SNAPSHOT_REDIS_DB", "SNAPSHOT_POSTGRES_DSN", "SNAPSHOT_SQLITE_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 1024, cfg.MaxTokens)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "./data/snapshots", cfg.SnapshotDir)
	assert.Equal(t, "file", cfg.SnapshotBackend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "./data/snapshots.db", cfg.SQLitePath)
}

func TestLoadConfigOverridesFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GENERATOR_MODEL", "gpt-4o")
	t.Setenv("MAX_TOKENS", "256")
	t.Setenv("TEMPERATURE", "0.1")
	t.Setenv("SNAPSHOT_DIR", "/tmp/cognitron-snapshots")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 256, cfg.MaxTokens)
	assert.Equal(t, 0.1, cfg.Temperature)
	assert.Equal(t, "/tmp/cognitron-snapshots", cfg.SnapshotDir)
}

func TestLoadConfigRejectsBadMaxTokens(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_TOKENS", "not-a-number")
	_, err := loadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadRedisDB(t *testing.T) {
	clearEnv(t)
	t.Setenv("SNAPSHOT_REDIS_DB", "not-a-number")
	_, err := loadConfig()
	assert.Error(t, err)
}

func TestBuildSnapshotBackendDefaultsToFile(t *testing.T) {
	dir := t.TempDir()
	backend, err := buildSnapshotBackend(context.Background(), config{SnapshotDir: dir})
	require.NoError(t, err)
	require.NotNil(t, backend)
}

func TestBuildSnapshotBackendMemory(t *testing.T) {
	backend, err := buildSnapshotBackend(context.Background(), config{SnapshotBackend: "memory"})
	require.NoError(t, err)
	require.NotNil(t, backend)
}

func TestBuildSnapshotBackendSQLite(t *testing.T) {
	backend, err := buildSnapshotBackend(context.Background(), config{SnapshotBackend: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, backend)
}

func TestBuildSnapshotBackendRedisDialsLazily(t *testing.T) {
	backend, err := buildSnapshotBackend(context.Background(), config{SnapshotBackend: "redis", RedisAddr: "localhost:6379"})
	require.NoError(t, err)
	require.NotNil(t, backend)
}

func TestBuildSnapshotBackendRejectsUnknownName(t *testing.T) {
	_, err := buildSnapshotBackend(context.Background(), config{SnapshotBackend: "carrier-pigeon"})
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.Input))
}

func TestBuildProviderFallsBackToNoopWithoutAPIKey(t *testing.T) {
	provider := buildProvider(config{Model: "gpt-4o-mini"})
	_, err := provider.Generate(context.Background(), "hi", 10, 0.5)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.NotReady))
}

type stubSource struct {
	text string
	err  error
}

func (s stubSource) Fetch(ctx context.Context, ref string) (string, error) {
	return s.text, s.err
}

func TestTrainFromSourceBuildsVocabulary(t *testing.T) {
	seg := segment.New(segment.DefaultConfig(), log.NewDefaultLogger(log.LogLevelError))
	require.NoError(t, trainFromSource(context.Background(), seg, stubSource{text: "hello hello world"}, "main"))
	assert.Positive(t, seg.VocabSize())
}

func TestTrainFromSourcePropagatesFetchError(t *testing.T) {
	seg := segment.New(segment.DefaultConfig(), log.NewDefaultLogger(log.LogLevelError))
	fetchErr := cerr.New("ingest", cerr.Upstream, "not found")
	err := trainFromSource(context.Background(), seg, stubSource{err: fetchErr}, "main")
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.Upstream))
}

func TestExitCodeForMapsKinds(t *testing.T) {
	assert.Equal(t, exitResourceExhausted, exitCodeFor(cerr.New("x", cerr.ResourceExhausted, "full")))
	assert.Equal(t, exitPersistenceError, exitCodeFor(cerr.New("x", cerr.Persistence, "corrupt")))
	assert.Equal(t, exitUpstreamError, exitCodeFor(cerr.New("x", cerr.Upstream, "down")))
	assert.Equal(t, exitConfigError, exitCodeFor(cerr.New("x", cerr.Internal, "bug")))
}
