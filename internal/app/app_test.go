package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practice2025/supportai/internal/config"
	"github.com/practice2025/supportai/internal/docstore"
	"github.com/practice2025/supportai/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		UpstreamTimeout:   time.Second,
		StorageBackend:    config.StorageMemory,
		HistoryLimit:      20,
		DocstoreBackend:   docstore.BackendMock,
		OriginFetcher:     config.FetcherNone,
		EmbeddingProvider: config.EmbeddingNone,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_MockCorpus(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Equal(t, docstore.SourceMock, a.Docstore.Backend())
	assert.Nil(t, a.JWT)

	resp := a.Service.Answer(ctx, service.AnswerRequest{Query: "printer", UserID: "alice"})
	assert.True(t, resp.Success)
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, "mock-1", resp.Sources[0].ID)
	assert.Contains(t, resp.Answer, "printer")
}

func TestNew_FileStorageSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.StorageBackend = config.StorageFile
	cfg.StoragePath = t.TempDir()

	a, err := New(ctx, cfg, discardLogger())
	require.NoError(t, err)
	first := a.Service.Answer(ctx, service.AnswerRequest{Query: "VPN"})
	a.Service.Answer(ctx, service.AnswerRequest{Query: "vpn"})
	a.Service.Answer(ctx, service.AnswerRequest{Query: "vpn"})
	require.NoError(t, a.Close())

	reopened, err := New(ctx, cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	entries, err := reopened.Cache.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "vpn", entries[0].Query)
	assert.Equal(t, 3, entries[0].Count)

	hit := reopened.Cache.Lookup(ctx, "vpn", "")
	require.NotNil(t, hit)
	assert.Equal(t, first.Answer, hit.Answer)
}

func TestNew_BadgerStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageBackend = config.StorageBadger
	cfg.StoragePath = t.TempDir()

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = os.Stat(filepath.Join(cfg.StoragePath, "badger"))
	assert.NoError(t, err)
}

func TestNew_JWT(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = "secret"
	cfg.JWTExpiry = time.Hour

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	require.NotNil(t, a.JWT)
	token, err := a.JWT.GenerateToken("alice")
	require.NoError(t, err)
	claims, err := a.JWT.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
}

func TestNew_UnknownStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageBackend = "redis"

	_, err := New(context.Background(), cfg, discardLogger())
	assert.Error(t, err)
}
