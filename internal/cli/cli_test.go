package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practice2025/supportai/internal/app"
	"github.com/practice2025/supportai/internal/auth"
	"github.com/practice2025/supportai/internal/config"
	"github.com/practice2025/supportai/internal/docstore"
	"github.com/practice2025/supportai/internal/repository"
	"github.com/practice2025/supportai/internal/service"
)

// setupTestApp points the commands at a file-backed store over the mock corpus
func setupTestApp(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		UpstreamTimeout:   time.Second,
		StorageBackend:    config.StorageFile,
		StoragePath:       t.TempDir(),
		HistoryLimit:      repository.DefaultHistoryLimit,
		DocstoreBackend:   docstore.BackendMock,
		OriginFetcher:     config.FetcherNone,
		EmbeddingProvider: config.EmbeddingNone,
		JWTSecret:         "cli-secret",
		JWTExpiry:         time.Hour,
	}

	prevLoad, prevOpen := loadConfig, openApp
	loadConfig = func() (*config.Config, error) { return cfg, nil }
	openApp = func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		return app.New(ctx, cfg, logger())
	}
	t.Cleanup(func() {
		loadConfig, openApp = prevLoad, prevOpen
		askUser, askJSON, askGRPC, cacheJSON = "", false, "", false
	})
	return cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "ask")
	assert.Contains(t, names, "cache")
	assert.Contains(t, names, "seed")
	assert.Contains(t, names, "token")
}

func TestAskCmd_RequiresQuery(t *testing.T) {
	setupTestApp(t)
	_, err := execute(t, "ask")
	assert.Error(t, err)
}

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	setupTestApp(t)

	out, err := execute(t, "ask", "password")
	require.NoError(t, err)
	assert.Contains(t, out, "Вот информация по вашему запросу 'password'")
	assert.Contains(t, out, "[1] Password reset")
}

func TestAskCmd_JSON(t *testing.T) {
	setupTestApp(t)

	out, err := execute(t, "ask", "--json", "--user", "alice", "vpn")
	require.NoError(t, err)

	var resp service.AnswerResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, "mock-2", resp.Sources[0].ID)
}

func TestCacheCmds(t *testing.T) {
	setupTestApp(t)

	out, err := execute(t, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No cached queries.")

	_, err = execute(t, "ask", "--user", "bob", "Printer")
	require.NoError(t, err)
	askUser = ""

	out, err = execute(t, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "   1  printer")

	out, err = execute(t, "cache", "history", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Printer")

	out, err = execute(t, "cache", "list", "--json")
	require.NoError(t, err)
	var entries []repository.FrequentQuery
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Count)
}

func TestTokenCmd(t *testing.T) {
	setupTestApp(t)

	out, err := execute(t, "token", "carol")
	require.NoError(t, err)

	manager := auth.NewJWTManager(auth.DefaultJWTConfig("cli-secret"))
	claims, err := manager.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "carol", claims.UserID)
}
