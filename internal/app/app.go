// Package app wires configuration into a running search service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/practice2025/supportai/internal/answer"
	"github.com/practice2025/supportai/internal/auth"
	"github.com/practice2025/supportai/internal/config"
	"github.com/practice2025/supportai/internal/docstore"
	"github.com/practice2025/supportai/internal/embedder"
	"github.com/practice2025/supportai/internal/fusion"
	"github.com/practice2025/supportai/internal/mediawiki"
	"github.com/practice2025/supportai/internal/memory"
	"github.com/practice2025/supportai/internal/origin"
	"github.com/practice2025/supportai/internal/querycache"
	"github.com/practice2025/supportai/internal/repository"
	"github.com/practice2025/supportai/internal/repository/badger"
	"github.com/practice2025/supportai/internal/repository/jsonfile"
	"github.com/practice2025/supportai/internal/repository/postgres"
	"github.com/practice2025/supportai/internal/reranker"
	"github.com/practice2025/supportai/internal/server"
	"github.com/practice2025/supportai/internal/service"
	"github.com/practice2025/supportai/internal/vectorstore"
)

// App holds the wired components and the resources they own
type App struct {
	Config    *config.Config
	Service   *service.SearchService
	Cache     *querycache.Cache
	Docstore  *docstore.Adapter
	JWT       *auth.JWTManager
	Readiness map[string]server.ReadinessCheck

	logger  *slog.Logger
	closers []func() error
}

// New builds every component named by cfg. Close releases them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config:    cfg,
		Readiness: map[string]server.ReadinessCheck{},
		logger:    logger,
	}

	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	repo, err := a.openRepository(ctx)
	if err != nil {
		return err
	}

	cache, err := querycache.New(ctx, repo,
		querycache.WithLogger(a.logger),
		querycache.WithHistoryLimit(cfg.HistoryLimit),
	)
	if err != nil {
		return fmt.Errorf("failed to load query cache: %w", err)
	}
	a.Cache = cache
	a.logger.Info("query cache loaded", "backend", cfg.StorageBackend, "keys", cache.Stats().Keys)
	if cfg.StorageBackend == config.StoragePostgres && cfg.CacheRefreshInterval > 0 {
		a.watch(cache, cfg.CacheRefreshInterval)
	}

	store, err := docstore.Open(ctx, DocstoreOptions(cfg), a.logger)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	a.Docstore = store

	rr, err := a.openReranker(ctx)
	if err != nil {
		return err
	}

	fetcher, err := a.openFetcher()
	if err != nil {
		return err
	}

	a.Service = service.NewSearchService(
		cache,
		fusion.NewRetriever(store, rr, a.logger),
		answer.NewSynthesizer(fetcher, cfg.UpstreamTimeout, a.logger),
		service.WithLogger(a.logger),
	)

	if cfg.JWTSecret != "" {
		jwtCfg := auth.DefaultJWTConfig(cfg.JWTSecret)
		jwtCfg.Expiry = cfg.JWTExpiry
		a.JWT = auth.NewJWTManager(jwtCfg)
	}

	return nil
}

// watch refreshes the cache index in the background until Close
func (a *App) watch(cache *querycache.Cache, interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		cache.Watch(ctx, interval)
	}()
	a.closers = append(a.closers, func() error {
		cancel()
		<-done
		return nil
	})
}

// OpenRepository opens the cache repository selected by cfg.StorageBackend
func OpenRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.CacheRepository, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return memory.NewStore(), nil
	case config.StorageFile:
		return jsonfile.Open(cfg.StoragePath, logger)
	case config.StorageBadger:
		return badger.Open(filepath.Join(cfg.StoragePath, "badger"), false, logger)
	case config.StoragePostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return postgresRepo{CacheRepo: postgres.NewCacheRepo(db), db: db}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

// postgresRepo closes the pool it was opened with
type postgresRepo struct {
	*postgres.CacheRepo
	db *postgres.DB
}

func (r postgresRepo) Close() error {
	r.db.Close()
	return nil
}

func (a *App) openRepository(ctx context.Context) (repository.CacheRepository, error) {
	repo, err := OpenRepository(ctx, a.Config, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", a.Config.StorageBackend, err)
	}
	a.closers = append(a.closers, repo.Close)

	if pg, ok := repo.(postgresRepo); ok {
		a.Readiness["postgres"] = func(ctx context.Context) error {
			return pg.db.Pool.Ping(ctx)
		}
	}
	return repo, nil
}

// DocstoreOptions maps cfg onto document store options
func DocstoreOptions(cfg *config.Config) docstore.Options {
	return docstore.Options{
		Backend: cfg.DocstoreBackend,
		Elasticsearch: docstore.ElasticsearchConfig{
			Addresses: cfg.ElasticsearchURLs,
			Username:  cfg.ElasticsearchUsername,
			Password:  cfg.ElasticsearchPassword,
			Index:     cfg.ElasticsearchIndex,
		},
		MediaWikiURL: cfg.MediaWikiURL,
		CorpusPath:   cfg.MockCorpusPath,
		Timeout:      cfg.UpstreamTimeout,
	}
}

func (a *App) openReranker(ctx context.Context) (reranker.Reranker, error) {
	cfg := a.Config

	var emb embedder.Embedder
	switch cfg.EmbeddingProvider {
	case config.EmbeddingOllama:
		ollama, err := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaEmbeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama embedder: %w", err)
		}
		a.closers = append(a.closers, func() error {
			ollama.Close()
			return nil
		})
		emb = ollama
	case config.EmbeddingOpenAI:
		emb = embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIEmbeddingModel,
		})
	default:
		a.logger.Info("semantic reranking disabled")
		return nil, nil
	}
	a.logger.Info("initialized embedder", "provider", cfg.EmbeddingProvider, "model", emb.ModelName(), "dimension", emb.Dimension())

	var cache vectorstore.EmbeddingCache
	if cfg.QdrantGRPCURL != "" {
		qdrant, err := vectorstore.NewQdrantCache(cfg.QdrantGRPCURL, cfg.QdrantCollection)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		a.closers = append(a.closers, qdrant.Close)
		cache = qdrant
		a.logger.Info("connected to Qdrant", "url", cfg.QdrantGRPCURL, "collection", cfg.QdrantCollection)
	} else {
		cache = vectorstore.NewMemoryCache()
	}

	return reranker.NewEmbeddingReranker(emb,
		reranker.WithCache(cache),
		reranker.WithLogger(a.logger),
	), nil
}

func (a *App) openFetcher() (origin.Fetcher, error) {
	cfg := a.Config
	switch cfg.OriginFetcher {
	case config.FetcherMediaWiki:
		return origin.NewMediaWikiFetcher(mediawiki.NewClient(cfg.MediaWikiURL)), nil
	case config.FetcherBrowser:
		browser := origin.NewBrowserFetcher(cfg.ChromeWSURL, a.logger)
		a.closers = append(a.closers, func() error {
			browser.Close()
			return nil
		})
		return browser, nil
	case config.FetcherNone, "":
		return origin.NoopFetcher{}, nil
	default:
		return nil, fmt.Errorf("unknown origin fetcher: %s", cfg.OriginFetcher)
	}
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
