package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/practice2025/supportai/internal/mediawiki"
)

// Backend names accepted by Open
const (
	BackendElasticsearch = "elasticsearch"
	BackendMediaWiki     = "mediawiki"
	BackendMock          = "mock"
)

// Options selects and configures the backend
type Options struct {
	Backend       string
	Elasticsearch ElasticsearchConfig
	MediaWikiURL  string
	CorpusPath    string
	Timeout       time.Duration
}

// Open builds the adapter for opts.Backend. An Elasticsearch cluster that does not
// answer a ping falls back to the mock corpus.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	adapterOpts := []AdapterOption{WithTimeout(timeout), WithLogger(logger)}

	switch opts.Backend {
	case BackendElasticsearch, "":
		es, err := NewElasticsearch(opts.Elasticsearch)
		if err != nil {
			return nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		err = es.Ping(pingCtx)
		cancel()
		if err == nil {
			logger.Info("document store ready", "backend", es.Name(), "index", es.index)
			return NewAdapter(es, adapterOpts...), nil
		}

		logger.Warn("elasticsearch unavailable, falling back to mock corpus", "error", err)
		mock, err := openMock(opts.CorpusPath)
		if err != nil {
			return nil, err
		}
		return NewAdapter(mock, adapterOpts...), nil

	case BackendMediaWiki:
		if opts.MediaWikiURL == "" {
			return nil, fmt.Errorf("mediawiki backend requires MEDIAWIKI_URL")
		}
		client := mediawiki.NewClient(opts.MediaWikiURL)
		logger.Info("document store ready", "backend", BackendMediaWiki, "url", opts.MediaWikiURL)
		return NewAdapter(NewMediaWiki(client), adapterOpts...), nil

	case BackendMock:
		mock, err := openMock(opts.CorpusPath)
		if err != nil {
			return nil, err
		}
		logger.Info("document store ready", "backend", BackendMock, "documents", len(mock.docs))
		return NewAdapter(mock, adapterOpts...), nil

	default:
		return nil, fmt.Errorf("unknown document store backend: %s", opts.Backend)
	}
}

func openMock(path string) (*Mock, error) {
	if path == "" {
		return NewMock(nil), nil
	}
	docs, err := LoadCorpus(path)
	if err != nil {
		return nil, err
	}
	return NewMock(docs), nil
}
