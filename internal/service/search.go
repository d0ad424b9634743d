package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/practice2025/supportai/internal/answer"
	"github.com/practice2025/supportai/internal/querycache"
	"github.com/practice2025/supportai/internal/repository"
)

// MaxSources is the number of sources returned with an answer
const MaxSources = 3

// AnswerRequest is the inbound "answer a query" operation
type AnswerRequest struct {
	Query string `json:"query"`
	// Context carries prior conversation turns. It is accepted and logged but does not influence retrieval.
	Context []map[string]any `json:"context,omitempty"`
	UserID  string           `json:"user_id,omitempty"`
}

// AnswerResponse is always well formed; Success reports the outcome
type AnswerResponse struct {
	Answer  string              `json:"answer"`
	Sources []repository.Source `json:"sources"`
	Success bool                `json:"success"`
}

// Retriever finds documents for a query without failing
type Retriever interface {
	Retrieve(ctx context.Context, query string) []repository.Document
}

// Synthesizer formats an answer from the top document
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, top repository.Document) string
}

// QueryCache remembers served answers
type QueryCache interface {
	Lookup(ctx context.Context, query, userID string) *querycache.CachedAnswer
	RecordUserHistory(ctx context.Context, userID, query, answer string, sources []repository.Source) error
	RecordFrequentQuery(ctx context.Context, query, answer string, sources []repository.Source) error
}

// SearchService answers support queries from the cache or the document store
type SearchService struct {
	cache       QueryCache
	retriever   Retriever
	synthesizer Synthesizer
	logger      *slog.Logger
}

// SearchServiceOption is a functional option for configuring SearchService.
type SearchServiceOption func(*SearchService)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SearchServiceOption {
	return func(s *SearchService) {
		s.logger = logger
	}
}

// NewSearchService creates a new SearchService
func NewSearchService(cache QueryCache, retriever Retriever, synthesizer Synthesizer, opts ...SearchServiceOption) *SearchService {
	s := &SearchService{
		cache:       cache,
		retriever:   retriever,
		synthesizer: synthesizer,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer runs the pipeline. It never returns an error; internal faults become
// an unsuccessful response with a generic message.
func (s *SearchService) Answer(ctx context.Context, req AnswerRequest) (resp AnswerResponse) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while answering query",
				"panic", fmt.Sprint(r),
				"query", req.Query,
				"user_id", req.UserID,
				"stack", string(debug.Stack()),
			)
			resp = failure(answer.MessageInternalError)
		}
	}()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return failure(answer.MessageEmptyQuery)
	}

	s.logger.Info("answering query",
		"query", query,
		"user_id", req.UserID,
		"context_turns", len(req.Context),
	)

	if hit := s.cache.Lookup(ctx, query, req.UserID); hit != nil && hit.Answer != answer.MessageNoResults {
		sources := capSources(hit.Sources)
		// A user's own history never feeds the shared aggregate
		s.record(ctx, req.UserID, query, hit.Answer, sources, hit.Kind != querycache.MatchHistory)
		s.logger.Info("served from cache",
			"kind", hit.Kind,
			"key", hit.Key,
			"count", hit.Count,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return AnswerResponse{Answer: hit.Answer, Sources: sources, Success: true}
	}

	docs := s.retriever.Retrieve(ctx, query)
	if len(docs) == 0 {
		s.record(ctx, req.UserID, query, answer.MessageNoResults, nil, false)
		s.logger.Info("no documents found",
			"query", query,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return failure(answer.MessageNoResults)
	}

	text := s.synthesizer.Synthesize(ctx, query, docs[0])
	sources := repository.SourcesFrom(docs, MaxSources)
	s.record(ctx, req.UserID, query, text, sources, true)

	s.logger.Info("answered from documents",
		"top_id", docs[0].ID,
		"top_source", docs[0].Source,
		"documents", len(docs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return AnswerResponse{Answer: text, Sources: sources, Success: true}
}

// record writes the user history and, for served answers, the frequent-query aggregate.
// Storage failures are logged; the response is unaffected.
func (s *SearchService) record(ctx context.Context, userID, query, text string, sources []repository.Source, served bool) {
	if err := s.cache.RecordUserHistory(ctx, userID, query, text, sources); err != nil {
		s.logger.Error("failed to record user history", "user_id", userID, "error", err)
	}
	if !served {
		return
	}
	if err := s.cache.RecordFrequentQuery(ctx, query, text, sources); err != nil {
		s.logger.Error("failed to record frequent query", "error", err)
	}
}

func failure(msg string) AnswerResponse {
	return AnswerResponse{Answer: msg, Sources: []repository.Source{}, Success: false}
}

func capSources(sources []repository.Source) []repository.Source {
	if len(sources) > MaxSources {
		sources = sources[:MaxSources]
	}
	return repository.CloneSources(sources)
}
