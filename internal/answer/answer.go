// Package answer turns the best retrieved document into a user-facing reply.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/practice2025/supportai/internal/origin"
	"github.com/practice2025/supportai/internal/repository"
	"github.com/practice2025/supportai/internal/upstream"
)

// User-facing messages
const (
	MessageEmptyQuery    = "Пожалуйста, укажите поисковый запрос."
	MessageNoResults     = "К сожалению, не удалось найти подходящие материалы. Попробуйте переформулировать запрос или создать заявку для получения помощи."
	MessageInternalError = "Произошла ошибка при обработке запроса. Пожалуйста, попробуйте позже."
)

const answerTemplate = "Вот информация по вашему запросу '%s':\n\n%s\n\nПодробнее вы можете прочитать на странице \"%s\"."

const (
	// RefetchBelow is the content length, in characters, under which the origin is asked for the full text.
	RefetchBelow = 2000

	// MaxFetchedChars caps fetched origin content.
	MaxFetchedChars = 1000

	ellipsis = "..."
)

// Synthesizer builds answers from documents
type Synthesizer struct {
	fetcher origin.Fetcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewSynthesizer creates a synthesizer. A nil fetcher never refetches.
func NewSynthesizer(fetcher origin.Fetcher, timeout time.Duration, logger *slog.Logger) *Synthesizer {
	if fetcher == nil {
		fetcher = origin.NoopFetcher{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{fetcher: fetcher, timeout: timeout, logger: logger}
}

// Synthesize formats the answer for query from top, refetching short content from its origin
func (s *Synthesizer) Synthesize(ctx context.Context, query string, top repository.Document) string {
	content := top.Content
	if len([]rune(content)) < RefetchBelow {
		if full, ok := s.fetch(ctx, top); ok {
			content = truncate(full, MaxFetchedChars)
		}
	}
	return fmt.Sprintf(answerTemplate, query, content, top.Title)
}

func (s *Synthesizer) fetch(ctx context.Context, doc repository.Document) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	full, err := s.fetcher.Fetch(ctx, doc)
	full, ok := upstream.OrZero(ctx, s.logger, "origin", full, err)
	return full, ok && full != ""
}

// truncate caps s at n characters followed by an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + ellipsis
}
