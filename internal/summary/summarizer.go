package summary

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/curalink/curalink/internal/textclean"
)

const (
	// MaxWords bounds AI summaries
	MaxWords = 30
	// trialKeyExcerpt is how much of a trial description feeds the cache key
	trialKeyExcerpt = 300
	// fallbackExcerpt is the length of the non-AI excerpt
	fallbackExcerpt = 200
	// promptLimit caps how much text is sent to the model
	promptLimit = 2000

	systemPrompt = "You write plain-language summaries of medical research for patients. " +
		"Answer with one or two sentences and no more than 30 words."
)

// ErrDisabled is returned when no summarizer is configured
var ErrDisabled = errors.New("ai summaries disabled")

// Completer is the LLM capability
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Service produces short summaries through the cache, with a per-call timeout
type Service struct {
	cache     *Cache
	completer Completer
	timeout   time.Duration
	logger    *slog.Logger
}

// NewService wires the summarizer; a nil completer disables AI summaries
func NewService(cache *Cache, completer Completer, timeout time.Duration, logger *slog.Logger) *Service {
	return &Service{cache: cache, completer: completer, timeout: timeout, logger: logger}
}

// TrialContent is the cached unit for a trial: its title plus the start of its description
func TrialContent(title, description string) string {
	runes := []rune(description)
	if len(runes) > trialKeyExcerpt {
		runes = runes[:trialKeyExcerpt]
	}
	return title + "\n" + string(runes)
}

// PublicationContent is the cached unit for a publication
func PublicationContent(title, abstract string) string {
	return title + "\n" + abstract
}

// Summarize returns a summary of at most MaxWords words
func (s *Service) Summarize(ctx context.Context, content string) (string, error) {
	if s == nil || s.completer == nil {
		return "", ErrDisabled
	}
	return s.cache.GetOrSummarize(ctx, content, s.complete)
}

// SummarizeOrExcerpt never fails: on any summarizer error it returns an
// excerpt of fallbackText and false.
func (s *Service) SummarizeOrExcerpt(ctx context.Context, content, fallbackText string) (string, bool) {
	summary, err := s.Summarize(ctx, content)
	if err != nil {
		if !errors.Is(err, ErrDisabled) {
			s.logger.Warn("ai summary failed, using excerpt", slog.Any("error", err))
		}
		return Excerpt(fallbackText), false
	}
	return summary, true
}

// Excerpt is the non-AI fallback summary
func Excerpt(text string) string {
	return textclean.Excerpt(textclean.StripMarkup(text), fallbackExcerpt)
}

func (s *Service) complete(ctx context.Context, content string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prompt := "Summarize this medical research content in plain language:\n\n" + textclean.Excerpt(content, promptLimit)
	text, err := s.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return "", err
	}

	text = textclean.LimitWords(textclean.StripMarkup(text), MaxWords)
	if text == "" {
		return "", errors.New("empty summary")
	}
	return text, nil
}
