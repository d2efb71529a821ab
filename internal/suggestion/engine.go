package suggestion

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"kasirpos/internal/cache"
	"kasirpos/internal/domain"
	"kasirpos/internal/metrics"
)

var ErrNoSuggestion = errors.New("no suggestion")

// Provider turns cart contents into a short free-text hint.
type Provider interface {
	Suggest(ctx context.Context, lines []domain.CartLine) (string, error)
}

type Engine struct {
	provider Provider
	cache    cache.SuggestionCache
	cacheTTL time.Duration
	timeout  time.Duration
	log      logrus.FieldLogger
}

func NewEngine(provider Provider, cacheStore cache.SuggestionCache, cacheTTL time.Duration, timeout time.Duration, log logrus.FieldLogger) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopSuggestionCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Engine{
		provider: provider,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		timeout:  timeout,
		log:      log.WithField("module", "suggestion"),
	}
}

// Suggest never fails: any provider or cache problem yields "".
func (e *Engine) Suggest(ctx context.Context, lines []domain.CartLine) string {
	if len(lines) == 0 || e.provider == nil {
		return ""
	}

	key := cacheKey(lines)
	if cached, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		metrics.Suggestions.WithLabelValues("hit").Inc()
		return cached
	} else if err != nil {
		e.log.WithError(err).Warn("suggestion cache read failed")
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.provider.Suggest(callCtx, lines)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		if ctx.Err() == nil {
			metrics.Suggestions.WithLabelValues("error").Inc()
			e.log.WithError(err).WithField("items", len(lines)).Warn("suggestion unavailable")
		}
		return ""
	}

	metrics.Suggestions.WithLabelValues("ok").Inc()
	if err := e.cache.Set(ctx, key, text, e.cacheTTL); err != nil {
		e.log.WithError(err).Warn("suggestion cache write failed")
	}
	return text
}

func cacheKey(lines []domain.CartLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%s:%d", line.ID, line.Quantity))
	}
	sort.Strings(parts)

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}
