// Package verify drives the progressive, rate-limited, multi-source
// search that resolves each extracted citation against the metadata
// providers and scores the candidates.
package verify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matsen/citecheck/internal/citation"
	"github.com/matsen/citecheck/internal/score"
	"github.com/matsen/citecheck/internal/sources"
)

// Two threshold pairs are observed in the wild and neither is clearly
// canonical, so both are named here and overridable via Config. The
// lenient pair accepts weaker matches but consults the secondary source
// aggressively; the strict pair uses one bar for both decisions.
const (
	LenientAcceptThreshold   = 0.4
	LenientFallbackThreshold = 0.8

	StrictAcceptThreshold   = 0.6
	StrictFallbackThreshold = 0.6
)

// Batching and concurrency defaults.
const (
	DefaultBatchSize  = 3
	DefaultBatchDelay = 600 * time.Millisecond

	DefaultPrimaryConcurrency   = 5
	DefaultSecondaryConcurrency = 1
)

// Config tunes a verification session.
type Config struct {
	// AcceptThreshold is the score a best candidate must exceed for the
	// citation to be marked found.
	AcceptThreshold float64

	// FallbackThreshold triggers the secondary source when the primary's
	// best score falls below it.
	FallbackThreshold float64

	BatchSize  int
	BatchDelay time.Duration

	PrimaryConcurrency   int
	SecondaryConcurrency int
}

func (c Config) withDefaults() Config {
	if c.AcceptThreshold <= 0 {
		c.AcceptThreshold = LenientAcceptThreshold
	}
	if c.FallbackThreshold <= 0 {
		c.FallbackThreshold = LenientFallbackThreshold
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = DefaultBatchDelay
	}
	if c.PrimaryConcurrency <= 0 {
		c.PrimaryConcurrency = DefaultPrimaryConcurrency
	}
	if c.SecondaryConcurrency <= 0 {
		c.SecondaryConcurrency = DefaultSecondaryConcurrency
	}
	return c
}

// Event is one streamed verification outcome. Events arrive in
// resolution order, not citation order; consumers re-associate by
// citation id.
type Event struct {
	CitationID string
	Result     citation.SearchResult
}

// Session owns the per-document verification state: the provider tiers,
// their concurrency semaphores, and a generation tag distinguishing this
// document's results from a superseded upload's.
type Session struct {
	cfg        Config
	generation uuid.UUID
	primary    sources.Provider
	secondary  sources.Provider
	tertiary   sources.Provider
	primSem    semaphore
	secSem     semaphore
	logger     *zap.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTertiary installs the optional web-search tier.
func WithTertiary(p sources.Provider) SessionOption {
	return func(s *Session) {
		s.tertiary = p
	}
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession creates a verification session for one document.
func NewSession(cfg Config, primary, secondary sources.Provider, opts ...SessionOption) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		cfg:        cfg,
		generation: uuid.New(),
		primary:    primary,
		secondary:  secondary,
		primSem:    newSemaphore(cfg.PrimaryConcurrency),
		secSem:     newSemaphore(cfg.SecondaryConcurrency),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generation returns the session's generation tag.
func (s *Session) Generation() uuid.UUID { return s.generation }

// Run verifies the citations and streams results as they resolve. The
// channel is closed once every citation has a result. Citations are
// processed in fixed-size batches, all members of a batch concurrently,
// with a fixed delay between batches; the per-source semaphores apply
// across the whole set, independent of batch boundaries.
func (s *Session) Run(ctx context.Context, citations []citation.Citation) <-chan Event {
	events := make(chan Event, len(citations))

	go func() {
		defer close(events)

		for i := 0; i < len(citations); i += s.cfg.BatchSize {
			end := i + s.cfg.BatchSize
			if end > len(citations) {
				end = len(citations)
			}
			batch := citations[i:end]

			var wg sync.WaitGroup
			for _, c := range batch {
				wg.Add(1)
				go func(c citation.Citation) {
					defer wg.Done()
					events <- Event{CitationID: c.ID, Result: s.Resolve(ctx, c)}
				}(c)
			}
			wg.Wait()

			if end < len(citations) {
				select {
				case <-ctx.Done():
					for _, c := range citations[end:] {
						events <- Event{CitationID: c.ID, Result: errorResult(c, "", ctx.Err().Error())}
					}
					return
				case <-time.After(s.cfg.BatchDelay):
				}
			}
		}
	}()

	return events
}

// Collect runs the session to completion and returns one result per
// citation, re-associated by citation id in the input order. Arrival
// order is meaningless and never used.
func (s *Session) Collect(ctx context.Context, citations []citation.Citation) []citation.SearchResult {
	byID := make(map[string]citation.SearchResult, len(citations))
	for ev := range s.Run(ctx, citations) {
		byID[ev.CitationID] = ev.Result
	}

	results := make([]citation.SearchResult, 0, len(citations))
	for _, c := range citations {
		if r, ok := byID[c.ID]; ok {
			results = append(results, r)
		}
	}
	return results
}

// Resolve runs the progressive search for a single citation. Any
// transport fault is converted into an error-state result; it never
// propagates to sibling citations.
func (s *Session) Resolve(ctx context.Context, c citation.Citation) citation.SearchResult {
	query := BuildQuery(c)

	var best *citation.Paper
	var bestScore float64
	var bestBreakdown citation.Breakdown
	var source citation.Source

	// A candidate replaces the incumbent only on a strictly higher
	// score. The primary source is considered first, so on a tie it
	// stays the source of record.
	consider := func(papers []citation.Paper, from citation.Source) {
		for i := range papers {
			p := papers[i]
			sc, br := score.Confidence(c, &p)
			if sc > bestScore {
				best = &p
				bestScore = sc
				bestBreakdown = br
				source = from
			}
		}
	}

	papers, err := s.searchWithLimit(ctx, s.primary, s.primSem, query)
	if err != nil {
		s.logger.Warn("primary search failed",
			zap.String("citation", c.ID), zap.Error(err))
		return errorResult(c, query, "search failed")
	}
	consider(papers, s.primary.Name())

	if bestScore < s.cfg.FallbackThreshold {
		secPapers, err := s.searchWithLimit(ctx, s.secondary, s.secSem, query)
		if err != nil {
			s.logger.Warn("secondary search failed",
				zap.String("citation", c.ID), zap.Error(err))
			return errorResult(c, query, "search failed")
		}
		consider(secPapers, s.secondary.Name())
	}

	if bestScore < s.cfg.AcceptThreshold && s.tertiary != nil {
		terPapers, err := s.tertiary.Search(ctx, query)
		if err == nil {
			consider(terPapers, s.tertiary.Name())
		}
	}

	found := best != nil && bestScore > s.cfg.AcceptThreshold

	result := citation.SearchResult{
		Citation:   c,
		Found:      found,
		Confidence: bestScore,
		Query:      query,
	}
	if best != nil {
		result.Source = source
		result.Paper = best
		result.Breakdown = &bestBreakdown
	}
	s.logger.Debug("citation resolved",
		zap.String("citation", c.ID),
		zap.Float64("confidence", bestScore),
		zap.Bool("found", found),
		zap.String("source", string(result.Source)))
	return result
}

func (s *Session) searchWithLimit(ctx context.Context, p sources.Provider, sem semaphore, query string) ([]citation.Paper, error) {
	if err := sem.acquire(ctx); err != nil {
		return nil, err
	}
	defer sem.release()
	return p.Search(ctx, query)
}

func errorResult(c citation.Citation, query, msg string) citation.SearchResult {
	return citation.SearchResult{
		Citation: c,
		Found:    false,
		Error:    msg,
		Query:    query,
	}
}
