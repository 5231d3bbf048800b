// Package server exposes the extraction and verification pipeline over
// HTTP: a streaming batch-search endpoint, a proxy for the structuring
// oracle, and a PDF upload endpoint.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/matsen/citecheck/internal/cache"
	"github.com/matsen/citecheck/internal/citation"
	"github.com/matsen/citecheck/internal/config"
	"github.com/matsen/citecheck/internal/enrich"
	"github.com/matsen/citecheck/internal/pdftext"
	"github.com/matsen/citecheck/internal/pipeline"
	"github.com/matsen/citecheck/internal/sources"
	"github.com/matsen/citecheck/internal/verify"
)

// maxSearchBatch bounds one search request.
const maxSearchBatch = enrich.MaxBatchSize

// Server wires the pipeline components behind a gin engine.
type Server struct {
	engine    *gin.Engine
	logger    *zap.Logger
	cfg       *config.Config
	primary   sources.Provider
	fallback  sources.Provider
	tertiary  *sources.WebSearch
	enricher  *enrich.Client
	uploads   *verify.UploadTracker
	results   *verify.ResultSet
	respCache *cache.Cache
}

// New builds a server from configuration.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		logger:   logger,
		cfg:      cfg,
		enricher: enrich.NewClient(cfg.GrobidBaseURL),
		uploads:  &verify.UploadTracker{},
		results:  verify.NewResultSet(),
	}

	var primary sources.Provider = sources.NewCrossref(
		sources.WithCrossrefBaseURL(cfg.CrossrefBaseURL),
		sources.WithCrossrefMailto(cfg.ContactEmail),
	)
	var fallback sources.Provider = sources.NewOpenAlex(
		sources.WithOpenAlexBaseURL(cfg.OpenAlexBaseURL),
		sources.WithOpenAlexMailto(cfg.ContactEmail),
	)

	if cfg.CachePath != "" {
		c, err := cache.Open(cfg.CachePath)
		if err != nil {
			return nil, err
		}
		s.respCache = c
		primary = cache.Wrap(primary, c)
		fallback = cache.Wrap(fallback, c)
	}
	s.primary = primary
	s.fallback = fallback
	s.tertiary = sources.NewWebSearch(cfg.GoogleAPIKey, cfg.GoogleSearchEngineID)

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger())

	api := s.engine.Group("/api")
	api.POST("/search", s.handleSearch)
	api.POST("/grobid", s.handleGrobid)
	api.POST("/extract", s.handleExtract)

	return s, nil
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	defer s.Close()
	return s.engine.Run(addr)
}

// Close releases held resources.
func (s *Server) Close() error {
	if s.respCache != nil {
		return s.respCache.Close()
	}
	return nil
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()))
	}
}

func (s *Server) newSession() *verify.Session {
	cfg := verify.Config{
		AcceptThreshold:      s.cfg.AcceptThreshold,
		FallbackThreshold:    s.cfg.FallbackThreshold,
		BatchSize:            s.cfg.BatchSize,
		BatchDelay:           s.cfg.BatchDelay(),
		PrimaryConcurrency:   s.cfg.CrossrefConcurrency,
		SecondaryConcurrency: s.cfg.OpenAlexConcurrency,
	}
	opts := []verify.SessionOption{verify.WithLogger(s.logger)}
	if s.tertiary.Enabled() {
		opts = append(opts, verify.WithTertiary(s.tertiary))
	}
	return verify.NewSession(cfg, s.primary, s.fallback, opts...)
}

// progressRecord is one NDJSON line of the streaming search response.
type progressRecord struct {
	Type      string                 `json:"type"`
	Progress  int                    `json:"progress"`
	Completed int                    `json:"completed"`
	Total     int                    `json:"total"`
	Result    *citation.SearchResult `json:"result,omitempty"`
}

type completeRecord struct {
	Type    string                  `json:"type"`
	Results []citation.SearchResult `json:"results"`
}

// handleSearch verifies a batch of citations, streaming per-citation
// progress as newline-delimited JSON over a chunked plain-text response,
// terminated by a single complete record.
func (s *Server) handleSearch(c *gin.Context) {
	var body struct {
		Citations []citation.Citation `json:"citations"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Citations == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "citations array is required"})
		return
	}
	if len(body.Citations) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "citations array is empty"})
		return
	}
	if len(body.Citations) > maxSearchBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch too large"})
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)

	session := s.newSession()
	gen := s.results.Generation()
	total := len(body.Citations)
	completed := 0
	results := make([]citation.SearchResult, 0, total)

	for ev := range session.Run(c.Request.Context(), body.Citations) {
		completed++
		result := ev.Result
		results = append(results, result)
		s.results.Put(gen, ev.CitationID, result)

		writeNDJSON(c, progressRecord{
			Type:      "progress",
			Progress:  progressPercent(completed, total),
			Completed: completed,
			Total:     total,
			Result:    &result,
		})
	}

	writeNDJSON(c, completeRecord{Type: "complete", Results: results})
}

// progressPercent rounds completed/total to the nearest whole percent.
func progressPercent(completed, total int) int {
	return (completed*100 + total/2) / total
}

func writeNDJSON(c *gin.Context, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Writer.Write(append(data, '\n'))
	c.Writer.Flush()
}

// handleGrobid proxies a raw-string batch to the structuring oracle.
func (s *Server) handleGrobid(c *gin.Context) {
	var body struct {
		Citations []string `json:"citations"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Citations == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	if len(body.Citations) == 0 || len(body.Citations) > enrich.MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	results, err := s.enricher.StructureBatch(c.Request.Context(), body.Citations)
	if err != nil {
		s.logger.Error("structuring batch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// handleExtract accepts a multipart PDF upload and returns its extracted
// citations. A re-upload matching the previous file's name and size is
// rejected before parsing to avoid redundant external API load.
func (s *Server) handleExtract(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	if err := s.uploads.Check(fileHeader.Filename, fileHeader.Size); err != nil {
		c.JSON(http.StatusConflict, gin.H{"warning": err.Error()})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}

	opts := pdftext.Options{
		Mode:               pdftext.ColumnMode(s.cfg.ColumnMode),
		MinColumnFragments: s.cfg.MinColumnFragments,
		MinColumnShare:     s.cfg.MinColumnShare,
	}

	citations, style, err := pipeline.ExtractReader(bytes.NewReader(data), int64(len(data)), opts)
	switch {
	case errors.Is(err, pipeline.ErrNoCitations):
		c.JSON(http.StatusOK, gin.H{"citations": []citation.Citation{}, "style": style,
			"warning": "no citations found: bibliography absent or unrecognized format"})
		return
	case errors.Is(err, pdftext.ErrNoTextLayer):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no extractable text layer in PDF"})
		return
	case err != nil:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not parse PDF"})
		return
	}

	// New document: all in-flight handlers for the previous one go stale.
	s.results.Reset()

	c.JSON(http.StatusOK, gin.H{"citations": citations, "style": style})
}
