// Package httpapi serves the read-only observability API over the history
// store. Every endpoint is GET; the evaluation pipeline cannot be influenced
// through this surface.
package httpapi

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/history"
)

// #region server

const (
	serviceName    = "HLV Phase Readiness Middleware"
	serviceVersion = "1.0.0"

	defaultHistoryMax = 100
)

// Server exposes the history store as JSON endpoints.
type Server struct {
	store   *history.Store
	metrics *Metrics
}

// NewServer creates a server over the given store. metrics may be nil, in
// which case /metrics is not registered.
func NewServer(store *history.Store, metrics *Metrics) *Server {
	return &Server{store: store, metrics: metrics}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		jsonError(c, http.StatusMethodNotAllowed, "Only GET requests are allowed")
	})
	r.NoRoute(func(c *gin.Context) {
		jsonError(c, http.StatusNotFound, "Endpoint not found")
	})

	r.GET("/health", s.handleHealth)
	r.GET("/api/readiness", s.handleReadiness)
	r.GET("/api/thermal", s.handleThermal)
	r.GET("/api/history", s.handleHistory)
	r.GET("/api/phase_context", s.handlePhaseContext)
	r.GET("/api/diagnostics", s.handleDiagnostics)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	return r
}

// #endregion server

// #region handlers

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (s *Server) handleReadiness(c *gin.Context) {
	rec := s.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"readiness":       rec.Output.Readiness,
		"gate":            rec.Output.Gate.String(),
		"timestamp_s":     finiteOrNull(rec.Signals.T),
		"flags":           uint32(rec.Output.Flags),
		"stability_score": rec.Output.StabilityScore,
	})
}

func (s *Server) handleThermal(c *gin.Context) {
	rec := s.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"temperature_C":    finiteOrNull(rec.Signals.TempC),
		"ambient_C":        finiteOrNull(rec.Signals.AmbientC),
		"gradient_C_per_s": finiteOrNull(rec.Output.Gradient),
		"trend_C":          finiteOrNull(rec.Output.Trend),
		"timestamp_s":      finiteOrNull(rec.Signals.T),
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	max := defaultHistoryMax
	if raw := c.Query("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			jsonError(c, http.StatusBadRequest, "max must be a positive integer")
			return
		}
		max = n
	}

	records := s.store.History(max)
	samples := make([]gin.H, 0, len(records))
	for _, rec := range records {
		samples = append(samples, gin.H{
			"timestamp_s":      finiteOrNull(rec.Signals.T),
			"readiness":        rec.Output.Readiness,
			"gate":             rec.Output.Gate.String(),
			"temperature_C":    finiteOrNull(rec.Signals.TempC),
			"gradient_C_per_s": finiteOrNull(rec.Output.Gradient),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(samples),
		"samples": samples,
	})
}

func (s *Server) handlePhaseContext(c *gin.Context) {
	rec := s.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"hysteresis_index":     finiteOrNull(rec.Signals.HysteresisIndex),
		"coherence_index":      finiteOrNull(rec.Signals.CoherenceIndex),
		"gradient_persistence": finiteOrNull(rec.Output.Trend),
		"gate":                 rec.Output.Gate.String(),
		"timestamp_s":          finiteOrNull(rec.Signals.T),
	})
}

func (s *Server) handleDiagnostics(c *gin.Context) {
	rec := s.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"flags":           uint32(rec.Output.Flags),
		"flag_meanings":   rec.Output.Flags.Meanings(),
		"readiness":       rec.Output.Readiness,
		"gate":            rec.Output.Gate.String(),
		"stability_score": rec.Output.StabilityScore,
		"timestamp_s":     finiteOrNull(rec.Signals.T),
	})
}

// snapshot returns the current record, or a zero record (gate BLOCK, no
// flags) before the first evaluation.
func (s *Server) snapshot() history.Record {
	rec, ok := s.store.Current()
	if !ok {
		return history.Record{}
	}
	return rec
}

// #endregion handlers

// #region helpers

func jsonError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// finiteOrNull maps non-finite floats to nil so they serialize as JSON null.
func finiteOrNull(x float64) any {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return x
}

// #endregion helpers
