// Package api serves a revealed collection over HTTP so marketplaces and
// holders can look up the beacon type of a token.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lox/beaconmixer/beacon"
	"github.com/lox/beaconmixer/internal/record"
)

// Server answers lookups against one stage record.
type Server struct {
	rec    *record.Record
	tokens beacon.Tokens
	logger *log.Logger
	router *chi.Mux
}

// Summary is the body of GET /summary.
type Summary struct {
	Stage       string         `json:"stage,omitempty"`
	Datetime    string         `json:"datetime"`
	BlockHash   string         `json:"blockHash"`
	BlockNumber uint64         `json:"blockNumber"`
	Totals      map[string]int `json:"totals"`
}

// NewServer checks rec and builds the routes.
func NewServer(rec *record.Record, logger *log.Logger) (*Server, error) {
	tokens, err := rec.Check()
	if err != nil {
		return nil, err
	}

	s := &Server{
		rec:    rec,
		tokens: tokens,
		logger: logger.WithPrefix("api"),
		router: chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/summary", s.handleSummary)
	s.router.Get("/tokens/{id}", s.handleToken)
	s.router.Get("/beacons/{tier}", s.handleTier)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	counts := s.tokens.Counts()
	totals := make(map[string]int)
	for tier, n := range counts {
		if n > 0 {
			totals[beacon.Tier(tier).String()] = n
		}
	}

	writeJSON(w, http.StatusOK, Summary{
		Stage:       s.rec.Stage,
		Datetime:    s.rec.Datetime,
		BlockHash:   s.rec.BlockHash,
		BlockNumber: s.rec.BlockNumber,
		Totals:      totals,
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "token id must be an integer")
		return
	}
	if id < 1 || id > len(s.tokens) {
		writeError(w, http.StatusNotFound, "no such token")
		return
	}
	writeJSON(w, http.StatusOK, record.Entry{TokenID: id, Beacon: s.tokens[id-1]})
}

func (s *Server) handleTier(w http.ResponseWriter, r *http.Request) {
	tier, err := beacon.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	ids := make([]int, 0, s.tokens.Count(tier))
	for i, v := range s.tokens {
		if v == tier {
			ids = append(ids, i+1)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"beacon":   tier,
		"tokenIds": ids,
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
