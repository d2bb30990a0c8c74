package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/partsflow/gatekeeper/internal/audit"
	"github.com/partsflow/gatekeeper/internal/catalog"
	"github.com/partsflow/gatekeeper/internal/challenge"
	"github.com/partsflow/gatekeeper/internal/metrics"
)

// maxTelemetryBody caps the verification payload size.
const maxTelemetryBody = 64 << 10

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.renderTemplate(w, "index.html", nil)
}

func (s *Server) handleProductPage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/product/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	s.renderTemplate(w, "product.html", nil)
}

// renderChallenge serves the interstitial that gathers telemetry and posts
// it back. Delivered with 200 so proxies and browsers treat it as a page,
// not an error.
func (s *Server) renderChallenge(w http.ResponseWriter, r *http.Request, nextURL string) {
	s.renderTemplate(w, "challenge.html", map[string]string{"NextURL": nextURL})
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("render failed")
	}
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", catalog.DefaultLimit)

	result, err := s.store.List(r.Context(), page, limit)
	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues("list", "error").Inc()
		log.Error().Err(err).Msg("catalog list failed")
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	metrics.CatalogRequestsTotal.WithLabelValues("list", "ok").Inc()
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if id == "" || strings.Contains(id, "/") {
		metrics.CatalogRequestsTotal.WithLabelValues("get", "not_found").Inc()
		writeJSONError(w, http.StatusNotFound, "product not found")
		return
	}

	product, err := s.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		metrics.CatalogRequestsTotal.WithLabelValues("get", "not_found").Inc()
		writeJSONError(w, http.StatusNotFound, "product not found")
		return
	case err != nil:
		metrics.CatalogRequestsTotal.WithLabelValues("get", "error").Inc()
		log.Error().Err(err).Str("id", id).Msg("catalog get failed")
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	metrics.CatalogRequestsTotal.WithLabelValues("get", "ok").Inc()
	writeJSON(w, http.StatusOK, product)
}

// handleVerifyChallenge is the one write path in the system. Order is
// fixed: rate limit, then parse, then evaluate. A malformed body is
// protocol misuse (400), a failing verdict is a detection (403).
func (s *Server) handleVerifyChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	g := s.currentGate()
	client := g.ClientKey(r)

	if d := s.limiter.Check(client); !d.Allowed {
		metrics.ChallengeVerdictsTotal.WithLabelValues("rate_limited").Inc()
		s.recordChallenge(r, client, "rate_limited", "submission rate exceeded")
		w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())))
		writeJSONError(w, http.StatusTooManyRequests, "too many verification attempts")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTelemetryBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request")
		return
	}

	telemetry, err := challenge.ParseTelemetry(body)
	if err != nil {
		metrics.ChallengeVerdictsTotal.WithLabelValues("malformed").Inc()
		writeJSONError(w, http.StatusBadRequest, "empty or invalid body")
		return
	}

	res := s.currentEvaluator().Evaluate(telemetry, g.BoundAddr(r))
	if !res.Passed {
		metrics.ChallengeVerdictsTotal.WithLabelValues("fail").Inc()
		s.recordChallenge(r, client, "challenge_failed", res.Reason)
		log.Warn().Str("client", client).Str("reason", res.Reason).Msg("challenge failed")
		writeJSONError(w, http.StatusForbidden, res.Reason)
		return
	}

	metrics.ChallengeVerdictsTotal.WithLabelValues("pass").Inc()
	g.SetAdmissionCookie(w, r, res.Token)
	log.Info().Str("client", client).Str("redirect", res.Redirect).Msg("challenge passed")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "success",
		"redirect": res.Redirect,
	})
}

func (s *Server) recordChallenge(r *http.Request, client, decision, reason string) {
	if s.auditLog == nil {
		return
	}
	if err := s.auditLog.Record(audit.Entry{
		Client:     client,
		Method:     r.Method,
		Path:       r.URL.Path,
		Decision:   decision,
		Reason:     reason,
		ConfigHash: s.configHash,
	}); err != nil {
		log.Error().Err(err).Msg("audit record failed")
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
