// Package gate wires the classifier, challenge evaluator and token codec
// into the request lifecycle. The middleware is the single admission
// decision point: REJECT and CHALLENGE short-circuit, ALLOW forwards to
// the wrapped handler.
package gate

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/partsflow/gatekeeper/internal/audit"
	"github.com/partsflow/gatekeeper/internal/classify"
	"github.com/partsflow/gatekeeper/internal/metrics"
	"github.com/partsflow/gatekeeper/internal/ratelimit"
)

// ChallengeRenderer serves challenge content addressed at the originally
// requested URL so the client can retry after passing.
type ChallengeRenderer func(w http.ResponseWriter, r *http.Request, nextURL string)

// Options configures the admission gate.
type Options struct {
	Classifier        *classify.Classifier
	CookieName        string
	TokenTTL          time.Duration
	TrustProxyHeaders bool
	ConfigHash        string
	RenderChallenge   ChallengeRenderer

	// Audit, when set, receives every non-allow decision.
	Audit *audit.Log
	// Stats, when set, receives every decision for deployment-wide counters.
	Stats ratelimit.StatsSink
}

// Gate is the orchestrating admission middleware.
type Gate struct {
	opts Options
}

// New creates a Gate. Classifier, CookieName and RenderChallenge are
// required; Audit and Stats are optional.
func New(opts Options) *Gate {
	return &Gate{opts: opts}
}

// Middleware classifies every request before passing it on. Per request
// the state machine is a single step: unchecked, then exactly one of
// allowed (proceed), challenged (challenge content returned) or rejected
// (403 returned).
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creq := g.classifyRequest(r)
		res := g.opts.Classifier.Classify(creq)

		metrics.AdmissionsTotal.WithLabelValues(string(res.Verdict)).Inc()
		g.record(r, creq.ClientAddr, res)

		switch res.Verdict {
		case classify.Reject:
			log.Warn().
				Str("client", creq.ClientAddr).
				Str("path", creq.Path).
				Str("tag", res.Tag).
				Str("userAgent", creq.UserAgent).
				Msg("request rejected")
			writeForbidden(w, res.Reason)

		case classify.Challenge:
			log.Info().
				Str("client", creq.ClientAddr).
				Str("path", creq.Path).
				Msg("serving challenge")
			g.opts.RenderChallenge(w, r, requestURL(r))

		default:
			next.ServeHTTP(w, r)
		}
	})
}

// SetAdmissionCookie delivers a freshly issued token to the client.
// HttpOnly keeps it out of script reach; SameSite=Lax plus the Secure
// flag on HTTPS connections match the transport policy; Max-Age enforces
// the TTL (the token itself carries no expiry).
func (g *Gate) SetAdmissionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.opts.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.opts.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   requestIsHTTPS(r, g.opts.TrustProxyHeaders),
	})
}

// BoundAddr returns the token binding address for this request under the
// configured binding policy.
func (g *Gate) BoundAddr(r *http.Request) string {
	return g.opts.Classifier.BoundAddr(ClientAddr(r, g.opts.TrustProxyHeaders))
}

// ClientKey returns the address used for rate limiting and audit.
func (g *Gate) ClientKey(r *http.Request) string {
	return ClientAddr(r, g.opts.TrustProxyHeaders)
}

func (g *Gate) classifyRequest(r *http.Request) classify.Request {
	creq := classify.Request{
		Path:       r.URL.Path,
		UserAgent:  r.Header.Get("User-Agent"),
		Referer:    r.Header.Get("Referer"),
		Host:       r.Host,
		ClientAddr: ClientAddr(r, g.opts.TrustProxyHeaders),
	}
	if g.opts.TrustProxyHeaders {
		creq.ForwardedHost = r.Header.Get("X-Forwarded-Host")
	}
	if c, err := r.Cookie(g.opts.CookieName); err == nil {
		creq.Cookie = c.Value
	}
	return creq
}

func (g *Gate) record(r *http.Request, client string, res classify.Result) {
	if g.opts.Audit != nil && res.Verdict != classify.Allow {
		if err := g.opts.Audit.Record(audit.Entry{
			Client:     client,
			Method:     r.Method,
			Path:       r.URL.Path,
			Decision:   string(res.Verdict),
			Reason:     res.Reason,
			Tag:        res.Tag,
			ConfigHash: g.opts.ConfigHash,
		}); err != nil {
			log.Error().Err(err).Msg("audit record failed")
		}
	}

	if g.opts.Stats != nil {
		// Best effort; a stats outage must not affect admission.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := g.opts.Stats.Record(ctx, ratelimit.StatsEvent{
			Key:      client,
			Allowed:  res.Verdict == classify.Allow,
			Decision: string(res.Verdict),
			Path:     r.URL.Path,
		}); err != nil {
			log.Debug().Err(err).Msg("stats record failed")
		}
	}
}

// requestURL reconstructs the originally requested URL path+query for the
// challenge retry target.
func requestURL(r *http.Request) string {
	u := r.URL.Path
	if r.URL.RawQuery != "" {
		u += "?" + r.URL.RawQuery
	}
	return u
}

func writeForbidden(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"error": reason})
}
