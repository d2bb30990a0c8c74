// Package classify implements the per-request admission classifier.
//
// Classification is a pure function of request metadata plus the immutable
// signature sets and token codec: no shared state, safe for any number of
// concurrent calls.
package classify

import (
	"strings"

	"github.com/partsflow/gatekeeper/internal/botsig"
	"github.com/partsflow/gatekeeper/internal/token"
)

// Verdict is the admission outcome for one request.
type Verdict string

const (
	Allow     Verdict = "allow"
	Challenge Verdict = "challenge"
	Reject    Verdict = "reject"
)

// Reject tags name the heuristic that failed, for audit and metrics.
const (
	TagAgent   = "agent"
	TagReferer = "referer"
	TagToken   = "token"
)

// Request is the metadata the classifier inspects. The caller resolves
// proxy headers before populating it: ForwardedHost is set only when the
// deployment trusts the reverse proxy.
type Request struct {
	Path          string
	UserAgent     string
	Referer       string
	Host          string
	ForwardedHost string
	ClientAddr    string
	Cookie        string // admission cookie value, "" if absent
}

// EffectiveHost is the host used for the Referer-match check: the trusted
// forwarded host when present, the raw request host otherwise.
func (r Request) EffectiveHost() string {
	if r.ForwardedHost != "" {
		return r.ForwardedHost
	}
	return r.Host
}

// Result carries the verdict, the reason rendered to logs and rejected
// clients, and the heuristic tag for rejections.
type Result struct {
	Verdict Verdict
	Reason  string
	Tag     string
}

// Classifier decides Allow/Challenge/Reject per request.
type Classifier struct {
	codec          *token.Codec
	sigs           *botsig.Signatures
	apiPrefix      string
	exemptPaths    []string
	exemptPrefixes []string
	bindToAddr     bool
}

// Config holds classifier policy.
type Config struct {
	// APIPrefix is the API namespace (default "/api/").
	APIPrefix string
	// ExemptPaths are exact paths allowed unconditionally.
	ExemptPaths []string
	// ExemptPrefixes are path prefixes allowed unconditionally.
	ExemptPrefixes []string
	// BindToAddr controls whether tokens verify against the client
	// address or the fixed empty binding.
	BindToAddr bool
}

// New creates a classifier over the given codec and signature sets.
func New(codec *token.Codec, sigs *botsig.Signatures, cfg Config) *Classifier {
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/"
	}
	return &Classifier{
		codec:          codec,
		sigs:           sigs,
		apiPrefix:      cfg.APIPrefix,
		exemptPaths:    cfg.ExemptPaths,
		exemptPrefixes: cfg.ExemptPrefixes,
		bindToAddr:     cfg.BindToAddr,
	}
}

// Classify runs the ordered decision procedure, first match wins:
//
//  1. API paths: browser marker, Referer-contains-host, then token — each
//     failure is a terminal reject (no interactive client on a raw API call).
//  2. Exempt paths: allow unconditionally, so challenge delivery and static
//     assets never recurse into a challenge.
//  3. Page paths: missing or invalid token degrades to a challenge.
func (c *Classifier) Classify(r Request) Result {
	if strings.HasPrefix(r.Path, c.apiPrefix) {
		return c.classifyAPI(r)
	}

	if c.isExempt(r.Path) {
		return Result{Verdict: Allow}
	}

	if !c.verifyCookie(r) {
		return Result{Verdict: Challenge, Reason: "missing or invalid admission token"}
	}
	return Result{Verdict: Allow}
}

func (c *Classifier) classifyAPI(r Request) Result {
	if !c.sigs.IsBrowser(r.UserAgent) {
		return Result{Verdict: Reject, Reason: "forbidden: non-browser agent", Tag: TagAgent}
	}
	if sig := c.sigs.MatchScriptedAgent(r.UserAgent); sig != "" {
		return Result{Verdict: Reject, Reason: "forbidden: automation client signature: " + sig, Tag: TagAgent}
	}

	// Referer must contain the effective host. Heuristic same-origin
	// binding, not a cryptographic guarantee.
	host := r.EffectiveHost()
	if r.Referer == "" || host == "" || !strings.Contains(r.Referer, host) {
		return Result{Verdict: Reject, Reason: "forbidden: referer mismatch", Tag: TagReferer}
	}

	if !c.verifyCookie(r) {
		return Result{Verdict: Reject, Reason: "forbidden: invalid or missing token", Tag: TagToken}
	}
	return Result{Verdict: Allow}
}

func (c *Classifier) verifyCookie(r Request) bool {
	if r.Cookie == "" {
		return false
	}
	return c.codec.Verify(r.Cookie, c.boundAddr(r.ClientAddr))
}

// BoundAddr returns the address tokens are bound to for this client under
// the current binding policy.
func (c *Classifier) BoundAddr(clientAddr string) string {
	return c.boundAddr(clientAddr)
}

func (c *Classifier) boundAddr(clientAddr string) string {
	if c.bindToAddr {
		return clientAddr
	}
	return ""
}

func (c *Classifier) isExempt(path string) bool {
	for _, p := range c.exemptPaths {
		if path == p {
			return true
		}
	}
	for _, p := range c.exemptPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
