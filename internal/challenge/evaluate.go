// Package challenge evaluates client-submitted telemetry and renders a
// pass/fail bot-detection verdict, minting an admission token on pass.
//
// The policy is trust-the-client-unless-proven-bot: an absent or false
// automation flag passes. A client that simply omits its flags bypasses
// detection; that bias comes from the signal source (the browser itself)
// and is accepted, not a bug to fix here.
package challenge

import (
	"github.com/partsflow/gatekeeper/internal/botsig"
	"github.com/partsflow/gatekeeper/internal/token"
)

// Checks toggles individual fingerprint checks. The zero value disables
// everything; DefaultChecks enables all.
type Checks struct {
	AutomationFlag bool
	FrameworkFlag  bool
	SoftwareRender bool
}

// DefaultChecks enables every fingerprint check.
var DefaultChecks = Checks{
	AutomationFlag: true,
	FrameworkFlag:  true,
	SoftwareRender: true,
}

// Result is the evaluator verdict. On pass, Token is a freshly issued
// admission token and Redirect the URL the client should retry.
type Result struct {
	Passed   bool
	Reason   string // set on fail
	Redirect string // set on pass
	Token    string // set on pass
}

// Evaluator consumes telemetry payloads and issues tokens on passing
// verdicts. Stateless and safe for concurrent use.
type Evaluator struct {
	codec  *token.Codec
	sigs   *botsig.Signatures
	checks Checks
}

// NewEvaluator creates an evaluator minting tokens with codec and matching
// GPU fingerprints against sigs.
func NewEvaluator(codec *token.Codec, sigs *botsig.Signatures, checks Checks) *Evaluator {
	return &Evaluator{codec: codec, sigs: sigs, checks: checks}
}

// Evaluate runs the verdict rules in order against an already-parsed
// payload and, on pass, mints a token bound to boundAddr. Rules are
// deterministic; the first failing check is terminal.
func (e *Evaluator) Evaluate(t *Telemetry, boundAddr string) Result {
	if e.checks.AutomationFlag && t.Webdriver != nil && *t.Webdriver {
		return Result{Reason: "automation flag set"}
	}
	if e.checks.FrameworkFlag && t.AutomationFramework != nil && *t.AutomationFramework {
		return Result{Reason: "automation framework signature detected"}
	}
	if e.checks.SoftwareRender && t.GPU != nil {
		if sig := e.sigs.MatchSoftwareRenderer(t.GPU.Renderer, t.GPU.Vendor); sig != "" {
			return Result{Reason: "software rendering fingerprint: " + sig}
		}
	}

	next := t.Next
	if next == "" {
		next = "/"
	}
	return Result{
		Passed:   true,
		Redirect: next,
		Token:    e.codec.Issue(boundAddr),
	}
}
