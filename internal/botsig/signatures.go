// Package botsig holds the signature sets used to tell human browser
// traffic from automated clients: browser markers expected in a genuine
// User-Agent, scripted-client signatures, and GPU renderer strings
// characteristic of headless execution environments.
package botsig

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sets holds the raw signature strings organized by category.
type Sets struct {
	// BrowserMarkers are substrings at least one of which a genuine
	// browser User-Agent contains (e.g. "Mozilla").
	BrowserMarkers []string `yaml:"browser_markers"`
	// ScriptedAgents are User-Agent substrings of known scripted HTTP
	// clients and automation frameworks.
	ScriptedAgents []string `yaml:"scripted_agents"`
	// SoftwareRenderers are GPU renderer/vendor substrings indicating
	// CPU-emulated rendering.
	SoftwareRenderers []string `yaml:"software_renderers"`
}

// Signatures holds lowercased signature sets for fast matching.
// Matching is case-insensitive substring containment throughout.
type Signatures struct {
	browserMarkers    []string
	scriptedAgents    []string
	softwareRenderers []string
	raw               Sets
}

// New creates Signatures from raw sets, normalizing for matching.
func New(s Sets) *Signatures {
	return &Signatures{
		browserMarkers:    lowerAll(s.BrowserMarkers),
		scriptedAgents:    lowerAll(s.ScriptedAgents),
		softwareRenderers: lowerAll(s.SoftwareRenderers),
		raw:               s,
	}
}

// NewDefault creates Signatures with the built-in default sets.
func NewDefault() *Signatures {
	return New(DefaultSets)
}

// Load reads signature sets from a YAML file. An empty path or a missing
// file falls back to the defaults. Categories absent from the file keep
// their defaults, so an override file can replace just one set.
func Load(path string) (*Signatures, error) {
	if path == "" {
		return NewDefault(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil
		}
		return nil, err
	}

	s := DefaultSets
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return New(s), nil
}

// IsBrowser reports whether the User-Agent contains any browser marker.
// An empty User-Agent is never a browser.
func (s *Signatures) IsBrowser(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	return containsAny(strings.ToLower(userAgent), s.browserMarkers)
}

// MatchScriptedAgent returns the first scripted-client signature the
// User-Agent matches, or "" if none.
func (s *Signatures) MatchScriptedAgent(userAgent string) string {
	return firstMatch(strings.ToLower(userAgent), s.scriptedAgents)
}

// MatchSoftwareRenderer returns the first software-rasterizer signature
// matched by the GPU renderer or vendor string, or "" if none.
func (s *Signatures) MatchSoftwareRenderer(renderer, vendor string) string {
	probe := strings.ToLower(renderer + " " + vendor)
	return firstMatch(probe, s.softwareRenderers)
}

// Raw returns the raw sets, for serialization and logging.
func (s *Signatures) Raw() Sets {
	return s.raw
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsAny(probe string, sigs []string) bool {
	return firstMatch(probe, sigs) != ""
}

func firstMatch(probe string, sigs []string) string {
	for _, sig := range sigs {
		if strings.Contains(probe, sig) {
			return sig
		}
	}
	return ""
}
