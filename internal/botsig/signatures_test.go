package botsig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsBrowser(t *testing.T) {
	s := NewDefault()
	tests := []struct {
		name string
		ua   string
		want bool
	}{
		{"chrome", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0", true},
		{"firefox", "Mozilla/5.0 (Windows NT 10.0; rv:120.0) Gecko/20100101 Firefox/120.0", true},
		{"case insensitive", "mozilla/5.0", true},
		{"python requests", "python-requests/2.31.0", false},
		{"curl", "curl/8.4.0", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.IsBrowser(tt.ua); got != tt.want {
				t.Errorf("IsBrowser(%q) = %v, want %v", tt.ua, got, tt.want)
			}
		})
	}
}

func TestMatchScriptedAgent(t *testing.T) {
	s := NewDefault()
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"headless chrome carries mozilla marker", "Mozilla/5.0 HeadlessChrome/120.0", "headlesschrome"},
		{"phantomjs", "Mozilla/5.0 PhantomJS/2.1.1", "phantomjs"},
		{"requests", "python-requests/2.31.0", "python-requests"},
		{"real chrome", "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0 Safari/537.36", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.MatchScriptedAgent(tt.ua); got != tt.want {
				t.Errorf("MatchScriptedAgent(%q) = %q, want %q", tt.ua, got, tt.want)
			}
		})
	}
}

func TestMatchSoftwareRenderer(t *testing.T) {
	s := NewDefault()
	tests := []struct {
		name     string
		renderer string
		vendor   string
		want     string
	}{
		{"swiftshader renderer", "Google SwiftShader", "Google Inc.", "swiftshader"},
		{"llvmpipe vendor", "ANGLE", "llvmpipe (LLVM 15.0)", "llvmpipe"},
		{"real gpu", "NVIDIA GeForce RTX 3060", "NVIDIA Corporation", ""},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.MatchSoftwareRenderer(tt.renderer, tt.vendor); got != tt.want {
				t.Errorf("MatchSoftwareRenderer(%q, %q) = %q, want %q", tt.renderer, tt.vendor, got, tt.want)
			}
		})
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.IsBrowser("Mozilla/5.0") {
		t.Error("expected default browser markers after fallback")
	}
}

func TestLoadPartialOverrideKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sigs.yaml")
	data := "scripted_agents:\n  - mybot\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.MatchScriptedAgent("MyBot/1.0") != "mybot" {
		t.Error("expected override signature to match")
	}
	if s.MatchScriptedAgent("python-requests/2.31.0") != "" {
		t.Error("expected default scripted agents to be replaced by override")
	}
	if s.MatchSoftwareRenderer("Google SwiftShader", "") != "swiftshader" {
		t.Error("expected untouched category to keep defaults")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
