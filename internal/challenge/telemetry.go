package challenge

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrEmptyBody signals an absent or unparseable telemetry submission.
// Rendered as 400 at the transport layer: protocol misuse, not bot
// detection.
var ErrEmptyBody = errors.New("empty or invalid body")

// GPUInfo is the client-reported GPU fingerprint.
type GPUInfo struct {
	Renderer string `json:"renderer"`
	Vendor   string `json:"vendor"`
}

// Telemetry is the payload a client self-reports to the verification
// endpoint. Pointer booleans distinguish "absent" from "false": an absent
// flag passes by policy.
type Telemetry struct {
	Webdriver           *bool    `json:"webdriver"`
	AutomationFramework *bool    `json:"automation_framework"`
	GPU                 *GPUInfo `json:"gpu"`
	Fonts               []string `json:"fonts"`
	Next                string   `json:"next"`
}

// ParseTelemetry decodes a telemetry payload. Empty input, non-JSON input
// and a JSON null all fail with ErrEmptyBody.
func ParseTelemetry(body []byte) (*Telemetry, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	var t *Telemetry
	if err := json.Unmarshal(body, &t); err != nil || t == nil {
		return nil, ErrEmptyBody
	}
	return t, nil
}
