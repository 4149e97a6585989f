package main

import (
	"fmt"

	"physics-lab/tools/sketch"
)

// LabConfig holds configuration for the lab.
type LabConfig struct {
	Provider       string  `yaml:"provider"` // "anthropic" or "local"
	AnthropicKey   string  `yaml:"anthropicKey"`
	Model          string  `yaml:"model"`
	LocalURL       string  `yaml:"localURL"`
	MaxTokens      int     `yaml:"maxTokens"`
	MaxRetries     int     `yaml:"maxRetries"`
	PixelsPerMeter float64 `yaml:"pixelsPerMeter"`
	ViewportWidth  float64 `yaml:"viewportWidth"`
	ViewportHeight float64 `yaml:"viewportHeight"`
	Gravity        float64 `yaml:"gravity"`
	StepRate       float64 `yaml:"stepRate"`
	SyncRate       float64 `yaml:"syncRate"`
	TimeScale      float64 `yaml:"timeScale"`
	EnableLogging  bool    `yaml:"enableLogging"`
	VerboseLogging bool    `yaml:"verbose"`
}

// Scene is a saved drawing session loaded from a file.
type Scene struct {
	Drawings    []sketch.Drawing    `yaml:"drawings"`
	Connections []sketch.Connection `yaml:"connections"`
}

// ActionOutcome is how one requested action went.
type ActionOutcome struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Message string `json:"message"`
}

// PromptResult is the outcome of one request cycle.
type PromptResult struct {
	RequestID   string          `json:"requestId"`
	Explanation string          `json:"explanation"`
	Actions     []ActionOutcome `json:"actions"`
}

// Counts tallies the outcomes.
func (r *PromptResult) Counts() (succeeded, failed, skipped int) {
	for _, a := range r.Actions {
		switch {
		case a.Skipped:
			skipped++
		case a.Success:
			succeeded++
		default:
			failed++
		}
	}
	return succeeded, failed, skipped
}

// Status is the short user-facing summary of the cycle.
func (r *PromptResult) Status() string {
	if len(r.Actions) == 0 {
		return "Done, no actions requested"
	}
	ok, failed, skipped := r.Counts()
	s := fmt.Sprintf("Done, %d of %d actions succeeded", ok, len(r.Actions))
	if failed > 0 {
		s += fmt.Sprintf(", %d failed", failed)
	}
	if skipped > 0 {
		s += fmt.Sprintf(", %d skipped", skipped)
	}
	return s
}
