package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"physics-lab/entities/simulation"
	"physics-lab/tools/llm"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderLocal     = "local"
)

// DefaultConfig returns the built-in settings
func DefaultConfig() LabConfig {
	sim := simulation.DefaultConfig()
	return LabConfig{
		Provider:       ProviderAnthropic,
		LocalURL:       llm.DefaultLocalURL,
		MaxTokens:      4096,
		MaxRetries:     1,
		PixelsPerMeter: sim.PixelsPerMeter,
		ViewportWidth:  sim.ViewportWidth,
		ViewportHeight: sim.ViewportHeight,
		Gravity:        sim.Gravity,
		StepRate:       sim.StepRate,
		SyncRate:       sim.SyncRate,
		TimeScale:      1,
		EnableLogging:  true,
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (LabConfig, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return config, nil
}

// applyEnv fills settings that may come from the environment
func (c *LabConfig) applyEnv(getenv func(string) string) {
	if key := getenv("ANTHROPIC_API_KEY"); key != "" {
		c.AnthropicKey = key
	}
}

// validate checks the settings a lab cannot start without. The API key is
// only needed when prompts will be sent.
func (c *LabConfig) validate(prompting bool) error {
	switch c.Provider {
	case ProviderAnthropic:
		if prompting && c.AnthropicKey == "" {
			return fmt.Errorf("Anthropic API key is required (-key, config file or ANTHROPIC_API_KEY env)")
		}
	case ProviderLocal:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.TimeScale < 0 {
		return fmt.Errorf("time scale must not be negative")
	}
	return nil
}

func (c *LabConfig) simulation() simulation.Config {
	return simulation.Config{
		PixelsPerMeter: c.PixelsPerMeter,
		ViewportWidth:  c.ViewportWidth,
		ViewportHeight: c.ViewportHeight,
		Gravity:        c.Gravity,
		StepRate:       c.StepRate,
		SyncRate:       c.SyncRate,
	}
}

// newClient builds the model transport for the configured provider
func newClient(c LabConfig) (llm.Client, error) {
	switch c.Provider {
	case ProviderAnthropic:
		return llm.NewAnthropicClient(c.AnthropicKey, c.Model), nil
	case ProviderLocal:
		return llm.NewLocalClient(c.LocalURL, c.Model), nil
	}
	return nil, fmt.Errorf("unknown provider %q", c.Provider)
}

// LoadScene reads drawings and connections from a YAML file
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}
	var scene Scene
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return nil, fmt.Errorf("failed to parse scene %s: %w", path, err)
	}
	return &scene, nil
}
