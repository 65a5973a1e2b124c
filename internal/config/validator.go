package config

import (
	"fmt"
	"strings"
)

// Validator checks configuration values for likely mistakes. Unlike
// Config.Validate, these checks are advisory: key formats drift and a
// nonstandard key should warn, not block startup.
type Validator struct{}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey checks that a key matches the provider's usual format.
func (v *Validator) ValidateAPIKey(key, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "gemini":
		if !strings.HasPrefix(key, "AIza") {
			return fmt.Errorf("unexpected Gemini API key format (usually starts with AIza)")
		}
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("unexpected Anthropic API key format (usually starts with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("unexpected OpenAI API key format (usually starts with sk-)")
		}
	}

	return nil
}

// ValidateTemperature checks the sampling temperature range.
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", temp)
	}
	return nil
}

// ValidateMaxTokens checks the output token cap.
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("max tokens must be non-negative, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel checks the log level name.
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig runs every advisory check and collects the findings.
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	for i, key := range cfg.Provider.APIKeys {
		if err := v.ValidateAPIKey(key, cfg.Provider.Name); err != nil {
			errors = append(errors, fmt.Errorf("provider.api_keys[%d]: %w", i, err))
		}
	}

	if cfg.Provider.Temperature != 0 {
		if err := v.ValidateTemperature(cfg.Provider.Temperature); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Provider.MaxTokens != 0 {
		if err := v.ValidateMaxTokens(cfg.Provider.MaxTokens); err != nil {
			errors = append(errors, err)
		}
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
