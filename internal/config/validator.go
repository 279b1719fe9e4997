package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// ConfigValidator validates configuration values.
type ConfigValidator interface {
	Validate(cfg *Config) error
}

// validatorImpl implements ConfigValidator using go-playground/validator.
type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a new ConfigValidator instance.
func NewValidator() ConfigValidator {
	return &validatorImpl{
		validate: validator.New(),
	}
}

// Validate validates the configuration and returns detailed error messages.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "configuration is nil")
	}

	if err := v.validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return types.WrapError(types.CONFIG_VALIDATION_FAILED, "validation error", err)
		}

		var errorMessages []string
		for _, e := range validationErrs {
			errorMessages = append(errorMessages, formatValidationError(e))
		}

		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			"configuration validation failed:\n  - "+strings.Join(errorMessages, "\n  - "))
	}

	// Both ports of a pair advance in lockstep, so the bases must not
	// collide anywhere inside the search window.
	if cfg.Ports.HTTPBase == cfg.Ports.BoltBase {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			"configuration validation failed:\n  - ports.http_base and ports.bolt_base must differ")
	}
	diff := cfg.Ports.BoltBase - cfg.Ports.HTTPBase
	if diff < 0 {
		diff = -diff
	}
	if diff < cfg.Ports.MaxAttempts {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, fmt.Sprintf(
			"configuration validation failed:\n  - ports.http_base and ports.bolt_base windows overlap (distance %d < max_attempts %d)",
			diff, cfg.Ports.MaxAttempts))
	}

	for i, interval := range cfg.Readiness.Intervals {
		if interval <= 0 {
			return types.NewError(types.CONFIG_VALIDATION_FAILED, fmt.Sprintf(
				"configuration validation failed:\n  - readiness.intervals[%d] must be positive", i))
		}
	}

	return nil
}

// formatValidationError formats a single validation error with field path and details.
func formatValidationError(e validator.FieldError) string {
	fieldPath := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldPath)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", fieldPath, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation '%s' (got: %v)", fieldPath, e.Tag(), e.Value())
	}
}

// formatFieldPath converts validator namespace to a readable field path.
// Example: "Config.Ports.MaxAttempts" -> "ports.max_attempts"
func formatFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) <= 1 {
		return namespace
	}

	result := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		result = append(result, camelToSnake(parts[i]))
	}

	return strings.Join(result, ".")
}

// camelToSnake converts CamelCase to snake_case.
func camelToSnake(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
