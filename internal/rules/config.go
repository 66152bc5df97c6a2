// go-breakout/internal/rules/config.go
package rules

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidConfig = errors.New("invalid strategy config")

// StrategyConfig is the immutable parameter set for one engine.
//
// FirstCandleTime is informational: the engine never looks at wall-clock
// time, the caller decides which candle is the day's first.
type StrategyConfig struct {
	GapTolerance    float64 `json:"gap_tolerance" yaml:"gap_tolerance" mapstructure:"gap_tolerance" validate:"gt=0"`
	UpperMultiplier float64 `json:"upper_multiplier" yaml:"upper_multiplier" mapstructure:"upper_multiplier" validate:"gt=1"`
	LowerMultiplier float64 `json:"lower_multiplier" yaml:"lower_multiplier" mapstructure:"lower_multiplier" validate:"gt=0,lt=1"`
	TargetPoints    float64 `json:"target_points" yaml:"target_points" mapstructure:"target_points" validate:"gt=0"`
	FirstCandleTime string  `json:"first_candle_time,omitempty" yaml:"first_candle_time,omitempty" mapstructure:"first_candle_time" validate:"omitempty,datetime=15:04"`
}

func DefaultConfig() StrategyConfig {
	return StrategyConfig{
		GapTolerance:    150,
		UpperMultiplier: 1.0009,
		LowerMultiplier: 0.9991,
		TargetPoints:    20,
		FirstCandleTime: "09:15",
	}
}

// ConfigError carries every problem found in a config.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateConfig lists every problem with cfg; nil means valid.
func ValidateConfig(cfg StrategyConfig) []string {
	var problems []string
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []string{err.Error()}
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}
	if cfg.UpperMultiplier <= cfg.LowerMultiplier {
		problems = append(problems, fmt.Sprintf("upper_multiplier (%v) must exceed lower_multiplier (%v)",
			cfg.UpperMultiplier, cfg.LowerMultiplier))
	}
	return problems
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("%s must be less than %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "datetime":
		return fmt.Sprintf("%s must be a HH:MM time, got %q", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q check", fe.Field(), fe.Tag())
	}
}
