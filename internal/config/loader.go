package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const weightSumTolerance = 1e-9

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if FINSIFT_CONFIG is set
//  3. env (prefix FINSIFT_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("FINSIFT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: FINSIFT_INPUT, FINSIFT_STEPS_PER_DAY, ...
	// Map env keys like FINSIFT_STEPS_PER_DAY -> steps_per_day (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("FINSIFT_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "finsift_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for the inconsistencies that must abort
// a run before any stage executes.
func (c *Config) Validate(_ context.Context) error {
	if c.StepsPerDay <= 0 {
		return fmt.Errorf("%w: steps_per_day must be positive, got %d", ErrInvalidConfig, c.StepsPerDay)
	}
	if c.NightStart < 0 || c.NightEnd > c.StepsPerDay || c.NightStart >= c.NightEnd {
		return fmt.Errorf("%w: night window [%d,%d) must lie within a %d-step day",
			ErrInvalidConfig, c.NightStart, c.NightEnd, c.StepsPerDay)
	}
	if c.RollingWindow < 1 {
		return fmt.Errorf("%w: rolling_window must be at least 1, got %d", ErrInvalidConfig, c.RollingWindow)
	}
	if c.ZScoreThreshold <= 0 {
		return fmt.Errorf("%w: zscore_threshold must be positive, got %g", ErrInvalidConfig, c.ZScoreThreshold)
	}
	if c.VelocityWindow < 1 || c.VelocityMax < 1 {
		return fmt.Errorf("%w: velocity_window and velocity_max must be at least 1", ErrInvalidConfig)
	}
	if c.StructuringThreshold <= 0 {
		return fmt.Errorf("%w: structuring_threshold must be positive, got %g", ErrInvalidConfig, c.StructuringThreshold)
	}
	if c.StructuringTolerance <= 0 || c.StructuringTolerance >= 1 {
		return fmt.Errorf("%w: structuring_tolerance must be in (0,1), got %g", ErrInvalidConfig, c.StructuringTolerance)
	}
	if c.StructuringMinCount < 2 {
		return fmt.Errorf("%w: structuring_min_count must be at least 2, got %d", ErrInvalidConfig, c.StructuringMinCount)
	}
	for reason, w := range c.RuleWeights {
		if w < 0 {
			return fmt.Errorf("%w: rule weight for %q must be non-negative, got %g", ErrInvalidConfig, reason, w)
		}
	}
	if len(c.ScoreWeights) == 0 {
		return fmt.Errorf("%w: score_weights must not be empty", ErrInvalidConfig)
	}
	var sum float64
	for feature, w := range c.ScoreWeights {
		if w < 0 {
			return fmt.Errorf("%w: score weight for %q must be non-negative, got %g", ErrInvalidConfig, feature, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: score weights must sum to 1, got %g", ErrInvalidConfig, sum)
	}
	if !(c.Bands.Medium > 0 && c.Bands.Medium < c.Bands.High &&
		c.Bands.High < c.Bands.Critical && c.Bands.Critical <= 100) {
		return fmt.Errorf("%w: band cuts %g/%g/%g must satisfy 0 < medium < high < critical <= 100",
			ErrInvalidConfig, c.Bands.Medium, c.Bands.High, c.Bands.Critical)
	}
	return nil
}
