package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants that cannot be repaired by
// normalization. It reports every violation it finds, joined into one error.
func (c *Config) Validate() error {
	var problems []string

	if c.Sampling.IntervalSeconds <= 0 {
		problems = append(problems, "sampling.interval_seconds must be positive")
	}
	if c.Sampling.MaxFrames < 1 {
		problems = append(problems, "sampling.max_frames must be at least 1")
	}
	if c.Sampling.TargetHeight < 1 {
		problems = append(problems, "sampling.target_height must be at least 1")
	}
	if c.Sampling.ProbeTimeout < 1 || c.Sampling.ExtractTimeout < 1 {
		problems = append(problems, "sampling timeouts must be at least 1 second")
	}

	if c.Detection.AcceptThreshold < 0 || c.Detection.AcceptThreshold > 1 {
		problems = append(problems, "detection.accept_threshold must be within [0,1]")
	}
	if c.Detection.FrameTimeout < 1 {
		problems = append(problems, "detection.frame_timeout must be at least 1 second")
	}
	if strings.TrimSpace(c.Detection.Language) == "" {
		problems = append(problems, "detection.language must not be empty")
	}

	if c.Ensemble.DominanceThreshold <= 0 || c.Ensemble.DominanceThreshold > 1 {
		problems = append(problems, "ensemble.dominance_threshold must be within (0,1]")
	}
	for name, weight := range c.Ensemble.Weights {
		if weight < 0 {
			problems = append(problems, fmt.Sprintf("ensemble.weights.%s must not be negative", name))
		}
	}

	if c.Policy.LowThreshold < 0 || c.Policy.LowThreshold > 1 {
		problems = append(problems, "policy.low_threshold must be within [0,1]")
	}
	if c.Policy.HighThreshold < 0 || c.Policy.HighThreshold > 1 {
		problems = append(problems, "policy.high_threshold must be within [0,1]")
	}
	if c.Policy.LowThreshold >= c.Policy.HighThreshold {
		problems = append(problems, "policy.low_threshold must be below policy.high_threshold")
	}
	for name, weight := range map[string]float64{
		"persistence_weight": c.Policy.PersistenceWeight,
		"stability_weight":   c.Policy.StabilityWeight,
		"run_weight":         c.Policy.RunWeight,
		"confidence_weight":  c.Policy.ConfidenceWeight,
	} {
		if weight < 0 {
			problems = append(problems, fmt.Sprintf("policy.%s must not be negative", name))
		}
	}
	if c.Policy.CautionEscalationThreshold < 0 {
		problems = append(problems, "policy.caution_escalation_threshold must not be negative")
	}

	if strings.TrimSpace(c.Denylist.Path) == "" && strings.TrimSpace(c.Denylist.RedisURL) == "" {
		problems = append(problems, "denylist requires a file path, a redis_url, or both")
	}
	if c.Denylist.TTLHours < 0 {
		problems = append(problems, "denylist.ttl_hours must not be negative")
	}
	if c.Denylist.PingTimeout < 1 {
		problems = append(problems, "denylist.ping_timeout must be at least 1 second")
	}

	if c.Intake.OverfetchFactor < 1 {
		problems = append(problems, "intake.overfetch_factor must be at least 1.0")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
