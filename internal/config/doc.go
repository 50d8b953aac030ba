// Package config loads, validates, and defaults the subscreen configuration.
//
// Configuration lives in a single TOML file (default
// ~/.config/subscreen/config.toml). Every tunable knob of the detection
// pipeline — sampling cadence, cascade acceptance threshold, ensemble
// weights, policy thresholds, denylist TTL — is declared here exactly once;
// no component hard-codes a second copy.
package config
