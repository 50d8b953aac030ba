package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"subscreen/internal/language"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Sampling controls how frames are pulled out of candidate videos.
type Sampling struct {
	IntervalSeconds float64 `toml:"interval_seconds"`
	MaxFrames       int     `toml:"max_frames"`
	TargetHeight    int     `toml:"target_height"`
	ProbeTimeout    int     `toml:"probe_timeout"`
	ExtractTimeout  int     `toml:"extract_timeout"`
}

// Detection configures the ROI cascade and its OCR backends.
type Detection struct {
	Language string `toml:"language"`
	// AcceptThreshold is the per-call confidence at which the cascade stops
	// trying further regions.
	AcceptThreshold float64 `toml:"accept_threshold"`
	// FrameTimeout bounds OCR work for a single frame, in seconds.
	FrameTimeout int `toml:"frame_timeout"`
	// EdgeBackendEnabled turns on the secondary luminance-edge detector.
	EdgeBackendEnabled bool `toml:"edge_backend_enabled"`
	// FrameHashDistance is the maximum dHash distance at which a sampled
	// frame is considered a duplicate of its predecessor and skips OCR.
	// Values below zero disable frame dedup.
	FrameHashDistance int `toml:"frame_hash_distance"`
}

// Ensemble configures weighted voting across detection backends.
type Ensemble struct {
	// Weights maps backend name to relative weight. Weights are normalized
	// at construction so they do not need to sum to one in the file.
	Weights map[string]float64 `toml:"weights"`
	// DominanceThreshold is the normalized weight above which a single
	// dissenting backend suppresses the conflict flag.
	DominanceThreshold float64 `toml:"dominance_threshold"`
}

// Policy configures confidence scoring and decision thresholds.
type Policy struct {
	LowThreshold  float64 `toml:"low_threshold"`
	HighThreshold float64 `toml:"high_threshold"`

	PersistenceWeight float64 `toml:"persistence_weight"`
	StabilityWeight   float64 `toml:"stability_weight"`
	RunWeight         float64 `toml:"run_weight"`
	ConfidenceWeight  float64 `toml:"confidence_weight"`

	// CautionEscalationThreshold rejects a video after this many CAUTION
	// verdicts have been journaled for the same id. Zero disables escalation.
	CautionEscalationThreshold int `toml:"caution_escalation_threshold"`
}

// Denylist configures the rejection store backends.
type Denylist struct {
	// Path is the JSON document used by the file-backed store.
	Path string `toml:"path"`
	// RedisURL selects the networked backend when set (redis:// URL).
	RedisURL string `toml:"redis_url"`
	// TTLHours is the entry time-to-live. Entries past it are logically absent.
	TTLHours int `toml:"ttl_hours"`
	// PingTimeout bounds the construction-time liveness probe, in seconds.
	PingTimeout int `toml:"ping_timeout"`
}

// Intake configures candidate dedup and overfetch.
type Intake struct {
	// OverfetchFactor scales a requested candidate count to compensate for
	// the expected rejection rate.
	OverfetchFactor float64 `toml:"overfetch_factor"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for subscreen.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Sampling  Sampling  `toml:"sampling"`
	Detection Detection `toml:"detection"`
	Ensemble  Ensemble  `toml:"ensemble"`
	Policy    Policy    `toml:"policy"`
	Denylist  Denylist  `toml:"denylist"`
	Intake    Intake    `toml:"intake"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subscreen/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The bool reports
// whether a config file existed; defaults are used when it did not.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subscreen.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if path := strings.TrimSpace(c.Denylist.Path); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create denylist directory: %w", err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for frame extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Denylist.Path, err = expandPath(c.Denylist.Path); err != nil {
		return err
	}
	c.Denylist.RedisURL = strings.TrimSpace(c.Denylist.RedisURL)
	// Accept "en" or "english" in config; tesseract wants "eng".
	c.Detection.Language = language.ToISO3(c.Detection.Language)
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
