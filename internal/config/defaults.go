package config

const (
	defaultWorkDir      = "~/.local/share/subscreen/work"
	defaultLogDir       = "~/.local/share/subscreen/logs"
	defaultDenylistPath = "~/.local/share/subscreen/denylist.json"

	defaultSampleIntervalSeconds = 2.0
	defaultMaxFrames             = 15
	defaultTargetHeight          = 480
	defaultProbeTimeout          = 15
	defaultExtractTimeout        = 30

	defaultLanguage          = "eng"
	defaultAcceptThreshold   = 0.60
	defaultFrameTimeout      = 20
	defaultFrameHashDistance = 4

	defaultDominanceThreshold = 0.60

	defaultLowThreshold      = 0.40
	defaultHighThreshold     = 0.75
	defaultPersistenceWeight = 0.40
	defaultStabilityWeight   = 0.25
	defaultRunWeight         = 0.20
	defaultConfidenceWeight  = 0.15

	defaultDenylistTTLHours = 14 * 24
	defaultPingTimeout      = 2

	defaultOverfetchFactor = 1.5

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Sampling: Sampling{
			IntervalSeconds: defaultSampleIntervalSeconds,
			MaxFrames:       defaultMaxFrames,
			TargetHeight:    defaultTargetHeight,
			ProbeTimeout:    defaultProbeTimeout,
			ExtractTimeout:  defaultExtractTimeout,
		},
		Detection: Detection{
			Language:          defaultLanguage,
			AcceptThreshold:   defaultAcceptThreshold,
			FrameTimeout:      defaultFrameTimeout,
			FrameHashDistance: defaultFrameHashDistance,
		},
		Ensemble: Ensemble{
			Weights:            map[string]float64{"tesseract": 0.7, "edges": 0.3},
			DominanceThreshold: defaultDominanceThreshold,
		},
		Policy: Policy{
			LowThreshold:      defaultLowThreshold,
			HighThreshold:     defaultHighThreshold,
			PersistenceWeight: defaultPersistenceWeight,
			StabilityWeight:   defaultStabilityWeight,
			RunWeight:         defaultRunWeight,
			ConfidenceWeight:  defaultConfidenceWeight,
		},
		Denylist: Denylist{
			Path:        defaultDenylistPath,
			TTLHours:    defaultDenylistTTLHours,
			PingTimeout: defaultPingTimeout,
		},
		Intake: Intake{
			OverfetchFactor: defaultOverfetchFactor,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
