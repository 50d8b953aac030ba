// Package screening evaluates candidate videos for burned-in subtitles and
// turns per-frame detection evidence into a proceed, caution, or reject
// outcome. Rejections are persisted to the denylist; the denylist is
// checked before any detection work begins so known-bad identifiers never
// re-run the cascade.
package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/google/uuid"

	"subscreen/internal/config"
	"subscreen/internal/denylist"
	"subscreen/internal/detect"
	"subscreen/internal/frames"
	"subscreen/internal/journal"
	"subscreen/internal/logging"
	"subscreen/internal/ocr"
	"subscreen/internal/policy"
)

// RejectReason is the denylist reason written for cascade rejections.
const RejectReason = "embedded_subtitles"

// EscalationReason marks rejections promoted from repeated cautions.
const EscalationReason = "caution_escalation"

// FrameSource extracts sampled frames from a video file. The production
// implementation shells out to ffmpeg; tests substitute synthetic frames.
type FrameSource interface {
	Sample(ctx context.Context, path string, interval time.Duration, maxFrames int) ([]frames.Frame, error)
}

// DetectionInfo summarizes one screening run for logging and persistence.
type DetectionInfo struct {
	FramesAnalyzed int                  `json:"frames_analyzed"`
	FramesDeduped  int                  `json:"frames_deduped"`
	RegionHits     map[string]int       `json:"region_hits,omitempty"`
	Conflicts      int                  `json:"conflicts"`
	Evidence       detect.VideoEvidence `json:"evidence"`
}

// Outcome is the final decision for one video.
type Outcome struct {
	VideoID    string
	RunID      string
	Bucket     policy.Bucket
	Confidence float64
	Info       DetectionInfo
	// KnownBad is set when the denylist short-circuited detection.
	KnownBad bool
	// Escalated is set when repeated cautions promoted the verdict to a
	// rejection.
	Escalated bool
	Duration  time.Duration
}

// Service owns the detection pipeline. The cascade backends are not
// reentrant, so detection runs under a single in-process mutex even though
// separate worker processes may screen videos concurrently.
type Service struct {
	cfg     *config.Config
	source  FrameSource
	cascade *detect.Cascade
	policy  *policy.Policy
	store   denylist.Store
	journal *journal.Journal
	logger  *slog.Logger

	// detectMu serializes cascade use within the process.
	detectMu sync.Mutex
}

// NewService wires the pipeline from configuration. journal may be nil,
// which disables the audit trail and caution escalation.
func NewService(cfg *config.Config, source FrameSource, store denylist.Store, jnl *journal.Journal, logger *slog.Logger) (*Service, error) {
	if cfg == nil || source == nil || store == nil {
		return nil, errors.New("screening requires config, frame source, and denylist store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	backends := []ocr.Backend{ocr.NewTesseract(cfg.Detection.Language)}
	var voter *detect.Voter
	if cfg.Detection.EdgeBackendEnabled {
		backends = append(backends, ocr.NewEdges())
		var err error
		voter, err = detect.NewVoter(cfg.Ensemble.Weights, cfg.Ensemble.DominanceThreshold)
		if err != nil {
			return nil, fmt.Errorf("build ensemble voter: %w", err)
		}
	}

	cascade, err := detect.NewCascade(backends, voter, cfg.Detection.AcceptThreshold, logger)
	if err != nil {
		return nil, fmt.Errorf("build detection cascade: %w", err)
	}
	pol, err := policy.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build decision policy: %w", err)
	}

	return &Service{
		cfg:     cfg,
		source:  source,
		cascade: cascade,
		policy:  pol,
		store:   store,
		journal: jnl,
		logger:  logging.NewComponentLogger(logger, "screening"),
	}, nil
}

// NewServiceWithCascade injects an explicit cascade, bypassing backend
// construction. Used by tests that substitute fake detection backends.
func NewServiceWithCascade(cfg *config.Config, source FrameSource, cascade *detect.Cascade, store denylist.Store, jnl *journal.Journal, logger *slog.Logger) (*Service, error) {
	svc, err := NewService(cfg, source, store, jnl, logger)
	if err != nil {
		return nil, err
	}
	svc.cascade = cascade
	return svc, nil
}

// HasEmbeddedSubtitles screens one video and reports whether it must be
// rejected. The boolean is true only for the reject bucket; caution and
// proceed both allow downstream processing.
func (s *Service) HasEmbeddedSubtitles(ctx context.Context, videoID, path string) (bool, DetectionInfo, float64, error) {
	outcome, err := s.Evaluate(ctx, videoID, path)
	if err != nil {
		return false, DetectionInfo{}, 0, err
	}
	return outcome.Bucket == policy.Reject, outcome.Info, outcome.Confidence, nil
}

// Evaluate runs the full pipeline for one video: denylist short-circuit,
// frame sampling, serialized ROI detection with consecutive-frame dedup,
// temporal aggregation, scoring, and the decision with its side effects.
func (s *Service) Evaluate(ctx context.Context, videoID, path string) (Outcome, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With(
		logging.String(logging.FieldVideoID, videoID),
		logging.String("run_id", runID))

	blocked, err := s.store.IsBlacklisted(ctx, videoID)
	if err != nil {
		logger.Warn("denylist pre-check failed, proceeding to detection", logging.Error(err))
	} else if blocked {
		logger.Info("video already denylisted, skipping detection")
		return Outcome{
			VideoID:    videoID,
			RunID:      runID,
			Bucket:     policy.Reject,
			Confidence: 1,
			KnownBad:   true,
			Duration:   time.Since(start),
		}, nil
	}

	sampled, err := s.source.Sample(ctx, path,
		time.Duration(s.cfg.Sampling.IntervalSeconds*float64(time.Second)),
		s.cfg.Sampling.MaxFrames)
	if err != nil {
		return Outcome{}, fmt.Errorf("sample %q: %w", path, err)
	}
	if len(sampled) == 0 {
		return Outcome{}, fmt.Errorf("%w: %w", ErrUndetermined, frames.ErrNoFrames)
	}

	evidence, info, err := s.detect(ctx, sampled, logger)
	if err != nil {
		return Outcome{}, err
	}

	confidence := s.policy.Score(evidence)
	bucket := s.policy.Decide(confidence)

	outcome := Outcome{
		VideoID:    videoID,
		RunID:      runID,
		Bucket:     bucket,
		Confidence: confidence,
		Info:       info,
		Duration:   time.Since(start),
	}

	if bucket == policy.Caution {
		if escalated, escErr := s.shouldEscalate(ctx, videoID); escErr != nil {
			logger.Warn("caution escalation check failed", logging.Error(escErr))
		} else if escalated {
			outcome.Bucket = policy.Reject
			outcome.Escalated = true
		}
	}

	if outcome.Bucket == policy.Reject {
		reason := RejectReason
		if outcome.Escalated {
			reason = EscalationReason
		}
		detail := map[string]any{
			"frames_analyzed": info.FramesAnalyzed,
			"region_hits":     info.RegionHits,
			"persistence":     evidence.PersistenceRatio,
		}
		if err := s.store.Add(ctx, videoID, reason, detail, confidence); err != nil {
			logger.Error("failed to persist rejection", logging.Error(err))
		}
	}

	s.record(ctx, outcome, logger)

	logger.Info("screening decision",
		logging.String("bucket", string(outcome.Bucket)),
		logging.Float64("confidence", confidence),
		logging.Int("frames_analyzed", info.FramesAnalyzed),
		logging.Int("frames_deduped", info.FramesDeduped),
		logging.Bool("escalated", outcome.Escalated),
		logging.Duration("elapsed", outcome.Duration))
	return outcome, nil
}

// detect runs the cascade over every sampled frame under the detection
// mutex. Consecutive frames whose perceptual hashes are near-identical
// reuse the previous frame's result instead of re-running the backends.
func (s *Service) detect(ctx context.Context, sampled []frames.Frame, logger *slog.Logger) (detect.VideoEvidence, DetectionInfo, error) {
	s.detectMu.Lock()
	defer s.detectMu.Unlock()

	frameTimeout := time.Duration(s.cfg.Detection.FrameTimeout) * time.Second
	info := DetectionInfo{RegionHits: make(map[string]int)}
	perFrame := make([]detect.FrameEvidence, 0, len(sampled))

	var (
		prevHash   *goimagehash.ImageHash
		prevResult *detect.ROIResult
	)

	for _, frame := range sampled {
		var result *detect.ROIResult

		// A negative hash distance disables dedup entirely.
		hash, hashErr := goimagehash.DifferenceHash(frame.Image)
		reused := false
		if hashErr == nil && prevHash != nil && s.cfg.Detection.FrameHashDistance >= 0 {
			if distance, distErr := hash.Distance(prevHash); distErr == nil &&
				distance <= s.cfg.Detection.FrameHashDistance {
				result = prevResult
				reused = true
				info.FramesDeduped++
			}
		}

		if !reused {
			frameCtx, cancel := context.WithTimeout(ctx, frameTimeout)
			var detectErr error
			result, detectErr = s.cascade.Detect(frameCtx, frame.Image)
			cancel()
			if detectErr != nil {
				if errors.Is(detectErr, context.DeadlineExceeded) {
					return detect.VideoEvidence{}, DetectionInfo{},
						fmt.Errorf("frame %d: %w", frame.Index, ErrDetectionTimeout)
				}
				return detect.VideoEvidence{}, DetectionInfo{},
					fmt.Errorf("frame %d: %w", frame.Index, detectErr)
			}
		}

		if hashErr == nil {
			prevHash = hash
			prevResult = result
		}

		info.FramesAnalyzed++
		evidence := detect.NewFrameEvidence(frame.Index, frame.Timestamp, frame.Image.Bounds(), result)
		if evidence.Detected {
			info.RegionHits[evidence.Region]++
		}
		if evidence.Conflict {
			info.Conflicts++
		}
		perFrame = append(perFrame, evidence)

		logger.Debug("frame evaluated",
			logging.Int("frame", frame.Index),
			logging.Bool("detected", evidence.Detected),
			logging.Bool("reused", reused),
			logging.Float64("confidence", evidence.ConfidenceMean))
	}

	info.Evidence = detect.Aggregate(perFrame)
	return info.Evidence, info, nil
}

// shouldEscalate reports whether this caution verdict crosses the configured
// escalation threshold. The current verdict counts toward the total.
func (s *Service) shouldEscalate(ctx context.Context, videoID string) (bool, error) {
	threshold := s.cfg.Policy.CautionEscalationThreshold
	if threshold <= 0 || s.journal == nil {
		return false, nil
	}
	prior, err := s.journal.CountBucket(ctx, videoID, string(policy.Caution))
	if err != nil {
		return false, err
	}
	return prior+1 >= threshold, nil
}

// record appends the decision to the journal when one is configured.
func (s *Service) record(ctx context.Context, outcome Outcome, logger *slog.Logger) {
	if s.journal == nil {
		return
	}
	evidence, err := json.Marshal(outcome.Info)
	if err != nil {
		evidence = nil
	}
	bucket := outcome.Bucket
	if outcome.Escalated {
		// Journal the underlying caution so escalation counts stay honest.
		bucket = policy.Caution
	}
	if _, err := s.journal.Append(ctx, journal.Record{
		RunID:      outcome.RunID,
		VideoID:    outcome.VideoID,
		Bucket:     string(bucket),
		Confidence: outcome.Confidence,
		Evidence:   string(evidence),
		DurationMS: outcome.Duration.Milliseconds(),
	}); err != nil {
		logger.Warn("failed to journal decision", logging.Error(err))
	}
}
