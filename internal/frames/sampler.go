// Package frames extracts downscaled still frames from candidate videos at
// fixed time intervals.
//
// Extraction shells out to ffmpeg per timestamp; every external call carries
// an explicit timeout. Decoded frames are bounded to a target height so OCR
// cost stays independent of the source resolution.
package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nfnt/resize"

	"subscreen/internal/config"
	"subscreen/internal/logging"
	"subscreen/internal/media/ffprobe"
)

// ErrNoFrames indicates that not a single frame could be decoded from the
// input. Callers must treat this as "cannot evaluate", never as "no
// subtitles".
var ErrNoFrames = errors.New("no frames could be extracted")

// Frame is a decoded image at a known timestamp. Frames are owned by the
// sampling call that produced them and are discarded after aggregation.
type Frame struct {
	Index        int
	Timestamp    time.Duration
	Image        image.Image
	SourceWidth  int
	SourceHeight int
}

// Sampler extracts frames via ffmpeg/ffprobe.
type Sampler struct {
	ffmpegBinary   string
	ffprobeBinary  string
	workDir        string
	targetHeight   int
	probeTimeout   time.Duration
	extractTimeout time.Duration
	logger         *slog.Logger
}

// NewSampler constructs a Sampler from configuration.
func NewSampler(cfg *config.Config, logger *slog.Logger) *Sampler {
	return &Sampler{
		ffmpegBinary:   cfg.FFmpegBinary(),
		ffprobeBinary:  cfg.FFprobeBinary(),
		workDir:        cfg.Paths.WorkDir,
		targetHeight:   cfg.Sampling.TargetHeight,
		probeTimeout:   time.Duration(cfg.Sampling.ProbeTimeout) * time.Second,
		extractTimeout: time.Duration(cfg.Sampling.ExtractTimeout) * time.Second,
		logger:         logging.NewComponentLogger(logger, "frames"),
	}
}

// Sample extracts frames at 0, interval, 2*interval, ... capped at maxFrames.
// The cap is applied to the timestamp plan before any decoding happens.
// Individual extraction failures are skipped; if nothing decodes the call
// fails with ErrNoFrames.
func (s *Sampler) Sample(ctx context.Context, path string, interval time.Duration, maxFrames int) ([]Frame, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sample %q: interval must be positive", path)
	}
	if maxFrames < 1 {
		return nil, fmt.Errorf("sample %q: max frames must be at least 1", path)
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	probe, err := ffprobe.Inspect(probeCtx, s.ffprobeBinary, path)
	if err != nil {
		return nil, fmt.Errorf("%w: probe failed: %w", ErrNoFrames, err)
	}
	if probe.VideoStreamCount() == 0 {
		return nil, fmt.Errorf("%w: no video stream in %q", ErrNoFrames, path)
	}

	duration := time.Duration(probe.DurationSeconds() * float64(time.Second))
	plan := planTimestamps(duration, interval, maxFrames)

	tmpDir, err := os.MkdirTemp(s.workDir, "frames-")
	if err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	frames := make([]Frame, 0, len(plan))
	for i, ts := range plan {
		img, err := s.extractFrame(ctx, path, ts, filepath.Join(tmpDir, fmt.Sprintf("frame-%03d.jpg", i)))
		if err != nil {
			s.logger.Debug("skipping undecodable frame",
				logging.String("path", path),
				logging.Duration("timestamp", ts),
				logging.Error(err))
			continue
		}
		frame := Frame{
			Index:        len(frames),
			Timestamp:    ts,
			SourceWidth:  img.Bounds().Dx(),
			SourceHeight: img.Bounds().Dy(),
		}
		frame.Image = s.downscale(img)
		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoFrames, path)
	}

	s.logger.Debug("sampled frames",
		logging.String("path", path),
		logging.Int("planned", len(plan)),
		logging.Int("decoded", len(frames)))
	return frames, nil
}

// planTimestamps computes the extraction schedule. Timestamps beyond the
// reported duration are dropped; an unknown (zero) duration still yields a
// single attempt at t=0 so corrupt metadata does not block evaluation.
func planTimestamps(duration, interval time.Duration, maxFrames int) []time.Duration {
	plan := make([]time.Duration, 0, maxFrames)
	for ts := time.Duration(0); len(plan) < maxFrames; ts += interval {
		if ts > 0 && ts >= duration {
			break
		}
		plan = append(plan, ts)
	}
	return plan
}

func (s *Sampler) extractFrame(ctx context.Context, path string, ts time.Duration, dest string) (image.Image, error) {
	extractCtx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", ts.Seconds()),
		"-i", path,
		"-frames:v", "1",
		"-q:v", "2",
		dest,
	}
	cmd := exec.CommandContext(extractCtx, s.ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg extract: %w: %s", err, strings.TrimSpace(string(output)))
	}

	file, err := os.Open(dest)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer file.Close()

	img, err := jpeg.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// downscale bounds a frame to the target height, preserving aspect ratio.
// Frames already at or below the target pass through untouched.
func (s *Sampler) downscale(img image.Image) image.Image {
	if s.targetHeight < 1 || img.Bounds().Dy() <= s.targetHeight {
		return img
	}
	return resize.Resize(0, uint(s.targetHeight), img, resize.Bilinear)
}
