package screening_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"subscreen/internal/config"
	"subscreen/internal/denylist"
	"subscreen/internal/detect"
	"subscreen/internal/frames"
	"subscreen/internal/journal"
	"subscreen/internal/logging"
	"subscreen/internal/ocr"
	"subscreen/internal/policy"
	"subscreen/internal/screening"
	"subscreen/internal/testsupport"
)

// fakeSource serves a fixed frame sequence instead of shelling out to
// ffmpeg.
type fakeSource struct {
	frames []frames.Frame
	err    error
	calls  int
}

func (f *fakeSource) Sample(ctx context.Context, path string, interval time.Duration, maxFrames int) ([]frames.Frame, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.frames, nil
}

// inkBackend reports text whenever the normalized crop contains dark
// pixels. Binarization renders text as dark ink on a light background, so a
// caption band survives normalization while a flat frame does not.
type inkBackend struct{}

func (inkBackend) Name() string { return "ink" }

func (inkBackend) Recognize(ctx context.Context, img image.Image) (ocr.Result, error) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if c.Y < 50 {
				box := image.Rect(bounds.Dx()/8, bounds.Dy()/2, bounds.Dx()*7/8, bounds.Dy()-2)
				return ocr.Result{
					Text:       "sample caption",
					Confidence: 0.9,
					Words: []ocr.Word{
						{Text: "sample", Confidence: 0.9, Box: box},
						{Text: "caption", Confidence: 0.9, Box: box},
					},
				}, nil
			}
		}
	}
	return ocr.Result{}, nil
}

// stallingBackend blocks until the per-frame budget expires.
type stallingBackend struct{}

func (stallingBackend) Name() string { return "stalling" }

func (stallingBackend) Recognize(ctx context.Context, img image.Image) (ocr.Result, error) {
	<-ctx.Done()
	return ocr.Result{}, ctx.Err()
}

func newService(t *testing.T, cfg *config.Config, source screening.FrameSource, backend ocr.Backend, jnl *journal.Journal) (*screening.Service, denylist.Store) {
	t.Helper()
	store, err := denylist.NewFileStore(cfg.Denylist.Path, time.Hour, logging.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	cascade, err := detect.NewCascade([]ocr.Backend{backend}, nil, cfg.Detection.AcceptThreshold, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCascade failed: %v", err)
	}
	svc, err := screening.NewServiceWithCascade(cfg, source, cascade, store, jnl, logging.NewNop())
	if err != nil {
		t.Fatalf("NewServiceWithCascade failed: %v", err)
	}
	return svc, store
}

func captionFrames(t *testing.T, n int) []frames.Frame {
	t.Helper()
	out := make([]frames.Frame, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, frames.Frame{
			Index:     i,
			Timestamp: time.Duration(i) * 2 * time.Second,
			Image:     testsupport.CaptionFrame(t, 320, 240),
		})
	}
	return out
}

func cleanFrames(t *testing.T, n int) []frames.Frame {
	t.Helper()
	out := make([]frames.Frame, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, frames.Frame{
			Index:     i,
			Timestamp: time.Duration(i) * 2 * time.Second,
			Image:     testsupport.SolidFrame(t, 320, 240, color.RGBA{R: 120, G: 120, B: 120, A: 255}),
		})
	}
	return out
}

func TestEvaluateRejectsPersistentCaptions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &fakeSource{frames: captionFrames(t, 5)}
	svc, store := newService(t, cfg, source, inkBackend{}, nil)
	ctx := context.Background()

	outcome, err := svc.Evaluate(ctx, "vid-1", "/videos/vid-1.mp4")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if outcome.Bucket != policy.Reject {
		t.Fatalf("Bucket = %s, want reject (confidence %v)", outcome.Bucket, outcome.Confidence)
	}
	if outcome.Confidence < cfg.Policy.HighThreshold || outcome.Confidence > 1 {
		t.Fatalf("Confidence = %v, want within [%v, 1]", outcome.Confidence, cfg.Policy.HighThreshold)
	}
	if outcome.Info.Evidence.PersistenceRatio != 1 {
		t.Fatalf("PersistenceRatio = %v, want 1", outcome.Info.Evidence.PersistenceRatio)
	}
	if outcome.Info.FramesAnalyzed != 5 {
		t.Fatalf("FramesAnalyzed = %d, want 5", outcome.Info.FramesAnalyzed)
	}

	blocked, err := store.IsBlacklisted(ctx, "vid-1")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if !blocked {
		t.Fatal("rejected video must be denylisted")
	}

	rejected, _, _, err := svc.HasEmbeddedSubtitles(ctx, "vid-2", "/videos/vid-2.mp4")
	if err != nil {
		t.Fatalf("HasEmbeddedSubtitles failed: %v", err)
	}
	if !rejected {
		t.Fatal("HasEmbeddedSubtitles should report true for a reject")
	}
}

func TestEvaluateProceedsOnCleanVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &fakeSource{frames: cleanFrames(t, 5)}
	svc, store := newService(t, cfg, source, inkBackend{}, nil)
	ctx := context.Background()

	outcome, err := svc.Evaluate(ctx, "vid-1", "/videos/vid-1.mp4")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if outcome.Bucket != policy.Proceed {
		t.Fatalf("Bucket = %s, want proceed", outcome.Bucket)
	}
	if outcome.Confidence != 0 {
		t.Fatalf("Confidence = %v, want 0", outcome.Confidence)
	}

	blocked, err := store.IsBlacklisted(ctx, "vid-1")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if blocked {
		t.Fatal("clean video must not be denylisted")
	}
}

func TestEvaluateShortCircuitsKnownBadID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &fakeSource{err: errors.New("source must not be called")}
	svc, store := newService(t, cfg, source, inkBackend{}, nil)
	ctx := context.Background()

	if err := store.Add(ctx, "vid-1", screening.RejectReason, nil, 0.9); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	outcome, err := svc.Evaluate(ctx, "vid-1", "/videos/vid-1.mp4")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !outcome.KnownBad {
		t.Fatal("outcome should be marked known-bad")
	}
	if outcome.Bucket != policy.Reject {
		t.Fatalf("Bucket = %s, want reject", outcome.Bucket)
	}
	if source.calls != 0 {
		t.Fatalf("frame source called %d times, want 0", source.calls)
	}
}

func TestEvaluateDedupsIdenticalFrames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &fakeSource{frames: captionFrames(t, 4)}
	svc, _ := newService(t, cfg, source, inkBackend{}, nil)

	outcome, err := svc.Evaluate(context.Background(), "vid-1", "/videos/vid-1.mp4")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if outcome.Info.FramesDeduped != 3 {
		t.Fatalf("FramesDeduped = %d, want 3 for identical frames", outcome.Info.FramesDeduped)
	}
	if outcome.Info.Evidence.PersistenceRatio != 1 {
		t.Fatalf("deduped frames must still count as detections, persistence = %v",
			outcome.Info.Evidence.PersistenceRatio)
	}
}

func TestEvaluateTimeoutIsNeverCached(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Detection.FrameTimeout = 1
	source := &fakeSource{frames: captionFrames(t, 1)}
	svc, store := newService(t, cfg, source, stallingBackend{}, nil)
	ctx := context.Background()

	_, err := svc.Evaluate(ctx, "vid-1", "/videos/vid-1.mp4")
	if !errors.Is(err, screening.ErrDetectionTimeout) {
		t.Fatalf("Evaluate error = %v, want ErrDetectionTimeout", err)
	}

	blocked, err := store.IsBlacklisted(ctx, "vid-1")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if blocked {
		t.Fatal("a timed-out detection must never be cached as a decision")
	}
}

func TestEvaluatePropagatesFrameExtractionFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &fakeSource{err: frames.ErrNoFrames}
	svc, _ := newService(t, cfg, source, inkBackend{}, nil)

	_, err := svc.Evaluate(context.Background(), "vid-1", "/videos/vid-1.mp4")
	if !errors.Is(err, frames.ErrNoFrames) {
		t.Fatalf("Evaluate error = %v, want ErrNoFrames", err)
	}
}

func TestCautionEscalationPromotesRepeatOffenders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Policy.CautionEscalationThreshold = 2
	cfg.Detection.FrameHashDistance = -1 // deterministic mixed sequences

	jnl, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open failed: %v", err)
	}
	defer jnl.Close()

	// Three detecting frames then two clean ones: one run, one transition.
	// Persistence 0.6 with stable boxes lands in the caution band.
	mixed := captionFrames(t, 5)
	clean := cleanFrames(t, 5)
	mixed[3] = clean[3]
	mixed[4] = clean[4]

	source := &fakeSource{frames: mixed}
	svc, store := newService(t, cfg, source, inkBackend{}, jnl)
	ctx := context.Background()

	first, err := svc.Evaluate(ctx, "vid-1", "/videos/vid-1.mp4")
	if err != nil {
		t.Fatalf("first Evaluate failed: %v", err)
	}
	if first.Bucket != policy.Caution {
		t.Fatalf("first Bucket = %s (confidence %v), want caution", first.Bucket, first.Confidence)
	}
	if first.Escalated {
		t.Fatal("first caution must not escalate below the threshold")
	}

	second, err := svc.Evaluate(ctx, "vid-1", "/videos/vid-1.mp4")
	if err != nil {
		t.Fatalf("second Evaluate failed: %v", err)
	}
	if !second.Escalated {
		t.Fatal("second caution should escalate")
	}
	if second.Bucket != policy.Reject {
		t.Fatalf("second Bucket = %s, want reject", second.Bucket)
	}

	blocked, err := store.IsBlacklisted(ctx, "vid-1")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if !blocked {
		t.Fatal("escalated video must be denylisted")
	}
}

func TestCautionIsNotPersistedWithoutEscalation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Detection.FrameHashDistance = -1

	mixed := captionFrames(t, 5)
	clean := cleanFrames(t, 5)
	mixed[3] = clean[3]
	mixed[4] = clean[4]

	source := &fakeSource{frames: mixed}
	svc, store := newService(t, cfg, source, inkBackend{}, nil)
	ctx := context.Background()

	outcome, err := svc.Evaluate(ctx, "vid-1", "/videos/vid-1.mp4")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if outcome.Bucket != policy.Caution {
		t.Fatalf("Bucket = %s (confidence %v), want caution", outcome.Bucket, outcome.Confidence)
	}

	blocked, err := store.IsBlacklisted(ctx, "vid-1")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if blocked {
		t.Fatal("a lone caution verdict must never be persisted")
	}
}
