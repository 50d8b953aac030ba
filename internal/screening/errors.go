package screening

import "errors"

// ErrDetectionTimeout indicates a per-frame detection budget was exceeded.
// The outcome is inconclusive: it is never written to the denylist and the
// caller may retry.
var ErrDetectionTimeout = errors.New("detection timed out")

// ErrUndetermined indicates no evidence could be produced for the video.
// It is distinct from both a proceed and a reject outcome; the caller
// decides whether to retry, discard, or pass through conservatively.
var ErrUndetermined = errors.New("screening outcome undetermined")
