// Package intake prepares candidate video identifiers for screening. It
// deduplicates the upstream feed, pre-filters identifiers already on the
// denylist, and inflates fetch requests to compensate for the expected
// rejection rate.
package intake

import (
	"context"
	"log/slog"
	"math"

	"subscreen/internal/denylist"
	"subscreen/internal/logging"
)

// Stage sits between the candidate feed and the screening service.
type Stage struct {
	store           denylist.Store
	overfetchFactor float64
	logger          *slog.Logger
}

// NewStage builds an intake stage. Factors below 1 are treated as 1: the
// stage never requests fewer candidates than asked for.
func NewStage(store denylist.Store, overfetchFactor float64, logger *slog.Logger) *Stage {
	if overfetchFactor < 1 {
		overfetchFactor = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		store:           store,
		overfetchFactor: overfetchFactor,
		logger:          logging.NewComponentLogger(logger, "intake"),
	}
}

// Dedup removes repeated identifiers, preserving first-seen order. Empty
// identifiers are dropped.
func Dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// OverfetchCount converts a requested unique count into the number of
// candidates to pull upstream, rounding up so the factor always buys at
// least the requested amount.
func (s *Stage) OverfetchCount(requested int) int {
	if requested <= 0 {
		return 0
	}
	return int(math.Ceil(float64(requested) * s.overfetchFactor))
}

// Filter dedups the candidates and drops identifiers the denylist already
// rejects, so known-bad videos never reach the detection cascade. A store
// error on one identifier keeps the candidate: screening re-checks the
// denylist before doing any work, so a false keep costs one lookup, while a
// false drop loses a candidate.
func (s *Stage) Filter(ctx context.Context, ids []string) ([]string, error) {
	unique := Dedup(ids)
	kept := make([]string, 0, len(unique))
	for _, id := range unique {
		blocked, err := s.store.IsBlacklisted(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return kept, ctx.Err()
			}
			s.logger.Warn("denylist lookup failed, keeping candidate",
				logging.String(logging.FieldVideoID, id),
				logging.Error(err))
			kept = append(kept, id)
			continue
		}
		if blocked {
			s.logger.Debug("dropping denylisted candidate",
				logging.String(logging.FieldVideoID, id))
			continue
		}
		kept = append(kept, id)
	}
	return kept, nil
}
