// Package logging configures structured logging for subscreen.
//
// All components log through *slog.Logger instances produced here. The
// package provides typed attribute helpers, standardized field keys, and
// component-scoped child loggers so log output stays greppable across the
// detection pipeline and the denylist store.
package logging
