// Package denylist persists rejected video identifiers across restarts and
// across worker processes.
//
// Two backends implement the same Store contract: a networked Redis store
// with native key expiry and a file-backed JSON store guarded by an advisory
// lock. The Manager probes the networked backend once at construction time
// and falls back to the file store when it is unreachable; the choice is
// never re-evaluated mid-process.
package denylist
