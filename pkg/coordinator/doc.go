// Package coordinator is the Index's public query/mutation API (C5). It
// owns the single process-wide lock guarding the in-memory tiering.Index,
// enforces the dual-write protocol against the durable store, and updates
// Metrics & Audit on every query.
package coordinator
