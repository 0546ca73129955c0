// Package store provides the SQLite-backed save journal.
//
// The journal is append-only and holds two tables:
//   - exchanges: each serialized save request, keyed by a content hash,
//     with the server's response once it arrives
//   - reconciliations: each record that received its server id while a
//     response was normalized, unique per (exchange, model, token)
//
// Ordering uses the logical seq column, never wall time. Every query
// orders by seq ASC, id ASC so reads are identical across runs.
//
// Database configuration:
//   - WAL mode for concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//
// Request and response documents are stored as canonical JSON
// (ir.MarshalCanonical).
package store
