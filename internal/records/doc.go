// Package records provides the in-memory record store used by the
// serializer and normalizer.
//
// A Record is created unsaved with a correlation token, or loaded saved
// with a persistent id. Its lifecycle moves through three states:
//
//	new-unsaved -> new-in-flight -> saved
//
// AcknowledgeCommit performs the whole transition for one record under the
// store lock, so two reconciliations can never interleave on the same
// record and a record can be acknowledged at most once.
//
// Attribute values live in three layers, read newest first:
//   - pending: local changes not yet sent
//   - in-flight: changes flushed to a save request
//   - data: server-confirmed values
//
// Relationship fields are either loaded (the linked records are known) or
// unloaded (only a link exists), which mirrors a JSON-API links-only stub.
package records
