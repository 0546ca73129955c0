// Package ir provides the intermediate representation shared by every
// embedsave package.
//
// It holds two families of types:
//   - Wire types (Document, Resource, Relationship, Linkage, Attributes):
//     the JSON-API shaped payloads exchanged with a server.
//   - Schema types (Schema, ModelSpec, RelationshipSpec, SerializerSpec):
//     compiled model and serializer declarations produced by internal/compiler.
//
// This package imports nothing internal. All other internal packages import
// ir, which keeps it the foundational layer with no circular dependencies.
//
// Key constraints:
//   - Linkage distinguishes "absent" (links-only stub), "null", a single
//     resource and an ordered array. Absent and null both mean "no embedded
//     data" and are never errors.
//   - The correlation token of an unsaved record travels in the reserved
//     attribute CorrelationKey ("__id__").
//   - Canonical JSON (MarshalCanonical) is used for golden snapshots and
//     content-addressed journal ids.
package ir
