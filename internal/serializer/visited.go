package serializer

// VisitedSet tracks which record identities have been embedded during one
// top-level Serialize call.
//
// A record can be reachable through several relationship paths, for
// example artist -> albums -> artist. The set is consulted before each
// embed so that every identity is written in full at most once per
// document, which also stops the walk on cyclic graphs.
//
// The outer call owns the set: it resets it on entry and nested calls
// share it untouched. Entries are never evicted within a call.
//
// Not safe for concurrent use; Serializer serializes access.
type VisitedSet struct {
	seen map[string]struct{}
}

// NewVisitedSet creates an empty visited set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Reset forgets every identity.
func (v *VisitedSet) Reset() {
	clear(v.seen)
}

// Has reports whether key has been marked since the last Reset.
func (v *VisitedSet) Has(key string) bool {
	_, ok := v.seen[key]
	return ok
}

// MarkVisited records key. Marking twice is harmless.
func (v *VisitedSet) MarkVisited(key string) {
	v.seen[key] = struct{}{}
}

// Len returns the number of identities marked since the last Reset.
func (v *VisitedSet) Len() int {
	return len(v.seen)
}
