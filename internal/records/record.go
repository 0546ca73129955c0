package records

import (
	"github.com/roach88/embedsave/internal/ir"
)

// State is a record's persistence lifecycle state.
type State string

const (
	StateNewUnsaved State = "new-unsaved"
	StateInFlight   State = "new-in-flight"
	StateSaved      State = "saved"
)

// Record is one in-memory domain entity.
//
// All fields are guarded by the owning Store's mutex; read them through
// the accessor methods.
type Record struct {
	store *Store
	model ir.ModelSpec
	token string

	id    string
	state State

	data     ir.Attributes
	inFlight ir.Attributes
	pending  ir.Attributes

	relationships map[string]*relationship
}

// relationship holds the linked records of one relationship field.
type relationship struct {
	kind    ir.RelationshipKind
	loaded  bool
	targets []*Record
}

// Type returns the record's model name.
func (r *Record) Type() string {
	return r.model.Name
}

// Token returns the correlation token assigned at creation.
// Records loaded with an id have a token too; it is never sent for them.
func (r *Record) Token() string {
	return r.token
}

// ID returns the persistent id, or "" while the record is unsaved.
func (r *Record) ID() string {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.id
}

// State returns the lifecycle state.
func (r *Record) State() State {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.state
}

// IsNew reports whether the record has not been confirmed saved.
func (r *Record) IsNew() bool {
	return r.State() != StateSaved
}

// Attr returns the current value of an attribute.
func (r *Record) Attr(name string) (any, bool) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.attrLocked(name)
}

func (r *Record) attrLocked(name string) (any, bool) {
	for _, layer := range []ir.Attributes{r.pending, r.inFlight, r.data} {
		if v, ok := layer[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Attributes returns a snapshot of the current attribute values.
// Keys are record attribute names, not wire keys.
func (r *Record) Attributes() ir.Attributes {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make(ir.Attributes, len(r.data)+len(r.pending))
	for _, layer := range []ir.Attributes{r.data, r.inFlight, r.pending} {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// HasPendingChanges reports whether local attribute changes exist.
func (r *Record) HasPendingChanges() bool {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.pending) > 0
}

// Set records a local change to a declared attribute.
func (r *Record) Set(name string, value any) error {
	if !r.model.HasAttribute(name) {
		return &Error{Code: ErrCodeUnknownField, Message: "undeclared attribute " + name, Model: r.model.Name}
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.pending == nil {
		r.pending = ir.Attributes{}
	}
	r.pending[name] = value
	return nil
}

// Model returns the record's model declaration.
func (r *Record) Model() ir.ModelSpec {
	return r.model
}
