package records

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/embedsave/internal/ir"
)

// Store holds every in-memory record of one session.
//
// Thread-safety: all methods are safe for concurrent use. Lifecycle
// transitions take the write lock for their whole duration.
type Store struct {
	mu      sync.RWMutex
	schema  *ir.Schema
	tokens  TokenGenerator
	logger  *slog.Logger
	records []*Record          // creation order
	byID    map[string]*Record // "<model>:<id>"
	byToken map[string]*Record
}

// Option configures a Store.
type Option func(*Store)

// WithTokenGenerator sets the correlation token generator.
// Defaults to UUIDv7Generator.
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(s *Store) {
		s.tokens = gen
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates an empty store for the models declared in schema.
func New(schema *ir.Schema, opts ...Option) *Store {
	s := &Store{
		schema:  schema,
		tokens:  UUIDv7Generator{},
		logger:  slog.Default(),
		byID:    make(map[string]*Record),
		byToken: make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema returns the schema the store was created with.
func (s *Store) Schema() *ir.Schema {
	return s.schema
}

func idKey(model, id string) string {
	return model + ":" + id
}

// CreateRecord creates a new unsaved record. Initial attributes count as
// local changes and are flushed by the first commit.
func (s *Store) CreateRecord(model string, attrs ir.Attributes) (*Record, error) {
	rec, err := s.newRecord(model, attrs)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.token = s.tokens.Generate()
	if _, dup := s.byToken[rec.token]; dup {
		return nil, &Error{Code: ErrCodeDuplicateToken, Message: "token already assigned: " + rec.token, Model: model}
	}
	rec.state = StateNewUnsaved
	rec.pending = attrs.Clone()
	if rec.pending == nil {
		rec.pending = ir.Attributes{}
	}

	s.insertLocked(rec)
	s.logger.Debug("record created", "model", model, "token", rec.token)
	return rec, nil
}

// Load adds an already saved record with the given id.
func (s *Store) Load(model, id string, attrs ir.Attributes) (*Record, error) {
	if id == "" {
		return nil, &Error{Code: ErrCodeMissingID, Message: "load requires an id", Model: model}
	}
	rec, err := s.newRecord(model, attrs)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(rec, id, attrs)
}

func (s *Store) loadLocked(rec *Record, id string, attrs ir.Attributes) (*Record, error) {
	model := rec.model.Name
	if _, dup := s.byID[idKey(model, id)]; dup {
		return nil, &Error{Code: ErrCodeDuplicateID, Message: "record already loaded", Model: model, ID: id}
	}
	rec.token = s.tokens.Generate()
	if _, dup := s.byToken[rec.token]; dup {
		return nil, &Error{Code: ErrCodeDuplicateToken, Message: "token already assigned: " + rec.token, Model: model}
	}
	rec.id = id
	rec.state = StateSaved
	rec.data = attrs.Clone()
	if rec.data == nil {
		rec.data = ir.Attributes{}
	}

	s.insertLocked(rec)
	s.byID[idKey(model, id)] = rec
	return rec, nil
}

func (s *Store) newRecord(model string, attrs ir.Attributes) (*Record, error) {
	spec, ok := s.schema.Model(model)
	if !ok {
		return nil, &Error{Code: ErrCodeUnknownModel, Message: "undeclared model " + model, Model: model}
	}
	for name := range attrs {
		if !spec.HasAttribute(name) {
			return nil, &Error{Code: ErrCodeUnknownField, Message: "undeclared attribute " + name, Model: model}
		}
	}

	rec := &Record{
		store:         s,
		model:         spec,
		relationships: make(map[string]*relationship, len(spec.Relationships)),
	}
	for _, r := range spec.Relationships {
		rec.relationships[r.Name] = &relationship{kind: r.Kind, loaded: true}
	}
	return rec, nil
}

func (s *Store) insertLocked(rec *Record) {
	s.records = append(s.records, rec)
	s.byToken[rec.token] = rec
}

// relationshipFor returns the relationship state of field, checking kind
// and target model.
func (s *Store) relationshipFor(rec *Record, field string, kind ir.RelationshipKind, targets []*Record) (*relationship, error) {
	spec, ok := rec.model.Relationship(field)
	if !ok || spec.Kind != kind {
		return nil, &Error{Code: ErrCodeUnknownField, Message: fmt.Sprintf("no %s relationship %s", kind, field), Model: rec.model.Name}
	}
	for _, t := range targets {
		if t != nil && t.model.Name != spec.Type {
			return nil, &Error{
				Code:    ErrCodeUnknownField,
				Message: fmt.Sprintf("relationship %s expects %s, got %s", field, spec.Type, t.model.Name),
				Model:   rec.model.Name,
			}
		}
	}
	return rec.relationships[field], nil
}

// SetBelongsTo links rec.field to target. A nil target clears the link.
func (s *Store) SetBelongsTo(rec *Record, field string, target *Record) error {
	rel, err := s.relationshipFor(rec, field, ir.KindBelongsTo, []*Record{target})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rel.loaded = true
	rel.targets = rel.targets[:0]
	if target != nil {
		rel.targets = append(rel.targets, target)
	}
	return nil
}

// AddToHasMany appends targets to rec.field, keeping insertion order.
// A record already linked is not added twice.
func (s *Store) AddToHasMany(rec *Record, field string, targets ...*Record) error {
	rel, err := s.relationshipFor(rec, field, ir.KindHasMany, targets)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rel.loaded = true
	for _, t := range targets {
		if t == nil || containsRecord(rel.targets, t) {
			continue
		}
		rel.targets = append(rel.targets, t)
	}
	return nil
}

func containsRecord(list []*Record, rec *Record) bool {
	for _, r := range list {
		if r == rec {
			return true
		}
	}
	return false
}

// MarkUnloaded turns rec.field into an unloaded link: its records are
// unknown until fetched.
func (s *Store) MarkUnloaded(rec *Record, field string) error {
	if _, ok := rec.model.Relationship(field); !ok {
		return &Error{Code: ErrCodeUnknownField, Message: "no relationship " + field, Model: rec.model.Name}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rel := rec.relationships[field]
	rel.loaded = false
	rel.targets = nil
	return nil
}

// ResolveToOne returns the record linked by a belongsTo field.
// loaded is false for unknown fields and unloaded links.
func (s *Store) ResolveToOne(rec *Record, field string) (target *Record, loaded bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rel, ok := rec.relationships[field]
	if !ok || rel.kind != ir.KindBelongsTo || !rel.loaded {
		return nil, false
	}
	if len(rel.targets) == 0 {
		return nil, true
	}
	return rel.targets[0], true
}

// ResolveToMany returns the records linked by a hasMany field in
// insertion order. loaded is false for unknown fields and unloaded links.
func (s *Store) ResolveToMany(rec *Record, field string) (targets []*Record, loaded bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rel, ok := rec.relationships[field]
	if !ok || rel.kind != ir.KindHasMany || !rel.loaded {
		return nil, false
	}
	out := make([]*Record, len(rel.targets))
	copy(out, rel.targets)
	return out, true
}

// AllUnsavedOfType returns the new-unsaved records of a model in creation order.
func (s *Store) AllUnsavedOfType(model string) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, r := range s.records {
		if r.model.Name == model && r.state == StateNewUnsaved {
			out = append(out, r)
		}
	}
	return out
}

// FindByCorrelationToken returns the candidate carrying token, or nil.
func (s *Store) FindByCorrelationToken(candidates []*Record, token string) *Record {
	for _, r := range candidates {
		if r.token == token {
			return r
		}
	}
	return nil
}

// AcknowledgeCommit confirms that the server saved rec under id.
//
// In one critical section it flushes pending changes into the in-flight
// layer (new-unsaved -> new-in-flight), assigns the id and folds the
// in-flight layer into confirmed data (new-in-flight -> saved). Only a
// new-unsaved record can be acknowledged, so a second acknowledgement of
// the same record fails with ErrCodeInvalidState.
func (s *Store) AcknowledgeCommit(rec *Record, id string) error {
	if id == "" {
		return &Error{Code: ErrCodeMissingID, Message: "commit acknowledgement requires an id", Model: rec.model.Name}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.state != StateNewUnsaved {
		return &Error{
			Code:    ErrCodeInvalidState,
			Message: fmt.Sprintf("cannot acknowledge commit in state %s", rec.state),
			Model:   rec.model.Name,
			ID:      id,
		}
	}
	key := idKey(rec.model.Name, id)
	if other, dup := s.byID[key]; dup && other != rec {
		return &Error{Code: ErrCodeDuplicateID, Message: "id held by another record", Model: rec.model.Name, ID: id}
	}

	s.flushLocked(rec)
	s.commitLocked(rec, id)
	return nil
}

// flushLocked moves pending changes into the in-flight layer.
func (s *Store) flushLocked(rec *Record) {
	if rec.inFlight == nil {
		rec.inFlight = ir.Attributes{}
	}
	for k, v := range rec.pending {
		rec.inFlight[k] = v
	}
	rec.pending = ir.Attributes{}
	rec.state = StateInFlight
}

// commitLocked folds the in-flight layer into data and marks rec saved.
func (s *Store) commitLocked(rec *Record, id string) {
	if rec.data == nil {
		rec.data = ir.Attributes{}
	}
	for k, v := range rec.inFlight {
		rec.data[k] = v
	}
	rec.inFlight = nil
	rec.id = id
	rec.state = StateSaved
	s.byID[idKey(rec.model.Name, id)] = rec
}

// Ingest merges a normalized resource into the store. res.Type is a
// model name and attribute keys are record attribute names. An existing
// record with the same id has its confirmed data updated; otherwise a new
// saved record is created. Undeclared attributes are ignored.
func (s *Store) Ingest(res *ir.Resource) (*Record, error) {
	if res == nil {
		return nil, &Error{Code: ErrCodeMissingID, Message: "ingest requires a resource"}
	}
	if res.ID == "" {
		return nil, &Error{Code: ErrCodeMissingID, Message: "ingest requires an id", Model: res.Type}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.byID[idKey(res.Type, res.ID)]; existing != nil {
		s.mergeLocked(existing, res)
		return existing, nil
	}

	rec, err := s.newRecord(res.Type, s.declaredAttributes(res))
	if err == nil {
		rec, err = s.loadLocked(rec, res.ID, s.declaredAttributes(res))
	}
	if err != nil {
		return nil, fmt.Errorf("ingest %s %s: %w", res.Type, res.ID, err)
	}
	return rec, nil
}

func (s *Store) declaredAttributes(res *ir.Resource) ir.Attributes {
	spec, ok := s.schema.Model(res.Type)
	if !ok {
		return nil
	}
	out := ir.Attributes{}
	for k, v := range res.Attributes {
		if spec.HasAttribute(k) {
			out[k] = v
		}
	}
	return out
}

func (s *Store) mergeLocked(rec *Record, res *ir.Resource) {
	if rec.data == nil {
		rec.data = ir.Attributes{}
	}
	for k, v := range res.Attributes {
		if !rec.model.HasAttribute(k) {
			s.logger.Debug("ignoring undeclared attribute", "model", rec.model.Name, "attribute", k)
			continue
		}
		rec.data[k] = v
	}
}

// DidSaveRecord completes the save of the primary record of a request
// with the normalized server resource. An unsaved record is acknowledged
// under res.ID; a saved record has its pending changes confirmed. In both
// cases the server's attributes are then merged.
func (s *Store) DidSaveRecord(rec *Record, res *ir.Resource) error {
	if res == nil {
		return &Error{Code: ErrCodeMissingID, Message: "save response has no data", Model: rec.model.Name}
	}

	switch rec.State() {
	case StateNewUnsaved:
		if err := s.AcknowledgeCommit(rec, res.ID); err != nil {
			return err
		}
	default:
		s.mu.Lock()
		if rec.id != "" && res.ID != "" && rec.id != res.ID {
			s.mu.Unlock()
			return &Error{Code: ErrCodeDuplicateID, Message: "response id does not match record " + rec.id, Model: rec.model.Name, ID: res.ID}
		}
		s.flushLocked(rec)
		s.commitLocked(rec, rec.id)
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeLocked(rec, res)
	return nil
}

// Push ingests the primary resource and every included resource of a
// normalized document, in order.
func (s *Store) Push(doc *ir.Document) ([]*Record, error) {
	var out []*Record
	if doc == nil {
		return out, nil
	}
	resources := make([]*ir.Resource, 0, 1+len(doc.Included))
	if doc.Data != nil {
		resources = append(resources, doc.Data)
	}
	resources = append(resources, doc.Included...)

	for _, res := range resources {
		rec, err := s.Ingest(res)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Peek returns the record of model with id, or nil.
func (s *Store) Peek(model, id string) *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[idKey(model, id)]
}

// PeekAll returns every record of model in creation order.
func (s *Store) PeekAll(model string) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, r := range s.records {
		if r.model.Name == model {
			out = append(out, r)
		}
	}
	return out
}

// PeekToken returns the record carrying a correlation token, or nil.
func (s *Store) PeekToken(token string) *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byToken[token]
}
