// Package serializer writes an in-memory record graph as a JSON-API
// document with related records embedded inline.
//
// Each relationship field has a Strategy. Fields whose strategy embeds are
// resolved through the record store and written in full under
// relationships[key].data, recursively. Saved records carry their id and
// unsaved records carry their correlation token in attributes.__id__, so
// the server response can be matched back to them.
//
// A VisitedSet shared by the whole walk guarantees that each record is
// written in full at most once. A record reached again is written as an
// identity stub: type plus id or token, without attributes or
// relationships.
package serializer

import (
	"log/slog"
	"sync"

	"github.com/roach88/embedsave/internal/ir"
	"github.com/roach88/embedsave/internal/jsonapi"
	"github.com/roach88/embedsave/internal/naming"
	"github.com/roach88/embedsave/internal/records"
)

// RecordStore resolves relationship fields. loaded is false when the
// relationship is only a link and its records are unknown.
type RecordStore interface {
	ResolveToOne(rec *records.Record, field string) (target *records.Record, loaded bool)
	ResolveToMany(rec *records.Record, field string) (targets []*records.Record, loaded bool)
}

// BaseSerializer writes the type, optional id and attributes of one record.
type BaseSerializer interface {
	SerializeAttributes(rec jsonapi.Source, includeID bool) *ir.Resource
}

// Strategy controls how one relationship field is written.
type Strategy struct {
	// Embed writes the related records inline. When false the field is
	// left out of the document entirely.
	Embed bool

	// Key overrides the wire key. Empty means the inflector's key.
	Key string
}

// Serializer is the graph serializer.
//
// Thread-safety: Serialize calls on one Serializer are serialized by an
// internal mutex because the visited set belongs to the instance.
type Serializer struct {
	mu         sync.Mutex
	store      RecordStore
	base       BaseSerializer
	inflector  *naming.Inflector
	strategies map[string]map[string]Strategy // model -> field -> strategy
	logger     *slog.Logger
	visited    *VisitedSet
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Serializer) {
		s.logger = logger
	}
}

// WithBase replaces the base attribute serializer.
func WithBase(base BaseSerializer) Option {
	return func(s *Serializer) {
		s.base = base
	}
}

// WithInflector replaces the naming inflector.
func WithInflector(inflector *naming.Inflector) Option {
	return func(s *Serializer) {
		s.inflector = inflector
	}
}

// WithStrategy sets the strategy of one field, overriding the schema.
func WithStrategy(model, field string, st Strategy) Option {
	return func(s *Serializer) {
		s.setStrategy(model, field, st)
	}
}

// New creates a serializer whose strategies come from the serializer
// declarations in schema. Fields without a declaration are not embedded.
func New(schema *ir.Schema, store RecordStore, opts ...Option) *Serializer {
	s := &Serializer{
		store:      store,
		inflector:  naming.New(),
		strategies: make(map[string]map[string]Strategy),
		logger:     slog.Default(),
		visited:    NewVisitedSet(),
	}
	if schema != nil {
		for _, sp := range schema.Serializers {
			for field, opts := range sp.Attrs {
				s.setStrategy(sp.Model, field, Strategy{Embed: opts.Serialize, Key: opts.Key})
			}
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.base == nil {
		s.base = jsonapi.NewSerializer(s.inflector)
	}
	return s
}

func (s *Serializer) setStrategy(model, field string, st Strategy) {
	if s.strategies[model] == nil {
		s.strategies[model] = make(map[string]Strategy)
	}
	s.strategies[model][field] = st
}

// StrategyFor returns the strategy of a field.
func (s *Serializer) StrategyFor(model, field string) Strategy {
	return s.strategies[model][field]
}

type serializeOptions struct {
	includeID bool
}

// SerializeOption configures one Serialize call.
type SerializeOption func(*serializeOptions)

// IncludeID writes the root record's id, as update requests need.
func IncludeID() SerializeOption {
	return func(o *serializeOptions) {
		o.includeID = true
	}
}

// Serialize writes rec and the records its strategies embed.
// It never fails: unloaded relationships are left out.
func (s *Serializer) Serialize(rec *records.Record, opts ...SerializeOption) *ir.Document {
	var o serializeOptions
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return &ir.Document{Data: s.serialize(rec, o.includeID, false)}
}

// serialize writes one record. Only the outermost call (nested == false)
// resets the visited set and marks the root; nested calls share it.
func (s *Serializer) serialize(rec *records.Record, includeID, nested bool) *ir.Resource {
	if !nested {
		s.visited.Reset()
		s.visited.MarkVisited(identityKey(rec))
	}

	res := s.base.SerializeAttributes(rec, includeID)

	model := rec.Model()
	for _, rel := range model.Relationships {
		st := s.StrategyFor(model.Name, rel.Name)
		if !st.Embed {
			continue
		}

		key := st.Key
		if key == "" {
			key = s.inflector.KeyForRelationship(rel.Name, rel.Kind)
		}

		linkage, loaded := s.embedRelationship(rec, rel)
		if !loaded {
			s.logger.Debug("relationship not loaded, omitted", "model", model.Name, "field", rel.Name)
			continue
		}
		res.SetRelationship(key, &ir.Relationship{Data: linkage})
	}

	return res
}

// embedRelationship resolves one field and embeds its records in order.
func (s *Serializer) embedRelationship(rec *records.Record, rel ir.RelationshipSpec) (ir.Linkage, bool) {
	if rel.Kind == ir.KindBelongsTo {
		target, loaded := s.store.ResolveToOne(rec, rel.Name)
		if !loaded {
			return ir.Linkage{}, false
		}
		if target == nil {
			return ir.NullLinkage(), true
		}
		return ir.ToOneLinkage(s.embedRecord(target)), true
	}

	targets, loaded := s.store.ResolveToMany(rec, rel.Name)
	if !loaded {
		return ir.Linkage{}, false
	}
	items := make([]*ir.Resource, 0, len(targets))
	for _, target := range targets {
		items = append(items, s.embedRecord(target))
	}
	return ir.ToManyLinkage(items), true
}

// embedRecord writes target in full the first time its identity is seen in
// this call and as an identity stub afterwards.
func (s *Serializer) embedRecord(target *records.Record) *ir.Resource {
	key := identityKey(target)
	if s.visited.Has(key) {
		s.logger.Debug("record already embedded, writing stub", "identity", key)
		stub := ir.NewResource(s.inflector.PayloadType(target.Type()))
		stampIdentity(stub, target)
		return stub
	}

	s.visited.MarkVisited(key)
	res := s.serialize(target, false, true)
	stampIdentity(res, target)
	s.logger.Debug("record embedded", "identity", key)
	return res
}

// stampIdentity writes exactly one identity form: the id of a saved record
// or the correlation token of an unsaved one.
func stampIdentity(res *ir.Resource, rec *records.Record) {
	if id := rec.ID(); id != "" {
		res.ID = id
		delete(res.Attributes, ir.CorrelationKey)
		return
	}
	res.ID = ""
	res.SetCorrelationToken(rec.Token())
}

// identityKey is "<model>:<id>" for saved records and "<model>:<token>"
// otherwise. The model prefix keeps equal ids of different models apart.
func identityKey(rec *records.Record) string {
	if id := rec.ID(); id != "" {
		return rec.Type() + ":" + id
	}
	return rec.Type() + ":" + rec.Token()
}
