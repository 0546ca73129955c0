// Package normalizer reconciles a save response with the in-memory records
// that were sent.
//
// The response may echo embedded records inline under relationships, list
// them in the top-level included table, or both. Every resource that
// carries a correlation token is matched to the unsaved record that sent
// it, which then receives the server id and becomes saved.
//
// Each linkage item is visited at most once per call. The guard is a
// marker on the item itself, so it lives exactly as long as the response
// being walked.
package normalizer

import (
	"fmt"
	"log/slog"

	"github.com/roach88/embedsave/internal/ir"
	"github.com/roach88/embedsave/internal/jsonapi"
	"github.com/roach88/embedsave/internal/naming"
)

// BaseNormalizer converts the reconciled document into store shape.
type BaseNormalizer interface {
	NormalizeResponse(doc *ir.Document) (*ir.Document, error)
}

// Normalizer is the graph normalizer.
type Normalizer struct {
	store     RecordStore
	base      BaseNormalizer
	inflector *naming.Inflector
	logger    *slog.Logger
	observer  func(ReconcileEvent)

	reconciler *Reconciler
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// WithBase replaces the base normalizer.
func WithBase(base BaseNormalizer) Option {
	return func(n *Normalizer) {
		n.base = base
	}
}

// WithInflector replaces the naming inflector.
func WithInflector(inflector *naming.Inflector) Option {
	return func(n *Normalizer) {
		n.inflector = inflector
	}
}

// WithObserver registers fn to be called after each successful
// reconciliation, in walk order.
func WithObserver(fn func(ReconcileEvent)) Option {
	return func(n *Normalizer) {
		n.observer = fn
	}
}

// New creates a normalizer that reconciles against store.
func New(store RecordStore, opts ...Option) *Normalizer {
	n := &Normalizer{
		store:     store,
		inflector: naming.New(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.base == nil {
		n.base = jsonapi.NewNormalizer(n.inflector)
	}
	n.reconciler = NewReconciler(store, n.inflector, n.logger, n.observer)
	return n
}

// Reconciler returns the reconciliation primitive used by the walk.
func (n *Normalizer) Reconciler() *Reconciler {
	return n.reconciler
}

// NormalizeSaveResponse reconciles every tokened resource in doc, then
// returns the base normalizer's result. Missing data, links-only
// relationships, null linkages and unknown tokens are skipped; only a
// failing base normalizer returns an error.
//
// The walk writes normalized markers onto doc's resources, so a document
// can be normalized only once.
func (n *Normalizer) NormalizeSaveResponse(doc *ir.Document) (*ir.Document, error) {
	if doc == nil {
		return n.base.NormalizeResponse(doc)
	}

	included := make(map[string]*ir.Resource, len(doc.Included))
	for _, res := range doc.Included {
		if res != nil && res.ID != "" {
			included[res.ID] = res
		}
	}

	if doc.Data != nil {
		n.normalizeRelationships(doc.Data, included)
	}

	// Every included entry is reconciled here, once, whatever references it.
	for _, res := range doc.Included {
		if res == nil {
			continue
		}
		n.normalizeRelationships(res, included)
		n.reconciler.Reconcile(res)
	}

	out, err := n.base.NormalizeResponse(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize save response: %w", err)
	}
	return out, nil
}

// normalizeRelationships walks each relationship of res that carries data.
func (n *Normalizer) normalizeRelationships(res *ir.Resource, included map[string]*ir.Resource) {
	for _, key := range res.RelationshipKeys() {
		rel := res.Relationships[key]
		if !rel.HasData() || rel.Data.IsNull() {
			continue
		}
		n.normalizeRelationship(rel.Data, included)
	}
}

// normalizeRelationship applies normalizeRelationshipItem to a to-one
// resource or to every item of a to-many linkage.
func (n *Normalizer) normalizeRelationship(linkage ir.Linkage, included map[string]*ir.Resource) {
	for _, item := range linkage.Items() {
		n.normalizeRelationshipItem(item, included)
	}
}

// normalizeRelationshipItem reconciles one linkage item after its own
// relationships. Items with an included counterpart are left to the
// included pass.
func (n *Normalizer) normalizeRelationshipItem(item *ir.Resource, included map[string]*ir.Resource) {
	if item == nil || item.MarkNormalized() {
		return
	}

	if item.ID != "" {
		if _, ok := included[item.ID]; ok {
			n.logger.Debug("linkage item resolved from included", "type", item.Type, "id", item.ID)
			return
		}
	}

	n.normalizeRelationships(item, included)
	n.reconciler.Reconcile(item)
}
