package normalizer

import (
	"log/slog"

	"github.com/roach88/embedsave/internal/ir"
	"github.com/roach88/embedsave/internal/naming"
	"github.com/roach88/embedsave/internal/records"
)

// RecordStore is the part of the record store reconciliation needs.
type RecordStore interface {
	AllUnsavedOfType(model string) []*records.Record
	FindByCorrelationToken(candidates []*records.Record, token string) *records.Record
	AcknowledgeCommit(rec *records.Record, id string) error
}

// ReconcileEvent describes one record that received its server id.
type ReconcileEvent struct {
	Model  string
	Token  string
	ID     string
	Record *records.Record
}

// Reconciler stamps server-assigned ids onto unsaved in-memory records.
type Reconciler struct {
	store     RecordStore
	inflector *naming.Inflector
	logger    *slog.Logger
	observer  func(ReconcileEvent)
}

// NewReconciler creates a reconciler over store.
func NewReconciler(store RecordStore, inflector *naming.Inflector, logger *slog.Logger, observer func(ReconcileEvent)) *Reconciler {
	if inflector == nil {
		inflector = naming.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:     store,
		inflector: inflector,
		logger:    logger,
		observer:  observer,
	}
}

// Reconcile matches res to the unsaved record carrying its correlation
// token and acknowledges that record's commit under res.ID.
//
// A resource without attributes or without a token is a reference to an
// already persisted record and is ignored, as is a token no unsaved
// record carries. res is returned unchanged in every case.
func (r *Reconciler) Reconcile(res *ir.Resource) *ir.Resource {
	token, ok := res.CorrelationToken()
	if !ok {
		return res
	}

	model := r.inflector.ModelName(res.Type)
	rec := r.store.FindByCorrelationToken(r.store.AllUnsavedOfType(model), token)
	if rec == nil {
		r.logger.Debug("no unsaved record for token", "model", model, "token", token)
		return res
	}

	if err := r.store.AcknowledgeCommit(rec, res.ID); err != nil {
		r.logger.Warn("commit acknowledgement failed", "model", model, "token", token, "id", res.ID, "error", err)
		return res
	}

	r.logger.Info("record reconciled", "model", model, "token", token, "id", res.ID)
	if r.observer != nil {
		r.observer(ReconcileEvent{Model: model, Token: token, ID: res.ID, Record: rec})
	}
	return res
}
