package harness

import (
	"github.com/roach88/embedsave/internal/ir"
	"github.com/roach88/embedsave/internal/records"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Request is the serialized save request, nil without a serialize step.
	Request *ir.Document `json:"request,omitempty"`

	// Response is the normalized response, nil without a response.
	Response *ir.Document `json:"response,omitempty"`

	// ExchangeID is the journal id of the request.
	ExchangeID string `json:"exchange_id,omitempty"`

	// Reconciliations lists the journaled reconciliations in seq order.
	Reconciliations []ir.Reconciliation `json:"reconciliations"`

	// Records maps fixture refs to the records they created.
	Records map[string]*records.Record `json:"-"`

	// Store is the record store the scenario ran against.
	Store *records.Store `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:            true,
		Errors:          []string{},
		Reconciliations: []ir.Reconciliation{},
		Records:         make(map[string]*records.Record),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
