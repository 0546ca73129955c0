package ir

// Journal records are store-layer types. Reconciliations use an
// auto-increment id for the foreign key; exchanges are content-addressed.

// Exchange is one journaled save request and, once it arrives, the
// server's response.
type Exchange struct {
	ID       string    `json:"id"` // ExchangeID(model, token, request, seq)
	Seq      int64     `json:"seq"`
	Model    string    `json:"model"`
	Token    string    `json:"token"` // correlation token of the primary record
	Request  *Document `json:"request"`
	Response *Document `json:"response,omitempty"` // nil until WriteResponse
}

// Reconciliation records that an unsaved record received its server id
// while a response was normalized.
type Reconciliation struct {
	ID         int64  `json:"id"`
	ExchangeID string `json:"exchange_id"`
	Seq        int64  `json:"seq"`
	Model      string `json:"model"`
	Token      string `json:"token"`
	RecordID   string `json:"record_id"`
}
