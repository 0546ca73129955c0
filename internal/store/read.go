package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/embedsave/internal/ir"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadExchanges returns the journaled exchanges, optionally filtered by
// model ("" returns all). Ordered by seq ASC, id ASC.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ReadExchanges(ctx context.Context, model string) ([]ir.Exchange, error) {
	query := `
		SELECT id, seq, model, token, request, response
		FROM exchanges
	`
	var args []any
	if model != "" {
		query += ` WHERE model = ?`
		args = append(args, model)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	exchanges := []ir.Exchange{}
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchanges: %w", err)
	}
	return exchanges, nil
}

// ReadExchange retrieves a single exchange by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadExchange(ctx context.Context, id string) (ir.Exchange, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, model, token, request, response
		FROM exchanges
		WHERE id = ?
	`, id)
	return scanExchange(row)
}

func scanExchange(row rowScanner) (ir.Exchange, error) {
	var (
		ex       ir.Exchange
		request  sql.NullString
		response sql.NullString
	)
	if err := row.Scan(&ex.ID, &ex.Seq, &ex.Model, &ex.Token, &request, &response); err != nil {
		return ir.Exchange{}, fmt.Errorf("scan exchange: %w", err)
	}

	var err error
	if ex.Request, err = unmarshalDocument(request); err != nil {
		return ir.Exchange{}, fmt.Errorf("exchange %s request: %w", ex.ID, err)
	}
	if ex.Response, err = unmarshalDocument(response); err != nil {
		return ir.Exchange{}, fmt.Errorf("exchange %s response: %w", ex.ID, err)
	}
	return ex, nil
}

// ReadReconciliations returns the reconciliations recorded for an
// exchange ("" returns all). Ordered by seq ASC, id ASC.
func (s *Store) ReadReconciliations(ctx context.Context, exchangeID string) ([]ir.Reconciliation, error) {
	query := `
		SELECT id, exchange_id, seq, model, token, record_id
		FROM reconciliations
	`
	var args []any
	if exchangeID != "" {
		query += ` WHERE exchange_id = ?`
		args = append(args, exchangeID)
	}
	query += ` ORDER BY seq ASC, id ASC`
	return s.queryReconciliations(ctx, query, args...)
}

// ReadReconciliationsForToken returns every reconciliation of the record
// carrying token, across exchanges.
func (s *Store) ReadReconciliationsForToken(ctx context.Context, token string) ([]ir.Reconciliation, error) {
	return s.queryReconciliations(ctx, `
		SELECT id, exchange_id, seq, model, token, record_id
		FROM reconciliations
		WHERE token = ?
		ORDER BY seq ASC, id ASC
	`, token)
}

func (s *Store) queryReconciliations(ctx context.Context, query string, args ...any) ([]ir.Reconciliation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reconciliations: %w", err)
	}
	defer rows.Close()

	out := []ir.Reconciliation{}
	for rows.Next() {
		var r ir.Reconciliation
		if err := rows.Scan(&r.ID, &r.ExchangeID, &r.Seq, &r.Model, &r.Token, &r.RecordID); err != nil {
			return nil, fmt.Errorf("scan reconciliation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconciliations: %w", err)
	}
	return out, nil
}

// LastSeq returns the highest seq in the journal, or 0 when it is empty.
// A Clock created with NewClockAt(LastSeq) continues the sequence.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(
			COALESCE((SELECT MAX(seq) FROM exchanges), 0),
			COALESCE((SELECT MAX(seq) FROM reconciliations), 0)
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}
