package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/embedsave/internal/ir"
)

var (
	// ErrExchangeNotFound is returned when a write references an unknown exchange.
	ErrExchangeNotFound = errors.New("exchange not found")

	// ErrResponseConflict is returned when an exchange already holds a
	// different response.
	ErrResponseConflict = errors.New("exchange already has a different response")
)

// NewExchange builds the journal entry for a save request, computing its
// content-addressed id.
func NewExchange(model, token string, request *ir.Document, seq int64) (ir.Exchange, error) {
	id, err := ir.ExchangeID(model, token, request, seq)
	if err != nil {
		return ir.Exchange{}, fmt.Errorf("new exchange: %w", err)
	}
	return ir.Exchange{
		ID:      id,
		Seq:     seq,
		Model:   model,
		Token:   token,
		Request: request,
	}, nil
}

// WriteExchange inserts a save request. Duplicate ids are silently
// ignored, so journaling the same request twice is a no-op.
// Any response on ex is ignored; use WriteResponse.
func (s *Store) WriteExchange(ctx context.Context, ex ir.Exchange) error {
	request, err := marshalDocument(ex.Request)
	if err != nil {
		return fmt.Errorf("write exchange: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exchanges
		(id, seq, model, token, request)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ex.ID,
		ex.Seq,
		ex.Model,
		ex.Token,
		request,
	)
	if err != nil {
		return fmt.Errorf("write exchange: %w", err)
	}
	return nil
}

// WriteResponse stores the server's response for an exchange.
// Writing the same response again is a no-op; a different one fails with
// ErrResponseConflict.
func (s *Store) WriteResponse(ctx context.Context, exchangeID string, response *ir.Document) error {
	body, err := marshalDocument(response)
	if err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write response: begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT response FROM exchanges WHERE id = ?`, exchangeID).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("write response %s: %w", exchangeID, ErrExchangeNotFound)
	}
	if err != nil {
		return fmt.Errorf("write response: select: %w", err)
	}

	if existing.Valid {
		if existing.String != body {
			return fmt.Errorf("write response %s: %w", exchangeID, ErrResponseConflict)
		}
		return nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE exchanges SET response = ? WHERE id = ?`, body, exchangeID); err != nil {
		return fmt.Errorf("write response: update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write response: commit: %w", err)
	}
	return nil
}

// WriteReconciliation records that a record received its server id.
// Returns the row id and whether a new row was inserted.
//
// Uses ON CONFLICT(exchange_id, model, token) DO NOTHING: normalizing the
// same response twice records each reconciliation once. An existing row
// keeps its original seq and record id.
//
// Note: The exchange referenced by ExchangeID must exist (foreign key constraint).
func (s *Store) WriteReconciliation(ctx context.Context, rec ir.Reconciliation) (id int64, inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write reconciliation: begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO reconciliations
		(exchange_id, seq, model, token, record_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(exchange_id, model, token) DO NOTHING
	`,
		rec.ExchangeID,
		rec.Seq,
		rec.Model,
		rec.Token,
		rec.RecordID,
	)
	if err != nil {
		return 0, false, fmt.Errorf("write reconciliation: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write reconciliation: rows affected: %w", err)
	}

	if rowsAffected > 0 {
		id, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("write reconciliation: last insert id: %w", err)
		}
		inserted = true
	} else {
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM reconciliations
			WHERE exchange_id = ? AND model = ? AND token = ?
		`, rec.ExchangeID, rec.Model, rec.Token).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("write reconciliation: select existing: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write reconciliation: commit: %w", err)
	}
	return id, inserted, nil
}
