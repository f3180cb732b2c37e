package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"payflow/models"
)

const receiptColumns = "id, user_id, title, date, subtotal, tax_total, grand_total, note, created_at"

func scanReceipt(row interface{ Scan(...any) error }) (models.Receipt, error) {
	var r models.Receipt
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Date, &r.Subtotal, &r.TaxTotal, &r.GrandTotal, &r.Note, &r.CreatedAt)
	r.Items = []models.ReceiptItem{}
	return r, err
}

// ListReceipts returns the user's receipts, most recently created first, with
// their items.
func (s *Store) ListReceipts(ctx context.Context, userID int64) ([]models.Receipt, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT "+receiptColumns+" FROM receipts WHERE user_id = ? ORDER BY created_at DESC, id DESC"), userID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	receipts := []models.Receipt{}
	index := map[int64]int{}
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		index[r.ID] = len(receipts)
		receipts = append(receipts, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := s.queryItems(ctx, `
		SELECT ri.id, ri.receipt_id, ri.date, ri.category, ri.description,
		       ri.quantity, ri.unit_price, ri.tax_rate, ri.line_total
		FROM receipt_items ri
		JOIN receipts r ON r.id = ri.receipt_id
		WHERE r.user_id = ?
		ORDER BY ri.id`, userID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if i, ok := index[it.ReceiptID]; ok {
			receipts[i].Items = append(receipts[i].Items, it)
		}
	}
	return receipts, nil
}

func (s *Store) GetReceipt(ctx context.Context, userID, receiptID int64) (models.Receipt, error) {
	r, err := scanReceipt(s.db.QueryRowContext(ctx,
		s.q("SELECT "+receiptColumns+" FROM receipts WHERE id = ? AND user_id = ?"), receiptID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("get receipt %d: %w", receiptID, err)
	}

	items, err := s.queryItems(ctx, `
		SELECT id, receipt_id, date, category, description, quantity, unit_price, tax_rate, line_total
		FROM receipt_items WHERE receipt_id = ? ORDER BY id`, receiptID)
	if err != nil {
		return r, err
	}
	r.Items = items
	return r, nil
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]models.ReceiptItem, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list receipt items: %w", err)
	}
	defer rows.Close()

	items := []models.ReceiptItem{}
	for rows.Next() {
		var it models.ReceiptItem
		if err := rows.Scan(&it.ID, &it.ReceiptID, &it.Date, &it.Category, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.TaxRate, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("scan receipt item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CreateReceipt inserts r and its items in one transaction. Totals are stored
// as given; callers compute them with ledger.PriceItems.
func (s *Store) CreateReceipt(ctx context.Context, r *models.Receipt) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, s.q(`
			INSERT INTO receipts (user_id, title, date, subtotal, tax_total, grand_total, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			r.UserID, r.Title, r.Date, r.Subtotal, r.TaxTotal, r.GrandTotal, r.Note, r.CreatedAt,
		).Scan(&r.ID)
		if err != nil {
			return fmt.Errorf("insert receipt: %w", err)
		}

		for i := range r.Items {
			it := &r.Items[i]
			it.ReceiptID = r.ID
			err := tx.QueryRowContext(ctx, s.q(`
				INSERT INTO receipt_items (receipt_id, date, category, description, quantity, unit_price, tax_rate, line_total)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
				it.ReceiptID, it.Date, it.Category, it.Description, it.Quantity, it.UnitPrice, it.TaxRate, it.LineTotal,
			).Scan(&it.ID)
			if err != nil {
				return fmt.Errorf("insert receipt item: %w", err)
			}
		}
		return nil
	})
}

// DeleteReceipt removes the receipt; its items cascade.
func (s *Store) DeleteReceipt(ctx context.Context, userID, receiptID int64) error {
	return s.deleteOwned(ctx, "receipts", userID, receiptID)
}
