// Package sqlite implements store.Repository on a single embedded database
// file. One process owns the file; the store serializes all access through
// a single connection plus a store-level mutex.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/agamustafayev/kisi-geyim-barkod/internal/domain"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/store"
)

// Options tune store behavior at open time.
type Options struct {
	// AllowNegativeStock permits sales to drive a (product, size) quantity
	// below zero. When false the whole sale rolls back instead.
	AllowNegativeStock bool
}

type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	opts Options
}

var _ store.Repository = (*Store)(nil)

// Open opens (creating if needed) the database file at path, enables WAL
// and foreign keys, and verifies connectivity.
func Open(path string, opts Options) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}
	return &Store{db: db, opts: opts}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// begin starts a write transaction. Callers must defer tx.Rollback().
func (s *Store) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	return tx, nil
}

// adjustStockTx applies one signed stock delta inside the caller's
// transaction: upserts the (product, size) quantity and appends the audit
// movement in the same unit of work. Returns the affected stock row id.
func (s *Store) adjustStockTx(ctx context.Context, tx *sql.Tx, adj domain.StockAdjustment) (int64, error) {
	if adj.Delta == 0 {
		return 0, fmt.Errorf("%w: stock delta must be non-zero", store.ErrValidation)
	}

	var (
		stockID int64
		prev    int
	)
	found := true
	err := tx.QueryRowContext(ctx,
		`SELECT id, quantity FROM stock WHERE product_id = ? AND size_id = ?`,
		adj.ProductID, adj.SizeID).Scan(&stockID, &prev)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return 0, fmt.Errorf("sqlite: read stock: %w", err)
	}

	next := prev + adj.Delta
	if next < 0 && !s.opts.AllowNegativeStock {
		return 0, fmt.Errorf("%w: insufficient stock for product %d size %d (have %d, need %d)",
			store.ErrConflict, adj.ProductID, adj.SizeID, prev, -adj.Delta)
	}

	if found {
		if _, err := tx.ExecContext(ctx,
			`UPDATE stock SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			next, stockID); err != nil {
			return 0, fmt.Errorf("sqlite: update stock: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO stock (product_id, size_id, quantity) VALUES (?, ?, ?)`,
			adj.ProductID, adj.SizeID, next)
		if err != nil {
			return 0, fmt.Errorf("sqlite: insert stock: %w", err)
		}
		stockID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("sqlite: stock id: %w", err)
		}
	}

	qty := adj.Delta
	if qty < 0 {
		qty = -qty
	}
	var totalValue *float64
	if adj.UnitCost != nil {
		v := *adj.UnitCost * float64(qty)
		totalValue = &v
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO stock_movements (product_id, size_id, kind, quantity, prev_quantity, new_quantity, unit_cost, total_value, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		adj.ProductID, adj.SizeID, adj.Kind, qty, prev, next, adj.UnitCost, totalValue, adj.Note); err != nil {
		return 0, fmt.Errorf("sqlite: insert movement: %w", err)
	}
	return stockID, nil
}

// AdjustStock applies one signed delta and its movement row atomically.
func (s *Store) AdjustStock(ctx context.Context, adj domain.StockAdjustment) (domain.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return domain.Stock{}, err
	}
	defer tx.Rollback()

	stockID, err := s.adjustStockTx(ctx, tx, adj)
	if err != nil {
		return domain.Stock{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Stock{}, fmt.Errorf("sqlite: commit stock adjustment: %w", err)
	}
	return s.getStock(ctx, stockID)
}

const stockSelect = `
SELECT st.id, st.product_id, st.size_id, st.quantity, st.min_quantity,
       p.name, p.barcode, p.category_id, c.name, sz.label,
       st.created_at, st.updated_at
FROM stock st
JOIN products p ON p.id = st.product_id
JOIN sizes sz ON sz.id = st.size_id
LEFT JOIN categories c ON c.id = p.category_id`

func scanStock(row interface{ Scan(...any) error }) (domain.Stock, error) {
	var (
		st    domain.Stock
		catID sql.NullInt64
		cat   sql.NullString
	)
	err := row.Scan(&st.ID, &st.ProductID, &st.SizeID, &st.Quantity, &st.MinQuantity,
		&st.ProductName, &st.Barcode, &catID, &cat, &st.SizeLabel,
		&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return domain.Stock{}, err
	}
	if catID.Valid {
		st.CategoryID = &catID.Int64
	}
	if cat.Valid {
		st.CategoryName = &cat.String
	}
	return st, nil
}

func (s *Store) getStock(ctx context.Context, id int64) (domain.Stock, error) {
	st, err := scanStock(s.db.QueryRowContext(ctx, stockSelect+` WHERE st.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Stock{}, fmt.Errorf("%w: stock %d", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Stock{}, fmt.Errorf("sqlite: get stock: %w", err)
	}
	return st, nil
}

// AddStock receives goods: increments the (product, size) quantity, records
// an inbound movement carrying the purchase cost, and optionally updates the
// alert threshold.
func (s *Store) AddStock(ctx context.Context, req domain.StockAddRequest, unitCost *float64) (domain.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Quantity <= 0 {
		return domain.Stock{}, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
	}
	if err := s.productExists(ctx, req.ProductID); err != nil {
		return domain.Stock{}, err
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return domain.Stock{}, err
	}
	defer tx.Rollback()

	stockID, err := s.adjustStockTx(ctx, tx, domain.StockAdjustment{
		ProductID: req.ProductID,
		SizeID:    req.SizeID,
		Delta:     req.Quantity,
		Kind:      domain.MovementIn,
		UnitCost:  unitCost,
		Note:      "goods received",
	})
	if err != nil {
		return domain.Stock{}, err
	}
	if req.MinQuantity != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE stock SET min_quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			*req.MinQuantity, stockID); err != nil {
			return domain.Stock{}, fmt.Errorf("sqlite: update min quantity: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Stock{}, fmt.Errorf("sqlite: commit add stock: %w", err)
	}
	return s.getStock(ctx, stockID)
}

// SetStock corrects a stock row to an absolute quantity, logging the
// difference as a corrective movement.
func (s *Store) SetStock(ctx context.Context, id int64, req domain.StockSetRequest) (domain.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Quantity < 0 {
		return domain.Stock{}, fmt.Errorf("%w: quantity must not be negative", store.ErrValidation)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return domain.Stock{}, err
	}
	defer tx.Rollback()

	var (
		productID, sizeID int64
		current           int
	)
	err = tx.QueryRowContext(ctx,
		`SELECT product_id, size_id, quantity FROM stock WHERE id = ?`, id).
		Scan(&productID, &sizeID, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Stock{}, fmt.Errorf("%w: stock %d", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Stock{}, fmt.Errorf("sqlite: read stock: %w", err)
	}

	if delta := req.Quantity - current; delta != 0 {
		kind := domain.MovementIn
		if delta < 0 {
			kind = domain.MovementOut
		}
		if _, err := s.adjustStockTx(ctx, tx, domain.StockAdjustment{
			ProductID: productID,
			SizeID:    sizeID,
			Delta:     delta,
			Kind:      kind,
			Note:      "manual correction",
		}); err != nil {
			return domain.Stock{}, err
		}
	}
	if req.MinQuantity != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE stock SET min_quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			*req.MinQuantity, id); err != nil {
			return domain.Stock{}, fmt.Errorf("sqlite: update min quantity: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Stock{}, fmt.Errorf("sqlite: commit set stock: %w", err)
	}
	return s.getStock(ctx, id)
}

// DeleteStock removes a stock row, logging its remaining quantity as an
// outbound movement so the ledger still sums to the truth.
func (s *Store) DeleteStock(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		productID, sizeID int64
		current           int
	)
	err = tx.QueryRowContext(ctx,
		`SELECT product_id, size_id, quantity FROM stock WHERE id = ?`, id).
		Scan(&productID, &sizeID, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: stock %d", store.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("sqlite: read stock: %w", err)
	}

	if current != 0 {
		qty := current
		kind := domain.MovementOut
		if current < 0 {
			qty = -current
			kind = domain.MovementIn
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stock_movements (product_id, size_id, kind, quantity, prev_quantity, new_quantity, note)
			 VALUES (?, ?, ?, ?, ?, 0, 'stock record removed')`,
			productID, sizeID, kind, qty, current); err != nil {
			return fmt.Errorf("sqlite: insert movement: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stock WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: delete stock: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit delete stock: %w", err)
	}
	return nil
}

func (s *Store) ListStock(ctx context.Context) ([]domain.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listStock(ctx, stockSelect+` ORDER BY p.name, sz.label`)
}

func (s *Store) ListStockByProduct(ctx context.Context, productID int64) ([]domain.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listStock(ctx, stockSelect+` WHERE st.product_id = ? ORDER BY sz.label`, productID)
}

func (s *Store) listStock(ctx context.Context, query string, args ...any) ([]domain.Stock, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list stock: %w", err)
	}
	defer rows.Close()

	var out []domain.Stock
	for rows.Next() {
		st, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan stock: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) ListMovements(ctx context.Context, productID int64) ([]domain.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, size_id, kind, quantity, prev_quantity, new_quantity, unit_cost, total_value, note, created_at
		 FROM stock_movements WHERE product_id = ? ORDER BY id DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list movements: %w", err)
	}
	defer rows.Close()

	var out []domain.StockMovement
	for rows.Next() {
		var (
			m          domain.StockMovement
			prev, next sql.NullInt64
			cost, val  sql.NullFloat64
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &m.SizeID, &m.Kind, &m.Quantity,
			&prev, &next, &cost, &val, &m.Note, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan movement: %w", err)
		}
		if prev.Valid {
			p := int(prev.Int64)
			m.PrevQuantity = &p
		}
		if next.Valid {
			n := int(next.Int64)
			m.NewQuantity = &n
		}
		if cost.Valid {
			m.UnitCost = &cost.Float64
		}
		if val.Valid {
			m.TotalValue = &val.Float64
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) productExists(ctx context.Context, id int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: product %d", store.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("sqlite: check product: %w", err)
	}
	return nil
}
