package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agamustafayev/kisi-geyim-barkod/internal/domain"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/store"
)

// CreateSale persists the sale header, its lines, and one outbound stock
// movement per line in a single transaction. Any failure rolls everything
// back, including the stock decrements already applied.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, items []domain.SaleItem) (domain.SaleWithItems, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return domain.SaleWithItems{}, err
	}
	defer tx.Rollback()

	if sale.CustomerID != nil {
		if err := customerExistsTx(ctx, tx, *sale.CustomerID); err != nil {
			return domain.SaleWithItems{}, err
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sales (number, customer_id, gross_amount, discount, net_amount, payment_method, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sale.Number, sale.CustomerID, sale.GrossAmount, sale.Discount, sale.NetAmount,
		sale.PaymentMethod, sale.Note)
	if err != nil {
		return domain.SaleWithItems{}, fmt.Errorf("sqlite: insert sale: %w", err)
	}
	saleID, err := res.LastInsertId()
	if err != nil {
		return domain.SaleWithItems{}, fmt.Errorf("sqlite: sale id: %w", err)
	}

	for _, item := range items {
		var name string
		err := tx.QueryRowContext(ctx,
			`SELECT name FROM products WHERE id = ?`, item.ProductID).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SaleWithItems{}, fmt.Errorf("%w: product %d", store.ErrNotFound, item.ProductID)
		}
		if err != nil {
			return domain.SaleWithItems{}, fmt.Errorf("sqlite: check product: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sale_items (sale_id, product_id, size_id, quantity, unit_price, line_total)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			saleID, item.ProductID, item.SizeID, item.Quantity, item.UnitPrice, item.LineTotal); err != nil {
			return domain.SaleWithItems{}, fmt.Errorf("sqlite: insert sale item: %w", err)
		}

		if _, err := s.adjustStockTx(ctx, tx, domain.StockAdjustment{
			ProductID: item.ProductID,
			SizeID:    item.SizeID,
			Delta:     -item.Quantity,
			Kind:      domain.MovementOut,
			Note:      "sale " + sale.Number,
		}); err != nil {
			return domain.SaleWithItems{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.SaleWithItems{}, fmt.Errorf("sqlite: commit sale: %w", err)
	}
	return s.getSale(ctx, saleID)
}

func (s *Store) GetSale(ctx context.Context, id int64) (domain.SaleWithItems, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSale(ctx, id)
}

const saleSelect = `
SELECT s.id, s.number, s.customer_id,
       CASE WHEN cu.id IS NULL THEN NULL ELSE TRIM(cu.first_name || ' ' || cu.last_name) END,
       s.gross_amount, s.discount, s.net_amount, s.payment_method, s.note, s.created_at
FROM sales s
LEFT JOIN customers cu ON cu.id = s.customer_id`

func scanSale(row interface{ Scan(...any) error }) (domain.Sale, error) {
	var (
		sale   domain.Sale
		custID sql.NullInt64
		cust   sql.NullString
	)
	err := row.Scan(&sale.ID, &sale.Number, &custID, &cust,
		&sale.GrossAmount, &sale.Discount, &sale.NetAmount,
		&sale.PaymentMethod, &sale.Note, &sale.CreatedAt)
	if err != nil {
		return domain.Sale{}, err
	}
	if custID.Valid {
		sale.CustomerID = &custID.Int64
	}
	if cust.Valid {
		sale.CustomerName = &cust.String
	}
	return sale, nil
}

func (s *Store) getSale(ctx context.Context, id int64) (domain.SaleWithItems, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, saleSelect+` WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SaleWithItems{}, fmt.Errorf("%w: sale %d", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.SaleWithItems{}, fmt.Errorf("sqlite: get sale: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT si.id, si.sale_id, si.product_id, si.size_id, si.quantity,
		       si.unit_price, si.line_total, p.name, p.barcode, sz.label,
		       COALESCE((SELECT SUM(ri.quantity) FROM return_items ri
		                 JOIN returns r ON r.id = ri.return_id
		                 WHERE r.sale_id = si.sale_id
		                   AND ri.product_id = si.product_id
		                   AND ri.size_id = si.size_id), 0),
		       si.created_at
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		JOIN sizes sz ON sz.id = si.size_id
		WHERE si.sale_id = ? ORDER BY si.id`, id)
	if err != nil {
		return domain.SaleWithItems{}, fmt.Errorf("sqlite: list sale items: %w", err)
	}
	defer rows.Close()

	var items []domain.SaleItem
	for rows.Next() {
		var it domain.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.SizeID, &it.Quantity,
			&it.UnitPrice, &it.LineTotal, &it.ProductName, &it.Barcode, &it.SizeLabel,
			&it.ReturnedQty, &it.CreatedAt); err != nil {
			return domain.SaleWithItems{}, fmt.Errorf("sqlite: scan sale item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return domain.SaleWithItems{}, err
	}
	return domain.SaleWithItems{Sale: sale, Items: items}, nil
}

// CreateReturn validates every line against the originating sale, restocks
// the goods, and — for credit sales — books a compensating debt payment so
// the customer's balance drops by the returned amount. One transaction.
func (s *Store) CreateReturn(ctx context.Context, ret domain.Return, items []domain.ReturnItem) (domain.ReturnWithItems, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return domain.ReturnWithItems{}, err
	}
	defer tx.Rollback()

	var (
		custID        sql.NullInt64
		paymentMethod string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT customer_id, payment_method FROM sales WHERE id = ?`, ret.SaleID).
		Scan(&custID, &paymentMethod)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReturnWithItems{}, fmt.Errorf("%w: sale %d", store.ErrNotFound, ret.SaleID)
	}
	if err != nil {
		return domain.ReturnWithItems{}, fmt.Errorf("sqlite: read sale: %w", err)
	}
	if custID.Valid {
		ret.CustomerID = &custID.Int64
	}

	// Validate caps before writing anything: previously returned plus the
	// requested quantity must not exceed what the sale sold for that
	// (product, size). Summed, because the same combination can appear on
	// several lines of one sale.
	total := 0.0
	for i := range items {
		item := &items[i]
		var (
			soldQty int
			name    sql.NullString
		)
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(si.quantity), 0), MAX(p.name)
			FROM sale_items si JOIN products p ON p.id = si.product_id
			WHERE si.sale_id = ? AND si.product_id = ? AND si.size_id = ?`,
			ret.SaleID, item.ProductID, item.SizeID).Scan(&soldQty, &name)
		if err != nil {
			return domain.ReturnWithItems{}, fmt.Errorf("sqlite: read sale item: %w", err)
		}
		if soldQty == 0 {
			return domain.ReturnWithItems{}, fmt.Errorf("%w: product %d size %d was not part of sale %d",
				store.ErrValidation, item.ProductID, item.SizeID, ret.SaleID)
		}

		var returned int
		err = tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(ri.quantity), 0)
			FROM return_items ri JOIN returns r ON r.id = ri.return_id
			WHERE r.sale_id = ? AND ri.product_id = ? AND ri.size_id = ?`,
			ret.SaleID, item.ProductID, item.SizeID).Scan(&returned)
		if err != nil {
			return domain.ReturnWithItems{}, fmt.Errorf("sqlite: sum returned: %w", err)
		}
		if returned+item.Quantity > soldQty {
			return domain.ReturnWithItems{}, fmt.Errorf(
				"%w: %s: %d of %d already returned, cannot return %d more",
				store.ErrConflict, name.String, returned, soldQty, item.Quantity)
		}

		item.LineTotal = float64(item.Quantity) * item.UnitPrice
		total += item.LineTotal
	}
	ret.TotalAmount = total

	res, err := tx.ExecContext(ctx,
		`INSERT INTO returns (number, sale_id, customer_id, total_amount, reason, note)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ret.Number, ret.SaleID, ret.CustomerID, ret.TotalAmount, ret.Reason, ret.Note)
	if err != nil {
		return domain.ReturnWithItems{}, fmt.Errorf("sqlite: insert return: %w", err)
	}
	retID, err := res.LastInsertId()
	if err != nil {
		return domain.ReturnWithItems{}, fmt.Errorf("sqlite: return id: %w", err)
	}

	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO return_items (return_id, product_id, size_id, quantity, unit_price, line_total)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			retID, item.ProductID, item.SizeID, item.Quantity, item.UnitPrice, item.LineTotal); err != nil {
			return domain.ReturnWithItems{}, fmt.Errorf("sqlite: insert return item: %w", err)
		}

		if _, err := s.adjustStockTx(ctx, tx, domain.StockAdjustment{
			ProductID: item.ProductID,
			SizeID:    item.SizeID,
			Delta:     item.Quantity,
			Kind:      domain.MovementIn,
			Note:      "return " + ret.Number,
		}); err != nil {
			return domain.ReturnWithItems{}, err
		}
	}

	// A returned credit sale no longer owes its full amount; the
	// compensating payment keeps the recomputed balance honest.
	if paymentMethod == domain.PaymentCredit && ret.CustomerID != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO debt_payments (customer_id, amount, method, note)
			 VALUES (?, ?, ?, ?)`,
			*ret.CustomerID, ret.TotalAmount, domain.PaymentCredit,
			"return "+ret.Number); err != nil {
			return domain.ReturnWithItems{}, fmt.Errorf("sqlite: insert compensating payment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.ReturnWithItems{}, fmt.Errorf("sqlite: commit return: %w", err)
	}
	return s.getReturn(ctx, retID)
}

func (s *Store) GetReturn(ctx context.Context, id int64) (domain.ReturnWithItems, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getReturn(ctx, id)
}

const returnSelect = `
SELECT r.id, r.number, r.sale_id, s.number, r.customer_id,
       CASE WHEN cu.id IS NULL THEN NULL ELSE TRIM(cu.first_name || ' ' || cu.last_name) END,
       r.total_amount, r.reason, r.note, r.created_at
FROM returns r
JOIN sales s ON s.id = r.sale_id
LEFT JOIN customers cu ON cu.id = r.customer_id`

func scanReturn(row interface{ Scan(...any) error }) (domain.Return, error) {
	var (
		ret    domain.Return
		custID sql.NullInt64
		cust   sql.NullString
	)
	err := row.Scan(&ret.ID, &ret.Number, &ret.SaleID, &ret.SaleNumber, &custID, &cust,
		&ret.TotalAmount, &ret.Reason, &ret.Note, &ret.CreatedAt)
	if err != nil {
		return domain.Return{}, err
	}
	if custID.Valid {
		ret.CustomerID = &custID.Int64
	}
	if cust.Valid {
		ret.CustomerName = &cust.String
	}
	return ret, nil
}

func (s *Store) getReturn(ctx context.Context, id int64) (domain.ReturnWithItems, error) {
	ret, err := scanReturn(s.db.QueryRowContext(ctx, returnSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReturnWithItems{}, fmt.Errorf("%w: return %d", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.ReturnWithItems{}, fmt.Errorf("sqlite: get return: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ri.id, ri.return_id, ri.product_id, ri.size_id, ri.quantity,
		       ri.unit_price, ri.line_total, p.name, p.barcode, sz.label, ri.created_at
		FROM return_items ri
		JOIN products p ON p.id = ri.product_id
		JOIN sizes sz ON sz.id = ri.size_id
		WHERE ri.return_id = ? ORDER BY ri.id`, id)
	if err != nil {
		return domain.ReturnWithItems{}, fmt.Errorf("sqlite: list return items: %w", err)
	}
	defer rows.Close()

	var items []domain.ReturnItem
	for rows.Next() {
		var it domain.ReturnItem
		if err := rows.Scan(&it.ID, &it.ReturnID, &it.ProductID, &it.SizeID, &it.Quantity,
			&it.UnitPrice, &it.LineTotal, &it.ProductName, &it.Barcode, &it.SizeLabel,
			&it.CreatedAt); err != nil {
			return domain.ReturnWithItems{}, fmt.Errorf("sqlite: scan return item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return domain.ReturnWithItems{}, err
	}
	return domain.ReturnWithItems{Return: ret, Items: items}, nil
}

func (s *Store) ListReturns(ctx context.Context) ([]domain.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, returnSelect+` ORDER BY r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list returns: %w", err)
	}
	defer rows.Close()

	var out []domain.Return
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan return: %w", err)
		}
		out = append(out, ret)
	}
	return out, rows.Err()
}

// CreateDebtPayment records a repayment. Overpayment is allowed; the
// outstanding balance clamps at zero on read instead.
func (s *Store) CreateDebtPayment(ctx context.Context, payment domain.DebtPayment) (domain.DebtPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return domain.DebtPayment{}, err
	}
	defer tx.Rollback()

	if err := customerExistsTx(ctx, tx, payment.CustomerID); err != nil {
		return domain.DebtPayment{}, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO debt_payments (customer_id, amount, method, note) VALUES (?, ?, ?, ?)`,
		payment.CustomerID, payment.Amount, payment.Method, payment.Note)
	if err != nil {
		return domain.DebtPayment{}, fmt.Errorf("sqlite: insert debt payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.DebtPayment{}, fmt.Errorf("sqlite: debt payment id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.DebtPayment{}, fmt.Errorf("sqlite: commit debt payment: %w", err)
	}
	return s.getDebtPayment(ctx, id)
}

const debtPaymentSelect = `
SELECT dp.id, dp.customer_id, TRIM(cu.first_name || ' ' || cu.last_name),
       dp.amount, dp.method, dp.note, dp.created_at
FROM debt_payments dp
JOIN customers cu ON cu.id = dp.customer_id`

func (s *Store) getDebtPayment(ctx context.Context, id int64) (domain.DebtPayment, error) {
	var p domain.DebtPayment
	err := s.db.QueryRowContext(ctx, debtPaymentSelect+` WHERE dp.id = ?`, id).
		Scan(&p.ID, &p.CustomerID, &p.CustomerName, &p.Amount, &p.Method, &p.Note, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DebtPayment{}, fmt.Errorf("%w: debt payment %d", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.DebtPayment{}, fmt.Errorf("sqlite: get debt payment: %w", err)
	}
	return p, nil
}

func (s *Store) ListDebtPayments(ctx context.Context) ([]domain.DebtPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listDebtPayments(ctx, debtPaymentSelect+` ORDER BY dp.id DESC`)
}

func (s *Store) listDebtPayments(ctx context.Context, query string, args ...any) ([]domain.DebtPayment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list debt payments: %w", err)
	}
	defer rows.Close()

	var out []domain.DebtPayment
	for rows.Next() {
		var p domain.DebtPayment
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.CustomerName, &p.Amount, &p.Method, &p.Note, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan debt payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func customerExistsTx(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM customers WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: customer %d", store.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("sqlite: check customer: %w", err)
	}
	return nil
}
