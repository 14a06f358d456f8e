package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/agamustafayev/kisi-geyim-barkod/internal/domain"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/store"
)

const customerSelect = `
SELECT id, first_name, last_name, phone, note, opening_debt, created_at, updated_at
FROM customers`

func scanCustomer(row interface{ Scan(...any) error }) (domain.Customer, error) {
	var (
		c     domain.Customer
		phone sql.NullString
	)
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &phone, &c.Note,
		&c.OpeningDebt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Customer{}, err
	}
	c.Phone = phone.String
	return c, nil
}

// phoneValue maps an empty phone to NULL so the uniqueness constraint only
// applies to customers that actually have one.
func phoneValue(phone string) any {
	if phone == "" {
		return nil
	}
	return phone
}

func (s *Store) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (first_name, last_name, phone, note, opening_debt)
		 VALUES (?, ?, ?, ?, ?)`,
		req.FirstName, req.LastName, phoneValue(req.Phone), req.Note, req.OpeningDebt)
	if isUniqueViolation(err) {
		return domain.Customer{}, fmt.Errorf("%w: phone %s already registered", store.ErrConflict, req.Phone)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("sqlite: create customer: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.getCustomer(ctx, id)
}

// UpdateCustomer applies only the provided fields. Every value is bound as
// a parameter; nothing from the request is spliced into the SQL text.
func (s *Store) UpdateCustomer(ctx context.Context, id int64, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if req.FirstName != nil {
		add("first_name", *req.FirstName)
	}
	if req.LastName != nil {
		add("last_name", *req.LastName)
	}
	if req.Phone != nil {
		add("phone", phoneValue(*req.Phone))
	}
	if req.Note != nil {
		add("note", *req.Note)
	}
	if req.OpeningDebt != nil {
		add("opening_debt", *req.OpeningDebt)
	}
	if len(sets) == 0 {
		return s.getCustomer(ctx, id)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE customers SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if isUniqueViolation(err) {
		return domain.Customer{}, fmt.Errorf("%w: phone already registered", store.ErrConflict)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("sqlite: update customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Customer{}, fmt.Errorf("%w: customer %d", store.ErrNotFound, id)
	}
	return s.getCustomer(ctx, id)
}

func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: customer %d", store.ErrNotFound, id)
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCustomer(ctx, id)
}

func (s *Store) getCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, customerSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, fmt.Errorf("%w: customer %d", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("sqlite: get customer: %w", err)
	}
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCustomers(ctx, customerSelect+` ORDER BY first_name, last_name`)
}

func (s *Store) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	like := "%" + query + "%"
	return s.listCustomers(ctx,
		customerSelect+` WHERE first_name LIKE ? OR last_name LIKE ? OR phone LIKE ? ORDER BY first_name, last_name`,
		like, like, like)
}

func (s *Store) listCustomers(ctx context.Context, query string, args ...any) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CustomerSales(ctx context.Context, customerID int64) ([]domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		saleSelect+` WHERE s.customer_id = ? ORDER BY s.id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: customer sales: %w", err)
	}
	defer rows.Close()

	var out []domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan sale: %w", err)
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

func (s *Store) CustomerPayments(ctx context.Context, customerID int64) ([]domain.DebtPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listDebtPayments(ctx,
		debtPaymentSelect+` WHERE dp.customer_id = ? ORDER BY dp.id DESC`, customerID)
}

// OutstandingDebt recomputes the balance from the ledger every time:
// opening debt plus credit-sale totals minus every payment, clamped at
// zero. Nothing is cached or stored.
func (s *Store) OutstandingDebt(ctx context.Context, customerID int64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var opening float64
	err := s.db.QueryRowContext(ctx,
		`SELECT opening_debt FROM customers WHERE id = ?`, customerID).Scan(&opening)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: customer %d", store.ErrNotFound, customerID)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: read customer: %w", err)
	}

	var creditSales float64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(net_amount), 0) FROM sales WHERE customer_id = ? AND payment_method = ?`,
		customerID, domain.PaymentCredit).Scan(&creditSales); err != nil {
		return 0, fmt.Errorf("sqlite: sum credit sales: %w", err)
	}

	var paid float64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM debt_payments WHERE customer_id = ?`,
		customerID).Scan(&paid); err != nil {
		return 0, fmt.Errorf("sqlite: sum payments: %w", err)
	}

	debt := opening + creditSales - paid
	if debt < 0 {
		debt = 0
	}
	return debt, nil
}
