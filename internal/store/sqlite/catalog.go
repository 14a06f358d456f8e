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

// ---- categories ----

func (s *Store) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if isUniqueViolation(err) {
		return domain.Category{}, fmt.Errorf("%w: category %q already exists", store.ErrConflict, name)
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("sqlite: create category: %w", err)
	}
	id, _ := res.LastInsertId()

	var c domain.Category
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return domain.Category{}, fmt.Errorf("sqlite: read category: %w", err)
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, name string) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id)
	if isUniqueViolation(err) {
		return domain.Category{}, fmt.Errorf("%w: category %q already exists", store.ErrConflict, name)
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("sqlite: update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Category{}, fmt.Errorf("%w: category %d", store.ErrNotFound, id)
	}

	var c domain.Category
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return domain.Category{}, fmt.Errorf("sqlite: read category: %w", err)
	}
	return c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE category_id = ?`, id).Scan(&refs); err != nil {
		return fmt.Errorf("sqlite: count category refs: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w: category is used by %d product(s)", store.ErrConflict, refs)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: category %d", store.ErrNotFound, id)
	}
	return nil
}

// ---- sizes ----

func (s *Store) CreateSize(ctx context.Context, label string) (domain.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT INTO sizes (label) VALUES (?)`, label)
	if isUniqueViolation(err) {
		return domain.Size{}, fmt.Errorf("%w: size %q already exists", store.ErrConflict, label)
	}
	if err != nil {
		return domain.Size{}, fmt.Errorf("sqlite: create size: %w", err)
	}
	id, _ := res.LastInsertId()

	var sz domain.Size
	err = s.db.QueryRowContext(ctx,
		`SELECT id, label, created_at FROM sizes WHERE id = ?`, id).
		Scan(&sz.ID, &sz.Label, &sz.CreatedAt)
	if err != nil {
		return domain.Size{}, fmt.Errorf("sqlite: read size: %w", err)
	}
	return sz, nil
}

func (s *Store) ListSizes(ctx context.Context) ([]domain.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, label, created_at FROM sizes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list sizes: %w", err)
	}
	defer rows.Close()

	var out []domain.Size
	for rows.Next() {
		var sz domain.Size
		if err := rows.Scan(&sz.ID, &sz.Label, &sz.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan size: %w", err)
		}
		out = append(out, sz)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSize(ctx context.Context, id int64, label string) (domain.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE sizes SET label = ? WHERE id = ?`, label, id)
	if isUniqueViolation(err) {
		return domain.Size{}, fmt.Errorf("%w: size %q already exists", store.ErrConflict, label)
	}
	if err != nil {
		return domain.Size{}, fmt.Errorf("sqlite: update size: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Size{}, fmt.Errorf("%w: size %d", store.ErrNotFound, id)
	}

	var sz domain.Size
	err = s.db.QueryRowContext(ctx,
		`SELECT id, label, created_at FROM sizes WHERE id = ?`, id).
		Scan(&sz.ID, &sz.Label, &sz.CreatedAt)
	if err != nil {
		return domain.Size{}, fmt.Errorf("sqlite: read size: %w", err)
	}
	return sz, nil
}

func (s *Store) DeleteSize(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stock WHERE size_id = ?`, id).Scan(&refs); err != nil {
		return fmt.Errorf("sqlite: count size refs: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w: size is used by %d stock record(s)", store.ErrConflict, refs)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sizes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete size: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: size %d", store.ErrNotFound, id)
	}
	return nil
}

// ---- colors ----

func (s *Store) CreateColor(ctx context.Context, name, code string) (domain.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT INTO colors (name, code) VALUES (?, ?)`, name, code)
	if isUniqueViolation(err) {
		return domain.Color{}, fmt.Errorf("%w: color %q already exists", store.ErrConflict, name)
	}
	if err != nil {
		return domain.Color{}, fmt.Errorf("sqlite: create color: %w", err)
	}
	id, _ := res.LastInsertId()

	var c domain.Color
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, code, created_at FROM colors WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Code, &c.CreatedAt)
	if err != nil {
		return domain.Color{}, fmt.Errorf("sqlite: read color: %w", err)
	}
	return c, nil
}

func (s *Store) ListColors(ctx context.Context) ([]domain.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, code, created_at FROM colors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list colors: %w", err)
	}
	defer rows.Close()

	var out []domain.Color
	for rows.Next() {
		var c domain.Color
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan color: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateColor(ctx context.Context, id int64, name, code string) (domain.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE colors SET name = ?, code = ? WHERE id = ?`, name, code, id)
	if isUniqueViolation(err) {
		return domain.Color{}, fmt.Errorf("%w: color %q already exists", store.ErrConflict, name)
	}
	if err != nil {
		return domain.Color{}, fmt.Errorf("sqlite: update color: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Color{}, fmt.Errorf("%w: color %d", store.ErrNotFound, id)
	}

	var c domain.Color
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, code, created_at FROM colors WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Code, &c.CreatedAt)
	if err != nil {
		return domain.Color{}, fmt.Errorf("sqlite: read color: %w", err)
	}
	return c, nil
}

func (s *Store) DeleteColor(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM colors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete color: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: color %d", store.ErrNotFound, id)
	}
	return nil
}

// ---- products ----

const productSelect = `
SELECT p.id, p.barcode, p.name, p.category_id, c.name, p.color, p.brand,
       p.cost_price, p.sale_price, p.description, p.image_path,
       p.created_at, p.updated_at
FROM products p
LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var (
		p     domain.Product
		catID sql.NullInt64
		cat   sql.NullString
	)
	err := row.Scan(&p.ID, &p.Barcode, &p.Name, &catID, &cat, &p.Color, &p.Brand,
		&p.CostPrice, &p.SalePrice, &p.Description, &p.ImagePath,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	if catID.Valid {
		p.CategoryID = &catID.Int64
	}
	if cat.Valid {
		p.CategoryName = &cat.String
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (barcode, name, category_id, color, brand, cost_price, sale_price, description, image_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.Barcode, req.Name, req.CategoryID, req.Color, req.Brand,
		req.CostPrice, req.SalePrice, req.Description, req.ImagePath)
	if isUniqueViolation(err) {
		return domain.Product{}, fmt.Errorf("%w: barcode %q already registered", store.ErrConflict, req.Barcode)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("sqlite: create product: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.getProduct(ctx, id)
}

// UpdateProduct applies only the provided fields. Every value travels as a
// bind parameter.
func (s *Store) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
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
	if req.Barcode != nil {
		add("barcode", *req.Barcode)
	}
	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.CategoryID != nil {
		add("category_id", *req.CategoryID)
	}
	if req.Color != nil {
		add("color", *req.Color)
	}
	if req.Brand != nil {
		add("brand", *req.Brand)
	}
	if req.CostPrice != nil {
		add("cost_price", *req.CostPrice)
	}
	if req.SalePrice != nil {
		add("sale_price", *req.SalePrice)
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if req.ImagePath != nil {
		add("image_path", *req.ImagePath)
	}
	if len(sets) == 0 {
		return s.getProduct(ctx, id)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if isUniqueViolation(err) {
		return domain.Product{}, fmt.Errorf("%w: barcode already registered", store.ErrConflict)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("sqlite: update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Product{}, fmt.Errorf("%w: product %d", store.ErrNotFound, id)
	}
	return s.getProduct(ctx, id)
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: product %d", store.ErrNotFound, id)
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getProduct(ctx, id)
}

func (s *Store) getProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, productSelect+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: product %d", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("sqlite: get product: %w", err)
	}
	return p, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := scanProduct(s.db.QueryRowContext(ctx, productSelect+` WHERE p.barcode = ?`, barcode))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: barcode %q", store.ErrNotFound, barcode)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("sqlite: get product by barcode: %w", err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listProducts(ctx, productSelect+` ORDER BY p.name`)
}

func (s *Store) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	like := "%" + query + "%"
	return s.listProducts(ctx,
		productSelect+` WHERE p.name LIKE ? OR p.barcode LIKE ? OR p.brand LIKE ? ORDER BY p.name`,
		like, like, like)
}

func (s *Store) listProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
