package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sizes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS colors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	code TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	barcode TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
	color TEXT NOT NULL DEFAULT '',
	brand TEXT NOT NULL DEFAULT '',
	cost_price REAL NOT NULL DEFAULT 0,
	sale_price REAL NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	image_path TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS stock (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	size_id INTEGER NOT NULL REFERENCES sizes(id),
	quantity INTEGER NOT NULL DEFAULT 0,
	min_quantity INTEGER NOT NULL DEFAULT 5,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(product_id, size_id)
);

CREATE TABLE IF NOT EXISTS stock_movements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL,
	size_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	prev_quantity INTEGER,
	new_quantity INTEGER,
	unit_cost REAL,
	total_value REAL,
	note TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS customers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL DEFAULT '',
	phone TEXT UNIQUE,
	note TEXT NOT NULL DEFAULT '',
	opening_debt REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sales (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	number TEXT NOT NULL UNIQUE,
	customer_id INTEGER REFERENCES customers(id) ON DELETE SET NULL,
	gross_amount REAL NOT NULL DEFAULT 0,
	discount REAL NOT NULL DEFAULT 0,
	net_amount REAL NOT NULL DEFAULT 0,
	payment_method TEXT NOT NULL DEFAULT 'cash',
	note TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sale_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sale_id INTEGER NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
	product_id INTEGER NOT NULL,
	size_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	unit_price REAL NOT NULL,
	line_total REAL NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS returns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	number TEXT NOT NULL UNIQUE,
	sale_id INTEGER NOT NULL REFERENCES sales(id),
	customer_id INTEGER REFERENCES customers(id) ON DELETE SET NULL,
	total_amount REAL NOT NULL DEFAULT 0,
	reason TEXT NOT NULL DEFAULT '',
	note TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS return_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	return_id INTEGER NOT NULL REFERENCES returns(id) ON DELETE CASCADE,
	product_id INTEGER NOT NULL,
	size_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	unit_price REAL NOT NULL,
	line_total REAL NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS debt_payments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_id INTEGER NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
	amount REAL NOT NULL,
	method TEXT NOT NULL DEFAULT 'cash',
	note TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	store_name TEXT NOT NULL DEFAULT 'My Store',
	logo_path TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	whatsapp TEXT NOT NULL DEFAULT '',
	instagram TEXT NOT NULL DEFAULT '',
	tiktok TEXT NOT NULL DEFAULT '',
	sizes_enabled INTEGER NOT NULL DEFAULT 1,
	lock_passcode TEXT NOT NULL DEFAULT '',
	store_name_on_label INTEGER NOT NULL DEFAULT 1,
	barcode_printer TEXT NOT NULL DEFAULT '',
	receipt_printer TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'staff',
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode);
CREATE INDEX IF NOT EXISTS idx_stock_product ON stock(product_id);
CREATE INDEX IF NOT EXISTS idx_movements_product ON stock_movements(product_id);
CREATE INDEX IF NOT EXISTS idx_sales_created ON sales(created_at);
CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id);
CREATE INDEX IF NOT EXISTS idx_returns_sale ON returns(sale_id);
CREATE INDEX IF NOT EXISTS idx_debt_payments_customer ON debt_payments(customer_id);
`

// Migrate creates missing tables and indexes, adds columns introduced after
// the first release, and seeds reference data. Safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}

	// Columns added after the initial schema shipped. Older database files
	// pick them up here; CREATE TABLE IF NOT EXISTS will not.
	additive := []struct {
		table, column, ddl string
	}{
		{"products", "brand", "ALTER TABLE products ADD COLUMN brand TEXT NOT NULL DEFAULT ''"},
		{"products", "image_path", "ALTER TABLE products ADD COLUMN image_path TEXT NOT NULL DEFAULT ''"},
		{"stock_movements", "unit_cost", "ALTER TABLE stock_movements ADD COLUMN unit_cost REAL"},
		{"stock_movements", "total_value", "ALTER TABLE stock_movements ADD COLUMN total_value REAL"},
		{"settings", "barcode_printer", "ALTER TABLE settings ADD COLUMN barcode_printer TEXT NOT NULL DEFAULT ''"},
		{"settings", "receipt_printer", "ALTER TABLE settings ADD COLUMN receipt_printer TEXT NOT NULL DEFAULT ''"},
	}
	for _, a := range additive {
		ok, err := s.hasColumn(ctx, a.table, a.column)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := s.db.ExecContext(ctx, a.ddl); err != nil {
				return fmt.Errorf("sqlite: add %s.%s: %w", a.table, a.column, err)
			}
		}
	}

	return s.seed(ctx)
}

func (s *Store) hasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("sqlite: table_info %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (s *Store) seed(ctx context.Context) error {
	sizes := []string{"XS", "S", "M", "L", "XL", "XXL", "XXXL",
		"38", "39", "40", "41", "42", "43", "44", "45", "46", "47", "48", "49", "50"}
	for _, label := range sizes {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO sizes (label) VALUES (?)`, label); err != nil {
			return fmt.Errorf("sqlite: seed sizes: %w", err)
		}
	}

	categories := []string{"Trousers", "Shirt", "Footwear", "Suit", "Accessory"}
	for _, name := range categories {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("sqlite: seed categories: %w", err)
		}
	}

	colors := []struct{ name, code string }{
		{"Black", "#000000"}, {"White", "#FFFFFF"}, {"Red", "#FF0000"},
		{"Blue", "#0000FF"}, {"Navy", "#000080"}, {"Gray", "#808080"},
		{"Green", "#008000"}, {"Yellow", "#FFFF00"}, {"Brown", "#8B4513"},
		{"Beige", "#F5F5DC"},
	}
	for _, c := range colors {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO colors (name, code) VALUES (?, ?)`, c.name, c.code); err != nil {
			return fmt.Errorf("sqlite: seed colors: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (id) VALUES (1)`); err != nil {
		return fmt.Errorf("sqlite: seed settings: %w", err)
	}

	var userCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&userCount); err != nil {
		return fmt.Errorf("sqlite: count users: %w", err)
	}
	if userCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("sqlite: hash bootstrap password: %w", err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO users (first_name, last_name, username, password_hash, role, active)
			 VALUES ('Admin', '', 'admin', ?, 'admin', 1)`, string(hash)); err != nil {
			return fmt.Errorf("sqlite: seed admin user: %w", err)
		}
	}
	return nil
}
