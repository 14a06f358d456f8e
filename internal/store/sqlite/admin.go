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

// ---- settings ----

const settingsSelect = `
SELECT store_name, logo_path, phone, address, whatsapp, instagram, tiktok,
       sizes_enabled, lock_passcode, store_name_on_label,
       barcode_printer, receipt_printer, updated_at
FROM settings WHERE id = 1`

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSettings(ctx)
}

func (s *Store) getSettings(ctx context.Context) (domain.Settings, error) {
	var st domain.Settings
	err := s.db.QueryRowContext(ctx, settingsSelect).Scan(
		&st.StoreName, &st.LogoPath, &st.Phone, &st.Address,
		&st.Whatsapp, &st.Instagram, &st.TikTok,
		&st.SizesEnabled, &st.LockPasscode, &st.StoreNameOnLabel,
		&st.BarcodePrinter, &st.ReceiptPrinter, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Settings{}, fmt.Errorf("%w: settings", store.ErrNotFound)
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("sqlite: get settings: %w", err)
	}
	return st, nil
}

func (s *Store) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
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
	if req.StoreName != nil {
		add("store_name", *req.StoreName)
	}
	if req.LogoPath != nil {
		add("logo_path", *req.LogoPath)
	}
	if req.Phone != nil {
		add("phone", *req.Phone)
	}
	if req.Address != nil {
		add("address", *req.Address)
	}
	if req.Whatsapp != nil {
		add("whatsapp", *req.Whatsapp)
	}
	if req.Instagram != nil {
		add("instagram", *req.Instagram)
	}
	if req.TikTok != nil {
		add("tiktok", *req.TikTok)
	}
	if req.SizesEnabled != nil {
		add("sizes_enabled", *req.SizesEnabled)
	}
	if req.LockPasscode != nil {
		add("lock_passcode", *req.LockPasscode)
	}
	if req.StoreNameOnLabel != nil {
		add("store_name_on_label", *req.StoreNameOnLabel)
	}
	if req.BarcodePrinter != nil {
		add("barcode_printer", *req.BarcodePrinter)
	}
	if req.ReceiptPrinter != nil {
		add("receipt_printer", *req.ReceiptPrinter)
	}
	if len(sets) == 0 {
		return s.getSettings(ctx)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	if _, err := s.db.ExecContext(ctx,
		"UPDATE settings SET "+strings.Join(sets, ", ")+" WHERE id = 1", args...); err != nil {
		return domain.Settings{}, fmt.Errorf("sqlite: update settings: %w", err)
	}
	return s.getSettings(ctx)
}

// ---- users ----

const userSelect = `
SELECT id, first_name, last_name, username, password_hash, role, active, created_at, updated_at
FROM users`

func scanUserAccount(row interface{ Scan(...any) error }) (domain.UserAccount, error) {
	var u domain.UserAccount
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.PasswordHash,
		&u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, account domain.UserAccount) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, username, password_hash, role, active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		account.FirstName, account.LastName, account.Username, account.PasswordHash,
		account.Role, account.Active)
	if isUniqueViolation(err) {
		return domain.User{}, fmt.Errorf("%w: username %q already taken", store.ErrConflict, account.Username)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("sqlite: create user: %w", err)
	}
	id, _ := res.LastInsertId()

	u, err := scanUserAccount(s.db.QueryRowContext(ctx, userSelect+` WHERE id = ?`, id))
	if err != nil {
		return domain.User{}, fmt.Errorf("sqlite: read user: %w", err)
	}
	return u.User, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, userSelect+` ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUserAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan user: %w", err)
		}
		out = append(out, u.User)
	}
	return out, rows.Err()
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := scanUserAccount(s.db.QueryRowContext(ctx, userSelect+` WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserAccount{}, fmt.Errorf("%w: user %q", store.ErrNotFound, username)
	}
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("sqlite: get user: %w", err)
	}
	return u, nil
}

// UpdateUser applies a partial update. Demoting or deactivating the last
// active admin is rejected so the store can never lock itself out.
func (s *Store) UpdateUser(ctx context.Context, id int64, patch store.UserPatch) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	var (
		role   string
		active bool
	)
	err = tx.QueryRowContext(ctx, `SELECT role, active FROM users WHERE id = ?`, id).
		Scan(&role, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("%w: user %d", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("sqlite: read user: %w", err)
	}

	demotes := patch.Role != nil && *patch.Role != domain.RoleAdmin
	deactivates := patch.Active != nil && !*patch.Active
	if role == domain.RoleAdmin && active && (demotes || deactivates) {
		if err := lastAdminGuardTx(ctx, tx); err != nil {
			return domain.User{}, err
		}
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.PasswordHash != nil {
		add("password_hash", *patch.PasswordHash)
	}
	if patch.Role != nil {
		add("role", *patch.Role)
	}
	if patch.Active != nil {
		add("active", *patch.Active)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
		args = append(args, id)
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return domain.User{}, fmt.Errorf("sqlite: update user: %w", err)
		}
	}

	u, err := scanUserAccount(tx.QueryRowContext(ctx, userSelect+` WHERE id = ?`, id))
	if err != nil {
		return domain.User{}, fmt.Errorf("sqlite: read user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, fmt.Errorf("sqlite: commit user update: %w", err)
	}
	return u.User, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		role   string
		active bool
	)
	err = tx.QueryRowContext(ctx, `SELECT role, active FROM users WHERE id = ?`, id).
		Scan(&role, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: user %d", store.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("sqlite: read user: %w", err)
	}
	if role == domain.RoleAdmin && active {
		if err := lastAdminGuardTx(ctx, tx); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: delete user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit user delete: %w", err)
	}
	return nil
}

func lastAdminGuardTx(ctx context.Context, tx *sql.Tx) error {
	var admins int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ? AND active = 1`,
		domain.RoleAdmin).Scan(&admins); err != nil {
		return fmt.Errorf("sqlite: count admins: %w", err)
	}
	if admins <= 1 {
		return fmt.Errorf("%w: cannot remove the last active admin", store.ErrConflict)
	}
	return nil
}
