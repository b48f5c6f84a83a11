// Package store persists unified users so identity links survive restarts. The
// orchestrator works against the UserStore interface; the default is an
// in-memory no-op, and a sqlite-backed store is available when a path is
// configured.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	// necessary import to wire up the sqlite driver
	_ "github.com/mattn/go-sqlite3"

	"botmux/models"
)

// UserStore loads and saves unified users
type UserStore interface {
	LoadUsers(ctx context.Context) ([]*models.UnifiedUser, error)
	SaveUser(ctx context.Context, user *models.UnifiedUser) error
}

// MemoryUserStore keeps nothing between runs
type MemoryUserStore struct{}

func NewMemoryUserStore() *MemoryUserStore { return &MemoryUserStore{} }

func (s *MemoryUserStore) LoadUsers(ctx context.Context) ([]*models.UnifiedUser, error) {
	return nil, nil
}

func (s *MemoryUserStore) SaveUser(ctx context.Context, user *models.UnifiedUser) error {
	return nil
}

// SQLiteUserStore persists unified users and their platform accounts in a
// local sqlite database.
type SQLiteUserStore struct {
	db *sqlx.DB
}

func NewSQLiteUserStore(path string) (*SQLiteUserStore, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store at %s: %w", path, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS unified_users (
		id TEXT PRIMARY KEY
	);
	CREATE TABLE IF NOT EXISTS platform_accounts (
		platform     TEXT NOT NULL,
		account_id   TEXT NOT NULL,
		display_name TEXT NOT NULL,
		handle       TEXT NOT NULL,
		user_id      TEXT NOT NULL REFERENCES unified_users(id) ON DELETE CASCADE,
		position     INTEGER NOT NULL,
		PRIMARY KEY (platform, account_id)
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize user store schema: %w", err)
	}

	return &SQLiteUserStore{db: db}, nil
}

func (s *SQLiteUserStore) Close() error { return s.db.Close() }

// LoadUsers returns every stored user with accounts in primary-first order
func (s *SQLiteUserStore) LoadUsers(ctx context.Context) ([]*models.UnifiedUser, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT u.id AS user_id, a.platform, a.account_id, a.display_name, a.handle
		FROM unified_users u
		JOIN platform_accounts a ON a.user_id = u.id
		ORDER BY u.id, a.position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.UnifiedUser)
	var users []*models.UnifiedUser
	for rows.Next() {
		var row struct {
			UserID      string `db:"user_id"`
			Platform    string `db:"platform"`
			AccountID   string `db:"account_id"`
			DisplayName string `db:"display_name"`
			Handle      string `db:"handle"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}

		user, ok := byID[row.UserID]
		if !ok {
			user = models.RestoreUnifiedUser(row.UserID)
			byID[row.UserID] = user
			users = append(users, user)
		}
		user.AttachAccount(models.Account{
			Platform:    row.Platform,
			ID:          row.AccountID,
			DisplayName: row.DisplayName,
			Handle:      row.Handle,
		})
	}
	return users, rows.Err()
}

// SaveUser upserts one user and rewrites its account rows
func (s *SQLiteUserStore) SaveUser(ctx context.Context, user *models.UnifiedUser) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin user store transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO unified_users (id) VALUES (?) ON CONFLICT (id) DO NOTHING`,
		user.ID,
	); err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM platform_accounts WHERE user_id = ?`, user.ID,
	); err != nil {
		return fmt.Errorf("failed to clear accounts for user %s: %w", user.ID, err)
	}

	for i, account := range user.Accounts() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO platform_accounts (platform, account_id, display_name, handle, user_id, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			account.Platform, account.ID, account.DisplayName, account.Handle, user.ID, i,
		); err != nil {
			return fmt.Errorf("failed to insert account %s/%s: %w", account.Platform, account.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user store transaction: %w", err)
	}
	return nil
}
