package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botmux/models"
)

func setupSQLiteStore(t *testing.T) *SQLiteUserStore {
	t.Helper()
	s, err := NewSQLiteUserStore(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteUserStore_SaveAndLoad(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	user := models.NewUnifiedUser(models.Account{
		Platform:    "telegram",
		ID:          "42",
		DisplayName: "Ada",
		Handle:      "@ada",
	})
	user.AttachAccount(models.Account{
		Platform:    "discord",
		ID:          "77",
		DisplayName: "Ada L",
		Handle:      "@ada_l",
	})
	require.NoError(t, s.SaveUser(ctx, user))

	loaded, err := s.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, user.ID, loaded[0].ID)
	accounts := loaded[0].Accounts()
	require.Len(t, accounts, 2)
	// primary account must survive in first position
	assert.Equal(t, "telegram", accounts[0].Platform)
	assert.Equal(t, "Ada", loaded[0].DisplayName())
	assert.Equal(t, "@ada_l", accounts[1].Handle)
}

func TestSQLiteUserStore_SaveIsIdempotent(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	user := models.NewUnifiedUser(models.Account{
		Platform:    "telegram",
		ID:          "42",
		DisplayName: "Ada",
		Handle:      "@ada",
	})
	require.NoError(t, s.SaveUser(ctx, user))

	// a second save with refreshed info replaces, not duplicates
	_, refreshed := user.RefreshAccount(models.Account{
		Platform:    "telegram",
		ID:          "42",
		DisplayName: "Countess Ada",
		Handle:      "@ada",
	})
	require.True(t, refreshed)
	require.NoError(t, s.SaveUser(ctx, user))

	loaded, err := s.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Len(t, loaded[0].Accounts(), 1)
	assert.Equal(t, "Countess Ada", loaded[0].DisplayName())
}

func TestSQLiteUserStore_LoadEmpty(t *testing.T) {
	s := setupSQLiteStore(t)

	loaded, err := s.LoadUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestMemoryUserStore(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	require.NoError(t, s.SaveUser(ctx, models.NewUnifiedUser(models.Account{Platform: "slack", ID: "U1"})))

	loaded, err := s.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
