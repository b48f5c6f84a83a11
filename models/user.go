package models

import (
	"sync"

	"github.com/google/uuid"
)

// UnifiedUser is the cross-platform identity anchor tying one or more platform
// accounts to a single person. Display name and handle come from the primary
// (first-seen) account. Account data is refreshed in place when a platform
// reports new info, so all access goes through guarded methods: host handlers
// on one adapter's goroutine may read while another adapter's event refreshes.
type UnifiedUser struct {
	ID string

	mu       sync.RWMutex
	accounts []Account
}

// NewUnifiedUser creates a user owning a single platform account
func NewUnifiedUser(primary Account) *UnifiedUser {
	return &UnifiedUser{
		ID:       uuid.NewString(),
		accounts: []Account{primary},
	}
}

// RestoreUnifiedUser rebuilds a persisted user; accounts are re-attached in
// stored order.
func RestoreUnifiedUser(id string) *UnifiedUser {
	return &UnifiedUser{ID: id}
}

// AttachAccount appends a platform account to the user
func (u *UnifiedUser) AttachAccount(account Account) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.accounts = append(u.accounts, account)
}

// Accounts returns a copy of the user's platform accounts in primary-first
// order.
func (u *UnifiedUser) Accounts() []Account {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]Account(nil), u.accounts...)
}

// PrimaryAccount returns the first-seen account, if the user has any
func (u *UnifiedUser) PrimaryAccount() (Account, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if len(u.accounts) == 0 {
		return Account{}, false
	}
	return u.accounts[0], true
}

// DisplayName returns the display name of the primary account
func (u *UnifiedUser) DisplayName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if len(u.accounts) == 0 {
		return ""
	}
	return u.accounts[0].DisplayName
}

// Handle returns the at-handle of the primary account, or "" if it has none
func (u *UnifiedUser) Handle() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if len(u.accounts) == 0 {
		return ""
	}
	return u.accounts[0].Handle
}

// OwnsAccount reports whether this user owns the given platform account
func (u *UnifiedUser) OwnsAccount(platform, accountID string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for _, a := range u.accounts {
		if a.Platform == platform && a.ID == accountID {
			return true
		}
	}
	return false
}

// RefreshAccount replaces the stored copy of an owned account when the freshly
// observed display name or handle diverges from the cached values. Returns the
// previous copy and whether a replacement happened; an account the user does
// not own is left alone.
func (u *UnifiedUser) RefreshAccount(account Account) (Account, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, owned := range u.accounts {
		if owned.Platform != account.Platform || owned.ID != account.ID {
			continue
		}
		if owned.DisplayName == account.DisplayName && owned.Handle == account.Handle {
			return owned, false
		}
		u.accounts[i] = account
		return owned, true
	}
	return Account{}, false
}
