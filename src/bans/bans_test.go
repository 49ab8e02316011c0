package bans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/memstore"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newAccount(t *testing.T, store *memstore.Store, username string, role models.Role) *models.Account {
	t.Helper()
	acc := &models.Account{
		Username:  username,
		Email:     username + "@example.com",
		Role:      role,
		CreatedAt: t0,
	}
	require.NoError(t, store.CreateAccount(context.Background(), acc))
	return acc
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestParseDuration(t *testing.T) {
	for _, s := range []string{"1d", "1w", "1m", "permanent"} {
		d, err := ParseDuration(s)
		assert.NoError(t, err)
		assert.Equal(t, Duration(s), d)
	}

	_, err := ParseDuration("2y")
	assert.True(t, oops.Is(err, oops.KindInvalidInput))
	assert.Equal(t, "invalid_duration", oops.CodeOf(err))
}

func TestExpiryFrom(t *testing.T) {
	assert.Equal(t, t0.Add(24*time.Hour), *OneDay.ExpiryFrom(t0))
	assert.Equal(t, t0.Add(7*24*time.Hour), *OneWeek.ExpiryFrom(t0))
	assert.Equal(t, t0.Add(30*24*time.Hour), *OneMonth.ExpiryFrom(t0))
	assert.Nil(t, Permanent.ExpiryFrom(t0))
}

func TestResolve(t *testing.T) {
	expiry := t0.Add(time.Hour)

	t.Run("not banned", func(t *testing.T) {
		status, mutation := Resolve(&models.Account{}, t0)
		assert.Equal(t, Active, status.State)
		assert.Nil(t, mutation)
	})
	t.Run("permanent", func(t *testing.T) {
		acc := &models.Account{Ban: models.Ban{IsBanned: true, Reason: "spam"}}
		status, mutation := Resolve(acc, t0.Add(1000*time.Hour))
		assert.Equal(t, Banned, status.State)
		assert.Equal(t, "spam", status.Reason)
		assert.Nil(t, status.ExpiresAt)
		assert.Nil(t, mutation)
	})
	t.Run("not yet expired", func(t *testing.T) {
		acc := &models.Account{Ban: models.Ban{IsBanned: true, ExpiresAt: &expiry}}
		status, mutation := Resolve(acc, expiry.Add(-time.Second))
		assert.Equal(t, Banned, status.State)
		assert.Nil(t, mutation)
	})
	t.Run("expires exactly now", func(t *testing.T) {
		acc := &models.Account{Ban: models.Ban{IsBanned: true, ExpiresAt: &expiry}}
		status, mutation := Resolve(acc, expiry)
		assert.Equal(t, Active, status.State)
		require.NotNil(t, mutation)
		assert.Equal(t, expiry, mutation.ExpiredAt)
	})
}

func TestBanAndLazyExpiry(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clk := &clock{now: t0}
	c := NewController(store, clk.Now)

	admin := newAccount(t, store, "admin", models.RoleAdmin)
	user := newAccount(t, store, "user", models.RoleUser)

	banned, err := c.Ban(ctx, admin.Identity(), user.ID, "spam", "1d")
	require.NoError(t, err)
	assert.True(t, banned.IsBanned)
	require.NotNil(t, banned.ExpiresAt)
	assert.Equal(t, t0.Add(24*time.Hour), *banned.ExpiresAt)
	require.NotNil(t, banned.BannedBy)
	assert.Equal(t, admin.ID, *banned.BannedBy)

	acc, err := store.GetAccount(ctx, user.ID)
	require.NoError(t, err)
	err = c.Gate(ctx, acc)
	assert.True(t, oops.Is(err, oops.KindForbidden))
	assert.Equal(t, CodeAccountBanned, oops.CodeOf(err))

	var oerr *oops.Error
	require.True(t, errors.As(err, &oerr))
	assert.Equal(t, "spam", oerr.Details["reason"])
	assert.Equal(t, "2024-03-02T12:00:00Z", oerr.Details["expiresAt"])

	clk.now = t0.Add(25 * time.Hour)
	acc, err = store.GetAccount(ctx, user.ID)
	require.NoError(t, err)
	status, err := c.Refresh(ctx, acc)
	require.NoError(t, err)
	assert.Equal(t, Active, status.State)
	assert.False(t, acc.IsBanned)

	stored, err := store.GetAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsBanned)
	assert.Nil(t, stored.ExpiresAt)

	// second resolution is a no-op
	status, err = c.Refresh(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, Active, status.State)
	assert.NoError(t, c.Gate(ctx, stored))
}

func TestStaleClearDoesNotWipeNewBan(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clk := &clock{now: t0}
	c := NewController(store, clk.Now)

	admin := newAccount(t, store, "admin", models.RoleAdmin)
	user := newAccount(t, store, "user", models.RoleUser)

	_, err := c.Ban(ctx, admin.Identity(), user.ID, "first", "1d")
	require.NoError(t, err)
	stale, err := store.GetAccount(ctx, user.ID)
	require.NoError(t, err)

	clk.now = t0.Add(48 * time.Hour)
	_, err = c.Ban(ctx, admin.Identity(), user.ID, "second", "permanent")
	require.NoError(t, err)

	// a request still holding the old row clears only the old ban
	_, err = c.Refresh(ctx, stale)
	require.NoError(t, err)

	fresh, err := store.GetAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, fresh.IsBanned)
	assert.Equal(t, "second", fresh.Reason)
}

func TestPermanentBanNeverExpires(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clk := &clock{now: t0}
	c := NewController(store, clk.Now)

	admin := newAccount(t, store, "admin", models.RoleAdmin)
	user := newAccount(t, store, "user", models.RoleUser)

	_, err := c.Ban(ctx, admin.Identity(), user.ID, "abuse", "permanent")
	require.NoError(t, err)

	clk.now = t0.Add(10 * 365 * 24 * time.Hour)
	acc, err := store.GetAccount(ctx, user.ID)
	require.NoError(t, err)
	err = c.Gate(ctx, acc)
	assert.Equal(t, CodeAccountBanned, oops.CodeOf(err))

	var oerr *oops.Error
	require.True(t, errors.As(err, &oerr))
	assert.Nil(t, oerr.Details["expiresAt"])
}

func TestBanRules(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	c := NewController(store, (&clock{now: t0}).Now)

	admin := newAccount(t, store, "admin", models.RoleAdmin)
	otherAdmin := newAccount(t, store, "admin2", models.RoleAdmin)
	editor := newAccount(t, store, "editor", models.RoleEditor)
	user := newAccount(t, store, "user", models.RoleUser)

	t.Run("admins cannot be banned", func(t *testing.T) {
		_, err := c.Ban(ctx, admin.Identity(), otherAdmin.ID, "x", "1d")
		assert.True(t, oops.Is(err, oops.KindInvalidState))
		_, err = c.Ban(ctx, admin.Identity(), admin.ID, "x", "1d")
		assert.True(t, oops.Is(err, oops.KindInvalidState))
	})
	t.Run("only admins ban", func(t *testing.T) {
		_, err := c.Ban(ctx, editor.Identity(), user.ID, "x", "1d")
		assert.True(t, oops.Is(err, oops.KindForbidden))
		_, err = c.Unban(ctx, user.Identity(), user.ID)
		assert.True(t, oops.Is(err, oops.KindForbidden))
	})
	t.Run("missing target", func(t *testing.T) {
		_, err := c.Ban(ctx, admin.Identity(), 9999, "x", "1d")
		assert.True(t, oops.Is(err, oops.KindNotFound))
	})
	t.Run("bad duration", func(t *testing.T) {
		_, err := c.Ban(ctx, admin.Identity(), user.ID, "x", "forever")
		assert.True(t, oops.Is(err, oops.KindInvalidInput))
	})
	t.Run("unban clears everything", func(t *testing.T) {
		_, err := c.Ban(ctx, admin.Identity(), editor.ID, "x", "1w")
		require.NoError(t, err)
		acc, err := c.Unban(ctx, admin.Identity(), editor.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Ban{}, acc.Ban)

		stored, err := store.GetAccount(ctx, editor.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Ban{}, stored.Ban)
	})
}

// promotingStore makes the target an admin right after its first read, the
// way a role change landing between Ban's read and its write would.
type promotingStore struct {
	*memstore.Store
	targetID int
	promoted bool
}

func (s *promotingStore) GetAccount(ctx context.Context, id int) (*models.Account, error) {
	acc, err := s.Store.GetAccount(ctx, id)
	if err != nil || id != s.targetID || s.promoted {
		return acc, err
	}
	s.promoted = true
	admin := *acc
	admin.Role = models.RoleAdmin
	if err := s.Store.UpdateAccount(ctx, &admin); err != nil {
		return nil, err
	}
	return acc, nil
}

func TestBanRefusedWhenTargetPromotedMidway(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	admin := newAccount(t, store, "admin", models.RoleAdmin)
	user := newAccount(t, store, "user", models.RoleUser)

	c := NewController(&promotingStore{Store: store, targetID: user.ID}, (&clock{now: t0}).Now)
	_, err := c.Ban(ctx, admin.Identity(), user.ID, "spam", "permanent")
	assert.True(t, oops.Is(err, oops.KindInvalidState))
	assert.Equal(t, "cannot_ban_admin", oops.CodeOf(err))

	stored, err := store.GetAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, stored.Role)
	assert.False(t, stored.IsBanned)
}
