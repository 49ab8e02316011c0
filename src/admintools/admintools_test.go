package admintools

import (
	"context"
	"testing"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/accounts"
	"github.com/newsdesk-cms/newsdesk/src/auth"
	"github.com/newsdesk-cms/newsdesk/src/memstore"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndManage(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	acc, err := CreateAccount(ctx, store, accounts.RegisterInput{Username: "root", Email: "root@example.com", Password: "hunter22"}, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, acc.IsVerified)
	assert.Equal(t, models.RoleAdmin, acc.Role)

	_, err = CreateAccount(ctx, store, accounts.RegisterInput{Username: "ROOT", Email: "x@example.com", Password: "hunter22"}, models.RoleUser)
	assert.True(t, oops.Is(err, oops.KindConflict))

	_, err = CreateAccount(ctx, store, accounts.RegisterInput{Username: "x", Email: "x@example.com", Password: "hunter22"}, models.Role("owner"))
	assert.Equal(t, "invalid_role", oops.CodeOf(err))

	t.Run("setrole", func(t *testing.T) {
		updated, err := SetRole(ctx, store, "Root", models.RoleEditor)
		require.NoError(t, err)
		assert.Equal(t, models.RoleEditor, updated.Role)

		_, err = SetRole(ctx, store, "nobody", models.RoleEditor)
		assert.Equal(t, "account_not_found", oops.CodeOf(err))
	})

	t.Run("setpassword", func(t *testing.T) {
		_, err := SetPassword(ctx, store, "root", "short")
		assert.Equal(t, "invalid_password", oops.CodeOf(err))

		_, err = SetPassword(ctx, store, "root", "correct horse")
		require.NoError(t, err)
		stored, err := store.GetAccount(ctx, acc.ID)
		require.NoError(t, err)
		ok, err := auth.CheckPasswordString("correct horse", stored.Password)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestVerifyAndUnban(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	acc := &models.Account{Username: "pending", Email: "pending@example.com", Role: models.RoleUser}
	require.NoError(t, store.CreateAccount(ctx, acc))
	expires := time.Now().Add(time.Hour)
	require.NoError(t, store.SetBan(ctx, acc.ID, models.Ban{IsBanned: true, Reason: "spam", ExpiresAt: &expires}))

	verified, err := Verify(ctx, store, "pending")
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	_, err = SetRole(ctx, store, "pending", models.RoleAdmin)
	assert.Equal(t, "account_banned", oops.CodeOf(err))

	_, err = Unban(ctx, store, "pending")
	require.NoError(t, err)
	stored, err := store.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsBanned)
	assert.True(t, stored.IsVerified)
}
