package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newAccount(t *testing.T, s *Store, name string, role models.Role) *models.Account {
	t.Helper()
	acc := &models.Account{Username: name, Email: name + "@example.com", Role: role}
	require.NoError(t, s.CreateAccount(context.Background(), acc))
	return acc
}

func TestClearExpiredBan(t *testing.T) {
	expiry := t0.Add(time.Hour)
	later := t0.Add(2 * time.Hour)

	tests := []struct {
		name      string
		ban       models.Ban
		expiredAt time.Time
		cleared   bool
	}{
		{"matching expiry", models.Ban{IsBanned: true, Reason: "spam", ExpiresAt: &expiry}, expiry, true},
		{"ban was replaced", models.Ban{IsBanned: true, Reason: "again", ExpiresAt: &later}, expiry, false},
		{"permanent ban", models.Ban{IsBanned: true, Reason: "abuse"}, expiry, false},
		{"not banned", models.Ban{}, expiry, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := New()
			acc := newAccount(t, s, "reader", models.RoleUser)
			require.NoError(t, s.SetBan(ctx, acc.ID, tt.ban))

			require.NoError(t, s.ClearExpiredBan(ctx, acc.ID, tt.expiredAt))

			stored, err := s.GetAccount(ctx, acc.ID)
			require.NoError(t, err)
			if tt.cleared {
				assert.Equal(t, models.Ban{}, stored.Ban)
			} else {
				assert.Equal(t, tt.ban, stored.Ban)
			}
		})
	}

	t.Run("missing account", func(t *testing.T) {
		err := New().ClearExpiredBan(context.Background(), 42, expiry)
		assert.ErrorIs(t, err, db.NotFound)
	})
}

func TestAccountGuards(t *testing.T) {
	ctx := context.Background()
	s := New()
	admin := newAccount(t, s, "root", models.RoleAdmin)
	user := newAccount(t, s, "reader", models.RoleUser)

	err := s.SetBan(ctx, admin.ID, models.Ban{IsBanned: true, Reason: "x"})
	assert.ErrorIs(t, err, models.ErrAdminNotBannable)
	assert.NoError(t, s.SetBan(ctx, admin.ID, models.Ban{}), "clearing is always allowed")

	require.NoError(t, s.SetBan(ctx, user.ID, models.Ban{IsBanned: true, Reason: "spam"}))
	promoted := *user
	promoted.Role = models.RoleAdmin
	assert.ErrorIs(t, s.UpdateAccount(ctx, &promoted), models.ErrBannedNotPromoted)

	promoted.Role = models.RoleEditor
	require.NoError(t, s.UpdateAccount(ctx, &promoted))
	stored, err := s.GetAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, stored.Role)
	assert.True(t, stored.IsBanned, "UpdateAccount leaves the ban alone")
}

func TestEditNotification(t *testing.T) {
	ctx := context.Background()
	s := New()
	n := &models.Notification{RecipientID: 7, CreatorID: 1, Title: "Hi", Message: "there", Type: models.SeverityInfo, CreatedAt: t0}
	require.NoError(t, s.CreateNotification(ctx, n))
	ok, err := s.MarkNotificationRead(ctx, n.ID, 7)
	require.NoError(t, err)
	require.True(t, ok)

	edited, err := s.EditNotification(ctx, n.ID, func(n *models.Notification) error {
		n.History = append(n.History, n.Snapshot())
		n.Title = "Hello"
		n.IsRead = false
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", edited.Title)

	stored, err := s.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", stored.Title)
	assert.True(t, stored.IsRead, "read state belongs to the recipient")
	require.Len(t, stored.History, 1)
	assert.Equal(t, "Hi", stored.History[0].Title)

	t.Run("apply error leaves the record alone", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := s.EditNotification(ctx, n.ID, func(n *models.Notification) error {
			n.Title = "half done"
			return boom
		})
		assert.ErrorIs(t, err, boom)
		stored, err := s.GetNotification(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hello", stored.Title)
	})
	t.Run("missing", func(t *testing.T) {
		_, err := s.EditNotification(ctx, 999, func(n *models.Notification) error { return nil })
		assert.ErrorIs(t, err, db.NotFound)
	})
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name        string
		page, limit int
		want        []int
	}{
		{"first page", 1, 2, []int{1, 2}},
		{"middle page", 2, 2, []int{3, 4}},
		{"short last page", 3, 2, []int{5}},
		{"past the end", 4, 2, []int{}},
		{"page zero reads as first", 0, 2, []int{1, 2}},
		{"negative page reads as first", -3, 2, []int{1, 2}},
		{"no limit returns everything", 3, 0, items},
		{"limit larger than the list", 1, 50, items},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paginate(items, tt.page, tt.limit))
		})
	}
}

func TestListNotificationsForRecipient(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 5; i++ {
		n := &models.Notification{RecipientID: 7, Title: "n", Message: "m", CreatedAt: t0.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, s.CreateNotification(ctx, n))
	}
	require.NoError(t, s.CreateNotification(ctx, &models.Notification{RecipientID: 8, Title: "other", Message: "m", CreatedAt: t0}))
	_, err := s.MarkAllNotificationsRead(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, s.CreateNotification(ctx, &models.Notification{RecipientID: 7, Title: "newest", Message: "m", CreatedAt: t0.Add(time.Hour)}))

	page, err := s.ListNotificationsForRecipient(ctx, 7, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, 1, page.UnreadCount)
	require.Len(t, page.Items, 4)
	assert.Equal(t, "newest", page.Items[0].Title)

	page, err = s.ListNotificationsForRecipient(ctx, 7, 2, 4)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 6, page.Total, "total ignores paging")

	page, err = s.ListNotificationsForRecipient(ctx, 7, 3, 4)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestDeleteCategoryInUse(t *testing.T) {
	ctx := context.Background()
	s := New()
	cat := &models.Category{Name: "Travel", Slug: "travel"}
	require.NoError(t, s.CreateCategory(ctx, cat))
	article := &models.Article{Title: "Hanoi", AuthorID: 1, CategoryID: &cat.ID}
	require.NoError(t, s.CreateArticle(ctx, article))

	assert.ErrorIs(t, s.DeleteCategory(ctx, cat.ID), models.ErrCategoryInUse)

	article.CategoryID = nil
	require.NoError(t, s.UpdateArticle(ctx, article))
	assert.NoError(t, s.DeleteCategory(ctx, cat.ID))
	assert.ErrorIs(t, s.DeleteCategory(ctx, cat.ID), db.NotFound)
}

func TestRecordsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	acc := newAccount(t, s, "reader", models.RoleUser)

	acc.Username = "mutated"
	stored, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "reader", stored.Username)

	stored.Role = models.RoleAdmin
	again, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, again.Role)
}
