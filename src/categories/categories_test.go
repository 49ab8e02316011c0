package categories

import (
	"context"
	"testing"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/images"
	"github.com/newsdesk-cms/newsdesk/src/memstore"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	user   = models.Identity{AccountID: 1, Role: models.RoleUser}
	editor = models.Identity{AccountID: 2, Role: models.RoleEditor}
	admin  = models.Identity{AccountID: 3, Role: models.RoleAdmin}
)

type recordingHost struct {
	images.Disabled
	deleted []string
}

func (h *recordingHost) Delete(ctx context.Context, urlOrRef string) error {
	h.deleted = append(h.deleted, urlOrRef)
	return nil
}

func newService() (*Service, *memstore.Store, *recordingHost) {
	store := memstore.New()
	host := &recordingHost{}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewService(store, host, func() time.Time { return now }), store, host
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Travel":                   "travel",
		"  Du lịch Việt Nam  ":     "du-lich-viet-nam",
		"Rock & Roll":              "rock-roll",
		"Crème brûlée --- recipes": "creme-brulee-recipes",
		"Đà Nẵng":                  "a-nang",
		"!!!":                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), "slug for %q", in)
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()

	cat, err := svc.Create(ctx, editor, Input{Name: " Travel ", Description: "Trips", Images: []string{"a.png", " "}})
	require.NoError(t, err)
	assert.Equal(t, "Travel", cat.Name)
	assert.Equal(t, "travel", cat.Slug)
	assert.Equal(t, []string{"a.png"}, cat.Images)

	t.Run("users cannot create", func(t *testing.T) {
		_, err := svc.Create(ctx, user, Input{Name: "Sports"})
		assert.True(t, oops.Is(err, oops.KindForbidden))
	})
	t.Run("duplicate name", func(t *testing.T) {
		_, err := svc.Create(ctx, editor, Input{Name: "travel"})
		assert.True(t, oops.Is(err, oops.KindConflict))
		assert.Equal(t, "category_exists", oops.CodeOf(err))
	})
	t.Run("duplicate slug", func(t *testing.T) {
		_, err := svc.Create(ctx, editor, Input{Name: "Trável"})
		assert.True(t, oops.Is(err, oops.KindConflict))
	})
	t.Run("bad names", func(t *testing.T) {
		_, err := svc.Create(ctx, editor, Input{Name: "x"})
		assert.Equal(t, "invalid_name", oops.CodeOf(err))
		_, err = svc.Create(ctx, editor, Input{Name: "!!!"})
		assert.Equal(t, "invalid_name", oops.CodeOf(err))
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _, host := newService()

	travel, err := svc.Create(ctx, editor, Input{Name: "Travel", Images: []string{"old.png", "keep.png"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, editor, Input{Name: "Sports"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, editor, travel.ID, Input{Name: "Travel Guides", Images: []string{"keep.png"}})
	require.NoError(t, err)
	assert.Equal(t, "travel-guides", updated.Slug)
	assert.Equal(t, []string{"old.png"}, host.deleted)

	// Keeping its own name is not a conflict.
	_, err = svc.Update(ctx, editor, travel.ID, Input{Name: "Travel Guides"})
	assert.NoError(t, err)

	_, err = svc.Update(ctx, editor, travel.ID, Input{Name: "sports"})
	assert.True(t, oops.Is(err, oops.KindConflict))

	_, err = svc.Update(ctx, editor, 999, Input{Name: "Nothing"})
	assert.True(t, oops.Is(err, oops.KindNotFound))
}

func TestDeleteBlockedWhileInUse(t *testing.T) {
	ctx := context.Background()
	svc, store, host := newService()

	travel, err := svc.Create(ctx, editor, Input{Name: "Travel", Images: []string{"banner.png"}})
	require.NoError(t, err)

	article := &models.Article{Title: "Hanoi in spring", AuthorID: editor.AccountID, CategoryID: &travel.ID}
	require.NoError(t, store.CreateArticle(ctx, article))

	err = svc.Delete(ctx, editor, travel.ID)
	assert.True(t, oops.Is(err, oops.KindForbidden), "only admins delete categories")

	err = svc.Delete(ctx, admin, travel.ID)
	assert.True(t, oops.Is(err, oops.KindInvalidState))
	assert.Equal(t, "category_in_use", oops.CodeOf(err))
	_, err = svc.Get(ctx, travel.ID)
	assert.NoError(t, err, "category remains")
	assert.Empty(t, host.deleted)

	article.CategoryID = nil
	require.NoError(t, store.UpdateArticle(ctx, article))

	require.NoError(t, svc.Delete(ctx, admin, travel.ID))
	_, err = svc.Get(ctx, travel.ID)
	assert.True(t, oops.Is(err, oops.KindNotFound))
	assert.Equal(t, []string{"banner.png"}, host.deleted)
}

func TestDeleteWithoutImageHost(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New(), nil, nil)

	cat, err := svc.Create(ctx, admin, Input{Name: "World", Images: []string{"https://cdn.example.com/x.png"}})
	require.NoError(t, err)
	assert.NoError(t, svc.Delete(ctx, admin, cat.ID))
}

// filingStore files an article under the category right after the in-use
// count, as if an editor saved one between the count and the delete.
type filingStore struct {
	*memstore.Store
	filed bool
}

func (s *filingStore) CountArticlesInCategory(ctx context.Context, categoryID int) (int, error) {
	n, err := s.Store.CountArticlesInCategory(ctx, categoryID)
	if err != nil || s.filed {
		return n, err
	}
	s.filed = true
	article := &models.Article{Title: "Late arrival", AuthorID: editor.AccountID, CategoryID: &categoryID}
	return n, s.Store.CreateArticle(ctx, article)
}

func TestDeleteRefusedWhenArticleFiledMidway(t *testing.T) {
	ctx := context.Background()
	svc, store, host := newService()

	travel, err := svc.Create(ctx, editor, Input{Name: "Travel", Images: []string{"banner.png"}})
	require.NoError(t, err)

	svc.Store = &filingStore{Store: store}
	err = svc.Delete(ctx, admin, travel.ID)
	assert.True(t, oops.Is(err, oops.KindInvalidState))
	assert.Equal(t, "category_in_use", oops.CodeOf(err))

	_, err = store.GetCategory(ctx, travel.ID)
	assert.NoError(t, err, "category remains")
	assert.Empty(t, host.deleted)
}
