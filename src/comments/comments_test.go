package comments

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/memstore"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memstore.Store
	svc     *Service
	now     time.Time
	article *models.Article

	userA, userB, editor, admin models.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memstore.New(), now: t0}
	f.svc = NewService(f.store, func() time.Time {
		f.now = f.now.Add(time.Second)
		return f.now
	})

	mk := func(name string, role models.Role) models.Identity {
		acc := &models.Account{Username: name, Email: name + "@example.com", Role: role}
		require.NoError(t, f.store.CreateAccount(ctx, acc))
		return acc.Identity()
	}
	f.userA = mk("alice", models.RoleUser)
	f.userB = mk("bob", models.RoleUser)
	f.editor = mk("eddie", models.RoleEditor)
	f.admin = mk("ada", models.RoleAdmin)

	f.article = &models.Article{Title: "Article X", Content: "Some content here", AuthorID: f.editor.AccountID, Published: true}
	require.NoError(t, f.store.CreateArticle(ctx, f.article))
	return f
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	root, err := f.svc.Create(ctx, f.userA, f.article.ID, "  first! <b>  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "first! b", root.Content)
	assert.Equal(t, f.userA.AccountID, root.AuthorID)
	assert.False(t, root.Approved)
	assert.True(t, root.IsRoot())

	reply, err := f.svc.Create(ctx, f.userB, f.article.ID, "reply", &root.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)

	t.Run("missing article", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.userA, 9999, "hello", nil)
		assert.True(t, oops.Is(err, oops.KindNotFound))
		assert.Equal(t, "article_not_found", oops.CodeOf(err))
	})
	t.Run("missing parent", func(t *testing.T) {
		missing := 9999
		_, err := f.svc.Create(ctx, f.userA, f.article.ID, "hello", &missing)
		assert.True(t, oops.Is(err, oops.KindNotFound))
		assert.Equal(t, "parent_not_found", oops.CodeOf(err))
	})
	t.Run("parent on another article", func(t *testing.T) {
		other := &models.Article{Title: "Article Y", AuthorID: f.editor.AccountID}
		require.NoError(t, f.store.CreateArticle(ctx, other))
		_, err := f.svc.Create(ctx, f.userA, other.ID, "hello", &root.ID)
		assert.True(t, oops.Is(err, oops.KindInvalidInput))
	})
	t.Run("content length", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.userA, f.article.ID, "   ", nil)
		assert.True(t, oops.Is(err, oops.KindInvalidInput))
		_, err = f.svc.Create(ctx, f.userA, f.article.ID, strings.Repeat("x", MaxContentLength+1), nil)
		assert.True(t, oops.Is(err, oops.KindInvalidInput))
		_, err = f.svc.Create(ctx, f.userA, f.article.ID, strings.Repeat("é", MaxContentLength), nil)
		assert.NoError(t, err)
	})
}

func TestListIsFlatAndOldestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	c1, err := f.svc.Create(ctx, f.userA, f.article.ID, "one", nil)
	require.NoError(t, err)
	c2, err := f.svc.Create(ctx, f.userB, f.article.ID, "two", &c1.ID)
	require.NoError(t, err)
	c3, err := f.svc.Create(ctx, f.userA, f.article.ID, "three", nil)
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.article.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{c1.ID, c2.ID, c3.ID}, []int{list[0].ID, list[1].ID, list[2].ID})
}

func TestUpdateOwnershipOrModerator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	c1, err := f.svc.Create(ctx, f.userA, f.article.ID, "original", nil)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.userB, c1.ID, "hijacked")
	assert.True(t, oops.Is(err, oops.KindForbidden))

	updated, err := f.svc.Update(ctx, f.editor, c1.ID, "moderated")
	require.NoError(t, err)
	assert.Equal(t, "moderated", updated.Content)

	updated, err = f.svc.Update(ctx, f.userA, c1.ID, "my own edit")
	require.NoError(t, err)
	assert.Equal(t, "my own edit", updated.Content)

	_, err = f.svc.Update(ctx, f.admin, 9999, "x")
	assert.True(t, oops.Is(err, oops.KindNotFound))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	c1, err := f.svc.Create(ctx, f.userA, f.article.ID, "parent", nil)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.userB, f.article.ID, "child", &c1.ID)
	require.NoError(t, err)
	c3, err := f.svc.Create(ctx, f.userB, f.article.ID, "other root", nil)
	require.NoError(t, err)

	assert.True(t, oops.Is(f.svc.Delete(ctx, f.userB, c1.ID), oops.KindForbidden))
	require.NoError(t, f.svc.Delete(ctx, f.editor, c1.ID))

	// the orphaned reply stays stored but drops out of the tree
	list, err := f.svc.List(ctx, f.article.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	tree, err := f.svc.Thread(ctx, f.article.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, c3.ID, tree[0].Comment.ID)

	assert.True(t, oops.Is(f.svc.Delete(ctx, f.admin, c1.ID), oops.KindNotFound))
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	c1, err := f.svc.Create(ctx, f.userA, f.article.ID, "please approve", nil)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, f.userA, c1.ID)
	assert.True(t, oops.Is(err, oops.KindForbidden))
	_, err = f.svc.Approve(ctx, f.editor, c1.ID)
	assert.True(t, oops.Is(err, oops.KindForbidden))

	approved, err := f.svc.Approve(ctx, f.admin, c1.ID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	assert.Equal(t, "please approve", approved.Content)

	stored, err := f.store.GetComment(ctx, c1.ID)
	require.NoError(t, err)
	assert.True(t, stored.Approved)
}

func TestListAllRequiresModerator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Create(ctx, f.userA, f.article.ID, "one", nil)
	require.NoError(t, err)

	_, err = f.svc.ListAll(ctx, f.userA)
	assert.True(t, oops.Is(err, oops.KindForbidden))

	all, err := f.svc.ListAll(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteByAuthorContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, f.userA, f.article.ID, "spam", nil)
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, f.userB, f.article.ID, "not spam", nil)
	require.NoError(t, err)

	f.store.FailNext("DeleteComment", errors.New("connection reset"))
	deleted, err := f.svc.DeleteByAuthor(ctx, f.userA.AccountID)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	remaining, err := f.svc.ListByAuthor(ctx, f.userA.AccountID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestBuildTree(t *testing.T) {
	ptr := func(i int) *int { return &i }
	at := func(minutes int) time.Time { return t0.Add(time.Duration(minutes) * time.Minute) }

	flat := []*models.Comment{
		{ID: 1, CreatedAt: at(0)},
		{ID: 2, ParentID: ptr(1), CreatedAt: at(5)},
		{ID: 3, ParentID: ptr(1), CreatedAt: at(2)},
		{ID: 4, ParentID: ptr(3), CreatedAt: at(3)},
		{ID: 5, CreatedAt: at(1)},
		{ID: 6, ParentID: ptr(99), CreatedAt: at(4)}, // parent was deleted
		{ID: 7, CreatedAt: at(1)},                    // same instant as 5
	}

	shape := func(nodes []*Node) []any {
		var walk func(nodes []*Node) []any
		walk = func(nodes []*Node) []any {
			out := []any{}
			for _, n := range nodes {
				out = append(out, n.Comment.ID, walk(n.Replies))
			}
			return out
		}
		return walk(nodes)
	}

	expected := []any{
		1, []any{3, []any{4, []any{}}, 2, []any{}},
		5, []any{},
		7, []any{},
	}

	tree := BuildTree(flat)
	assert.Equal(t, expected, shape(tree))
	assert.Equal(t, 6, Size(tree))

	t.Run("input order does not matter", func(t *testing.T) {
		r := rand.New(rand.NewSource(1))
		for i := 0; i < 20; i++ {
			shuffled := append([]*models.Comment(nil), flat...)
			r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			assert.Equal(t, expected, shape(BuildTree(shuffled)))
		}
	})

	t.Run("does not reorder the input", func(t *testing.T) {
		BuildTree(flat)
		assert.Equal(t, 1, flat[0].ID)
		assert.Equal(t, 2, flat[1].ID)
	})

	t.Run("self reference is unreachable", func(t *testing.T) {
		tree := BuildTree([]*models.Comment{{ID: 1, ParentID: ptr(1), CreatedAt: t0}})
		assert.Empty(t, tree)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, BuildTree(nil))
	})
}
