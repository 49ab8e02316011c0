package newsdata

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/newsdesk-cms/newsdesk/src/accounts"
	"github.com/newsdesk-cms/newsdesk/src/articles"
	"github.com/newsdesk-cms/newsdesk/src/auth"
	"github.com/newsdesk-cms/newsdesk/src/categories"
	"github.com/newsdesk-cms/newsdesk/src/comments"
	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/notifications"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/stretchr/testify/assert"
)

var (
	_ accounts.Store      = &Store{}
	_ articles.Store      = &Store{}
	_ auth.Store          = &Store{}
	_ categories.Store    = &Store{}
	_ comments.Store      = &Store{}
	_ notifications.Store = &Store{}
)

func TestConflict(t *testing.T) {
	unique := func(constraint string) error {
		return fmt.Errorf("insert failed: %w", &pgconn.PgError{Code: "23505", ConstraintName: constraint})
	}

	err := conflict(unique(constraintAccountEmail))
	assert.True(t, oops.Is(err, oops.KindConflict))
	assert.Equal(t, "email_taken", oops.CodeOf(err))

	assert.Equal(t, "username_taken", oops.CodeOf(conflict(unique(constraintAccountUsername))))
	assert.Equal(t, "category_exists", oops.CodeOf(conflict(unique(constraintCategorySlug))))
	assert.Equal(t, "conflict", oops.CodeOf(conflict(unique("something_else"))))

	other := errors.New("connection reset")
	assert.Same(t, other, conflict(other))
}

func TestInUse(t *testing.T) {
	fk := func(constraint string) error {
		return fmt.Errorf("delete failed: %w", &pgconn.PgError{Code: "23503", ConstraintName: constraint})
	}
	assert.True(t, inUse(fk(constraintArticleCategory)))
	assert.False(t, inUse(fk("comment_article_id_fkey")))
	assert.False(t, inUse(&pgconn.PgError{Code: "23505", ConstraintName: constraintArticleCategory}))
	assert.False(t, inUse(errors.New("connection reset")))
}

func TestArticleFilters(t *testing.T) {
	category := 3
	var qb db.QueryBuilder
	qb.Add(`SELECT COUNT(*) FROM article`)
	addArticleFilters(&qb, models.ArticleQuery{Search: "flood", CategoryID: &category, Tag: "Weather"})

	assert.Contains(t, qb.String(), "AND published")
	assert.Contains(t, qb.String(), "title ILIKE '%' || $1 || '%'")
	assert.Contains(t, qb.String(), "category_id = $2")
	assert.Contains(t, qb.String(), "LOWER($3)")
	assert.Equal(t, []any{"flood", 3, "Weather"}, qb.Args())

	var drafts db.QueryBuilder
	addArticleFilters(&drafts, models.ArticleQuery{IncludeUnpublished: true})
	assert.NotContains(t, drafts.String(), "published")
	assert.Empty(t, drafts.Args())
}

func TestAddPage(t *testing.T) {
	var qb db.QueryBuilder
	addPage(&qb, 3, 20)
	assert.Equal(t, []any{20, 40}, qb.Args())

	var all db.QueryBuilder
	addPage(&all, 2, 0)
	assert.Empty(t, all.String())
}
