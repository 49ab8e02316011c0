package newsdata

import (
	"context"

	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

func (s *Store) GetArticle(ctx context.Context, id int) (*models.Article, error) {
	return db.QueryOne[models.Article](ctx, s.Conn,
		`
		---- Get article
		SELECT $columns FROM article WHERE id = $1
		`,
		id,
	)
}

func addArticleFilters(qb *db.QueryBuilder, q models.ArticleQuery) {
	qb.Add(`WHERE TRUE`)
	qb.AddIf(!q.IncludeUnpublished, `AND published`)
	qb.AddIf(q.Search != "", `AND title ILIKE '%' || $? || '%'`, q.Search)
	if q.CategoryID != nil {
		qb.Add(`AND category_id = $?`, *q.CategoryID)
	}
	if q.AuthorID != nil {
		qb.Add(`AND author_id = $?`, *q.AuthorID)
	}
	if q.From != nil {
		qb.Add(`AND created_at >= $?`, *q.From)
	}
	if q.To != nil {
		qb.Add(`AND created_at <= $?`, *q.To)
	}
	qb.AddIf(q.Tag != "", `AND LOWER($?) = ANY(SELECT LOWER(t) FROM UNNEST(tags) AS t)`, q.Tag)
}

func (s *Store) ListArticles(ctx context.Context, q models.ArticleQuery) ([]*models.Article, int, error) {
	var countQb db.QueryBuilder
	countQb.Add(`---- Count articles`)
	countQb.Add(`SELECT COUNT(*) FROM article`)
	addArticleFilters(&countQb, q)
	total, err := db.QueryOneScalar[int](ctx, s.Conn, countQb.String(), countQb.Args()...)
	if err != nil {
		return nil, 0, oops.New(err, "failed to count articles")
	}

	var qb db.QueryBuilder
	qb.Add(`---- List articles`)
	qb.Add(`SELECT $columns FROM article`)
	addArticleFilters(&qb, q)
	qb.Add(`ORDER BY created_at DESC, id DESC`)
	if q.Limit > 0 {
		qb.Add(`LIMIT $? OFFSET $?`, q.Limit, q.Offset())
	}
	articles, err := db.Query[models.Article](ctx, s.Conn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, 0, oops.New(err, "failed to list articles")
	}
	return articles, total, nil
}

func (s *Store) ListArticlesByAuthor(ctx context.Context, authorID int) ([]*models.Article, error) {
	articles, err := db.Query[models.Article](ctx, s.Conn,
		`SELECT $columns FROM article WHERE author_id = $1 ORDER BY created_at DESC, id DESC`,
		authorID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to list articles by author")
	}
	return articles, nil
}

func (s *Store) ListLikedArticles(ctx context.Context, accountID int) ([]*models.Article, error) {
	articles, err := db.Query[models.Article](ctx, s.Conn,
		`
		SELECT $columns{a}
		FROM
			article AS a
			JOIN article_like AS l ON l.article_id = a.id
		WHERE l.account_id = $1
		ORDER BY a.created_at DESC, a.id DESC
		`,
		accountID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to list liked articles")
	}
	return articles, nil
}

func (s *Store) SuggestArticles(ctx context.Context, query string, limit int) ([]*models.Article, error) {
	articles, _, err := s.ListArticles(ctx, models.ArticleQuery{Search: query, Page: 1, Limit: limit})
	return articles, err
}

func (s *Store) CreateArticle(ctx context.Context, a *models.Article) error {
	id, err := db.QueryOneScalar[int](ctx, s.Conn,
		`
		INSERT INTO article (
			title, content, summary, author_id, category_id,
			tags, images, video_url,
			location_lat, location_lng, location_address,
			views, likes_count, published, created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4, $5,
			COALESCE($6, '{}'::TEXT[]), COALESCE($7, '{}'::TEXT[]), $8,
			$9, $10, $11,
			$12, $13, $14, $15, $16
		)
		RETURNING id
		`,
		a.Title, a.Content, a.Summary, a.AuthorID, a.CategoryID,
		a.Tags, a.Images, a.VideoUrl,
		a.Lat, a.Lng, a.Address,
		a.Views, a.LikesCount, a.Published, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return oops.New(err, "failed to create article")
	}
	a.ID = id
	return nil
}

// UpdateArticle writes the editable fields. Views and likes are counters with
// their own methods.
func (s *Store) UpdateArticle(ctx context.Context, a *models.Article) error {
	tag, err := s.Conn.Exec(ctx,
		`
		UPDATE article
		SET
			title = $2, content = $3, summary = $4, category_id = $5,
			tags = COALESCE($6, '{}'::TEXT[]), images = COALESCE($7, '{}'::TEXT[]), video_url = $8,
			location_lat = $9, location_lng = $10, location_address = $11,
			published = $12, updated_at = $13
		WHERE id = $1
		`,
		a.ID,
		a.Title, a.Content, a.Summary, a.CategoryID,
		a.Tags, a.Images, a.VideoUrl,
		a.Lat, a.Lng, a.Address,
		a.Published, a.UpdatedAt,
	)
	if err != nil {
		return oops.New(err, "failed to update article")
	}
	return affected(tag.RowsAffected())
}

func (s *Store) DeleteArticle(ctx context.Context, id int) error {
	tag, err := s.Conn.Exec(ctx, `DELETE FROM article WHERE id = $1`, id)
	if err != nil {
		return oops.New(err, "failed to delete article")
	}
	return affected(tag.RowsAffected())
}

func (s *Store) IncrementViews(ctx context.Context, id int) (int, error) {
	return db.QueryOneScalar[int](ctx, s.Conn,
		`
		---- Increment views
		UPDATE article SET views = views + 1 WHERE id = $1 RETURNING views
		`,
		id,
	)
}

/*
ToggleLike adds the like if it is missing and removes it otherwise, keeping
likes_count in step. Both happen in one transaction.
*/
func (s *Store) ToggleLike(ctx context.Context, articleID, accountID int) (bool, int, error) {
	tx, err := s.Conn.Begin(ctx)
	if err != nil {
		return false, 0, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	// Lock the article row so concurrent toggles serialize.
	_, err = db.QueryOneScalar[int](ctx, tx, `SELECT id FROM article WHERE id = $1 FOR UPDATE`, articleID)
	if err != nil {
		return false, 0, err
	}

	removed, err := tx.Exec(ctx,
		`DELETE FROM article_like WHERE article_id = $1 AND account_id = $2`,
		articleID, accountID,
	)
	if err != nil {
		return false, 0, oops.New(err, "failed to remove like")
	}

	liked := removed.RowsAffected() == 0
	delta := -1
	if liked {
		_, err = tx.Exec(ctx,
			`INSERT INTO article_like (article_id, account_id) VALUES ($1, $2)`,
			articleID, accountID,
		)
		if err != nil {
			return false, 0, oops.New(err, "failed to add like")
		}
		delta = 1
	}

	count, err := db.QueryOneScalar[int](ctx, tx,
		`UPDATE article SET likes_count = GREATEST(likes_count + $2, 0) WHERE id = $1 RETURNING likes_count`,
		articleID, delta,
	)
	if err != nil {
		return false, 0, oops.New(err, "failed to update like count")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, oops.New(err, "failed to commit like")
	}
	return liked, count, nil
}

func (s *Store) HasLiked(ctx context.Context, articleID, accountID int) (bool, error) {
	return db.QueryOneScalar[bool](ctx, s.Conn,
		`SELECT EXISTS(SELECT 1 FROM article_like WHERE article_id = $1 AND account_id = $2)`,
		articleID, accountID,
	)
}

func (s *Store) RemoveLikesByAccount(ctx context.Context, accountID int) error {
	tx, err := s.Conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`
		UPDATE article
		SET likes_count = GREATEST(likes_count - 1, 0)
		WHERE id IN (SELECT article_id FROM article_like WHERE account_id = $1)
		`,
		accountID,
	)
	if err != nil {
		return oops.New(err, "failed to update like counts")
	}
	_, err = tx.Exec(ctx, `DELETE FROM article_like WHERE account_id = $1`, accountID)
	if err != nil {
		return oops.New(err, "failed to remove likes")
	}
	return tx.Commit(ctx)
}

func (s *Store) CountArticles(ctx context.Context, authorID *int) (int, error) {
	return db.QueryOneScalar[int](ctx, s.Conn,
		`SELECT COUNT(*) FROM article WHERE $1::INT IS NULL OR author_id = $1`,
		authorID,
	)
}

func (s *Store) CountArticlesInCategory(ctx context.Context, categoryID int) (int, error) {
	return db.QueryOneScalar[int](ctx, s.Conn,
		`SELECT COUNT(*) FROM article WHERE category_id = $1`,
		categoryID,
	)
}

func (s *Store) TotalViews(ctx context.Context, authorID *int) (int, error) {
	return db.QueryOneScalar[int](ctx, s.Conn,
		`SELECT COALESCE(SUM(views), 0) FROM article WHERE $1::INT IS NULL OR author_id = $1`,
		authorID,
	)
}
