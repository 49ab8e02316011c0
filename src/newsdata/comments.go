package newsdata

import (
	"context"

	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

func (s *Store) GetComment(ctx context.Context, id int) (*models.Comment, error) {
	return db.QueryOne[models.Comment](ctx, s.Conn,
		`SELECT $columns FROM comment WHERE id = $1`,
		id,
	)
}

// Oldest first, so a thread reads top to bottom.
func (s *Store) ListCommentsByArticle(ctx context.Context, articleID int) ([]*models.Comment, error) {
	comments, err := db.Query[models.Comment](ctx, s.Conn,
		`
		---- List comments for article
		SELECT $columns FROM comment WHERE article_id = $1 ORDER BY created_at, id
		`,
		articleID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to list comments for article")
	}
	return comments, nil
}

func (s *Store) ListCommentsByAuthor(ctx context.Context, authorID int) ([]*models.Comment, error) {
	comments, err := db.Query[models.Comment](ctx, s.Conn,
		`SELECT $columns FROM comment WHERE author_id = $1 ORDER BY created_at DESC, id DESC`,
		authorID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to list comments by author")
	}
	return comments, nil
}

func (s *Store) ListComments(ctx context.Context) ([]*models.Comment, error) {
	comments, err := db.Query[models.Comment](ctx, s.Conn,
		`SELECT $columns FROM comment ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, oops.New(err, "failed to list comments")
	}
	return comments, nil
}

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	id, err := db.QueryOneScalar[int](ctx, s.Conn,
		`
		INSERT INTO comment (article_id, author_id, parent_id, content, approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
		`,
		c.ArticleID, c.AuthorID, c.ParentID, c.Content, c.Approved, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return oops.New(err, "failed to create comment")
	}
	c.ID = id
	return nil
}

func (s *Store) UpdateComment(ctx context.Context, c *models.Comment) error {
	tag, err := s.Conn.Exec(ctx,
		`UPDATE comment SET content = $2, approved = $3, updated_at = $4 WHERE id = $1`,
		c.ID, c.Content, c.Approved, c.UpdatedAt,
	)
	if err != nil {
		return oops.New(err, "failed to update comment")
	}
	return affected(tag.RowsAffected())
}

func (s *Store) DeleteComment(ctx context.Context, id int) error {
	tag, err := s.Conn.Exec(ctx, `DELETE FROM comment WHERE id = $1`, id)
	if err != nil {
		return oops.New(err, "failed to delete comment")
	}
	return affected(tag.RowsAffected())
}

func (s *Store) DeleteCommentsByArticle(ctx context.Context, articleID int) (int64, error) {
	tag, err := s.Conn.Exec(ctx, `DELETE FROM comment WHERE article_id = $1`, articleID)
	if err != nil {
		return 0, oops.New(err, "failed to delete comments for article")
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CountComments(ctx context.Context) (int, error) {
	return db.QueryOneScalar[int](ctx, s.Conn, `SELECT COUNT(*) FROM comment`)
}
