package newsdata

import (
	"context"

	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

func (s *Store) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	return db.QueryOne[models.Category](ctx, s.Conn,
		`SELECT $columns FROM category WHERE id = $1`,
		id,
	)
}

func (s *Store) FindCategoryConflict(ctx context.Context, name, slug string, excludeID int) (*models.Category, error) {
	return db.QueryOne[models.Category](ctx, s.Conn,
		`
		SELECT $columns FROM category
		WHERE (LOWER(name) = LOWER($1) OR slug = $2) AND id <> $3
		LIMIT 1
		`,
		name, slug, excludeID,
	)
}

func (s *Store) ListCategories(ctx context.Context) ([]*models.Category, error) {
	cats, err := db.Query[models.Category](ctx, s.Conn,
		`
		---- List categories
		SELECT $columns FROM category ORDER BY LOWER(name)
		`,
	)
	if err != nil {
		return nil, oops.New(err, "failed to list categories")
	}
	return cats, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	id, err := db.QueryOneScalar[int](ctx, s.Conn,
		`
		INSERT INTO category (name, slug, description, images, created_at, updated_at)
		VALUES ($1, $2, $3, COALESCE($4, '{}'::TEXT[]), $5, $6)
		RETURNING id
		`,
		c.Name, c.Slug, c.Description, c.Images, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return conflict(err)
	}
	c.ID = id
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	tag, err := s.Conn.Exec(ctx,
		`
		UPDATE category
		SET name = $2, slug = $3, description = $4, images = COALESCE($5, '{}'::TEXT[]), updated_at = $6
		WHERE id = $1
		`,
		c.ID, c.Name, c.Slug, c.Description, c.Images, c.UpdatedAt,
	)
	if err != nil {
		return conflict(err)
	}
	return affected(tag.RowsAffected())
}

func (s *Store) DeleteCategory(ctx context.Context, id int) error {
	tag, err := s.Conn.Exec(ctx, `DELETE FROM category WHERE id = $1`, id)
	if err != nil {
		if inUse(err) {
			return models.ErrCategoryInUse
		}
		return oops.New(err, "failed to delete category")
	}
	return affected(tag.RowsAffected())
}

func (s *Store) CountCategories(ctx context.Context) (int, error) {
	return db.QueryOneScalar[int](ctx, s.Conn, `SELECT COUNT(*) FROM category`)
}
