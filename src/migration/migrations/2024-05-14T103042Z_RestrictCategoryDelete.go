package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/newsdesk-cms/newsdesk/src/migration/types"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

func init() {
	registerMigration(RestrictCategoryDelete{})
}

type RestrictCategoryDelete struct{}

func (m RestrictCategoryDelete) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2024, 5, 14, 10, 30, 42, 0, time.UTC))
}

func (m RestrictCategoryDelete) Name() string {
	return "RestrictCategoryDelete"
}

func (m RestrictCategoryDelete) Description() string {
	return "Refuse to delete categories that articles still reference instead of clearing the articles' category"
}

func (m RestrictCategoryDelete) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		ALTER TABLE article DROP CONSTRAINT article_category_id_fkey;
		ALTER TABLE article
			ADD CONSTRAINT article_category_id_fkey
			FOREIGN KEY (category_id) REFERENCES category (id) ON DELETE RESTRICT;
		`,
	)
	if err != nil {
		return oops.New(err, "failed to restrict category deletes")
	}
	return nil
}

func (m RestrictCategoryDelete) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		ALTER TABLE article DROP CONSTRAINT article_category_id_fkey;
		ALTER TABLE article
			ADD CONSTRAINT article_category_id_fkey
			FOREIGN KEY (category_id) REFERENCES category (id) ON DELETE SET NULL;
		`,
	)
	if err != nil {
		return oops.New(err, "failed to restore category delete behavior")
	}
	return nil
}
