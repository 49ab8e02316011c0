package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/newsdesk-cms/newsdesk/src/migration/types"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

func init() {
	registerMigration(ArticleListingIndexes{})
}

type ArticleListingIndexes struct{}

func (m ArticleListingIndexes) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2024, 4, 8, 8, 15, 33, 0, time.UTC))
}

func (m ArticleListingIndexes) Name() string {
	return "ArticleListingIndexes"
}

func (m ArticleListingIndexes) Description() string {
	return "Index published articles by date and tags for the news listing"
}

func (m ArticleListingIndexes) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		CREATE INDEX article_published_created ON article (created_at DESC, id DESC) WHERE published;
		CREATE INDEX article_tags ON article USING GIN (tags);
		`,
	)
	if err != nil {
		return oops.New(err, "failed to create article indexes")
	}
	return nil
}

func (m ArticleListingIndexes) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		DROP INDEX article_published_created;
		DROP INDEX article_tags;
		`,
	)
	if err != nil {
		return oops.New(err, "failed to drop article indexes")
	}
	return nil
}
