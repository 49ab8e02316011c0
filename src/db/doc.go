/*
Package db holds the low-level helpers for talking to Postgres. Queries are
plain SQL; results are mapped onto Go types by pgx.

Arguments use $1, $2, ... placeholders and are passed straight to pgx. Use
Postgres arrays instead of IN when passing a slice:

	ids, err := db.QueryScalar[int](ctx, conn,
		`
		SELECT id
		FROM article
		WHERE
			category_id = ANY($1)
			AND published
		`,
		[]int{1, 2, 3},
	)

To fetch whole rows, query into a struct with `db:"column_name"` tags and use
the $columns placeholder:

	type Category struct {
		ID   int    `db:"id"`
		Name string `db:"name"`
		Slug string `db:"slug"`
	}
	categories, err := db.Query[Category](ctx, conn, `SELECT $columns FROM category`)
	// SELECT id, name, slug FROM category

When a JOIN makes column names ambiguous, qualify them with $columns{alias}:

	articles, err := db.Query[models.Article](ctx, conn, `
		SELECT $columns{a}
		FROM
			article AS a
			JOIN article_like AS l ON l.article_id = a.id
		WHERE l.account_id = $1
	`, accountID)
	// SELECT a.id, a.title, ... FROM ...

Dynamic WHERE clauses are built with QueryBuilder, which numbers $? placeholders.
*/
package db
