/*
Package newsdata is the Postgres implementation of the stores used by the
services. Every method maps onto one or two SQL statements; anything that
needs more than that belongs in a service.

Methods return db.NotFound when the row they were asked about does not exist,
and oops.Conflict errors when a unique constraint fires, matching memstore.
Writes that would break an account or category rule are guarded in SQL and
come back as the sentinel errors in models.
*/
package newsdata

import (
	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

type Store struct {
	Conn db.ConnOrTx
}

func New(conn db.ConnOrTx) *Store {
	return &Store{Conn: conn}
}

// Constraint names, as created by the migrations.
const (
	constraintAccountEmail    = "account_email_key"
	constraintAccountUsername = "account_username_key"
	constraintCategoryName    = "category_name_key"
	constraintCategorySlug    = "category_slug_key"
	constraintArticleCategory = "article_category_id_fkey"
)

// conflict translates unique violations into the errors services expect.
// Anything else is returned unchanged.
func conflict(err error) error {
	constraint, ok := db.IsUniqueViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case constraintAccountEmail:
		return oops.Conflict("email is already registered").WithCode("email_taken")
	case constraintAccountUsername:
		return oops.Conflict("username is already taken").WithCode("username_taken")
	case constraintCategoryName, constraintCategorySlug:
		return oops.Conflict("a category with this name already exists").WithCode("category_exists")
	}
	return oops.Conflict("duplicate record").WithCode("conflict")
}

// inUse reports whether a DELETE failed because articles still point at the
// category.
func inUse(err error) bool {
	constraint, ok := db.IsForeignKeyViolation(err)
	return ok && constraint == constraintArticleCategory
}

// affected turns an UPDATE or DELETE that touched nothing into db.NotFound.
func affected(n int64) error {
	if n == 0 {
		return db.NotFound
	}
	return nil
}
