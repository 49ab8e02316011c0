package models

import (
	"errors"
	"time"
)

// ErrCategoryInUse is returned by stores asked to delete a category that
// articles still point at.
var ErrCategoryInUse = errors.New("category is referenced by articles")

type Category struct {
	ID int `db:"id"`

	Name        string   `db:"name"`
	Slug        string   `db:"slug"`
	Description string   `db:"description"`
	Images      []string `db:"images"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
