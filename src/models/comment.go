package models

import "time"

type Comment struct {
	ID int `db:"id"`

	ArticleID int    `db:"article_id"`
	AuthorID  int    `db:"author_id"`
	ParentID  *int   `db:"parent_id"` // nil for root comments
	Content   string `db:"content"`
	Approved  bool   `db:"approved"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}
