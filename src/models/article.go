package models

import "time"

type Location struct {
	Lat     *float64 `db:"location_lat"`
	Lng     *float64 `db:"location_lng"`
	Address string   `db:"location_address"`
}

func (l Location) IsSet() bool {
	return l.Lat != nil && l.Lng != nil
}

type Article struct {
	ID int `db:"id"`

	Title      string   `db:"title"`
	Content    string   `db:"content"`
	Summary    string   `db:"summary"`
	AuthorID   int      `db:"author_id"`
	CategoryID *int     `db:"category_id"`
	Tags       []string `db:"tags"`
	Images     []string `db:"images"`
	VideoUrl   string   `db:"video_url"`

	Location

	Views      int  `db:"views"`
	LikesCount int  `db:"likes_count"`
	Published  bool `db:"published"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ArticleQuery filters article listings. Zero values mean "no filter".
type ArticleQuery struct {
	Page  int
	Limit int

	Search     string
	CategoryID *int
	AuthorID   *int
	Tag        string
	From       *time.Time
	To         *time.Time

	IncludeUnpublished bool
}

func (q ArticleQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}
