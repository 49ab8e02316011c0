package articles

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/parsing"
)

const (
	MinTitleLength   = 5
	MaxTitleLength   = 200
	MinContentLength = 10
	MaxContentLength = 10000
	MaxSummaryLength = 500
	MaxTags          = 10
	MinTagLength     = 2
	MaxTagLength     = 50
	MinAddressLength = 3
	MaxAddressLength = 200
)

var reYoutubeUrl = regexp.MustCompile(`^https://(www\.)?youtube\.com/watch\?v=[a-zA-Z0-9_-]{11}$`)

type LocationInput struct {
	Lat     *float64
	Lng     *float64
	Address string
}

// Input is the editable part of an article. A nil Location clears it; a nil
// Published leaves the flag as it was.
type Input struct {
	Title      string
	Content    string
	Summary    string
	CategoryID *int
	Tags       []string
	Images     []string
	VideoUrl   string
	Location   *LocationInput
	Published  *bool
}

func invalid(field string, format string, args ...any) error {
	return oops.InvalidInput(format, args...).WithCode("invalid_" + field).WithDetail("field", field)
}

func between(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

// Validate checks and normalizes the input in place.
func (in *Input) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Summary = strings.TrimSpace(in.Summary)
	in.VideoUrl = strings.TrimSpace(in.VideoUrl)

	if !between(in.Title, MinTitleLength, MaxTitleLength) {
		return invalid("title", "title must be between %d and %d characters", MinTitleLength, MaxTitleLength)
	}
	if !between(parsing.PlainText(in.Content), MinContentLength, MaxContentLength) {
		return invalid("content", "content must be between %d and %d characters of text", MinContentLength, MaxContentLength)
	}
	if utf8.RuneCountInString(in.Summary) > MaxSummaryLength {
		return invalid("summary", "summary may be at most %d characters", MaxSummaryLength)
	}

	if len(in.Tags) > MaxTags {
		return invalid("tags", "an article may have at most %d tags", MaxTags)
	}
	seen := make(map[string]bool, len(in.Tags))
	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		tag = strings.TrimSpace(tag)
		if !between(tag, MinTagLength, MaxTagLength) {
			return invalid("tags", "tags must be between %d and %d characters", MinTagLength, MaxTagLength)
		}
		if key := strings.ToLower(tag); !seen[key] {
			seen[key] = true
			tags = append(tags, tag)
		}
	}
	in.Tags = tags

	if in.VideoUrl != "" && !reYoutubeUrl.MatchString(in.VideoUrl) {
		return invalid("video_url", "video must be a YouTube link of the form https://www.youtube.com/watch?v=...")
	}

	if loc := in.Location; loc != nil {
		loc.Address = strings.TrimSpace(loc.Address)
		if loc.Lat == nil || loc.Lng == nil {
			return invalid("location", "a location needs both a latitude and a longitude")
		}
		if *loc.Lat < -90 || *loc.Lat > 90 {
			return invalid("location", "latitude must be between -90 and 90")
		}
		if *loc.Lng < -180 || *loc.Lng > 180 {
			return invalid("location", "longitude must be between -180 and 180")
		}
		if loc.Address != "" && !between(loc.Address, MinAddressLength, MaxAddressLength) {
			return invalid("location", "address must be between %d and %d characters", MinAddressLength, MaxAddressLength)
		}
	}

	images := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	in.Images = images

	return nil
}

func (in *Input) applyTo(a *models.Article) {
	a.Title = in.Title
	a.Content = in.Content
	a.Summary = in.Summary
	a.CategoryID = in.CategoryID
	a.Tags = in.Tags
	a.Images = in.Images
	a.VideoUrl = in.VideoUrl
	if in.Location != nil {
		a.Location = models.Location{
			Lat:     in.Location.Lat,
			Lng:     in.Location.Lng,
			Address: in.Location.Address,
		}
	} else {
		a.Location = models.Location{}
	}
	if in.Published != nil {
		a.Published = *in.Published
	}
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// CheckPagination fills in defaults for zero values and rejects the rest.
func CheckPagination(page, limit int) (int, int, error) {
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if page < 1 {
		return 0, 0, oops.InvalidInput("page must be at least 1").WithCode("invalid_pagination")
	}
	if limit < 1 || limit > MaxLimit {
		return 0, 0, oops.InvalidInput("limit must be between 1 and %d", MaxLimit).WithCode("invalid_pagination")
	}
	return page, limit, nil
}
