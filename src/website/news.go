package website

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/articles"
	"github.com/newsdesk-cms/newsdesk/src/images"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

type articleBody struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Summary    string   `json:"summary"`
	CategoryID *int     `json:"categoryId"`
	Tags       []string `json:"tags"`
	Images     []string `json:"images"`
	VideoUrl   string   `json:"videoUrl"`
	Location   *struct {
		Lat     *float64 `json:"lat"`
		Lng     *float64 `json:"lng"`
		Address string   `json:"address"`
	} `json:"location"`
	Published *bool `json:"published"`
}

func (b articleBody) input() articles.Input {
	in := articles.Input{
		Title:      b.Title,
		Content:    b.Content,
		Summary:    b.Summary,
		CategoryID: b.CategoryID,
		Tags:       b.Tags,
		Images:     b.Images,
		VideoUrl:   b.VideoUrl,
		Published:  b.Published,
	}
	if b.Location != nil {
		in.Location = &articles.LocationInput{
			Lat:     b.Location.Lat,
			Lng:     b.Location.Lng,
			Address: b.Location.Address,
		}
	}
	return in
}

/*
articleQuery reads the listing filters from the query string:
page, limit, search, category, author, tag, from and to. Dates are either
YYYY-MM-DD or RFC 3339; a bare "to" date covers that whole day.
*/
func articleQuery(c *RequestContext) (models.ArticleQuery, error) {
	var q models.ArticleQuery
	var err error

	if q.Page, q.Limit, err = pageParams(c); err != nil {
		return q, err
	}

	params := c.Req.URL.Query()
	q.Search = params.Get("search")
	q.Tag = params.Get("tag")

	if v := params.Get("category"); v != "" {
		id, err := intParam(v, "category")
		if err != nil {
			return q, err
		}
		q.CategoryID = &id
	}
	if v := params.Get("author"); v != "" {
		id, err := intParam(v, "author")
		if err != nil {
			return q, err
		}
		q.AuthorID = &id
	}
	if q.From, err = dateParam(params.Get("from"), "from", false); err != nil {
		return q, err
	}
	if q.To, err = dateParam(params.Get("to"), "to", true); err != nil {
		return q, err
	}

	return q, nil
}

func dateParam(v string, name string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, oops.InvalidInput("%s must be a date", name).WithCode("invalid_" + name).WithDetail("field", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func NewsList(c *RequestContext) ResponseData {
	q, err := articleQuery(c)
	if err != nil {
		return c.ErrorResponse(err)
	}
	p, err := c.App.Articles.ListPublished(c, q)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(articlePageView(p))
}

func NewsSuggestions(c *RequestContext) ResponseData {
	titles, err := c.App.Articles.Suggestions(c, c.Req.URL.Query().Get("q"))
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(titles)
}

// readerIdentity is the caller as seen by public pages. A banned account
// reads like an anonymous visitor.
func readerIdentity(c *RequestContext) *models.Identity {
	if c.Session == nil || c.Session.Account.IsBanned {
		return nil
	}
	return c.Identity()
}

func NewsArticle(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	d, err := c.App.Articles.Get(c, readerIdentity(c), id)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(articleDetailView(d))
}

func NewsLike(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	res, err := c.App.Articles.ToggleLike(c, c.Actor(), id)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(struct {
		Liked      bool `json:"liked"`
		LikesCount int  `json:"likesCount"`
	}{res.Liked, res.LikesCount})
}

func NewsCreate(c *RequestContext) ResponseData {
	var body articleBody
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	a, err := c.App.Articles.Create(c, c.Actor(), body.input())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Created(articleView(a))
}

func NewsUpdate(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	var body articleBody
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	a, err := c.App.Articles.Update(c, c.Actor(), id, body.input())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(articleView(a))
}

func NewsDelete(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	if err := c.App.Articles.Delete(c, c.Actor(), id); err != nil {
		return c.ErrorResponse(err)
	}
	return c.Message("Article deleted")
}

func NewsUpload(c *RequestContext) ResponseData {
	return uploadImage(c, images.FolderArticles)
}

func uploadImage(c *RequestContext, folder images.Folder) ResponseData {
	filename, content, err := readUpload(c)
	if err != nil {
		return c.ErrorResponse(err)
	}
	img, err := c.App.Images.Upload(c, images.UploadInput{
		Content:  content,
		Filename: filename,
		Folder:   folder,
	})
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Created(struct {
		Url    string `json:"url"`
		Ref    string `json:"ref"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}{img.Url, img.Ref, img.Width, img.Height})
}

// readUpload pulls the "image" file out of a multipart form.
func readUpload(c *RequestContext) (filename string, content []byte, err error) {
	const maxRequest = images.MaxUploadSize + 64*1024

	c.Req.Body = http.MaxBytesReader(c.Res, c.Req.Body, maxRequest)
	b := c.Perf.StartBlock("UPLOAD", "Read multipart form")
	defer b.End()

	file, header, err := c.Req.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return "", nil, oops.InvalidInput("images may be at most %d MB", images.MaxUploadSize/1024/1024).WithCode("image_too_large")
		}
		return "", nil, oops.InvalidInput("expected an image file in the \"image\" field").WithCode("invalid_image")
	}
	defer file.Close()

	content, err = io.ReadAll(io.LimitReader(file, images.MaxUploadSize+1))
	if err != nil {
		return "", nil, oops.New(err, "failed to read upload")
	}
	return header.Filename, content, nil
}

func EditorStats(c *RequestContext) ResponseData {
	stats, err := c.App.Articles.Stats(c, c.Actor())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(stats)
}

func EditorNews(c *RequestContext) ResponseData {
	mine, err := c.App.Articles.ListMine(c, c.Actor())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(articleViews(mine))
}
