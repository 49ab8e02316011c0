package categories

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/images"
	"github.com/newsdesk-cms/newsdesk/src/logging"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/perms"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	MinNameLength        = 2
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

type Store interface {
	GetCategory(ctx context.Context, id int) (*models.Category, error)
	FindCategoryConflict(ctx context.Context, name, slug string, excludeID int) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	UpdateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id int) error
	CountArticlesInCategory(ctx context.Context, categoryID int) (int, error)
}

type Service struct {
	Store  Store
	Images images.Host
	Now    func() time.Time
}

func NewService(store Store, host images.Host, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if host == nil {
		host = images.Disabled{}
	}
	return &Service{Store: store, Images: host, Now: now}
}

var (
	reNotSlug    = regexp.MustCompile(`[^a-z0-9\s-]`)
	reWhitespace = regexp.MustCompile(`\s+`)
	reDashes     = regexp.MustCompile(`-+`)
)

/*
Slugify derives the URL form of a category name. Accents are dropped by
decomposing and removing the combining marks; anything else outside
[a-z0-9] is removed rather than transliterated.
*/
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}
	slug := reNotSlug.ReplaceAllString(folded, "")
	slug = strings.TrimSpace(slug)
	slug = reWhitespace.ReplaceAllString(slug, "-")
	slug = reDashes.ReplaceAllString(slug, "-")
	return slug
}

type Input struct {
	Name        string
	Description string
	Images      []string
}

func (in Input) clean() (Input, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if n := utf8.RuneCountInString(in.Name); n < MinNameLength || n > MaxNameLength {
		return in, "", oops.InvalidInput("category name must be between %d and %d characters", MinNameLength, MaxNameLength).WithCode("invalid_name")
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return in, "", oops.InvalidInput("description may be at most %d characters", MaxDescriptionLength).WithCode("invalid_description")
	}
	slug := Slugify(in.Name)
	if slug == "" {
		return in, "", oops.InvalidInput("category name must contain letters or digits").WithCode("invalid_name")
	}

	cleaned := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			cleaned = append(cleaned, img)
		}
	}
	in.Images = cleaned

	return in, slug, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Category, error) {
	cats, err := s.Store.ListCategories(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to list categories")
	}
	return cats, nil
}

func (s *Service) Get(ctx context.Context, id int) (*models.Category, error) {
	cat, err := s.Store.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, oops.NotFound("category %d not found", id).WithCode("category_not_found")
		}
		return nil, oops.New(err, "failed to fetch category %d", id)
	}
	return cat, nil
}

func (s *Service) checkConflict(ctx context.Context, name, slug string, excludeID int) error {
	existing, err := s.Store.FindCategoryConflict(ctx, name, slug, excludeID)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil
		}
		return oops.New(err, "failed to check category uniqueness")
	}
	return oops.Conflict("a category with this name already exists").
		WithCode("category_exists").
		WithDetail("categoryId", existing.ID)
}

func (s *Service) Create(ctx context.Context, actor models.Identity, in Input) (*models.Category, error) {
	if err := perms.Require(actor, perms.CategoryWrite); err != nil {
		return nil, err
	}
	in, slug, err := in.clean()
	if err != nil {
		return nil, err
	}
	if err := s.checkConflict(ctx, in.Name, slug, 0); err != nil {
		return nil, err
	}

	now := s.Now()
	cat := &models.Category{
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
		Images:      in.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.CreateCategory(ctx, cat); err != nil {
		if oops.Is(err, oops.KindConflict) {
			return nil, err
		}
		return nil, oops.New(err, "failed to create category")
	}
	return cat, nil
}

// Update replaces the category's fields. Images dropped from the list are
// deleted from the image host.
func (s *Service) Update(ctx context.Context, actor models.Identity, id int, in Input) (*models.Category, error) {
	if err := perms.Require(actor, perms.CategoryWrite); err != nil {
		return nil, err
	}
	in, slug, err := in.clean()
	if err != nil {
		return nil, err
	}
	cat, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkConflict(ctx, in.Name, slug, id); err != nil {
		return nil, err
	}

	removed := missingFrom(cat.Images, in.Images)

	cat.Name = in.Name
	cat.Slug = slug
	cat.Description = in.Description
	cat.Images = in.Images
	cat.UpdatedAt = s.Now()
	if err := s.Store.UpdateCategory(ctx, cat); err != nil {
		if oops.Is(err, oops.KindConflict) {
			return nil, err
		}
		return nil, oops.New(err, "failed to update category %d", id)
	}

	images.DeleteAll(ctx, s.Images, removed)
	return cat, nil
}

func errInUse(articles int) error {
	return oops.InvalidState("category is still used by %d articles", articles).
		WithCode("category_in_use").
		WithDetail("articles", articles)
}

/*
Delete removes a category that no article references. Its images are deleted
from the image host afterwards; failures there are logged only.
*/
func (s *Service) Delete(ctx context.Context, actor models.Identity, id int) error {
	if err := perms.Require(actor, perms.CategoryDelete); err != nil {
		return err
	}
	cat, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	inUse, err := s.Store.CountArticlesInCategory(ctx, id)
	if err != nil {
		return oops.New(err, "failed to count articles in category %d", id)
	}
	if inUse > 0 {
		return errInUse(inUse)
	}

	if err := s.Store.DeleteCategory(ctx, id); err != nil {
		switch {
		case errors.Is(err, db.NotFound):
			return oops.NotFound("category %d not found", id).WithCode("category_not_found")
		case errors.Is(err, models.ErrCategoryInUse):
			// An article was filed under it after the count.
			inUse, _ = s.Store.CountArticlesInCategory(ctx, id)
			return errInUse(inUse)
		}
		return oops.New(err, "failed to delete category %d", id)
	}

	n := images.DeleteAll(ctx, s.Images, cat.Images)
	logging.ExtractLogger(ctx).Debug().Int("category", id).Int("images deleted", n).Msg("Deleted category")
	return nil
}

func missingFrom(before, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, u := range after {
		keep[u] = true
	}
	var missing []string
	for _, u := range before {
		if !keep[u] {
			missing = append(missing, u)
		}
	}
	return missing
}
