package migration

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	lorem "github.com/HandmadeNetwork/golorem"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newsdesk-cms/newsdesk/src/auth"
	"github.com/newsdesk-cms/newsdesk/src/categories"
	"github.com/newsdesk-cms/newsdesk/src/config"
	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/newsdata"
	"github.com/newsdesk-cms/newsdesk/src/website"
	"github.com/spf13/cobra"
)

const SeedPassword = "password"

var seedBare bool

func init() {
	seedCommand := &cobra.Command{
		Use:   "seed",
		Short: "Migrate to the latest version and fill the database with sample data",
		Run: func(cmd *cobra.Command, args []string) {
			var err error
			if seedBare {
				err = BareMinimumSeed()
			} else {
				err = SampleSeed()
			}
			if err != nil {
				fmt.Printf("ERROR: %v\n", err)
				os.Exit(1)
			}
		},
	}
	seedCommand.Flags().BoolVar(&seedBare, "bare", false, "Only create the admin account")

	website.WebsiteCommand.AddCommand(seedCommand)
}

func seedConn(ctx context.Context) (*pgx.Conn, error) {
	return db.NewConnWithConfig(ctx, config.PostgresConfig{
		LogLevel: tracelog.LogLevelWarn,
	})
}

// BareMinimumSeed creates only what's necessary to log in and look around: a
// verified admin account.
func BareMinimumSeed() error {
	if err := Migrate(LatestVersion()); err != nil {
		return err
	}

	ctx := context.Background()
	conn, err := seedConn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	return runInTx(ctx, conn, func(tx pgx.Tx) error {
		fmt.Printf("Creating admin account (\"admin@example.com\"/%q)...\n", SeedPassword)
		_, err := seedAccount(ctx, newsdata.New(tx), "admin", models.RoleAdmin)
		return err
	})
}

// SampleSeed fills the database with enough sample data for local dev.
func SampleSeed() error {
	if err := BareMinimumSeed(); err != nil {
		return err
	}

	ctx := context.Background()
	conn, err := seedConn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	return runInTx(ctx, conn, func(tx pgx.Tx) error {
		store := newsdata.New(tx)
		admin, err := store.GetAccountByUsername(ctx, "admin")
		if err != nil {
			return err
		}

		fmt.Printf("Creating editors and readers (all with password %q)...\n", SeedPassword)
		var editors, readers []*models.Account
		for _, name := range []string{"eddie", "edna"} {
			acc, err := seedAccount(ctx, store, name, models.RoleEditor)
			if err != nil {
				return err
			}
			editors = append(editors, acc)
		}
		for _, name := range []string{"alice", "bob", "charlie"} {
			acc, err := seedAccount(ctx, store, name, models.RoleUser)
			if err != nil {
				return err
			}
			readers = append(readers, acc)
		}

		fmt.Println("Creating categories...")
		var cats []*models.Category
		for _, name := range []string{"World", "Business", "Technology", "Sports", "Culture"} {
			now := time.Now()
			cat := &models.Category{
				Name:        name,
				Slug:        categories.Slugify(name),
				Description: lorem.Sentence(6, 14),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := store.CreateCategory(ctx, cat); err != nil {
				return err
			}
			cats = append(cats, cat)
		}

		fmt.Println("Creating articles and comments...")
		for i := 0; i < 20; i++ {
			createdAt := time.Now().Add(-time.Duration(20-i) * 6 * time.Hour)
			categoryID := cats[rand.Intn(len(cats))].ID
			article := &models.Article{
				Title:      strings.TrimSuffix(lorem.Sentence(4, 9), "."),
				Content:    seedArticleContent(),
				Summary:    lorem.Sentence(10, 20),
				AuthorID:   editors[i%len(editors)].ID,
				CategoryID: &categoryID,
				Tags:       []string{lorem.Word(4, 8), lorem.Word(4, 8)},
				Views:      rand.Intn(500),
				Published:  i%5 != 0,
				CreatedAt:  createdAt,
				UpdatedAt:  createdAt,
			}
			if err := store.CreateArticle(ctx, article); err != nil {
				return err
			}
			if !article.Published {
				continue
			}

			var roots []int
			for j := 0; j < rand.Intn(4); j++ {
				author := readers[rand.Intn(len(readers))]
				comment := &models.Comment{
					ArticleID: article.ID,
					AuthorID:  author.ID,
					Content:   lorem.Sentence(3, 20),
					Approved:  true,
					CreatedAt: createdAt.Add(time.Duration(j+1) * time.Minute),
					UpdatedAt: createdAt.Add(time.Duration(j+1) * time.Minute),
				}
				if len(roots) > 0 && rand.Intn(2) == 0 {
					parentID := roots[rand.Intn(len(roots))]
					comment.ParentID = &parentID
				}
				if err := store.CreateComment(ctx, comment); err != nil {
					return err
				}
				if comment.ParentID == nil {
					roots = append(roots, comment.ID)
				}
			}
		}

		fmt.Println("Creating notifications...")
		var welcome []*models.Notification
		for _, acc := range append(editors, readers...) {
			welcome = append(welcome, &models.Notification{
				RecipientID: acc.ID,
				CreatorID:   admin.ID,
				Title:       "Welcome to Newsdesk",
				Message:     lorem.Sentence(8, 16),
				Type:        models.SeverityInfo,
				CreatedAt:   time.Now(),
			})
		}
		return store.CreateNotifications(ctx, welcome)
	})
}

func seedArticleContent() string {
	var paragraphs []string
	for i := 0; i < 3+rand.Intn(3); i++ {
		paragraphs = append(paragraphs, lorem.Paragraph(3, 6))
	}
	return strings.Join(paragraphs, "\n\n")
}

func seedAccount(ctx context.Context, store *newsdata.Store, username string, role models.Role) (*models.Account, error) {
	now := time.Now()
	acc := &models.Account{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		Password:     auth.HashPassword(SeedPassword).String(),
		Role:         role,
		IsVerified:   true,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}
