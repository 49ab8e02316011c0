/*
Package admintools holds the `newsdesk admin` commands for fixing accounts
from a shell, for when nobody can log in to fix them through the site.
*/
package admintools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/accounts"
	"github.com/newsdesk-cms/newsdesk/src/auth"
	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/newsdata"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/website"
	"github.com/spf13/cobra"
)

type Store interface {
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	CreateAccount(ctx context.Context, acc *models.Account) error
	UpdateAccount(ctx context.Context, acc *models.Account) error
	SetBan(ctx context.Context, accountID int, ban models.Ban) error
}

func init() {
	adminCommand := &cobra.Command{
		Use:   "admin",
		Short: "Miscellaneous admin commands",
	}
	website.WebsiteCommand.AddCommand(adminCommand)

	setRoleCommand := &cobra.Command{
		Use:   "setrole [username] [user|editor|admin]",
		Short: "Change an account's role",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a username and a role.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			withStore(func(ctx context.Context, store Store) error {
				acc, err := SetRole(ctx, store, args[0], models.Role(args[1]))
				if err == nil {
					fmt.Printf("'%s' is now %s\n", acc.Username, acc.Role)
				}
				return err
			})
		},
	}
	adminCommand.AddCommand(setRoleCommand)

	setPasswordCommand := &cobra.Command{
		Use:   "setpassword [username] [new password]",
		Short: "Replace an account's password",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a username and a password.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			withStore(func(ctx context.Context, store Store) error {
				acc, err := SetPassword(ctx, store, args[0], args[1])
				if err == nil {
					fmt.Printf("Successfully updated password for '%s'\n", acc.Username)
				}
				return err
			})
		},
	}
	adminCommand.AddCommand(setPasswordCommand)

	verifyCommand := &cobra.Command{
		Use:   "verify [username]",
		Short: "Mark an account's email as verified",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a username.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			withStore(func(ctx context.Context, store Store) error {
				acc, err := Verify(ctx, store, args[0])
				if err == nil {
					fmt.Printf("'%s' has been verified.\n", acc.Username)
				}
				return err
			})
		},
	}
	adminCommand.AddCommand(verifyCommand)

	unbanCommand := &cobra.Command{
		Use:   "unban [username]",
		Short: "Lift an account's ban",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a username.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			withStore(func(ctx context.Context, store Store) error {
				acc, err := Unban(ctx, store, args[0])
				if err == nil {
					fmt.Printf("'%s' is no longer banned.\n", acc.Username)
				}
				return err
			})
		},
	}
	adminCommand.AddCommand(unbanCommand)

	var createRole string
	createUserCommand := &cobra.Command{
		Use:   "createuser [username] [email] [password]",
		Short: "Create a verified account",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 3 {
				fmt.Printf("You must provide a username, an email address and a password.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			withStore(func(ctx context.Context, store Store) error {
				acc, err := CreateAccount(ctx, store, accounts.RegisterInput{
					Username: args[0],
					Email:    args[1],
					Password: args[2],
				}, models.Role(createRole))
				if err == nil {
					fmt.Printf("Created %s '%s' (id %d)\n", acc.Role, acc.Username, acc.ID)
				}
				return err
			})
		},
	}
	createUserCommand.Flags().StringVar(&createRole, "role", string(models.RoleUser), "Role of the new account")
	adminCommand.AddCommand(createUserCommand)
}

func withStore(f func(ctx context.Context, store Store) error) {
	ctx := context.Background()
	conn, err := db.NewConn(ctx)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	if err := f(ctx, newsdata.New(conn)); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func findAccount(ctx context.Context, store Store, username string) (*models.Account, error) {
	acc, err := store.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, oops.NotFound("account '%s' not found", username).WithCode("account_not_found")
		}
		return nil, oops.New(err, "failed to look up account '%s'", username)
	}
	return acc, nil
}

func SetRole(ctx context.Context, store Store, username string, role models.Role) (*models.Account, error) {
	if !role.Valid() {
		return nil, oops.InvalidInput("unknown role %q (expected user, editor or admin)", role).WithCode("invalid_role")
	}
	acc, err := findAccount(ctx, store, username)
	if err != nil {
		return nil, err
	}
	acc.Role = role
	acc.UpdatedAt = time.Now()
	if err := store.UpdateAccount(ctx, acc); err != nil {
		if errors.Is(err, models.ErrBannedNotPromoted) {
			return nil, oops.InvalidState("'%s' is banned; unban them before making them an admin", username).WithCode("account_banned")
		}
		return nil, oops.New(err, "failed to update role")
	}
	return acc, nil
}

func SetPassword(ctx context.Context, store Store, username, password string) (*models.Account, error) {
	if err := accounts.CheckPassword(password); err != nil {
		return nil, err
	}
	acc, err := findAccount(ctx, store, username)
	if err != nil {
		return nil, err
	}
	acc.Password = auth.HashPassword(password).String()
	acc.ResetToken = nil
	acc.ResetExpires = nil
	acc.UpdatedAt = time.Now()
	if err := store.UpdateAccount(ctx, acc); err != nil {
		return nil, oops.New(err, "failed to update password")
	}
	return acc, nil
}

func Verify(ctx context.Context, store Store, username string) (*models.Account, error) {
	acc, err := findAccount(ctx, store, username)
	if err != nil {
		return nil, err
	}
	acc.IsVerified = true
	acc.VerificationToken = nil
	acc.VerificationExpires = nil
	acc.UpdatedAt = time.Now()
	if err := store.UpdateAccount(ctx, acc); err != nil {
		return nil, oops.New(err, "failed to verify account")
	}
	return acc, nil
}

func Unban(ctx context.Context, store Store, username string) (*models.Account, error) {
	acc, err := findAccount(ctx, store, username)
	if err != nil {
		return nil, err
	}
	if err := store.SetBan(ctx, acc.ID, models.Ban{}); err != nil {
		return nil, oops.New(err, "failed to unban account")
	}
	acc.Ban = models.Ban{}
	return acc, nil
}

func CreateAccount(ctx context.Context, store Store, in accounts.RegisterInput, role models.Role) (*models.Account, error) {
	if !role.Valid() {
		return nil, oops.InvalidInput("unknown role %q", role).WithCode("invalid_role")
	}
	username, err := accounts.CleanUsername(in.Username)
	if err != nil {
		return nil, err
	}
	address, err := accounts.CleanEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := accounts.CheckPassword(in.Password); err != nil {
		return nil, err
	}

	now := time.Now()
	acc := &models.Account{
		Username:     username,
		Email:        address,
		Password:     auth.HashPassword(in.Password).String(),
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
