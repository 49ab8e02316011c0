package website

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/accounts"
	"github.com/newsdesk-cms/newsdesk/src/config"
	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/email"
	"github.com/newsdesk-cms/newsdesk/src/images"
	"github.com/newsdesk-cms/newsdesk/src/jobs"
	"github.com/newsdesk-cms/newsdesk/src/logging"
	"github.com/newsdesk-cms/newsdesk/src/memstore"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/newsdata"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/spf13/cobra"
)

var WebsiteCommand = &cobra.Command{
	Use:   "newsdesk",
	Short: "Run the newsdesk API server",
	Run: func(cmd *cobra.Command, args []string) {
		defer logging.LogPanics(nil)
		logging.Info().Str("env", string(config.Config.Env)).Msg("Starting newsdesk")

		memory, _ := cmd.Flags().GetBool("memory")

		var wg sync.WaitGroup

		var store Store
		if memory {
			logging.Warn().Msg("Using the in-memory store; nothing will be saved")
			store = memstore.New()
		} else {
			conn, err := db.NewConnPool(context.Background())
			if err != nil {
				logging.Fatal().Err(err).Msg("failed to connect to the database")
			}
			defer conn.Close()
			store = newsdata.New(conn)
		}

		host, err := images.NewHost(config.Config.Images)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to set up the image host")
		}
		if !config.Config.Images.Configured() {
			logging.Warn().Msg("Image host is not configured; uploads are disabled")
		}

		mailer := email.NewMailer(config.Config.Email)
		app := NewApp(store, config.Config, mailer, host, time.Now)

		if memory {
			password, _ := cmd.Flags().GetString("admin-password")
			if err := seedMemoryAdmin(context.Background(), app, store, password); err != nil {
				logging.Fatal().Err(err).Msg("failed to create the admin account")
			}
		}

		// Start background jobs
		wg.Add(1)
		streams, streamsJob := StartStreams(5*time.Second, config.Config.Email.FrontendUrl)
		app.Streams = streams
		backgroundJobs := jobs.Jobs{
			mailer.StartQueue(),
			app.Sessions.StartPresenceSweep(config.Config.Presence.SweepInterval),
			streamsJob,
		}

		// Create HTTP server
		wg.Add(1)
		server := http.Server{
			Addr:              config.Config.Addr,
			Handler:           NewWebsiteRoutes(app),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logging.Info().Str("addr", config.Config.Addr).Msg("Serving the API")
			serverErr := server.ListenAndServe()
			if !errors.Is(serverErr, http.ErrServerClosed) {
				logging.Error().Err(serverErr).Msg("Server shut down unexpectedly")
			}
			// The wg.Done() happens in the shutdown logic below.
		}()

		// Wait for SIGINT or SIGTERM in the background and trigger graceful shutdown
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-signals // First signal (start shutdown)
			logging.Info().Msg("Shutting down newsdesk")

			const timeout = 10 * time.Second

			go func() {
				logging.Info().Msg("Shutting down background jobs...")
				unfinished := backgroundJobs.CancelAndWait(timeout)
				if len(unfinished) == 0 {
					logging.Info().Msg("Background jobs closed gracefully")
				} else {
					logging.Warn().Strs("Unfinished", unfinished).Msg("Background jobs did not finish by the deadline")
				}
				wg.Done()
			}()

			// Gracefully shut down the HTTP server
			go func() {
				timeoutCtx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				err := server.Shutdown(timeoutCtx)
				if err != nil {
					logging.Warn().Err(err).Msg("Server did not shut down gracefully")
				}
				wg.Done()
			}()

			<-signals // Second signal (force quit)
			logging.Warn().Strs("Unfinished background jobs", backgroundJobs.ListUnfinished()).Msg("Forcibly killed newsdesk")
			os.Exit(1)
		}()

		// Wait for all of the above to finish, then exit
		wg.Wait()
	},
}

func init() {
	WebsiteCommand.Flags().Bool("memory", false, "Keep everything in memory instead of Postgres, for demos")
	WebsiteCommand.Flags().String("admin-password", "password", "Password for the admin account created in --memory mode")
}

// seedMemoryAdmin creates a verified admin, since the admin CLI cannot reach
// an in-memory store.
func seedMemoryAdmin(ctx context.Context, app *App, store Store, password string) error {
	acc, err := app.Accounts.Register(ctx, accounts.RegisterInput{
		Username: "admin",
		Email:    "admin@newsdesk.local",
		Password: password,
	})
	if err != nil {
		return err
	}
	acc.IsVerified = true
	acc.VerificationToken = nil
	acc.VerificationExpires = nil
	acc.Role = models.RoleAdmin
	if err := store.UpdateAccount(ctx, acc); err != nil {
		return oops.New(err, "failed to promote admin")
	}
	logging.Info().Str("email", acc.Email).Msg("Created in-memory admin account")
	return nil
}
