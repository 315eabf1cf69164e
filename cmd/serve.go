/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"folio/cache"
	"folio/content"
	"folio/feed"
	"folio/server"
	"folio/webhook"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// serveCmd represents the serve command
func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the site and its API",
		Description: `Starts the HTTP server.

		Serves the static site, the writings and CodeProb content, and the
		Hacker News feed. The feed index is loaded once on startup and again
		whenever a refresh is requested. Feed updates are pushed to browsers
		over server-sent events.`,
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.StringFlag{
				Name:    "host",
				Value:   "",
				Usage:   "Host to listen on",
				EnvVars: []string{"FOLIO_HOST"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port to listen on",
				EnvVars: []string{"FOLIO_PORT"},
			},
			&cli.StringFlag{
				Name:    "allow-origins",
				Value:   "http://localhost:3001",
				Usage:   "Comma separated origins allowed to call the API",
				EnvVars: []string{"FOLIO_ALLOW_ORIGINS"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			database := ctx.String("database")
			log.WithFields(log.Fields{
				"database": database,
			}).Info("Database configured")

			if err := cache.Migrate(database); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			store, err := cache.Open(database)
			if err != nil {
				return err
			}
			defer store.Close()

			display := feed.NewDisplay()
			broadcaster := server.NewBroadcaster()
			loader := newLoader(cfg, feed.MultiSink{display, broadcaster})

			app := server.Server(&server.ServerConfig{
				Loader:       loader,
				Display:      display,
				Broadcaster:  broadcaster,
				Writings:     cfg.Writings,
				Content:      content.New(cfg.Content, store),
				SiteURL:      cfg.Content.SiteURL,
				Contact:      webhook.NewContactSender(cfg.Webhooks.Contact, cfg.Webhooks.Timeout.Duration),
				Verifier:     webhook.NewVerifier(cfg.Webhooks.Verify, cfg.Webhooks.Timeout.Duration),
				AllowOrigins: ctx.String("allow-origins"),
			})

			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				// Failures are logged by the loader, a refresh tries again
				_ = loader.LoadIndex(runCtx)
			}()

			go func() {
				ticker := time.NewTicker(cfg.Content.CacheDuration.Duration)
				defer ticker.Stop()
				for {
					select {
					case <-runCtx.Done():
						return
					case <-ticker.C:
						removed, err := store.Prune(runCtx, cfg.Content.CacheDuration.Duration)
						if err != nil {
							log.WithFields(log.Fields{"error": err}).Error("Error tidying cache")
							continue
						}
						log.WithFields(log.Fields{"removed": removed}).Info("Tidied cache")
					}
				}
			}()

			go func() {
				<-runCtx.Done()
				log.Info("Gracefully shutting down...")
				broadcaster.Shutdown()
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.WithFields(log.Fields{"error": err}).Error("Error shutting down server")
				}
			}()

			addr := fmt.Sprintf("%s:%d", ctx.String("host"), ctx.Int("port"))
			log.WithFields(log.Fields{
				"address": addr,
			}).Info("Starting server")

			if err := app.Listen(addr); err != nil {
				return err
			}

			log.Info("Done!")
			return nil
		},
	}
}
