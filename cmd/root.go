/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"folio/config"
	"folio/feed"
	"folio/hackernews"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "folio",
		Usage: "Backend and tooling for a personal portfolio and blog",
		Description: `Serves the portfolio site together with a small JSON API.

		The blog page shows hand-written posts, the author's CodeProb
		contributions and a Hacker News feed that is revealed in batches of
		eight stories per column as the reader scrolls. Contact form
		submissions and certificate lookups are forwarded to webhooks.

		Flags can generally be set via environment variables, e.g.:

		--database => FOLIO_DATABASE=folio.db
		--port => FOLIO_PORT=3000
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file, the built-in defaults are used when empty",
				EnvVars: []string{"FOLIO_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"FOLIO_LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
			feedCmd(),
			browseCmd(),
			writingsCmd(),
			contentCmd(),
			contactCmd(),
			verifyCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database",
		Aliases: []string{"d"},
		Value:   "folio.db",
		Usage:   "SQLite database file location",
		EnvVars: []string{"FOLIO_DATABASE"},
	}
}

func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLoader(cfg *config.TomlConfig, sink feed.Sink) *feed.Loader {
	client := hackernews.NewClient(cfg.HackerNews.BaseURL, cfg.HackerNews.Timeout.Duration)
	return feed.NewLoader(client, sink, feed.Options{
		BatchSize: cfg.HackerNews.BatchSize,
		Partial:   cfg.HackerNews.PartialBatches,
	})
}
