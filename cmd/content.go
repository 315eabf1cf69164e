/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"folio/cache"
	"folio/content"

	"github.com/urfave/cli/v2"
)

func contentCmd() *cli.Command {
	return &cli.Command{
		Name:  "content",
		Usage: "List the author's CodeProb contributions",
		Description: `Downloads the CodeProb contributor config and lists the entries written
by the configured authors, newest first.

When a database is given the download is cached for the configured cache
duration, the same way the server does it.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Value: "all",
				Usage: "Content type (all, blogs, articles, problems, concepts)",
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Usage:   "SQLite database used as cache, no caching when empty",
				EnvVars: []string{"FOLIO_DATABASE"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print one JSON object per line",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			var store content.Store
			if database := ctx.String("database"); database != "" {
				if err := cache.Migrate(database); err != nil {
					return err
				}
				s, err := cache.Open(database)
				if err != nil {
					return err
				}
				defer s.Close()
				store = s
			}

			entries, err := content.New(cfg.Content, store).Load(ctx.Context)
			if err != nil {
				return err
			}
			entries, err = content.Filter(entries, ctx.String("type"))
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No content found")
				return nil
			}

			for _, e := range entries {
				if ctx.Bool("json") {
					printStdout(e)
					continue
				}
				fmt.Printf("%-13s %-8s %s\n", content.FormatDate(e.DateAdded), e.TypeSingular, e.Title)
				fmt.Printf("%23s %s\n", "", e.URL(cfg.Content.SiteURL))
				if labels := e.Labels(); len(labels) > 0 {
					fmt.Printf("%23s %s\n", "", strings.Join(labels[:min(5, len(labels))], ", "))
				}
			}
			return nil
		},
	}
}
