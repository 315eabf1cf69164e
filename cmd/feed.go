/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"folio/feed"
	"folio/models"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// stdoutSink prints the entries of one category as JSON lines
type stdoutSink struct {
	category feed.Category
}

func (s stdoutSink) Append(category feed.Category, entries []models.Entry) {
	if category != s.category {
		return
	}
	for _, e := range entries {
		printStdout(e)
	}
}

func (s stdoutSink) Clear(category feed.Category) {}

func feedCmd() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Print Hacker News stories to the command line",
		Description: `Load the Hacker News index and print the stories of one category.

Categories are best, ask (ask and show stories merged) and jobs. Every batch
holds up to eight stories, dead and deleted ones are skipped but still count
towards the batch.

Returns each story as a JSON object on a single line. Use a tool like jq to
process the output.

Prints all other log messages to stderr.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "category",
				Value:   "best",
				Usage:   "Category to print (best, ask, jobs)",
				EnvVars: []string{"FOLIO_CATEGORY"},
			},
			&cli.IntFlag{
				Name:  "batches",
				Value: 1,
				Usage: "Number of batches to load",
			},
		},
		Action: func(ctx *cli.Context) error {
			// Disable logging to stdout
			log.SetOutput(os.Stderr)

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			category, err := feed.ParseCategory(ctx.String("category"))
			if err != nil {
				return err
			}

			// Only the requested category loads items
			loader := newLoader(cfg, stdoutSink{category: category})
			if err := loader.SeedIndex(ctx.Context); err != nil {
				return err
			}

			for i := 0; i < max(1, ctx.Int("batches")); i++ {
				result, err := loader.FetchBatch(ctx.Context, category)
				if err != nil {
					return err
				}
				if result.Skipped {
					break
				}
			}

			state := loader.State(category)
			log.WithFields(log.Fields{
				"category": category,
				"cursor":   state.Cursor,
				"total":    state.Total,
			}).Info("Done")
			return nil
		},
	}
}

func printStdout(v any) {
	// Print as single JSON string on a single line
	data, err := json.Marshal(v)
	if err == nil {
		fmt.Println(string(data))
	}
}
