/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"

	"folio/feed"
	"folio/tui"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func browseCmd() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Browse Hacker News in the terminal",
		Description: `Opens a terminal browser with the best, ask & show and jobs columns.

Moving the selection close to the end of a column loads the next batch.
Press r to reload everything from the start and o to open a story.`,
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			// Log lines would tear the alternate screen
			log.SetOutput(io.Discard)

			display := feed.NewDisplay()
			notifier := tui.NewNotifier()
			loader := newLoader(cfg, feed.MultiSink{display, notifier})

			return tui.Run(tui.RunOpts{
				Loader:   loader,
				Display:  display,
				Notifier: notifier,
			})
		},
	}
}
