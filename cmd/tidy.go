/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"folio/cache"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the cache database",
		Description: `Tidy up the cache database by removing records that are stale.

		A record is stale once it is older than the configured content cache
		duration (30 minutes by default). Stale records are also evicted when
		they are read, this command removes the ones nobody asked for.`,
		Flags: []cli.Flag{
			databaseFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			database := ctx.String("database")
			fmt.Println("Database configured: ", database)

			store, err := cache.Open(database)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(ctx.Context, cfg.Content.CacheDuration.Duration)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d stale records\n", removed)
			return nil
		},
	}
}
