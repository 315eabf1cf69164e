/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"folio/writings"

	"github.com/urfave/cli/v2"
)

func writingsCmd() *cli.Command {
	return &cli.Command{
		Name:  "writings",
		Usage: "List the hand-written posts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Value: writings.All,
				Usage: "Category slug to filter by, e.g. dev-log",
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

			posts := writings.Filter(cfg.Writings, ctx.String("category"))
			if len(posts) == 0 {
				fmt.Println("No posts in this category yet")
				return nil
			}

			for _, p := range posts {
				if ctx.Bool("json") {
					printStdout(p)
					continue
				}
				fmt.Printf("%-13s %-10s %2d min  %s\n", writings.FormatDate(p.Date), p.Category, p.ReadTime, p.Title)
				fmt.Printf("%27s  %s\n", "", strings.Join(writings.TopTags(p), ", "))
			}
			return nil
		},
	}
}
