/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"folio/webhook"

	"github.com/cqroot/prompt"
	"github.com/urfave/cli/v2"
)

func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify a course certificate",
		Description: `Looks up a certificate id with the verifier webhook of a course level
and prints the status line followed by the response body.

The level is asked for interactively when it is not given.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "level", Usage: "Course level, e.g. level1"},
			&cli.StringFlag{Name: "id", Usage: "Certificate id"},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			verifier := webhook.NewVerifier(cfg.Webhooks.Verify, cfg.Webhooks.Timeout.Duration)

			level := ctx.String("level")
			if level == "" {
				if level, err = prompt.New().Ask("Level:").Choose(verifier.Levels()); err != nil {
					return err
				}
			}

			id, err := askIfEmpty(ctx.String("id"), "Certificate id:")
			if err != nil {
				return err
			}

			result, err := verifier.Verify(ctx.Context, level, id)
			if err != nil {
				return err
			}

			fmt.Printf("%s  %s\n\n%s\n", result.Label(), result.Endpoint, result.Body)
			return nil
		},
	}
}
