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

// askIfEmpty prompts for a value that was not given as a flag
func askIfEmpty(value, question string) (string, error) {
	if value != "" {
		return value, nil
	}
	return prompt.New().Ask(question).Input("")
}

func contactCmd() *cli.Command {
	return &cli.Command{
		Name:  "contact",
		Usage: "Send a message through the contact webhook",
		Description: `Sends a message the same way the contact form on the site does.

Missing fields are asked for interactively. The webhook response is not
inspected, the message counts as sent once the request is dispatched.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Your name"},
			&cli.StringFlag{Name: "email", Usage: "Your email address"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "The message"},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			var contact webhook.Contact
			if contact.Name, err = askIfEmpty(ctx.String("name"), "Name:"); err != nil {
				return err
			}
			if contact.Email, err = askIfEmpty(ctx.String("email"), "Email:"); err != nil {
				return err
			}
			if contact.Message, err = askIfEmpty(ctx.String("message"), "Message:"); err != nil {
				return err
			}

			sender := webhook.NewContactSender(cfg.Webhooks.Contact, cfg.Webhooks.Timeout.Duration)
			receipt, err := sender.Submit(ctx.Context, contact)
			if err != nil {
				return err
			}

			if receipt.Sent {
				fmt.Println("SENT!")
			}
			return nil
		},
	}
}
