package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"newsrelay/internal/auth"
)

func hashTokenCmd() *cli.Command {
	return &cli.Command{
		Name:      "hash-token",
		Usage:     "Hash an operator token for RELAY_OPERATOR_TOKEN_HASH",
		ArgsUsage: "[token]",
		Description: `Prints the bcrypt hash of the given token. Without an argument a
		random token is generated and printed alongside its hash.`,
		Action: func(ctx *cli.Context) error {
			token := ctx.Args().First()
			if token == "" {
				generated, err := auth.GenerateToken()
				if err != nil {
					return err
				}
				token = generated
				fmt.Fprintf(ctx.App.Writer, "token: %s\n", token)
			}

			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}

			fmt.Fprintf(ctx.App.Writer, "RELAY_OPERATOR_TOKEN_HASH=%s\n", hash)
			return nil
		},
	}
}
