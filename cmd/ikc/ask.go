package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MereWhiplash/ikc-search/internal/client"
	"github.com/MereWhiplash/ikc-search/internal/repl"
)

func newAskCmd(a *app) *cobra.Command {
	var apiURL string
	var health bool

	cmd := &cobra.Command{
		Use:   "ask [text]",
		Short: "Query a running ikc-api server; without text, start the query prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if apiURL == "" {
				apiURL = a.cfg.Server.APIURL
			}
			c := client.New(apiURL)

			if health {
				h, err := c.Health(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "status=%s model_loaded=%t collection=%s documents=%d\n",
					h.Status, h.ModelLoaded, h.Collection, h.Documents)
				return nil
			}

			if len(args) == 0 {
				opts := repl.Options{Limit: a.cfg.Search.Limit, SnippetLength: a.cfg.Search.SnippetLength}
				return repl.Run(ctx, repl.NewTerminalPrompter(cmd.InOrStdin(), out), out, c, opts)
			}

			resp, err := c.Ask(ctx, strings.Join(args, " "), a.cfg.Search.Limit)
			if err != nil {
				return err
			}

			if !resp.Found {
				color.New(color.FgYellow).Fprintln(out, resp.Message)
				return nil
			}
			color.New(color.FgGreen).Fprintln(out, resp.Message)
			fmt.Fprintln(out, *resp.TopSnippet)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "", "Search API base URL (default from config or IKC_API_URL, else http://localhost:5000)")
	cmd.Flags().BoolVar(&health, "health", false, "Print the server health instead of searching")
	return cmd
}
