package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/MereWhiplash/ikc-search/internal/repl"
)

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query [text]",
		Short: "Search the local vector store; without text, start the query prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			svc, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			opts := repl.Options{Limit: a.cfg.Search.Limit, SnippetLength: a.cfg.Search.SnippetLength}
			if len(args) > 0 {
				return repl.Query(ctx, out, svc, strings.Join(args, " "), opts)
			}
			return repl.Run(ctx, repl.NewTerminalPrompter(cmd.InOrStdin(), out), out, svc, opts)
		},
	}
}
