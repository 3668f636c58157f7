package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MereWhiplash/ikc-search/internal/kb"
	"github.com/MereWhiplash/ikc-search/internal/repl"
	"github.com/MereWhiplash/ikc-search/internal/service"
)

type buildFlags struct {
	reset    bool
	watch    bool
	noPrompt bool
}

func newBuildCmd(a *app) *cobra.Command {
	var f buildFlags

	cmd := &cobra.Command{
		Use:   "build [kb-file]",
		Short: "Chunk and embed a knowledge-base file into the vector store",
		Long: `Reads the knowledge-base file (default ikc.txt), splits it on line breaks,
bullets and dashes, embeds every chunk longer than 30 characters and stores it.
Afterwards an interactive prompt lets you try queries against the new index.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.cfg.Build.KBFile = args[0]
			}
			return a.runBuild(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().BoolVar(&f.reset, "reset", false, "Clear the collection before storing")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Rebuild whenever the knowledge-base file changes")
	cmd.Flags().BoolVar(&f.noPrompt, "no-prompt", false, "Exit after building instead of starting the query prompt")
	return cmd
}

func (a *app) runBuild(ctx context.Context, in io.Reader, out io.Writer, f buildFlags) error {
	svc, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := a.buildOnce(ctx, out, svc, f.reset); err != nil {
		return err
	}

	if f.watch {
		return a.watch(ctx, out, svc)
	}

	if f.noPrompt {
		return nil
	}

	return repl.Run(ctx, repl.NewTerminalPrompter(in, out), out, svc, repl.Options{
		Limit:         a.cfg.Search.Limit,
		SnippetLength: a.cfg.Search.SnippetLength,
	})
}

func (a *app) buildOnce(ctx context.Context, out io.Writer, svc *service.Service, reset bool) error {
	text, err := kb.Load(a.fs, a.cfg.Build.KBFile)
	if err != nil {
		return err
	}

	stats, err := svc.Build(ctx, text, service.BuildOpts{
		IDPrefix:    a.cfg.Build.IDPrefix,
		Source:      a.cfg.Build.Source,
		Reset:       reset,
		Concurrency: a.cfg.Build.Concurrency,
		BatchSize:   a.cfg.Build.BatchSize,
		OnChunked: func(total int) {
			fmt.Fprintf(out, "📄 Extracted %d meaningful chunks from %s.\n", total, a.cfg.Build.Source)
		},
		OnProgress: func(done, total int) {
			fmt.Fprintf(out, "✅ Added %d/%d chunks\n", done, total)
		},
	})
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintln(out, "🎯 IKC vector database created successfully!")
	fmt.Fprintf(out, "💾 Stored in: %s (%d chunks, %s)\n", a.storeLocation(), stats.Stored, stats.Duration.Round(time.Millisecond))
	return nil
}

func (a *app) storeLocation() string {
	switch a.cfg.Storage.Driver {
	case "postgres", "mongodb":
		return a.cfg.Storage.Driver + "/" + a.cfg.Storage.Collection
	}
	if abs, err := filepath.Abs(a.cfg.Storage.Path); err == nil {
		return abs
	}
	return a.cfg.Storage.Path
}

func (a *app) watch(ctx context.Context, out io.Writer, svc *service.Service) error {
	w, err := kb.NewWatcher(a.cfg.Build.KBFile, kb.DefaultDebounce)
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintf(out, "👀 Watching %s for changes (Ctrl+C to stop)\n", a.cfg.Build.KBFile)
	err = w.Run(ctx, func() {
		fmt.Fprintln(out, "🔄 Knowledge base changed, rebuilding...")
		// a shrinking file would otherwise leave stale tail chunks behind
		if err := a.buildOnce(ctx, out, svc, true); err != nil {
			color.New(color.FgRed).Fprintf(os.Stderr, "Rebuild failed: %v\n", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
