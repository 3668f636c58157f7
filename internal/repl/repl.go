// Package repl runs the interactive query loop of the ikc CLI.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/MereWhiplash/ikc-search/internal/apitypes"
	"github.com/MereWhiplash/ikc-search/internal/chunker"
	"github.com/MereWhiplash/ikc-search/internal/types"
)

const (
	Prompt  = "\n🔍 Enter a query (or press Enter to exit): "
	Goodbye = "👋 Done!"
)

// DefaultSnippetLength is the number of runes printed per match
const DefaultSnippetLength = 300

// Searcher is satisfied by the local service and the remote API client
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*types.SearchResult, error)
}

// Prompter reads one line of user input after showing prompt
type Prompter interface {
	ReadLine(prompt string) (string, error)
}

// Options configures the loop
type Options struct {
	Limit         int
	SnippetLength int
}

// Run prompts for queries until a blank line, EOF or cancellation
func Run(ctx context.Context, p Prompter, out io.Writer, s Searcher, opts Options) error {
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = DefaultSnippetLength
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := p.ReadLine(Prompt)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read query: %w", err)
		}

		query := strings.TrimSpace(line)
		if query == "" {
			fmt.Fprintln(out, Goodbye)
			return nil
		}

		if err := Query(ctx, out, s, query, opts); err != nil {
			fmt.Fprintln(out, color.RedString("Error: %v", err))
		}

		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out, Goodbye)
			return nil
		}
	}
}

// Query runs one search and prints the ranked matches
func Query(ctx context.Context, out io.Writer, s Searcher, query string, opts Options) error {
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = DefaultSnippetLength
	}

	result, err := s.Search(ctx, query, opts.Limit)
	if err != nil {
		return err
	}

	if !result.Found() {
		fmt.Fprintln(out, color.YellowString(apitypes.MsgNotFound))
		return nil
	}

	fmt.Fprintln(out, "\nTop matches:")
	for _, hit := range result.Hits {
		fmt.Fprintf(out, "%s\n  %s\n\n",
			color.GreenString("• Score %.4f", hit.Score),
			chunker.Truncate(hit.Chunk.Content, opts.SnippetLength),
		)
	}
	return nil
}

// TerminalPrompter reads lines from a reader, typically stdin
type TerminalPrompter struct {
	in   *bufio.Reader
	out  io.Writer
	echo bool
}

// NewTerminalPrompter reads from in and writes prompts to out.
// When in is not an interactive terminal the typed line is echoed so
// piped sessions read like a transcript.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	echo := true
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		echo = false
	}
	return &TerminalPrompter{in: bufio.NewReader(in), out: out, echo: echo}
}

func (t *TerminalPrompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(t.out, color.CyanString(prompt))

	line, err := t.in.ReadString('\n')
	if t.echo {
		fmt.Fprintln(t.out, strings.TrimRight(line, "\r\n"))
	}
	if err != nil {
		return line, err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
