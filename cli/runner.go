// Command execution for CLI commands.
//
// Information Hiding:
// - REPL loop and session handling hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/richinex/anko/agent"
	"github.com/richinex/anko/llm"
	"github.com/richinex/anko/model"
	"github.com/richinex/anko/storage"
	"github.com/richinex/anko/tools"
)

// Options holds CLI output options.
type Options struct {
	Verbose bool
}

// Ask answers a single question in a fresh session.
func Ask(ctx context.Context, a *agent.Agent, question string, out io.Writer, opts Options) error {
	session := agent.NewSession(uuid.NewString(), a)
	defer session.Close()

	resp := session.Run(ctx, question)
	printResponse(out, resp, opts)
	if resp.Cancelled {
		return resp.Err
	}
	if !resp.Succeeded() {
		return fmt.Errorf("turn failed: %w", resp.Err)
	}
	return nil
}

// Chat runs an interactive session reading one message per line from in
// until EOF, "exit" or "quit". Failed turns print their fallback and the
// session continues.
func Chat(ctx context.Context, a *agent.Agent, in io.Reader, out io.Writer, opts Options) error {
	session := agent.NewSession(uuid.NewString(), a)
	defer session.Close()

	fmt.Fprintf(out, "Chatting with %s (session %s). Type 'exit' to quit.\n\n", a.Name(), session.ID())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		resp := session.Run(ctx, input)
		if resp.Cancelled {
			return resp.Err
		}
		fmt.Fprint(out, "\nAssistant: ")
		printResponse(out, resp, opts)
	}
}

func printResponse(out io.Writer, resp agent.Response, opts Options) {
	if opts.Verbose {
		printSteps(out, resp.Steps)
		printToolCalls(out, resp.ToolCalls)
	}
	if resp.Cancelled {
		fmt.Fprintln(out, "(cancelled)")
		return
	}
	fmt.Fprintf(out, "%s\n\n", resp.Answer)
	if opts.Verbose {
		if resp.Err != nil {
			fmt.Fprintf(out, "Error: %v\n", resp.Err)
		}
		printTokenStats(out, resp)
	}
}

// ListTools prints the registered tools.
func ListTools(out io.Writer, registry *tools.Registry, verbose bool) {
	fmt.Fprintln(out, "Available tools:")
	fmt.Fprintln(out)

	for _, def := range registry.Definitions() {
		fmt.Fprintf(out, "  %s\n", def.Name)
		fmt.Fprintf(out, "    %s\n", def.Description)

		if verbose && len(def.Parameters) > 0 {
			schema, err := json.MarshalIndent(def.Parameters, "    ", "  ")
			if err == nil {
				fmt.Fprintf(out, "    Parameters: %s\n", schema)
			}
		}
		fmt.Fprintln(out)
	}
}

// ImportProducts loads a JSON array of product records into the catalog.
func ImportProducts(ctx context.Context, products *storage.ProductStore, embedder llm.Embedder, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open products file: %w", err)
	}
	defer f.Close()

	var e storage.Embedder
	if embedder != nil {
		e = embedder
	}
	n, err := products.Import(ctx, f, e)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d products from %s\n", n, path)
	return nil
}

// SearchProducts prints the k catalog entries closest to query.
func SearchProducts(ctx context.Context, products *storage.ProductStore, embedder llm.Embedder, query string, k int, out io.Writer) error {
	if embedder == nil {
		return ErrNoEmbedder
	}
	vector, err := embedder.Embed(ctx, query)
	if err != nil {
		return err
	}

	if err := products.Connect(ctx); err != nil {
		return err
	}
	defer products.Close()

	hits, err := products.Search(ctx, vector, k)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(out, "No matching products found.")
		return nil
	}

	docs := make([]storage.Document, len(hits))
	for i, hit := range hits {
		fmt.Fprintf(out, "%d. %s (score %.3f)\n", i+1, hit.Content, hit.Score)
		docs[i] = hit.Document
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, storage.FormatDocuments(docs))
	return nil
}

// ListDesigns prints design submissions, newest first.
func ListDesigns(ctx context.Context, designs *storage.DesignStore, status model.DesignStatus, out io.Writer) error {
	list, err := designs.List(ctx, status)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No designs.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tDESIGNED BY\tDESIGNED AT\tIMAGE")
	for _, d := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Status, d.DesignedBy, d.CreatedAt.Format("2006-01-02 15:04"), truncateString(d.ImageURL, maxURLLen))
	}
	return w.Flush()
}

// Helper functions

const (
	maxObservationLen = 400
	maxURLLen         = 60
)

func printSteps(out io.Writer, steps []agent.Step) {
	if len(steps) == 0 {
		return
	}
	fmt.Fprintln(out, "--- Steps ---")
	for _, step := range steps {
		fmt.Fprintf(out, "[%d] %s", step.Iteration, step.State)
		if step.Action != nil {
			fmt.Fprintf(out, " -> %s", *step.Action)
		}
		fmt.Fprintln(out)
		if step.Detail != "" {
			fmt.Fprintf(out, "    %s\n", truncateString(step.Detail, maxObservationLen))
		}
	}
	fmt.Fprintln(out, "-------------")
}

func printToolCalls(out io.Writer, calls []agent.ToolCall) {
	for _, call := range calls {
		result := call.Output
		if call.Failed() {
			result = "error: " + call.Error
		}
		fmt.Fprintf(out, "  %s %s(%q) [%d attempts, %dms]\n    %s\n",
			call.ID, call.Tool, call.Input, call.Attempts, call.DurationMs, truncateString(result, maxObservationLen))
	}
	if len(calls) > 0 {
		fmt.Fprintln(out)
	}
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// printTokenStats prints token usage statistics.
func printTokenStats(out io.Writer, resp agent.Response) {
	if resp.LLMCalls == 0 {
		return
	}
	fmt.Fprintf(out, "Token Usage:\n")
	fmt.Fprintf(out, "  LLM calls: %d\n", resp.LLMCalls)
	fmt.Fprintf(out, "  Prompt tokens: %d\n", resp.Usage.PromptTokens)
	fmt.Fprintf(out, "  Completion tokens: %d\n", resp.Usage.CompletionTokens)
	fmt.Fprintf(out, "  Total tokens: %d\n", resp.Usage.TotalTokens)
	fmt.Fprintf(out, "  Duration: %s\n\n", resp.Duration.Round(time.Millisecond))
}
