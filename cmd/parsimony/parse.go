package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/calliehart/parsimony/internal/cli"
	"github.com/calliehart/parsimony/internal/engine"
	"github.com/calliehart/parsimony/internal/model"
)

// batchItem is one line of a JSON-lines batch input file.
type batchItem struct {
	Content string `json:"content"`
	Sender  string `json:"sender,omitempty"`
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [content]",
		Short: "Extract an expense from email content or free text",
		Long: `Extract a structured expense from purchase email content or a
free-form note.

With --sender, the content is treated as an email from that address and
learned patterns for the sender are tried first. Without --sender, the
content is treated as free text and goes straight to the language model.

Content is read from the argument, or from stdin when no argument is
given. Use --file to process a JSON-lines batch, one object per line:

  {"content": "Your Total: $42.10", "sender": "store-news@amazon.com"}`,
		Args: cobra.MaximumNArgs(1),
		RunE: runParse,
	}

	cmd.Flags().String("sender", "", "email sender address (enables pattern matching)")
	cmd.Flags().String("file", "", "JSON-lines batch input file")
	cmd.Flags().Bool("json", false, "emit results as JSON")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	sender, _ := cmd.Flags().GetString("sender")
	batchFile, _ := cmd.Flags().GetString("file")
	asJSON, _ := cmd.Flags().GetBool("json")

	interruptHandler := cli.NewInterruptHandler(os.Stdout)
	ctx := interruptHandler.HandleInterrupts(cmd.Context())

	eng, cleanup, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if batchFile != "" {
		return runParseBatch(ctx, eng, batchFile, asJSON)
	}

	content, err := readContent(args)
	if err != nil {
		return err
	}

	result, err := resolve(ctx, eng, content, sender)
	if err != nil {
		return err
	}

	return printResult(result, asJSON)
}

// buildEngine wires the pattern store and the generative extractor into an
// engine. The returned cleanup closes everything in reverse order.
func buildEngine(ctx context.Context) (*engine.Engine, func(), error) {
	store, backing, err := openPatternStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	extractor, err := createExtractor()
	if err != nil {
		_ = backing.Close()
		return nil, nil, err
	}

	config := engine.DefaultConfig()
	if v := viper.GetFloat64("engine.trust_threshold"); v > 0 {
		config.TrustThreshold = v
	}
	if v := viper.GetFloat64("engine.learn_threshold"); v > 0 {
		config.LearnThreshold = v
	}

	eng := engine.New(store, extractor, config, slog.Default())

	cleanup := func() {
		_ = eng.Close()
		_ = extractor.Close()
		_ = backing.Close()
	}

	return eng, cleanup, nil
}

func resolve(ctx context.Context, eng *engine.Engine, content, sender string) (model.ExtractionResult, error) {
	if sender != "" {
		return eng.Resolve(ctx, content, sender)
	}
	return eng.ResolveFreeText(ctx, content)
}

func readContent(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("no content provided")
	}
	return content, nil
}

func runParseBatch(ctx context.Context, eng *engine.Engine, path string, asJSON bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open batch file: %w", err)
	}
	defer func() { _ = file.Close() }()

	items, err := readBatchItems(file)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("batch file contains no items")
	}

	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetDescription("Parsing expenses"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var failures int
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		result, err := resolve(ctx, eng, item.Content, item.Sender)
		if err != nil {
			failures++
			slog.Warn("failed to parse batch item", "sender", item.Sender, "error", err)
			_ = bar.Add(1)
			continue
		}

		if err := printResult(result, asJSON); err != nil {
			return err
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if failures > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d of %d items failed to parse", failures, len(items))))
	}
	return nil
}

func readBatchItems(r io.Reader) ([]batchItem, error) {
	var items []batchItem

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var item batchItem
		if err := json.Unmarshal([]byte(text), &item); err != nil {
			return nil, fmt.Errorf("invalid JSON on line %d: %w", line, err)
		}
		if item.Content == "" {
			return nil, fmt.Errorf("missing content on line %d", line)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	return items, nil
}

func printResult(result model.ExtractionResult, asJSON bool) error {
	if asJSON {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	lines := []string{
		fmt.Sprintf("Amount:      $%s", result.Amount.StringFixed(2)),
		fmt.Sprintf("Description: %s", result.Description),
		fmt.Sprintf("Merchant:    %s", result.Merchant),
		fmt.Sprintf("Category:    %s", result.Category),
		fmt.Sprintf("Date:        %s", result.Date.Format("2006-01-02")),
		fmt.Sprintf("Confidence:  %.2f", result.Confidence),
		fmt.Sprintf("Origin:      %s", result.Origin),
	}

	fmt.Println(cli.RenderBox("Extracted Expense", strings.Join(lines, "\n")))
	return nil
}
