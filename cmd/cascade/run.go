package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShroXd/cascade"
	"github.com/ShroXd/cascade/internal/config"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <crawl.yaml>",
		Short: "Run a crawl file",
		Long: `Run loads a crawl file, feeds its seeds through the steps and stores every result.

Crawl file example:
  name: articles
  seeds:
    - http://localhost:6657/articles?page=1
  http:
    timeout: 10s
    rate: {capacity: 5, interval: 200ms}
  steps:
    - type: paginate
      selector: a.next
    - type: links
      selector: a.article-link
      unique: true
    - type: http
    - type: extract
      fields: {title: h1, author: .author}
      add_all: true
  store:
    type: jsonl
    path: out/articles.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("store", "s", "", "Override the store type (memory, jsonl, sqlite)")
	cmd.Flags().StringP("output", "o", "", "Override the store path (jsonl) or directory (sqlite)")
	cmd.Flags().String("log-dir", "", "Also write logs to this directory")

	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	f, err := config.LoadConfigFile(args[0])
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return fmt.Errorf("%w: %s", err, args[0])
		}
		return err
	}
	if err := applyFlags(cmd, f); err != nil {
		return err
	}

	logger, err := newLogger(f, getVerboseFlag(cmd))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := runCrawl(ctx, f, logger)
	fmt.Fprintf(cmd.OutOrStdout(), "%d results stored\n", n)
	return err
}

// applyFlags puts command line overrides into f and validates it again.
func applyFlags(cmd *cobra.Command, f *config.File) error {
	if storeType, _ := cmd.Flags().GetString("store"); storeType != "" {
		f.Store.Type = storeType
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		f.Store.Path = output
		f.Store.Dir = output
	}
	if logDir, _ := cmd.Flags().GetString("log-dir"); logDir != "" {
		f.Log.Dir = logDir
	}
	return f.Validate()
}

func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, _ = cmd.Root().PersistentFlags().GetBool("verbose")
	}
	return verbose
}

func newLogger(f *config.File, verbose bool) (*cascade.DefaultLogger, error) {
	level, err := cascade.ParseLogLevel(f.Log.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = cascade.DebugLevel
	}

	opts := []cascade.LoggerOptionFn{
		cascade.WithLoggerName(f.Name),
		cascade.WithConsoleLevel(level),
	}
	if f.Log.Dir != "" {
		opts = append(opts, cascade.WithLogDir(f.Log.Dir))
	}
	return cascade.NewLogger(opts...)
}

// runCrawl builds the crawler for f and drains it. It returns the number of stored results.
func runCrawl(ctx context.Context, f *config.File, logger cascade.Logger) (int, error) {
	c, closer, err := buildCrawler(f, logger)
	if err != nil {
		return 0, err
	}
	defer closeStore(closer, logger)

	start := time.Now()
	n := 0
	for _, err := range c.Run(ctx) {
		if err != nil {
			return n, err
		}
		n++
	}

	logger.Info("Crawl summary", cascade.LogContext{
		"crawler":  f.Name,
		"results":  n,
		"duration": time.Since(start).String(),
	})
	return n, ctx.Err()
}

func closeStore(closer io.Closer, logger cascade.Logger) {
	if err := closer.Close(); err != nil {
		logger.Error("Failed to close store", cascade.LogContext{"err": err.Error()})
	}
}
