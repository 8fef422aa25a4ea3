package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/satyaki-up/issuefeed/internal/feed"
	"github.com/satyaki-up/issuefeed/internal/issues"
)

var (
	parseImport          bool
	parseWorkers         int
	parseEntityFragments bool
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Parse one or more feed files",
	Long: `Parse each feed file with its own decoder. Files are decoded concurrently
and printed in the order given. Items that fail to parse are logged and
counted; the rest of the feed is still returned.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseImport, "import", false, "Store parsed issues in the database")
	parseCmd.Flags().IntVar(&parseWorkers, "workers", -1, "Files decoded at once (0 = one per CPU)")
	parseCmd.Flags().BoolVar(&parseEntityFragments, "entity-fragments", false, "Split text at markup and entity boundaries instead of line breaks")
}

type failureReport struct {
	Index int    `json:"index"`
	Key   string `json:"key,omitempty"`
	Field string `json:"field"`
	Value string `json:"value"`
	Error string `json:"error"`
}

type fileReport struct {
	File     string            `json:"file"`
	Issues   []feed.Issue      `json:"issues"`
	Failures []failureReport   `json:"failures,omitempty"`
	Error    string            `json:"error,omitempty"`
	Import   *issues.ImportRun `json:"import,omitempty"`
	result   *feed.Result
	err      error
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	workers := parseWorkers
	if workers < 0 {
		workers = cfg.Workers
	}
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	opts := []feed.DecoderOption{}
	if parseEntityFragments {
		opts = append(opts, feed.WithEntityFragments())
	}

	reports := make([]*fileReport, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range args {
		g.Go(func() error {
			rep := &fileReport{File: path}
			reports[i] = rep
			rep.result, rep.err = decodeFile(gctx, path, opts)
			if rep.err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var svc *issues.Service
	if parseImport {
		s, database, err := openService(ctx)
		if err != nil {
			return err
		}
		defer database.Close()
		svc = s
	}

	var errs []error
	for _, rep := range reports {
		if rep.err != nil {
			logger.Error("feed failed", "file", rep.File, "err", rep.err)
			rep.Error = rep.err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", rep.File, rep.err))
		}
		if rep.result == nil {
			rep.Issues = []feed.Issue{}
			continue
		}
		rep.Issues = rep.result.Issues
		for _, f := range rep.result.Failures {
			rep.Failures = append(rep.Failures, failureReport{
				Index: f.Index, Key: f.Key, Field: f.Field, Value: f.Value, Error: f.Err.Error(),
			})
		}
		if len(rep.Failures) > 0 {
			logger.Warn("items skipped", "file", rep.File, "count", len(rep.Failures))
		}
		if svc != nil && len(rep.Issues) > 0 {
			run, err := svc.Import(ctx, rep.File, rep.Issues)
			if err != nil {
				return fmt.Errorf("import %s: %w", rep.File, err)
			}
			rep.Import = run
			logger.Info("imported", "file", rep.File, "run", run.ID,
				"created", run.Stats.Created, "updated", run.Stats.Updated,
				"skipped", run.Stats.Skipped, "errors", run.Stats.Errors)
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(out, reports); err != nil {
			return err
		}
	} else {
		for _, rep := range reports {
			for _, is := range rep.Issues {
				printFeedIssue(out, is)
			}
			if len(rep.Failures) > 0 || rep.Import != nil {
				summary := fmt.Sprintf("%s: %d issues, %d skipped", rep.File, len(rep.Issues), len(rep.Failures))
				if rep.Import != nil {
					s := rep.Import.Stats
					summary += fmt.Sprintf(", imported %d new, %d updated, %d unchanged", s.Created, s.Updated, s.Skipped)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), summary)
			}
		}
	}
	return errors.Join(errs...)
}

func decodeFile(ctx context.Context, path string, opts []feed.DecoderOption) (*feed.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	opts = append([]feed.DecoderOption{feed.WithLogger(logger.With("file", path))}, opts...)
	return feed.NewDecoder(f, opts...).Decode(ctx)
}
