package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fortuna/syndicate/internal/cache"
	"github.com/fortuna/syndicate/internal/importer"
	"github.com/fortuna/syndicate/internal/ingest"
	"github.com/fortuna/syndicate/internal/ingest/channel"
	"github.com/fortuna/syndicate/internal/logger"
	"github.com/fortuna/syndicate/internal/service"
	"github.com/fortuna/syndicate/internal/store"
	"github.com/fortuna/syndicate/internal/store/repository"
	"github.com/fortuna/syndicate/internal/tipparse"
)

func newParseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Print the results found in pasted text (stdin when no file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser, err := opts.parser()
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			results := parser.Parse(text)
			if len(results) == 0 {
				return importer.ErrNothingParsed
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		dryRun bool
		vip    bool
		league string
	)

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import the results found in pasted text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser, err := opts.parser()
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			if dryRun {
				results := parser.Parse(text)
				if len(results) == 0 {
					return importer.ErrNothingParsed
				}
				return printJSON(cmd.OutOrStdout(), results)
			}

			return opts.withBets(cmd.Context(), func(bets importer.BetStore) error {
				imp := importer.New(bets, parser, importer.Options{League: league, IsVIP: vip})
				report, err := imp.ImportText(cmd.Context(), text)
				return reportResult(cmd, report, err)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse only, do not write to the database")
	cmd.Flags().BoolVar(&vip, "vip", false, "Import as VIP tips")
	cmd.Flags().StringVar(&league, "league", importer.LeagueManual, "League tag for imported bets")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		dryRun bool
		chat   string
	)

	cmd := &cobra.Command{
		Use:   "export <messages.html>",
		Short: "Import a Telegram Desktop HTML chat export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening export: %w", err)
			}
			defer f.Close()

			posts, err := channel.ParseExport(f, chat)
			if err != nil {
				return err
			}
			return opts.ingest(cmd, posts, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse only, do not write to the database")
	cmd.Flags().StringVar(&chat, "chat", "export", "Channel name used in source refs")
	return cmd
}

func newChannelCmd(opts *rootOptions) *cobra.Command {
	var (
		dryRun  bool
		scrolls int
	)

	cmd := &cobra.Command{
		Use:   "channel <name>",
		Short: "Import posts from a public channel's t.me/s page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fetcher := channel.NewFetcher(scrolls)
			defer fetcher.Close()

			posts, err := fetcher.FetchPosts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.ingest(cmd, posts, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse only, do not write to the database")
	cmd.Flags().IntVar(&scrolls, "scrolls", channel.DefaultScrolls, "Times to scroll up for older posts")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := store.NewDatabase(opts.dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.RunMigrations(cmd.Context())
		},
	}
}

func (o *rootOptions) parser() (*tipparse.Parser, error) {
	policy, err := tipparse.ParseSegmentPolicy(o.policy)
	if err != nil {
		return nil, err
	}
	return tipparse.NewParser(policy), nil
}

// ingest previews or imports channel posts
func (o *rootOptions) ingest(cmd *cobra.Command, posts []ingest.Post, dryRun bool) error {
	parser, err := o.parser()
	if err != nil {
		return err
	}

	if dryRun {
		in := ingest.NewIngester(parser, importer.New(nil, parser, importer.Options{}))
		return printJSON(cmd.OutOrStdout(), in.Preview(posts))
	}

	return o.withBets(cmd.Context(), func(bets importer.BetStore) error {
		in := ingest.NewIngester(parser, importer.New(bets, parser, importer.Options{}))
		report, err := in.Import(cmd.Context(), posts)
		return reportResult(cmd, report, err)
	})
}

// withBets opens the database and, when configured, the stats cache
func (o *rootOptions) withBets(ctx context.Context, fn func(importer.BetStore) error) error {
	db, err := store.NewDatabase(o.dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	var statsCache service.Cache
	if o.redisURL != "" {
		rc, err := cache.NewRedisCache(o.redisURL)
		if err != nil {
			logger.Warn(ctx).Err(err).Msg("Redis unavailable, stats cache will expire on its own")
		} else {
			defer rc.Close()
			statsCache = rc
		}
	}

	return fn(service.NewBetService(repository.NewBetRepository(db), statsCache, nil))
}

func reportResult(cmd *cobra.Command, report *importer.Report, err error) error {
	var partial *importer.PartialFailureError
	if err != nil && !errors.As(err, &partial) {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d of %d results, skipped %d duplicates\n", report.Imported, report.Total, report.Skipped)
	for _, f := range report.Failures {
		fmt.Fprintf(out, "  failed #%d %s v %s: %s\n", f.Index, f.Result.HomeTeam, f.Result.AwayTeam, f.Reason)
	}
	return err
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
