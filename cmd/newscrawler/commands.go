package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/newscrawler/internal/app"
	"github.com/deusflow/newscrawler/internal/crawler"
	"github.com/deusflow/newscrawler/internal/model"
	"github.com/deusflow/newscrawler/internal/retention"
	"github.com/deusflow/newscrawler/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.Serve(ctx)
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run <category> [context]",
	Short: "Run the pipeline once for a category",
	Long: `Run the full pipeline for one category, ignoring its refresh interval.

For LOCAL the optional context is a city or region; for custom categories it is the category id.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, locCtx := categoryArgs(args)
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			rep, err := a.Crawler.ForceRefresh(ctx, cat, locCtx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", rep, rep.Duration.Round(time.Millisecond))
			return nil
		})
	},
}

var shouldUpdateCmd = &cobra.Command{
	Use:   "should-update <category> [context]",
	Short: "Report whether a category is due for a refresh",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, locCtx := categoryArgs(args)
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			due, err := a.Crawler.ShouldUpdate(ctx, cat, locCtx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), due)
			return nil
		})
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Sweep every backfill city and category once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			s := a.Settings.Get().Backfill
			b := &crawler.Backfill{
				Runner:     a.Crawler,
				Cities:     s.Cities,
				Categories: s.Categories,
				Delay:      s.Delay,
			}
			return b.Run(ctx)
		})
	},
}

var (
	flagInsertCategory string
	flagInsertCity     string
)

var insertCmd = &cobra.Command{
	Use:   "insert <url>",
	Short: "Summarize a single article and store it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			item, err := a.Crawler.InsertURL(ctx, args[0], model.Normalize(flagInsertCategory), flagInsertCity)
			switch {
			case errors.Is(err, crawler.ErrAlreadyStored), errors.Is(err, crawler.ErrDuplicateTitle):
				fmt.Fprintf(cmd.OutOrStdout(), "Skipped: %v.\n", err)
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s: %s\n", item.ID, item.Title)
			return nil
		})
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune [category...]",
	Short: "Enforce retention limits",
	Long: `Evict items older than 48 hours and items beyond each category's retention limit.

With no arguments every scheduled category and every regional LOCAL bucket is pruned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, a *app.App) error {
			reports, err := a.Prune(ctx, categoryCodes(args)...)
			writePruneReports(cmd.OutOrStdout(), reports)
			return err
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored items per category",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, a *app.App) error {
			stats, err := a.Store.Stats(ctx)
			if err != nil {
				return fmt.Errorf("reading stats: %w", err)
			}
			writeStats(cmd.OutOrStdout(), stats)
			return nil
		})
	},
}

func init() {
	insertCmd.Flags().StringVar(&flagInsertCategory, "category", "LOCAL", "category to store the article under")
	insertCmd.Flags().StringVar(&flagInsertCity, "city", "", "city or region for LOCAL articles")
}

func categoryArgs(args []string) (cat, locCtx string) {
	cat = model.Normalize(args[0])
	if len(args) > 1 {
		locCtx = strings.TrimSpace(args[1])
	}
	return cat, locCtx
}

func categoryCodes(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = model.Normalize(v)
	}
	return out
}

func writeStats(w io.Writer, stats []storage.CategoryStats) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No items stored.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tITEMS\tLAST UPDATE")
	total := 0
	for _, s := range stats {
		total += s.Count
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Category, s.Count, s.LastUpdate.Local().Format(time.DateTime))
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t\n", total)
	tw.Flush()
}

func writePruneReports(w io.Writer, reports []retention.Report) {
	evicted := 0
	for _, r := range reports {
		if r.Evicted == 0 {
			continue
		}
		evicted += r.Evicted
		fmt.Fprintf(w, "%s: evicted %d of %d (expired %d, over limit %d)\n",
			r.Category, r.Evicted, r.Stored, r.Expired, r.Overflow)
	}
	if evicted == 0 {
		fmt.Fprintln(w, "Nothing to prune.")
	}
}
