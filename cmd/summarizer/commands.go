package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-article-summarizer/internal/app"
	"github.com/samvad-hq/samvad-article-summarizer/internal/crawler"
	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
	"github.com/samvad-hq/samvad-article-summarizer/internal/extractor"
)

func newDetectCmd(rt *runtime) *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "detect <url>",
		Short: "Score how likely the page is an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rt.summarizer.Detect(cmd.Context(), src.source(args[0]))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), rt.output, res)
		},
	}
	src.register(cmd)
	return cmd
}

func newExtractCmd(rt *runtime) *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract the readable text and structure of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rt.summarizer.Extract(cmd.Context(), src.source(args[0]))
			if err != nil && !errors.Is(err, extractor.ErrInsufficientContent) {
				return err
			}
			if perr := render(cmd.OutOrStdout(), rt.output, res); perr != nil {
				return perr
			}
			return err
		},
	}
	src.register(cmd)
	return cmd
}

func newSummarizeCmd(rt *runtime) *cobra.Command {
	var (
		src  sourceFlags
		opts app.SummarizeOptions
	)
	cmd := &cobra.Command{
		Use:   "summarize <url>",
		Short: "Summarize the page if it reads as an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rt.summarizer.Summarize(cmd.Context(), src.source(args[0]), opts)
			if err != nil {
				return userError(err)
			}
			return render(cmd.OutOrStdout(), rt.output, res)
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore any cached summary")
	cmd.Flags().BoolVar(&opts.Republish, "republish", false, "publish cached summaries as well")
	return cmd
}

func newChatCmd(rt *runtime) *cobra.Command {
	var (
		src          sourceFlags
		showHistory  bool
		clearHistory bool
	)
	cmd := &cobra.Command{
		Use:   "chat <url> [message]",
		Short: "Ask a question about an article",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pageURL := args[0]
			switch {
			case clearHistory:
				return rt.summarizer.ClearChat(pageURL)
			case showHistory:
				hist, err := rt.summarizer.ChatHistory(pageURL)
				if err != nil {
					return err
				}
				if hist == nil {
					hist = []domain.ChatMessage{}
				}
				return render(cmd.OutOrStdout(), rt.output, hist)
			case len(args) < 2:
				return fmt.Errorf("a message is required")
			}

			reply, err := rt.summarizer.Chat(cmd.Context(), src.source(pageURL), args[1])
			if err != nil {
				return userError(err)
			}
			return render(cmd.OutOrStdout(), rt.output, reply)
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&showHistory, "history", false, "print the stored conversation for the page")
	cmd.Flags().BoolVar(&clearHistory, "clear", false, "forget the stored conversation for the page")
	return cmd
}

func newWatchCmd(rt *runtime) *cobra.Command {
	var (
		targetsFile string
		schedule    string
		once        bool
	)
	cmd := &cobra.Command{
		Use:   "watch [url...]",
		Short: "Re-run the pipeline over a list of pages on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				targets []crawler.Target
				err     error
			)
			if len(args) > 0 {
				targets, err = crawler.TargetsFromURLs(args)
			} else {
				if targetsFile == "" {
					targetsFile = rt.cfg.WatchURLsFile
				}
				targets, err = crawler.LoadTargets(targetsFile)
			}
			if err != nil {
				return fmt.Errorf("load watch targets: %w", err)
			}

			if schedule == "" {
				schedule = rt.cfg.WatchSchedule
			}
			return rt.summarizer.Watch(cmd.Context(), targets, app.WatchOptions{
				Interval: rt.cfg.WatchInterval,
				Schedule: schedule,
				Once:     once,
			})
		},
	}
	cmd.Flags().StringVar(&targetsFile, "targets", "", "YAML/JSON watch list (defaults to WATCH_URLS_FILE)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron spec for sweeps, e.g. \"*/15 * * * *\" (defaults to WATCH_SCHEDULE, else WATCH_INTERVAL)")
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	return cmd
}

func newPingCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the summarize webhook answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.summarizer.TestConnection(cmd.Context()); err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "webhook reachable")
			return nil
		},
	}
}

func newStatsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := rt.summarizer.Statistics()
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), rt.output, stats)
		},
	}
}

func newPrefsCmd(rt *runtime) *cobra.Command {
	var set []string
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(set) == 0 {
				prefs, err := rt.summarizer.Preferences()
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), rt.output, prefs)
			}

			var applyErr error
			prefs, err := rt.summarizer.UpdatePreferences(func(p *domain.Preferences) {
				next := *p
				for _, kv := range set {
					key, value, ok := strings.Cut(kv, "=")
					if !ok {
						applyErr = fmt.Errorf("invalid --set %q (want key=value)", kv)
						return
					}
					if err := app.ApplyPreference(&next, key, value); err != nil {
						applyErr = err
						return
					}
				}
				*p = next
			})
			if err != nil {
				return err
			}
			if applyErr != nil {
				return applyErr
			}
			return render(cmd.OutOrStdout(), rt.output, prefs)
		},
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, "key=value to change (theme, summary_length, auto_summarize, show_welcome_message, minimized_on_startup)")
	return cmd
}

func newCacheCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the summary cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.summarizer.ClearCache(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "summary cache cleared")
			return nil
		},
	})
	return cmd
}
