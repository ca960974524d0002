package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-article-summarizer/internal/app"
	"github.com/samvad-hq/samvad-article-summarizer/internal/config"
	"github.com/samvad-hq/samvad-article-summarizer/internal/logger"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/webhook"
)

// runtime is built before every command and torn down after it.
type runtime struct {
	cfg        *config.Config
	log        *logger.ZapLogger
	summarizer *app.Summarizer
	output     string
}

func newRootCmd(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "summarizer",
		Short:         "Detect, extract and summarize articles from web pages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.start(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&rt.output, "output", "o", outputJSON, "output format: json or table")

	root.AddCommand(
		newDetectCmd(rt),
		newExtractCmd(rt),
		newSummarizeCmd(rt),
		newChatCmd(rt),
		newWatchCmd(rt),
		newPingCmd(rt),
		newStatsCmd(rt),
		newPrefsCmd(rt),
		newCacheCmd(rt),
	)
	return root
}

func (rt *runtime) start(cmd *cobra.Command) error {
	if err := validOutput(rt.output); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log.DebugObj("summarizer starting", "config", cfg)

	s, err := app.NewSummarizer(cmd.Context(), cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize summarizer", "error", err)
		_ = log.Close()
		return err
	}

	rt.cfg = cfg
	rt.log = log
	rt.summarizer = s
	return nil
}

// stop runs after the command, whether it failed or not.
func (rt *runtime) stop() {
	if rt.summarizer != nil {
		if err := rt.summarizer.Close(); err != nil {
			rt.log.ErrorObj("summarizer close failed", "error", err)
		}
	}
	if rt.log != nil {
		_ = rt.log.Close()
	}
}

// sourceFlags are shared by every command that reads a page.
type sourceFlags struct {
	file    string
	headers map[string]string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", "read the page from a saved HTML file instead of fetching it")
	cmd.Flags().StringToStringVar(&f.headers, "header", nil, "extra request header (key=value), repeatable")
}

func (f *sourceFlags) source(pageURL string) app.Source {
	return app.Source{URL: pageURL, File: f.file, Headers: f.headers}
}

// userError leads webhook failures with the message shown to users.
func userError(err error) error {
	var status *webhook.StatusError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &status),
		errors.Is(err, webhook.ErrTimeout),
		errors.Is(err, webhook.ErrNetwork),
		errors.Is(err, webhook.ErrNoEndpoint),
		errors.Is(err, webhook.ErrInvalidResponse):
		return fmt.Errorf("%s: %w", webhook.UserMessage(err), err)
	}
	return err
}
