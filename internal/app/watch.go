package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/samvad-hq/samvad-article-summarizer/internal/crawler"
	"github.com/samvad-hq/samvad-article-summarizer/internal/logger"
)

// WatchOptions configure the watch loop.
type WatchOptions struct {
	Interval time.Duration
	// Schedule is a five-field cron spec; when set it replaces Interval.
	Schedule string
	// Once runs a single sweep and returns.
	Once bool
}

// Watch re-runs the full pipeline over targets on an interval or cron
// schedule until the context is cancelled. When auto-summarize is switched
// off in the stored preferences, pages are only scored.
func (s *Summarizer) Watch(ctx context.Context, targets []crawler.Target, opts WatchOptions) error {
	if s == nil || s.pages == nil {
		return fmt.Errorf("summarizer is not initialized")
	}
	if len(targets) == 0 {
		s.log.WarnObj("no targets configured; watch idle", "targets", 0)
		if opts.Once {
			return nil
		}
		<-ctx.Done()
		return nil
	}

	service := crawler.NewService(s.pages, crawler.PipelineFunc(s.processWatched), s.log)

	var scheduler *cron.Cron
	switch {
	case opts.Once:
	case opts.Schedule != "":
		c, err := s.newScheduler(ctx, service, targets, opts.Schedule)
		if err != nil {
			return err
		}
		scheduler = c
	case opts.Interval <= 0:
		return fmt.Errorf("watch interval must be positive")
	}

	s.log.InfoObj("watch loop starting", "watch_state", map[string]any{
		"targets_count":    len(targets),
		"publishers_count": s.publisher.Size(),
		"interval":         opts.Interval.String(),
		"schedule":         opts.Schedule,
	})

	if err := s.sweep(ctx, service, targets); err != nil {
		s.log.ErrorObj("initial sweep failed", "error", err)
	}
	if opts.Once {
		return nil
	}

	if scheduler != nil {
		scheduler.Start()
		<-ctx.Done()
		<-scheduler.Stop().Done()
		s.log.InfoObj("watch loop exiting", "reason", ctx.Err())
		return nil
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("watch loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := s.sweep(ctx, service, targets); err != nil {
				s.log.ErrorObj("scheduled sweep failed", "error", err)
			}
		}
	}
}

// newScheduler registers the sweep on a cron spec. A sweep still running when
// the next one is due makes the next one skip.
func (s *Summarizer) newScheduler(ctx context.Context, service *crawler.Service, targets []crawler.Target, spec string) (*cron.Cron, error) {
	clog := cronLogger{log: s.log}
	c := cron.New(cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)))
	if _, err := c.AddFunc(spec, func() {
		if err := s.sweep(ctx, service, targets); err != nil {
			s.log.ErrorObj("scheduled sweep failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid watch schedule %q: %w", spec, err)
	}
	return c, nil
}

// cronLogger routes scheduler messages into the structured logger.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.DebugObj(msg, "cron", keysAndValues)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.ErrorObj(msg, "cron_error", map[string]any{
		"error":   err.Error(),
		"context": keysAndValues,
	})
}

// processWatched is the per-page pipeline of the watch loop.
func (s *Summarizer) processWatched(ctx context.Context, page *crawler.Page) error {
	prefs, err := s.store.Preferences()
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	if !prefs.AutoSummarize {
		detection := s.detector.Detect(page.Document)
		s.log.InfoObj("auto-summarize disabled; page scored only", "detection", map[string]any{
			"url":        page.URL,
			"confidence": detection.Confidence,
			"is_article": detection.IsArticle,
		})
		return nil
	}
	_, err = s.summarizePage(ctx, page, SummarizeOptions{})
	return err
}

// sweep performs a single pass across all targets. Sitemaps and feeds are
// re-read on every sweep so newly listed pages are picked up.
func (s *Summarizer) sweep(ctx context.Context, service *crawler.Service, targets []crawler.Target) error {
	start := time.Now()
	pages, err := crawler.ExpandTargets(ctx, s.pages, targets)
	if err != nil {
		s.log.WarnObj("target expansion failed", "error", err)
	}
	if len(pages) == 0 {
		return err
	}

	s.log.InfoObj("sweep started", "sweep_meta", map[string]any{
		"targets_count": len(targets),
		"pages_count":   len(pages),
		"started_at":    start.UTC(),
	})
	if err := service.Run(ctx, pages); err != nil {
		return err
	}
	s.log.InfoObj("sweep completed", "sweep_meta", map[string]any{
		"pages_count": len(pages),
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	return nil
}
