package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-article-summarizer/internal/logger"
)

// Service sweeps a list of targets, fetching each page and handing it to a pipeline.
type Service struct {
	fetcher  PageFetcher
	pipeline Pipeline
	log      logger.Logger
}

// NewService wires a crawler with a page fetcher and the pipeline run on every page.
func NewService(fetcher PageFetcher, pipeline Pipeline, log logger.Logger) *Service {
	return &Service{
		fetcher:  fetcher,
		pipeline: pipeline,
		log:      logger.Ensure(log),
	}
}

// Run executes one sweep over targets. Failures of individual targets are
// collected and returned together; a cancelled context stops the sweep early.
func (s *Service) Run(ctx context.Context, targets []Target) error {
	if s == nil || s.fetcher == nil || s.pipeline == nil {
		return fmt.Errorf("crawler service is not initialized")
	}
	if len(targets) == 0 {
		return fmt.Errorf("no targets configured for crawling")
	}

	var errs []error
	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := s.runTarget(ctx, t); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("target crawl failed", "target_error", map[string]any{
				"target_id": t.ID,
				"url":       t.URL,
				"error":     err.Error(),
			})
		}

		if i < len(targets)-1 {
			if !sleep(ctx, t.RequestDelay()) {
				errs = append(errs, ctx.Err())
				break
			}
		}
	}

	return errors.Join(errs...)
}

func (s *Service) runTarget(ctx context.Context, t Target) error {
	page, err := s.fetcher.Fetch(ctx, t.URL, t.Headers)
	if err != nil {
		return fmt.Errorf("fetch target %s: %w", t.ID, err)
	}
	if err := s.pipeline.Process(ctx, page); err != nil {
		return fmt.Errorf("process target %s: %w", t.ID, err)
	}
	s.log.DebugObj("target crawl completed", "target_result", map[string]any{
		"target_id": t.ID,
		"url":       t.URL,
	})
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 || ctx.Err() != nil {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
