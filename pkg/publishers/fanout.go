package publishers

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Fanout delivers each summary event to every configured publisher.
type Fanout struct {
	publishers []Publisher
}

// NewFanout drops nil entries; an empty Fanout publishes nowhere.
func NewFanout(pubs []Publisher) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		cp = append(cp, p)
	}
	return &Fanout{publishers: cp}
}

// maxParallelPublishes bounds how many sinks are written to at once.
const maxParallelPublishes = 4

// Publish sends evt to every publisher concurrently and waits for all of
// them. It returns how many succeeded; failures are joined in publisher order.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f.Size() == 0 {
		return 0, nil
	}

	errs := make([]error, len(f.publishers))
	var g errgroup.Group
	g.SetLimit(maxParallelPublishes)
	for i, p := range f.publishers {
		g.Go(func() error {
			if err := p.Publish(ctx, evt); err != nil {
				errs[i] = fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	delivered := 0
	for _, err := range errs {
		if err == nil {
			delivered++
		}
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close releases publishers that hold connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, p := range f.publishers {
		if c, ok := p.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", p.Type(), p.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
