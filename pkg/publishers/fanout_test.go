package publishers

import (
	"context"
	"errors"
	"testing"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}
func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	ok := &stubPublisher{id: "ok", typ: "http"}
	bad := &stubPublisher{id: "bad", typ: "http", err: errors.New("failed")}
	fanout := NewFanout([]Publisher{ok, nil, bad})

	if fanout.Size() != 2 {
		t.Fatalf("nil publishers should be skipped, size=%d", fanout.Size())
	}
	count, err := fanout.Publish(context.Background(), testEvent())
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if ok.calls != 1 || bad.calls != 1 {
		t.Fatalf("every publisher should be called once")
	}

	if err := fanout.Close(); err != nil || !ok.closed || !bad.closed {
		t.Fatalf("expected publishers closed, err=%v", err)
	}
}

func TestNilFanoutIsNoop(t *testing.T) {
	var f *Fanout
	if n, err := f.Publish(context.Background(), Event{}); n != 0 || err != nil {
		t.Fatalf("nil fanout publish = %d, %v", n, err)
	}
	if f.Size() != 0 || f.Close() != nil {
		t.Fatalf("nil fanout should be empty")
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "http", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publisher, got %d", len(pubs))
	}

	if _, err := BuildAll(context.Background(), reg, []PublisherConfig{{ID: "x", Type: "kafka"}}, nil); err == nil {
		t.Fatalf("expected error for unknown publisher type")
	}
}
