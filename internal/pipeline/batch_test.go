package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/a11yscan/internal/model"
)

// stubScanner returns a report or failure per URL and tracks concurrency.
type stubScanner struct {
	delay   time.Duration
	fail    map[string]bool
	running atomic.Int32
	peak    atomic.Int32
}

func (s *stubScanner) Assemble(ctx context.Context, rawURL string, standard model.Standard, locale model.Locale) (*model.ScanReport, error) {
	n := s.running.Add(1)
	defer s.running.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
	}

	if s.fail[rawURL] {
		return nil, &ScanFailure{Reason: ReasonBlocked, Err: errors.New("403")}
	}
	return &model.ScanReport{URL: rawURL, Standard: standard, Locale: locale, Score: 100}, nil
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()
		bp := NewBatchProcessor(&stubScanner{})
		if bp.concurrency != 5 {
			t.Errorf("expected default concurrency 5, got %d", bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()
		bp := NewBatchProcessor(&stubScanner{}, WithConcurrency(0))
		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})
}

// TestProcessBatch tests ordering, failure isolation and the concurrency limit.
func TestProcessBatch(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://a.example",
		"https://b.example",
		"https://c.example",
		"https://d.example",
		"https://e.example",
		"https://f.example",
	}
	scanner := &stubScanner{delay: 20 * time.Millisecond, fail: map[string]bool{"https://c.example": true}}
	bp := NewBatchProcessor(scanner, WithConcurrency(2), WithBatchLogger(quietLogger()))

	results, err := bp.ProcessBatch(context.Background(), urls, model.StandardIL5568, model.LocaleHE)
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if len(results) != len(urls) {
		t.Fatalf("got %d results, expected %d", len(results), len(urls))
	}

	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("result %d: got URL %q, expected %q", i, r.URL, urls[i])
		}
		if urls[i] == "https://c.example" {
			var failure *ScanFailure
			if !errors.As(r.Err, &failure) || r.Report != nil {
				t.Errorf("expected failure for %s, got %+v", r.URL, r)
			}
			continue
		}
		if r.Err != nil || r.Report == nil {
			t.Errorf("expected report for %s, got err %v", r.URL, r.Err)
		}
	}

	if peak := scanner.peak.Load(); peak > 2 {
		t.Errorf("concurrency limit exceeded: peak %d", peak)
	}
}

// TestProcessBatchCanceled tests that cancellation is reported.
func TestProcessBatchCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bp := NewBatchProcessor(&stubScanner{delay: time.Second}, WithBatchLogger(quietLogger()))
	results, err := bp.ProcessBatch(ctx, []string{"https://a.example", "https://b.example"}, model.StandardIL5568, model.LocaleHE)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	for _, r := range results {
		if r.Err == nil {
			t.Errorf("expected error for %s", r.URL)
		}
	}
}

// TestProcessBatchWithCallback tests that every URL is reported once.
func TestProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	urls := []string{"https://a.example", "https://b.example", "https://c.example"}
	bp := NewBatchProcessor(&stubScanner{}, WithBatchLogger(quietLogger()))

	var mu sync.Mutex
	seen := make(map[int]string)
	err := bp.ProcessBatchWithCallback(context.Background(), urls, model.StandardWCAG22AA, model.LocaleEN, func(r BatchResult, i int) {
		mu.Lock()
		defer mu.Unlock()
		seen[i] = r.URL
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != len(urls) {
		t.Fatalf("got %d callbacks, expected %d", len(seen), len(urls))
	}
	for i, u := range urls {
		if seen[i] != u {
			t.Errorf("index %d: got %q, expected %q", i, seen[i], u)
		}
	}
}
