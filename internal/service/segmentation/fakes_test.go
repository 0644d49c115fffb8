package segmentation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wa-insights-service/internal/domain/customer"
	"wa-insights-service/internal/domain/segment"
	"wa-insights-service/internal/events"
	xerrors "wa-insights-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type stubRepo struct {
	mu         sync.Mutex
	saved      map[int64]*segment.Result
	candidates []int64
	filter     customer.SegmentationCandidateFilter
	saveErr    error
	noneListed bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{saved: make(map[int64]*segment.Result)}
}

func (r *stubRepo) SaveResult(_ context.Context, res *segment.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *res
	r.saved[res.CustomerID] = &cp
	return nil
}

// CountBySegment groups the saved results by label, like the GROUP BY over customers.segment.
func (r *stubRepo) CountBySegment(context.Context) (segment.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := segment.Stats{}
	for _, res := range r.saved {
		stats[res.Segment]++
	}
	return stats, nil
}

func (r *stubRepo) FindCandidates(_ context.Context, f customer.SegmentationCandidateFilter) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter = f
	if len(r.candidates) > f.Limit {
		return r.candidates[:f.Limit], nil
	}
	return r.candidates, nil
}

func (r *stubRepo) ListBySegment(_ context.Context, label segment.Label, limit int) ([]customer.Summary, error) {
	if r.noneListed {
		return nil, nil
	}
	s := string(label)
	return []customer.Summary{{ID: 1, Segment: &s, TotalMessages: limit}}, nil
}

func (r *stubRepo) result(id int64) *segment.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[id]
}

type stubDigests struct {
	missing map[int64]bool
}

func (d stubDigests) Build(_ context.Context, id int64) (*segment.Digest, error) {
	if d.missing[id] {
		return nil, xerrors.ErrNotFound
	}
	return &segment.Digest{CustomerID: id, Name: fmt.Sprintf("Customer %d", id), TotalMessages: 12, RecentMessages: []string{"hello"}}, nil
}

// scriptedClassifier fails for prompts containing failFor. Prompts matching a key of
// answerFor get that answer, the rest get answer.
type scriptedClassifier struct {
	mu        sync.Mutex
	answer    string
	answerFor map[string]string
	err       error
	failFor   string
	calls     int
}

func (c *scriptedClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *scriptedClassifier) Complete(_ context.Context, system, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if system == "" || prompt == "" {
		return "", errors.New("empty prompt")
	}
	if c.failFor != "" && strings.Contains(prompt, c.failFor) {
		return "", errors.New("upstream 503")
	}
	for key, answer := range c.answerFor {
		if strings.Contains(prompt, key) {
			return answer, nil
		}
	}
	return c.answer, c.err
}

type stubLocker struct {
	mu       sync.Mutex
	busy     bool
	err      error
	released int
}

func (l *stubLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.busy {
		return nil, false, nil
	}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
	}, true, nil
}

func (l *stubLocker) releases() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released
}

type capturePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *capturePublisher) Publish(_ context.Context, eventType string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

var _ events.Publisher = (*capturePublisher)(nil)

func newTestService(repo *stubRepo, digests DigestBuilder, cls Classifier, locker Locker, pub events.Publisher) *Service {
	svc := NewService(repo, digests, cls, pub, locker, Config{Interval: time.Millisecond, BatchSize: 10}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}
