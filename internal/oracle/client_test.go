package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adjudex/adjudex/internal/cache"
	"github.com/adjudex/adjudex/internal/model"
)

type fakeProvider struct {
	calls     int
	failTimes int
	failWith  error
	response  string
	responses []string // per-call sequence; overrides response, last entry repeats
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *fakeProvider) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	p.calls++
	if p.calls <= p.failTimes {
		return "", p.failWith
	}
	if len(p.responses) > 0 {
		i := p.calls - 1
		if i >= len(p.responses) {
			i = len(p.responses) - 1
		}
		return p.responses[i], nil
	}
	return p.response, nil
}

func testRateLimit() model.RateLimitConfig {
	return model.RateLimitConfig{CallsPerMinute: 60000, Burst: 1000}
}

func swapSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	t.Cleanup(func() { sleepFunc = orig })
	return &slept
}

func judgeRequest(bypass bool) JudgeRequest {
	return JudgeRequest{
		Claim: model.Claim{
			ClaimID:        "c1",
			DocumentID:     "doc-1",
			Pillar:         "Pillar 1",
			SubRequirement: "Sub-1.1.1: Example",
			EvidenceText:   "evidence",
		},
		Requirement: "Sub-1.1.1: Example",
		Temperature: 0.2,
		BypassCache: bypass,
	}
}

func TestClient_CachesIdenticalPrompts(t *testing.T) {
	p := &fakeProvider{response: validVerdict}
	c := NewClient(p, testRateLimit(), model.RetryConfig{MaxAttempts: 1}, cache.NewMemoryCache(time.Minute, time.Minute), false)

	if _, err := c.Judge(context.Background(), judgeRequest(false)); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := c.Judge(context.Background(), judgeRequest(false)); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (second judge must hit the cache)", p.calls)
	}

	// Bypass is an explicit caller choice and forces a fresh call.
	if _, err := c.Judge(context.Background(), judgeRequest(true)); err != nil {
		t.Fatalf("bypass call: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want 2 after bypass", p.calls)
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	slept := swapSleep(t)

	p := &fakeProvider{failTimes: 2, failWith: errors.New("connection reset"), response: validVerdict}
	c := NewClient(p, testRateLimit(), model.RetryConfig{
		MaxAttempts:      3,
		InitialBackoff:   time.Second,
		RateLimitBackoff: 10 * time.Second,
	}, nil, false)

	if _, err := c.Judge(context.Background(), judgeRequest(false)); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if p.calls != 3 {
		t.Errorf("provider calls = %d, want 3", p.calls)
	}
	// Backoff increases between attempts.
	if len(*slept) != 2 || (*slept)[0] != time.Second || (*slept)[1] != 2*time.Second {
		t.Errorf("backoffs = %v, want [1s 2s]", *slept)
	}
}

func TestClient_RateLimitSignalIncreasesBackoff(t *testing.T) {
	slept := swapSleep(t)

	p := &fakeProvider{failTimes: 1, failWith: &apiError{StatusCode: 429, Message: "slow down"}, response: validVerdict}
	c := NewClient(p, testRateLimit(), model.RetryConfig{
		MaxAttempts:      2,
		InitialBackoff:   time.Second,
		RateLimitBackoff: 15 * time.Second,
	}, nil, false)

	if _, err := c.Judge(context.Background(), judgeRequest(false)); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if len(*slept) != 1 || (*slept)[0] != 15*time.Second {
		t.Errorf("backoffs = %v, want [15s]", *slept)
	}
}

func TestClient_BoundedAttempts(t *testing.T) {
	swapSleep(t)

	p := &fakeProvider{failTimes: 100, failWith: errors.New("unavailable"), response: validVerdict}
	c := NewClient(p, testRateLimit(), model.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Second}, nil, false)

	if _, err := c.Judge(context.Background(), judgeRequest(false)); err == nil {
		t.Fatal("expected error once attempts are exhausted")
	}
	if p.calls != 3 {
		t.Errorf("provider calls = %d, want exactly 3", p.calls)
	}
}

func TestClient_MalformedCompletionIsAnError(t *testing.T) {
	p := &fakeProvider{response: "not a verdict"}
	c := NewClient(p, testRateLimit(), model.RetryConfig{MaxAttempts: 1}, nil, false)

	v, err := c.Judge(context.Background(), judgeRequest(false))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if v != nil {
		t.Errorf("verdict = %+v, want nil on error", v)
	}
}

func TestClient_MalformedCompletionIsNotCached(t *testing.T) {
	p := &fakeProvider{responses: []string{"not a verdict", validVerdict}}
	c := NewClient(p, testRateLimit(), model.RetryConfig{MaxAttempts: 1}, cache.NewMemoryCache(time.Minute, time.Minute), false)

	if _, err := c.Judge(context.Background(), judgeRequest(false)); err == nil {
		t.Fatal("expected parse error on the malformed completion")
	}

	// The garbage must not have been stored: the next run re-asks the
	// provider instead of replaying the unparseable completion.
	v, err := c.Judge(context.Background(), judgeRequest(false))
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if v == nil {
		t.Fatal("second call returned nil verdict")
	}
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (malformed completion must not be cached)", p.calls)
	}

	// The good completion was stored.
	if _, err := c.Judge(context.Background(), judgeRequest(false)); err != nil {
		t.Fatalf("third call: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (valid completion must be cached)", p.calls)
	}
}

func TestClient_PoisonedCacheEntryIsPurged(t *testing.T) {
	p := &fakeProvider{response: validVerdict}
	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	c := NewClient(p, testRateLimit(), model.RetryConfig{MaxAttempts: 1}, mem, false)

	req := judgeRequest(false)
	key := c.cacheKey(buildJudgePrompt(req.Claim, req.Requirement), req.Temperature)
	if err := mem.Set(key, []byte("corrupted entry"), 0); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	v, err := c.Judge(context.Background(), req)
	if err != nil {
		t.Fatalf("judge with poisoned cache: %v", err)
	}
	if v == nil {
		t.Fatal("judge returned nil verdict")
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (poisoned entry must be bypassed)", p.calls)
	}

	data, ok := mem.Get(key)
	if !ok || string(data) != validVerdict {
		t.Errorf("cache entry = %q, want the fresh valid completion", data)
	}
}
