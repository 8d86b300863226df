package oracle

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/adjudex/adjudex/internal/cache"
	"github.com/adjudex/adjudex/internal/model"
)

// sleepFunc is the sleep function used between retries (injectable for tests)
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// JudgeRequest asks the oracle to adjudicate one claim against its
// canonical requirement text.
type JudgeRequest struct {
	Claim       model.Claim
	Requirement string
	Temperature float64

	// BypassCache forces a fresh oracle call. Cache bypass is always an
	// explicit caller choice, never implicit.
	BypassCache bool
}

// RejectedClaim is one rejected claim inside an appeal batch, with the
// rationale it was rejected for.
type RejectedClaim struct {
	ClaimID         string
	SubRequirement  string
	EvidenceText    string
	RejectionReason string
}

// AppealRequest asks the oracle to re-read one document (or chunk of one)
// and find stronger evidence for its rejected claims.
type AppealRequest struct {
	DocumentID   string
	DocumentText string
	Claims       []RejectedClaim
	BypassCache  bool
}

// AppealCandidate is one replacement claim proposed by the oracle.
type AppealCandidate struct {
	OriginalClaimID string `json:"original_claim_id"`
	EvidenceText    string `json:"evidence_text"`
	ClaimSummary    string `json:"claim_summary"`
}

// AppealResponse is the oracle's answer to an appeal batch.
type AppealResponse struct {
	Candidates []AppealCandidate `json:"candidates"`
}

// Client is the single rate-limited, retrying, caching front to the oracle.
// Every component that talks to the oracle goes through one Client, so the
// calls-per-minute budget and the prompt cache are shared process-wide.
type Client struct {
	provider Provider
	limiter  *rate.Limiter
	cache    cache.Cache
	retry    model.RetryConfig
	verbose  bool
}

// NewClient wraps a provider with throttling, bounded retries, and an
// optional prompt cache (nil disables caching).
func NewClient(provider Provider, rl model.RateLimitConfig, retry model.RetryConfig, c cache.Cache, verbose bool) *Client {
	cpm := rl.CallsPerMinute
	if cpm <= 0 {
		cpm = 30
	}
	burst := rl.Burst
	if burst <= 0 {
		burst = 1
	}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 3
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = 2 * time.Second
	}
	if retry.RateLimitBackoff <= retry.InitialBackoff {
		retry.RateLimitBackoff = 5 * retry.InitialBackoff
	}

	return &Client{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cpm)), burst),
		cache:    c,
		retry:    retry,
		verbose:  verbose,
	}
}

// Provider returns the wrapped provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// Judge adjudicates one claim. A nil error guarantees a validated verdict;
// any failure (transport exhausted, malformed response) returns nil so the
// caller leaves the claim pending rather than deciding on bad data.
// Only completions that parse into a valid verdict are cached: a malformed
// response cached as-is would replay on every future run and pin the claim
// pending until the entry expired, so it is never stored, and a stale
// cached entry that no longer parses is purged and the oracle re-asked.
func (c *Client) Judge(ctx context.Context, req JudgeRequest) (*Verdict, error) {
	prompt := buildJudgePrompt(req.Claim, req.Requirement)
	key := c.cacheKey(prompt, req.Temperature)

	if data, ok := c.cached(key, req.BypassCache); ok {
		verdict, err := parseVerdict(string(data))
		if err == nil {
			return verdict, nil
		}
		c.purge(key)
	}

	completion, err := c.fetch(ctx, prompt, req.Temperature)
	if err != nil {
		return nil, err
	}

	verdict, err := parseVerdict(completion)
	if err != nil {
		return nil, fmt.Errorf("invalid oracle verdict: %w", err)
	}
	c.store(key, completion)
	return verdict, nil
}

// Appeal submits one document batch for deep re-evidence. Caching follows
// the same parse-before-store rule as Judge.
func (c *Client) Appeal(ctx context.Context, req AppealRequest) (*AppealResponse, error) {
	prompt := buildAppealPrompt(req)
	key := c.cacheKey(prompt, 0.5)

	if data, ok := c.cached(key, req.BypassCache); ok {
		resp, err := parseAppeal(string(data))
		if err == nil {
			return resp, nil
		}
		c.purge(key)
	}

	completion, err := c.fetch(ctx, prompt, 0.5)
	if err != nil {
		return nil, err
	}

	resp, err := parseAppeal(completion)
	if err != nil {
		return nil, fmt.Errorf("invalid oracle appeal response: %w", err)
	}
	c.store(key, completion)
	return resp, nil
}

func (c *Client) cacheKey(prompt string, temperature float64) string {
	return cache.Key(fmt.Sprintf("%s|%s|%.3f|%s", c.provider.Name(), "complete", temperature, prompt))
}

func (c *Client) cached(key string, bypass bool) ([]byte, bool) {
	if c.cache == nil || bypass {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *Client) store(key, completion string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(key, []byte(completion), 0); err != nil && c.verbose {
		fmt.Fprintf(os.Stderr, "oracle: cache write failed: %v\n", err)
	}
}

func (c *Client) purge(key string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(key); err != nil && c.verbose {
		fmt.Fprintf(os.Stderr, "oracle: cache purge failed: %v\n", err)
	}
}

// fetch runs one prompt through limiter -> provider -> bounded retries.
// It never touches the cache; callers store the completion only after it
// parses.
func (c *Client) fetch(ctx context.Context, prompt string, temperature float64) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		completion, err := c.provider.Complete(ctx, prompt, temperature)
		if err == nil {
			return completion, nil
		}
		lastErr = err

		if attempt == c.retry.MaxAttempts {
			break
		}

		backoff := c.retry.InitialBackoff * time.Duration(attempt)
		if RateLimited(err) {
			backoff = c.retry.RateLimitBackoff * time.Duration(attempt)
		}
		if c.verbose {
			fmt.Fprintf(os.Stderr, "oracle: attempt %d/%d failed (%v), retrying in %v\n", attempt, c.retry.MaxAttempts, err, backoff)
		}
		if err := sleepFunc(ctx, backoff); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("oracle call failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}
