package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RateLimitError indicates the generation service returned a quota or
// rate-limit response (HTTP 429, or 401 which the service uses for
// exhausted quotas). It is the only error class that suspends the whole
// batch; everything else degrades to a per-item failure.
type RateLimitError struct {
	Provider   string
	StatusCode int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded (HTTP %d), retry after %v", e.Provider, e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded (HTTP %d)", e.Provider, e.StatusCode)
}

// IsRateLimit reports whether err is (or wraps) a rate-limit condition.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	if err == nil {
		return false
	}
	// Providers sometimes bury the condition in a message body.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "quota exceeded")
}
