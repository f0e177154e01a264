// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across pipeline stages:
// rate-limit retry and provider failure classification.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// ErrRateLimited marks a provider call rejected for exceeding its quota.
// The orchestrator halts further passes when it sees this.
var ErrRateLimited = errors.New("provider rate limited")

// ErrUnavailable marks a transport-level failure (DNS, connection refused,
// timeout). The orchestrator disables the provider for the rest of the run.
var ErrUnavailable = errors.New("provider unavailable")

// DoWithRetry executes an HTTP request and retries on HTTP 429 with
// exponential backoff starting at RetryBaseDelay. When maxRetries is 0 the
// default (3) is used. On each 429 the response body is drained and closed
// before sleeping. If the context is cancelled during a backoff wait the
// function returns ctx.Err(). After exhausting retries the call fails with
// ErrRateLimited so callers can halt cleanly.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, ClassifyTransport(err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt >= maxRetries {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("after %d retries: %w", maxRetries, ErrRateLimited)
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// ClassifyTransport maps a transport error onto ErrUnavailable when it
// indicates the provider cannot be reached at all (DNS failure, connection
// refused, timeout). Other errors pass through unchanged.
func ClassifyTransport(err error) error {
	if err == nil {
		return nil
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%v: %w", err, ErrUnavailable)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%v: %w", err, ErrUnavailable)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, ErrUnavailable)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%v: %w", err, ErrUnavailable)
	}
	return err
}

// IsRateLimited reports whether err signals a provider quota rejection,
// either via ErrRateLimited or a rate-limit phrase in a provider error body.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}

// IsUnavailable reports whether err signals a transport-level provider failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
