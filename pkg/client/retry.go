package client

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultRetryMax     = 3
	defaultRetryWaitMin = 100 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second
)

// CreateRetryableClient creates a retryable HTTP client for API requests.
func CreateRetryableClient(retryMax int, retryWaitMin, retryWaitMax time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.Logger = nil // Disable retryablehttp logging
	// Error responses carry the API's message, so only transport failures are retried.
	client.CheckRetry = customRetryPolicy
	return client
}

type noRetryKey struct{}

// withoutRetry marks a request that must be sent at most once. A POST that
// reached the API before the connection dropped would otherwise be applied
// twice.
func withoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

// customRetryPolicy only retries on connection/timeout errors, not HTTP status errors.
func customRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if ctx.Value(noRetryKey{}) != nil {
		return false, nil
	}

	if resp != nil {
		return false, nil
	}

	// retryablehttp keeps the transport error and reports it once retries run out.
	if err != nil {
		return true, nil //nolint:nilerr // retryablehttp handles the error
	}

	return false, nil
}
