// Package httputil provides HTTP helpers shared by terdel's API clients.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff, but only for errors
// marked transient with [Retryable] (or wrapped in [RetryableError]):
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    defer resp.Body.Close()
//	    return httputil.StatusError(resp.StatusCode, nil)
//	})
//
// [StatusError] turns 5xx responses into retryable errors and leaves 4xx
// responses permanent; [StatusCode] recovers the status from the result.
//
// # Defaults
//
//   - Request timeout: 10 seconds ([NewHTTPClient])
//   - Attempts: 3
//   - Initial backoff: 500ms, doubling, capped at 8s
package httputil
