// Package httputil provides retry helpers for the page fetcher.
//
// [Retry] re-runs an operation with exponential backoff, but only for
// errors wrapped in [RetryableError]: network failures and 5xx responses.
// Anything else (404, non-HTML content, a cancelled context) returns
// immediately.
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// The default policy makes 3 attempts starting at a 1 second delay.
package httputil
