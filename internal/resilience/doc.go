// Package resilience groups the fault tolerance helpers used for network
// calls to feed hosts and the destination server.
//
//   - circuitbreaker: stop calling a remote that keeps failing
//   - retry: exponential backoff with jitter for transient failures
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.DestinationConfig("feoblog"))
//	err := retry.WithBackoff(ctx, retry.PublishConfig(), func() error {
//	    _, err := cb.Execute(func() (interface{}, error) {
//	        return nil, put(ctx, record)
//	    })
//	    return err
//	})
package resilience
