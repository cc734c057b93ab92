// Package resource implements admission control for the HTTP server and
// bandwidth limits for remote dataset reads.
//
// The Controller manages three limits:
//
//   - In-flight requests: a weighted semaphore bounds concurrent work
//   - Request rate: a token bucket bounds requests per second
//   - IO: a token bucket bounds bytes per second read from remote stores
//
// # Admission
//
//	rc := resource.NewController(resource.Config{
//	    MaxInFlight:       64,
//	    RequestsPerSecond: 500,
//	})
//
//	if err := rc.Admit(ctx); err != nil {
//	    // ctx expired while waiting: reject the request
//	}
//	defer rc.Release()
//
// # IO Limits
//
//	r := resource.NewRateLimitedReader(ctx, body, rc)
//
// A nil *Controller admits everything and never throttles.
package resource
