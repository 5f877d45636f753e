// Package throttle provides an [http.RoundTripper] that rate-limits
// transfers with a token bucket from [golang.org/x/time/rate].
//
// The engine uses it when a handle is created with engine.WithThrottle.
// It can also wrap a transport shared by several handles:
//
//	rt, err := throttle.NewRoundTripper(
//		throttle.Config{RPS: 10, Burst: 5},
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//
// When the bucket is empty a transfer blocks until a token is available
// or its context ends.
package throttle
