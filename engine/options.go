package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/gcurl/throttle"
)

// Option configures a [Handle] at creation time via [New].
type Option func(*options) error

type options struct {
	rt       http.RoundTripper
	throttle *throttle.Config
	tracer   trace.Tracer
	logger   *slog.Logger
}

// WithTransport replaces the handle's private transport. The handle never
// closes idle connections of a transport it did not create, so one
// transport may back many handles.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithThrottle rate-limits the handle's transfers with a token bucket.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		cfg := throttle.Config{RPS: rps, Burst: burst}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("throttle: %w", err)
		}
		o.throttle = &cfg
		return nil
	}
}

// WithTracer records each transfer as a client span on tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}

// WithLogger sets the handle's logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}
