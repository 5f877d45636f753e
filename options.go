package gcurl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/adamwoolhether/gcurl/engine"
)

// Handle is the engine resource a [Single] owns. [*engine.Handle]
// satisfies it.
type Handle interface {
	SetOpt(opt engine.Opt, value any) error
	Perform(ctx context.Context) ([]byte, error)
	Err() error
	Close() error
}

// Config holds the transfer defaults applied by [Options.SetBasicParams].
type Config struct {
	Timeout         time.Duration `toml:"timeout" validate:"gte=0s"`
	ConnectTimeout  time.Duration `toml:"connect_timeout" validate:"gte=0s"`
	FollowRedirects bool          `toml:"follow_redirects"`
	MaxRedirects    int           `toml:"max_redirects" validate:"gte=-1"`
	ReturnTransfer  bool          `toml:"-"`
	Output          io.Writer     `toml:"-"`
	UserAgent       string        `toml:"user_agent"`
	Headers         []string      `toml:"headers" validate:"dive,contains=:"`
}

// DefaultConfig buffers bodies in memory and leaves redirects to the caller.
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		ConnectTimeout: 10 * time.Second,
		MaxRedirects:   10,
		ReturnTransfer: true,
		UserAgent:      "gcurl/1.0",
	}
}

// Options records the settings applied to a handle.
type Options struct {
	h      Handle
	cfg    Config
	values map[engine.Opt]any
}

// NewOptions validates cfg and binds it to h. Nothing is applied until
// [Options.SetBasicParams] or [Options.Set].
func NewOptions(h Handle, cfg Config) (*Options, error) {
	if h == nil {
		return nil, errors.New("handle must not be nil")
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &Options{
		h:      h,
		cfg:    cfg,
		values: make(map[engine.Opt]any),
	}, nil
}

// Set applies one value to the handle and records it.
func (o *Options) Set(opt engine.Opt, value any) error {
	if err := o.h.SetOpt(opt, value); err != nil {
		return &OptionError{Opt: opt, Value: value, Err: err}
	}
	o.values[opt] = value

	return nil
}

type optValue struct {
	opt   engine.Opt
	value any
}

// SetBasicParams applies timeouts, redirect policy, return-transfer mode,
// user agent and default headers.
func (o *Options) SetBasicParams() error {
	settings := []optValue{
		{engine.OptTimeout, o.cfg.Timeout},
		{engine.OptConnectTimeout, o.cfg.ConnectTimeout},
		{engine.OptFollowLocation, o.cfg.FollowRedirects},
		{engine.OptMaxRedirs, o.cfg.MaxRedirects},
		{engine.OptReturnTransfer, o.cfg.ReturnTransfer},
		{engine.OptUserAgent, o.cfg.UserAgent},
		{engine.OptHTTPHeader, slices.Clone(o.cfg.Headers)},
	}
	if !o.cfg.ReturnTransfer && o.cfg.Output != nil {
		settings = append(settings, optValue{engine.OptWriteTo, o.cfg.Output})
	}

	for _, s := range settings {
		if err := o.Set(s.opt, s.value); err != nil {
			return err
		}
	}

	return nil
}

// SetHeadersHandler registers fn to receive every header line of a transfer.
func (o *Options) SetHeadersHandler(fn func(line string) int) error {
	return o.Set(engine.OptHeaderFunction, engine.HeaderFunc(fn))
}

// SetHeaders sends the configured default headers plus extra.
func (o *Options) SetHeaders(extra ...string) error {
	return o.Set(engine.OptHTTPHeader, append(slices.Clone(o.cfg.Headers), extra...))
}

// ReturnTransfer reports whether bodies are buffered in memory.
func (o *Options) ReturnTransfer() bool {
	v, _ := o.values[engine.OptReturnTransfer].(bool)
	return v
}

// Get returns the last value applied for opt.
func (o *Options) Get(opt engine.Opt) (any, bool) {
	v, ok := o.values[opt]
	return v, ok
}

// Config returns the configuration the options were built from.
func (o *Options) Config() Config {
	return o.cfg
}

// /////////////////////////////////////////////////////////////////

// Factory creates the engine handle for a [Single].
type Factory func() (Handle, error)

// DefaultEngine returns a Factory creating [engine.Handle]s with opts.
func DefaultEngine(opts ...engine.Option) Factory {
	return func() (Handle, error) {
		return engine.New(opts...)
	}
}

// Option is a functional option for configuring a [Single] via [New].
type Option func(*settings) error

type settings struct {
	cfg             Config
	factory         Factory
	factorySet      bool
	logger          *slog.Logger
	requestIDHeader string
}

// WithEngine replaces the handle factory. A nil factory makes [New]
// fail with [ErrEngineUnavailable].
func WithEngine(f Factory) Option {
	return func(s *settings) error {
		s.factory = f
		s.factorySet = true
		return nil
	}
}

// WithConfig replaces the whole transfer configuration.
func WithConfig(cfg Config) Option {
	return func(s *settings) error {
		s.cfg = cfg
		return nil
	}
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithTimeout bounds a whole transfer. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		s.cfg.Timeout = d
		return nil
	}
}

// WithConnectTimeout bounds connection establishment.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *settings) error {
		if d < 0 {
			return errors.New("connect timeout must not be negative")
		}
		s.cfg.ConnectTimeout = d
		return nil
	}
}

// WithFollowRedirects lets the engine follow up to max redirects itself.
// -1 means unlimited.
func WithFollowRedirects(max int) Option {
	return func(s *settings) error {
		if max < -1 {
			return fmt.Errorf("max redirects %d out of range", max)
		}
		s.cfg.FollowRedirects = true
		s.cfg.MaxRedirects = max
		return nil
	}
}

// WithMaxRedirects caps redirects the engine follows when following is on.
func WithMaxRedirects(max int) Option {
	return func(s *settings) error {
		if max < -1 {
			return fmt.Errorf("max redirects %d out of range", max)
		}
		s.cfg.MaxRedirects = max
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *settings) error {
		s.cfg.UserAgent = ua
		return nil
	}
}

// WithHeaders adds "Name: value" lines to every request.
func WithHeaders(lines ...string) Option {
	return func(s *settings) error {
		s.cfg.Headers = append(s.cfg.Headers, lines...)
		return nil
	}
}

// WithOutput streams bodies to w instead of buffering them; the
// returned [Response] then has an empty body.
func WithOutput(w io.Writer) Option {
	return func(s *settings) error {
		if w == nil {
			return errors.New("output must not be nil")
		}
		s.cfg.ReturnTransfer = false
		s.cfg.Output = w
		return nil
	}
}

// WithRequestIDHeader sends each execution's request id in the named header.
func WithRequestIDHeader(name string) Option {
	return func(s *settings) error {
		if name == "" {
			return errors.New("request id header name must not be empty")
		}
		s.requestIDHeader = name
		return nil
	}
}
