package gcurl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/adamwoolhether/gcurl/engine"
)

// Single executes one [Request] at a time on an engine handle it owns.
//
// It moves from idle to prepared to executed and back to idle after each
// [Single.Exec]; [Single.Redirect] rebinds it to a new address. A Single
// is not safe for concurrent use, and must be released with
// [Single.Disconnect] (or Close) on every path.
type Single struct {
	handle          Handle
	request         Request
	response        *Response
	options         *Options
	uri             *URI
	counter         int
	prepared        bool
	responseUsed    bool
	requestIDHeader string
	logger          *slog.Logger
}

// New creates the engine handle, applies the basic transfer options and
// wires the response header callback. The handle is released if any step
// after its creation fails.
func New(req Request, optFns ...Option) (*Single, error) {
	if req == nil {
		return nil, errors.New("request must not be nil")
	}

	s := settings{
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range optFns {
		if err := opt(&s); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	factory := s.factory
	if !s.factorySet {
		factory = defaultFactory(s.logger)
	}
	if factory == nil {
		return nil, ErrEngineUnavailable
	}

	h, err := factory()
	if err != nil {
		if h != nil {
			if cerr := h.Close(); cerr != nil {
				s.logger.Error("failed to close engine handle", "error", cerr)
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrHandleCreation, err)
	}
	if h == nil {
		return nil, ErrHandleCreation
	}
	if err := h.Err(); err != nil {
		if cerr := h.Close(); cerr != nil {
			s.logger.Error("failed to close engine handle", "error", cerr)
		}
		return nil, fmt.Errorf("%w: %w", ErrHandleCreation, err)
	}

	single := &Single{
		handle:          h,
		request:         req,
		uri:             req.URI(),
		requestIDHeader: s.requestIDHeader,
		logger:          s.logger,
	}
	single.response = NewResponse(single.uri)

	if err := single.init(s.cfg); err != nil {
		if cerr := single.Disconnect(); cerr != nil {
			s.logger.Error("failed to release engine handle", "error", cerr)
		}
		return nil, err
	}

	return single, nil
}

func (s *Single) init(cfg Config) error {
	opts, err := NewOptions(s.handle, cfg)
	if err != nil {
		return err
	}
	if err := opts.SetBasicParams(); err != nil {
		return fmt.Errorf("setting basic params: %w", err)
	}

	// The callback reads s.response at call time so a response replaced by
	// Exec or Redirect keeps receiving headers.
	if err := opts.SetHeadersHandler(func(line string) int {
		return s.response.HeadersHandler(line)
	}); err != nil {
		return fmt.Errorf("setting headers handler: %w", err)
	}
	s.options = opts

	return nil
}

// Exec runs the current request and returns its response. The request is
// prepared first unless it already is. OnRequestEnd runs on both the
// success and the failure path.
func (s *Single) Exec(ctx context.Context) (*Response, error) {
	if s.handle == nil {
		return nil, ErrDisconnected
	}

	if s.responseUsed {
		s.response = NewResponse(s.uri)
	}
	s.responseUsed = true

	if !s.prepared {
		if err := s.request.Prepare(s.options); err != nil {
			return nil, fmt.Errorf("preparing %s request: %w", s.request.Method(), err)
		}
		s.prepared = true
	}

	s.counter++
	id := uuid.NewString()
	s.response.requestID = id
	if s.requestIDHeader != "" {
		if err := s.options.SetHeaders(s.requestIDHeader + ": " + id); err != nil {
			s.finish()
			return nil, fmt.Errorf("setting request id header: %w", err)
		}
	}

	s.logger.Debug("executing request", "request", s.counter, "method", s.request.Method(), "url", s.uri.String(), "request_id", id)

	result, err := s.handle.Perform(ctx)
	endErr := s.finish()

	if err != nil {
		return nil, &TransferError{Request: s.counter, URL: s.uri.String(), Err: err}
	}
	if s.options.ReturnTransfer() && len(result) == 0 && s.response.HeaderLen() == 0 {
		return nil, &TransferError{Request: s.counter, URL: s.uri.String()}
	}
	if endErr != nil {
		return nil, fmt.Errorf("finishing %s request: %w", s.request.Method(), endErr)
	}

	if s.options.ReturnTransfer() {
		s.response.setBody(result)
	}

	return s.response, nil
}

// finish releases per-request resources and returns to the idle state.
func (s *Single) finish() error {
	s.prepared = false

	err := s.request.OnRequestEnd()
	if err != nil {
		s.logger.Error("request end hook failed", "request", s.counter, "error", err)
	}

	return err
}

// Redirect points the Single at newURI with a fresh GET request and an
// empty response. A relative newURI resolves against the current address.
func (s *Single) Redirect(newURI string) error {
	if s.handle == nil {
		return ErrDisconnected
	}

	if err := s.uri.Redirect(newURI); err != nil {
		return fmt.Errorf("redirecting: %w", err)
	}

	s.request = NewGetRequest(s.uri)
	s.response = NewResponse(s.uri)
	s.responseUsed = false
	s.prepared = false

	return nil
}

// Follow executes the current request and then follows Location headers
// with [Single.Redirect] until a non-redirect response or maxHops hops.
func (s *Single) Follow(ctx context.Context, maxHops int) (*Response, error) {
	resp, err := s.Exec(ctx)
	if err != nil {
		return nil, err
	}

	for hops := 0; resp.IsRedirect(); hops++ {
		if hops >= maxHops {
			return resp, fmt.Errorf("%w: %d", ErrTooManyHops, maxHops)
		}

		s.logger.Debug("following redirect", "from", s.uri.String(), "location", resp.Location())

		if err := s.Redirect(resp.Location()); err != nil {
			return resp, err
		}
		if resp, err = s.Exec(ctx); err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// Disconnect releases the engine handle. Later calls are no-ops; any other
// method then returns [ErrDisconnected].
func (s *Single) Disconnect() error {
	if s.handle == nil {
		return nil
	}

	err := s.handle.Close()
	s.handle = nil
	if err != nil {
		return fmt.Errorf("closing engine handle: %w", err)
	}

	return nil
}

// Close is Disconnect, for use with defer and [io.Closer].
func (s *Single) Close() error {
	return s.Disconnect()
}

func (s *Single) Request() Request    { return s.request }
func (s *Single) Response() *Response { return s.response }
func (s *Single) Options() *Options   { return s.options }
func (s *Single) URI() *URI           { return s.uri }
func (s *Single) Handle() Handle      { return s.handle }
func (s *Single) RequestCounter() int { return s.counter }

// /////////////////////////////////////////////////////////////////

// GET executes a GET with params as the query string.
//
//	resp, err := gcurl.GET(ctx, "https://example.com/search", gcurl.Params{{"q", "go"}})
func GET(ctx context.Context, address string, params Params, opts ...Option) (*Response, error) {
	uri, err := NewURI(address)
	if err != nil {
		return nil, err
	}

	req := NewGetRequest(uri)
	for _, p := range params {
		if err := req.AddVar(p.Key, p.Value); err != nil {
			return nil, err
		}
	}

	return run(ctx, req, opts)
}

// POST executes a POST with params as a url-encoded body.
func POST(ctx context.Context, address string, params Params, opts ...Option) (*Response, error) {
	uri, err := NewURI(address)
	if err != nil {
		return nil, err
	}

	req := NewPostURLEncodedRequest(uri)
	for _, p := range params {
		if err := req.AddVar(p.Key, p.Value); err != nil {
			return nil, err
		}
	}

	return run(ctx, req, opts)
}

// PUT uploads the file at path.
func PUT(ctx context.Context, address, path string, opts ...Option) (*Response, error) {
	uri, err := NewURI(address)
	if err != nil {
		return nil, err
	}

	return run(ctx, NewPutFileRequest(uri, path), opts)
}

func run(ctx context.Context, req Request, opts []Option) (*Response, error) {
	s, err := New(req, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.Disconnect(); err != nil {
			s.logger.Error("failed to disconnect", "error", err)
		}
	}()

	return s.Exec(ctx)
}

func defaultFactory(logger *slog.Logger) Factory {
	return DefaultEngine(engine.WithLogger(logger))
}
