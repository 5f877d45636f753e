package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/gcurl/throttle"
)

const defaultConnectTimeout = 30 * time.Second

var errAborted = errors.New("header callback aborted transfer")

// Info describes the last transfer performed on a handle.
type Info struct {
	EffectiveURL  string
	StatusCode    int
	RedirectCount int
	HeaderSize    int64
	SizeDownload  int64
	SizeUpload    int64
	TotalTime     time.Duration
}

// Handle holds the configuration of one transfer session.
type Handle struct {
	rt     http.RoundTripper
	own    *http.Transport
	tracer trace.Tracer
	logger *slog.Logger

	url            string
	post           bool
	postFields     *string
	upload         bool
	inFile         io.Reader
	inFileSize     int64
	customRequest  string
	headers        []string
	userAgent      string
	timeout        time.Duration
	connectTimeout time.Duration
	followLocation bool
	maxRedirs      int
	returnTransfer bool
	headerFn       HeaderFunc
	writeTo        io.Writer

	err    error
	info   Info
	closed bool
}

// New creates a handle. Unless [WithTransport] is given the handle owns a
// private transport whose dialer honours [OptConnectTimeout].
func New(optFns ...Option) (*Handle, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying engine option: %w", err)
		}
	}

	h := &Handle{
		tracer:     noop.NewTracerProvider().Tracer("no-op tracer"),
		logger:     slog.Default(),
		inFileSize: -1,
		maxRedirs:  -1,
		writeTo:    io.Discard,
	}

	if opts.tracer != nil {
		h.tracer = opts.tracer
	}
	if opts.logger != nil {
		h.logger = opts.logger
	}

	switch {
	case opts.rt != nil:
		h.rt = opts.rt
	default:
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.DialContext = h.dial
		// Bodies and headers are reported as received; no implicit gzip.
		tr.DisableCompression = true
		h.own = tr
		h.rt = tr
	}

	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(*opts.throttle, func() *slog.Logger { return h.logger }, h.rt)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		h.rt = rt
	}

	return h, nil
}

// SetOpt applies one transfer setting. A rejected value is returned as an
// [*Error] and recorded in the handle's error state.
func (h *Handle) SetOpt(opt Opt, value any) error {
	if h.closed {
		return ErrClosed
	}

	if err := h.setopt(opt, value); err != nil {
		h.err = err
		return err
	}

	return nil
}

// Perform runs the transfer. With [OptReturnTransfer] the body is returned,
// otherwise it is written to [OptWriteTo] and the returned slice is nil.
func (h *Handle) Perform(ctx context.Context) ([]byte, error) {
	if h.closed {
		return nil, ErrClosed
	}

	h.err = nil
	h.info = Info{}

	start := time.Now()
	body, err := h.perform(ctx)
	h.info.TotalTime = time.Since(start)
	if err != nil {
		h.err = err
		return nil, err
	}

	h.logger.Debug("transfer complete", "url", h.info.EffectiveURL, "status", h.info.StatusCode, "took", h.info.TotalTime.String())

	return body, nil
}

// Err reports the error state left by the last option or transfer.
func (h *Handle) Err() error {
	return h.err
}

// ClearErr resets the error state.
func (h *Handle) ClearErr() {
	h.err = nil
}

// Info describes the last transfer.
func (h *Handle) Info() Info {
	return h.info
}

// Close releases the handle. Calling it more than once is a no-op.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	if h.own != nil {
		h.own.CloseIdleConnections()
	}
	h.headerFn = nil
	h.inFile = nil
	h.writeTo = io.Discard

	return nil
}

// /////////////////////////////////////////////////////////////////

func (h *Handle) perform(ctx context.Context) ([]byte, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := h.newRequest(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := h.tracer.Start(ctx, "gcurl "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
		),
	)
	defer span.End()

	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	body, err := h.do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", h.info.StatusCode))

	return body, nil
}

func (h *Handle) do(req *http.Request) ([]byte, error) {
	client := &http.Client{
		Transport:     h.rt,
		CheckRedirect: h.checkRedirect,
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Code: classify(err), Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			h.logger.Error("failed to close response body", "error", err)
		}
	}()

	h.info.StatusCode = resp.StatusCode
	h.info.EffectiveURL = resp.Request.URL.String()

	if err := h.emitHeaders(resp); err != nil {
		return nil, &Error{Code: CodeWriteError, Err: err}
	}

	if h.returnTransfer {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &Error{Code: classify(err), Detail: "reading body", Err: err}
		}
		h.info.SizeDownload = int64(len(body))

		return body, nil
	}

	n, err := io.Copy(h.writeTo, resp.Body)
	h.info.SizeDownload = n
	if err != nil {
		return nil, &Error{Code: CodeWriteError, Detail: "streaming body", Err: err}
	}

	return nil, nil
}

// checkRedirect reports intermediate response headers before following
// a Location, and enforces OptFollowLocation and OptMaxRedirs.
func (h *Handle) checkRedirect(req *http.Request, via []*http.Request) error {
	if !h.followLocation {
		return http.ErrUseLastResponse
	}

	if req.Response != nil {
		if err := h.emitHeaders(req.Response); err != nil {
			return err
		}
	}

	if h.maxRedirs >= 0 && len(via) > h.maxRedirs {
		return fmt.Errorf("%w: %d", errTooManyRedirects, h.maxRedirs)
	}
	h.info.RedirectCount++

	return nil
}

// emitHeaders replays a response's header block line by line, the way it
// arrived on the wire, to the header function.
func (h *Handle) emitHeaders(resp *http.Response) error {
	lines := make([]string, 0, len(resp.Header)+2)
	lines = append(lines, fmt.Sprintf("%s %s\r\n", resp.Proto, resp.Status))
	for _, name := range slices.Sorted(maps.Keys(resp.Header)) {
		for _, value := range resp.Header[name] {
			lines = append(lines, name+": "+value+"\r\n")
		}
	}
	lines = append(lines, "\r\n")

	for _, line := range lines {
		h.info.HeaderSize += int64(len(line))
		if h.headerFn == nil {
			continue
		}
		if n := h.headerFn(line); n != len(line) {
			return fmt.Errorf("%w: consumed %d of %d bytes", errAborted, n, len(line))
		}
	}

	return nil
}

func (h *Handle) newRequest(ctx context.Context) (*http.Request, error) {
	if h.url == "" {
		return nil, &Error{Code: CodeURLMalformat, Detail: "no url set"}
	}

	u, err := url.Parse(h.url)
	if err != nil {
		return nil, &Error{Code: CodeURLMalformat, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &Error{Code: CodeUnsupportedProtocol, Detail: u.Scheme}
	}
	if u.Host == "" {
		return nil, &Error{Code: CodeURLMalformat, Detail: "missing host"}
	}

	method := http.MethodGet
	var body io.Reader
	switch {
	case h.upload:
		if h.inFile == nil {
			return nil, &Error{Code: CodeReadError, Detail: "upload requested without INFILE"}
		}
		method = http.MethodPut
		body = &countingReader{r: h.inFile, n: &h.info.SizeUpload}
	case h.post:
		method = http.MethodPost
		var fields string
		if h.postFields != nil {
			fields = *h.postFields
		}
		body = strings.NewReader(fields)
		h.info.SizeUpload = int64(len(fields))
	}
	if h.customRequest != "" {
		method = h.customRequest
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &Error{Code: CodeURLMalformat, Err: err}
	}

	if h.upload {
		switch {
		case h.inFileSize == 0:
			req.Body = http.NoBody
			req.ContentLength = 0
		case h.inFileSize > 0:
			req.ContentLength = h.inFileSize
		}
	}

	if h.post {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	// "Name:" with no value removes a header the engine would otherwise send.
	for _, line := range h.headers {
		name, value, _ := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		switch {
		case strings.EqualFold(name, "Host"):
			req.Host = value
		case value == "":
			req.Header.Del(name)
		default:
			req.Header.Set(name, value)
		}
	}

	return req, nil
}

func (h *Handle) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	timeout := h.connectTimeout
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}

	d := net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}

	return d.DialContext(ctx, network, addr)
}

type countingReader struct {
	r io.Reader
	n *int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	*c.n += int64(n)
	return n, err
}
