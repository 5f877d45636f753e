package engine

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/gcurl/throttle"
)

// echoHandler reflects the method, content type and body of a request.
func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("X-Method", r.Method)
	w.Header().Set("X-Content-Type", r.Header.Get("Content-Type"))
	w.Header().Set("X-User-Agent", r.Header.Get("User-Agent"))
	w.Header().Set("X-Custom", r.Header.Get("X-Custom"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func newHandle(t *testing.T, opts ...Option) *Handle {
	t.Helper()

	h, err := New(opts...)
	if err != nil {
		t.Fatalf("creating handle: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	return h
}

func mustSet(t *testing.T, h *Handle, opt Opt, value any) {
	t.Helper()

	if err := h.SetOpt(opt, value); err != nil {
		t.Fatalf("setting %s: %v", opt, err)
	}
}

func TestPerform_ReturnTransfer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}))
	defer ts.Close()

	h := newHandle(t)

	var lines []string
	var seen int64
	mustSet(t, h, OptURL, ts.URL)
	mustSet(t, h, OptReturnTransfer, true)
	mustSet(t, h, OptHeaderFunction, func(line string) int {
		lines = append(lines, line)
		seen += int64(len(line))
		return len(line)
	})

	body, err := h.Perform(t.Context())
	if err != nil {
		t.Fatalf("perform: %v", err)
	}

	if string(body) != "hello" {
		t.Errorf("exp body %q; got %q", "hello", body)
	}
	if len(lines) < 3 {
		t.Fatalf("exp at least 3 header lines; got %d", len(lines))
	}
	if lines[0] != "HTTP/1.1 201 Created\r\n" {
		t.Errorf("exp status line; got %q", lines[0])
	}
	if lines[len(lines)-1] != "\r\n" {
		t.Errorf("exp blank terminator; got %q", lines[len(lines)-1])
	}
	if !contains(lines, "X-Test: yes\r\n") {
		t.Errorf("exp X-Test line in %q", lines)
	}

	info := h.Info()
	if info.HeaderSize != seen {
		t.Errorf("exp header size %d; got %d", seen, info.HeaderSize)
	}
	if info.StatusCode != http.StatusCreated {
		t.Errorf("exp status %d; got %d", http.StatusCreated, info.StatusCode)
	}
	if info.SizeDownload != 5 {
		t.Errorf("exp 5 downloaded bytes; got %d", info.SizeDownload)
	}
	if h.Err() != nil {
		t.Errorf("exp clean error state; got %v", h.Err())
	}
}

func TestPerform_CompressedBody(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, _ = zw.Write([]byte("compressed"))
	_ = zw.Close()

	var acceptEncoding string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acceptEncoding = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write(gz.Bytes())
	}))
	defer ts.Close()

	h := newHandle(t)

	var lines []string
	var seen int64
	mustSet(t, h, OptURL, ts.URL)
	mustSet(t, h, OptReturnTransfer, true)
	mustSet(t, h, OptHeaderFunction, func(line string) int {
		lines = append(lines, line)
		seen += int64(len(line))
		return len(line)
	})

	body, err := h.Perform(t.Context())
	if err != nil {
		t.Fatalf("perform: %v", err)
	}

	if acceptEncoding != "" {
		t.Errorf("exp no Accept-Encoding sent by default; got %q", acceptEncoding)
	}
	if !contains(lines, "Content-Encoding: gzip\r\n") {
		t.Errorf("exp Content-Encoding line in %q", lines)
	}
	if !contains(lines, fmt.Sprintf("Content-Length: %d\r\n", gz.Len())) {
		t.Errorf("exp Content-Length line in %q", lines)
	}
	if !bytes.Equal(body, gz.Bytes()) {
		t.Errorf("exp body as received; got %q", body)
	}
	if h.Info().HeaderSize != seen {
		t.Errorf("exp header size %d; got %d", seen, h.Info().HeaderSize)
	}
}

func TestPerform_WriteTo(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("streamed"))
	}))
	defer ts.Close()

	h := newHandle(t)

	var buf bytes.Buffer
	mustSet(t, h, OptURL, ts.URL)
	mustSet(t, h, OptWriteTo, &buf)

	body, err := h.Perform(t.Context())
	if err != nil {
		t.Fatalf("perform: %v", err)
	}
	if body != nil {
		t.Errorf("exp nil body without return transfer; got %q", body)
	}
	if buf.String() != "streamed" {
		t.Errorf("exp streamed body; got %q", buf.String())
	}
}

func TestPerform_Methods(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(echoHandler))
	defer ts.Close()

	type result struct {
		Method      string
		ContentType string
		Body        string
	}

	testCases := []struct {
		name  string
		setup func(t *testing.T, h *Handle)
		exp   result
	}{
		{
			name:  "default GET",
			setup: func(t *testing.T, h *Handle) {},
			exp:   result{Method: http.MethodGet},
		},
		{
			name: "post fields",
			setup: func(t *testing.T, h *Handle) {
				mustSet(t, h, OptPostFields, "a=1&b=2")
			},
			exp: result{Method: http.MethodPost, ContentType: "application/x-www-form-urlencoded", Body: "a=1&b=2"},
		},
		{
			name: "post content type overridden",
			setup: func(t *testing.T, h *Handle) {
				mustSet(t, h, OptPostFields, "{}")
				mustSet(t, h, OptHTTPHeader, []string{"Content-Type: application/json"})
			},
			exp: result{Method: http.MethodPost, ContentType: "application/json", Body: "{}"},
		},
		{
			name: "upload",
			setup: func(t *testing.T, h *Handle) {
				mustSet(t, h, OptUpload, true)
				mustSet(t, h, OptInFile, strings.NewReader("file-data"))
				mustSet(t, h, OptInFileSize, int64(9))
			},
			exp: result{Method: http.MethodPut, Body: "file-data"},
		},
		{
			name: "httpget resets post",
			setup: func(t *testing.T, h *Handle) {
				mustSet(t, h, OptPostFields, "x=1")
				mustSet(t, h, OptHTTPGet, true)
			},
			exp: result{Method: http.MethodGet},
		},
		{
			name: "custom request",
			setup: func(t *testing.T, h *Handle) {
				mustSet(t, h, OptCustomRequest, http.MethodDelete)
			},
			exp: result{Method: http.MethodDelete},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandle(t)

			var got result
			mustSet(t, h, OptURL, ts.URL)
			mustSet(t, h, OptReturnTransfer, true)
			mustSet(t, h, OptHeaderFunction, func(line string) int {
				name, value, ok := strings.Cut(strings.TrimSpace(line), ": ")
				if ok {
					switch name {
					case "X-Method":
						got.Method = value
					case "X-Content-Type":
						got.ContentType = value
					}
				}
				return len(line)
			})
			tc.setup(t, h)

			body, err := h.Perform(t.Context())
			if err != nil {
				t.Fatalf("perform: %v", err)
			}
			got.Body = string(body)

			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Errorf("unexpected echo (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPerform_Headers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(echoHandler))
	defer ts.Close()

	h := newHandle(t)

	var lines []string
	mustSet(t, h, OptURL, ts.URL)
	mustSet(t, h, OptUserAgent, "gcurl-test/1.0")
	mustSet(t, h, OptHTTPHeader, []string{"X-Custom: value"})
	mustSet(t, h, OptHeaderFunction, HeaderFunc(func(line string) int {
		lines = append(lines, line)
		return len(line)
	}))

	if _, err := h.Perform(t.Context()); err != nil {
		t.Fatalf("perform: %v", err)
	}

	for _, exp := range []string{"X-User-Agent: gcurl-test/1.0\r\n", "X-Custom: value\r\n"} {
		if !contains(lines, exp) {
			t.Errorf("exp %q in %q", exp, lines)
		}
	}
}

func TestPerform_Redirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop", http.StatusFound)
	})
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("done"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	testCases := []struct {
		name        string
		follow      bool
		maxRedirs   int
		expStatus   int
		expStatuses int
		expRedirs   int
		expCode     Code
	}{
		{name: "not followed", follow: false, maxRedirs: -1, expStatus: http.StatusFound, expStatuses: 1},
		{name: "followed", follow: true, maxRedirs: -1, expStatus: http.StatusOK, expStatuses: 3, expRedirs: 2},
		{name: "too many", follow: true, maxRedirs: 1, expCode: CodeTooManyRedirects},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandle(t)

			var statuses int
			mustSet(t, h, OptURL, ts.URL+"/start")
			mustSet(t, h, OptReturnTransfer, true)
			mustSet(t, h, OptFollowLocation, tc.follow)
			mustSet(t, h, OptMaxRedirs, tc.maxRedirs)
			mustSet(t, h, OptHeaderFunction, func(line string) int {
				if strings.HasPrefix(line, "HTTP/") {
					statuses++
				}
				return len(line)
			})

			_, err := h.Perform(t.Context())
			if tc.expCode != CodeOK {
				if got := CodeOf(err); got != tc.expCode {
					t.Fatalf("exp code %v; got %v (%v)", tc.expCode, got, err)
				}
				if !errors.Is(h.Err(), err) {
					t.Errorf("exp error state to hold %v; got %v", err, h.Err())
				}
				return
			}
			if err != nil {
				t.Fatalf("perform: %v", err)
			}

			info := h.Info()
			if info.StatusCode != tc.expStatus {
				t.Errorf("exp status %d; got %d", tc.expStatus, info.StatusCode)
			}
			if statuses != tc.expStatuses {
				t.Errorf("exp %d status lines; got %d", tc.expStatuses, statuses)
			}
			if info.RedirectCount != tc.expRedirs {
				t.Errorf("exp %d redirects; got %d", tc.expRedirs, info.RedirectCount)
			}
		})
	}
}

func TestPerform_Failures(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	testCases := []struct {
		name    string
		setup   func(t *testing.T, h *Handle)
		expCode Code
	}{
		{
			name:    "no url",
			setup:   func(t *testing.T, h *Handle) {},
			expCode: CodeURLMalformat,
		},
		{
			name: "unsupported scheme",
			setup: func(t *testing.T, h *Handle) {
				mustSet(t, h, OptURL, "ftp://example.com/file")
			},
			expCode: CodeUnsupportedProtocol,
		},
		{
			name: "connection refused",
			setup: func(t *testing.T, h *Handle) {
				mustSet(t, h, OptURL, closedURL)
			},
			expCode: CodeCouldntConnect,
		},
		{
			name: "timeout",
			setup: func(t *testing.T, h *Handle) {
				mustSet(t, h, OptURL, slow.URL)
				mustSet(t, h, OptTimeout, 50*time.Millisecond)
			},
			expCode: CodeOperationTimedout,
		},
		{
			name: "header callback aborts",
			setup: func(t *testing.T, h *Handle) {
				mustSet(t, h, OptURL, ok.URL)
				mustSet(t, h, OptHeaderFunction, func(string) int { return 0 })
			},
			expCode: CodeWriteError,
		},
		{
			name: "upload without infile",
			setup: func(t *testing.T, h *Handle) {
				mustSet(t, h, OptURL, ok.URL)
				mustSet(t, h, OptUpload, true)
			},
			expCode: CodeReadError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandle(t)
			mustSet(t, h, OptReturnTransfer, true)
			tc.setup(t, h)

			body, err := h.Perform(t.Context())
			if err == nil {
				t.Fatal("exp error")
			}
			if body != nil {
				t.Errorf("exp nil body on failure; got %q", body)
			}
			if got := CodeOf(err); got != tc.expCode {
				t.Errorf("exp code %v; got %v (%v)", tc.expCode, got, err)
			}

			h.ClearErr()
			if h.Err() != nil {
				t.Errorf("exp cleared error state; got %v", h.Err())
			}
		})
	}
}

func TestSetOpt_Rejected(t *testing.T) {
	testCases := []struct {
		name    string
		opt     Opt
		value   any
		expCode Code
	}{
		{name: "url not a string", opt: OptURL, value: 42, expCode: CodeBadFunctionArgument},
		{name: "negative timeout", opt: OptTimeout, value: -time.Second, expCode: CodeBadFunctionArgument},
		{name: "timeout as int", opt: OptTimeout, value: 5, expCode: CodeBadFunctionArgument},
		{name: "max redirs too low", opt: OptMaxRedirs, value: -2, expCode: CodeBadFunctionArgument},
		{name: "header without colon", opt: OptHTTPHeader, value: []string{"Broken"}, expCode: CodeBadFunctionArgument},
		{name: "method with space", opt: OptCustomRequest, value: "GET X", expCode: CodeBadFunctionArgument},
		{name: "header func wrong type", opt: OptHeaderFunction, value: func(string) {}, expCode: CodeBadFunctionArgument},
		{name: "unknown option", opt: Opt(999), value: true, expCode: CodeUnknownOption},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandle(t)

			err := h.SetOpt(tc.opt, tc.value)
			if got := CodeOf(err); got != tc.expCode {
				t.Fatalf("exp code %v; got %v (%v)", tc.expCode, got, err)
			}
			if h.Err() == nil {
				t.Error("exp rejected option to set the error state")
			}
		})
	}
}

func TestClose(t *testing.T) {
	h, err := New()
	if err != nil {
		t.Fatalf("creating handle: %v", err)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if err := h.SetOpt(OptURL, "http://example.com"); !errors.Is(err, ErrClosed) {
		t.Errorf("exp ErrClosed from SetOpt; got %v", err)
	}
	if _, err := h.Perform(t.Context()); !errors.Is(err, ErrClosed) {
		t.Errorf("exp ErrClosed from Perform; got %v", err)
	}
}

func TestNew_Options(t *testing.T) {
	if _, err := New(WithThrottle(0, 1)); !errors.Is(err, throttle.ErrMustNotBeZero) {
		t.Errorf("exp ErrMustNotBeZero; got %v", err)
	}
	if _, err := New(WithTransport(nil)); err == nil {
		t.Error("exp error for nil transport")
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	h := newHandle(t, WithTransport(ts.Client().Transport), WithThrottle(100, 10))
	mustSet(t, h, OptURL, ts.URL)
	mustSet(t, h, OptReturnTransfer, true)

	body, err := h.Perform(t.Context())
	if err != nil {
		t.Fatalf("perform: %v", err)
	}
	if len(body) != 0 {
		t.Errorf("exp empty body; got %q", body)
	}
	if h.Info().StatusCode != http.StatusNoContent {
		t.Errorf("exp 204; got %d", h.Info().StatusCode)
	}
}

func contains(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}
