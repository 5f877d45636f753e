package gcurl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

// Response collects the result of one execution. Header lines arrive
// through HeadersHandler while the transfer runs; the body is set once
// the transfer completes.
type Response struct {
	uri        *URI
	requestID  string
	proto      string
	statusCode int
	reason     string
	header     http.Header
	lastKey    string
	headerLen  int
	body       []byte
}

// NewResponse creates an empty response for uri.
func NewResponse(uri *URI) *Response {
	return &Response{
		uri:    uri,
		header: make(http.Header),
	}
}

// HeadersHandler consumes one raw header line. A status line starts a new
// header set, so after followed redirects only the final response's fields
// remain, while HeaderLen keeps counting every byte.
func (r *Response) HeadersHandler(line string) int {
	r.headerLen += len(line)

	trimmed := strings.TrimRight(line, "\r\n")
	switch {
	case trimmed == "":
	case strings.HasPrefix(trimmed, "HTTP/"):
		r.parseStatusLine(trimmed)
		r.header = make(http.Header)
		r.lastKey = ""
	case trimmed[0] == ' ' || trimmed[0] == '\t':
		// obs-fold continuation of the previous field.
		if vals := r.header[r.lastKey]; len(vals) > 0 {
			vals[len(vals)-1] += " " + strings.TrimSpace(trimmed)
		}
	default:
		name, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			break
		}
		key := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(name))
		r.header[key] = append(r.header[key], strings.TrimSpace(value))
		r.lastKey = key
	}

	return len(line)
}

func (r *Response) parseStatusLine(line string) {
	parts := strings.SplitN(line, " ", 3)
	r.proto = parts[0]
	r.statusCode = 0
	r.reason = ""

	if len(parts) > 1 {
		if code, err := strconv.Atoi(parts[1]); err == nil {
			r.statusCode = code
		}
	}
	if len(parts) > 2 {
		r.reason = parts[2]
	}
}

func (r *Response) setBody(b []byte) {
	r.body = b
}

// URI returns the address the response was requested from.
func (r *Response) URI() *URI { return r.uri }

// RequestID identifies the execution that produced the response.
func (r *Response) RequestID() string { return r.requestID }

// StatusCode returns the status of the last status line seen, 0 before any.
func (r *Response) StatusCode() int { return r.statusCode }

// Proto returns the protocol of the status line, e.g. "HTTP/1.1".
func (r *Response) Proto() string { return r.proto }

// Reason returns the reason phrase of the status line.
func (r *Response) Reason() string { return r.reason }

// Header returns a copy of the received header fields.
func (r *Response) Header() http.Header { return r.header.Clone() }

// HeaderLen returns the total number of header bytes received.
func (r *Response) HeaderLen() int { return r.headerLen }

// Body returns the buffered body. It is empty when bodies are streamed.
func (r *Response) Body() []byte { return r.body }

// String returns the body as a string.
func (r *Response) String() string { return string(r.body) }

// Location returns the Location header, if any.
func (r *Response) Location() string { return r.header.Get("Location") }

// IsRedirect reports a 3xx status carrying a Location.
func (r *Response) IsRedirect() bool {
	return r.statusCode >= 300 && r.statusCode < 400 && r.Location() != ""
}

// Decode unmarshals a JSON body into dest, which must be a pointer.
func (r *Response) Decode(dest any) error {
	if err := json.NewDecoder(bytes.NewReader(r.body)).Decode(dest); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}

	return nil
}
