package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Code classifies the outcome of a handle operation.
type Code int

// Result codes.
const (
	CodeOK Code = iota
	CodeUnsupportedProtocol
	CodeURLMalformat
	CodeCouldntResolveHost
	CodeCouldntConnect
	CodeOperationTimedout
	CodeTooManyRedirects
	CodeWriteError
	CodeReadError
	CodeSendError
	CodeUnknownOption
	CodeBadFunctionArgument
	CodeAbortedByCallback
)

var codeText = map[Code]string{
	CodeOK:                  "no error",
	CodeUnsupportedProtocol: "unsupported protocol",
	CodeURLMalformat:        "url malformed",
	CodeCouldntResolveHost:  "could not resolve host",
	CodeCouldntConnect:      "could not connect",
	CodeOperationTimedout:   "operation timed out",
	CodeTooManyRedirects:    "too many redirects",
	CodeWriteError:          "failed writing received data",
	CodeReadError:           "failed reading upload data",
	CodeSendError:           "failed sending data",
	CodeUnknownOption:       "unknown option",
	CodeBadFunctionArgument: "bad option argument",
	CodeAbortedByCallback:   "aborted by callback",
}

func (c Code) String() string {
	if s, ok := codeText[c]; ok {
		return s
	}

	return fmt.Sprintf("code %d", int(c))
}

// ErrClosed is returned by any operation on a closed handle.
var ErrClosed = errors.New("engine: handle closed")

// Error is the error state recorded on a [Handle].
type Error struct {
	Code   Code
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("engine: ")
	b.WriteString(e.Code.String())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf reports the [Code] carried by err, CodeOK for nil and
// CodeSendError for errors that did not originate from a handle.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return CodeSendError
}

var errTooManyRedirects = errors.New("stopped after too many redirects")

// classify maps a failure from http.Client.Do onto a result code.
func classify(err error) Code {
	var dnsErr *net.DNSError
	var opErr *net.OpError
	var urlErr *url.Error

	switch {
	case errors.Is(err, errTooManyRedirects):
		return CodeTooManyRedirects
	case errors.Is(err, errAborted):
		return CodeWriteError
	case errors.Is(err, context.DeadlineExceeded):
		return CodeOperationTimedout
	case errors.As(err, &dnsErr):
		return CodeCouldntResolveHost
	case errors.As(err, &opErr) && opErr.Op == "dial":
		if opErr.Timeout() {
			return CodeOperationTimedout
		}
		return CodeCouldntConnect
	case errors.As(err, &urlErr) && urlErr.Timeout():
		return CodeOperationTimedout
	case strings.Contains(err.Error(), "unsupported protocol scheme"):
		return CodeUnsupportedProtocol
	}

	return CodeSendError
}
