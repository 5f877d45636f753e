package engine

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

func (h *Handle) setopt(opt Opt, value any) error {
	switch opt {
	case OptURL:
		s, err := as[string](opt, value)
		if err != nil {
			return err
		}
		h.url = s

	case OptHTTPGet:
		b, err := as[bool](opt, value)
		if err != nil {
			return err
		}
		if b {
			h.post = false
			h.postFields = nil
			h.upload = false
			h.inFile = nil
			h.inFileSize = -1
			h.customRequest = ""
		}

	case OptPost:
		b, err := as[bool](opt, value)
		if err != nil {
			return err
		}
		h.post = b
		if b {
			h.upload = false
		}

	case OptPostFields:
		s, err := as[string](opt, value)
		if err != nil {
			return err
		}
		h.postFields = &s
		h.post = true
		h.upload = false

	case OptUpload:
		b, err := as[bool](opt, value)
		if err != nil {
			return err
		}
		h.upload = b
		if b {
			h.post = false
		}

	case OptInFile:
		if value == nil {
			h.inFile = nil
			return nil
		}
		r, err := as[io.Reader](opt, value)
		if err != nil {
			return err
		}
		h.inFile = r

	case OptInFileSize:
		n, err := as[int64](opt, value)
		if err != nil {
			return err
		}
		if n < -1 {
			return badArg(opt, fmt.Sprintf("size %d out of range", n))
		}
		h.inFileSize = n

	case OptCustomRequest:
		s, err := as[string](opt, value)
		if err != nil {
			return err
		}
		if strings.ContainsAny(s, " \t\r\n") {
			return badArg(opt, fmt.Sprintf("invalid method %q", s))
		}
		h.customRequest = s

	case OptHTTPHeader:
		lines, err := as[[]string](opt, value)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if !strings.Contains(line, ":") {
				return badArg(opt, fmt.Sprintf("header line %q has no colon", line))
			}
		}
		h.headers = slices.Clone(lines)

	case OptUserAgent:
		s, err := as[string](opt, value)
		if err != nil {
			return err
		}
		h.userAgent = s

	case OptTimeout, OptConnectTimeout:
		d, err := as[time.Duration](opt, value)
		if err != nil {
			return err
		}
		if d < 0 {
			return badArg(opt, "duration must not be negative")
		}
		if opt == OptTimeout {
			h.timeout = d
		} else {
			h.connectTimeout = d
		}

	case OptFollowLocation:
		b, err := as[bool](opt, value)
		if err != nil {
			return err
		}
		h.followLocation = b

	case OptMaxRedirs:
		n, err := as[int](opt, value)
		if err != nil {
			return err
		}
		if n < -1 {
			return badArg(opt, fmt.Sprintf("max redirects %d out of range", n))
		}
		h.maxRedirs = n

	case OptReturnTransfer:
		b, err := as[bool](opt, value)
		if err != nil {
			return err
		}
		h.returnTransfer = b

	case OptHeaderFunction:
		switch fn := value.(type) {
		case nil:
			h.headerFn = nil
		case HeaderFunc:
			h.headerFn = fn
		case func(string) int:
			h.headerFn = fn
		default:
			return badArg(opt, fmt.Sprintf("unexpected value type %T", value))
		}

	case OptWriteTo:
		if value == nil {
			h.writeTo = io.Discard
			return nil
		}
		w, err := as[io.Writer](opt, value)
		if err != nil {
			return err
		}
		h.writeTo = w

	default:
		return &Error{Code: CodeUnknownOption, Detail: opt.String()}
	}

	return nil
}

func as[T any](opt Opt, value any) (T, error) {
	v, ok := value.(T)
	if !ok {
		return v, badArg(opt, fmt.Sprintf("unexpected value type %T", value))
	}

	return v, nil
}

func badArg(opt Opt, detail string) *Error {
	return &Error{Code: CodeBadFunctionArgument, Detail: opt.String() + ": " + detail}
}
