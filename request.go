package gcurl

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/adamwoolhether/gcurl/engine"
)

// Request is one kind of HTTP call a [Single] can execute.
//
// Prepare turns the request's fields into engine settings and may be called
// again before each execution. OnRequestEnd runs after every execution,
// successful or not, to release per-request resources.
type Request interface {
	URI() *URI
	Method() string
	Prepare(opts *Options) error
	OnRequestEnd() error
}

// GetRequest is a GET with optional query parameters.
type GetRequest struct {
	uri      *URI
	query    Params
	prepared bool
}

// NewGetRequest creates a GET request for uri.
func NewGetRequest(uri *URI) *GetRequest {
	return &GetRequest{uri: uri}
}

// AddVar appends a query parameter.
func (r *GetRequest) AddVar(key, value string) error {
	if r.prepared {
		return ErrRequestPrepared
	}
	r.query.Add(key, value)

	return nil
}

// Query returns the query parameters in order.
func (r *GetRequest) Query() Params {
	return append(Params(nil), r.query...)
}

func (r *GetRequest) URI() *URI      { return r.uri }
func (r *GetRequest) Method() string { return http.MethodGet }

// Prepare selects GET and targets the URI with the query appended.
func (r *GetRequest) Prepare(opts *Options) error {
	if err := opts.Set(engine.OptHTTPGet, true); err != nil {
		return err
	}
	if err := opts.Set(engine.OptURL, r.uri.WithQuery(r.query)); err != nil {
		return err
	}
	r.prepared = true

	return nil
}

func (r *GetRequest) OnRequestEnd() error { return nil }

// /////////////////////////////////////////////////////////////////

// PostURLEncodedRequest is a POST with an
// application/x-www-form-urlencoded body.
type PostURLEncodedRequest struct {
	uri      *URI
	body     Params
	prepared bool
}

// NewPostURLEncodedRequest creates a POST request for uri.
func NewPostURLEncodedRequest(uri *URI) *PostURLEncodedRequest {
	return &PostURLEncodedRequest{uri: uri}
}

// AddVar appends a body field.
func (r *PostURLEncodedRequest) AddVar(key, value string) error {
	if r.prepared {
		return ErrRequestPrepared
	}
	r.body.Add(key, value)

	return nil
}

// Body returns the encoded body.
func (r *PostURLEncodedRequest) Body() string {
	return r.body.Encode()
}

func (r *PostURLEncodedRequest) URI() *URI      { return r.uri }
func (r *PostURLEncodedRequest) Method() string { return http.MethodPost }

func (r *PostURLEncodedRequest) Prepare(opts *Options) error {
	if err := opts.Set(engine.OptURL, r.uri.String()); err != nil {
		return err
	}
	if err := opts.Set(engine.OptPostFields, r.body.Encode()); err != nil {
		return err
	}
	r.prepared = true

	return nil
}

func (r *PostURLEncodedRequest) OnRequestEnd() error { return nil }

// /////////////////////////////////////////////////////////////////

// PutFileRequest uploads a local file as the body of a PUT.
type PutFileRequest struct {
	uri  *URI
	path string
	file *os.File
}

// NewPutFileRequest creates a PUT request sending the file at path.
// The file is opened by Prepare, not here.
func NewPutFileRequest(uri *URI, path string) *PutFileRequest {
	return &PutFileRequest{uri: uri, path: path}
}

// Path returns the source file path.
func (r *PutFileRequest) Path() string {
	return r.path
}

func (r *PutFileRequest) URI() *URI      { return r.uri }
func (r *PutFileRequest) Method() string { return http.MethodPut }

// Prepare opens the file and hands it to the engine as the upload body.
func (r *PutFileRequest) Prepare(opts *Options) (err error) {
	if r.file != nil {
		if err := r.OnRequestEnd(); err != nil {
			return err
		}
	}

	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileOpen, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileOpen, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileOpen, r.path)
	}

	if err := opts.Set(engine.OptURL, r.uri.String()); err != nil {
		return err
	}
	if err := opts.Set(engine.OptUpload, true); err != nil {
		return err
	}
	if err := opts.Set(engine.OptInFile, f); err != nil {
		return err
	}
	if err := opts.Set(engine.OptInFileSize, info.Size()); err != nil {
		return err
	}
	r.file = f

	return nil
}

// OnRequestEnd closes the file opened by Prepare.
func (r *PutFileRequest) OnRequestEnd() error {
	if r.file == nil {
		return nil
	}

	err := r.file.Close()
	r.file = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("closing upload file: %w", err)
	}

	return nil
}
