package gcurl

import (
	"errors"
	"fmt"

	"github.com/adamwoolhether/gcurl/engine"
)

var (
	// ErrEngineUnavailable is returned by [New] when no engine factory is configured.
	ErrEngineUnavailable = errors.New("transfer engine unavailable")
	// ErrHandleCreation is returned by [New] when the engine handle cannot be
	// created or reports an error right after creation.
	ErrHandleCreation = errors.New("engine handle creation failed")
	// ErrTransferFailed is wrapped by [TransferError].
	ErrTransferFailed = errors.New("transfer failed")
	// ErrOptionRejected is wrapped by [OptionError].
	ErrOptionRejected = errors.New("option rejected")
	// ErrDisconnected is returned when a disconnected [Single] is used.
	ErrDisconnected = errors.New("disconnected")
	// ErrRequestPrepared is returned when a prepared request is modified.
	ErrRequestPrepared = errors.New("request already prepared")
	// ErrFileOpen is returned when a PUT source file cannot be opened.
	ErrFileOpen = errors.New("cannot open upload file")
	// ErrInvalidURI is returned for addresses that cannot be used as a target.
	ErrInvalidURI = errors.New("invalid uri")
	// ErrTooManyHops is returned by [Single.Follow] when the hop limit is reached.
	ErrTooManyHops = errors.New("too many redirect hops")
)

// TransferError is returned by [Single.Exec] when a transfer fails.
type TransferError struct {
	Request int
	URL     string
	Err     error
}

func (e *TransferError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: request %d to %s: no headers and no data received", ErrTransferFailed, e.Request, e.URL)
	}

	return fmt.Sprintf("%v: request %d to %s: %v", ErrTransferFailed, e.Request, e.URL, e.Err)
}

func (e *TransferError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransferFailed}
	}

	return []error{ErrTransferFailed, e.Err}
}

// Code reports the engine result code behind the failure.
func (e *TransferError) Code() engine.Code {
	if e.Err == nil {
		return engine.CodeOK
	}

	return engine.CodeOf(e.Err)
}

// OptionError is returned when the engine rejects an option value.
type OptionError struct {
	Opt   engine.Opt
	Value any
	Err   error
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("%v: %s=%v: %v", ErrOptionRejected, e.Opt, e.Value, e.Err)
}

func (e *OptionError) Unwrap() []error {
	return []error{ErrOptionRejected, e.Err}
}
