// Package opserr classifies the failures of remote operations so that results
// can carry a stable error kind next to the human readable message.
package opserr

import (
	"github.com/pkg/errors"
)

var (
	ErrAuthentication     = errors.New("authentication failed")
	ErrRemotePathNotFound = errors.New("remote path not found")
	ErrTransport          = errors.New("transport failure")
	ErrConfiguration      = errors.New("configuration error")
	ErrObjectStore        = errors.New("object store failure")
	ErrScriptFailed       = errors.New("script failed")
	ErrLocalIO            = errors.New("local i/o failure")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrAuthentication, "authentication"},
	{ErrRemotePathNotFound, "remote_path_not_found"},
	{ErrTransport, "transport"},
	{ErrConfiguration, "configuration"},
	{ErrObjectStore, "object_store"},
	{ErrScriptFailed, "script_failed"},
	{ErrLocalIO, "local_io"},
}

// Error ties a failure to one of the kinds above. Both Kind and Err are
// reachable through errors.Is / errors.As.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New returns an *Error of the given kind. err may be nil.
func New(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted cause.
func Newf(kind error, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

type tagged struct {
	kind error
	err  error
}

func (t *tagged) Error() string   { return t.err.Error() }
func (t *tagged) Unwrap() []error { return []error{t.kind, t.err} }

// Tag attaches kind to err without changing its message.
func Tag(kind, err error) error {
	return &tagged{kind: kind, err: err}
}

// KindOf names the kind of err, or "unknown" when it carries none.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "unknown"
}
