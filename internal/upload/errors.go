package upload

import (
	"errors"
)

// Kind classifies why a submission failed
type Kind int

const (
	// MissingFile means no file was selected
	MissingFile Kind = iota + 1
	// InvalidType means the file is neither CSV nor XLSX
	InvalidType
	// TooLarge means the file exceeds MaxFileSize
	TooLarge
	// TransportError means the request never produced a response
	TransportError
	// ServerError means a non-2xx status or an unreadable body
	ServerError
	// SemanticError means the payload carried an error field
	SemanticError
)

func (k Kind) String() string {
	switch k {
	case MissingFile:
		return "missing_file"
	case InvalidType:
		return "invalid_type"
	case TooLarge:
		return "too_large"
	case TransportError:
		return "transport_error"
	case ServerError:
		return "server_error"
	case SemanticError:
		return "semantic_error"
	default:
		return "unknown"
	}
}

// Local reports whether the failure happens before any network activity
func (k Kind) Local() bool {
	return k == MissingFile || k == InvalidType || k == TooLarge
}

// User-facing messages
const (
	MsgMissingFile = "Please select a file"
	MsgInvalidType = "Invalid file type. Please upload CSV or XLSX files only."
	MsgTooLarge    = "File is too large (max 16MB)"
	MsgTransport   = "Could not reach the server. Please check your connection and try again."
	MsgGeneric     = "An error occurred while processing the file"
)

// ErrBusy is returned by Submit while another submission is in flight
var ErrBusy = errors.New("upload already in progress")

// Failure is a terminal submission failure. Error returns the message shown
// to the user; Err keeps the underlying cause for logs.
type Failure struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsKind reports whether err is a *Failure of the given kind
func IsKind(err error, kind Kind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}
