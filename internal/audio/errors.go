package audio

import (
	"errors"
	"fmt"

	"tonearm.click/internal/toolbox"
)

// ErrorDomain identifies errors raised by decoders in this package
const ErrorDomain = "tonearm.audio.decoder"

// ErrorCode distinguishes the ways opening a decoder can fail
type ErrorCode int

const (
	// ErrCodeFileFormatNotRecognized means the container could not be parsed
	ErrCodeFileFormatNotRecognized ErrorCode = iota + 1
	// ErrCodeFileFormatNotSupported means the container parsed but its
	// encoding cannot be delivered in any client format
	ErrCodeFileFormatNotSupported
	// ErrCodeInputOutput covers every other setup failure
	ErrCodeInputOutput
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeFileFormatNotRecognized:
		return "file format not recognized"
	case ErrCodeFileFormatNotSupported:
		return "file format not supported"
	case ErrCodeInputOutput:
		return "input/output error"
	default:
		return fmt.Sprintf("error code %d", int(c))
	}
}

// Sentinels for errors.Is. They match any DecoderError with the same domain
// and code.
var (
	ErrFileFormatNotRecognized = &DecoderError{Domain: ErrorDomain, Code: ErrCodeFileFormatNotRecognized}
	ErrFileFormatNotSupported  = &DecoderError{Domain: ErrorDomain, Code: ErrCodeFileFormatNotSupported}
	ErrInputOutput             = &DecoderError{Domain: ErrorDomain, Code: ErrCodeInputOutput}
)

// Errors returned by ByteSource implementations
var (
	ErrSourceClosed     = errors.New("byte source is closed")
	ErrSeekNotSupported = errors.New("byte source does not support seeking")
	ErrInvalidOffset    = errors.New("invalid byte source offset")
)

// DecoderError is the structured error returned when a decoder fails to
// open. Description is suitable for showing to a user.
type DecoderError struct {
	Domain             string
	Code               ErrorCode
	Description        string
	FailureReason      string
	RecoverySuggestion string
	Err                error
}

func (e *DecoderError) Error() string {
	msg := e.Description
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *DecoderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DecoderError with the same domain and code
func (e *DecoderError) Is(target error) bool {
	t, ok := target.(*DecoderError)
	if !ok {
		return false
	}
	return e.Domain == t.Domain && e.Code == t.Code
}

func newFormatNotRecognizedError(url string, cause error) *DecoderError {
	return &DecoderError{
		Domain:             ErrorDomain,
		Code:               ErrCodeFileFormatNotRecognized,
		Description:        fmt.Sprintf("The format of the file %q was not recognized.", DisplayName(url)),
		FailureReason:      "File Format Not Recognized",
		RecoverySuggestion: "The file's extension may not match the file's type.",
		Err:                cause,
	}
}

func newFormatNotSupportedError(url string, cause error) *DecoderError {
	return &DecoderError{
		Domain:             ErrorDomain,
		Code:               ErrCodeFileFormatNotSupported,
		Description:        fmt.Sprintf("The format of the file %q is not supported.", DisplayName(url)),
		FailureReason:      "File Format Not Supported",
		RecoverySuggestion: "The file's encoding cannot be decoded by this decoder.",
		Err:                cause,
	}
}

func newInputOutputError(url string, cause error) *DecoderError {
	return &DecoderError{
		Domain:             ErrorDomain,
		Code:               ErrCodeInputOutput,
		Description:        fmt.Sprintf("The file %q could not be read.", DisplayName(url)),
		FailureReason:      "Input/Output Error",
		RecoverySuggestion: "The file may have been renamed, moved, deleted, or you may not have appropriate permissions.",
		Err:                cause,
	}
}

// openError classifies a toolbox failure from OpenWithCallbacks
func openError(url string, err error) *DecoderError {
	switch toolbox.StatusOf(err) {
	case toolbox.StatusUnsupportedFileType, toolbox.StatusInvalidFile, toolbox.StatusUnsupportedDataFormat:
		return newFormatNotRecognizedError(url, err)
	default:
		return newInputOutputError(url, err)
	}
}
