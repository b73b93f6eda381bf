package toolbox

import (
	"errors"
	"fmt"
	"unicode"
)

// Status is a toolbox result code. Most codes are four-character codes
// packed big-endian into an int32; a few legacy I/O codes are small negatives.
type Status int32

// Toolbox result codes
const (
	StatusOK                    Status = 0
	StatusIOError               Status = -36
	StatusEndOfFile             Status = -39
	StatusNotOpen               Status = -38
	StatusUnspecified           Status = 'w'<<24 | 'h'<<16 | 't'<<8 | '?'
	StatusUnsupportedFileType   Status = 't'<<24 | 'y'<<16 | 'p'<<8 | '?'
	StatusUnsupportedDataFormat Status = 'f'<<24 | 'm'<<16 | 't'<<8 | '?'
	StatusUnsupportedProperty   Status = 'p'<<24 | 't'<<16 | 'y'<<8 | '?'
	StatusUnknownProperty       Status = 'w'<<24 | 'h'<<16 | 'o'<<8 | '?'
	StatusInvalidFile           Status = 'd'<<24 | 't'<<16 | 'a'<<8 | '?'
	StatusInvalidPacketOffset   Status = 'p'<<24 | 'c'<<16 | 'k'<<8 | '?'
	StatusInvalidSeek           Status = 's'<<24 | 'e'<<16 | 'k'<<8 | '?'
	StatusOperationNotSupported Status = 'o'<<24 | 'p'<<16 | '?'<<8 | '?'
)

var statusNames = map[Status]string{
	StatusOK:                    "ok",
	StatusIOError:               "i/o error",
	StatusEndOfFile:             "end of file",
	StatusNotOpen:               "not open",
	StatusUnspecified:           "unspecified error",
	StatusUnsupportedFileType:   "unsupported file type",
	StatusUnsupportedDataFormat: "unsupported data format",
	StatusUnsupportedProperty:   "unsupported property",
	StatusUnknownProperty:       "unknown property",
	StatusInvalidFile:           "invalid file",
	StatusInvalidPacketOffset:   "invalid packet offset",
	StatusInvalidSeek:           "invalid seek",
	StatusOperationNotSupported: "operation not supported",
}

// FourCC renders the status as a quoted four-character code when every byte
// is printable, otherwise as a decimal number.
func (s Status) FourCC() string {
	b := []byte{byte(uint32(s) >> 24), byte(uint32(s) >> 16), byte(uint32(s) >> 8), byte(uint32(s))}
	for _, c := range b {
		if c > unicode.MaxASCII || !unicode.IsPrint(rune(c)) {
			return fmt.Sprintf("%d", int32(s))
		}
	}
	return "'" + string(b) + "'"
}

// String returns a human readable name followed by the code
func (s Status) String() string {
	name, ok := statusNames[s]
	if !ok {
		name = "status"
	}
	return fmt.Sprintf("%s (%s)", name, s.FourCC())
}

// Error implements the error interface so a Status can be returned directly
func (s Status) Error() string {
	return s.String()
}

// StatusOf extracts the toolbox Status carried by err. Errors that are not
// a Status map to StatusUnspecified; nil maps to StatusOK.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return StatusUnspecified
}
