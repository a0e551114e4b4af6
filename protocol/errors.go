package protocol

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
)

// Error types for MPD protocol operations.
// These errors help clients determine the appropriate handling strategy,
// particularly regarding connection management (close vs. keep using).

// AckError represents an ACK line sent by the server in place of OK.
// The request was well formed and understood, the server refused it.
//
// Common causes:
//   - Unknown command (AckUnknown)
//   - Bad argument, out of range index (AckArg)
//   - Missing song or playlist (AckNoExist)
//   - Missing permission or wrong password (AckPermission, AckPassword)
//
// Connection handling: Connection can be REUSED
type AckError struct {
	Code    AckCode
	Index   int    // position of the failing command in a command list, 0 otherwise
	Command string // name of the command that failed, may be empty
	Message string
}

func (e *AckError) Error() string {
	return "ACK [" + strconv.Itoa(int(e.Code)) + "@" + strconv.Itoa(e.Index) + "] {" + e.Command + "} " + e.Message
}

// ShouldCloseConnection returns false - the server stays in sync after an ACK
func (e *AckError) ShouldCloseConnection() bool {
	return false
}

// Is reports whether target is an *AckError with the same code.
// A zero Code in target matches any ACK.
func (e *AckError) Is(target error) bool {
	t, ok := target.(*AckError)
	if !ok {
		return false
	}
	return t.Code == 0 || t.Code == e.Code
}

// ProtocolError represents a server output the client could not make sense of.
// The stream position is unknown afterwards.
//
// Common causes:
//   - Missing, empty or malformed handshake line
//   - Malformed line in strict mode
//   - Invalid or oversized binary length
//   - Missing terminator after a binary payload
//
// Connection handling: Connection should be CLOSED as state is uncertain
type ProtocolError struct {
	Message string
	Line    string // offending line, if any
	Err     error  // Underlying error, if any
}

func (e *ProtocolError) Error() string {
	msg := "protocol error: " + e.Message
	if e.Line != "" {
		msg += ": " + strconv.Quote(e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - protocol errors indicate a desynchronized stream
func (e *ProtocolError) ShouldCloseConnection() bool {
	return true
}

// TransportError wraps underlying I/O errors from connection operations.
// Used to distinguish network issues from server rejections (ACK).
//
// Common causes:
//   - Connection refused or reset
//   - Read or write timeout
//   - Stream closed in the middle of a response or binary payload
//
// Connection handling: Connection is already broken, CLOSE it.
// No retry is attempted by this package.
type TransportError struct {
	Op  string // Operation that failed (dial, read, write, ...)
	Err error  // Underlying error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - transport errors mean the connection is broken
func (e *TransportError) ShouldCloseConnection() bool {
	return true
}

// Timeout reports whether the underlying error is a timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ConfigError is returned when a configuration value is invalid.
// It is raised before any connection attempt.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "invalid config: " + e.Field + ": " + e.Message
}

// ShouldCloseConnection returns false - no connection was involved
func (e *ConfigError) ShouldCloseConnection() bool {
	return false
}

// InvalidCommandError is returned when a command cannot be framed.
// Nothing was written, the connection is still valid.
//
// Common causes:
//   - Empty command name
//   - Newline or carriage return in the command or an argument
type InvalidCommandError struct {
	Message string
}

func (e *InvalidCommandError) Error() string {
	return "invalid command: " + e.Message
}

// ShouldCloseConnection returns false - the command was rejected client-side
func (e *InvalidCommandError) ShouldCloseConnection() bool {
	return false
}

// InvalidArgumentError is returned when a typed argument is out of its range.
// Nothing was written, the connection is still valid.
type InvalidArgumentError struct {
	Arg     string
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument " + e.Arg + ": " + e.Message
}

// ShouldCloseConnection returns false - the argument was rejected client-side
func (e *InvalidArgumentError) ShouldCloseConnection() bool {
	return false
}

// ErrorWithConnectionState is an interface for errors that indicate
// whether the connection should be closed.
// Implemented by all protocol error types.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection is a helper function to determine if an error
// requires closing the connection.
//
// Returns true for:
//   - ProtocolError
//   - TransportError
//   - unknown error types
//
// Returns false for:
//   - AckError
//   - ConfigError, InvalidCommandError, InvalidArgumentError
//   - nil
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	// Unknown error type - be conservative and close connection
	return true
}

// IsTimeout reports whether err is a TransportError caused by a timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout()
}

// IsAck reports whether err is an ACK from the server and returns it.
func IsAck(err error) (*AckError, bool) {
	var ack *AckError
	if errors.As(err, &ack) {
		return ack, true
	}
	return nil, false
}
