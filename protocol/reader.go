package protocol

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// ReadHandshake reads the greeting the server sends right after the
// connection is established and returns the announced protocol version.
//
// Greeting format: OK MPD <version>\n with version matching [0-9]+(\.[0-9]+)*
//
// Errors:
//   - ProtocolError: greeting missing (stream closed), empty or malformed
//   - TransportError: read failure, including timeouts
func ReadHandshake(r *bufio.Reader) (string, error) {
	line, err := readLine(r)
	if err != nil {
		var pe *ProtocolError
		if errors.As(err, &pe) {
			return "", err
		}
		if errors.Is(err, io.EOF) {
			return "", &ProtocolError{Message: "missing handshake", Err: err}
		}
		return "", &TransportError{Op: "handshake", Err: err}
	}

	if line == "" {
		return "", &ProtocolError{Message: "empty handshake"}
	}

	version, ok := strings.CutPrefix(line, HandshakePrefix)
	if !ok {
		return "", &ProtocolError{Message: "unexpected handshake", Line: line}
	}

	if !isVersion(version) {
		return "", &ProtocolError{Message: "invalid version in handshake", Line: line}
	}

	return version, nil
}

// ReadResponse reads and parses a single response from r.
// Response format: (<key>: <value>\n | binary: <n>\n<n bytes>\n)* (OK | ACK ...)\n
//
// The parser reads lines until a terminal line. Field lines are collected in
// Response.Fields and Response.Record. A binary field switches to a
// length-prefixed read of exactly n raw bytes followed by a newline, after
// which line reading resumes.
//
// ACK lines from the server are returned as Response.Ack (not as Go error),
// fields read before the ACK are discarded.
//
// Lines that are neither a field, OK nor ACK are skipped in Lenient mode and
// fail the response with a ProtocolError in Strict mode. Empty lines are
// ignored in both modes.
//
// Go errors returned indicate I/O or parsing failures:
//   - TransportError: read failure, timeout, stream closed mid-response or
//     mid-payload (a partial payload is never returned)
//   - ProtocolError: malformed line (Strict), invalid binary length, missing
//     payload terminator, line too long
//
// The stream must be considered desynchronized after any returned error.
func ReadResponse(r *bufio.Reader, mode Mode) (*Response, error) {
	resp := &Response{}
	record := NewRecord()

	for {
		line, err := readLine(r)
		if err != nil {
			return nil, wrapReadError("read", err)
		}

		if line == StatusOK {
			resp.Record = record
			return resp, nil
		}

		if isAckLine(line) {
			ack, ok := ParseAck(line)
			if !ok {
				if mode == Strict {
					return nil, &ProtocolError{Message: "malformed ACK line", Line: line}
				}
				// Still the terminal line of this response, keep the stream in sync.
				ack = &AckError{Message: strings.TrimPrefix(strings.TrimPrefix(line, "ACK"), " ")}
			}
			return &Response{Ack: ack, Skipped: resp.Skipped}, nil
		}

		if line == "" {
			continue
		}

		key, value, ok := parseField(line)
		if !ok {
			if mode == Strict {
				return nil, &ProtocolError{Message: "malformed line", Line: line}
			}
			resp.Skipped++
			continue
		}

		field := Field{Key: key, Value: value}
		if key == BinaryKey {
			field.Data, err = readBinary(r, value)
			if err != nil {
				return nil, err
			}
		}

		resp.Fields = append(resp.Fields, field)
		record.set(field)
	}
}

// ParseAck decodes an ACK line.
// Format: ACK [<code>@<index>] {<command>} <message>
//
// Whitespace between "]" and "{" is optional.
func ParseAck(line string) (*AckError, bool) {
	rest, ok := strings.CutPrefix(line, AckPrefix)
	if !ok {
		return nil, false
	}

	rest, ok = strings.CutPrefix(rest, "[")
	if !ok {
		return nil, false
	}
	pos, rest, ok := strings.Cut(rest, "]")
	if !ok {
		return nil, false
	}
	codeStr, indexStr, ok := strings.Cut(pos, "@")
	if !ok {
		return nil, false
	}
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return nil, false
	}
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		return nil, false
	}

	rest, ok = strings.CutPrefix(strings.TrimLeft(rest, " "), "{")
	if !ok {
		return nil, false
	}
	command, message, ok := strings.Cut(rest, "}")
	if !ok {
		return nil, false
	}

	return &AckError{
		Code:    AckCode(code),
		Index:   index,
		Command: command,
		Message: strings.TrimPrefix(message, " "),
	}, true
}

// parseField splits a `<key>: <value>` line.
// Keys are made of [A-Za-z0-9_-], the value may be empty.
func parseField(line string) (key, value string, ok bool) {
	key, value, found := strings.Cut(line, FieldSeparator)
	if !found {
		k, isEmpty := strings.CutSuffix(line, ":")
		if !isEmpty {
			return "", "", false
		}
		key, value = k, ""
	}
	if !isKey(key) {
		return "", "", false
	}
	return key, value, true
}

// readBinary reads a payload announced by a `binary: <n>` field.
// The payload is followed by a newline before line reading resumes.
func readBinary(r *bufio.Reader, length string) ([]byte, error) {
	n, err := strconv.Atoi(length)
	if err != nil {
		return nil, &ProtocolError{Message: "invalid binary length", Line: BinaryKey + FieldSeparator + length, Err: err}
	}
	if n < 0 {
		return nil, &ProtocolError{Message: "negative binary length", Line: BinaryKey + FieldSeparator + length}
	}
	if n > MaxBinarySize {
		return nil, &ProtocolError{Message: "binary length exceeds maximum of " + strconv.Itoa(MaxBinarySize)}
	}

	// Read payload + LF together in single read
	data := make([]byte, n+1)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, &TransportError{Op: "read binary", Err: err}
	}

	if data[n] != '\n' {
		return nil, &ProtocolError{Message: "invalid binary payload terminator"}
	}

	return data[:n:n], nil
}

// readLine reads one LF terminated line and strips the terminator.
// Uses ReadSlice to avoid an allocation per line and falls back to
// accumulating when the line exceeds the reader buffer.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		buf := append([]byte(nil), line...)
		for err == bufio.ErrBufferFull {
			if len(buf) > MaxLineLength {
				return "", &ProtocolError{Message: "line exceeds maximum length of " + strconv.Itoa(MaxLineLength)}
			}
			line, err = r.ReadSlice('\n')
			buf = append(buf, line...)
		}
		line = buf
	}
	if err != nil {
		return "", err
	}
	line = line[:len(line)-1]
	if len(line) > MaxLineLength {
		return "", &ProtocolError{Message: "line exceeds maximum length of " + strconv.Itoa(MaxLineLength)}
	}
	return string(line), nil
}

// isAckLine reports whether line is an ACK terminal line, well formed or not.
func isAckLine(line string) bool {
	return line == "ACK" || strings.HasPrefix(line, AckPrefix)
}

func wrapReadError(op string, err error) error {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

func isKey(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

func isVersion(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return false
			}
		}
	}
	return true
}
