package protocol

import (
	"bufio"
	"io"

	"github.com/pior/mpd/internal/bufpool"
)

// Typical command is well under 100 bytes, unusually long ones are not kept
var buffers = bufpool.New(128, 64<<10)

// WriteCommand serializes a Command to wire format and writes it to w.
// Format: <name>[ <arg>]*\n
//
// The line is assembled first and handed to w in a single Write call, so a
// command is never split across writes. When w is a *bufio.Writer it is
// flushed before returning.
//
// Validates the command before writing: an InvalidCommandError means nothing
// was written. A TransportError means the stream may hold a partial line.
func WriteCommand(w io.Writer, cmd *Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	buf := buffers.Get()
	defer buffers.Put(buf)

	buf.WriteString(cmd.Name)
	for _, arg := range cmd.Args {
		buf.WriteString(Space)
		buf.WriteString(arg)
	}
	buf.WriteString(LF)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return &TransportError{Op: "write", Err: err}
	}

	if bw, ok := w.(*bufio.Writer); ok {
		if err := bw.Flush(); err != nil {
			return &TransportError{Op: "write", Err: err}
		}
	}

	return nil
}
