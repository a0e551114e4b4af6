package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Command represents a single protocol command line.
// This is a low-level container without serialization logic, see WriteCommand.
//
// Arguments are written verbatim, separated by a space. The framer performs
// no escaping: arguments containing spaces or quotes must be wrapped with
// Quote by the caller.
type Command struct {
	// Name is the command verb (status, play, setvol, ...).
	// For commands built from a template it holds the whole formatted line.
	Name string

	// Args are the already formatted arguments.
	Args []string
}

// NewCommand creates a command from a verb and typed arguments.
//
// Arguments are formatted as follows:
//   - string: verbatim
//   - integers: decimal
//   - float32, float64: shortest decimal representation
//   - bool: "1" or "0"
//   - time.Duration: seconds, fractional part kept
//   - Range: "start:end" or "start:"
//   - fmt.Stringer: String()
//
// Usage:
//
//	NewCommand("setvol", 50)                 // setvol 50
//	NewCommand("random", true)               // random 1
//	NewCommand("seekcur", 1500*time.Millisecond) // seekcur 1.5
//	NewCommand("add", Quote("my song.flac")) // add "my song.flac"
func NewCommand(name string, args ...any) *Command {
	cmd := &Command{Name: name}
	if len(args) > 0 {
		cmd.Args = make([]string, len(args))
		for i, arg := range args {
			cmd.Args[i] = FormatArg(arg)
		}
	}
	return cmd
}

// NewCommandf creates a command from a Sprintf-style template.
//
//	NewCommandf("seek %d %d", 3, 90) // seek 3 90
func NewCommandf(template string, params ...any) *Command {
	return &Command{Name: fmt.Sprintf(template, params...)}
}

// String returns the command line without its terminator.
func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + Space + strings.Join(c.Args, Space)
}

// Validate checks that the command can be framed as a single line.
func (c *Command) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &InvalidCommandError{Message: "empty command"}
	}
	if strings.ContainsAny(c.Name, "\r\n") {
		return &InvalidCommandError{Message: "command contains a line break"}
	}
	for i, arg := range c.Args {
		if strings.ContainsAny(arg, "\r\n") {
			return &InvalidCommandError{Message: "argument " + strconv.Itoa(i) + " contains a line break"}
		}
	}
	return nil
}

// Range is a song position range, written as "start:end".
// A negative End leaves the range open.
type Range struct {
	Start int
	End   int
}

func (r Range) String() string {
	if r.End < 0 {
		return strconv.Itoa(r.Start) + ":"
	}
	return strconv.Itoa(r.Start) + ":" + strconv.Itoa(r.End)
}

// FormatArg formats a single command argument.
func FormatArg(arg any) string {
	switch v := arg.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case time.Duration:
		return strconv.FormatFloat(v.Seconds(), 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Quote wraps s in double quotes, escaping backslashes and double quotes.
// Use it for arguments that may contain spaces (URIs, tag values, names).
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}
