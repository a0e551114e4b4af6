package protocol

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldCloseConnection(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"ack", &AckError{Code: AckArg}, false},
		{"config", &ConfigError{Field: "port", Message: "out of range"}, false},
		{"invalid command", &InvalidCommandError{Message: "empty command"}, false},
		{"invalid argument", &InvalidArgumentError{Arg: "volume", Message: "out of range"}, false},
		{"protocol", &ProtocolError{Message: "malformed line"}, true},
		{"transport", &TransportError{Op: "read", Err: io.EOF}, true},
		{"wrapped transport", fmt.Errorf("status: %w", &TransportError{Op: "read", Err: io.EOF}), true},
		{"wrapped ack", fmt.Errorf("play: %w", &AckError{Code: AckArg}), false},
		{"unknown", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldCloseConnection(tt.err))
		})
	}
}

func TestAckError_Is(t *testing.T) {
	err := fmt.Errorf("play: %w", &AckError{Code: AckNoExist, Command: "play", Message: "No such song"})

	assert.ErrorIs(t, err, &AckError{Code: AckNoExist})
	assert.ErrorIs(t, err, &AckError{})
	assert.NotErrorIs(t, err, &AckError{Code: AckArg})

	ack, ok := IsAck(err)
	assert.True(t, ok)
	assert.Equal(t, "play", ack.Command)

	_, ok = IsAck(io.EOF)
	assert.False(t, ok)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(&TransportError{Op: "read", Err: os.ErrDeadlineExceeded}))
	assert.True(t, IsTimeout(fmt.Errorf("x: %w", &TransportError{Op: "read", Err: timeoutError{}})))
	assert.False(t, IsTimeout(&TransportError{Op: "read", Err: io.EOF}))
	assert.False(t, IsTimeout(os.ErrDeadlineExceeded))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "protocol error: unexpected handshake: \"HELLO\"", (&ProtocolError{Message: "unexpected handshake", Line: "HELLO"}).Error())
	assert.Equal(t, "transport error during read: EOF", (&TransportError{Op: "read", Err: io.EOF}).Error())
	assert.Equal(t, "invalid config: port: must be between 1 and 65535", (&ConfigError{Field: "port", Message: "must be between 1 and 65535"}).Error())
}

func TestAckCode_String(t *testing.T) {
	assert.Equal(t, "no_exist", AckNoExist.String())
	assert.Equal(t, "ack_99", AckCode(99).String())
}
