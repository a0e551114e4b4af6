package mpd

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pior/mpd/protocol"
)

var (
	ErrConnectionClosed = errors.New("mpd: connection closed")
	ErrNotConnected     = errors.New("mpd: not connected")
	ErrAlreadyConnected = errors.New("mpd: already connected")
)

type connState int

const (
	stateUnconnected connState = iota
	stateConnected
	stateClosed
)

// Connection represents a single connection to an MPD server.
//
// Lifecycle: NewConnection returns an unconnected Connection, Open performs
// the handshake, Close releases the socket for good. A closed Connection
// cannot be reopened, create a new one instead.
//
// Requests are strictly sequential: Execute holds the connection for a full
// request/response cycle, the next command is only written once the
// previous terminal line has been consumed.
type Connection struct {
	addr     string
	timeout  time.Duration
	password string
	mode     protocol.Mode
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
	log      *zap.Logger
	stats    *clientStatsCollector

	mu       sync.Mutex
	conn     net.Conn
	reader   *bufio.Reader
	writer   *bufio.Writer
	state    connState
	version  string
	lastUsed time.Time
}

// NewConnection creates an unconnected Connection.
// Zero fields of cfg are filled with the built-in defaults, the result is
// validated and a *protocol.ConfigError is returned if invalid.
func NewConnection(cfg Config) (*Connection, error) {
	cfg = DefaultConfig().Merge(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dial := cfg.dial
	if dial == nil {
		dialer := cfg.Dialer
		if dialer == nil {
			dialer = &net.Dialer{}
		}
		dial = dialer.DialContext
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Connection{
		addr:     cfg.Addr(),
		timeout:  cfg.Timeout,
		password: cfg.Password,
		mode:     cfg.Mode,
		dial:     dial,
		log:      log.Named("mpd").With(zap.String("addr", cfg.Addr())),
		stats:    newClientStatsCollector(),
	}, nil
}

// Open connects to the server, reads the handshake and returns the protocol
// version announced by the server.
//
// On failure the socket is released and the Connection stays unconnected:
//   - TransportError: dial or read failure, including timeouts
//   - ProtocolError: missing or malformed handshake line
//   - *protocol.AckError: password rejected
func (c *Connection) Open(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateClosed:
		return "", ErrConnectionClosed
	case stateConnected:
		return "", ErrAlreadyConnected
	}

	deadline := c.deadline(ctx)

	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	netConn, err := c.dial(dialCtx, "tcp", c.addr)
	if err != nil {
		c.stats.recordTransportError()
		c.log.Warn("Failed to connect", zap.Error(err))
		return "", &protocol.TransportError{Op: "dial", Err: err}
	}

	if err := netConn.SetDeadline(deadline); err != nil {
		_ = netConn.Close()
		c.stats.recordTransportError()
		return "", &protocol.TransportError{Op: "dial", Err: err}
	}

	reader := bufio.NewReader(netConn)
	writer := bufio.NewWriter(netConn)

	version, err := protocol.ReadHandshake(reader)
	if err != nil {
		_ = netConn.Close()
		c.recordError(err)
		c.log.Warn("Handshake failed", zap.Error(err))
		return "", err
	}

	if c.password != "" {
		if err := c.authenticate(reader, writer); err != nil {
			_ = netConn.Close()
			return "", err
		}
	}

	c.conn = netConn
	c.reader = reader
	c.writer = writer
	c.version = version
	c.state = stateConnected
	c.lastUsed = time.Now()

	c.log.Debug("Connected", zap.String("version", version))
	return version, nil
}

// authenticate sends the password command on a freshly opened stream.
func (c *Connection) authenticate(reader *bufio.Reader, writer *bufio.Writer) error {
	c.stats.recordCommand()
	if err := protocol.WriteCommand(writer, protocol.NewCommand("password", protocol.Quote(c.password))); err != nil {
		c.recordError(err)
		return err
	}

	resp, err := protocol.ReadResponse(reader, c.mode)
	if err != nil {
		c.recordError(err)
		return err
	}

	if resp.Ack != nil {
		c.stats.recordAck()
		c.log.Warn("Password rejected", zap.Stringer("code", resp.Ack.Code), zap.String("message", resp.Ack.Message))
		return resp.Ack
	}

	return nil
}

// Execute sends cmd and reads its response.
//
// ACK lines from the server are returned in Response.Ack with a nil error:
// the connection stays usable. Returned errors are:
//   - ErrNotConnected, ErrConnectionClosed: nothing was sent
//   - InvalidCommandError: cmd cannot be framed, nothing was sent
//   - TransportError, ProtocolError: the connection is closed and unusable
//   - ctx.Err(): ctx was done before anything was sent
//
// The deadline of a request is the configured timeout, or the context
// deadline when earlier. A blocked read cannot be interrupted otherwise.
func (c *Connection) Execute(ctx context.Context, cmd *protocol.Command) (*protocol.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.execute(ctx, cmd)
}

// executeSequence runs cmds in order without letting another request in
// between. It stops after the first ACK, which ends the returned responses.
func (c *Connection) executeSequence(ctx context.Context, cmds ...*protocol.Command) ([]*protocol.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, cmd := range cmds {
		if err := cmd.Validate(); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	resps := make([]*protocol.Response, 0, len(cmds))
	for _, cmd := range cmds {
		resp, err := c.execute(ctx, cmd)
		if err != nil {
			return nil, err
		}
		resps = append(resps, resp)
		if resp.Ack != nil {
			break
		}
	}
	return resps, nil
}

// execute runs one request/response cycle
// (must be called with lock held)
func (c *Connection) execute(ctx context.Context, cmd *protocol.Command) (*protocol.Response, error) {
	switch c.state {
	case stateClosed:
		return nil, ErrConnectionClosed
	case stateUnconnected:
		return nil, ErrNotConnected
	}

	if err := c.conn.SetDeadline(c.deadline(ctx)); err != nil {
		err = &protocol.TransportError{Op: "deadline", Err: err}
		c.fail(cmd, err)
		return nil, err
	}

	c.stats.recordCommand()
	c.log.Debug("Sending command", zap.String("command", commandName(cmd)))

	if err := protocol.WriteCommand(c.writer, cmd); err != nil {
		c.fail(cmd, err)
		return nil, err
	}

	resp, err := protocol.ReadResponse(c.reader, c.mode)
	if err != nil {
		c.fail(cmd, err)
		return nil, err
	}

	c.lastUsed = time.Now()

	if resp.Skipped > 0 {
		c.stats.recordSkipped(resp.Skipped)
		c.log.Warn("Skipped malformed lines", zap.String("command", commandName(cmd)), zap.Int("count", resp.Skipped))
	}

	if resp.Ack != nil {
		c.stats.recordAck()
		c.log.Debug("Command rejected",
			zap.String("command", commandName(cmd)),
			zap.Stringer("code", resp.Ack.Code),
			zap.String("message", resp.Ack.Message))
		return resp, nil
	}

	if data := resp.Record.Binary(); data != nil {
		c.stats.recordBinary(len(data))
	}

	return resp, nil
}

// fail closes a connection after a transport or protocol error
// (must be called with lock held)
func (c *Connection) fail(cmd *protocol.Command, err error) {
	c.recordError(err)
	c.log.Warn("Command failed, closing connection", zap.String("command", commandName(cmd)), zap.Error(err))
	c.state = stateClosed
	_ = c.conn.Close()
}

func (c *Connection) recordError(err error) {
	var pe *protocol.ProtocolError
	if errors.As(err, &pe) {
		c.stats.recordProtocolError()
		return
	}
	c.stats.recordTransportError()
}

// deadline returns the deadline for the next blocking operation.
func (c *Connection) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}

// Close closes the connection.
// It is safe to call Close more than once and on a Connection that was never
// opened. The Connection cannot be used afterwards.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return nil
	}

	wasConnected := c.state == stateConnected
	c.state = stateClosed

	if !wasConnected {
		return nil
	}

	// Let the server release the client right away, best effort.
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	_ = protocol.WriteCommand(c.writer, protocol.NewCommand("close"))

	c.log.Debug("Closed")
	return c.conn.Close()
}

// Version returns the protocol version announced by the server, or "" before Open.
func (c *Connection) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// IsConnected returns whether the connection is open and usable
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateConnected
}

// IsClosed returns whether the connection is closed
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateClosed
}

// LastUsed returns when the connection last completed a request
func (c *Connection) LastUsed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

// Addr returns the connection address
func (c *Connection) Addr() string {
	return c.addr
}

// Stats returns a snapshot of the connection statistics.
func (c *Connection) Stats() ClientStats {
	return c.stats.snapshot()
}

// commandName returns the verb of cmd, arguments are never logged.
func commandName(cmd *protocol.Command) string {
	name, _, _ := strings.Cut(cmd.Name, protocol.Space)
	return name
}
