package mpd

import (
	"context"

	"github.com/pior/mpd/protocol"
)

// Client is an MPD client over a single Connection.
//
// Client adds typed commands on top of Connection.Execute: ACK responses are
// turned into *protocol.AckError values and records are projected into
// typed results.
//
// A Client is safe for concurrent use, requests are serialized on the
// connection. It never reconnects: after a TransportError or ProtocolError
// the Client is unusable and a new one must be dialed.
type Client struct {
	conn *Connection
}

// Dial creates a connection with cfg, opens it and returns a Client.
// Zero fields of cfg are filled with the built-in defaults, the environment
// is not read (see DialEnv).
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	conn, err := NewConnection(cfg)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Open(ctx); err != nil {
		return nil, err
	}

	return NewClient(conn), nil
}

// DialEnv is Dial with the environment applied between cfg and the defaults:
// fields set in cfg win over MPD_HOST, MPD_PORT, MPD_TIMEOUT and MPD_PASSWORD.
func DialEnv(ctx context.Context, cfg Config) (*Client, error) {
	env, err := ConfigFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return Dial(ctx, env.Merge(cfg))
}

// NewClient returns a Client using an opened connection.
func NewClient(conn *Connection) *Client {
	return &Client{conn: conn}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Version returns the protocol version announced by the server.
func (c *Client) Version() string {
	return c.conn.Version()
}

// Connection returns the underlying connection.
func (c *Client) Connection() *Connection {
	return c.conn
}

// Stats returns a snapshot of the client statistics.
func (c *Client) Stats() ClientStats {
	return c.conn.Stats()
}

// Exec sends cmd and returns the raw outcome, ACK included.
func (c *Client) Exec(ctx context.Context, cmd *protocol.Command) (*protocol.Response, error) {
	return c.conn.Execute(ctx, cmd)
}

// Command sends a command built from name and args and returns its record.
// An ACK is returned as *protocol.AckError.
func (c *Client) Command(ctx context.Context, name string, args ...any) (*protocol.Record, error) {
	resp, err := c.run(ctx, protocol.NewCommand(name, args...))
	if err != nil {
		return nil, err
	}
	return resp.Record, nil
}

// run executes cmd and converts an ACK into an error.
func (c *Client) run(ctx context.Context, cmd *protocol.Command) (*protocol.Response, error) {
	resp, err := c.conn.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}
