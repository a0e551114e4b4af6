package mpd

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pior/mpd/internal/testutils"
	"github.com/pior/mpd/protocol"
)

// mockConfig returns a Config dialing mock instead of the network.
func mockConfig(mock *testutils.ConnectionMock) Config {
	return Config{
		dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return mock, nil
		},
	}
}

// openMock returns an opened Connection reading serverOutput after the greeting.
func openMock(t testing.TB, cfg Config, serverOutput ...string) (*Connection, *testutils.ConnectionMock) {
	t.Helper()

	mock := testutils.NewConnectionMock(append([]string{testutils.Greeting}, serverOutput...)...)
	conn, err := NewConnection(mockConfig(mock).Merge(cfg))
	require.NoError(t, err)

	_, err = conn.Open(context.Background())
	require.NoError(t, err)

	return conn, mock
}

func serverConfig(s *testutils.Server) Config {
	return Config{Host: s.Host(), Port: s.Port()}
}

// silentListener accepts connections and never writes anything.
func silentListener(t testing.TB) (string, int) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestNewConnection(t *testing.T) {
	conn, err := NewConnection(Config{})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "localhost:6600", conn.Addr())
	assert.False(t, conn.IsConnected())
	assert.False(t, conn.IsClosed())
	assert.Empty(t, conn.Version())
	assert.True(t, conn.LastUsed().IsZero())
}

func TestNewConnection_InvalidConfig(t *testing.T) {
	_, err := NewConnection(Config{Port: 70000})

	var cfgErr *protocol.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "port", cfgErr.Field)
}

func TestConnection_Open(t *testing.T) {
	server := testutils.NewServer(t, testutils.Greeting, testutils.AlwaysOK())

	conn, err := NewConnection(serverConfig(server))
	require.NoError(t, err)
	defer conn.Close()

	version, err := conn.Open(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "0.23.5", version)
	assert.Equal(t, "0.23.5", conn.Version())
	assert.True(t, conn.IsConnected())
	assert.False(t, conn.IsClosed())
	assert.False(t, conn.LastUsed().IsZero())
}

func TestConnection_Open_Twice(t *testing.T) {
	conn, _ := openMock(t, Config{})

	_, err := conn.Open(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyConnected)
	assert.True(t, conn.IsConnected())
}

func TestConnection_Open_BadHandshake(t *testing.T) {
	tests := []struct {
		name     string
		greeting string
	}{
		{"not mpd", "HELLO\n"},
		{"no version", "OK MPD \n"},
		{"bad version", "OK MPD abc\n"},
		{"closed without greeting", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutils.NewServer(t, tt.greeting, testutils.AlwaysOK())

			conn, err := NewConnection(serverConfig(server))
			require.NoError(t, err)

			_, err = conn.Open(context.Background())

			var pe *protocol.ProtocolError
			require.ErrorAs(t, err, &pe)
			assert.False(t, conn.IsConnected())
			assert.Empty(t, conn.Version())
			assert.Equal(t, uint64(1), conn.Stats().ProtocolErrors)
		})
	}
}

func TestConnection_Open_DialFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	conn, err := NewConnection(Config{Host: "127.0.0.1", Port: port})
	require.NoError(t, err)

	_, err = conn.Open(context.Background())

	var te *protocol.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "dial", te.Op)
	assert.False(t, conn.IsConnected())
	assert.Equal(t, uint64(1), conn.Stats().TransportErrors)
}

func TestConnection_Open_HandshakeTimeout(t *testing.T) {
	host, port := silentListener(t)

	conn, err := NewConnection(Config{Host: host, Port: port, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = conn.Open(context.Background())

	var te *protocol.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, protocol.IsTimeout(err))
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, conn.IsConnected())
}

func TestConnection_Open_ContextDeadline(t *testing.T) {
	host, port := silentListener(t)

	conn, err := NewConnection(Config{Host: host, Port: port, Timeout: 10 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = conn.Open(ctx)
	require.Error(t, err)
	assert.True(t, protocol.IsTimeout(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestConnection_Open_Password(t *testing.T) {
	server := testutils.NewServer(t, testutils.Greeting, testutils.Responses(map[string]string{
		`password "s3cr\"t"`: "OK\n",
		"ping":               "OK\n",
	}))

	cfg := serverConfig(server)
	cfg.Password = `s3cr"t`

	conn, err := NewConnection(cfg)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Open(context.Background())
	require.NoError(t, err)

	resp, err := conn.Execute(context.Background(), protocol.NewCommand("ping"))
	require.NoError(t, err)
	assert.True(t, resp.OK())

	assert.Equal(t, []string{`password "s3cr\"t"`, "ping"}, server.Commands())
}

func TestConnection_Open_WrongPassword(t *testing.T) {
	server := testutils.NewServer(t, testutils.Greeting, func(line string) string {
		return "ACK [3@0] {password} incorrect password\n"
	})

	cfg := serverConfig(server)
	cfg.Password = "wrong"

	conn, err := NewConnection(cfg)
	require.NoError(t, err)

	_, err = conn.Open(context.Background())

	ack, ok := protocol.IsAck(err)
	require.True(t, ok)
	assert.Equal(t, protocol.AckPassword, ack.Code)
	assert.Equal(t, "incorrect password", ack.Message)
	assert.False(t, conn.IsConnected())
}

func TestConnection_Execute(t *testing.T) {
	conn, mock := openMock(t, Config{}, "volume: 50\nstate: play\nOK\n")

	resp, err := conn.Execute(context.Background(), protocol.NewCommand("status"))
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, "50", resp.Record.String("volume"))
	assert.Equal(t, "play", resp.Record.String("state"))
	assert.Equal(t, "status\n", mock.Written())
	assert.Equal(t, uint64(1), conn.Stats().Commands)
}

func TestConnection_Execute_AckKeepsConnection(t *testing.T) {
	conn, mock := openMock(t, Config{},
		"ACK [50@0] {play} No such song\n",
		"OK\n",
	)

	resp, err := conn.Execute(context.Background(), protocol.NewCommand("play", 99))
	require.NoError(t, err)
	require.NotNil(t, resp.Ack)
	assert.Equal(t, protocol.AckNoExist, resp.Ack.Code)
	assert.Equal(t, "play", resp.Ack.Command)
	assert.Equal(t, "No such song", resp.Ack.Message)
	assert.True(t, conn.IsConnected())

	resp, err = conn.Execute(context.Background(), protocol.NewCommand("ping"))
	require.NoError(t, err)
	assert.True(t, resp.OK())

	assert.Equal(t, "play 99\nping\n", mock.Written())
	assert.Equal(t, uint64(1), conn.Stats().Acks)
}

func TestConnection_Execute_TransportErrorCloses(t *testing.T) {
	conn, mock := openMock(t, Config{}, "volume: 50\n")

	_, err := conn.Execute(context.Background(), protocol.NewCommand("status"))

	var te *protocol.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, protocol.ShouldCloseConnection(err))
	assert.True(t, conn.IsClosed())
	assert.True(t, mock.IsClosed())
	assert.Equal(t, uint64(1), conn.Stats().TransportErrors)

	_, err = conn.Execute(context.Background(), protocol.NewCommand("status"))
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestConnection_Execute_ServerDisconnects(t *testing.T) {
	server := testutils.NewServer(t, testutils.Greeting, func(line string) string {
		return ""
	})

	conn, err := NewConnection(serverConfig(server))
	require.NoError(t, err)
	_, err = conn.Open(context.Background())
	require.NoError(t, err)

	_, err = conn.Execute(context.Background(), protocol.NewCommand("status"))

	var te *protocol.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, conn.IsClosed())
}

func TestConnection_Execute_Timeout(t *testing.T) {
	server := testutils.NewServer(t, testutils.Greeting, func(line string) string {
		time.Sleep(300 * time.Millisecond)
		return "OK\n"
	})

	cfg := serverConfig(server)
	cfg.Timeout = 50 * time.Millisecond

	conn, err := NewConnection(cfg)
	require.NoError(t, err)
	_, err = conn.Open(context.Background())
	require.NoError(t, err)

	_, err = conn.Execute(context.Background(), protocol.NewCommand("status"))
	require.Error(t, err)
	assert.True(t, protocol.IsTimeout(err))
	assert.True(t, conn.IsClosed())
}

func TestConnection_Execute_ProtocolErrorCloses(t *testing.T) {
	conn, _ := openMock(t, Config{Mode: protocol.Strict}, "this is not a field\nOK\n")

	_, err := conn.Execute(context.Background(), protocol.NewCommand("status"))

	var pe *protocol.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.True(t, conn.IsClosed())
	assert.Equal(t, uint64(1), conn.Stats().ProtocolErrors)
}

func TestConnection_Execute_LenientSkips(t *testing.T) {
	conn, _ := openMock(t, Config{}, "volume: 50\nthis is not a field\nOK\n")

	resp, err := conn.Execute(context.Background(), protocol.NewCommand("status"))
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, "50", resp.Record.String("volume"))
	assert.True(t, conn.IsConnected())
	assert.Equal(t, uint64(1), conn.Stats().SkippedLines)
}

func TestConnection_Execute_InvalidCommand(t *testing.T) {
	conn, mock := openMock(t, Config{})

	_, err := conn.Execute(context.Background(), protocol.NewCommand("add", "a\nclear"))

	var ice *protocol.InvalidCommandError
	require.ErrorAs(t, err, &ice)
	assert.Empty(t, mock.Written())
	assert.True(t, conn.IsConnected())
}

func TestConnection_Execute_ContextCanceled(t *testing.T) {
	conn, mock := openMock(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := conn.Execute(ctx, protocol.NewCommand("status"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mock.Written())
	assert.True(t, conn.IsConnected())
}

func TestConnection_Execute_Deadline(t *testing.T) {
	conn, mock := openMock(t, Config{Timeout: 10 * time.Second}, "OK\n", "OK\n")

	_, err := conn.Execute(context.Background(), protocol.NewCommand("ping"))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Second), mock.Deadline(), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	ctxDeadline, _ := ctx.Deadline()

	_, err = conn.Execute(ctx, protocol.NewCommand("ping"))
	require.NoError(t, err)
	assert.Equal(t, ctxDeadline, mock.Deadline())
}

func TestConnection_Execute_NotConnected(t *testing.T) {
	conn, err := NewConnection(Config{})
	require.NoError(t, err)

	_, err = conn.Execute(context.Background(), protocol.NewCommand("status"))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnection_Execute_Binary(t *testing.T) {
	conn, _ := openMock(t, Config{}, "size: 4\ntype: image/png\nbinary: 4\n\x89PNG\nOK\n")

	resp, err := conn.Execute(context.Background(), protocol.NewCommand("albumart", protocol.Quote("a.flac"), 0))
	require.NoError(t, err)

	assert.Equal(t, []byte("\x89PNG"), resp.Record.Binary())
	assert.Equal(t, uint64(4), conn.Stats().BinaryBytes)
}

func TestConnection_Execute_Sequential(t *testing.T) {
	server := testutils.NewServer(t, testutils.Greeting, func(line string) string {
		time.Sleep(time.Millisecond)
		return "echo: " + line + "\nOK\n"
	})

	conn, err := NewConnection(serverConfig(server))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Open(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			cmd := protocol.NewCommand("find", protocol.Quote(fmt.Sprintf("title-%d", i)))
			resp, err := conn.Execute(context.Background(), cmd)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, cmd.String(), resp.Record.String("echo"))
		}()
	}
	wg.Wait()

	assert.Len(t, server.Commands(), 20)
}

func TestConnection_Close(t *testing.T) {
	server := testutils.NewServer(t, testutils.Greeting, testutils.AlwaysOK())

	conn, err := NewConnection(serverConfig(server))
	require.NoError(t, err)
	_, err = conn.Open(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	assert.True(t, conn.IsClosed())
	assert.False(t, conn.IsConnected())

	// idempotent
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	_, err = conn.Execute(context.Background(), protocol.NewCommand("ping"))
	assert.ErrorIs(t, err, ErrConnectionClosed)

	_, err = conn.Open(context.Background())
	assert.ErrorIs(t, err, ErrConnectionClosed)

	assert.Eventually(t, func() bool {
		commands := server.Commands()
		return len(commands) == 1 && commands[0] == "close"
	}, time.Second, 10*time.Millisecond)
}

func TestConnection_Close_NeverOpened(t *testing.T) {
	conn, err := NewConnection(Config{})
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.True(t, conn.IsClosed())
}

func TestConnection_Close_AfterFailure(t *testing.T) {
	conn, _ := openMock(t, Config{})

	_, err := conn.Execute(context.Background(), protocol.NewCommand("status"))
	require.Error(t, err)

	require.NoError(t, conn.Close())
}

func TestConnection_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	conn, _ := openMock(t, Config{Logger: zap.New(core)},
		"ACK [50@0] {add} No such directory\n",
	)

	_, err := conn.Execute(context.Background(), protocol.NewCommand("add", protocol.Quote("private/path.flac")))
	require.NoError(t, err)

	rejected := logs.FilterMessage("Command rejected").All()
	require.Len(t, rejected, 1)
	fields := rejected[0].ContextMap()
	assert.Equal(t, "add", fields["command"])
	assert.Equal(t, "no_exist", fields["code"])
	assert.Equal(t, "mpd", rejected[0].LoggerName)

	for _, entry := range logs.All() {
		for _, value := range entry.ContextMap() {
			assert.NotContains(t, fmt.Sprint(value), "private/path.flac")
		}
	}
}

func TestConnection_StatsAreIndependent(t *testing.T) {
	conn1, _ := openMock(t, Config{}, "OK\n")
	conn2, _ := openMock(t, Config{})

	_, err := conn1.Execute(context.Background(), protocol.NewCommand("ping"))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), conn1.Stats().Commands)
	assert.Equal(t, uint64(0), conn2.Stats().Commands)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "add", commandName(protocol.NewCommand("add", protocol.Quote("a b.flac"))))
	assert.Equal(t, "status", commandName(protocol.NewCommand("status")))
	assert.Equal(t, "find", commandName(protocol.NewCommandf("find %s %s", "artist", protocol.Quote("x"))))
}
