package testutils

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
)

// Handler returns the raw server output for a command line, terminal line
// included. An empty output drops the connection.
type Handler func(line string) string

// Server is a scripted MPD server listening on a random local port.
type Server struct {
	listener net.Listener
	greeting string
	handler  Handler

	mu       sync.Mutex
	commands []string
	accepted int
}

// NewServer starts a server sending greeting on every new connection and
// answering commands with handler. An empty greeting closes connections
// right away. The server is stopped by t.Cleanup.
func NewServer(t testing.TB, greeting string, handler Handler) *Server {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start test server: %v", err)
	}

	s := &Server{
		listener: listener,
		greeting: greeting,
		handler:  handler,
	}

	t.Cleanup(func() {
		listener.Close()
	})

	go s.serve()

	return s
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.accepted++
		s.mu.Unlock()

		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	if s.greeting == "" {
		return
	}
	if _, err := conn.Write([]byte(s.greeting)); err != nil {
		return
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSuffix(line, "\n")

		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		if line == "close" {
			return
		}

		output := s.handler(line)
		if output == "" {
			return
		}
		if _, err := conn.Write([]byte(output)); err != nil {
			return
		}
	}
}

// Addr returns the host:port the server listens on
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Host returns the IP the server listens on
func (s *Server) Host() string {
	return s.listener.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the port the server listens on
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Commands returns the command lines received so far, in order
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Accepted returns the number of connections accepted so far
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Responses returns a Handler answering each command line from outputs.
// Unknown commands are rejected with an ACK like MPD does.
func Responses(outputs map[string]string) Handler {
	return func(line string) string {
		if output, ok := outputs[line]; ok {
			return output
		}
		verb, _, _ := strings.Cut(line, " ")
		return "ACK [5@0] {} unknown command \"" + verb + "\"\n"
	}
}

// AlwaysOK returns a Handler answering OK to every command.
func AlwaysOK() Handler {
	return func(string) string { return "OK\n" }
}
