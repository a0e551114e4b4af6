package mpd

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/multierr"

	"github.com/pior/mpd/protocol"
)

// GuardSettings configures the circuit breaker of a Guard.
type GuardSettings struct {
	// MaxRequests is the number of requests allowed through while half-open.
	// Default: 1
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which the
	// failure counts are cleared. Zero never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	// Default: 60s
	Timeout time.Duration

	// ReadyToTrip decides to open the breaker after a failure.
	// If nil, it trips after 3 requests with a failure ratio of 60% or more.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called whenever the breaker changes state.
	OnStateChange func(name string, from, to gobreaker.State)
}

// Guard runs functions against a fresh Client per call, behind a circuit breaker.
//
// It is the caller-side policy layer for unreliable servers: every call dials
// a new connection, runs fn and closes the connection. Nothing is retried or
// reused. Once too many calls failed on transport or protocol errors the
// breaker opens and calls fail fast with gobreaker.ErrOpenState without
// touching the network. ACK errors don't count as failures.
type Guard struct {
	cfg     Config
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewGuard creates a Guard dialing with cfg.
func NewGuard(cfg Config, settings GuardSettings) *Guard {
	cfg = DefaultConfig().Merge(cfg)

	readyToTrip := settings.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		}
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:          cfg.Addr(),
		MaxRequests:   settings.MaxRequests,
		Interval:      settings.Interval,
		Timeout:       settings.Timeout,
		ReadyToTrip:   readyToTrip,
		OnStateChange: settings.OnStateChange,
		IsSuccessful:  isBreakerSuccess,
	})

	return &Guard{
		cfg:     cfg,
		breaker: breaker,
	}
}

// Do dials a Client, runs fn with it and closes it.
// The error of fn and the error of Close are combined.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context, client *Client) error) error {
	_, err := g.breaker.Execute(func() (struct{}, error) {
		client, err := Dial(ctx, g.cfg)
		if err != nil {
			return struct{}{}, err
		}

		err = fn(ctx, client)
		err = multierr.Append(err, client.Close())
		return struct{}{}, err
	})
	return err
}

// State returns the current state of the circuit breaker.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

// Counts returns the failure counts of the current breaker interval.
func (g *Guard) Counts() gobreaker.Counts {
	return g.breaker.Counts()
}

// isBreakerSuccess counts only errors that broke the connection as failures.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	for _, e := range multierr.Errors(err) {
		if protocol.ShouldCloseConnection(e) {
			return false
		}
	}
	return true
}
