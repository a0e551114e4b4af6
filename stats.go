package mpd

import (
	"sync/atomic"
)

// ClientStats contains statistics about a connection.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: Commands, Acks, TransportErrors, ProtocolErrors, SkippedLines
//   - Counter: BinaryBytes (album art transfer volume)
type ClientStats struct {
	Commands        uint64 // Commands written to the server
	Acks            uint64 // Responses terminated by an ACK line
	TransportErrors uint64 // Dial, read, write and timeout failures
	ProtocolErrors  uint64 // Handshake or response parsing failures
	SkippedLines    uint64 // Malformed lines ignored in lenient mode
	BinaryBytes     uint64 // Raw payload bytes received through binary fields
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - connections update their own stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{
		stats: &ClientStats{},
	}
}

func (c *clientStatsCollector) recordCommand() {
	atomic.AddUint64(&c.stats.Commands, 1)
}

func (c *clientStatsCollector) recordAck() {
	atomic.AddUint64(&c.stats.Acks, 1)
}

func (c *clientStatsCollector) recordTransportError() {
	atomic.AddUint64(&c.stats.TransportErrors, 1)
}

func (c *clientStatsCollector) recordProtocolError() {
	atomic.AddUint64(&c.stats.ProtocolErrors, 1)
}

func (c *clientStatsCollector) recordSkipped(n int) {
	atomic.AddUint64(&c.stats.SkippedLines, uint64(n))
}

func (c *clientStatsCollector) recordBinary(n int) {
	atomic.AddUint64(&c.stats.BinaryBytes, uint64(n))
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Commands:        atomic.LoadUint64(&c.stats.Commands),
		Acks:            atomic.LoadUint64(&c.stats.Acks),
		TransportErrors: atomic.LoadUint64(&c.stats.TransportErrors),
		ProtocolErrors:  atomic.LoadUint64(&c.stats.ProtocolErrors),
		SkippedLines:    atomic.LoadUint64(&c.stats.SkippedLines),
		BinaryBytes:     atomic.LoadUint64(&c.stats.BinaryBytes),
	}
}
