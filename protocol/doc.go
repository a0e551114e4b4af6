// Package protocol implements the wire layer of the Music Player Daemon
// (MPD) client protocol: command framing, handshake and response parsing.
//
// The protocol is line oriented and strictly request/response: the client
// writes one command line, the server answers with zero or more field lines
// and exactly one terminal line.
//
// # Wire format
//
//	handshake:  OK MPD 0.23.5\n
//	command:    <name>[ <arg>]*\n
//	field:      <key>: <value>\n
//	binary:     binary: <n>\n<n raw bytes>\n
//	success:    OK\n
//	failure:    ACK [<code>@<index>] {<command>} <message>\n
//
// The binary field is the only place where the stream is not line based: the
// parser reads exactly n bytes before resuming line reading. It is used by
// albumart and readpicture to transfer images in chunks.
//
// # Errors
//
// ACK lines are part of a normal Response (Response.Ack) and leave the
// connection usable. Go errors returned by this package mean the stream can
// no longer be trusted, see ShouldCloseConnection.
//
// # Example
//
//	w := bufio.NewWriter(conn)
//	r := bufio.NewReader(conn)
//
//	version, err := protocol.ReadHandshake(r)
//	if err != nil {
//		return err
//	}
//
//	if err := protocol.WriteCommand(w, protocol.NewCommand("status")); err != nil {
//		return err
//	}
//
//	resp, err := protocol.ReadResponse(r, protocol.Lenient)
//	if err != nil {
//		return err
//	}
//	if resp.Ack != nil {
//		return resp.Ack
//	}
//	state := resp.Record.String("state")
package protocol
