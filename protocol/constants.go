package protocol

import "strconv"

// Protocol delimiters and markers
const (
	// LF is the line terminator of the MPD protocol
	LF = "\n"

	// Space separates command tokens
	Space = " "

	// StatusOK terminates a successful response
	StatusOK = "OK"

	// AckPrefix starts the terminal line of a failed response
	AckPrefix = "ACK "

	// HandshakePrefix starts the greeting sent by the server on connect
	HandshakePrefix = "OK MPD "

	// FieldSeparator separates a key from its value in a field line
	FieldSeparator = ": "

	// BinaryKey is the field announcing a length-prefixed raw payload
	BinaryKey = "binary"
)

// Limits
const (
	// MaxBinarySize bounds the payload announced by a binary field.
	// The server sends album art in chunks of binarylimit bytes (8 KiB by
	// default, configurable), far below this value.
	MaxBinarySize = 16 << 20

	// MaxLineLength bounds a single protocol line read by the parser.
	MaxLineLength = 1 << 20
)

// Mode selects how the response parser treats lines that are neither a
// field, an OK nor an ACK line.
//
// The zero Mode is unset: configuration layers fill it, the parser treats it
// as Lenient.
type Mode int

const (
	// Lenient skips malformed lines and keeps reading.
	Lenient Mode = iota + 1

	// Strict fails the response with a ProtocolError on the first malformed line.
	Strict
)

func (m Mode) String() string {
	switch m {
	case 0:
		return "unset"
	case Lenient:
		return "lenient"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}

// AckCode is the numeric error code carried by an ACK line.
type AckCode int

// Error codes sent by the server (src/protocol/Ack.hxx in MPD).
const (
	AckNotList       AckCode = 1
	AckArg           AckCode = 2
	AckPassword      AckCode = 3
	AckPermission    AckCode = 4
	AckUnknown       AckCode = 5
	AckNoExist       AckCode = 50
	AckPlaylistMax   AckCode = 51
	AckSystem        AckCode = 52
	AckPlaylistLoad  AckCode = 53
	AckUpdateAlready AckCode = 54
	AckPlayerSync    AckCode = 55
	AckExist         AckCode = 56
)

var ackCodeNames = map[AckCode]string{
	AckNotList:       "not_list",
	AckArg:           "arg",
	AckPassword:      "password",
	AckPermission:    "permission",
	AckUnknown:       "unknown",
	AckNoExist:       "no_exist",
	AckPlaylistMax:   "playlist_max",
	AckSystem:        "system",
	AckPlaylistLoad:  "playlist_load",
	AckUpdateAlready: "update_already",
	AckPlayerSync:    "player_sync",
	AckExist:         "exist",
}

func (c AckCode) String() string {
	if name, ok := ackCodeNames[c]; ok {
		return name
	}
	return "ack_" + strconv.Itoa(int(c))
}
