package protocol

// Response represents the outcome of a single request.
//
// Exactly one of Record and Ack is set:
//   - Success: the response ended with OK, Record holds the fields (possibly none)
//   - Failure: the response ended with an ACK line, Ack holds the decoded error
//     and any field received before it is discarded
type Response struct {
	// Record maps field names to values, last write wins on duplicate keys.
	Record *Record

	// Ack is set when the server rejected the command.
	Ack *AckError

	// Fields holds every field line in wire order, duplicates included.
	// List commands (playlistinfo, outputs, ...) repeat keys once per entry.
	Fields []Field

	// Skipped counts malformed lines ignored in Lenient mode.
	Skipped int
}

// OK returns true if the response ended with OK.
func (r *Response) OK() bool {
	return r.Ack == nil
}

// Err returns the ACK as an error, or nil on success.
func (r *Response) Err() error {
	if r.Ack != nil {
		return r.Ack
	}
	return nil
}

// Group splits Fields into records, starting a new record each time
// startKey appears. Fields preceding the first startKey are dropped.
//
// Example:
//
//	file: a.flac
//	Title: A
//	file: b.flac
//	Title: B
//	OK
//
// Group("file") returns two records.
func (r *Response) Group(startKey string) []*Record {
	var (
		records []*Record
		current *Record
	)
	for _, f := range r.Fields {
		if f.Key == startKey {
			current = NewRecord()
			records = append(records, current)
		}
		if current == nil {
			continue
		}
		current.set(f)
	}
	return records
}

// Values returns the value of every field named key, in wire order.
func (r *Response) Values(key string) []string {
	var values []string
	for _, f := range r.Fields {
		if f.Key == key {
			values = append(values, f.Value)
		}
	}
	return values
}
