// Package telemetry carries an opaque span identity propagated through
// message headers. It is never interpreted here — sinks that want to
// reconstruct a real trace are out of scope for this repo.
package telemetry

import "github.com/google/uuid"

// Span is an opaque byte map holding a broker message's headers. The Kafka
// consumer fills it from inbound headers; the aggregator publishes its
// frames without a span, so it is not carried onto outputs.
type Span map[string][]byte

// CorrelationID mints an identifier for a log line that has no span to
// carry, such as a malformed or out-of-window message a loop had to drop,
// so separate log entries about the same event can still be tied together.
func CorrelationID() string {
	return uuid.NewString()
}

// Clone returns an independent copy so a publish doesn't alias the header
// map of the message that produced it.
func (s Span) Clone() Span {
	if s == nil {
		return nil
	}
	out := make(Span, len(s))
	for k, v := range s {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
