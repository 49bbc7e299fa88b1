// Package errsink collects per-worker failure messages during a concurrent
// batch and raises them as one aggregated error. All workers of a batch share
// a single Sink; the orchestrator drains it at the batch barrier so the caller
// sees exactly one coherent failure per batch instead of a racey stream of
// individual reports.
package errsink

import (
	"strings"
	"sync"
)

// separator joins individual failure messages in the aggregated error.
const separator = ". "

// AggregatedError is the single failure raised for a batch in which one or
// more workers recorded an error. Messages preserves recording order.
type AggregatedError struct {
	Prefix   string
	Messages []string
}

func (e *AggregatedError) Error() string {
	return e.Prefix + strings.Join(e.Messages, separator)
}

// Sink is a mutex-guarded collector of failure messages. The zero value is
// ready to use and safe for concurrent Record calls.
type Sink struct {
	mu       sync.Mutex
	messages []string
}

// Record appends a failure message. Never fails; safe from any goroutine.
func (s *Sink) Record(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
}

// Drain returns an *AggregatedError combining all recorded messages with the
// given prefix and clears the sink, or nil when nothing was recorded.
// Drain and Record hold the same mutex, so a drain never observes a batch
// mid-record and a message is never lost or reported twice.
func (s *Sink) Drain(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) == 0 {
		return nil
	}

	msgs := s.messages
	s.messages = nil

	return &AggregatedError{Prefix: prefix, Messages: msgs}
}
