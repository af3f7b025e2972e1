// SPDX-License-Identifier: MIT

package fit

import (
	"context"
	"fmt"

	"github.com/katalvlaran/tubefit/trace"
)

// StreamBuffer is the channel capacity used by Stream.
const StreamBuffer = 64

// EventKind tags an Event.
type EventKind uint8

const (
	EventLog EventKind = iota
	EventTrace
	EventSuccess
	EventFailure
)

// String returns the lower-case event name.
func (k EventKind) String() string {
	switch k {
	case EventLog:
		return "log"
	case EventTrace:
		return "trace"
	case EventSuccess:
		return "success"
	case EventFailure:
		return "failure"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is one message of a fit stream. Message is set for EventLog, Record
// for EventTrace, Result for EventSuccess and Err for EventFailure.
type Event struct {
	Kind    EventKind
	Message string
	Record  trace.Record
	Result  *Result
	Err     error
}

// Terminal reports whether e ends the stream.
func (e Event) Terminal() bool {
	return e.Kind == EventSuccess || e.Kind == EventFailure
}

// Stream runs the fit on its own goroutine and delivers progress as events:
// EventLog for every progress message, EventTrace for every trace record when
// req.Config.Trace is set, then exactly one EventSuccess or EventFailure. The
// channel is closed after the terminal event. Once ctx is done, pending
// progress events are dropped and the fit stops at its next checkpoint.
func (f *Fitter) Stream(ctx context.Context, req Request) <-chan Event {
	ch := make(chan Event, StreamBuffer)
	send := func(e Event) {
		select {
		case ch <- e:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(ch)

		observe := func(r trace.Record) {
			switch {
			case r.Kind == trace.KindMessage:
				send(Event{Kind: EventLog, Message: r.Message})
			case req.Config.Trace:
				send(Event{Kind: EventTrace, Record: r})
			}
		}
		res, err := f.run(ctx, req, observe)

		last := Event{Kind: EventSuccess, Result: res}
		if err != nil {
			last = Event{Kind: EventFailure, Err: err}
		}
		// the terminal event is still delivered when there is room after ctx ends
		select {
		case ch <- last:
		case <-ctx.Done():
			select {
			case ch <- last:
			default:
			}
		}
	}()

	return ch
}
