package events

import (
	"context"
	"fmt"

	"dataagentjp.io/querycore/internal/i18n"
)

// Stream enforces the stage contract over a sink: progress stages in
// declared order, exactly one terminal final or error event, and
// nothing after cancellation. Stage messages are localized here so
// every sink sees finished events.
type Stream struct {
	sink   Sink
	locale string
	next   int
	closed bool
}

// NewStream wraps a sink for one request. The locale is normalized once
// and applied to every stage message.
func NewStream(sink Sink, locale string) *Stream {
	return &Stream{sink: sink, locale: i18n.Normalize(locale)}
}

// Locale returns the normalized per-request locale.
func (s *Stream) Locale() string {
	return s.locale
}

// Closed reports whether a terminal event has been emitted.
func (s *Stream) Closed() bool {
	return s.closed
}

// Emit sends the next progress stage. Emitting a stage out of declared
// order or after termination is a programming error, reported rather
// than silently reordered. A cancelled context emits nothing.
func (s *Stream) Emit(ctx context.Context, stage Stage, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return fmt.Errorf("stream already terminated, cannot emit %s", stage)
	}
	if stage == StageError {
		return s.Fail(ctx, data)
	}
	if s.next >= len(Order) || Order[s.next] != stage {
		return fmt.Errorf("stage %s out of order, expected %s", stage, Order[s.next])
	}
	s.next++
	if stage == StageFinal {
		s.closed = true
	}
	return s.sink.Emit(ctx, Event{
		Stage:   stage,
		Message: i18n.Message(s.locale, string(stage)),
		Data:    data,
	})
}

// Fail terminates the stream with an error event carrying the
// diagnostic payload. Remaining progress stages are skipped.
func (s *Stream) Fail(ctx context.Context, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return fmt.Errorf("stream already terminated, cannot emit error")
	}
	s.closed = true
	return s.sink.Emit(ctx, Event{
		Stage:   StageError,
		Message: i18n.Message(s.locale, string(StageError)),
		Data:    data,
	})
}
