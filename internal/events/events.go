// Package events defines the typed progress stream a query request
// emits: ordered stages, the event payload, and the sinks that carry
// events to the caller. The SSE handler streams each event as it is
// produced; the batch handler collects them and returns only the final
// response.
package events

import (
	"context"
)

// Stage names one progress event. A request emits stages in the
// declared order; error replaces every remaining stage.
type Stage string

const (
	StageRequestReceived  Stage = "request_received"
	StageSchemaConfirmed  Stage = "schema_confirmed"
	StageSQLGenerated     Stage = "sql_generated"
	StageQueryExecuting   Stage = "query_executing"
	StageQueryCompleted   Stage = "query_completed"
	StageResultValidating Stage = "result_validating"
	StageResultReady      Stage = "result_ready"
	StageFinal            Stage = "final"
	StageError            Stage = "error"
)

// Order is the canonical progress sequence. Any emitted stream is a
// prefix of it, optionally terminated by error instead.
var Order = []Stage{
	StageRequestReceived,
	StageSchemaConfirmed,
	StageSQLGenerated,
	StageQueryExecuting,
	StageQueryCompleted,
	StageResultValidating,
	StageResultReady,
	StageFinal,
}

// Event is one progress emission. Message is localized per request.
type Event struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Sink consumes one request's events in emission order. Emit returns an
// error when the consumer is gone; producers stop the request then.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// Collector buffers events in memory for the batch response path.
type Collector struct {
	events []Event
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Emit(_ context.Context, event Event) error {
	c.events = append(c.events, event)
	return nil
}

// Events returns the collected events in emission order.
func (c *Collector) Events() []Event {
	return c.events
}

// Last returns the final collected event, if any.
func (c *Collector) Last() (Event, bool) {
	if len(c.events) == 0 {
		return Event{}, false
	}
	return c.events[len(c.events)-1], true
}
