package ai

import (
	"iter"
	"strings"
	"time"
)

// StreamEventType identifies the kind of event carried by a StreamEvent.
type StreamEventType string

const (
	// StreamEventPartial carries one content fragment.
	StreamEventPartial StreamEventType = "partial"
	// StreamEventComplete carries the accumulated response. Emitted exactly once.
	StreamEventComplete StreamEventType = "complete"
	// StreamEventError signals an error that terminated the stream.
	StreamEventError StreamEventType = "error"
)

// StreamEvent represents a single event yielded during streaming. Events are
// yielded in the order their underlying chunks arrived.
type StreamEvent struct {
	Type       StreamEventType `json:"type"`
	Fragment   string          `json:"fragment,omitempty"`    // Type == StreamEventPartial
	TokenCount int             `json:"token_count,omitempty"` // fragments received so far
	Done       bool            `json:"done"`                  // true only on the complete event
	Response   *Response       `json:"response,omitempty"`    // Type == StreamEventComplete
	Error      string          `json:"error,omitempty"`       // Type == StreamEventError
}

// ChatStream wraps a streaming iterator and provides accumulation of events
// into a final Response.
//
// Callers must consume the stream, either by ranging over Iter() (breaking
// early is fine) or by calling Collect(). The producer may hold an open
// response body that is released only when the iterator returns.
type ChatStream struct {
	iterator iter.Seq2[StreamEvent, error]
}

// NewChatStream creates a ChatStream from a raw iterator. Error events are
// yielded together with a non-nil error.
func NewChatStream(iterator iter.Seq2[StreamEvent, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewSingleEventStream wraps a synchronous Response as a stream: one partial
// event with the whole content (when non-empty) followed by the complete event.
func NewSingleEventStream(response *Response) *ChatStream {
	return NewChatStream(func(yield func(StreamEvent, error) bool) {
		if response.Content != "" {
			if !yield(StreamEvent{Type: StreamEventPartial, Fragment: response.Content, TokenCount: 1}, nil) {
				return
			}
		}
		yield(StreamEvent{Type: StreamEventComplete, Done: true, Response: response}, nil)
	})
}

// NewErrorStream returns a stream that yields a single error event.
func NewErrorStream(err error) *ChatStream {
	return NewChatStream(func(yield func(StreamEvent, error) bool) {
		yield(StreamEvent{Type: StreamEventError, Error: err.Error()}, err)
	})
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
// Example:
//
//	for event, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(event.Fragment)
//	}
func (stream *ChatStream) Iter() iter.Seq2[StreamEvent, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the response carried by the
// complete event. If the producer ends without one, a response is assembled
// from the partial fragments. A mid-stream error stops collection and is
// returned together with the partial response.
func (stream *ChatStream) Collect() (*Response, error) {
	var content strings.Builder

	for event, err := range stream.iterator {
		if err != nil {
			return &Response{Content: content.String(), Timestamp: time.Now()}, err
		}

		switch event.Type {
		case StreamEventPartial:
			content.WriteString(event.Fragment)
		case StreamEventComplete:
			if event.Response != nil {
				return event.Response, nil
			}
			return &Response{Content: content.String(), FinishReason: "stop", Timestamp: time.Now()}, nil
		}
	}

	return &Response{Content: content.String(), FinishReason: "stop", Timestamp: time.Now()}, nil
}
