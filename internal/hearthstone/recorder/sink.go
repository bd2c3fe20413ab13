package recorder

import (
	"context"
	"errors"
)

// ErrNoTurns is returned by sinks asked to write a match without turns.
var ErrNoTurns = errors.New("match has no turns")

// MatchSink receives each finished match exactly once.
type MatchSink interface {
	WriteMatch(ctx context.Context, match *MatchRecord) error
}

// SinkFunc adapts a function to MatchSink.
type SinkFunc func(ctx context.Context, match *MatchRecord) error

// WriteMatch calls f.
func (f SinkFunc) WriteMatch(ctx context.Context, match *MatchRecord) error {
	return f(ctx, match)
}

// MultiSink writes to every sink and joins their errors. A failing sink does
// not stop the others.
type MultiSink []MatchSink

// WriteMatch writes match to each sink in order.
func (m MultiSink) WriteMatch(ctx context.Context, match *MatchRecord) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.WriteMatch(ctx, match); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type discardSink struct{}

func (discardSink) WriteMatch(context.Context, *MatchRecord) error { return nil }
