package notify

import (
	"go.uber.org/zap"
)

// LogSink writes every event to a zap logger at info level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
//
// Precondition: logger must be non-nil.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		panic("notify: NewLogSink requires a non-nil logger")
	}
	return &LogSink{logger: logger}
}

// Notify logs ev.
func (s *LogSink) Notify(ev Event) {
	s.logger.Info("notification",
		zap.String("event_id", ev.ID.String()),
		zap.String("type", string(ev.Type)),
		zap.String("entity", ev.EntityID),
		zap.String("text", ev.Text),
	)
}

// Fanout delivers each event to every wrapped sink in order.
type Fanout []Sink

// Notify forwards ev to every non-nil sink.
func (f Fanout) Notify(ev Event) {
	for _, s := range f {
		if s != nil {
			s.Notify(ev)
		}
	}
}
