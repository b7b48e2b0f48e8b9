package globtail

// Logger receives the watcher's observability events: discovery, exclusion
// and session errors. It is always called from the watcher's run loop, one
// event at a time.
type Logger interface {
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NopLogger discards all events. It is the default when Config.Logger is nil.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Errorf(string, ...interface{}) {}
