// Package definition holds small, swappable implementations of the
// capabilities the router core depends on by interface — today, just the
// default logger used when the embedding process doesn't supply its own.
package definition

// Logger is the logging capability the router core depends on. The embedding raftstore process may bridge this to whatever
// structured logger it already uses; this package only ships
// DefaultLogger, a thin wrapper over the standard library logger.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Panic(v ...interface{})
	Panicf(format string, v ...interface{})

	// ToggleDebug flips whether Debug/Debugf are emitted and returns
	// the new state.
	ToggleDebug(value bool) bool
}
