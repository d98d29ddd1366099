// Package logging defines the abstract logging contract the receiver and
// its consumer speak, plus two concrete adapters: a dependency-free
// default built on the standard log package, and a structured adapter
// built on go.uber.org/zap for deployments that want leveled,
// field-structured output.
package logging

// Level orders log severities from most to least urgent, matching the
// FAST receiver contract's FATAL..VERBOSE ordering.
type Level int

const (
	Fatal Level = iota
	Serious
	Warning
	Info
	Verbose
)

func (l Level) String() string {
	switch l {
	case Fatal:
		return "FATAL"
	case Serious:
		return "SERIOUS"
	case Warning:
		return "WARNING"
	case Info:
		return "INFO"
	case Verbose:
		return "VERBOSE"
	default:
		return "UNKNOWN"
	}
}

// Logger is the process-level logging contract used outside the wire
// protocol's own PacketConsumer callbacks: startup banners, shutdown
// messages, configuration summaries. LogMessage returns false to
// signal that whatever is driving the log call should stop, the same
// continue/stop convention as receiver.PacketConsumer's error-reporting
// callbacks; callers that have nothing to stop are free to ignore it.
type Logger interface {
	WantLog(level Level) bool
	LogMessage(level Level, msg string) bool
}

// LevelSetter is implemented by Logger adapters whose active level can
// be changed after construction, for a hot-reloadable log verbosity
// driven by config.Manager.
type LevelSetter interface {
	SetLevel(level Level)
}

// ParseLevel maps a config string ("fatal", "serious", "warning",
// "info", "verbose") to a Level, defaulting to Info for anything else.
func ParseLevel(name string) Level {
	switch name {
	case "fatal":
		return Fatal
	case "serious":
		return Serious
	case "warning":
		return Warning
	case "verbose":
		return Verbose
	default:
		return Info
	}
}
