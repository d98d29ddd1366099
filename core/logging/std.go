package logging

import (
	"log"
	"os"
	"sync/atomic"
)

// StdLogger is the dependency-free default adapter, built on the standard
// log package the way the teacher's app.Run logs its own startup/shutdown
// lines with log.Printf.
type StdLogger struct {
	level atomic.Int32
	out   *log.Logger
}

// NewStdLogger returns a StdLogger that suppresses messages above level
// (i.e. less urgent than level) and writes the rest to stderr.
func NewStdLogger(level Level) *StdLogger {
	s := &StdLogger{out: log.New(os.Stderr, "", log.LstdFlags)}
	s.level.Store(int32(level))
	return s
}

func (s *StdLogger) WantLog(level Level) bool {
	return level <= Level(s.level.Load())
}

func (s *StdLogger) LogMessage(level Level, msg string) bool {
	if !s.WantLog(level) {
		return true
	}
	s.out.Printf("[%s] %s", level, msg)
	return true
}

// SetLevel changes the active level, satisfying logging.LevelSetter.
func (s *StdLogger) SetLevel(level Level) {
	s.level.Store(int32(level))
}
