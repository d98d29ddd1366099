package logging

import "testing"

func TestLevelWantLogGating(t *testing.T) {
	l := NewStdLogger(Warning)
	if !l.WantLog(Fatal) || !l.WantLog(Serious) || !l.WantLog(Warning) {
		t.Fatal("expected urgent-or-equal levels to be wanted")
	}
	if l.WantLog(Info) || l.WantLog(Verbose) {
		t.Fatal("expected less urgent levels to be suppressed")
	}
}

func TestStdLoggerSetLevel(t *testing.T) {
	l := NewStdLogger(Warning)
	if l.WantLog(Verbose) {
		t.Fatal("expected Verbose to be suppressed at Warning level")
	}
	l.SetLevel(Verbose)
	if !l.WantLog(Verbose) {
		t.Fatal("expected Verbose to be wanted after SetLevel(Verbose)")
	}
}

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		Fatal:   "FATAL",
		Serious: "SERIOUS",
		Warning: "WARNING",
		Info:    "INFO",
		Verbose: "VERBOSE",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", level, got, want)
		}
	}
}
