package tuning

import "testing"

func TestApplyGCConfigAcceptsZeroValues(t *testing.T) {
	// Should not panic; 0/0 means "leave the OS/runtime defaults alone".
	ApplyGCConfig(GCConfig{})
}

func TestGetGCStatsReportsLiveGoroutineCount(t *testing.T) {
	stats := GetGCStats()
	if stats.NumGoroutine < 1 {
		t.Fatalf("NumGoroutine = %d, want at least 1", stats.NumGoroutine)
	}
	if stats.Sys == 0 {
		t.Fatal("Sys = 0, want a positive number of bytes obtained from the OS")
	}
}

func TestGCStatsTextIsNonEmpty(t *testing.T) {
	if got := GetGCStats().Text(); got == "" {
		t.Fatal("expected non-empty text rendering")
	}
}
