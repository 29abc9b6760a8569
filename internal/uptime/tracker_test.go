package uptime

import (
	"testing"
	"time"
)

func TestTickBothSidesTightSpreadCountsAsMaker(t *testing.T) {
	t.Parallel()
	tr := New(30 * time.Minute)

	time.Sleep(20 * time.Millisecond)
	tr.Tick(true, 5.0)

	stats := tr.GetStats()
	if stats.CurrentHour.MakerActiveSeconds <= 0 {
		t.Error("MakerActiveSeconds should accumulate for a both-sides tick at spread <= 5 bps")
	}
	if stats.CurrentHour.MMActiveSeconds != 0 {
		t.Errorf("MMActiveSeconds = %v, want 0 for a maker-band tick", stats.CurrentHour.MMActiveSeconds)
	}
}

func TestTickBothSidesWideSpreadCountsAsMM(t *testing.T) {
	t.Parallel()
	tr := New(30 * time.Minute)

	time.Sleep(20 * time.Millisecond)
	tr.Tick(true, 50.0)

	stats := tr.GetStats()
	if stats.CurrentHour.MMActiveSeconds <= 0 {
		t.Error("MMActiveSeconds should accumulate for a both-sides tick at spread > 5 bps")
	}
	if stats.CurrentHour.MakerActiveSeconds != 0 {
		t.Errorf("MakerActiveSeconds = %v, want 0 for an mm-band tick", stats.CurrentHour.MakerActiveSeconds)
	}
}

func TestTickNotBothSidesCountsNeither(t *testing.T) {
	t.Parallel()
	tr := New(30 * time.Minute)

	time.Sleep(20 * time.Millisecond)
	tr.Tick(false, 5.0)

	stats := tr.GetStats()
	if stats.CurrentHour.MakerActiveSeconds != 0 {
		t.Errorf("MakerActiveSeconds = %v, want 0 when has_both_sides is false", stats.CurrentHour.MakerActiveSeconds)
	}
	if stats.CurrentHour.MMActiveSeconds != 0 {
		t.Errorf("MMActiveSeconds = %v, want 0 when has_both_sides is false", stats.CurrentHour.MMActiveSeconds)
	}
}

func TestTickClampsElapsedToTenSeconds(t *testing.T) {
	t.Parallel()
	tr := New(30 * time.Minute)
	tr.lastTick = time.Now().Add(-time.Hour)

	tr.Tick(true, 5.0)

	stats := tr.GetStats()
	if stats.CurrentHour.MakerActiveSeconds > maxElapsedSeconds {
		t.Errorf("MakerActiveSeconds = %v, want <= %v after a simulated wall-clock jump", stats.CurrentHour.MakerActiveSeconds, maxElapsedSeconds)
	}
}

func TestTargetMet(t *testing.T) {
	t.Parallel()
	r := HourlyRecord{MMActiveSeconds: 100, TargetSeconds: 90}
	if !r.TargetMet() {
		t.Error("TargetMet() = false, want true when MMActiveSeconds >= TargetSeconds")
	}

	r2 := HourlyRecord{MMActiveSeconds: 50, TargetSeconds: 90}
	if r2.TargetMet() {
		t.Error("TargetMet() = true, want false when MMActiveSeconds < TargetSeconds")
	}
}

func TestUptimePctCapsAt100(t *testing.T) {
	t.Parallel()
	r := HourlyRecord{MMActiveSeconds: 7200}
	if got := r.MMUptimePct(); got != 100 {
		t.Errorf("MMUptimePct() = %v, want 100 (capped)", got)
	}
}

func TestResetClearsHistory(t *testing.T) {
	t.Parallel()
	tr := New(30 * time.Minute)
	tr.Tick(true, 5.0)

	tr.Reset()
	stats := tr.GetStats()

	if stats.CurrentHour.MakerActiveSeconds != 0 {
		t.Errorf("MakerActiveSeconds = %v, want 0 after Reset", stats.CurrentHour.MakerActiveSeconds)
	}
	if len(stats.History) != 0 {
		t.Errorf("History = %v, want empty after Reset", stats.History)
	}
}

func TestGetStatsAggregatesHistory(t *testing.T) {
	t.Parallel()
	tr := New(30 * time.Minute)

	tr.history = []HourlyRecord{
		{MMActiveSeconds: 1800, TargetSeconds: 1800},
		{MMActiveSeconds: 900, TargetSeconds: 1800},
	}

	stats := tr.GetStats()
	if stats.HoursMMTargetMetLast24h != 1 {
		t.Errorf("HoursMMTargetMetLast24h = %d, want 1", stats.HoursMMTargetMetLast24h)
	}
}
