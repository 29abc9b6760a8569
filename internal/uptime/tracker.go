// Package uptime tracks per-hour maker uptime: how many seconds of each
// clock hour the bot had quotes resting on both sides. Two mutually
// exclusive counters are kept, split by the configured spread: maker_active
// for a configured spread of 5 bps or tighter, mm_active for anything wider.
package uptime

import (
	"sync"
	"time"
)

const historySize = 24

// makerMaxSpreadBps is the configured-spread threshold separating the
// maker band from the mm band: both require both sides resting, but only a
// quote this tight (or tighter) counts toward maker_active rather than
// mm_active.
const makerMaxSpreadBps = 5.0

// maxElapsedSeconds caps how much wall-clock time a single tick may add
// to the hourly accumulators, absorbing host sleep or process stalls.
const maxElapsedSeconds = 10.0

// HourlyRecord accumulates both uptime counters for one clock hour.
type HourlyRecord struct {
	HourStart           time.Time
	MakerActiveSeconds  float64
	MMActiveSeconds     float64
	TotalElapsedSeconds float64
	TargetSeconds       float64
}

// MakerUptimePct is the percentage of the hour credited to the maker band
// (both sides resting at a configured spread <= 5 bps), capped at 100.
func (r HourlyRecord) MakerUptimePct() float64 {
	return minPct(r.MakerActiveSeconds / 3600 * 100)
}

// MMUptimePct is the percentage of the hour credited to the mm band (both
// sides resting at a configured spread wider than 5 bps), capped at 100.
func (r HourlyRecord) MMUptimePct() float64 {
	return minPct(r.MMActiveSeconds / 3600 * 100)
}

// TargetMet reports whether MMActiveSeconds reached the eligibility target.
func (r HourlyRecord) TargetMet() bool {
	return r.MMActiveSeconds >= r.TargetSeconds
}

func minPct(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}

// Tracker accumulates maker and market-maker uptime per hour, with a
// fixed-size ring buffer of the last 24 hours of history.
type Tracker struct {
	mu sync.Mutex

	targetSeconds float64
	currentHour   time.Time
	current       HourlyRecord
	history       []HourlyRecord // ring buffer, oldest first, capped at historySize
	lastTick      time.Time

	makerActive bool
	mmActive    bool
}

// New creates a tracker with the given per-hour eligibility target.
func New(target time.Duration) *Tracker {
	now := time.Now()
	hour := truncateToHour(now)
	return &Tracker{
		targetSeconds: target.Seconds(),
		currentHour:   hour,
		current:       HourlyRecord{HourStart: hour, TargetSeconds: target.Seconds()},
		lastTick:      now,
	}
}

func truncateToHour(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}

// Tick accumulates elapsed wall-clock time since the last call into
// total_elapsed, and into exactly one of maker_active/mm_active when
// hasBothSides is true: configuredSpreadBps <= 5.0 bps counts as maker
// presence, anything looser counts as mm presence. Neither counter moves
// when hasBothSides is false. Rolls over to a fresh hourly record when the
// clock hour changes.
func (t *Tracker) Tick(hasBothSides bool, configuredSpreadBps float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(t.lastTick).Seconds()
	if elapsed > maxElapsedSeconds {
		elapsed = maxElapsedSeconds
	}
	if elapsed < 0 {
		elapsed = 0
	}
	t.lastTick = now

	hour := truncateToHour(now)
	if !hour.Equal(t.currentHour) {
		t.rollover(hour)
	}

	t.current.TotalElapsedSeconds += elapsed

	makerActive := false
	mmActive := false
	if hasBothSides {
		if configuredSpreadBps <= makerMaxSpreadBps {
			makerActive = true
			t.current.MakerActiveSeconds += elapsed
		} else {
			mmActive = true
			t.current.MMActiveSeconds += elapsed
		}
	}
	t.makerActive = makerActive
	t.mmActive = mmActive
}

func (t *Tracker) rollover(newHour time.Time) {
	t.history = append(t.history, t.current)
	if len(t.history) > historySize {
		t.history = t.history[len(t.history)-historySize:]
	}
	t.currentHour = newHour
	t.current = HourlyRecord{HourStart: newHour, TargetSeconds: t.targetSeconds}
}

// Reset clears all counters and history. Used at the symbol-switch
// barrier, since uptime accrued on the previous symbol doesn't carry over.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	hour := truncateToHour(now)
	t.currentHour = hour
	t.current = HourlyRecord{HourStart: hour, TargetSeconds: t.targetSeconds}
	t.history = nil
	t.lastTick = now
	t.makerActive = false
	t.mmActive = false
}

// Stats is the serializable snapshot returned to the status surface.
type Stats struct {
	CurrentHour             HourlyRecord
	SecondsRemainingTarget  float64
	SecondsElapsedInHour    float64
	MakerActive             bool
	MMActive                bool
	History                 []HourlyRecord
	HoursMMTargetMetLast24h int
	AvgMMUptimePctLast24h   float64
}

// GetStats returns the current hour's counters, the 24h history, and
// derived rollups over that history.
func (t *Tracker) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	history := make([]HourlyRecord, len(t.history))
	copy(history, t.history)

	metCount := 0
	var pctSum float64
	for _, r := range history {
		if r.TargetMet() {
			metCount++
		}
		pctSum += r.MMUptimePct()
	}
	avgPct := 0.0
	if len(history) > 0 {
		avgPct = pctSum / float64(len(history))
	}

	return Stats{
		CurrentHour:             t.current,
		SecondsRemainingTarget:  maxFloat(t.targetSeconds-t.current.MMActiveSeconds, 0),
		SecondsElapsedInHour:    time.Since(t.currentHour).Seconds(),
		MakerActive:             t.makerActive,
		MMActive:                t.mmActive,
		History:                 history,
		HoursMMTargetMetLast24h: metCount,
		AvgMMUptimePctLast24h:   avgPct,
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
