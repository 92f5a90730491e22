package utils

import (
	"fmt"
	"strings"
	"time"
)

// Stage is one timed step of a decode pass.
type Stage struct {
	Name     string
	Duration time.Duration
}

// StageTimer records the duration of sequential stages in start order.
// It is used from a single goroutine per pass.
type StageTimer struct {
	name   string
	clock  Clock
	start  time.Time
	stages []Stage
}

// NewStageTimer creates a timer named after the pass it measures.
func NewStageTimer(name string, clock Clock) *StageTimer {
	if clock == nil {
		clock = NewRealClock()
	}
	return &StageTimer{name: name, clock: clock, start: clock.Now()}
}

// Start begins a stage and returns the function that ends it.
func (t *StageTimer) Start(stage string) (stop func() time.Duration) {
	begin := t.clock.Now()
	idx := len(t.stages)
	t.stages = append(t.stages, Stage{Name: stage})
	done := false
	return func() time.Duration {
		if !done {
			t.stages[idx].Duration = t.clock.Since(begin)
			done = true
		}
		return t.stages[idx].Duration
	}
}

// Time runs fn as a stage.
func (t *StageTimer) Time(stage string, fn func() error) error {
	stop := t.Start(stage)
	defer stop()
	return fn()
}

// Stages returns a copy of the recorded stages.
func (t *StageTimer) Stages() []Stage {
	out := make([]Stage, len(t.stages))
	copy(out, t.stages)
	return out
}

// Total returns the time since the timer was created.
func (t *StageTimer) Total() time.Duration {
	return t.clock.Since(t.start)
}

// Summary formats the stages one per line followed by the total.
func (t *StageTimer) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s timing:\n", t.name)
	for i, s := range t.stages {
		fmt.Fprintf(&sb, "  %d. %s: %v\n", i+1, s.Name, s.Duration)
	}
	fmt.Fprintf(&sb, "  total: %v\n", t.Total())
	return sb.String()
}

// Log writes every stage duration to logger at debug level.
func (t *StageTimer) Log(logger Logger) {
	for _, s := range t.stages {
		logger.Debug("%s stage %s took %v", t.name, s.Name, s.Duration)
	}
}
