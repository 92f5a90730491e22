package utils

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageTimer(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := NewStageTimer("list", clock)

	stop := timer.Start("header")
	clock.Advance(3 * time.Millisecond)
	assert.Equal(t, 3*time.Millisecond, stop())

	clock.Advance(time.Millisecond)
	assert.Equal(t, 3*time.Millisecond, stop(), "second stop keeps the first duration")

	err := timer.Time("scan", func() error {
		clock.Advance(10 * time.Millisecond)
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")

	stages := timer.Stages()
	require.Len(t, stages, 2)
	assert.Equal(t, Stage{Name: "header", Duration: 3 * time.Millisecond}, stages[0])
	assert.Equal(t, Stage{Name: "scan", Duration: 10 * time.Millisecond}, stages[1])
	assert.Equal(t, 14*time.Millisecond, timer.Total())

	assert.Equal(t, "list timing:\n  1. header: 3ms\n  2. scan: 10ms\n  total: 14ms\n", timer.Summary())
}

func TestStageTimer_Log(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := NewStageTimer("size", clock)
	stop := timer.Start("decode")
	clock.Advance(time.Second)
	stop()

	buf := &bytes.Buffer{}
	timer.Log(NewDefaultLogger(LevelDebug, buf))
	assert.Contains(t, buf.String(), "size stage decode took 1s")
}

func TestStageTimer_DefaultClock(t *testing.T) {
	timer := NewStageTimer("header", nil)
	stop := timer.Start("read")
	assert.GreaterOrEqual(t, stop(), time.Duration(0))
}
