package humanize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntRangeBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		v := IntRange(40, 120)
		assert.GreaterOrEqual(t, v, 40)
		assert.Less(t, v, 120)
	}
	assert.Equal(t, 5, IntRange(5, 5))
}

func TestDelayBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := Delay(80, 220)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.Less(t, d, 220*time.Millisecond)
	}
}

func TestSleepHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	Sleep(ctx, time.Second)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestJitterStaysWithinSpread(t *testing.T) {
	for i := 0; i < 50; i++ {
		v := Jitter(100, 0.2)
		assert.GreaterOrEqual(t, v, 80)
		assert.LessOrEqual(t, v, 120)
	}
	assert.Equal(t, 0, Jitter(0, 0.5))
}
