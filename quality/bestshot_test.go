package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBestShotDwell(t *testing.T) {
	stable := 500 * time.Millisecond
	g := NewBestShotGate(stable)
	t0 := time.Unix(1000, 0)

	assert.False(t, g.Update(true, t0))
	assert.False(t, g.Update(true, t0.Add(stable-time.Millisecond)))
	assert.True(t, g.Update(true, t0.Add(stable)))
	assert.True(t, g.Update(true, t0.Add(2*stable)))
}

func TestBestShotInterrupted(t *testing.T) {
	stable := 500 * time.Millisecond
	g := NewBestShotGate(stable)
	t0 := time.Unix(1000, 0)

	assert.False(t, g.Update(true, t0))
	assert.False(t, g.Update(false, t0.Add(300*time.Millisecond)))
	assert.Zero(t, g.Held(t0.Add(300*time.Millisecond)))

	// accumulation restarts from the next passing update
	restart := t0.Add(400 * time.Millisecond)
	assert.False(t, g.Update(true, restart))
	assert.False(t, g.Update(true, t0.Add(stable)))
	assert.False(t, g.Update(true, restart.Add(stable-time.Millisecond)))
	assert.True(t, g.Update(true, restart.Add(stable)))
}

func TestBestShotReset(t *testing.T) {
	g := NewBestShotGate(100 * time.Millisecond)
	t0 := time.Unix(1000, 0)

	g.Update(true, t0)
	assert.True(t, g.Update(true, t0.Add(100*time.Millisecond)))

	g.Reset()

	assert.False(t, g.Update(true, t0.Add(150*time.Millisecond)))
	assert.Equal(t, 50*time.Millisecond, g.Held(t0.Add(200*time.Millisecond)))
}
