package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestFakeTimerFiresOnAdvance(t *testing.T) {
	fake := NewFake(epoch)
	timer := fake.NewTimer(2 * time.Second)
	require.Equal(t, 1, fake.Pending())

	fake.Advance(time.Second)
	select {
	case <-timer.C():
		t.Fatal("timer fired before its deadline")
	default:
	}

	fake.Advance(time.Second)
	select {
	case at := <-timer.C():
		assert.Equal(t, epoch.Add(2*time.Second), at)
	default:
		t.Fatal("timer did not fire at its deadline")
	}
	assert.Zero(t, fake.Pending())
}

func TestFakeTimerStop(t *testing.T) {
	fake := NewFake(epoch)
	timer := fake.NewTimer(time.Second)

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	assert.Zero(t, fake.Pending())
}

func TestFakeHaltClosesTimers(t *testing.T) {
	fake := NewFake(epoch)
	pending := fake.NewTimer(time.Minute)
	fake.Halt()

	_, ok := <-pending.C()
	assert.False(t, ok)

	_, ok = <-fake.NewTimer(time.Second).C()
	assert.False(t, ok)
}

func TestFakeBlockUntil(t *testing.T) {
	fake := NewFake(epoch)
	assert.False(t, fake.BlockUntil(1, 5*time.Millisecond))

	go func() {
		time.Sleep(2 * time.Millisecond)
		fake.NewTimer(time.Second)
	}()
	assert.True(t, fake.BlockUntil(1, time.Second))
}
