package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Channel = (*Fake)(nil)

func TestFakeSetAndRelease(t *testing.T) {
	f := NewFake("fan")
	assert.Equal(t, Idle, f.Level(), "new fake should rest at idle")

	require.NoError(t, f.Set(High))
	assert.Equal(t, High, f.Level())

	require.NoError(t, f.Release())
	assert.Equal(t, Idle, f.Level())

	assert.Equal(t, []Level{High, Low}, f.History)
	assert.True(t, f.Energised())
	assert.Equal(t, 1, f.SetCalls)
	assert.Equal(t, 1, f.ReleaseCalls)
}

func TestFakeReleaseIsIdempotent(t *testing.T) {
	f := NewFake("fan")

	for i := 0; i < 3; i++ {
		require.NoError(t, f.Release())
	}

	assert.Equal(t, Idle, f.Level())
	assert.False(t, f.Energised())
	assert.Equal(t, 3, f.ReleaseCalls)
}

func TestFakeSetError(t *testing.T) {
	f := NewFake("open")
	f.SetError = errors.New("simulated error")

	err := f.Set(High)
	require.Error(t, err)
	assert.Equal(t, "simulated error", err.Error())
	assert.Empty(t, f.History, "failed writes must not be recorded")
	assert.Equal(t, Idle, f.Level())
	assert.Equal(t, 1, f.SetCalls)
}

func TestFakeReleaseError(t *testing.T) {
	f := NewFake("open")
	require.NoError(t, f.Set(High))
	f.ReleaseError = errors.New("simulated error")

	require.Error(t, f.Release())
	assert.Equal(t, High, f.Level())
}

func TestFakeJournal(t *testing.T) {
	var j Journal
	a := NewFake("a")
	b := NewFake("b")
	a.Journal = &j
	b.Journal = &j

	require.NoError(t, b.Set(High))
	require.NoError(t, a.Set(High))
	require.NoError(t, b.Release())

	assert.Equal(t, []string{"b=HIGH", "a=HIGH", "b=LOW"}, j.Entries())
}

func TestFakeClose(t *testing.T) {
	f := NewFake("fan")
	assert.False(t, f.Closed, "should not be closed initially")
	require.NoError(t, f.Close())
	assert.True(t, f.Closed)
}

func TestFakeReset(t *testing.T) {
	f := NewFake("fan")
	_ = f.Set(High)
	f.SetError = errors.New("x")

	f.Reset()

	assert.Nil(t, f.History)
	assert.Nil(t, f.SetError)
	assert.Zero(t, f.SetCalls)
	assert.Equal(t, Idle, f.Level())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "HIGH", High.String())
	assert.Equal(t, "LOW", Low.String())
	assert.Equal(t, Low, Idle)
}
