package server_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/vitals/internal/server"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestStallProbe_FirstSampleIsBaseline(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	probe := server.StallProbe(func() uint64 { return 0 }, time.Minute, clock.now)

	assert.NoError(t, probe(context.Background()), "nothing has ticked yet at startup")
	clock.advance(59 * time.Second)
	assert.NoError(t, probe(context.Background()))
	clock.advance(2 * time.Second)
	assert.Error(t, probe(context.Background()))
}

func TestStallProbe_AdvancingRoundResetsIdle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var round uint64
	probe := server.StallProbe(func() uint64 { return round }, 10*time.Second, clock.now)

	for i := 0; i < 5; i++ {
		clock.advance(30 * time.Second)
		round++
		require.NoError(t, probe(context.Background()), "sample %d", i)
	}

	clock.advance(11 * time.Second)
	err := probe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "round 5")

	round++
	assert.NoError(t, probe(context.Background()))
}

func TestStallProbe_Preconditions(t *testing.T) {
	round := func() uint64 { return 0 }
	assert.Panics(t, func() { server.StallProbe(nil, time.Second, time.Now) })
	assert.Panics(t, func() { server.StallProbe(round, 0, time.Now) })
	assert.Panics(t, func() { server.StallProbe(round, time.Second, nil) })
}
