package entity_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/vitals/internal/game/entity"
	"github.com/cory-johannsen/vitals/internal/game/vitals"
)

func TestNew_WiresComponents(t *testing.T) {
	e := entity.New("hero", 3, vitals.NewAttributes(40), nil)
	assert.Equal(t, "hero", e.ID())
	assert.Equal(t, 3, e.Level)
	assert.Equal(t, "hero", e.Pool().ID())
	assert.NotNil(t, e.Modifiers())
	assert.Equal(t, 0, e.Effects().Len())
	assert.Equal(t, 40, e.Attributes().Live(vitals.Strength))
}

func TestNew_Preconditions(t *testing.T) {
	assert.Panics(t, func() { entity.New("", 1, vitals.NewAttributes(1), nil) })
	assert.Panics(t, func() { entity.New("x", 1, nil, nil) })
}

func TestEntity_WithSerialisesAccess(t *testing.T) {
	e := entity.New("hero", 1, vitals.NewAttributes(40), nil)
	e.Pool().SetRawMaxHealth(10000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.With(func(e *entity.Entity) { e.Pool().Increase(vitals.Health, 1) })
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, e.Pool().Current(vitals.Health))
}

func TestDirectory_AddGetRemove(t *testing.T) {
	d := entity.NewDirectory()
	e := entity.New("rat-1", 1, vitals.NewAttributes(10), nil)
	require.NoError(t, d.Add(e))
	assert.Error(t, d.Add(e), "duplicate id")
	assert.Error(t, d.Add(nil))

	got, ok := d.Get("rat-1")
	require.True(t, ok)
	assert.Same(t, e, got)

	require.NoError(t, d.Remove("rat-1"))
	_, ok = d.Get("rat-1")
	assert.False(t, ok)
	assert.Error(t, d.Remove("rat-1"))
}

func TestDirectory_AllOrderedByID(t *testing.T) {
	d := entity.NewDirectory()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, d.Add(entity.New(id, 1, vitals.NewAttributes(10), nil)))
	}
	var ids []string
	for _, e := range d.All() {
		ids = append(ids, e.ID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, 3, d.Len())
}

func TestPropertyDirectoryLenMatchesAdds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 50).Draw(rt, "n")
		d := entity.NewDirectory()
		for i := 0; i < n; i++ {
			require.NoError(rt, d.Add(entity.New(fmt.Sprintf("e-%d", i), 1, vitals.NewAttributes(10), nil)))
		}
		assert.Equal(rt, n, d.Len())
		assert.Len(rt, d.All(), n)
	})
}
