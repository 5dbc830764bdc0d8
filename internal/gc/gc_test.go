package gc_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsvm/internal/gc"
	"jsvm/internal/value"
)

func TestCollectSweepsUnreachableObjects(t *testing.T) {
	c := gc.New()
	globals := value.NewObject(nil)
	reachable := value.NewObject(nil)
	garbage := value.NewObject(nil)

	c.Track(globals)
	c.Track(reachable)
	c.Track(garbage)

	globals.Set("child", value.Obj(reachable))

	stats := c.Collect(gc.Roots{Globals: globals})
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Marked)
	assert.Equal(t, 1, stats.Swept)
}

func TestCollectMarksFromOperandStackAndCells(t *testing.T) {
	c := gc.New()
	onStack := value.NewObject(nil)
	inCell := value.NewObject(nil)
	garbage := value.NewObject(nil)
	c.Track(onStack)
	c.Track(inCell)
	c.Track(garbage)

	cell := &value.Cell{Value: value.Obj(inCell)}
	stats := c.Collect(gc.Roots{
		Stack: []value.Value{value.Obj(onStack)},
		Cells: []*value.Cell{cell},
	})
	assert.Equal(t, 2, stats.Marked)
	assert.Equal(t, 1, stats.Swept)
}

func TestCollectResetsMarkBitsBetweenPasses(t *testing.T) {
	c := gc.New()
	globals := value.NewObject(nil)
	c.Track(globals)

	first := c.Collect(gc.Roots{Globals: globals})
	require.Equal(t, 1, first.Marked)

	second := c.Collect(gc.Roots{})
	assert.Equal(t, 0, second.Marked)
	assert.Equal(t, 1, second.Swept)
}

func TestWeakMapDropsEntryWhenKeyDies(t *testing.T) {
	c := gc.New()
	globals := value.NewObject(nil)
	weakMap := &value.Object{Kind: value.KindMap, Proto: nil, Weak: true}
	key := value.NewObject(nil) // never rooted elsewhere

	weakMap.MapKeys = []value.Value{value.Obj(key)}
	weakMap.MapValues = []value.Value{value.String("payload")}

	c.Track(globals)
	c.Track(weakMap)
	c.Track(key)
	globals.Set("wm", value.Obj(weakMap))

	c.Collect(gc.Roots{Globals: globals})

	assert.True(t, weakMap.MapKeys[0].IsUndefined(), "weak entry's key should be dropped once unreachable elsewhere")
	assert.True(t, weakMap.MapValues[0].IsUndefined())
}

// TestCollectStatsMatchExactly pins the whole Stats struct at once — a
// field added to Stats without updating every call site's assertions
// would otherwise slip through silently.
func TestCollectStatsMatchExactly(t *testing.T) {
	c := gc.New()
	globals := value.NewObject(nil)
	reachable := value.NewObject(nil)
	garbage := value.NewObject(nil)
	c.Track(globals)
	c.Track(reachable)
	c.Track(garbage)
	globals.Set("child", value.Obj(reachable))

	got := c.Collect(gc.Roots{Globals: globals})
	want := gc.Stats{Marked: 2, Swept: 1, Total: 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Collect() stats mismatch (-want +got):\n%s", diff)
	}
}

func TestWeakMapKeepsEntryWhenKeyStillLive(t *testing.T) {
	c := gc.New()
	globals := value.NewObject(nil)
	weakMap := &value.Object{Kind: value.KindMap, Proto: nil, Weak: true}
	key := value.NewObject(nil)

	weakMap.MapKeys = []value.Value{value.Obj(key)}
	weakMap.MapValues = []value.Value{value.String("payload")}

	c.Track(globals)
	c.Track(weakMap)
	c.Track(key)
	globals.Set("wm", value.Obj(weakMap))
	globals.Set("keyAlsoRooted", value.Obj(key)) // key reachable independently of the weak map

	c.Collect(gc.Roots{Globals: globals})

	assert.False(t, weakMap.MapKeys[0].IsUndefined())
	assert.Equal(t, "payload", weakMap.MapValues[0].ToString())
}
