// Package gc implements the mark-and-sweep collector of spec.md §4.5 over
// the object graph internal/value defines. It does not own the heap's
// allocation path (objects are plain Go pointers, collected by Go's own
// allocator once unreachable from the collector's root set and from Go's
// GC simultaneously) — what this package adds is a definite, observable
// sweep pass a host can trigger and inspect, with exact WeakMap/WeakSet
// semantics keyed off its own mark bits rather than Go's.
package gc

import "jsvm/internal/value"

// Roots is the snapshot of everything live at the moment a collection
// starts: the global object, every live frame's locals/upvalues/operand-
// stack slots, and anything else holding a strong reference the VM can't
// derive structurally (pending microtask/timer closures, an in-flight
// exception value).
type Roots struct {
	Globals  *value.Object
	Stack    []value.Value
	Cells    []*value.Cell
	Objects  []*value.Object // extra strong roots: in-flight exception, etc.
}

// Collector runs mark-and-sweep over a set of heap registries the host
// maintains (every object/array/etc it has ever allocated). Because Go
// objects aren't otherwise enumerable, the VM that owns allocation is
// responsible for registering each new Object with Track as it's created;
// Collect then marks from Roots and reports (but does not free — Go's own
// GC reclaims unmarked objects once nothing else points at them) which
// registered objects survived.
type Collector struct {
	tracked []*value.Object
	weak    []weakEntry
}

type weakEntry struct {
	container *value.Object // the WeakMap/WeakSet object itself
	key       *value.Object
	index     int // position of this entry within container's parallel key/value slices
}

func New() *Collector { return &Collector{} }

// Track registers a heap object so Collect can report its liveness. Called
// once per allocation site in internal/vm (NewObject/NewArray/etc already
// funnel through a handful of constructors, so this is a single call added
// at each).
func (c *Collector) Track(o *value.Object) { c.tracked = append(c.tracked, o) }

// TrackWeak registers a WeakMap/WeakSet entry: key's liveness (as
// determined by the next Collect) decides whether the entry should be
// dropped, without key itself counting as a root.
func (c *Collector) TrackWeak(container, key *value.Object, index int) {
	c.weak = append(c.weak, weakEntry{container: container, key: key, index: index})
}

// Stats summarizes one Collect pass.
type Stats struct {
	Marked int
	Swept  int
	Total  int
}

// Collect marks every object reachable from roots, then reports which
// tracked objects were not marked (the sweep set) and clears all mark bits
// for the next cycle. It also drops any weak-map/weak-set entry whose key
// did not survive the mark phase, per spec.md's "genuinely weak reference"
// requirement.
func (c *Collector) Collect(roots Roots) Stats {
	seen := map[*value.Object]bool{}
	var markObj func(o *value.Object)
	markObj = func(o *value.Object) {
		if o == nil || seen[o] {
			return
		}
		seen[o] = true
		o.Marked = true
		if o.Proto != nil {
			markObj(o.Proto)
		}
		if o.PrototypeObj != nil {
			markObj(o.PrototypeObj)
		}
		if o.SuperClass != nil {
			markObj(o.SuperClass)
		}
		if o.Target != nil {
			markObj(o.Target)
		}
		for _, cell := range o.Captured {
			markValue(cell.Value, markObj)
		}
		markValue(o.ThisVal, markObj)
		markValue(o.BoundThis, markObj)
		for _, v := range o.BoundArgs {
			markValue(v, markObj)
		}
		for _, v := range o.Elements {
			markValue(v, markObj)
		}
		for idx, k := range o.MapKeys {
			if o.Weak {
				if k.IsObject() {
					c.TrackWeak(o, k.Object(), idx)
				}
				continue
			}
			markValue(k, markObj)
			if idx < len(o.MapValues) {
				markValue(o.MapValues[idx], markObj)
			}
		}
		if o.Promise != nil {
			markValue(o.Promise.Value, markObj)
		}
		for _, key := range o.Keys() {
			if d, ok := o.GetOwn(key); ok {
				markValue(d.Value, markObj)
				if d.Get != nil {
					markObj(d.Get)
				}
				if d.Set != nil {
					markObj(d.Set)
				}
			}
		}
	}

	if roots.Globals != nil {
		markObj(roots.Globals)
	}
	for _, v := range roots.Stack {
		markValue(v, markObj)
	}
	for _, cell := range roots.Cells {
		markValue(cell.Value, markObj)
	}
	for _, o := range roots.Objects {
		markObj(o)
	}

	stats := Stats{Total: len(c.tracked)}
	survivors := c.tracked[:0]
	for _, o := range c.tracked {
		if o.Marked {
			stats.Marked++
			survivors = append(survivors, o)
		} else {
			stats.Swept++
		}
	}
	c.tracked = survivors

	liveWeak := c.weak[:0]
	for _, w := range c.weak {
		if w.key != nil && w.key.Marked {
			liveWeak = append(liveWeak, w)
		} else if w.container != nil {
			dropWeakEntry(w.container, w.index)
		}
	}
	c.weak = liveWeak

	for o := range seen {
		o.Marked = false
	}
	for _, cell := range roots.Cells {
		cell.Marked = false
	}
	return stats
}

func markValue(v value.Value, markObj func(*value.Object)) {
	if v.IsObject() {
		markObj(v.Object())
	}
}

// dropWeakEntry nils out a WeakMap/WeakSet slot so a later compaction pass
// (or simple linear scan on access) treats it as absent; removing it from
// the middle of MapKeys/MapValues directly would shift every later index
// and break any other weakEntry referencing this container by position.
func dropWeakEntry(container *value.Object, index int) {
	if index < 0 || index >= len(container.MapKeys) {
		return
	}
	container.MapKeys[index] = value.Undefined
	container.MapValues[index] = value.Undefined
}
