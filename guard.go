package hotpatch

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"k8s.io/klog/v2"
)

// Guard owns an installed patch. Releasing it writes the bytes that were at
// the start of the target when the patch was installed back over the jump.
//
// A Guard reverts at most once. Release and Forget are no-ops after either
// has been called.
//
// Each Guard restores its own snapshot. When the same target is patched more
// than once, the guards must be released in the reverse order they were
// created. Releasing them in any other order leaves the code of an earlier
// patch in place:
//
//	a, _ := Patch(f, returns24)
//	b, _ := Patch(f, returns23) // b saves a's jump
//	a.Release()                 // writes the original code back
//	b.Release()                 // a's jump, f() returns 24
//
// Guards must not be copied.
type Guard struct {
	target unsafe.Pointer
	name   string
	saved  []byte

	released atomic.Bool
}

// Release restores the target. Release is normally deferred right after the
// patch is installed.
func (g *Guard) Release() {
	if g == nil || !g.released.CompareAndSwap(false, true) {
		return
	}

	writeCode(g.target, g.saved)
	activePatches.remove(g.target)

	klog.V(4).InfoS("Restored function", "target", g.name, "length", len(g.saved))
}

// Forget gives up the guard without restoring the target, leaving the patch
// in place for the life of the process.
func (g *Guard) Forget() {
	if g == nil || !g.released.CompareAndSwap(false, true) {
		return
	}

	activePatches.remove(g.target)

	klog.V(4).InfoS("Forgot patch", "target", g.name)
}

// Active reports whether the guard still has a pending reversion.
func (g *Guard) Active() bool {
	return g != nil && !g.released.Load()
}

// String returns the name of the patched function.
func (g *Guard) String() string {
	return g.name
}

// patchTable counts the guards that are still active for each target.
type patchTable struct {
	mu    sync.Mutex
	depth map[uintptr]int
}

var activePatches = &patchTable{depth: map[uintptr]int{}}

// add records a new guard for target and returns how many were already
// active.
func (t *patchTable) add(target unsafe.Pointer) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.depth[uintptr(target)]
	t.depth[uintptr(target)] = n + 1
	return n
}

func (t *patchTable) remove(target unsafe.Pointer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.depth[uintptr(target)]
	if n <= 1 {
		delete(t.depth, uintptr(target))
		return
	}
	t.depth[uintptr(target)] = n - 1
}

func (t *patchTable) count(target unsafe.Pointer) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.depth[uintptr(target)]
}
