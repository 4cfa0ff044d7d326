package hotpatch

import (
	"fmt"
	"reflect"
	"runtime"
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// ErrNotFunc is returned when the target or the replacement is not a
	// non-nil function.
	ErrNotFunc = errors.New("not a function")

	// ErrSignatureMismatch is returned when the target and the replacement
	// take or return different types. This can only happen when the type
	// parameter of Patch is an interface type.
	ErrSignatureMismatch = errors.New("function signatures do not match")

	// ErrTooSmall is returned when the first instruction of the target is a
	// return, so even the shortest jump would overwrite whatever follows the
	// function. Nothing has been modified when it is returned.
	ErrTooSmall = errors.New("target function is too small to patch")
)

// Patch redirects every call of target to replacement by overwriting the
// start of target with a jump. The original code is restored when the
// returned Guard is released:
//
//	guard, err := hotpatch.Patch(time.Now, func() time.Time {
//		return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
//	})
//	if err != nil {
//		...
//	}
//	defer guard.Release()
//
// Note that calls to target that have been inlined are not affected. If
// possible, add a noinline directive to the target:
//
//	//go:noinline
//	func myfunc() {
//		...
//	}
//
// The replacement must not capture variables. Control jumps straight into
// its code without loading a closure context.
//
// Patching is not synchronized with calls: the target must not be running on
// another goroutine while it is patched or restored.
func Patch[T any](target, replacement T) (*Guard, error) {
	targetv := reflect.ValueOf(target)
	replacementv := reflect.ValueOf(replacement)

	err := checkFuncs(targetv, replacementv)
	if err != nil {
		return nil, err
	}

	return install(targetv.UnsafePointer(), replacementv.UnsafePointer())
}

// MustPatch is like Patch but panics if the target can't be patched.
func MustPatch[T any](target, replacement T) *Guard {
	guard, err := Patch(target, replacement)
	if err != nil {
		panic(err)
	}
	return guard
}

// With patches target for the duration of fn. The patch is released when fn
// returns or panics.
func With[T any](target, replacement T, fn func()) error {
	guard, err := Patch(target, replacement)
	if err != nil {
		return err
	}
	defer guard.Release()

	fn()
	return nil
}

// PatchT patches target until the test and all its subtests complete. The
// test fails immediately if the target can't be patched.
func PatchT[T any](tb testing.TB, target, replacement T) *Guard {
	tb.Helper()

	guard, err := Patch(target, replacement)
	if err != nil {
		tb.Fatalf("unable to patch: %v", err)
		return nil
	}
	tb.Cleanup(guard.Release)

	return guard
}

func checkFuncs(target, replacement reflect.Value) error {
	for _, fnv := range []reflect.Value{target, replacement} {
		if fnv.Kind() != reflect.Func {
			return errors.Wrapf(ErrNotFunc, "kind: %v", fnv.Kind())
		}
		if fnv.IsNil() {
			return errors.Wrap(ErrNotFunc, "nil func")
		}
	}

	if target.Type() != replacement.Type() {
		return diffFuncs(target.Type(), replacement.Type()).Error()
	}

	return nil
}

// install writes a jump from target to replacement and returns the guard
// that undoes it.
func install(target, replacement unsafe.Pointer) (*Guard, error) {
	name := funcName(target)

	entry := unsafe.Slice((*byte)(target), hostEncoder.maxLen())
	if hostEncoder.leadingReturn(entry) {
		return nil, errors.Wrapf(ErrTooSmall, "%s", name)
	}

	jump := hostEncoder.encode(uint64(uintptr(target)), uint64(uintptr(replacement)))

	guard := &Guard{
		target: target,
		name:   name,
		saved:  make([]byte, jump.n),
	}
	copy(guard.saved, entry)

	if n := activePatches.add(target); n > 0 {
		klog.Warningf("%s already has %d active patch(es), release them in reverse order or stale code will be restored", name, n)
	}

	writeCode(target, jump.bytes())

	klog.V(4).InfoS("Patched function", "target", name, "replacement", funcName(replacement), "length", jump.n)
	if klogV := klog.V(5); klogV.Enabled() {
		klogV.InfoS("Wrote trampoline", "target", name, "code", hostEncoder.disassemble(jump.bytes(), uint64(uintptr(target))))
	}

	return guard, nil
}

func funcName(entry unsafe.Pointer) string {
	fn := runtime.FuncForPC(uintptr(entry))
	if fn == nil {
		return fmt.Sprintf("%#x", uintptr(entry))
	}
	return fn.Name()
}
