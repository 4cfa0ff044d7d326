//go:build arm64 && cgo

package hotpatch

/*
static void clear_icache(char *start, char *end) {
	__builtin___clear_cache(start, end);
}
*/
import "C"

import "unsafe"

// cacheflush invalidates the instruction cache for code that was just
// rewritten. arm64 does not keep the instruction and data caches coherent.
func cacheflush(code []byte) {
	start := unsafe.Pointer(unsafe.SliceData(code))
	end := unsafe.Add(start, len(code))
	C.clear_icache((*C.char)(start), (*C.char)(end))
}
