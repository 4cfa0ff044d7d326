//go:build arm64 && !cgo

package hotpatch

// Patching on arm64 needs a C compiler to flush the instruction cache.
// Install one and build with CGO_ENABLED=1.
func cacheflush(code []byte) {
	hotpatch_on_arm64_requires_cgo()
}
