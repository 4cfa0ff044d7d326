//go:build !arm64

package hotpatch

// x86 keeps the instruction cache coherent with stores, nothing to do.
func cacheflush(code []byte) {}
