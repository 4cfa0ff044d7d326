package hotpatch

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// fatalf reports a failed protection change. The process cannot continue
// safely with code pages in an unknown state, so it must not return.
var fatalf = klog.Fatalf

// writeCode copies src over the executable code at dst.
//
// The pages covering the write are made writable for the duration of the
// copy and then given back their previous protection.
func writeCode(dst unsafe.Pointer, src []byte) {
	start, size := pageSpan(uintptr(dst), len(src))

	prev, err := protect(start, size, protRWX)
	if err != nil {
		fatalf("%+v", errors.Wrapf(err, "unable to make %#x-%#x writable", start, start+size))
		return
	}

	code := unsafe.Slice((*byte)(dst), len(src))
	copy(code, src)
	cacheflush(code)

	_, err = protect(start, size, prev)
	if err != nil {
		fatalf("%+v", errors.Wrapf(err, "unable to restore protection of %#x-%#x", start, start+size))
	}
}

// pageSpan returns the start of the page holding addr and the length of the
// whole pages needed to cover size bytes from addr.
//
// Example: with 4096 byte pages, addr=0x1ffc and size=12 gives 0x1000 and
// 0x2000.
func pageSpan(addr uintptr, size int) (uintptr, uintptr) {
	pageSize := uintptr(os.Getpagesize())

	start := addr &^ (pageSize - 1)
	end := (addr + uintptr(size) + pageSize - 1) &^ (pageSize - 1)

	return start, end - start
}
