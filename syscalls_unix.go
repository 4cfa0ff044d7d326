//go:build linux || freebsd || netbsd || openbsd || dragonfly

package hotpatch

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

type protection int

const (
	protRX  protection = unix.PROT_READ | unix.PROT_EXEC
	protRWX protection = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
)

// protect sets the protection of the pages in [start, start+size).
//
// mprotect can't report what the protection was before, so the previous
// value is always read+execute, which is what the text segment is mapped as.
func protect(start, size uintptr, prot protection) (protection, error) {
	region := unsafe.Slice((*byte)(unsafe.Pointer(start)), size)
	return protRX, unix.Mprotect(region, int(prot))
}
