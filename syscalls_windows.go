//go:build windows

package hotpatch

import (
	"golang.org/x/sys/windows"
)

type protection uint32

const (
	protRX  protection = windows.PAGE_EXECUTE_READ
	protRWX protection = windows.PAGE_EXECUTE_READWRITE
)

// protect sets the protection of the pages in [start, start+size) and returns
// the protection the first page had before.
func protect(start, size uintptr, prot protection) (protection, error) {
	var prev uint32
	err := windows.VirtualProtect(start, size, uint32(prot), &prev)
	return protection(prev), err
}
