//go:build linux

package device

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// blockDeviceSize queries the block layer for the device's capacity in bytes and its logical sector size. A
// failing BLKSSZGET is not fatal; the caller falls back to 512 in that case.
func blockDeviceSize(f *os.File) (int64, int, error) {
	var size int64
	if _, _, e := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size))); e != 0 {
		return 0, 0, fmt.Errorf("ioctl BLKGETSIZE64 failed: %v", e)
	}

	ssz, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKSSZGET)
	if err != nil {
		ssz = 0
	}
	return size, ssz, nil
}
