//go:build !linux

package device

import (
	"io"
	"os"
)

// blockDeviceSize falls back to seeking to the end of the device on platforms without a block-layer query. The
// sector size cannot be discovered this way, so 0 is returned and the caller assumes 512.
func blockDeviceSize(f *os.File) (int64, int, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, 0, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	return size, 0, nil
}
