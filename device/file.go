package device

import (
	"fmt"
	"os"

	"github.com/t9t/gombr/chs"
)

// File is a Device over a disk image file or a block device node. Sizing is detected when the file is opened:
// regular files report their byte length and assume 512-byte sectors, block devices are asked through the
// platform's block layer where one exists.
type File struct {
	f          *os.File
	path       string
	sizeBytes  int64
	sectorSize int
}

// Open opens path read-only.
func Open(path string) (*File, error) {
	return openFile(path, os.O_RDONLY)
}

// OpenRW opens path for reading and writing.
func OpenRW(path string) (*File, error) {
	return openFile(path, os.O_RDWR)
}

func openFile(path string, flag int) (*File, error) {
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	d := &File{f: f, path: path, sectorSize: chs.DefaultSectorSize}
	if st.Mode()&os.ModeDevice != 0 {
		size, ssz, err := blockDeviceSize(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("cannot size block device %s: %w", path, err)
		}
		d.sizeBytes = size
		if ssz > 0 {
			d.sectorSize = ssz
		}
	} else {
		d.sizeBytes = st.Size()
	}
	return d, nil
}

// SetSectorSize overrides the detected logical sector size. The capacity in sectors derives from the byte length,
// so TotalSectors changes along with it.
func (d *File) SetSectorSize(n int) error {
	if n < 512 || n%512 != 0 {
		return fmt.Errorf("sector size should be a multiple of 512 but is %d", n)
	}
	d.sectorSize = n
	return nil
}

func (d *File) ReadSector(n uint64) ([]byte, error) {
	buf := make([]byte, d.sectorSize)
	if _, err := d.f.ReadAt(buf, int64(n)*int64(d.sectorSize)); err != nil {
		return nil, &IOError{Op: "read", Sector: n, Err: err}
	}
	return buf, nil
}

func (d *File) WriteSector(n uint64, data []byte) error {
	if len(data) != d.sectorSize {
		return fmt.Errorf("sector data should be %d bytes but is %d", d.sectorSize, len(data))
	}
	if _, err := d.f.WriteAt(data, int64(n)*int64(d.sectorSize)); err != nil {
		return &IOError{Op: "write", Sector: n, Err: err}
	}
	return nil
}

func (d *File) SectorSize() int {
	return d.sectorSize
}

func (d *File) TotalSectors() uint64 {
	return uint64(d.sizeBytes) / uint64(d.sectorSize)
}

// Path returns the path the device was opened from.
func (d *File) Path() string {
	return d.path
}

// Sync flushes buffered writes to stable storage.
func (d *File) Sync() error {
	return d.f.Sync()
}

func (d *File) Close() error {
	return d.f.Close()
}
