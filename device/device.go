// Package device provides sector-addressed access to the disks and disk images a partition table lives on. A
// Device reports its logical sector size and capacity; all addressing is in logical sectors of that size.
package device

import (
	"errors"
	"fmt"

	"github.com/t9t/gombr/binutil"
	"github.com/t9t/gombr/chs"
)

// Device is a block device or disk image addressed in whole sectors. ReadSector returns a freshly allocated buffer
// of SectorSize bytes that the caller owns; WriteSector expects a buffer of exactly SectorSize bytes.
// Implementations need not be safe for concurrent use.
type Device interface {
	ReadSector(n uint64) ([]byte, error)
	WriteSector(n uint64, data []byte) error
	SectorSize() int
	TotalSectors() uint64
}

// IOError describes a failed sector transfer on a Device and wraps the underlying cause.
type IOError struct {
	Op     string // "read" or "write"
	Sector uint64
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cannot %s sector %d: %v", e.Op, e.Sector, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

var errOutOfRange = errors.New("sector number beyond end of device")

// Image is an in-memory Device backed by a byte slice.
type Image struct {
	data       []byte
	sectorSize int
}

// NewImage returns an all-zero in-memory device of totalSectors sectors of sectorSize bytes each. A sectorSize of
// zero selects the conventional 512.
func NewImage(totalSectors uint64, sectorSize int) *Image {
	if sectorSize == 0 {
		sectorSize = chs.DefaultSectorSize
	}
	return &Image{data: make([]byte, totalSectors*uint64(sectorSize)), sectorSize: sectorSize}
}

// ImageOf wraps existing raw image bytes as a device. The slice is aliased, not copied, so writes through the image
// are visible to the caller. The length must be a whole number of sectors.
func ImageOf(data []byte, sectorSize int) (*Image, error) {
	if sectorSize == 0 {
		sectorSize = chs.DefaultSectorSize
	}
	if len(data)%sectorSize != 0 {
		return nil, fmt.Errorf("image length should be a multiple of %d but is %d", sectorSize, len(data))
	}
	return &Image{data: data, sectorSize: sectorSize}, nil
}

func (img *Image) ReadSector(n uint64) ([]byte, error) {
	if n >= img.TotalSectors() {
		return nil, &IOError{Op: "read", Sector: n, Err: errOutOfRange}
	}
	off := int(n) * img.sectorSize
	return binutil.Duplicate(img.data[off : off+img.sectorSize]), nil
}

func (img *Image) WriteSector(n uint64, data []byte) error {
	if len(data) != img.sectorSize {
		return fmt.Errorf("sector data should be %d bytes but is %d", img.sectorSize, len(data))
	}
	if n >= img.TotalSectors() {
		return &IOError{Op: "write", Sector: n, Err: errOutOfRange}
	}
	copy(img.data[int(n)*img.sectorSize:], data)
	return nil
}

func (img *Image) SectorSize() int {
	return img.sectorSize
}

func (img *Image) TotalSectors() uint64 {
	return uint64(len(img.data) / img.sectorSize)
}

// Bytes returns the backing slice of the image.
func (img *Image) Bytes() []byte {
	return img.data
}
