package device_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t9t/gombr/device"
)

func TestImageReadWriteSector(t *testing.T) {
	img := device.NewImage(4, 512)
	assert.Equal(t, 512, img.SectorSize())
	assert.Equal(t, uint64(4), img.TotalSectors())

	sec := bytes.Repeat([]byte{0xAB}, 512)
	err := img.WriteSector(2, sec)
	require.Nilf(t, err, "could not write sector 2: %v", err)

	got, err := img.ReadSector(2)
	require.Nilf(t, err, "could not read sector 2: %v", err)
	assert.Equal(t, sec, got)

	// the returned buffer is a copy, not an alias
	got[0] = 0xCD
	again, err := img.ReadSector(2)
	require.Nilf(t, err, "could not re-read sector 2: %v", err)
	assert.Equal(t, byte(0xAB), again[0])
}

func TestImageOf(t *testing.T) {
	raw := make([]byte, 3*512)
	img, err := device.ImageOf(raw, 512)
	require.Nilf(t, err, "could not wrap image bytes: %v", err)
	assert.Equal(t, uint64(3), img.TotalSectors())

	// writes through the device land in the caller's slice
	err = img.WriteSector(0, bytes.Repeat([]byte{0x55}, 512))
	require.Nilf(t, err, "could not write sector 0: %v", err)
	assert.Equal(t, byte(0x55), raw[0])

	_, err = device.ImageOf(make([]byte, 700), 512)
	assert.NotNil(t, err)
}

func TestImageOutOfRange(t *testing.T) {
	img := device.NewImage(2, 512)

	_, err := img.ReadSector(2)
	require.NotNil(t, err)
	var ioErr *device.IOError
	require.Truef(t, errors.As(err, &ioErr), "expected an IOError but got %T", err)
	assert.Equal(t, "read", ioErr.Op)
	assert.Equal(t, uint64(2), ioErr.Sector)

	err = img.WriteSector(7, make([]byte, 512))
	require.Truef(t, errors.As(err, &ioErr), "expected an IOError but got %T", err)
	assert.Equal(t, "write", ioErr.Op)
	assert.Equal(t, uint64(7), ioErr.Sector)
}

func TestImageWriteShortBuffer(t *testing.T) {
	img := device.NewImage(2, 512)
	err := img.WriteSector(0, make([]byte, 100))
	assert.NotNil(t, err)
}

func TestFileDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	raw := make([]byte, 4*512)
	for i := range raw {
		raw[i] = byte(i % 251)
	}
	err := os.WriteFile(path, raw, 0o600)
	require.Nilf(t, err, "unable to create the image file: %v", err)

	d, err := device.OpenRW(path)
	require.Nilf(t, err, "could not open image: %v", err)
	defer d.Close()

	assert.Equal(t, 512, d.SectorSize())
	assert.Equal(t, uint64(4), d.TotalSectors())

	got, err := d.ReadSector(2)
	require.Nilf(t, err, "could not read sector 2: %v", err)
	assert.Equal(t, raw[1024:1536], got)

	sec := bytes.Repeat([]byte{0xAB}, 512)
	err = d.WriteSector(3, sec)
	require.Nilf(t, err, "could not write sector 3: %v", err)

	reread, err := d.ReadSector(3)
	require.Nilf(t, err, "could not read back sector 3: %v", err)
	assert.Equal(t, sec, reread)
}

func TestFileReadBeyondEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	err := os.WriteFile(path, make([]byte, 2*512), 0o600)
	require.Nilf(t, err, "unable to create the image file: %v", err)

	d, err := device.Open(path)
	require.Nilf(t, err, "could not open image: %v", err)
	defer d.Close()

	_, err = d.ReadSector(99)
	var ioErr *device.IOError
	require.Truef(t, errors.As(err, &ioErr), "expected an IOError but got %T", err)
	assert.Equal(t, uint64(99), ioErr.Sector)
}

func TestFileSetSectorSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	err := os.WriteFile(path, make([]byte, 8*512), 0o600)
	require.Nilf(t, err, "unable to create the image file: %v", err)

	d, err := device.Open(path)
	require.Nilf(t, err, "could not open image: %v", err)
	defer d.Close()

	err = d.SetSectorSize(1024)
	require.Nilf(t, err, "could not override the sector size: %v", err)
	assert.Equal(t, 1024, d.SectorSize())
	assert.Equal(t, uint64(4), d.TotalSectors())

	assert.NotNil(t, d.SetSectorSize(100))
	assert.NotNil(t, d.SetSectorSize(-512))
}
