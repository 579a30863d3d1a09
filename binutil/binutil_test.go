package binutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/t9t/gombr/binutil"
)

func TestIsOnlyZeroesYes(t *testing.T) {
	assert.True(t, binutil.IsOnlyZeroes([]byte{0, 0, 0, 0, 0, 0}))
}

func TestIsOnlyZeroesNo(t *testing.T) {
	assert.False(t, binutil.IsOnlyZeroes([]byte{0, 0, 0, 0, 0, 1}))
}

func TestPutUint32(t *testing.T) {
	b := make([]byte, 6)
	binutil.NewLittleEndianWriter(b).PutUint32(1, 0xCAFEBABE)
	assert.Equal(t, []byte{0x00, 0xBE, 0xBA, 0xFE, 0xCA, 0x00}, b)
}

func TestPutUint16(t *testing.T) {
	b := make([]byte, 4)
	binutil.NewLittleEndianWriter(b).PutUint16(2, 0xAA55)
	assert.Equal(t, []byte{0x00, 0x00, 0x55, 0xAA}, b)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	b := make([]byte, 16)
	w := binutil.NewLittleEndianWriter(b)
	w.PutByte(0, 0x80)
	w.PutUint32(8, 2048)
	w.PutUint64(4, 0x0102030405060708)

	r := binutil.NewLittleEndianReader(b)
	assert.Equal(t, byte(0x80), r.Byte(0))
	assert.Equal(t, uint64(0x0102030405060708), r.Uint64(4))
	// the Uint32 overlaps the tail of the Uint64 written after it
	assert.Equal(t, uint32(0x01020304), r.Uint32(8))
}

func TestPut(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5}
	binutil.NewLittleEndianWriter(b).Put(1, []byte{9, 8})
	assert.Equal(t, []byte{1, 9, 8, 4, 5}, b)
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5}
	binutil.NewLittleEndianWriter(b).Zero(1, 3)
	assert.Equal(t, []byte{1, 0, 0, 0, 5}, b)
}

func TestWriterSharesBacking(t *testing.T) {
	b := make([]byte, 4)
	w := binutil.NewLittleEndianWriter(b)
	w.PutUint16(0, 0x55AA)
	assert.Equal(t, b, w.Data())
	assert.Equal(t, 4, w.Length())
}
