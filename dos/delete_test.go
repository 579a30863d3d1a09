package dos_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t9t/gombr/device"
	"github.com/t9t/gombr/dos"
	"github.com/t9t/gombr/mbr"
)

// threeLogicals builds an extended partition holding three logicals, in DOS-compatible geometry so the chain
// layout is track-aligned and predictable.
func threeLogicals(t *testing.T) (*dos.Label, *device.Image) {
	t.Helper()
	l, dev := newTestLabel(testDiskSectors, nil)
	l.SetCompatible(true)

	_, err := l.Add(0, dos.AddRequest{Type: mbr.TypeExtended, Start: 2048, Size: 997952})
	require.Nilf(t, err, "add extended failed: %v", err)
	for i, size := range []uint64{100000, 200000, 50000} {
		_, err = l.Add(dos.NextLogical, dos.AddRequest{Size: size})
		require.Nilf(t, err, "add logical %d failed: %v", i+1, err)
	}
	require.Equal(t, 7, l.NumSlots())
	return l, dev
}

func reprobed(t *testing.T, dev *device.Image) *dos.Label {
	t.Helper()
	l := dos.New(dev, nil)
	found, err := l.Probe()
	require.Nilf(t, err, "probe failed: %v", err)
	require.True(t, found)
	return l
}

func TestDeleteInteriorLogical(t *testing.T) {
	l, dev := threeLogicals(t)

	require.Nil(t, l.Delete(5))
	assert.Equal(t, 6, l.NumSlots())

	parts := l.Partitions()
	require.Len(t, parts, 3)
	assert.Equal(t, uint64(2111), parts[1].Start)
	assert.Equal(t, uint64(302237), parts[2].Start)
	assert.Equal(t, 5, parts[2].Index) // no gap in slot numbering

	require.Nil(t, l.Write())
	after := reprobed(t, dev).Partitions()
	require.Len(t, after, 3)
	assert.Equal(t, uint64(302237), after[2].Start)
	assert.Equal(t, uint64(50000), after[2].Sectors)
}

func TestDeleteFirstLogicalPromotesSecond(t *testing.T) {
	l, dev := threeLogicals(t)

	require.Nil(t, l.Delete(4))
	assert.Equal(t, 6, l.NumSlots())

	parts := l.Partitions()
	require.Len(t, parts, 3)
	// the former second logical keeps its data location while becoming the chain head
	assert.Equal(t, uint64(102174), parts[1].Start)
	assert.Equal(t, 4, parts[1].Index)

	require.Nil(t, l.Write())
	after := reprobed(t, dev)
	require.Equal(t, 6, after.NumSlots())
	ps := after.Partitions()
	require.Len(t, ps, 3)
	assert.Equal(t, uint64(102174), ps[1].Start)
	assert.Equal(t, uint64(302237), ps[2].Start)
}

func TestDeleteLastLogicalTerminatesChain(t *testing.T) {
	l, dev := threeLogicals(t)

	require.Nil(t, l.Delete(6))
	assert.Equal(t, 6, l.NumSlots())
	require.Len(t, l.Partitions(), 3)

	require.Nil(t, l.Write())
	after := reprobed(t, dev)
	require.Equal(t, 6, after.NumSlots())
	ps := after.Partitions()
	require.Len(t, ps, 3)
	assert.Equal(t, uint64(102174), ps[2].Start)
}

func TestDeleteOnlyLogicalKeepsSlot(t *testing.T) {
	l, _ := newTestLabel(testDiskSectors, nil)
	l.SetCompatible(true)
	_, err := l.Add(0, dos.AddRequest{Type: mbr.TypeExtended, Start: 2048, Size: 997952})
	require.Nilf(t, err, "add extended failed: %v", err)
	_, err = l.Add(dos.NextLogical, dos.AddRequest{Size: 100000})
	require.Nilf(t, err, "add logical failed: %v", err)

	require.Nil(t, l.Delete(4))
	assert.Equal(t, 5, l.NumSlots())
	assert.False(t, l.Used(4))
	require.Len(t, l.Partitions(), 1)
}

func TestDeleteAnchorRemovesChain(t *testing.T) {
	l, dev := threeLogicals(t)
	require.Nil(t, l.Write())

	require.Nil(t, l.Delete(0))
	assert.Equal(t, 4, l.NumSlots())
	assert.Empty(t, l.Partitions())

	require.Nil(t, l.Write())

	// the stale boot record at the old extended base is erased
	raw := dev.Bytes()
	ebr := raw[2048*512 : 2048*512+512]
	for _, b := range ebr {
		if b != 0 {
			t.Fatalf("stale boot record at sector 2048 not erased")
		}
	}

	after := reprobed(t, dev)
	assert.Equal(t, 4, after.NumSlots())
	assert.Empty(t, after.Partitions())
}

func TestDeletePrimary(t *testing.T) {
	l, _ := newTestLabel(testDiskSectors, nil)
	_, err := l.Add(0, dos.AddRequest{Start: 2048, Size: 100000})
	require.Nilf(t, err, "add failed: %v", err)

	require.Nil(t, l.Delete(0))
	assert.False(t, l.Used(0))
	assert.True(t, l.Cleared(0))
	assert.True(t, l.Changed())

	err = l.Delete(17)
	assert.ErrorIs(t, err, dos.ErrRange)
}
