package dos_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t9t/gombr/chs"
	"github.com/t9t/gombr/device"
	"github.com/t9t/gombr/dos"
	"github.com/t9t/gombr/mbr"
)

func TestVerifyCleanTable(t *testing.T) {
	sa := &scriptAsker{}
	l, _ := newTestLabel(testDiskSectors, sa)

	_, err := l.Add(0, dos.AddRequest{Start: 2048, Size: 100000})
	require.Nilf(t, err, "add failed: %v", err)
	_, err = l.Add(1, dos.AddRequest{Type: mbr.TypeExtended, Start: 102400, Size: 100000})
	require.Nilf(t, err, "add extended failed: %v", err)
	_, err = l.Add(dos.NextLogical, dos.AddRequest{Size: 10000})
	require.Nilf(t, err, "add logical failed: %v", err)

	issues, err := l.Verify()
	require.Nilf(t, err, "verify failed: %v", err)
	assert.Equal(t, 0, issues)
	assert.True(t, sa.hasInfo("unallocated"))
}

func TestVerifyOverlappingPrimaries(t *testing.T) {
	dev := device.NewImage(204800, 0)
	g := chs.New(204800)

	sect, err := mbr.SectorOf(dev.Bytes()[:mbr.SectorSize])
	require.Nil(t, err)
	fill := func(i int, start, end uint64) {
		e := sect.Entry(i)
		e.SetType(mbr.TypeLinux)
		e.SetStart(uint32(start))
		e.SetSize(uint32(end - start + 1))
		e.SetBeginCHS(g.FromLBA(start))
		e.SetEndCHS(g.FromLBA(end))
	}
	fill(0, 2048, 12047)
	fill(1, 8192, 18191)
	sect.SetSignature()

	sa := &scriptAsker{}
	l := dos.New(dev, sa)
	found, err := l.Probe()
	require.Nilf(t, err, "probe failed: %v", err)
	require.True(t, found)

	issues, err := l.Verify()
	require.Nil(t, err)
	assert.Equal(t, 1, issues)
	assert.True(t, sa.hasWarn("partition 1 overlaps partition 2"))
}

func TestVerifyCylinderBoundary(t *testing.T) {
	sa := &scriptAsker{}
	l, _ := newTestLabel(testDiskSectors, sa)
	l.SetCompatible(true)

	// ends mid-cylinder
	_, err := l.Add(0, dos.AddRequest{Start: 63, Size: 1000})
	require.Nilf(t, err, "add failed: %v", err)

	issues, err := l.Verify()
	require.Nil(t, err)
	assert.Equal(t, 1, issues)
	assert.True(t, sa.hasWarn("does not end on cylinder boundary"))

	// one full cylinder, ends exactly on the boundary
	l2, _ := newTestLabel(testDiskSectors, nil)
	l2.SetCompatible(true)
	_, err = l2.Add(0, dos.AddRequest{Start: 63, Size: 16002})
	require.Nilf(t, err, "add failed: %v", err)

	issues, err = l2.Verify()
	require.Nil(t, err)
	assert.Equal(t, 0, issues)
}

func TestVerifyLogicalOutsideExtended(t *testing.T) {
	dev := device.NewImage(204800, 0)
	g := chs.New(204800)

	sect, err := mbr.SectorOf(dev.Bytes()[:mbr.SectorSize])
	require.Nil(t, err)
	ext := sect.Entry(0)
	ext.SetType(mbr.TypeExtended)
	ext.SetStart(2048)
	ext.SetSize(46147) // ends at 48194, a cylinder boundary, so geometry recovery stays at 255/63
	ext.SetBeginCHS(g.FromLBA(2048))
	ext.SetEndCHS(g.FromLBA(48194))
	sect.SetSignature()

	ebr, err := mbr.SectorOf(dev.Bytes()[2048*512 : 2048*512+512])
	require.Nil(t, err)
	data := ebr.Entry(0)
	data.SetType(mbr.TypeLinux)
	data.SetStart(2048)
	data.SetSize(50000) // [4096, 54095], well past the extended end
	data.SetBeginCHS(g.FromLBA(4096))
	data.SetEndCHS(g.FromLBA(54095))
	ebr.SetSignature()

	sa := &scriptAsker{}
	l := dos.New(dev, sa)
	found, err := l.Probe()
	require.Nilf(t, err, "probe failed: %v", err)
	require.True(t, found)

	issues, err := l.Verify()
	require.Nil(t, err)
	assert.Equal(t, 1, issues)
	assert.True(t, sa.hasWarn("not entirely in partition 1"))
}

func TestVerifyEmptyInteriorLogical(t *testing.T) {
	dev := device.NewImage(204800, 0)
	g := chs.New(204800)

	sect, err := mbr.SectorOf(dev.Bytes()[:mbr.SectorSize])
	require.Nil(t, err)
	ext := sect.Entry(0)
	ext.SetType(mbr.TypeExtended)
	ext.SetStart(2048)
	ext.SetSize(46147)
	ext.SetBeginCHS(g.FromLBA(2048))
	ext.SetEndCHS(g.FromLBA(48194))
	sect.SetSignature()

	// first logical carries no type but a nonzero size, so the probe keeps it
	ebr1, err := mbr.SectorOf(dev.Bytes()[2048*512 : 2048*512+512])
	require.Nil(t, err)
	empty := ebr1.Entry(0)
	empty.SetStart(2048) // abs 4096, grain aligned
	empty.SetSize(1000)
	empty.SetBeginCHS(g.FromLBA(4096))
	empty.SetEndCHS(g.FromLBA(5095))
	link := ebr1.Entry(1)
	link.SetType(mbr.TypeExtended)
	link.SetStart(10000)
	link.SetSize(2000)
	ebr1.SetSignature()

	ebr2, err := mbr.SectorOf(dev.Bytes()[12048*512 : 12048*512+512])
	require.Nil(t, err)
	data := ebr2.Entry(0)
	data.SetType(mbr.TypeLinux)
	data.SetStart(2288) // abs 14336, grain aligned
	data.SetSize(1000)
	data.SetBeginCHS(g.FromLBA(14336))
	data.SetEndCHS(g.FromLBA(15335))
	ebr2.SetSignature()

	sa := &scriptAsker{}
	l := dos.New(dev, sa)
	found, err := l.Probe()
	require.Nilf(t, err, "probe failed: %v", err)
	require.True(t, found)
	require.Equal(t, 6, l.NumSlots())

	issues, err := l.Verify()
	require.Nil(t, err)
	assert.Equal(t, 1, issues)
	assert.True(t, sa.hasWarn("partition 5: empty"))
}

func TestVerifyToleratesSoleEmptyLogical(t *testing.T) {
	l, _ := newTestLabel(testDiskSectors, nil)
	_, err := l.Add(0, dos.AddRequest{Type: mbr.TypeExtended, Start: 2048, Size: 100000})
	require.Nilf(t, err, "add extended failed: %v", err)
	_, err = l.Add(dos.NextLogical, dos.AddRequest{Size: 10000})
	require.Nilf(t, err, "add logical failed: %v", err)
	require.Nil(t, l.Delete(4))

	issues, err := l.Verify()
	require.Nil(t, err)
	assert.Equal(t, 0, issues)
}

func TestVerifyRequiresLabel(t *testing.T) {
	l := dos.New(device.NewImage(testDiskSectors, 0), nil)
	_, err := l.Verify()
	assert.ErrorIs(t, err, dos.ErrFormat)
}
