package dos_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t9t/gombr/device"
	"github.com/t9t/gombr/dos"
	"github.com/t9t/gombr/mbr"
)

// testDiskSectors is the standard test disk: 255 heads, 63 sectors per track, 100 cylinders.
const testDiskSectors = 255 * 63 * 100

type askAnswer struct {
	value    uint64
	relative bool
}

// scriptAsker feeds prepared answers to the label and records every notice. With no prepared answers left it
// accepts the suggested default, like a user pressing enter.
type scriptAsker struct {
	answers []askAnswer
	replies []string
	infos   []string
	warns   []string
}

func (a *scriptAsker) AskNumber(query string, low, dflt, high uint64, relativeAllowed bool) (uint64, bool, error) {
	if len(a.answers) == 0 {
		return dflt, false, nil
	}
	ans := a.answers[0]
	a.answers = a.answers[1:]
	return ans.value, ans.relative, nil
}

func (a *scriptAsker) AskString(query string) (string, error) {
	if len(a.replies) == 0 {
		return "", nil
	}
	s := a.replies[0]
	a.replies = a.replies[1:]
	return s, nil
}

func (a *scriptAsker) Info(format string, args ...interface{}) {
	a.infos = append(a.infos, fmt.Sprintf(format, args...))
}

func (a *scriptAsker) Warn(format string, args ...interface{}) {
	a.warns = append(a.warns, fmt.Sprintf(format, args...))
}

func (a *scriptAsker) hasInfo(substr string) bool {
	return anyContains(a.infos, substr)
}

func (a *scriptAsker) hasWarn(substr string) bool {
	return anyContains(a.warns, substr)
}

func anyContains(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// newTestLabel returns a fresh empty label over an in-memory disk of the given size.
func newTestLabel(sectors uint64, asker dos.Asker) (*dos.Label, *device.Image) {
	dev := device.NewImage(sectors, 0)
	l := dos.New(dev, asker)
	l.Create()
	return l, dev
}

func TestCreateEmptyLabel(t *testing.T) {
	asker := &scriptAsker{}
	l, _ := newTestLabel(testDiskSectors, asker)

	assert.Equal(t, 4, l.NumSlots())
	for i := 0; i < 4; i++ {
		assert.False(t, l.Used(i))
		assert.True(t, l.Cleared(i))
	}
	assert.True(t, l.Changed())
	assert.True(t, asker.hasInfo("created a new DOS disklabel"))
}

func TestCreateKeepsBootCode(t *testing.T) {
	dev := device.NewImage(testDiskSectors, 0)
	raw := dev.Bytes()
	raw[0] = 0xEB
	raw[1] = 0x63
	raw[510] = 0x00 // no signature

	l := dos.New(dev, nil)
	found, err := l.Probe()
	require.Nilf(t, err, "probe failed: %v", err)
	assert.False(t, found)

	l.Create()
	require.Nil(t, l.Write())

	assert.Equal(t, byte(0xEB), raw[0])
	assert.Equal(t, byte(0x63), raw[1])
	assert.Equal(t, byte(0x55), raw[510])
	assert.Equal(t, byte(0xAA), raw[511])
	assert.NotZero(t, l.ID())
}

func TestSetID(t *testing.T) {
	l, dev := newTestLabel(testDiskSectors, nil)
	require.Nil(t, l.Write())

	l.SetID(0xCAFEF00D)
	assert.True(t, l.Changed())
	require.Nil(t, l.Write())

	reread := dos.New(dev, nil)
	found, err := reread.Probe()
	require.Nilf(t, err, "probe failed: %v", err)
	require.True(t, found)
	assert.Equal(t, uint32(0xCAFEF00D), reread.ID())
}

func TestChangeID(t *testing.T) {
	asker := &scriptAsker{replies: []string{"0x12345678"}}
	l, _ := newTestLabel(testDiskSectors, asker)

	require.Nil(t, l.ChangeID())
	assert.Equal(t, uint32(0x12345678), l.ID())

	asker.replies = []string{"not a number"}
	err := l.ChangeID()
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dos.ErrRange)
	assert.Equal(t, uint32(0x12345678), l.ID())
}

func TestEditingRequiresLabel(t *testing.T) {
	dev := device.NewImage(testDiskSectors, 0)
	l := dos.New(dev, nil)

	_, err := l.Add(0, dos.AddRequest{})
	assert.ErrorIs(t, err, dos.ErrFormat)
	assert.ErrorIs(t, l.Delete(0), dos.ErrFormat)
	assert.ErrorIs(t, l.Write(), dos.ErrFormat)
}

func TestSetType(t *testing.T) {
	asker := &scriptAsker{}
	l, _ := newTestLabel(testDiskSectors, asker)
	_, err := l.Add(0, dos.AddRequest{})
	require.Nilf(t, err, "add failed: %v", err)

	require.Nil(t, l.SetType(0, 0x07))
	got, err := l.GetType(0)
	require.Nil(t, err)
	assert.Equal(t, byte(0x07), got)

	// changing into an extended container is a delete-and-recreate operation
	err = l.SetType(0, mbr.TypeExtended)
	assert.ErrorIs(t, err, dos.ErrConflict)

	require.Nil(t, l.SetType(0, 0x06))
	assert.True(t, asker.hasInfo("DOS 6.x"))

	require.Nil(t, l.SetType(0, 0x00))
	assert.True(t, asker.hasWarn("free space"))

	err = l.SetType(17, 0x83)
	assert.ErrorIs(t, err, dos.ErrRange)
}

func TestToggleBootable(t *testing.T) {
	asker := &scriptAsker{}
	l, _ := newTestLabel(testDiskSectors, asker)
	_, err := l.Add(0, dos.AddRequest{})
	require.Nilf(t, err, "add failed: %v", err)

	require.Nil(t, l.ToggleBootable(0))
	assert.True(t, l.Partitions()[0].Bootable)
	assert.True(t, asker.hasInfo("enabled"))

	require.Nil(t, l.ToggleBootable(0))
	assert.False(t, l.Partitions()[0].Bootable)
	assert.True(t, asker.hasInfo("disabled"))
}

func TestMoveBegin(t *testing.T) {
	asker := &scriptAsker{}
	l, _ := newTestLabel(testDiskSectors, asker)
	_, err := l.Add(0, dos.AddRequest{Start: 2048, Size: 2048})
	require.Nilf(t, err, "add failed: %v", err)

	asker.answers = []askAnswer{{value: 3000}}
	require.Nil(t, l.MoveBegin(0))

	p := l.Partitions()[0]
	assert.Equal(t, uint64(3000), p.Start)
	assert.Equal(t, uint64(4095), p.End)
	assert.Equal(t, uint64(1096), p.Sectors)

	// an extended partition has no data area of its own
	_, err = l.Add(1, dos.AddRequest{Type: mbr.TypeExtended, Start: 8192, Size: 4096})
	require.Nilf(t, err, "add failed: %v", err)
	assert.ErrorIs(t, l.MoveBegin(1), dos.ErrConflict)
}
