/*
	Package dos reads and edits DOS (MBR) partition tables: the four primary partition records in sector 0 plus
	the singly linked chain of extended boot records (EBRs) that carries logical partitions.

	The Label is the in-memory model. It holds a fixed arena of 60 slots; the first four alias the label's copy
	of sector 0 while each logical slot owns the one EBR sector it was read from. A Label is loaded from a
	device with Probe or initialized fresh with Create, edited through Add, Delete, SetType, ToggleBootable,
	FixOrder and friends, checked with Verify, and persisted with Write, which rewrites exactly the sectors
	whose slots are dirty.

	All mutations happen in memory until Write; a failed or skipped Write leaves the device untouched apart
	from the sectors already flushed. A Label is not safe for concurrent use.
*/
package dos

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/t9t/gombr/chs"
	"github.com/t9t/gombr/device"
	"github.com/t9t/gombr/mbr"
)

// MaxSlots is the fixed size of the slot arena: four primaries plus at most 56 logical partitions.
const MaxSlots = 60

// Sentinel errors returned (wrapped) by the editing operations; match them with errors.Is.
var (
	// ErrFormat reports an editing operation on a device that carries no valid DOS label.
	ErrFormat = errors.New("no DOS partition table")
	// ErrRange reports an explicit sector or slot number outside its valid bounds.
	ErrRange = errors.New("value out of range")
	// ErrCapacity reports a full slot arena or exhausted free space.
	ErrCapacity = errors.New("no free capacity")
	// ErrConflict reports a change that contradicts the current state of the table.
	ErrConflict = errors.New("conflicting table state")
)

// Asker answers the questions an interactive operation cannot decide on its own and receives the informational
// and warning notices all operations emit along the way. A nil Asker makes every operation non-interactive:
// suggested defaults are accepted silently and notices are dropped.
//
// AskNumber asks for a sector number in [low, high], suggesting dflt. When relativeAllowed is true the reply may
// be given relative to low (the +sectors or +size convention); the returned flag reports that the answer was
// relative, which makes it subject to alignment snapping. Returning an error from either method aborts the
// calling operation.
type Asker interface {
	AskNumber(query string, low, dflt, high uint64, relativeAllowed bool) (value uint64, relative bool, err error)
	AskString(query string) (string, error)
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

// slot is the in-memory state of one table slot. The first four alias the label's first-sector buffer and do not
// own their storage; logical slots own the private EBR sector they were read from or created into. data describes
// the slot's own partition; link points at the next EBR of the chain (on the extended anchor it is the anchor's
// own record, on the last logical it is cleared).
type slot struct {
	data   *mbr.Entry
	link   *mbr.Entry
	sector *mbr.Sector
	offset uint64 // absolute sector that data's start field is relative to
	owned  bool
	dirty  bool
}

// Label is the in-memory model of one DOS partition table on a device.
type Label struct {
	dev   device.Device
	geom  chs.Geometry
	asker Asker

	first  *mbr.Sector // sector 0; the four primary slots alias its entries
	slots  [MaxSlots]slot
	nparts int // 4 plus the number of logical slots present

	extIndex  int    // primary slot acting as the extended anchor
	extOffset uint64 // absolute base of the extended partition, 0 when there is none

	compatible   bool
	userGeometry bool // translation pinned by the caller, not to be replaced by probed CHS values
	changed      bool
	nonPTChanged bool   // sector 0 modified outside the entry table (disk identifier)
	staleEBR     uint64 // EBR sector left on disk by a deleted extended partition
}

// New returns a Label over dev with a geometry derived from the device: the conventional 255-head, 63-sector
// translation and default 1 MiB alignment. The label starts empty; call Probe or Create next.
func New(dev device.Device, asker Asker) *Label {
	g := chs.New(dev.TotalSectors())
	if ss := dev.SectorSize(); ss != g.SectorSize {
		g.SectorSize = ss
		g.PhySectorSize = ss
		g.ResetAlignment(false)
	}
	return NewWithGeometry(dev, g, asker)
}

// NewWithGeometry is New with an explicit geometry, for callers overriding heads, sectors per track, sector size
// or alignment.
func NewWithGeometry(dev device.Device, geom chs.Geometry, asker Asker) *Label {
	l := &Label{dev: dev, geom: geom, asker: asker, first: mbr.NewSector(dev.SectorSize())}
	l.init()
	return l
}

// init resets the arena to four empty primaries aliasing the first sector, dropping any logical slots' buffers.
func (l *Label) init() {
	for i := range l.slots {
		l.slots[i] = slot{}
	}
	for i := 0; i < mbr.NumEntries; i++ {
		l.slots[i] = slot{data: l.first.Entry(i), sector: l.first}
	}
	l.nparts = mbr.NumEntries
	l.extIndex = 0
	l.extOffset = 0
	l.changed = false
	l.nonPTChanged = false
	l.staleEBR = 0
}

// Reset discards all in-memory table state, as if the label had just been constructed. The first-sector buffer
// and its boot code survive.
func (l *Label) Reset() {
	l.init()
}

func (l *Label) pte(i int) *slot {
	if i < 0 || i >= l.nparts {
		return nil
	}
	return &l.slots[i]
}

// NumSlots returns the current number of slots: four primaries plus one per logical partition.
func (l *Label) NumSlots() int {
	return l.nparts
}

// Used reports whether slot i holds a partition with a nonzero size.
func (l *Label) Used(i int) bool {
	pe := l.pte(i)
	return pe != nil && pe.data != nil && pe.data.IsUsed()
}

// Cleared reports whether slot i's record is entirely zero.
func (l *Label) Cleared(i int) bool {
	pe := l.pte(i)
	return pe != nil && pe.data != nil && pe.data.IsCleared()
}

// Changed reports whether the label holds modifications not yet persisted by Write.
func (l *Label) Changed() bool {
	return l.changed
}

// ExtendedBase returns the absolute first sector of the extended partition, or 0 when the table has none.
func (l *Label) ExtendedBase() uint64 {
	return l.extOffset
}

// Compatible reports whether DOS-compatibility mode is on.
func (l *Label) Compatible() bool {
	return l.compatible
}

// SetCompatible switches DOS-compatibility mode. When on, new partitions align to track boundaries (classically
// sector 63) instead of the modern 1 MiB grain, and CHS encodings are clamped at the addressing horizon.
func (l *Label) SetCompatible(v bool) {
	l.compatible = v
	l.geom.ResetAlignment(v)
}

// Geometry returns the label's disk geometry, including any head and sector counts recovered during Probe.
func (l *Label) Geometry() chs.Geometry {
	return l.geom
}

// SetTranslation pins the cylinder translation to the given head and sector-per-track counts, as when the user
// names a geometry on the command line. A pinned translation is kept even when a probed table's CHS fields
// would suggest another one.
func (l *Label) SetTranslation(heads, sectors uint32) error {
	if heads < 1 || heads > 255 || sectors < 1 || sectors > 63 {
		return fmt.Errorf("geometry with %d heads and %d sectors per track is not addressable: %w",
			heads, sectors, ErrRange)
	}
	l.geom.Heads = heads
	l.geom.Sectors = sectors
	l.geom.Recount()
	l.geom.ResetAlignment(l.compatible)
	l.userGeometry = true
	return nil
}

// ID returns the 32-bit disk identifier stored in sector 0.
func (l *Label) ID() uint32 {
	return l.first.DiskID()
}

// SetID replaces the disk identifier.
func (l *Label) SetID(id uint32) {
	old := l.first.DiskID()
	l.first.SetDiskID(id)
	l.nonPTChanged = true
	l.changed = true
	l.info("disk identifier changed from 0x%08x to 0x%08x", old, id)
}

// ChangeID asks for a new disk identifier and applies it. The reply is parsed with a free base, so the customary
// 0x prefix works.
func (l *Label) ChangeID() error {
	if l.asker == nil {
		return nil
	}
	s, err := l.asker.AskString("New disk identifier")
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return fmt.Errorf("incorrect identifier %q: %w", s, ErrRange)
	}
	l.SetID(uint32(id))
	return nil
}

// requireLabel rejects editing operations while sector 0 carries no boot signature, that is before a successful
// Probe or Create.
func (l *Label) requireLabel() error {
	if !l.first.HasSignature() {
		return fmt.Errorf("sector 0 has no boot signature: %w", ErrFormat)
	}
	return nil
}

// absStart returns the absolute first sector of a slot's partition.
func (l *Label) absStart(pe *slot) uint64 {
	return pe.offset + uint64(pe.data.Start())
}

// absEnd returns the absolute last sector of a slot's partition; for an empty record it equals the start.
func (l *Label) absEnd(pe *slot) uint64 {
	sz := uint64(pe.data.Size())
	if sz != 0 {
		sz--
	}
	return l.absStart(pe) + sz
}

func (l *Label) markChanged(i int) {
	l.slots[i].dirty = true
	l.changed = true
}

func (l *Label) info(format string, args ...interface{}) {
	if l.asker != nil {
		l.asker.Info(format, args...)
	}
}

func (l *Label) warn(format string, args ...interface{}) {
	if l.asker != nil {
		l.asker.Warn(format, args...)
	}
}

// askNumber routes a numeric question to the asker, accepting dflt silently when the label is non-interactive.
// The answer is checked against the bounds once more so a sloppy asker cannot corrupt the table.
func (l *Label) askNumber(query string, low, dflt, high uint64, relativeAllowed bool) (uint64, bool, error) {
	if l.asker == nil {
		return dflt, false, nil
	}
	v, relative, err := l.asker.AskNumber(query, low, dflt, high, relativeAllowed)
	if err != nil {
		return 0, false, err
	}
	if v < low || v > high {
		return 0, false, fmt.Errorf("answer %d to %q is outside %d-%d: %w", v, query, low, high, ErrRange)
	}
	return v, relative, nil
}
