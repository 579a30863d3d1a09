package dos

import (
	"fmt"

	"github.com/t9t/gombr/chs"
	"github.com/t9t/gombr/mbr"
)

// Partition is one row of a table listing: a used slot with its location resolved to absolute sectors.
type Partition struct {
	Index    int // slot index, zero-based
	Bootable bool
	Start    uint64 // absolute first sector
	End      uint64 // absolute last sector
	Sectors  uint64
	Type     byte
	TypeName string
	Logical  bool
}

// Partitions returns a summary of every used slot in slot order, primaries first.
func (l *Label) Partitions() []Partition {
	var parts []Partition
	for i := 0; i < l.nparts; i++ {
		pe := l.pte(i)
		p := pe.data
		if !p.IsUsed() {
			continue
		}
		parts = append(parts, Partition{
			Index:    i,
			Bootable: p.Bootable(),
			Start:    l.absStart(pe),
			End:      l.absEnd(pe),
			Sectors:  uint64(p.Size()),
			Type:     p.Type(),
			TypeName: mbr.TypeName(p.Type()),
			Logical:  i >= mbr.NumEntries,
		})
	}
	return parts
}

// RecordFields is the stored content of one partition record, undecoded: the CHS triples are unpacked but the
// start stays relative to its slot's base.
type RecordFields struct {
	BootIndicator byte
	Begin         chs.CHS
	End           chs.CHS
	Start         uint32
	Size          uint32
	Type          byte
}

// Record is the raw view of one slot for low-level table dumps: its data record, the forward link record on
// logical slots, and the base sector the data record's start field is relative to. Link starts are relative to
// the extended partition's base instead.
type Record struct {
	Base uint64
	Data RecordFields
	Link *RecordFields
}

// Records returns the raw view of every slot, empty ones included, in slot order.
func (l *Label) Records() []Record {
	recs := make([]Record, l.nparts)
	for i := 0; i < l.nparts; i++ {
		pe := l.pte(i)
		recs[i] = Record{Base: pe.offset, Data: recordFields(pe.data)}
		if i >= mbr.NumEntries && pe.link != nil {
			f := recordFields(pe.link)
			recs[i].Link = &f
		}
	}
	return recs
}

func recordFields(e *mbr.Entry) RecordFields {
	return RecordFields{
		BootIndicator: e.BootIndicator(),
		Begin:         e.BeginCHS(),
		End:           e.EndCHS(),
		Start:         e.Start(),
		Size:          e.Size(),
		Type:          e.Type(),
	}
}

// IsGarbage reports whether the primary records look like no partition table at all: a boot indicator that is
// neither zero nor ActiveFlag. A sector can carry the boot signature and still be, say, a FAT boot sector, so
// this is worth consulting before trusting Probe's verdict on an unfamiliar device.
func (l *Label) IsGarbage() bool {
	for i := 0; i < mbr.NumEntries; i++ {
		b := l.first.Entry(i).BootIndicator()
		if b != 0 && b != mbr.ActiveFlag {
			return true
		}
	}
	return false
}

// MoveBegin moves the beginning of partition n's data area while its end stays put, growing or shrinking the
// partition at the front. The new beginning may be any sector between the end of the preceding allocation and
// the partition's last sector; the asker chooses, defaulting to the current beginning.
func (l *Label) MoveBegin(n int) error {
	if err := l.requireLabel(); err != nil {
		return err
	}
	pe := l.pte(n)
	if pe == nil {
		return fmt.Errorf("partition %d does not exist: %w", n+1, ErrRange)
	}

	p := pe.data
	if !p.IsUsed() || p.IsExtended() {
		return fmt.Errorf("partition %d has no data area to move: %w", n+1, ErrConflict)
	}

	// By default data may begin right after this slot's boot record, or at sector 1 for a primary; any
	// used partition ending closer to the current beginning pushes the bound up.
	freeStart := uint64(1)
	if pe.offset != 0 {
		freeStart = pe.offset + 1
	}
	currStart := l.absStart(pe)

	for x := 0; x < l.nparts; x++ {
		q := l.pte(x)
		if q.data == nil || !q.data.IsUsed() {
			continue
		}
		end := l.absStart(q) + uint64(q.data.Size())
		if end > freeStart && end <= currStart {
			freeStart = end
		}
	}

	last := currStart + uint64(p.Size()) - 1

	res, _, err := l.askNumber("New beginning of data", freeStart, currStart, last, false)
	if err != nil {
		return err
	}

	newStart := uint32(res - pe.offset)
	if newStart != p.Start() {
		p.SetSize(p.Size() + p.Start() - newStart)
		p.SetStart(newStart)
		l.markChanged(n)
	}
	return nil
}
