package dos

import (
	"github.com/t9t/gombr/mbr"
)

// Write persists the table, rewriting exactly the sectors that changed: sector 0 when a primary slot or a
// non-partition field (disk identifier, boot code) is dirty, and each dirty logical slot's boot record at its
// own offset. Every written sector carries the boot signature. Successfully written slots have their dirty
// flag cleared, so a failed write can be retried and resumes where it stopped.
func (l *Label) Write() error {
	if err := l.requireLabel(); err != nil {
		return err
	}

	mbrChanged := l.nonPTChanged
	for i := 0; i < mbr.NumEntries && !mbrChanged; i++ {
		mbrChanged = l.slots[i].dirty
	}
	if mbrChanged {
		l.first.SetSignature()
		if err := l.dev.WriteSector(0, l.first.Data()); err != nil {
			return err
		}
		for i := 0; i < mbr.NumEntries; i++ {
			l.slots[i].dirty = false
		}
		l.nonPTChanged = false
	}

	// When the whole extended partition was deleted its first boot record stays behind on disk; erase it
	// so a later probe cannot pick up the dangling header.
	if l.staleEBR != 0 && l.nparts == mbr.NumEntries {
		if err := l.dev.WriteSector(l.staleEBR, make([]byte, l.dev.SectorSize())); err != nil {
			return err
		}
		l.staleEBR = 0
	}

	for i := mbr.NumEntries; i < l.nparts; i++ {
		pe := l.pte(i)
		if !pe.dirty || pe.sector == nil {
			continue
		}
		pe.sector.SetSignature()
		if err := l.dev.WriteSector(pe.offset, pe.sector.Data()); err != nil {
			return err
		}
		pe.dirty = false
	}

	l.changed = false
	return nil
}

// Locate describes the n-th on-disk area holding partition-table data, for backup tools: area 0 is the MBR,
// area n > 0 the boot record of logical slot 4+n-1. It reports ok false past the last area.
func (l *Label) Locate(n int) (name string, offset uint64, size int, ok bool) {
	switch {
	case n == 0:
		return "MBR", 0, l.first.Size(), true
	case n > 0 && mbr.NumEntries+n-1 < l.nparts:
		pe := l.pte(mbr.NumEntries + n - 1)
		if pe.sector == nil || !pe.owned {
			return "", 0, 0, false
		}
		return "EBR", pe.offset * uint64(l.geom.SectorSize), pe.sector.Size(), true
	default:
		return "", 0, 0, false
	}
}
