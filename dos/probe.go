package dos

import (
	"bytes"

	"github.com/t9t/gombr/mbr"
)

// aixMagic opens an AIX physical volume header. Such disks are never DOS-labeled, whatever the signature bytes
// happen to say.
var aixMagic = []byte{0xC9, 0xC2, 0xD4, 0xC1}

// Probe reads sector 0 and, when it carries a valid DOS label, loads the four primary slots and walks the chain
// of extended boot records into logical slots. It returns false without an error when the sector holds no DOS
// label; the sector content is kept either way, so boot code survives a subsequent Create. Damage found along the
// chain is reported through the asker and truncates the walk instead of failing the probe.
func (l *Label) Probe() (bool, error) {
	buf, err := l.dev.ReadSector(0)
	if err != nil {
		return false, err
	}
	copy(l.first.Data(), buf)
	l.init()

	if bytes.HasPrefix(l.first.Data(), aixMagic) {
		return false, nil
	}
	if !l.first.HasSignature() {
		return false, nil
	}

	l.recoverGeometry()

	for i := 0; i < mbr.NumEntries; i++ {
		if l.slots[i].data.IsExtended() {
			if l.nparts != mbr.NumEntries {
				l.warn("ignoring extra extended partition %d", i+1)
			} else {
				l.readExtended(i)
			}
		}
	}

	for i := 4; i < l.nparts; i++ {
		pe := &l.slots[i]
		if !pe.sector.HasSignature() {
			data := pe.sector.Data()
			l.info("invalid flag 0x%02x%02x of partition table %d will be corrected by write",
				data[mbr.SectorSize-2], data[mbr.SectorSize-1], i+1)
			l.markChanged(i)
		}
	}

	return true, nil
}

// recoverGeometry infers the head and sector-per-track counts the table's author used from the end CHS of the
// used primary records. Only a unanimous, nonzero answer replaces the translation defaults; a translation pinned
// with SetTranslation is never replaced.
func (l *Label) recoverGeometry() {
	if l.userGeometry {
		return
	}
	var hh, ss uint32
	first, bad := true, false
	for i := 0; i < mbr.NumEntries; i++ {
		e := l.first.Entry(i)
		if e.Type() == 0 {
			continue
		}
		end := e.EndCHS()
		h, s := uint32(end.Head)+1, uint32(end.Sector)
		if first {
			hh, ss = h, s
			first = false
		} else if hh != h || ss != s {
			bad = true
		}
	}
	if !first && !bad && hh != 0 && ss != 0 {
		l.geom.Heads = hh
		l.geom.Sectors = ss
		l.geom.Recount()
	}
}

// readSlot loads the EBR at the given absolute sector into slot i. A failed read is reported and leaves a zeroed
// buffer behind, which ends the chain walk at this slot.
func (l *Label) readSlot(i int, offset uint64) {
	var sec *mbr.Sector
	buf, err := l.dev.ReadSector(offset)
	if err == nil {
		sec, err = mbr.SectorOf(buf)
	}
	if err != nil {
		l.warn("failed to read extended partition table (offset=%d): %v", offset, err)
		size := l.dev.SectorSize()
		if size < mbr.SectorSize {
			size = mbr.SectorSize
		}
		sec = mbr.NewSector(size)
	}

	l.slots[i] = slot{sector: sec, offset: offset, owned: true}
}

// readExtended walks the EBR chain anchored at primary slot ext, materializing one logical slot per record. The
// walk caps at the arena size and stops at a cleared or non-extended link; afterwards empty interior slots are
// dropped the way dead chain tails leave them behind.
func (l *Label) readExtended(ext int) {
	l.extIndex = ext
	pex := &l.slots[ext]
	pex.link = pex.data

	p := pex.data
	if p.Start() == 0 {
		l.warn("bad offset in primary extended partition")
		return
	}

	for p.IsExtended() {
		if l.nparts >= MaxSlots {
			l.warn("omitting partitions after #%d, they will be deleted if you save this partition table",
				l.nparts)
			l.slots[l.nparts-1].link.Clear()
			l.markChanged(l.nparts - 1)
			return
		}

		l.readSlot(l.nparts, l.extOffset+uint64(p.Start()))
		if l.extOffset == 0 {
			l.extOffset = uint64(p.Start())
		}

		pe := &l.slots[l.nparts]
		dataIdx, linkIdx := -1, -1
		for i := 0; i < mbr.NumEntries; i++ {
			e := pe.sector.Entry(i)
			if e.Size() == 0 {
				continue
			}
			if e.IsExtended() {
				if linkIdx >= 0 {
					l.warn("extra link pointer in partition table %d", l.nparts+1)
				} else {
					linkIdx = i
				}
			} else if e.Type() != 0 {
				if dataIdx >= 0 {
					l.warn("ignoring extra data in partition table %d", l.nparts+1)
				} else {
					dataIdx = i
				}
			}
		}

		// nothing classifiable: fall back to the conventional first two entries
		if dataIdx < 0 {
			if linkIdx != 0 {
				dataIdx = 0
			} else {
				dataIdx = 1
			}
		}
		if linkIdx < 0 {
			if dataIdx != 0 {
				linkIdx = 0
			} else {
				linkIdx = 1
			}
		}
		pe.data = pe.sector.Entry(dataIdx)
		pe.link = pe.sector.Entry(linkIdx)

		p = pe.link
		l.nparts++
	}

	// remove empty links
	removed := true
	for removed {
		removed = false
		for i := 4; i < l.nparts; i++ {
			if l.slots[i].data.Size() == 0 && (l.nparts > 5 || l.slots[4].data.Type() != 0) {
				l.info("omitting empty partition (%d)", i+1)
				l.deletePartition(i)
				removed = true
				break
			}
		}
	}
}
