package dos

import (
	"github.com/t9t/gombr/mbr"
)

// WrongOrder returns the index of the first slot whose absolute start precedes that of the used slot before it,
// or 0 when the table is ordered. Primaries and logicals are checked independently; the tracker restarts at
// slot 4.
func (l *Label) WrongOrder() int {
	return l.wrongOrder(nil)
}

func (l *Label) wrongOrder(prev *int) int {
	var lastStart uint64
	lastIndex := 0

	for i := 0; i < l.nparts; i++ {
		pe := l.pte(i)

		if i == mbr.NumEntries {
			lastIndex = mbr.NumEntries
			lastStart = 0
		}
		if pe.data.IsUsed() {
			start := l.absStart(pe)
			if lastStart > start {
				if prev != nil {
					*prev = lastIndex
				}
				return i
			}
			lastStart = start
			lastIndex = i
		}
	}
	return 0
}

// FixOrder rewrites the table so that slot order matches disk order: out-of-place primary records are swapped,
// and the logical chain is sorted and relinked. The set of partitions and the sectors they occupy do not change,
// only which slot describes which region. All touched slots become dirty.
func (l *Label) FixOrder() error {
	if err := l.requireLabel(); err != nil {
		return err
	}
	if l.wrongOrder(nil) == 0 {
		l.info("nothing to do, ordering is correct already")
		return nil
	}

	var i int
	for {
		var k int
		i = l.wrongOrder(&k)
		if i == 0 || i >= mbr.NumEntries {
			break
		}

		// Partition i should have come earlier; swap the raw records of the two slots. When one of them
		// is the extended anchor, the anchor bookkeeping follows its record to the other slot.
		pei, pek := l.pte(i), l.pte(k)

		var tmp [mbr.EntrySize]byte
		copy(tmp[:], pei.data.Data())
		copy(pei.data.Data(), pek.data.Data())
		copy(pek.data.Data(), tmp[:])

		if l.extOffset != 0 && (l.extIndex == i || l.extIndex == k) {
			if l.extIndex == i {
				l.extIndex = k
			} else {
				l.extIndex = i
			}
			pei.link, pek.link = nil, nil
			anchor := l.pte(l.extIndex)
			anchor.link = anchor.data
		}

		l.markChanged(i)
		l.markChanged(k)
	}

	if i != 0 {
		l.fixChainOfLogicals()
	}

	l.info("done")
	return nil
}

// fixChainOfLogicals sorts the logical slots so that boot-record sectors and partition starts both increase,
// then rebuilds the forward links. The extended partition's own record (slot 4) stays where it is, since its
// sector is the chain's global base. Absolute starts are carried in full width while the records shuffle; the
// stored relative starts are recomputed only once every record has found its final boot-record sector, so a
// record passing through a sector above its own data never wraps the 32-bit field.
func (l *Label) fixChainOfLogicals() {
	abs := make([]uint64, l.nparts)
	for j := mbr.NumEntries; j < l.nparts; j++ {
		abs[j] = l.absStart(l.pte(j))
	}

	// Stage 1: sort the boot-record offsets.
	restart := true
	for restart {
		restart = false
		for j := 5; j+1 < l.nparts; j++ {
			pj, pjj := l.pte(j), l.pte(j+1)
			if pj.offset <= pjj.offset {
				continue
			}
			pj.offset, pjj.offset = pjj.offset, pj.offset
			restart = true
		}
	}

	// Stage 2: sort the starting sectors by swapping the data records between adjacent slots.
	restart = true
	for restart {
		restart = false
		for j := mbr.NumEntries; j+1 < l.nparts; j++ {
			pj, pjj := l.pte(j), l.pte(j+1)
			if abs[j] <= abs[j+1] {
				continue
			}

			var tmp [mbr.EntrySize]byte
			copy(tmp[:], pj.data.Data())
			copy(pj.data.Data(), pjj.data.Data())
			copy(pjj.data.Data(), tmp[:])
			abs[j], abs[j+1] = abs[j+1], abs[j]

			restart = true
			break
		}
	}

	// Every record now sits at or above its boot-record sector; rewrite the relative starts against the
	// final bases.
	for j := mbr.NumEntries; j < l.nparts; j++ {
		pe := l.pte(j)
		pe.data.SetStart(uint32(abs[j] - pe.offset))
	}

	// Stage 3: rebuild every forward link for the new order and terminate the chain.
	for j := mbr.NumEntries; j+1 < l.nparts; j++ {
		next := l.pte(j + 1)
		l.setPartition(j, true, next.offset, l.absEnd(next), mbr.TypeExtended)
	}
	l.pte(l.nparts - 1).link.Clear()

	for j := mbr.NumEntries; j < l.nparts; j++ {
		l.markChanged(j)
	}
}
