package dos

import (
	"github.com/t9t/gombr/chs"
	"github.com/t9t/gombr/mbr"
)

// Verify checks the table for inconsistencies, reports every finding through the asker's Warn channel and
// returns how many there were. Nothing is corrected here; FixOrder is the explicit repair for ordering
// problems, everything else is left to the caller.
func (l *Label) Verify() (int, error) {
	if err := l.requireLabel(); err != nil {
		return 0, err
	}

	issues := 0
	complain := func(format string, args ...interface{}) {
		issues++
		l.warn(format, args...)
	}

	first, last := l.fillBounds()
	total := uint64(1)

	for i := 0; i < l.nparts; i++ {
		pe := l.pte(i)
		p := pe.data

		if !p.IsUsed() || p.IsExtended() {
			continue
		}

		l.checkConsistency(p, i, complain)

		start := l.absStart(pe)
		if !l.geom.IsAligned(start) {
			complain("partition %d does not start on physical sector boundary", i+1)
		}
		if start < first[i] {
			complain("partition %d: bad start-of-data", i+1)
		}
		l.checkEnd(i+1, p.EndCHS(), last[i], complain)
		total += last[i] + 1 - first[i]

		for j := 0; j < i; j++ {
			if (first[i] >= first[j] && first[i] <= last[j]) ||
				(last[i] <= last[j] && last[i] >= first[j]) {
				complain("partition %d overlaps partition %d", j+1, i+1)

				if first[i] >= first[j] {
					total += first[i]
				} else {
					total += first[j]
				}
				if last[i] <= last[j] {
					total -= last[i]
				} else {
					total -= last[j]
				}
			}
		}
	}

	if l.extOffset != 0 {
		q := l.slots[l.extIndex].data
		extLast := uint64(q.Start()) + uint64(q.Size()) - 1

		for i := mbr.NumEntries; i < l.nparts; i++ {
			total++
			p := l.pte(i).data

			if p.Type() == 0 {
				// A single terminal logical may sit empty; anything else in the chain should
				// have been pruned at probe time.
				if i != mbr.NumEntries || i+1 < l.nparts {
					complain("partition %d: empty", i+1)
				}
			} else if first[i] < l.extOffset || last[i] > extLast {
				complain("logical partition %d not entirely in partition %d", i+1, l.extIndex+1)
			}
		}
	}

	switch n := l.geom.TotalSectors; {
	case total > n:
		complain("total allocated sectors %d greater than the maximum %d", total, n)
	case total < n:
		l.info("%d unallocated %d-byte sectors remain", n-total, l.geom.SectorSize)
	}

	return issues, nil
}

// checkConsistency compares a primary partition's stored CHS triples against the ones its LBA fields imply.
// Only meaningful in DOS-compatible mode, and the stored triples are only trustworthy below the 1024-cylinder
// horizon.
func (l *Label) checkConsistency(p *mbr.Entry, i int, complain func(string, ...interface{})) {
	if !l.compatible {
		return
	}
	if l.geom.Heads == 0 || l.geom.Sectors == 0 || i >= mbr.NumEntries {
		return
	}

	physBegin, physEnd := p.BeginCHS(), p.EndCHS()
	logBegin := l.geom.FromLBA(uint64(p.Start()))
	logEnd := l.geom.FromLBA(uint64(p.Start()) + uint64(p.Size()) - 1)

	if l.geom.Cylinders <= 1024 && physBegin != logBegin {
		complain("partition %d has different physical/logical beginnings (non-Linux?): phys=(%d, %d, %d) logical=(%d, %d, %d)",
			i+1, physBegin.Cylinder, physBegin.Head, physBegin.Sector,
			logBegin.Cylinder, logBegin.Head, logBegin.Sector)
	}
	if l.geom.Cylinders <= 1024 && physEnd != logEnd {
		complain("partition %d has different physical/logical endings: phys=(%d, %d, %d) logical=(%d, %d, %d)",
			i+1, physEnd.Cylinder, physEnd.Head, physEnd.Sector,
			logEnd.Cylinder, logEnd.Head, logEnd.Sector)
	}
	if uint32(physEnd.Head) != l.geom.Heads-1 || uint32(physEnd.Sector) != l.geom.Sectors {
		complain("partition %d does not end on cylinder boundary", i+1)
	}
}

// checkEnd validates a partition's ending CHS triple against the geometry and, below the 1024-cylinder horizon,
// against the last sector its LBA fields claim.
func (l *Label) checkEnd(n int, end chs.CHS, last uint64, complain func(string, ...interface{})) {
	total := l.geom.ToLBA(end)

	if total == 0 {
		complain("partition %d contains sector 0", n)
	}
	if uint32(end.Head) >= l.geom.Heads {
		complain("partition %d: head %d greater than maximum %d", n, end.Head+1, l.geom.Heads)
	}
	if uint32(end.Sector) > l.geom.Sectors {
		complain("partition %d: sector %d greater than maximum %d", n, end.Sector, l.geom.Sectors)
	}
	if c := uint64(end.Cylinder); c >= l.geom.Cylinders {
		complain("partition %d: cylinder %d greater than maximum %d", n, c+1, l.geom.Cylinders)
	}
	if l.geom.Cylinders <= 1024 && last != total {
		complain("partition %d: previous sectors %d disagrees with total %d", n, last, total)
	}
}
