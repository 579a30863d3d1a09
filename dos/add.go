package dos

import (
	"fmt"
	"math"

	"github.com/t9t/gombr/mbr"
)

// NextLogical asks Add to allocate the next logical partition inside the extended partition instead of a fixed
// primary slot.
const NextLogical = -1

// AddRequest carries the optional parameters of an Add. The zero value creates a Linux data partition spanning
// the largest free region, asking the label's Asker (when one is set) for the first and last sector.
type AddRequest struct {
	// Type is the partition type code; zero means Linux (0x83).
	Type byte

	// Bootable sets the boot indicator of the new partition.
	Bootable bool

	// Start is an explicit absolute first sector. Zero lets the label suggest or ask for one. An explicit
	// start that is allocated or outside the free range fails with ErrRange instead of being moved.
	Start uint64

	// Size is an explicit size in sectors, taken exactly as given without alignment. Zero lets the label
	// suggest or ask for the last sector.
	Size uint64
}

// Add creates a new partition and returns the index of its slot. A hint of 0 to 3 selects that primary slot;
// NextLogical appends a logical partition inside the extended partition. Interactive decisions go through the
// label's Asker; without one the suggested defaults are taken.
func (l *Label) Add(hint int, req AddRequest) (int, error) {
	if err := l.requireLabel(); err != nil {
		return 0, err
	}

	switch {
	case hint == NextLogical:
		if l.extOffset == 0 {
			return 0, fmt.Errorf("no extended partition to hold a logical one: %w", ErrConflict)
		}
		if l.nparts >= MaxSlots {
			return 0, fmt.Errorf("the maximum number of partitions has been created: %w", ErrCapacity)
		}
		return l.addLogical(req)
	case hint >= 0 && hint < mbr.NumEntries:
		if err := l.addPartition(hint, req); err != nil {
			return 0, err
		}
		return hint, nil
	default:
		return 0, fmt.Errorf("partition slot %d does not exist: %w", hint+1, ErrRange)
	}
}

// addLogical appends an arena slot for a new logical partition and delegates to addPartition. The first logical
// goes into slot 4, inside the extended partition's own boot record; every further one gets a fresh record of
// its own. A failed add takes the fresh slot down with it so the table is left as it was.
func (l *Label) addLogical(req AddRequest) (int, error) {
	grown := false
	if l.nparts > 5 || !l.slots[4].data.IsCleared() {
		size := l.dev.SectorSize()
		if size < mbr.SectorSize {
			size = mbr.SectorSize
		}
		pe := &l.slots[l.nparts]
		*pe = slot{sector: mbr.NewSector(size), owned: true, dirty: true}
		pe.data = pe.sector.Entry(0)
		pe.link = pe.sector.Entry(1)
		l.nparts++
		grown = true
	}

	n := l.nparts - 1
	l.info("adding logical partition %d", n+1)

	if err := l.addPartition(n, req); err != nil {
		if grown {
			l.nparts--
			l.slots[l.nparts] = slot{}
		}
		return 0, err
	}
	return n, nil
}

// addPartition fills slot n with a new partition. The start is the first unused sector at or after the lowest
// admissible one; the end defaults to the last sector before the next allocation. An Asker can move both within
// the free range, and an AddRequest can pin them outright.
func (l *Label) addPartition(n int, req AddRequest) error {
	sys := req.Type
	if sys == 0 {
		sys = mbr.TypeLinux
	}

	pe := l.pte(n)
	p := pe.data

	if p.IsUsed() {
		return fmt.Errorf("partition %d is already defined, delete it before re-adding it: %w", n+1, ErrConflict)
	}
	if mbr.IsExtendedType(sys) && l.extOffset != 0 {
		return fmt.Errorf("extended partition already exists: %w", ErrConflict)
	}

	first, last := l.fillBounds()

	var start, limit uint64
	if n < mbr.NumEntries {
		start = l.geom.FirstLBA
		limit = l.geom.TotalSectors
		if c := l.geom.CHSCapacity(); limit == 0 || c < limit {
			limit = c
		}
		limit--
		if limit > math.MaxUint32 {
			limit = math.MaxUint32
		}

		if l.extOffset != 0 {
			q := l.slots[l.extIndex].data
			first[l.extIndex] = l.extOffset
			last[l.extIndex] = uint64(q.Start()) + uint64(q.Size()) - 1
		}
	} else {
		q := l.slots[l.extIndex].data
		start = l.extOffset + l.geom.FirstLBA
		limit = uint64(q.Start()) + uint64(q.Size()) - 1
	}

	// Resolve the first sector. The candidate is pushed past every allocated region until it is stable; an
	// answer landing inside an allocation restarts the search from there.
	read := false
	var temp uint64
	for {
		temp = start
		start = l.unusedStart(n, start, first, last)

		// The suggested default should be aligned as well as unused.
		dflt := start
		for {
			aligned := l.geom.AlignLBAInRange(dflt, dflt, limit)
			dflt = l.unusedStart(n, aligned, first, last)
			if dflt <= aligned || dflt >= limit {
				break
			}
		}
		if dflt >= limit {
			dflt = start
		}

		if start > limit {
			break
		}
		if read && start >= temp+1 {
			if req.Start != 0 {
				return fmt.Errorf("sector %d is already allocated: %w", temp, ErrRange)
			}
			l.info("sector %d is already allocated", temp)
			temp = start
			read = false
		}
		if !read && start == temp {
			if req.Start != 0 {
				if req.Start < start || req.Start > limit {
					return fmt.Errorf("first sector %d is out of range %d-%d: %w", req.Start, start, limit, ErrRange)
				}
				start = req.Start
			} else {
				v, _, err := l.askNumber("First sector", start, dflt, limit, false)
				if err != nil {
					return err
				}
				start = v
			}
			read = true
		}
		if start == temp && read {
			break
		}
	}

	if n > mbr.NumEntries {
		// A nested boot record occupies the sector before the partition data. It must not collide with
		// the extended partition's own record.
		pe.offset = start - l.geom.FirstLBA
		if pe.offset == l.extOffset {
			pe.offset++
			if l.geom.FirstLBA == 1 {
				start++
			}
		}
	}

	for i := 0; i < l.nparts; i++ {
		q := l.pte(i)
		if start < q.offset && limit >= q.offset {
			limit = q.offset - 1
		}
		if start < first[i] && limit >= first[i] {
			limit = first[i] - 1
		}
	}
	if start > limit {
		return fmt.Errorf("no free sectors available: %w", ErrCapacity)
	}

	// Resolve the last sector.
	var stop uint64
	switch {
	case start == limit:
		stop = limit
	case req.Size != 0:
		stop = start + req.Size - 1
		if stop < start || stop > limit {
			return fmt.Errorf("size %d sectors does not fit, the range %d-%d has %d: %w",
				req.Size, start, limit, limit-start+1, ErrRange)
		}
	default:
		v, relative, err := l.askNumber("Last sector, +sectors or +size{K,M,G,T,P}", start, limit, limit, true)
		if err != nil {
			return err
		}
		stop = v
		if relative && l.geom.Grain != uint64(l.geom.SectorSize) {
			// The end was given by a +size convention rather than exactly, so round it to the
			// alignment grain and let the next partition start on a physical block boundary.
			stop = l.geom.AlignLBAInRange(stop, start, limit) - 1
			if stop > limit {
				stop = limit
			}
		}
	}

	l.setPartition(n, false, start, stop, sys)
	if n > mbr.NumEntries {
		l.setPartition(n-1, true, pe.offset, stop, mbr.TypeExtended)
	}

	if mbr.IsExtendedType(sys) {
		size := l.dev.SectorSize()
		if size < mbr.SectorSize {
			size = mbr.SectorSize
		}
		pe4 := &l.slots[4]

		l.extIndex = n
		l.extOffset = start
		pe.link = p

		*pe4 = slot{sector: mbr.NewSector(size), offset: start, owned: true}
		pe4.data = pe4.sector.Entry(0)
		pe4.link = pe4.sector.Entry(1)
		l.markChanged(4)
		l.nparts = 5
	}

	if req.Bootable {
		p.SetBootable(true)
	}
	return nil
}

// unusedStart pushes a start candidate past the boot record offsets and the allocated ranges in first/last,
// returning the first sector not claimed by any of them.
func (l *Label) unusedStart(n int, start uint64, first, last []uint64) uint64 {
	for i := 0; i < l.nparts; i++ {
		pe := l.pte(i)

		if start == pe.offset {
			start += l.geom.FirstLBA
		}
		lastplusoff := last[i]
		if n >= mbr.NumEntries {
			lastplusoff += l.geom.FirstLBA
		}
		if start >= first[i] && start <= lastplusoff {
			start = lastplusoff + 1
		}
	}
	return start
}

// fillBounds collects the absolute first and last sectors of every allocated partition. Cleared slots and
// extended containers do not reserve space themselves; they are reported as an empty range.
func (l *Label) fillBounds() (first, last []uint64) {
	first = make([]uint64, l.nparts)
	last = make([]uint64, l.nparts)

	for i := 0; i < l.nparts; i++ {
		pe := l.pte(i)
		p := pe.data

		if p.IsCleared() || p.IsExtended() {
			first[i] = math.MaxUint64
			last[i] = 0
		} else {
			first[i] = l.absStart(pe)
			last[i] = first[i] + uint64(p.Size()) - 1
		}
	}
	return first, last
}

// setPartition stamps slot i's data entry, or its forward link when doext is set, with the given absolute range
// and type, encoding the CHS fields from the current geometry.
func (l *Label) setPartition(i int, doext bool, start, stop uint64, sys byte) {
	pe := l.pte(i)

	var p *mbr.Entry
	var offset uint64
	if doext {
		p = pe.link
		offset = l.extOffset
	} else {
		p = pe.data
		offset = pe.offset
	}

	p.SetBootable(false)
	p.SetType(sys)
	p.SetStart(uint32(start - offset))
	p.SetSize(uint32(stop - start + 1))

	if !doext {
		l.info("created a new partition %d of type %q, size %d sectors", i+1, mbr.TypeName(sys), stop-start+1)
	}

	if l.compatible {
		start = l.geom.ClampLBA(start)
		stop = l.geom.ClampLBA(stop)
	}
	p.SetBeginCHS(l.geom.FromLBA(start))
	p.SetEndCHS(l.geom.FromLBA(stop))

	l.markChanged(i)
}
