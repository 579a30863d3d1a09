/*
	Package chs provides disk geometry bookkeeping and the conversions between linear sector numbers ("LBA") and the
	packed cylinder/head/sector ("CHS") triples stored in DOS partition records.

	The packed format is 10 bits of cylinder, 8 bits of head and 6 bits of sector spread over three bytes: the
	cylinder's top two bits live in the high bits of the sector byte. Addresses beyond the 1024-cylinder horizon are
	not representable; ClampLBA reproduces the classic DOS behavior of pinning them to the highest addressable sector.
*/
package chs

// DefaultSectorSize is the logical sector size assumed when a device does not report one.
const DefaultSectorSize = 512

// Geometry describes the addressing properties of one disk: the (possibly synthetic) cylinder/head/sector
// translation, the sector sizes, the real capacity, and the alignment rules for new partitions. Heads must be in
// 1-255 and Sectors in 1-63; Heads*Sectors*Cylinders is the CHS-addressable capacity, which may be smaller than
// TotalSectors on large disks.
type Geometry struct {
	Heads     uint32
	Sectors   uint32 // sectors per track
	Cylinders uint64

	SectorSize    int // logical sector size in bytes
	PhySectorSize int // physical sector size in bytes
	TotalSectors  uint64

	FirstLBA uint64 // first sector usable by partition data
	Grain    uint64 // alignment granularity in bytes
}

// New returns a Geometry for a disk of totalSectors 512-byte sectors using the conventional 255-head,
// 63-sectors-per-track translation, with default (1 MiB) alignment.
func New(totalSectors uint64) Geometry {
	g := Geometry{
		Heads:         255,
		Sectors:       63,
		SectorSize:    DefaultSectorSize,
		PhySectorSize: DefaultSectorSize,
		TotalSectors:  totalSectors,
	}
	g.Recount()
	g.ResetAlignment(false)
	return g
}

// Recount recomputes Cylinders from TotalSectors, Heads and Sectors. Disks smaller than one cylinder count as one.
func (g *Geometry) Recount() {
	g.Cylinders = g.TotalSectors / (uint64(g.Heads) * uint64(g.Sectors))
	if g.Cylinders == 0 {
		g.Cylinders = 1
	}
}

// CHSCapacity returns the number of sectors addressable through the CHS translation (heads * sectors * cylinders).
func (g Geometry) CHSCapacity() uint64 {
	return uint64(g.Heads) * uint64(g.Sectors) * g.Cylinders
}

// ResetAlignment restores FirstLBA and Grain to their defaults: a 1 MiB grain (scaled down to one physical sector
// for disks too small for it to make sense). In DOS-compatible mode new partitions align to track boundaries
// instead, so FirstLBA becomes the sectors-per-track count (classically 63) and the grain one logical sector.
func (g *Geometry) ResetAlignment(compatible bool) {
	if compatible {
		g.FirstLBA = uint64(g.Sectors)
		g.Grain = uint64(g.SectorSize)
		return
	}

	first := uint64(2048 * 512 / g.SectorSize)
	if g.TotalSectors <= first*4 {
		first = uint64(g.PhySectorSize) / uint64(g.SectorSize)
	}

	grain := uint64(2048 * 512)
	if uint64(g.PhySectorSize) > grain {
		grain = uint64(g.PhySectorSize)
	}
	if g.TotalSectors <= grain*4/uint64(g.SectorSize) {
		grain = uint64(g.PhySectorSize)
	}

	g.FirstLBA = first
	g.Grain = grain
}

// CHS is one cylinder/head/sector coordinate. Sector numbering starts at 1; a zero Sector only occurs in cleared
// partition records.
type CHS struct {
	Cylinder uint16 // 0-1023
	Head     uint8
	Sector   uint8 // 1-63
}

// FromLBA converts a linear sector number into its CHS triple under this geometry. Only the low 10 bits of the
// cylinder survive the packed encoding, so addresses past the horizon wrap; apply ClampLBA first where the DOS
// behavior is wanted.
func (g Geometry) FromLBA(lba uint64) CHS {
	s := lba%uint64(g.Sectors) + 1
	t := lba / uint64(g.Sectors)
	h := t % uint64(g.Heads)
	c := (t / uint64(g.Heads)) & 0x3FF
	return CHS{Cylinder: uint16(c), Head: uint8(h), Sector: uint8(s)}
}

// ToLBA converts the triple back to a linear sector number under this geometry.
func (g Geometry) ToLBA(c CHS) uint64 {
	if c.Sector == 0 {
		return 0
	}
	return (uint64(c.Cylinder)*uint64(g.Heads)+uint64(c.Head))*uint64(g.Sectors) + uint64(c.Sector) - 1
}

// ClampLBA applies the DOS compatibility limit: an address whose cylinder number exceeds 1023 is replaced by the
// highest CHS-addressable sector, heads*sectors*1024 - 1. The caller keeps the exact value in the record's LBA
// fields; only the CHS encoding is clamped.
func (g Geometry) ClampLBA(lba uint64) uint64 {
	spc := uint64(g.Heads) * uint64(g.Sectors)
	if lba/spc > 1023 {
		return spc*1024 - 1
	}
	return lba
}

// Pack encodes the triple into the three raw bytes of a partition record, in record order: head, sector (carrying
// the cylinder's top two bits in bits 6-7), cylinder low byte.
func (c CHS) Pack() (head, sector, cyl byte) {
	return c.Head, (c.Sector & 0x3F) | byte((c.Cylinder>>2)&0xC0), byte(c.Cylinder & 0xFF)
}

// Unpack decodes the raw head/sector/cylinder bytes of a partition record into a CHS triple.
func Unpack(head, sector, cyl byte) CHS {
	return CHS{
		Cylinder: uint16(cyl) | uint16(sector&0xC0)<<2,
		Head:     head,
		Sector:   sector & 0x3F,
	}
}

// Direction selects which way AlignLBA rounds an unaligned address.
type Direction int

const (
	AlignUp Direction = iota
	AlignDown
	AlignNearest
)

// IsAligned reports whether the byte address of lba falls on the alignment grain. The grain derives from physical
// sector or I/O sizes and is assumed to be a power of two.
func (g Geometry) IsAligned(lba uint64) bool {
	gran := g.Grain
	if gran < uint64(g.PhySectorSize) {
		gran = uint64(g.PhySectorSize)
	}
	return lba*uint64(g.SectorSize)&(gran-1) == 0
}

// AlignLBA rounds lba onto the alignment grain in the requested direction. An already-aligned address is returned
// unchanged; an unaligned address below FirstLBA snaps up to FirstLBA.
func (g Geometry) AlignLBA(lba uint64, dir Direction) uint64 {
	if g.IsAligned(lba) {
		return lba
	}

	sects := g.Grain / uint64(g.SectorSize)
	if sects == 0 {
		sects = 1
	}

	switch {
	case lba < g.FirstLBA:
		return g.FirstLBA
	case dir == AlignUp:
		return (lba + sects) / sects * sects
	case dir == AlignDown:
		return lba / sects * sects
	default:
		return (lba + sects/2) / sects * sects
	}
}

// AlignLBAInRange aligns lba to the nearest grain boundary while keeping the result inside [start, stop]; start is
// first aligned up and stop down.
func (g Geometry) AlignLBAInRange(lba, start, stop uint64) uint64 {
	start = g.AlignLBA(start, AlignUp)
	stop = g.AlignLBA(stop, AlignDown)
	lba = g.AlignLBA(lba, AlignNearest)

	if lba < start {
		return start
	}
	if lba > stop {
		return stop
	}
	return lba
}
