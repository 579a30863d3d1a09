/*
	Package mbr provides views over the on-disk structures of a DOS master boot record and its extended boot records:
	the four 16-byte partition records at offset 446, the two-byte boot signature at offset 510, and the 32-bit disk
	identifier at offset 440.

	Sector and Entry are aliasing views, not copies: mutations write straight through to the underlying buffer, which
	is what allows a partition record to be edited in place and the whole sector written back verbatim (the boot code
	in bytes 0-439 is never touched).
*/
package mbr

import (
	"fmt"

	"github.com/t9t/gombr/binutil"
	"github.com/t9t/gombr/chs"
)

const (
	// SectorSize is the size of the boot record structure. Devices with larger logical sectors still keep the
	// structure within the first 512 bytes of the sector.
	SectorSize = 512
	// EntrySize is the size of one raw partition record.
	EntrySize = 16
	// NumEntries is the number of partition records in one boot sector.
	NumEntries = 4
	// BootCodeSize is the number of opaque boot-code bytes preceding the disk identifier.
	BootCodeSize = 440

	// ActiveFlag is the boot-indicator value marking a partition bootable. The only other valid indicator is zero.
	ActiveFlag = 0x80

	entriesOffset   = 0x1BE
	idOffset        = 440
	signatureOffset = 510
)

// Sector is a view over the raw bytes of one MBR or EBR sector.
type Sector struct {
	r *binutil.BinReader
	w *binutil.BinWriter
}

// NewSector returns a Sector over a fresh zeroed buffer of size bytes. The size should be at least SectorSize;
// accessors panic otherwise.
func NewSector(size int) *Sector {
	b := make([]byte, size)
	return &Sector{r: binutil.NewLittleEndianReader(b), w: binutil.NewLittleEndianWriter(b)}
}

// SectorOf wraps an existing buffer without copying it.
func SectorOf(data []byte) (*Sector, error) {
	if len(data) < SectorSize {
		return nil, fmt.Errorf("sector data should be at least %d bytes but is %d", SectorSize, len(data))
	}
	return &Sector{r: binutil.NewLittleEndianReader(data), w: binutil.NewLittleEndianWriter(data)}, nil
}

// Data returns the sector's backing buffer (not a copy).
func (s *Sector) Data() []byte {
	return s.r.Data()
}

// Size returns the backing buffer's length in bytes.
func (s *Sector) Size() int {
	return s.r.Length()
}

// HasSignature reports whether the sector carries the 0x55 0xAA boot signature that marks a valid MBR or EBR.
func (s *Sector) HasSignature() bool {
	return s.r.Byte(signatureOffset) == 0x55 && s.r.Byte(signatureOffset+1) == 0xAA
}

// SetSignature stamps the 0x55 0xAA boot signature.
func (s *Sector) SetSignature() {
	s.w.PutByte(signatureOffset, 0x55)
	s.w.PutByte(signatureOffset+1, 0xAA)
}

// DiskID returns the 32-bit disk identifier stored little-endian at offset 440. The value is opaque; nothing in the
// partition table depends on it.
func (s *Sector) DiskID() uint32 {
	return s.r.Uint32(idOffset)
}

// SetDiskID stores a new disk identifier.
func (s *Sector) SetDiskID(id uint32) {
	s.w.PutUint32(idOffset, id)
}

// Entry returns a view over partition record i (0-3). It panics when i is out of range.
func (s *Sector) Entry(i int) *Entry {
	if i < 0 || i >= NumEntries {
		panic(fmt.Sprintf("partition record index %d out of range", i))
	}
	off := entriesOffset + i*EntrySize
	return &Entry{
		r: s.r.Reader(off, EntrySize),
		w: binutil.NewLittleEndianWriter(s.r.Read(off, EntrySize)),
	}
}

// Zero clears the entire sector, boot code included.
func (s *Sector) Zero() {
	s.w.Zero(0, s.r.Length())
}

// ClearTable zeroes everything after the boot code: disk identifier, partition records and signature. The boot
// code bytes themselves stay as they are.
func (s *Sector) ClearTable() {
	s.w.Zero(BootCodeSize, s.r.Length()-BootCodeSize)
}

// Entry is a view over one raw 16-byte partition record: boot indicator, packed begin CHS, type byte, packed end
// CHS, 32-bit start (relative to the record's base sector) and 32-bit sector count.
type Entry struct {
	r *binutil.BinReader
	w *binutil.BinWriter
}

// EntryOf wraps a raw 16-byte record without copying it.
func EntryOf(data []byte) (*Entry, error) {
	if len(data) != EntrySize {
		return nil, fmt.Errorf("partition record should be %d bytes but is %d", EntrySize, len(data))
	}
	return &Entry{r: binutil.NewLittleEndianReader(data), w: binutil.NewLittleEndianWriter(data)}, nil
}

// Data returns the record's backing bytes (not a copy).
func (e *Entry) Data() []byte {
	return e.r.Data()
}

// BootIndicator returns the raw boot-indicator byte. Valid tables only contain 0x00 and ActiveFlag; anything else
// marks the table as garbage.
func (e *Entry) BootIndicator() byte {
	return e.r.Byte(0)
}

// Bootable reports whether the boot indicator carries ActiveFlag.
func (e *Entry) Bootable() bool {
	return e.BootIndicator() == ActiveFlag
}

// SetBootable sets or clears the boot indicator.
func (e *Entry) SetBootable(v bool) {
	if v {
		e.w.PutByte(0, ActiveFlag)
	} else {
		e.w.PutByte(0, 0)
	}
}

// Type returns the partition type code.
func (e *Entry) Type() byte {
	return e.r.Byte(4)
}

// SetType stores a new partition type code.
func (e *Entry) SetType(t byte) {
	e.w.PutByte(4, t)
}

// Start returns the partition's start sector, relative to the record's base (zero for primaries, the EBR's own
// sector for logicals).
func (e *Entry) Start() uint32 {
	return e.r.Uint32(8)
}

// SetStart stores the relative start sector.
func (e *Entry) SetStart(v uint32) {
	e.w.PutUint32(8, v)
}

// Size returns the partition's length in sectors.
func (e *Entry) Size() uint32 {
	return e.r.Uint32(12)
}

// SetSize stores the partition's length in sectors.
func (e *Entry) SetSize(v uint32) {
	e.w.PutUint32(12, v)
}

// BeginCHS returns the decoded begin coordinate.
func (e *Entry) BeginCHS() chs.CHS {
	return chs.Unpack(e.r.Byte(1), e.r.Byte(2), e.r.Byte(3))
}

// SetBeginCHS stores the begin coordinate in packed form.
func (e *Entry) SetBeginCHS(c chs.CHS) {
	h, s, cl := c.Pack()
	e.w.PutByte(1, h)
	e.w.PutByte(2, s)
	e.w.PutByte(3, cl)
}

// EndCHS returns the decoded end coordinate.
func (e *Entry) EndCHS() chs.CHS {
	return chs.Unpack(e.r.Byte(5), e.r.Byte(6), e.r.Byte(7))
}

// SetEndCHS stores the end coordinate in packed form.
func (e *Entry) SetEndCHS(c chs.CHS) {
	h, s, cl := c.Pack()
	e.w.PutByte(5, h)
	e.w.PutByte(6, s)
	e.w.PutByte(7, cl)
}

// IsUsed reports whether the record describes a real partition: used means a nonzero sector count.
func (e *Entry) IsUsed() bool {
	return e.Size() != 0
}

// IsCleared reports whether every byte of the record is zero.
func (e *Entry) IsCleared() bool {
	return binutil.IsOnlyZeroes(e.r.Data())
}

// IsExtended reports whether the record's type is one of the extended-container codes.
func (e *Entry) IsExtended() bool {
	return IsExtendedType(e.Type())
}

// Clear zeroes the whole record.
func (e *Entry) Clear() {
	e.w.Zero(0, EntrySize)
}

// CopyFrom overwrites this record with the raw bytes of another.
func (e *Entry) CopyFrom(o *Entry) {
	e.w.Put(0, o.r.Data())
}
