package dos

import (
	"fmt"
	"math/rand"

	"github.com/t9t/gombr/mbr"
)

// Create replaces the in-memory table with a fresh empty DOS disklabel: four cleared primary records, a random
// disk identifier and the boot signature. Boot code already present in sector 0 is kept. Like every other edit
// this only touches memory; Write persists it.
func (l *Label) Create() {
	id := rand.Uint32()

	l.init()
	l.first.ClearTable()
	l.first.SetDiskID(id)
	l.first.SetSignature()
	l.changed = true
	l.nonPTChanged = true

	l.info("created a new DOS disklabel with disk identifier 0x%08x", id)
}

// GetType returns the type code of partition n.
func (l *Label) GetType(n int) (byte, error) {
	if err := l.requireLabel(); err != nil {
		return 0, err
	}
	pe := l.pte(n)
	if pe == nil {
		return 0, fmt.Errorf("partition %d does not exist: %w", n+1, ErrRange)
	}
	return pe.data.Type(), nil
}

// SetType changes the type code of partition n. Changing a partition into an extended container or back is
// refused; that is a delete-and-recreate operation because it changes what the slot's entries mean.
func (l *Label) SetType(n int, t byte) error {
	if err := l.requireLabel(); err != nil {
		return err
	}
	pe := l.pte(n)
	if pe == nil {
		return fmt.Errorf("partition %d does not exist: %w", n+1, ErrRange)
	}

	p := pe.data
	if p.Type() == t {
		return nil
	}
	if p.IsExtended() || mbr.IsExtendedType(t) {
		return fmt.Errorf("cannot change a partition into an extended one or vice versa, delete it first: %w", ErrConflict)
	}

	if mbr.IsDOSType(t) || mbr.IsDOSType(p.Type()) {
		l.info("if you have created or modified any DOS 6.x partitions, please see the fdisk documentation for additional information")
	}
	if t == mbr.TypeEmpty {
		l.warn("type 0 means free space to many systems, having partitions of type 0 is probably unwise")
	}

	p.SetType(t)
	l.markChanged(n)
	return nil
}

// ToggleBootable flips the boot indicator of partition n.
func (l *Label) ToggleBootable(n int) error {
	if err := l.requireLabel(); err != nil {
		return err
	}
	pe := l.pte(n)
	if pe == nil {
		return fmt.Errorf("partition %d does not exist: %w", n+1, ErrRange)
	}

	p := pe.data
	if p.IsExtended() && !p.Bootable() {
		l.warn("partition %d is an extended partition", n+1)
	}

	p.SetBootable(!p.Bootable())
	l.markChanged(n)

	if p.Bootable() {
		l.info("the bootable flag on partition %d is enabled now", n+1)
	} else {
		l.info("the bootable flag on partition %d is disabled now", n+1)
	}
	return nil
}
