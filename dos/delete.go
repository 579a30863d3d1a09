package dos

import "fmt"

// Delete removes partition n. Deleting the extended anchor removes every logical partition with it; deleting an
// interior logical splices the chain around it, renumbering the slots behind it down by one.
func (l *Label) Delete(n int) error {
	if err := l.requireLabel(); err != nil {
		return err
	}
	if l.pte(n) == nil {
		return fmt.Errorf("partition %d does not exist: %w", n+1, ErrRange)
	}
	l.deletePartition(n)
	return nil
}

func (l *Label) deletePartition(n int) {
	pe := &l.slots[n]
	p, q := pe.data, pe.link

	switch {
	case n < 4:
		if p.IsExtended() && n == l.extIndex {
			// the anchor goes and the whole chain with it, tail first
			for l.nparts > 4 {
				l.nparts--
				l.slots[l.nparts] = slot{}
			}
			if l.extOffset != 0 {
				l.staleEBR = l.extOffset
			}
			pe.link = nil
			l.extIndex = 0
			l.extOffset = 0
		}
		l.markChanged(n)
		p.Clear()

	case q.Type() == 0 && n > 4:
		// the last logical of the chain: drop its slot and terminate the chain one link earlier
		l.nparts--
		l.slots[n] = slot{}
		l.slots[n-1].link.Clear()
		l.markChanged(n - 1)

	default:
		if n > 4 {
			// interior logical: the previous link jumps over the deleted one
			l.slots[n-1].link.CopyFrom(q)
			l.markChanged(n - 1)
		} else if l.nparts > 5 {
			// the first logical of a longer chain: the second becomes the head at the extended base
			pe5 := &l.slots[5]
			if pe5.data != nil {
				pe5.data.SetStart(uint32(l.absStart(pe5) - l.extOffset))
			}
			pe5.offset = l.extOffset
			l.markChanged(5)
		}

		if l.nparts > 5 {
			l.nparts--
			for i := n; i < l.nparts; i++ {
				l.slots[i] = l.slots[i+1]
			}
			l.slots[l.nparts] = slot{}
		} else {
			// the only logical: clear just the record, the slot stays
			p.Clear()
			l.markChanged(n)
		}
	}
}
