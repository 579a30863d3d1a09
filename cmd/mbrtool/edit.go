package main

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/t9t/gombr/dos"
	"github.com/t9t/gombr/mbr"
)

func newCreateCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "create DEVICE",
		Args:  cobra.ExactArgs(1),
		Short: "Create a fresh empty DOS partition table",
		Long: `Create replaces the partition table with an empty one under a random disk
identifier. Boot code in the first sector is kept; all partition records
are zeroed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, dev, found, err := openLabel(args[0], true, nil)
			if err != nil {
				return err
			}
			defer dev.Close()
			if found {
				log.Warnf("%s already carries a DOS partition table, its records will be replaced", args[0])
			}
			l.Create()
			return flushLabel(l, dev)
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newCreateCmd(rootCmd)

func newAddCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "add DEVICE",
		Args:  cobra.ExactArgs(1),
		Short: "Add a partition",
		Long: `Add creates a partition in the first free primary slot, in the slot named
with --slot, or with --logical inside the extended partition. Without
--start and --size the first and last sector are asked for, suggesting the
largest free region; --batch takes the suggestions as they are.

Creating a partition of an extended type (05, 0f or 85) opens an extended
partition that logical partitions can then be added into.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, _ := cmd.Flags().GetInt("slot")
			logical, _ := cmd.Flags().GetBool("logical")
			typeStr, _ := cmd.Flags().GetString("type")
			sizeStr, _ := cmd.Flags().GetString("size")
			start, _ := cmd.Flags().GetUint64("start")
			bootable, _ := cmd.Flags().GetBool("bootable")

			l, dev, found, err := openLabel(args[0], true, nil)
			if err != nil {
				return err
			}
			defer dev.Close()
			if err := requireFound(args[0], l, found); err != nil {
				return err
			}

			req := dos.AddRequest{Start: start, Bootable: bootable}
			if typeStr != "" {
				if req.Type, err = parseTypeCode(typeStr); err != nil {
					return err
				}
			}
			if sizeStr != "" {
				if req.Size, err = parseSectorCount(sizeStr, dev.SectorSize()); err != nil {
					return err
				}
			}

			hint, err := pickSlot(l, slot, logical)
			if err != nil {
				return err
			}
			if _, err := l.Add(hint, req); err != nil {
				return err
			}
			return flushLabel(l, dev)
		},
	}
	c.Flags().Int("slot", 0, "Primary slot to use (1-4, default: first free)")
	c.Flags().Bool("logical", false, "Add a logical partition inside the extended partition")
	c.Flags().String("type", "", "Partition type code in hex (default 83, Linux)")
	c.Flags().Uint64("start", 0, "First sector (default: asked for, suggesting the first free aligned sector)")
	c.Flags().String("size", "", "Size in sectors, or in bytes with a K/M/G/T/P suffix (default: asked for)")
	c.Flags().Bool("bootable", false, "Set the boot indicator on the new partition")
	root.AddCommand(c)
	return c
}

var _ = newAddCmd(rootCmd)

// pickSlot resolves the target slot for an add: an explicit primary slot, the logical chain, or the first
// free primary slot, falling back to a logical partition when all four primaries are taken.
func pickSlot(l *dos.Label, slot int, logical bool) (int, error) {
	switch {
	case logical && slot != 0:
		return 0, fmt.Errorf("--slot and --logical contradict each other: %w", dos.ErrRange)
	case logical:
		return dos.NextLogical, nil
	case slot != 0:
		if slot < 1 || slot > mbr.NumEntries {
			return 0, fmt.Errorf("slot %d is not a primary slot (1-4): %w", slot, dos.ErrRange)
		}
		return slot - 1, nil
	}
	for i := 0; i < mbr.NumEntries; i++ {
		if !l.Used(i) {
			return i, nil
		}
	}
	if l.ExtendedBase() != 0 {
		log.Debug("all primary slots are in use, adding a logical partition")
		return dos.NextLogical, nil
	}
	return 0, fmt.Errorf("all primary partition slots are in use: %w", dos.ErrCapacity)
}

func newDeleteCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "delete DEVICE PARTITION",
		Args:  cobra.ExactArgs(2),
		Short: "Delete a partition",
		Long: `Delete removes the named partition. Deleting the extended partition removes
every logical partition with it; deleting a logical partition renumbers the
ones behind it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parsePartitionNumber(args[1])
			if err != nil {
				return err
			}
			l, dev, found, err := openLabel(args[0], true, nil)
			if err != nil {
				return err
			}
			defer dev.Close()
			if err := requireFound(args[0], l, found); err != nil {
				return err
			}
			if err := l.Delete(n); err != nil {
				return err
			}
			log.Infof("partition %d has been deleted", n+1)
			return flushLabel(l, dev)
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newDeleteCmd(rootCmd)

func newSetTypeCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "set-type DEVICE PARTITION TYPE",
		Args:  cobra.ExactArgs(3),
		Short: "Change a partition's type code",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parsePartitionNumber(args[1])
			if err != nil {
				return err
			}
			t, err := parseTypeCode(args[2])
			if err != nil {
				return err
			}
			l, dev, found, err := openLabel(args[0], true, nil)
			if err != nil {
				return err
			}
			defer dev.Close()
			if err := requireFound(args[0], l, found); err != nil {
				return err
			}
			if err := l.SetType(n, t); err != nil {
				return err
			}
			log.Infof("changed type of partition %d to %02x (%s)", n+1, t, mbr.TypeName(t))
			return flushLabel(l, dev)
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newSetTypeCmd(rootCmd)

func newBootableCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "bootable DEVICE PARTITION",
		Args:  cobra.ExactArgs(2),
		Short: "Toggle a partition's boot indicator",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parsePartitionNumber(args[1])
			if err != nil {
				return err
			}
			l, dev, found, err := openLabel(args[0], true, nil)
			if err != nil {
				return err
			}
			defer dev.Close()
			if err := requireFound(args[0], l, found); err != nil {
				return err
			}
			if err := l.ToggleBootable(n); err != nil {
				return err
			}
			return flushLabel(l, dev)
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newBootableCmd(rootCmd)

func newIDCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "id DEVICE [IDENTIFIER]",
		Args:  cobra.RangeArgs(1, 2),
		Short: "Print or change the disk identifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			change, _ := cmd.Flags().GetBool("change")
			rw := change || len(args) == 2

			l, dev, found, err := openLabel(args[0], rw, nil)
			if err != nil {
				return err
			}
			defer dev.Close()
			if err := requireFound(args[0], l, found); err != nil {
				return err
			}

			switch {
			case len(args) == 2:
				id, err := strconv.ParseUint(args[1], 0, 32)
				if err != nil {
					return fmt.Errorf("%q is not a 32-bit identifier: %w", args[1], dos.ErrRange)
				}
				l.SetID(uint32(id))
			case change:
				if err := l.ChangeID(); err != nil {
					return err
				}
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "0x%08x\n", l.ID())
				return nil
			}
			return flushLabel(l, dev)
		},
	}
	c.Flags().Bool("change", false, "Prompt for a new identifier instead of printing the current one")
	root.AddCommand(c)
	return c
}

var _ = newIDCmd(rootCmd)

func newMoveCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "move DEVICE PARTITION [NEWSTART]",
		Args:  cobra.RangeArgs(2, 3),
		Short: "Move the beginning of a partition's data area",
		Long: `Move shifts where the named partition's data begins while its end stays
put, growing or shrinking the partition at the front. The new beginning
may lie anywhere between the preceding allocation and the partition's last
sector; without NEWSTART it is asked for.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parsePartitionNumber(args[1])
			if err != nil {
				return err
			}
			var asker dos.Asker
			if len(args) == 3 {
				v, err := strconv.ParseUint(args[2], 10, 64)
				if err != nil {
					return fmt.Errorf("%q is not a sector number: %w", args[2], dos.ErrRange)
				}
				asker = &pinnedAsker{values: []uint64{v}}
			}

			l, dev, found, err := openLabel(args[0], true, asker)
			if err != nil {
				return err
			}
			defer dev.Close()
			if err := requireFound(args[0], l, found); err != nil {
				return err
			}
			if err := l.MoveBegin(n); err != nil {
				return err
			}
			return flushLabel(l, dev)
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newMoveCmd(rootCmd)

func newFixOrderCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "fix-order DEVICE",
		Args:  cobra.ExactArgs(1),
		Short: "Put the partition records back in disk order",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, dev, found, err := openLabel(args[0], true, nil)
			if err != nil {
				return err
			}
			defer dev.Close()
			if err := requireFound(args[0], l, found); err != nil {
				return err
			}
			if err := l.FixOrder(); err != nil {
				return err
			}
			return flushLabel(l, dev)
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newFixOrderCmd(rootCmd)
