package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/docker/go-units"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/t9t/gombr/dos"
	"github.com/t9t/gombr/mbr"
)

func newListCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:     "list DEVICE",
		Aliases: []string{"ls"},
		Args:    cobra.ExactArgs(1),
		Short:   "Print the partition table",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, dev, found, err := openLabel(args[0], false, nil)
			if err != nil {
				return err
			}
			defer dev.Close()
			if err := requireFound(args[0], l, found); err != nil {
				return err
			}
			if l.IsGarbage() {
				log.Warn("the boot indicators look like garbage, this may not be a DOS partition table")
			}
			return printLabel(cmd.OutOrStdout(), args[0], l)
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newListCmd(rootCmd)

func printLabel(w io.Writer, path string, l *dos.Label) error {
	g := l.Geometry()
	bytes := g.TotalSectors * uint64(g.SectorSize)
	fmt.Fprintf(w, "Disk %s: %s, %d bytes, %d sectors\n",
		path, units.BytesSize(float64(bytes)), bytes, g.TotalSectors)
	fmt.Fprintf(w, "Geometry: %d heads, %d sectors/track, %d cylinders\n", g.Heads, g.Sectors, g.Cylinders)
	fmt.Fprintf(w, "Sector size: %d bytes, alignment grain: %d bytes\n", g.SectorSize, g.Grain)
	fmt.Fprintf(w, "Disk identifier: 0x%08x\n", l.ID())

	parts := l.Partitions()
	if len(parts) == 0 {
		fmt.Fprintf(w, "\nNo partitions defined.\n")
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "Device\tBoot\tStart\tEnd\tSectors\tSize\tId\tType")
	for _, p := range parts {
		boot := ""
		if p.Bootable {
			boot = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%02x\t%s\n",
			partName(path, p.Index+1), boot, p.Start, p.End, p.Sectors,
			units.BytesSize(float64(p.Sectors)*float64(g.SectorSize)), p.Type, p.TypeName)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if l.WrongOrder() > 0 {
		log.Warn("partition table entries are not in disk order")
	}
	return nil
}

// partName composes the conventional partition device name: a "p" goes between the disk name and the number
// when the disk name itself ends in a digit, as with nvme0n1p1.
func partName(path string, n int) string {
	if path != "" {
		if c := path[len(path)-1]; c >= '0' && c <= '9' {
			return fmt.Sprintf("%sp%d", path, n)
		}
	}
	return fmt.Sprintf("%s%d", path, n)
}

func newDumpCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "dump DEVICE",
		Args:  cobra.ExactArgs(1),
		Short: "Print the raw partition records",
		Long: `Dump prints the stored fields of every partition record without decoding
them: the boot indicator, the packed CHS triples, and the start, which for
records in an extended boot record is relative to the Base column.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, dev, found, err := openLabel(args[0], false, nil)
			if err != nil {
				return err
			}
			defer dev.Close()
			if err := requireFound(args[0], l, found); err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), l)
			return nil
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newDumpCmd(rootCmd)

func printRecords(w io.Writer, l *dos.Label) {
	recs := l.Records()
	fmt.Fprintf(w, "Disk identifier: 0x%08x\n\n", l.ID())
	fmt.Fprintln(w, "Nr AF   Hd Sec  Cyl   Hd Sec  Cyl      Start       Size ID       Base")
	for i, r := range recs {
		printRecordRow(w, i, r.Base, r.Data)
	}

	if len(recs) > mbr.NumEntries {
		fmt.Fprintf(w, "\nForward links, relative to the extended base %d:\n", l.ExtendedBase())
		for i := mbr.NumEntries; i < len(recs); i++ {
			if recs[i].Link != nil {
				printRecordRow(w, i, l.ExtendedBase(), *recs[i].Link)
			}
		}
	}
}

func printRecordRow(w io.Writer, i int, base uint64, f dos.RecordFields) {
	fmt.Fprintf(w, "%2d %02x  %3d %3d %4d  %3d %3d %4d %10d %10d %02x %10d\n",
		i+1, f.BootIndicator,
		f.Begin.Head, f.Begin.Sector, f.Begin.Cylinder,
		f.End.Head, f.End.Sector, f.End.Cylinder,
		f.Start, f.Size, f.Type, base)
}

func newVerifyCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "verify DEVICE",
		Args:  cobra.ExactArgs(1),
		Short: "Check the partition table for inconsistencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, dev, found, err := openLabel(args[0], false, nil)
			if err != nil {
				return err
			}
			defer dev.Close()
			if err := requireFound(args[0], l, found); err != nil {
				return err
			}
			issues, err := l.Verify()
			if err != nil {
				return err
			}
			if issues > 0 {
				return fmt.Errorf("verification found %d issues", issues)
			}
			log.Info("no issues found")
			return nil
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newVerifyCmd(rootCmd)

func newTypesCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "types",
		Args:  cobra.ExactArgs(0),
		Short: "List the known partition type codes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			codes := make([]int, 0, len(mbr.TypeNames))
			for t := range mbr.TypeNames {
				codes = append(codes, int(t))
			}
			sort.Ints(codes)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			for _, t := range codes {
				fmt.Fprintf(tw, "%02x\t%s\n", t, mbr.TypeNames[byte(t)])
			}
			return tw.Flush()
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newTypesCmd(rootCmd)
