package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/block"
	"github.com/spf13/cobra"
)

func newDisksCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "disks",
		Args:  cobra.ExactArgs(0),
		Short: "List the block devices of this machine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := block.New(ghw.WithDisableTools(), ghw.WithDisableWarnings())
			if err != nil {
				return fmt.Errorf("cannot enumerate block devices: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(tw, "Name\tSize\tType\tRemovable\tModel\tPartitions")
			for _, d := range info.Disks {
				fmt.Fprintf(tw, "/dev/%s\t%s\t%s\t%v\t%s\t%d\n",
					d.Name, units.BytesSize(float64(d.SizeBytes)), d.DriveType,
					d.IsRemovable, d.Model, len(d.Partitions))
			}
			return tw.Flush()
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newDisksCmd(rootCmd)
