// Command mbrtool inspects and edits DOS (MBR) partition tables on disk images and block devices.
package main

import (
	"errors"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/t9t/gombr/device"
	"github.com/t9t/gombr/dos"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mbrtool",
		Short: "Inspect and edit DOS (MBR) partition tables",
		Long: `mbrtool reads and edits the classic DOS partition table: the four primary
records in the master boot record plus the chain of extended boot records
that carries logical partitions. It works on block devices and on plain
disk image files.

Editing commands write the changed sectors back immediately; use --no-act
to see what would happen without touching the device.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}
	cmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	cmd.PersistentFlags().Bool("quiet", false, "Only report warnings and errors")
	cmd.PersistentFlags().Bool("batch", false, "Never prompt, accept every suggested default")
	cmd.PersistentFlags().Bool("no-act", false, "Do everything except writing to the device")
	cmd.PersistentFlags().Bool("compatible", false, "DOS-compatible mode: align to track boundaries and clamp CHS values")
	cmd.PersistentFlags().Int("sector-size", 0, "Override the logical sector size in bytes (multiple of 512)")
	cmd.PersistentFlags().Int("heads", 0, "Override the number of heads in the cylinder translation (1-255)")
	cmd.PersistentFlags().Int("sectors", 0, "Override the number of sectors per track (1-63)")
	_ = viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", cmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("batch", cmd.PersistentFlags().Lookup("batch"))
	_ = viper.BindPFlag("no-act", cmd.PersistentFlags().Lookup("no-act"))
	_ = viper.BindPFlag("compatible", cmd.PersistentFlags().Lookup("compatible"))
	_ = viper.BindPFlag("sector-size", cmd.PersistentFlags().Lookup("sector-size"))
	_ = viper.BindPFlag("heads", cmd.PersistentFlags().Lookup("heads"))
	_ = viper.BindPFlag("sectors", cmd.PersistentFlags().Lookup("sectors"))
	return cmd
}

// rootCmd is the base command; the subcommand files register themselves into it.
var rootCmd = newRootCmd()

var defaultLogFormatter = &log.TextFormatter{}

// infoFormatter prints Info events as bare lines so the operation notices read like normal program output.
type infoFormatter struct{}

func (f *infoFormatter) Format(entry *log.Entry) ([]byte, error) {
	if entry.Level == log.InfoLevel {
		return append([]byte(entry.Message), '\n'), nil
	}
	return defaultLogFormatter.Format(entry)
}

func setupLogging() {
	log.SetFormatter(new(infoFormatter))
	log.SetLevel(log.InfoLevel)
	if viper.GetBool("debug") {
		log.SetFormatter(defaultLogFormatter)
		log.SetLevel(log.DebugLevel)
	}
	if viper.GetBool("quiet") {
		log.SetLevel(log.WarnLevel)
	}
}

// execute runs the root command and maps the error to an exit code: 2 for rejected requests, 3 for devices
// without a usable label, 4 for I/O failures, 1 for everything else.
func execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var ioErr *device.IOError
	switch {
	case errors.As(err, &ioErr):
		return 4
	case errors.Is(err, dos.ErrFormat):
		return 3
	case errors.Is(err, dos.ErrRange), errors.Is(err, dos.ErrCapacity), errors.Is(err, dos.ErrConflict):
		return 2
	default:
		return 1
	}
}

func main() {
	os.Exit(execute())
}
