package main

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/t9t/gombr/binutil"
	"github.com/t9t/gombr/device"
)

// Backup files are a zstd stream holding the magic string followed by one framed chunk per partition-table
// sector. Each chunk carries the sector's byte offset so a restore puts it back exactly where it came from.
const backupMagic = "GOMBRSAV"

const chunkHeaderSize = 12 // uint64 byte offset + uint32 length, little-endian

func newBackupCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "backup DEVICE FILE",
		Args:  cobra.ExactArgs(2),
		Short: "Save all partition-table sectors to a compressed file",
		Long: `Backup saves the master boot record and every extended boot record, with
their byte offsets, into a zstd-compressed file. A device without a
recognizable table still gets its first sector saved, which preserves the
boot code.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, dev, _, err := openLabel(args[0], false, nil)
			if err != nil {
				return err
			}
			defer dev.Close()

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			zw, err := zstd.NewWriter(f)
			if err != nil {
				return err
			}
			if _, err := zw.Write([]byte(backupMagic)); err != nil {
				return err
			}

			saved, total := 0, 0
			for n := 0; ; n++ {
				name, offset, size, ok := l.Locate(n)
				if !ok {
					break
				}
				buf, err := dev.ReadSector(offset / uint64(dev.SectorSize()))
				if err != nil {
					return err
				}

				hdr := make([]byte, chunkHeaderSize)
				hw := binutil.NewLittleEndianWriter(hdr)
				hw.PutUint64(0, offset)
				hw.PutUint32(8, uint32(len(buf)))
				if _, err := zw.Write(hdr); err != nil {
					return err
				}
				if _, err := zw.Write(buf); err != nil {
					return err
				}
				log.Debugf("saved the %s at byte offset %d (%d bytes)", name, offset, size)
				saved++
				total += len(buf)
			}

			if err := zw.Close(); err != nil {
				return err
			}
			if err := f.Sync(); err != nil {
				return err
			}
			log.Infof("saved %d sectors (%d bytes) from %s to %s", saved, total, args[0], args[1])
			return nil
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newBackupCmd(rootCmd)

func newRestoreCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "restore DEVICE FILE",
		Args:  cobra.ExactArgs(2),
		Short: "Write partition-table sectors back from a backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := device.OpenRW(args[0])
			if err != nil {
				return err
			}
			defer dev.Close()
			if n := viper.GetInt("sector-size"); n != 0 {
				if err := dev.SetSectorSize(n); err != nil {
					return err
				}
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			zr, err := zstd.NewReader(f)
			if err != nil {
				return fmt.Errorf("%s is not a zstd stream: %w", args[1], err)
			}
			defer zr.Close()

			magic := make([]byte, len(backupMagic))
			if _, err := io.ReadFull(zr, magic); err != nil || string(magic) != backupMagic {
				return fmt.Errorf("%s is not an mbrtool backup", args[1])
			}

			ss := uint64(dev.SectorSize())
			restored := 0
			hdr := make([]byte, chunkHeaderSize)
			for {
				if _, err := io.ReadFull(zr, hdr); err == io.EOF {
					break
				} else if err != nil {
					return fmt.Errorf("truncated backup: %w", err)
				}
				hr := binutil.NewLittleEndianReader(hdr)
				offset, length := hr.Uint64(0), hr.Uint32(8)
				if uint64(length) != ss || offset%ss != 0 {
					return fmt.Errorf("the chunk at byte offset %d does not fit a device with %d-byte sectors", offset, ss)
				}

				buf := make([]byte, length)
				if _, err := io.ReadFull(zr, buf); err != nil {
					return fmt.Errorf("truncated backup: %w", err)
				}
				if viper.GetBool("no-act") {
					log.Infof("would restore the sector at byte offset %d", offset)
					continue
				}
				if err := dev.WriteSector(offset/ss, buf); err != nil {
					return err
				}
				log.Debugf("restored the sector at byte offset %d", offset)
				restored++
			}

			if restored > 0 {
				if err := dev.Sync(); err != nil {
					return err
				}
			}
			log.Infof("restored %d sectors from %s to %s", restored, args[1], args[0])
			return nil
		},
	}
	root.AddCommand(c)
	return c
}

var _ = newRestoreCmd(rootCmd)
