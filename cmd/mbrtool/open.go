package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/t9t/gombr/device"
	"github.com/t9t/gombr/dos"
)

// openLabel opens the disk at path, applies the geometry flags and probes it. The caller must Close the
// returned device. A nil asker gets replaced by a console asker on standard input. found reports whether a
// DOS label was recognized; commands that need one should call requireFound instead of checking it by hand.
func openLabel(path string, rw bool, asker dos.Asker) (l *dos.Label, dev *device.File, found bool, err error) {
	if rw {
		dev, err = device.OpenRW(path)
	} else {
		dev, err = device.Open(path)
	}
	if err != nil {
		return nil, nil, false, err
	}
	defer func() {
		if err != nil {
			dev.Close()
		}
	}()

	if n := viper.GetInt("sector-size"); n != 0 {
		if err = dev.SetSectorSize(n); err != nil {
			return nil, nil, false, err
		}
	}
	if asker == nil {
		asker = newConsoleAsker(dev.SectorSize())
	}

	l = dos.New(dev, asker)
	heads, sectors := viper.GetInt("heads"), viper.GetInt("sectors")
	if heads != 0 || sectors != 0 {
		g := l.Geometry()
		if heads == 0 {
			heads = int(g.Heads)
		}
		if sectors == 0 {
			sectors = int(g.Sectors)
		}
		if err = l.SetTranslation(uint32(heads), uint32(sectors)); err != nil {
			return nil, nil, false, err
		}
	}
	if viper.GetBool("compatible") {
		l.SetCompatible(true)
	}

	found, err = l.Probe()
	if err != nil {
		return nil, nil, false, err
	}
	if viper.GetBool("compatible") {
		// Probing may have recovered another translation; recompute the track alignment from it.
		l.SetCompatible(true)
	}
	g := l.Geometry()
	log.Debugf("%s: %d sectors of %d bytes, translation %d/%d/%d, first usable sector %d",
		path, g.TotalSectors, g.SectorSize, g.Cylinders, g.Heads, g.Sectors, g.FirstLBA)
	return l, dev, found, nil
}

func requireFound(path string, l *dos.Label, found bool) error {
	if found {
		return nil
	}
	if l.IsGarbage() {
		log.Warnf("the primary records of %s do not look like a partition table at all", path)
	}
	return fmt.Errorf("%s does not contain a DOS partition table: %w", path, dos.ErrFormat)
}

// flushLabel persists pending changes and syncs the device. With --no-act the device stays untouched.
func flushLabel(l *dos.Label, dev *device.File) error {
	if !l.Changed() {
		log.Debug("no changes to write")
		return nil
	}
	if viper.GetBool("no-act") {
		log.Info("changes were kept in memory only (--no-act)")
		return nil
	}
	if err := l.Write(); err != nil {
		return err
	}
	if err := dev.Sync(); err != nil {
		return err
	}
	log.Info("the partition table has been altered")
	return nil
}

// parsePartitionNumber parses a one-based partition number as the commands take them on the command line.
func parsePartitionNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q is not a partition number: %w", s, dos.ErrRange)
	}
	return n - 1, nil
}

// parseTypeCode parses a hexadecimal partition type code, with or without a 0x prefix.
func parseTypeCode(s string) (byte, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(t, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%q is not a partition type code: %w", s, dos.ErrRange)
	}
	return byte(v), nil
}

// parseSectorCount parses a size given either as a plain sector count or as a byte size with a K/M/G/T/P
// suffix (binary units).
func parseSectorCount(s string, sectorSize int) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	if isDigits(s) {
		return strconv.ParseUint(s, 10, 64)
	}
	b, err := units.RAMInBytes(s)
	if err != nil || b <= 0 {
		return 0, fmt.Errorf("%q is not a size: %w", s, dos.ErrRange)
	}
	return uint64(b) / uint64(sectorSize), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
