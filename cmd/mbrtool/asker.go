package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// consoleAsker answers the label's questions from standard input and routes its notices to the logger. In
// batch mode every question is answered with the suggested default, like a user pressing enter each time.
type consoleAsker struct {
	in         *bufio.Reader
	out        io.Writer
	sectorSize int
	batch      bool
}

func newConsoleAsker(sectorSize int) *consoleAsker {
	return &consoleAsker{
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stdout,
		sectorSize: sectorSize,
		batch:      viper.GetBool("batch"),
	}
}

// AskNumber prompts for a sector number until the reply parses and fits [low, high]. An empty reply takes the
// suggested default. When relative answers are allowed, +N asks for a partition of N sectors and +size with a
// K/M/G/T/P suffix for one of that many bytes, both measured from low.
func (a *consoleAsker) AskNumber(query string, low, dflt, high uint64, relativeAllowed bool) (uint64, bool, error) {
	if a.batch {
		return dflt, false, nil
	}
	for {
		fmt.Fprintf(a.out, "%s (%d-%d, default %d): ", query, low, high, dflt)
		line, err := a.in.ReadString('\n')
		if err != nil && line == "" {
			return 0, false, fmt.Errorf("reading the answer to %q: %w", query, err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return dflt, false, nil
		}

		value, relative, perr := a.parseReply(line, low, relativeAllowed)
		if perr != nil {
			fmt.Fprintln(a.out, perr)
			continue
		}
		if value < low || value > high {
			fmt.Fprintf(a.out, "value %d is out of range %d-%d\n", value, low, high)
			continue
		}
		return value, relative, nil
	}
}

func (a *consoleAsker) parseReply(line string, low uint64, relativeAllowed bool) (uint64, bool, error) {
	if !strings.HasPrefix(line, "+") {
		v, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%q is not a sector number", line)
		}
		return v, false, nil
	}
	if !relativeAllowed {
		return 0, false, fmt.Errorf("a relative answer is not accepted here")
	}

	sectors, err := parseSectorCount(strings.TrimPrefix(line, "+"), a.sectorSize)
	if err != nil || sectors == 0 {
		return 0, false, fmt.Errorf("%q is not a size", line)
	}
	return low + sectors - 1, true, nil
}

func (a *consoleAsker) AskString(query string) (string, error) {
	if a.batch {
		return "", fmt.Errorf("%q needs an interactive answer, drop --batch to give one", query)
	}
	fmt.Fprintf(a.out, "%s: ", query)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading the answer to %q: %w", query, err)
	}
	return strings.TrimSpace(line), nil
}

func (a *consoleAsker) Info(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func (a *consoleAsker) Warn(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// pinnedAsker answers numeric questions from a prepared list, for commands that take the answer on the command
// line. Once the list is spent it accepts the suggested defaults.
type pinnedAsker struct {
	values []uint64
}

func (a *pinnedAsker) AskNumber(query string, low, dflt, high uint64, relativeAllowed bool) (uint64, bool, error) {
	if len(a.values) == 0 {
		return dflt, false, nil
	}
	v := a.values[0]
	a.values = a.values[1:]
	return v, false, nil
}

func (a *pinnedAsker) AskString(query string) (string, error) {
	return "", nil
}

func (a *pinnedAsker) Info(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func (a *pinnedAsker) Warn(format string, args ...interface{}) {
	log.Warnf(format, args...)
}
