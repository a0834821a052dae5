package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/trace"
)

var errLimit = errors.New("limit reached")

func main() {
	module := flag.String("module", "", "Only print ticks decided by this module")
	asJSON := flag.Bool("json", false, "Print entries as JSON lines")
	summary := flag.Bool("summary", false, "Print per-module counts after the entries")
	limit := flag.Int("limit", 0, "Stop after this many printed entries (0 for no limit)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: tracedump [flags] trace-<session>-<hour>.jsonl.zst ...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	enc := json.NewEncoder(out)

	counts := map[string]int{}
	printed := 0
	for _, path := range flag.Args() {
		err := trace.ReadFile(path, func(e trace.Entry) error {
			if *module != "" && e.Module != *module {
				return nil
			}
			counts[e.Module]++
			if *asJSON {
				if err := enc.Encode(e); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, formatEntry(e))
			}
			printed++
			if *limit > 0 && printed >= *limit {
				return errLimit
			}
			return nil
		})
		if errors.Is(err, errLimit) {
			break
		}
		if err != nil {
			out.Flush()
			log.Fatal().Err(err).Str("path", path).Msg("Failed to read trace")
		}
	}

	if *summary {
		modules := make([]string, 0, len(counts))
		for m := range counts {
			modules = append(modules, m)
		}
		sort.Strings(modules)
		fmt.Fprintf(out, "%d ticks\n", printed)
		for _, m := range modules {
			fmt.Fprintf(out, "  %-12s %d\n", m, counts[m])
		}
	}
}

func formatEntry(e trace.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tick=%-5d %-12s p=%.2f threat=%.2f path=%-3d replans=%-4d %6dus  %s",
		e.Tick, e.Module, e.Priority, e.MaxThreat, e.PathLength, e.Replans, e.DurationUS, e.Action)

	if len(e.Priorities) > 0 {
		names := make([]string, 0, len(e.Priorities))
		for name := range e.Priorities {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("  [")
		for i, name := range names {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s=%.2f", name, e.Priorities[name])
		}
		b.WriteByte(']')
	}
	return b.String()
}
