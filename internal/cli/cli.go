// Package cli parses the garmindl command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/j-veylop/garmindl/internal/models"
)

// Command is the action selected on the command line.
type Command int

const (
	// CommandDownload fetches metrics and writes CSV files.
	CommandDownload Command = iota
	// CommandHistory lists runs from the ledger.
	CommandHistory
	// CommandToken shows the token store status.
	CommandToken
	// CommandVersion prints version information.
	CommandVersion
	// CommandHelp prints usage.
	CommandHelp
)

const defaultHistoryLimit = 10

// Args is the parsed command line.
type Args struct {
	Request   models.Request
	OutputDir string
	Command   Command

	FailFast bool
	Plain    bool
	Chart    bool
	Notify   bool
	Verbose  bool

	// HistoryLimit is the number of runs listed by the history command.
	HistoryLimit int
	// PruneKeep, when positive, trims the ledger to that many runs.
	PruneKeep int
}

// Usage is the help text.
const Usage = `garmindl - download Garmin Connect metrics to monthly CSV files

Usage:
  garmindl [flags] <year> <month|start-end> --datatype bb,hr
  garmindl history [-n N] [--prune K] [--plain]
  garmindl token
  garmindl version

Arguments:
  year             The year (e.g. 2024)
  month            Month or range of months (e.g. 5 or 5-8)

Flags:
  --datatype LIST  Data types to download: bb (Body Battery) and/or hr (Heart Rate)
  --out DIR        Directory for the CSV files (default: GARMINDL_OUTPUT_DIR or .)
  --fail-fast      Stop at the first failed month
  --plain          Plain output, no progress UI
  --chart          Add a daily heart rate chart to the report
  --notify         Send a desktop notification when the run finishes
  --verbose        Debug logging
  -h, --help       Show this help message
  -v, --version    Show version information

Environment:
  GARMINTOKENS     Token store directory (default ~/.garth)
`

// Parse parses the arguments after the program name. Invalid input returns
// a *models.UsageError.
func Parse(argv []string) (*Args, error) {
	if len(argv) > 0 {
		switch argv[0] {
		case "history":
			return parseHistory(argv[1:])
		case "token":
			if len(argv) > 1 {
				return nil, models.NewUsageError("token takes no arguments")
			}
			return &Args{Command: CommandToken}, nil
		case "version":
			return &Args{Command: CommandVersion}, nil
		case "help":
			return &Args{Command: CommandHelp}, nil
		}
	}
	return parseDownload(argv)
}

func parseDownload(argv []string) (*Args, error) {
	args := &Args{Command: CommandDownload}
	var datatype string
	var help, version bool

	fs := newFlagSet("garmindl")
	fs.StringVar(&datatype, "datatype", "", "")
	fs.StringVar(&args.OutputDir, "out", "", "")
	fs.BoolVar(&args.FailFast, "fail-fast", false, "")
	fs.BoolVar(&args.Plain, "plain", false, "")
	fs.BoolVar(&args.Chart, "chart", false, "")
	fs.BoolVar(&args.Notify, "notify", false, "")
	fs.BoolVar(&args.Verbose, "verbose", false, "")
	fs.BoolVar(&help, "h", false, "")
	fs.BoolVar(&help, "help", false, "")
	fs.BoolVar(&version, "v", false, "")
	fs.BoolVar(&version, "version", false, "")

	positionals, err := parseInterspersed(fs, argv)
	if err != nil {
		return nil, err
	}

	switch {
	case help:
		return &Args{Command: CommandHelp}, nil
	case version:
		return &Args{Command: CommandVersion}, nil
	}

	if len(positionals) != 2 {
		return nil, models.NewUsageError("expected <year> and <month>, got %d arguments", len(positionals))
	}

	year, err := ParseYear(positionals[0])
	if err != nil {
		return nil, err
	}
	months, err := ParseMonths(positionals[1])
	if err != nil {
		return nil, err
	}
	if !isSet(fs, "datatype") {
		return nil, models.NewUsageError("the following argument is required: --datatype")
	}
	kinds, err := ParseDatatypes(datatype)
	if err != nil {
		return nil, err
	}

	args.Request = models.Request{Year: year, Months: months, Kinds: kinds}
	return args, nil
}

func parseHistory(argv []string) (*Args, error) {
	args := &Args{Command: CommandHistory}

	fs := newFlagSet("garmindl history")
	fs.IntVar(&args.HistoryLimit, "n", defaultHistoryLimit, "")
	fs.IntVar(&args.PruneKeep, "prune", 0, "")
	fs.BoolVar(&args.Plain, "plain", false, "")

	positionals, err := parseInterspersed(fs, argv)
	if errors.Is(err, flag.ErrHelp) {
		return &Args{Command: CommandHelp}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(positionals) > 0 {
		return nil, models.NewUsageError("history takes no arguments, got %q", positionals[0])
	}
	if args.HistoryLimit < 1 {
		return nil, models.NewUsageError("-n must be positive, got %d", args.HistoryLimit)
	}
	if args.PruneKeep < 0 {
		return nil, models.NewUsageError("--prune must not be negative, got %d", args.PruneKeep)
	}
	return args, nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseInterspersed lets flags appear before, between or after positionals.
// Everything after "--" is positional.
func parseInterspersed(fs *flag.FlagSet, argv []string) ([]string, error) {
	var positionals, tail []string
	for i, a := range argv {
		if a == "--" {
			argv, tail = argv[:i], argv[i+1:]
			break
		}
	}

	rest := argv
	for {
		if err := fs.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, models.NewUsageError("%v", err)
		}
		rest = fs.Args()
		if len(rest) == 0 {
			break
		}
		positionals = append(positionals, rest[0])
		rest = rest[1:]
	}
	return append(positionals, tail...), nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// ParseYear parses a four digit year.
func ParseYear(s string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || year < 1 || year > 9999 {
		return 0, models.NewUsageError("invalid year %q", s)
	}
	return year, nil
}

// ParseMonths parses "5" or an inclusive range "5-8" into month numbers.
func ParseMonths(s string) ([]int, error) {
	s = strings.TrimSpace(s)

	if strings.Contains(s, "-") {
		parts := strings.Split(s, "-")
		if len(parts) != 2 {
			return nil, models.NewUsageError("invalid month range %q", s)
		}
		start, err1 := strconv.Atoi(parts[0])
		end, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil || start < 1 || end > 12 || start > end {
			return nil, models.NewUsageError("invalid month range %q", s)
		}
		months := make([]int, 0, end-start+1)
		for m := start; m <= end; m++ {
			months = append(months, m)
		}
		return months, nil
	}

	month, err := strconv.Atoi(s)
	if err != nil || month < 1 || month > 12 {
		return nil, models.NewUsageError("month must be a number between 1 and 12, got %q", s)
	}
	return []int{month}, nil
}

// ParseDatatypes parses a comma separated list of metric kinds. Duplicates
// are dropped, order is kept.
func ParseDatatypes(s string) ([]models.MetricKind, error) {
	var kinds []models.MetricKind
	seen := make(map[models.MetricKind]bool)

	for _, item := range strings.Split(s, ",") {
		kind, err := models.ParseMetricKind(item)
		if err != nil {
			return nil, models.NewUsageError("%v", err)
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// String returns the subcommand name.
func (c Command) String() string {
	switch c {
	case CommandDownload:
		return "download"
	case CommandHistory:
		return "history"
	case CommandToken:
		return "token"
	case CommandVersion:
		return "version"
	case CommandHelp:
		return "help"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}
