package cli

import (
	"flag"
	"fmt"
	"strings"
)

// Args holds the parsed command line. Secrets never travel through flags;
// they come from the environment (see cmd/vrcroster).
type Args struct {
	Workspace  string
	OutDir     string
	GroupIDs   []string
	WorldIDs   []string
	ServerIDs  []string
	ChannelIDs []string
	LogLevel   string
	LogFile    string
	Query      string
}

// ParseArgs parses and validates the command line. Validation failures are
// configuration errors: they are reported before any network call and make
// the process exit with code 2.
func ParseArgs(arguments []string) (Args, error) {
	fs := flag.NewFlagSet("vrcroster", flag.ContinueOnError)

	workspace := fs.String("workspace", ".", "Workspace directory.")
	outDir := fs.String("out", "out", "Output subdirectory for the snapshot, relative to the workspace.")
	groups := fs.String("groups", "", "Comma-delimited VRChat group IDs to track.")
	worlds := fs.String("worlds", "", "Comma-delimited VRChat world IDs to track.")
	servers := fs.String("servers", "", "Comma-delimited Discord server IDs to track.")
	channels := fs.String("channels", "", "Comma-delimited link-channel IDs, one per server.")
	logLevel := fs.String("log_level", "INFO", "Set the logging level (DEBUG, INFO, WARNING, ERROR).")
	logFile := fs.String("log_file", "", "Set the log file path. If not set, logs will be printed to console.")
	query := fs.String("query", "", "Specify a predefined graph query to run after data collection.")

	if err := fs.Parse(arguments); err != nil {
		return Args{}, err
	}

	args := Args{
		Workspace:  *workspace,
		OutDir:     *outDir,
		GroupIDs:   SplitList(*groups),
		WorldIDs:   SplitList(*worlds),
		ServerIDs:  SplitList(*servers),
		ChannelIDs: SplitList(*channels),
		LogLevel:   *logLevel,
		LogFile:    *logFile,
		Query:      *query,
	}

	if len(args.ServerIDs) != len(args.ChannelIDs) {
		return Args{}, fmt.Errorf("-servers lists %d ids but -channels lists %d; they must pair up", len(args.ServerIDs), len(args.ChannelIDs))
	}
	return args, nil
}

// SplitList splits a comma-delimited flag value, trimming whitespace and
// dropping empty entries.
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
