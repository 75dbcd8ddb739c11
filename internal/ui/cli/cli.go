package cli

import (
	"flag"
	"io"

	"classvis/internal/core/config"
)

type cliOptions struct {
	configPath string
	watch      bool
	format     string
	output     string
	history    int
	verbose    bool
	version    bool
	args       []string
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("classvis", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", config.DefaultFile, "Path to config file")
	fs.BoolVar(&opts.watch, "watch", false, "Re-run whenever class inputs or the config change")
	fs.StringVar(&opts.format, "format", "", "Report format: text, markdown or sarif (overrides output.format)")
	fs.StringVar(&opts.output, "output", "", "Write the report to this path instead of stdout (overrides output.path)")
	fs.IntVar(&opts.history, "history", 0, "Print the N most recent runs from the history database and exit")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
