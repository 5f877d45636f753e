package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/adamwoolhether/gcurl"
	"github.com/adamwoolhether/gcurl/internal/config"
)

var exampleUsage = strings.TrimSpace(`
  gcurl get https://example.com/search -d q=golang -i
  gcurl post https://example.com/form -d name=gopher -d lang=go
  gcurl put https://example.com/upload/report.csv ./report.csv
  gcurl get -L --max-redirs 5 -o page.html https://example.com/
`)

// app holds the flag values shared by every subcommand.
type app struct {
	settings config.Settings
	cfgPath  string
	include  bool
	outPath  string
	checksum string
	verbose  bool
	noColor  bool
	fail     bool
	hops     int
	stdout   io.Writer
	stderr   io.Writer
}

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		settings: config.Default(),
		stdout:   stdout,
		stderr:   stderr,
	}
	cfg := &a.settings.Transfer

	root := &cobra.Command{
		Use:           "gcurl",
		Short:         "Perform a single HTTP request",
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.noColor {
				color.NoColor = true
			}
			return a.loadConfig(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to config file (default: "+config.DefaultPath()+")")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "maximum time for the whole transfer, 0 for none")
	flags.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "maximum time to establish a connection")
	flags.BoolVarP(&cfg.FollowRedirects, "location", "L", cfg.FollowRedirects, "let the engine follow redirects")
	flags.IntVar(&cfg.MaxRedirects, "max-redirs", cfg.MaxRedirects, "redirect limit with --location, -1 for none")
	flags.IntVar(&a.hops, "hops", 0, "follow up to N redirects by re-issuing GET requests")
	flags.StringVarP(&cfg.UserAgent, "user-agent", "A", cfg.UserAgent, "User-Agent header")
	flags.StringArrayVarP(&cfg.Headers, "header", "H", nil, `extra "Name: value" header, repeatable`)
	flags.StringVar(&a.settings.RequestIDHeader, "request-id-header", "", "send each request id in this header")
	flags.IntVar(&a.settings.Rate, "rate", 0, "maximum requests per second, 0 for no limit")
	flags.IntVar(&a.settings.Burst, "burst", a.settings.Burst, "burst size with --rate")
	flags.BoolVarP(&a.include, "include", "i", false, "print response headers")
	flags.StringVarP(&a.outPath, "output", "o", "", "write the body to a file instead of stdout")
	flags.StringVar(&a.checksum, "sha256", "", "verify the hex SHA-256 of the body written with --output")
	flags.BoolVarP(&a.fail, "fail", "f", false, "exit with an error on HTTP status 400 and above")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log transfer details to stderr")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(a.getCmd(), a.postCmd(), a.putCmd())

	return root
}

// loadConfig merges the config file under the flags given on the command
// line. A missing default file is not an error.
func (a *app) loadConfig(cmd *cobra.Command) error {
	path := a.cfgPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}
	if path == "" || (!explicit && !config.Exists(path)) {
		return nil
	}

	fc, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	return config.Apply(&a.settings, fc, changed)
}

func (a *app) logger() *slog.Logger {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
}

// /////////////////////////////////////////////////////////////////

// statusError reports an HTTP error status under --fail.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("the requested URL returned error: %d", e.code)
}

// exitCode maps err to the process exit status.
func exitCode(err error) int {
	var se *statusError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &se):
		return 22
	case errors.Is(err, gcurl.ErrTransferFailed):
		return 7
	default:
		return 1
	}
}

func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %v\n", red("error:"), err)
}
