// Command sonny renders a program of chains to a WAV file, lists its chains
// or serves renders over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sonny"
)

var (
	pf = fmt.Printf
	sf = fmt.Sprintf
)

const ( // aliases
	yes = true
	not = false
)

// terminal colours
const (
	reset  = "\x1b[0m"
	bold   = "\x1b[1m"
	red    = "\x1b[31;1m"
	yellow = "\x1b[33m"
)

var (
	configPath string
	verbose    bool
	flags      struct {
		sampleRate float64
		window     int
		buffer     int
		start      float64
		end        float64
		workers    int
		maxDepth   int
	}
	outPath string
	play    bool
	backend string
	addr    string
	maxDur  float64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		report(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sonny",
	Short: "Evaluate chains of expressions and notes into sound",
	Long: `Sonny evaluates a program of chains sample by sample into a PCM
signal. Programs are YAML descriptions of chains and their links.`,
	SilenceUsage:  yes,
	SilenceErrors: yes,
}

var renderCmd = &cobra.Command{
	Use:   "render program.yaml",
	Short: "Render the output chain to a WAV file",
	Long: `Render the chain marked to play into a mono 16 bit WAV file.

Examples:
  sonny render tune.yaml
  sonny render tune.yaml -o tune.wav --sample-rate 48000 --play`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var listCmd = &cobra.Command{
	Use:   "list program.yaml",
	Short: "List the chains of a program",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Render programs posted over HTTP",
	Long: `Start an HTTP service. POST a program to /render to receive the
rendered WAV.

Example:
  sonny serve --addr :8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(renderCmd, listCmd, serveCmd)

	pflags := rootCmd.PersistentFlags()
	pflags.StringVar(&configPath, "config", "", "config file (default "+sonny.DefaultConfigPath+")")
	pflags.BoolVarP(&verbose, "verbose", "v", not, "log each window")
	pflags.Float64Var(&flags.sampleRate, "sample-rate", 0, "samples per second")
	pflags.IntVar(&flags.window, "window", 0, "samples per window")
	pflags.IntVar(&flags.buffer, "buffer", 0, "look back samples prepended to each window")
	pflags.Float64Var(&flags.start, "start", 0, "start time in seconds")
	pflags.Float64Var(&flags.end, "end", 0, "end time in seconds (default from the program)")
	pflags.IntVar(&flags.workers, "workers", 0, "evaluation workers (default number of CPUs)")
	pflags.IntVar(&flags.maxDepth, "max-depth", 0, "deepest nesting of chain invocations")

	renderCmd.Flags().StringVarP(&outPath, "output", "o", "out.wav", "WAV file to write")
	renderCmd.Flags().BoolVarP(&play, "play", "p", not, "play after generating")
	renderCmd.Flags().StringVar(&backend, "backend", "portaudio", "playback backend (portaudio, sdl)")

	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().Float64Var(&maxDur, "max-duration", 300, "longest render accepted, in seconds")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// settings reads the config file, then applies the flags that were set.
func settings(cmd *cobra.Command) (sonny.Settings, error) {
	s, err := sonny.LoadSettings(configPath)
	if err != nil {
		return s, err
	}
	fl := cmd.Flags()
	if fl.Changed("sample-rate") {
		s.SampleRate = flags.sampleRate
	}
	if fl.Changed("window") {
		s.WindowSize = flags.window
	}
	if fl.Changed("buffer") {
		s.BufferSize = flags.buffer
	}
	if fl.Changed("start") {
		s.Start = flags.start
	}
	if fl.Changed("end") {
		s.End = flags.end
	}
	if fl.Changed("workers") {
		s.Workers = flags.workers
	}
	if fl.Changed("max-depth") {
		s.MaxDepth = flags.maxDepth
	}
	return s, s.Validate()
}

func load(path string) (*sonny.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening program")
	}
	defer f.Close()
	return sonny.LoadProgram(f, path)
}

func runRender(cmd *cobra.Command, args []string) error {
	s, err := settings(cmd)
	if err != nil {
		return err
	}
	reg, err := load(args[0])
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	samples, err := sonny.Render(ctx, reg, s, sonny.Options{Logger: newLogger()})
	if err != nil {
		return err
	}
	path, err := homedir.Expand(outPath)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output")
	}
	if err := sonny.WriteWAV(f, samples, int(s.SampleRate)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	pf("%s%d samples%s written to %s\n", bold, len(samples), reset, path)
	if play {
		return playback(backend, samples, s.SampleRate)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	reg, err := load(args[0])
	if err != nil {
		return err
	}
	return reg.List(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
}

// report writes a single error report, naming the kind, location and for
// backlink faults the argument counts.
func report(f *os.File, err error) {
	r, y, b, x := red, yellow, bold, reset
	if !term.IsTerminal(int(f.Fd())) {
		r, y, b, x = "", "", "", ""
	}
	var e *sonny.Error
	if !errors.As(err, &e) {
		fmt.Fprintf(f, "%sError%s %v\n", r, x, err)
		return
	}
	fmt.Fprintf(f, "%sError%s [%s%s%s]", r, x, b, e.Kind, x)
	if !e.Location.IsZero() {
		fmt.Fprintf(f, " at %s%s%s", y, e.Location, x)
	}
	if e.Chain != (sonny.ChainName{}) {
		fmt.Fprintf(f, " in %s", e.Chain.Describe())
		if e.Link >= 0 {
			fmt.Fprintf(f, ", link %d", e.Link)
		}
	}
	fmt.Fprintln(f)
	if e.Msg != "" {
		fmt.Fprintf(f, "  %s\n", e.Msg)
	}
	if e.Kind == sonny.ErrBackLinkOutOfRange {
		fmt.Fprintf(f, "  expected %d arguments, %d available\n", e.Expected, e.Available)
	}
}
