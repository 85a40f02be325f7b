package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dailyyoga/savekit/app"
	"github.com/dailyyoga/savekit/codec"
	"github.com/dailyyoga/savekit/dispatch"
	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/save"
	"github.com/dailyyoga/savekit/settings"
	"github.com/dailyyoga/savekit/storage"
	flag "github.com/spf13/pflag"
)

var errUsage = errors.New("usage")

// command is one savectl subcommand.
type command struct {
	flags *flag.FlagSet
	usage string
	short string
	exec  func(ctx context.Context, env *env, args []string) error
}

func (c *command) name() string {
	name, _, _ := strings.Cut(c.usage, " ")
	return name
}

// env is what every command runs against.
type env struct {
	out      io.Writer
	settings *settings.Settings
	log      logger.Logger
	user     int
	store    storage.BlobStore
	codec    *codec.Codec
	backend  *storage.Backend
	sub      *save.Subsystem
}

func (e *env) close() error {
	var errs []error
	if e.backend != nil {
		errs = append(errs, e.backend.Close())
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	return errors.Join(errs...)
}

type globalFlags struct {
	config  string
	driver  string
	path    string
	user    int
	verbose bool
}

// Run executes savectl and returns the exit code.
func Run(ctx context.Context, out, errOut io.Writer, args []string) int {
	var g globalFlags
	fs := flag.NewFlagSet("savectl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)
	fs.StringVarP(&g.config, "config", "c", "", "settings file (HuJSON)")
	fs.StringVar(&g.driver, "driver", "", "storage driver: memory, file, sqlite, mysql")
	fs.StringVar(&g.path, "path", "", "file store root or sqlite database")
	fs.IntVarP(&g.user, "user", "u", 0, "user index of the slots")
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "log at debug level")

	cmds := commands()
	if len(args) > 0 {
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(out, fs, cmds)
			return 0
		}
		fmt.Fprintln(errOut, "error:", err)
		printUsage(errOut, fs, cmds)
		return 1
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(errOut, fs, cmds)
		return 1
	}
	var cmd *command
	for _, c := range cmds {
		if c.name() == rest[0] {
			cmd = c
		}
	}
	if cmd == nil {
		fmt.Fprintf(errOut, "error: unknown command %q\n", rest[0])
		printUsage(errOut, fs, cmds)
		return 1
	}

	cmd.flags.SetOutput(io.Discard)
	if err := cmd.flags.Parse(rest[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printCommandUsage(out, cmd)
			return 0
		}
		fmt.Fprintln(errOut, "error:", err)
		printCommandUsage(errOut, cmd)
		return 1
	}

	e, err := open(g, out)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	err = cmd.exec(ctx, e, cmd.flags.Args())
	err = errors.Join(err, e.close())
	if errors.Is(err, errUsage) {
		printCommandUsage(errOut, cmd)
		return 1
	}
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}

func open(g globalFlags, out io.Writer) (*env, error) {
	s, err := settings.Load(g.config)
	if err != nil {
		return nil, err
	}
	if g.driver != "" {
		s.Storage.Driver = g.driver
	}
	if g.path != "" {
		s.Storage.Path = g.path
	}
	if err := s.Storage.Validate(); err != nil {
		return nil, err
	}

	s.Logger.Level = "warn"
	if g.verbose {
		s.Logger.Level = "debug"
	}
	s.Logger.Encoding = "console"
	s.Logger.OutputPaths = []string{"stderr"}
	log, err := logger.New(s.Logger)
	if err != nil {
		return nil, err
	}

	reg, err := codec.NewRegistry(kvType)
	if err != nil {
		return nil, err
	}

	e := &env{out: out, settings: s, log: log, user: g.user, codec: codec.New(reg)}
	if e.store, err = app.OpenStore(log, s.Storage); err != nil {
		return nil, err
	}
	// savectl only issues synchronous calls, so completions never need a loop
	if e.backend, err = storage.NewBackend(log, e.store, e.codec, dispatch.Inline{}, s.Storage.Backend); err != nil {
		return nil, errors.Join(err, e.close())
	}

	scope := save.ScopeUser
	if g.user == 0 {
		scope = save.ScopeProcess
	}
	e.sub, err = save.New(log, e.backend, &save.Config{Name: "savectl", Scope: scope, UserIndex: g.user})
	if err != nil {
		return nil, errors.Join(err, e.close())
	}
	return e, nil
}

func printUsage(w io.Writer, fs *flag.FlagSet, cmds []*command) {
	fmt.Fprintln(w, "Usage: savectl [global flags] <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range cmds {
		fmt.Fprintf(w, "  %-34s %s\n", c.usage, c.short)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
}

func printCommandUsage(w io.Writer, c *command) {
	fmt.Fprintln(w, "Usage: savectl", c.usage)
	fmt.Fprintln(w)
	fmt.Fprintln(w, c.short)
	if c.flags.HasFlags() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")
		c.flags.SetOutput(w)
		c.flags.PrintDefaults()
		c.flags.SetOutput(io.Discard)
	}
}
