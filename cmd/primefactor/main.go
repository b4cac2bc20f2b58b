// SPDX-License-Identifier: Apache-2.0

// primefactor generates prime tables and factorises numbers against them.
// All of its working memory comes from a two-region arena: the program state
// sits in the permanent region and every command cycle runs in the transient
// region, which is reset once the cycle is done.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/exp/slog"

	"github.com/wundergraph/go-region-arena/internal/config"
	"github.com/wundergraph/go-region-arena/internal/logging"
)

const memoryCategory = "MEMORY"

var (
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "enable verbose outputs",
	}
	showArgsFlag = &cli.BoolFlag{
		Name:    "show-args",
		Aliases: []string{"ra"},
		Usage:   "print the received arguments",
	}
	workingDirFlag = &cli.StringFlag{
		Name:      "wd",
		Usage:     "override the working directory",
		TakesFile: true,
	}
	configFlag = &cli.StringFlag{
		Name:      "config",
		Usage:     "TOML configuration file",
		TakesFile: true,
	}
	primeFileFlag = &cli.StringFlag{
		Name:      "primes",
		Usage:     "prime table file (default: " + config.DefaultPrimeFile + ")",
		TakesFile: true,
	}

	traceEndpointFlag = &cli.StringFlag{
		Name:  "trace.endpoint",
		Usage: "jaeger collector endpoint every arena cycle is traced to",
	}

	memoryFlag = &cli.StringFlag{
		Name:     "memory",
		Usage:    "permanent and transient region sizes in bytes, e.g. 1024,2048",
		Category: memoryCategory,
	}
	permanentFlag = &cli.Uint64Flag{
		Name:     "permanent",
		Usage:    "permanent region size in bytes (default: 2097152)",
		Category: memoryCategory,
	}
	transientFlag = &cli.Uint64Flag{
		Name:     "transient",
		Usage:    "transient region size in bytes (default: 2097152)",
		Category: memoryCategory,
	}
	mmapFlag = &cli.BoolFlag{
		Name:     "mmap",
		Usage:    "back the arena with anonymous memory mappings instead of the Go heap",
		Category: memoryCategory,
	}
)

func newApp(h *host) *cli.App {
	app := &cli.App{
		Name:      "primefactor",
		Usage:     "prime table generation and factorisation",
		Writer:    h.out,
		ErrWriter: h.out,
		Flags: []cli.Flag{
			verboseFlag,
			showArgsFlag,
			workingDirFlag,
			configFlag,
			primeFileFlag,
			traceEndpointFlag,
			memoryFlag,
			permanentFlag,
			transientFlag,
			mmapFlag,
		},
		Before: func(ctx *cli.Context) error {
			cfg, err := configFromFlags(ctx)
			if err != nil {
				return err
			}
			return h.setup(cfg, ctx.Bool(showArgsFlag.Name))
		},
		After: func(ctx *cli.Context) error {
			return h.teardown()
		},
		Action: func(ctx *cli.Context) error {
			return h.interactive(ctx.Context)
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "generate",
			Usage:     "Writes every prime below a bound to the prime table",
			ArgsUsage: "<to>",
			Action: func(ctx *cli.Context) error {
				if ctx.NArg() != 1 {
					return errors.New("generate expects exactly one bound")
				}
				to, err := parseUint(ctx.Args().First())
				if err != nil {
					return err
				}
				return h.cycle(ctx.Context, "generate", func() error {
					return h.generate(to)
				}, attribute.Int64("to", int64(to)))
			},
		},
		{
			Name:      "factor",
			Usage:     "Factorises numbers against the prime table",
			ArgsUsage: "<n>...",
			Action: func(ctx *cli.Context) error {
				if ctx.NArg() == 0 {
					return errors.New("factor expects at least one number")
				}
				for _, arg := range ctx.Args().Slice() {
					n, err := parseUint(arg)
					if err != nil {
						return err
					}
					err = h.cycle(ctx.Context, "factor", func() error {
						return h.factorise(n)
					}, attribute.Int64("n", int64(n)))
					if err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Name:  "dumpconfig",
			Usage: "Prints the effective configuration as TOML",
			Action: func(ctx *cli.Context) error {
				return h.cfg.Encode(h.out)
			},
		},
	}
	return app
}

// configFromFlags layers the config file and then the command line flags
// over the defaults.
func configFromFlags(ctx *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if ctx.IsSet(configFlag.Name) {
		loaded, err := config.Load(ctx.String(configFlag.Name))
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if ctx.IsSet(verboseFlag.Name) {
		cfg.Verbose = ctx.Bool(verboseFlag.Name)
	}
	if ctx.IsSet(workingDirFlag.Name) {
		cfg.WorkingDirectory = ctx.String(workingDirFlag.Name)
	}
	if ctx.IsSet(primeFileFlag.Name) {
		cfg.PrimeFile = ctx.String(primeFileFlag.Name)
	}
	if ctx.IsSet(traceEndpointFlag.Name) {
		cfg.TraceEndpoint = ctx.String(traceEndpointFlag.Name)
	}
	if ctx.IsSet(memoryFlag.Name) {
		permanent, transient, err := parseMemory(ctx.String(memoryFlag.Name))
		if err != nil {
			return nil, err
		}
		cfg.Memory.Permanent, cfg.Memory.Transient = permanent, transient
	}
	if ctx.IsSet(permanentFlag.Name) {
		cfg.Memory.Permanent = ctx.Uint64(permanentFlag.Name)
	}
	if ctx.IsSet(transientFlag.Name) {
		cfg.Memory.Transient = ctx.Uint64(transientFlag.Name)
	}
	if ctx.IsSet(mmapFlag.Name) && ctx.Bool(mmapFlag.Name) {
		cfg.Memory.Backing = config.BackingMmap
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseMemory reads a "permanent,transient" pair of byte counts.
func parseMemory(s string) (permanent, transient uint64, err error) {
	perm, trans, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, errors.Newf("invalid --memory %q, want <permanent>,<transient>", s)
	}
	if permanent, err = parseUint(perm); err != nil {
		return 0, 0, errors.Wrap(err, "invalid --memory")
	}
	if transient, err = parseUint(trans); err != nil {
		return 0, 0, errors.Wrap(err, "invalid --memory")
	}
	return permanent, transient, nil
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, errors.Newf("%q is not an unsigned 64 bit number", s)
	}
	return v, nil
}

func newHost(in io.Reader, out io.Writer, newLogger func(verbose bool) *slog.Logger) *host {
	return &host{in: bufio.NewReader(in), out: out, newLogger: newLogger}
}

func main() {
	h := newHost(os.Stdin, os.Stdout, logging.New)
	if err := h.run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}
