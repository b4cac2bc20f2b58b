// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slog"

	arena "github.com/wundergraph/go-region-arena"
	"github.com/wundergraph/go-region-arena/internal/config"
	"github.com/wundergraph/go-region-arena/internal/primes"
	"github.com/wundergraph/go-region-arena/internal/tracing"
)

const (
	maxWorkingDirectory = 512
	maxConsoleInput     = 256
)

type programFlags uint32

const flagVerbose programFlags = 1 << 0

// state is the program's own bookkeeping. It is allocated from the permanent
// region and lives as long as the arena.
type state struct {
	flags            programFlags
	workingDirectory [maxWorkingDirectory]byte
	input            [maxConsoleInput]byte
}

func (s *state) setWorkingDirectory(dir string) {
	n := copy(s.workingDirectory[:len(s.workingDirectory)-1], dir)
	s.workingDirectory[n] = 0
}

func (s *state) workingDir() string {
	b := s.workingDirectory[:]
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

type host struct {
	in        *bufio.Reader
	out       io.Writer
	newLogger func(verbose bool) *slog.Logger
	args      []string
	tracer    trace.Tracer

	provider *tracesdk.TracerProvider
	log      *slog.Logger
	cfg      *config.Config
	arena    *arena.Arena
	state    *state
}

func (h *host) run(args []string) error {
	h.args = args
	return newApp(h).Run(args)
}

// setup builds the logger and the arena and moves into the working
// directory.
func (h *host) setup(cfg *config.Config, showArgs bool) error {
	h.cfg = cfg
	h.log = h.newLogger(cfg.Verbose)

	if showArgs {
		h.log.Info(fmt.Sprintf("Arguments received [#%d]", len(h.args)))
		for i, arg := range h.args {
			h.log.Info(fmt.Sprintf(" [%d] = %s", i, arg))
		}
	}

	a, err := arena.New(uintptr(cfg.Memory.Permanent), uintptr(cfg.Memory.Transient), cfg.ArenaOptions(h.log)...)
	if err != nil {
		return errors.Wrap(err, "failed to initialise memory arena")
	}
	st, err := arena.Allocate[state](a.Permanent())
	if err != nil {
		_ = a.Free()
		return errors.Wrap(err, "allocating program state")
	}
	if cfg.Verbose {
		st.flags |= flagVerbose
	}
	h.arena, h.state = a, st

	if cfg.WorkingDirectory != "" {
		if err := os.Chdir(cfg.WorkingDirectory); err != nil {
			return errors.Wrap(err, "changing working directory")
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "reading working directory")
	}
	st.setWorkingDirectory(wd)

	if cfg.TraceEndpoint != "" {
		tp, err := tracing.NewProvider(cfg.TraceEndpoint)
		if err != nil {
			return errors.Wrap(err, "setting up tracing")
		}
		h.provider, h.tracer = tp, tp.Tracer("primefactor")
	} else if h.tracer == nil {
		h.tracer = otel.Tracer("primefactor")
	}

	h.log.Debug("Starting...", "wd", st.workingDir())
	return nil
}

// teardown flushes traces and frees the arena. The program state goes with
// it.
func (h *host) teardown() error {
	var err error
	if h.provider != nil {
		err = h.provider.Shutdown(context.Background())
		h.provider = nil
	}
	if h.arena == nil {
		return err
	}
	stats := h.arena.Stats()
	h.log.Debug("Ending...",
		"cycles", stats.Cycles,
		"permanent.peak", stats.Permanent.Peak,
		"transient.peak", stats.Transient.Peak)

	a := h.arena
	h.arena, h.state = nil, nil
	return errors.CombineErrors(err, a.Free())
}

// cycle runs fn as one transient cycle. fn's span records the arena usage it
// reached, then the transient region is reset.
func (h *host) cycle(ctx context.Context, name string, fn func() error, attrs ...attribute.KeyValue) error {
	_, span := tracing.StartCycle(ctx, h.tracer, name, attrs...)
	err := fn()
	tracing.EndCycle(span, h.arena.Stats(), err)
	h.arena.Reset()
	return err
}

func (h *host) verbose() bool {
	return h.state.flags&flagVerbose != 0
}

func (h *host) timerStart() time.Time {
	h.log.Info("Timer Started")
	return time.Now()
}

func (h *host) timerStop(start time.Time) {
	elapsed := time.Since(start)
	h.log.Info(fmt.Sprintf("Timer Stopped: %d seconds (%d microseconds)",
		int64(elapsed/time.Second), elapsed.Microseconds()))
}

func (h *host) generate(to uint64) error {
	start := h.timerStart()
	count, err := primes.Generate(h.arena.Transient(), h.cfg.PrimeFile, to)
	if err != nil {
		return err
	}
	h.timerStop(start)
	fmt.Fprintf(h.out, "\n%d Prime Numbers found (0 - %d).\n", count, to)
	return nil
}

// loadTable reads the prime table into the transient region.
func (h *host) loadTable() ([]uint64, error) {
	table, err := primes.ReadFile(h.arena.Transient(), h.cfg.PrimeFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, errors.WithHint(err, "Generate some prime numbers first.")
	case errors.Is(err, primes.ErrCorrupt):
		return nil, errors.WithHint(err, "Prime number file corrupted. Regenerate.")
	}
	return table, err
}

func (h *host) factorise(n uint64) error {
	table, err := h.loadTable()
	if err != nil {
		return err
	}
	return h.factoriseWith(table, n)
}

func (h *host) factoriseWith(table []uint64, n uint64) error {
	fmt.Fprintln(h.out, "\nProcessing...")
	start := h.timerStart()
	f, err := primes.Factorise(h.arena.Transient(), table, n)
	if err != nil {
		return errors.WithHintf(err, "Enter a number between %d and %d (inclusive).", 2, primes.Limit(table))
	}
	h.timerStop(start)

	if h.verbose() {
		stats := h.arena.Stats()
		h.log.Debug("transient usage", "used", stats.Transient.Used, "available", stats.Transient.Available)
	}
	printFactorisation(h.out, &f)
	return nil
}

func printFactorisation(w io.Writer, f *primes.Factorisation) {
	parity, kind := "odd", "Multi"
	if f.Even() {
		parity = "even"
	}
	if f.Single() {
		kind = "Single"
	}

	fmt.Fprintf(w, "\n> Data:\n")
	fmt.Fprintf(w, "> Input Value: %d (%s)\n", f.N, parity)
	fmt.Fprintf(w, "> Type: %s (%d)\n", kind, len(f.Primes))
	fmt.Fprintf(w, "> Primes used: %s\n", join(f.Primes, ", "))

	if f.Single() {
		fmt.Fprintf(w, "> Occurrence [%d]: %d%s\n", f.Primes[0], f.Combined, primes.Ordinal(f.Combined))
	} else {
		fmt.Fprintf(w, "> Occurrences:\n")
		for i, p := range f.Primes {
			occ := f.Occurrences[i]
			fmt.Fprintf(w, " > [%d]: %d%s\n", p, occ, primes.Ordinal(occ))
		}
		fmt.Fprintf(w, "> Combined occurrence [%s]: %d%s\n", join(f.Primes, "."), f.Combined, primes.Ordinal(f.Combined))
	}

	fmt.Fprintf(w, "> Prime factors [raw find]: %s\n", join(f.Factors, "."))
	fmt.Fprintf(w, "> Prime factors: %s\n", join(f.Sorted, "."))
}

func join(values []uint64, sep string) string {
	var b []byte
	for i, v := range values {
		if i > 0 {
			b = append(b, sep...)
		}
		b = strconv.AppendUint(b, v, 10)
	}
	return string(b)
}

// readLine reads one line of console input into the program state and
// returns it trimmed. Anything beyond the input buffer is discarded.
func (h *host) readLine() (string, error) {
	line, err := h.in.ReadSlice('\n')
	n := copy(h.state.input[:], line)
	for err == bufio.ErrBufferFull {
		_, err = h.in.ReadSlice('\n')
	}
	s := strings.TrimSpace(string(h.state.input[:n]))
	if err == io.EOF && s != "" {
		err = nil
	}
	return s, err
}

const banner = "\n:: Prime Stuff\n:: only 8 byte numbers.\n"

const menu = "] 0: Exit Program.\n] 1: Prime Factorisation.\n] 2: Generate Prime Numbers.\n] Selection: "

// interactive runs the menu loop on the console. The transient region is
// reset after every pass.
func (h *host) interactive(ctx context.Context) error {
	for {
		fmt.Fprint(h.out, banner)
		fmt.Fprint(h.out, menu)

		line, err := h.readLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading selection")
		}

		switch line {
		case "0":
			return nil
		case "1":
			if err := h.factorisationLoop(ctx); err != nil {
				return err
			}
		case "2":
			fmt.Fprint(h.out, "\nPlease enter the highest number to check: ")
			input, err := h.readLine()
			if err != nil && err != io.EOF {
				return errors.Wrap(err, "reading bound")
			}
			to, perr := strconv.ParseUint(input, 10, 64)
			if perr != nil || to == 0 {
				h.log.Warn("An error has occured. Invalid number.", "input", input)
				break
			}
			err = h.cycle(ctx, "generate", func() error {
				return h.generate(to)
			}, attribute.Int64("to", int64(to)))
			if err != nil {
				h.log.Warn("Failed to generate prime numbers.", "err", err)
			}
		default:
			h.log.Warn("Unknown selection.", "input", line)
		}

		h.arena.Reset()
	}
}

// factorisationLoop prompts for numbers until the user enters 0, a negative
// number or nothing.
func (h *host) factorisationLoop(ctx context.Context) error {
	for {
		table, err := h.loadTable()
		if err != nil {
			h.log.Warn(errors.FlattenHints(err), "err", err)
			return nil
		}
		limit := primes.Limit(table)

		fmt.Fprintf(h.out, "\nEnter 0 to exit.\nEnter a number between %d and %d (inclusive): ", 2, limit)
		line, err := h.readLine()
		if err != nil && err != io.EOF {
			return errors.Wrap(err, "reading number")
		}
		if line == "" || line[0] == '0' || line[0] == '-' {
			return nil
		}

		n, perr := strconv.ParseUint(line, 10, 64)
		if perr != nil || n < 2 || n > limit {
			h.log.Warn("An error has occured, ensure the input is numeric and within the boundaries.", "input", line)
			h.arena.Reset()
			continue
		}
		err = h.cycle(ctx, "factor", func() error {
			return h.factoriseWith(table, n)
		}, attribute.Int64("n", int64(n)))
		if err != nil {
			return err
		}
	}
}
