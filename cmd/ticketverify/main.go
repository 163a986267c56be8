package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/rotisserie/eris"

	"github.com/zombor/ticketverify/internal/receipt"
	"github.com/zombor/ticketverify/internal/ticket"
)

const appName = "ticketverify"

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// overridden at link time with -ldflags "-X main.build=git:<sha>"
var build = "git:dev"

const (
	exitOK       = 0
	exitArgs     = 2
	exitInternal = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func versionInfo() receipt.VersionInfo {
	return receipt.VersionInfo{Name: appName, Version: version, Build: build}
}

// app carries the parsed flags and process streams shared by every subcommand
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	schema   *string
	format   *string
	locale   *string
	domain   *string
	maxLines *int
	maxBytes *int
	charset  *string
	input    *string
	hash     *bool
	debug    *bool

	level  *slog.LevelVar
	logger *slog.Logger
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// Check for version flag before parsing other flags
	for _, arg := range args {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Fprintf(stderr, "%s %s (%s)\n", appName, version, build)
			return exitOK
		}
	}

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	rootFlags := ff.NewFlagSet(appName)
	a.schema = rootFlags.StringLong("schema", ticket.SchemaV1, "output schema (v1)")
	a.format = rootFlags.StringLong("format", "json", "output format (json)")
	a.locale = rootFlags.StringLong("locale", string(ticket.LocaleAuto), "locale hint: auto or fr_FR")
	a.domain = rootFlags.StringLong("domain", string(ticket.DomainAuto), "domain hint: auto, cafe or resto")
	a.maxLines = rootFlags.IntLong("max-lines", ticket.DefaultMaxLines, "stop reading after this many lines")
	a.maxBytes = rootFlags.IntLong("max-bytes", defaultMaxBytes, "reject input larger than this many bytes")
	a.charset = rootFlags.StringLong("charset", "utf-8", "character set of the input text")
	a.input = rootFlags.StringLong("input", "", "read this file instead of stdin")
	a.hash = rootFlags.BoolLong("hash", "include a sha256 hash of the input")
	a.debug = rootFlags.BoolLong("debug", "log pipeline stages to stderr")
	_ = rootFlags.StringLong("config", "", "config file (plain key value format)")
	_ = rootFlags.BoolLong("version", "show version information")

	root := &ff.Command{
		Name:      appName,
		Usage:     appName + " [FLAGS] < receipt.txt",
		ShortHelp: "extract merchant and total from receipt OCR text",
		Flags:     rootFlags,
		Exec:      a.execParse,
		Subcommands: []*ff.Command{
			a.serveCommand(rootFlags),
			a.batchCommand(rootFlags),
		},
	}

	err := root.Parse(args,
		ff.WithEnvVarPrefix("TICKETVERIFY"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithConfigAllowMissingFile(),
	)
	if errors.Is(err, ff.ErrHelp) {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Command(selected(root)))
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Command(selected(root)))
		return a.fail(argsError("invalid arguments", err))
	}

	// stdout carries only the JSON document, so stderr stays quiet unless asked
	a.level = new(slog.LevelVar)
	a.level.Set(slog.LevelWarn)
	if *a.debug {
		a.level.Set(slog.LevelDebug)
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: a.level}))
	slog.SetDefault(a.logger)

	if err := root.Run(ctx); err != nil {
		return a.fail(err)
	}
	return exitOK
}

// selected is the subcommand named on the command line, or root when parsing stopped early
func selected(root *ff.Command) *ff.Command {
	if cmd := root.GetSelected(); cmd != nil {
		return cmd
	}
	return root
}

// fail reports err as an error envelope on stdout and returns the exit code
func (a *app) fail(err error) int {
	var ce *cliError
	if !errors.As(err, &ce) {
		ce = internalError("unexpected error", err)
	}
	if a.logger != nil {
		a.logger.Debug("Command failed", "code", ce.exit, "error", err)
	}
	if ce.envelope != nil {
		fmt.Fprintf(a.stdout, "%s\n", ce.envelope.Bytes())
	}
	return ce.exit
}

// options validates the run option flags
func (a *app) options() (ticket.Options, error) {
	if *a.format != "json" {
		return ticket.Options{}, argsError("unsupported format", eris.Errorf("format %q", *a.format))
	}

	locale, err := ticket.ParseLocale(*a.locale)
	if err != nil {
		return ticket.Options{}, argsError("invalid arguments", err)
	}
	domain, err := ticket.ParseDomain(*a.domain)
	if err != nil {
		return ticket.Options{}, argsError("invalid arguments", err)
	}

	opts := ticket.Options{
		Schema:   *a.schema,
		Locale:   locale,
		Domain:   domain,
		MaxLines: *a.maxLines,
		Hash:     *a.hash,
		Debug:    *a.debug,
	}
	if err := opts.Validate(); err != nil {
		return ticket.Options{}, argsError("invalid arguments", err)
	}
	if *a.maxBytes <= 0 {
		return ticket.Options{}, argsError("invalid arguments", eris.Errorf("max-bytes must be positive, got %d", *a.maxBytes))
	}
	return opts, nil
}

func (a *app) limits() inputLimits {
	return inputLimits{
		maxLines: *a.maxLines,
		maxBytes: int64(*a.maxBytes),
		charset:  *a.charset,
	}
}

// execParse reads one receipt from stdin or --input and prints its document
func (a *app) execParse(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return argsError("unexpected arguments", eris.Errorf("%s", strings.Join(args, " ")))
	}

	opts, err := a.options()
	if err != nil {
		return err
	}

	src := a.stdin
	if *a.input != "" {
		f, err := os.Open(*a.input)
		if err != nil {
			return &cliError{
				exit:     exitArgs,
				envelope: envelope(receipt.CodeInputUnreadable, "cannot open input", err),
				err:      err,
			}
		}
		defer f.Close()
		src = f
	}

	engine := receipt.NewEngine(a.logger)
	doc, err := processInput(engine, src, opts, a.limits(), versionInfo(), a.logger)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(a.stdout, "%s\n", doc)
	return err
}
