package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/ticketverify/internal/receipt"
	"github.com/zombor/ticketverify/internal/ticket"
)

var errBatchFailed = eris.New("one or more inputs failed")

// batchLine is one NDJSON record of batch output
type batchLine struct {
	File   string          `json:"file"`
	Output json.RawMessage `json:"output"`
}

type batchResult struct {
	doc    []byte
	failed bool
}

func (a *app) batchCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("batch").SetParent(parent)
	var (
		concurrency = fs.IntLong("concurrency", 4, "number of files processed at once")
		outDir      = fs.StringLong("out", "", "write one JSON file per input to this directory instead of stdout")
	)

	return &ff.Command{
		Name:      "batch",
		Usage:     appName + " batch [FLAGS] FILE...",
		ShortHelp: "parse many receipt files concurrently",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return argsError("no input files", nil)
			}
			if *concurrency <= 0 {
				return argsError("invalid arguments", eris.Errorf("concurrency must be positive, got %d", *concurrency))
			}
			opts, err := a.options()
			if err != nil {
				return err
			}

			var store receipt.Storage
			if *outDir != "" {
				local, err := receipt.NewLocalStorage(*outDir)
				if err != nil {
					return internalError("cannot create output directory", err)
				}
				store = local
			}

			engine := receipt.NewEngine(a.logger)
			limits := a.limits()
			info := versionInfo()
			results := make([]batchResult, len(args))

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(*concurrency)
			for i, path := range args {
				g.Go(func() error {
					if err := gctx.Err(); err != nil {
						return err
					}
					results[i] = a.processFile(engine, path, limits, info, opts)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return internalError("batch interrupted", err)
			}

			failed := 0
			for i, path := range args {
				res := results[i]
				if res.failed {
					failed++
				}
				if err := a.emit(store, path, res.doc); err != nil {
					return internalError("cannot write output", err)
				}
			}

			a.logger.Info("Batch finished", "files", len(args), "failed", failed)
			if failed > 0 {
				return &cliError{exit: exitInternal, err: eris.Wrapf(errBatchFailed, "%d of %d", failed, len(args))}
			}
			return nil
		},
	}
}

// processFile never fails the batch: errors become the file's envelope
func (a *app) processFile(engine *receipt.Engine, path string, limits inputLimits, info receipt.VersionInfo, opts ticket.Options) batchResult {
	f, err := os.Open(path)
	if err != nil {
		a.logger.Error("Failed to open input", "file", path, "error", err)
		return batchResult{doc: envelope(receipt.CodeInputUnreadable, "cannot open input", err).Bytes(), failed: true}
	}
	defer f.Close()

	doc, err := processInput(engine, f, opts, limits, info, a.logger)
	if err != nil {
		a.logger.Error("Failed to process input", "file", path, "error", err)
		env := envelope(receipt.CodeInternal, "unexpected error", err)
		var ce *cliError
		if errors.As(err, &ce) && ce.envelope != nil {
			env = ce.envelope
		}
		return batchResult{doc: env.Bytes(), failed: true}
	}
	return batchResult{doc: doc}
}

// emit writes one result either to the output directory or as an NDJSON line
func (a *app) emit(store receipt.Storage, path string, doc []byte) error {
	if store != nil {
		saved, err := store.Save(receipt.ResultName(path), doc)
		if err != nil {
			return eris.Wrapf(err, "saving result for %s", path)
		}
		a.logger.Debug("Saved result", "file", path, "path", saved)
		return nil
	}

	line, err := json.Marshal(batchLine{File: path, Output: doc})
	if err != nil {
		return eris.Wrap(err, "marshaling batch line")
	}
	_, err = fmt.Fprintf(a.stdout, "%s\n", line)
	return err
}
