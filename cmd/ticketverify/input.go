package main

import (
	"io"
	"log/slog"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/zombor/ticketverify/internal/receipt"
	"github.com/zombor/ticketverify/internal/scanning"
	"github.com/zombor/ticketverify/internal/ticket"
)

const defaultMaxBytes = 2 << 20

var errInputTooLarge = eris.New("input too large")

// cliError maps a failure to an exit code and, optionally, the envelope printed for it
type cliError struct {
	exit     int
	envelope *receipt.ErrorEnvelope
	err      error
}

func (e *cliError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	if e.envelope != nil {
		return e.envelope.Error.Message
	}
	return "command failed"
}

func (e *cliError) Unwrap() error {
	return e.err
}

func envelope(code, message string, err error) *receipt.ErrorEnvelope {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	env := receipt.NewErrorEnvelope(code, message, detail)
	return &env
}

func argsError(message string, err error) *cliError {
	return &cliError{exit: exitArgs, envelope: envelope(receipt.CodeArgsInvalid, message, err), err: err}
}

func internalError(message string, err error) *cliError {
	return &cliError{exit: exitInternal, envelope: envelope(receipt.CodeInternal, message, err), err: err}
}

type inputLimits struct {
	maxLines int
	maxBytes int64
	charset  string
}

// readLimited reads all of r, failing once more than maxBytes arrive
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "reading input")
	}
	if int64(len(data)) > maxBytes {
		return nil, eris.Wrapf(errInputTooLarge, "more than %d bytes", maxBytes)
	}
	return data, nil
}

// processInput runs one input through decoding, the engine and the renderer
func processInput(engine *receipt.Engine, r io.Reader, opts ticket.Options, limits inputLimits, info receipt.VersionInfo, logger *slog.Logger) ([]byte, error) {
	data, err := readLimited(r, limits.maxBytes)
	if eris.Is(err, errInputTooLarge) {
		return nil, &cliError{exit: exitArgs, envelope: envelope(receipt.CodeInputTooLarge, "input exceeds max size", err), err: err}
	}
	if err != nil {
		return nil, &cliError{exit: exitArgs, envelope: envelope(receipt.CodeInputUnreadable, "cannot read input", err), err: err}
	}

	text, err := scanning.DecodeText(data, "", limits.charset)
	if err != nil {
		return nil, &cliError{exit: exitArgs, envelope: envelope(receipt.CodeInputUnreadable, "cannot decode input", err), err: err}
	}

	text, truncated := scanning.TruncateLines(text, limits.maxLines)
	if truncated {
		logger.Debug("Input truncated", "max_lines", limits.maxLines, "bytes", len(text))
	}

	if strings.TrimFunc(text, unicode.IsSpace) == "" {
		return nil, &cliError{exit: exitArgs, envelope: envelope(receipt.CodeInputEmpty, "input is empty", nil)}
	}

	out := engine.Run(text, opts)
	if out.Status == ticket.StatusError {
		return nil, internalError("engine error", eris.New(out.ErrorMessage))
	}

	doc, err := receipt.RenderV1(out, info)
	if err != nil {
		return nil, internalError("cannot render output", err)
	}

	if opts.Debug {
		if err := receipt.ValidateV1(doc); err != nil {
			logger.Warn("Output does not match schema", "error", err)
		}
	}
	return doc, nil
}
