package receipt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/zombor/ticketverify/internal/scanning"
	"github.com/zombor/ticketverify/internal/ticket"
)

const (
	previewMaxChars = 400
	previewEllipsis = "..."

	// reported instead of the normalization steps when nothing was normalized
	stepWhitespaceOnly = "input_whitespace_only"

	confidenceOK      = 0.80
	confidencePartial = 0.65
	confidenceReject  = 0.15
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Engine runs the extraction pipeline. It holds no per-run state, so one Engine
// may serve concurrent callers.
type Engine struct {
	logger     *slog.Logger
	parsers    []scanning.Parser
	timeSource TimeSource
}

// NewEngine creates an Engine with the default field parsers
func NewEngine(logger *slog.Logger) *Engine {
	return NewEngineWithDeps(logger, scanning.DefaultParsers(), &defaultTimeSource{})
}

// NewEngineWithDeps creates an Engine with custom parsers and clock for testing
func NewEngineWithDeps(logger *slog.Logger, parsers []scanning.Parser, timeSrc TimeSource) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if timeSrc == nil {
		timeSrc = &defaultTimeSource{}
	}
	return &Engine{
		logger:     logger,
		parsers:    parsers,
		timeSource: timeSrc,
	}
}

// Run extracts a ticket from OCR text. It never returns an error: negative outcomes are
// expressed through the status, and an unexpected fault yields StatusError.
func (e *Engine) Run(text string, opts ticket.Options) (out *ticket.EngineOutput) {
	opts = opts.WithDefaults()
	start := e.timeSource.Now()

	out = &ticket.EngineOutput{
		Schema: opts.SchemaTag(),
		Input:  describeInput(text, opts),
		Ticket: ticket.NewParsedTicket(),
	}

	defer func() {
		if r := recover(); r != nil {
			err := eris.Errorf("pipeline fault: %v", r)
			e.logger.Error("Engine run failed", "error", eris.ToString(err, opts.Debug))
			out.Status = ticket.StatusError
			out.Confidence = 0
			out.Ticket = ticket.NewParsedTicket()
			out.ErrorMessage = err.Error()
			out.Timing = e.elapsed(start)
		}
	}()

	if strings.TrimFunc(text, unicode.IsSpace) == "" {
		out.Status = ticket.StatusReject
		out.Confidence = 0
		out.NormalizationApplied = []string{stepWhitespaceOnly}
		e.logger.Debug("engine.reject", "reason", "whitespace only", "chars", out.Input.Chars)
		return out
	}

	norm := scanning.Normalize(text)
	out.NormalizedTextPreview = preview(norm.Text, previewMaxChars)
	out.NormalizationApplied = norm.Applied
	e.logger.Debug("engine.normalized", "chars", len(norm.Text), "steps", norm.Applied)

	out.Ticket.Signals = scanning.DetectSignals(norm.Text)
	for _, p := range e.parsers {
		p.Parse(norm.Text, out.Ticket)
	}
	e.logger.Debug("engine.total", "found", out.Ticket.Total.Present(), "source", out.Ticket.Total.Source)
	e.logger.Debug("engine.merchant", "found", out.Ticket.Merchant.Present(), "confidence", out.Ticket.Merchant.Confidence)

	classify(out)
	out.Timing = e.elapsed(start)

	e.logger.Debug("engine.done",
		"status", out.Status,
		"confidence", out.Confidence,
		"has_total", out.Ticket.Total.Present(),
		"has_merchant", out.Ticket.Merchant.Present(),
		"elapsed_ms", out.Timing.Total,
	)
	return out
}

// classify applies the status policy once every parser has run
func classify(out *ticket.EngineOutput) {
	hasTotal := out.Ticket.Total.Present()
	hasMerchant := out.Ticket.Merchant.Present()

	switch {
	case hasTotal && hasMerchant:
		out.Status = ticket.StatusOK
		out.Confidence = confidenceOK
	case hasTotal:
		out.Status = ticket.StatusPartial
		out.Confidence = confidencePartial
	default:
		out.Status = ticket.StatusReject
		out.Confidence = confidenceReject
		out.Ticket.AddWarning(ticket.WarnTotalNotFound, "No total amount found.", ticket.SeverityMedium)
	}
}

// elapsed fills total and parse with the same value; there is no separate scoring phase
func (e *Engine) elapsed(start time.Time) ticket.TimingMs {
	ms := e.timeSource.Now().Sub(start).Milliseconds()
	return ticket.TimingMs{Total: ms, Parse: ms, Score: 0}
}

func describeInput(text string, opts ticket.Options) ticket.InputMeta {
	meta := ticket.InputMeta{
		Locale: string(opts.Locale),
		Domain: string(opts.Domain),
		Chars:  len(text),
		Lines:  countLines(text, opts.MaxLines),
	}
	if opts.Hash {
		sum := sha256.Sum256([]byte(text))
		meta.Hash = fmt.Sprintf("sha256:%s", hex.EncodeToString(sum[:]))
	}
	return meta
}

// countLines counts newline-terminated lines plus a trailing unterminated one, capped at limit
func countLines(s string, limit int) int {
	lines := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines++
			if lines >= limit {
				return limit
			}
		}
	}
	if s != "" && s[len(s)-1] != '\n' {
		lines++
	}
	return lines
}

// preview keeps the first limit characters of s, marking a cut with an ellipsis
func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + previewEllipsis
}
