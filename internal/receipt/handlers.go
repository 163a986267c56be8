package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/zombor/ticketverify/internal/scanning"
	"github.com/zombor/ticketverify/internal/ticket"
)

// writeEnvelope writes an error envelope with the given status
func writeEnvelope(w http.ResponseWriter, code int, env ErrorEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(env.Bytes())
}

// writeJSON writes a JSON payload with status OK
func writeJSON(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// optionsFromQuery builds run options from the request query string
func optionsFromQuery(q url.Values) (ticket.Options, error) {
	opts := ticket.DefaultOptions()

	if v := q.Get("locale"); v != "" {
		loc, err := ticket.ParseLocale(v)
		if err != nil {
			return opts, err
		}
		opts.Locale = loc
	}
	if v := q.Get("domain"); v != "" {
		d, err := ticket.ParseDomain(v)
		if err != nil {
			return opts, err
		}
		opts.Domain = d
	}
	if v := q.Get("max_lines"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, eris.Wrapf(ticket.ErrInvalidMaxLines, "%s", v)
		}
		opts.MaxLines = n
	}
	if v := q.Get("hash"); v != "" {
		h, err := strconv.ParseBool(v)
		if err != nil {
			return opts, eris.Wrapf(err, "parsing hash %q", v)
		}
		opts.Hash = h
	}
	return opts, opts.Validate()
}

// handleParse runs the engine on the request body
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(requestIDHeader)

	opts, err := optionsFromQuery(r.URL.Query())
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, NewErrorEnvelope(CodeArgsInvalid, "invalid options", err.Error()))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeEnvelope(w, http.StatusRequestEntityTooLarge, NewErrorEnvelope(CodeInputTooLarge, "request body exceeds max size", ""))
			return
		}
		slog.Error("Error reading request body", "request_id", requestID, "error", err)
		writeEnvelope(w, http.StatusBadRequest, NewErrorEnvelope(CodeInputUnreadable, "error reading request body", ""))
		return
	}

	text, err := scanning.DecodeText(body, r.Header.Get("Content-Type"), r.URL.Query().Get("charset"))
	if err != nil {
		slog.Warn("Error decoding request body", "request_id", requestID, "error", err)
		writeEnvelope(w, http.StatusBadRequest, NewErrorEnvelope(CodeInputUnreadable, "cannot decode input", err.Error()))
		return
	}
	text, truncated := scanning.TruncateLines(text, opts.MaxLines)
	if truncated {
		slog.Debug("Request body truncated", "request_id", requestID, "max_lines", opts.MaxLines)
	}
	if strings.TrimFunc(text, unicode.IsSpace) == "" {
		writeEnvelope(w, http.StatusBadRequest, NewErrorEnvelope(CodeInputEmpty, "request body is empty", ""))
		return
	}

	out := s.engine.Run(text, opts)
	if out.Status == ticket.StatusError {
		slog.Error("Engine returned error status", "request_id", requestID, "error", out.ErrorMessage)
		writeEnvelope(w, http.StatusInternalServerError, NewErrorEnvelope(CodeInternal, "engine error", out.ErrorMessage))
		return
	}

	doc, err := RenderV1(out, s.info)
	if err != nil {
		slog.Error("Error encoding response", "request_id", requestID, "error", err)
		writeEnvelope(w, http.StatusInternalServerError, NewErrorEnvelope(CodeInternal, "unexpected error", ""))
		return
	}

	slog.Info("Parsed ticket",
		"request_id", requestID,
		"status", out.Status,
		"confidence", out.Confidence,
		"chars", out.Input.Chars,
	)
	writeJSON(w, doc)
}

// handleVersion reports the engine build
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	data, err := json.Marshal(s.info)
	if err != nil {
		slog.Error("Error encoding response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, data)
}

// handleHealth is a liveness probe
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, []byte(`{"ok":true}`))
}
