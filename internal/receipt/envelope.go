package receipt

import (
	"encoding/json"
	"strings"
)

// Error codes reported to callers outside the engine
const (
	CodeArgsInvalid     = "ARGS_INVALID"
	CodeInputTooLarge   = "INPUT_TOO_LARGE"
	CodeInputEmpty      = "INPUT_EMPTY"
	CodeInputUnreadable = "INPUT_UNREADABLE"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL"
)

// ErrorEnvelope is the single JSON document emitted instead of a result
type ErrorEnvelope struct {
	OK    bool      `json:"ok"`
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// NewErrorEnvelope builds an envelope. Detail often echoes raw input, so invalid
// UTF-8 in it is replaced with '?'.
func NewErrorEnvelope(code, message, detail string) ErrorEnvelope {
	return ErrorEnvelope{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Detail:  strings.ToValidUTF8(detail, "?"),
		},
	}
}

// Bytes renders the envelope as one JSON line without trailing newline
func (e ErrorEnvelope) Bytes() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		// only strings inside, cannot fail
		return []byte(`{"ok":false,"error":{"code":"INTERNAL","message":"unexpected error"}}`)
	}
	return data
}
