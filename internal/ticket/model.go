package ticket

// Status is the overall verdict of a pipeline run
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusReject  Status = "reject"
	StatusError   Status = "error"
)

// SourceNone marks a field no rule has produced a value for
const SourceNone = "none"

// CurrencyEUR is the only currency the fr_FR rules produce
const CurrencyEUR = "EUR"

// Field is an extracted value together with its confidence and the rule that produced it.
// Confidence is 0 when Value is nil, except when a caller deliberately flags a field
// that was considered and rejected.
type Field[T any] struct {
	Value      *T
	Confidence float64 // 0..1
	Source     string  // e.g. "regex:TOTAL", "heuristic:merged_header_lines"
}

// NewField returns an empty field with source "none"
func NewField[T any]() Field[T] {
	return Field[T]{Source: SourceNone}
}

// Set stores a value with its confidence and provenance
func (f *Field[T]) Set(value T, confidence float64, source string) {
	f.Value = &value
	f.Confidence = confidence
	f.Source = source
}

// Present reports whether the field holds a value
func (f Field[T]) Present() bool {
	return f.Value != nil
}

// Money is an amount in a given currency
type Money struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Item is a purchased line. No parser fills these yet.
type Item struct {
	Label      string
	Qty        float64
	UnitPrice  *float64
	Total      *float64
	Confidence float64
	Source     string
}

// NewItem returns an item with a quantity of one
func NewItem(label string) Item {
	return Item{Label: label, Qty: 1.0, Source: SourceNone}
}

// Signals are binary regulatory and payment markers found in the text
type Signals struct {
	HasTVA          bool `json:"has_tva"`
	HasSIRET        bool `json:"has_siret"`
	HasCardKeywords bool `json:"has_card_keywords"`
}

// Severity of a warning
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Warning is a non-fatal observation made while parsing
type Warning struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Warning codes
const (
	WarnTotalNotFound = "TOTAL_NOT_FOUND"
)

// ParsedTicket collects everything the parsers extracted from one text
type ParsedTicket struct {
	Merchant Field[string]
	Datetime Field[string] // ISO 8601, reserved
	Total    Field[Money]

	Items    []Item
	Signals  Signals
	Warnings []Warning
}

// NewParsedTicket returns a ticket with every field empty
func NewParsedTicket() *ParsedTicket {
	return &ParsedTicket{
		Merchant: NewField[string](),
		Datetime: NewField[string](),
		Total:    NewField[Money](),
	}
}

// AddWarning appends a warning; warnings never stop processing
func (t *ParsedTicket) AddWarning(code, message string, severity Severity) {
	t.Warnings = append(t.Warnings, Warning{Code: code, Message: message, Severity: severity})
}

// InputMeta describes the text handed to the engine
type InputMeta struct {
	Locale string
	Domain string
	Chars  int
	Lines  int
	Hash   string // "sha256:<hex>" when requested
}

// TimingMs holds elapsed milliseconds per phase
type TimingMs struct {
	Total int64
	Parse int64
	Score int64
}

// EngineOutput is the complete result of one pipeline run
type EngineOutput struct {
	Schema     string
	Status     Status
	Confidence float64

	Input  InputMeta
	Ticket *ParsedTicket
	Timing TimingMs

	NormalizedTextPreview string
	NormalizationApplied  []string

	// Set only when Status is StatusError
	ErrorMessage string
}
