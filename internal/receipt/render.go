package receipt

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/zombor/ticketverify/internal/ticket"
)

// VersionInfo identifies the engine build in every rendered document
type VersionInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Build   string `json:"build"`
}

// DocumentV1 is the JSON layout of schema v1
type DocumentV1 struct {
	Schema   string      `json:"schema"`
	Engine   VersionInfo `json:"engine"`
	Input    InputV1     `json:"input"`
	Result   ResultV1    `json:"result"`
	Raw      RawV1       `json:"raw"`
	TimingMs TimingV1    `json:"timing_ms"`
	Error    *ErrorV1    `json:"error,omitempty"`
}

type InputV1 struct {
	Locale string `json:"locale"`
	Domain string `json:"domain"`
	Chars  int    `json:"chars"`
	Lines  int    `json:"lines"`
	Hash   string `json:"hash,omitempty"`
}

type ResultV1 struct {
	Status     string           `json:"status"`
	Confidence float64          `json:"confidence"`
	Fields     FieldsV1         `json:"fields"`
	Items      []ItemV1         `json:"items,omitempty"`
	Signals    ticket.Signals   `json:"signals"`
	Warnings   []ticket.Warning `json:"warnings,omitempty"`
}

type FieldsV1 struct {
	Merchant *StringFieldV1 `json:"merchant,omitempty"`
	Datetime *StringFieldV1 `json:"datetime,omitempty"`
	Total    *MoneyFieldV1  `json:"total,omitempty"`
}

type StringFieldV1 struct {
	Value      *string `json:"value,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

type MoneyFieldV1 struct {
	Value      *float64 `json:"value,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
}

type ItemV1 struct {
	Label      string   `json:"label"`
	Qty        float64  `json:"qty"`
	UnitPrice  *float64 `json:"unit_price,omitempty"`
	Total      *float64 `json:"total,omitempty"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
}

type RawV1 struct {
	NormalizedTextPreview string          `json:"normalized_text_preview"`
	Normalization         NormalizationV1 `json:"normalization"`
}

type NormalizationV1 struct {
	Applied []string `json:"applied"`
}

type TimingV1 struct {
	Total int64 `json:"total"`
	Parse int64 `json:"parse"`
	Score int64 `json:"score"`
}

type ErrorV1 struct {
	Message string `json:"message"`
}

// BuildV1 maps an engine output onto the v1 document
func BuildV1(out *ticket.EngineOutput, info VersionInfo) *DocumentV1 {
	t := out.Ticket
	if t == nil {
		t = ticket.NewParsedTicket()
	}

	doc := &DocumentV1{
		Schema: out.Schema,
		Engine: info,
		Input: InputV1{
			Locale: out.Input.Locale,
			Domain: out.Input.Domain,
			Chars:  out.Input.Chars,
			Lines:  out.Input.Lines,
			Hash:   out.Input.Hash,
		},
		Result: ResultV1{
			Status:     string(out.Status),
			Confidence: out.Confidence,
			Fields: FieldsV1{
				Merchant: stringField(t.Merchant),
				Datetime: stringField(t.Datetime),
				Total:    moneyField(t.Total),
			},
			Signals:  t.Signals,
			Warnings: t.Warnings,
		},
		Raw: RawV1{
			NormalizedTextPreview: out.NormalizedTextPreview,
			Normalization:         NormalizationV1{Applied: out.NormalizationApplied},
		},
		TimingMs: TimingV1{
			Total: out.Timing.Total,
			Parse: out.Timing.Parse,
			Score: out.Timing.Score,
		},
	}
	if doc.Raw.Normalization.Applied == nil {
		doc.Raw.Normalization.Applied = []string{}
	}

	for _, it := range t.Items {
		doc.Result.Items = append(doc.Result.Items, ItemV1{
			Label:      it.Label,
			Qty:        it.Qty,
			UnitPrice:  it.UnitPrice,
			Total:      it.Total,
			Confidence: it.Confidence,
			Source:     it.Source,
		})
	}

	if out.ErrorMessage != "" {
		doc.Error = &ErrorV1{Message: out.ErrorMessage}
	}
	return doc
}

// RenderV1 serializes an engine output as a single-line v1 JSON document
func RenderV1(out *ticket.EngineOutput, info VersionInfo) ([]byte, error) {
	data, err := json.Marshal(BuildV1(out, info))
	if err != nil {
		return nil, eris.Wrap(err, "marshaling v1 document")
	}
	return data, nil
}

// stringField renders a field only when it has a value or a non-zero confidence
func stringField(f ticket.Field[string]) *StringFieldV1 {
	if !f.Present() && f.Confidence <= 0 {
		return nil
	}
	return &StringFieldV1{Value: f.Value, Confidence: f.Confidence, Source: f.Source}
}

func moneyField(f ticket.Field[ticket.Money]) *MoneyFieldV1 {
	if !f.Present() && f.Confidence <= 0 {
		return nil
	}
	out := &MoneyFieldV1{Confidence: f.Confidence, Source: f.Source}
	if f.Present() {
		out.Value = &f.Value.Value
		out.Currency = f.Value.Currency
	}
	return out
}
