package ticket

import (
	"strings"

	"github.com/rotisserie/eris"
)

var (
	ErrUnsupportedSchema = eris.New("unsupported schema")
	ErrUnsupportedLocale = eris.New("unsupported locale")
	ErrUnsupportedDomain = eris.New("unsupported domain")
	ErrInvalidMaxLines   = eris.New("invalid max lines")
)

// SchemaV1 is the only output schema version
const SchemaV1 = "v1"

// SchemaPrefix is prepended to the schema version in rendered output
const SchemaPrefix = "ticketverify."

// DefaultMaxLines caps the number of lines counted and read
const DefaultMaxLines = 4000

// Locale is a locale hint
type Locale string

const (
	LocaleAuto Locale = "auto"
	LocaleFrFR Locale = "fr_FR"
)

// ParseLocale converts a user supplied locale name
func ParseLocale(s string) (Locale, error) {
	switch Locale(s) {
	case LocaleAuto, LocaleFrFR:
		return Locale(s), nil
	}
	return "", eris.Wrapf(ErrUnsupportedLocale, "%s", s)
}

// Domain is a business domain hint. Parsers do not consult it yet.
type Domain string

const (
	DomainAuto  Domain = "auto"
	DomainCafe  Domain = "cafe"
	DomainResto Domain = "resto"
)

// ParseDomain converts a user supplied domain name
func ParseDomain(s string) (Domain, error) {
	switch Domain(s) {
	case DomainAuto, DomainCafe, DomainResto:
		return Domain(s), nil
	}
	return "", eris.Wrapf(ErrUnsupportedDomain, "%s", s)
}

// Options controls a single pipeline run
type Options struct {
	Schema   string
	Locale   Locale
	Domain   Domain
	MaxLines int
	Hash     bool
	Debug    bool
}

// DefaultOptions returns the options used when a caller sets nothing
func DefaultOptions() Options {
	return Options{
		Schema:   SchemaV1,
		Locale:   LocaleAuto,
		Domain:   DomainAuto,
		MaxLines: DefaultMaxLines,
	}
}

// WithDefaults fills zero-valued fields from DefaultOptions. A non-positive MaxLines
// counts as unset.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Schema == "" {
		o.Schema = d.Schema
	}
	if o.Locale == "" {
		o.Locale = d.Locale
	}
	if o.Domain == "" {
		o.Domain = d.Domain
	}
	if o.MaxLines <= 0 {
		o.MaxLines = d.MaxLines
	}
	return o
}

// Validate checks every option against its accepted values
func (o Options) Validate() error {
	if o.Schema != SchemaV1 {
		return eris.Wrapf(ErrUnsupportedSchema, "%s", o.Schema)
	}
	if _, err := ParseLocale(string(o.Locale)); err != nil {
		return err
	}
	if _, err := ParseDomain(string(o.Domain)); err != nil {
		return err
	}
	if o.MaxLines <= 0 {
		return eris.Wrapf(ErrInvalidMaxLines, "%d", o.MaxLines)
	}
	return nil
}

// SchemaTag returns the schema identifier written to the output
func (o Options) SchemaTag() string {
	return SchemaPrefix + strings.TrimSpace(o.Schema)
}
