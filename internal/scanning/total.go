package scanning

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/zombor/ticketverify/internal/ticket"
)

const (
	totalConfidence = 0.85
	totalSource     = "regex:TOTAL"
)

// Anchor phrase, optional separator and currency marker, then the amount token
var totalPattern = regexp.MustCompile(
	`(?i)(TOTAL(?:\s+TTC)?|NET\s+[AÀ]\s+PAYER|[AÀ]\s+PAYER)\s*[:\-]?\s*(?:€|EUR)?\s*([0-9]{1,3}(?:[ .][0-9]{3})*(?:[.,][0-9]{1,2})?)`)

var currencyMarker = regexp.MustCompile(`(?i)€|EUR`)

// ParseTotal fills t.Total from the first anchor phrase found in normalized text.
// A missing or unreadable amount leaves the field empty.
func ParseTotal(text string, t *ticket.ParsedTicket) {
	m := totalPattern.FindStringSubmatch(text)
	if m == nil {
		return
	}

	amount, ok := ParseAmount(m[2])
	if !ok {
		return
	}
	t.Total.Set(ticket.Money{Value: amount, Currency: ticket.CurrencyEUR}, totalConfidence, totalSource)
}

// ParseAmount converts a French-style amount token ("1 234,56", "4,5", "€4,00") to a number.
// Comma or dot is the decimal separator when followed by one or two digits; any other
// dot groups thousands, so "4.500" is 4500 and "1.234,56" is 1234.56. A single
// fractional digit is read as tenths.
func ParseAmount(token string) (float64, bool) {
	s := currencyMarker.ReplaceAllString(token, "")
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return -1
		case r == ',':
			return '.'
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}

	whole, frac := s, ""
	if i := strings.LastIndexByte(s, '.'); i >= 0 && len(s)-i-1 <= 2 {
		whole, frac = s[:i], s[i+1:]
	}
	whole = strings.ReplaceAll(whole, ".", "")
	if whole == "" {
		whole = "0"
	}
	if len(frac) == 1 {
		frac += "0"
	}

	num := whole
	if frac != "" {
		num += "." + frac
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}
