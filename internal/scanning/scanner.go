package scanning

import "github.com/zombor/ticketverify/internal/ticket"

// Parser fills fields of a ticket from normalized text. Parsers never fail: a value
// they cannot find is left empty.
type Parser interface {
	Parse(text string, t *ticket.ParsedTicket)
}

// ParserFunc adapts a function to the Parser interface
type ParserFunc func(text string, t *ticket.ParsedTicket)

// Parse calls f
func (f ParserFunc) Parse(text string, t *ticket.ParsedTicket) {
	f(text, t)
}

// DefaultParsers returns the field parsers in the order the engine runs them: total, then merchant
func DefaultParsers() []Parser {
	return []Parser{ParserFunc(ParseTotal), ParserFunc(ParseMerchant)}
}
