package scanning

import (
	"regexp"

	"github.com/zombor/ticketverify/internal/ticket"
)

var (
	// 14-digit SIRET, contiguous as OCR usually renders it
	siretPattern = regexp.MustCompile(`(?i)\bSIRET\b[^0-9]*[0-9]{14}\b`)
	tvaPattern   = regexp.MustCompile(`(?i)\bTVA\b\.?`)
	cardPattern  = regexp.MustCompile(`(?i)\b(?:CB|CARTE\s+BANCAIRE|CARTE\s+BLEUE|CARTE|CARD|CREDIT\s+CARD|VISA|MASTERCARD|MAESTRO|AMEX|AMERICAN\s+EXPRESS|SANS\s+CONTACT|CONTACTLESS)\b`)
)

// DetectSignals scans normalized text for tax id, VAT and card payment markers
func DetectSignals(text string) ticket.Signals {
	return ticket.Signals{
		HasSIRET:        siretPattern.MatchString(text),
		HasTVA:          tvaPattern.MatchString(text),
		HasCardKeywords: cardPattern.MatchString(text),
	}
}
