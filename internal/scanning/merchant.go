package scanning

import (
	"math"
	"strings"

	"github.com/zombor/ticketverify/internal/ticket"
)

const (
	// headerWindow is how many non-empty lines are searched for the merchant name
	headerWindow = 5

	minLetterRatio    = 0.8
	shortLineLen      = 8
	minMergeLineLen   = 3
	maxCandidateLines = 2

	merchantSource = "heuristic:merged_header_lines"
)

var boilerplateTokens = []string{
	"MERCI", "TICKET", "CLIENT", "TOTAL", "A PAYER", "NET",
	"TVA", "SIRET", "CB", "BIENVENUE", "BONJOUR", "AU REVOIR",
}

var businessKeywords = []string{"CAFE", "BAR", "RESTO", "RESTAURANT", "BRASSERIE"}

func isBoilerplate(line string) bool {
	for _, tok := range boilerplateTokens {
		if strings.Contains(line, tok) {
			return true
		}
	}
	return false
}

// hasBusinessKeyword matches upper-case cafe/bar/restaurant words regardless of accents
func hasBusinessKeyword(line string) bool {
	folded := foldAccents(line)
	for _, k := range businessKeywords {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

// passesLineFilters is the blacklist / digit / letter-ratio check every header line must pass
func passesLineFilters(line string) bool {
	return !isBoilerplate(line) && !hasDigit(line) && letterRatio(line) >= minLetterRatio
}

// isContinuation reports whether line may be appended to a candidate.
// Lowercase is rejected to keep slogans like "café de quartier" out of the name.
func isContinuation(line string) bool {
	return passesLineFilters(line) && runeLen(line) >= minMergeLineLen && !hasLower(line)
}

// ParseMerchant picks the business name from the first header lines of normalized text
func ParseMerchant(text string, t *ticket.ParsedTicket) {
	lines := splitNonEmptyLines(text, headerWindow)

	var best string
	bestScore := 0.0

	for i, line := range lines {
		if !passesLineFilters(line) {
			continue
		}

		// Short lines are usually a bare city ("RENNES"). Accept one only when it
		// names a kind of business and continues on the next line.
		if runeLen(line) < shortLineLen {
			if !hasBusinessKeyword(line) || i+1 >= len(lines) || !isContinuation(lines[i+1]) {
				continue
			}
		}

		candidate := line
		merged := 1
		for j := i + 1; j < len(lines) && merged < maxCandidateLines; j++ {
			if !isContinuation(lines[j]) {
				break
			}
			candidate += " " + lines[j]
			merged++
		}
		candidate = collapseSpaces(candidate)

		// strictly greater: on a tie the earlier candidate wins
		if score := letterRatio(candidate); score > bestScore {
			best, bestScore = candidate, score
		}
	}

	if best == "" {
		return
	}
	t.Merchant.Set(best, math.Min(0.95, 0.6+bestScore*0.35), merchantSource)
}
