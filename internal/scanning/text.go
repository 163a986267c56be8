package scanning

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TruncateLines keeps text up to and including its maxLines-th newline and reports
// whether anything was cut
func TruncateLines(text string, maxLines int) (string, bool) {
	end := 0
	for lines := 0; lines < maxLines; lines++ {
		i := strings.IndexByte(text[end:], '\n')
		if i < 0 {
			return text, false
		}
		end += i + 1
	}
	return text[:end], end < len(text)
}

// splitNonEmptyLines returns the trimmed, non-empty lines of text, at most limit of them
func splitNonEmptyLines(text string, limit int) []string {
	lines := make([]string, 0, limit)
	for _, raw := range strings.Split(text, "\n") {
		if len(lines) >= limit {
			break
		}
		if line := strings.Trim(raw, " \t"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func hasLower(s string) bool {
	return strings.IndexFunc(s, unicode.IsLower) >= 0
}

// letterRatio is letters / (letters + digits), 0 when the line has neither
func letterRatio(s string) float64 {
	var letters, digits int
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	if letters+digits == 0 {
		return 0
	}
	return float64(letters) / float64(letters+digits)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// collapseSpaces turns every whitespace run into a single space and trims the result
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// foldAccents strips combining marks so "CAFÉ" compares equal to "CAFE"
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
