package scanning

import (
	"slices"
	"strings"
	"unicode"
)

// Normalization step names, in the order Normalize applies them
const (
	StepDropCR         = "drop_cr"
	StepTrim           = "trim"
	StepCollapseSpaces = "collapse_spaces"
	StepNBSPToSpace    = "nbsp_to_space"
)

var normalizationSteps = []string{StepDropCR, StepTrim, StepCollapseSpaces, StepNBSPToSpace}

// NormalizationSteps returns the fixed list of steps Normalize reports
func NormalizationSteps() []string {
	return slices.Clone(normalizationSteps)
}

// NormalizedText is cleaned OCR text plus the steps that produced it
type NormalizedText struct {
	Text    string
	Applied []string
}

// Normalize cleans raw OCR text. Every step is always reported, whether or not it
// changed this particular input.
func Normalize(input string) NormalizedText {
	s := strings.ReplaceAll(input, "\r", "")
	s = strings.TrimFunc(s, unicode.IsSpace)
	s = collapseHorizontalSpace(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")

	return NormalizedText{Text: s, Applied: NormalizationSteps()}
}

// collapseHorizontalSpace squeezes whitespace runs into one space but keeps newlines
func collapseHorizontalSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for _, r := range s {
		switch {
		case r == '\n':
			inSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
		default:
			inSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
