package collection

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeLabel trims a spreadsheet label, collapses inner whitespace and upper-cases it.
func NormalizeLabel(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}

// IsStructuralLabel reports whether a normalized label is a known sheet header rather than a machine name.
// A keyword matches the whole label or its leading word.
func (cfg Config) IsStructuralLabel(normalized string) bool {
	for _, keyword := range cfg.ExcludedLabelKeywords {
		keyword = NormalizeLabel(keyword)
		if keyword == "" || !strings.HasPrefix(normalized, keyword) {
			continue
		}
		rest := []rune(normalized[len(keyword):])
		if len(rest) == 0 || !(unicode.IsLetter(rest[0]) || unicode.IsDigit(rest[0])) {
			return true
		}
	}
	return false
}

// CandidateLabels normalizes, de-duplicates and filters labels down to the ones a human may need to map.
func (cfg Config) CandidateLabels(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	candidates := make([]string, 0, len(raw))
	for _, label := range raw {
		normalized := NormalizeLabel(label)
		if normalized == "" || cfg.IsStructuralLabel(normalized) {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		candidates = append(candidates, normalized)
	}
	return candidates
}

// SynthesizeLabel builds the row label used by the normalized layout: the machine name, plus the seat
// description or seat number for machines that emit several rows.
func SynthesizeLabel(view DetailView, groupSize int) string {
	if !view.HasSeat() || (!view.MachineMultiSeat && groupSize <= 1) {
		return view.MachineName
	}
	if description := strings.TrimSpace(view.SeatDescription); description != "" {
		return view.MachineName + labelSeparator + description
	}
	return view.MachineName + fmt.Sprintf(seatSuffixFormat, view.SeatNumber)
}
