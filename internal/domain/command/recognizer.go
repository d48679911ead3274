package command

import "strings"

const (
	exactConfidence    = 1.0
	containsConfidence = 0.8
)

// Recognize picks the command whose trigger phrase best matches the
// transcription. Per phrase: exact match 1.0, containment 0.8, otherwise
// normalized Levenshtein similarity. Ties keep the first-declared command
// and phrase. Blank input yields (GetStatus, 0).
func Recognize(transcription string) (VoiceCommand, float64) {
	text := strings.ToLower(strings.TrimSpace(transcription))
	if text == "" {
		return GetStatus, 0
	}

	best, bestScore := GetStatus, -1.0
	for _, d := range definitions {
		for _, phrase := range d.phrases {
			if score := phraseConfidence(text, phrase); score > bestScore {
				best, bestScore = d.command, score
			}
		}
	}
	return best, bestScore
}

func phraseConfidence(text, phrase string) float64 {
	switch {
	case text == phrase:
		return exactConfidence
	case strings.Contains(text, phrase):
		return containsConfidence
	default:
		return similarity(text, phrase)
	}
}

// similarity is (len(longer) - distance) / len(longer) over runes.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	if longer == 0 {
		return 1
	}
	return float64(longer-levenshtein(ra, rb)) / float64(longer)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
