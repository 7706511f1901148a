package lexical

import (
	"strings"
	"unicode"
)

// fillerUnigrams are single tokens counted as fillers.
var fillerUnigrams = map[string]struct{}{
	"um":        {},
	"uh":        {},
	"like":      {},
	"actually":  {},
	"basically": {},
	"literally": {},
	"so":        {},
	"okay":      {},
	"right":     {},
	"well":      {},
}

// fillerBigram is the only two-token filler.
var fillerBigram = [2]string{"you", "know"}

// FillerBigram is the byType key of the two-token filler.
const FillerBigram = "you know"

// FillerStats summarizes filler usage in a transcript.
type FillerStats struct {
	Total      int            `json:"total"`
	ByType     map[string]int `json:"byType"`
	MostCommon *string        `json:"mostCommon"`
}

// Clean trims surrounding punctuation, symbols and whitespace.
func Clean(token string) string {
	return strings.TrimFunc(token, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
}

// Normalize lowercases a cleaned token, so "Um," and "um" compare equal.
func Normalize(token string) string {
	return strings.ToLower(Clean(token))
}

// IsFiller reports whether a normalized token is a filler unigram or part
// of the filler bigram.
func IsFiller(normalized string) bool {
	if _, ok := fillerUnigrams[normalized]; ok {
		return true
	}
	return normalized == fillerBigram[0] || normalized == fillerBigram[1]
}

// DetectFillers counts fillers in an ordered list of token texts. A "you
// know" match consumes both tokens, so neither is counted again.
func DetectFillers(tokens []string) FillerStats {
	stats := FillerStats{ByType: map[string]int{}}

	var order []string
	count := func(kind string) {
		if stats.ByType[kind] == 0 {
			order = append(order, kind)
		}
		stats.ByType[kind]++
		stats.Total++
	}

	norm := make([]string, len(tokens))
	for i, t := range tokens {
		norm[i] = Normalize(t)
	}

	for i := 0; i < len(norm); i++ {
		if i+1 < len(norm) && norm[i] == fillerBigram[0] && norm[i+1] == fillerBigram[1] {
			count(FillerBigram)
			i++
			continue
		}
		if _, ok := fillerUnigrams[norm[i]]; ok {
			count(norm[i])
		}
	}

	// first-seen wins ties
	best := 0
	for _, kind := range order {
		kind := kind
		if n := stats.ByType[kind]; n > best {
			best = n
			stats.MostCommon = &kind
		}
	}
	return stats
}
