package lexical

// stopwords are function words never used as emphasis labels.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "nor": {},
	"if": {}, "then": {}, "than": {}, "because": {}, "as": {}, "of": {},
	"at": {}, "by": {}, "for": {}, "with": {}, "about": {}, "to": {},
	"from": {}, "in": {}, "on": {}, "into": {}, "onto": {}, "over": {},
	"under": {}, "up": {}, "down": {}, "out": {}, "off": {}, "is": {},
	"am": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "do": {}, "does": {}, "did": {}, "have": {}, "has": {},
	"had": {}, "i": {}, "me": {}, "my": {}, "we": {}, "us": {}, "our": {},
	"it": {}, "its": {}, "he": {}, "him": {}, "his": {}, "she": {},
	"her": {}, "they": {}, "them": {}, "their": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "there": {}, "here": {}, "what": {},
	"which": {}, "who": {}, "whom": {}, "will": {}, "would": {}, "can": {},
	"could": {}, "shall": {}, "should": {}, "may": {}, "might": {},
	"must": {}, "not": {}, "no": {}, "just": {}, "very": {}, "also": {},
	"too": {}, "i'm": {}, "it's": {}, "that's": {}, "don't": {},
}

// IsStopword reports whether a normalized token is a function word.
func IsStopword(normalized string) bool {
	_, ok := stopwords[normalized]
	return ok
}

// IsContentWord reports whether a raw token can label an emphasis hotspot:
// non-empty after normalization, not a function word and not a filler.
func IsContentWord(token string) bool {
	n := Normalize(token)
	return n != "" && !IsStopword(n) && !IsFiller(n)
}
