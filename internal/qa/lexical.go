package qa

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// LexicalName identifies the built-in extractive model.
const LexicalName = "lexical"

// Lexical is an extractive model that needs no weights or network. It returns
// the sentence of the passage that shares the most informative words with the
// question. Results are deterministic.
type Lexical struct{}

// NewLexical returns the built-in model.
func NewLexical() *Lexical { return &Lexical{} }

// Name implements Model.
func (*Lexical) Name() string { return LexicalName }

// Answer implements Model.
func (*Lexical) Answer(ctx context.Context, passage, question string) (*Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := uniqueTerms(question)
	if len(terms) == 0 {
		return nil, ErrNoAnswer
	}
	sents := splitSentences(passage)
	if len(sents) == 0 {
		return nil, ErrNoAnswer
	}

	// Document frequency across sentences gives rarer words more weight.
	df := make(map[string]int, len(terms))
	for _, s := range sents {
		for _, t := range terms {
			if s.terms[t] {
				df[t]++
			}
		}
	}
	weight := make(map[string]float64, len(terms))
	var total float64
	for _, t := range terms {
		w := 1 + math.Log(float64(len(sents)+1)/float64(df[t]+1))
		weight[t] = w
		total += w
	}

	best, bestScore := -1, 0.0
	for i, s := range sents {
		var score float64
		for _, t := range terms {
			if s.terms[t] {
				score += weight[t]
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return nil, ErrNoAnswer
	}

	s := sents[best]
	return &Answer{
		Text:  s.text,
		Score: math.Round(bestScore/total*1e4) / 1e4,
		Start: s.start,
		End:   s.end,
		Model: LexicalName,
	}, nil
}

type sentence struct {
	text       string
	start, end int
	terms      map[string]bool
}

// splitSentences cuts the passage at terminal punctuation followed by space
// and at blank lines. Offsets are in runes and text is the exact span, inner
// line breaks included.
func splitSentences(passage string) []sentence {
	runes := []rune(passage)
	var out []sentence
	emit := func(from, to int) {
		for from < to && unicode.IsSpace(runes[from]) {
			from++
		}
		for to > from && unicode.IsSpace(runes[to-1]) {
			to--
		}
		if from == to {
			return
		}
		text := string(runes[from:to])
		set := make(map[string]bool)
		for _, t := range tokenize(text) {
			set[t] = true
		}
		if len(set) == 0 {
			return
		}
		out = append(out, sentence{text: text, start: from, end: to, terms: set})
	}

	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case (r == '.' || r == '!' || r == '?') && (next == 0 || unicode.IsSpace(next)):
			emit(start, i+1)
			start = i + 1
		case r == '\n' && next == '\n':
			emit(start, i)
			start = i + 1
		}
	}
	emit(start, len(runes))
	return out
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "did": true, "do": true, "does": true, "for": true, "from": true,
	"how": true, "in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "this": true, "to": true, "was": true,
	"were": true, "what": true, "when": true, "where": true, "which": true, "who": true,
	"whom": true, "why": true, "with": true,
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		out = append(out, stem(f))
	}
	return out
}

func uniqueTerms(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tokenize(s) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// stem strips a few common English suffixes so "merged" and "merge" compare
// equal.
func stem(w string) string {
	if len(w) <= 4 {
		return w
	}
	for _, suffix := range []string{"ing", "ed", "es", "s"} {
		if strings.HasSuffix(w, suffix) {
			w = strings.TrimSuffix(w, suffix)
			break
		}
	}
	if len(w) > 4 {
		w = strings.TrimSuffix(w, "e")
	}
	return w
}
