// Package search scores videos against a free text query.
package search

import (
	"sort"
	"strings"
	"unicode"
)

const (
	// MaxQueryTokens bounds how many query words are considered.
	MaxQueryTokens = 20
	// DescriptionIndexLength is how many characters of a description are matched.
	DescriptionIndexLength = 1000

	titleWeight       = 0.8
	descriptionWeight = 0.2
)

// Tokenize lowercases text and splits it into words on anything that is not a
// letter or a digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

type bigram [2]string

// Query is a parsed search query.
type Query struct {
	Unigrams []string
	Bigrams  []bigram
}

// ParseQuery tokenizes q, keeps the first MaxQueryTokens words and builds the
// adjacent word pairs.
func ParseQuery(q string) Query {
	tokens := Tokenize(q)
	if len(tokens) > MaxQueryTokens {
		tokens = tokens[:MaxQueryTokens]
	}

	query := Query{Unigrams: tokens}
	for i := 0; i+1 < len(tokens); i++ {
		query.Bigrams = append(query.Bigrams, bigram{tokens[i], tokens[i+1]})
	}
	return query
}

// Empty reports whether the query has no words.
func (q Query) Empty() bool {
	return len(q.Unigrams) == 0
}

// Relevance scores a title and description against the query.
func (q Query) Relevance(title, description string) float64 {
	titleTokens := Tokenize(title)
	titleWords := wordSet(titleTokens)
	titlePairs := make(map[bigram]struct{}, len(titleTokens))
	for i := 0; i+1 < len(titleTokens); i++ {
		titlePairs[bigram{titleTokens[i], titleTokens[i+1]}] = struct{}{}
	}

	titleMatches := 0
	for _, word := range q.Unigrams {
		if _, ok := titleWords[word]; ok {
			titleMatches++
		}
	}
	for _, pair := range q.Bigrams {
		if _, ok := titlePairs[pair]; ok {
			titleMatches++
		}
	}

	descriptionWords := wordSet(Tokenize(truncateRunes(description, DescriptionIndexLength)))
	descriptionMatches := 0
	for _, word := range q.Unigrams {
		if _, ok := descriptionWords[word]; ok {
			descriptionMatches++
		}
	}

	return titleWeight*float64(titleMatches) + descriptionWeight*float64(descriptionMatches)
}

// Document is anything that can be matched by title and description.
type Document interface {
	SearchTitle() string
	SearchDescription() string
}

// Scored is a document with its relevance.
type Scored[T Document] struct {
	Doc       T
	Relevance float64
}

// Rank scores every document, drops the ones with no relevance and sorts the
// rest by descending relevance. Ties keep their input order.
func Rank[T Document](q Query, docs []T) []Scored[T] {
	scored := make([]Scored[T], 0, len(docs))
	for _, doc := range docs {
		relevance := q.Relevance(doc.SearchTitle(), doc.SearchDescription())
		if relevance <= 0 {
			continue
		}
		scored = append(scored, Scored[T]{Doc: doc, Relevance: relevance})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Relevance > scored[j].Relevance
	})
	return scored
}

func wordSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
