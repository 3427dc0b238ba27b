// Package classifier picks a submission category by keyword scoring
// against a lexicon. Matching runs one Aho-Corasick pass per description.
package classifier

import (
	"strings"
	"unicode/utf8"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/lexicon"
)

// DefaultFallbackLanguage is used when the requested language is unknown.
const DefaultFallbackLanguage = lexicon.English

// KeywordWeight scores one matched keyword entry.
type KeywordWeight func(keyword string) int

// RuneLength weighs a keyword by its length in characters.
func RuneLength(keyword string) int {
	return utf8.RuneCountInString(keyword)
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithFallbackLanguage sets the language used for unknown or empty input
// languages.
func WithFallbackLanguage(name string) Option {
	return func(c *Classifier) {
		if name != "" {
			c.fallback = strings.ToLower(name)
		}
	}
}

// WithKeywordWeight replaces RuneLength.
func WithKeywordWeight(w KeywordWeight) Option {
	return func(c *Classifier) {
		if w != nil {
			c.weight = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Classifier) {
		if log != nil {
			c.log = log
		}
	}
}

// Classifier is safe for concurrent use; all state is built in New.
type Classifier struct {
	langs    map[string]*languageIndex
	order    []string
	fallback string
	weight   KeywordWeight
	log      logger.Logger
}

type languageIndex struct {
	categories []categoryIndex
	dict       []string
	matcher    *ahocorasick.Matcher
}

type categoryIndex struct {
	name    string
	entries []keywordEntry
}

// keywordEntry is one listed keyword. Repeated keywords keep one entry each.
type keywordEntry struct {
	keyword string
	dictIdx int
	weight  int
}

// New indexes every language in lex.
func New(lex *lexicon.Lexicon, opts ...Option) *Classifier {
	c := &Classifier{
		langs:    make(map[string]*languageIndex),
		fallback: DefaultFallbackLanguage,
		weight:   RuneLength,
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, name := range lex.Languages() {
		lang, _ := lex.Language(name)
		idx := c.buildIndex(lang)
		key := strings.ToLower(name)
		c.langs[key] = idx
		c.order = append(c.order, key)

		c.log.Debug("Classifier language indexed",
			logger.String("language", name),
			logger.Int("categories", len(idx.categories)),
			logger.Int("keywords", len(idx.dict)),
		)
	}

	return c
}

func (c *Classifier) buildIndex(lang lexicon.Language) *languageIndex {
	idx := &languageIndex{categories: make([]categoryIndex, 0, len(lang.Categories))}
	positions := make(map[string]int)

	for _, cat := range lang.Categories {
		ci := categoryIndex{name: cat.Category, entries: make([]keywordEntry, 0, len(cat.Keywords))}
		for _, kw := range cat.Keywords {
			normalized := normalize(kw)
			if normalized == "" {
				continue
			}
			pos, ok := positions[normalized]
			if !ok {
				pos = len(idx.dict)
				positions[normalized] = pos
				idx.dict = append(idx.dict, normalized)
			}
			ci.entries = append(ci.entries, keywordEntry{keyword: normalized, dictIdx: pos, weight: c.weight(normalized)})
		}
		idx.categories = append(idx.categories, ci)
	}

	if len(idx.dict) > 0 {
		idx.matcher = ahocorasick.NewStringMatcher(idx.dict)
	}
	return idx
}

// Classify returns the best-scoring category for description. The strictly
// highest nonzero score wins and ties go to the earlier category.
func (c *Classifier) Classify(description, lang string) (string, bool) {
	idx := c.index(lang)
	if idx == nil {
		return "", false
	}

	present := idx.match(description)
	if present == nil {
		return "", false
	}

	best, bestScore := "", 0
	for _, cat := range idx.categories {
		score := 0
		for _, e := range cat.entries {
			if present[e.dictIdx] {
				score += e.weight
			}
		}
		if score > bestScore {
			best, bestScore = cat.name, score
		}
	}

	if bestScore == 0 {
		return "", false
	}
	return best, true
}

// CategoryScore is one category's result in an Explanation.
type CategoryScore struct {
	Category string   `json:"category"`
	Score    int      `json:"score"`
	Matched  []string `json:"matched,omitempty"`
}

// Explanation breaks a classification down by category.
type Explanation struct {
	Language string          `json:"language"`
	Category string          `json:"category,omitempty"`
	Matched  bool            `json:"matched"`
	Scores   []CategoryScore `json:"scores"`
}

// Explain scores every category of the effective language, in lexicon
// order. Its Category always agrees with Classify.
func (c *Classifier) Explain(description, lang string) Explanation {
	exp := Explanation{Language: c.effectiveLanguage(lang)}
	idx := c.index(lang)
	if idx == nil {
		return exp
	}

	present := idx.match(description)
	bestScore := 0
	exp.Scores = make([]CategoryScore, 0, len(idx.categories))
	for _, cat := range idx.categories {
		cs := CategoryScore{Category: cat.name}
		for _, e := range cat.entries {
			if present != nil && present[e.dictIdx] {
				cs.Score += e.weight
				cs.Matched = append(cs.Matched, e.keyword)
			}
		}
		if cs.Score > bestScore {
			exp.Category, bestScore = cat.name, cs.Score
		}
		exp.Scores = append(exp.Scores, cs)
	}
	exp.Matched = bestScore > 0

	return exp
}

// Languages lists the indexed languages in lexicon order.
func (c *Classifier) Languages() []string {
	return append([]string(nil), c.order...)
}

// effectiveLanguage matches lang case-insensitively, falling back when it
// is not indexed.
func (c *Classifier) effectiveLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := c.langs[lang]; ok && lang != "" {
		return lang
	}
	return c.fallback
}

func (c *Classifier) index(lang string) *languageIndex {
	return c.langs[c.effectiveLanguage(lang)]
}

// match reports which dictionary entries occur in description.
func (idx *languageIndex) match(description string) []bool {
	if idx.matcher == nil || description == "" {
		return nil
	}

	hits := idx.matcher.MatchThreadSafe([]byte(normalize(description)))
	if len(hits) == 0 {
		return nil
	}

	present := make([]bool, len(idx.dict))
	for _, h := range hits {
		if h >= 0 && h < len(present) {
			present[h] = true
		}
	}
	return present
}

// normalize lower-cases s. A Caser holds state, so each call gets its own.
func normalize(s string) string {
	return cases.Lower(language.Und).String(s)
}
