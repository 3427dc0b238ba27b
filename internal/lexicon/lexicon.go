// Package lexicon holds the per-language keyword lists used to classify
// submissions. A Lexicon is immutable once built.
package lexicon

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jonesrussell/civic-triage/infrastructure/logger"
)

// Reference deployment languages.
const (
	English     = "english"
	Kinyarwanda = "kinyarwanda"
)

var (
	// ErrInvalidFormat is returned when the document is not a
	// language → category → keyword list mapping.
	ErrInvalidFormat = errors.New("invalid lexicon format")
)

// CategoryKeywords is one category's keyword list, in file order.
type CategoryKeywords struct {
	Category string
	Keywords []string
}

// Language is the ordered category list for one language.
type Language struct {
	Name       string
	Categories []CategoryKeywords
}

// Lexicon maps languages to ordered category keyword lists.
type Lexicon struct {
	languages map[string]Language
	order     []string
}

// New builds a lexicon from languages. Later duplicates of a language
// replace earlier ones.
func New(langs ...Language) *Lexicon {
	l := &Lexicon{languages: make(map[string]Language, len(langs))}
	for _, lang := range langs {
		if _, seen := l.languages[lang.Name]; !seen {
			l.order = append(l.order, lang.Name)
		}
		l.languages[lang.Name] = cloneLanguage(lang)
	}
	return l
}

// Empty returns the degraded lexicon: the reference languages with no
// categories, so every classification misses.
func Empty() *Lexicon {
	return New(Language{Name: English}, Language{Name: Kinyarwanda})
}

// Load reads the lexicon file at path. It never fails: a missing or corrupt
// file is logged and yields Empty.
func Load(path string, log logger.Logger) *Lexicon {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("Failed to read lexicon, keyword classification disabled",
			logger.String("path", path),
			logger.Error(err),
		)
		return Empty()
	}

	lex, err := Parse(data)
	if err != nil {
		log.Error("Failed to parse lexicon, keyword classification disabled",
			logger.String("path", path),
			logger.Error(err),
		)
		return Empty()
	}

	log.Info("Lexicon loaded",
		logger.String("path", path),
		logger.Strings("languages", lex.Languages()),
		logger.Int("keywords", lex.KeywordCount()),
	)
	return lex
}

// Parse decodes a JSON or YAML document of the form
// {language: {category: [keyword, ...]}}, preserving category order.
func Parse(data []byte) (*Lexicon, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode lexicon: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidFormat)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping of languages", ErrInvalidFormat)
	}

	langs := make([]Language, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		lang, err := parseLanguage(name, root.Content[i+1])
		if err != nil {
			return nil, err
		}
		langs = append(langs, lang)
	}

	return New(langs...), nil
}

func parseLanguage(name string, node *yaml.Node) (Language, error) {
	if node.Kind != yaml.MappingNode {
		return Language{}, fmt.Errorf("%w: language %q must map categories to keyword lists", ErrInvalidFormat, name)
	}

	lang := Language{Name: name}
	index := make(map[string]int, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		category := node.Content[i].Value
		var keywords []string
		if err := node.Content[i+1].Decode(&keywords); err != nil {
			return Language{}, fmt.Errorf("%w: %s/%s: %w", ErrInvalidFormat, name, category, err)
		}

		// A repeated key keeps its first position and takes the last value.
		if pos, ok := index[category]; ok {
			lang.Categories[pos].Keywords = keywords
			continue
		}
		index[category] = len(lang.Categories)
		lang.Categories = append(lang.Categories, CategoryKeywords{Category: category, Keywords: keywords})
	}

	return lang, nil
}

// Language returns a copy of the named language.
func (l *Lexicon) Language(name string) (Language, bool) {
	lang, ok := l.languages[name]
	if !ok {
		return Language{}, false
	}
	return cloneLanguage(lang), true
}

// HasLanguage reports whether name is present.
func (l *Lexicon) HasLanguage(name string) bool {
	_, ok := l.languages[name]
	return ok
}

// Languages lists language names in file order.
func (l *Lexicon) Languages() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// KeywordCount counts keyword entries across all languages.
func (l *Lexicon) KeywordCount() int {
	n := 0
	for _, lang := range l.languages {
		for _, c := range lang.Categories {
			n += len(c.Keywords)
		}
	}
	return n
}

func cloneLanguage(lang Language) Language {
	out := Language{Name: lang.Name, Categories: make([]CategoryKeywords, len(lang.Categories))}
	for i, c := range lang.Categories {
		out.Categories[i] = CategoryKeywords{
			Category: c.Category,
			Keywords: append([]string(nil), c.Keywords...),
		}
	}
	return out
}
