package moderation

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// ErrEmptyDictionary is returned when no usable word is left after normalization.
var ErrEmptyDictionary = errors.New("no words have been found")

// edgeNoise is stripped from both ends of a token before matching, so that
// trailing punctuation is not read as leet speak.
const edgeNoise = `.,;:!?"'()[]{}<>`

// Moderator flags text containing a dictionary word. Matching is done per
// whitespace-separated token and only whole tokens count, so "hello" never
// matches "hell".
type Moderator struct {
	matcher *goahocorasick.Machine
	log     *slog.Logger
}

// NewModerator builds the Aho-Corasick automaton from the normalized
// dictionary. Words that normalize to nothing are skipped.
func NewModerator(words []string, log *slog.Logger) (*Moderator, error) {
	seen := make(map[string]struct{}, len(words))
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		norm := normalizeRunes([]rune(word))
		if len(norm) == 0 {
			continue
		}
		if _, dup := seen[string(norm)]; dup {
			continue
		}
		seen[string(norm)] = struct{}{}
		patterns = append(patterns, norm)
	}
	if len(patterns) == 0 {
		return nil, ErrEmptyDictionary
	}
	slices.SortFunc(patterns, func(a, b []rune) int {
		return strings.Compare(string(a), string(b))
	})

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	log.Debug("Moderation dictionary loaded", "words", len(patterns))
	return &Moderator{matcher: m, log: log}, nil
}

// IsProfane reports whether any token of text is a dictionary word once leet
// speak, case and inner punctuation are normalized away.
func (m *Moderator) IsProfane(text string) bool {
	for _, token := range strings.Fields(text) {
		token = strings.Trim(token, edgeNoise)
		norm := normalizeRunes([]rune(token))
		if len(norm) == 0 {
			continue
		}
		for _, term := range m.matcher.MultiPatternSearch(norm, false) {
			if term.Pos == 0 && len(term.Word) == len(norm) {
				return true
			}
		}
	}
	return false
}

// normalizeRunes applies simplification and noise removal to a slice of runes.
func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak characters back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
