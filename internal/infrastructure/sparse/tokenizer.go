package sparse

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// ProcessorOptions toggles individual stages of the token pipeline. All
// stages are on by default; turning one off skips that stage only.
type ProcessorOptions struct {
	SplitIdentifiers bool
	FilterNoise      bool
	FilterStopWords  bool
	Stem             bool
}

func DefaultProcessorOptions() ProcessorOptions {
	return ProcessorOptions{
		SplitIdentifiers: true,
		FilterNoise:      true,
		FilterStopWords:  true,
		Stem:             true,
	}
}

// TokenProcessor turns free text into an ordered sequence of stemmed terms
// for sparse vector construction. Duplicates are preserved because term
// frequency matters downstream; order is insertion order of survivors.
type TokenProcessor struct {
	opts ProcessorOptions
}

func NewTokenProcessor(opts ProcessorOptions) *TokenProcessor {
	return &TokenProcessor{opts: opts}
}

func (p *TokenProcessor) Process(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	normalized := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	units := strings.Fields(normalized)

	out := make([]string, 0, len(units))
	for _, unit := range units {
		subWords := []string{unit}
		if p.opts.SplitIdentifiers && looksLikeIdentifier(unit) {
			subWords = splitIdentifier(unit)
		}

		for _, sub := range subWords {
			for _, piece := range strings.Split(sub, ".") {
				token := cleanToken(piece)
				if token == "" {
					continue
				}
				// Markup and attribute fragments are recognizable only
				// before edge stripping removes their delimiters.
				if p.opts.FilterNoise && (isNoiseToken(strings.ToLower(piece)) || isNoiseToken(token)) {
					continue
				}
				if p.opts.FilterStopWords && isStopToken(token) {
					continue
				}
				if p.opts.Stem && len(token) > 2 {
					stemmed := stemToFixedPoint(token)
					if len(stemmed) <= 2 {
						continue
					}
					if p.opts.FilterStopWords && isStopWord(stemmed) {
						continue
					}
					token = stemmed
				}
				out = append(out, token)
			}
		}
	}
	return out
}

// stemToFixedPoint re-stems until the output is stable, so processing
// already-processed text maps to the same terms. A single snowball pass
// is not idempotent: "databases" stems to "databas", which stems again
// to "databa".
func stemToFixedPoint(token string) string {
	for i := 0; i < 4; i++ {
		next := english.Stem(token, false)
		if next == token || next == "" {
			break
		}
		token = next
	}
	return token
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_\-]*$`)

// looksLikeIdentifier reports whether a unit should be decomposed into
// sub-words. Short units are kept whole to avoid shredding ordinary prose.
func looksLikeIdentifier(unit string) bool {
	return len(unit) > 4 && identifierPattern.MatchString(unit)
}

// splitIdentifier breaks snake_case, kebab-case and camelCase identifiers
// into their constituent words. Acronym runs stay together: HTTPServer
// yields HTTP and Server.
func splitIdentifier(ident string) []string {
	parts := strings.FieldsFunc(ident, func(r rune) bool {
		return r == '_' || r == '-'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, splitCamel(part)...)
	}
	return out
}

func splitCamel(word string) []string {
	runes := []rune(word)
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, 4)
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// End of an acronym run: "HTTPServer" splits before "Server".
			boundary = true
		case unicode.IsLetter(prev) && unicode.IsDigit(cur):
			boundary = true
		case unicode.IsDigit(prev) && unicode.IsLetter(cur):
			boundary = true
		}
		if boundary {
			out = append(out, string(runes[start:i]))
			start = i
		}
	}
	out = append(out, string(runes[start:]))
	return out
}

var unicodeEscapePattern = regexp.MustCompile(`\\u[0-9a-fA-F]{4}`)

// cleanToken lower-cases a token, decodes \uXXXX escapes, strips characters
// outside [a-z0-9@#$_] from the edges, and drops a leading underscore.
func cleanToken(raw string) string {
	token := unicodeEscapePattern.ReplaceAllStringFunc(raw, func(esc string) string {
		code, err := strconv.ParseUint(esc[2:], 16, 32)
		if err != nil {
			return esc
		}
		return string(rune(code))
	})
	token = strings.ToLower(token)

	token = strings.TrimFunc(token, func(r rune) bool {
		return !isTokenBodyRune(r)
	})
	token = strings.TrimLeft(token, "_")
	return token
}

func isTokenBodyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '@' || r == '#' || r == '$' || r == '_':
		return true
	default:
		return false
	}
}

func isStopToken(token string) bool {
	if len(token) <= 1 {
		return true
	}
	if isPurelyNumeric(token) {
		return true
	}
	return isStopWord(token)
}

func isPurelyNumeric(token string) bool {
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(token) > 0
}
