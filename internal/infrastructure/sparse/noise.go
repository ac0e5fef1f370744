package sparse

import (
	"regexp"
	"strings"
)

// Noise filters drop tokens that are artifacts of source or markup rather
// than searchable terms. Patterns are checked on the cleaned token, after
// lower-casing and edge stripping, so interior punctuation is what remains.

var (
	attrFragmentPattern = regexp.MustCompile(`[a-z0-9_\-]+\s*=\s*["']`)
	markupTagPattern    = regexp.MustCompile(`^</?[a-z][a-z0-9\-]*/?>?$`)
	numberPunctPattern  = regexp.MustCompile(`^[0-9]+[^a-z0-9]+[0-9]*$`)
	jsonKeyPattern      = regexp.MustCompile(`^"?[a-z0-9_\-]+"?\s*:`)
)

// Angle brackets only survive edge stripping when they sit inside a token;
// comparison operators are the one legitimate interior use.
var recognizedOperators = map[string]struct{}{
	"<": {}, ">": {}, "<=": {}, ">=": {}, "<<": {}, ">>": {}, "<>": {}, "->": {}, "=>": {},
}

func isNoiseToken(token string) bool {
	if attrFragmentPattern.MatchString(token) {
		return true
	}
	if markupTagPattern.MatchString(token) {
		return true
	}
	if hasStrayAngleBracket(token) {
		return true
	}
	if hasUnbalancedBrackets(token) {
		return true
	}
	if isRelativePathFragment(token) {
		return true
	}
	if numberPunctPattern.MatchString(token) {
		return true
	}
	if len(token) > 24 && jsonKeyPattern.MatchString(token) {
		return true
	}
	return false
}

func hasStrayAngleBracket(token string) bool {
	if !strings.ContainsAny(token, "<>") {
		return false
	}
	_, ok := recognizedOperators[token]
	return !ok
}

func hasUnbalancedBrackets(token string) bool {
	pairs := [...][2]rune{{'(', ')'}, {'[', ']'}, {'{', '}'}}
	for _, pair := range pairs {
		open := strings.Count(token, string(pair[0]))
		closed := strings.Count(token, string(pair[1]))
		if open != closed {
			return true
		}
	}
	return false
}

func isRelativePathFragment(token string) bool {
	if strings.HasPrefix(token, "./") || strings.HasPrefix(token, "../") {
		return true
	}
	return strings.Contains(token, "/")
}
